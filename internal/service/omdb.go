package service

import (
	"fmt"
	"log"
	"net/url"
	"strconv"
	"strings"

	"github.com/user/cinerec/internal/utils"
	"golang.org/x/sync/singleflight"
)

// OMDBService 编辑评分提供方（OMDb API）客户端
// 任何失败都降级为"评分缺失"，不会中断片库加载。
type OMDBService struct {
	apiKey  string
	baseURL string
	client  *utils.HTTPClient
	group   singleflight.Group
}

// NewOMDBService 创建 OMDb 客户端
func NewOMDBService(apiKey string) *OMDBService {
	return &OMDBService{
		apiKey:  apiKey,
		baseURL: "http://www.omdbapi.com",
		client:  utils.NewHTTPClient(),
	}
}

type omdbResponse struct {
	Response   string `json:"Response"`
	ImdbRating string `json:"imdbRating"`
	ImdbVotes  string `json:"imdbVotes"`
	Error      string `json:"Error"`
}

// ratingPair singleflight 返回值
type ratingPair struct {
	rating *float64
	votes  *int
}

// FetchRatings 按标题获取 IMDb 评分与票数，缺失或出错时对应值为 nil
func (s *OMDBService) FetchRatings(title string) (*float64, *int) {
	if s.apiKey == "" {
		return nil, nil
	}

	// singleflight 避免并发重复请求同一标题
	val, err, _ := s.group.Do(title, func() (interface{}, error) {
		return s.fetchInternal(title)
	})
	if err != nil {
		log.Printf("[OMDb] 获取评分失败 (title: %s): %v", title, err)
		return nil, nil
	}

	pair := val.(ratingPair)
	return pair.rating, pair.votes
}

func (s *OMDBService) fetchInternal(title string) (ratingPair, error) {
	reqURL := fmt.Sprintf("%s/?t=%s&apikey=%s", s.baseURL, url.QueryEscape(title), s.apiKey)

	var result omdbResponse
	if err := s.client.GetJSON(reqURL, &result); err != nil {
		return ratingPair{}, err
	}

	if result.Response != "True" {
		// OMDb 未收录该片，按评分缺失处理
		return ratingPair{}, nil
	}

	return ratingPair{
		rating: parseRating(result.ImdbRating),
		votes:  parseVotes(result.ImdbVotes),
	}, nil
}

// parseRating 解析评分字符串，"N/A" 或非法值返回 nil
func parseRating(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// parseVotes 解析票数字符串（OMDb 返回千分位格式，如 "1,234,567"）
func parseVotes(s string) *int {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "N/A" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &v
}
