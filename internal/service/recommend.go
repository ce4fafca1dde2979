package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/user/cinerec/internal/utils"
	"golang.org/x/sync/singleflight"
)

// promptTemplate 推荐提示词模板，占位依次为用户偏好原文、候选影片上下文
const promptTemplate = "用户的观影偏好：'%s'\n结合以下候选影片信息：\n%s\n请从中推荐一部最合适的电影，并简要说明推荐理由。"

// RecommendService 检索增强推荐服务
type RecommendService struct {
	store        CatalogStore
	index        VectorIndex
	embedder     Embedder
	generator    Generator
	topK         int
	maxNewTokens int
	timeout      time.Duration

	// 查询向量缓存：同一偏好描述短期内重复提交时跳过向量化
	embedCache *utils.TTLCache[[]float32]
	sf         singleflight.Group
}

// NewRecommendService 创建推荐服务
func NewRecommendService(store CatalogStore, index VectorIndex, embedder Embedder,
	generator Generator, topK, maxNewTokens int, timeout time.Duration) *RecommendService {
	return &RecommendService{
		store:        store,
		index:        index,
		embedder:     embedder,
		generator:    generator,
		topK:         topK,
		maxNewTokens: maxNewTokens,
		timeout:      timeout,
		embedCache:   utils.NewTTLCache[[]float32](1000, 1*time.Hour),
	}
}

// Recommend 根据用户偏好描述生成推荐文本
// 检索与上下文拼装是确定性的；生成环节带超时，超时/取消直接放弃整次调用，
// 不返回部分结果。任何协作方失败统一包装为 ErrRecommendationFailed。
func (s *RecommendService) Recommend(ctx context.Context, userQuery string) (string, error) {
	// 结果短缓存 + singleflight，避免相同偏好的并发重复生成
	cacheKey := "recommend:" + userQuery
	if cached, found := utils.CacheGet(cacheKey); found {
		if text, ok := cached.(string); ok {
			return text, nil
		}
	}

	val, err, _ := s.sf.Do(userQuery, func() (interface{}, error) {
		return s.recommendInternal(ctx, userQuery)
	})
	if err != nil {
		return "", err
	}

	text := val.(string)
	utils.CacheSet(cacheKey, text, 10*time.Minute)
	return text, nil
}

func (s *RecommendService) recommendInternal(ctx context.Context, userQuery string) (string, error) {
	queryVec, err := s.embedQuery(ctx, userQuery)
	if err != nil {
		return "", fmt.Errorf("%w: 查询向量化失败: %v", ErrRecommendationFailed, err)
	}

	titles, err := s.index.Query(queryVec, s.topK)
	if err != nil {
		return "", fmt.Errorf("%w: 向量检索失败: %v", ErrRecommendationFailed, err)
	}

	// 按检索返回顺序拼装上下文，不做重排，也不做长度截断；
	// 超出生成模型输入上限时由生成环节报错。
	contexts := make([]string, 0, len(titles))
	for _, title := range titles {
		movie, err := s.store.Get(title)
		if err != nil {
			return "", fmt.Errorf("%w: 读取片库失败 (title: %s): %v", ErrRecommendationFailed, title, err)
		}
		contexts = append(contexts, movie.Combined)
	}

	prompt := fmt.Sprintf(promptTemplate, userQuery, strings.Join(contexts, "\n"))

	genCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	text, err := s.generator.Generate(genCtx, prompt, s.maxNewTokens)
	if err != nil {
		return "", fmt.Errorf("%w: 生成失败: %v", ErrRecommendationFailed, err)
	}

	log.Printf("[RecommendService] 推荐完成: 检索 %d 条候选", len(titles))
	return text, nil
}

// embedQuery 查询文本向量化（带 LRU 缓存）
func (s *RecommendService) embedQuery(ctx context.Context, userQuery string) ([]float32, error) {
	if vec, ok := s.embedCache.Get(userQuery); ok {
		return vec, nil
	}

	vec, err := s.embedder.Embed(ctx, userQuery)
	if err != nil {
		return nil, err
	}
	if len(vec) != s.index.Dimension() {
		return nil, fmt.Errorf("向量维度不匹配: 期望 %d, 实际 %d", s.index.Dimension(), len(vec))
	}

	s.embedCache.Set(userQuery, vec)
	return vec, nil
}
