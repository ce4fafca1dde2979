package service

import (
	"context"
	"errors"

	"github.com/user/cinerec/internal/model"
)

// 业务层哨声错误，调用方用 errors.Is 判断
var (
	// ErrMovieNotFound 评分/查询的电影不在片库中
	ErrMovieNotFound = errors.New("电影不存在")
	// ErrRefreshFailed 向量刷新失败（数值融合可能已落库，详见 RatingService）
	ErrRefreshFailed = errors.New("向量刷新失败")
	// ErrRecommendationFailed 推荐流程失败（检索或生成环节出错）
	ErrRecommendationFailed = errors.New("推荐生成失败")
)

// CatalogStore 片库存储，MovieRecord 的唯一持有者
type CatalogStore interface {
	// Get 按标题查找，不存在返回 ErrMovieNotFound
	Get(title string) (*model.Movie, error)
	// Save 整条覆盖写回（调用方负责并发串行化）
	Save(movie *model.Movie) error
	// Upsert 按标题新增或更新
	Upsert(movie *model.Movie) error
	// All 返回全部记录（启动时批量向量化用）
	All() ([]model.Movie, error)
	// Count 记录总数
	Count() (int64, error)
}

// IndexEntry 向量索引的一条写入
type IndexEntry struct {
	Title  string
	Vector []float32
}

// VectorIndex 最近邻检索索引的抽象
type VectorIndex interface {
	// Upsert 覆盖写入单条向量，重复写入相同向量等价于无操作
	Upsert(title string, vector []float32) error
	// BulkUpsert 片库加载时的批量写入
	BulkUpsert(entries []IndexEntry) error
	// Query 返回与 vector 最相似的 k 个标题，相似度降序，相同相似度按标题字典序
	Query(vector []float32, k int) ([]string, error)
	// Dimension 索引配置的向量维度
	Dimension() int
}

// Embedder 向量化协作方（文本 -> 固定维度向量）
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Generator 文本生成协作方
type Generator interface {
	Generate(ctx context.Context, prompt string, maxNewTokens int) (string, error)
}
