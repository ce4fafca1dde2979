package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinerec/internal/model"
)

const (
	// RefreshThreshold 累计多少条社区评分后触发一次融合刷新
	RefreshThreshold = 30
	// upsertRetries 向量索引写入的重试次数
	upsertRetries = 3
)

// RatingResult 一次评分的处理结果
type RatingResult struct {
	Title      string   `json:"title"`
	Count      int      `json:"count"`     // 本轮已累计的评分数（刷新后归零）
	Refreshed  bool     `json:"refreshed"` // 本次评分是否触发了融合刷新
	ImdbRating *float64 `json:"imdb_rating"`
	ImdbVotes  *int     `json:"imdb_votes"`
}

// RatingService 评分聚合与向量刷新服务
// 同一标题的读-改-写必须串行，不同标题相互独立，因此按标题持锁。
type RatingService struct {
	store    CatalogStore
	index    VectorIndex
	embedder Embedder

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewRatingService 创建评分服务
func NewRatingService(store CatalogStore, index VectorIndex, embedder Embedder) *RatingService {
	return &RatingService{
		store:    store,
		index:    index,
		embedder: embedder,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockFor 获取标题对应的互斥锁（锁条目只增不删，上限为片库大小）
func (s *RatingService) lockFor(title string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[title]
	if !ok {
		l = &sync.Mutex{}
		s.locks[title] = l
	}
	return l
}

// RecordRating 记录一次用户评分，计满阈值时在同一临界区内完成融合刷新
// 电影不存在时返回 ErrMovieNotFound，不产生任何状态变更。
// 刷新环节失败时返回 ErrRefreshFailed，此时数值融合已落库（已知的局部状态，
// 优于静默丢弃融合结果），仅向量重建/索引写入待重试。
func (s *RatingService) RecordRating(ctx context.Context, title string, value float64) (*RatingResult, error) {
	l := s.lockFor(title)
	l.Lock()
	defer l.Unlock()

	movie, err := s.store.Get(title)
	if err != nil {
		return nil, err
	}

	// 增量均值：n=0 时新均值即本次评分值
	n := movie.RatingCount
	movie.CommunityMean = (movie.CommunityMean*float64(n) + value) / float64(n+1)
	movie.RatingCount = n + 1

	// 触发条件是严格等于阈值；临界区内计数每次只加一且在刷新时归零，
	// 因此不会越过阈值。
	if movie.RatingCount != RefreshThreshold {
		if err := s.store.Save(movie); err != nil {
			return nil, err
		}
		return s.result(movie), nil
	}

	s.blend(movie)
	if err := s.store.Save(movie); err != nil {
		return nil, err
	}

	result := s.result(movie)
	result.Refreshed = true

	if err := s.refreshEmbedding(ctx, movie); err != nil {
		log.Printf("[RatingService] 刷新向量失败 (title: %s): %v", title, err)
		return result, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}

	log.Printf("[RatingService] 已融合社区评分并刷新向量: %s", title)
	return result, nil
}

// blend 把社区均值按 RefreshThreshold 张虚拟票并入编辑评分
// 编辑评分缺失时按零权重处理（首次融合后编辑评分即等于社区均值）。
// 均值保留原值不清零：计数归零后下一条评分按 n=0 重新起算。
func (s *RatingService) blend(movie *model.Movie) {
	var r float64
	var v int
	if movie.ImdbRating != nil {
		r = *movie.ImdbRating
	}
	if movie.ImdbVotes != nil {
		v = *movie.ImdbVotes
	}

	newRating := (r*float64(v) + RefreshThreshold*movie.CommunityMean) / float64(v+RefreshThreshold)
	newVotes := v + RefreshThreshold

	movie.ImdbRating = &newRating
	movie.ImdbVotes = &newVotes
	movie.RatingCount = 0
}

// refreshEmbedding 对未变的 Combined 文本重新向量化并发布到索引
// 持有记录锁期间执行，保证同一标题不会有两次刷新交错。
func (s *RatingService) refreshEmbedding(ctx context.Context, movie *model.Movie) error {
	vec, err := s.embedder.Embed(ctx, movie.Combined)
	if err != nil {
		return fmt.Errorf("生成向量失败: %w", err)
	}
	if len(vec) != s.index.Dimension() {
		return fmt.Errorf("向量维度不匹配: 期望 %d, 实际 %d", s.index.Dimension(), len(vec))
	}

	v := pgvector.NewVector(vec)
	movie.Embedding = &v
	if err := s.store.Save(movie); err != nil {
		return fmt.Errorf("保存向量失败: %w", err)
	}

	var lastErr error
	for i := 0; i < upsertRetries; i++ {
		if i > 0 {
			time.Sleep(time.Duration(i) * 200 * time.Millisecond)
		}
		if lastErr = s.index.Upsert(movie.Title, vec); lastErr == nil {
			return nil
		}
		log.Printf("[RatingService] 索引写入失败，第 %d 次重试 (title: %s): %v", i+1, movie.Title, lastErr)
	}
	return fmt.Errorf("索引写入重试耗尽: %w", lastErr)
}

func (s *RatingService) result(movie *model.Movie) *RatingResult {
	return &RatingResult{
		Title:      movie.Title,
		Count:      movie.RatingCount,
		ImdbRating: movie.ImdbRating,
		ImdbVotes:  movie.ImdbVotes,
	}
}
