package repository

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/user/cinerec/internal/service"
)

// MemoryVectorIndex 内存最近邻索引（暴力余弦相似度）
// 与 PgVectorIndex 行为一致：相似度降序，相同相似度按标题字典序。
type MemoryVectorIndex struct {
	mu        sync.RWMutex
	dimension int
	vectors   map[string][]float32
}

// NewMemoryVectorIndex 创建内存向量索引
func NewMemoryVectorIndex(dimension int) *MemoryVectorIndex {
	return &MemoryVectorIndex{
		dimension: dimension,
		vectors:   make(map[string][]float32),
	}
}

// Dimension 索引配置的向量维度
func (x *MemoryVectorIndex) Dimension() int {
	return x.dimension
}

// Upsert 覆盖写入单条向量
func (x *MemoryVectorIndex) Upsert(title string, vector []float32) error {
	if len(vector) != x.dimension {
		return fmt.Errorf("向量维度不匹配: 期望 %d, 实际 %d", x.dimension, len(vector))
	}
	stored := make([]float32, len(vector))
	copy(stored, vector)

	x.mu.Lock()
	x.vectors[title] = stored
	x.mu.Unlock()
	return nil
}

// BulkUpsert 批量写入
func (x *MemoryVectorIndex) BulkUpsert(entries []service.IndexEntry) error {
	for _, entry := range entries {
		if err := x.Upsert(entry.Title, entry.Vector); err != nil {
			return err
		}
	}
	return nil
}

// Query 返回最相似的 k 个标题
func (x *MemoryVectorIndex) Query(vector []float32, k int) ([]string, error) {
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("向量维度不匹配: 期望 %d, 实际 %d", x.dimension, len(vector))
	}

	type scored struct {
		title string
		score float64
	}

	x.mu.RLock()
	candidates := make([]scored, 0, len(x.vectors))
	for title, stored := range x.vectors {
		candidates = append(candidates, scored{title: title, score: cosineSimilarity(vector, stored)})
	}
	x.mu.RUnlock()

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].score != candidates[j].score {
			return candidates[i].score > candidates[j].score
		}
		return candidates[i].title < candidates[j].title
	})

	if k > len(candidates) {
		k = len(candidates)
	}
	titles := make([]string, 0, k)
	for _, c := range candidates[:k] {
		titles = append(titles, c.title)
	}
	return titles, nil
}

// cosineSimilarity 余弦相似度，零向量记为 0
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
