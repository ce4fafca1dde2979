package repository

import (
	"fmt"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinerec/internal/service"
	"gorm.io/gorm"
)

// PgVectorIndex 基于 pgvector 的最近邻索引适配层
// 向量存放在 movies 表的 embedding 列，检索用余弦距离。
type PgVectorIndex struct {
	db        *gorm.DB
	dimension int
}

// NewPgVectorIndex 创建 pgvector 索引适配器
func NewPgVectorIndex(db *gorm.DB, dimension int) *PgVectorIndex {
	return &PgVectorIndex{db: db, dimension: dimension}
}

// Dimension 索引配置的向量维度
func (x *PgVectorIndex) Dimension() int {
	return x.dimension
}

// Upsert 覆盖写入单条向量
func (x *PgVectorIndex) Upsert(title string, vector []float32) error {
	if len(vector) != x.dimension {
		return fmt.Errorf("向量维度不匹配: 期望 %d, 实际 %d", x.dimension, len(vector))
	}
	return x.db.Exec(`
		INSERT INTO movies (title, embedding, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (title) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			updated_at = EXCLUDED.updated_at
	`, title, pgvector.NewVector(vector)).Error
}

// BulkUpsert 批量写入（单事务）
func (x *PgVectorIndex) BulkUpsert(entries []service.IndexEntry) error {
	return x.db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			if len(entry.Vector) != x.dimension {
				return fmt.Errorf("向量维度不匹配 (title: %s): 期望 %d, 实际 %d",
					entry.Title, x.dimension, len(entry.Vector))
			}
			if err := tx.Exec(`
				INSERT INTO movies (title, embedding, updated_at)
				VALUES ($1, $2, now())
				ON CONFLICT (title) DO UPDATE SET
					embedding = EXCLUDED.embedding,
					updated_at = EXCLUDED.updated_at
			`, entry.Title, pgvector.NewVector(entry.Vector)).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Query 返回最相似的 k 个标题，余弦距离升序，距离相同按标题字典序
func (x *PgVectorIndex) Query(vector []float32, k int) ([]string, error) {
	if len(vector) != x.dimension {
		return nil, fmt.Errorf("向量维度不匹配: 期望 %d, 实际 %d", x.dimension, len(vector))
	}

	rows, err := x.db.Raw(`
		SELECT title FROM movies
		WHERE embedding IS NOT NULL
		ORDER BY embedding <=> $1, title
		LIMIT $2
	`, pgvector.NewVector(vector), k).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, err
		}
		titles = append(titles, title)
	}
	return titles, rows.Err()
}
