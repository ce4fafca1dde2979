package repository

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// InitDB 初始化数据库连接并准备表结构
func InitDB(databaseURL string, dimension int) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("无法连接数据库: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	// 测试连接
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("数据库 ping 失败: %w", err)
	}

	// 设置连接池
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := ensureSchema(db, dimension); err != nil {
		return nil, err
	}

	return db, nil
}

// ensureSchema 建表与向量索引，维度来自 VectorIndexConfig
// 维度与已有表不一致属于致命配置错误，建索引时会直接失败。
func ensureSchema(db *gorm.DB, dimension int) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS movies (
			id SERIAL PRIMARY KEY,
			title TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL DEFAULT '',
			director TEXT NOT NULL DEFAULT '',
			"cast" TEXT NOT NULL DEFAULT '',
			country TEXT NOT NULL DEFAULT '',
			release_year TEXT NOT NULL DEFAULT '',
			genres TEXT[] NOT NULL DEFAULT '{}',
			imdb_rating DOUBLE PRECISION,
			imdb_votes INTEGER,
			community_mean DOUBLE PRECISION NOT NULL DEFAULT 0,
			rating_count INTEGER NOT NULL DEFAULT 0,
			combined TEXT NOT NULL DEFAULT '',
			embedding vector(%d),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, dimension),
		`CREATE INDEX IF NOT EXISTS idx_movies_embedding ON movies
			USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100)`,
	}

	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("初始化表结构失败: %w", err)
		}
	}
	return nil
}

// Repositories 仓库集合
type Repositories struct {
	DB     *gorm.DB
	Movie  *MovieRepository
	Vector *PgVectorIndex
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB, dimension int) *Repositories {
	return &Repositories{
		DB:     db,
		Movie:  NewMovieRepository(db),
		Vector: NewPgVectorIndex(db, dimension),
	}
}
