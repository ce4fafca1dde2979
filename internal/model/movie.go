package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// Movie 电影模型（片库记录）
// Title 是唯一键；编辑评分字段来自 OMDb，指针为 nil 表示外部数据缺失。
type Movie struct {
	ID          int              `json:"id" db:"id"`
	Title       string           `json:"title" db:"title" gorm:"unique"`
	Type        string           `json:"type" db:"type"`
	Director    string           `json:"director" db:"director"`
	Cast        string           `json:"cast" db:"cast"`
	Country     string           `json:"country" db:"country"`
	ReleaseYear string           `json:"release_year" db:"release_year"`
	Genres      pq.StringArray   `json:"genres" db:"genres" gorm:"type:text[]"`
	ImdbRating  *float64         `json:"imdb_rating" db:"imdb_rating"`
	ImdbVotes   *int             `json:"imdb_votes" db:"imdb_votes"`
	// 自上次融合以来的社区评分均值与计数；计数达到阈值后归零
	CommunityMean float64          `json:"community_mean" db:"community_mean"`
	RatingCount   int              `json:"rating_count" db:"rating_count"`
	Combined      string           `json:"combined" db:"combined"`
	Embedding     *pgvector.Vector `json:"-" db:"embedding" gorm:"type:vector(768)"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at" gorm:"index"`
}
