package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinerec/internal/model"
	"github.com/user/cinerec/internal/service"
	"gorm.io/gorm"
)

// MovieRepository Postgres 片库存储
// 单条查询不加载 embedding 列（业务路径只读数值字段与 Combined 文本）；
// All 会带上向量，供启动时检查哪些记录还没完成向量化。
type MovieRepository struct {
	db *gorm.DB
}

func NewMovieRepository(db *gorm.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `id, title, type, director, "cast", country, release_year,
	genres, imdb_rating, imdb_votes, community_mean, rating_count, combined, updated_at`

func scanMovie(row *sql.Row) (*model.Movie, error) {
	var movie model.Movie
	err := row.Scan(
		&movie.ID, &movie.Title, &movie.Type, &movie.Director, &movie.Cast,
		&movie.Country, &movie.ReleaseYear, &movie.Genres,
		&movie.ImdbRating, &movie.ImdbVotes,
		&movie.CommunityMean, &movie.RatingCount, &movie.Combined, &movie.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &movie, nil
}

// Get 根据标题查找电影
func (r *MovieRepository) Get(title string) (*model.Movie, error) {
	row := r.db.Raw(`SELECT `+movieColumns+` FROM movies WHERE title = $1`, title).Row()
	movie, err := scanMovie(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, service.ErrMovieNotFound
		}
		return nil, err
	}
	return movie, nil
}

// Save 写回记录的可变字段；记录不存在返回 ErrMovieNotFound
func (r *MovieRepository) Save(movie *model.Movie) error {
	res := r.db.Exec(`
		UPDATE movies SET
			imdb_rating = $1,
			imdb_votes = $2,
			community_mean = $3,
			rating_count = $4,
			updated_at = $5
		WHERE title = $6
	`, movie.ImdbRating, movie.ImdbVotes, movie.CommunityMean, movie.RatingCount,
		time.Now(), movie.Title)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return service.ErrMovieNotFound
	}

	// embedding 单独写入，nil 表示本次不更新向量列
	if movie.Embedding != nil {
		return r.db.Exec(`UPDATE movies SET embedding = $1 WHERE title = $2`,
			movie.Embedding, movie.Title).Error
	}
	return nil
}

// Upsert 创建或更新电影
func (r *MovieRepository) Upsert(movie *model.Movie) error {
	return r.db.Exec(`
		INSERT INTO movies (title, type, director, "cast", country, release_year,
		                    genres, imdb_rating, imdb_votes, community_mean,
		                    rating_count, combined, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (title) DO UPDATE SET
			type = EXCLUDED.type,
			director = EXCLUDED.director,
			"cast" = EXCLUDED."cast",
			country = EXCLUDED.country,
			release_year = EXCLUDED.release_year,
			genres = EXCLUDED.genres,
			imdb_rating = EXCLUDED.imdb_rating,
			imdb_votes = EXCLUDED.imdb_votes,
			combined = EXCLUDED.combined,
			updated_at = EXCLUDED.updated_at
	`, movie.Title, movie.Type, movie.Director, movie.Cast, movie.Country,
		movie.ReleaseYear, movie.Genres, movie.ImdbRating, movie.ImdbVotes,
		movie.CommunityMean, movie.RatingCount, movie.Combined, time.Now()).Error
}

// All 返回全部记录（含向量列，NULL 向量对应 Embedding 为 nil）
func (r *MovieRepository) All() ([]model.Movie, error) {
	rows, err := r.db.Raw(`SELECT ` + movieColumns + `, embedding::text FROM movies ORDER BY title`).Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movies []model.Movie
	for rows.Next() {
		var movie model.Movie
		var embedding sql.NullString
		if err := rows.Scan(
			&movie.ID, &movie.Title, &movie.Type, &movie.Director, &movie.Cast,
			&movie.Country, &movie.ReleaseYear, &movie.Genres,
			&movie.ImdbRating, &movie.ImdbVotes,
			&movie.CommunityMean, &movie.RatingCount, &movie.Combined, &movie.UpdatedAt,
			&embedding,
		); err != nil {
			return nil, err
		}
		if embedding.Valid {
			var vec pgvector.Vector
			if err := vec.Scan(embedding.String); err != nil {
				return nil, err
			}
			movie.Embedding = &vec
		}
		movies = append(movies, movie)
	}
	return movies, rows.Err()
}

// Count 记录总数
func (r *MovieRepository) Count() (int64, error) {
	var count int64
	err := r.db.Raw(`SELECT count(*) FROM movies`).Scan(&count).Error
	return count, err
}
