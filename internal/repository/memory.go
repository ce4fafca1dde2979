package repository

import (
	"sort"
	"sync"
	"time"

	"github.com/user/cinerec/internal/model"
	"github.com/user/cinerec/internal/service"
)

// MemoryMovieStore 内存片库存储（STORAGE=memory 的单机模式与测试用）
// 读写都基于拷贝，调用方拿到的记录不会与存储内部共享。
type MemoryMovieStore struct {
	mu     sync.RWMutex
	movies map[string]model.Movie
}

// NewMemoryMovieStore 创建内存片库
func NewMemoryMovieStore() *MemoryMovieStore {
	return &MemoryMovieStore{
		movies: make(map[string]model.Movie),
	}
}

// Get 根据标题查找电影
func (s *MemoryMovieStore) Get(title string) (*model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movie, ok := s.movies[title]
	if !ok {
		return nil, service.ErrMovieNotFound
	}
	return &movie, nil
}

// Save 写回已存在的记录
func (s *MemoryMovieStore) Save(movie *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[movie.Title]; !ok {
		return service.ErrMovieNotFound
	}
	stored := *movie
	stored.UpdatedAt = time.Now()
	s.movies[movie.Title] = stored
	return nil
}

// Upsert 创建或更新电影
func (s *MemoryMovieStore) Upsert(movie *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *movie
	stored.UpdatedAt = time.Now()
	s.movies[movie.Title] = stored
	return nil
}

// All 返回全部记录（标题字典序）
func (s *MemoryMovieStore) All() ([]model.Movie, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	movies := make([]model.Movie, 0, len(s.movies))
	for _, movie := range s.movies {
		movies = append(movies, movie)
	}
	sort.Slice(movies, func(i, j int) bool { return movies[i].Title < movies[j].Title })
	return movies, nil
}

// Count 记录总数
func (s *MemoryMovieStore) Count() (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.movies)), nil
}
