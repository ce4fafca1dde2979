package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/user/cinerec/internal/model"
)

// fakeStore 内存片库桩
type fakeStore struct {
	mu     sync.Mutex
	movies map[string]model.Movie
	saves  int
}

func newFakeStore(movies ...model.Movie) *fakeStore {
	s := &fakeStore{movies: make(map[string]model.Movie)}
	for _, m := range movies {
		s.movies[m.Title] = m
	}
	return s
}

func (s *fakeStore) Get(title string) (*model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.movies[title]
	if !ok {
		return nil, ErrMovieNotFound
	}
	return &m, nil
}

func (s *fakeStore) Save(movie *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.movies[movie.Title]; !ok {
		return ErrMovieNotFound
	}
	s.movies[movie.Title] = *movie
	s.saves++
	return nil
}

func (s *fakeStore) Upsert(movie *model.Movie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.movies[movie.Title] = *movie
	return nil
}

func (s *fakeStore) All() ([]model.Movie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := make([]model.Movie, 0, len(s.movies))
	for _, m := range s.movies {
		all = append(all, m)
	}
	return all, nil
}

func (s *fakeStore) Count() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.movies)), nil
}

// fakeIndex 向量索引桩，记录全部写入并返回固定检索结果
type fakeIndex struct {
	mu          sync.Mutex
	dim         int
	upserts     []IndexEntry
	bulkUpserts [][]IndexEntry
	queryResult []string
	upsertErr   error
	queryErr    error
}

func newFakeIndex(dim int) *fakeIndex {
	return &fakeIndex{dim: dim}
}

func (x *fakeIndex) Dimension() int { return x.dim }

func (x *fakeIndex) Upsert(title string, vector []float32) error {
	if x.upsertErr != nil {
		return x.upsertErr
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	x.upserts = append(x.upserts, IndexEntry{Title: title, Vector: vector})
	return nil
}

func (x *fakeIndex) BulkUpsert(entries []IndexEntry) error {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.bulkUpserts = append(x.bulkUpserts, entries)
	return nil
}

func (x *fakeIndex) Query(vector []float32, k int) ([]string, error) {
	if x.queryErr != nil {
		return nil, x.queryErr
	}
	if k > len(x.queryResult) {
		k = len(x.queryResult)
	}
	return x.queryResult[:k], nil
}

func (x *fakeIndex) upsertCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.upserts)
}

// fakeEmbedder 向量化桩
type fakeEmbedder struct {
	mu    sync.Mutex
	vec   []float32
	err   error
	calls int
	texts []string
}

func (e *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	e.calls++
	e.texts = append(e.texts, text)
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}
	return e.vec, nil
}

// fakeGenerator 生成桩，记录收到的提示词
type fakeGenerator struct {
	prompt string
	tokens int
	out    string
	err    error
}

func (g *fakeGenerator) Generate(ctx context.Context, prompt string, maxNewTokens int) (string, error) {
	g.prompt = prompt
	g.tokens = maxNewTokens
	if g.err != nil {
		return "", g.err
	}
	return g.out, nil
}

func makeVec(dim int, fill float32) []float32 {
	vec := make([]float32, dim)
	for i := range vec {
		vec[i] = fill
	}
	return vec
}

func ptrFloat(v float64) *float64 { return &v }
func ptrInt(v int) *int           { return &v }

func movieFixture(title string) model.Movie {
	return model.Movie{
		Title:    title,
		Type:     "Movie",
		Combined: fmt.Sprintf("Movie - %s - Rating: N/A", title),
	}
}
