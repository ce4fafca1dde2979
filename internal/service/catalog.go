package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/pgvector/pgvector-go"
	"github.com/user/cinerec/internal/model"
	"golang.org/x/sync/errgroup"
)

const (
	// enrichConcurrency OMDb 评分抓取并发数
	enrichConcurrency = 8
	// embedConcurrency 批量向量化并发数（各记录之间无共享可变状态）
	embedConcurrency = 4
)

// CatalogService 片库加载与启动时批量向量化
type CatalogService struct {
	store    CatalogStore
	index    VectorIndex
	embedder Embedder
	omdb     *OMDBService
}

// NewCatalogService 创建片库服务
func NewCatalogService(store CatalogStore, index VectorIndex, embedder Embedder, omdb *OMDBService) *CatalogService {
	return &CatalogService{
		store:    store,
		index:    index,
		embedder: embedder,
		omdb:     omdb,
	}
}

// Bootstrap 启动流程：CSV 加载 -> 评分补全 -> 批量向量化 -> 批量写入索引
// 片库非空时跳过加载，但会补做上次中断遗留的向量化（重启可恢复）。
func (s *CatalogService) Bootstrap(ctx context.Context, csvPath string) error {
	count, err := s.store.Count()
	if err != nil {
		return fmt.Errorf("读取片库记录数失败: %w", err)
	}
	if count > 0 {
		log.Printf("[Catalog] 片库已有 %d 条记录，跳过加载", count)
		return s.resumeEmbedding(ctx)
	}

	movies, err := LoadCSV(csvPath)
	if err != nil {
		return fmt.Errorf("加载片库 CSV 失败: %w", err)
	}
	log.Printf("[Catalog] CSV 加载完成，共 %d 条", len(movies))

	s.enrichRatings(movies)

	for i := range movies {
		movies[i].Combined = BuildCombined(&movies[i])
		if err := s.store.Upsert(&movies[i]); err != nil {
			return fmt.Errorf("写入片库失败 (title: %s): %w", movies[i].Title, err)
		}
	}

	if err := s.bulkEmbed(ctx, movies); err != nil {
		return err
	}

	log.Printf("[Catalog] 片库初始化完成")
	return nil
}

// resumeEmbedding 补做缺失的向量化。上次启动若在向量化阶段中断，
// 片库里会留下没有向量的记录，它们不会出现在检索结果里，这里重新向量化。
func (s *CatalogService) resumeEmbedding(ctx context.Context) error {
	movies, err := s.store.All()
	if err != nil {
		return fmt.Errorf("读取片库失败: %w", err)
	}

	var pending []model.Movie
	for _, movie := range movies {
		if movie.Embedding == nil {
			pending = append(pending, movie)
		}
	}
	if len(pending) == 0 {
		return nil
	}

	log.Printf("[Catalog] 发现 %d 条记录缺少向量，重新向量化", len(pending))
	return s.bulkEmbed(ctx, pending)
}

// enrichRatings 并发补全编辑评分，单条失败不影响整体加载
func (s *CatalogService) enrichRatings(movies []model.Movie) {
	var g errgroup.Group
	g.SetLimit(enrichConcurrency)

	for i := range movies {
		i := i
		g.Go(func() error {
			movies[i].ImdbRating, movies[i].ImdbVotes = s.omdb.FetchRatings(movies[i].Title)
			return nil
		})
	}
	_ = g.Wait()
}

// bulkEmbed 并发向量化全部记录并批量写入索引
func (s *CatalogService) bulkEmbed(ctx context.Context, movies []model.Movie) error {
	var mu sync.Mutex
	entries := make([]IndexEntry, 0, len(movies))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(embedConcurrency)

	for i := range movies {
		i := i
		g.Go(func() error {
			vec, err := s.embedder.Embed(gctx, movies[i].Combined)
			if err != nil {
				return fmt.Errorf("向量化失败 (title: %s): %w", movies[i].Title, err)
			}
			if len(vec) != s.index.Dimension() {
				return fmt.Errorf("向量维度不匹配 (title: %s): 期望 %d, 实际 %d",
					movies[i].Title, s.index.Dimension(), len(vec))
			}

			v := pgvector.NewVector(vec)
			movies[i].Embedding = &v
			if err := s.store.Save(&movies[i]); err != nil {
				return fmt.Errorf("保存向量失败 (title: %s): %w", movies[i].Title, err)
			}

			mu.Lock()
			entries = append(entries, IndexEntry{Title: movies[i].Title, Vector: vec})
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if err := s.index.BulkUpsert(entries); err != nil {
		return fmt.Errorf("批量写入索引失败: %w", err)
	}
	log.Printf("[Catalog] 批量向量化完成，共 %d 条", len(entries))
	return nil
}

// LoadCSV 读取片库 CSV（netflix_titles 格式），按表头取列
func LoadCSV(path string) ([]model.Movie, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("读取表头失败: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{"title", "type"} {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("CSV 缺少必需列: %s", required)
		}
	}

	field := func(row []string, name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var movies []model.Movie
	seen := make(map[string]bool)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("读取 CSV 行失败: %w", err)
		}

		title := field(row, "title")
		if title == "" || seen[title] {
			// 标题是唯一键，空标题或重复行直接跳过
			continue
		}
		seen[title] = true

		movies = append(movies, model.Movie{
			Title:       title,
			Type:        field(row, "type"),
			Director:    field(row, "director"),
			Cast:        field(row, "cast"),
			Country:     field(row, "country"),
			ReleaseYear: field(row, "release_year"),
			Genres:      splitGenres(field(row, "listed_in")),
		})
	}

	return movies, nil
}

// BuildCombined 派生描述文本，同时作为向量化输入与检索上下文
// 字段以 " - " 连接，末尾附带编辑评分；加载后不再变更。
func BuildCombined(movie *model.Movie) string {
	ratingStr := "N/A"
	if movie.ImdbRating != nil {
		ratingStr = strconv.FormatFloat(*movie.ImdbRating, 'f', -1, 64)
	}

	parts := []string{
		movie.Type,
		movie.Title,
		movie.Director,
		movie.Cast,
		movie.Country,
		movie.ReleaseYear,
		strings.Join(movie.Genres, ", "),
	}
	return strings.Join(parts, " - ") + " - Rating: " + ratingStr
}

// splitGenres 拆分逗号分隔的类型列表
func splitGenres(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
