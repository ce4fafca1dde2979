package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/user/cinerec/internal/model"
)

func TestLoadCSV(t *testing.T) {
	movies, err := LoadCSV(filepath.Join("testdata", "catalog.csv"))
	if err != nil {
		t.Fatalf("加载失败: %v", err)
	}

	// 空标题与重复标题行跳过
	if len(movies) != 3 {
		t.Fatalf("期望 3 条记录, 实际 %d", len(movies))
	}

	first := movies[0]
	if first.Title != "Inception" || first.Type != "Movie" {
		t.Errorf("首条记录解析错误: %+v", first)
	}
	if first.Director != "Christopher Nolan" {
		t.Errorf("导演解析错误: %s", first.Director)
	}
	if first.ReleaseYear != "2010" {
		t.Errorf("年份解析错误: %s", first.ReleaseYear)
	}
	if len(first.Genres) != 2 || first.Genres[0] != "Action & Adventure" || first.Genres[1] != "Sci-Fi & Fantasy" {
		t.Errorf("类型解析错误: %v", first.Genres)
	}
	// 首条保留，后到的重复标题被跳过
	if first.Country != "United States" {
		t.Errorf("重复标题应保留首条, 实际 country: %s", first.Country)
	}
}

func TestLoadCSVMissingColumn(t *testing.T) {
	if _, err := LoadCSV(filepath.Join("testdata", "nonexistent.csv")); err == nil {
		t.Error("不存在的文件应报错")
	}
}

func TestBuildCombined(t *testing.T) {
	movie := model.Movie{
		Title:       "Inception",
		Type:        "Movie",
		Director:    "Christopher Nolan",
		Cast:        "Leonardo DiCaprio",
		Country:     "United States",
		ReleaseYear: "2010",
		Genres:      []string{"Action", "Sci-Fi"},
		ImdbRating:  ptrFloat(8.8),
	}

	want := "Movie - Inception - Christopher Nolan - Leonardo DiCaprio - United States - 2010 - Action, Sci-Fi - Rating: 8.8"
	if got := BuildCombined(&movie); got != want {
		t.Errorf("拼装错误:\n期望: %q\n实际: %q", want, got)
	}

	// 评分缺失时以 N/A 结尾
	movie.ImdbRating = nil
	want = "Movie - Inception - Christopher Nolan - Leonardo DiCaprio - United States - 2010 - Action, Sci-Fi - Rating: N/A"
	if got := BuildCombined(&movie); got != want {
		t.Errorf("缺失评分拼装错误: %q", got)
	}
}

func TestBootstrap(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex(testDim)
	embedder := &fakeEmbedder{vec: makeVec(testDim, 0.3)}
	svc := NewCatalogService(store, index, embedder, NewOMDBService(""))

	csvPath := filepath.Join("testdata", "catalog.csv")
	if err := svc.Bootstrap(context.Background(), csvPath); err != nil {
		t.Fatalf("初始化失败: %v", err)
	}

	count, _ := store.Count()
	if count != 3 {
		t.Fatalf("片库应有 3 条记录, 实际 %d", count)
	}
	if len(index.bulkUpserts) != 1 || len(index.bulkUpserts[0]) != 3 {
		t.Fatalf("应批量写入 3 条向量, 实际 %v", index.bulkUpserts)
	}

	movie, err := store.Get("Dark")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if movie.Combined == "" {
		t.Error("Combined 文本未生成")
	}
	if movie.Embedding == nil {
		t.Error("向量未保存")
	}
	// 无 API key 时编辑评分记为缺失
	if movie.ImdbRating != nil || movie.ImdbVotes != nil {
		t.Errorf("无 OMDb key 时评分应缺失, 实际 %v / %v", movie.ImdbRating, movie.ImdbVotes)
	}

	// 片库非空时重复 Bootstrap 幂等跳过
	if err := svc.Bootstrap(context.Background(), csvPath); err != nil {
		t.Fatalf("重复初始化应跳过而非报错: %v", err)
	}
	if len(index.bulkUpserts) != 1 {
		t.Errorf("重复初始化不应再次写入索引")
	}
}

// 向量化阶段失败后记录已落库但没有向量，重启时必须补做，
// 否则这些记录永远不会进入检索结果。
func TestBootstrapResumesInterruptedEmbedding(t *testing.T) {
	store := newFakeStore()
	index := newFakeIndex(testDim)
	embedder := &fakeEmbedder{err: errors.New("embedding 服务不可用")}
	svc := NewCatalogService(store, index, embedder, NewOMDBService(""))

	csvPath := filepath.Join("testdata", "catalog.csv")
	if err := svc.Bootstrap(context.Background(), csvPath); err == nil {
		t.Fatal("向量化失败时 Bootstrap 应报错")
	}

	// 记录已写入但向量缺失
	count, _ := store.Count()
	if count != 3 {
		t.Fatalf("片库应有 3 条记录, 实际 %d", count)
	}
	movie, err := store.Get("Inception")
	if err != nil {
		t.Fatalf("读取失败: %v", err)
	}
	if movie.Embedding != nil {
		t.Fatal("向量化失败后不应残留向量")
	}

	// 服务恢复后重启，Bootstrap 补做遗留的向量化
	embedder.err = nil
	embedder.vec = makeVec(testDim, 0.3)
	if err := svc.Bootstrap(context.Background(), csvPath); err != nil {
		t.Fatalf("重启补做失败: %v", err)
	}

	if len(index.bulkUpserts) != 1 || len(index.bulkUpserts[0]) != 3 {
		t.Fatalf("应补写 3 条向量, 实际 %v", index.bulkUpserts)
	}
	for _, title := range []string{"Inception", "Dark", "Okja"} {
		movie, err := store.Get(title)
		if err != nil {
			t.Fatalf("读取失败: %v", err)
		}
		if movie.Embedding == nil {
			t.Errorf("记录 %s 的向量未补做", title)
		}
	}

	// 再次重启不应重复向量化
	embedder.calls = 0
	if err := svc.Bootstrap(context.Background(), csvPath); err != nil {
		t.Fatalf("重复初始化应跳过而非报错: %v", err)
	}
	if embedder.calls != 0 || len(index.bulkUpserts) != 1 {
		t.Errorf("向量齐全时不应再次向量化, calls=%d", embedder.calls)
	}
}
