package repository

import (
	"testing"

	"github.com/user/cinerec/internal/service"
)

func TestMemoryIndexUpsertAndQuery(t *testing.T) {
	index := NewMemoryVectorIndex(3)

	vec := []float32{1, 0, 0}
	if err := index.Upsert("Inception", vec); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	titles, err := index.Query(vec, 1)
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	if len(titles) != 1 || titles[0] != "Inception" {
		t.Errorf("期望 [Inception], 实际 %v", titles)
	}
}

func TestMemoryIndexIdempotentUpsert(t *testing.T) {
	index := NewMemoryVectorIndex(3)
	vec := []float32{0.5, 0.5, 0}

	for i := 0; i < 3; i++ {
		if err := index.Upsert("Dark", vec); err != nil {
			t.Fatalf("写入失败: %v", err)
		}
	}

	titles, err := index.Query(vec, 10)
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	if len(titles) != 1 {
		t.Errorf("重复写入不应产生重复条目, 实际 %v", titles)
	}
}

func TestMemoryIndexOrdering(t *testing.T) {
	index := NewMemoryVectorIndex(2)
	entries := []service.IndexEntry{
		{Title: "Far", Vector: []float32{0, 1}},
		{Title: "Near", Vector: []float32{1, 0.1}},
		{Title: "Exact", Vector: []float32{1, 0}},
	}
	if err := index.BulkUpsert(entries); err != nil {
		t.Fatalf("批量写入失败: %v", err)
	}

	titles, err := index.Query([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	want := []string{"Exact", "Near", "Far"}
	for i := range want {
		if titles[i] != want[i] {
			t.Fatalf("排序错误: 期望 %v, 实际 %v", want, titles)
		}
	}
}

func TestMemoryIndexTieBreakByTitle(t *testing.T) {
	index := NewMemoryVectorIndex(2)
	vec := []float32{1, 1}
	_ = index.Upsert("Beta", vec)
	_ = index.Upsert("Alpha", vec)

	titles, err := index.Query(vec, 2)
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	if titles[0] != "Alpha" || titles[1] != "Beta" {
		t.Errorf("相同相似度应按标题字典序, 实际 %v", titles)
	}
}

func TestMemoryIndexDimensionMismatch(t *testing.T) {
	index := NewMemoryVectorIndex(3)

	if err := index.Upsert("Bad", []float32{1, 2}); err == nil {
		t.Error("维度不匹配的写入应报错")
	}
	if _, err := index.Query([]float32{1, 2, 3, 4}, 1); err == nil {
		t.Error("维度不匹配的检索应报错")
	}
}

func TestMemoryIndexQueryMoreThanStored(t *testing.T) {
	index := NewMemoryVectorIndex(2)
	_ = index.Upsert("Only", []float32{1, 0})

	titles, err := index.Query([]float32{1, 0}, 5)
	if err != nil {
		t.Fatalf("检索失败: %v", err)
	}
	if len(titles) != 1 {
		t.Errorf("k 超过存量时返回全部, 实际 %v", titles)
	}
}
