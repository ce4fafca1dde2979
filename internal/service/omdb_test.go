package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseRating(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{"8.8", ptrFloat(8.8)},
		{" 7.0 ", ptrFloat(7.0)},
		{"N/A", nil},
		{"", nil},
		{"abc", nil},
	}

	for _, tt := range tests {
		got := parseRating(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseRating(%q): 期望 nil, 实际 %v", tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseRating(%q): 期望 %v, 实际 %v", tt.in, *tt.want, got)
		}
	}
}

func TestParseVotes(t *testing.T) {
	tests := []struct {
		in   string
		want *int
	}{
		{"2,345,678", ptrInt(2345678)},
		{"512", ptrInt(512)},
		{"N/A", nil},
		{"", nil},
		{"many", nil},
	}

	for _, tt := range tests {
		got := parseVotes(tt.in)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parseVotes(%q): 期望 nil, 实际 %v", tt.in, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parseVotes(%q): 期望 %v, 实际 %v", tt.in, *tt.want, got)
		}
	}
}

func TestFetchRatings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title := r.URL.Query().Get("t")
		w.Header().Set("Content-Type", "application/json")
		if title == "Inception" {
			w.Write([]byte(`{"Response":"True","imdbRating":"8.8","imdbVotes":"2,345,678"}`))
			return
		}
		w.Write([]byte(`{"Response":"False","Error":"Movie not found!"}`))
	}))
	defer server.Close()

	svc := NewOMDBService("test-key")
	svc.baseURL = server.URL

	rating, votes := svc.FetchRatings("Inception")
	if rating == nil || *rating != 8.8 {
		t.Errorf("评分错误: %v", rating)
	}
	if votes == nil || *votes != 2345678 {
		t.Errorf("票数错误: %v", votes)
	}

	// 未收录：降级为缺失而非报错
	rating, votes = svc.FetchRatings("Unknown Movie")
	if rating != nil || votes != nil {
		t.Errorf("未收录影片评分应缺失, 实际 %v / %v", rating, votes)
	}
}

func TestFetchRatingsWithoutKey(t *testing.T) {
	svc := NewOMDBService("")
	rating, votes := svc.FetchRatings("Inception")
	if rating != nil || votes != nil {
		t.Error("无 API key 时应直接返回缺失")
	}
}
