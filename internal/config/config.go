package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// VectorIndexConfig 向量索引配置
type VectorIndexConfig struct {
	Dimension int // 向量维度，所有 upsert/query 必须一致
	TopK      int // 检索返回的候选数量
}

// GenerationConfig 生成模型配置
type GenerationConfig struct {
	APIKey       string
	Model        string
	MaxNewTokens int
	Timeout      time.Duration
}

// EmbeddingConfig 向量化模型配置
type EmbeddingConfig struct {
	Host  string
	Model string
}

// Config 应用配置
type Config struct {
	Env         string
	Port        string
	Storage     string // postgres / memory
	DatabaseURL string
	CatalogCSV  string // 片库 CSV 文件路径
	OMDbAPIKey  string
	Vector      VectorIndexConfig
	Embedding   EmbeddingConfig
	Generation  GenerationConfig
}

// Load 加载配置
func Load() *Config {
	dbUser := getEnv("DB_USER", "postgres")
	dbPass := getEnv("DB_PASSWORD", "postgres")
	dbHost := getEnv("DB_HOST", "localhost")
	dbPort := getEnv("DB_PORT", "5432")
	dbName := getEnv("DB_NAME", "cinerec")
	dbSSL := getEnv("DB_SSLMODE", "disable")

	dbURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		dbUser, dbPass, dbHost, dbPort, dbName, dbSSL)

	dim, _ := strconv.Atoi(getEnv("EMBEDDING_DIM", "768"))
	topK, _ := strconv.Atoi(getEnv("RECOMMEND_TOP_K", "5"))
	maxTokens, _ := strconv.Atoi(getEnv("GEMINI_MAX_NEW_TOKENS", "100"))
	genTimeout, _ := strconv.Atoi(getEnv("GEMINI_TIMEOUT_SECONDS", "60"))

	omdbKey := getEnv("OMDB_API_KEY", "")
	if omdbKey == "" {
		fmt.Println("【警告】未设置 OMDB_API_KEY，片库加载时无法获取编辑评分，相关字段将记为缺失。")
	}

	return &Config{
		Env:         getEnv("APP_ENV", "development"),
		Port:        getEnv("PORT", "5005"),
		Storage:     getEnv("STORAGE", "postgres"),
		DatabaseURL: dbURL,
		CatalogCSV:  getEnv("CATALOG_CSV", "./data/netflix_titles.csv"),
		OMDbAPIKey:  omdbKey,
		Vector: VectorIndexConfig{
			Dimension: dim,
			TopK:      topK,
		},
		Embedding: EmbeddingConfig{
			Host:  getEnv("OLLAMA_HOST", "http://localhost:11434"),
			Model: getEnv("OLLAMA_MODEL", "quentinz/bge-base-zh-v1.5"),
		},
		Generation: GenerationConfig{
			APIKey:       getEnv("GEMINI_API_KEY", ""),
			Model:        getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			MaxNewTokens: maxTokens,
			Timeout:      time.Duration(genTimeout) * time.Second,
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
