package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // 确保在精简镜像中也能识别时区

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/cinerec/internal/config"
	"github.com/user/cinerec/internal/handler"
	"github.com/user/cinerec/internal/middleware"
	"github.com/user/cinerec/internal/repository"
	"github.com/user/cinerec/internal/router"
	"github.com/user/cinerec/internal/service"
	"github.com/user/cinerec/internal/utils"
)

func main() {
	// 加载环境变量
	if err := godotenv.Load(); err != nil {
		log.Println("未找到 .env 文件，使用系统环境变量")
	}

	// 加载配置
	cfg := config.Load()

	// 初始化缓存
	utils.InitCache()

	// 初始化存储与向量索引
	var store service.CatalogStore
	var index service.VectorIndex

	switch cfg.Storage {
	case "memory":
		log.Println("使用内存存储（单机模式，重启后数据丢失）")
		store = repository.NewMemoryMovieStore()
		index = repository.NewMemoryVectorIndex(cfg.Vector.Dimension)
	default:
		db, err := repository.InitDB(cfg.DatabaseURL, cfg.Vector.Dimension)
		if err != nil {
			log.Fatalf("数据库连接失败: %v", err)
		}
		sqlDB, _ := db.DB()
		defer sqlDB.Close()

		repos := repository.NewRepositories(db, cfg.Vector.Dimension)
		store = repos.Movie
		index = repos.Vector
	}

	// 初始化协作方客户端
	embedder := utils.NewOllamaClient(cfg.Embedding.Host, cfg.Embedding.Model)
	generator := utils.NewGeminiClient(cfg.Generation.APIKey, cfg.Generation.Model)

	// 启动时校验向量化模型的输出维度与索引配置一致（配置错误直接终止）
	probeCtx, cancelProbe := context.WithTimeout(context.Background(), 30*time.Second)
	probe, err := embedder.Embed(probeCtx, "dimension probe")
	cancelProbe()
	if err != nil {
		log.Fatalf("向量化服务不可用: %v", err)
	}
	if len(probe) != cfg.Vector.Dimension {
		log.Fatalf("向量维度配置错误: 模型输出 %d 维, EMBEDDING_DIM 配置为 %d 维",
			len(probe), cfg.Vector.Dimension)
	}

	// 初始化服务
	omdbSvc := service.NewOMDBService(cfg.OMDbAPIKey)
	catalogSvc := service.NewCatalogService(store, index, embedder, omdbSvc)
	ratingSvc := service.NewRatingService(store, index, embedder)
	recommendSvc := service.NewRecommendService(store, index, embedder, generator,
		cfg.Vector.TopK, cfg.Generation.MaxNewTokens, cfg.Generation.Timeout)

	// 片库初始化：CSV 加载 -> 评分补全 -> 批量向量化
	if err := catalogSvc.Bootstrap(context.Background(), cfg.CatalogCSV); err != nil {
		log.Fatalf("片库初始化失败: %v", err)
	}

	// 初始化 Gin
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// 启用 gzip，默认压缩级别
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	// 中间件
	r.Use(middleware.Logger())
	r.Use(middleware.CORS())

	// 初始化 Handler 并注册路由
	h := handler.NewHandler(cfg, store, ratingSvc, recommendSvc)
	router.RegisterRoutes(r, h)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   120 * time.Second, // 生成环节耗时较长
		MaxHeaderBytes: 1 << 20,
	}

	// 在 goroutine 中启动服务器，这样我们就可以监听信号
	go func() {
		log.Printf("服务器启动于 http://localhost:%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务器启动失败: %v", err)
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("正在关闭服务器...")

	// 5 秒超时上下文用于关闭过程
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("服务器强制关闭:", err)
	}

	log.Println("服务器已退出")
}
