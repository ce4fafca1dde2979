package handler

import (
	"github.com/user/cinerec/internal/config"
	"github.com/user/cinerec/internal/service"
)

// Handler HTTP 处理器
type Handler struct {
	Config           *config.Config
	Store            service.CatalogStore
	RatingService    *service.RatingService
	RecommendService *service.RecommendService
}

// NewHandler 创建处理器
func NewHandler(cfg *config.Config, store service.CatalogStore,
	ratingSvc *service.RatingService, recommendSvc *service.RecommendService) *Handler {
	return &Handler{
		Config:           cfg,
		Store:            store,
		RatingService:    ratingSvc,
		RecommendService: recommendSvc,
	}
}
