package router

import (
	"github.com/gin-gonic/gin"
	"github.com/user/cinerec/internal/handler"
)

// RegisterRoutes 注册所有路由
func RegisterRoutes(r *gin.Engine, h *handler.Handler) {
	// 健康检查
	r.GET("/health", h.Health)

	// ==================== 推荐与评分 API ====================
	api := r.Group("/api")
	{
		api.POST("/recommend", h.Recommend)
		api.POST("/rate", h.Rate)
		api.GET("/movies/:title", h.GetMovie)
	}
}
