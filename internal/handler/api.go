package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/user/cinerec/internal/service"
	"github.com/user/cinerec/internal/utils"
)

// RecommendRequest 推荐请求
type RecommendRequest struct {
	Query string `json:"query" binding:"required"`
}

// Recommend 根据用户偏好描述生成推荐
func (h *Handler) Recommend(c *gin.Context) {
	var req RecommendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "偏好描述不能为空")
		return
	}

	text, err := h.RecommendService.Recommend(c.Request.Context(), req.Query)
	if err != nil {
		log.Printf("[API] 推荐失败 (query: %s): %v", req.Query, err)
		utils.InternalServerError(c, "推荐生成失败")
		return
	}

	utils.Success(c, gin.H{
		"query":          req.Query,
		"recommendation": text,
	})
}

// RateRequest 评分请求，评分范围 0-10
type RateRequest struct {
	Title  string  `json:"title" binding:"required"`
	Rating float64 `json:"rating" binding:"gte=0,lte=10"`
}

// Rate 记录一次用户评分
func (h *Handler) Rate(c *gin.Context) {
	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "参数错误：标题必填，评分范围 0-10")
		return
	}

	result, err := h.RatingService.RecordRating(c.Request.Context(), req.Title, req.Rating)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) {
			utils.NotFound(c, "电影不存在: "+req.Title)
			return
		}
		if errors.Is(err, service.ErrRefreshFailed) {
			// 数值融合已落库，向量要等下一轮刷新才会更新
			utils.SuccessWithMessage(c, "评分已记录，向量刷新失败，索引将在下一轮刷新时更新", result)
			return
		}
		log.Printf("[API] 评分失败 (title: %s): %v", req.Title, err)
		utils.InternalServerError(c, "评分记录失败")
		return
	}

	utils.Success(c, result)
}

// GetMovie 查询单部电影的聚合状态
func (h *Handler) GetMovie(c *gin.Context) {
	title := c.Param("title")
	if title == "" {
		utils.BadRequest(c, "标题不能为空")
		return
	}

	movie, err := h.Store.Get(title)
	if err != nil {
		if errors.Is(err, service.ErrMovieNotFound) {
			utils.NotFound(c, "电影不存在: "+title)
			return
		}
		utils.InternalServerError(c, "查询失败")
		return
	}

	utils.Success(c, movie)
}

// Health 健康检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
