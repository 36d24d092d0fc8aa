package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/anonboard/config"
	"github.com/d60-Lab/anonboard/internal/api/handler"
	"github.com/d60-Lab/anonboard/internal/api/middleware"
)

// NewRouter 组装路由与中间件
func NewRouter(h *handler.Handler, cfg *config.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gzip.Gzip(gzip.DefaultCompression))

	writeLimit := middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	r.GET("/posts", h.ListPosts)
	r.GET("/posts/:id", h.GetPost)
	r.POST("/posts", writeLimit, h.CreatePost)
	r.POST("/posts/:id/tip", writeLimit, h.TipPost)
	r.POST("/posts/:id/like", writeLimit, h.LikePost)
	return r
}
