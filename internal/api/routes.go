package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/anishthebud/look-at-me-2/internal/config"
	"github.com/anishthebud/look-at-me-2/internal/metrics"
	"github.com/anishthebud/look-at-me-2/internal/websocket"
)

// SetupRoutes 配置路由
func SetupRoutes(cfg *config.Config, db *gorm.DB, hub *websocket.Hub, taskController *TaskController) *gin.Engine {
	if config.IsProduction(cfg) {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	// 中间件
	router.Use(RequestIDMiddleware())
	router.Use(RequestLogMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(CORSMiddleware(cfg.CORS.AllowedOrigins))
	if cfg.Rate.RPS > 0 {
		router.Use(RateLimitMiddleware(cfg.Rate.RPS, cfg.Rate.Burst))
	}

	// 健康检查
	healthController := NewHealthController(db, hub)
	router.GET("/health", healthController.Check)

	// Prometheus 指标端点
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	// 浏览器扩展 WebSocket 接入点
	if hub != nil {
		router.GET("/ws/browser", websocket.Handler(hub, cfg.Browser.Token, GetLogger()))
	}

	// API v1 路由组
	v1 := router.Group("/api/v1")
	{
		// 任务管理路由
		tasks := v1.Group("/tasks")
		{
			tasks.POST("", taskController.Create)
			tasks.GET("", taskController.List)
			tasks.GET("/upcoming", taskController.Upcoming)

			tasks.GET("/:id", taskController.Get)
			tasks.PUT("/:id", taskController.Update)
			tasks.DELETE("/:id", taskController.Delete)

			// 具体路径的路由（必须在 /:id 之后，Gin 会优先匹配更长的路径）
			tasks.POST("/:id/start", taskController.Start)
			tasks.POST("/:id/continue", taskController.Continue)
			tasks.POST("/:id/complete", taskController.Complete)
			tasks.DELETE("/:id/occurrences/:date", taskController.DeleteOccurrence)
		}
	}

	// 自定义 NoRoute 处理器,返回 JSON 格式的 404
	router.NoRoute(func(c *gin.Context) {
		Error(c, http.StatusNotFound, "route not found")
	})

	return router
}
