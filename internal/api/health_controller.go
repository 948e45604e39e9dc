package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/anishthebud/look-at-me-2/internal/websocket"
)

// HealthController 健康检查控制器
type HealthController struct {
	db  *gorm.DB
	hub *websocket.Hub
}

// NewHealthController 创建健康检查控制器
func NewHealthController(db *gorm.DB, hub *websocket.Hub) *HealthController {
	return &HealthController{db: db, hub: hub}
}

// Check 健康检查
func (c *HealthController) Check(ctx *gin.Context) {
	status := "healthy"
	checks := make(map[string]string)

	// 检查数据库连接
	if c.db != nil {
		if err := c.checkDatabase(ctx.Request.Context()); err != nil {
			status = "unhealthy"
			checks["database"] = "unhealthy: " + err.Error()
		} else {
			checks["database"] = "healthy"
		}
	} else {
		checks["database"] = "not configured"
	}

	// 浏览器扩展是尽力而为的协作方,离线不影响整体健康
	if c.hub != nil {
		if c.hub.HasClients() {
			checks["browser_extension"] = "connected"
		} else {
			checks["browser_extension"] = "disconnected"
		}
	} else {
		checks["browser_extension"] = "not configured"
	}

	httpStatus := http.StatusOK
	if status == "unhealthy" {
		httpStatus = http.StatusServiceUnavailable
	}

	ctx.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().Unix(),
		"checks":    checks,
	})
}

// checkDatabase 检查数据库连接
func (c *HealthController) checkDatabase(ctx context.Context) error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}
