package container

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/anishthebud/look-at-me-2/internal/api"
	"github.com/anishthebud/look-at-me-2/internal/browser"
	"github.com/anishthebud/look-at-me-2/internal/config"
	"github.com/anishthebud/look-at-me-2/internal/database"
	"github.com/anishthebud/look-at-me-2/internal/repository"
	"github.com/anishthebud/look-at-me-2/internal/service"
	"github.com/anishthebud/look-at-me-2/internal/websocket"
)

// Container 依赖注入容器
// 管理数据库、仓储、浏览器桥和时钟等应用依赖
type Container struct {
	db           *gorm.DB
	repo         repository.TaskRepository
	hub          *websocket.Hub
	orchestrator browser.Orchestrator
	clock        service.Clock
	logger       *logrus.Logger
}

// NewContainer 创建依赖注入容器
func NewContainer(cfg *config.Config) (*Container, error) {
	// 1. 初始化日志
	logger, err := api.NewLoggerFromConfig(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	api.SetLogger(logger)

	// 2. 初始化数据库（带重试机制）
	db, err := database.ConnectWithRetry(cfg.Database, 3, time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	// 执行数据库迁移
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	// 3. 初始化仓储
	repo := repository.NewTaskRepository(db)

	// 4. 初始化浏览器编排
	// 未启用桥接时使用空实现,生命周期逻辑不感知差异
	var hub *websocket.Hub
	var orch browser.Orchestrator = browser.NewNoop()
	if cfg.Browser.Enabled {
		hub = websocket.NewHub()
		go hub.Run()
		orch = browser.NewBridge(hub, time.Duration(cfg.Browser.CallTimeoutSec)*time.Second, logger)
	}

	return &Container{
		db:           db,
		repo:         repo,
		hub:          hub,
		orchestrator: orch,
		clock:        service.SystemClock{},
		logger:       logger,
	}, nil
}

// DB 获取数据库连接
func (c *Container) DB() *gorm.DB {
	return c.db
}

// TaskRepository 获取任务仓储
func (c *Container) TaskRepository() repository.TaskRepository {
	return c.repo
}

// Hub 获取浏览器扩展连接管理器,未启用时为 nil
func (c *Container) Hub() *websocket.Hub {
	return c.hub
}

// Orchestrator 获取浏览器编排器
func (c *Container) Orchestrator() browser.Orchestrator {
	return c.orchestrator
}

// Clock 获取时钟
func (c *Container) Clock() service.Clock {
	return c.clock
}

// Logger 获取日志记录器
func (c *Container) Logger() *logrus.Logger {
	return c.logger
}

// Close 关闭容器,清理资源
func (c *Container) Close() error {
	if c.db != nil {
		sqlDB, err := c.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
