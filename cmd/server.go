/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anishthebud/look-at-me-2/internal/api"
	"github.com/anishthebud/look-at-me-2/internal/config"
	"github.com/anishthebud/look-at-me-2/internal/container"
	"github.com/anishthebud/look-at-me-2/internal/metrics"
	"github.com/anishthebud/look-at-me-2/internal/service"
)

// serverCmd represents the server command
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the API server",
	Long: `Start the Look At Me API server.
The server will listen on the configured host and port,
and provide REST API interfaces for task lifecycle management
plus a WebSocket endpoint for the browser extension bridge.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1. 加载配置
		configPath, _ := cmd.Flags().GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		// 2. 初始化容器
		ctr, err := container.NewContainer(cfg)
		if err != nil {
			return fmt.Errorf("failed to initialize container: %w", err)
		}
		defer ctr.Close()

		logger := ctr.Logger()

		// 3. 初始化服务
		taskSvc := service.NewTaskService(ctr.TaskRepository(), ctr.Orchestrator(), ctr.Clock(), logger, service.Options{
			MaxTasksPerDay: cfg.Tasks.MaxPerDay,
			GroupColor:     cfg.Tasks.GroupColor,
		})
		projectionSvc := service.NewProjectionService(ctr.TaskRepository(), ctr.Clock(), logger)

		// 4. 初始化控制器与路由
		taskController := api.NewTaskController(taskSvc, projectionSvc, cfg.Tasks.VisiblePerPage)
		router := api.SetupRoutes(cfg, ctr.DB(), ctr.Hub(), taskController)

		// 5. 周期性刷新任务状态分布指标
		metricsDone := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := metrics.UpdateTaskStateMetrics(ctr.DB()); err != nil {
						logger.WithError(err).Warn("failed to refresh task state metrics")
					}
				case <-metricsDone:
					return
				}
			}
		}()
		defer close(metricsDone)

		// 6. 启动服务器
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		// 启动服务器（在 goroutine 中）
		go func() {
			logger.WithField("addr", addr).Info("server starting")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.WithError(err).Fatal("failed to start server")
			}
		}()

		// 等待中断信号
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		logger.Info("shutting down server")

		// 优雅关闭
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			logger.WithError(err).Fatal("server forced to shutdown")
		}

		logger.Info("server exited")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serverCmd)

	// 服务器配置标志
	serverCmd.Flags().String("config", "", "Config file path (default: config.yaml)")
	serverCmd.Flags().String("host", "0.0.0.0", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
}
