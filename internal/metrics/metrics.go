package metrics

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/anishthebud/look-at-me-2/internal/model"
)

var (
	// API 请求计数器
	apiRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	// API 请求响应时间
	apiRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// 任务创建数
	tasksCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tasks_created_total",
			Help: "Total number of tasks created",
		},
	)

	// 状态转换数
	taskTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "task_transitions_total",
			Help: "Total number of task state transitions",
		},
		[]string{"to"}, // in_progress, completed, pending (recurring reset)
	)

	// 编排调用失败数(尽力而为,仅观测)
	orchestratorFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orchestrator_failures_total",
			Help: "Total number of best-effort browser orchestration failures",
		},
		[]string{"action"},
	)

	// 任务状态分布
	tasksByState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tasks_by_state",
			Help: "Number of tasks by state",
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(
		apiRequestsTotal,
		apiRequestDuration,
		tasksCreatedTotal,
		taskTransitionsTotal,
		orchestratorFailuresTotal,
		tasksByState,
	)
}

// RecordAPIRequest 记录 API 请求指标
func RecordAPIRequest(method, path string, status int, durationSeconds float64) {
	apiRequestsTotal.WithLabelValues(method, path, fmt.Sprintf("%d", status)).Inc()
	apiRequestDuration.WithLabelValues(method, path).Observe(durationSeconds)
}

// RecordTaskCreated 记录任务创建
func RecordTaskCreated() {
	tasksCreatedTotal.Inc()
}

// RecordTransition 记录状态转换
func RecordTransition(to model.TaskState) {
	taskTransitionsTotal.WithLabelValues(string(to)).Inc()
}

// RecordOrchestratorFailure 记录编排失败
func RecordOrchestratorFailure(action string) {
	orchestratorFailuresTotal.WithLabelValues(action).Inc()
}

// UpdateTaskStateMetrics 刷新任务状态分布
func UpdateTaskStateMetrics(db *gorm.DB) error {
	type row struct {
		State string
		Count int64
	}
	var rows []row
	if err := db.Model(&model.TaskModel{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&rows).Error; err != nil {
		return err
	}

	tasksByState.Reset()
	for _, r := range rows {
		tasksByState.WithLabelValues(r.State).Set(float64(r.Count))
	}
	return nil
}

// Handler Prometheus 指标端点
func Handler() http.Handler {
	return promhttp.Handler()
}
