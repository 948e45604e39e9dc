package service

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/anishthebud/look-at-me-2/internal/browser"
	"github.com/anishthebud/look-at-me-2/internal/metrics"
	"github.com/anishthebud/look-at-me-2/internal/model"
	"github.com/anishthebud/look-at-me-2/internal/recurrence"
	"github.com/anishthebud/look-at-me-2/internal/repository"
	"github.com/anishthebud/look-at-me-2/internal/utils"
)

// TaskService 任务生命周期服务接口
// 状态机: pending → in_progress → completed,重复任务完成后回到 pending
type TaskService interface {
	Create(ctx context.Context, req *CreateTaskRequest) (*model.TaskModel, error)
	Get(id string) (*model.TaskModel, error)
	Update(ctx context.Context, id string, req *UpdateTaskRequest) (*model.TaskModel, error)
	Delete(ctx context.Context, id string) error
	Start(ctx context.Context, id string) (*model.TaskModel, error)
	Continue(ctx context.Context, id string) (*model.TaskModel, error)
	Complete(ctx context.Context, id string) (*model.TaskModel, error)
}

// CreateTaskRequest 创建任务请求
type CreateTaskRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Websites    []string `json:"websites"`
	Schedule    string   `json:"schedule"`
	StartDate   string   `json:"start_date"` // YYYY-MM-DD
}

// UpdateTaskRequest 更新任务请求,nil 字段表示不修改
type UpdateTaskRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Websites    []string `json:"websites"`
	Schedule    *string  `json:"schedule"`
	StartDate   *string  `json:"start_date"`
}

// Options 任务服务配置
type Options struct {
	MaxTasksPerDay int    // pending 任务数量上限
	GroupColor     string // 标签组颜色
}

// taskService 任务生命周期服务实现
// 所有写操作串行执行(单写者),仓储层的 updated_at CAS 再兜底外部写入者
type taskService struct {
	repo   repository.TaskRepository
	orch   browser.Orchestrator
	clock  Clock
	logger *logrus.Logger
	opts   Options

	mu sync.Mutex
}

// NewTaskService 创建任务生命周期服务
func NewTaskService(repo repository.TaskRepository, orch browser.Orchestrator, clock Clock, logger *logrus.Logger, opts Options) TaskService {
	if orch == nil {
		orch = browser.NewNoop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if opts.MaxTasksPerDay <= 0 {
		opts.MaxTasksPerDay = 12
	}
	if opts.GroupColor == "" {
		opts.GroupColor = "blue"
	}
	return &taskService{
		repo:   repo,
		orch:   orch,
		clock:  clock,
		logger: logger,
		opts:   opts,
	}
}

// Create 创建任务
func (s *taskService) Create(ctx context.Context, req *CreateTaskRequest) (*model.TaskModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	schedule := req.Schedule
	if schedule == "" {
		schedule = string(recurrence.ScheduleNone)
	}

	// 1. 字段校验,收集所有错误
	if errs := utils.ValidateTask(utils.TaskInput{
		Name:        req.Name,
		Description: req.Description,
		Websites:    req.Websites,
		Schedule:    recurrence.Schedule(schedule),
		StartDate:   req.StartDate,
	}, Today(s.clock)); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	// 2. pending 数量上限
	pending, err := s.repo.CountByState(model.TaskStatePending)
	if err != nil {
		return nil, &PersistenceError{Op: "count", Err: err}
	}
	if pending >= int64(s.opts.MaxTasksPerDay) {
		return nil, &LimitExceededError{Limit: s.opts.MaxTasksPerDay}
	}

	total, err := s.repo.Count()
	if err != nil {
		return nil, &PersistenceError{Op: "count", Err: err}
	}

	// 3. 构建并持久化
	now := s.clock.Now()
	task := &model.TaskModel{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		State:       string(model.TaskStatePending),
		Schedule:    schedule,
		StartDate:   req.StartDate,
		SortOrder:   int(total),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := task.SetWebsiteList(req.Websites); err != nil {
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	if err := s.repo.Create(task); err != nil {
		return nil, &PersistenceError{Op: "create", Err: err}
	}

	metrics.RecordTaskCreated()
	s.logger.WithFields(logrus.Fields{"task_id": task.ID, "schedule": task.Schedule}).Info("task created")
	return task, nil
}

// Get 获取任务
func (s *taskService) Get(id string) (*model.TaskModel, error) {
	return s.load(id)
}

// Update 更新任务,仅 pending 状态允许编辑
func (s *taskService) Update(ctx context.Context, id string, req *UpdateTaskRequest) (*model.TaskModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if task.GetState() != model.TaskStatePending {
		return nil, &InvalidStateError{ID: id, State: task.GetState(), Op: "update"}
	}

	prevUpdatedAt := task.UpdatedAt

	// 合并补丁
	merged := task.Clone()
	if req.Name != nil {
		merged.Name = *req.Name
	}
	if req.Description != nil {
		merged.Description = *req.Description
	}
	if req.Websites != nil {
		if err := merged.SetWebsiteList(req.Websites); err != nil {
			return nil, &PersistenceError{Op: "update", Err: err}
		}
	}
	if req.Schedule != nil {
		merged.Schedule = *req.Schedule
	}
	if req.StartDate != nil {
		merged.StartDate = *req.StartDate
	}

	// 对合并结果整体重新校验
	urls, err := merged.WebsiteList()
	if err != nil {
		return nil, &PersistenceError{Op: "update", Err: err}
	}
	if errs := utils.ValidateTask(utils.TaskInput{
		Name:        merged.Name,
		Description: merged.Description,
		Websites:    urls,
		Schedule:    merged.GetSchedule(),
		StartDate:   merged.StartDate,
	}, Today(s.clock)); len(errs) > 0 {
		return nil, newValidationError(errs)
	}

	merged.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(merged, prevUpdatedAt); err != nil {
		return nil, &PersistenceError{Op: "update", Err: err}
	}

	s.logger.WithField("task_id", id).Info("task updated")
	return merged, nil
}

// Delete 删除任务,仅 pending 状态允许
func (s *taskService) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.load(id)
	if err != nil {
		return err
	}
	if task.GetState() != model.TaskStatePending {
		return &InvalidStateError{ID: id, State: task.GetState(), Op: "delete"}
	}

	if err := s.repo.Delete(id); err != nil {
		return &PersistenceError{Op: "delete", Err: err}
	}

	s.logger.WithField("task_id", id).Info("task deleted")
	return nil
}

// Start 开始任务: pending → in_progress
// 浏览器编排失败不阻塞状态转换
func (s *taskService) Start(ctx context.Context, id string) (*model.TaskModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if task.GetState() != model.TaskStatePending {
		return nil, &InvalidStateError{ID: id, State: task.GetState(), Op: "start"}
	}

	s.openAndGroup(ctx, task)

	prevUpdatedAt := task.UpdatedAt
	task.State = string(model.TaskStateInProgress)
	task.UpdatedAt = s.clock.Now()
	if err := s.repo.Save(task, prevUpdatedAt); err != nil {
		return nil, &PersistenceError{Op: "start", Err: err}
	}

	metrics.RecordTransition(model.TaskStateInProgress)
	s.logger.WithField("task_id", id).Info("task started")
	return task, nil
}

// Continue 回到进行中的任务:聚焦已有标签组,找不到则重新打开
// 不改变任务状态,所有编排结果都是尽力而为
func (s *taskService) Continue(ctx context.Context, id string) (*model.TaskModel, error) {
	task, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if task.GetState() != model.TaskStateInProgress {
		return nil, &InvalidStateError{ID: id, State: task.GetState(), Op: "continue"}
	}

	group, err := s.orch.FindGroupByTitle(ctx, task.Name)
	if err != nil {
		s.warnOrchestrator("find_group", task.ID, err)
		group = nil
	}
	if group != nil {
		if _, err := s.orch.FocusGroup(ctx, group.ID); err != nil {
			s.warnOrchestrator("focus_group", task.ID, err)
		}
	} else {
		s.openAndGroup(ctx, task)
	}

	return task, nil
}

// Complete 完成任务: in_progress → completed
// 重复任务滚动到下一个基准日期并回到 pending,锚点损坏时安全落入 completed
func (s *taskService) Complete(ctx context.Context, id string) (*model.TaskModel, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.load(id)
	if err != nil {
		return nil, err
	}
	if task.GetState() != model.TaskStateInProgress {
		return nil, &InvalidStateError{ID: id, State: task.GetState(), Op: "complete"}
	}

	// 尽力关闭关联标签组
	if group, err := s.orch.FindGroupByTitle(ctx, task.Name); err != nil {
		s.warnOrchestrator("find_group", task.ID, err)
	} else if group != nil {
		if _, err := s.orch.CloseGroup(ctx, group.ID); err != nil {
			s.warnOrchestrator("close_group", task.ID, err)
		}
	}

	prevUpdatedAt := task.UpdatedAt
	now := s.clock.Now()
	task.CompletedAt = &now

	next := model.TaskStateCompleted
	if task.IsRecurring() {
		anchor, ok := task.StartDateValue()
		if ok {
			if stepped, stepOK := recurrence.OneStep(anchor, task.GetSchedule()); stepOK {
				task.StartDate = stepped.String()
				next = model.TaskStatePending
				// 重复周期越过跳过锚点后清掉它,避免残留影响后续投影
				if skip, has := task.SkipAnchorValue(); has && !skip.After(stepped) {
					task.NextOccurrenceAnchor = ""
				}
			}
		}
		if next == model.TaskStateCompleted {
			s.logger.WithField("task_id", id).Warn("recurring task has corrupt anchor, falling back to completed")
		}
	}

	task.State = string(next)
	task.UpdatedAt = now
	if err := s.repo.Save(task, prevUpdatedAt); err != nil {
		return nil, &PersistenceError{Op: "complete", Err: err}
	}

	metrics.RecordTransition(next)
	s.logger.WithFields(logrus.Fields{"task_id": id, "state": task.State}).Info("task completed")
	return task, nil
}

// load 读取任务,不存在时返回 NotFoundError
func (s *taskService) load(id string) (*model.TaskModel, error) {
	task, err := s.repo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{ID: id}
		}
		return nil, &PersistenceError{Op: "load", Err: err}
	}
	return task, nil
}

// openAndGroup 打开任务的所有网址并按任务名建组,失败只记日志
func (s *taskService) openAndGroup(ctx context.Context, task *model.TaskModel) {
	urls, err := task.WebsiteList()
	if err != nil {
		s.logger.WithField("task_id", task.ID).WithError(err).Warn("task websites are unreadable, skipping orchestration")
		return
	}

	tabIDs, err := s.orch.OpenTabs(ctx, urls)
	if err != nil {
		s.warnOrchestrator("open_tabs", task.ID, err)
		return
	}
	if len(tabIDs) == 0 {
		return
	}
	if _, err := s.orch.GroupTabs(ctx, tabIDs, task.Name, s.opts.GroupColor); err != nil {
		s.warnOrchestrator("group_tabs", task.ID, err)
	}
}

// warnOrchestrator 编排失败只观测,不作为操作失败向上传播
func (s *taskService) warnOrchestrator(action, taskID string, err error) {
	metrics.RecordOrchestratorFailure(action)
	s.logger.WithFields(logrus.Fields{"task_id": taskID, "action": action}).WithError(err).Warn("browser orchestration failed")
}

// newValidationError 把校验结果转换为服务层错误
func newValidationError(errs []utils.FieldError) *ValidationError {
	fields := make([]FieldError, 0, len(errs))
	for _, e := range errs {
		fields = append(fields, FieldError{Field: e.Field, Message: e.Message})
	}
	return &ValidationError{Fields: fields}
}
