package service

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/anishthebud/look-at-me-2/internal/model"
	"github.com/anishthebud/look-at-me-2/internal/recurrence"
	"github.com/anishthebud/look-at-me-2/internal/repository"
)

// Snapshot 今日/未来两个视图集
type Snapshot struct {
	Today  []model.TaskView `json:"today"`
	Future []model.TaskView `json:"future"`
}

// ProjectionService 日程投影服务接口
type ProjectionService interface {
	// Snapshot 读取全量任务并按注入时钟的"今天"做一次投影
	Snapshot(ctx context.Context) (*Snapshot, error)
	// DeleteOccurrence 删除某个未来日程
	// 命中持久化的基准日期时把 StartDate 向前滚动一步,
	// 命中投影日期时在父任务上记下跳过锚点,两者都不动其他字段
	DeleteOccurrence(ctx context.Context, id string, date string) error
}

// projectionService 日程投影服务实现
type projectionService struct {
	repo   repository.TaskRepository
	clock  Clock
	logger *logrus.Logger

	mu sync.Mutex
}

// NewProjectionService 创建日程投影服务
func NewProjectionService(repo repository.TaskRepository, clock Clock, logger *logrus.Logger) ProjectionService {
	if clock == nil {
		clock = SystemClock{}
	}
	return &projectionService{repo: repo, clock: clock, logger: logger}
}

// Snapshot 计算今日/未来视图
func (s *projectionService) Snapshot(ctx context.Context) (*Snapshot, error) {
	tasks, err := s.repo.FindAll()
	if err != nil {
		return nil, &PersistenceError{Op: "list", Err: err}
	}
	today, future := Project(tasks, Today(s.clock))
	return &Snapshot{Today: today, Future: future}, nil
}

// Project 把任务集合切分为今日视图和未来视图
// 每次调用从头重算,不产生累积状态,相同输入必然得到相同输出
//
// 1. completed 任务不进入任何视图
// 2. 无锚点日期或锚点不晚于 today 的任务进入今日视图(早于 today 的视为逾期待办)
// 3. 锚点严格晚于 today 的任务进入未来视图
// 4. 今日视图里的每个重复任务额外合成一条投影:以锚点反复步进取
//    严格晚于 today 的最小日期;若恰好命中跳过锚点则再取其后一个
// 5. 未来视图按生效日期升序排列
func Project(tasks []*model.TaskModel, today recurrence.Date) (todaySet, futureSet []model.TaskView) {
	todaySet = make([]model.TaskView, 0, len(tasks))
	futureSet = make([]model.TaskView, 0)

	for _, task := range tasks {
		if task.GetState() == model.TaskStateCompleted {
			continue
		}

		start, hasStart := task.StartDateValue()
		if !hasStart || !start.After(today) {
			todaySet = append(todaySet, model.NewPersistedView(task))

			if hasStart && task.IsRecurring() {
				if next, ok := projectedNext(task, today); ok {
					futureSet = append(futureSet, model.NewProjectedView(task.ID, next))
				}
			}
			continue
		}

		futureSet = append(futureSet, model.NewPersistedView(task))
	}

	sort.SliceStable(futureSet, func(i, j int) bool {
		di, _ := futureSet[i].EffectiveDateValue()
		dj, _ := futureSet[j].EffectiveDateValue()
		return di.Before(dj)
	})

	return todaySet, futureSet
}

// projectedNext 计算重复任务的下一个投影日期,尊重跳过锚点
func projectedNext(task *model.TaskModel, today recurrence.Date) (recurrence.Date, bool) {
	anchor, ok := task.StartDateValue()
	if !ok {
		return recurrence.Date{}, false
	}
	next, ok := recurrence.NextAfter(anchor, task.GetSchedule(), today)
	if !ok {
		return recurrence.Date{}, false
	}
	if skip, has := task.SkipAnchorValue(); has && next.Equal(skip) {
		// 用户删除过这个日期,取它之后的下一次
		return recurrence.NextAfter(anchor, task.GetSchedule(), skip)
	}
	return next, true
}

// DeleteOccurrence 删除某个未来日程
func (s *projectionService) DeleteOccurrence(ctx context.Context, id string, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, err := s.repo.FindByID(id)
	if err != nil {
		return &NotFoundError{ID: id}
	}
	if task.GetState() == model.TaskStateCompleted {
		return &InvalidStateError{ID: id, State: task.GetState(), Op: "delete occurrence of"}
	}

	target, err := recurrence.Parse(date)
	if err != nil {
		return &ValidationError{Fields: []FieldError{{Field: "date", Message: "date must be in YYYY-MM-DD format"}}}
	}

	today := Today(s.clock)
	prevUpdatedAt := task.UpdatedAt

	// 持久化的基准日期:整条记录向它的下一次滚动,状态不变
	if start, ok := task.StartDateValue(); ok && start.Equal(target) && target.After(today) {
		stepped, ok := recurrence.OneStep(start, task.GetSchedule())
		if !ok {
			// 非重复任务的未来基准日期没有"下一次",只能删整条任务
			return &InvalidStateError{ID: id, State: task.GetState(), Op: "skip base occurrence of non-recurring"}
		}
		task.StartDate = stepped.String()
		task.UpdatedAt = s.clock.Now()
		if err := s.repo.Save(task, prevUpdatedAt); err != nil {
			return &PersistenceError{Op: "skip occurrence of", Err: err}
		}
		s.logger.WithFields(logrus.Fields{"task_id": id, "date": date, "next": task.StartDate}).Info("base occurrence skipped")
		return nil
	}

	// 投影日期:只在父任务上记一个跳过锚点,StartDate 不动
	if task.IsRecurring() {
		if next, ok := projectedNext(task, today); ok && next.Equal(target) {
			task.NextOccurrenceAnchor = target.String()
			task.UpdatedAt = s.clock.Now()
			if err := s.repo.Save(task, prevUpdatedAt); err != nil {
				return &PersistenceError{Op: "skip occurrence of", Err: err}
			}
			s.logger.WithFields(logrus.Fields{"task_id": id, "date": date}).Info("projected occurrence skipped")
			return nil
		}
	}

	return &NotFoundError{ID: id + "@" + date}
}
