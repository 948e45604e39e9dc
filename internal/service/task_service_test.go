package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/anishthebud/look-at-me-2/internal/browser"
	"github.com/anishthebud/look-at-me-2/internal/model"
	"github.com/anishthebud/look-at-me-2/internal/repository"
)

// testNow 测试起点: 2025-06-01 当地时间上午 9 点
var testNow = time.Date(2025, time.June, 1, 9, 0, 0, 0, time.Local)

func setupTestRepo(t *testing.T) repository.TaskRepository {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	// 迁移数据库
	err = db.AutoMigrate(&model.TaskModel{})
	require.NoError(t, err)

	return repository.NewTaskRepository(db)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

// recordingOrchestrator 记录编排调用,必要时模拟失败
type recordingOrchestrator struct {
	opened  [][]string
	grouped []string
	closed  []string
	focused []string
	fail    bool
}

func (o *recordingOrchestrator) OpenTabs(ctx context.Context, urls []string) ([]string, error) {
	if o.fail {
		return nil, errors.New("browser unavailable")
	}
	o.opened = append(o.opened, urls)
	ids := make([]string, len(urls))
	for i := range urls {
		ids[i] = fmt.Sprintf("tab-%d", i)
	}
	return ids, nil
}

func (o *recordingOrchestrator) GroupTabs(ctx context.Context, tabIDs []string, title string, color string) (string, error) {
	if o.fail {
		return "", errors.New("browser unavailable")
	}
	o.grouped = append(o.grouped, title)
	return "group-" + title, nil
}

func (o *recordingOrchestrator) FindGroupByTitle(ctx context.Context, title string) (*browser.Group, error) {
	if o.fail {
		return nil, errors.New("browser unavailable")
	}
	for _, g := range o.grouped {
		if g == title {
			return &browser.Group{ID: "group-" + title, Title: title}, nil
		}
	}
	return nil, nil
}

func (o *recordingOrchestrator) FocusGroup(ctx context.Context, groupID string) (bool, error) {
	if o.fail {
		return false, errors.New("browser unavailable")
	}
	o.focused = append(o.focused, groupID)
	return true, nil
}

func (o *recordingOrchestrator) CloseGroup(ctx context.Context, groupID string) (bool, error) {
	if o.fail {
		return false, errors.New("browser unavailable")
	}
	o.closed = append(o.closed, groupID)
	return true, nil
}

func newTestService(t *testing.T) (TaskService, *recordingOrchestrator, *FakeClock) {
	repo := setupTestRepo(t)
	orch := &recordingOrchestrator{}
	clock := NewFakeClock(testNow)
	svc := NewTaskService(repo, orch, clock, testLogger(), Options{MaxTasksPerDay: 12})
	return svc, orch, clock
}

func validCreateRequest(name string) *CreateTaskRequest {
	return &CreateTaskRequest{
		Name:     name,
		Websites: []string{"https://example.com"},
	}
}

// TestTaskService_Create 测试创建任务
func TestTaskService_Create(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.Create(context.Background(), &CreateTaskRequest{
		Name:        "Morning review",
		Description: "Check dashboards",
		Websites:    []string{"https://example.com", "https://news.example.org"},
		Schedule:    "weekly",
		StartDate:   "2025-06-01",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, model.TaskStatePending, task.GetState())
	assert.Equal(t, "weekly", task.Schedule)
	assert.Equal(t, testNow, task.CreatedAt)
	assert.Equal(t, task.CreatedAt, task.UpdatedAt)

	urls, err := task.WebsiteList()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com", "https://news.example.org"}, urls)
}

// TestTaskService_Create_ValidationError 测试校验失败时收集所有字段错误且不落库
func TestTaskService_Create_ValidationError(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), &CreateTaskRequest{
		Name:     "",
		Websites: []string{"chrome://settings"},
		Schedule: "weekly",
		// 重复任务缺少开始日期
	})
	require.Error(t, err)

	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)
	fields := make(map[string]bool)
	for _, f := range validationErr.Fields {
		fields[f.Field] = true
	}
	assert.True(t, fields["name"])
	assert.True(t, fields["websites[0]"])
	assert.True(t, fields["start_date"])
}

// TestTaskService_Create_LimitExceeded 测试 pending 任务达到上限后拒绝创建
func TestTaskService_Create_LimitExceeded(t *testing.T) {
	repo := setupTestRepo(t)
	svc := NewTaskService(repo, &recordingOrchestrator{}, NewFakeClock(testNow), testLogger(), Options{MaxTasksPerDay: 3})

	for i := 0; i < 3; i++ {
		_, err := svc.Create(context.Background(), validCreateRequest(fmt.Sprintf("task %d", i)))
		require.NoError(t, err)
	}

	_, err := svc.Create(context.Background(), validCreateRequest("one too many"))
	require.Error(t, err)

	var limitErr *LimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 3, limitErr.Limit)
}

// TestTaskService_Update_OnlyPending 测试进行中/已完成的任务不允许编辑
func TestTaskService_Update_OnlyPending(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("locked"))
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), task.ID)
	require.NoError(t, err)

	newName := "renamed"
	_, err = svc.Update(context.Background(), task.ID, &UpdateTaskRequest{Name: &newName})
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, model.TaskStateInProgress, stateErr.State)
}

// TestTaskService_Update_MergesAndRevalidates 测试补丁合并后整体重新校验
func TestTaskService_Update_MergesAndRevalidates(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("editable"))
	require.NoError(t, err)

	newName := "renamed"
	updated, err := svc.Update(context.Background(), task.ID, &UpdateTaskRequest{Name: &newName})
	require.NoError(t, err)
	assert.Equal(t, "renamed", updated.Name)

	// 合并后非法的网址被拒绝
	_, err = svc.Update(context.Background(), task.ID, &UpdateTaskRequest{Websites: []string{"about:blank"}})
	var validationErr *ValidationError
	require.ErrorAs(t, err, &validationErr)

	// 失败的更新不落库
	reloaded, err := svc.Get(task.ID)
	require.NoError(t, err)
	urls, err := reloaded.WebsiteList()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com"}, urls)
}

// TestTaskService_Delete_OnlyPending 测试只有 pending 任务可删除
func TestTaskService_Delete_OnlyPending(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("undeletable"))
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), task.ID)
	require.NoError(t, err)

	err = svc.Delete(context.Background(), task.ID)
	var stateErr *InvalidStateError
	require.ErrorAs(t, err, &stateErr)

	// 完成后同样不可删除
	done, err := svc.Complete(context.Background(), task.ID)
	require.NoError(t, err)
	require.Equal(t, model.TaskStateCompleted, done.GetState())

	err = svc.Delete(context.Background(), task.ID)
	require.ErrorAs(t, err, &stateErr)
}

// TestTaskService_Delete 测试删除 pending 任务
func TestTaskService_Delete(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("deletable"))
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), task.ID))

	_, err = svc.Get(task.ID)
	var notFoundErr *NotFoundError
	require.ErrorAs(t, err, &notFoundErr)
}

// TestTaskService_Start 测试开始任务打开网址并建组
func TestTaskService_Start(t *testing.T) {
	svc, orch, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("focus time"))
	require.NoError(t, err)

	started, err := svc.Start(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStateInProgress, started.GetState())

	require.Len(t, orch.opened, 1)
	assert.Equal(t, []string{"https://example.com"}, orch.opened[0])
	assert.Equal(t, []string{"focus time"}, orch.grouped)
}

// TestTaskService_Start_OrchestratorFailureIsNonFatal 测试浏览器失败不阻塞状态转换
func TestTaskService_Start_OrchestratorFailureIsNonFatal(t *testing.T) {
	svc, orch, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("resilient"))
	require.NoError(t, err)

	orch.fail = true
	started, err := svc.Start(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStateInProgress, started.GetState())
}

// TestTaskService_Continue 测试回到进行中的任务聚焦已有标签组
func TestTaskService_Continue(t *testing.T) {
	svc, orch, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("ongoing"))
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), task.ID)
	require.NoError(t, err)

	_, err = svc.Continue(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"group-ongoing"}, orch.focused)

	// 状态保持 in_progress
	reloaded, err := svc.Get(task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStateInProgress, reloaded.GetState())
}

// TestTaskService_Continue_ReopensWhenGroupMissing 测试找不到标签组时重新打开网址
func TestTaskService_Continue_ReopensWhenGroupMissing(t *testing.T) {
	svc, orch, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("lost group"))
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), task.ID)
	require.NoError(t, err)

	// 模拟用户手动关掉了标签组
	orch.grouped = nil
	opensBefore := len(orch.opened)

	_, err = svc.Continue(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, opensBefore+1, len(orch.opened))
}

// TestTaskService_Complete_NonRecurring 测试非重复任务完成后进入 completed
func TestTaskService_Complete_NonRecurring(t *testing.T) {
	svc, orch, clock := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("one shot"))
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), task.ID)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	done, err := svc.Complete(context.Background(), task.ID)
	require.NoError(t, err)

	assert.Equal(t, model.TaskStateCompleted, done.GetState())
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, clock.Now(), *done.CompletedAt)
	assert.Equal(t, []string{"group-one shot"}, orch.closed)
}

// TestTaskService_Complete_WeeklyResetsToPending 测试重复任务完成后滚动到下一周并回到 pending
func TestTaskService_Complete_WeeklyResetsToPending(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.Create(context.Background(), &CreateTaskRequest{
		Name:      "weekly sync",
		Websites:  []string{"https://example.com"},
		Schedule:  "weekly",
		StartDate: "2025-06-01",
	})
	require.NoError(t, err)

	_, err = svc.Start(context.Background(), task.ID)
	require.NoError(t, err)

	done, err := svc.Complete(context.Background(), task.ID)
	require.NoError(t, err)

	assert.Equal(t, model.TaskStatePending, done.GetState(), "recurring task must never rest in completed")
	assert.Equal(t, "2025-06-08", done.StartDate)
	assert.NotNil(t, done.CompletedAt, "cycle completion is still stamped")
}

// TestTaskService_Complete_CorruptAnchorFallsBack 测试锚点损坏时安全落入 completed
func TestTaskService_Complete_CorruptAnchorFallsBack(t *testing.T) {
	repo := setupTestRepo(t)
	clock := NewFakeClock(testNow)
	svc := NewTaskService(repo, &recordingOrchestrator{}, clock, testLogger(), Options{})

	// 绕过校验直接写入损坏的锚点
	task := &model.TaskModel{
		ID:        "corrupt-1",
		Name:      "corrupt",
		State:     string(model.TaskStateInProgress),
		Schedule:  "monthly",
		StartDate: "garbage",
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	require.NoError(t, task.SetWebsiteList([]string{"https://example.com"}))
	require.NoError(t, repo.Create(task))

	done, err := svc.Complete(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TaskStateCompleted, done.GetState())
	assert.NotNil(t, done.CompletedAt)
}

// TestTaskService_Complete_ClearsPassedSkipAnchor 测试滚动越过跳过锚点后清除它
func TestTaskService_Complete_ClearsPassedSkipAnchor(t *testing.T) {
	repo := setupTestRepo(t)
	clock := NewFakeClock(testNow)
	svc := NewTaskService(repo, &recordingOrchestrator{}, clock, testLogger(), Options{})

	task := &model.TaskModel{
		ID:                   "skip-1",
		Name:                 "daily",
		State:                string(model.TaskStateInProgress),
		Schedule:             "daily",
		StartDate:            "2025-06-01",
		NextOccurrenceAnchor: "2025-06-02",
		CreatedAt:            testNow,
		UpdatedAt:            testNow,
	}
	require.NoError(t, task.SetWebsiteList([]string{"https://example.com"}))
	require.NoError(t, repo.Create(task))

	done, err := svc.Complete(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-06-02", done.StartDate)
	assert.Empty(t, done.NextOccurrenceAnchor, "anchor no longer marks a future occurrence")
}

// TestTaskService_InvalidTransitions 测试非法状态转换
func TestTaskService_InvalidTransitions(t *testing.T) {
	svc, _, _ := newTestService(t)

	task, err := svc.Create(context.Background(), validCreateRequest("strict"))
	require.NoError(t, err)

	var stateErr *InvalidStateError

	// pending 不允许 continue/complete
	_, err = svc.Continue(context.Background(), task.ID)
	require.ErrorAs(t, err, &stateErr)
	_, err = svc.Complete(context.Background(), task.ID)
	require.ErrorAs(t, err, &stateErr)

	// in_progress 不允许重复 start
	_, err = svc.Start(context.Background(), task.ID)
	require.NoError(t, err)
	_, err = svc.Start(context.Background(), task.ID)
	require.ErrorAs(t, err, &stateErr)
}

// TestTaskService_NotFound 测试不存在的任务
func TestTaskService_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	var notFoundErr *NotFoundError
	_, err := svc.Get("missing")
	require.ErrorAs(t, err, &notFoundErr)
	_, err = svc.Start(context.Background(), "missing")
	require.ErrorAs(t, err, &notFoundErr)
	err = svc.Delete(context.Background(), "missing")
	require.ErrorAs(t, err, &notFoundErr)
}
