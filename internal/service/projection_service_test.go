package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anishthebud/look-at-me-2/internal/model"
	"github.com/anishthebud/look-at-me-2/internal/recurrence"
	"github.com/anishthebud/look-at-me-2/internal/repository"
)

func makeTask(id, name string, state model.TaskState, schedule, startDate string) *model.TaskModel {
	task := &model.TaskModel{
		ID:        id,
		Name:      name,
		State:     string(state),
		Schedule:  schedule,
		StartDate: startDate,
		CreatedAt: testNow,
		UpdatedAt: testNow,
	}
	_ = task.SetWebsiteList([]string{"https://example.com"})
	return task
}

// TestProject_Partition 测试今日/未来切分
func TestProject_Partition(t *testing.T) {
	today := recurrence.NewDate(2025, time.June, 1)
	tasks := []*model.TaskModel{
		makeTask("a", "no date", model.TaskStatePending, "none", ""),
		makeTask("b", "due today", model.TaskStatePending, "none", "2025-06-01"),
		makeTask("c", "overdue", model.TaskStatePending, "none", "2025-05-28"),
		makeTask("d", "next week", model.TaskStatePending, "none", "2025-06-05"),
		makeTask("e", "done", model.TaskStateCompleted, "none", "2025-06-01"),
	}

	todaySet, futureSet := Project(tasks, today)

	todayIDs := make([]string, 0, len(todaySet))
	for _, v := range todaySet {
		todayIDs = append(todayIDs, v.Task.ID)
	}
	assert.Equal(t, []string{"a", "b", "c"}, todayIDs, "undated, due and overdue tasks all live in the today view")

	require.Len(t, futureSet, 1)
	assert.Equal(t, "d", futureSet[0].Task.ID)
	// completed 任务不出现在任何视图
}

// TestProject_RecurringProjection 测试今日重复任务合成一条未来投影
func TestProject_RecurringProjection(t *testing.T) {
	today := recurrence.NewDate(2025, time.June, 1)
	tasks := []*model.TaskModel{
		makeTask("w", "weekly", model.TaskStatePending, "weekly", "2025-06-01"),
	}

	todaySet, futureSet := Project(tasks, today)

	require.Len(t, todaySet, 1)
	assert.Equal(t, model.ViewKindPersisted, todaySet[0].Kind)

	require.Len(t, futureSet, 1)
	assert.True(t, futureSet[0].IsProjected())
	assert.Equal(t, "w", futureSet[0].ParentID)
	assert.Equal(t, "2025-06-08", futureSet[0].EffectiveDate)
	assert.Nil(t, futureSet[0].Task, "projections carry no persisted record")
}

// TestProject_Idempotent 测试投影重算无累积状态
func TestProject_Idempotent(t *testing.T) {
	today := recurrence.NewDate(2025, time.June, 1)
	tasks := []*model.TaskModel{
		makeTask("w", "weekly", model.TaskStatePending, "weekly", "2025-06-01"),
		makeTask("d", "daily", model.TaskStatePending, "daily", "2025-06-03"),
	}

	today1, future1 := Project(tasks, today)
	today2, future2 := Project(tasks, today)

	assert.Equal(t, today1, today2)
	assert.Equal(t, future1, future2)
}

// TestProject_FutureSortedByDate 测试未来视图按生效日期升序
func TestProject_FutureSortedByDate(t *testing.T) {
	today := recurrence.NewDate(2025, time.June, 1)
	tasks := []*model.TaskModel{
		makeTask("late", "late", model.TaskStatePending, "none", "2025-06-20"),
		makeTask("soon", "soon", model.TaskStatePending, "none", "2025-06-03"),
		makeTask("d", "daily today", model.TaskStatePending, "daily", "2025-06-01"),
	}

	_, futureSet := Project(tasks, today)

	require.Len(t, futureSet, 3)
	assert.Equal(t, "2025-06-02", futureSet[0].EffectiveDate) // daily 的投影
	assert.Equal(t, "2025-06-03", futureSet[1].EffectiveDate)
	assert.Equal(t, "2025-06-20", futureSet[2].EffectiveDate)
}

// TestProject_SkipAnchorMovesProjection 测试跳过锚点让投影后移一次
func TestProject_SkipAnchorMovesProjection(t *testing.T) {
	today := recurrence.NewDate(2025, time.June, 1)
	task := makeTask("w", "weekly", model.TaskStatePending, "weekly", "2025-06-01")
	task.NextOccurrenceAnchor = "2025-06-08"

	_, futureSet := Project([]*model.TaskModel{task}, today)

	require.Len(t, futureSet, 1)
	assert.Equal(t, "2025-06-15", futureSet[0].EffectiveDate)
}

func newTestProjection(t *testing.T) (ProjectionService, repository.TaskRepository, *FakeClock) {
	repo := setupTestRepo(t)
	clock := NewFakeClock(testNow)
	return NewProjectionService(repo, clock, testLogger()), repo, clock
}

// TestProjectionService_Snapshot 测试走仓储的全量投影
func TestProjectionService_Snapshot(t *testing.T) {
	svc, repo, _ := newTestProjection(t)

	require.NoError(t, repo.Create(makeTask("a", "today", model.TaskStatePending, "none", "")))
	require.NoError(t, repo.Create(makeTask("b", "future", model.TaskStatePending, "none", "2025-06-10")))

	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Len(t, snap.Today, 1)
	assert.Len(t, snap.Future, 1)
}

// TestProjectionService_DeleteOccurrence_PersistedBase 测试删除持久化的未来基准日期
func TestProjectionService_DeleteOccurrence_PersistedBase(t *testing.T) {
	svc, repo, _ := newTestProjection(t)

	require.NoError(t, repo.Create(makeTask("d", "daily", model.TaskStatePending, "daily", "2025-06-06")))

	err := svc.DeleteOccurrence(context.Background(), "d", "2025-06-06")
	require.NoError(t, err)

	reloaded, err := repo.FindByID("d")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-07", reloaded.StartDate, "record rolls forward one step")
	assert.Equal(t, model.TaskStatePending, reloaded.GetState(), "state is untouched")
	assert.Empty(t, reloaded.NextOccurrenceAnchor)
}

// TestProjectionService_DeleteOccurrence_Projected 测试删除投影日程只记跳过锚点
func TestProjectionService_DeleteOccurrence_Projected(t *testing.T) {
	svc, repo, _ := newTestProjection(t)

	// weekly 任务今天可见,投影落在 2025-06-08
	require.NoError(t, repo.Create(makeTask("w", "weekly", model.TaskStatePending, "weekly", "2025-06-01")))

	err := svc.DeleteOccurrence(context.Background(), "w", "2025-06-08")
	require.NoError(t, err)

	reloaded, err := repo.FindByID("w")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-01", reloaded.StartDate, "base date is untouched")
	assert.Equal(t, "2025-06-08", reloaded.NextOccurrenceAnchor)

	// 再投影时跳过被删的那次
	snap, err := svc.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Future, 1)
	assert.Equal(t, "2025-06-15", snap.Future[0].EffectiveDate)
}

// TestProjectionService_DeleteOccurrence_NoMatch 测试日期对不上任何日程
func TestProjectionService_DeleteOccurrence_NoMatch(t *testing.T) {
	svc, repo, _ := newTestProjection(t)

	require.NoError(t, repo.Create(makeTask("w", "weekly", model.TaskStatePending, "weekly", "2025-06-01")))

	var notFoundErr *NotFoundError
	err := svc.DeleteOccurrence(context.Background(), "w", "2025-06-09")
	require.ErrorAs(t, err, &notFoundErr)

	err = svc.DeleteOccurrence(context.Background(), "missing", "2025-06-08")
	require.ErrorAs(t, err, &notFoundErr)
}

// TestProjectionService_DeleteOccurrence_BadDate 测试日期格式错误
func TestProjectionService_DeleteOccurrence_BadDate(t *testing.T) {
	svc, repo, _ := newTestProjection(t)

	require.NoError(t, repo.Create(makeTask("w", "weekly", model.TaskStatePending, "weekly", "2025-06-01")))

	var validationErr *ValidationError
	err := svc.DeleteOccurrence(context.Background(), "w", "June 8th")
	require.ErrorAs(t, err, &validationErr)
}
