package model

import "github.com/anishthebud/look-at-me-2/internal/recurrence"

// ViewKind 任务视图类型
type ViewKind string

const (
	// ViewKindPersisted 持久化记录
	ViewKindPersisted ViewKind = "persisted"
	// ViewKindProjected 计算出的未来日程,不落库
	ViewKindProjected ViewKind = "projected"
)

// TaskView 任务视图
// 显式区分持久化记录和投影日程,投影永远不会与真实记录的 ID 混淆
type TaskView struct {
	Kind ViewKind `json:"kind"`
	// Task 持久化记录,仅 Kind == persisted 时有值
	Task *TaskModel `json:"task,omitempty"`
	// ParentID 投影所属任务的 ID,仅 Kind == projected 时有值
	ParentID string `json:"parent_id,omitempty"`
	// EffectiveDate 该视图生效的日历日,投影必填,持久化记录为其 StartDate(可为空)
	EffectiveDate string `json:"effective_date,omitempty"`
}

// NewPersistedView 创建持久化记录视图
func NewPersistedView(t *TaskModel) TaskView {
	return TaskView{
		Kind:          ViewKindPersisted,
		Task:          t,
		EffectiveDate: t.StartDate,
	}
}

// NewProjectedView 创建投影视图
func NewProjectedView(parentID string, date recurrence.Date) TaskView {
	return TaskView{
		Kind:          ViewKindProjected,
		ParentID:      parentID,
		EffectiveDate: date.String(),
	}
}

// IsProjected 判断是否为投影
func (v TaskView) IsProjected() bool {
	return v.Kind == ViewKindProjected
}

// EffectiveDateValue 解析生效日期
func (v TaskView) EffectiveDateValue() (recurrence.Date, bool) {
	if v.EffectiveDate == "" {
		return recurrence.Date{}, false
	}
	d, err := recurrence.Parse(v.EffectiveDate)
	if err != nil {
		return recurrence.Date{}, false
	}
	return d, true
}
