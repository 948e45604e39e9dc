package model

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/anishthebud/look-at-me-2/internal/recurrence"
)

// TaskState 任务状态
type TaskState string

const (
	TaskStatePending    TaskState = "pending"
	TaskStateInProgress TaskState = "in_progress"
	TaskStateCompleted  TaskState = "completed"
)

// Valid 判断状态是否合法
func (s TaskState) Valid() bool {
	switch s {
	case TaskStatePending, TaskStateInProgress, TaskStateCompleted:
		return true
	}
	return false
}

// TaskModel 任务数据模型
type TaskModel struct {
	ID          string          `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name        string          `json:"name" gorm:"type:varchar(128);not null"`
	Description string          `json:"description" gorm:"type:varchar(512)"`
	Websites    json.RawMessage `json:"websites" gorm:"type:jsonb;not null"`          // 序列化后的网址列表
	State       string          `json:"state" gorm:"type:varchar(32);not null;index"` // 任务状态
	Schedule    string          `json:"schedule" gorm:"type:varchar(16);not null"`    // 重复周期
	// StartDate 锚点日期,语义为"某日的本地零点",按日历日字符串存储避免时区偏移
	StartDate string `json:"start_date,omitempty" gorm:"type:varchar(10);index"`
	// NextOccurrenceAnchor 用户显式跳过的某个未来日期,不改动 StartDate
	NextOccurrenceAnchor string     `json:"next_occurrence_anchor,omitempty" gorm:"type:varchar(10)"`
	SortOrder            int        `json:"sort_order" gorm:"not null"` // 同状态任务间的稳定排序
	CreatedAt            time.Time  `json:"created_at" gorm:"not null;index;autoCreateTime:false"`
	UpdatedAt            time.Time  `json:"updated_at" gorm:"not null;index;autoUpdateTime:false"`
	CompletedAt          *time.Time `json:"completed_at,omitempty" gorm:"index"`
}

// TableName 指定表名
func (TaskModel) TableName() string {
	return "tasks"
}

// Validate 验证任务模型
func (t *TaskModel) Validate() error {
	if t.ID == "" {
		return errors.New("task ID is required")
	}
	if t.Name == "" {
		return errors.New("task name is required")
	}
	if len(t.Websites) == 0 {
		return errors.New("task websites are required")
	}
	if !TaskState(t.State).Valid() {
		return errors.New("task state is invalid")
	}
	if !recurrence.Schedule(t.Schedule).Valid() {
		return errors.New("task schedule is invalid")
	}
	if recurrence.Schedule(t.Schedule).IsRecurring() && t.StartDate == "" {
		return errors.New("start date is required for recurring tasks")
	}
	return nil
}

// GetState 获取任务状态
func (t *TaskModel) GetState() TaskState {
	return TaskState(t.State)
}

// GetSchedule 获取重复周期
func (t *TaskModel) GetSchedule() recurrence.Schedule {
	return recurrence.Schedule(t.Schedule)
}

// IsRecurring 判断是否为重复任务
func (t *TaskModel) IsRecurring() bool {
	return t.GetSchedule().IsRecurring()
}

// StartDateValue 解析锚点日期
func (t *TaskModel) StartDateValue() (recurrence.Date, bool) {
	if t.StartDate == "" {
		return recurrence.Date{}, false
	}
	d, err := recurrence.Parse(t.StartDate)
	if err != nil {
		return recurrence.Date{}, false
	}
	return d, true
}

// SkipAnchorValue 解析跳过锚点
func (t *TaskModel) SkipAnchorValue() (recurrence.Date, bool) {
	if t.NextOccurrenceAnchor == "" {
		return recurrence.Date{}, false
	}
	d, err := recurrence.Parse(t.NextOccurrenceAnchor)
	if err != nil {
		return recurrence.Date{}, false
	}
	return d, true
}

// WebsiteList 反序列化网址列表
func (t *TaskModel) WebsiteList() ([]string, error) {
	var urls []string
	if err := json.Unmarshal(t.Websites, &urls); err != nil {
		return nil, err
	}
	return urls, nil
}

// SetWebsiteList 序列化网址列表
func (t *TaskModel) SetWebsiteList(urls []string) error {
	data, err := json.Marshal(urls)
	if err != nil {
		return err
	}
	t.Websites = data
	return nil
}

// Clone 深拷贝任务对象
func (t *TaskModel) Clone() *TaskModel {
	cp := *t
	cp.Websites = append([]byte(nil), t.Websites...)
	if t.CompletedAt != nil {
		ca := *t.CompletedAt
		cp.CompletedAt = &ca
	}
	return &cp
}
