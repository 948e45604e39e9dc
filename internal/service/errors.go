package service

import (
	"fmt"
	"strings"

	"github.com/anishthebud/look-at-me-2/internal/model"
)

// FieldError 字段级校验错误
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError 校验失败,携带所有字段错误,用户可修正
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

// NotFoundError 任务不存在
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task %q not found", e.ID)
}

// InvalidStateError 当前状态下不允许该操作
type InvalidStateError struct {
	ID    string
	State model.TaskState
	Op    string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("cannot %s task %q in state %q", e.Op, e.ID, e.State)
}

// LimitExceededError 待办任务数量已达上限
type LimitExceededError struct {
	Limit int
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("pending task limit of %d reached", e.Limit)
}

// PersistenceError 存储写入失败
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s task: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
