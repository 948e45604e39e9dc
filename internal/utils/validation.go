package utils

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/anishthebud/look-at-me-2/internal/recurrence"
)

// 校验边界
const (
	MaxNameLength        = 100
	MaxDescriptionLength = 500
	MaxWebsites          = 10
)

// FieldError 字段校验错误
type FieldError struct {
	Field   string
	Message string
}

// TaskInput 待校验的任务字段
type TaskInput struct {
	Name        string
	Description string
	Websites    []string
	Schedule    recurrence.Schedule
	StartDate   string
}

// ValidateTask 校验任务字段,收集所有字段错误而不是遇错即返
// today 用于"重复任务的开始日期不能早于今天"的检查
func ValidateTask(in TaskInput, today recurrence.Date) []FieldError {
	var errs []FieldError

	name := strings.TrimSpace(in.Name)
	if name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name cannot be empty"})
	} else if len(name) > MaxNameLength {
		errs = append(errs, FieldError{Field: "name", Message: fmt.Sprintf("name exceeds maximum length of %d", MaxNameLength)})
	}

	if len(in.Description) > MaxDescriptionLength {
		errs = append(errs, FieldError{Field: "description", Message: fmt.Sprintf("description exceeds maximum length of %d", MaxDescriptionLength)})
	}

	if len(in.Websites) == 0 {
		errs = append(errs, FieldError{Field: "websites", Message: "at least one website is required"})
	} else if len(in.Websites) > MaxWebsites {
		errs = append(errs, FieldError{Field: "websites", Message: fmt.Sprintf("at most %d websites are allowed", MaxWebsites)})
	} else {
		for i, raw := range in.Websites {
			if err := validateWebsite(raw); err != nil {
				errs = append(errs, FieldError{Field: fmt.Sprintf("websites[%d]", i), Message: err.Error()})
			}
		}
	}

	if !in.Schedule.Valid() {
		errs = append(errs, FieldError{Field: "schedule", Message: fmt.Sprintf("unknown schedule %q", string(in.Schedule))})
	} else if in.Schedule.IsRecurring() {
		if in.StartDate == "" {
			errs = append(errs, FieldError{Field: "start_date", Message: "start date is required for recurring tasks"})
		} else if d, err := recurrence.Parse(in.StartDate); err != nil {
			errs = append(errs, FieldError{Field: "start_date", Message: "start date must be in YYYY-MM-DD format"})
		} else if d.Before(today) {
			errs = append(errs, FieldError{Field: "start_date", Message: "start date cannot be in the past"})
		}
	} else if in.StartDate != "" {
		if _, err := recurrence.Parse(in.StartDate); err != nil {
			errs = append(errs, FieldError{Field: "start_date", Message: "start date must be in YYYY-MM-DD format"})
		}
	}

	return errs
}

// validateWebsite 校验单个网址
// 只允许 http/https,拒绝浏览器内部协议(chrome:// 等)
func validateWebsite(raw string) error {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fmt.Errorf("website cannot be empty")
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}
	switch u.Scheme {
	case "http", "https":
	default:
		return fmt.Errorf("URL scheme %q is not allowed, only http and https are supported", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must include a host")
	}
	return nil
}
