package service

import (
	"sort"

	"github.com/anishthebud/look-at-me-2/internal/model"
)

// PageInfo 分页信息
type PageInfo struct {
	Page      int   `json:"page"`
	PageSize  int   `json:"page_size"`
	Total     int64 `json:"total"`
	TotalPage int   `json:"total_page"`
}

// SortTodayViews 今日视图排序:进行中的任务优先,其次待办,同级按创建时间升序
func SortTodayViews(views []model.TaskView) {
	rank := func(v model.TaskView) int {
		if v.Task == nil {
			return 2
		}
		switch v.Task.GetState() {
		case model.TaskStateInProgress:
			return 0
		case model.TaskStatePending:
			return 1
		}
		return 2
	}
	sort.SliceStable(views, func(i, j int) bool {
		ri, rj := rank(views[i]), rank(views[j])
		if ri != rj {
			return ri < rj
		}
		if views[i].Task != nil && views[j].Task != nil {
			return views[i].Task.CreatedAt.Before(views[j].Task.CreatedAt)
		}
		return false
	})
}

// Paginate 把视图集切成固定大小的页
// 页码夹取到 [1, totalPage] 区间,越界请求不报错
func Paginate(views []model.TaskView, page, pageSize int) ([]model.TaskView, PageInfo) {
	if pageSize <= 0 {
		pageSize = 8
	}

	total := len(views)
	totalPage := (total + pageSize - 1) / pageSize
	if totalPage < 1 {
		totalPage = 1
	}

	if page < 1 {
		page = 1
	}
	if page > totalPage {
		page = totalPage
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}

	return views[start:end], PageInfo{
		Page:      page,
		PageSize:  pageSize,
		Total:     int64(total),
		TotalPage: totalPage,
	}
}
