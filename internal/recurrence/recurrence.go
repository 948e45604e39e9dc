// Package recurrence 重复日期计算
// 纯函数实现,无 I/O,所有比较均为本地零点的日粒度
package recurrence

import "time"

// Schedule 重复周期
type Schedule string

const (
	ScheduleNone    Schedule = "none"
	ScheduleDaily   Schedule = "daily"
	ScheduleWeekly  Schedule = "weekly"
	ScheduleMonthly Schedule = "monthly"
)

// Valid 判断周期是否合法
func (s Schedule) Valid() bool {
	switch s {
	case ScheduleNone, ScheduleDaily, ScheduleWeekly, ScheduleMonthly:
		return true
	}
	return false
}

// IsRecurring 判断是否为重复周期
func (s Schedule) IsRecurring() bool {
	return s == ScheduleDaily || s == ScheduleWeekly || s == ScheduleMonthly
}

// NextAfter 从锚点按周期反复步进,返回严格晚于 today 的最小日期
// 锚点本身晚于 today 时直接返回锚点(零次步进)
// 月度步进保留锚点的原始日号,每一步都按当月天数截断,
// 从 31 号出发的链条会稳定落在每月最后一天而不是逐月漂移
// 周期为 none 或锚点非法时返回 false
func NextAfter(anchor Date, schedule Schedule, today Date) (Date, bool) {
	if !schedule.IsRecurring() || !anchor.Valid() {
		return Date{}, false
	}

	switch schedule {
	case ScheduleDaily, ScheduleWeekly:
		step := 1
		if schedule == ScheduleWeekly {
			step = 7
		}
		cur := anchor
		for !cur.After(today) {
			cur = cur.AddDays(step)
		}
		return cur, true

	case ScheduleMonthly:
		// 记住锚点日号,逐月推进时重新截断
		year, month, day := anchor.Year, anchor.Month, anchor.Day
		cur := anchor
		for !cur.After(today) {
			year, month = nextMonth(year, month)
			cur = NewDate(year, month, clampDay(year, month, day))
		}
		return cur, true
	}

	return Date{}, false
}

// OneStep 从锚点精确步进一次,不参考 today
// 用于已完成的重复任务滚动到下一个基准日期
func OneStep(anchor Date, schedule Schedule) (Date, bool) {
	if !schedule.IsRecurring() || !anchor.Valid() {
		return Date{}, false
	}

	switch schedule {
	case ScheduleDaily:
		return anchor.AddDays(1), true
	case ScheduleWeekly:
		return anchor.AddDays(7), true
	case ScheduleMonthly:
		year, month := nextMonth(anchor.Year, anchor.Month)
		return NewDate(year, month, clampDay(year, month, anchor.Day)), true
	}

	return Date{}, false
}

// nextMonth 返回下一个月份
func nextMonth(year int, month time.Month) (int, time.Month) {
	if month == time.December {
		return year + 1, time.January
	}
	return year, month + 1
}

// clampDay 按月长截断日号
func clampDay(year int, month time.Month, day int) int {
	if max := daysInMonth(year, month); day > max {
		return max
	}
	return day
}
