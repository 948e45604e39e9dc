package recurrence

import (
	"fmt"
	"time"
)

// DateLayout 日期序列化格式
const DateLayout = "2006-01-02"

// Date 日历日,本地零点粒度
// 只保留年月日,不携带时分秒和时区,避免序列化往返时的时区偏移问题
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate 创建日历日
func NewDate(year int, month time.Month, day int) Date {
	return Date{Year: year, Month: month, Day: day}
}

// FromTime 从时间戳取日历日,丢弃时分秒
func FromTime(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Parse 解析 "2006-01-02" 格式的日期
func Parse(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return FromTime(t), nil
}

// String 返回 "2006-01-02" 格式
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// IsZero 判断是否为零值
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// Valid 判断是否为有效日历日
func (d Date) Valid() bool {
	if d.Year < 1 || d.Month < time.January || d.Month > time.December || d.Day < 1 {
		return false
	}
	return d.Day <= daysInMonth(d.Year, d.Month)
}

// Time 返回该日在指定时区的本地零点
func (d Date) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// Before 日粒度比较
func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

// After 日粒度比较
func (d Date) After(o Date) bool {
	return o.Before(d)
}

// Equal 日粒度比较
func (d Date) Equal(o Date) bool {
	return d.Year == o.Year && d.Month == o.Month && d.Day == o.Day
}

// AddDays 加 n 天,按日历归一化
func (d Date) AddDays(n int) Date {
	return FromTime(time.Date(d.Year, d.Month, d.Day+n, 0, 0, 0, 0, time.UTC))
}

// daysInMonth 返回指定月份的天数
func daysInMonth(year int, month time.Month) int {
	// 下个月第 0 天即本月最后一天
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
