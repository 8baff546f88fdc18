package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

// Date 只表示日期（不含时间），统一使用 UTC，避免排班跨时区时出现偏移
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("无法解析日期 %q: %w", s, err)
	}
	return Date{t: t}, nil
}

func (d Date) String() string {
	return d.t.Format(dateLayout)
}

func (d Date) Time() time.Time {
	return d.t
}

func (d Date) IsZero() bool {
	return d.t.IsZero()
}

func (d Date) AddDays(n int) Date {
	return Date{t: d.t.AddDate(0, 0, n)}
}

func (d Date) Before(other Date) bool {
	return d.t.Before(other.t)
}

func (d Date) After(other Date) bool {
	return d.t.After(other.t)
}

func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

func (d Date) Weekday() time.Weekday {
	return d.t.Weekday()
}

func (d Date) IsWeekend() bool {
	wd := d.t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

// DaysBetween 返回 from 到 to 之间的天数，from 和 to 是同一天时返回 0
func DaysBetween(from, to Date) int {
	return int(to.t.Sub(from.t) / (24 * time.Hour))
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.t.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) Value() (driver.Value, error) {
	return d.t, nil
}

// Scan 将数据库中的 date 列归一化到 UTC 零点
func (d *Date) Scan(src any) error {
	t, ok := src.(time.Time)
	if !ok {
		return fmt.Errorf("无法将 %T 扫描为日期", src)
	}
	*d = NewDate(t.Year(), t.Month(), t.Day())
	return nil
}

type DateRange struct {
	StartDate Date `json:"startDate"`
	EndDate   Date `json:"endDate"`
}

// Days 返回日期范围内的天数（包含首尾两天），范围非法时返回 0
func (r DateRange) Days() int {
	if r.StartDate.IsZero() || r.EndDate.IsZero() || r.EndDate.Before(r.StartDate) {
		return 0
	}
	return DaysBetween(r.StartDate, r.EndDate) + 1
}

// Dates 按顺序展开范围内的每一天
func (r DateRange) Dates() []Date {
	days := r.Days()
	dates := make([]Date, 0, days)
	for i := 0; i < days; i++ {
		dates = append(dates, r.StartDate.AddDays(i))
	}
	return dates
}
