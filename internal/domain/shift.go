package domain

import (
	"time"
)

type ShiftType string

const (
	ShiftDay     ShiftType = "day"
	ShiftEvening ShiftType = "evening"
	ShiftNight   ShiftType = "night"
)

// AllShiftTypes 按一天内的先后顺序排列
var AllShiftTypes = []ShiftType{ShiftDay, ShiftEvening, ShiftNight}

func (s ShiftType) IsValid() bool {
	switch s {
	case ShiftDay, ShiftEvening, ShiftNight:
		return true
	default:
		return false
	}
}

func (s ShiftType) DisplayName() string {
	switch s {
	case ShiftDay:
		return "早班"
	case ShiftEvening:
		return "晚班"
	case ShiftNight:
		return "夜班"
	default:
		return string(s)
	}
}

// StartHour 返回班次的起始小时（24 小时制）
func (s ShiftType) StartHour() int {
	switch s {
	case ShiftDay:
		return 7
	case ShiftEvening:
		return 15
	case ShiftNight:
		return 23
	default:
		return 0
	}
}

// Hours 返回班次时长，三种班次均为 8 小时
func (s ShiftType) Hours() float64 {
	return 8
}

// ShiftSlot 表示某一天的某个班次，是排班的最小单位
type ShiftSlot struct {
	Date Date      `json:"date"`
	Type ShiftType `json:"type"`
}

// StartTime 返回班次的实际开始时刻
func (s ShiftSlot) StartTime() time.Time {
	return s.Date.Time().Add(time.Duration(s.Type.StartHour()) * time.Hour)
}

// EndTime 返回班次的实际结束时刻，夜班结束于次日早上
func (s ShiftSlot) EndTime() time.Time {
	return s.StartTime().Add(time.Duration(s.Type.Hours()) * time.Hour)
}

// CoverageRequirement 描述某个班次需要多少人以及最低经验等级
type CoverageRequirement struct {
	Date          Date      `json:"date"`
	ShiftType     ShiftType `json:"shiftType"`
	RequiredCount int32     `json:"requiredCount"`
	MinLevel      Level     `json:"minLevel"`
}

func (c CoverageRequirement) Slot() ShiftSlot {
	return ShiftSlot{Date: c.Date, Type: c.ShiftType}
}
