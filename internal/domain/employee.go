package domain

import (
	"time"
)

// Level 表示员工经验等级，数值越大经验越丰富
type Level int32

const (
	LevelTrainee      Level = 1
	LevelJunior       Level = 2
	LevelIntermediate Level = 3
	LevelSenior       Level = 4
	LevelExpert       Level = 5
)

func (l Level) IsValid() bool {
	return l >= LevelTrainee && l <= LevelExpert
}

func (l Level) DisplayName() string {
	switch l {
	case LevelTrainee:
		return "实习"
	case LevelJunior:
		return "初级"
	case LevelIntermediate:
		return "中级"
	case LevelSenior:
		return "高级"
	case LevelExpert:
		return "专家"
	default:
		return "未知"
	}
}

type Team struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	Version   int32     `json:"-"`
}

type Employee struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Level    Level  `json:"level"`
	TeamID   int64  `json:"teamID"`
	TeamName string `json:"teamName"`
	// ShiftTypePreferences 的取值为 1-10，数值越大表示越喜欢该班次
	ShiftTypePreferences map[ShiftType]int32 `json:"shiftTypePreferences"`
	// WeekdayPreferences 中周日为 0，取值同样为 1-10
	WeekdayPreferences map[time.Weekday]int32 `json:"weekdayPreferences"`
	Certifications     []string               `json:"certifications"`
	NoNightShifts      bool                   `json:"noNightShifts"`
	// MaxWeeklyHours 为空时使用全局的每周最大工时限制
	MaxWeeklyHours *int32    `json:"maxWeeklyHours"`
	MentorID       *int64    `json:"mentorID"`
	IsActive       bool      `json:"isActive"`
	CreatedAt      time.Time `json:"createdAt"`
	Version        int32     `json:"-"`
}

// WeeklyHoursCap 返回该员工实际生效的每周最大工时
func (e *Employee) WeeklyHoursCap(globalMax int32) float64 {
	if e.MaxWeeklyHours != nil && *e.MaxWeeklyHours < globalMax {
		return float64(*e.MaxWeeklyHours)
	}
	return float64(globalMax)
}

// PreferenceFor 返回员工对指定班次与星期的偏好之和，未设置的偏好按中间值 5 处理
func (e *Employee) PreferenceFor(slot ShiftSlot) int32 {
	shiftPref := int32(5)
	if w, ok := e.ShiftTypePreferences[slot.Type]; ok {
		shiftPref = w
	}
	weekdayPref := int32(5)
	if w, ok := e.WeekdayPreferences[slot.Date.Weekday()]; ok {
		weekdayPref = w
	}
	return shiftPref + weekdayPref
}
