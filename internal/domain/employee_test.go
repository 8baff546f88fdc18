package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWeeklyHoursCap(t *testing.T) {
	cap40 := int32(40)
	cap60 := int32(60)

	tests := []struct {
		desc     string
		personal *int32
		want     float64
	}{
		{"no personal cap uses global", nil, 48},
		{"lower personal cap wins", &cap40, 40},
		{"personal cap never raises the global limit", &cap60, 48},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			e := &Employee{MaxWeeklyHours: tt.personal}
			require.InDelta(t, tt.want, e.WeeklyHoursCap(48), 1e-9)
		})
	}
}

func TestPreferenceFor(t *testing.T) {
	// 2026-09-07 是周一
	mondayDay := ShiftSlot{Date: NewDate(2026, time.September, 7), Type: ShiftDay}
	mondayNight := ShiftSlot{Date: NewDate(2026, time.September, 7), Type: ShiftNight}

	t.Run("defaults to the middle score", func(t *testing.T) {
		e := &Employee{}
		require.Equal(t, int32(10), e.PreferenceFor(mondayDay))
	})

	t.Run("combines shift and weekday preferences", func(t *testing.T) {
		e := &Employee{
			ShiftTypePreferences: map[ShiftType]int32{ShiftDay: 9},
			WeekdayPreferences:   map[time.Weekday]int32{time.Monday: 2},
		}
		require.Equal(t, int32(11), e.PreferenceFor(mondayDay))
		// 未设置偏好的夜班按中间值 5 计
		require.Equal(t, int32(7), e.PreferenceFor(mondayNight))
	})
}

func TestLevelDisplayName(t *testing.T) {
	require.Equal(t, "实习", LevelTrainee.DisplayName())
	require.Equal(t, "专家", LevelExpert.DisplayName())
	require.Equal(t, "未知", Level(9).DisplayName())
}

func TestLevelIsValid(t *testing.T) {
	for level := LevelTrainee; level <= LevelExpert; level++ {
		require.Truef(t, level.IsValid(), "等级 %d 应当合法", level)
	}
	require.False(t, Level(0).IsValid())
	require.False(t, Level(6).IsValid())
}
