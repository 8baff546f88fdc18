package scheduler

import (
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// weekKey 把日期归入 ISO 周，周一为一周的开始
func weekKey(d domain.Date) int {
	year, week := d.Time().ISOWeek()
	return year*100 + week
}

// restGapHours 返回两个班次之间的休息小时数，夜班的结束时间会跨到次日
func restGapHours(prevDay int, prevCode int8, day int, code int8) float64 {
	prevEnd := float64(prevDay*24+codeShiftType(prevCode).StartHour()) + codeShiftType(prevCode).Hours()
	nextStart := float64(day*24 + codeShiftType(code).StartHour())
	return nextStart - prevEnd
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func severityPenalty(s domain.Severity) float64 {
	switch s {
	case domain.SeverityCritical:
		return 25
	case domain.SeverityHigh:
		return 15
	case domain.SeverityMedium:
		return 8
	default:
		return 3
	}
}
