package domain

import (
	"time"
)

// CoverageTemplateRule 描述一种班次在工作日和周末分别需要的人数
type CoverageTemplateRule struct {
	ID           int64     `json:"id"`
	ShiftType    ShiftType `json:"shiftType"`
	WeekdayCount int32     `json:"weekdayCount"`
	WeekendCount int32     `json:"weekendCount"`
	MinLevel     Level     `json:"minLevel"`
}

type CoverageTemplate struct {
	ID          int64                  `json:"id"`
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Rules       []CoverageTemplateRule `json:"rules"`
	CreatedAt   time.Time              `json:"createdAt"`
	Version     int32                  `json:"-"`
}

// Expand 将模板按日期范围展开为逐日的人力需求，人数为 0 的班次不生成需求
func (t *CoverageTemplate) Expand(dateRange DateRange) []CoverageRequirement {
	requirements := make([]CoverageRequirement, 0, dateRange.Days()*len(t.Rules))

	for _, date := range dateRange.Dates() {
		for _, rule := range t.Rules {
			count := rule.WeekdayCount
			if date.IsWeekend() {
				count = rule.WeekendCount
			}
			if count <= 0 {
				continue
			}

			requirements = append(requirements, CoverageRequirement{
				Date:          date,
				ShiftType:     rule.ShiftType,
				RequiredCount: count,
				MinLevel:      rule.MinLevel,
			})
		}
	}

	return requirements
}
