package scheduler

import (
	"fmt"
	"sort"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// 硬约束名，会出现在校验报告的 constraint 字段中
const (
	ConstraintUnderstaffed      = "understaffed"
	ConstraintInsufficientRest  = "insufficient_rest"
	ConstraintConsecutiveNights = "consecutive_nights"
	ConstraintWeeklyHours       = "weekly_hours"
	ConstraintIneligibleLevel   = "ineligible_level"
	ConstraintNoNightShift      = "no_night_shift"
	ConstraintCriticalPattern   = "critical_pattern"
)

// ScheduleValidator 检查排班集合是否满足所有硬约束。
// 它只读取状态、从不修改，是搜索过程对每个候选解打分时的依据。
type ScheduleValidator struct {
	model *ConstraintModel
}

func NewScheduleValidator(m *ConstraintModel) *ScheduleValidator {
	return &ScheduleValidator{model: m}
}

// Validate 返回所有被违反的硬约束，列表为空时排班可行
func (v *ScheduleValidator) Validate(assignments []domain.Assignment) (*domain.ValidatorReport, error) {
	r, err := rosterFromAssignments(v.model, assignments)
	if err != nil {
		return nil, err
	}
	return v.validateRoster(r), nil
}

func (v *ScheduleValidator) validateRoster(r *roster) *domain.ValidatorReport {
	m := v.model
	violations := make([]domain.HardViolation, 0)

	// 人数缺口
	for i := range m.Slots {
		slot := &m.Slots[i]
		if r.counts[i] >= slot.Required {
			continue
		}
		short := slot.Required - r.counts[i]
		date := slot.Date
		shiftType := slot.Type
		violations = append(violations, domain.HardViolation{
			Constraint: ConstraintUnderstaffed,
			Date:       &date,
			ShiftType:  &shiftType,
			Magnitude:  float64(short),
			Message:    fmt.Sprintf("%s %s缺少 %d 人", slot.Date, slot.Type.DisplayName(), short),
		})
	}

	for e, emp := range m.Employees {
		violations = append(violations, v.employeeViolations(r, e, emp)...)
	}

	return &domain.ValidatorReport{
		IsFeasible: len(violations) == 0,
		Violations: violations,
	}
}

func (v *ScheduleValidator) employeeViolations(r *roster, e int, emp *domain.Employee) []domain.HardViolation {
	m := v.model
	row := r.row(e)
	violations := make([]domain.HardViolation, 0)

	appendViolation := func(constraint string, day int, shiftType domain.ShiftType, magnitude float64, message string) {
		id := emp.ID
		date := m.Dates[day]
		violation := domain.HardViolation{
			Constraint: constraint,
			EmployeeID: &id,
			Date:       &date,
			Magnitude:  magnitude,
			Message:    message,
		}
		if shiftType != "" {
			st := shiftType
			violation.ShiftType = &st
		}
		violations = append(violations, violation)
	}

	// 员工个人资格：经验等级与“不上夜班”
	for d, code := range row {
		if code == codeOff {
			continue
		}
		shiftType := codeShiftType(code)
		if emp.NoNightShifts && code == codeNight {
			appendViolation(ConstraintNoNightShift, d, shiftType, 1,
				fmt.Sprintf("员工 %s 不能上夜班，但被安排了 %s 的夜班", emp.Name, m.Dates[d]))
			continue
		}
		if slot := m.SlotFor(d, shiftType); slot != nil && emp.Level < slot.MinLevel {
			appendViolation(ConstraintIneligibleLevel, d, shiftType, 1,
				fmt.Sprintf("员工 %s 的经验等级为%s，低于 %s %s要求的%s",
					emp.Name, emp.Level.DisplayName(), m.Dates[d], shiftType.DisplayName(), slot.MinLevel.DisplayName()))
		}
	}

	// 班次间休息
	prevDay := -1
	var prevCode int8
	for d, code := range row {
		if code == codeOff {
			continue
		}
		if prevDay >= 0 {
			gap := restGapHours(prevDay, prevCode, d, code)
			if gap < m.Limits.MinRestHours {
				appendViolation(ConstraintInsufficientRest, d, codeShiftType(code), m.Limits.MinRestHours-gap,
					fmt.Sprintf("员工 %s 在 %s 前的休息时间仅 %.1f 小时，低于最低要求 %.1f 小时",
						emp.Name, m.Dates[d], gap, m.Limits.MinRestHours))
			}
		}
		prevDay = d
		prevCode = code
	}

	// 连续夜班
	maxNights := int(m.Limits.MaxConsecutiveNights)
	runStart := -1
	runLen := 0
	emitRun := func() {
		if runLen > maxNights {
			appendViolation(ConstraintConsecutiveNights, runStart, domain.ShiftNight, float64(runLen-maxNights),
				fmt.Sprintf("员工 %s 自 %s 起连续夜班 %d 天，超过上限 %d 天",
					emp.Name, m.Dates[runStart], runLen, maxNights))
		}
	}
	for d, code := range row {
		if code == codeNight {
			if runLen == 0 {
				runStart = d
			}
			runLen++
			continue
		}
		emitRun()
		runLen = 0
	}
	emitRun()

	// 每周工时
	type weekLoad struct {
		hours    float64
		firstDay int
	}
	weeks := make(map[int]*weekLoad)
	for d, code := range row {
		if code == codeOff {
			continue
		}
		key := weekKey(m.Dates[d])
		if _, exists := weeks[key]; !exists {
			weeks[key] = &weekLoad{firstDay: d}
		}
		weeks[key].hours += codeShiftType(code).Hours()
	}
	weekKeys := make([]int, 0, len(weeks))
	for key := range weeks {
		weekKeys = append(weekKeys, key)
	}
	sort.Ints(weekKeys)
	weekCap := emp.WeeklyHoursCap(m.Limits.MaxWeeklyHours)
	for _, key := range weekKeys {
		load := weeks[key]
		if load.hours > weekCap {
			appendViolation(ConstraintWeeklyHours, load.firstDay, "", load.hours-weekCap,
				fmt.Sprintf("员工 %s 在 %s 所在周的工时为 %.1f 小时，超过上限 %.1f 小时",
					emp.Name, m.Dates[load.firstDay], load.hours, weekCap))
		}
	}

	// 启用规避危险模式时，危险级别的命中按硬约束处理
	if m.Options.AvoidDangerousPatterns {
		forEachPattern(m, row, emp, func(hit patternHit) {
			if hit.severity != domain.SeverityCritical {
				return
			}
			appendViolation(ConstraintCriticalPattern, hit.day, "", 1,
				fmt.Sprintf("员工 %s 存在危险班次组合：%s", emp.Name, patternMessage(m, hit)))
		})
	}

	return violations
}
