package scheduler

import (
	"fmt"
	"sort"
	"time"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// 危险模式规则名，会出现在报告的 rule 字段中
const (
	RuleDayToNight        = "day_to_night"
	RuleConsecutiveNights = "consecutive_nights"
	RuleInsufficientRest  = "insufficient_rest"
	RuleExcessiveChanges  = "excessive_changes"
	RuleWeekendOverload   = "weekend_overload"
	RuleCumulativeFatigue = "cumulative_fatigue"
)

// patternHit 是一次危险模式命中，value 的含义随规则不同：
// 间隔小时数、连续天数、切换次数、周末个数或时间窗内的工时
type patternHit struct {
	rule     string
	day      int
	severity domain.Severity
	penalty  float64
	value    float64
}

// forEachPattern 扫描一名员工的班次序列，对每个命中的危险模式调用 fn。
// 扫描顺序是确定的：同样的序列永远产生同样的命中序列。
func forEachPattern(m *ConstraintModel, row []int8, emp *domain.Employee, fn func(patternHit)) {
	scanDayToNight(row, fn)
	scanConsecutiveNights(m, row, fn)
	scanInsufficientRest(m, row, fn)
	scanExcessiveChanges(row, fn)
	scanWeekendOverload(m, row, fn)
	scanCumulativeFatigue(m, row, emp, fn)
}

// 早班后第二天直接接夜班，属于危险级别
func scanDayToNight(row []int8, fn func(patternHit)) {
	for d := 0; d+1 < len(row); d++ {
		if row[d] == codeDay && row[d+1] == codeNight {
			fn(patternHit{
				rule:     RuleDayToNight,
				day:      d,
				severity: domain.SeverityCritical,
				penalty:  severityPenalty(domain.SeverityCritical),
			})
		}
	}
}

// 连续夜班超过上限一天记严重，超过两天及以上记危险
func scanConsecutiveNights(m *ConstraintModel, row []int8, fn func(patternHit)) {
	maxNights := int(m.Limits.MaxConsecutiveNights)
	runStart := -1
	runLen := 0

	emit := func() {
		if runLen > maxNights {
			severity := domain.SeverityHigh
			if runLen > maxNights+1 {
				severity = domain.SeverityCritical
			}
			fn(patternHit{
				rule:     RuleConsecutiveNights,
				day:      runStart,
				severity: severity,
				penalty:  severityPenalty(severity),
				value:    float64(runLen),
			})
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
		emit()
		runLen = 0
	}
	emit()
}

// 相邻两个班次之间的休息不足最低要求，按缺口大小在中等和严重之间分级
func scanInsufficientRest(m *ConstraintModel, row []int8, fn func(patternHit)) {
	prevDay := -1
	var prevCode int8

	for d, code := range row {
		if code == codeOff {
			continue
		}
		if prevDay >= 0 {
			gap := restGapHours(prevDay, prevCode, d, code)
			if gap < m.Limits.MinRestHours {
				shortfall := m.Limits.MinRestHours - gap
				severity := domain.SeverityMedium
				if shortfall >= 3 {
					severity = domain.SeverityHigh
				}
				penalty := 8 + 2*shortfall
				if penalty > 15 {
					penalty = 15
				}
				fn(patternHit{
					rule:     RuleInsufficientRest,
					day:      d,
					severity: severity,
					penalty:  penalty,
					value:    gap,
				})
			}
		}
		prevDay = d
		prevCode = code
	}
}

// 滚动 7 天窗口内班次类型切换超过 2 次，只在进入违反状态的窗口上报一次
func scanExcessiveChanges(row []int8, fn func(patternHit)) {
	if len(row) < 7 {
		return
	}

	// 收集所有切换发生的日期（相邻两个工作日班次类型不同）
	transitions := make([]int, 0, len(row))
	prevDay := -1
	var prevCode int8
	for d, code := range row {
		if code == codeOff {
			continue
		}
		if prevDay >= 0 && code != prevCode {
			transitions = append(transitions, d)
		}
		prevDay = d
		prevCode = code
	}
	if len(transitions) <= 2 {
		return
	}

	lo, hi := 0, 0
	prevViolated := false
	for ws := 0; ws+6 < len(row); ws++ {
		for lo < len(transitions) && transitions[lo] < ws {
			lo++
		}
		if hi < lo {
			hi = lo
		}
		for hi < len(transitions) && transitions[hi] <= ws+6 {
			hi++
		}

		count := hi - lo
		violated := count > 2
		if violated && !prevViolated {
			fn(patternHit{
				rule:     RuleExcessiveChanges,
				day:      transitions[lo+2],
				severity: domain.SeverityHigh,
				penalty:  severityPenalty(domain.SeverityHigh),
				value:    float64(count),
			})
		}
		prevViolated = violated
	}
}

// 连续 3 个及以上周末值班记中等，一段连续周末只上报一次
func scanWeekendOverload(m *ConstraintModel, row []int8, fn func(patternHit)) {
	// 周末以其周六标识，firstDay 记录该周末内第一个实际值班的日子
	type weekend struct {
		idx      int
		firstDay int
	}
	worked := make([]weekend, 0, 8)

	for d, code := range row {
		if code == codeOff || !m.Dates[d].IsWeekend() {
			continue
		}
		satDiff := d
		if m.Dates[d].Weekday() == time.Sunday {
			// 周日归属前一天的周六
			satDiff = d - 1
		}
		idx := (satDiff + 7) / 7
		if len(worked) > 0 && worked[len(worked)-1].idx == idx {
			continue
		}
		worked = append(worked, weekend{idx: idx, firstDay: d})
	}

	streakStart := 0
	emit := func(start, end int) {
		length := end - start
		if length >= 3 {
			fn(patternHit{
				rule:     RuleWeekendOverload,
				day:      worked[start].firstDay,
				severity: domain.SeverityMedium,
				penalty:  severityPenalty(domain.SeverityMedium),
				value:    float64(length),
			})
		}
	}
	for i := 1; i <= len(worked); i++ {
		if i == len(worked) || worked[i].idx != worked[i-1].idx+1 {
			emit(streakStart, i)
			streakStart = i
		}
	}
}

// 滚动 7 天工时超过每周上限的九成，属于累积疲劳的轻度预警
func scanCumulativeFatigue(m *ConstraintModel, row []int8, emp *domain.Employee, fn func(patternHit)) {
	if len(row) < 7 {
		return
	}
	threshold := 0.9 * emp.WeeklyHoursCap(m.Limits.MaxWeeklyHours)

	window := 0.0
	for d := 0; d < 7; d++ {
		window += codeShiftType(row[d]).Hours()
	}

	prevViolated := false
	for ws := 0; ; ws++ {
		violated := window > threshold
		if violated && !prevViolated {
			fn(patternHit{
				rule:     RuleCumulativeFatigue,
				day:      ws + 6,
				severity: domain.SeverityLow,
				penalty:  severityPenalty(domain.SeverityLow),
				value:    window,
			})
		}
		prevViolated = violated

		if ws+7 >= len(row) {
			break
		}
		window += codeShiftType(row[ws+7]).Hours() - codeShiftType(row[ws]).Hours()
	}
}

func patternMessage(m *ConstraintModel, hit patternHit) string {
	switch hit.rule {
	case RuleDayToNight:
		return "早班后次日即接夜班"
	case RuleConsecutiveNights:
		return fmt.Sprintf("连续夜班 %d 天，超过上限 %d 天", int(hit.value), m.Limits.MaxConsecutiveNights)
	case RuleInsufficientRest:
		return fmt.Sprintf("班次间隔仅 %.1f 小时，低于最低要求 %.1f 小时", hit.value, m.Limits.MinRestHours)
	case RuleExcessiveChanges:
		return fmt.Sprintf("7 天内班次类型切换 %d 次", int(hit.value))
	case RuleWeekendOverload:
		return fmt.Sprintf("连续 %d 个周末值班", int(hit.value))
	case RuleCumulativeFatigue:
		return fmt.Sprintf("近 7 天工时 %.1f 小时，超过每周上限的九成", hit.value)
	default:
		return hit.rule
	}
}

// PatternSafetyAnalyzer 扫描排班集合中对人体有害的班次序列。
// 分析结果是建议性的，只有在启用规避危险模式时，危险级别的命中才会被当作硬约束。
type PatternSafetyAnalyzer struct {
	model *ConstraintModel
}

func NewPatternSafetyAnalyzer(m *ConstraintModel) *PatternSafetyAnalyzer {
	return &PatternSafetyAnalyzer{model: m}
}

// Analyze 是纯函数：同样的排班集合永远得到同样的报告
func (a *PatternSafetyAnalyzer) Analyze(assignments []domain.Assignment) (*domain.SafetyReport, error) {
	r, err := rosterFromAssignments(a.model, assignments)
	if err != nil {
		return nil, err
	}
	return a.analyzeRoster(r), nil
}

func (a *PatternSafetyAnalyzer) analyzeRoster(r *roster) *domain.SafetyReport {
	m := a.model
	report := &domain.SafetyReport{
		EmployeeScores: make([]domain.EmployeeSafetyScore, 0, len(m.Employees)),
		TeamScores:     make([]domain.TeamScore, 0, len(m.teamNames)),
		Detections:     make([]domain.PatternDetection, 0),
	}

	teamTotal := make(map[int64]float64)
	teamCount := make(map[int64]int)
	fleetTotal := 0.0

	for e, emp := range m.Employees {
		penalty := 0.0
		forEachPattern(m, r.row(e), emp, func(hit patternHit) {
			penalty += hit.penalty
			report.Detections = append(report.Detections, domain.PatternDetection{
				Rule:       hit.rule,
				EmployeeID: emp.ID,
				Date:       m.Dates[hit.day],
				Severity:   hit.severity,
				Penalty:    hit.penalty,
				Message:    patternMessage(m, hit),
			})
		})

		score := clampScore(100 - penalty)
		report.EmployeeScores = append(report.EmployeeScores, domain.EmployeeSafetyScore{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			Score:      score,
		})
		fleetTotal += score
		teamTotal[emp.TeamID] += score
		teamCount[emp.TeamID]++
	}

	if len(m.Employees) > 0 {
		report.FleetScore = fleetTotal / float64(len(m.Employees))
	}

	teamIDs := make([]int64, 0, len(teamTotal))
	for id := range teamTotal {
		teamIDs = append(teamIDs, id)
	}
	sort.Slice(teamIDs, func(i, j int) bool { return teamIDs[i] < teamIDs[j] })
	for _, id := range teamIDs {
		report.TeamScores = append(report.TeamScores, domain.TeamScore{
			TeamID:   id,
			TeamName: m.teamNames[id],
			Score:    teamTotal[id] / float64(teamCount[id]),
		})
	}

	return report
}
