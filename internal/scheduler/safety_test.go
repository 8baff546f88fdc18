package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// patternModel 构造用于逐行扫描的模型，日期范围长度与被扫描的行一致
func patternModel(t *testing.T, days int, limits LegalLimits) *ConstraintModel {
	t.Helper()
	req := testRequest(days, testEmployees(1, domain.LevelIntermediate), nil)
	req.Requirements = []domain.CoverageRequirement{
		{Date: testStart, ShiftType: domain.ShiftDay, RequiredCount: 1},
	}
	req.Limits = limits
	return mustBuildModel(t, req)
}

func collect(scan func(fn func(patternHit))) []patternHit {
	hits := make([]patternHit, 0)
	scan(func(hit patternHit) {
		hits = append(hits, hit)
	})
	return hits
}

func TestScanDayToNight(t *testing.T) {
	t.Run("detects adjacency", func(t *testing.T) {
		row := []int8{codeDay, codeNight}
		hits := collect(func(fn func(patternHit)) { scanDayToNight(row, fn) })

		require.Len(t, hits, 1)
		require.Equal(t, RuleDayToNight, hits[0].rule)
		require.Equal(t, domain.SeverityCritical, hits[0].severity)
		require.Equal(t, 0, hits[0].day)
		require.Equal(t, 25.0, hits[0].penalty)
	})

	t.Run("reverse order is fine", func(t *testing.T) {
		row := []int8{codeNight, codeDay}
		hits := collect(func(fn func(patternHit)) { scanDayToNight(row, fn) })
		require.Empty(t, hits)
	})
}

func TestScanConsecutiveNights(t *testing.T) {
	m := patternModel(t, 5, LegalLimits{})

	t.Run("at the limit", func(t *testing.T) {
		row := []int8{codeNight, codeNight, codeNight, codeOff, codeOff}
		hits := collect(func(fn func(patternHit)) { scanConsecutiveNights(m, row, fn) })
		require.Empty(t, hits)
	})

	t.Run("one over the limit", func(t *testing.T) {
		row := []int8{codeNight, codeNight, codeNight, codeNight, codeOff}
		hits := collect(func(fn func(patternHit)) { scanConsecutiveNights(m, row, fn) })

		require.Len(t, hits, 1)
		require.Equal(t, RuleConsecutiveNights, hits[0].rule)
		require.Equal(t, domain.SeverityHigh, hits[0].severity)
		require.Equal(t, 4.0, hits[0].value)
		require.Equal(t, 0, hits[0].day)
	})

	t.Run("two over the limit is critical", func(t *testing.T) {
		// 连续夜班一直持续到排班末尾时同样要被发现
		row := []int8{codeNight, codeNight, codeNight, codeNight, codeNight}
		hits := collect(func(fn func(patternHit)) { scanConsecutiveNights(m, row, fn) })

		require.Len(t, hits, 1)
		require.Equal(t, domain.SeverityCritical, hits[0].severity)
		require.Equal(t, 5.0, hits[0].value)
	})
}

func TestScanInsufficientRest(t *testing.T) {
	t.Run("evening to day leaves eight hours", func(t *testing.T) {
		m := patternModel(t, 2, LegalLimits{})
		row := []int8{codeEvening, codeDay}
		hits := collect(func(fn func(patternHit)) { scanInsufficientRest(m, row, fn) })

		require.Len(t, hits, 1)
		require.Equal(t, RuleInsufficientRest, hits[0].rule)
		require.Equal(t, 8.0, hits[0].value)
		// 缺口 3 小时，达到严重级别，罚分 8+2*3
		require.Equal(t, domain.SeverityHigh, hits[0].severity)
		require.Equal(t, 14.0, hits[0].penalty)
	})

	t.Run("night to day leaves no rest at all", func(t *testing.T) {
		m := patternModel(t, 2, LegalLimits{})
		row := []int8{codeNight, codeDay}
		hits := collect(func(fn func(patternHit)) { scanInsufficientRest(m, row, fn) })

		require.Len(t, hits, 1)
		require.Equal(t, 0.0, hits[0].value)
		require.Equal(t, domain.SeverityHigh, hits[0].severity)
		// 罚分在 15 处封顶
		require.Equal(t, 15.0, hits[0].penalty)
	})

	t.Run("day to day has enough rest", func(t *testing.T) {
		m := patternModel(t, 2, LegalLimits{})
		row := []int8{codeDay, codeDay}
		hits := collect(func(fn func(patternHit)) { scanInsufficientRest(m, row, fn) })
		require.Empty(t, hits)
	})

	t.Run("small shortfall is medium", func(t *testing.T) {
		m := patternModel(t, 2, LegalLimits{MinRestHours: 10})
		row := []int8{codeEvening, codeDay}
		hits := collect(func(fn func(patternHit)) { scanInsufficientRest(m, row, fn) })

		require.Len(t, hits, 1)
		require.Equal(t, domain.SeverityMedium, hits[0].severity)
		require.Equal(t, 12.0, hits[0].penalty)
	})
}

func TestScanExcessiveChanges(t *testing.T) {
	t.Run("three transitions in one window", func(t *testing.T) {
		row := []int8{codeDay, codeEvening, codeDay, codeEvening, codeOff, codeOff, codeOff}
		hits := collect(func(fn func(patternHit)) { scanExcessiveChanges(row, fn) })

		require.Len(t, hits, 1)
		require.Equal(t, RuleExcessiveChanges, hits[0].rule)
		require.Equal(t, domain.SeverityHigh, hits[0].severity)
		require.Equal(t, 3.0, hits[0].value)
	})

	t.Run("two transitions are fine", func(t *testing.T) {
		row := []int8{codeDay, codeEvening, codeDay, codeOff, codeOff, codeOff, codeOff}
		hits := collect(func(fn func(patternHit)) { scanExcessiveChanges(row, fn) })
		require.Empty(t, hits)
	})

	t.Run("sustained violation reported once", func(t *testing.T) {
		row := []int8{codeDay, codeEvening, codeDay, codeEvening, codeOff, codeOff, codeOff, codeOff, codeOff, codeOff}
		hits := collect(func(fn func(patternHit)) { scanExcessiveChanges(row, fn) })
		require.Len(t, hits, 1)
	})

	t.Run("short range skipped", func(t *testing.T) {
		row := []int8{codeDay, codeEvening, codeDay, codeEvening}
		hits := collect(func(fn func(patternHit)) { scanExcessiveChanges(row, fn) })
		require.Empty(t, hits)
	})
}

func TestScanWeekendOverload(t *testing.T) {
	// 周一开始的 21 天覆盖三个周末：下标 5/6、12/13、19/20
	m := patternModel(t, 21, LegalLimits{})

	rowWith := func(days ...int) []int8 {
		row := make([]int8, 21)
		for _, d := range days {
			row[d] = codeDay
		}
		return row
	}

	t.Run("three consecutive weekends", func(t *testing.T) {
		hits := collect(func(fn func(patternHit)) { scanWeekendOverload(m, rowWith(5, 12, 19), fn) })

		require.Len(t, hits, 1)
		require.Equal(t, RuleWeekendOverload, hits[0].rule)
		require.Equal(t, domain.SeverityMedium, hits[0].severity)
		require.Equal(t, 3.0, hits[0].value)
		require.Equal(t, 5, hits[0].day)
	})

	t.Run("gap breaks the streak", func(t *testing.T) {
		hits := collect(func(fn func(patternHit)) { scanWeekendOverload(m, rowWith(5, 19), fn) })
		require.Empty(t, hits)
	})

	t.Run("saturday and sunday count as one weekend", func(t *testing.T) {
		hits := collect(func(fn func(patternHit)) { scanWeekendOverload(m, rowWith(5, 6, 12, 19), fn) })

		require.Len(t, hits, 1)
		require.Equal(t, 3.0, hits[0].value)
	})
}

func TestScanCumulativeFatigue(t *testing.T) {
	m := patternModel(t, 7, LegalLimits{})
	emp := testEmployee(1, domain.LevelIntermediate)

	rowWithShifts := func(n int) []int8 {
		row := make([]int8, 7)
		for d := 0; d < n; d++ {
			row[d] = codeDay
		}
		return row
	}

	t.Run("over ninety percent of the cap", func(t *testing.T) {
		// 默认每周上限 48 小时，预警阈值 43.2，六个班共 48 小时
		hits := collect(func(fn func(patternHit)) { scanCumulativeFatigue(m, rowWithShifts(6), emp, fn) })

		require.Len(t, hits, 1)
		require.Equal(t, RuleCumulativeFatigue, hits[0].rule)
		require.Equal(t, domain.SeverityLow, hits[0].severity)
		require.Equal(t, 48.0, hits[0].value)
	})

	t.Run("under the threshold", func(t *testing.T) {
		hits := collect(func(fn func(patternHit)) { scanCumulativeFatigue(m, rowWithShifts(5), emp, fn) })
		require.Empty(t, hits)
	})

	t.Run("personal cap lowers the threshold", func(t *testing.T) {
		capped := testEmployee(1, domain.LevelIntermediate)
		capped.MaxWeeklyHours = int32Ptr(40)

		hits := collect(func(fn func(patternHit)) { scanCumulativeFatigue(m, rowWithShifts(5), capped, fn) })
		require.Len(t, hits, 1)
		require.Equal(t, 40.0, hits[0].value)
	})
}

func TestAnalyzeCleanRoster(t *testing.T) {
	m := mustBuildModel(t, testRequest(3, testEmployees(3, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay: 1,
	}))
	analyzer := NewPatternSafetyAnalyzer(m)

	assignments := []domain.Assignment{
		{EmployeeID: 1, Date: testStart, ShiftType: domain.ShiftDay},
		{EmployeeID: 2, Date: testStart.AddDays(1), ShiftType: domain.ShiftDay},
		{EmployeeID: 3, Date: testStart.AddDays(2), ShiftType: domain.ShiftDay},
	}

	report, err := analyzer.Analyze(assignments)
	require.NoError(t, err)

	require.Empty(t, report.Detections)
	require.Equal(t, 100.0, report.FleetScore)
	require.Len(t, report.EmployeeScores, 3)
	for _, score := range report.EmployeeScores {
		require.Equal(t, 100.0, score.Score)
	}
	require.Equal(t, 0, report.CriticalCount())

	// 分析是纯函数，重复调用得到完全一致的报告
	again, err := analyzer.Analyze(assignments)
	require.NoError(t, err)
	require.Equal(t, report, again)
}

func TestAnalyzeAggregatesTeams(t *testing.T) {
	risky := testEmployee(1, domain.LevelIntermediate)
	safe := testEmployee(2, domain.LevelIntermediate)
	safe.TeamID = 2
	safe.TeamName = "二组"

	m := mustBuildModel(t, testRequest(3, []*domain.Employee{risky, safe}, map[domain.ShiftType]int32{
		domain.ShiftDay: 1,
	}))
	analyzer := NewPatternSafetyAnalyzer(m)

	report, err := analyzer.Analyze([]domain.Assignment{
		{EmployeeID: 1, Date: testStart, ShiftType: domain.ShiftDay},
		{EmployeeID: 1, Date: testStart.AddDays(1), ShiftType: domain.ShiftNight},
	})
	require.NoError(t, err)

	require.Len(t, report.Detections, 1)
	detection := report.Detections[0]
	require.Equal(t, RuleDayToNight, detection.Rule)
	require.Equal(t, int64(1), detection.EmployeeID)
	require.True(t, detection.Date.Equal(testStart))
	require.Equal(t, "早班后次日即接夜班", detection.Message)
	require.Equal(t, 1, report.CriticalCount())

	require.Equal(t, 75.0, report.EmployeeScores[0].Score)
	require.Equal(t, 100.0, report.EmployeeScores[1].Score)
	require.InDelta(t, 87.5, report.FleetScore, 1e-9)

	require.Len(t, report.TeamScores, 2)
	require.Equal(t, int64(1), report.TeamScores[0].TeamID)
	require.Equal(t, 75.0, report.TeamScores[0].Score)
	require.Equal(t, int64(2), report.TeamScores[1].TeamID)
	require.Equal(t, "二组", report.TeamScores[1].TeamName)
	require.Equal(t, 100.0, report.TeamScores[1].Score)
}
