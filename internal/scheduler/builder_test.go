package scheduler

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

func TestBuildModelDefaults(t *testing.T) {
	req := testRequest(7, testEmployees(4, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay: 2,
	})

	m := mustBuildModel(t, req)

	require.Equal(t, 11.0, m.Limits.MinRestHours)
	require.Equal(t, int32(3), m.Limits.MaxConsecutiveNights)
	require.Equal(t, int32(48), m.Limits.MaxWeeklyHours)

	require.Equal(t, domain.StrategySimulatedAnnealing, m.Settings.Strategy)
	require.Equal(t, domain.SafetyPriorityBalanced, m.Settings.SafetyPriority)
	require.InDelta(t, 0.3, m.Settings.FairnessTarget, 1e-9)
	require.Equal(t, int32(20000), m.Settings.MaxIterations)
	require.Equal(t, int32(500), m.Settings.StallWindow)

	require.Equal(t, 400.0, m.HardPenalty)
	require.Len(t, m.Dates, 7)
	require.Len(t, m.Slots, 7)
}

func TestBuildModelHardPenaltyBySafetyPriority(t *testing.T) {
	tests := []struct {
		priority domain.SafetyPriority
		want     float64
	}{
		{domain.SafetyPriorityStrict, 1000},
		{domain.SafetyPriorityBalanced, 400},
		{domain.SafetyPriorityRelaxed, 60},
	}

	for _, tt := range tests {
		t.Run(string(tt.priority), func(t *testing.T) {
			req := testRequest(3, testEmployees(3, domain.LevelIntermediate), map[domain.ShiftType]int32{
				domain.ShiftDay: 1,
			})
			req.Settings.SafetyPriority = tt.priority

			m := mustBuildModel(t, req)
			require.Equal(t, tt.want, m.HardPenalty)
		})
	}
}

func TestBuildModelInvalidRequest(t *testing.T) {
	base := func() *Request {
		return testRequest(7, testEmployees(4, domain.LevelIntermediate), map[domain.ShiftType]int32{
			domain.ShiftDay: 2,
		})
	}

	tests := []struct {
		name    string
		mutate  func(req *Request)
		message string
	}{
		{
			name:    "empty date range",
			mutate:  func(req *Request) { req.DateRange = domain.DateRange{} },
			message: "日期范围为空",
		},
		{
			name:    "no requirements",
			mutate:  func(req *Request) { req.Requirements = nil },
			message: "人力需求列表为空",
		},
		{
			name: "no active employees",
			mutate: func(req *Request) {
				for _, e := range req.Employees {
					e.IsActive = false
				}
			},
			message: "没有可参与排班的员工",
		},
		{
			name: "required count exceeds headcount",
			mutate: func(req *Request) {
				req.Requirements[0].RequiredCount = 5
			},
			message: "超过员工总数",
		},
		{
			name: "duplicate requirement",
			mutate: func(req *Request) {
				req.Requirements = append(req.Requirements, req.Requirements[0])
			},
			message: "存在重复的人力需求",
		},
		{
			name: "all requirements zero",
			mutate: func(req *Request) {
				for i := range req.Requirements {
					req.Requirements[i].RequiredCount = 0
				}
			},
			message: "所有人力需求的人数均为 0",
		},
		{
			name: "requirement outside range",
			mutate: func(req *Request) {
				req.Requirements[0].Date = testStart.AddDays(30)
			},
			message: "超出排班范围",
		},
		{
			name: "unknown shift type",
			mutate: func(req *Request) {
				req.Requirements[0].ShiftType = "midnight"
			},
			message: "未知的班次类型",
		},
		{
			name: "negative required count",
			mutate: func(req *Request) {
				req.Requirements[0].RequiredCount = -1
			},
			message: "需求人数不能为负数",
		},
		{
			name: "invalid requirement level",
			mutate: func(req *Request) {
				req.Requirements[0].MinLevel = 9
			},
			message: "非法的最低经验等级",
		},
		{
			name:    "rest hours out of range",
			mutate:  func(req *Request) { req.Limits.MinRestHours = 30 },
			message: "最小休息时间必须在 1 到 24 小时之间",
		},
		{
			name:    "consecutive nights out of range",
			mutate:  func(req *Request) { req.Limits.MaxConsecutiveNights = 7 },
			message: "最大连续夜班数必须在 2 到 5 之间",
		},
		{
			name:    "weekly hours out of range",
			mutate:  func(req *Request) { req.Limits.MaxWeeklyHours = 20 },
			message: "每周最大工时必须在 40 到 68 小时之间",
		},
		{
			name:    "unknown strategy",
			mutate:  func(req *Request) { req.Settings.Strategy = "quantum" },
			message: "未知的搜索策略",
		},
		{
			name:    "unknown safety priority",
			mutate:  func(req *Request) { req.Settings.SafetyPriority = "extreme" },
			message: "未知的安全优先级",
		},
		{
			name:    "fairness target out of range",
			mutate:  func(req *Request) { req.Settings.FairnessTarget = 0.9 },
			message: "公平性目标必须在 0.1 到 0.5 之间",
		},
		{
			name:    "negative max iterations",
			mutate:  func(req *Request) { req.Settings.MaxIterations = -1 },
			message: "最大迭代次数不能为负数",
		},
		{
			name:    "negative convergence threshold",
			mutate:  func(req *Request) { req.Settings.ConvergenceThreshold = -0.5 },
			message: "收敛阈值不能为负数",
		},
		{
			name:    "negative time budget",
			mutate:  func(req *Request) { req.Settings.TimeBudgetMS = -100 },
			message: "时间预算不能为负数",
		},
		{
			name:    "negative stall window",
			mutate:  func(req *Request) { req.Settings.StallWindow = -1 },
			message: "收敛观察窗口不能为负数",
		},
		{
			name:    "negative parallel restarts",
			mutate:  func(req *Request) { req.Settings.ParallelRestarts = -2 },
			message: "并行重启数不能为负数",
		},
		{
			name: "mentorship priority out of range",
			mutate: func(req *Request) {
				req.Options.EnforceMentorshipPairing = true
				req.Options.MentorshipPriority = 11
			},
			message: "带教优先级必须在 1 到 10 之间",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := base()
			tt.mutate(req)

			m, err := BuildModel(req)
			require.Nil(t, m)
			require.ErrorIs(t, err, ErrInvalidRequest)
			require.ErrorContains(t, err, tt.message)
		})
	}
}

func TestBuildModelFiltersAndSortsEmployees(t *testing.T) {
	inactive := testEmployee(4, domain.LevelIntermediate)
	inactive.IsActive = false
	otherTeam := testEmployee(5, domain.LevelIntermediate)
	otherTeam.TeamID = 2
	otherTeam.TeamName = "二组"

	employees := []*domain.Employee{
		testEmployee(3, domain.LevelIntermediate),
		testEmployee(1, domain.LevelIntermediate),
		testEmployee(2, domain.LevelIntermediate),
		inactive,
		otherTeam,
	}

	t.Run("filters by team and activity", func(t *testing.T) {
		req := testRequest(3, employees, map[domain.ShiftType]int32{domain.ShiftDay: 1})
		req.TeamIDs = []int64{1}

		m := mustBuildModel(t, req)

		require.Len(t, m.Employees, 3)
		for i, want := range []int64{1, 2, 3} {
			require.Equal(t, want, m.Employees[i].ID)
		}
		require.Nil(t, m.EmployeeByID(4))
		require.Nil(t, m.EmployeeByID(5))
	})

	t.Run("empty team list includes all active employees", func(t *testing.T) {
		req := testRequest(3, employees, map[domain.ShiftType]int32{domain.ShiftDay: 1})

		m := mustBuildModel(t, req)

		require.Len(t, m.Employees, 4)
		require.NotNil(t, m.EmployeeByID(5))
		require.Nil(t, m.EmployeeByID(4))
	})
}

func TestBuildModelSlots(t *testing.T) {
	req := testRequest(2, testEmployees(4, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay:   2,
		domain.ShiftNight: 1,
	})
	// 人数为 0 的需求不生成槽位
	req.Requirements = append(req.Requirements, domain.CoverageRequirement{
		Date:          testStart,
		ShiftType:     domain.ShiftEvening,
		RequiredCount: 0,
	})

	m := mustBuildModel(t, req)

	require.Len(t, m.Slots, 4)
	for i, slot := range m.Slots {
		require.Equal(t, i, slot.Index)
	}

	daySlot := m.SlotFor(0, domain.ShiftDay)
	require.NotNil(t, daySlot)
	require.Equal(t, int32(2), daySlot.Required)
	require.Equal(t, domain.LevelTrainee, daySlot.MinLevel)
	require.True(t, daySlot.Date.Equal(testStart))

	require.Nil(t, m.SlotFor(0, domain.ShiftEvening))
	require.Nil(t, m.SlotFor(5, domain.ShiftDay))
	require.NotNil(t, m.SlotFor(1, domain.ShiftNight))
}

func TestBuildModelEligibility(t *testing.T) {
	trainee := testEmployee(1, domain.LevelTrainee)
	senior := testEmployee(2, domain.LevelSenior)
	noNight := testEmployee(3, domain.LevelSenior)
	noNight.NoNightShifts = true

	req := testRequest(1, []*domain.Employee{trainee, senior, noNight}, nil)
	req.Requirements = []domain.CoverageRequirement{
		{Date: testStart, ShiftType: domain.ShiftNight, RequiredCount: 1, MinLevel: domain.LevelIntermediate},
	}

	m := mustBuildModel(t, req)

	// 夜班槽位只有等级达标且允许上夜班的员工可以承担
	require.Equal(t, []int{1}, m.eligible[0])
	require.False(t, m.canServe[0][0])
	require.True(t, m.canServe[0][1])
	require.False(t, m.canServe[0][2])
}

func TestBuildModelWeights(t *testing.T) {
	build := func(options domain.GenerationOptions) *ConstraintModel {
		req := testRequest(3, testEmployees(3, domain.LevelIntermediate), map[domain.ShiftType]int32{
			domain.ShiftDay: 1,
		})
		req.Options = options
		m, err := BuildModel(req)
		require.NoError(t, err)
		return m
	}

	t.Run("all disabled", func(t *testing.T) {
		m := build(domain.GenerationOptions{})
		require.Equal(t, SoftWeights{}, m.Weights)
	})

	t.Run("all enabled", func(t *testing.T) {
		m := build(domain.GenerationOptions{
			RespectPreferences:        true,
			MinimizeConsecutiveNights: true,
			BalanceWorkload:           true,
			AvoidDangerousPatterns:    true,
			EnforceMentorshipPairing:  true,
			MentorshipPriority:        10,
		})
		require.Equal(t, fairnessWeight, m.Weights.Fairness)
		require.Equal(t, safetyWeight, m.Weights.Safety)
		require.Equal(t, preferenceWeight, m.Weights.Preference)
		require.Equal(t, consecutiveNightsWeight, m.Weights.ConsecutiveNights)
		require.Equal(t, 30.0, m.Weights.Mentorship)
	})

	t.Run("mentorship priority defaults to five", func(t *testing.T) {
		m := build(domain.GenerationOptions{EnforceMentorshipPairing: true})
		require.Equal(t, int32(5), m.Options.MentorshipPriority)
		require.Equal(t, 15.0, m.Weights.Mentorship)
	})
}

func TestBuildModelMentorPairs(t *testing.T) {
	newEmployees := func() []*domain.Employee {
		mentor := testEmployee(1, domain.LevelSenior)
		mentee := testEmployee(2, domain.LevelTrainee)
		mentee.MentorID = int64Ptr(1)
		return []*domain.Employee{mentor, mentee, testEmployee(3, domain.LevelIntermediate)}
	}

	t.Run("pair built when both participate", func(t *testing.T) {
		req := testRequest(3, newEmployees(), map[domain.ShiftType]int32{domain.ShiftDay: 1})
		req.Options.EnforceMentorshipPairing = true

		m := mustBuildModel(t, req)

		require.Len(t, m.pairs, 1)
		require.Equal(t, [2]int{0, 1}, m.pairs[0])
		require.Equal(t, []int{0}, m.pairsOfEmp[0])
		require.Equal(t, []int{0}, m.pairsOfEmp[1])
		require.Empty(t, m.pairsOfEmp[2])
	})

	t.Run("missing mentor skipped", func(t *testing.T) {
		employees := newEmployees()
		employees[1].MentorID = int64Ptr(99)
		req := testRequest(3, employees, map[domain.ShiftType]int32{domain.ShiftDay: 1})
		req.Options.EnforceMentorshipPairing = true

		m := mustBuildModel(t, req)
		require.Empty(t, m.pairs)
	})

	t.Run("pairing disabled", func(t *testing.T) {
		req := testRequest(3, newEmployees(), map[domain.ShiftType]int32{domain.ShiftDay: 1})

		m := mustBuildModel(t, req)
		require.Empty(t, m.pairs)
	})
}
