package scheduler

import (
	"fmt"
	"sort"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// 各软约束的基准权重，未启用时为 0
const (
	fairnessWeight          = 300.0
	safetyWeight            = 2.0
	preferenceWeight        = 10.0
	consecutiveNightsWeight = 15.0
	mentorshipWeightPerUnit = 3.0
)

// 单位硬约束违反量的代价权重，relaxed 模式下降低但永远不为 0，
// 保证只要迭代预算内存在可行解，搜索就会偏向可行解
func hardPenaltyFor(p domain.SafetyPriority) float64 {
	switch p {
	case domain.SafetyPriorityStrict:
		return 1000
	case domain.SafetyPriorityRelaxed:
		return 60
	default:
		return 400
	}
}

// BuildModel 将原始请求转换为归一化的约束模型。
// 该过程是纯函数且不包含任何随机性，同样的请求永远得到同样的模型。
func BuildModel(req *Request) (*ConstraintModel, error) {
	if req.DateRange.Days() == 0 {
		return nil, fmt.Errorf("%w: 日期范围为空", ErrInvalidRequest)
	}
	if len(req.Requirements) == 0 {
		return nil, fmt.Errorf("%w: 人力需求列表为空", ErrInvalidRequest)
	}

	limits, err := normalizeLimits(req.Limits)
	if err != nil {
		return nil, err
	}
	settings, err := normalizeSettings(req.Settings)
	if err != nil {
		return nil, err
	}
	options := req.Options
	if options.EnforceMentorshipPairing {
		if options.MentorshipPriority == 0 {
			options.MentorshipPriority = 5
		}
		if options.MentorshipPriority < 1 || options.MentorshipPriority > 10 {
			return nil, fmt.Errorf("%w: 带教优先级必须在 1 到 10 之间", ErrInvalidRequest)
		}
	}

	// 过滤出激活且属于目标团队的员工，按 ID 升序保证建模结果稳定
	teamSet := make(map[int64]bool, len(req.TeamIDs))
	for _, id := range req.TeamIDs {
		teamSet[id] = true
	}
	employees := make([]*domain.Employee, 0, len(req.Employees))
	for _, e := range req.Employees {
		if !e.IsActive {
			continue
		}
		if len(teamSet) > 0 && !teamSet[e.TeamID] {
			continue
		}
		employees = append(employees, e)
	}
	if len(employees) == 0 {
		return nil, fmt.Errorf("%w: 没有可参与排班的员工", ErrInvalidRequest)
	}
	sort.Slice(employees, func(i, j int) bool {
		return employees[i].ID < employees[j].ID
	})

	m := &ConstraintModel{
		RunID:       req.RunID,
		Name:        req.Name,
		DateRange:   req.DateRange,
		Dates:       req.DateRange.Dates(),
		Employees:   employees,
		Limits:      limits,
		Options:     options,
		Settings:    settings,
		HardPenalty: hardPenaltyFor(settings.SafetyPriority),
		empIndex:    make(map[int64]int, len(employees)),
		teamNames:   make(map[int64]string),
	}
	for i, e := range employees {
		m.empIndex[e.ID] = i
		m.teamNames[e.TeamID] = e.TeamName
	}

	m.Weights = SoftWeights{}
	if options.BalanceWorkload {
		m.Weights.Fairness = fairnessWeight
	}
	if options.AvoidDangerousPatterns {
		m.Weights.Safety = safetyWeight
	}
	if options.RespectPreferences {
		m.Weights.Preference = preferenceWeight
	}
	if options.MinimizeConsecutiveNights {
		m.Weights.ConsecutiveNights = consecutiveNightsWeight
	}
	if options.EnforceMentorshipPairing {
		m.Weights.Mentorship = mentorshipWeightPerUnit * float64(options.MentorshipPriority)
	}

	if err := m.buildSlots(req.Requirements); err != nil {
		return nil, err
	}
	m.buildEligibility()
	m.buildMentorPairs()

	return m, nil
}

func normalizeLimits(limits LegalLimits) (LegalLimits, error) {
	if limits.MinRestHours == 0 {
		limits.MinRestHours = 11
	}
	if limits.MinRestHours < 1 || limits.MinRestHours > 24 {
		return limits, fmt.Errorf("%w: 最小休息时间必须在 1 到 24 小时之间", ErrInvalidRequest)
	}
	if limits.MaxConsecutiveNights == 0 {
		limits.MaxConsecutiveNights = 3
	}
	if limits.MaxConsecutiveNights < 2 || limits.MaxConsecutiveNights > 5 {
		return limits, fmt.Errorf("%w: 最大连续夜班数必须在 2 到 5 之间", ErrInvalidRequest)
	}
	if limits.MaxWeeklyHours == 0 {
		limits.MaxWeeklyHours = 48
	}
	if limits.MaxWeeklyHours < 40 || limits.MaxWeeklyHours > 68 {
		return limits, fmt.Errorf("%w: 每周最大工时必须在 40 到 68 小时之间", ErrInvalidRequest)
	}
	return limits, nil
}

func normalizeSettings(settings domain.OptimizationSettings) (domain.OptimizationSettings, error) {
	if settings.Strategy == "" {
		settings.Strategy = domain.StrategySimulatedAnnealing
	}
	if !settings.Strategy.IsValid() {
		return settings, fmt.Errorf("%w: 未知的搜索策略 %q", ErrInvalidRequest, settings.Strategy)
	}
	if settings.SafetyPriority == "" {
		settings.SafetyPriority = domain.SafetyPriorityBalanced
	}
	if !settings.SafetyPriority.IsValid() {
		return settings, fmt.Errorf("%w: 未知的安全优先级 %q", ErrInvalidRequest, settings.SafetyPriority)
	}
	if settings.FairnessTarget == 0 {
		settings.FairnessTarget = 0.3
	}
	if settings.FairnessTarget < 0.1 || settings.FairnessTarget > 0.5 {
		return settings, fmt.Errorf("%w: 公平性目标必须在 0.1 到 0.5 之间", ErrInvalidRequest)
	}
	if settings.MaxIterations == 0 {
		settings.MaxIterations = 20000
	}
	if settings.MaxIterations < 0 {
		return settings, fmt.Errorf("%w: 最大迭代次数不能为负数", ErrInvalidRequest)
	}
	if settings.ConvergenceThreshold < 0 {
		return settings, fmt.Errorf("%w: 收敛阈值不能为负数", ErrInvalidRequest)
	}
	if settings.StallWindow == 0 {
		settings.StallWindow = 500
	}
	if settings.StallWindow < 0 {
		return settings, fmt.Errorf("%w: 收敛观察窗口不能为负数", ErrInvalidRequest)
	}
	if settings.TimeBudgetMS < 0 {
		return settings, fmt.Errorf("%w: 时间预算不能为负数", ErrInvalidRequest)
	}
	if settings.ParallelRestarts < 0 {
		return settings, fmt.Errorf("%w: 并行重启数不能为负数", ErrInvalidRequest)
	}
	return settings, nil
}

func (m *ConstraintModel) buildSlots(requirements []domain.CoverageRequirement) error {
	days := len(m.Dates)
	m.slotAt = make([][]int, days)
	for d := range m.slotAt {
		m.slotAt[d] = []int{-1, -1, -1}
	}

	type slotSeen struct {
		day  int
		code int8
	}
	seen := make(map[slotSeen]bool, len(requirements))

	for _, req := range requirements {
		if !req.ShiftType.IsValid() {
			return fmt.Errorf("%w: 未知的班次类型 %q", ErrInvalidRequest, req.ShiftType)
		}
		if req.RequiredCount < 0 {
			return fmt.Errorf("%w: %s %s 的需求人数不能为负数", ErrInvalidRequest, req.Date, req.ShiftType.DisplayName())
		}
		if req.RequiredCount == 0 {
			continue
		}
		day := m.dayOf(req.Date)
		if day < 0 {
			return fmt.Errorf("%w: 人力需求日期 %s 超出排班范围", ErrInvalidRequest, req.Date)
		}
		key := slotSeen{day: day, code: typeCode(req.ShiftType)}
		if seen[key] {
			return fmt.Errorf("%w: %s %s 存在重复的人力需求", ErrInvalidRequest, req.Date, req.ShiftType.DisplayName())
		}
		seen[key] = true

		// 需求人数超过员工总数时无论怎么搜索都不可能满足，直接拒绝；
		// 经验等级导致的可用人数不足不在这里拦截，由搜索和校验阶段给出解释
		if int(req.RequiredCount) > len(m.Employees) {
			return fmt.Errorf("%w: %s %s 需要 %d 人，超过员工总数 %d",
				ErrInvalidRequest, req.Date, req.ShiftType.DisplayName(), req.RequiredCount, len(m.Employees))
		}

		minLevel := req.MinLevel
		if minLevel == 0 {
			minLevel = domain.LevelTrainee
		}
		if !minLevel.IsValid() {
			return fmt.Errorf("%w: 非法的最低经验等级 %d", ErrInvalidRequest, minLevel)
		}

		m.Slots = append(m.Slots, Slot{
			Day:      day,
			Date:     req.Date,
			Type:     req.ShiftType,
			Required: req.RequiredCount,
			MinLevel: minLevel,
		})
	}

	if len(m.Slots) == 0 {
		return fmt.Errorf("%w: 所有人力需求的人数均为 0", ErrInvalidRequest)
	}

	// 按时间顺序排列槽位，保证建模结果稳定
	sort.Slice(m.Slots, func(i, j int) bool {
		if m.Slots[i].Day != m.Slots[j].Day {
			return m.Slots[i].Day < m.Slots[j].Day
		}
		return typeCode(m.Slots[i].Type) < typeCode(m.Slots[j].Type)
	})
	for i := range m.Slots {
		m.Slots[i].Index = i
		m.slotAt[m.Slots[i].Day][typeCode(m.Slots[i].Type)-1] = i
	}

	return nil
}

// buildEligibility 预计算每个槽位可以由哪些员工承担。
// 员工可承担槽位的条件：经验等级不低于槽位要求，且不触犯“不上夜班”的个人硬约束。
func (m *ConstraintModel) buildEligibility() {
	m.eligible = make([][]int, len(m.Slots))
	m.canServe = make([][]bool, len(m.Slots))

	for i := range m.Slots {
		slot := &m.Slots[i]
		m.canServe[i] = make([]bool, len(m.Employees))

		for e, emp := range m.Employees {
			if emp.Level < slot.MinLevel {
				continue
			}
			if emp.NoNightShifts && slot.Type == domain.ShiftNight {
				continue
			}
			m.canServe[i][e] = true
			m.eligible[i] = append(m.eligible[i], e)
		}
	}
}

func (m *ConstraintModel) buildMentorPairs() {
	m.pairsOfEmp = make([][]int, len(m.Employees))
	if !m.Options.EnforceMentorshipPairing {
		return
	}

	for menteeIdx, mentee := range m.Employees {
		if mentee.MentorID == nil {
			continue
		}
		mentorIdx, ok := m.empIndex[*mentee.MentorID]
		if !ok || mentorIdx == menteeIdx {
			// 导师不在本次排班范围内时无法配对，跳过而不是报错
			continue
		}
		pairIdx := len(m.pairs)
		m.pairs = append(m.pairs, [2]int{mentorIdx, menteeIdx})
		m.pairsOfEmp[mentorIdx] = append(m.pairsOfEmp[mentorIdx], pairIdx)
		m.pairsOfEmp[menteeIdx] = append(m.pairsOfEmp[menteeIdx], pairIdx)
	}
}
