package domain

import (
	"time"

	"github.com/google/uuid"
)

// RunState 表示一次排班运行所处的阶段
type RunState string

const (
	RunStatePending    RunState = "pending"
	RunStateModeling   RunState = "modeling"
	RunStateSearching  RunState = "searching"
	RunStateValidating RunState = "validating"
	RunStateFinalizing RunState = "finalizing"
	RunStateCompleted  RunState = "completed"
	RunStateInfeasible RunState = "infeasible"
	RunStateTimedOut   RunState = "timed_out"
)

// IsTerminal 判断运行是否已经结束，Infeasible 和 TimedOut 也是正常的结束状态
func (s RunState) IsTerminal() bool {
	switch s {
	case RunStateCompleted, RunStateInfeasible, RunStateTimedOut:
		return true
	default:
		return false
	}
}

func (s RunState) DisplayName() string {
	switch s {
	case RunStatePending:
		return "等待中"
	case RunStateModeling:
		return "建模中"
	case RunStateSearching:
		return "搜索中"
	case RunStateValidating:
		return "校验中"
	case RunStateFinalizing:
		return "汇总中"
	case RunStateCompleted:
		return "已完成"
	case RunStateInfeasible:
		return "无可行解"
	case RunStateTimedOut:
		return "已超时"
	default:
		return string(s)
	}
}

type StrategyName string

const (
	StrategyHillClimbing       StrategyName = "hill_climbing"
	StrategySimulatedAnnealing StrategyName = "simulated_annealing"
	StrategyTabuSearch         StrategyName = "tabu_search"
	StrategyGenetic            StrategyName = "genetic"
)

func (s StrategyName) IsValid() bool {
	switch s {
	case StrategyHillClimbing, StrategySimulatedAnnealing, StrategyTabuSearch, StrategyGenetic:
		return true
	default:
		return false
	}
}

type SafetyPriority string

const (
	SafetyPriorityStrict   SafetyPriority = "strict"
	SafetyPriorityBalanced SafetyPriority = "balanced"
	SafetyPriorityRelaxed  SafetyPriority = "relaxed"
)

func (p SafetyPriority) IsValid() bool {
	switch p {
	case SafetyPriorityStrict, SafetyPriorityBalanced, SafetyPriorityRelaxed:
		return true
	default:
		return false
	}
}

// GenerationOptions 控制建模时启用哪些软约束
type GenerationOptions struct {
	RespectPreferences        bool  `json:"respectPreferences"`
	MinimizeConsecutiveNights bool  `json:"minimizeConsecutiveNights"`
	BalanceWorkload           bool  `json:"balanceWorkload"`
	AvoidDangerousPatterns    bool  `json:"avoidDangerousPatterns"`
	EnforceMentorshipPairing  bool  `json:"enforceMentorshipPairing"`
	MentorshipPriority        int32 `json:"mentorshipPriority"`
}

// OptimizationSettings 控制搜索阶段的行为，Enabled 为 false 时只做初始构造和校验
type OptimizationSettings struct {
	Enabled              bool           `json:"enabled"`
	Strategy             StrategyName   `json:"strategy"`
	FairnessTarget       float64        `json:"fairnessTarget"`
	SafetyPriority       SafetyPriority `json:"safetyPriority"`
	MaxIterations        int32          `json:"maxIterations"`
	ConvergenceThreshold float64        `json:"convergenceThreshold"`
	StallWindow          int32          `json:"stallWindow"`
	TimeBudgetMS         int64          `json:"timeBudgetMS"`
	ParallelRestarts     int32          `json:"parallelRestarts"`
	// RandomSeed 为空时由引擎自行选取种子，固定种子可以复现运行结果
	RandomSeed *int64 `json:"randomSeed"`
}

// ScheduleRun 表示一次从请求到终态的排班运行
type ScheduleRun struct {
	ID          uuid.UUID            `json:"id"`
	Name        string               `json:"name"`
	DateRange   DateRange            `json:"dateRange"`
	TeamIDs     []int64              `json:"teamIDs"`
	Options     GenerationOptions    `json:"generationOptions"`
	Settings    OptimizationSettings `json:"optimizationSettings"`
	State       RunState             `json:"state"`
	BestCost    float64              `json:"bestCost"`
	Iterations  int64                `json:"iterations"`
	ElapsedMS   int64                `json:"elapsedMS"`
	NotifyEmail string               `json:"notifyEmail,omitempty"`
	CreatedAt   time.Time            `json:"createdAt"`
	Version     int32                `json:"-"`
}

// RunProgress 是轮询接口返回的运行快照
type RunProgress struct {
	RunID      uuid.UUID `json:"runID"`
	State      RunState  `json:"state"`
	BestCost   float64   `json:"bestCost"`
	Iterations int64     `json:"iterations"`
	ElapsedMS  int64     `json:"elapsedMS"`
	UpdatedAt  time.Time `json:"updatedAt"`
}
