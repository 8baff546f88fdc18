package domain

import (
	"time"

	"github.com/google/uuid"
)

// Assignment 表示一名员工在某天承担某个班次
type Assignment struct {
	EmployeeID int64     `json:"employeeID"`
	Date       Date      `json:"date"`
	ShiftType  ShiftType `json:"shiftType"`
}

func (a Assignment) Slot() ShiftSlot {
	return ShiftSlot{Date: a.Date, Type: a.ShiftType}
}

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) DisplayName() string {
	switch s {
	case SeverityLow:
		return "轻微"
	case SeverityMedium:
		return "中等"
	case SeverityHigh:
		return "严重"
	case SeverityCritical:
		return "危险"
	default:
		return string(s)
	}
}

// PatternDetection 表示在某名员工的班次序列中发现的一处危险模式
type PatternDetection struct {
	Rule       string   `json:"rule"`
	EmployeeID int64    `json:"employeeID"`
	Date       Date     `json:"date"`
	Severity   Severity `json:"severity"`
	Penalty    float64  `json:"penalty"`
	Message    string   `json:"message"`
}

type TeamScore struct {
	TeamID   int64   `json:"teamID"`
	TeamName string  `json:"teamName"`
	Score    float64 `json:"score"`
}

type EmployeeSafetyScore struct {
	EmployeeID int64   `json:"employeeID"`
	Name       string  `json:"name"`
	Score      float64 `json:"score"`
}

// SafetyReport 汇总危险模式扫描的结果，分数区间为 0-100
type SafetyReport struct {
	FleetScore     float64               `json:"fleetScore"`
	TeamScores     []TeamScore           `json:"teamScores"`
	EmployeeScores []EmployeeSafetyScore `json:"employeeScores"`
	Detections     []PatternDetection    `json:"detections"`
}

// CriticalCount 返回危险级别检测的数量
func (r *SafetyReport) CriticalCount() int {
	count := 0
	for _, d := range r.Detections {
		if d.Severity == SeverityCritical {
			count++
		}
	}
	return count
}

type EmployeeWorkloadStat struct {
	EmployeeID   int64   `json:"employeeID"`
	Name         string  `json:"name"`
	TotalHours   float64 `json:"totalHours"`
	DayCount     int32   `json:"dayCount"`
	EveningCount int32   `json:"eveningCount"`
	NightCount   int32   `json:"nightCount"`
	WeekendCount int32   `json:"weekendCount"`
}

type TeamFairness struct {
	TeamID   int64   `json:"teamID"`
	TeamName string  `json:"teamName"`
	Gini     float64 `json:"gini"`
}

// FairnessReport 汇总工时分布的公平性指标
type FairnessReport struct {
	OverallGini float64 `json:"overallGini"`
	// DistributionBalance 表示早晚夜三种班次在员工间分布的均匀程度（百分比）
	DistributionBalance float64                `json:"distributionBalance"`
	FairnessScore       float64                `json:"fairnessScore"`
	TeamFairness        []TeamFairness         `json:"teamFairness"`
	EmployeeStats       []EmployeeWorkloadStat `json:"employeeStats"`
}

// HardViolation 表示一条被违反的硬约束
type HardViolation struct {
	Constraint string     `json:"constraint"`
	EmployeeID *int64     `json:"employeeID,omitempty"`
	Date       *Date      `json:"date,omitempty"`
	ShiftType  *ShiftType `json:"shiftType,omitempty"`
	Magnitude  float64    `json:"magnitude"`
	Message    string     `json:"message"`
}

type ValidatorReport struct {
	IsFeasible bool            `json:"isFeasible"`
	Violations []HardViolation `json:"violations"`
}

// RunMetadata 记录一次运行的搜索过程信息
type RunMetadata struct {
	Strategy   StrategyName `json:"strategy"`
	Iterations int64        `json:"iterations"`
	ElapsedMS  int64        `json:"elapsedMS"`
	FinalCost  float64      `json:"finalCost"`
	Seed       int64        `json:"seed"`
	Restarts   int32        `json:"restarts"`
	State      RunState     `json:"state"`
	// InfeasibleReasons 在无可行解时解释哪些约束无法满足
	InfeasibleReasons []string `json:"infeasibleReasons,omitempty"`
}

// ScheduleRunResult 是排班运行结束后交给外部系统的唯一产物
type ScheduleRunResult struct {
	RunID       uuid.UUID        `json:"runID"`
	Assignments []Assignment     `json:"assignments"`
	Fairness    *FairnessReport  `json:"fairnessReport"`
	Safety      *SafetyReport    `json:"patternSafetyReport"`
	Validation  *ValidatorReport `json:"validatorReport"`
	Metadata    RunMetadata      `json:"runMetadata"`
	CreatedAt   time.Time        `json:"createdAt"`
	Version     int32            `json:"-"`
}
