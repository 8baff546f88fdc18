package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// 测试夹具统一从 2026-09-07（周一）开始排班，
// 周一开始的日期范围与 ISO 周对齐，便于推算每周工时和周末位置
var testStart = domain.NewDate(2026, time.September, 7)

func testRange(days int) domain.DateRange {
	return domain.DateRange{StartDate: testStart, EndDate: testStart.AddDays(days - 1)}
}

func testEmployee(id int64, level domain.Level) *domain.Employee {
	return &domain.Employee{
		ID:       id,
		Name:     fmt.Sprintf("员工%d", id),
		Username: fmt.Sprintf("emp%d", id),
		Email:    fmt.Sprintf("emp%d@example.com", id),
		Level:    level,
		TeamID:   1,
		TeamName: "一组",
		IsActive: true,
	}
}

func testEmployees(n int, level domain.Level) []*domain.Employee {
	employees := make([]*domain.Employee, 0, n)
	for i := 1; i <= n; i++ {
		employees = append(employees, testEmployee(int64(i), level))
	}
	return employees
}

// dailyRequirements 为范围内的每一天按班次生成固定人数的需求
func dailyRequirements(dateRange domain.DateRange, counts map[domain.ShiftType]int32) []domain.CoverageRequirement {
	requirements := make([]domain.CoverageRequirement, 0, dateRange.Days()*len(counts))
	for _, date := range dateRange.Dates() {
		for _, shiftType := range domain.AllShiftTypes {
			if count := counts[shiftType]; count > 0 {
				requirements = append(requirements, domain.CoverageRequirement{
					Date:          date,
					ShiftType:     shiftType,
					RequiredCount: count,
				})
			}
		}
	}
	return requirements
}

func testRequest(days int, employees []*domain.Employee, counts map[domain.ShiftType]int32) *Request {
	dateRange := testRange(days)
	return &Request{
		RunID:        uuid.New(),
		Name:         "测试排班",
		DateRange:    dateRange,
		Employees:    employees,
		Requirements: dailyRequirements(dateRange, counts),
	}
}

func mustBuildModel(t *testing.T, req *Request) *ConstraintModel {
	t.Helper()
	m, err := BuildModel(req)
	require.NoError(t, err)
	return m
}

func int64Ptr(v int64) *int64 { return &v }
func int32Ptr(v int32) *int32 { return &v }

// assertOneShiftPerDay 校验同一员工同一天最多只有一条排班
func assertOneShiftPerDay(t *testing.T, assignments []domain.Assignment) {
	t.Helper()
	seen := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		key := fmt.Sprintf("%d_%s", a.EmployeeID, a.Date)
		require.Falsef(t, seen[key], "员工 %d 在 %s 出现了多条排班", a.EmployeeID, a.Date)
		seen[key] = true
	}
}

// countDayToNight 统计早班次日直接接夜班的次数
func countDayToNight(assignments []domain.Assignment) int {
	type cell struct {
		employeeID int64
		date       string
	}
	shifts := make(map[cell]domain.ShiftType, len(assignments))
	for _, a := range assignments {
		shifts[cell{a.EmployeeID, a.Date.String()}] = a.ShiftType
	}

	count := 0
	for _, a := range assignments {
		if a.ShiftType != domain.ShiftDay {
			continue
		}
		next := cell{a.EmployeeID, a.Date.AddDays(1).String()}
		if shifts[next] == domain.ShiftNight {
			count++
		}
	}
	return count
}
