package scheduler

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

func TestRosterFromAssignmentsRejectsInconsistencies(t *testing.T) {
	m := mustBuildModel(t, testRequest(3, testEmployees(2, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay: 1,
	}))

	tests := []struct {
		name        string
		assignments []domain.Assignment
		message     string
	}{
		{
			name: "unknown employee",
			assignments: []domain.Assignment{
				{EmployeeID: 99, Date: testStart, ShiftType: domain.ShiftDay},
			},
			message: "未知员工",
		},
		{
			name: "date outside range",
			assignments: []domain.Assignment{
				{EmployeeID: 1, Date: testStart.AddDays(10), ShiftType: domain.ShiftDay},
			},
			message: "超出范围",
		},
		{
			name: "unknown shift type",
			assignments: []domain.Assignment{
				{EmployeeID: 1, Date: testStart, ShiftType: "midnight"},
			},
			message: "未知的班次类型",
		},
		{
			name: "two shifts on the same day",
			assignments: []domain.Assignment{
				{EmployeeID: 1, Date: testStart, ShiftType: domain.ShiftDay},
				{EmployeeID: 1, Date: testStart, ShiftType: domain.ShiftEvening},
			},
			message: "多个班次",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := rosterFromAssignments(m, tt.assignments)
			require.Nil(t, r)
			require.ErrorIs(t, err, ErrInternalInconsistency)
			require.ErrorContains(t, err, tt.message)
		})
	}
}

func TestRosterAssignUnassign(t *testing.T) {
	noNight := testEmployee(3, domain.LevelSenior)
	noNight.NoNightShifts = true
	employees := []*domain.Employee{
		testEmployee(1, domain.LevelIntermediate),
		testEmployee(2, domain.LevelIntermediate),
		noNight,
	}
	m := mustBuildModel(t, testRequest(2, employees, map[domain.ShiftType]int32{
		domain.ShiftDay:   1,
		domain.ShiftNight: 1,
	}))
	r := newRoster(m)

	require.Equal(t, int32(4), r.shortfall)

	daySlot := m.SlotFor(0, domain.ShiftDay)
	nightSlot := m.SlotFor(0, domain.ShiftNight)

	require.True(t, r.assign(0, daySlot.Index))
	require.Equal(t, 8.0, r.hours[0])
	require.Equal(t, int32(1), r.counts[daySlot.Index])
	require.Equal(t, int32(3), r.shortfall)

	// 同一天已有班次的员工不能再被安排
	require.False(t, r.assign(0, nightSlot.Index))
	// 不上夜班的员工不能被安排到夜班槽位
	require.False(t, r.assign(2, nightSlot.Index))

	// 员工并未承担该槽位时移除失败
	require.False(t, r.unassign(1, daySlot.Index))

	require.True(t, r.unassign(0, daySlot.Index))
	require.Equal(t, 0.0, r.hours[0])
	require.Equal(t, int32(4), r.shortfall)
}

// 罚分缓存按员工增量维护，任意一串移动之后矩阵的代价
// 必须与用导出排班重建出来的矩阵完全一致
func TestRosterIncrementalCostMatchesRebuild(t *testing.T) {
	mentor := testEmployee(1, domain.LevelSenior)
	mentee := testEmployee(2, domain.LevelTrainee)
	mentee.MentorID = int64Ptr(1)
	employees := []*domain.Employee{mentor, mentee}
	for i := int64(3); i <= 6; i++ {
		employees = append(employees, testEmployee(i, domain.LevelIntermediate))
	}

	req := testRequest(7, employees, map[domain.ShiftType]int32{
		domain.ShiftDay:     2,
		domain.ShiftEvening: 1,
		domain.ShiftNight:   1,
	})
	req.Options = domain.GenerationOptions{
		RespectPreferences:        true,
		MinimizeConsecutiveNights: true,
		BalanceWorkload:           true,
		AvoidDangerousPatterns:    true,
		EnforceMentorshipPairing:  true,
		MentorshipPriority:        8,
	}
	m := mustBuildModel(t, req)

	rng := rand.New(rand.NewSource(7))
	r := buildInitialRoster(m, rng)

	applied := 0
	for i := 0; i < 300; i++ {
		mv, found := randomMove(r, rng)
		if !found {
			continue
		}
		if !mv.apply(r) {
			continue
		}
		applied++
		// 撤销路径也要保持缓存一致
		if applied%3 == 0 {
			mv.undo(r)
		}
	}
	require.Greater(t, applied, 0)

	assignments := r.assignments()
	assertOneShiftPerDay(t, assignments)

	rebuilt, err := rosterFromAssignments(m, assignments)
	require.NoError(t, err)
	require.InDelta(t, rebuilt.cost(), r.cost(), 1e-6)
	require.Equal(t, rebuilt.shortfall, r.shortfall)

	totalHours := 0.0
	for _, h := range r.hours {
		totalHours += h
	}
	require.InDelta(t, float64(len(assignments))*8, totalHours, 1e-9)

	require.NoError(t, verifyConsistency(m, r))
}

func TestVerifyConsistencyDetectsCorruption(t *testing.T) {
	m := mustBuildModel(t, testRequest(3, testEmployees(3, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay: 1,
	}))
	r := buildInitialRoster(m, rand.New(rand.NewSource(1)))

	require.NoError(t, verifyConsistency(m, r))

	r.hardSum += 5
	err := verifyConsistency(m, r)
	require.ErrorIs(t, err, ErrInternalInconsistency)
	require.ErrorContains(t, err, "不一致")
}

func TestInitialRosterRespectsStructure(t *testing.T) {
	m := mustBuildModel(t, testRequest(7, testEmployees(8, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay:     2,
		domain.ShiftEvening: 2,
		domain.ShiftNight:   1,
	}))
	r := buildInitialRoster(m, rand.New(rand.NewSource(42)))

	assertOneShiftPerDay(t, r.assignments())

	// 贪心构造最多把槽位填到需求人数，人手足够时不存在缺口
	for i := range m.Slots {
		require.LessOrEqual(t, r.counts[i], m.Slots[i].Required)
	}
	require.Equal(t, int32(0), r.shortfall)
}

func TestRosterAssignmentsOrderedAndStable(t *testing.T) {
	m := mustBuildModel(t, testRequest(5, testEmployees(6, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay:   2,
		domain.ShiftNight: 1,
	}))
	r := buildInitialRoster(m, rand.New(rand.NewSource(3)))

	first := r.assignments()
	second := r.assignments()
	require.Equal(t, first, second)

	for i := 1; i < len(first); i++ {
		prev, cur := first[i-1], first[i]
		if prev.Date.Equal(cur.Date) {
			if typeCode(prev.ShiftType) == typeCode(cur.ShiftType) {
				require.Less(t, prev.EmployeeID, cur.EmployeeID)
			} else {
				require.Less(t, typeCode(prev.ShiftType), typeCode(cur.ShiftType))
			}
		} else {
			require.True(t, prev.Date.Before(cur.Date))
		}
	}
}
