package scheduler

import (
	"github.com/google/uuid"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// LegalLimits 是法定工时限制，作为硬约束参与建模
type LegalLimits struct {
	MinRestHours         float64 `json:"minRestHours"`
	MaxConsecutiveNights int32   `json:"maxConsecutiveNights"`
	MaxWeeklyHours       int32   `json:"maxWeeklyHours"`
}

// SoftWeights 是各软约束在代价函数中的权重，未启用的软约束权重为 0
type SoftWeights struct {
	Fairness          float64
	Safety            float64
	Preference        float64
	ConsecutiveNights float64
	Mentorship        float64
}

// Request 是一次排班运行的全部输入
type Request struct {
	RunID        uuid.UUID
	Name         string
	DateRange    domain.DateRange
	TeamIDs      []int64
	Employees    []*domain.Employee
	Requirements []domain.CoverageRequirement
	Limits       LegalLimits
	Options      domain.GenerationOptions
	Settings     domain.OptimizationSettings
}

// Slot 表示某一天的某个班次对应的人力需求
type Slot struct {
	Index    int
	Day      int // 相对日期范围首日的偏移
	Date     domain.Date
	Type     domain.ShiftType
	Required int32
	MinLevel domain.Level
}

func (s *Slot) DomainSlot() domain.ShiftSlot {
	return domain.ShiftSlot{Date: s.Date, Type: s.Type}
}

// ConstraintModel 是建模阶段的产物，搜索过程中只读
type ConstraintModel struct {
	RunID       uuid.UUID
	Name        string
	DateRange   domain.DateRange
	Dates       []domain.Date
	Employees   []*domain.Employee // 参与排班的员工，按 ID 升序
	Slots       []Slot
	Limits      LegalLimits
	Options     domain.GenerationOptions
	Settings    domain.OptimizationSettings
	Weights     SoftWeights
	HardPenalty float64 // 单位硬约束违反量在代价函数中的权重

	empIndex   map[int64]int // 员工 ID -> 稠密下标
	slotAt     [][]int       // [day][shiftCode-1] -> 槽位下标，-1 表示当天没有该班次的需求
	eligible   [][]int       // 槽位下标 -> 可承担该槽位的员工下标
	canServe   [][]bool      // 槽位下标 × 员工下标 -> 是否可承担
	pairs      [][2]int      // 导师带教对（导师下标，学员下标）
	pairsOfEmp [][]int       // 员工下标 -> 涉及该员工的带教对下标，一位导师可以带多名学员
	teamNames  map[int64]string
}

// 班次在矩阵中的编码，0 表示当天休息
const (
	codeOff     int8 = 0
	codeDay     int8 = 1
	codeEvening int8 = 2
	codeNight   int8 = 3
)

func typeCode(t domain.ShiftType) int8 {
	switch t {
	case domain.ShiftDay:
		return codeDay
	case domain.ShiftEvening:
		return codeEvening
	case domain.ShiftNight:
		return codeNight
	default:
		return codeOff
	}
}

func codeShiftType(c int8) domain.ShiftType {
	switch c {
	case codeDay:
		return domain.ShiftDay
	case codeEvening:
		return domain.ShiftEvening
	case codeNight:
		return domain.ShiftNight
	default:
		return ""
	}
}

// EmployeeByID 返回模型中的员工，不存在时返回 nil
func (m *ConstraintModel) EmployeeByID(id int64) *domain.Employee {
	if idx, ok := m.empIndex[id]; ok {
		return m.Employees[idx]
	}
	return nil
}

// SlotFor 返回某天某班次对应的槽位，不存在需求时返回 nil
func (m *ConstraintModel) SlotFor(day int, t domain.ShiftType) *Slot {
	if day < 0 || day >= len(m.Dates) {
		return nil
	}
	idx := m.slotAt[day][typeCode(t)-1]
	if idx < 0 {
		return nil
	}
	return &m.Slots[idx]
}

// dayOf 返回日期在范围内的偏移，范围外返回 -1
func (m *ConstraintModel) dayOf(d domain.Date) int {
	day := domain.DaysBetween(m.DateRange.StartDate, d)
	if day < 0 || day >= len(m.Dates) {
		return -1
	}
	return day
}
