package scheduler

import (
	"fmt"
	"sort"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// roster 是搜索过程中被修改的排班矩阵。
// cells 中每个员工每天只有一个格子，结构上保证了“一人一天最多一个班次”的不变量。
// 各项罚分缓存按员工维护，移动只会影响少数员工，刷新这些员工即可得到新的代价。
type roster struct {
	model  *ConstraintModel
	cells  []int8    // 员工下标 × 天数 -> 班次编码，codeOff 表示休息
	counts []int32   // 槽位下标 -> 已分配人数
	hours  []float64 // 员工下标 -> 总工时

	hardPen   []float64 // 员工维度的硬约束违反量（人数缺口除外）
	safetyPen []float64 // 危险模式罚分
	prefPen   []float64 // 偏好罚分
	nightsPen []float64 // 连续夜班软约束罚分
	pairPen   []float64 // 带教对的分离天数

	shortfall int32 // 所有槽位的人数缺口之和
	hardSum   float64
	safetySum float64
	prefSum   float64
	nightsSum float64
	pairSum   float64

	scratch []float64 // 计算基尼系数时的排序缓冲
}

func newRoster(m *ConstraintModel) *roster {
	nEmp := len(m.Employees)
	nDays := len(m.Dates)

	r := &roster{
		model:     m,
		cells:     make([]int8, nEmp*nDays),
		counts:    make([]int32, len(m.Slots)),
		hours:     make([]float64, nEmp),
		hardPen:   make([]float64, nEmp),
		safetyPen: make([]float64, nEmp),
		prefPen:   make([]float64, nEmp),
		nightsPen: make([]float64, nEmp),
		pairPen:   make([]float64, len(m.pairs)),
	}
	for _, slot := range m.Slots {
		r.shortfall += slot.Required
	}
	return r
}

// rosterFromAssignments 从外部传入的排班集合重建矩阵。
// 引用了未知员工、日期超出范围或同一员工同一天出现两条记录时，
// 说明调用方的数据已经不一致，返回 ErrInternalInconsistency。
func rosterFromAssignments(m *ConstraintModel, assignments []domain.Assignment) (*roster, error) {
	r := newRoster(m)

	for _, a := range assignments {
		e, ok := m.empIndex[a.EmployeeID]
		if !ok {
			return nil, fmt.Errorf("%w: 排班引用了未知员工 %d", ErrInternalInconsistency, a.EmployeeID)
		}
		day := m.dayOf(a.Date)
		if day < 0 {
			return nil, fmt.Errorf("%w: 排班日期 %s 超出范围", ErrInternalInconsistency, a.Date)
		}
		code := typeCode(a.ShiftType)
		if code == codeOff {
			return nil, fmt.Errorf("%w: 未知的班次类型 %q", ErrInternalInconsistency, a.ShiftType)
		}
		if r.cellAt(e, day) != codeOff {
			return nil, fmt.Errorf("%w: 员工 %d 在 %s 被安排了多个班次", ErrInternalInconsistency, a.EmployeeID, a.Date)
		}
		r.place(e, day, code)
	}

	for e := range m.Employees {
		r.refreshEmployee(e)
	}
	for p := range m.pairs {
		r.refreshPair(p)
	}
	return r, nil
}

func (r *roster) clone() *roster {
	c := &roster{
		model:     r.model,
		cells:     append([]int8(nil), r.cells...),
		counts:    append([]int32(nil), r.counts...),
		hours:     append([]float64(nil), r.hours...),
		hardPen:   append([]float64(nil), r.hardPen...),
		safetyPen: append([]float64(nil), r.safetyPen...),
		prefPen:   append([]float64(nil), r.prefPen...),
		nightsPen: append([]float64(nil), r.nightsPen...),
		pairPen:   append([]float64(nil), r.pairPen...),
		shortfall: r.shortfall,
		hardSum:   r.hardSum,
		safetySum: r.safetySum,
		prefSum:   r.prefSum,
		nightsSum: r.nightsSum,
		pairSum:   r.pairSum,
	}
	return c
}

func (r *roster) days() int {
	return len(r.model.Dates)
}

func (r *roster) cellAt(e, day int) int8 {
	return r.cells[e*r.days()+day]
}

// place 只更新矩阵格子和计数，不刷新罚分缓存，调用方负责随后刷新
func (r *roster) place(e, day int, code int8) {
	r.cells[e*r.days()+day] = code
	r.hours[e] += codeShiftType(code).Hours()

	if slot := r.model.SlotFor(day, codeShiftType(code)); slot != nil {
		if r.counts[slot.Index] < slot.Required {
			r.shortfall--
		}
		r.counts[slot.Index]++
	}
}

func (r *roster) remove(e, day int) {
	code := r.cellAt(e, day)
	if code == codeOff {
		return
	}
	r.cells[e*r.days()+day] = codeOff
	r.hours[e] -= codeShiftType(code).Hours()

	if slot := r.model.SlotFor(day, codeShiftType(code)); slot != nil {
		r.counts[slot.Index]--
		if r.counts[slot.Index] < slot.Required {
			r.shortfall++
		}
	}
}

// assign 将员工安排到槽位，员工当天已有班次或不可承担该槽位时返回 false
func (r *roster) assign(e int, slotIdx int) bool {
	slot := &r.model.Slots[slotIdx]
	if !r.model.canServe[slotIdx][e] {
		return false
	}
	if r.cellAt(e, slot.Day) != codeOff {
		return false
	}

	r.place(e, slot.Day, typeCode(slot.Type))
	r.refreshEmployee(e)
	r.refreshPairsOf(e)
	return true
}

// unassign 将员工从槽位上移除，员工当天并未承担该槽位时返回 false
func (r *roster) unassign(e int, slotIdx int) bool {
	slot := &r.model.Slots[slotIdx]
	if r.cellAt(e, slot.Day) != typeCode(slot.Type) {
		return false
	}

	r.remove(e, slot.Day)
	r.refreshEmployee(e)
	r.refreshPairsOf(e)
	return true
}

// refreshEmployee 重新扫描员工的整行，更新该员工的各项罚分缓存
func (r *roster) refreshEmployee(e int) {
	row := r.row(e)
	emp := r.model.Employees[e]

	safety := 0.0
	criticals := 0
	forEachPattern(r.model, row, emp, func(hit patternHit) {
		safety += hit.penalty
		if hit.severity == domain.SeverityCritical {
			criticals++
		}
	})

	hard := r.scanLegalLimits(row, emp)
	if r.model.Options.AvoidDangerousPatterns {
		// 危险级别的模式在启用规避时按硬约束计入代价
		hard += float64(criticals)
	}

	pref := 0.0
	nights := 0.0
	if r.model.Weights.Preference > 0 || r.model.Weights.ConsecutiveNights > 0 {
		pref, nights = r.scanSoft(row, emp)
	}

	r.hardSum += hard - r.hardPen[e]
	r.safetySum += safety - r.safetyPen[e]
	r.prefSum += pref - r.prefPen[e]
	r.nightsSum += nights - r.nightsPen[e]
	r.hardPen[e] = hard
	r.safetyPen[e] = safety
	r.prefPen[e] = pref
	r.nightsPen[e] = nights
}

func (r *roster) row(e int) []int8 {
	return r.cells[e*r.days() : (e+1)*r.days()]
}

// scanLegalLimits 计算某位员工违反法定限制的总量：
// 休息不足按缺少的小时数、连续夜班按超出的天数、每周工时按超出的小时数累计
func (r *roster) scanLegalLimits(row []int8, emp *domain.Employee) float64 {
	m := r.model
	total := 0.0

	prevDay := -1
	var prevCode int8
	nightRun := 0
	weekHours := make(map[int]float64, 6)

	for d, code := range row {
		if code == codeNight {
			nightRun++
		} else {
			if excess := nightRun - int(m.Limits.MaxConsecutiveNights); excess > 0 {
				total += float64(excess)
			}
			nightRun = 0
		}

		if code == codeOff {
			continue
		}

		if prevDay >= 0 {
			gap := restGapHours(prevDay, prevCode, d, code)
			if gap < m.Limits.MinRestHours {
				total += m.Limits.MinRestHours - gap
			}
		}
		prevDay = d
		prevCode = code

		weekHours[weekKey(m.Dates[d])] += codeShiftType(code).Hours()
	}
	if excess := nightRun - int(m.Limits.MaxConsecutiveNights); excess > 0 {
		total += float64(excess)
	}

	weekCap := emp.WeeklyHoursCap(m.Limits.MaxWeeklyHours)
	for _, h := range weekHours {
		if h > weekCap {
			total += h - weekCap
		}
	}

	return total
}

// scanSoft 计算偏好罚分与连续夜班软约束罚分
func (r *roster) scanSoft(row []int8, emp *domain.Employee) (pref float64, nights float64) {
	nightRun := 0
	for d, code := range row {
		if code == codeNight {
			nightRun++
		} else {
			if nightRun > 1 {
				nights += float64(nightRun - 1)
			}
			nightRun = 0
		}

		if code == codeOff {
			continue
		}

		slot := domain.ShiftSlot{Date: r.model.Dates[d], Type: codeShiftType(code)}
		pref += float64(20-emp.PreferenceFor(slot)) / 20
	}
	if nightRun > 1 {
		nights += float64(nightRun - 1)
	}
	return pref, nights
}

func (r *roster) refreshPairsOf(e int) {
	for _, p := range r.model.pairsOfEmp[e] {
		r.refreshPair(p)
	}
}

// refreshPair 统计学员工作而导师不在同一班次的天数
func (r *roster) refreshPair(p int) {
	pair := r.model.pairs[p]
	mentorRow := r.row(pair[0])
	menteeRow := r.row(pair[1])

	separated := 0.0
	for d, code := range menteeRow {
		if code == codeOff {
			continue
		}
		if mentorRow[d] != code {
			separated++
		}
	}

	r.pairSum += separated - r.pairPen[p]
	r.pairPen[p] = separated
}

// cost 是搜索过程最小化的目标函数：
// cost = 硬约束违反量 × 硬约束权重 + w_fair × 基尼差距 + w_safety × 危险模式罚分
//        + w_pref × 未满足偏好 + 连续夜班与带教分离的加权罚分
func (r *roster) cost() float64 {
	m := r.model

	c := m.HardPenalty * (float64(r.shortfall) + r.hardSum)
	c += m.Weights.Safety * r.safetySum
	c += m.Weights.Preference * r.prefSum
	c += m.Weights.ConsecutiveNights * r.nightsSum
	c += m.Weights.Mentorship * r.pairSum
	if m.Weights.Fairness > 0 {
		c += m.Weights.Fairness * r.fairnessGap()
	}
	return c
}

// fairnessGap 返回当前基尼系数超出目标的部分
func (r *roster) fairnessGap() float64 {
	gap := r.gini() - r.model.Settings.FairnessTarget
	if gap < 0 {
		return 0
	}
	return gap
}

func (r *roster) gini() float64 {
	if r.scratch == nil {
		r.scratch = make([]float64, len(r.hours))
	}
	copy(r.scratch, r.hours)
	return giniCoefficient(r.scratch)
}

// assignments 导出当前矩阵为排班集合，按日期、班次、员工排序保证输出稳定
func (r *roster) assignments() []domain.Assignment {
	result := make([]domain.Assignment, 0, len(r.model.Slots))

	for e := range r.model.Employees {
		row := r.row(e)
		for d, code := range row {
			if code == codeOff {
				continue
			}
			result = append(result, domain.Assignment{
				EmployeeID: r.model.Employees[e].ID,
				Date:       r.model.Dates[d],
				ShiftType:  codeShiftType(code),
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if !result[i].Date.Equal(result[j].Date) {
			return result[i].Date.Before(result[j].Date)
		}
		ci, cj := typeCode(result[i].ShiftType), typeCode(result[j].ShiftType)
		if ci != cj {
			return ci < cj
		}
		return result[i].EmployeeID < result[j].EmployeeID
	})
	return result
}
