package scheduler

import (
	"math/rand"
)

// moveKind 枚举搜索可用的邻域移动
type moveKind int8

const (
	moveAssign   moveKind = iota // 向槽位补充一名员工
	moveUnassign                 // 移除一条已有安排
	moveReassign                 // 同一槽位换成另一名员工
	moveSwap                     // 交换两名员工的两条安排
	movePairSync                 // 把导师拉到学员所在的槽位
)

// move 描述一次可应用也可撤销的排班变更。
// 所有移动只会把可承担槽位的员工排进去，并且保持一人一天一个班次的不变量。
type move struct {
	kind  moveKind
	empA  int
	empB  int
	slotA int
	slotB int // 仅部分移动使用，-1 表示未使用
}

// apply 把移动应用到矩阵上，前置条件不满足时返回 false 且不产生任何修改
func (mv *move) apply(r *roster) bool {
	switch mv.kind {
	case moveAssign:
		return r.assign(mv.empA, mv.slotA)
	case moveUnassign:
		return r.unassign(mv.empA, mv.slotA)
	case moveReassign:
		slot := &r.model.Slots[mv.slotA]
		if !r.model.canServe[mv.slotA][mv.empB] {
			return false
		}
		if r.cellAt(mv.empB, slot.Day) != codeOff {
			return false
		}
		if !r.unassign(mv.empA, mv.slotA) {
			return false
		}
		if !r.assign(mv.empB, mv.slotA) {
			// 理论上不可能走到这里，恢复原状以防万一
			r.assign(mv.empA, mv.slotA)
			return false
		}
		return true
	case moveSwap:
		slotA := &r.model.Slots[mv.slotA]
		slotB := &r.model.Slots[mv.slotB]
		if !r.model.canServe[mv.slotA][mv.empB] || !r.model.canServe[mv.slotB][mv.empA] {
			return false
		}
		if r.cellAt(mv.empA, slotA.Day) != typeCode(slotA.Type) {
			return false
		}
		if r.cellAt(mv.empB, slotB.Day) != typeCode(slotB.Type) {
			return false
		}
		// 跨天交换时双方在对方的日期上必须没有别的班次
		if slotA.Day != slotB.Day {
			if r.cellAt(mv.empA, slotB.Day) != codeOff || r.cellAt(mv.empB, slotA.Day) != codeOff {
				return false
			}
		}
		r.unassign(mv.empA, mv.slotA)
		r.unassign(mv.empB, mv.slotB)
		r.assign(mv.empA, mv.slotB)
		r.assign(mv.empB, mv.slotA)
		return true
	case movePairSync:
		if mv.slotB >= 0 {
			if r.cellAt(mv.empA, r.model.Slots[mv.slotB].Day) != typeCode(r.model.Slots[mv.slotB].Type) {
				return false
			}
		}
		if !r.model.canServe[mv.slotA][mv.empA] {
			return false
		}
		if mv.slotB >= 0 {
			r.unassign(mv.empA, mv.slotB)
		}
		if !r.assign(mv.empA, mv.slotA) {
			if mv.slotB >= 0 {
				r.assign(mv.empA, mv.slotB)
			}
			return false
		}
		return true
	}
	return false
}

// undo 撤销一次已成功应用的移动
func (mv *move) undo(r *roster) {
	switch mv.kind {
	case moveAssign:
		r.unassign(mv.empA, mv.slotA)
	case moveUnassign:
		r.assign(mv.empA, mv.slotA)
	case moveReassign:
		r.unassign(mv.empB, mv.slotA)
		r.assign(mv.empA, mv.slotA)
	case moveSwap:
		r.unassign(mv.empA, mv.slotB)
		r.unassign(mv.empB, mv.slotA)
		r.assign(mv.empA, mv.slotA)
		r.assign(mv.empB, mv.slotB)
	case movePairSync:
		r.unassign(mv.empA, mv.slotA)
		if mv.slotB >= 0 {
			r.assign(mv.empA, mv.slotB)
		}
	}
}

// touched 返回移动影响到的（员工，槽位）属性，禁忌搜索用它来避免立刻回头
func (mv *move) touched(nSlots int) []int {
	attrs := make([]int, 0, 4)
	add := func(emp, slot int) {
		if slot >= 0 {
			attrs = append(attrs, emp*nSlots+slot)
		}
	}
	switch mv.kind {
	case moveAssign, moveUnassign:
		add(mv.empA, mv.slotA)
	case moveReassign:
		add(mv.empA, mv.slotA)
		add(mv.empB, mv.slotA)
	case moveSwap:
		add(mv.empA, mv.slotA)
		add(mv.empA, mv.slotB)
		add(mv.empB, mv.slotA)
		add(mv.empB, mv.slotB)
	case movePairSync:
		add(mv.empA, mv.slotA)
		add(mv.empA, mv.slotB)
	}
	return attrs
}

// randomMove 按权重随机生成一个可行的邻域移动。
// 首选的移动类型构造失败时会依次尝试其余类型，全部失败才返回 false。
func randomMove(r *roster, rng *rand.Rand) (move, bool) {
	kinds := pickKindOrder(r, rng)
	for _, kind := range kinds {
		var mv move
		var ok bool
		switch kind {
		case moveAssign:
			mv, ok = buildAssign(r, rng)
		case moveUnassign:
			mv, ok = buildUnassign(r, rng)
		case moveReassign:
			mv, ok = buildReassign(r, rng)
		case moveSwap:
			mv, ok = buildSwap(r, rng)
		case movePairSync:
			mv, ok = buildPairSync(r, rng)
		}
		if ok {
			return mv, true
		}
	}
	return move{}, false
}

// pickKindOrder 按权重选出首选类型，其余类型作为兜底排在后面
func pickKindOrder(r *roster, rng *rand.Rand) []moveKind {
	type weighted struct {
		kind   moveKind
		weight int
	}
	candidates := []weighted{
		{moveReassign, 40},
		{moveSwap, 30},
		{moveAssign, 20},
		{moveUnassign, 10},
	}
	if len(r.model.pairs) > 0 {
		candidates = append(candidates, weighted{movePairSync, 15})
	}

	total := 0
	for _, c := range candidates {
		total += c.weight
	}
	pick := rng.Intn(total)
	chosen := 0
	for i, c := range candidates {
		if pick < c.weight {
			chosen = i
			break
		}
		pick -= c.weight
	}

	order := make([]moveKind, 0, len(candidates))
	order = append(order, candidates[chosen].kind)
	for i, c := range candidates {
		if i != chosen {
			order = append(order, c.kind)
		}
	}
	return order
}

func buildAssign(r *roster, rng *rand.Rand) (move, bool) {
	m := r.model

	understaffed := make([]int, 0, 8)
	for i := range m.Slots {
		if r.counts[i] < m.Slots[i].Required {
			understaffed = append(understaffed, i)
		}
	}
	if len(understaffed) == 0 {
		return move{}, false
	}

	slotIdx := understaffed[rng.Intn(len(understaffed))]
	slot := &m.Slots[slotIdx]
	eligible := m.eligible[slotIdx]
	if len(eligible) == 0 {
		return move{}, false
	}

	start := rng.Intn(len(eligible))
	for i := 0; i < len(eligible); i++ {
		e := eligible[(start+i)%len(eligible)]
		if r.cellAt(e, slot.Day) == codeOff {
			return move{kind: moveAssign, empA: e, slotA: slotIdx, slotB: -1}, true
		}
	}
	return move{}, false
}

// assignedOf 从随机位置开始找一名承担该槽位的员工，找不到返回 -1
func assignedOf(r *roster, slotIdx int, rng *rand.Rand) int {
	m := r.model
	slot := &m.Slots[slotIdx]
	eligible := m.eligible[slotIdx]
	if len(eligible) == 0 {
		return -1
	}

	start := rng.Intn(len(eligible))
	for i := 0; i < len(eligible); i++ {
		e := eligible[(start+i)%len(eligible)]
		if r.cellAt(e, slot.Day) == typeCode(slot.Type) {
			return e
		}
	}
	return -1
}

func buildUnassign(r *roster, rng *rand.Rand) (move, bool) {
	m := r.model
	start := rng.Intn(len(m.Slots))
	for i := 0; i < len(m.Slots); i++ {
		slotIdx := (start + i) % len(m.Slots)
		if r.counts[slotIdx] == 0 {
			continue
		}
		if e := assignedOf(r, slotIdx, rng); e >= 0 {
			return move{kind: moveUnassign, empA: e, slotA: slotIdx, slotB: -1}, true
		}
	}
	return move{}, false
}

func buildReassign(r *roster, rng *rand.Rand) (move, bool) {
	m := r.model
	start := rng.Intn(len(m.Slots))
	for i := 0; i < len(m.Slots); i++ {
		slotIdx := (start + i) % len(m.Slots)
		if r.counts[slotIdx] == 0 {
			continue
		}
		empA := assignedOf(r, slotIdx, rng)
		if empA < 0 {
			continue
		}

		slot := &m.Slots[slotIdx]
		eligible := m.eligible[slotIdx]
		offset := rng.Intn(len(eligible))
		for j := 0; j < len(eligible); j++ {
			empB := eligible[(offset+j)%len(eligible)]
			if empB != empA && r.cellAt(empB, slot.Day) == codeOff {
				return move{kind: moveReassign, empA: empA, empB: empB, slotA: slotIdx, slotB: -1}, true
			}
		}
	}
	return move{}, false
}

func buildSwap(r *roster, rng *rand.Rand) (move, bool) {
	m := r.model
	if len(m.Slots) < 2 {
		return move{}, false
	}

	for attempt := 0; attempt < 8; attempt++ {
		slotAIdx := rng.Intn(len(m.Slots))
		slotBIdx := rng.Intn(len(m.Slots))
		if slotAIdx == slotBIdx {
			continue
		}
		empA := assignedOf(r, slotAIdx, rng)
		empB := assignedOf(r, slotBIdx, rng)
		if empA < 0 || empB < 0 || empA == empB {
			continue
		}
		if !m.canServe[slotAIdx][empB] || !m.canServe[slotBIdx][empA] {
			continue
		}
		slotA := &m.Slots[slotAIdx]
		slotB := &m.Slots[slotBIdx]
		if slotA.Day != slotB.Day {
			if r.cellAt(empA, slotB.Day) != codeOff || r.cellAt(empB, slotA.Day) != codeOff {
				continue
			}
		}
		return move{kind: moveSwap, empA: empA, empB: empB, slotA: slotAIdx, slotB: slotBIdx}, true
	}
	return move{}, false
}

// buildPairSync 找一个学员在值班而导师不在同一班次的日子，把导师排进学员的槽位
func buildPairSync(r *roster, rng *rand.Rand) (move, bool) {
	m := r.model
	if len(m.pairs) == 0 {
		return move{}, false
	}

	pairStart := rng.Intn(len(m.pairs))
	for i := 0; i < len(m.pairs); i++ {
		pair := m.pairs[(pairStart+i)%len(m.pairs)]
		mentor, mentee := pair[0], pair[1]
		menteeRow := r.row(mentee)
		mentorRow := r.row(mentor)

		dayStart := rng.Intn(len(menteeRow))
		for j := 0; j < len(menteeRow); j++ {
			d := (dayStart + j) % len(menteeRow)
			code := menteeRow[d]
			if code == codeOff || mentorRow[d] == code {
				continue
			}
			slot := m.SlotFor(d, codeShiftType(code))
			if slot == nil || !m.canServe[slot.Index][mentor] {
				continue
			}

			conflict := -1
			if mentorRow[d] != codeOff {
				conflictSlot := m.SlotFor(d, codeShiftType(mentorRow[d]))
				if conflictSlot == nil {
					continue
				}
				conflict = conflictSlot.Index
			}
			return move{kind: movePairSync, empA: mentor, slotA: slot.Index, slotB: conflict}, true
		}
	}
	return move{}, false
}
