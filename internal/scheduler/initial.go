package scheduler

import (
	"math/rand"
	"sort"
)

// buildInitialRoster 按时间顺序为每个槽位做贪心构造：
// 候选人是该槽位可承担且当天空闲的员工，优先选择累计工时少的人，
// 工时相同时偏好分高者在前。先洗牌再稳定排序，保证同分者的先后由随机数决定，
// 不同的重启能得到不同的起点。候选人不足时允许缺口留到搜索阶段处理。
func buildInitialRoster(m *ConstraintModel, rng *rand.Rand) *roster {
	r := newRoster(m)

	candidates := make([]int, 0, len(m.Employees))
	for slotIdx := range m.Slots {
		slot := &m.Slots[slotIdx]

		candidates = candidates[:0]
		for _, e := range m.eligible[slotIdx] {
			if r.cellAt(e, slot.Day) == codeOff {
				candidates = append(candidates, e)
			}
		}

		rng.Shuffle(len(candidates), func(i, j int) {
			candidates[i], candidates[j] = candidates[j], candidates[i]
		})
		sort.SliceStable(candidates, func(i, j int) bool {
			ei, ej := candidates[i], candidates[j]
			if r.hours[ei] != r.hours[ej] {
				return r.hours[ei] < r.hours[ej]
			}
			if m.Options.RespectPreferences {
				pi := m.Employees[ei].PreferenceFor(slot.DomainSlot())
				pj := m.Employees[ej].PreferenceFor(slot.DomainSlot())
				if pi != pj {
					return pi > pj
				}
			}
			return false
		})

		need := int(slot.Required)
		for _, e := range candidates {
			if need == 0 {
				break
			}
			if r.assign(e, slotIdx) {
				need--
			}
		}
	}

	return r
}
