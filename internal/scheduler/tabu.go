package scheduler

import (
	"context"
	"math/rand"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// tabuSearch 每轮从若干候选移动中选出代价最低的一个并强制执行，
// 刚被改动过的（员工，槽位）组合会进入禁忌表，短期内不允许再动，
// 以此避免搜索在两个解之间来回震荡。
// 例外：能刷新历史最优的移动即使在禁忌表中也会被接受。
type tabuSearch struct{}

const (
	tabuTenure     = 50 // 禁忌保持的迭代数
	tabuCandidates = 16 // 每轮评估的候选移动数
)

func (s *tabuSearch) Name() domain.StrategyName {
	return domain.StrategyTabuSearch
}

func (s *tabuSearch) Search(ctx context.Context, start *roster, budget searchBudget, rng *rand.Rand, observe progressFunc) searchOutcome {
	current := start
	best := current.clone()
	bestCost := current.cost()

	nSlots := len(current.model.Slots)
	tabu := make(map[int]int64)

	tracker := newBudgetTracker(budget, bestCost, observe)
	for {
		ok, reason := tracker.next(ctx, bestCost)
		if !ok {
			return searchOutcome{best: best, bestCost: bestCost, iterations: tracker.iter, reason: reason}
		}

		chosenFound := false
		var chosen move
		var chosenCost float64

		for i := 0; i < tabuCandidates; i++ {
			mv, found := randomMove(current, rng)
			if !found {
				break
			}
			if !mv.apply(current) {
				continue
			}
			cost := current.cost()
			mv.undo(current)

			if s.isTabu(tabu, &mv, nSlots, tracker.iter) && cost >= bestCost {
				continue
			}
			if !chosenFound || cost < chosenCost {
				chosenFound = true
				chosen = mv
				chosenCost = cost
			}
		}
		if !chosenFound {
			continue
		}

		if !chosen.apply(current) {
			continue
		}
		for _, attr := range chosen.touched(nSlots) {
			tabu[attr] = tracker.iter + tabuTenure
		}
		if chosenCost < bestCost {
			bestCost = chosenCost
			best = current.clone()
		}
	}
}

func (s *tabuSearch) isTabu(tabu map[int]int64, mv *move, nSlots int, iter int64) bool {
	for _, attr := range mv.touched(nSlots) {
		if expire, exists := tabu[attr]; exists && expire > iter {
			return true
		}
	}
	return false
}
