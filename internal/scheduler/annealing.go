package scheduler

import (
	"context"
	"math"
	"math/rand"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// simulatedAnnealing 以 exp(-Δcost/T) 的概率接受变差的移动来跳出局部最优，
// 是默认也是推荐的通用策略。
// 降温采用每轮迭代 T ← T·0.95 的几何方案，初温与初始代价同量级。
type simulatedAnnealing struct{}

const (
	coolingRate    = 0.95
	minTemperature = 1e-9
)

func (s *simulatedAnnealing) Name() domain.StrategyName {
	return domain.StrategySimulatedAnnealing
}

func (s *simulatedAnnealing) Search(ctx context.Context, start *roster, budget searchBudget, rng *rand.Rand, observe progressFunc) searchOutcome {
	current := start
	currentCost := current.cost()
	best := current.clone()
	bestCost := currentCost

	temperature := 0.1 * currentCost
	if temperature < 1 {
		temperature = 1
	}

	tracker := newBudgetTracker(budget, bestCost, observe)
	for {
		ok, reason := tracker.next(ctx, bestCost)
		if !ok {
			return searchOutcome{best: best, bestCost: bestCost, iterations: tracker.iter, reason: reason}
		}

		mv, found := randomMove(current, rng)
		if found && mv.apply(current) {
			newCost := current.cost()
			delta := newCost - currentCost

			if delta <= 0 || rng.Float64() < math.Exp(-delta/temperature) {
				currentCost = newCost
				if newCost < bestCost {
					bestCost = newCost
					best = current.clone()
				}
			} else {
				mv.undo(current)
			}
		}

		temperature *= coolingRate
		if temperature < minTemperature {
			temperature = minTemperature
		}
	}
}
