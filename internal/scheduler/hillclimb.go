package scheduler

import (
	"context"
	"math/rand"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// hillClimbing 只接受严格变优的移动，速度快但容易陷入局部最优，
// 适合 30 人以下的小规模排班
type hillClimbing struct{}

func (s *hillClimbing) Name() domain.StrategyName {
	return domain.StrategyHillClimbing
}

func (s *hillClimbing) Search(ctx context.Context, start *roster, budget searchBudget, rng *rand.Rand, observe progressFunc) searchOutcome {
	current := start
	currentCost := current.cost()
	best := current.clone()
	bestCost := currentCost

	tracker := newBudgetTracker(budget, bestCost, observe)
	for {
		ok, reason := tracker.next(ctx, bestCost)
		if !ok {
			return searchOutcome{best: best, bestCost: bestCost, iterations: tracker.iter, reason: reason}
		}

		mv, found := randomMove(current, rng)
		if !found {
			continue
		}
		if !mv.apply(current) {
			continue
		}

		newCost := current.cost()
		if newCost < currentCost {
			currentCost = newCost
			if newCost < bestCost {
				bestCost = newCost
				best = current.clone()
			}
			continue
		}
		mv.undo(current)
	}
}
