package scheduler

import (
	"context"
	"math/rand"
	"time"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// progressFunc 用于在搜索过程中上报迭代数和当前最优代价
type progressFunc func(iterations int64, bestCost float64)

// searchBudget 描述一次搜索的预算，三个停止条件先到先停：
// 迭代数达到上限、观察窗口内的改进低于收敛阈值、到达时间预算
type searchBudget struct {
	maxIterations int64
	convergence   float64
	stallWindow   int64
	deadline      time.Time // 零值表示没有时间预算
	progressEvery int64
}

type stopReason int8

const (
	stopBudget stopReason = iota
	stopConverged
	stopDeadline
	stopCancelled
)

// searchOutcome 是一次搜索的结果，best 始终是历史最优解的独立拷贝
type searchOutcome struct {
	best       *roster
	bestCost   float64
	iterations int64
	reason     stopReason
}

// SearchStrategy 是四种搜索算法的统一约定：
// 它们共享同一个代价函数和邻域生成逻辑，只是接受新解的策略不同。
// start 归调用方传入后由策略独占修改，返回的最优解是独立拷贝。
type SearchStrategy interface {
	Name() domain.StrategyName
	Search(ctx context.Context, start *roster, budget searchBudget, rng *rand.Rand, observe progressFunc) searchOutcome
}

func strategyFor(name domain.StrategyName) SearchStrategy {
	switch name {
	case domain.StrategyHillClimbing:
		return &hillClimbing{}
	case domain.StrategyTabuSearch:
		return &tabuSearch{}
	case domain.StrategyGenetic:
		return &geneticAlgorithm{}
	default:
		return &simulatedAnnealing{}
	}
}

// budgetTracker 负责预算检查，每轮外层迭代调用一次 next。
// 取消信号也在这里检查，保证搜索能在一轮迭代内退出。
type budgetTracker struct {
	budget          searchBudget
	observe         progressFunc
	iter            int64
	windowStartIter int64
	windowStartBest float64
}

func newBudgetTracker(budget searchBudget, initialBest float64, observe progressFunc) *budgetTracker {
	return &budgetTracker{
		budget:          budget,
		observe:         observe,
		windowStartBest: initialBest,
	}
}

// next 返回 false 时搜索应当停止，原因由第二个返回值给出
func (t *budgetTracker) next(ctx context.Context, bestCost float64) (bool, stopReason) {
	if t.iter >= t.budget.maxIterations {
		return false, stopBudget
	}

	select {
	case <-ctx.Done():
		return false, stopCancelled
	default:
	}

	if !t.budget.deadline.IsZero() && time.Now().After(t.budget.deadline) {
		return false, stopDeadline
	}

	if t.budget.stallWindow > 0 && t.iter-t.windowStartIter >= t.budget.stallWindow {
		if t.windowStartBest-bestCost < t.budget.convergence {
			return false, stopConverged
		}
		t.windowStartIter = t.iter
		t.windowStartBest = bestCost
	}

	t.iter++
	if t.observe != nil && t.budget.progressEvery > 0 && t.iter%t.budget.progressEvery == 0 {
		t.observe(t.iter, bestCost)
	}
	return true, 0
}
