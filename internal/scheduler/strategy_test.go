package scheduler

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

func TestStrategyFor(t *testing.T) {
	tests := []struct {
		desc string
		name domain.StrategyName
		want domain.StrategyName
	}{
		{"hill climbing", domain.StrategyHillClimbing, domain.StrategyHillClimbing},
		{"simulated annealing", domain.StrategySimulatedAnnealing, domain.StrategySimulatedAnnealing},
		{"tabu search", domain.StrategyTabuSearch, domain.StrategyTabuSearch},
		{"genetic", domain.StrategyGenetic, domain.StrategyGenetic},
		{"empty name falls back to default", "", domain.StrategySimulatedAnnealing},
	}

	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			require.Equal(t, tt.want, strategyFor(tt.name).Name())
		})
	}
}

func TestBudgetTrackerMaxIterations(t *testing.T) {
	tracker := newBudgetTracker(searchBudget{maxIterations: 5}, 100, nil)

	for i := 0; i < 5; i++ {
		ok, _ := tracker.next(context.Background(), 100)
		require.True(t, ok)
	}
	ok, reason := tracker.next(context.Background(), 100)
	require.False(t, ok)
	require.Equal(t, stopBudget, reason)
	require.Equal(t, int64(5), tracker.iter)
}

func TestBudgetTrackerConvergence(t *testing.T) {
	budget := searchBudget{maxIterations: 1000, stallWindow: 10, convergence: 0.5}

	t.Run("stops when improvement stalls", func(t *testing.T) {
		tracker := newBudgetTracker(budget, 100, nil)

		iterations := 0
		for {
			ok, reason := tracker.next(context.Background(), 100)
			if !ok {
				require.Equal(t, stopConverged, reason)
				break
			}
			iterations++
		}
		require.Equal(t, 10, iterations)
	})

	t.Run("keeps going while improving", func(t *testing.T) {
		tracker := newBudgetTracker(budget, 100, nil)

		best := 100.0
		for i := 0; i < 100; i++ {
			ok, _ := tracker.next(context.Background(), best)
			require.True(t, ok)
			// 每轮改进超过收敛阈值，观察窗口不断重置
			best -= 1
		}
	})
}

func TestBudgetTrackerCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tracker := newBudgetTracker(searchBudget{maxIterations: 10}, 100, nil)
	ok, reason := tracker.next(ctx, 100)
	require.False(t, ok)
	require.Equal(t, stopCancelled, reason)
}

func TestBudgetTrackerDeadline(t *testing.T) {
	budget := searchBudget{
		maxIterations: 10,
		deadline:      time.Now().Add(-time.Second),
	}
	tracker := newBudgetTracker(budget, 100, nil)

	ok, reason := tracker.next(context.Background(), 100)
	require.False(t, ok)
	require.Equal(t, stopDeadline, reason)
}

func TestBudgetTrackerObserve(t *testing.T) {
	observed := make([]int64, 0)
	budget := searchBudget{maxIterations: 6, progressEvery: 2}
	tracker := newBudgetTracker(budget, 100, func(iterations int64, bestCost float64) {
		observed = append(observed, iterations)
	})

	for {
		ok, _ := tracker.next(context.Background(), 100)
		if !ok {
			break
		}
	}
	require.Equal(t, []int64{2, 4, 6}, observed)
}

// 四种策略共享同一套契约：返回的最优解不劣于起点、
// 与报告的代价一致，并且保持矩阵的结构不变量
func TestStrategiesSharedContract(t *testing.T) {
	req := testRequest(5, testEmployees(6, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay:   2,
		domain.ShiftNight: 1,
	})
	req.Options = domain.GenerationOptions{
		RespectPreferences:        true,
		MinimizeConsecutiveNights: true,
		BalanceWorkload:           true,
		AvoidDangerousPatterns:    true,
	}
	m := mustBuildModel(t, req)

	budget := searchBudget{maxIterations: 400}

	for _, name := range []domain.StrategyName{
		domain.StrategyHillClimbing,
		domain.StrategySimulatedAnnealing,
		domain.StrategyTabuSearch,
		domain.StrategyGenetic,
	} {
		t.Run(string(name), func(t *testing.T) {
			rng := rand.New(rand.NewSource(11))
			start := buildInitialRoster(m, rng)
			startCost := start.cost()

			outcome := strategyFor(name).Search(context.Background(), start, budget, rng, nil)

			require.Equal(t, stopBudget, outcome.reason)
			require.Equal(t, int64(400), outcome.iterations)
			require.LessOrEqual(t, outcome.bestCost, startCost+1e-9)
			require.InDelta(t, outcome.best.cost(), outcome.bestCost, 1e-6)

			assertOneShiftPerDay(t, outcome.best.assignments())
			require.NoError(t, verifyConsistency(m, outcome.best))
		})
	}
}

func TestStrategiesReturnImmediatelyWhenCancelled(t *testing.T) {
	m := mustBuildModel(t, testRequest(3, testEmployees(4, domain.LevelIntermediate), map[domain.ShiftType]int32{
		domain.ShiftDay: 2,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	for _, name := range []domain.StrategyName{
		domain.StrategySimulatedAnnealing,
		domain.StrategyGenetic,
	} {
		t.Run(string(name), func(t *testing.T) {
			rng := rand.New(rand.NewSource(5))
			start := buildInitialRoster(m, rng)
			startCost := start.cost()

			outcome := strategyFor(name).Search(ctx, start, searchBudget{maxIterations: 1000}, rng, nil)

			require.Equal(t, stopCancelled, outcome.reason)
			require.Equal(t, int64(0), outcome.iterations)
			require.InDelta(t, startCost, outcome.bestCost, 1e-9)
		})
	}
}
