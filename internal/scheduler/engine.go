package scheduler

import (
	"context"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// Engine 驱动一次排班运行走完整个状态机：
// 建模、并行搜索、校验、汇总，最终落在 Completed、Infeasible 或 TimedOut 之一。
// 引擎本身不做任何 IO，进度通过 OnProgress 回调交给调用方处理。
type Engine struct {
	req *Request

	// OnProgress 在状态切换和搜索过程中被回调，保证串行调用。
	// 为 nil 时不上报进度。
	OnProgress func(domain.RunProgress)
	// ProgressEvery 控制搜索过程中每多少轮迭代上报一次进度
	ProgressEvery int64
}

const (
	maxParallelRestarts = 8
	// 不同重启之间的种子间隔，避免相邻 worker 的随机序列重叠
	seedStride = 1000003
)

func NewEngine(req *Request) *Engine {
	return &Engine{
		req:           req,
		ProgressEvery: 200,
	}
}

type workerResult struct {
	worker  int
	outcome searchOutcome
}

type workerTick struct {
	worker     int
	iterations int64
	best       float64
}

// Run 执行一次完整的排班运行。
// 请求不合法时返回 ErrInvalidRequest，内部状态检查失败时返回 ErrInternalInconsistency，
// 其余情况（包括无可行解和超时）都返回带有终态的结果而不是错误。
func (e *Engine) Run(ctx context.Context) (*domain.ScheduleRunResult, error) {
	started := time.Now()
	e.emit(domain.RunStateModeling, 0, 0, started)

	model, err := BuildModel(e.req)
	if err != nil {
		return nil, err
	}

	seed := time.Now().UnixNano()
	if model.Settings.RandomSeed != nil {
		seed = *model.Settings.RandomSeed
	}
	restarts := e.resolveRestarts(model)

	e.emit(domain.RunStateSearching, 0, 0, started)
	outcomes := e.search(ctx, model, seed, restarts, started)

	// 所有重启共享同一份模型和预算，合并时按（代价，worker 序号）取最小，
	// 保证相同种子下的结果与重启完成的先后顺序无关
	winner := outcomes[0]
	var iterations int64
	for _, res := range outcomes {
		iterations += res.outcome.iterations
		if res.outcome.bestCost < winner.outcome.bestCost ||
			(res.outcome.bestCost == winner.outcome.bestCost && res.worker < winner.worker) {
			winner = res
		}
	}
	best := winner.outcome.best
	bestCost := winner.outcome.bestCost

	e.emit(domain.RunStateValidating, bestCost, iterations, started)
	validation := NewScheduleValidator(model).validateRoster(best)

	e.emit(domain.RunStateFinalizing, bestCost, iterations, started)
	if err := verifyConsistency(model, best); err != nil {
		return nil, err
	}
	safety := NewPatternSafetyAnalyzer(model).analyzeRoster(best)
	fairness := NewFairnessEvaluator(model).evaluateRoster(best)

	state := e.terminalState(ctx, outcomes, validation)

	result := &domain.ScheduleRunResult{
		RunID:       model.RunID,
		Assignments: best.assignments(),
		Fairness:    fairness,
		Safety:      safety,
		Validation:  validation,
		Metadata: domain.RunMetadata{
			Strategy:   strategyFor(model.Settings.Strategy).Name(),
			Iterations: iterations,
			ElapsedMS:  time.Since(started).Milliseconds(),
			FinalCost:  bestCost,
			Seed:       seed,
			Restarts:   int32(restarts),
			State:      state,
		},
		CreatedAt: time.Now(),
	}
	if state == domain.RunStateInfeasible {
		result.Metadata.InfeasibleReasons = infeasibleReasons(validation)
	}

	e.emit(state, bestCost, iterations, started)
	return result, nil
}

// resolveRestarts 确定并行重启数，0 表示按 CPU 核数自适应
func (e *Engine) resolveRestarts(m *ConstraintModel) int {
	restarts := int(m.Settings.ParallelRestarts)
	if restarts <= 0 {
		restarts = runtime.NumCPU()
	}
	if restarts > maxParallelRestarts {
		restarts = maxParallelRestarts
	}
	if restarts < 1 {
		restarts = 1
	}
	return restarts
}

// search 并行执行多次独立重启并收集全部结果。
// 关闭优化时只做一次贪心构造，不消耗任何迭代，但状态机仍然经过搜索阶段。
func (e *Engine) search(ctx context.Context, m *ConstraintModel, seed int64, restarts int, started time.Time) []workerResult {
	if !m.Settings.Enabled {
		rng := rand.New(rand.NewSource(seed))
		start := buildInitialRoster(m, rng)
		return []workerResult{{
			worker:  0,
			outcome: searchOutcome{best: start, bestCost: start.cost(), iterations: 0, reason: stopBudget},
		}}
	}

	budget := searchBudget{
		maxIterations: int64(m.Settings.MaxIterations),
		convergence:   m.Settings.ConvergenceThreshold,
		stallWindow:   int64(m.Settings.StallWindow),
		progressEvery: e.ProgressEvery,
	}
	if m.Settings.TimeBudgetMS > 0 {
		budget.deadline = started.Add(time.Duration(m.Settings.TimeBudgetMS) * time.Millisecond)
	}
	strat := strategyFor(m.Settings.Strategy)

	results := make(chan workerResult, restarts)
	var progressCh chan workerTick
	aggregated := make(chan struct{})
	if e.OnProgress != nil {
		progressCh = make(chan workerTick, restarts*2)
		go e.aggregateProgress(progressCh, aggregated, restarts, started)
	} else {
		close(aggregated)
	}

	var wg sync.WaitGroup
	for w := 0; w < restarts; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(seed + int64(w)*seedStride))
			start := buildInitialRoster(m, rng)

			var observe progressFunc
			if progressCh != nil {
				observe = func(iterations int64, best float64) {
					// 上报通道满时直接丢弃本次进度，搜索不能被上报阻塞
					select {
					case progressCh <- workerTick{worker: w, iterations: iterations, best: best}:
					default:
					}
				}
			}

			results <- workerResult{worker: w, outcome: strat.Search(ctx, start, budget, rng, observe)}
		}(w)
	}

	go func() {
		wg.Wait()
		if progressCh != nil {
			close(progressCh)
		}
	}()

	outcomes := make([]workerResult, 0, restarts)
	for i := 0; i < restarts; i++ {
		outcomes = append(outcomes, <-results)
	}
	<-aggregated
	return outcomes
}

// aggregateProgress 汇总各 worker 的进度并对外上报：
// 迭代数取所有 worker 之和，最优代价取所有 worker 的最小值
func (e *Engine) aggregateProgress(ticks <-chan workerTick, done chan<- struct{}, restarts int, started time.Time) {
	defer close(done)

	iters := make([]int64, restarts)
	bests := make([]float64, restarts)
	for i := range bests {
		bests[i] = math.Inf(1)
	}

	for tick := range ticks {
		iters[tick.worker] = tick.iterations
		bests[tick.worker] = tick.best

		var total int64
		best := math.Inf(1)
		for i := 0; i < restarts; i++ {
			total += iters[i]
			if bests[i] < best {
				best = bests[i]
			}
		}
		e.emit(domain.RunStateSearching, best, total, started)
	}
}

// terminalState 决定运行的终态：
// 时间预算先于搜索自然结束耗尽（或外部取消）判为 TimedOut，结果仍然尽力返回；
// 搜索自然结束后按校验结论落在 Completed 或 Infeasible。
func (e *Engine) terminalState(ctx context.Context, outcomes []workerResult, validation *domain.ValidatorReport) domain.RunState {
	timedOut := ctx.Err() != nil
	for _, res := range outcomes {
		if res.outcome.reason == stopDeadline || res.outcome.reason == stopCancelled {
			timedOut = true
		}
	}

	switch {
	case timedOut:
		return domain.RunStateTimedOut
	case validation.IsFeasible:
		return domain.RunStateCompleted
	default:
		return domain.RunStateInfeasible
	}
}

func (e *Engine) emit(state domain.RunState, bestCost float64, iterations int64, started time.Time) {
	if e.OnProgress == nil {
		return
	}
	e.OnProgress(domain.RunProgress{
		RunID:      e.req.RunID,
		State:      state,
		BestCost:   bestCost,
		Iterations: iterations,
		ElapsedMS:  time.Since(started).Milliseconds(),
		UpdatedAt:  time.Now(),
	})
}
