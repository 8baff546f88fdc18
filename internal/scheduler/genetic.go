package scheduler

import (
	"context"
	"math/rand"
	"sort"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// geneticAlgorithm 维护一个排班矩阵的种群，每轮迭代完成一代繁殖：
// 保留精英、按名次选择父本、在随机日期处交叉、以单步移动做变异。
// 适合解空间分散、单点搜索容易陷入局部最优的场景。
type geneticAlgorithm struct{}

const (
	populationSize = 24
	eliteCount     = 2
	crossoverRate  = 0.85
	mutationRate   = 0.3
	initShuffle    = 20 // 初始种群中每个个体施加的扰动移动数
)

func (s *geneticAlgorithm) Name() domain.StrategyName {
	return domain.StrategyGenetic
}

func (s *geneticAlgorithm) Search(ctx context.Context, start *roster, budget searchBudget, rng *rand.Rand, observe progressFunc) searchOutcome {
	// 生成初始种群：第一个个体保留贪心构造的结果，其余个体各自施加若干随机扰动
	pop := make([]*roster, populationSize)
	costs := make([]float64, populationSize)
	pop[0] = start.clone()
	for i := 1; i < populationSize; i++ {
		pop[i] = start.clone()
		for j := 0; j < initShuffle; j++ {
			if mv, found := randomMove(pop[i], rng); found {
				mv.apply(pop[i])
			}
		}
	}
	for i := range pop {
		costs[i] = pop[i].cost()
	}

	bestEver := pop[0].clone()
	bestCost := costs[0]

	tracker := newBudgetTracker(budget, bestCost, observe)
	for {
		ok, reason := tracker.next(ctx, bestCost)
		if !ok {
			return searchOutcome{best: bestEver, bestCost: bestCost, iterations: tracker.iter, reason: reason}
		}

		// 找到本代最佳个体
		genBestIndex := 0
		for i := 1; i < populationSize; i++ {
			if costs[i] < costs[genBestIndex] {
				genBestIndex = i
			}
		}
		if costs[genBestIndex] < bestCost {
			bestCost = costs[genBestIndex]
			// 这里需要深拷贝，防止后续繁殖的过程中矩阵被修改
			bestEver = pop[genBestIndex].clone()
		}

		// 按代价升序排序，保留精英
		order := make([]int, populationSize)
		for i := range order {
			order[i] = i
		}
		sort.Slice(order, func(i, j int) bool {
			return costs[order[i]] < costs[order[j]]
		})

		newPop := make([]*roster, 0, populationSize)
		for i := 0; i < eliteCount; i++ {
			newPop = append(newPop, pop[order[i]])
		}

		// 在排名靠前的一半中选择父本进行交叉和变异
		for len(newPop) < populationSize {
			p1 := pop[order[s.selectByRank(rng)]]
			p2 := pop[order[s.selectByRank(rng)]]

			var child *roster
			if rng.Float64() < crossoverRate {
				cut := 1 + rng.Intn(max(1, start.days()-1))
				child = s.crossover(p1, p2, cut)
			} else {
				child = p1.clone()
			}

			if rng.Float64() < mutationRate {
				if mv, found := randomMove(child, rng); found {
					mv.apply(child)
				}
			}

			newPop = append(newPop, child)
		}

		pop = newPop
		for i := range pop {
			costs[i] = pop[i].cost()
		}
	}
}

// selectByRank 在种群排名前一半中随机选择，名次越靠前被选中的概率越高
func (s *geneticAlgorithm) selectByRank(rng *rand.Rand) int {
	half := populationSize / 2
	a := rng.Intn(half)
	b := rng.Intn(half)
	if a < b {
		return a
	}
	return b
}

// crossover 以日期 cut 为分界拼接两个父本：
// 分界前的列取自 p1，之后的列取自 p2，再整体重建罚分缓存。
// 按天整列拼接保证了子代依然满足一人一天最多一个班次。
func (s *geneticAlgorithm) crossover(p1, p2 *roster, cut int) *roster {
	child := newRoster(p1.model)
	nDays := child.days()

	for e := range child.model.Employees {
		for d := 0; d < nDays; d++ {
			var code int8
			if d < cut {
				code = p1.cellAt(e, d)
			} else {
				code = p2.cellAt(e, d)
			}
			if code != codeOff {
				child.place(e, d, code)
			}
		}
	}

	for e := range child.model.Employees {
		child.refreshEmployee(e)
	}
	for p := range child.model.pairs {
		child.refreshPair(p)
	}
	return child
}
