package scheduler

import (
	"sort"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// giniCoefficient 计算基尼系数，0 表示完全平均，越接近 1 越不平均。
// 使用排序后的等价公式 G = Σ(2i-n-1)·x_i / (n·Σx)，复杂度 O(n log n)，
// 与逐对求差的定义式 G = ΣΣ|x_i-x_j| / (2n·Σx) 结果一致。
// 注意会对传入的切片原地排序，调用方需要自行拷贝。
func giniCoefficient(xs []float64) float64 {
	n := len(xs)
	if n == 0 {
		return 0
	}
	sort.Float64s(xs)

	sum := 0.0
	weighted := 0.0
	for i, x := range xs {
		sum += x
		weighted += float64(2*(i+1)-n-1) * x
	}
	// 所有人的工时都为 0 时视为完全平均
	if sum == 0 {
		return 0
	}
	return weighted / (float64(n) * sum)
}

// fairnessScore 把基尼系数与目标的差距映射到 0-100 的分数，
// 达到目标即满分，差距越大分数越低且单调递减
func fairnessScore(gini, target float64) float64 {
	gap := gini - target
	if gap <= 0 {
		return 100
	}
	return clampScore(100 * (1 - gap/(1-target)))
}

// FairnessEvaluator 基于工时分布计算公平性指标
type FairnessEvaluator struct {
	model *ConstraintModel
}

func NewFairnessEvaluator(m *ConstraintModel) *FairnessEvaluator {
	return &FairnessEvaluator{model: m}
}

// Evaluate 是纯函数：同样的排班集合永远得到同样的报告
func (f *FairnessEvaluator) Evaluate(assignments []domain.Assignment) (*domain.FairnessReport, error) {
	r, err := rosterFromAssignments(f.model, assignments)
	if err != nil {
		return nil, err
	}
	return f.evaluateRoster(r), nil
}

func (f *FairnessEvaluator) evaluateRoster(r *roster) *domain.FairnessReport {
	m := f.model
	report := &domain.FairnessReport{
		EmployeeStats: make([]domain.EmployeeWorkloadStat, 0, len(m.Employees)),
		TeamFairness:  make([]domain.TeamFairness, 0, len(m.teamNames)),
	}

	teamHours := make(map[int64][]float64)
	balanceTotal := 0.0
	balanceCount := 0

	for e, emp := range m.Employees {
		stat := domain.EmployeeWorkloadStat{
			EmployeeID: emp.ID,
			Name:       emp.Name,
			TotalHours: r.hours[e],
		}
		for d, code := range r.row(e) {
			switch code {
			case codeDay:
				stat.DayCount++
			case codeEvening:
				stat.EveningCount++
			case codeNight:
				stat.NightCount++
			}
			if code != codeOff && m.Dates[d].IsWeekend() {
				stat.WeekendCount++
			}
		}
		report.EmployeeStats = append(report.EmployeeStats, stat)

		teamHours[emp.TeamID] = append(teamHours[emp.TeamID], r.hours[e])

		// 班次分布均衡度：三种班次的数量越接近越高
		total := stat.DayCount + stat.EveningCount + stat.NightCount
		if total > 0 {
			maxCnt := max(stat.DayCount, max(stat.EveningCount, stat.NightCount))
			minCnt := min(stat.DayCount, min(stat.EveningCount, stat.NightCount))
			balanceTotal += 1 - float64(maxCnt-minCnt)/float64(total)
			balanceCount++
		}
	}

	hours := append([]float64(nil), r.hours...)
	report.OverallGini = giniCoefficient(hours)
	report.FairnessScore = fairnessScore(report.OverallGini, m.Settings.FairnessTarget)
	if balanceCount > 0 {
		report.DistributionBalance = 100 * balanceTotal / float64(balanceCount)
	}

	teamIDs := make([]int64, 0, len(teamHours))
	for id := range teamHours {
		teamIDs = append(teamIDs, id)
	}
	sort.Slice(teamIDs, func(i, j int) bool { return teamIDs[i] < teamIDs[j] })
	for _, id := range teamIDs {
		report.TeamFairness = append(report.TeamFairness, domain.TeamFairness{
			TeamID:   id,
			TeamName: m.teamNames[id],
			Gini:     giniCoefficient(teamHours[id]),
		})
	}

	return report
}
