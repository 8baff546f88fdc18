package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/scheduler"
)

// scenario 是模拟器的输入文件格式，员工名单和人力需求都在文件里给出，
// 不需要数据库就可以验证一次排班
type scenario struct {
	Name         string                       `json:"name"`
	StartDate    domain.Date                  `json:"startDate"`
	EndDate      domain.Date                  `json:"endDate"`
	TeamIDs      []int64                      `json:"teamIDs"`
	Employees    []*domain.Employee           `json:"employees"`
	Requirements []domain.CoverageRequirement `json:"requirements"`
	Limits       scheduler.LegalLimits        `json:"limits"`
	Options      domain.GenerationOptions     `json:"generationOptions"`
	Settings     domain.OptimizationSettings  `json:"optimizationSettings"`
}

func main() {
	var scenarioPath string
	var strategy string
	var seed int64

	flag.StringVar(&scenarioPath, "scenario", "./scenario.json", "场景文件路径")
	flag.StringVar(&strategy, "strategy", "", "覆盖场景文件中的搜索策略")
	flag.Int64Var(&seed, "seed", 0, "覆盖场景文件中的随机种子，0 表示不覆盖")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	data, err := os.ReadFile(scenarioPath)
	if err != nil {
		logger.Error("无法读取场景文件", "error", err)
		os.Exit(1)
	}

	var sc scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		logger.Error("无法解析场景文件", "error", err)
		os.Exit(1)
	}

	if strategy != "" {
		sc.Settings.Strategy = domain.StrategyName(strategy)
	}
	if seed != 0 {
		sc.Settings.RandomSeed = &seed
	}

	req := &scheduler.Request{
		RunID:        uuid.New(),
		Name:         sc.Name,
		DateRange:    domain.DateRange{StartDate: sc.StartDate, EndDate: sc.EndDate},
		TeamIDs:      sc.TeamIDs,
		Employees:    sc.Employees,
		Requirements: sc.Requirements,
		Limits:       sc.Limits,
		Options:      sc.Options,
		Settings:     sc.Settings,
	}

	engine := scheduler.NewEngine(req)
	engine.OnProgress = func(progress domain.RunProgress) {
		logger.Info("排班进度",
			"state", progress.State.DisplayName(),
			"bestCost", fmt.Sprintf("%.2f", progress.BestCost),
			"iterations", progress.Iterations,
		)
	}

	result, err := engine.Run(context.Background())
	if err != nil {
		logger.Error("排班失败", "error", err)
		os.Exit(1)
	}

	names := make(map[int64]string, len(sc.Employees))
	for _, emp := range sc.Employees {
		names[emp.ID] = emp.Name
	}

	printSummary(result)
	printAssignments(result, names)
	printFairness(result)
	printSafety(result, names)
	if !result.Validation.IsFeasible {
		printViolations(result, names)
	}

	// 无可行解时以非零状态码退出，方便在脚本里检查结果
	if result.Metadata.State == domain.RunStateInfeasible {
		os.Exit(1)
	}
}

func newTable(title string) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)
	return t
}

func printSummary(result *domain.ScheduleRunResult) {
	t := newTable("运行摘要")
	t.AppendHeader(table.Row{"项目", "数值"})
	t.AppendRows([]table.Row{
		{"终态", result.Metadata.State.DisplayName()},
		{"策略", string(result.Metadata.Strategy)},
		{"迭代", result.Metadata.Iterations},
		{"耗时", fmt.Sprintf("%d ms", result.Metadata.ElapsedMS)},
		{"最终代价", fmt.Sprintf("%.2f", result.Metadata.FinalCost)},
		{"随机种子", result.Metadata.Seed},
		{"并行重启", result.Metadata.Restarts},
		{"排班条目", len(result.Assignments)},
		{"公平性得分", fmt.Sprintf("%.1f", result.Fairness.FairnessScore)},
		{"整体基尼系数", fmt.Sprintf("%.3f", result.Fairness.OverallGini)},
		{"安全性得分", fmt.Sprintf("%.1f", result.Safety.FleetScore)},
		{"危险模式检测", len(result.Safety.Detections)},
		{"硬约束违反", len(result.Validation.Violations)},
	})
	t.Render()
}

func printAssignments(result *domain.ScheduleRunResult, names map[int64]string) {
	t := newTable("班表")
	t.AppendHeader(table.Row{"日期", "班次", "员工"})

	// 结果中的排班按槽位顺序排列，相邻的同槽位条目合并成一行
	type slotKey struct {
		date      string
		shiftType domain.ShiftType
	}
	order := make([]slotKey, 0)
	members := make(map[slotKey][]string)
	for _, a := range result.Assignments {
		key := slotKey{date: a.Date.String(), shiftType: a.ShiftType}
		if _, seen := members[key]; !seen {
			order = append(order, key)
		}
		members[key] = append(members[key], names[a.EmployeeID])
	}

	for _, key := range order {
		row := table.Row{key.date, key.shiftType.DisplayName(), ""}
		for i, name := range members[key] {
			if i > 0 {
				row[2] = row[2].(string) + "、"
			}
			row[2] = row[2].(string) + name
		}
		t.AppendRow(row)
	}
	t.Render()
}

func printFairness(result *domain.ScheduleRunResult) {
	t := newTable("工时分布")
	t.AppendHeader(table.Row{"员工", "总工时", "早班", "晚班", "夜班", "周末"})
	for _, stat := range result.Fairness.EmployeeStats {
		t.AppendRow(table.Row{
			stat.Name,
			fmt.Sprintf("%.0f", stat.TotalHours),
			stat.DayCount,
			stat.EveningCount,
			stat.NightCount,
			stat.WeekendCount,
		})
	}
	t.Render()
}

const maxPrintedDetections = 20

func printSafety(result *domain.ScheduleRunResult, names map[int64]string) {
	if len(result.Safety.Detections) == 0 {
		return
	}

	t := newTable("危险模式")
	t.AppendHeader(table.Row{"员工", "日期", "规则", "级别", "说明"})
	for i, d := range result.Safety.Detections {
		if i >= maxPrintedDetections {
			t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("另有 %d 条未显示", len(result.Safety.Detections)-maxPrintedDetections)})
			break
		}
		t.AppendRow(table.Row{names[d.EmployeeID], d.Date.String(), d.Rule, d.Severity.DisplayName(), d.Message})
	}
	t.Render()
}

func printViolations(result *domain.ScheduleRunResult, names map[int64]string) {
	t := newTable("硬约束违反")
	t.AppendHeader(table.Row{"约束", "员工", "说明"})
	for _, v := range result.Validation.Violations {
		name := ""
		if v.EmployeeID != nil {
			name = names[*v.EmployeeID]
		}
		t.AppendRow(table.Row{v.Constraint, name, v.Message})
	}
	t.Render()
}
