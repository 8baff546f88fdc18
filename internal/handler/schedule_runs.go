package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/scheduler"
)

const employeesSnapshotKey = "employees_snapshot"

func progressKey(runID uuid.UUID) string {
	return fmt.Sprintf("schedule_run_progress_%s", runID)
}

type coverageRequirementReq struct {
	Date          domain.Date `json:"date" validate:"required"`
	ShiftType     string      `json:"shiftType" validate:"required,oneof=day evening night"`
	RequiredCount int32       `json:"requiredCount" validate:"gte=0"`
	MinLevel      int32       `json:"minLevel" validate:"gte=0,lte=5"`
}

type optimizationSettingsReq struct {
	Enabled              *bool   `json:"enabled"`
	Strategy             string  `json:"strategy" validate:"omitempty,oneof=hill_climbing simulated_annealing tabu_search genetic"`
	FairnessTarget       float64 `json:"fairnessTarget" validate:"omitempty,gte=0.1,lte=0.5"`
	SafetyPriority       string  `json:"safetyPriority" validate:"omitempty,oneof=strict balanced relaxed"`
	MaxIterations        int32   `json:"maxIterations" validate:"gte=0"`
	ConvergenceThreshold float64 `json:"convergenceThreshold" validate:"gte=0"`
	StallWindow          int32   `json:"stallWindow" validate:"gte=0"`
	TimeBudgetMS         int64   `json:"timeBudgetMS" validate:"gte=0"`
	ParallelRestarts     int32   `json:"parallelRestarts" validate:"gte=0,lte=8"`
	RandomSeed           *int64  `json:"randomSeed"`
}

func (h *Handler) CreateScheduleRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name               string                    `json:"name" validate:"required"`
		StartDate          domain.Date               `json:"startDate" validate:"required"`
		EndDate            domain.Date               `json:"endDate" validate:"required"`
		TeamIDs            []int64                   `json:"teamIDs"`
		CoverageTemplateID *int64                    `json:"coverageTemplateID"`
		Requirements       []coverageRequirementReq  `json:"requirements" validate:"omitempty,dive"`
		GenerationOptions  *domain.GenerationOptions `json:"generationOptions"`
		Settings           *optimizationSettingsReq  `json:"optimizationSettings"`
		NotifyEmail        string                    `json:"notifyEmail" validate:"omitempty,email"`
		Wait               bool                      `json:"wait"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	dateRange := domain.DateRange{StartDate: req.StartDate, EndDate: req.EndDate}
	if dateRange.Days() == 0 {
		h.errorResponse(w, r, "结束日期不能早于开始日期")
		return
	}

	// 人力需求要么来自模板展开，要么由请求逐日给出，两者不能混用
	requirements, errMsg := h.resolveRequirements(req.CoverageTemplateID, req.Requirements, dateRange)
	if errMsg != "" {
		h.errorResponse(w, r, errMsg)
		return
	}

	options := domain.GenerationOptions{
		RespectPreferences:        true,
		MinimizeConsecutiveNights: true,
		BalanceWorkload:           true,
		AvoidDangerousPatterns:    true,
	}
	if req.GenerationOptions != nil {
		options = *req.GenerationOptions
	}
	settings := h.resolveSettings(req.Settings)

	employees, err := h.loadEmployeesSnapshot()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	request := &scheduler.Request{
		RunID:        uuid.New(),
		Name:         req.Name,
		DateRange:    dateRange,
		TeamIDs:      req.TeamIDs,
		Employees:    employees,
		Requirements: requirements,
		Limits: scheduler.LegalLimits{
			MinRestHours:         float64(h.config.Scheduler.MinRestHours),
			MaxConsecutiveNights: int32(h.config.Scheduler.MaxConsecutiveNights),
			MaxWeeklyHours:       int32(h.config.Scheduler.MaxWeeklyHours),
		},
		Options:  options,
		Settings: settings,
	}

	// 先把请求过一遍建模，不合法的请求在这里就同步拒绝，不会产生运行记录
	if _, err := scheduler.BuildModel(request); err != nil {
		switch {
		case errors.Is(err, scheduler.ErrInvalidRequest):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	run := &domain.ScheduleRun{
		ID:          request.RunID,
		Name:        req.Name,
		DateRange:   dateRange,
		TeamIDs:     req.TeamIDs,
		Options:     options,
		Settings:    settings,
		State:       domain.RunStatePending,
		NotifyEmail: req.NotifyEmail,
	}

	if err := h.repository.CreateScheduleRun(run); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "schedule_run_teams_team_id_fkey":
				h.errorResponse(w, r, "指定的班组不存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if req.Wait {
		result := h.executeRun(run, request)
		if result == nil {
			h.errorResponse(w, r, "排班运行失败，请稍后查看运行状态")
			return
		}
		h.successResponse(w, r, "排班完成", result)
		return
	}

	// 异步模式下先响应再启动引擎，响应写完之后 run 就只属于引擎所在的 goroutine
	h.successResponse(w, r, "排班运行已创建", run)
	go h.executeRun(run, request)
}

// resolveRequirements 把模板或逐日需求统一成展开后的人力需求列表，
// 返回的字符串非空时表示请求不合法
func (h *Handler) resolveRequirements(templateID *int64, reqs []coverageRequirementReq, dateRange domain.DateRange) ([]domain.CoverageRequirement, string) {
	if templateID != nil && len(reqs) > 0 {
		return nil, "需求模板和逐日人力需求只能二选一"
	}

	if templateID != nil {
		template, err := h.repository.GetCoverageTemplate(*templateID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, "需求模板不存在"
			}
			return nil, "读取需求模板失败，请重试"
		}
		return template.Expand(dateRange), ""
	}

	if len(reqs) == 0 {
		return nil, "必须提供需求模板或逐日人力需求"
	}

	requirements := make([]domain.CoverageRequirement, 0, len(reqs))
	for _, req := range reqs {
		requirements = append(requirements, domain.CoverageRequirement{
			Date:          req.Date,
			ShiftType:     domain.ShiftType(req.ShiftType),
			RequiredCount: req.RequiredCount,
			MinLevel:      domain.Level(req.MinLevel),
		})
	}
	return requirements, ""
}

// resolveSettings 将请求中的优化参数和配置里的默认值合并，未提供的字段取默认值
func (h *Handler) resolveSettings(req *optimizationSettingsReq) domain.OptimizationSettings {
	settings := domain.OptimizationSettings{
		Enabled:              true,
		Strategy:             domain.StrategySimulatedAnnealing,
		FairnessTarget:       0.3,
		SafetyPriority:       domain.SafetyPriorityBalanced,
		MaxIterations:        int32(h.config.Scheduler.MaxIterations),
		ConvergenceThreshold: h.config.Scheduler.ConvergenceThreshold,
		StallWindow:          int32(h.config.Scheduler.StallWindow),
		TimeBudgetMS:         int64(h.config.Scheduler.TimeBudgetMS),
		ParallelRestarts:     int32(h.config.Scheduler.ParallelRestarts),
	}
	if req == nil {
		return settings
	}

	if req.Enabled != nil {
		settings.Enabled = *req.Enabled
	}
	if req.Strategy != "" {
		settings.Strategy = domain.StrategyName(req.Strategy)
	}
	if req.FairnessTarget != 0 {
		settings.FairnessTarget = req.FairnessTarget
	}
	if req.SafetyPriority != "" {
		settings.SafetyPriority = domain.SafetyPriority(req.SafetyPriority)
	}
	if req.MaxIterations != 0 {
		settings.MaxIterations = req.MaxIterations
	}
	if req.ConvergenceThreshold != 0 {
		settings.ConvergenceThreshold = req.ConvergenceThreshold
	}
	if req.StallWindow != 0 {
		settings.StallWindow = req.StallWindow
	}
	if req.TimeBudgetMS != 0 {
		settings.TimeBudgetMS = req.TimeBudgetMS
	}
	if req.ParallelRestarts != 0 {
		settings.ParallelRestarts = req.ParallelRestarts
	}
	settings.RandomSeed = req.RandomSeed

	return settings
}

// loadEmployeesSnapshot 优先读取缓存中的员工名单快照，未命中时回源数据库并写回缓存。
// 排班运行用的就是这份快照，运行过程中员工信息的变更不会影响已经开始的运行
func (h *Handler) loadEmployeesSnapshot() ([]*domain.Employee, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	cached, err := h.redisClient.Get(ctx, employeesSnapshotKey).Result()
	if err == nil {
		employees := make([]*domain.Employee, 0)
		if err := json.Unmarshal([]byte(cached), &employees); err == nil {
			return employees, nil
		}
		// 缓存内容损坏时当作未命中处理
	}

	employees, err := h.repository.GetAllEmployees()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(employees)
	if err != nil {
		return nil, err
	}
	// 写缓存失败不影响本次运行
	_ = h.redisClient.Set(ctx, employeesSnapshotKey, data, time.Duration(h.config.Redis.SnapshotExpiration)*time.Second).Err()

	return employees, nil
}

// executeRun 驱动引擎完成一次排班，期间把进度同步到 Redis 和数据库，
// 结束后写入结果并按需发布通知。引擎出错时返回 nil，运行停留在出错前的状态
func (h *Handler) executeRun(run *domain.ScheduleRun, request *scheduler.Request) *domain.ScheduleRunResult {
	engine := scheduler.NewEngine(request)
	engine.ProgressEvery = int64(h.config.Scheduler.ProgressInterval)
	engine.OnProgress = func(progress domain.RunProgress) {
		h.storeProgress(run, progress)
	}

	result, err := engine.Run(context.Background())
	if err != nil {
		slog.Error("排班引擎运行失败", "runID", run.ID, "error", err)
		return nil
	}

	if err := h.repository.InsertScheduleRunResult(result); err != nil {
		slog.Error("保存排班结果失败", "runID", run.ID, "error", err)
		return nil
	}

	metrics.RecordRunFinished(result)

	if run.NotifyEmail != "" {
		if err := h.publishRunNotification(run, result); err != nil {
			// 通知发不出去不影响排班结果本身
			slog.Error("发布排班通知失败", "runID", run.ID, "error", err)
		}
	}

	return result
}

// storeProgress 把每次进度写进 Redis 供轮询接口读取，
// 数据库只在状态切换时更新一次，避免高频迭代把数据库写满
func (h *Handler) storeProgress(run *domain.ScheduleRun, progress domain.RunProgress) {
	data, err := json.Marshal(progress)
	if err != nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	if err := h.redisClient.Set(ctx, progressKey(run.ID), data, time.Duration(h.config.Redis.ProgressExpiration)*time.Second).Err(); err != nil {
		slog.Error("写入进度缓存失败", "runID", run.ID, "error", err)
	}

	if progress.State == run.State {
		return
	}
	run.State = progress.State
	run.BestCost = progress.BestCost
	run.Iterations = progress.Iterations
	run.ElapsedMS = progress.ElapsedMS
	if err := h.repository.UpdateScheduleRunProgress(run); err != nil {
		slog.Error("更新运行状态失败", "runID", run.ID, "error", err)
	}
}

func (h *Handler) publishRunNotification(run *domain.ScheduleRun, result *domain.ScheduleRunResult) error {
	message := domain.NotificationMessage{To: run.NotifyEmail}

	switch result.Metadata.State {
	case domain.RunStateCompleted:
		message.Type = domain.NotificationRunCompleted
		message.Data = domain.RunCompletedMailData{
			RunName:         run.Name,
			StartDate:       run.DateRange.StartDate.String(),
			EndDate:         run.DateRange.EndDate.String(),
			AssignmentCount: len(result.Assignments),
			FairnessScore:   result.Fairness.FairnessScore,
			SafetyScore:     result.Safety.FleetScore,
			Iterations:      result.Metadata.Iterations,
			ElapsedMS:       result.Metadata.ElapsedMS,
		}
	case domain.RunStateInfeasible:
		message.Type = domain.NotificationRunInfeasible
		message.Data = domain.RunInfeasibleMailData{
			RunName:        run.Name,
			ViolationCount: len(result.Validation.Violations),
			Reasons:        result.Metadata.InfeasibleReasons,
		}
	case domain.RunStateTimedOut:
		message.Type = domain.NotificationRunTimedOut
		message.Data = domain.RunTimedOutMailData{
			RunName:    run.Name,
			Iterations: result.Metadata.Iterations,
			ElapsedMS:  result.Metadata.ElapsedMS,
			IsFeasible: result.Validation.IsFeasible,
		}
	default:
		return fmt.Errorf("未知的终态 %s", result.Metadata.State)
	}

	data, err := json.Marshal(message)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if err := h.notifyChannel.PublishWithContext(
		ctx,
		"",
		"notification_queue",
		true,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        data,
		},
	); err != nil {
		return err
	}

	metrics.RecordNotificationPublished()
	return nil
}

func (h *Handler) GetAllScheduleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.repository.GetAllScheduleRuns()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有排班运行成功", runs)
}

func (h *Handler) GetScheduleRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	h.successResponse(w, r, "获取排班运行成功", run)
}

func (h *Handler) GetScheduleRunProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	cached, err := h.redisClient.Get(ctx, progressKey(run.ID)).Result()
	if err == nil {
		var progress domain.RunProgress
		if err := json.Unmarshal([]byte(cached), &progress); err == nil {
			h.successResponse(w, r, "获取运行进度成功", progress)
			return
		}
	}

	// 缓存过期或未命中时退回数据库中的快照，数据库里的进度只在状态切换时更新
	progress := domain.RunProgress{
		RunID:      run.ID,
		State:      run.State,
		BestCost:   run.BestCost,
		Iterations: run.Iterations,
		ElapsedMS:  run.ElapsedMS,
		UpdatedAt:  time.Now(),
	}
	h.successResponse(w, r, "获取运行进度成功", progress)
}

func (h *Handler) GetScheduleRunResult(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	result, err := h.repository.GetScheduleRunResult(run.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.successResponse(w, r, "该运行还没有排班结果", nil)
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取排班结果成功", result)
}

func (h *Handler) DeleteScheduleRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(ScheduleRunCtx).(*domain.ScheduleRun)

	// 引擎还在运行时删除记录会让后续的进度更新无处可写，必须等运行结束
	if !run.State.IsTerminal() && run.State != domain.RunStatePending {
		h.errorResponse(w, r, "运行尚未结束，无法删除")
		return
	}

	if err := h.repository.DeleteScheduleRun(run.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除排班运行成功", nil)
}
