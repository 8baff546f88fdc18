package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

const scheduleRunColumns = `
	sr.id,
	sr.name,
	sr.start_date,
	sr.end_date,
	sr.respect_preferences,
	sr.minimize_consecutive_nights,
	sr.balance_workload,
	sr.avoid_dangerous_patterns,
	sr.enforce_mentorship_pairing,
	sr.mentorship_priority,
	sr.optimization_enabled,
	sr.strategy,
	sr.fairness_target,
	sr.safety_priority,
	sr.max_iterations,
	sr.convergence_threshold,
	sr.stall_window,
	sr.time_budget_ms,
	sr.parallel_restarts,
	sr.random_seed,
	sr.state,
	sr.best_cost,
	sr.iterations,
	sr.elapsed_ms,
	sr.notify_email,
	sr.created_at,
	sr.version
`

func scheduleRunDst(run *domain.ScheduleRun) []any {
	return []any{
		&run.ID,
		&run.Name,
		&run.DateRange.StartDate,
		&run.DateRange.EndDate,
		&run.Options.RespectPreferences,
		&run.Options.MinimizeConsecutiveNights,
		&run.Options.BalanceWorkload,
		&run.Options.AvoidDangerousPatterns,
		&run.Options.EnforceMentorshipPairing,
		&run.Options.MentorshipPriority,
		&run.Settings.Enabled,
		&run.Settings.Strategy,
		&run.Settings.FairnessTarget,
		&run.Settings.SafetyPriority,
		&run.Settings.MaxIterations,
		&run.Settings.ConvergenceThreshold,
		&run.Settings.StallWindow,
		&run.Settings.TimeBudgetMS,
		&run.Settings.ParallelRestarts,
		&run.Settings.RandomSeed,
		&run.State,
		&run.BestCost,
		&run.Iterations,
		&run.ElapsedMS,
		&run.NotifyEmail,
		&run.CreatedAt,
		&run.Version,
	}
}

func (r *Repository) CreateScheduleRun(run *domain.ScheduleRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO schedule_runs (
			id, name, start_date, end_date,
			respect_preferences, minimize_consecutive_nights, balance_workload,
			avoid_dangerous_patterns, enforce_mentorship_pairing, mentorship_priority,
			optimization_enabled, strategy, fairness_target, safety_priority,
			max_iterations, convergence_threshold, stall_window, time_budget_ms,
			parallel_restarts, random_seed, state, notify_email
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22)
		RETURNING best_cost, iterations, elapsed_ms, created_at, version
	`

	args := []any{
		run.ID, run.Name, run.DateRange.StartDate, run.DateRange.EndDate,
		run.Options.RespectPreferences, run.Options.MinimizeConsecutiveNights, run.Options.BalanceWorkload,
		run.Options.AvoidDangerousPatterns, run.Options.EnforceMentorshipPairing, run.Options.MentorshipPriority,
		run.Settings.Enabled, run.Settings.Strategy, run.Settings.FairnessTarget, run.Settings.SafetyPriority,
		run.Settings.MaxIterations, run.Settings.ConvergenceThreshold, run.Settings.StallWindow, run.Settings.TimeBudgetMS,
		run.Settings.ParallelRestarts, run.Settings.RandomSeed, run.State, run.NotifyEmail,
	}
	dst := []any{&run.BestCost, &run.Iterations, &run.ElapsedMS, &run.CreatedAt, &run.Version}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return err
	}

	for _, teamID := range run.TeamIDs {
		query = `
			INSERT INTO schedule_run_teams (run_id, team_id)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, run.ID, teamID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetScheduleRun(id uuid.UUID) (*domain.ScheduleRun, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT ` + scheduleRunColumns + `, srt.team_id
		FROM schedule_runs sr
		LEFT JOIN schedule_run_teams srt ON sr.id = srt.run_id
		WHERE sr.id = $1
		ORDER BY srt.team_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	run := &domain.ScheduleRun{
		TeamIDs: make([]int64, 0),
	}
	found := false

	for rows.Next() {
		var teamID sql.NullInt64
		dst := append(scheduleRunDst(run), &teamID)
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		found = true

		// 如果 teamID 为空，则表示这次运行没有限定班组，面向全部班组
		if !teamID.Valid {
			continue
		}
		run.TeamIDs = append(run.TeamIDs, teamID.Int64)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, sql.ErrNoRows
	}

	return run, nil
}

func (r *Repository) GetAllScheduleRuns() ([]*domain.ScheduleRun, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT ` + scheduleRunColumns + `, srt.team_id
		FROM schedule_runs sr
		LEFT JOIN schedule_run_teams srt ON sr.id = srt.run_id
		ORDER BY sr.created_at DESC, sr.id, srt.team_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]*domain.ScheduleRun, 0)
	runsMap := make(map[uuid.UUID]*domain.ScheduleRun)

	for rows.Next() {
		probe := &domain.ScheduleRun{
			TeamIDs: make([]int64, 0),
		}
		var teamID sql.NullInt64
		dst := append(scheduleRunDst(probe), &teamID)
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		run, exists := runsMap[probe.ID]
		if !exists {
			// 说明此时是第一次查到这次运行，需要在 map 中初始化这次运行
			run = probe
			runsMap[run.ID] = run
			runs = append(runs, run)
		}

		if !teamID.Valid {
			continue
		}
		run.TeamIDs = append(run.TeamIDs, teamID.Int64)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// UpdateScheduleRunProgress 更新运行的状态和搜索进度，使用版本号做乐观锁
func (r *Repository) UpdateScheduleRunProgress(run *domain.ScheduleRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE schedule_runs
		SET
			state = $1,
			best_cost = $2,
			iterations = $3,
			elapsed_ms = $4,
			version = version + 1
		WHERE id = $5 AND version = $6
		RETURNING version
	`

	params := []any{run.State, run.BestCost, run.Iterations, run.ElapsedMS, run.ID, run.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&run.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteScheduleRun(id uuid.UUID) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM schedule_runs WHERE id = $1
	`

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
