package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

// InsertScheduleRunResult 持久化一次运行的结果。
// 排班明细按行存储，三份报告和元数据整体读写，存成 jsonb 列。
// 同一次运行重复写入时覆盖之前的结果。
func (r *Repository) InsertScheduleRunResult(result *domain.ScheduleRunResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	fairnessJSON, err := json.Marshal(result.Fairness)
	if err != nil {
		return err
	}
	safetyJSON, err := json.Marshal(result.Safety)
	if err != nil {
		return err
	}
	validationJSON, err := json.Marshal(result.Validation)
	if err != nil {
		return err
	}
	metadataJSON, err := json.Marshal(result.Metadata)
	if err != nil {
		return err
	}

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 先将之前的结果删除
	query := `DELETE FROM schedule_run_reports WHERE run_id = $1`
	if _, err := tx.ExecContext(ctx, query, result.RunID); err != nil {
		return err
	}

	query = `DELETE FROM schedule_run_assignments WHERE run_id = $1`
	if _, err := tx.ExecContext(ctx, query, result.RunID); err != nil {
		return err
	}

	query = `
		INSERT INTO schedule_run_reports (run_id, fairness, safety, validation, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, version
	`
	args := []any{result.RunID, fairnessJSON, safetyJSON, validationJSON, metadataJSON}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&result.CreatedAt, &result.Version); err != nil {
		return err
	}

	for _, assignment := range result.Assignments {
		query = `
			INSERT INTO schedule_run_assignments (run_id, employee_id, shift_date, shift_type)
			VALUES ($1, $2, $3, $4)
		`
		params := []any{result.RunID, assignment.EmployeeID, assignment.Date, assignment.ShiftType}
		if _, err := tx.ExecContext(ctx, query, params...); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetScheduleRunResult(runID uuid.UUID) (*domain.ScheduleRunResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT fairness, safety, validation, metadata, created_at, version
		FROM schedule_run_reports
		WHERE run_id = $1
	`

	result := &domain.ScheduleRunResult{
		RunID:       runID,
		Assignments: make([]domain.Assignment, 0),
	}

	var fairnessJSON, safetyJSON, validationJSON, metadataJSON []byte
	dst := []any{&fairnessJSON, &safetyJSON, &validationJSON, &metadataJSON, &result.CreatedAt, &result.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, runID).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(fairnessJSON, &result.Fairness); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(safetyJSON, &result.Safety); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(validationJSON, &result.Validation); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadataJSON, &result.Metadata); err != nil {
		return nil, err
	}

	query = `
		SELECT employee_id, shift_date, shift_type
		FROM schedule_run_assignments
		WHERE run_id = $1
		ORDER BY shift_date, shift_type, employee_id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var assignment domain.Assignment
		dst := []any{&assignment.EmployeeID, &assignment.Date, &assignment.ShiftType}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		result.Assignments = append(result.Assignments, assignment)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
