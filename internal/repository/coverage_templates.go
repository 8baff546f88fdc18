package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

func (r *Repository) GetAllCoverageTemplates() ([]*domain.CoverageTemplate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			ct.id,
			ct.name,
			ct.description,
			ct.created_at,
			ct.version,
			ctr.id,
			ctr.shift_type,
			ctr.weekday_count,
			ctr.weekend_count,
			ctr.min_level
		FROM coverage_templates ct
		LEFT JOIN coverage_template_rules ctr ON ct.id = ctr.template_id
		ORDER BY ct.id, ctr.id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	templatesMap := make(map[int64]*domain.CoverageTemplate)
	order := make([]int64, 0)

	for rows.Next() {
		var row struct {
			ID          int64
			Name        string
			Description string
			CreatedAt   time.Time
			Version     int32

			RuleID       sql.NullInt64
			ShiftType    sql.NullString
			WeekdayCount sql.NullInt32
			WeekendCount sql.NullInt32
			MinLevel     sql.NullInt32
		}

		dst := []any{
			&row.ID,
			&row.Name,
			&row.Description,
			&row.CreatedAt,
			&row.Version,
			&row.RuleID,
			&row.ShiftType,
			&row.WeekdayCount,
			&row.WeekendCount,
			&row.MinLevel,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if _, exists := templatesMap[row.ID]; !exists {
			// 说明此时是第一次查到这个模板，需要在 map 中初始化这个模板
			templatesMap[row.ID] = &domain.CoverageTemplate{
				ID:          row.ID,
				Name:        row.Name,
				Description: row.Description,
				Rules:       make([]domain.CoverageTemplateRule, 0),
				CreatedAt:   row.CreatedAt,
				Version:     row.Version,
			}
			order = append(order, row.ID)
		}

		// 如果 ruleID 为空，则表示这个模板不存在任何规则，此时可以跳过规则解析的部分
		if !row.RuleID.Valid {
			continue
		}

		templatesMap[row.ID].Rules = append(templatesMap[row.ID].Rules, domain.CoverageTemplateRule{
			ID:           row.RuleID.Int64,
			ShiftType:    domain.ShiftType(row.ShiftType.String),
			WeekdayCount: row.WeekdayCount.Int32,
			WeekendCount: row.WeekendCount.Int32,
			MinLevel:     domain.Level(row.MinLevel.Int32),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	templates := make([]*domain.CoverageTemplate, 0, len(order))
	for _, id := range order {
		templates = append(templates, templatesMap[id])
	}

	return templates, nil
}

func (r *Repository) GetCoverageTemplate(id int64) (*domain.CoverageTemplate, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT
			ct.name,
			ct.description,
			ct.created_at,
			ct.version,
			ctr.id,
			ctr.shift_type,
			ctr.weekday_count,
			ctr.weekend_count,
			ctr.min_level
		FROM coverage_templates ct
		LEFT JOIN coverage_template_rules ctr ON ct.id = ctr.template_id
		WHERE ct.id = $1
		ORDER BY ctr.id
	`

	rows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	template := &domain.CoverageTemplate{
		ID:    id,
		Rules: make([]domain.CoverageTemplateRule, 0),
	}
	found := false

	for rows.Next() {
		var row struct {
			Name        string
			Description string
			CreatedAt   time.Time
			Version     int32

			RuleID       sql.NullInt64
			ShiftType    sql.NullString
			WeekdayCount sql.NullInt32
			WeekendCount sql.NullInt32
			MinLevel     sql.NullInt32
		}

		dst := []any{
			&row.Name,
			&row.Description,
			&row.CreatedAt,
			&row.Version,
			&row.RuleID,
			&row.ShiftType,
			&row.WeekdayCount,
			&row.WeekendCount,
			&row.MinLevel,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		if !found {
			template.Name = row.Name
			template.Description = row.Description
			template.CreatedAt = row.CreatedAt
			template.Version = row.Version
			found = true
		}

		if !row.RuleID.Valid {
			continue
		}

		template.Rules = append(template.Rules, domain.CoverageTemplateRule{
			ID:           row.RuleID.Int64,
			ShiftType:    domain.ShiftType(row.ShiftType.String),
			WeekdayCount: row.WeekdayCount.Int32,
			WeekendCount: row.WeekendCount.Int32,
			MinLevel:     domain.Level(row.MinLevel.Int32),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !found {
		return nil, sql.ErrNoRows
	}

	return template, nil
}

func (r *Repository) CreateCoverageTemplate(template *domain.CoverageTemplate) error {
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
		INSERT INTO coverage_templates (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, template.Name, template.Description).Scan(&template.ID, &template.CreatedAt, &template.Version); err != nil {
		return err
	}

	for i := range template.Rules {
		query = `
			INSERT INTO coverage_template_rules (template_id, shift_type, weekday_count, weekend_count, min_level)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		params := []any{template.ID, template.Rules[i].ShiftType, template.Rules[i].WeekdayCount, template.Rules[i].WeekendCount, template.Rules[i].MinLevel}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&template.Rules[i].ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UpdateCoverageTemplate(template *domain.CoverageTemplate) error {
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
		UPDATE coverage_templates
		SET
			name = $1,
			description = $2,
			version = version + 1
		WHERE id = $3 AND version = $4
		RETURNING version
	`

	params := []any{template.Name, template.Description, template.ID, template.Version}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&template.Version); err != nil {
		return err
	}

	// 规则直接整体替换，先删后插
	query = `DELETE FROM coverage_template_rules WHERE template_id = $1`
	if _, err := tx.ExecContext(ctx, query, template.ID); err != nil {
		return err
	}

	for i := range template.Rules {
		query = `
			INSERT INTO coverage_template_rules (template_id, shift_type, weekday_count, weekend_count, min_level)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id
		`
		params := []any{template.ID, template.Rules[i].ShiftType, template.Rules[i].WeekdayCount, template.Rules[i].WeekendCount, template.Rules[i].MinLevel}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&template.Rules[i].ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteCoverageTemplate(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		DELETE FROM coverage_templates WHERE id = $1
	`

	_, err := r.dbpool.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	return nil
}
