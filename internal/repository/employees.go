package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

func newEmptyEmployee() *domain.Employee {
	return &domain.Employee{
		ShiftTypePreferences: make(map[domain.ShiftType]int32),
		WeekdayPreferences:   make(map[time.Weekday]int32),
		Certifications:       make([]string, 0),
	}
}

func (r *Repository) GetAllEmployees() ([]*domain.Employee, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT e.id, e.name, e.username, e.email, e.level, e.team_id, t.name,
			e.no_night_shifts, e.max_weekly_hours, e.mentor_id, e.is_active, e.created_at, e.version
		FROM employees e
		JOIN teams t ON e.team_id = t.id
		ORDER BY e.id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]*domain.Employee, 0)
	employeesMap := make(map[int64]*domain.Employee)

	for rows.Next() {
		emp := newEmptyEmployee()
		dst := []any{
			&emp.ID, &emp.Name, &emp.Username, &emp.Email, &emp.Level, &emp.TeamID, &emp.TeamName,
			&emp.NoNightShifts, &emp.MaxWeeklyHours, &emp.MentorID, &emp.IsActive, &emp.CreatedAt, &emp.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		employees = append(employees, emp)
		employeesMap[emp.ID] = emp
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 偏好和认证分三个子表存储，分别查询后在内存中装配，
	// 不能把三个子表连在同一条 JOIN 里，否则会产生笛卡尔积
	query = `SELECT employee_id, shift_type, weight FROM employee_shift_preferences`
	prefRows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer prefRows.Close()

	for prefRows.Next() {
		var employeeID int64
		var shiftType domain.ShiftType
		var weight int32
		if err := prefRows.Scan(&employeeID, &shiftType, &weight); err != nil {
			return nil, err
		}
		if emp, exists := employeesMap[employeeID]; exists {
			emp.ShiftTypePreferences[shiftType] = weight
		}
	}
	if err := prefRows.Err(); err != nil {
		return nil, err
	}

	query = `SELECT employee_id, weekday, weight FROM employee_weekday_preferences`
	weekdayRows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer weekdayRows.Close()

	for weekdayRows.Next() {
		var employeeID int64
		var weekday int32
		var weight int32
		if err := weekdayRows.Scan(&employeeID, &weekday, &weight); err != nil {
			return nil, err
		}
		if emp, exists := employeesMap[employeeID]; exists {
			emp.WeekdayPreferences[time.Weekday(weekday)] = weight
		}
	}
	if err := weekdayRows.Err(); err != nil {
		return nil, err
	}

	query = `SELECT employee_id, certification FROM employee_certifications ORDER BY employee_id, certification`
	certRows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer certRows.Close()

	for certRows.Next() {
		var employeeID int64
		var certification string
		if err := certRows.Scan(&employeeID, &certification); err != nil {
			return nil, err
		}
		if emp, exists := employeesMap[employeeID]; exists {
			emp.Certifications = append(emp.Certifications, certification)
		}
	}
	if err := certRows.Err(); err != nil {
		return nil, err
	}

	return employees, nil
}

func (r *Repository) GetEmployeeByID(id int64) (*domain.Employee, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	emp := newEmptyEmployee()
	emp.ID = id

	query := `
		SELECT e.name, e.username, e.email, e.level, e.team_id, t.name,
			e.no_night_shifts, e.max_weekly_hours, e.mentor_id, e.is_active, e.created_at, e.version
		FROM employees e
		JOIN teams t ON e.team_id = t.id
		WHERE e.id = $1
	`

	dst := []any{
		&emp.Name, &emp.Username, &emp.Email, &emp.Level, &emp.TeamID, &emp.TeamName,
		&emp.NoNightShifts, &emp.MaxWeeklyHours, &emp.MentorID, &emp.IsActive, &emp.CreatedAt, &emp.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	query = `SELECT shift_type, weight FROM employee_shift_preferences WHERE employee_id = $1`
	prefRows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer prefRows.Close()

	for prefRows.Next() {
		var shiftType domain.ShiftType
		var weight int32
		if err := prefRows.Scan(&shiftType, &weight); err != nil {
			return nil, err
		}
		emp.ShiftTypePreferences[shiftType] = weight
	}
	if err := prefRows.Err(); err != nil {
		return nil, err
	}

	query = `SELECT weekday, weight FROM employee_weekday_preferences WHERE employee_id = $1`
	weekdayRows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer weekdayRows.Close()

	for weekdayRows.Next() {
		var weekday int32
		var weight int32
		if err := weekdayRows.Scan(&weekday, &weight); err != nil {
			return nil, err
		}
		emp.WeekdayPreferences[time.Weekday(weekday)] = weight
	}
	if err := weekdayRows.Err(); err != nil {
		return nil, err
	}

	query = `SELECT certification FROM employee_certifications WHERE employee_id = $1 ORDER BY certification`
	certRows, err := r.dbpool.QueryContext(ctx, query, id)
	if err != nil {
		return nil, err
	}
	defer certRows.Close()

	for certRows.Next() {
		var certification string
		if err := certRows.Scan(&certification); err != nil {
			return nil, err
		}
		emp.Certifications = append(emp.Certifications, certification)
	}
	if err := certRows.Err(); err != nil {
		return nil, err
	}

	return emp, nil
}

// GetEmployeeByUsername 按用户名查找员工，名单导入时用来判断员工是否已经存在
func (r *Repository) GetEmployeeByUsername(username string) (*domain.Employee, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var id int64
	query := `SELECT id FROM employees WHERE username = $1`
	if err := r.dbpool.QueryRowContext(ctx, query, username).Scan(&id); err != nil {
		return nil, err
	}

	return r.GetEmployeeByID(id)
}

func (r *Repository) CreateEmployee(emp *domain.Employee) error {
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
		INSERT INTO employees (name, username, email, level, team_id, no_night_shifts, max_weekly_hours, mentor_id, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, version
	`

	args := []any{emp.Name, emp.Username, emp.Email, emp.Level, emp.TeamID, emp.NoNightShifts, emp.MaxWeeklyHours, emp.MentorID, emp.IsActive}
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&emp.ID, &emp.CreatedAt, &emp.Version); err != nil {
		return err
	}

	for shiftType, weight := range emp.ShiftTypePreferences {
		query = `
			INSERT INTO employee_shift_preferences (employee_id, shift_type, weight)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, emp.ID, shiftType, weight); err != nil {
			return err
		}
	}

	for weekday, weight := range emp.WeekdayPreferences {
		query = `
			INSERT INTO employee_weekday_preferences (employee_id, weekday, weight)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, emp.ID, int32(weekday), weight); err != nil {
			return err
		}
	}

	for _, certification := range emp.Certifications {
		query = `
			INSERT INTO employee_certifications (employee_id, certification)
			VALUES ($1, $2)
		`
		if _, err := tx.ExecContext(ctx, query, emp.ID, certification); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}
