package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

func (r *Repository) GetAllTeams() ([]*domain.Team, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT id, name, created_at, version FROM teams ORDER BY id
	`

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	teams := make([]*domain.Team, 0)
	for rows.Next() {
		team := &domain.Team{}
		dst := []any{&team.ID, &team.Name, &team.CreatedAt, &team.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return teams, nil
}

func (r *Repository) CreateTeam(team *domain.Team) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		INSERT INTO teams (name)
		VALUES ($1)
		RETURNING id, created_at, version
	`

	if err := r.dbpool.QueryRowContext(ctx, query, team.Name).Scan(&team.ID, &team.CreatedAt, &team.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetTeamIDByName(name string) (int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT id FROM teams WHERE name = $1`

	var id int64
	if err := r.dbpool.QueryRowContext(ctx, query, name).Scan(&id); err != nil {
		return 0, err
	}

	return id, nil
}
