package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
)

const projectColumns = `id, tenant_id, user_id, name, description, created_at, updated_at`

// CreateProject inserts a new project.
func (q *Queries) CreateProject(ctx context.Context, tenantID, userID uuid.UUID, name, description string) (domain.Project, error) {
	const query = `
		INSERT INTO projects (tenant_id, user_id, name, description)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + projectColumns
	var p domain.Project
	err := q.db.QueryRowContext(ctx, query, tenantID, userID, name, description).
		Scan(&p.ID, &p.TenantID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// GetProjectByID fetches a project by id.
func (q *Queries) GetProjectByID(ctx context.Context, id uuid.UUID) (domain.Project, error) {
	const query = `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`
	var p domain.Project
	err := q.db.QueryRowContext(ctx, query, id).
		Scan(&p.ID, &p.TenantID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

// ListProjects returns a tenant's projects, newest first.
func (q *Queries) ListProjects(ctx context.Context, tenantID uuid.UUID) ([]domain.Project, error) {
	const query = `
		SELECT ` + projectColumns + ` FROM projects
		WHERE tenant_id = $1
		ORDER BY created_at DESC`
	rows, err := q.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		var p domain.Project
		if err := rows.Scan(&p.ID, &p.TenantID, &p.UserID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// DeleteProject removes a project.
func (q *Queries) DeleteProject(ctx context.Context, id uuid.UUID) error {
	const query = `DELETE FROM projects WHERE id = $1`
	_, err := q.db.ExecContext(ctx, query, id)
	return err
}
