package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/kairoshq/kairos/internal/domain"
	"github.com/kairoshq/kairos/internal/quota"
	"github.com/kairoshq/kairos/internal/repository"
)

// =============================================================================
// Interface Definition
// =============================================================================

// ProjectService defines operations for tenant projects.
type ProjectService interface {
	// Create creates a project. Live projects count against the tenant's
	// projects quota, checked before creation.
	Create(ctx context.Context, tenantID, userID uuid.UUID, name, description string) (*domain.Project, error)

	// GetByID retrieves a project scoped to the tenant.
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Project, error)

	// List returns the tenant's projects, newest first.
	List(ctx context.Context, tenantID uuid.UUID) ([]domain.Project, error)

	// Delete removes a project, freeing its quota slot.
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

// =============================================================================
// Implementation
// =============================================================================

type projectService struct {
	queries *repository.Queries
	guard   quota.Guard
	logger  *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(queries *repository.Queries, guard quota.Guard, logger *slog.Logger) ProjectService {
	return &projectService{
		queries: queries,
		guard:   guard,
		logger:  logger,
	}
}

// Create creates a project after a standing quota check.
func (s *projectService) Create(ctx context.Context, tenantID, userID uuid.UUID, name, description string) (*domain.Project, error) {
	const op = "ProjectService.Create"

	if err := s.guard.Check(ctx, tenantID, domain.ActionProjects); err != nil {
		return nil, err
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.Invalid(op, "Project name is required")
	}
	if len(name) > 100 {
		return nil, domain.Invalid(op, "Project name must be 100 characters or less")
	}
	if len(description) > 500 {
		return nil, domain.Invalid(op, "Project description must be 500 characters or less")
	}

	project, err := s.queries.CreateProject(ctx, tenantID, userID, name, strings.TrimSpace(description))
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to create project")
	}

	s.logger.Info("project created",
		slog.String("project_id", project.ID.String()),
		slog.String("tenant_id", tenantID.String()))

	return &project, nil
}

// GetByID retrieves a project scoped to the tenant.
func (s *projectService) GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Project, error) {
	const op = "ProjectService.GetByID"

	project, err := s.queries.GetProjectByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.NotFound(op, "project")
		}
		return nil, domain.Internal(err, op, "Failed to get project")
	}
	if project.TenantID != tenantID {
		return nil, domain.NotFound(op, "project")
	}
	return &project, nil
}

// List returns the tenant's projects.
func (s *projectService) List(ctx context.Context, tenantID uuid.UUID) ([]domain.Project, error) {
	const op = "ProjectService.List"

	projects, err := s.queries.ListProjects(ctx, tenantID)
	if err != nil {
		return nil, domain.Internal(err, op, "Failed to list projects")
	}
	return projects, nil
}

// Delete removes a project.
func (s *projectService) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	const op = "ProjectService.Delete"

	if _, err := s.GetByID(ctx, tenantID, id); err != nil {
		return err
	}
	if err := s.queries.DeleteProject(ctx, id); err != nil {
		return domain.Internal(err, op, "Failed to delete project")
	}
	return nil
}

var _ ProjectService = (*projectService)(nil)
