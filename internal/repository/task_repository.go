package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamrudi/AgentDash-sub003/internal/database"
	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// SQLTaskRepository reads the surrounding application's task tables and
// writes assignment links on reassignment.
type SQLTaskRepository struct {
	db *sql.DB
}

// NewSQLTaskRepository creates a SQL-backed task repository.
func NewSQLTaskRepository(db *sql.DB) *SQLTaskRepository {
	return &SQLTaskRepository{db: db}
}

const taskColumns = `
	id, agency_id, client_id, project_id, title, status, priority, created_at, updated_at
`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var t models.Task
	err := row.Scan(
		&t.ID, &t.AgencyID, &t.ClientID, &t.ProjectID,
		&t.Title, &t.Status, &t.Priority, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// GetTask returns the task or nil when no row matches.
func (r *SQLTaskRepository) GetTask(ctx context.Context, id string) (*models.Task, error) {
	query := database.ConvertPlaceholders(`SELECT ` + taskColumns + ` FROM task WHERE id = $1`)
	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// OpenTasks returns outstanding tasks for an agency, optionally
// narrowed to one project.
func (r *SQLTaskRepository) OpenTasks(ctx context.Context, agencyID string, projectID *string) ([]*models.Task, error) {
	query := `
		SELECT ` + taskColumns + ` FROM task
		WHERE agency_id = $1 AND status NOT IN ('completed','cancelled')
	`
	args := []any{agencyID}
	if projectID != nil {
		query += ` AND project_id = $2`
		args = append(args, *projectID)
	}
	query += ` ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, database.ConvertPlaceholders(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list open tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// HasAssignment reports whether any staff is assigned to the task.
func (r *SQLTaskRepository) HasAssignment(ctx context.Context, taskID string) (bool, error) {
	query := database.ConvertPlaceholders(`
		SELECT 1 FROM task_assignment WHERE task_id = $1 LIMIT 1
	`)
	var exists int
	err := r.db.QueryRowContext(ctx, query, taskID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check assignment: %w", err)
	}
	return true, nil
}

// AssignedProfiles returns the profile ids currently assigned to the
// task.
func (r *SQLTaskRepository) AssignedProfiles(ctx context.Context, taskID string) ([]string, error) {
	query := database.ConvertPlaceholders(`
		SELECT profile_id FROM task_assignment WHERE task_id = $1 ORDER BY assigned_at
	`)
	rows, err := r.db.QueryContext(ctx, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assigned profiles: %w", err)
	}
	defer rows.Close()

	var profiles []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		profiles = append(profiles, id)
	}
	return profiles, rows.Err()
}

// CreateAssignment links a profile to a task (escalation reassignment).
func (r *SQLTaskRepository) CreateAssignment(ctx context.Context, assignment *models.TaskAssignment) error {
	if assignment.ID == "" {
		assignment.ID = uuid.NewString()
	}
	if assignment.AssignedAt.IsZero() {
		assignment.AssignedAt = time.Now().UTC()
	}
	query := database.ConvertPlaceholders(`
		INSERT INTO task_assignment (id, agency_id, task_id, profile_id, role, assigned_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	_, err := r.db.ExecContext(ctx, query,
		assignment.ID, assignment.AgencyID, assignment.TaskID, assignment.ProfileID,
		nullIfEmpty(assignment.Role), assignment.AssignedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert assignment: %w", err)
	}
	return nil
}

// SQLProfileRepository resolves staff profiles.
type SQLProfileRepository struct {
	db *sql.DB
}

// NewSQLProfileRepository creates a SQL-backed profile repository.
func NewSQLProfileRepository(db *sql.DB) *SQLProfileRepository {
	return &SQLProfileRepository{db: db}
}

// GetProfile returns the profile or nil when no row matches.
func (r *SQLProfileRepository) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, agency_id, display_name, COALESCE(email, '') FROM profile WHERE id = $1
	`)
	var p models.Profile
	err := r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.AgencyID, &p.DisplayName, &p.Email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return &p, nil
}

// AgenciesWithProfiles lists tenants that have at least one profile.
func (r *SQLProfileRepository) AgenciesWithProfiles(ctx context.Context) ([]string, error) {
	query := `SELECT DISTINCT agency_id FROM profile ORDER BY agency_id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list agencies: %w", err)
	}
	defer rows.Close()

	var agencies []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		agencies = append(agencies, id)
	}
	return agencies, rows.Err()
}
