package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iamrudi/AgentDash-sub003/internal/database"
	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// SQLSlaRepository is the database-backed SlaRepository.
type SQLSlaRepository struct {
	db *sql.DB
}

// NewSQLSlaRepository creates a SQL-backed policy/chain repository.
func NewSQLSlaRepository(db *sql.DB) *SQLSlaRepository {
	return &SQLSlaRepository{db: db}
}

func encodeStrings(values []string) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeStrings(raw sql.NullString) []string {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil
	}
	return values
}

func encodeInts(values []int) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	raw, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeInts(raw sql.NullString) []int {
	if !raw.Valid || raw.String == "" {
		return nil
	}
	var values []int
	if err := json.Unmarshal([]byte(raw.String), &values); err != nil {
		return nil
	}
	return values
}

// CreatePolicy inserts a policy row, assigning an id when absent.
func (r *SQLSlaRepository) CreatePolicy(ctx context.Context, policy *models.SlaPolicy) error {
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now
	if policy.Status == "" {
		policy.Status = models.SlaPolicyStatusActive
	}

	appliesTo, err := encodeStrings(policy.AppliesTo)
	if err != nil {
		return fmt.Errorf("failed to encode applies_to: %w", err)
	}
	priorities, err := encodeStrings(policy.TaskPriorities)
	if err != nil {
		return fmt.Errorf("failed to encode task_priorities: %w", err)
	}
	days, err := encodeInts(policy.BusinessDays)
	if err != nil {
		return fmt.Errorf("failed to encode business_days: %w", err)
	}

	query := database.ConvertPlaceholders(`
		INSERT INTO sla_policy (
			id, agency_id, name, description,
			response_time_hours, resolution_time_hours,
			client_id, project_id, applies_to, task_priorities,
			business_hours_only, business_hours_start, business_hours_end, business_days,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`)
	_, err = r.db.ExecContext(ctx, query,
		policy.ID, policy.AgencyID, policy.Name, policy.Description,
		policy.ResponseTimeHours, policy.ResolutionTimeHours,
		policy.ClientID, policy.ProjectID, nullIfEmpty(appliesTo), nullIfEmpty(priorities),
		policy.BusinessHoursOnly, policy.BusinessHoursStart, policy.BusinessHoursEnd, nullIfEmpty(days),
		policy.Status, policy.CreatedAt, policy.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert sla policy: %w", err)
	}
	return nil
}

const policyColumns = `
	id, agency_id, name, COALESCE(description, ''),
	response_time_hours, resolution_time_hours,
	client_id, project_id, applies_to, task_priorities,
	business_hours_only, business_hours_start, business_hours_end, business_days,
	status, created_at, updated_at
`

func scanPolicy(row interface{ Scan(...any) error }) (*models.SlaPolicy, error) {
	var p models.SlaPolicy
	var appliesTo, priorities, days sql.NullString
	err := row.Scan(
		&p.ID, &p.AgencyID, &p.Name, &p.Description,
		&p.ResponseTimeHours, &p.ResolutionTimeHours,
		&p.ClientID, &p.ProjectID, &appliesTo, &priorities,
		&p.BusinessHoursOnly, &p.BusinessHoursStart, &p.BusinessHoursEnd, &days,
		&p.Status, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.AppliesTo = decodeStrings(appliesTo)
	p.TaskPriorities = decodeStrings(priorities)
	p.BusinessDays = decodeInts(days)
	return &p, nil
}

// GetPolicy returns the policy or nil when no row matches.
func (r *SQLSlaRepository) GetPolicy(ctx context.Context, id string) (*models.SlaPolicy, error) {
	query := database.ConvertPlaceholders(`SELECT ` + policyColumns + ` FROM sla_policy WHERE id = $1`)
	policy, err := scanPolicy(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sla policy: %w", err)
	}
	return policy, nil
}

// ActivePolicies returns all active policies for one agency.
func (r *SQLSlaRepository) ActivePolicies(ctx context.Context, agencyID string) ([]*models.SlaPolicy, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + policyColumns + ` FROM sla_policy
		WHERE agency_id = $1 AND status = 'active'
		ORDER BY created_at
	`)
	rows, err := r.db.QueryContext(ctx, query, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active policies: %w", err)
	}
	defer rows.Close()

	var policies []*models.SlaPolicy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		policies = append(policies, p)
	}
	return policies, rows.Err()
}

// CountActivePolicies returns the active policy count used by the
// compliance-rate heuristic.
func (r *SQLSlaRepository) CountActivePolicies(ctx context.Context, agencyID string) (int, error) {
	query := database.ConvertPlaceholders(`
		SELECT COUNT(*) FROM sla_policy WHERE agency_id = $1 AND status = 'active'
	`)
	var count int
	if err := r.db.QueryRowContext(ctx, query, agencyID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count active policies: %w", err)
	}
	return count, nil
}

// SetPolicyStatus toggles a policy between active and inactive. Status
// is the only mutable field once a policy is referenced by breaches.
func (r *SQLSlaRepository) SetPolicyStatus(ctx context.Context, id, status string) error {
	query := database.ConvertPlaceholders(`
		UPDATE sla_policy SET status = $1, updated_at = $2 WHERE id = $3
	`)
	_, err := r.db.ExecContext(ctx, query, status, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update policy status: %w", err)
	}
	return nil
}

// CreateChainLevel inserts an escalation chain level.
func (r *SQLSlaRepository) CreateChainLevel(ctx context.Context, level *models.EscalationChain) error {
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	query := database.ConvertPlaceholders(`
		INSERT INTO escalation_chain (
			id, agency_id, sla_id, level, escalate_after_minutes,
			profile_id, notify_in_app, reassign_task
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	_, err := r.db.ExecContext(ctx, query,
		level.ID, level.AgencyID, level.SlaID, level.Level, level.EscalateAfterMinutes,
		level.ProfileID, level.NotifyInApp, level.ReassignTask,
	)
	if err != nil {
		return fmt.Errorf("failed to insert escalation chain level: %w", err)
	}
	return nil
}

// GetChainLevel returns the chain entry for exactly the given level, or
// nil when the chain is exhausted at that level.
func (r *SQLSlaRepository) GetChainLevel(ctx context.Context, slaID string, level int) (*models.EscalationChain, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, agency_id, sla_id, level, escalate_after_minutes,
		       profile_id, notify_in_app, reassign_task
		FROM escalation_chain
		WHERE sla_id = $1 AND level = $2
	`)
	var c models.EscalationChain
	err := r.db.QueryRowContext(ctx, query, slaID, level).Scan(
		&c.ID, &c.AgencyID, &c.SlaID, &c.Level, &c.EscalateAfterMinutes,
		&c.ProfileID, &c.NotifyInApp, &c.ReassignTask,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get escalation chain level: %w", err)
	}
	return &c, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
