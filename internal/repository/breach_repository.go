package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iamrudi/AgentDash-sub003/internal/database"
	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// SQLBreachRepository is the database-backed BreachRepository.
type SQLBreachRepository struct {
	db *sql.DB
}

// NewSQLBreachRepository creates a SQL-backed breach repository.
func NewSQLBreachRepository(db *sql.DB) *SQLBreachRepository {
	return &SQLBreachRepository{db: db}
}

const breachColumns = `
	id, agency_id, sla_id, resource_type, resource_id, breach_type,
	deadline_at, status, current_escalation_level, detected_at,
	acknowledged_at, acknowledged_by, acknowledge_notes,
	resolved_at, resolved_by, breach_duration_minutes
`

func scanBreach(row interface{ Scan(...any) error }) (*models.SlaBreach, error) {
	var b models.SlaBreach
	err := row.Scan(
		&b.ID, &b.AgencyID, &b.SlaID, &b.ResourceType, &b.ResourceID, &b.BreachType,
		&b.DeadlineAt, &b.Status, &b.CurrentEscalationLevel, &b.DetectedAt,
		&b.AcknowledgedAt, &b.AcknowledgedBy, &b.AcknowledgeNotes,
		&b.ResolvedAt, &b.ResolvedBy, &b.BreachDurationMinutes,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// CreateBreach inserts a breach row. The partial unique index on
// (sla_id, resource_id, active) turns a concurrent double-detect into
// ErrActiveBreachExists instead of a duplicate row.
func (r *SQLBreachRepository) CreateBreach(ctx context.Context, breach *models.SlaBreach) error {
	if breach.ID == "" {
		breach.ID = uuid.NewString()
	}
	if breach.Status == "" {
		breach.Status = models.BreachStatusDetected
	}
	if breach.DetectedAt.IsZero() {
		breach.DetectedAt = time.Now().UTC()
	}

	query := database.ConvertPlaceholders(`
		INSERT INTO sla_breach (
			id, agency_id, sla_id, resource_type, resource_id, breach_type,
			deadline_at, status, current_escalation_level, detected_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`)
	_, err := r.db.ExecContext(ctx, query,
		breach.ID, breach.AgencyID, breach.SlaID, breach.ResourceType, breach.ResourceID, breach.BreachType,
		breach.DeadlineAt, breach.Status, breach.CurrentEscalationLevel, breach.DetectedAt,
	)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return ErrActiveBreachExists
		}
		return fmt.Errorf("failed to insert breach: %w", err)
	}
	return nil
}

// GetBreach returns the breach or nil when no row matches.
func (r *SQLBreachRepository) GetBreach(ctx context.Context, id string) (*models.SlaBreach, error) {
	query := database.ConvertPlaceholders(`SELECT ` + breachColumns + ` FROM sla_breach WHERE id = $1`)
	breach, err := scanBreach(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get breach: %w", err)
	}
	return breach, nil
}

// UpdateBreach writes the mutable breach fields back to the row.
func (r *SQLBreachRepository) UpdateBreach(ctx context.Context, breach *models.SlaBreach) error {
	query := database.ConvertPlaceholders(`
		UPDATE sla_breach SET
			status = $1,
			current_escalation_level = $2,
			acknowledged_at = $3,
			acknowledged_by = $4,
			acknowledge_notes = $5,
			resolved_at = $6,
			resolved_by = $7,
			breach_duration_minutes = $8
		WHERE id = $9
	`)
	_, err := r.db.ExecContext(ctx, query,
		breach.Status, breach.CurrentEscalationLevel,
		breach.AcknowledgedAt, breach.AcknowledgedBy, breach.AcknowledgeNotes,
		breach.ResolvedAt, breach.ResolvedBy, breach.BreachDurationMinutes,
		breach.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update breach: %w", err)
	}
	return nil
}

// HasActiveBreach reports whether an active breach covers the
// (policy, resource) pair.
func (r *SQLBreachRepository) HasActiveBreach(ctx context.Context, slaID, resourceID string) (bool, error) {
	query := database.ConvertPlaceholders(`
		SELECT 1 FROM sla_breach
		WHERE sla_id = $1 AND resource_id = $2
		  AND status IN ('detected','acknowledged','escalated')
		LIMIT 1
	`)
	var exists int
	err := r.db.QueryRowContext(ctx, query, slaID, resourceID).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check active breach: %w", err)
	}
	return true, nil
}

// ActiveBreaches returns every non-terminal breach for one agency.
func (r *SQLBreachRepository) ActiveBreaches(ctx context.Context, agencyID string) ([]*models.SlaBreach, error) {
	query := database.ConvertPlaceholders(`
		SELECT ` + breachColumns + ` FROM sla_breach
		WHERE agency_id = $1 AND status IN ('detected','acknowledged','escalated')
		ORDER BY detected_at
	`)
	rows, err := r.db.QueryContext(ctx, query, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list active breaches: %w", err)
	}
	defer rows.Close()

	var breaches []*models.SlaBreach
	for rows.Next() {
		b, err := scanBreach(rows)
		if err != nil {
			return nil, err
		}
		breaches = append(breaches, b)
	}
	return breaches, rows.Err()
}

// ListBreaches returns breach history narrowed by the filter, newest
// first.
func (r *SQLBreachRepository) ListBreaches(ctx context.Context, filter BreachFilter) ([]*models.SlaBreach, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if filter.AgencyID != "" {
		conditions = append(conditions, "b.agency_id = "+arg(filter.AgencyID))
	}
	if filter.SlaID != "" {
		conditions = append(conditions, "b.sla_id = "+arg(filter.SlaID))
	}
	if filter.ClientID != "" {
		// Client scoping lives on the owning policy, not the breach row.
		conditions = append(conditions, "p.client_id = "+arg(filter.ClientID))
	}
	if filter.ResourceID != "" {
		conditions = append(conditions, "b.resource_id = "+arg(filter.ResourceID))
	}
	if filter.Status != "" {
		conditions = append(conditions, "b.status = "+arg(filter.Status))
	}
	if filter.BreachType != "" {
		conditions = append(conditions, "b.breach_type = "+arg(filter.BreachType))
	}
	if !filter.DetectedFrom.IsZero() {
		conditions = append(conditions, "b.detected_at >= "+arg(filter.DetectedFrom))
	}
	if !filter.DetectedTo.IsZero() {
		conditions = append(conditions, "b.detected_at < "+arg(filter.DetectedTo))
	}

	query := `
		SELECT b.id, b.agency_id, b.sla_id, b.resource_type, b.resource_id, b.breach_type,
		       b.deadline_at, b.status, b.current_escalation_level, b.detected_at,
		       b.acknowledged_at, b.acknowledged_by, b.acknowledge_notes,
		       b.resolved_at, b.resolved_by, b.breach_duration_minutes
		FROM sla_breach b
		JOIN sla_policy p ON b.sla_id = p.id
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY b.detected_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, database.ConvertPlaceholders(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list breaches: %w", err)
	}
	defer rows.Close()

	var breaches []*models.SlaBreach
	for rows.Next() {
		b, err := scanBreach(rows)
		if err != nil {
			return nil, err
		}
		breaches = append(breaches, b)
	}
	return breaches, rows.Err()
}

// AppendEvent writes one audit row. Events are write-once; there is no
// update or delete path.
func (r *SQLBreachRepository) AppendEvent(ctx context.Context, event *models.SlaBreachEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.TriggeredBy == "" {
		event.TriggeredBy = models.TriggeredBySystem
	}

	var data any
	if len(event.EventData) > 0 {
		raw, err := json.Marshal(event.EventData)
		if err != nil {
			return fmt.Errorf("failed to encode event data: %w", err)
		}
		data = string(raw)
	}

	query := database.ConvertPlaceholders(`
		INSERT INTO sla_breach_event (
			id, agency_id, breach_id, event_type, event_data, triggered_by, user_id, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.AgencyID, event.BreachID, event.EventType, data,
		event.TriggeredBy, event.UserID, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert breach event: %w", err)
	}
	return nil
}

// ListEvents returns the audit trail for a breach in insertion order.
func (r *SQLBreachRepository) ListEvents(ctx context.Context, breachID string) ([]*models.SlaBreachEvent, error) {
	query := database.ConvertPlaceholders(`
		SELECT id, agency_id, breach_id, event_type, event_data, triggered_by, user_id, created_at
		FROM sla_breach_event
		WHERE breach_id = $1
		ORDER BY created_at
	`)
	rows, err := r.db.QueryContext(ctx, query, breachID)
	if err != nil {
		return nil, fmt.Errorf("failed to list breach events: %w", err)
	}
	defer rows.Close()

	var events []*models.SlaBreachEvent
	for rows.Next() {
		var e models.SlaBreachEvent
		var data sql.NullString
		if err := rows.Scan(
			&e.ID, &e.AgencyID, &e.BreachID, &e.EventType, &data,
			&e.TriggeredBy, &e.UserID, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if data.Valid && data.String != "" {
			_ = json.Unmarshal([]byte(data.String), &e.EventData)
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
