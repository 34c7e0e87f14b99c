package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Schema for the SLA engine tables. Statements are written for
// PostgreSQL; dialect differences are handled below.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS sla_policy (
		id VARCHAR(36) PRIMARY KEY,
		agency_id VARCHAR(36) NOT NULL,
		name VARCHAR(255) NOT NULL,
		description TEXT,
		response_time_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		resolution_time_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
		client_id VARCHAR(36),
		project_id VARCHAR(36),
		applies_to TEXT,
		task_priorities TEXT,
		business_hours_only BOOLEAN NOT NULL DEFAULT FALSE,
		business_hours_start INTEGER NOT NULL DEFAULT 9,
		business_hours_end INTEGER NOT NULL DEFAULT 17,
		business_days TEXT,
		status VARCHAR(20) NOT NULL DEFAULT 'active',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sla_policy_agency ON sla_policy (agency_id, status)`,

	`CREATE TABLE IF NOT EXISTS escalation_chain (
		id VARCHAR(36) PRIMARY KEY,
		agency_id VARCHAR(36) NOT NULL,
		sla_id VARCHAR(36) NOT NULL,
		level INTEGER NOT NULL,
		escalate_after_minutes INTEGER NOT NULL DEFAULT 0,
		profile_id VARCHAR(36),
		notify_in_app BOOLEAN NOT NULL DEFAULT TRUE,
		reassign_task BOOLEAN NOT NULL DEFAULT FALSE
	)`,
	`CREATE INDEX IF NOT EXISTS idx_escalation_chain_sla ON escalation_chain (sla_id, level)`,

	`CREATE TABLE IF NOT EXISTS sla_breach (
		id VARCHAR(36) PRIMARY KEY,
		agency_id VARCHAR(36) NOT NULL,
		sla_id VARCHAR(36) NOT NULL,
		resource_type VARCHAR(50) NOT NULL,
		resource_id VARCHAR(36) NOT NULL,
		breach_type VARCHAR(30) NOT NULL,
		deadline_at TIMESTAMP NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'detected',
		current_escalation_level INTEGER NOT NULL DEFAULT 0,
		detected_at TIMESTAMP NOT NULL,
		acknowledged_at TIMESTAMP,
		acknowledged_by VARCHAR(36),
		acknowledge_notes TEXT,
		resolved_at TIMESTAMP,
		resolved_by VARCHAR(36),
		breach_duration_minutes INTEGER
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sla_breach_agency_status ON sla_breach (agency_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_sla_breach_detected ON sla_breach (agency_id, detected_at)`,

	`CREATE TABLE IF NOT EXISTS sla_breach_event (
		id VARCHAR(36) PRIMARY KEY,
		agency_id VARCHAR(36) NOT NULL,
		breach_id VARCHAR(36) NOT NULL,
		event_type VARCHAR(30) NOT NULL,
		event_data TEXT,
		triggered_by VARCHAR(20) NOT NULL DEFAULT 'system',
		user_id VARCHAR(36),
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sla_breach_event_breach ON sla_breach_event (breach_id, created_at)`,

	// Collaborator tables the engine reads (and, for assignments,
	// writes). Owned by the surrounding application; created here so a
	// standalone deployment can run end to end.
	`CREATE TABLE IF NOT EXISTS task (
		id VARCHAR(36) PRIMARY KEY,
		agency_id VARCHAR(36) NOT NULL,
		client_id VARCHAR(36),
		project_id VARCHAR(36),
		title VARCHAR(255) NOT NULL,
		status VARCHAR(20) NOT NULL DEFAULT 'pending',
		priority VARCHAR(20) NOT NULL DEFAULT 'medium',
		created_at TIMESTAMP NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_agency_status ON task (agency_id, status)`,

	`CREATE TABLE IF NOT EXISTS task_assignment (
		id VARCHAR(36) PRIMARY KEY,
		agency_id VARCHAR(36) NOT NULL,
		task_id VARCHAR(36) NOT NULL,
		profile_id VARCHAR(36) NOT NULL,
		role VARCHAR(50),
		assigned_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_task_assignment_task ON task_assignment (task_id)`,

	`CREATE TABLE IF NOT EXISTS profile (
		id VARCHAR(36) PRIMARY KEY,
		agency_id VARCHAR(36) NOT NULL,
		display_name VARCHAR(255) NOT NULL,
		email VARCHAR(255)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_profile_agency ON profile (agency_id)`,
}

// activeBreachGuard enforces at most one active breach per
// (sla_id, resource_id). PostgreSQL and SQLite support partial unique
// indexes directly; MySQL gets a generated column that is NULL for
// terminal statuses so duplicate terminal rows stay allowed.
func activeBreachGuard() []string {
	if IsMySQL() {
		return []string{
			`ALTER TABLE sla_breach ADD COLUMN active_guard VARCHAR(20)
				GENERATED ALWAYS AS (
					CASE WHEN status IN ('detected','acknowledged','escalated') THEN 'active' ELSE NULL END
				) STORED`,
			`CREATE UNIQUE INDEX idx_sla_breach_active ON sla_breach (sla_id, resource_id, active_guard)`,
		}
	}
	return []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_sla_breach_active
			ON sla_breach (sla_id, resource_id)
			WHERE status IN ('detected','acknowledged','escalated')`,
	}
}

// Migrate applies the SLA engine schema. Safe to run repeatedly.
func Migrate(ctx context.Context, db *sql.DB) error {
	statements := append([]string{}, schemaStatements...)
	statements = append(statements, activeBreachGuard()...)

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			// MySQL has no IF NOT EXISTS for ALTER TABLE or CREATE
			// INDEX; tolerate reruns.
			if IsMySQL() && (strings.Contains(err.Error(), "Duplicate key name") ||
				strings.Contains(err.Error(), "Duplicate column name")) {
				continue
			}
			return fmt.Errorf("migration failed: %w", err)
		}
	}
	return nil
}
