// Package repository defines the data access contracts for the SLA
// engine and provides SQL and in-memory implementations.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// ErrActiveBreachExists is returned by CreateBreach when an active
// breach already holds the (sla_id, resource_id) slot. Detection treats
// it as a skip, which makes concurrent scans safe against double
// inserts.
var ErrActiveBreachExists = errors.New("active breach already exists for this policy and resource")

// ErrTenantMismatch is returned when a tenant-scoped operation targets
// a row owned by a different agency. The row is never mutated.
var ErrTenantMismatch = errors.New("breach belongs to a different agency")

// SlaRepository manages policies and their escalation chains.
type SlaRepository interface {
	CreatePolicy(ctx context.Context, policy *models.SlaPolicy) error
	GetPolicy(ctx context.Context, id string) (*models.SlaPolicy, error)
	ActivePolicies(ctx context.Context, agencyID string) ([]*models.SlaPolicy, error)
	CountActivePolicies(ctx context.Context, agencyID string) (int, error)
	SetPolicyStatus(ctx context.Context, id, status string) error

	CreateChainLevel(ctx context.Context, level *models.EscalationChain) error
	GetChainLevel(ctx context.Context, slaID string, level int) (*models.EscalationChain, error)
}

// BreachFilter narrows breach history queries. Zero values are
// ignored.
type BreachFilter struct {
	AgencyID     string
	SlaID        string
	ClientID     string
	ResourceID   string
	Status       string
	BreachType   string
	DetectedFrom time.Time
	DetectedTo   time.Time
	Limit        int
}

// BreachRepository manages breach rows and their append-only audit
// events.
type BreachRepository interface {
	// CreateBreach inserts a breach row. Returns ErrActiveBreachExists
	// when an active breach already covers (SlaID, ResourceID).
	CreateBreach(ctx context.Context, breach *models.SlaBreach) error
	GetBreach(ctx context.Context, id string) (*models.SlaBreach, error)
	UpdateBreach(ctx context.Context, breach *models.SlaBreach) error
	HasActiveBreach(ctx context.Context, slaID, resourceID string) (bool, error)
	ActiveBreaches(ctx context.Context, agencyID string) ([]*models.SlaBreach, error)
	ListBreaches(ctx context.Context, filter BreachFilter) ([]*models.SlaBreach, error)

	AppendEvent(ctx context.Context, event *models.SlaBreachEvent) error
	ListEvents(ctx context.Context, breachID string) ([]*models.SlaBreachEvent, error)
}

// TaskRepository reads work items and manages staff assignment links.
// Task CRUD belongs to the surrounding application.
type TaskRepository interface {
	GetTask(ctx context.Context, id string) (*models.Task, error)
	// OpenTasks returns tasks that are neither completed nor cancelled,
	// optionally narrowed to one project.
	OpenTasks(ctx context.Context, agencyID string, projectID *string) ([]*models.Task, error)
	HasAssignment(ctx context.Context, taskID string) (bool, error)
	AssignedProfiles(ctx context.Context, taskID string) ([]string, error)
	CreateAssignment(ctx context.Context, assignment *models.TaskAssignment) error
}

// ProfileRepository resolves staff profiles and enumerates tenants.
type ProfileRepository interface {
	GetProfile(ctx context.Context, id string) (*models.Profile, error)
	// AgenciesWithProfiles lists tenant ids with at least one profile;
	// the periodic scanner iterates over exactly this set.
	AgenciesWithProfiles(ctx context.Context) ([]string, error)
}
