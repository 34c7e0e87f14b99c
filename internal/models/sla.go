package models

import (
	"time"
)

// SLA policy status values.
const (
	SlaPolicyStatusActive   = "active"
	SlaPolicyStatusInactive = "inactive"
)

// Breach types.
const (
	BreachTypeResponseTime   = "response_time"
	BreachTypeResolutionTime = "resolution_time"
)

// Breach lifecycle statuses. A breach is "active" while it is in
// detected, acknowledged, or escalated; resolved and auto_resolved are
// terminal.
const (
	BreachStatusDetected     = "detected"
	BreachStatusAcknowledged = "acknowledged"
	BreachStatusEscalated    = "escalated"
	BreachStatusResolved     = "resolved"
	BreachStatusAutoResolved = "auto_resolved"
)

// Breach event types recorded in the audit log.
const (
	BreachEventDetected     = "detected"
	BreachEventEscalated    = "escalated"
	BreachEventAcknowledged = "acknowledged"
	BreachEventResolved     = "resolved"
)

// Actors recorded in the audit log.
const (
	TriggeredBySystem = "system"
	TriggeredByUser   = "user"
)

// SlaPolicy is a tenant-scoped service level rule. Optional client/project
// scoping narrows where it applies; the resolver prefers the narrowest
// matching scope (project > client > agency-wide).
type SlaPolicy struct {
	ID                  string    `json:"id"`
	AgencyID            string    `json:"agency_id"`
	Name                string    `json:"name"`
	Description         string    `json:"description,omitempty"`
	ResponseTimeHours   float64   `json:"response_time_hours"`
	ResolutionTimeHours float64   `json:"resolution_time_hours"`
	ClientID            *string   `json:"client_id,omitempty"`
	ProjectID           *string   `json:"project_id,omitempty"`
	AppliesTo           []string  `json:"applies_to,omitempty"`      // resource types; empty matches all
	TaskPriorities      []string  `json:"task_priorities,omitempty"` // empty matches all
	BusinessHoursOnly   bool      `json:"business_hours_only"`
	BusinessHoursStart  int       `json:"business_hours_start"`    // 0-23
	BusinessHoursEnd    int       `json:"business_hours_end"`      // 0-23, exclusive
	BusinessDays        []int     `json:"business_days,omitempty"` // time.Weekday values, 0=Sunday
	Status              string    `json:"status"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// IsActive reports whether the policy is eligible for resolution.
func (p *SlaPolicy) IsActive() bool {
	return p.Status == SlaPolicyStatusActive
}

// AppliesToResource reports whether the policy covers the resource type.
// An empty AppliesTo set matches every resource type.
func (p *SlaPolicy) AppliesToResource(resourceType string) bool {
	if len(p.AppliesTo) == 0 {
		return true
	}
	for _, rt := range p.AppliesTo {
		if rt == resourceType {
			return true
		}
	}
	return false
}

// MatchesPriority reports whether the policy covers the task priority.
// An empty TaskPriorities set matches every priority.
func (p *SlaPolicy) MatchesPriority(priority string) bool {
	if len(p.TaskPriorities) == 0 {
		return true
	}
	for _, pr := range p.TaskPriorities {
		if pr == priority {
			return true
		}
	}
	return false
}

// IsBusinessDay reports whether t falls on one of the policy's business
// days. An empty BusinessDays set means every day is a business day.
func (p *SlaPolicy) IsBusinessDay(t time.Time) bool {
	if len(p.BusinessDays) == 0 {
		return true
	}
	wd := int(t.Weekday())
	for _, d := range p.BusinessDays {
		if d == wd {
			return true
		}
	}
	return false
}

// SlaBreach is one recorded violation of a policy deadline for a work
// item. Rows are append-only history; status marks terminality, rows are
// never deleted.
type SlaBreach struct {
	ID                     string     `json:"id"`
	AgencyID               string     `json:"agency_id"`
	SlaID                  string     `json:"sla_id"`
	ResourceType           string     `json:"resource_type"`
	ResourceID             string     `json:"resource_id"`
	BreachType             string     `json:"breach_type"`
	DeadlineAt             time.Time  `json:"deadline_at"`
	Status                 string     `json:"status"`
	CurrentEscalationLevel int        `json:"current_escalation_level"`
	DetectedAt             time.Time  `json:"detected_at"`
	AcknowledgedAt         *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy         *string    `json:"acknowledged_by,omitempty"`
	AcknowledgeNotes       *string    `json:"acknowledge_notes,omitempty"`
	ResolvedAt             *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy             *string    `json:"resolved_by,omitempty"`
	BreachDurationMinutes  *int       `json:"breach_duration_minutes,omitempty"`
}

// IsActive reports whether the breach still counts against the duplicate
// guard and remains eligible for escalation.
func (b *SlaBreach) IsActive() bool {
	switch b.Status {
	case BreachStatusDetected, BreachStatusAcknowledged, BreachStatusEscalated:
		return true
	}
	return false
}

// EscalationChain is one level of a policy's escalation ladder. Levels
// are densely numbered from 1; the engine looks up exactly
// currentLevel+1 when escalating.
type EscalationChain struct {
	ID                   string  `json:"id"`
	AgencyID             string  `json:"agency_id"`
	SlaID                string  `json:"sla_id"`
	Level                int     `json:"level"`
	EscalateAfterMinutes int     `json:"escalate_after_minutes"`
	ProfileID            *string `json:"profile_id,omitempty"`
	NotifyInApp          bool    `json:"notify_in_app"`
	ReassignTask         bool    `json:"reassign_task"`
}

// SlaBreachEvent is a write-once audit row for a breach state
// transition. EventData carries the transition payload as key/value
// pairs serialized to JSON by the repository.
type SlaBreachEvent struct {
	ID          string                 `json:"id"`
	AgencyID    string                 `json:"agency_id"`
	BreachID    string                 `json:"breach_id"`
	EventType   string                 `json:"event_type"`
	EventData   map[string]interface{} `json:"event_data,omitempty"`
	TriggeredBy string                 `json:"triggered_by"`
	UserID      *string                `json:"user_id,omitempty"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Metrics reporting period types.
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// SlaMetrics is derived on demand from breach rows over a reporting
// window; it is never persisted.
type SlaMetrics struct {
	AgencyID              string         `json:"agency_id"`
	PeriodType            string         `json:"period_type"`
	PeriodStart           time.Time      `json:"period_start"`
	TotalBreaches         int            `json:"total_breaches"`
	ResolvedBreaches      int            `json:"resolved_breaches"`
	AverageResolutionTime float64        `json:"average_resolution_time_minutes"`
	BreachesByType        map[string]int `json:"breaches_by_type"`
	ComplianceRate        float64        `json:"compliance_rate"`
}
