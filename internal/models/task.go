package models

import (
	"time"
)

// Task statuses. A task is "open" while it is neither completed nor
// cancelled; "pending" is the initial state before any staff response.
const (
	TaskStatusPending    = "pending"
	TaskStatusInProgress = "in_progress"
	TaskStatusReview     = "review"
	TaskStatusCompleted  = "completed"
	TaskStatusCancelled  = "cancelled"
)

// Task priorities.
const (
	TaskPriorityLow    = "low"
	TaskPriorityMedium = "medium"
	TaskPriorityHigh   = "high"
	TaskPriorityUrgent = "urgent"
)

// Task is the unit of work the SLA engine measures. The engine reads
// tasks and writes assignments; task CRUD itself belongs to the
// surrounding application.
type Task struct {
	ID        string    `json:"id"`
	AgencyID  string    `json:"agency_id"`
	ClientID  *string   `json:"client_id,omitempty"`
	ProjectID *string   `json:"project_id,omitempty"`
	Title     string    `json:"title"`
	Status    string    `json:"status"`
	Priority  string    `json:"priority"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsOpen reports whether the task is still outstanding work.
func (t *Task) IsOpen() bool {
	return t.Status != TaskStatusCompleted && t.Status != TaskStatusCancelled
}

// IsTerminal reports whether the task reached a final state.
func (t *Task) IsTerminal() bool {
	return !t.IsOpen()
}

// HasReceivedResponse is the first-response heuristic: a task counts as
// responded to once staff is assigned or it has left the initial
// pending state.
func (t *Task) HasReceivedResponse(hasAssignment bool) bool {
	return hasAssignment || t.Status != TaskStatusPending
}

// TaskAssignment links a task to a staff profile.
type TaskAssignment struct {
	ID         string    `json:"id"`
	AgencyID   string    `json:"agency_id"`
	TaskID     string    `json:"task_id"`
	ProfileID  string    `json:"profile_id"`
	Role       string    `json:"role,omitempty"`
	AssignedAt time.Time `json:"assigned_at"`
}

// Profile is a staff member addressable by notifications and
// reassignment.
type Profile struct {
	ID          string `json:"id"`
	AgencyID    string `json:"agency_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email,omitempty"`
}
