package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
	"github.com/iamrudi/AgentDash-sub003/internal/repository"
)

func seedBreach(t *testing.T, f *fixture, agencyID string) *models.SlaBreach {
	t.Helper()
	breach := &models.SlaBreach{
		AgencyID:     agencyID,
		SlaID:        "sla-1",
		ResourceType: ResourceTypeTask,
		ResourceID:   "task-1",
		BreachType:   models.BreachTypeResponseTime,
		DeadlineAt:   f.now.Add(-90 * time.Minute),
		Status:       models.BreachStatusDetected,
		DetectedAt:   f.now.Add(-time.Hour),
	}
	require.NoError(t, f.breaches.CreateBreach(context.Background(), breach))
	return breach
}

func TestAcknowledgeBreach(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	breach := seedBreach(t, f, "agency-1")

	notes := "on it"
	ok, err := f.svc.AcknowledgeBreach(ctx, breach.ID, "user-1", "agency-1", &notes)
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, models.BreachStatusAcknowledged, updated.Status)
	require.NotNil(t, updated.AcknowledgedAt)
	require.Equal(t, "user-1", *updated.AcknowledgedBy)
	require.Equal(t, "on it", *updated.AcknowledgeNotes)

	events, err := f.breaches.ListEvents(ctx, breach.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.BreachEventAcknowledged, events[0].EventType)
	require.Equal(t, models.TriggeredByUser, events[0].TriggeredBy)
}

func TestAcknowledgeBreachUnknown(t *testing.T) {
	f := newFixture(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))

	ok, err := f.svc.AcknowledgeBreach(context.Background(), "missing", "user-1", "agency-1", nil)
	require.NoError(t, err)
	require.False(t, ok)
}

func TestAcknowledgeBreachTenantIsolation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	breach := seedBreach(t, f, "agency-1")

	ok, err := f.svc.AcknowledgeBreach(ctx, breach.ID, "user-x", "agency-2", nil)
	require.ErrorIs(t, err, repository.ErrTenantMismatch)
	require.False(t, ok)

	untouched, err := f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, models.BreachStatusDetected, untouched.Status)
	require.Nil(t, untouched.AcknowledgedBy)
}

func TestResolveBreachDuration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	// Deadline 90 minutes ago: the recorded duration is time past the
	// deadline, not time since detection.
	breach := seedBreach(t, f, "agency-1")

	ok, err := f.svc.ResolveBreach(ctx, breach.ID, "user-1", "agency-1", false)
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, models.BreachStatusResolved, updated.Status)
	require.NotNil(t, updated.BreachDurationMinutes)
	require.Equal(t, 90, *updated.BreachDurationMinutes)
	require.Equal(t, "user-1", *updated.ResolvedBy)
}

func TestResolveBreachDurationNeverNegative(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))

	breach := &models.SlaBreach{
		AgencyID:     "agency-1",
		SlaID:        "sla-1",
		ResourceType: ResourceTypeTask,
		ResourceID:   "task-2",
		BreachType:   models.BreachTypeResolutionTime,
		DeadlineAt:   f.now.Add(time.Hour), // deadline in the future
		Status:       models.BreachStatusDetected,
		DetectedAt:   f.now,
	}
	require.NoError(t, f.breaches.CreateBreach(ctx, breach))

	ok, err := f.svc.ResolveBreach(ctx, breach.ID, "user-1", "agency-1", false)
	require.NoError(t, err)
	require.True(t, ok)

	updated, err := f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, 0, *updated.BreachDurationMinutes)
}

func TestAutoResolveCompletedTasks(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	require.NoError(t, f.slaRepo.CreatePolicy(ctx, wallClockPolicy("agency-1")))
	task := &models.Task{
		AgencyID:  "agency-1",
		Title:     "late but done",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		CreatedAt: t0,
	}
	f.tasks.PutTask(task)

	f.now = t0.Add(2 * time.Hour)
	created, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Len(t, created, 1)

	// Acknowledge, then complete the task out of band.
	_, err = f.svc.AcknowledgeBreach(ctx, created[0].ID, "user-1", "agency-1", nil)
	require.NoError(t, err)
	f.tasks.SetTaskStatus(task.ID, models.TaskStatusCompleted)

	count, err := f.svc.AutoResolveCompletedTasks(ctx, "agency-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	updated, err := f.breaches.GetBreach(ctx, created[0].ID)
	require.NoError(t, err)
	require.Equal(t, models.BreachStatusAutoResolved, updated.Status)
	require.Equal(t, "user-1", *updated.ResolvedBy, "the acknowledger stands in as the resolving actor")

	// Nothing left to sweep.
	count, err = f.svc.AutoResolveCompletedTasks(ctx, "agency-1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestAutoResolveSkipsOpenTasks(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	require.NoError(t, f.slaRepo.CreatePolicy(ctx, wallClockPolicy("agency-1")))
	task := &models.Task{
		AgencyID:  "agency-1",
		Title:     "still open",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		CreatedAt: t0,
	}
	f.tasks.PutTask(task)

	f.now = t0.Add(2 * time.Hour)
	_, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)

	count, err := f.svc.AutoResolveCompletedTasks(ctx, "agency-1")
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestLifecycleRejectsClosedBreaches(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	breach := seedBreach(t, f, "agency-1")

	ok, err := f.svc.ResolveBreach(ctx, breach.ID, "user-1", "agency-1", false)
	require.NoError(t, err)
	require.True(t, ok)

	// A terminal breach must not be resurrected by acknowledgement.
	ok, err = f.svc.AcknowledgeBreach(ctx, breach.ID, "user-2", "agency-1", nil)
	require.ErrorIs(t, err, ErrBreachClosed)
	require.False(t, ok)

	updated, err := f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, models.BreachStatusResolved, updated.Status)
	require.False(t, updated.IsActive())
	require.Nil(t, updated.AcknowledgedBy)

	// The (sla, resource) pair stays free for new detections.
	active, err := f.breaches.HasActiveBreach(ctx, breach.SlaID, breach.ResourceID)
	require.NoError(t, err)
	require.False(t, active)

	// Re-resolving is rejected the same way; the recorded duration and
	// actor stand.
	recorded := *updated.BreachDurationMinutes
	f.advance(time.Hour)
	ok, err = f.svc.ResolveBreach(ctx, breach.ID, "user-2", "agency-1", false)
	require.ErrorIs(t, err, ErrBreachClosed)
	require.False(t, ok)

	updated, err = f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, recorded, *updated.BreachDurationMinutes)
	require.Equal(t, "user-1", *updated.ResolvedBy)
}
