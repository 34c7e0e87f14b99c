package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
	"github.com/iamrudi/AgentDash-sub003/internal/notifications"
)

func TestDetectBreachesResponseTime(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	policy := wallClockPolicy("agency-1")
	require.NoError(t, f.slaRepo.CreatePolicy(ctx, policy))

	task := &models.Task{
		AgencyID:  "agency-1",
		Title:     "fix login",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		CreatedAt: t0,
	}
	f.tasks.PutTask(task)

	// One minute past the response deadline.
	f.now = t0.Add(61 * time.Minute)

	created, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Len(t, created, 1)

	breach := created[0]
	require.Equal(t, models.BreachTypeResponseTime, breach.BreachType)
	require.Equal(t, t0.Add(time.Hour), breach.DeadlineAt)
	require.Equal(t, models.BreachStatusDetected, breach.Status)
	require.Equal(t, task.ID, breach.ResourceID)
	require.Equal(t, 0, breach.CurrentEscalationLevel)

	events, err := f.breaches.ListEvents(ctx, breach.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, models.BreachEventDetected, events[0].EventType)
	require.Equal(t, models.TriggeredBySystem, events[0].TriggeredBy)
}

func TestDetectBreachesIdempotent(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	require.NoError(t, f.slaRepo.CreatePolicy(ctx, wallClockPolicy("agency-1")))
	f.tasks.PutTask(&models.Task{
		AgencyID:  "agency-1",
		Title:     "slow task",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		CreatedAt: t0,
	})

	f.now = t0.Add(2 * time.Hour)

	first, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	second, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Empty(t, second, "repeated scans must not duplicate active breaches")
}

func TestDetectBreachesResolutionTime(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	require.NoError(t, f.slaRepo.CreatePolicy(ctx, wallClockPolicy("agency-1")))

	task := &models.Task{
		AgencyID:  "agency-1",
		Title:     "long running",
		Status:    models.TaskStatusInProgress,
		Priority:  models.TaskPriorityHigh,
		CreatedAt: t0,
	}
	f.tasks.PutTask(task)
	require.NoError(t, f.tasks.CreateAssignment(ctx, &models.TaskAssignment{
		AgencyID:  "agency-1",
		TaskID:    task.ID,
		ProfileID: "profile-a",
	}))

	// Past the 4h resolution deadline.
	f.now = t0.Add(5 * time.Hour)

	created, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, models.BreachTypeResolutionTime, created[0].BreachType)
	require.Equal(t, t0.Add(4*time.Hour), created[0].DeadlineAt)

	// The current assignee is notified about the missed deadline.
	notes := f.hub.ForProfile("profile-a")
	require.Len(t, notes, 1)
	require.Equal(t, notifications.TypeSlaBreach, notes[0].Type)
}

func TestDetectBreachesResponseChecksFirst(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	require.NoError(t, f.slaRepo.CreatePolicy(ctx, wallClockPolicy("agency-1")))
	f.tasks.PutTask(&models.Task{
		AgencyID:  "agency-1",
		Title:     "never responded",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		CreatedAt: t0,
	})

	// Past both deadlines but unresponded: only the response breach is
	// raised on this pass.
	f.now = t0.Add(6 * time.Hour)

	created, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	require.Equal(t, models.BreachTypeResponseTime, created[0].BreachType)
}

func TestDetectBreachesSkipsBeforeDeadline(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	require.NoError(t, f.slaRepo.CreatePolicy(ctx, wallClockPolicy("agency-1")))
	f.tasks.PutTask(&models.Task{
		AgencyID:  "agency-1",
		Title:     "fresh",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		CreatedAt: t0,
	})

	f.now = t0.Add(30 * time.Minute)

	created, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Empty(t, created)
}

func TestDetectBreachesPriorityFilter(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	policy := wallClockPolicy("agency-1")
	policy.TaskPriorities = []string{models.TaskPriorityUrgent}
	require.NoError(t, f.slaRepo.CreatePolicy(ctx, policy))

	f.tasks.PutTask(&models.Task{
		AgencyID:  "agency-1",
		Title:     "low priority",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityLow,
		CreatedAt: t0,
	})

	f.now = t0.Add(2 * time.Hour)

	created, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Empty(t, created, "policy priority filter must exclude the task")
}

func TestRunManualScanCounts(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	f := newFixture(t0)

	policy := wallClockPolicy("agency-1")
	require.NoError(t, f.slaRepo.CreatePolicy(ctx, policy))
	require.NoError(t, f.slaRepo.CreateChainLevel(ctx, &models.EscalationChain{
		AgencyID:             "agency-1",
		SlaID:                policy.ID,
		Level:                1,
		EscalateAfterMinutes: 0, // fires on the same cycle
	}))

	f.tasks.PutTask(&models.Task{
		AgencyID:  "agency-1",
		Title:     "breached",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		CreatedAt: t0,
	})

	f.now = t0.Add(2 * time.Hour)

	result, err := f.svc.RunManualScan(ctx, "agency-1")
	require.NoError(t, err)
	require.Equal(t, 1, result.BreachesDetected)
	require.Equal(t, 1, result.EscalationsTriggered, "a zero-delay level escalates on the detecting cycle")
}
