package sla

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
	"github.com/iamrudi/AgentDash-sub003/internal/notifications"
)

// seedBreachedTask creates a policy with the given chain levels, a task
// past its response deadline, and runs detection once. Returns the
// policy and the detected breach.
func seedBreachedTask(t *testing.T, f *fixture, levels []*models.EscalationChain) (*models.SlaPolicy, *models.SlaBreach) {
	t.Helper()
	ctx := context.Background()

	policy := wallClockPolicy("agency-1")
	require.NoError(t, f.slaRepo.CreatePolicy(ctx, policy))
	for _, level := range levels {
		level.AgencyID = "agency-1"
		level.SlaID = policy.ID
		require.NoError(t, f.slaRepo.CreateChainLevel(ctx, level))
	}

	task := &models.Task{
		AgencyID:  "agency-1",
		Title:     "stalled",
		Status:    models.TaskStatusPending,
		Priority:  models.TaskPriorityMedium,
		CreatedAt: f.now,
	}
	f.tasks.PutTask(task)

	f.advance(61 * time.Minute)
	created, err := f.svc.DetectBreaches(ctx, "agency-1")
	require.NoError(t, err)
	require.Len(t, created, 1)
	return policy, created[0]
}

func TestProcessEscalationsHonorsDelay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f.profiles.PutProfile(&models.Profile{ID: "mgr-1", AgencyID: "agency-1", DisplayName: "Morgan"})

	_, breach := seedBreachedTask(t, f, []*models.EscalationChain{
		{Level: 1, EscalateAfterMinutes: 15, ProfileID: strPtr("mgr-1"), NotifyInApp: true},
	})

	// 10 minutes after detection: below the threshold.
	f.advance(10 * time.Minute)
	count, err := f.svc.ProcessEscalations(ctx, "agency-1")
	require.NoError(t, err)
	require.Zero(t, count)

	// 16 minutes after detection: the level fires.
	f.advance(6 * time.Minute)
	count, err = f.svc.ProcessEscalations(ctx, "agency-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	updated, err := f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.CurrentEscalationLevel)
	require.Equal(t, models.BreachStatusEscalated, updated.Status)

	notes := f.hub.ForProfile("mgr-1")
	require.Len(t, notes, 1)
	require.Equal(t, notifications.TypeSlaEscalation, notes[0].Type)
}

func TestProcessEscalationsOneLevelPerPass(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f.profiles.PutProfile(&models.Profile{ID: "mgr-1", AgencyID: "agency-1", DisplayName: "Morgan"})
	f.profiles.PutProfile(&models.Profile{ID: "dir-1", AgencyID: "agency-1", DisplayName: "Dana"})

	_, breach := seedBreachedTask(t, f, []*models.EscalationChain{
		{Level: 1, EscalateAfterMinutes: 10, ProfileID: strPtr("mgr-1"), NotifyInApp: true},
		{Level: 2, EscalateAfterMinutes: 20, ProfileID: strPtr("dir-1"), NotifyInApp: true},
	})

	// Well past both thresholds: still only one level per pass.
	f.advance(2 * time.Hour)
	count, err := f.svc.ProcessEscalations(ctx, "agency-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	updated, err := f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.CurrentEscalationLevel)

	// The next pass advances to level 2.
	count, err = f.svc.ProcessEscalations(ctx, "agency-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	updated, err = f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, 2, updated.CurrentEscalationLevel)
}

func TestEscalateBreachChainExhausted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f.profiles.PutProfile(&models.Profile{ID: "mgr-1", AgencyID: "agency-1", DisplayName: "Morgan"})

	_, breach := seedBreachedTask(t, f, []*models.EscalationChain{
		{Level: 1, EscalateAfterMinutes: 0, ProfileID: strPtr("mgr-1"), NotifyInApp: true},
	})

	escalated, _, err := f.svc.EscalateBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.True(t, escalated)

	// No level 2 exists: exhaustion is a quiet no-op.
	escalated, effects, err := f.svc.EscalateBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.False(t, escalated)
	require.Empty(t, effects)

	updated, err := f.breaches.GetBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.Equal(t, 1, updated.CurrentEscalationLevel, "level must never move past the last configured entry")
}

func TestEscalateBreachReassignsTask(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f.profiles.PutProfile(&models.Profile{ID: "mgr-1", AgencyID: "agency-1", DisplayName: "Morgan"})

	_, breach := seedBreachedTask(t, f, []*models.EscalationChain{
		{Level: 1, EscalateAfterMinutes: 0, ProfileID: strPtr("mgr-1"), NotifyInApp: true, ReassignTask: true},
	})

	escalated, effects, err := f.svc.EscalateBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.True(t, escalated)
	require.Empty(t, Failed(effects))

	assignees, err := f.tasks.AssignedProfiles(ctx, breach.ResourceID)
	require.NoError(t, err)
	require.Contains(t, assignees, "mgr-1")
}

func TestEscalateBreachUnknownOrInactive(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))

	escalated, effects, err := f.svc.EscalateBreach(ctx, "missing")
	require.NoError(t, err)
	require.False(t, escalated)
	require.Empty(t, effects)

	_, breach := seedBreachedTask(t, f, []*models.EscalationChain{
		{Level: 1, EscalateAfterMinutes: 0},
	})
	ok, err := f.svc.ResolveBreach(ctx, breach.ID, "user-1", "agency-1", false)
	require.NoError(t, err)
	require.True(t, ok)

	escalated, _, err = f.svc.EscalateBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.False(t, escalated, "terminal breaches never escalate")
}

func TestEscalationAuditTrail(t *testing.T) {
	ctx := context.Background()
	f := newFixture(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	f.profiles.PutProfile(&models.Profile{ID: "mgr-1", AgencyID: "agency-1", DisplayName: "Morgan"})

	_, breach := seedBreachedTask(t, f, []*models.EscalationChain{
		{Level: 1, EscalateAfterMinutes: 0, ProfileID: strPtr("mgr-1"), NotifyInApp: true},
	})

	escalated, _, err := f.svc.EscalateBreach(ctx, breach.ID)
	require.NoError(t, err)
	require.True(t, escalated)

	events, err := f.breaches.ListEvents(ctx, breach.ID)
	require.NoError(t, err)
	require.Len(t, events, 2) // detected + escalated

	last := events[len(events)-1]
	require.Equal(t, models.BreachEventEscalated, last.EventType)
	require.EqualValues(t, 0, last.EventData["from_level"])
	require.EqualValues(t, 1, last.EventData["to_level"])
}

func TestMaybeEscalateDefersOutsideBusinessHours(t *testing.T) {
	ctx := context.Background()
	// Friday 16:00 with a 9-17 Mon-Fri policy.
	f := newFixture(time.Date(2026, 3, 6, 15, 0, 0, 0, time.UTC))
	f.profiles.PutProfile(&models.Profile{ID: "mgr-1", AgencyID: "agency-1", DisplayName: "Morgan"})

	policy := businessPolicy()
	policy.AgencyID = "agency-1"
	policy.Name = "business"
	policy.ResponseTimeHours = 1
	policy.ResolutionTimeHours = 8
	policy.Status = models.SlaPolicyStatusActive
	require.NoError(t, f.slaRepo.CreatePolicy(ctx, policy))
	require.NoError(t, f.slaRepo.CreateChainLevel(ctx, &models.EscalationChain{
		AgencyID:             "agency-1",
		SlaID:                policy.ID,
		Level:                1,
		EscalateAfterMinutes: 30,
		ProfileID:            strPtr("mgr-1"),
		NotifyInApp:          true,
	}))

	require.NoError(t, f.breaches.CreateBreach(ctx, &models.SlaBreach{
		AgencyID:     "agency-1",
		SlaID:        policy.ID,
		ResourceType: ResourceTypeTask,
		ResourceID:   "task-1",
		BreachType:   models.BreachTypeResponseTime,
		DeadlineAt:   f.now.Add(-time.Hour),
		Status:       models.BreachStatusDetected,
		DetectedAt:   f.now,
	}))

	// Threshold elapsed, but it is Friday 20:00: deferred, not lost.
	f.now = time.Date(2026, 3, 6, 20, 0, 0, 0, time.UTC)
	count, err := f.svc.ProcessEscalations(ctx, "agency-1")
	require.NoError(t, err)
	require.Zero(t, count)

	// Monday 10:00: the deferred escalation fires.
	f.now = time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC)
	count, err = f.svc.ProcessEscalations(ctx, "agency-1")
	require.NoError(t, err)
	require.Equal(t, 1, count)
}
