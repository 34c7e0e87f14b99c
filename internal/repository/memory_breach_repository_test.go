package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

func newBreach(slaID, resourceID string, detectedAt time.Time) *models.SlaBreach {
	return &models.SlaBreach{
		AgencyID:     "agency-1",
		SlaID:        slaID,
		ResourceType: "task",
		ResourceID:   resourceID,
		BreachType:   models.BreachTypeResponseTime,
		DeadlineAt:   detectedAt.Add(-time.Hour),
		Status:       models.BreachStatusDetected,
		DetectedAt:   detectedAt,
	}
}

func TestMemoryBreachRepositoryActiveUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBreachRepository()
	now := time.Now().UTC()

	first := newBreach("sla-1", "task-1", now)
	require.NoError(t, repo.CreateBreach(ctx, first))

	// A second active breach for the same pair is rejected.
	dup := newBreach("sla-1", "task-1", now)
	require.ErrorIs(t, repo.CreateBreach(ctx, dup), ErrActiveBreachExists)

	// Other pairs are unaffected.
	require.NoError(t, repo.CreateBreach(ctx, newBreach("sla-1", "task-2", now)))
	require.NoError(t, repo.CreateBreach(ctx, newBreach("sla-2", "task-1", now)))

	// Once the first breach is terminal, a new one may be recorded.
	first.Status = models.BreachStatusResolved
	require.NoError(t, repo.UpdateBreach(ctx, first))
	require.NoError(t, repo.CreateBreach(ctx, newBreach("sla-1", "task-1", now.Add(time.Hour))))
}

func TestMemoryBreachRepositoryHasActiveBreach(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBreachRepository()
	now := time.Now().UTC()

	breach := newBreach("sla-1", "task-1", now)
	require.NoError(t, repo.CreateBreach(ctx, breach))

	active, err := repo.HasActiveBreach(ctx, "sla-1", "task-1")
	require.NoError(t, err)
	require.True(t, active)

	breach.Status = models.BreachStatusAutoResolved
	require.NoError(t, repo.UpdateBreach(ctx, breach))

	active, err = repo.HasActiveBreach(ctx, "sla-1", "task-1")
	require.NoError(t, err)
	require.False(t, active)
}

func TestMemoryBreachRepositoryListBreaches(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBreachRepository()
	base := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	oldest := newBreach("sla-1", "task-1", base)
	require.NoError(t, repo.CreateBreach(ctx, oldest))
	oldest.Status = models.BreachStatusResolved
	require.NoError(t, repo.UpdateBreach(ctx, oldest))

	mid := newBreach("sla-1", "task-2", base.Add(time.Hour))
	mid.BreachType = models.BreachTypeResolutionTime
	require.NoError(t, repo.CreateBreach(ctx, mid))

	newest := newBreach("sla-2", "task-3", base.Add(2*time.Hour))
	require.NoError(t, repo.CreateBreach(ctx, newest))
	repo.RegisterPolicyClient("sla-2", "client-1")

	all, err := repo.ListBreaches(ctx, BreachFilter{AgencyID: "agency-1"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "task-3", all[0].ResourceID, "newest first")

	byStatus, err := repo.ListBreaches(ctx, BreachFilter{AgencyID: "agency-1", Status: models.BreachStatusResolved})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	require.Equal(t, "task-1", byStatus[0].ResourceID)

	byType, err := repo.ListBreaches(ctx, BreachFilter{AgencyID: "agency-1", BreachType: models.BreachTypeResolutionTime})
	require.NoError(t, err)
	require.Len(t, byType, 1)

	byClient, err := repo.ListBreaches(ctx, BreachFilter{AgencyID: "agency-1", ClientID: "client-1"})
	require.NoError(t, err)
	require.Len(t, byClient, 1)
	require.Equal(t, "task-3", byClient[0].ResourceID)

	windowed, err := repo.ListBreaches(ctx, BreachFilter{AgencyID: "agency-1", DetectedFrom: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, windowed, 2)

	limited, err := repo.ListBreaches(ctx, BreachFilter{AgencyID: "agency-1", Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
}

func TestMemoryBreachRepositoryEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryBreachRepository()

	require.NoError(t, repo.AppendEvent(ctx, &models.SlaBreachEvent{
		AgencyID:  "agency-1",
		BreachID:  "breach-1",
		EventType: models.BreachEventDetected,
	}))
	require.NoError(t, repo.AppendEvent(ctx, &models.SlaBreachEvent{
		AgencyID:  "agency-1",
		BreachID:  "breach-1",
		EventType: models.BreachEventEscalated,
	}))

	events, err := repo.ListEvents(ctx, "breach-1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, models.BreachEventDetected, events[0].EventType)
	require.Equal(t, models.TriggeredBySystem, events[0].TriggeredBy, "actor defaults to system")
	require.NotEmpty(t, events[0].ID)
}
