package sla

import (
	"log"
	"os"
	"time"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
	"github.com/iamrudi/AgentDash-sub003/internal/notifications"
	"github.com/iamrudi/AgentDash-sub003/internal/repository"
)

// fixture bundles the in-memory backends behind one service instance.
// Tests mutate now to move the engine's clock.
type fixture struct {
	slaRepo  *repository.MemorySlaRepository
	breaches *repository.MemoryBreachRepository
	tasks    *repository.MemoryTaskRepository
	profiles *repository.MemoryProfileRepository
	hub      *notifications.MemoryHub
	now      time.Time
	svc      *Service
}

func newFixture(now time.Time) *fixture {
	f := &fixture{
		slaRepo:  repository.NewMemorySlaRepository(),
		breaches: repository.NewMemoryBreachRepository(),
		tasks:    repository.NewMemoryTaskRepository(),
		profiles: repository.NewMemoryProfileRepository(),
		hub:      notifications.NewMemoryHub(),
		now:      now,
	}
	f.svc = NewService(
		f.slaRepo, f.breaches, f.tasks, f.profiles,
		WithNotificationSink(f.hub),
		WithClock(func() time.Time { return f.now }),
		WithLogger(log.New(os.Stderr, "test: ", 0)),
	)
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

// wallClockPolicy is an agency-wide 1h response / 4h resolution policy
// without business-hours restrictions.
func wallClockPolicy(agencyID string) *models.SlaPolicy {
	return &models.SlaPolicy{
		AgencyID:            agencyID,
		Name:                "standard",
		ResponseTimeHours:   1,
		ResolutionTimeHours: 4,
		Status:              models.SlaPolicyStatusActive,
	}
}

func strPtr(s string) *string { return &s }
