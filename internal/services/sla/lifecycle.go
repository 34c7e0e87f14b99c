package sla

import (
	"context"
	"errors"
	"fmt"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
	"github.com/iamrudi/AgentDash-sub003/internal/repository"
)

// ErrBreachClosed is returned when acknowledging or resolving a breach
// that already reached a terminal status. Terminal breaches never
// re-enter the active set.
var ErrBreachClosed = errors.New("breach is already closed")

// AcknowledgeBreach marks a breach as acknowledged by a user. Returns
// false for an unknown breach id; repository.ErrTenantMismatch when the
// breach belongs to a different agency; ErrBreachClosed for a breach
// already resolved (the row is untouched in both cases).
// Acknowledgement does not halt escalation timers.
func (s *Service) AcknowledgeBreach(ctx context.Context, breachID, userID, agencyID string, notes *string) (bool, error) {
	breach, err := s.breachRepo.GetBreach(ctx, breachID)
	if err != nil {
		return false, fmt.Errorf("failed to load breach: %w", err)
	}
	if breach == nil {
		return false, nil
	}
	if breach.AgencyID != agencyID {
		return false, repository.ErrTenantMismatch
	}
	if !breach.IsActive() {
		return false, ErrBreachClosed
	}

	now := s.now()
	breach.Status = models.BreachStatusAcknowledged
	breach.AcknowledgedAt = &now
	breach.AcknowledgedBy = &userID
	breach.AcknowledgeNotes = notes
	if err := s.breachRepo.UpdateBreach(ctx, breach); err != nil {
		return false, fmt.Errorf("failed to acknowledge breach: %w", err)
	}

	if err := s.breachRepo.AppendEvent(ctx, &models.SlaBreachEvent{
		AgencyID:  breach.AgencyID,
		BreachID:  breach.ID,
		EventType: models.BreachEventAcknowledged,
		EventData: map[string]interface{}{
			"notes": deref(notes),
		},
		TriggeredBy: models.TriggeredByUser,
		UserID:      &userID,
	}); err != nil {
		s.logger.Printf("sla: failed to record acknowledged event for breach %s: %v", breach.ID, err)
	}

	return true, nil
}

// ResolveBreach closes a breach. The recorded duration is the time
// spent past the deadline, not the total time since detection. Returns
// false for an unknown id; repository.ErrTenantMismatch for a foreign
// tenant; ErrBreachClosed when the breach is already terminal.
func (s *Service) ResolveBreach(ctx context.Context, breachID, userID, agencyID string, autoResolved bool) (bool, error) {
	breach, err := s.breachRepo.GetBreach(ctx, breachID)
	if err != nil {
		return false, fmt.Errorf("failed to load breach: %w", err)
	}
	if breach == nil {
		return false, nil
	}
	if breach.AgencyID != agencyID {
		return false, repository.ErrTenantMismatch
	}
	if !breach.IsActive() {
		return false, ErrBreachClosed
	}

	now := s.now()
	duration := int(now.Sub(breach.DeadlineAt).Minutes())
	if duration < 0 {
		duration = 0
	}

	breach.Status = models.BreachStatusResolved
	if autoResolved {
		breach.Status = models.BreachStatusAutoResolved
	}
	breach.ResolvedAt = &now
	breach.ResolvedBy = &userID
	breach.BreachDurationMinutes = &duration
	if err := s.breachRepo.UpdateBreach(ctx, breach); err != nil {
		return false, fmt.Errorf("failed to resolve breach: %w", err)
	}

	triggeredBy := models.TriggeredByUser
	if autoResolved {
		triggeredBy = models.TriggeredBySystem
	}
	if err := s.breachRepo.AppendEvent(ctx, &models.SlaBreachEvent{
		AgencyID:  breach.AgencyID,
		BreachID:  breach.ID,
		EventType: models.BreachEventResolved,
		EventData: map[string]interface{}{
			"auto_resolved":           autoResolved,
			"breach_duration_minutes": duration,
		},
		TriggeredBy: triggeredBy,
		UserID:      &userID,
	}); err != nil {
		s.logger.Printf("sla: failed to record resolved event for breach %s: %v", breach.ID, err)
	}

	return true, nil
}

// AutoResolveCompletedTasks sweeps the tenant's active breaches and
// auto-resolves those whose underlying task has independently reached a
// terminal state. The acknowledger acts as the resolving actor when one
// exists; otherwise the agency id stands in. Returns the number of
// breaches resolved.
func (s *Service) AutoResolveCompletedTasks(ctx context.Context, agencyID string) (int, error) {
	breaches, err := s.breachRepo.ActiveBreaches(ctx, agencyID)
	if err != nil {
		return 0, fmt.Errorf("failed to list active breaches: %w", err)
	}

	count := 0
	for _, breach := range breaches {
		if breach.ResourceType != ResourceTypeTask {
			continue
		}
		task, err := s.taskRepo.GetTask(ctx, breach.ResourceID)
		if err != nil {
			s.logger.Printf("sla: failed to load task %s for auto-resolve: %v", breach.ResourceID, err)
			continue
		}
		if task == nil || !task.IsTerminal() {
			continue
		}

		resolver := agencyID
		if breach.AcknowledgedBy != nil {
			resolver = *breach.AcknowledgedBy
		}
		ok, err := s.ResolveBreach(ctx, breach.ID, resolver, agencyID, true)
		if err != nil {
			s.logger.Printf("sla: auto-resolve failed for breach %s: %v", breach.ID, err)
			continue
		}
		if ok {
			count++
		}
	}
	return count, nil
}
