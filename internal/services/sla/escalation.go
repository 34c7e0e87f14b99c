package sla

import (
	"context"
	"fmt"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
	"github.com/iamrudi/AgentDash-sub003/internal/notifications"
)

// EscalateBreach advances a breach to the next configured chain level.
// Reaching past the last level is a normal terminal condition reported
// as escalated=false, not an error; so is an unknown breach id. The
// level bump commits before any side effect runs; effects report their
// own outcome in the returned list.
func (s *Service) EscalateBreach(ctx context.Context, breachID string) (bool, []Effect, error) {
	breach, err := s.breachRepo.GetBreach(ctx, breachID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load breach: %w", err)
	}
	if breach == nil || !breach.IsActive() {
		return false, nil, nil
	}

	nextLevel := breach.CurrentEscalationLevel + 1
	chain, err := s.slaRepo.GetChainLevel(ctx, breach.SlaID, nextLevel)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load chain level %d: %w", nextLevel, err)
	}
	if chain == nil {
		// Chain exhausted: the breach stays at its current level
		// awaiting manual resolution.
		return false, nil, nil
	}

	fromLevel := breach.CurrentEscalationLevel
	breach.Status = models.BreachStatusEscalated
	breach.CurrentEscalationLevel = nextLevel
	if err := s.breachRepo.UpdateBreach(ctx, breach); err != nil {
		return false, nil, fmt.Errorf("failed to persist escalation: %w", err)
	}
	_, escalations, _ := engineMetrics()
	escalations.Inc()

	effects := s.runEscalationEffects(ctx, breach, chain)

	auditEffect := Effect{Kind: EffectAudit, Target: breach.ID}
	if err := s.breachRepo.AppendEvent(ctx, &models.SlaBreachEvent{
		AgencyID:  breach.AgencyID,
		BreachID:  breach.ID,
		EventType: models.BreachEventEscalated,
		EventData: map[string]interface{}{
			"from_level": fromLevel,
			"to_level":   nextLevel,
			"profile_id": deref(chain.ProfileID),
			"notified":   chain.NotifyInApp,
			"reassigned": chain.ReassignTask,
		},
		TriggeredBy: models.TriggeredBySystem,
	}); err != nil {
		auditEffect.Err = err
		s.logger.Printf("sla: failed to record escalated event for breach %s: %v", breach.ID, err)
	}
	effects = append(effects, auditEffect)

	return true, effects, nil
}

// runEscalationEffects performs the notify/reassign actions configured
// on the chain level. Failures are recorded on the effect, logged, and
// never undo the level bump.
func (s *Service) runEscalationEffects(ctx context.Context, breach *models.SlaBreach, chain *models.EscalationChain) []Effect {
	if chain.ProfileID == nil {
		return nil
	}

	profile, err := s.profileRepo.GetProfile(ctx, *chain.ProfileID)
	if err != nil || profile == nil {
		if err == nil {
			err = fmt.Errorf("profile %s not found", *chain.ProfileID)
		}
		s.logger.Printf("sla: escalation target unavailable for breach %s: %v", breach.ID, err)
		return []Effect{{Kind: EffectNotify, Target: *chain.ProfileID, Err: err}}
	}

	var effects []Effect

	if chain.NotifyInApp {
		effect := Effect{Kind: EffectNotify, Target: profile.ID}
		if err := s.sink.CreateNotification(ctx, &notifications.Notification{
			ProfileID: profile.ID,
			Type:      notifications.TypeSlaEscalation,
			Title:     fmt.Sprintf("SLA breach escalated to level %d", chain.Level),
			Message: fmt.Sprintf("%s: a %s breach has been escalated to you",
				profile.DisplayName, breachLabel(breach.BreachType)),
			Metadata: map[string]any{
				"breach_id":   breach.ID,
				"level":       chain.Level,
				"resource_id": breach.ResourceID,
			},
		}); err != nil {
			effect.Err = err
			s.logger.Printf("sla: escalation notification failed for profile %s: %v", profile.ID, err)
		}
		effects = append(effects, effect)
	}

	if chain.ReassignTask && breach.ResourceType == ResourceTypeTask {
		effect := Effect{Kind: EffectReassign, Target: profile.ID, Detail: breach.ResourceID}
		if err := s.taskRepo.CreateAssignment(ctx, &models.TaskAssignment{
			AgencyID:  breach.AgencyID,
			TaskID:    breach.ResourceID,
			ProfileID: profile.ID,
			Role:      "escalation",
		}); err != nil {
			effect.Err = err
			s.logger.Printf("sla: escalation reassignment failed for task %s: %v", breach.ResourceID, err)
		}
		effects = append(effects, effect)
	}

	return effects
}

// ProcessEscalations advances every active breach whose next chain
// level's delay has elapsed since detection. Each call moves a breach
// at most one level, so repeated invocations are time-driven and
// idempotent. Returns the number of escalations performed.
func (s *Service) ProcessEscalations(ctx context.Context, agencyID string) (int, error) {
	breaches, err := s.breachRepo.ActiveBreaches(ctx, agencyID)
	if err != nil {
		return 0, fmt.Errorf("failed to list active breaches: %w", err)
	}

	count := 0
	for _, breach := range breaches {
		escalated, _, err := s.maybeEscalate(ctx, breach)
		if err != nil {
			s.logger.Printf("sla: escalation failed for breach %s: %v", breach.ID, err)
			continue
		}
		if escalated {
			count++
		}
	}
	return count, nil
}

// maybeEscalate escalates one breach when its next level's threshold
// has been crossed. For a business-hours-only policy the whole step is
// deferred outside business hours: the level bump and its effects fire
// together on the first in-hours cycle, keeping the state change and
// the notification for a level inseparable.
func (s *Service) maybeEscalate(ctx context.Context, breach *models.SlaBreach) (bool, []Effect, error) {
	chain, err := s.slaRepo.GetChainLevel(ctx, breach.SlaID, breach.CurrentEscalationLevel+1)
	if err != nil {
		return false, nil, err
	}
	if chain == nil {
		return false, nil, nil
	}

	now := s.now()
	elapsed := now.Sub(breach.DetectedAt).Minutes()
	if elapsed < float64(chain.EscalateAfterMinutes) {
		return false, nil, nil
	}

	policy, err := s.slaRepo.GetPolicy(ctx, breach.SlaID)
	if err != nil {
		return false, nil, err
	}
	if policy != nil && !InBusinessHours(policy, now) {
		return false, nil, nil
	}

	return s.EscalateBreach(ctx, breach.ID)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
