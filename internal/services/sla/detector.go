package sla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
	"github.com/iamrudi/AgentDash-sub003/internal/notifications"
	"github.com/iamrudi/AgentDash-sub003/internal/repository"
)

// DetectBreaches scans the tenant's outstanding tasks against every
// active policy and records newly violated deadlines. Items already
// covered by an active breach are skipped, which makes repeated scans
// idempotent. Returns the breaches created by this invocation.
func (s *Service) DetectBreaches(ctx context.Context, agencyID string) ([]*models.SlaBreach, error) {
	policies, err := s.activePolicies(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var created []*models.SlaBreach

	for _, policy := range policies {
		if !policy.AppliesToResource(ResourceTypeTask) {
			continue
		}

		tasks, err := s.taskRepo.OpenTasks(ctx, agencyID, policy.ProjectID)
		if err != nil {
			return created, fmt.Errorf("failed to list open tasks: %w", err)
		}

		for _, task := range tasks {
			if !policy.MatchesPriority(task.Priority) {
				continue
			}

			active, err := s.breachRepo.HasActiveBreach(ctx, policy.ID, task.ID)
			if err != nil {
				return created, fmt.Errorf("failed to check active breach: %w", err)
			}
			if active {
				continue
			}

			hasAssignment, err := s.taskRepo.HasAssignment(ctx, task.ID)
			if err != nil {
				return created, fmt.Errorf("failed to check assignment: %w", err)
			}
			hasResponse := task.HasReceivedResponse(hasAssignment)

			// Response-time is checked first and is exclusive for this
			// pass; a resolution breach for the same item can only be
			// raised on a later scan, after the response exists.
			var breach *models.SlaBreach
			if !hasResponse {
				deadline := ResponseDeadline(task.CreatedAt, policy)
				if now.After(deadline) {
					breach = s.newBreach(policy, task, models.BreachTypeResponseTime, deadline)
				}
			} else if task.IsOpen() {
				deadline := ResolutionDeadline(task.CreatedAt, policy)
				if now.After(deadline) {
					breach = s.newBreach(policy, task, models.BreachTypeResolutionTime, deadline)
				}
			}
			if breach == nil {
				continue
			}

			if err := s.createBreach(ctx, breach, task); err != nil {
				if errors.Is(err, repository.ErrActiveBreachExists) {
					// A concurrent scan won the insert; treat as skip.
					continue
				}
				return created, err
			}
			created = append(created, breach)
		}
	}

	return created, nil
}

func (s *Service) newBreach(policy *models.SlaPolicy, task *models.Task, breachType string, deadline time.Time) *models.SlaBreach {
	return &models.SlaBreach{
		AgencyID:     policy.AgencyID,
		SlaID:        policy.ID,
		ResourceType: ResourceTypeTask,
		ResourceID:   task.ID,
		BreachType:   breachType,
		DeadlineAt:   deadline,
		Status:       models.BreachStatusDetected,
		DetectedAt:   s.now(),
	}
}

// createBreach persists the breach row (the primary guarantee), then
// best-effort appends the detected audit event and runs the on-breach
// notification. Side-effect failures are logged and never roll the row
// back.
func (s *Service) createBreach(ctx context.Context, breach *models.SlaBreach, task *models.Task) error {
	if err := s.breachRepo.CreateBreach(ctx, breach); err != nil {
		return err
	}
	detected, _, _ := engineMetrics()
	detected.WithLabelValues(breach.BreachType).Inc()

	if err := s.breachRepo.AppendEvent(ctx, &models.SlaBreachEvent{
		AgencyID:  breach.AgencyID,
		BreachID:  breach.ID,
		EventType: models.BreachEventDetected,
		EventData: map[string]interface{}{
			"breach_type": breach.BreachType,
			"resource_id": breach.ResourceID,
			"deadline_at": breach.DeadlineAt,
		},
		TriggeredBy: models.TriggeredBySystem,
	}); err != nil {
		s.logger.Printf("sla: failed to record detected event for breach %s: %v", breach.ID, err)
	}

	// On-breach notification to whoever is currently assigned. For a
	// response-time breach nobody is, by definition of the response
	// heuristic, so this only fires for resolution breaches.
	profiles, err := s.taskRepo.AssignedProfiles(ctx, task.ID)
	if err != nil {
		s.logger.Printf("sla: failed to list assignees for task %s: %v", task.ID, err)
		return nil
	}
	for _, profileID := range profiles {
		if err := s.sink.CreateNotification(ctx, &notifications.Notification{
			ProfileID: profileID,
			Type:      notifications.TypeSlaBreach,
			Title:     "SLA deadline missed",
			Message:   fmt.Sprintf("Task %q missed its %s deadline", task.Title, breachLabel(breach.BreachType)),
			Metadata: map[string]any{
				"breach_id":   breach.ID,
				"task_id":     task.ID,
				"breach_type": breach.BreachType,
			},
		}); err != nil {
			s.logger.Printf("sla: breach notification failed for profile %s: %v", profileID, err)
		}
	}

	return nil
}

func breachLabel(breachType string) string {
	if breachType == models.BreachTypeResponseTime {
		return "response"
	}
	return "resolution"
}
