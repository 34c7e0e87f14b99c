package scheduler

import (
	"context"
	"fmt"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

const (
	// HandlerSlaScan runs breach detection and escalation processing
	// across every tenant.
	HandlerSlaScan = "sla.scan"
	// HandlerSlaAutoResolve sweeps active breaches whose tasks have
	// since completed.
	HandlerSlaAutoResolve = "sla.autoResolve"
)

func (s *Service) registerBuiltinHandlers() {
	s.RegisterHandler(HandlerSlaScan, s.handleSlaScan)
	s.RegisterHandler(HandlerSlaAutoResolve, s.handleSlaAutoResolve)
}

// handleSlaScan walks every agency and runs a full scan cycle. A
// failure in one tenant is logged and never blocks the others; the job
// only reports an error when no tenant could be scanned at all.
func (s *Service) handleSlaScan(ctx context.Context, job *models.ScheduledJob) error {
	agencies, err := s.tenants.AgenciesWithProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list agencies: %w", err)
	}

	failed := 0
	for _, agencyID := range agencies {
		if err := s.scanAgency(ctx, agencyID); err != nil {
			failed++
			s.logger.Printf("scheduler: sla scan failed for agency %s: %v", agencyID, err)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}

	if failed > 0 && failed == len(agencies) {
		return fmt.Errorf("sla scan failed for all %d agencies", failed)
	}
	return nil
}

// scanAgency isolates one tenant's scan behind a recover so a panic in
// one agency's data cannot take down the whole cycle.
func (s *Service) scanAgency(ctx context.Context, agencyID string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	result, err := s.engine.RunManualScan(ctx, agencyID)
	if err != nil {
		return err
	}
	if result.BreachesDetected > 0 || result.EscalationsTriggered > 0 {
		s.logger.Printf("scheduler: agency %s scan: %d breaches, %d escalations",
			agencyID, result.BreachesDetected, result.EscalationsTriggered)
	}
	return nil
}

func (s *Service) handleSlaAutoResolve(ctx context.Context, job *models.ScheduledJob) error {
	agencies, err := s.tenants.AgenciesWithProfiles(ctx)
	if err != nil {
		return fmt.Errorf("failed to list agencies: %w", err)
	}

	for _, agencyID := range agencies {
		count, err := s.engine.AutoResolveCompletedTasks(ctx, agencyID)
		if err != nil {
			s.logger.Printf("scheduler: auto-resolve failed for agency %s: %v", agencyID, err)
			continue
		}
		if count > 0 {
			s.logger.Printf("scheduler: agency %s: auto-resolved %d breaches", agencyID, count)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return nil
}
