package sla

import (
	"context"
	"fmt"
	"time"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
	"github.com/iamrudi/AgentDash-sub003/internal/repository"
)

// GetSlaMetrics computes breach statistics over the reporting window
// that starts at midnight today (daily), the most recent Monday
// (weekly), or the first of the month (monthly). Optional slaID and
// clientID narrow the breach set.
//
// The compliance rate is a heuristic penalty score: 100 minus ten
// points per breach per active policy, floored at zero. It is not a
// ratio of on-time versus total items.
func (s *Service) GetSlaMetrics(ctx context.Context, agencyID, periodType string, slaID, clientID *string) (*models.SlaMetrics, error) {
	now := s.now()
	periodStart, err := periodStart(now, periodType)
	if err != nil {
		return nil, err
	}

	filter := repository.BreachFilter{
		AgencyID:     agencyID,
		DetectedFrom: periodStart,
	}
	if slaID != nil {
		filter.SlaID = *slaID
	}
	if clientID != nil {
		filter.ClientID = *clientID
	}

	breaches, err := s.breachRepo.ListBreaches(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list breaches for metrics: %w", err)
	}

	metrics := &models.SlaMetrics{
		AgencyID:       agencyID,
		PeriodType:     periodType,
		PeriodStart:    periodStart,
		TotalBreaches:  len(breaches),
		BreachesByType: make(map[string]int),
	}

	var durationSum, durationCount int
	for _, b := range breaches {
		metrics.BreachesByType[b.BreachType]++
		if b.Status == models.BreachStatusResolved || b.Status == models.BreachStatusAutoResolved {
			metrics.ResolvedBreaches++
			if b.BreachDurationMinutes != nil {
				durationSum += *b.BreachDurationMinutes
				durationCount++
			}
		}
	}
	if durationCount > 0 {
		metrics.AverageResolutionTime = float64(durationSum) / float64(durationCount)
	}

	metrics.ComplianceRate = 100
	if metrics.TotalBreaches > 0 {
		policyCount, err := s.slaRepo.CountActivePolicies(ctx, agencyID)
		if err != nil {
			return nil, fmt.Errorf("failed to count active policies: %w", err)
		}
		if policyCount > 0 {
			rate := 100 - (float64(metrics.TotalBreaches)/float64(policyCount))*10
			if rate < 0 {
				rate = 0
			}
			metrics.ComplianceRate = rate
		} else {
			metrics.ComplianceRate = 0
		}
	}

	return metrics, nil
}

// periodStart returns the reporting window start for the period type.
func periodStart(now time.Time, periodType string) (time.Time, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch periodType {
	case models.PeriodDaily:
		return midnight, nil
	case models.PeriodWeekly:
		// ISO week: back up to Monday.
		offset := (int(now.Weekday()) + 6) % 7
		return midnight.AddDate(0, 0, -offset), nil
	case models.PeriodMonthly:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	default:
		return time.Time{}, fmt.Errorf("unknown period type %q", periodType)
	}
}
