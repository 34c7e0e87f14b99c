package sla

import (
	"context"
	"fmt"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// ResolvePolicy selects the single most specific active policy for the
// given scope: project-scoped first, then client-scoped (without a
// project), then agency-wide. At each step the candidate must also pass
// the resource-type and priority filters; otherwise resolution falls
// through to the next broader scope. Returns nil when nothing applies.
func (s *Service) ResolvePolicy(ctx context.Context, agencyID string, clientID, projectID *string, resourceType, priority string) (*models.SlaPolicy, error) {
	policies, err := s.activePolicies(ctx, agencyID)
	if err != nil {
		return nil, err
	}

	matches := func(p *models.SlaPolicy) bool {
		return p.AppliesToResource(resourceType) && p.MatchesPriority(priority)
	}

	// Project scope.
	if projectID != nil {
		for _, p := range policies {
			if p.ProjectID != nil && *p.ProjectID == *projectID && matches(p) {
				return p, nil
			}
		}
	}

	// Client scope, not narrowed to any project.
	if clientID != nil {
		for _, p := range policies {
			if p.ProjectID == nil && p.ClientID != nil && *p.ClientID == *clientID && matches(p) {
				return p, nil
			}
		}
	}

	// Agency-wide.
	for _, p := range policies {
		if p.ProjectID == nil && p.ClientID == nil && matches(p) {
			return p, nil
		}
	}

	return nil, nil
}

// activePolicies returns the agency's active policies, from the cache
// when one is wired.
func (s *Service) activePolicies(ctx context.Context, agencyID string) ([]*models.SlaPolicy, error) {
	if cached, ok := s.policyCache.GetPolicies(ctx, agencyID); ok {
		return cached, nil
	}

	policies, err := s.slaRepo.ActivePolicies(ctx, agencyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active policies: %w", err)
	}
	s.policyCache.SetPolicies(ctx, agencyID, policies)
	return policies, nil
}
