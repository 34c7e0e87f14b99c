package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// MemorySlaRepository is an in-memory SlaRepository used by tests and
// standalone runs.
type MemorySlaRepository struct {
	mu       sync.RWMutex
	policies map[string]*models.SlaPolicy
	chains   map[string][]*models.EscalationChain // keyed by sla id
}

// NewMemorySlaRepository creates an empty in-memory policy repository.
func NewMemorySlaRepository() *MemorySlaRepository {
	return &MemorySlaRepository{
		policies: make(map[string]*models.SlaPolicy),
		chains:   make(map[string][]*models.EscalationChain),
	}
}

// CreatePolicy stores a copy of the policy, assigning an id when absent.
func (r *MemorySlaRepository) CreatePolicy(ctx context.Context, policy *models.SlaPolicy) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if policy.CreatedAt.IsZero() {
		policy.CreatedAt = now
	}
	policy.UpdatedAt = now
	if policy.Status == "" {
		policy.Status = models.SlaPolicyStatusActive
	}

	stored := *policy
	r.policies[policy.ID] = &stored
	return nil
}

// GetPolicy returns a copy of the policy or nil.
func (r *MemorySlaRepository) GetPolicy(ctx context.Context, id string) (*models.SlaPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.policies[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

// ActivePolicies returns copies of the agency's active policies.
func (r *MemorySlaRepository) ActivePolicies(ctx context.Context, agencyID string) ([]*models.SlaPolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var policies []*models.SlaPolicy
	for _, p := range r.policies {
		if p.AgencyID == agencyID && p.IsActive() {
			copied := *p
			policies = append(policies, &copied)
		}
	}
	return policies, nil
}

// CountActivePolicies returns the number of active policies.
func (r *MemorySlaRepository) CountActivePolicies(ctx context.Context, agencyID string) (int, error) {
	policies, _ := r.ActivePolicies(ctx, agencyID)
	return len(policies), nil
}

// SetPolicyStatus toggles policy status.
func (r *MemorySlaRepository) SetPolicyStatus(ctx context.Context, id, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.policies[id]; ok {
		p.Status = status
		p.UpdatedAt = time.Now().UTC()
	}
	return nil
}

// CreateChainLevel stores a copy of the chain level.
func (r *MemorySlaRepository) CreateChainLevel(ctx context.Context, level *models.EscalationChain) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	stored := *level
	r.chains[level.SlaID] = append(r.chains[level.SlaID], &stored)
	return nil
}

// GetChainLevel returns the entry at exactly the given level, or nil.
func (r *MemorySlaRepository) GetChainLevel(ctx context.Context, slaID string, level int) (*models.EscalationChain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.chains[slaID] {
		if c.Level == level {
			copied := *c
			return &copied, nil
		}
	}
	return nil, nil
}
