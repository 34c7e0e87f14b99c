package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// MemoryBreachRepository is an in-memory BreachRepository. It enforces
// the same at-most-one-active-breach invariant as the SQL partial
// unique index, under its mutex.
type MemoryBreachRepository struct {
	mu       sync.RWMutex
	breaches map[string]*models.SlaBreach
	events   map[string][]*models.SlaBreachEvent
	// policyClient mirrors the sla_policy join the SQL filter uses for
	// client scoping; populated lazily via RegisterPolicyClient.
	policyClient map[string]string
}

// NewMemoryBreachRepository creates an empty in-memory breach
// repository.
func NewMemoryBreachRepository() *MemoryBreachRepository {
	return &MemoryBreachRepository{
		breaches:     make(map[string]*models.SlaBreach),
		events:       make(map[string][]*models.SlaBreachEvent),
		policyClient: make(map[string]string),
	}
}

// RegisterPolicyClient records the client scope of a policy so that
// ListBreaches can honor BreachFilter.ClientID the way the SQL join
// does.
func (r *MemoryBreachRepository) RegisterPolicyClient(slaID, clientID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.policyClient[slaID] = clientID
}

// CreateBreach stores a copy of the breach, enforcing the active-breach
// uniqueness guard.
func (r *MemoryBreachRepository) CreateBreach(ctx context.Context, breach *models.SlaBreach) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.breaches {
		if existing.SlaID == breach.SlaID && existing.ResourceID == breach.ResourceID && existing.IsActive() {
			return ErrActiveBreachExists
		}
	}

	if breach.ID == "" {
		breach.ID = uuid.NewString()
	}
	if breach.Status == "" {
		breach.Status = models.BreachStatusDetected
	}
	if breach.DetectedAt.IsZero() {
		breach.DetectedAt = time.Now().UTC()
	}

	stored := *breach
	r.breaches[breach.ID] = &stored
	return nil
}

// GetBreach returns a copy of the breach or nil.
func (r *MemoryBreachRepository) GetBreach(ctx context.Context, id string) (*models.SlaBreach, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.breaches[id]
	if !ok {
		return nil, nil
	}
	copied := *b
	return &copied, nil
}

// UpdateBreach replaces the stored row with the given state.
func (r *MemoryBreachRepository) UpdateBreach(ctx context.Context, breach *models.SlaBreach) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.breaches[breach.ID]; !ok {
		return nil
	}
	stored := *breach
	r.breaches[breach.ID] = &stored
	return nil
}

// HasActiveBreach reports whether an active breach covers the pair.
func (r *MemoryBreachRepository) HasActiveBreach(ctx context.Context, slaID, resourceID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, b := range r.breaches {
		if b.SlaID == slaID && b.ResourceID == resourceID && b.IsActive() {
			return true, nil
		}
	}
	return false, nil
}

// ActiveBreaches returns copies of all non-terminal breaches for an
// agency, oldest first.
func (r *MemoryBreachRepository) ActiveBreaches(ctx context.Context, agencyID string) ([]*models.SlaBreach, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var breaches []*models.SlaBreach
	for _, b := range r.breaches {
		if b.AgencyID == agencyID && b.IsActive() {
			copied := *b
			breaches = append(breaches, &copied)
		}
	}
	sort.Slice(breaches, func(i, j int) bool {
		return breaches[i].DetectedAt.Before(breaches[j].DetectedAt)
	})
	return breaches, nil
}

// ListBreaches returns filtered breach history, newest first.
func (r *MemoryBreachRepository) ListBreaches(ctx context.Context, filter BreachFilter) ([]*models.SlaBreach, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var breaches []*models.SlaBreach
	for _, b := range r.breaches {
		if filter.AgencyID != "" && b.AgencyID != filter.AgencyID {
			continue
		}
		if filter.SlaID != "" && b.SlaID != filter.SlaID {
			continue
		}
		if filter.ClientID != "" && r.policyClient[b.SlaID] != filter.ClientID {
			continue
		}
		if filter.ResourceID != "" && b.ResourceID != filter.ResourceID {
			continue
		}
		if filter.Status != "" && b.Status != filter.Status {
			continue
		}
		if filter.BreachType != "" && b.BreachType != filter.BreachType {
			continue
		}
		if !filter.DetectedFrom.IsZero() && b.DetectedAt.Before(filter.DetectedFrom) {
			continue
		}
		if !filter.DetectedTo.IsZero() && !b.DetectedAt.Before(filter.DetectedTo) {
			continue
		}
		copied := *b
		breaches = append(breaches, &copied)
	}
	sort.Slice(breaches, func(i, j int) bool {
		return breaches[i].DetectedAt.After(breaches[j].DetectedAt)
	})
	if filter.Limit > 0 && len(breaches) > filter.Limit {
		breaches = breaches[:filter.Limit]
	}
	return breaches, nil
}

// AppendEvent stores a copy of the audit event.
func (r *MemoryBreachRepository) AppendEvent(ctx context.Context, event *models.SlaBreachEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.TriggeredBy == "" {
		event.TriggeredBy = models.TriggeredBySystem
	}

	stored := *event
	r.events[event.BreachID] = append(r.events[event.BreachID], &stored)
	return nil
}

// ListEvents returns the audit trail for a breach in insertion order.
func (r *MemoryBreachRepository) ListEvents(ctx context.Context, breachID string) ([]*models.SlaBreachEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	events := make([]*models.SlaBreachEvent, 0, len(r.events[breachID]))
	for _, e := range r.events[breachID] {
		copied := *e
		events = append(events, &copied)
	}
	return events, nil
}
