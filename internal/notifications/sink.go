// Package notifications defines the in-app notification sink consumed
// by the SLA engine. Delivery transport belongs to the surrounding
// application; the engine only creates notifications, fire-and-forget.
package notifications

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Notification types emitted by the SLA engine.
const (
	TypeSlaBreach     = "sla_breach"
	TypeSlaEscalation = "sla_escalation"
)

// Notification is one in-app notification addressed to a profile.
type Notification struct {
	ID        string         `json:"id"`
	ProfileID string         `json:"profile_id"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Sink accepts notifications. Implementations must be safe for
// concurrent use. A Sink failure never propagates past the caller's
// effect bookkeeping.
type Sink interface {
	CreateNotification(ctx context.Context, n *Notification) error
}

// MemoryHub is the default Sink: it records notifications in memory.
// Tests read them back through Notifications.
type MemoryHub struct {
	mu            sync.RWMutex
	notifications []*Notification
}

// NewMemoryHub creates an empty in-memory sink.
func NewMemoryHub() *MemoryHub {
	return &MemoryHub{}
}

// CreateNotification records the notification.
func (h *MemoryHub) CreateNotification(ctx context.Context, n *Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	stored := *n
	h.notifications = append(h.notifications, &stored)
	return nil
}

// Notifications returns a copy of everything recorded, oldest first.
func (h *MemoryHub) Notifications() []*Notification {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Notification, 0, len(h.notifications))
	for _, n := range h.notifications {
		copied := *n
		out = append(out, &copied)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ForProfile returns recorded notifications addressed to one profile.
func (h *MemoryHub) ForProfile(profileID string) []*Notification {
	var out []*Notification
	for _, n := range h.Notifications() {
		if n.ProfileID == profileID {
			out = append(out, n)
		}
	}
	return out
}
