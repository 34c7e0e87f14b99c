// Package cache provides an optional Redis-backed cache for resolved
// SLA policy sets. The policy resolver works without it; when
// configured it saves one policy query per scanned task.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/iamrudi/AgentDash-sub003/internal/models"
)

// Config defines the Redis connection and cache behavior.
type Config struct {
	Addr       string
	Password   string
	DB         int
	KeyPrefix  string
	DefaultTTL time.Duration
	PoolSize   int
}

// PolicyCache caches active policy lists per agency. All methods are
// nil-receiver safe so callers can wire it unconditionally.
type PolicyCache struct {
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	metrics *cacheMetrics
}

type cacheMetrics struct {
	hits   prometheus.Counter
	misses prometheus.Counter
	errors prometheus.Counter
}

func newCacheMetrics() *cacheMetrics {
	return &cacheMetrics{
		hits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sla_policy_cache_hits_total",
			Help: "Total number of policy cache hits",
		}),
		misses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sla_policy_cache_misses_total",
			Help: "Total number of policy cache misses",
		}),
		errors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sla_policy_cache_errors_total",
			Help: "Total number of policy cache errors",
		}),
	}
}

// NewPolicyCache connects to Redis and verifies the connection.
func NewPolicyCache(cfg *Config) (*PolicyCache, error) {
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "sla"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &PolicyCache{
		client:  client,
		ttl:     ttl,
		prefix:  prefix,
		metrics: newCacheMetrics(),
	}, nil
}

func (c *PolicyCache) key(agencyID string) string {
	return c.prefix + ":policies:" + agencyID
}

// GetPolicies returns the cached active policy list for an agency, or
// (nil, false) on a miss. Errors count as misses; the resolver falls
// back to the repository.
func (c *PolicyCache) GetPolicies(ctx context.Context, agencyID string) ([]*models.SlaPolicy, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}

	raw, err := c.client.Get(ctx, c.key(agencyID)).Bytes()
	if err == redis.Nil {
		c.metrics.misses.Inc()
		return nil, false
	}
	if err != nil {
		c.metrics.errors.Inc()
		return nil, false
	}

	var policies []*models.SlaPolicy
	if err := json.Unmarshal(raw, &policies); err != nil {
		c.metrics.errors.Inc()
		return nil, false
	}
	c.metrics.hits.Inc()
	return policies, true
}

// SetPolicies caches the active policy list for an agency.
func (c *PolicyCache) SetPolicies(ctx context.Context, agencyID string, policies []*models.SlaPolicy) {
	if c == nil || c.client == nil {
		return
	}

	raw, err := json.Marshal(policies)
	if err != nil {
		c.metrics.errors.Inc()
		return
	}
	if err := c.client.Set(ctx, c.key(agencyID), raw, c.ttl).Err(); err != nil {
		c.metrics.errors.Inc()
	}
}

// Invalidate drops the cached policy list for an agency. Call after
// policy edits or status toggles.
func (c *PolicyCache) Invalidate(ctx context.Context, agencyID string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, c.key(agencyID)).Err(); err != nil {
		c.metrics.errors.Inc()
	}
}

// Close releases the underlying Redis connection.
func (c *PolicyCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
