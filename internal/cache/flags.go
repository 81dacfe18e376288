package cache

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"decidelog/internal/domain"
)

// FlagClient is the slice of the API the resolver needs.
type FlagClient interface {
	GetFeatureFlag(ctx context.Context, key string) (domain.FeatureFlag, error)
	SetFeatureFlag(ctx context.Context, key string, enabled bool) (domain.FeatureFlag, error)
}

// Resolver caches feature flags individually by key. Internally each key is
// tri-state: unknown until first fetched, then true or false. Enabled
// collapses unknown to false so gated behavior stays locked until the first
// fetch resolves (fail-closed).
type Resolver struct {
	api FlagClient
	log *zap.Logger

	mu    sync.Mutex
	known map[string]domain.FeatureFlag
}

func newResolver(client FlagClient, log *zap.Logger) *Resolver {
	return &Resolver{
		api:   client,
		log:   log,
		known: map[string]domain.FeatureFlag{},
	}
}

// Fetch populates the cache entry for one key.
func (r *Resolver) Fetch(ctx context.Context, key string) (domain.FeatureFlag, error) {
	flag, err := r.api.GetFeatureFlag(ctx, key)
	if err != nil {
		return domain.FeatureFlag{}, err
	}
	r.mu.Lock()
	r.known[key] = flag
	r.mu.Unlock()
	return flag, nil
}

// Toggle sets the flag remotely, then re-fetches to confirm the server
// state took effect. The cached entry only changes on a confirmed fetch.
func (r *Resolver) Toggle(ctx context.Context, key string, enabled bool) (domain.FeatureFlag, error) {
	if _, err := r.api.SetFeatureFlag(ctx, key, enabled); err != nil {
		return domain.FeatureFlag{}, err
	}
	flag, err := r.Fetch(ctx, key)
	if err != nil {
		return domain.FeatureFlag{}, err
	}
	r.log.Debug("feature flag toggled", zap.String("key", key), zap.Bool("enabled", flag.Enabled))
	return flag, nil
}

// Enabled is the UI-gating boundary: unknown keys are false.
func (r *Resolver) Enabled(key string) bool {
	enabled, known := r.Lookup(key)
	return known && enabled
}

// Lookup exposes the tri-state: known=false means the key has never been
// fetched, which is distinct from a fetched false.
func (r *Resolver) Lookup(key string) (enabled, known bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	flag, ok := r.known[key]
	return flag.Enabled, ok
}
