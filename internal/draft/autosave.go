package draft

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"decidelog/internal/domain"
)

// DefaultDebounce is how long the form must stay idle before the draft is
// persisted.
const DefaultDebounce = time.Second

// Autosaver observes the authoring form's working value and persists it
// after a quiet period. Each Observe resets the single pending timer; at
// most one autosave is ever scheduled.
type Autosaver struct {
	Debounce time.Duration

	store       *Store
	log         *zap.Logger
	userID      string
	workspaceID string

	mu      sync.Mutex
	timer   *time.Timer
	pending *domain.Draft
}

func NewAutosaver(store *Store, userID, workspaceID string, log *zap.Logger) *Autosaver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Autosaver{
		Debounce:    DefaultDebounce,
		store:       store,
		log:         log,
		userID:      userID,
		workspaceID: workspaceID,
	}
}

// Observe records the latest form snapshot and restarts the debounce timer.
func (a *Autosaver) Observe(d domain.Draft) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pending = &d
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.Debounce, a.fire)
}

func (a *Autosaver) fire() {
	a.mu.Lock()
	d := a.pending
	a.pending = nil
	a.timer = nil
	a.mu.Unlock()
	if d == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.store.Put(ctx, a.userID, a.workspaceID, *d); err != nil {
		a.log.Warn("draft autosave failed", zap.Error(err))
		return
	}
	a.log.Debug("draft autosaved", zap.String("workspace", a.workspaceID))
}

// Flush cancels any pending timer and persists the latest snapshot now.
func (a *Autosaver) Flush(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	d := a.pending
	a.pending = nil
	a.mu.Unlock()
	if d == nil {
		return nil
	}
	return a.store.Put(ctx, a.userID, a.workspaceID, *d)
}

// Stop cancels any pending save without persisting.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.pending = nil
}

// Clear drops both the pending snapshot and the persisted draft; called
// after a successful submit.
func (a *Autosaver) Clear(ctx context.Context) error {
	a.Stop()
	return a.store.Delete(ctx, a.userID, a.workspaceID)
}
