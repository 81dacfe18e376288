// Package cache holds the canonical client-side copy of every entity
// fetched so far and reconciles optimistic local edits against the remote
// API. All list reads are views filtered by the active workspace; entities
// belonging to inactive workspaces stay resident until a refetch replaces
// them.
//
// Every mutation is fire, optimistically apply, then confirm-or-rollback.
// There is no queued retry and no cancellation of in-flight requests.
// Responses are applied in arrival order: when callers overlap requests for
// the same entity, an older response that resolves late overwrites newer
// data. There is no request sequence tagging to reject stale responses.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"decidelog/internal/api"
	"decidelog/internal/domain"
	"decidelog/internal/errs"
)

// Client is the remote API surface the cache depends on. *api.Client
// satisfies it; tests substitute fakes.
type Client interface {
	ListWorkspaces(ctx context.Context) ([]domain.Workspace, error)
	UpdateWorkspace(ctx context.Context, id, name string) (domain.Workspace, error)
	ListDecisions(ctx context.Context, workspaceID string) ([]domain.Decision, error)
	CreateDecision(ctx context.Context, input domain.DecisionInput) (domain.Decision, error)
	UpdateDecision(ctx context.Context, id string, patch domain.DecisionPatch) (domain.Decision, error)
	UpdateDecisionStatus(ctx context.Context, id string, status domain.Status) (domain.Decision, error)
	LinkDecision(ctx context.Context, id string, link domain.Link) (domain.Decision, error)
	ListComments(ctx context.Context, decisionID string) ([]domain.Comment, error)
	CreateComment(ctx context.Context, decisionID, text string, anonymous bool) (domain.Comment, error)
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
	MarkNotificationRead(ctx context.Context, id string) (domain.Notification, error)
	GetFeatureFlag(ctx context.Context, key string) (domain.FeatureFlag, error)
	SetFeatureFlag(ctx context.Context, key string, enabled bool) (domain.FeatureFlag, error)
	Blindspot(ctx context.Context, decisionID string) (api.BlindspotResult, error)
	SuggestTags(ctx context.Context, title, contextText string) ([]string, error)
	CreateCheckoutSession(ctx context.Context, plan domain.PlanTier) (api.CheckoutSession, error)
}

// Cache is the process-wide entity store. Construct one per session with
// New and share it; only the cache mutates its own state, and each state
// transition applies atomically under the internal lock.
type Cache struct {
	Now func() time.Time

	api      Client
	log      *zap.Logger
	flags    *Resolver
	validate *validator.Validate

	mu              sync.Mutex
	activeWorkspace string
	user            domain.User
	workspaces      []domain.Workspace
	decisions       []domain.Decision
	notifications   []domain.Notification
}

func New(client Client, log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return domain.ValidCategory(domain.Category(fl.Field().String()))
	})
	return &Cache{
		Now:      time.Now,
		api:      client,
		log:      log,
		flags:    newResolver(client, log),
		validate: v,
	}
}

// Flags exposes the feature flag resolver.
func (c *Cache) Flags() *Resolver { return c.flags }

// SetUser records the session user; MadeBy and comment authorship use it.
func (c *Cache) SetUser(u domain.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.user = u
	if c.activeWorkspace == "" {
		c.activeWorkspace = u.WorkspaceID
	}
}

func (c *Cache) User() domain.User {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.user
}

func (c *Cache) ActiveWorkspace() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.activeWorkspace
}

// Decisions returns the active-workspace view, deep-copied.
func (c *Cache) Decisions() []domain.Decision {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []domain.Decision
	for _, d := range c.decisions {
		if d.WorkspaceID == c.activeWorkspace {
			out = append(out, d.Clone())
		}
	}
	return out
}

// Decision looks up one decision by id across all resident workspaces.
func (c *Cache) Decision(id string) (domain.Decision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(id); i >= 0 {
		return c.decisions[i].Clone(), true
	}
	return domain.Decision{}, false
}

func (c *Cache) Workspaces() []domain.Workspace {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Workspace(nil), c.workspaces...)
}

func (c *Cache) Notifications() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.Notification(nil), c.notifications...)
}

func (c *Cache) UnreadCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, nt := range c.notifications {
		if !nt.IsRead {
			n++
		}
	}
	return n
}

// FetchWorkspaces replaces the workspace slice with server data. On error
// the prior slice is left intact.
func (c *Cache) FetchWorkspaces(ctx context.Context) error {
	ws, err := c.api.ListWorkspaces(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.workspaces = ws
	c.mu.Unlock()
	return nil
}

// RenameWorkspace renames a workspace optimistically with rollback.
func (c *Cache) RenameWorkspace(ctx context.Context, id, name string) (domain.Workspace, error) {
	c.mu.Lock()
	idx := -1
	for j, w := range c.workspaces {
		if w.ID == id {
			idx = j
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return domain.Workspace{}, errs.NewNotFound("workspace", id)
	}
	was := c.workspaces[idx].Name
	c.workspaces[idx].Name = name
	c.mu.Unlock()

	confirmed, err := c.api.UpdateWorkspace(ctx, id, name)
	c.mu.Lock()
	defer c.mu.Unlock()
	for j := range c.workspaces {
		if c.workspaces[j].ID != id {
			continue
		}
		if err != nil {
			c.workspaces[j].Name = was
			return domain.Workspace{}, err
		}
		c.workspaces[j] = confirmed
		break
	}
	if err != nil {
		return domain.Workspace{}, err
	}
	return confirmed, nil
}

// FetchDecisions replaces the cached decisions of one workspace with server
// data. Decisions of other workspaces stay resident. On error nothing
// changes.
func (c *Cache) FetchDecisions(ctx context.Context, workspaceID string) error {
	fetched, err := c.api.ListDecisions(ctx, workspaceID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	kept := c.decisions[:0:0]
	for _, d := range c.decisions {
		if d.WorkspaceID != workspaceID {
			kept = append(kept, d)
		}
	}
	c.decisions = append(kept, fetched...)
	c.mu.Unlock()
	c.log.Debug("decisions refetched", zap.String("workspace", workspaceID), zap.Int("count", len(fetched)))
	return nil
}

func (c *Cache) FetchNotifications(ctx context.Context) error {
	items, err := c.api.ListNotifications(ctx)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.notifications = items
	c.mu.Unlock()
	return nil
}

// FetchComments replaces one decision's comment list with server data.
func (c *Cache) FetchComments(ctx context.Context, decisionID string) error {
	comments, err := c.api.ListComments(ctx, decisionID)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(decisionID)
	if i < 0 {
		return errs.NewNotFound("decision", decisionID)
	}
	c.decisions[i].Comments = comments
	return nil
}

// SwitchWorkspace changes the active workspace id and refetches its
// decisions. The switch itself always takes effect; a refetch failure is
// returned but the id stays switched. Requests already in flight for the
// previous workspace are not cancelled; if one resolves later its results
// are still merged in, visible once the user switches back.
func (c *Cache) SwitchWorkspace(ctx context.Context, id string) error {
	c.mu.Lock()
	c.activeWorkspace = id
	c.mu.Unlock()
	c.log.Debug("workspace switched", zap.String("workspace", id))
	return c.FetchDecisions(ctx, id)
}

// AddDecision validates the payload locally, inserts a temporary record
// with a local id, then issues the create call. On success the temporary
// record is replaced in its slot by the server-confirmed decision; on
// failure it is removed and the error returned. No automatic retry.
func (c *Cache) AddDecision(ctx context.Context, input domain.DecisionInput) (domain.Decision, error) {
	if err := c.validate.Struct(input); err != nil {
		return domain.Decision{}, errs.NewValidation(err.Error())
	}
	now := c.Now().UTC()
	c.mu.Lock()
	temp := domain.Decision{
		ID:              "local-" + uuid.New().String(),
		WorkspaceID:     c.activeWorkspace,
		Title:           input.Title,
		Category:        input.Category,
		Decision:        input.Decision,
		Context:         input.Context,
		Alternatives:    input.Alternatives,
		Assumptions:     input.Assumptions,
		SuccessCriteria: input.SuccessCriteria,
		Status:          domain.StatusActive,
		MadeBy:          c.user.ID,
		MadeOn:          now,
		Privacy:         input.Privacy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if temp.Privacy == "" {
		temp.Privacy = domain.PrivacyWorkspace
	}
	c.decisions = append(c.decisions, temp)
	c.mu.Unlock()

	confirmed, err := c.api.CreateDecision(ctx, input)
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(temp.ID)
	if err != nil {
		if i >= 0 {
			c.decisions = append(c.decisions[:i], c.decisions[i+1:]...)
		}
		c.log.Warn("decision create failed, temp record removed", zap.Error(err))
		return domain.Decision{}, err
	}
	if i >= 0 {
		c.decisions[i] = confirmed
	} else {
		c.decisions = append(c.decisions, confirmed)
	}
	return confirmed.Clone(), nil
}

// UpdateDecisionStatus rejects invalid forward transitions, applies the new
// status optimistically, then confirms. On failure the pre-update snapshot
// is restored.
func (c *Cache) UpdateDecisionStatus(ctx context.Context, id string, status domain.Status) (domain.Decision, error) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return domain.Decision{}, errs.NewNotFound("decision", id)
	}
	if err := domain.EnsureTransition(c.decisions[i].Status, status); err != nil {
		c.mu.Unlock()
		return domain.Decision{}, errs.NewTransition(err.Error())
	}
	snapshot := c.decisions[i].Clone()
	c.decisions[i].Status = status
	c.decisions[i].UpdatedAt = c.Now().UTC()
	c.mu.Unlock()

	confirmed, err := c.api.UpdateDecisionStatus(ctx, id, status)
	return c.confirmOrRollback(id, snapshot, confirmed, err)
}

// UpdateDecision applies a partial edit optimistically and confirms it.
func (c *Cache) UpdateDecision(ctx context.Context, id string, patch domain.DecisionPatch) (domain.Decision, error) {
	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return domain.Decision{}, errs.NewNotFound("decision", id)
	}
	snapshot := c.decisions[i].Clone()
	patch.Apply(&c.decisions[i])
	c.decisions[i].UpdatedAt = c.Now().UTC()
	c.mu.Unlock()

	confirmed, err := c.api.UpdateDecision(ctx, id, patch)
	return c.confirmOrRollback(id, snapshot, confirmed, err)
}

// LinkDecision guards against self-links and duplicate (type, target) pairs
// before mutating, then follows the optimistic-then-confirm pattern.
func (c *Cache) LinkDecision(ctx context.Context, sourceID, targetID, linkType string) (domain.Decision, error) {
	link := domain.Link{Type: linkType, TargetID: targetID}
	c.mu.Lock()
	i := c.indexOf(sourceID)
	if i < 0 {
		c.mu.Unlock()
		return domain.Decision{}, errs.NewNotFound("decision", sourceID)
	}
	if err := domain.ValidateLink(c.decisions[i], link); err != nil {
		c.mu.Unlock()
		return domain.Decision{}, errs.NewValidation(err.Error())
	}
	snapshot := c.decisions[i].Clone()
	c.decisions[i].Links = append(c.decisions[i].Links, link)
	c.mu.Unlock()

	confirmed, err := c.api.LinkDecision(ctx, sourceID, link)
	return c.confirmOrRollback(sourceID, snapshot, confirmed, err)
}

// AddComment appends optimistically to the decision's comment list and
// swaps in the server-confirmed comment, or removes it on failure.
func (c *Cache) AddComment(ctx context.Context, decisionID, text string, anonymous bool) (domain.Comment, error) {
	if text == "" {
		return domain.Comment{}, errs.NewValidation("comment text is required")
	}
	c.mu.Lock()
	i := c.indexOf(decisionID)
	if i < 0 {
		c.mu.Unlock()
		return domain.Comment{}, errs.NewNotFound("decision", decisionID)
	}
	temp := domain.Comment{
		ID:          "local-" + uuid.New().String(),
		DecisionID:  decisionID,
		Text:        text,
		Author:      c.user.ID,
		IsAnonymous: anonymous,
		CreatedAt:   c.Now().UTC(),
	}
	c.decisions[i].Comments = append(c.decisions[i].Comments, temp)
	c.mu.Unlock()

	confirmed, err := c.api.CreateComment(ctx, decisionID, text, anonymous)
	c.mu.Lock()
	defer c.mu.Unlock()
	i = c.indexOf(decisionID)
	if i < 0 {
		if err != nil {
			return domain.Comment{}, err
		}
		return confirmed, nil
	}
	for j, cm := range c.decisions[i].Comments {
		if cm.ID != temp.ID {
			continue
		}
		if err != nil {
			c.decisions[i].Comments = append(c.decisions[i].Comments[:j], c.decisions[i].Comments[j+1:]...)
			return domain.Comment{}, err
		}
		c.decisions[i].Comments[j] = confirmed
		break
	}
	if err != nil {
		return domain.Comment{}, err
	}
	return confirmed, nil
}

// MarkNotificationRead flips the read flag optimistically with rollback.
func (c *Cache) MarkNotificationRead(ctx context.Context, id string) error {
	c.mu.Lock()
	idx := -1
	for j, n := range c.notifications {
		if n.ID == id {
			idx = j
			break
		}
	}
	if idx < 0 {
		c.mu.Unlock()
		return errs.NewNotFound("notification", id)
	}
	was := c.notifications[idx].IsRead
	c.notifications[idx].IsRead = true
	c.mu.Unlock()

	if _, err := c.api.MarkNotificationRead(ctx, id); err != nil {
		c.mu.Lock()
		for j := range c.notifications {
			if c.notifications[j].ID == id {
				c.notifications[j].IsRead = was
				break
			}
		}
		c.mu.Unlock()
		return err
	}
	return nil
}

// RequestBlindspot asks the AI endpoint for a risk analysis and stores the
// score on the cached decision.
func (c *Cache) RequestBlindspot(ctx context.Context, decisionID string) (api.BlindspotResult, error) {
	res, err := c.api.Blindspot(ctx, decisionID)
	if err != nil {
		return api.BlindspotResult{}, err
	}
	c.mu.Lock()
	if i := c.indexOf(decisionID); i >= 0 {
		score := res.Score
		c.decisions[i].AIRiskScore = &score
	}
	c.mu.Unlock()
	return res, nil
}

// SuggestTags is a passthrough to the AI tagging endpoint.
func (c *Cache) SuggestTags(ctx context.Context, title, contextText string) ([]string, error) {
	return c.api.SuggestTags(ctx, title, contextText)
}

// CreateCheckoutSession is a passthrough to billing; the caller follows the
// returned redirect URL.
func (c *Cache) CreateCheckoutSession(ctx context.Context, plan domain.PlanTier) (api.CheckoutSession, error) {
	return c.api.CreateCheckoutSession(ctx, plan)
}

// confirmOrRollback applies the confirmed entity into the id's slot, or
// restores the pre-mutation snapshot when the call failed. Applied in
// arrival order, whatever is in the slot by now loses.
func (c *Cache) confirmOrRollback(id string, snapshot, confirmed domain.Decision, err error) (domain.Decision, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if err != nil {
		if i >= 0 {
			c.decisions[i] = snapshot
		} else {
			c.decisions = append(c.decisions, snapshot)
		}
		c.log.Warn("mutation failed, snapshot restored", zap.String("decision", id), zap.Error(err))
		return domain.Decision{}, err
	}
	if i >= 0 {
		c.decisions[i] = confirmed
	} else {
		c.decisions = append(c.decisions, confirmed)
	}
	return confirmed.Clone(), nil
}

// indexOf must be called with the lock held.
func (c *Cache) indexOf(id string) int {
	for i, d := range c.decisions {
		if d.ID == id {
			return i
		}
	}
	return -1
}
