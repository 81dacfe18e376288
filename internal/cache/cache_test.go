package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decidelog/internal/api"
	"decidelog/internal/cache"
	"decidelog/internal/domain"
	"decidelog/internal/errs"
)

// fakeClient implements cache.Client with overridable behavior per call.
type fakeClient struct {
	listDecisions   func(workspaceID string) ([]domain.Decision, error)
	updateWorkspace func(id, name string) (domain.Workspace, error)
	createDecision  func(input domain.DecisionInput) (domain.Decision, error)
	updateStatus    func(id string, status domain.Status) (domain.Decision, error)
	updateDecision  func(id string, patch domain.DecisionPatch) (domain.Decision, error)
	linkDecision    func(id string, link domain.Link) (domain.Decision, error)
	createComment   func(decisionID, text string, anonymous bool) (domain.Comment, error)
	getFlag         func(key string) (domain.FeatureFlag, error)
	setFlag         func(key string, enabled bool) (domain.FeatureFlag, error)
	markRead        func(id string) (domain.Notification, error)
	notifications   []domain.Notification
	workspaces      []domain.Workspace
	calls           map[string]int
}

func newFakeClient() *fakeClient {
	return &fakeClient{calls: map[string]int{}}
}

func (f *fakeClient) count(name string) { f.calls[name]++ }

func (f *fakeClient) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	f.count("ListWorkspaces")
	return f.workspaces, nil
}

func (f *fakeClient) UpdateWorkspace(ctx context.Context, id, name string) (domain.Workspace, error) {
	f.count("UpdateWorkspace")
	if f.updateWorkspace != nil {
		return f.updateWorkspace(id, name)
	}
	return domain.Workspace{ID: id, Name: name}, nil
}

func (f *fakeClient) ListDecisions(ctx context.Context, workspaceID string) ([]domain.Decision, error) {
	f.count("ListDecisions")
	if f.listDecisions != nil {
		return f.listDecisions(workspaceID)
	}
	return nil, nil
}

func (f *fakeClient) CreateDecision(ctx context.Context, input domain.DecisionInput) (domain.Decision, error) {
	f.count("CreateDecision")
	if f.createDecision != nil {
		return f.createDecision(input)
	}
	return domain.Decision{}, nil
}

func (f *fakeClient) UpdateDecision(ctx context.Context, id string, patch domain.DecisionPatch) (domain.Decision, error) {
	f.count("UpdateDecision")
	if f.updateDecision != nil {
		return f.updateDecision(id, patch)
	}
	return domain.Decision{}, nil
}

func (f *fakeClient) UpdateDecisionStatus(ctx context.Context, id string, status domain.Status) (domain.Decision, error) {
	f.count("UpdateDecisionStatus")
	if f.updateStatus != nil {
		return f.updateStatus(id, status)
	}
	return domain.Decision{}, nil
}

func (f *fakeClient) LinkDecision(ctx context.Context, id string, link domain.Link) (domain.Decision, error) {
	f.count("LinkDecision")
	if f.linkDecision != nil {
		return f.linkDecision(id, link)
	}
	return domain.Decision{}, nil
}

func (f *fakeClient) ListComments(ctx context.Context, decisionID string) ([]domain.Comment, error) {
	f.count("ListComments")
	return nil, nil
}

func (f *fakeClient) CreateComment(ctx context.Context, decisionID, text string, anonymous bool) (domain.Comment, error) {
	f.count("CreateComment")
	if f.createComment != nil {
		return f.createComment(decisionID, text, anonymous)
	}
	return domain.Comment{}, nil
}

func (f *fakeClient) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	f.count("ListNotifications")
	return f.notifications, nil
}

func (f *fakeClient) MarkNotificationRead(ctx context.Context, id string) (domain.Notification, error) {
	f.count("MarkNotificationRead")
	if f.markRead != nil {
		return f.markRead(id)
	}
	return domain.Notification{}, nil
}

func (f *fakeClient) GetFeatureFlag(ctx context.Context, key string) (domain.FeatureFlag, error) {
	f.count("GetFeatureFlag")
	if f.getFlag != nil {
		return f.getFlag(key)
	}
	return domain.FeatureFlag{Key: key}, nil
}

func (f *fakeClient) SetFeatureFlag(ctx context.Context, key string, enabled bool) (domain.FeatureFlag, error) {
	f.count("SetFeatureFlag")
	if f.setFlag != nil {
		return f.setFlag(key, enabled)
	}
	return domain.FeatureFlag{Key: key, Enabled: enabled}, nil
}

func (f *fakeClient) Blindspot(ctx context.Context, decisionID string) (api.BlindspotResult, error) {
	f.count("Blindspot")
	return api.BlindspotResult{DecisionID: decisionID, Score: 42}, nil
}

func (f *fakeClient) SuggestTags(ctx context.Context, title, contextText string) ([]string, error) {
	f.count("SuggestTags")
	return []string{"tag"}, nil
}

func (f *fakeClient) CreateCheckoutSession(ctx context.Context, plan domain.PlanTier) (api.CheckoutSession, error) {
	f.count("CreateCheckoutSession")
	return api.CheckoutSession{URL: "https://pay.example.com/s/1"}, nil
}

func seeded(t *testing.T, client *fakeClient, decisions ...domain.Decision) *cache.Cache {
	t.Helper()
	c := cache.New(client, nil)
	c.Now = func() time.Time { return time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC) }
	c.SetUser(domain.User{ID: "user-1", WorkspaceID: "ws-1"})
	client.listDecisions = func(workspaceID string) ([]domain.Decision, error) {
		var out []domain.Decision
		for _, d := range decisions {
			if d.WorkspaceID == workspaceID {
				out = append(out, d)
			}
		}
		return out, nil
	}
	require.NoError(t, c.FetchDecisions(context.Background(), "ws-1"))
	return c
}

func activeDecision(id string) domain.Decision {
	return domain.Decision{
		ID:          id,
		WorkspaceID: "ws-1",
		Title:       "Adopt weekly retros",
		Category:    domain.CategoryOperations,
		Decision:    "We will run retros every Friday",
		Status:      domain.StatusActive,
		MadeOn:      time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestAddDecisionReplacesTempInPlace(t *testing.T) {
	client := newFakeClient()
	client.createDecision = func(input domain.DecisionInput) (domain.Decision, error) {
		return domain.Decision{ID: "srv-9", WorkspaceID: "ws-1", Title: input.Title, Category: input.Category, Decision: input.Decision, Status: domain.StatusActive}, nil
	}
	c := seeded(t, client, activeDecision("d-1"))

	created, err := c.AddDecision(context.Background(), domain.DecisionInput{
		Title:    "Ship the beta",
		Category: domain.CategoryProduct,
		Decision: "We launch beta next sprint",
	})
	require.NoError(t, err)
	assert.Equal(t, "srv-9", created.ID)

	list := c.Decisions()
	require.Len(t, list, 2)
	// Confirmed record occupies the slot where the temp record was inserted.
	assert.Equal(t, "srv-9", list[1].ID)
	assert.Equal(t, domain.StatusActive, list[1].Status)
}

func TestAddDecisionFailureLeavesCacheIdentical(t *testing.T) {
	client := newFakeClient()
	client.createDecision = func(input domain.DecisionInput) (domain.Decision, error) {
		return domain.Decision{}, errs.NewNetwork(500, "boom", nil)
	}
	c := seeded(t, client, activeDecision("d-1"), activeDecision("d-2"))
	before := c.Decisions()

	_, err := c.AddDecision(context.Background(), domain.DecisionInput{
		Title:    "Ship the beta",
		Category: domain.CategoryProduct,
		Decision: "We launch beta next sprint",
	})
	require.Error(t, err)
	assert.True(t, errs.IsNetwork(err))
	assert.Equal(t, before, c.Decisions())
}

func TestAddDecisionValidationFailsBeforeRequest(t *testing.T) {
	client := newFakeClient()
	c := seeded(t, client)

	_, err := c.AddDecision(context.Background(), domain.DecisionInput{Title: "x"})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Zero(t, client.calls["CreateDecision"])

	_, err = c.AddDecision(context.Background(), domain.DecisionInput{
		Title:    "Valid title",
		Category: "NOT_A_CATEGORY",
		Decision: "something",
	})
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Zero(t, client.calls["CreateDecision"])
}

func TestUpdateStatusRejectsBackwardTransition(t *testing.T) {
	client := newFakeClient()
	done := activeDecision("d-1")
	done.Status = domain.StatusSucceeded
	c := seeded(t, client, done)
	before := c.Decisions()

	_, err := c.UpdateDecisionStatus(context.Background(), "d-1", domain.StatusActive)
	require.Error(t, err)
	assert.True(t, errs.IsTransition(err))
	assert.Equal(t, before, c.Decisions())
	assert.Zero(t, client.calls["UpdateDecisionStatus"])
}

func TestUpdateStatusRollsBackOnFailure(t *testing.T) {
	client := newFakeClient()
	client.updateStatus = func(id string, status domain.Status) (domain.Decision, error) {
		return domain.Decision{}, errs.NewNetwork(502, "bad gateway", nil)
	}
	c := seeded(t, client, activeDecision("d-1"))
	before := c.Decisions()

	_, err := c.UpdateDecisionStatus(context.Background(), "d-1", domain.StatusSucceeded)
	require.Error(t, err)
	assert.Equal(t, before, c.Decisions())
}

func TestUpdateStatusAppliesConfirmedEntity(t *testing.T) {
	client := newFakeClient()
	client.updateStatus = func(id string, status domain.Status) (domain.Decision, error) {
		d := activeDecision(id)
		d.Status = status
		d.UpdatedAt = time.Date(2024, 6, 3, 12, 0, 1, 0, time.UTC)
		return d, nil
	}
	c := seeded(t, client, activeDecision("d-1"))

	updated, err := c.UpdateDecisionStatus(context.Background(), "d-1", domain.StatusFailed)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, updated.Status)
	got, ok := c.Decision("d-1")
	require.True(t, ok)
	assert.Equal(t, domain.StatusFailed, got.Status)
}

func TestLinkDecisionGuards(t *testing.T) {
	client := newFakeClient()
	linked := activeDecision("d-1")
	linked.Links = []domain.Link{{Type: "supersedes", TargetID: "d-2"}}
	c := seeded(t, client, linked, activeDecision("d-2"))

	_, err := c.LinkDecision(context.Background(), "d-1", "d-1", "supersedes")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))

	_, err = c.LinkDecision(context.Background(), "d-1", "d-2", "supersedes")
	require.Error(t, err)
	assert.True(t, errs.IsValidation(err))
	assert.Zero(t, client.calls["LinkDecision"])

	client.linkDecision = func(id string, link domain.Link) (domain.Decision, error) {
		d := linked.Clone()
		d.Links = append(d.Links, link)
		return d, nil
	}
	updated, err := c.LinkDecision(context.Background(), "d-1", "d-2", "informs")
	require.NoError(t, err)
	assert.Len(t, updated.Links, 2)
}

func TestAddCommentRollsBackOnFailure(t *testing.T) {
	client := newFakeClient()
	client.createComment = func(decisionID, text string, anonymous bool) (domain.Comment, error) {
		return domain.Comment{}, errs.NewNetwork(500, "boom", nil)
	}
	c := seeded(t, client, activeDecision("d-1"))

	_, err := c.AddComment(context.Background(), "d-1", "what about cost?", false)
	require.Error(t, err)
	got, ok := c.Decision("d-1")
	require.True(t, ok)
	assert.Empty(t, got.Comments)
}

func TestAddCommentSwapsInConfirmed(t *testing.T) {
	client := newFakeClient()
	client.createComment = func(decisionID, text string, anonymous bool) (domain.Comment, error) {
		return domain.Comment{ID: "cm-1", DecisionID: decisionID, Text: text, Author: "user-1"}, nil
	}
	c := seeded(t, client, activeDecision("d-1"))

	cm, err := c.AddComment(context.Background(), "d-1", "what about cost?", false)
	require.NoError(t, err)
	assert.Equal(t, "cm-1", cm.ID)
	got, _ := c.Decision("d-1")
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "cm-1", got.Comments[0].ID)
}

func TestSwitchWorkspaceKeepsIDOnFetchFailure(t *testing.T) {
	client := newFakeClient()
	c := seeded(t, client, activeDecision("d-1"))
	client.listDecisions = func(workspaceID string) ([]domain.Decision, error) {
		return nil, errs.NewNetwork(0, "offline", nil)
	}

	err := c.SwitchWorkspace(context.Background(), "ws-2")
	require.Error(t, err)
	assert.Equal(t, "ws-2", c.ActiveWorkspace())
	// Prior workspace data stays resident; the failed fetch changed nothing.
	assert.Empty(t, c.Decisions())
	d, ok := c.Decision("d-1")
	require.True(t, ok)
	assert.Equal(t, "ws-1", d.WorkspaceID)
}

func TestFetchDecisionsReplacesOnlyThatWorkspace(t *testing.T) {
	client := newFakeClient()
	other := activeDecision("d-9")
	other.WorkspaceID = "ws-2"
	c := seeded(t, client, activeDecision("d-1"), other)

	require.NoError(t, c.SwitchWorkspace(context.Background(), "ws-2"))
	require.Len(t, c.Decisions(), 1)
	assert.Equal(t, "d-9", c.Decisions()[0].ID)

	// ws-1 entities were never discarded.
	require.NoError(t, c.SwitchWorkspace(context.Background(), "ws-1"))
	require.Len(t, c.Decisions(), 1)
	assert.Equal(t, "d-1", c.Decisions()[0].ID)
}

func TestRenameWorkspaceRollsBack(t *testing.T) {
	client := newFakeClient()
	client.workspaces = []domain.Workspace{{ID: "ws-1", Name: "Old"}}
	c := cache.New(client, nil)
	require.NoError(t, c.FetchWorkspaces(context.Background()))

	client.updateWorkspace = func(id, name string) (domain.Workspace, error) {
		return domain.Workspace{}, errs.NewNetwork(500, "boom", nil)
	}
	_, err := c.RenameWorkspace(context.Background(), "ws-1", "New")
	require.Error(t, err)
	assert.Equal(t, "Old", c.Workspaces()[0].Name)

	client.updateWorkspace = nil
	ws, err := c.RenameWorkspace(context.Background(), "ws-1", "New")
	require.NoError(t, err)
	assert.Equal(t, "New", ws.Name)
	assert.Equal(t, "New", c.Workspaces()[0].Name)
}

func TestMarkNotificationReadRollsBack(t *testing.T) {
	client := newFakeClient()
	client.notifications = []domain.Notification{{ID: "n-1", Title: "hello"}}
	client.markRead = func(id string) (domain.Notification, error) {
		return domain.Notification{}, errs.NewNetwork(500, "boom", nil)
	}
	c := cache.New(client, nil)
	require.NoError(t, c.FetchNotifications(context.Background()))

	err := c.MarkNotificationRead(context.Background(), "n-1")
	require.Error(t, err)
	assert.Equal(t, 1, c.UnreadCount())
}

func TestRequestBlindspotStoresScore(t *testing.T) {
	client := newFakeClient()
	c := seeded(t, client, activeDecision("d-1"))

	res, err := c.RequestBlindspot(context.Background(), "d-1")
	require.NoError(t, err)
	assert.Equal(t, 42, res.Score)
	got, _ := c.Decision("d-1")
	require.NotNil(t, got.AIRiskScore)
	assert.Equal(t, 42, *got.AIRiskScore)
}
