// Package api is the HTTP client for the remote decision API. It only
// consumes the API; all caching and reconciliation lives in internal/cache.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"decidelog/internal/domain"
	"decidelog/internal/errs"
)

// Client is a minimal decision API client. Every request carries the bearer
// token and the workspace id header.
type Client struct {
	BaseURL     string
	Token       string
	WorkspaceID string
	HTTPClient  *http.Client
	Timeout     time.Duration
}

// New creates a client with sane defaults.
func New(baseURL, token, workspaceID string) *Client {
	return &Client{
		BaseURL:     baseURL,
		Token:       token,
		WorkspaceID: workspaceID,
		Timeout:     10 * time.Second,
	}
}

// BlindspotResult is the AI risk analysis for a decision.
type BlindspotResult struct {
	DecisionID string `json:"decision_id"`
	Score      int    `json:"score"`
	Summary    string `json:"summary,omitempty"`
}

// CheckoutSession carries the hosted checkout redirect.
type CheckoutSession struct {
	URL string `json:"url"`
}

func (c *Client) ListWorkspaces(ctx context.Context) ([]domain.Workspace, error) {
	var out []domain.Workspace
	err := c.do(ctx, http.MethodGet, "workspaces", nil, &out)
	return out, err
}

func (c *Client) UpdateWorkspace(ctx context.Context, id, name string) (domain.Workspace, error) {
	var out domain.Workspace
	endpoint := "workspaces/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"name": name}, &out)
	return out, err
}

func (c *Client) ListDecisions(ctx context.Context, workspaceID string) ([]domain.Decision, error) {
	var out []domain.Decision
	endpoint := fmt.Sprintf("decisions?workspace_id=%s", url.QueryEscape(workspaceID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &out)
	return out, err
}

func (c *Client) CreateDecision(ctx context.Context, input domain.DecisionInput) (domain.Decision, error) {
	var out domain.Decision
	err := c.do(ctx, http.MethodPost, "decisions", input, &out)
	return out, err
}

func (c *Client) UpdateDecision(ctx context.Context, id string, patch domain.DecisionPatch) (domain.Decision, error) {
	var out domain.Decision
	endpoint := "decisions/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPatch, endpoint, patch, &out)
	return out, err
}

func (c *Client) UpdateDecisionStatus(ctx context.Context, id string, status domain.Status) (domain.Decision, error) {
	var out domain.Decision
	endpoint := "decisions/" + url.PathEscape(id)
	err := c.do(ctx, http.MethodPatch, endpoint, map[string]any{"status": status}, &out)
	return out, err
}

func (c *Client) LinkDecision(ctx context.Context, id string, link domain.Link) (domain.Decision, error) {
	var out domain.Decision
	endpoint := "decisions/" + url.PathEscape(id) + "/link"
	err := c.do(ctx, http.MethodPost, endpoint, link, &out)
	return out, err
}

func (c *Client) ListComments(ctx context.Context, decisionID string) ([]domain.Comment, error) {
	var out []domain.Comment
	endpoint := fmt.Sprintf("comments?decision_id=%s", url.QueryEscape(decisionID))
	err := c.do(ctx, http.MethodGet, endpoint, nil, &out)
	return out, err
}

func (c *Client) CreateComment(ctx context.Context, decisionID, text string, anonymous bool) (domain.Comment, error) {
	body := map[string]any{
		"decision_id":  decisionID,
		"text":         text,
		"is_anonymous": anonymous,
	}
	var out domain.Comment
	err := c.do(ctx, http.MethodPost, "comments", body, &out)
	return out, err
}

func (c *Client) GetFeatureFlag(ctx context.Context, key string) (domain.FeatureFlag, error) {
	var out domain.FeatureFlag
	endpoint := "feature-flags/" + url.PathEscape(key)
	err := c.do(ctx, http.MethodGet, endpoint, nil, &out)
	return out, err
}

func (c *Client) SetFeatureFlag(ctx context.Context, key string, enabled bool) (domain.FeatureFlag, error) {
	var out domain.FeatureFlag
	endpoint := "feature-flags/" + url.PathEscape(key)
	err := c.do(ctx, http.MethodPost, endpoint, map[string]any{"enabled": enabled}, &out)
	return out, err
}

func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var out []domain.Notification
	err := c.do(ctx, http.MethodGet, "notifications", nil, &out)
	return out, err
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) (domain.Notification, error) {
	var out domain.Notification
	endpoint := "notifications/" + url.PathEscape(id) + "/read"
	err := c.do(ctx, http.MethodPatch, endpoint, nil, &out)
	return out, err
}

func (c *Client) Blindspot(ctx context.Context, decisionID string) (BlindspotResult, error) {
	var out BlindspotResult
	err := c.do(ctx, http.MethodPost, "ai/blindspot", map[string]any{"decision_id": decisionID}, &out)
	return out, err
}

func (c *Client) SuggestTags(ctx context.Context, title, contextText string) ([]string, error) {
	var out []string
	err := c.do(ctx, http.MethodPost, "ai/tag", map[string]any{"title": title, "context": contextText}, &out)
	return out, err
}

func (c *Client) CreateCheckoutSession(ctx context.Context, plan domain.PlanTier) (CheckoutSession, error) {
	var out CheckoutSession
	err := c.do(ctx, http.MethodPost, "billing/checkout", map[string]any{"plan": plan}, &out)
	return out, err
}

// do issues one request and decodes the { "data": ... } envelope into out.
// Non-2xx responses become errs.Network with the message taken from the
// response body, or the status text when the body has none.
func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	reqURL := strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	if c.WorkspaceID != "" {
		req.Header.Set("X-Workspace-Id", c.WorkspaceID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errs.NewNetwork(0, err.Error(), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errs.NewNetwork(resp.StatusCode, errorMessage(resp), nil)
	}
	if out != nil {
		var env struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			return errs.NewNetwork(resp.StatusCode, "malformed response envelope", err)
		}
		if len(env.Data) > 0 {
			return json.Unmarshal(env.Data, out)
		}
	}
	return nil
}

func errorMessage(resp *http.Response) string {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return http.StatusText(resp.StatusCode)
}
