// Package app wires config, API client, cache, and draft store together
// for the CLI.
package app

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"decidelog/internal/api"
	"decidelog/internal/cache"
	"decidelog/internal/config"
	"decidelog/internal/domain"
	"decidelog/internal/draft"
)

// Options override config file values; empty fields fall through to the
// file, then to token claims.
type Options struct {
	StateDir  string
	BaseURL   string
	Token     string
	Workspace string
	Verbose   bool
}

type App struct {
	StateDir string
	Config   *config.Config
	Session  config.Session
	Cache    *cache.Cache
	Drafts   *draft.Store
	Log      *zap.Logger
}

// Build resolves configuration and constructs the session's cache and draft
// store. The cache is created fresh on every run; it is rebuilt by
// refetching, only drafts persist locally.
func Build(opts Options) (*App, error) {
	dir, err := config.StateDir(opts.StateDir)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if opts.BaseURL != "" {
		cfg.API.BaseURL = opts.BaseURL
	}
	if opts.Token != "" {
		cfg.API.Token = opts.Token
	}
	if opts.Workspace != "" {
		cfg.Workspace = opts.Workspace
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// Tokens may be opaque; claims are a convenience, not a requirement.
	session, err := config.ParseSession(cfg.API.Token)
	if err != nil {
		session = config.Session{UserID: cfg.User}
	}
	if session.Expired(time.Now()) {
		return nil, fmt.Errorf("bearer token expired at %s; log in again", session.ExpiresAt.Format(time.RFC3339))
	}
	workspace := cfg.Workspace
	if workspace == "" {
		workspace = session.WorkspaceID
	}

	log := zap.NewNop()
	if opts.Verbose {
		if log, err = zap.NewDevelopment(); err != nil {
			return nil, err
		}
	}

	client := api.New(cfg.API.BaseURL, cfg.API.Token, workspace)
	c := cache.New(client, log)
	c.SetUser(domain.User{
		ID:          session.UserID,
		Email:       session.Email,
		WorkspaceID: workspace,
	})

	drafts, err := draft.Open(dir)
	if err != nil {
		return nil, err
	}
	return &App{
		StateDir: dir,
		Config:   cfg,
		Session:  session,
		Cache:    c,
		Drafts:   drafts,
		Log:      log,
	}, nil
}

func (a *App) Close() {
	if a.Drafts != nil {
		a.Drafts.Close()
	}
	_ = a.Log.Sync()
}
