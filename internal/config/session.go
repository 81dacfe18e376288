package config

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Session is what the client can read out of its bearer token. The token is
// verified server-side on every call; here it is only parsed for claims, so
// no signing key is involved.
type Session struct {
	UserID      string
	Email       string
	WorkspaceID string
	ExpiresAt   time.Time
}

type tokenClaims struct {
	Email       string `json:"email"`
	WorkspaceID string `json:"workspace_id"`
	jwt.RegisteredClaims
}

// ParseSession extracts session claims from a bearer token without
// verifying the signature.
func ParseSession(token string) (Session, error) {
	var claims tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return Session{}, fmt.Errorf("parse token: %w", err)
	}
	s := Session{
		UserID:      claims.Subject,
		Email:       claims.Email,
		WorkspaceID: claims.WorkspaceID,
	}
	if claims.ExpiresAt != nil {
		s.ExpiresAt = claims.ExpiresAt.Time
	}
	return s, nil
}

// Expired reports whether the token's expiry has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
