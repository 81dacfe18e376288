package config

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "https://api.decidelog.io/v1", cfg.API.BaseURL)
	assert.Empty(t, cfg.API.Token)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.API.BaseURL = "http://localhost:8080/v1"
	cfg.API.Token = "tok-abc"
	cfg.Workspace = "ws-1"
	cfg.User = "user-1"
	require.NoError(t, cfg.Save(dir))

	got, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "missing token")
	cfg.API.Token = "tok"
	assert.NoError(t, cfg.Validate())
	cfg.API.BaseURL = ""
	assert.Error(t, cfg.Validate(), "missing base url")
}

func TestParseSessionReadsClaims(t *testing.T) {
	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, tokenClaims{
		Email:       "dev@example.com",
		WorkspaceID: "ws-9",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-9",
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	})
	signed, err := token.SignedString([]byte("any key, signature is not checked"))
	require.NoError(t, err)

	s, err := ParseSession(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-9", s.UserID)
	assert.Equal(t, "dev@example.com", s.Email)
	assert.Equal(t, "ws-9", s.WorkspaceID)
	assert.True(t, s.ExpiresAt.Equal(exp))

	assert.False(t, s.Expired(exp.Add(-time.Hour)))
	assert.True(t, s.Expired(exp.Add(time.Hour)))
}

func TestParseSessionRejectsOpaqueToken(t *testing.T) {
	_, err := ParseSession("not-a-jwt")
	assert.Error(t, err)
}

func TestSessionWithoutExpiryNeverExpires(t *testing.T) {
	s := Session{UserID: "u"}
	assert.False(t, s.Expired(time.Now()))
}
