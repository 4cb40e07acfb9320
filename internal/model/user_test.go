package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRefreshTokenUsable(t *testing.T) {
	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

	tok := RefreshToken{ExpiresAt: now.Add(time.Hour)}
	assert.True(t, tok.Usable(now))

	// Expiry is exclusive: at the deadline the token is gone.
	assert.False(t, tok.Usable(tok.ExpiresAt))

	revoked := now.Add(-time.Minute)
	tok.RevokedAt = &revoked
	assert.False(t, tok.Usable(now))
}
