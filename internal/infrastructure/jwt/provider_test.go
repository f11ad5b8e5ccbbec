package jwtinfra

import (
	"testing"
	"time"

	"github.com/go-otp-auth/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvider_MissingSecret(t *testing.T) {
	_, err := NewProvider(&config.Config{CredentialTTLDays: 28})
	assert.Error(t, err)
}

func TestSignVerify_RoundTrip(t *testing.T) {
	p, err := NewProvider(&config.Config{JWTSecret: "test-secret", CredentialTTLDays: 28})
	require.NoError(t, err)

	token, err := p.Sign("i1", "user")
	require.NoError(t, err)

	claims, err := p.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "i1", claims.ID)
	assert.Equal(t, "user", claims.Role)
	// Validity window: 28 days from issuance.
	assert.InDelta(t, time.Now().Add(28*24*time.Hour).Unix(), claims.ExpiresAt.Unix(), 60)
}

func TestVerify_TamperedToken(t *testing.T) {
	p, err := NewProvider(&config.Config{JWTSecret: "test-secret", CredentialTTLDays: 28})
	require.NoError(t, err)

	token, err := p.Sign("i1", "user")
	require.NoError(t, err)

	_, err = p.Verify(token + "x")
	assert.Error(t, err)
}
