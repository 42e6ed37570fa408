package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	svc := NewTokenService(TokenConfig{SigningKey: "test-secret-key-for-testing-only"})

	token, expiresAt, err := svc.Issue("alice", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	claims, err := svc.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Operator)
	assert.Equal(t, "alice", claims.Subject)
	assert.Equal(t, DefaultIssuer, claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestTokenService_DefaultExpiry(t *testing.T) {
	svc := NewTokenService(TokenConfig{SigningKey: "k"})

	_, expiresAt, err := svc.Issue("ops", 0)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(DefaultTokenExpiry), expiresAt, 5*time.Second)
}

func TestTokenService_InvalidToken(t *testing.T) {
	svc := NewTokenService(TokenConfig{SigningKey: "test-secret-key-for-testing-only"})

	tests := []struct {
		name  string
		token string
	}{
		{"empty token", ""},
		{"malformed token", "not.a.valid.jwt"},
		{"invalid base64", "xxx.yyy.zzz"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Validate(tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenService_WrongSigningKey(t *testing.T) {
	token, _, err := NewTokenService(TokenConfig{SigningKey: "key-one"}).Issue("alice", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService(TokenConfig{SigningKey: "key-two"}).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_WrongAudience(t *testing.T) {
	token, _, err := NewTokenService(TokenConfig{SigningKey: "k", Audience: "one"}).Issue("alice", time.Hour)
	require.NoError(t, err)

	_, err = NewTokenService(TokenConfig{SigningKey: "k", Audience: "two"}).Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService(TokenConfig{SigningKey: "k"})
	issued := time.Now().Add(-2 * time.Hour)
	svc.now = func() time.Time { return issued }

	token, _, err := svc.Issue("alice", time.Hour)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestTokenService_NotConfigured(t *testing.T) {
	svc := NewTokenService(TokenConfig{})

	_, _, err := svc.Issue("alice", time.Hour)
	assert.ErrorIs(t, err, ErrSigningKeyNotSet)

	_, err = svc.Validate("anything")
	assert.ErrorIs(t, err, ErrSigningKeyNotSet)
}

func TestTokenService_EmptyOperator(t *testing.T) {
	_, _, err := NewTokenService(TokenConfig{SigningKey: "k"}).Issue("", time.Hour)
	assert.ErrorIs(t, err, ErrEmptySubject)
}
