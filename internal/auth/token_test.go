package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "ada@example.com",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestOpaqueToken(t *testing.T) {
	s := NewTokenStore("abc123")
	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, "abc123", tok.AccessToken)
	assert.Equal(t, "Bearer", tok.TokenType)
	assert.True(t, tok.Expiry.IsZero())
}

func TestEmptyTokenIsUnauthorized(t *testing.T) {
	_, err := NewTokenStore("  ").Token()
	assert.ErrorIs(t, err, ErrNoToken)
	assert.True(t, IsUnauthorized(err))
}

func TestJWTExpiry(t *testing.T) {
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := now
	s := NewTokenStore(signed(t, now.Add(time.Hour))).WithClock(func() time.Time { return clock })

	tok, err := s.Token()
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour).Unix(), tok.Expiry.Unix())

	clock = now.Add(2 * time.Hour)
	_, err = s.Token()
	assert.True(t, IsUnauthorized(err))

	select {
	case <-s.Invalidated():
	default:
		t.Fatal("expired token should invalidate the store")
	}
}

func TestInvalidateIsIdempotent(t *testing.T) {
	s := NewTokenStore("abc")
	s.Invalidate()
	s.Invalidate()
	assert.False(t, s.Valid())
	<-s.Invalidated()
}
