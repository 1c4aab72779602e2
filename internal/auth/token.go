// Package auth holds the session's bearer token and signals when the remote
// service has rejected it.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"expensedesk/internal/core"
)

// ErrNoToken is returned when the store holds no usable token.
var ErrNoToken = fmt.Errorf("%w: no session token", core.ErrUnauthorized)

// TokenStore holds the bearer token for one session. It implements
// oauth2.TokenSource so an oauth2.Transport attaches the Authorization header.
type TokenStore struct {
	mu          sync.Mutex
	token       string
	expiry      time.Time
	now         func() time.Time
	invalidated chan struct{}
	once        sync.Once
}

var _ oauth2.TokenSource = (*TokenStore)(nil)

// NewTokenStore creates a store for token. If the token is a JWT its exp
// claim is honoured; opaque tokens never expire client-side.
func NewTokenStore(token string) *TokenStore {
	s := &TokenStore{
		now:         time.Now,
		invalidated: make(chan struct{}),
	}
	s.set(token)
	return s
}

// WithClock replaces the time source; used by tests.
func (s *TokenStore) WithClock(now func() time.Time) *TokenStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *TokenStore) set(token string) {
	s.token = strings.TrimSpace(token)
	s.expiry = time.Time{}
	if exp, ok := jwtExpiry(s.token); ok {
		s.expiry = exp
	}
}

// Token implements oauth2.TokenSource. An expired JWT invalidates the store.
func (s *TokenStore) Token() (*oauth2.Token, error) {
	s.mu.Lock()
	token, expiry, now := s.token, s.expiry, s.now()
	s.mu.Unlock()

	if token == "" {
		return nil, ErrNoToken
	}
	if !expiry.IsZero() && !now.Before(expiry) {
		s.Invalidate()
		return nil, fmt.Errorf("%w: token expired at %s", core.ErrUnauthorized, expiry.Format(time.RFC3339))
	}
	return &oauth2.Token{AccessToken: token, TokenType: "Bearer", Expiry: expiry}, nil
}

// Valid reports whether a non-expired token is held.
func (s *TokenStore) Valid() bool {
	_, err := s.Token()
	return err == nil
}

// Invalidate clears the token and closes Invalidated. Safe to call many times.
func (s *TokenStore) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.expiry = time.Time{}
	s.mu.Unlock()
	s.once.Do(func() { close(s.invalidated) })
}

// Invalidated is closed once the token has been rejected or cleared.
func (s *TokenStore) Invalidated() <-chan struct{} {
	return s.invalidated
}

// jwtExpiry reads the exp claim without verifying the signature; the server
// is the authority on validity, the client only avoids sending dead tokens.
func jwtExpiry(token string) (time.Time, bool) {
	if strings.Count(token, ".") != 2 {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// IsUnauthorized reports whether err stems from a rejected or missing token.
func IsUnauthorized(err error) bool {
	return errors.Is(err, core.ErrUnauthorized)
}
