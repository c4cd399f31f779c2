package auth

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"
)

// Legacy key header names, used when token auth is unavailable.
const (
	HeaderUserID     = "X-User-Id"
	HeaderUserAppKey = "X-User-App-Key"
)

// TokenSource exchanges credentials for tokens against the remote service.
// The client package implements it; tests substitute function-field mocks.
type TokenSource interface {
	// RefreshTokens exchanges a refresh token for a fresh token grant.
	RefreshTokens(ctx context.Context, refreshToken string) (*Tokens, error)

	// LoginTokens exchanges a username/password pair for a token grant.
	LoginTokens(ctx context.Context, username, password string) (*Tokens, error)
}

// Session derives authorization headers for one account. The state machine
// runs fresh on every Headers call, no background timer:
//
//	valid token  -> cached bearer header, no network
//	expired      -> refresh; on failure full re-login; on failure legacy key
//	nothing left -> ErrNoCredentials
//
// Concurrent Headers calls on an expired session converge on a single
// refresh/reauth attempt; all callers observe the one resulting token update.
type Session struct {
	ts TokenSource

	mu   sync.Mutex
	acct Account

	flight singleflight.Group

	// now is the clock; overridden in tests.
	now func() time.Time
}

// NewSession creates a session owning a copy of account. The caller's value
// is not retained; read updated credentials back with Snapshot.
func NewSession(account Account, ts TokenSource) *Session {
	return &Session{
		ts:   ts,
		acct: account,
		now:  time.Now,
	}
}

// Snapshot returns a copy of the current account record, including any token
// fields updated by refresh or re-login. Callers that persist credentials
// should re-persist this snapshot after any operation that required headers.
func (s *Session) Snapshot() Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct
}

// Username returns the account's username.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acct.Username
}

// Headers returns the authorization headers for the next request. A live
// access token is answered from cache; otherwise the refresh → re-login →
// legacy-key chain runs, updating the session's token fields on success.
func (s *Session) Headers(ctx context.Context) (http.Header, error) {
	s.mu.Lock()
	if s.tokenValid() {
		h := bearerHeader(s.acct.AccessToken)
		s.mu.Unlock()
		return h, nil
	}
	s.mu.Unlock()

	// Expired: all concurrent callers share one renewal attempt.
	v, err, _ := s.flight.Do("renew", func() (any, error) {
		return s.renew(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(http.Header), nil
}

// tokenValid reports whether the cached access token is still fresh.
// Callers must hold the session lock.
func (s *Session) tokenValid() bool {
	return s.acct.AccessToken != "" && s.now().Before(s.acct.TokenExpiry)
}

// renew runs the expired-token chain. It re-checks validity first: a caller
// queued behind a completed flight may find the token already renewed.
func (s *Session) renew(ctx context.Context) (http.Header, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.tokenValid() {
		return bearerHeader(s.acct.AccessToken), nil
	}

	if s.acct.RefreshToken != "" {
		tokens, err := s.ts.RefreshTokens(ctx, s.acct.RefreshToken)
		if err == nil {
			s.applyTokens(tokens)
			return bearerHeader(s.acct.AccessToken), nil
		}
	}

	if s.acct.Username != "" && s.acct.Password != "" {
		tokens, err := s.ts.LoginTokens(ctx, s.acct.Username, s.acct.Password)
		if err == nil {
			s.applyTokens(tokens)
			return bearerHeader(s.acct.AccessToken), nil
		}
	}

	if s.acct.hasLegacyKey() {
		h := make(http.Header)
		h.Set(HeaderUserID, s.acct.UserID)
		h.Set(HeaderUserAppKey, s.acct.UserAppKey)
		return h, nil
	}

	return nil, ErrNoCredentials
}

// applyTokens overwrites the account's token fields from a grant.
// Callers must hold the session lock.
func (s *Session) applyTokens(t *Tokens) {
	s.acct.AccessToken = t.Access
	if t.Refresh != "" {
		s.acct.RefreshToken = t.Refresh
	}
	s.acct.TokenExpiry = tokenExpiry(t, s.now())
}

// tokenExpiry resolves the absolute expiry of a grant: the service's
// expires_in when present, else the access token's own exp claim, else now
// (the token is usable for the current request chain but re-validated on the
// next one).
func tokenExpiry(t *Tokens, now time.Time) time.Time {
	if t.ExpiresIn > 0 {
		return now.Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	if exp, err := parseExpClaim(t.Access); err == nil {
		return exp
	}
	return now
}

// parseExpClaim extracts the exp claim from a JWT without verifying its
// signature. Signature verification is the server's job; the client only
// needs the expiry for its freshness check.
func parseExpClaim(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("auth: parse access token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, fmt.Errorf("auth: access token has no exp claim")
	}
	return exp.Time, nil
}

func bearerHeader(token string) http.Header {
	h := make(http.Header)
	h.Set("Authorization", "Bearer "+token)
	return h
}
