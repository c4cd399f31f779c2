// Package auth holds account credentials and derives request authorization
// headers for the remote storage service.
//
// A Session owns one account record. Callers never share a mutable account:
// they hand a value copy to NewSession, and after any operation that may have
// refreshed tokens they read the current state back with Snapshot and
// re-persist it themselves.
package auth

import (
	"strings"
	"time"
)

// LegacyKeyDisabled is the placeholder the service stores in user_app_key for
// accounts whose legacy key auth has been turned off. It is never a usable key.
const LegacyKeyDisabled = "disabled"

// Account is one user's credential record. It is a plain value: copy it
// freely, persist it as JSON.
type Account struct {
	Username     string    `json:"username"`
	Password     string    `json:"password"`
	UserID       string    `json:"user_id"`
	UserAppKey   string    `json:"user_app_key"`
	AccessToken  string    `json:"access_token,omitempty"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenExpiry  time.Time `json:"token_expiry,omitempty"`
}

// Validate checks that the fields required for any authorization path are
// present. Token fields are optional: an account fresh from registration may
// hold only a username/password pair.
func (a Account) Validate() error {
	if strings.TrimSpace(a.Username) == "" {
		return ErrMissingUsername
	}
	if a.Password == "" && a.AccessToken == "" && !a.hasLegacyKey() {
		return ErrMissingCredentials
	}
	return nil
}

// hasLegacyKey reports whether the account carries a usable legacy key pair.
func (a Account) hasLegacyKey() bool {
	return a.UserID != "" && a.UserAppKey != "" && a.UserAppKey != LegacyKeyDisabled
}

// Tokens is one token grant from the service: login, set-password, and
// refresh all return this shape.
type Tokens struct {
	Access    string `json:"access_token"`
	Refresh   string `json:"refresh_token"`
	ExpiresIn int64  `json:"expires_in"` // seconds; 0 if the service omitted it
}

// WithTokens returns a copy of the account with its token fields replaced by
// the grant. Expiry resolves the same way Session renewal does: the grant's
// expires_in, else the access token's exp claim, else now.
func (a Account) WithTokens(t *Tokens) Account {
	a.AccessToken = t.Access
	if t.Refresh != "" {
		a.RefreshToken = t.Refresh
	}
	a.TokenExpiry = tokenExpiry(t, time.Now())
	return a
}
