package auth

import "errors"

var (
	// ErrNoCredentials indicates every authorization path failed: the cached
	// token is unusable, refresh and re-login were rejected, and no legacy
	// key remains. The caller must obtain fresh credentials.
	ErrNoCredentials = errors.New("auth: no usable credential path")

	// ErrMissingUsername indicates the account record has no username.
	ErrMissingUsername = errors.New("auth: username must not be empty")

	// ErrMissingCredentials indicates the account carries neither a password,
	// a token, nor a legacy key.
	ErrMissingCredentials = errors.New("auth: account has no credentials")
)
