package client

import (
	"context"
	"net/http"
	"strings"

	"github.com/pipenetwork/libpipe-go/auth"
)

// createUserResponse is the identity record returned by POST /users.
type createUserResponse struct {
	UserID       string `json:"user_id"`
	UserAppKey   string `json:"user_app_key"`
	SolanaPubkey string `json:"solana_pubkey"`
}

// CreateAccount registers a new account in two steps: create the identity,
// then set its password, which also yields the first token grant. The
// returned account is complete and ready for a Session.
func (c *Client) CreateAccount(ctx context.Context, username, password string) (*auth.Account, error) {
	if err := validateNewUsername(username); err != nil {
		return nil, err
	}
	if err := validateNewPassword(password); err != nil {
		return nil, err
	}

	body, err := jsonBody(map[string]string{"username": username})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/users", nil, jsonHeaders(), body)
	if err != nil {
		return nil, err
	}
	var identity createUserResponse
	err = c.doJSON(req, &identity, func(status int) ErrorCode {
		if status == http.StatusConflict {
			return CodeUsernameExists
		}
		return ""
	})
	if err != nil {
		return nil, err
	}

	body, err = jsonBody(map[string]string{
		"user_id":      identity.UserID,
		"user_app_key": identity.UserAppKey,
		"new_password": password,
	})
	if err != nil {
		return nil, err
	}
	headers := jsonHeaders()
	headers.Set(auth.HeaderUserID, identity.UserID)
	headers.Set(auth.HeaderUserAppKey, identity.UserAppKey)
	req, err = c.newRequest(ctx, http.MethodPost, "/auth/set-password", nil, headers, body)
	if err != nil {
		return nil, err
	}
	var tokens auth.Tokens
	if err := c.doJSON(req, &tokens, nil); err != nil {
		return nil, err
	}

	account := auth.Account{
		Username:   username,
		Password:   password,
		UserID:     identity.UserID,
		UserAppKey: identity.UserAppKey,
	}.WithTokens(&tokens)
	return &account, nil
}

// Login exchanges credentials for tokens. A secondary call resolves the
// canonical user id and app key; its failure is tolerated, leaving the
// identity fields empty (the legacy auth path is then unavailable until the
// next successful resolution).
func (c *Client) Login(ctx context.Context, username, password string) (*auth.Account, error) {
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	tokens, err := c.LoginTokens(ctx, username, password)
	if err != nil {
		return nil, err
	}

	account := auth.Account{Username: username, Password: password}.WithTokens(tokens)

	// Best effort: the login response carries no identity record.
	if identity, err := c.resolveUser(ctx, username); err == nil {
		account.UserID = identity.UserID
		account.UserAppKey = identity.UserAppKey
	}
	return &account, nil
}

// resolveUser fetches the identity record for an existing username.
func (c *Client) resolveUser(ctx context.Context, username string) (*createUserResponse, error) {
	body, err := jsonBody(map[string]string{"username": username})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/users", nil, jsonHeaders(), body)
	if err != nil {
		return nil, err
	}
	var identity createUserResponse
	if err := c.doJSON(req, &identity, nil); err != nil {
		return nil, err
	}
	return &identity, nil
}

// LoginTokens implements auth.TokenSource.
func (c *Client) LoginTokens(ctx context.Context, username, password string) (*auth.Tokens, error) {
	body, err := jsonBody(map[string]string{"username": username, "password": password})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/login", nil, jsonHeaders(), body)
	if err != nil {
		return nil, err
	}
	var tokens auth.Tokens
	err = c.doJSON(req, &tokens, func(status int) ErrorCode {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return CodeInvalidCredentials
		}
		return ""
	})
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// RefreshTokens implements auth.TokenSource.
func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*auth.Tokens, error) {
	body, err := jsonBody(map[string]string{"refresh_token": refreshToken})
	if err != nil {
		return nil, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/auth/refresh", nil, jsonHeaders(), body)
	if err != nil {
		return nil, err
	}
	var tokens auth.Tokens
	err = c.doJSON(req, &tokens, func(status int) ErrorCode {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return CodeInvalidCredentials
		}
		return ""
	})
	if err != nil {
		return nil, err
	}
	return &tokens, nil
}

// NewSession binds an account to this client's token endpoints.
func (c *Client) NewSession(account auth.Account) *auth.Session {
	return auth.NewSession(account, c)
}

func jsonHeaders() http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	return h
}

func validateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return &ValidationError{Field: "username", Reason: "must not be empty"}
	}
	return nil
}

func validateNewUsername(username string) error {
	if err := validateUsername(username); err != nil {
		return err
	}
	if len(username) < 3 {
		return &ValidationError{Field: "username", Reason: "must be at least 3 characters"}
	}
	return nil
}

func validatePassword(password string) error {
	if password == "" {
		return &ValidationError{Field: "password", Reason: "must not be empty"}
	}
	return nil
}

func validateNewPassword(password string) error {
	if len(password) < 8 {
		return &ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}
	return nil
}
