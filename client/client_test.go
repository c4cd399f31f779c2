package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipenetwork/libpipe-go/auth"
	"github.com/pipenetwork/libpipe-go/digest"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, DownloadTimeout: 2 * time.Second})
	require.NoError(t, err)
	return c
}

// liveSession returns a session whose token never expires during the test,
// so no token endpoint is hit.
func liveSession(c *Client) *auth.Session {
	return c.NewSession(auth.Account{
		Username:    "alice1234",
		Password:    "Passw0rd!",
		UserID:      "user-1",
		UserAppKey:  "app-key-1",
		AccessToken: "access-0",
		TokenExpiry: time.Now().Add(time.Hour),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ---------------------------------------------------------------------------
// NewClient
// ---------------------------------------------------------------------------

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestNewClient_Defaults(t *testing.T) {
	c, err := NewClient(Config{})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultDownloadTimeout, c.downloadTimeout)
	assert.Equal(t, DefaultTokenMint, c.tokenMint)
}

// ---------------------------------------------------------------------------
// CreateAccount / Login
// ---------------------------------------------------------------------------

func TestCreateAccount(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "alice1234", body["username"])
		writeJSON(w, http.StatusOK, map[string]string{
			"user_id":       "user-1",
			"user_app_key":  "app-key-1",
			"solana_pubkey": "So11111111111111111111111111111111111111112",
		})
	})
	mux.HandleFunc("POST /auth/set-password", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "user-1", r.Header.Get(auth.HeaderUserID))
		assert.Equal(t, "app-key-1", r.Header.Get(auth.HeaderUserAppKey))
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Passw0rd!", body["new_password"])
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	})

	c := newTestClient(t, mux)
	account, err := c.CreateAccount(context.Background(), "alice1234", "Passw0rd!")
	require.NoError(t, err)

	assert.Equal(t, "user-1", account.UserID)
	assert.Equal(t, "app-key-1", account.UserAppKey)
	assert.Equal(t, "access-1", account.AccessToken)
	assert.True(t, account.TokenExpiry.After(time.Now()))
}

func TestCreateAccount_UsernameExists(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "username already taken"})
	}))

	_, err := c.CreateAccount(context.Background(), "alice1234", "Passw0rd!")
	assert.True(t, IsCode(err, CodeUsernameExists), "got %v", err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "username already taken", apiErr.Message)
}

func TestCreateAccount_ValidatesBeforeNetwork(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := c.CreateAccount(context.Background(), "al", "Passw0rd!")
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = c.CreateAccount(context.Background(), "alice1234", "short")
	assert.ErrorAs(t, err, &verr)

	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestLogin(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token":  "access-1",
			"refresh_token": "refresh-1",
			"expires_in":    3600,
		})
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"user_id":      "user-1",
			"user_app_key": "app-key-1",
		})
	})

	c := newTestClient(t, mux)
	account, err := c.Login(context.Background(), "alice1234", "Passw0rd!")
	require.NoError(t, err)

	assert.Equal(t, "access-1", account.AccessToken)
	assert.Equal(t, "user-1", account.UserID)
	assert.Equal(t, "app-key-1", account.UserAppKey)
}

func TestLogin_IdentityResolutionFailureTolerated(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access-1",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	c := newTestClient(t, mux)
	account, err := c.Login(context.Background(), "alice1234", "Passw0rd!")
	require.NoError(t, err)
	assert.Equal(t, "access-1", account.AccessToken)
	assert.Empty(t, account.UserID)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "bad credentials"})
	}))

	_, err := c.Login(context.Background(), "alice1234", "wrong")
	assert.True(t, IsCode(err, CodeInvalidCredentials), "got %v", err)
}

// ---------------------------------------------------------------------------
// Balance / exchange
// ---------------------------------------------------------------------------

func TestGetBalance(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkWallet", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer access-0", r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"public_key":  "So11111111111111111111111111111111111111112",
			"balance_sol": 1.5,
		})
	})
	mux.HandleFunc("POST /checkCustomToken", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, DefaultTokenMint, body["token_mint"])
		writeJSON(w, http.StatusOK, map[string]any{"ui_amount": 42.0})
	})

	c := newTestClient(t, mux)
	balance, err := c.GetBalance(context.Background(), liveSession(c))
	require.NoError(t, err)
	assert.Equal(t, 1.5, balance.SOL)
	assert.Equal(t, 42.0, balance.PIPE)
	assert.Equal(t, "So11111111111111111111111111111111111111112", balance.PublicKey)
}

func TestGetBalance_TokenQueryDegradesToZero(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkWallet", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"public_key": "pk", "balance_sol": 0.0})
	})
	mux.HandleFunc("POST /checkCustomToken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	c := newTestClient(t, mux)
	balance, err := c.GetBalance(context.Background(), liveSession(c))
	require.NoError(t, err)
	assert.Zero(t, balance.SOL)
	assert.Zero(t, balance.PIPE)
}

func TestGetBalance_TriggersReloginWhenExpired(t *testing.T) {
	// Expired access token, no refresh token, valid password: the session
	// must run a full re-login before the wallet check succeeds.
	var logins int32
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/login", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&logins, 1)
		writeJSON(w, http.StatusOK, map[string]any{
			"access_token": "access-fresh",
			"expires_in":   3600,
		})
	})
	mux.HandleFunc("POST /checkWallet", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access-fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"public_key": "pk", "balance_sol": 2.0})
	})
	mux.HandleFunc("POST /checkCustomToken", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ui_amount": 0.0})
	})

	c := newTestClient(t, mux)
	sess := c.NewSession(auth.Account{
		Username:    "alice1234",
		Password:    "Passw0rd!",
		AccessToken: "access-stale",
		TokenExpiry: time.Now().Add(-time.Minute),
	})

	balance, err := c.GetBalance(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, 2.0, balance.SOL)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
	assert.Equal(t, "access-fresh", sess.Snapshot().AccessToken)
}

func TestExchange_ValidatesAmountBeforeNetwork(t *testing.T) {
	var calls int32
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	_, err := c.ExchangeSolForTokens(context.Background(), liveSession(c), -1)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "amount", verr.Field)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestExchange(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /exchangeSolForTokens", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]float64
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, 0.5, body["amount_sol"])
		writeJSON(w, http.StatusOK, map[string]any{"tokens_minted": 500.0})
	})

	c := newTestClient(t, mux)
	minted, err := c.ExchangeSolForTokens(context.Background(), liveSession(c), 0.5)
	require.NoError(t, err)
	assert.Equal(t, 500.0, minted)
}

func TestExchange_InsufficientSOL(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient SOL"})
	}))

	_, err := c.ExchangeSolForTokens(context.Background(), liveSession(c), 10)
	assert.True(t, IsCode(err, CodeInsufficientSOL), "got %v", err)
}

// ---------------------------------------------------------------------------
// Upload / download / delete
// ---------------------------------------------------------------------------

func TestUploadFile(t *testing.T) {
	payload := []byte("hi")

	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "a.txt", r.URL.Query().Get("file_name"))
		assert.Equal(t, "Bearer access-0", r.Header.Get("Authorization"))
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Equal(t, payload, body)
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	c := newTestClient(t, mux)

	var lastSent, lastTotal int64
	rec, err := c.UploadFile(context.Background(), liveSession(c), payload, "a.txt", func(sent, total int64) {
		lastSent, lastTotal = sent, total
	})
	require.NoError(t, err)

	assert.Equal(t, digest.Identifier(payload), rec.ID)
	assert.Equal(t, rec.ID, rec.Hash)
	assert.Equal(t, "a.txt", rec.FileName)
	assert.Equal(t, int64(2), rec.Size)
	assert.False(t, rec.UploadedAt.IsZero())
	assert.Equal(t, int64(2), lastSent)
	assert.Equal(t, int64(2), lastTotal)
}

func TestUploadFile_InsufficientBalance(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusPaymentRequired, map[string]string{"error": "insufficient balance"})
	}))

	_, err := c.UploadFile(context.Background(), liveSession(c), []byte("x"), "a.txt", nil)
	assert.True(t, IsCode(err, CodeInsufficientBalance), "got %v", err)
}

func TestDownloadFile_ByNameOnly(t *testing.T) {
	// The service retrieves by upload-time name; a content identifier is
	// just an unknown name to it.
	payload := []byte("hi")
	id := digest.Identifier(payload)

	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("file_name") == "a.txt" {
			_, _ = w.Write(payload)
			return
		}
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
	})

	c := newTestClient(t, handler)
	sess := liveSession(c)

	got, err := c.DownloadFile(context.Background(), sess, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	_, err = c.DownloadFile(context.Background(), sess, id)
	assert.True(t, IsCode(err, CodeFileNotFound), "download by identifier must fail, got %v", err)
}

func TestDownloadFile_FallsBackToPlainEndpoint(t *testing.T) {
	payload := []byte("legacy gateway")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /download-stream", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("GET /download", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	})

	c := newTestClient(t, mux)
	got, err := c.DownloadFile(context.Background(), liveSession(c), "a.txt")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDownloadFile_Timeout(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL, DownloadTimeout: 50 * time.Millisecond})
	require.NoError(t, err)

	_, err = c.DownloadFile(context.Background(), liveSession(c), "a.txt")
	assert.ErrorIs(t, err, ErrDownloadTimeout)
}

func TestDeleteFile(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /deleteFile", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "user-1", body["user_id"])
		assert.Equal(t, "app-key-1", body["user_app_key"])
		assert.Equal(t, "a.txt", body["file_name"])
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	})

	c := newTestClient(t, mux)
	assert.NoError(t, c.DeleteFile(context.Background(), liveSession(c), "a.txt"))
}

func TestDeleteFile_NotFound(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "no such file"})
	}))

	err := c.DeleteFile(context.Background(), liveSession(c), "ghost.txt")
	assert.True(t, IsCode(err, CodeFileNotFound), "got %v", err)
}

// ---------------------------------------------------------------------------
// Public links
// ---------------------------------------------------------------------------

func TestPublicLinks(t *testing.T) {
	payload := []byte("shared")
	mux := http.NewServeMux()
	mux.HandleFunc("POST /createPublicLink", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"link_hash": "abc123"})
	})
	mux.HandleFunc("GET /public/abc123", func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"), "public download must be anonymous")
		_, _ = w.Write(payload)
	})
	mux.HandleFunc("DELETE /deletePublicLink", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	})

	c := newTestClient(t, mux)
	sess := liveSession(c)

	hash, err := c.CreatePublicLink(context.Background(), sess, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)

	got, err := c.PublicDownload(context.Background(), hash)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	assert.NoError(t, c.DeletePublicLink(context.Background(), sess, hash))
}

// ---------------------------------------------------------------------------
// Generic error mapping
// ---------------------------------------------------------------------------

func TestUnmappedStatusFallsBackToUnknown(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	_, err := c.GetBalance(context.Background(), liveSession(c))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTeapot, apiErr.Status)
	assert.Equal(t, CodeUnknown, apiErr.Code)
	assert.Equal(t, "short and stout", apiErr.Message)
}
