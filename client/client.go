// Package client is the HTTP gateway to the remote storage service: account
// creation and login, balance queries, uploads and downloads, public links,
// and SOL-to-PIPE currency exchange.
//
// One Client serves any number of accounts; per-account authorization state
// lives in auth.Session. Every operation validates its inputs before any
// network call and maps remote failures onto the closed error taxonomy in
// errors.go.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pipenetwork/libpipe-go/digest"
)

const (
	// DefaultBaseURL is the public service gateway.
	DefaultBaseURL = "https://api.pipenetwork.io"

	// DefaultDownloadTimeout bounds a single download. Uploads are
	// deliberately unbounded: payload size, and so transfer time, is
	// unknown to the client.
	DefaultDownloadTimeout = 5 * time.Minute

	// DefaultTokenMint is the mint address of the PIPE token, queried by
	// GetBalance for the secondary-currency amount.
	DefaultTokenMint = "F9qvQz8pM2hLxW4dKTn7yBv3cRjUe6sGaN1oEwXiZrP5"
)

// Config holds client construction parameters. Zero values select defaults.
type Config struct {
	BaseURL         string
	DownloadTimeout time.Duration
	TokenMint       string

	// DigestAlgorithm selects the content-identifier hash; empty selects
	// the library default (BLAKE2b-256).
	DigestAlgorithm string

	// HTTPClient overrides the transport, mainly for tests. It must not
	// carry a global timeout or uploads will be cut short.
	HTTPClient *http.Client
}

// Client talks to one service gateway. Safe for concurrent use.
type Client struct {
	baseURL         string
	http            *http.Client
	downloadTimeout time.Duration
	tokenMint       string
	addresser       *digest.Addresser
}

// NewClient creates a Client for the configured gateway.
func NewClient(cfg Config) (*Client, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	parsed, err := url.Parse(baseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, &ValidationError{Field: "base URL", Reason: "must be an absolute http(s) URL"}
	}

	addresser, err := digest.New(cfg.DigestAlgorithm)
	if err != nil {
		return nil, err
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			// No Timeout: uploads run as long as the transfer takes.
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				MaxIdleConnsPerHost: 10,
			},
		}
	}

	downloadTimeout := cfg.DownloadTimeout
	if downloadTimeout <= 0 {
		downloadTimeout = DefaultDownloadTimeout
	}

	tokenMint := cfg.TokenMint
	if tokenMint == "" {
		tokenMint = DefaultTokenMint
	}

	return &Client{
		baseURL:         strings.TrimRight(parsed.String(), "/"),
		http:            httpClient,
		downloadTimeout: downloadTimeout,
		tokenMint:       tokenMint,
		addresser:       addresser,
	}, nil
}

// newRequest builds a request against the gateway.
func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, headers http.Header, body io.Reader) (*http.Request, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("pipe: create request: %w", err)
	}
	for k, values := range headers {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}

// doJSON executes req, decodes a 2xx JSON body into out (out may be nil),
// and maps any failure through mapStatus.
func (c *Client) doJSON(req *http.Request, out any, mapStatus statusMapper) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return apiError(resp, mapStatus)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode body: %w", ErrInvalidResponse, err)
	}
	return nil
}

// statusMapper resolves an operation-specific ErrorCode for a status, or
// CodeUnknown ("") to fall through to the generic mapping.
type statusMapper func(status int) ErrorCode

// apiError reads the error body and builds an APIError. The per-operation
// mapper is consulted first; statuses it does not claim fall back to the
// generic mapping, and anything else carries CodeUnknown with the raw status.
func apiError(resp *http.Response, mapStatus statusMapper) *APIError {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	code := ErrorCode("")
	if mapStatus != nil {
		code = mapStatus(resp.StatusCode)
	}
	if code == "" {
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			code = CodeInvalidCredentials
		default:
			code = CodeUnknown
		}
	}

	return &APIError{
		Status:  resp.StatusCode,
		Code:    code,
		Message: errorMessage(body, resp.StatusCode),
	}
}

// errorMessage extracts a human-readable message from an error body. The
// service usually sends {"error": "..."} or {"message": "..."}; plain-text
// bodies are used as-is.
func errorMessage(body []byte, status int) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	if msg := strings.TrimSpace(string(body)); msg != "" {
		return msg
	}
	return http.StatusText(status)
}

// jsonBody encodes v for a request body.
func jsonBody(v any) (io.Reader, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("pipe: marshal request: %w", err)
	}
	return bytes.NewReader(data), nil
}

// translateDownloadErr rewrites context deadline errors raised by a bounded
// download into the taxonomy's timeout error.
func translateDownloadErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrDownloadTimeout, err)
	}
	return err
}
