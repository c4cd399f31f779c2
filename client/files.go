package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pipenetwork/libpipe-go/auth"
	"github.com/pipenetwork/libpipe-go/localstore"
)

// ProgressFunc reports upload progress. sent is the number of payload bytes
// written so far; total the full payload size.
type ProgressFunc func(sent, total int64)

// UploadFile uploads data under fileName and returns the resulting manifest
// record. The record's ID is computed locally from the payload bytes; the
// remote service itself only ever knows the file by fileName, so the caller
// must keep the record (manifest) to retrieve the file later.
//
// The upload runs without a timeout: transfer time is bounded only by the
// payload. onProgress may be nil.
func (c *Client) UploadFile(ctx context.Context, sess *auth.Session, data []byte, fileName string, onProgress ProgressFunc) (*localstore.FileRecord, error) {
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}

	headers, err := sess.Headers(ctx)
	if err != nil {
		return nil, err
	}
	headers.Set("Content-Type", "application/octet-stream")

	var body io.Reader = bytes.NewReader(data)
	if onProgress != nil {
		body = &progressReader{r: body, total: int64(len(data)), report: onProgress}
	}

	query := url.Values{"file_name": {fileName}}
	req, err := c.newRequest(ctx, http.MethodPost, "/upload", query, headers, body)
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(data))

	err = c.doJSON(req, nil, func(status int) ErrorCode {
		if status == http.StatusPaymentRequired {
			return CodeInsufficientBalance
		}
		return ""
	})
	if err != nil {
		return nil, err
	}

	id := c.addresser.Identifier(data)
	return &localstore.FileRecord{
		ID:         id,
		FileName:   fileName,
		Size:       int64(len(data)),
		Hash:       id,
		UploadedAt: time.Now().UTC(),
	}, nil
}

// DownloadFile retrieves a file by its upload-time name. Content identifiers
// are not accepted by the service's retrieval path; passing one yields the
// service's not-found error. The call is bounded by the configured download
// timeout.
func (c *Client) DownloadFile(ctx context.Context, sess *auth.Session, fileName string) ([]byte, error) {
	if err := validateFileName(fileName); err != nil {
		return nil, err
	}

	headers, err := sess.Headers(ctx)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	query := url.Values{"file_name": {fileName}}
	req, err := c.newRequest(ctx, http.MethodGet, "/download-stream", query, headers, nil)
	if err != nil {
		return nil, err
	}
	data, err := c.downloadBody(req)
	if err == nil {
		return data, nil
	}
	if !IsCode(err, CodeFileNotFound) && !IsCode(err, CodeUnknown) {
		return nil, err
	}

	// Older gateways only serve the non-streaming endpoint.
	req, err = c.newRequest(ctx, http.MethodGet, "/download", query, headers, nil)
	if err != nil {
		return nil, err
	}
	return c.downloadBody(req)
}

// downloadBody executes a retrieval request and reads the full payload.
func (c *Client) downloadBody(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, translateDownloadErr(fmt.Errorf("%w: %w", ErrConnectionFailed, err))
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apiError(resp, func(status int) ErrorCode {
			if status == http.StatusNotFound {
				return CodeFileNotFound
			}
			return ""
		})
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, translateDownloadErr(fmt.Errorf("%w: read body: %w", ErrConnectionFailed, err))
	}
	return data, nil
}

// DeleteFile removes a file by its upload-time name.
func (c *Client) DeleteFile(ctx context.Context, sess *auth.Session, fileName string) error {
	if err := validateFileName(fileName); err != nil {
		return err
	}

	headers, err := sess.Headers(ctx)
	if err != nil {
		return err
	}
	headers.Set("Content-Type", "application/json")

	snap := sess.Snapshot()
	body, err := jsonBody(map[string]string{
		"user_id":      snap.UserID,
		"user_app_key": snap.UserAppKey,
		"file_name":    fileName,
	})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/deleteFile", nil, headers, body)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil, func(status int) ErrorCode {
		if status == http.StatusNotFound {
			return CodeFileNotFound
		}
		return ""
	})
}

// CreatePublicLink makes fileName anonymously retrievable and returns the
// link hash accepted by PublicDownload.
func (c *Client) CreatePublicLink(ctx context.Context, sess *auth.Session, fileName string) (string, error) {
	if err := validateFileName(fileName); err != nil {
		return "", err
	}

	headers, err := sess.Headers(ctx)
	if err != nil {
		return "", err
	}
	headers.Set("Content-Type", "application/json")

	body, err := jsonBody(map[string]string{"file_name": fileName})
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/createPublicLink", nil, headers, body)
	if err != nil {
		return "", err
	}
	var out struct {
		LinkHash string `json:"link_hash"`
	}
	err = c.doJSON(req, &out, func(status int) ErrorCode {
		if status == http.StatusNotFound {
			return CodeFileNotFound
		}
		return ""
	})
	if err != nil {
		return "", err
	}
	return out.LinkHash, nil
}

// DeletePublicLink revokes a link hash.
func (c *Client) DeletePublicLink(ctx context.Context, sess *auth.Session, linkHash string) error {
	if linkHash == "" {
		return &ValidationError{Field: "link hash", Reason: "must not be empty"}
	}

	headers, err := sess.Headers(ctx)
	if err != nil {
		return err
	}
	headers.Set("Content-Type", "application/json")

	body, err := jsonBody(map[string]string{"link_hash": linkHash})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodDelete, "/deletePublicLink", nil, headers, body)
	if err != nil {
		return err
	}
	return c.doJSON(req, nil, func(status int) ErrorCode {
		if status == http.StatusNotFound {
			return CodeFileNotFound
		}
		return ""
	})
}

// PublicDownload retrieves a publicly linked file. No account is required.
func (c *Client) PublicDownload(ctx context.Context, linkHash string) ([]byte, error) {
	if linkHash == "" {
		return nil, &ValidationError{Field: "link hash", Reason: "must not be empty"}
	}

	ctx, cancel := context.WithTimeout(ctx, c.downloadTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/public/"+url.PathEscape(linkHash), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	return c.downloadBody(req)
}

func validateFileName(fileName string) error {
	if fileName == "" {
		return &ValidationError{Field: "file name", Reason: "must not be empty"}
	}
	return nil
}

// progressReader reports bytes read from the wrapped reader as they are sent.
type progressReader struct {
	r      io.Reader
	sent   int64
	total  int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.sent += int64(n)
		p.report(p.sent, p.total)
	}
	return n, err
}
