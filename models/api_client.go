package models

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rohanthewiz/serr"
)

// ============================================================================
// Remote API Client
//
// Thin HTTP client for the authoritative REST backend. Its one important job
// besides plumbing is the error taxonomy: a TransportError means the request
// never received an HTTP response (treated as "offline", never user-visible),
// while a StatusError is a server-acknowledged rejection that must propagate.
// ============================================================================

// TransportError wraps a network failure where no HTTP response was received.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return "transport failure: " + e.Err.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportErr reports whether err is (or wraps) a transport failure.
func IsTransportErr(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusError is a non-2xx HTTP response — the server received and rejected
// the request, which is not the same as being offline.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server returned status %d", e.StatusCode)
}

// apiClientInstance is the package-level singleton, wired in main.
// Follows the same pattern as the store handles in db.go.
var apiClientInstance *APIClient

// APIClient issues requests against the remote backend.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
	tokenFn    func() string // Current session token source
}

// NewAPIClient creates the client and installs it as the package singleton.
// tokenFn is consulted per request so a refreshed session token takes effect
// without rebuilding the client.
func NewAPIClient(baseURL string, tokenFn func() string) *APIClient {
	c := &APIClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		tokenFn: tokenFn,
	}
	apiClientInstance = c
	return c
}

// GetAPIClient returns the package-level client instance.
// Returns nil if not configured — callers must nil-check.
func GetAPIClient() *APIClient {
	return apiClientInstance
}

// BaseURL returns the backend base URL the client was configured with.
func (c *APIClient) BaseURL() string {
	return c.baseURL
}

// CapturedHeaders snapshots the headers an online request would carry right
// now, including the current auth token. Stored verbatim on queue entries.
func (c *APIClient) CapturedHeaders() map[string]string {
	headers := map[string]string{
		"Content-Type": "application/json",
	}
	if token := c.tokenFn(); token != "" {
		headers["Authorization"] = "Bearer " + token
	}
	return headers
}

// Do issues a request and returns the response body.
// A network failure comes back as *TransportError, a non-2xx response as
// *StatusError with the body attached.
func (c *APIClient) Do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	status, respBody, err := c.send(ctx, method, c.baseURL+path, body, c.CapturedHeaders())
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		return nil, &StatusError{StatusCode: status, Body: string(respBody)}
	}
	return respBody, nil
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *APIClient) GetJSON(ctx context.Context, path string, out interface{}) error {
	respBody, err := c.Do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return serr.Wrap(err, "failed to decode response for "+path)
	}
	return nil
}

// SendJSON marshals in, issues the request, and decodes into out (which may
// be nil when the caller only cares about success).
func (c *APIClient) SendJSON(ctx context.Context, method, path string, in, out interface{}) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return serr.Wrap(err, "failed to encode request for "+path)
		}
	}

	respBody, err := c.Do(ctx, method, path, body)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return serr.Wrap(err, "failed to decode response for "+path)
	}
	return nil
}

// Replay issues a captured queue entry exactly as it was recorded.
// Returns the HTTP status and body; err is non-nil only for transport
// failures so the sync engine can classify by status code.
func (c *APIClient) Replay(ctx context.Context, m Mutation, headers map[string]string) (int, []byte, error) {
	var body []byte
	if m.Body != "" {
		body = []byte(m.Body)
	}
	return c.send(ctx, m.Method, c.baseURL+m.Endpoint, body, headers)
}

// send is the shared request path. Transport failures are wrapped as
// *TransportError; any received response is returned as-is.
func (c *APIClient) send(ctx context.Context, method, url string, body []byte, headers map[string]string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, nil, serr.Wrap(err, "failed to create request")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, &TransportError{Err: err}
	}

	return resp.StatusCode, respBody, nil
}
