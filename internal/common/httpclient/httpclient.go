// Package httpclient makes JSON requests to the attendance server. It
// resolves paths against a configured base URL, forwards the web session
// cookie the server authenticates with, tags every request with a request id
// and turns error responses into *HTTPError values.
package httpclient

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cspresent/present/internal/common/logtrace"
)

// SessionCookieName is the cookie the server keeps the logged-in user in.
const SessionCookieName = "session"

// RequestIDHeader carries the id of each outbound request.
const RequestIDHeader = "X-Request-ID"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// Configurator provides the server location and credentials.
type Configurator interface {
	GetServerURL() string
	GetSessionCookie() string
}

// Header is the subset of response headers callers need.
type Header = http.Header

// HTTPError is an error response from the server.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// IsUnauthenticated reports whether the server asked the client to log in.
func (e *HTTPError) IsUnauthenticated() bool {
	return e.StatusCode == http.StatusUnauthorized ||
		(e.StatusCode >= 300 && e.StatusCode < 400)
}

// HTTPClient makes requests over the network.
type HTTPClient struct {
	config     Configurator
	httpClient *http.Client
}

// ClientOptions tunes the underlying http.Client.
type ClientOptions struct {
	DisableCertValidation bool          // skip TLS certificate validation
	Timeout               time.Duration // zero selects DefaultTimeout
}

// NewClient creates a client for the server described by config.
func NewClient(config Configurator, opts ...ClientOptions) *HTTPClient {
	clientOpts := ClientOptions{}
	if len(opts) > 0 {
		clientOpts = opts[0]
	}
	if clientOpts.Timeout <= 0 {
		clientOpts.Timeout = DefaultTimeout
	}

	httpClient := &http.Client{
		Timeout: clientOpts.Timeout,
		// the server redirects to its login page when the session is missing;
		// surface that instead of following it to an HTML page
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	if clientOpts.DisableCertValidation {
		httpClient.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return &HTTPClient{
		config:     config,
		httpClient: httpClient,
	}
}

// RequestOptions describes one request.
type RequestOptions struct {
	Method      string            // HTTP method
	Path        string            // endpoint path relative to the server URL
	QueryParams map[string]string // optional query parameters
	Body        []byte            // optional JSON body
}

// buildRequest resolves opts against the server URL and attaches headers.
func buildRequest(ctx context.Context, config Configurator, opts RequestOptions) (*http.Request, error) {
	u, err := url.Parse(config.GetServerURL())
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	ctx = logtrace.WithRequestID(ctx)
	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewReader(opts.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if len(opts.Body) > 0 {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(RequestIDHeader, logtrace.RequestIDFromContext(ctx))
	if cookie := config.GetSessionCookie(); cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
	}
	return req, nil
}

// errorFromResponse builds an *HTTPError from a status code and body.
func errorFromResponse(statusCode int, body []byte) error {
	if statusCode >= 300 && statusCode < 400 {
		return &HTTPError{StatusCode: statusCode, Message: "not logged in to the attendance server"}
	}
	var serverErr struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &serverErr); err == nil {
		if serverErr.Message != "" {
			return &HTTPError{StatusCode: statusCode, Message: serverErr.Message}
		}
		if serverErr.Error != "" {
			return &HTTPError{StatusCode: statusCode, Message: serverErr.Error}
		}
	}
	if statusCode == http.StatusNotFound {
		return &HTTPError{StatusCode: statusCode, Message: "server doesn't implement this endpoint"}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(statusCode)
	}
	return &HTTPError{StatusCode: statusCode, Message: msg}
}

// DoRequest makes a request and returns the response body.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	req, err := buildRequest(ctx, c.config, opts)
	if err != nil {
		return nil, err
	}
	logger := log.With().Str("request_id", req.Header.Get(RequestIDHeader)).Logger()
	logger.Debug().Str("method", opts.Method).Str("url", req.URL.String()).Msg("sending request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	logger.Debug().Int("status", resp.StatusCode).Int("bytes", len(body)).Msg("received response")

	if resp.StatusCode >= 300 {
		return nil, errorFromResponse(resp.StatusCode, body)
	}
	return body, nil
}

// StreamRequest makes a request and returns the unread response body.
func (c *HTTPClient) StreamRequest(ctx context.Context, opts RequestOptions) (io.ReadCloser, Header, error) {
	req, err := buildRequest(ctx, c.config, opts)
	if err != nil {
		return nil, nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, nil, errorFromResponse(resp.StatusCode, body)
	}
	return resp.Body, resp.Header, nil
}
