package httpclient

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
)

// TestHTTPClient serves requests from an in-process handler through
// httptest.NewRecorder, without opening sockets.
type TestHTTPClient struct {
	config  Configurator
	handler http.Handler
}

// NewTestClient routes every request to handler.
func NewTestClient(config Configurator, handler http.Handler) *TestHTTPClient {
	return &TestHTTPClient{
		config:  config,
		handler: handler,
	}
}

func (c *TestHTTPClient) serve(ctx context.Context, opts RequestOptions) (*httptest.ResponseRecorder, error) {
	req, err := buildRequest(ctx, c.config, opts)
	if err != nil {
		return nil, err
	}
	if err := req.Context().Err(); err != nil {
		return nil, err
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	return rr, nil
}

// DoRequest makes a request against the handler.
func (c *TestHTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error) {
	rr, err := c.serve(ctx, opts)
	if err != nil {
		return nil, err
	}
	body := rr.Body.Bytes()
	if rr.Code >= 300 {
		return nil, errorFromResponse(rr.Code, body)
	}
	return body, nil
}

// StreamRequest makes a request against the handler.
func (c *TestHTTPClient) StreamRequest(ctx context.Context, opts RequestOptions) (io.ReadCloser, Header, error) {
	rr, err := c.serve(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	if rr.Code >= 300 {
		return nil, nil, errorFromResponse(rr.Code, rr.Body.Bytes())
	}
	return io.NopCloser(bytes.NewReader(rr.Body.Bytes())), rr.Header(), nil
}
