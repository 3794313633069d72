package httpclient

import (
	"context"
	"io"
)

// Doer is implemented by HTTPClient and TestHTTPClient.
type Doer interface {
	// DoRequest makes a request and returns the full response body.
	DoRequest(ctx context.Context, opts RequestOptions) ([]byte, error)

	// StreamRequest makes a request and returns the response body unread,
	// with the response headers. The caller closes the reader.
	StreamRequest(ctx context.Context, opts RequestOptions) (io.ReadCloser, Header, error)
}

var _ Doer = &HTTPClient{}
var _ Doer = &TestHTTPClient{}
