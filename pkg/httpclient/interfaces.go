package httpclient

import "context"

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header(key string) string
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// A non-nil error means the exchange itself failed; any status code is a Response.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
	Do(ctx context.Context, method, url string, headers map[string]string, body []byte) (Response, error)
}
