// Package coinify is a client for the Coinify merchant API.
package coinify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samvad-hq/coinify-go/pkg/httpclient"
)

const (
	// DefaultBaseURL is the production API host, without a trailing slash.
	DefaultBaseURL = "https://api.coinify.com"

	// DefaultTimeout bounds a single call when no transport is supplied.
	DefaultTimeout = 30 * time.Second
)

// Client performs signed calls against the Coinify API. Errors are returned
// per call, so a Client may be shared between goroutines.
type Client struct {
	signer    *Signer
	baseURL   string
	timeout   time.Duration
	userAgent string
	http      httpclient.Client
	log       Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides DefaultBaseURL. An empty value keeps the default.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u = strings.TrimRight(strings.TrimSpace(u), "/"); u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout sets the per-call timeout of the default transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithHTTPClient replaces the resty-backed transport.
func WithHTTPClient(hc httpclient.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithLogger attaches a structured logger.
func WithLogger(log Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// WithUserAgent sets the User-Agent header sent with every call.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = strings.TrimSpace(ua)
	}
}

// New builds a Client for the given credentials.
func New(apiKey, apiSecret string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" || strings.TrimSpace(apiSecret) == "" {
		return nil, ErrMissingCredentials
	}

	c := &Client{
		signer:  NewSigner(apiKey, apiSecret),
		baseURL: DefaultBaseURL,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = httpclient.NewRestyClient(c.timeout)
	}
	c.log = ensureLogger(c.log)
	return c, nil
}

// BaseURL returns the API root calls are made against.
func (c *Client) BaseURL() string { return c.baseURL }

// Call performs one authenticated request. An empty method means GET.
// Params are JSON-encoded as the body for every method except GET.
//
// A *TransportError is returned only when no HTTP response was obtained.
// Any response, whatever its status or envelope, is returned as-is.
func (c *Client) Call(ctx context.Context, method, path string, params Params) (*Response, error) {
	if c == nil || c.signer == nil {
		return nil, fmt.Errorf("coinify client is not initialized")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}
	switch method {
	case http.MethodGet, http.MethodPost, http.MethodPut:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, method)
	}
	if !strings.HasPrefix(path, "/") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}

	headers := map[string]string{
		"Authorization": c.signer.Header(),
		"Accept":        "application/json",
	}
	if c.userAgent != "" {
		headers["User-Agent"] = c.userAgent
	}

	var body []byte
	if method != http.MethodGet {
		if params == nil {
			params = Params{}
		}
		encoded, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("%w: encode params: %v", ErrInvalidParams, err)
		}
		body = encoded
		headers["Content-Type"] = "application/json"
	}

	op := method + " " + path
	start := time.Now()
	resp, err := c.http.Do(ctx, method, c.baseURL+path, headers, body)
	if err != nil {
		terr := newTransportError(op, err)
		c.log.ErrorObj("coinify call failed", "coinify_transport_error", map[string]any{
			"op":         op,
			"code":       terr.Code,
			"error":      terr.Message,
			"elapsed_ms": time.Since(start).Milliseconds(),
		})
		return nil, terr
	}

	out := newResponse(resp.StatusCode(), resp.Body())
	out.ContentType = resp.Header("Content-Type")
	c.log.DebugObj("coinify call completed", "coinify_call", map[string]any{
		"op":         op,
		"status":     out.StatusCode,
		"success":    out.Success(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})
	if out.DecodeErr() != nil {
		c.log.WarnObj("coinify response is not a json object", "coinify_decode_error", map[string]any{
			"op":           op,
			"status":       out.StatusCode,
			"content_type": out.ContentType,
			"error":        out.DecodeErr().Error(),
		})
	}
	return out, nil
}
