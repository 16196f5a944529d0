package coinify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

// recordedRequest captures what the fake Coinify server received.
type recordedRequest struct {
	Method string
	Path   string
	Auth   string
	CType  string
	Body   []byte
}

type fakeServer struct {
	*httptest.Server
	mu       sync.Mutex
	requests []recordedRequest
}

func newFakeServer(t *testing.T, status int, reply string) *fakeServer {
	t.Helper()
	fs := &fakeServer{}
	fs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		fs.mu.Lock()
		fs.requests = append(fs.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Auth:   r.Header.Get("Authorization"),
			CType:  r.Header.Get("Content-Type"),
			Body:   raw,
		})
		fs.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(reply))
	}))
	t.Cleanup(fs.Close)
	return fs
}

func (fs *fakeServer) last(t *testing.T) recordedRequest {
	t.Helper()
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if len(fs.requests) == 0 {
		t.Fatalf("server received no requests")
	}
	return fs.requests[len(fs.requests)-1]
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New("key", "secret", WithBaseURL(baseURL), WithTimeout(2*time.Second))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

func decodeBody(t *testing.T, raw []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("request body is not json: %v (%q)", err, raw)
	}
	return out
}

func TestNewRequiresCredentials(t *testing.T) {
	if _, err := New("", "secret"); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
	if _, err := New("key", " "); !errors.Is(err, ErrMissingCredentials) {
		t.Fatalf("expected ErrMissingCredentials, got %v", err)
	}
}

func TestNewDefaultsBaseURL(t *testing.T) {
	c, err := New("key", "secret")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("BaseURL = %s", c.BaseURL())
	}
	c, _ = New("key", "secret", WithBaseURL("https://sandbox.example.com/"))
	if c.BaseURL() != "https://sandbox.example.com" {
		t.Fatalf("trailing slash not trimmed: %s", c.BaseURL())
	}
	c, _ = New("key", "secret", WithBaseURL(""))
	if c.BaseURL() != DefaultBaseURL {
		t.Fatalf("empty override should keep default, got %s", c.BaseURL())
	}
}

func TestCallSignsEveryRequest(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"success":true,"data":[]}`)
	c := newTestClient(t, srv.URL)

	if _, err := c.Call(context.Background(), "", "/v3/invoices", nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	req := srv.last(t)
	if req.Method != http.MethodGet {
		t.Fatalf("empty method should default to GET, got %s", req.Method)
	}

	assertSigned(t, req.Auth)
}

var authPattern = regexp.MustCompile(`^Coinify apikey="key", nonce="(\d+)", signature="([0-9a-f]{64})"$`)

// assertSigned checks auth is a valid header for the "key"/"secret" test credentials.
func assertSigned(t *testing.T, auth string) {
	t.Helper()
	m := authPattern.FindStringSubmatch(auth)
	if m == nil {
		t.Fatalf("unexpected Authorization header %q", auth)
	}
	if want := NewSigner("key", "secret").Sign(m[1]); m[2] != want {
		t.Fatalf("signature = %s, want %s", m[2], want)
	}
	if strings.Contains(auth, "secret") {
		t.Fatalf("secret transmitted in header")
	}
}

func TestCallGetSendsNoBody(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv.URL)

	if _, err := c.Call(context.Background(), http.MethodGet, "/v3/invoices", Params{"ignored": 1}); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if req := srv.last(t); len(req.Body) != 0 {
		t.Fatalf("GET should carry no body, got %q", req.Body)
	}
}

func TestCallPostEncodesParams(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv.URL)

	params := Params{"amount": 10.5, "tags": []string{"a"}, "nested": map[string]any{"k": "v"}}
	if _, err := c.Call(context.Background(), http.MethodPost, "/v3/things", params); err != nil {
		t.Fatalf("Call: %v", err)
	}
	req := srv.last(t)
	if req.CType != "application/json" {
		t.Fatalf("Content-Type = %q", req.CType)
	}
	body := decodeBody(t, req.Body)
	if body["amount"] != 10.5 {
		t.Fatalf("amount = %v", body["amount"])
	}
	if nested, ok := body["nested"].(map[string]any); !ok || nested["k"] != "v" {
		t.Fatalf("nested = %#v", body["nested"])
	}
}

func TestCallNonGetWithNilParamsSendsEmptyObject(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv.URL)

	if _, err := c.Call(context.Background(), http.MethodPut, "/v3/invoices/1", nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if req := srv.last(t); string(req.Body) != "{}" {
		t.Fatalf("body = %q, want {}", req.Body)
	}
}

func TestCallRejectsBadInput(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:1")

	if _, err := c.Call(context.Background(), http.MethodGet, "v3/invoices", nil); !errors.Is(err, ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if _, err := c.Call(context.Background(), http.MethodDelete, "/v3/invoices", nil); !errors.Is(err, ErrUnsupportedMethod) {
		t.Fatalf("expected ErrUnsupportedMethod, got %v", err)
	}
	if _, err := c.Call(context.Background(), http.MethodPost, "/v3/invoices", Params{"bad": make(chan int)}); !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("expected ErrInvalidParams, got %v", err)
	}
}

func TestCallServerErrorStillReturnsEnvelope(t *testing.T) {
	srv := newFakeServer(t, http.StatusInternalServerError,
		`{"success":false,"error":{"code":"internal_error","message":"boom"}}`)
	c := newTestClient(t, srv.URL)

	resp, err := c.Call(context.Background(), http.MethodGet, "/v3/invoices", nil)
	if err != nil {
		t.Fatalf("500 with json body must not be a call failure: %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError || !resp.IsHTTPError() {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if resp.Success() {
		t.Fatalf("envelope success should be false")
	}
	apiErr := resp.APIError()
	if apiErr == nil || apiErr.Code != "internal_error" || apiErr.Message != "boom" {
		t.Fatalf("APIError = %#v", apiErr)
	}
}

func TestCallMalformedJSONIsNotACallFailure(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `<html>oops</html>`)
	c := newTestClient(t, srv.URL)

	resp, err := c.Call(context.Background(), http.MethodGet, "/v3/invoices", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if resp.Body != nil {
		t.Fatalf("Body should be nil, got %#v", resp.Body)
	}
	if resp.DecodeErr() == nil {
		t.Fatalf("DecodeErr should explain the missing body")
	}
	if string(resp.Raw) != `<html>oops</html>` {
		t.Fatalf("Raw = %q", resp.Raw)
	}
	if resp.ContentType != "application/json" {
		t.Fatalf("ContentType = %q", resp.ContentType)
	}
}

func TestCallUnreachableHostReturnsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	base := srv.URL
	srv.Close()

	c := newTestClient(t, base)
	resp, err := c.Call(context.Background(), http.MethodGet, "/v3/invoices", nil)
	if resp != nil {
		t.Fatalf("expected nil response, got %#v", resp)
	}
	if !errors.Is(err, ErrCallFailed) {
		t.Fatalf("expected ErrCallFailed, got %v", err)
	}
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %T", err)
	}
	if terr.Message == "" || terr.Code == "" {
		t.Fatalf("transport error fields must be populated: %#v", terr)
	}
	if terr.Op != "GET /v3/invoices" {
		t.Fatalf("Op = %q", terr.Op)
	}
}

func TestCallTimeoutIsClassified(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c, err := New("key", "secret", WithBaseURL(srv.URL), WithTimeout(50*time.Millisecond))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_, err = c.Call(context.Background(), http.MethodGet, "/v3/invoices", nil)
	var terr *TransportError
	if !errors.As(err, &terr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if terr.Code != CodeTimeout {
		t.Fatalf("Code = %q, want %q", terr.Code, CodeTimeout)
	}
}

func TestCallCanceledContext(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Call(ctx, http.MethodGet, "/v3/invoices", nil)
	var terr *TransportError
	if !errors.As(err, &terr) || terr.Code != CodeCanceled {
		t.Fatalf("expected canceled transport error, got %v", err)
	}
}

func TestClientConcurrentCalls(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `{"success":true}`)
	c := newTestClient(t, srv.URL)

	var wg sync.WaitGroup
	errs := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := c.InvoicesList(context.Background())
			if err != nil {
				errs <- err
				return
			}
			if !resp.Success() {
				errs <- errors.New("unexpected envelope")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent call failed: %v", err)
	}
}

type captureLogger struct {
	mu      sync.Mutex
	entries []string
}

func (l *captureLogger) add(msg string, obj interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	raw, _ := json.Marshal(obj)
	l.entries = append(l.entries, msg+" "+string(raw))
}

func (l *captureLogger) InfoObj(msg, _ string, obj interface{})  { l.add(msg, obj) }
func (l *captureLogger) DebugObj(msg, _ string, obj interface{}) { l.add(msg, obj) }
func (l *captureLogger) WarnObj(msg, _ string, obj interface{})  { l.add(msg, obj) }
func (l *captureLogger) ErrorObj(msg, _ string, obj interface{}) { l.add(msg, obj) }

func TestCallNeverLogsSecret(t *testing.T) {
	srv := newFakeServer(t, http.StatusOK, `not json`)
	log := &captureLogger{}
	c, err := New("key", "topsecret", WithBaseURL(srv.URL), WithLogger(log))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.InvoicesList(context.Background()); err != nil {
		t.Fatalf("InvoicesList: %v", err)
	}
	if len(log.entries) == 0 {
		t.Fatalf("expected log entries")
	}
	for _, e := range log.entries {
		if strings.Contains(e, "topsecret") || strings.Contains(e, "signature") {
			t.Fatalf("log entry leaks credentials: %s", e)
		}
	}
}
