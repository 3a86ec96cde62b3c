package memoclaw

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// Hardhat's well-known dev account #0. Never fund this key.
const (
	testPrivateKey  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testWalletAddr  = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	contentTypeJSON = "application/json"
)

// newTestClient builds a client against a test server with instant retries
// and no config/env resolution.
func newTestClient(t *testing.T, serverURL string, extra ...Option) *Client {
	t.Helper()
	opts := append([]Option{
		WithoutConfigFile(),
		WithPrivateKey(testPrivateKey),
		WithBaseURL(serverURL),
		WithRetryBaseDelay(time.Millisecond),
	}, extra...)
	client, err := New(opts...)
	if err != nil {
		t.Fatalf("New() returned error: %v", err)
	}
	// Don't sleep for real in tests.
	client.transport.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	return client
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body string) {
	t.Helper()
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatalf("Failed to write response: %v", err)
	}
}

func TestRequestRetriesTransientStatus(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n < 3 {
			writeJSON(t, w, http.StatusInternalServerError, `{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"id":"m1","stored":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(2))
	result, err := client.Store(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Store() returned error: %v", err)
	}
	if !result.Stored {
		t.Error("Expected stored=true")
	}
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
}

func TestRequestAttemptBudgetExhausted(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeJSON(t, w, http.StatusServiceUnavailable, `{"error":{"code":"UNAVAILABLE","message":"down"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(2))
	_, err := client.Store(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("Expected error after retry budget exhausted")
	}
	// Exactly maxRetries+1 attempts, never more.
	if got := atomic.LoadInt32(&attempts); got != 3 {
		t.Errorf("Expected 3 attempts, got %d", got)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", apiErr.StatusCode)
	}
}

func TestRequestNonRetryableStatusFailsFast(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeJSON(t, w, http.StatusNotFound, `{"error":{"code":"NOT_FOUND","message":"no such memory"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(3))
	_, err := client.Get(context.Background(), "missing")
	if err == nil {
		t.Fatal("Expected error")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("Expected 1 attempt for terminal status, got %d", got)
	}
	if !errors.Is(err, &APIError{Kind: KindNotFound}) {
		t.Errorf("Expected KindNotFound, got %v", err)
	}
}

func TestFreshCredentialPerAttempt(t *testing.T) {
	var headers []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = append(headers, r.Header.Get("X-Wallet-Auth"))
		if len(headers) < 3 {
			writeJSON(t, w, http.StatusInternalServerError, `{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"id":"m1","stored":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(2))
	// Advance the clock one second per call so every signed timestamp differs.
	base := time.Unix(1_700_000_000, 0)
	var ticks int64
	client.transport.now = func() time.Time {
		return base.Add(time.Duration(atomic.AddInt64(&ticks, 1)) * time.Second)
	}

	if _, err := client.Store(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Store() returned error: %v", err)
	}
	if len(headers) != 3 {
		t.Fatalf("Expected 3 credentials, got %d", len(headers))
	}
	seen := map[string]bool{}
	for _, h := range headers {
		if !strings.HasPrefix(h, testWalletAddr+":") {
			t.Errorf("Credential missing wallet address prefix: %q", h)
		}
		if seen[h] {
			t.Errorf("Credential reused across attempts: %q", h)
		}
		seen[h] = true
	}
}

func TestPaymentResendOnce(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&attempts, 1)
		if n == 1 {
			if r.Header.Get("X-PAYMENT") != "" {
				t.Error("First attempt should not carry payment headers")
			}
			writeJSON(t, w, http.StatusPaymentRequired, `{"error":{"code":"PAYMENT_REQUIRED","message":"pay up"}}`)
			return
		}
		if r.Header.Get("X-PAYMENT") != "signed-payload" {
			t.Errorf("Expected payment header on re-send, got %q", r.Header.Get("X-PAYMENT"))
		}
		writeJSON(t, w, http.StatusOK, `{"id":"m1","stored":true}`)
	}))
	defer server.Close()

	resolver := PaymentResolverFunc(func(ctx context.Context, resp *http.Response) (map[string]string, error) {
		return map[string]string{"X-PAYMENT": "signed-payload"}, nil
	})
	client := newTestClient(t, server.URL, WithPaymentResolver(resolver))

	result, err := client.Store(context.Background(), "hello", nil)
	if err != nil {
		t.Fatalf("Store() returned error: %v", err)
	}
	if result.ID != "m1" {
		t.Errorf("Expected id m1, got %s", result.ID)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("Expected 2 attempts (original + paid re-send), got %d", got)
	}
}

func TestPaymentResendNotRepeated(t *testing.T) {
	// The server rejects the paid re-send too; the resolver must not be
	// consulted a second time and the 402 becomes terminal.
	var attempts, resolves int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeJSON(t, w, http.StatusPaymentRequired, `{"error":{"code":"PAYMENT_REQUIRED","message":"pay up"}}`)
	}))
	defer server.Close()

	resolver := PaymentResolverFunc(func(ctx context.Context, resp *http.Response) (map[string]string, error) {
		atomic.AddInt32(&resolves, 1)
		return map[string]string{"X-PAYMENT": "signed-payload"}, nil
	})
	client := newTestClient(t, server.URL, WithPaymentResolver(resolver))

	_, err := client.Store(context.Background(), "hello", nil)
	if !errors.Is(err, &APIError{Kind: KindPaymentRequired}) {
		t.Fatalf("Expected KindPaymentRequired, got %v", err)
	}
	if got := atomic.LoadInt32(&attempts); got != 2 {
		t.Errorf("Expected 2 attempts, got %d", got)
	}
	if got := atomic.LoadInt32(&resolves); got != 1 {
		t.Errorf("Expected resolver consulted once, got %d", got)
	}
}

func TestPaymentRequiredWithoutResolver(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		writeJSON(t, w, http.StatusPaymentRequired, `{"error":{"code":"PAYMENT_REQUIRED","message":"pay up"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Store(context.Background(), "hello", nil)
	if !errors.Is(err, &APIError{Kind: KindPaymentRequired}) {
		t.Fatalf("Expected KindPaymentRequired, got %v", err)
	}
	var apiErr *APIError
	errors.As(err, &apiErr)
	if apiErr.Suggestion == "" {
		t.Error("Expected a suggestion on payment-required errors")
	}
	if got := atomic.LoadInt32(&attempts); got != 1 {
		t.Errorf("Expected 1 attempt without a resolver, got %d", got)
	}
}

func TestBackoffDelaysDeterministic(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusInternalServerError, `{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL,
		WithMaxRetries(3),
		WithRetryBaseDelay(500*time.Millisecond),
	)
	var delays []time.Duration
	client.transport.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	_, err := client.Store(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("Expected error")
	}
	want := []time.Duration{500 * time.Millisecond, time.Second, 2 * time.Second}
	if len(delays) != len(want) {
		t.Fatalf("Expected %d delays, got %d (%v)", len(want), len(delays), delays)
	}
	for i, d := range delays {
		if d != want[i] {
			t.Errorf("Delay %d: expected %v, got %v", i, want[i], d)
		}
	}
}

func TestRetryAfterOverridesBackoff(t *testing.T) {
	var attempts int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			w.Header().Set("Retry-After", "2")
			writeJSON(t, w, http.StatusTooManyRequests, `{"error":{"code":"RATE_LIMITED","message":"slow down"}}`)
			return
		}
		writeJSON(t, w, http.StatusOK, `{"id":"m1","stored":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, WithMaxRetries(1))
	var delays []time.Duration
	client.transport.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}

	if _, err := client.Store(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Store() returned error: %v", err)
	}
	if len(delays) != 1 || delays[0] != 2*time.Second {
		t.Errorf("Expected a single 2s delay from Retry-After, got %v", delays)
	}
}

func TestRetryAfterDelayParsing(t *testing.T) {
	tests := []struct {
		value string
		want  time.Duration
	}{
		{"3", 3 * time.Second},
		{" 10 ", 10 * time.Second},
		{"", 0},
		{"0", 0},
		{"-1", 0},
		{"2.5", 0},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
		{"7200", time.Hour}, // capped
	}
	for _, tt := range tests {
		if got := retryAfterDelay(tt.value); got != tt.want {
			t.Errorf("retryAfterDelay(%q): expected %v, got %v", tt.value, tt.want, got)
		}
	}
}

func TestNetworkFaultAfterRetries(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // every dial now fails

	client := newTestClient(t, server.URL, WithMaxRetries(2))
	_, err := client.Store(context.Background(), "hello", nil)
	if err == nil {
		t.Fatal("Expected error against a closed server")
	}
	if !errors.Is(err, &APIError{Kind: KindTransport}) {
		t.Errorf("Expected KindTransport, got %v", err)
	}
	var apiErr *APIError
	errors.As(err, &apiErr)
	if apiErr.Unwrap() == nil {
		t.Error("Expected a wrapped network cause")
	}
}

func TestContextCancellation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusOK, `{"id":"m1","stored":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Store(ctx, "hello", nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
}

func TestNoContentResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	raw, err := client.transport.request(context.Background(), http.MethodDelete, "/v1/memories/m1", nil, nil)
	if err != nil {
		t.Fatalf("request() returned error: %v", err)
	}
	if raw != nil {
		t.Errorf("Expected nil payload for 204, got %q", raw)
	}
}

func TestRequestHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != contentTypeJSON {
			t.Errorf("Expected Content-Type %s, got %s", contentTypeJSON, ct)
		}
		auth := r.Header.Get("X-Wallet-Auth")
		parts := strings.SplitN(auth, ":", 3)
		if len(parts) != 3 {
			t.Fatalf("Expected address:timestamp:signature credential, got %q", auth)
		}
		if parts[0] != testWalletAddr {
			t.Errorf("Expected address %s, got %s", testWalletAddr, parts[0])
		}
		if !strings.HasPrefix(parts[2], "0x") || len(parts[2]) != 132 {
			t.Errorf("Expected 65-byte hex signature, got %q", parts[2])
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("Failed to decode request body: %v", err)
		}
		if body["content"] != "hello" {
			t.Errorf("Expected content 'hello', got %v", body["content"])
		}
		writeJSON(t, w, http.StatusOK, `{"id":"m1","stored":true}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if _, err := client.Store(context.Background(), "hello", nil); err != nil {
		t.Fatalf("Store() returned error: %v", err)
	}
}

func TestUnknownErrorEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, `not json at all`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.Store(context.Background(), "hello", nil)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %T", err)
	}
	if apiErr.Code != "UNKNOWN" {
		t.Errorf("Expected code UNKNOWN, got %s", apiErr.Code)
	}
	if apiErr.Message != "not json at all" {
		t.Errorf("Expected raw body as message, got %q", apiErr.Message)
	}
	if apiErr.Kind != KindValidation {
		t.Errorf("Expected KindValidation for 400, got %v", apiErr.Kind)
	}
}
