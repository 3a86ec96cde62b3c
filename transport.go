package memoclaw

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/anajuliabit/memoclaw-sdk/internal/backoff"
)

// Statuses considered transient: safe to retry without side-effect risk.
var retryableStatuses = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// transport executes one logical request to completion, hiding signed auth,
// the single payment re-send, and transient-failure retry from the facade.
// It owns the shared connection pool for the client's lifetime.
type transport struct {
	httpClient *http.Client
	baseURL    string
	signer     *walletSigner
	payment    PaymentResolver

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     float64

	limiter *RateLimiter
	metrics *MetricsCollector
	logger  Logger

	// Seams for tests.
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// request runs the attempt state machine and returns the raw JSON payload of
// a successful response. A 204 or empty body yields a nil payload.
//
// Attempts are zero-indexed; the delay before retry k is baseDelay * 2^k
// unless the server supplies a well-formed Retry-After hint, which wins.
// The payment re-send does not consume a retry-counter slot and happens at
// most once per logical request.
func (t *transport) request(ctx context.Context, method, path string, body map[string]any, query url.Values) (json.RawMessage, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, &ValidationError{Field: "body", Message: err.Error()}
		}
	}

	reqURL := t.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var requestID string
	if t.logger != nil {
		requestID = uuid.NewString()
	}
	start := t.now()
	if t.metrics != nil {
		t.metrics.RecordRequestStart(method, path)
		defer t.metrics.RecordRequestEnd(method, path)
	}

	var (
		lastErr      error
		paymentTried bool
		extraHeaders map[string]string
	)

	for attempt := 0; ; attempt++ {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		resp, err := t.send(ctx, method, reqURL, payload, extraHeaders)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			if attempt < t.maxRetries {
				delay := backoff.Delay(attempt, t.baseDelay, t.maxDelay, t.multiplier, t.jitter)
				if t.logger != nil {
					t.logger.Debug("request failed, retrying",
						"requestID", requestID, "attempt", attempt+1, "maxAttempts", t.maxRetries+1,
						"backoff", delay, "error", err.Error())
				}
				if t.metrics != nil {
					t.metrics.RecordRetry(method, path, attempt)
				}
				if serr := t.sleep(ctx, delay); serr != nil {
					return nil, serr
				}
				continue
			}
			if t.metrics != nil {
				t.metrics.RecordError(KindTransport, method, path)
				t.metrics.RecordRequest(method, path, 0, t.now().Sub(start))
			}
			return nil, newTransportError(lastErr)
		}

		// Payment-required: consult the resolver once, then re-send the same
		// attempt with the payment headers merged in. The re-send goes back
		// through the top of the loop without consuming a retry slot.
		if resp.StatusCode == http.StatusPaymentRequired && !paymentTried {
			paymentTried = true
			if headers := resolvePayment(ctx, t.payment, resp); headers != nil {
				drain(resp)
				extraHeaders = headers
				if t.logger != nil {
					t.logger.Debug("payment required, re-sending with payment headers", "requestID", requestID)
				}
				if t.metrics != nil {
					t.metrics.RecordPaymentRetry(method, path)
				}
				attempt--
				continue
			}
		}

		if retryableStatuses[resp.StatusCode] && attempt < t.maxRetries {
			delay := retryAfterDelay(resp.Header.Get("Retry-After"))
			if delay == 0 {
				delay = backoff.Delay(attempt, t.baseDelay, t.maxDelay, t.multiplier, t.jitter)
			}
			drain(resp)
			if t.logger != nil {
				t.logger.Debug("transient status, retrying",
					"requestID", requestID, "status", resp.StatusCode,
					"attempt", attempt+1, "maxAttempts", t.maxRetries+1, "backoff", delay)
			}
			if t.metrics != nil {
				t.metrics.RecordRetry(method, path, attempt)
			}
			if serr := t.sleep(ctx, delay); serr != nil {
				return nil, serr
			}
			continue
		}

		data, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, newTransportError(readErr)
		}

		duration := t.now().Sub(start)
		if t.metrics != nil {
			t.metrics.RecordRequest(method, path, resp.StatusCode, duration)
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			if resp.StatusCode == http.StatusNoContent || len(data) == 0 {
				return nil, nil
			}
			return json.RawMessage(data), nil
		}

		apiErr := newAPIError(resp.StatusCode, data)
		if t.metrics != nil {
			t.metrics.RecordError(apiErr.Kind, method, path)
		}
		if t.logger != nil {
			t.logger.Debug("terminal status",
				"requestID", requestID, "status", resp.StatusCode, "code", apiErr.Code)
		}
		return nil, apiErr
	}
}

// send performs one network round-trip with a freshly signed credential.
func (t *transport) send(ctx context.Context, method, reqURL string, payload []byte, extraHeaders map[string]string) (*http.Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return nil, err
	}

	auth, err := t.signer.authHeader(t.now())
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Wallet-Auth", auth)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	return t.httpClient.Do(req)
}

// retryAfterDelay honors a Retry-After hint only when it is a plain string
// of decimal digits (delay-seconds). Anything else falls back to backoff.
func retryAfterDelay(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return 0
		}
	}
	seconds, err := strconv.Atoi(value)
	if err != nil || seconds <= 0 {
		return 0
	}
	delay := time.Duration(seconds) * time.Second
	if delay > time.Hour {
		delay = time.Hour
	}
	return delay
}

// drain discards a response body so the connection can be reused.
func drain(resp *http.Response) {
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
