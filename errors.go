package memoclaw

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of API failure classes.
type ErrorKind int

const (
	// KindAPI is the catch-all for non-2xx statuses with no dedicated kind.
	KindAPI ErrorKind = iota
	// KindAuthentication covers 401 responses.
	KindAuthentication
	// KindPaymentRequired covers 402 responses after payment fallback failed.
	KindPaymentRequired
	// KindForbidden covers 403 responses.
	KindForbidden
	// KindNotFound covers 404 responses.
	KindNotFound
	// KindValidation covers 400 and 422 responses.
	KindValidation
	// KindRateLimit covers 429 responses that exhausted the retry budget.
	KindRateLimit
	// KindInternal covers 500 responses that exhausted the retry budget.
	KindInternal
	// KindTransport covers network-level faults after retries were exhausted.
	KindTransport
)

func (k ErrorKind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindPaymentRequired:
		return "payment_required"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindValidation:
		return "validation"
	case KindRateLimit:
		return "rate_limit"
	case KindInternal:
		return "internal"
	case KindTransport:
		return "transport"
	default:
		return "api"
	}
}

var statusKinds = map[int]ErrorKind{
	400: KindValidation,
	401: KindAuthentication,
	402: KindPaymentRequired,
	403: KindForbidden,
	404: KindNotFound,
	422: KindValidation,
	429: KindRateLimit,
	500: KindInternal,
}

type suggestionKey struct {
	status int
	code   string
}

// Actionable hints appended to well-known errors, keyed by (status, code).
var errorSuggestions = map[suggestionKey]string{
	{401, "AUTH_ERROR"}:       "Check that your private key is correct and the signature hasn't expired. Ensure system clock is synced.",
	{402, "PAYMENT_REQUIRED"}: "Free tier exhausted. Configure a payment resolver (WithPaymentResolver) for automatic x402 payment, or upgrade your plan.",
	{404, "NOT_FOUND"}:        "The memory ID may have been deleted or never existed. Use List to verify.",
	{422, "VALIDATION_ERROR"}: "Check request payload: content max length is 8192 chars, importance must be 0.0-1.0.",
	{429, "RATE_LIMITED"}:     "Too many requests. The SDK retries automatically, but consider adding delays between batch operations.",
	{500, "INTERNAL_ERROR"}:   "Server error, usually transient. The SDK retries automatically.",
}

// APIError is a typed, terminal failure of one logical request.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Code       string
	Message    string
	Details    map[string]any
	Suggestion string
	Cause      error
}

// Error implements error.
func (e *APIError) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("memoclaw: [%d] %s: %s", e.StatusCode, e.Code, e.Message)
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	if e.Suggestion != "" {
		msg += "\n  hint: " + e.Suggestion
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *APIError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is matches two APIErrors by kind, so callers can compare against
// a bare &APIError{Kind: KindNotFound} with errors.Is.
func (e *APIError) Is(target error) bool {
	if e == nil {
		return false
	}
	var t *APIError
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

type apiErrorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

// newAPIError classifies a non-2xx response body into a typed error.
// Bodies that are not the documented error envelope degrade to code UNKNOWN
// with the raw text as the message.
func newAPIError(statusCode int, body []byte) *APIError {
	var parsed apiErrorBody
	code, message := "UNKNOWN", "Unknown error"
	var details map[string]any
	if err := json.Unmarshal(body, &parsed); err == nil && parsed.Error.Code != "" {
		code = parsed.Error.Code
		message = parsed.Error.Message
		details = parsed.Error.Details
	} else if len(body) > 0 {
		message = string(body)
	}

	kind, ok := statusKinds[statusCode]
	if !ok {
		kind = KindAPI
	}
	return &APIError{
		Kind:       kind,
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Details:    details,
		Suggestion: errorSuggestions[suggestionKey{statusCode, code}],
	}
}

// newTransportError wraps a network-level fault that survived all retries.
func newTransportError(cause error) *APIError {
	return &APIError{
		Kind:    KindTransport,
		Code:    "TRANSPORT_ERROR",
		Message: "network request failed",
		Cause:   cause,
	}
}

// ValidationError is a local argument check failure. It is raised before any
// network attempt and never carries a status code.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("memoclaw: invalid %s: %s", e.Field, e.Message)
}

func validateNonEmpty(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: name, Message: "must be a non-empty string"}
	}
	return nil
}

func validateUnitRange(value float64, name string) error {
	if value < 0 || value > 1 {
		return &ValidationError{Field: name, Message: "must be between 0.0 and 1.0"}
	}
	return nil
}
