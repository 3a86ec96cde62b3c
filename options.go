package memoclaw

import (
	"net/http"
	"strings"
	"time"
)

// Option configures a Client at construction.
type Option func(*clientOptions)

type clientOptions struct {
	privateKey string
	baseURL    string
	timeout    time.Duration

	maxRetries *int
	baseDelay  time.Duration
	maxDelay   time.Duration
	multiplier float64
	jitter     float64

	httpClient          *http.Client
	maxIdleConns        int
	maxIdleConnsPerHost int

	payment PaymentResolver
	metrics *MetricsCollector
	logger  Logger
	limiter *RateLimiter

	configPath string
	skipConfig bool
}

// WithPrivateKey sets the Ethereum private key used for wallet auth.
// Falls back to MEMOCLAW_PRIVATE_KEY, then ~/.memoclaw/config.json.
func WithPrivateKey(key string) Option {
	return func(o *clientOptions) { o.privateKey = key }
}

// WithBaseURL overrides the API base URL.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) { o.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout sets the per-attempt request timeout. Each retry attempt gets
// a fresh timeout budget.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) { o.timeout = d }
}

// WithMaxRetries sets the maximum number of retry attempts after the first.
func WithMaxRetries(n int) Option {
	return func(o *clientOptions) { o.maxRetries = &n }
}

// WithRetryBaseDelay sets the backoff base; the delay before retry k is
// base * 2^k.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(o *clientOptions) { o.baseDelay = d }
}

// WithMaxBackoff caps the computed backoff delay.
func WithMaxBackoff(d time.Duration) Option {
	return func(o *clientOptions) { o.maxDelay = d }
}

// WithJitter adds uniform jitter to backoff delays (factor in [0, 1]).
func WithJitter(f float64) Option {
	return func(o *clientOptions) {
		if f < 0 {
			f = 0
		}
		if f > 1 {
			f = 1
		}
		o.jitter = f
	}
}

// WithHTTPClient supplies a custom *http.Client, replacing the built-in
// connection pool. The caller keeps ownership of its transport.
func WithHTTPClient(client *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = client }
}

// WithPoolSize tunes the built-in connection pool. Ignored when a custom
// HTTP client is supplied.
func WithPoolSize(maxIdle, maxIdlePerHost int) Option {
	return func(o *clientOptions) {
		o.maxIdleConns = maxIdle
		o.maxIdleConnsPerHost = maxIdlePerHost
	}
}

// WithPaymentResolver installs an x402 payment fallback invoked on 402
// responses. Without one, 402 surfaces as a PaymentRequired error.
func WithPaymentResolver(resolver PaymentResolver) Option {
	return func(o *clientOptions) { o.payment = resolver }
}

// WithMetrics enables Prometheus metrics on the default registry.
func WithMetrics() Option {
	return func(o *clientOptions) { o.metrics = NewMetricsCollector() }
}

// WithMetricsCollector sets a custom metrics collector.
func WithMetricsCollector(collector *MetricsCollector) Option {
	return func(o *clientOptions) { o.metrics = collector }
}

// WithLogger sets a logger for transport debug output.
func WithLogger(logger Logger) Option {
	return func(o *clientOptions) { o.logger = logger }
}

// WithRateLimiter enables a client-side token bucket applied before each
// network attempt.
func WithRateLimiter(maxTokens int, refillRate time.Duration) Option {
	return func(o *clientOptions) { o.limiter = NewRateLimiter(maxTokens, refillRate) }
}

// WithConfigFile overrides the config file path (default
// ~/.memoclaw/config.json).
func WithConfigFile(path string) Option {
	return func(o *clientOptions) { o.configPath = path }
}

// WithoutConfigFile disables environment and config file resolution; only
// explicit options and defaults apply.
func WithoutConfigFile() Option {
	return func(o *clientOptions) { o.skipConfig = true }
}

// validate aggregates configuration problems after resolution.
func (o *clientOptions) validate() error {
	var problems []string

	if o.maxRetries != nil && *o.maxRetries < 0 {
		problems = append(problems, "max retries must be non-negative")
	}
	if o.baseDelay <= 0 {
		problems = append(problems, "retry base delay must be positive")
	}
	if o.maxDelay < o.baseDelay {
		problems = append(problems, "max backoff must be >= retry base delay")
	}
	if o.timeout <= 0 {
		problems = append(problems, "timeout must be positive")
	}
	if o.maxIdleConns < 0 || o.maxIdleConnsPerHost < 0 {
		problems = append(problems, "pool sizes must be non-negative")
	}

	if len(problems) > 0 {
		return &ValidationError{Field: "configuration", Message: strings.Join(problems, "; ")}
	}
	return nil
}
