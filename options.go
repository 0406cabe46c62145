package wowsql

import (
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/WowSQL/wowsql-sdk-go/logger"
)

// DefaultTimeout is applied when no timeout option is given.
const DefaultTimeout = 30 * time.Second

// Option customizes a Client or StorageClient at construction.
type Option func(*clientOptions)

type clientOptions struct {
	timeout    time.Duration
	httpClient *http.Client
	log        *slog.Logger
	limiter    *rate.Limiter
}

func defaultOptions() clientOptions {
	return clientOptions{
		timeout: DefaultTimeout,
		log:     logger.Get(),
	}
}

// WithTimeout sets the per-client request timeout. It is ignored when
// WithHTTPClient is also given; the supplied client's timeout wins.
func WithTimeout(d time.Duration) Option {
	return func(o *clientOptions) {
		o.timeout = d
	}
}

// WithHTTPClient replaces the default http.Client. The caller owns the
// client's timeout and transport settings.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) {
		o.httpClient = hc
	}
}

// WithLogger replaces the SDK logger for this client.
func WithLogger(l *slog.Logger) Option {
	return func(o *clientOptions) {
		o.log = l
	}
}

// WithRateLimit throttles outgoing requests to perSecond with the given
// burst. The SDK never retries; this only delays sends so a busy caller
// stays under the platform's 429 threshold.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *clientOptions) {
		o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}
