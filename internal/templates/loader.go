// Package templates loads template markup by reference: cache-aside against
// a template cache, fetching misses through the network stand-in with
// retry and backoff so throttled responses behave like a real template CDN.
package templates

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mledford/viewharness/internal/httpstub"
	"github.com/mledford/viewharness/internal/observability"
	"github.com/mledford/viewharness/internal/templatecache"
)

// ErrTemplateUnavailable is returned when the stand-in answers a template
// fetch with a terminal non-200 status.
var ErrTemplateUnavailable = errors.New("template unavailable")

// Fetcher serves template requests. *httpstub.Server satisfies it.
type Fetcher interface {
	Do(ctx context.Context, method, url string) (httpstub.Response, error)
}

// Loader fetches template markup by reference.
type Loader struct {
	fetcher        Fetcher
	cache          templatecache.Cache
	ttl            time.Duration
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	log            *zap.Logger
}

// Option configures a Loader.
type Option func(*Loader)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Loader) { l.log = logger }
}

// WithRetry overrides the retry policy. attempts includes the first try.
func WithRetry(attempts int, baseDelay, maxDelay time.Duration) Option {
	return func(l *Loader) {
		if attempts > 0 {
			l.retryAttempts = attempts
		}
		if baseDelay > 0 {
			l.retryBaseDelay = baseDelay
		}
		if maxDelay > 0 {
			l.retryMaxDelay = maxDelay
		}
	}
}

// WithCacheTTL overrides how long fetched markup stays cached.
func WithCacheTTL(ttl time.Duration) Option {
	return func(l *Loader) {
		if ttl > 0 {
			l.ttl = ttl
		}
	}
}

// NewLoader creates a Loader over the given fetcher and cache.
func NewLoader(fetcher Fetcher, cache templatecache.Cache, opts ...Option) *Loader {
	l := &Loader{
		fetcher:        fetcher,
		cache:          cache,
		ttl:            5 * time.Minute,
		retryAttempts:  3,
		retryBaseDelay: 10 * time.Millisecond,
		retryMaxDelay:  200 * time.Millisecond,
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load returns the markup for ref, from cache when possible. A reference the
// stand-in has no response for fails with UnsatisfiedDependency; throttled
// (429) and 5xx answers are retried with exponential backoff before giving up.
func (l *Loader) Load(ctx context.Context, ref string) (string, error) {
	cached, ok, err := l.cache.Get(ctx, ref)
	if err != nil {
		observability.TemplateCacheErrorsTotal.WithLabelValues("get").Inc()
		l.log.Warn("template cache get failed", zap.String("ref", ref), zap.Error(err))
	} else if ok {
		observability.TemplateLoadsTotal.WithLabelValues("hit").Inc()
		l.log.Debug("template cache hit", zap.String("ref", ref))
		return cached, nil
	}

	markup, err := l.fetch(ctx, ref)
	if err != nil {
		observability.TemplateLoadsTotal.WithLabelValues("error").Inc()
		return "", err
	}
	observability.TemplateLoadsTotal.WithLabelValues("fetched").Inc()

	if err := l.cache.Set(ctx, ref, markup, l.ttl); err != nil {
		observability.TemplateCacheErrorsTotal.WithLabelValues("set").Inc()
		l.log.Warn("template cache set failed", zap.String("ref", ref), zap.Error(err))
	}
	return markup, nil
}

func (l *Loader) fetch(ctx context.Context, ref string) (string, error) {
	var lastErr error

	for attempt := 0; attempt < l.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.TemplateFetchRetriesTotal.Inc()
			delay := l.backoff(attempt)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		markup, err := l.fetchOnce(ctx, ref)
		if err == nil {
			return markup, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return "", err
		}
		l.log.Debug("template fetch retrying", zap.String("ref", ref), zap.Int("attempt", attempt+1), zap.Error(err))
	}

	return "", fmt.Errorf("exhausted retries: %w", lastErr)
}

func (l *Loader) fetchOnce(ctx context.Context, ref string) (string, error) {
	start := time.Now()
	resp, err := l.fetcher.Do(ctx, http.MethodGet, ref)
	duration := time.Since(start).Seconds()
	if err != nil {
		observability.TemplateFetchDuration.WithLabelValues("error").Observe(duration)
		return "", fmt.Errorf("template %q: %w", ref, err)
	}

	switch {
	case resp.Status == http.StatusOK:
		observability.TemplateFetchDuration.WithLabelValues("success").Observe(duration)
		return resp.Body, nil
	case resp.Status == http.StatusTooManyRequests || resp.Status >= 500:
		observability.TemplateFetchDuration.WithLabelValues("retryable").Observe(duration)
		return "", &retryableError{fmt.Errorf("template %q: status %d: %w", ref, resp.Status, ErrTemplateUnavailable)}
	default:
		observability.TemplateFetchDuration.WithLabelValues("error").Observe(duration)
		return "", fmt.Errorf("template %q: status %d: %w", ref, resp.Status, ErrTemplateUnavailable)
	}
}

// backoff returns the delay before the given retry attempt: exponential from
// the base delay, capped at the max, with up to 25% jitter.
func (l *Loader) backoff(attempt int) time.Duration {
	delay := float64(l.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(l.retryMaxDelay) {
		delay = float64(l.retryMaxDelay)
	}
	jitter := rand.Float64() * 0.25 * delay
	return time.Duration(delay + jitter)
}

type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}
