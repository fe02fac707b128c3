// Package httpstub is the network stand-in registry. Tests pre-declare the
// requests their code is expected to make and the responses to serve; an
// undeclared request or a declared one that never arrives fails verification.
// No sockets are opened.
package httpstub

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mledford/viewharness/internal/observability"
)

// ErrUnsatisfiedDependency is the match target for UnsatisfiedDependencyError
// values.
var ErrUnsatisfiedDependency = errors.New("unsatisfied dependency")

// UnsatisfiedDependencyError reports declared expectations that were never
// satisfied and requests no declaration covered.
type UnsatisfiedDependencyError struct {
	Missing    []string // declared but never requested
	Unexpected []string // requested but never declared
}

func (e *UnsatisfiedDependencyError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, fmt.Sprintf("unmet expectations: %s", strings.Join(e.Missing, ", ")))
	}
	if len(e.Unexpected) > 0 {
		parts = append(parts, fmt.Sprintf("unexpected requests: %s", strings.Join(e.Unexpected, ", ")))
	}
	if len(parts) == 0 {
		return ErrUnsatisfiedDependency.Error()
	}
	return fmt.Sprintf("%v: %s", ErrUnsatisfiedDependency, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrUnsatisfiedDependency) hold.
func (e *UnsatisfiedDependencyError) Is(target error) bool {
	return target == ErrUnsatisfiedDependency
}

// Response is a canned stub response.
type Response struct {
	Status int
	Body   string
}

type stubRule struct {
	method   string
	url      string
	resp     Response
	required bool
	times    int // 0 = unlimited
	served   int
}

func (r *stubRule) exhausted() bool {
	return r.times > 0 && r.served >= r.times
}

func (r *stubRule) key() string {
	return r.method + " " + r.url
}

// Server is an in-process network stand-in.
type Server struct {
	log        *zap.Logger
	limiter    *rate.Limiter
	rules      []*stubRule
	unexpected []string
}

// Option configures a Server.
type Option func(*Server)

// WithLogger attaches a logger; stub traffic is logged at debug level.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) { s.log = logger }
}

// WithThrottle makes the stub answer 429 once the given rate is exceeded,
// simulating a throttled upstream so retry paths can be exercised.
func WithThrottle(limit rate.Limit, burst int) Option {
	return func(s *Server) { s.limiter = rate.NewLimiter(limit, burst) }
}

// NewServer returns a stand-in with no declarations.
func NewServer(opts ...Option) *Server {
	s := &Server{log: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Expect declares a request that must be made at least once before Verify
// passes. Status defaults to 200.
func (s *Server) Expect(method, url string, resp Response) {
	s.add(method, url, resp, true, 0)
}

// ExpectGET is shorthand for Expect("GET", url, ...) returning body with 200.
func (s *Server) ExpectGET(url, body string) {
	s.Expect(http.MethodGet, url, Response{Status: http.StatusOK, Body: body})
}

// ExpectTimes declares a request that must be made at least once and is
// served at most times times; further matching requests count as unexpected.
func (s *Server) ExpectTimes(method, url string, resp Response, times int) {
	s.add(method, url, resp, true, times)
}

// When declares an optional request: served if made, no failure if not.
func (s *Server) When(method, url string, resp Response) {
	s.add(method, url, resp, false, 0)
}

func (s *Server) add(method, url string, resp Response, required bool, times int) {
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	s.rules = append(s.rules, &stubRule{
		method:   strings.ToUpper(method),
		url:      url,
		resp:     resp,
		required: required,
		times:    times,
	})
}

// Do serves one request from the declarations. A request with no declaration
// records a violation and fails immediately with UnsatisfiedDependencyError.
// When a throttle is configured and exceeded, Do returns 429 without
// consuming or violating any declaration.
func (s *Server) Do(ctx context.Context, method, url string) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	if s.limiter != nil && !s.limiter.Allow() {
		observability.StubRequestsTotal.WithLabelValues("throttled").Inc()
		s.log.Debug("stub throttled", zap.String("method", method), zap.String("url", url))
		return Response{Status: http.StatusTooManyRequests, Body: "throttled"}, nil
	}

	method = strings.ToUpper(method)
	for _, r := range s.rules {
		if r.method == method && r.url == url && !r.exhausted() {
			r.served++
			observability.StubRequestsTotal.WithLabelValues("expected").Inc()
			s.log.Debug("stub served", zap.String("method", method), zap.String("url", url), zap.Int("status", r.resp.Status))
			return r.resp, nil
		}
	}

	key := method + " " + url
	s.unexpected = append(s.unexpected, key)
	observability.StubRequestsTotal.WithLabelValues("unexpected").Inc()
	s.log.Debug("stub unexpected request", zap.String("method", method), zap.String("url", url))
	return Response{}, &UnsatisfiedDependencyError{Unexpected: []string{key}}
}

// Verify fails with UnsatisfiedDependencyError if any required declaration
// was never requested or any undeclared request occurred.
func (s *Server) Verify() error {
	var missing []string
	for _, r := range s.rules {
		if r.required && r.served == 0 {
			missing = append(missing, r.key())
		}
	}
	if len(missing) == 0 && len(s.unexpected) == 0 {
		return nil
	}
	return &UnsatisfiedDependencyError{Missing: missing, Unexpected: s.unexpected}
}

// Reset drops all declarations and recorded traffic, restoring test isolation
// when a Server is shared across cases.
func (s *Server) Reset() {
	s.rules = nil
	s.unexpected = nil
}

// Client returns an *http.Client whose transport serves every request from
// this stand-in, for code that speaks http.Client rather than Do.
func (s *Server) Client() *http.Client {
	return &http.Client{Transport: &roundTripper{server: s}}
}

type roundTripper struct {
	server *Server
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := rt.server.Do(req.Context(), req.Method, req.URL.String())
	if err != nil {
		return nil, err
	}
	return &http.Response{
		StatusCode: resp.Status,
		Status:     fmt.Sprintf("%d %s", resp.Status, http.StatusText(resp.Status)),
		Body:       io.NopCloser(bytes.NewReader([]byte(resp.Body))),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}
