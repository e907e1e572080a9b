package locator

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/cfgclient-go/internal/core/domain"
	"github.com/yndnr/cfgclient-go/internal/core/fetchclient"
	"github.com/yndnr/cfgclient-go/internal/telemetry/logger"
)

const (
	// HeaderToken carries config.token.
	HeaderToken = "X-Config-Token"
	// HeaderRequestID carries a per-attempt ULID.
	HeaderRequestID = "X-Request-ID"

	labelSlashEscape = "(_)"
	maxErrorBody     = 512
)

// Outcomes reported to a FetchObserver.
const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeFailed   = "failed"
)

// RetryPolicy is the fail-fast retry schedule.
type RetryPolicy struct {
	InitialInterval time.Duration
	Multiplier      float64
	MaxInterval     time.Duration
	MaxAttempts     int
}

// Config selects what to fetch and how.
type Config struct {
	Name     string
	Profile  string // comma-separated
	Label    string
	Username string
	Password string
	Token    string
	FailFast bool
	Retry    RetryPolicy
}

// FetchObserver is told the outcome of every attempt.
type FetchObserver interface {
	ObserveFetch(outcome string)
}

// Locator fetches an Environment from the config server.
type Locator struct {
	client   *fetchclient.TransportClient
	cfg      Config
	logger   logger.Logger
	observer FetchObserver
	backOff  func() backoff.BackOff

	mu      sync.Mutex
	entropy io.Reader
}

// Option configures a Locator.
type Option func(*Locator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(loc *Locator) {
		loc.logger = l
	}
}

// WithObserver reports attempt outcomes, e.g. to metrics.
func WithObserver(o FetchObserver) Option {
	return func(loc *Locator) {
		loc.observer = o
	}
}

// WithBackOff replaces the schedule derived from the retry policy. The
// attempt limit still comes from the policy.
func WithBackOff(fn func() backoff.BackOff) Option {
	return func(loc *Locator) {
		loc.backOff = fn
	}
}

// New creates a Locator fetching through client.
func New(client *fetchclient.TransportClient, cfg Config, opts ...Option) *Locator {
	loc := &Locator{
		client:  client,
		cfg:     cfg,
		logger:  logger.Default(),
		entropy: ulid.Monotonic(rand.Reader, 0),
	}
	loc.backOff = loc.exponential

	for _, opt := range opts {
		opt(loc)
	}

	return loc
}

func (l *Locator) exponential() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = l.cfg.Retry.InitialInterval
	b.Multiplier = l.cfg.Retry.Multiplier
	b.MaxInterval = l.cfg.Retry.MaxInterval
	b.RandomizationFactor = 0
	return b
}

// subDelims undoes url.PathEscape for RFC 3986 sub-delims, which are legal
// inside a segment and which the server expects verbatim ("dev,db", "(_)").
var subDelims = strings.NewReplacer(
	"%21", "!", "%27", "'", "%28", "(", "%29", ")",
	"%2A", "*", "%2C", ",", "%3B", ";",
)

func escapeSegment(s string) string {
	return subDelims.Replace(url.PathEscape(s))
}

// Path returns the request path for the configured name, profile and label.
func (l *Locator) Path() string {
	path := "/" + escapeSegment(l.cfg.Name) + "/" + escapeSegment(l.cfg.Profile)
	if l.cfg.Label != "" {
		label := strings.ReplaceAll(l.cfg.Label, "/", labelSlashEscape)
		path += "/" + escapeSegment(label)
	}
	return path
}

// Locate fetches the environment.
//
// With fail-fast, attempts are retried up to the policy's limit, except on
// 404, and the final error is returned. Without it, a single attempt is made
// and any failure yields (nil, nil) after a warning.
func (l *Locator) Locate(ctx context.Context) (*Environment, error) {
	if !l.cfg.FailFast {
		env, err := l.fetch(ctx)
		if err != nil {
			l.logger.Warn("could not locate remote configuration, continuing without it",
				"uri", l.client.Endpoint(),
				"path", l.Path(),
				"error", err,
			)
			return nil, nil
		}
		return env, nil
	}

	attempts := l.cfg.Retry.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	op := func() (*Environment, error) {
		env, err := l.fetch(ctx)
		if errors.Is(err, domain.ErrFetchNotFound) {
			return nil, backoff.Permanent(err)
		}
		return env, err
	}

	env, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(l.backOff()),
		backoff.WithMaxTries(uint(attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			l.logger.Warn("fetch failed, retrying",
				"path", l.Path(),
				"retry_in", next,
				"error", err,
			)
		}),
	)
	if err != nil {
		return nil, err
	}
	return env, nil
}

func (l *Locator) nextRequestID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), l.entropy).String()
}

func (l *Locator) headers(requestID string) http.Header {
	h := http.Header{}
	h.Set("Accept", "application/json")
	h.Set(HeaderRequestID, requestID)
	if l.cfg.Token != "" {
		h.Set(HeaderToken, l.cfg.Token)
	}
	if l.cfg.Username != "" {
		creds := l.cfg.Username + ":" + l.cfg.Password
		h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(creds)))
	}
	return h
}

// fetch performs a single attempt.
func (l *Locator) fetch(ctx context.Context) (*Environment, error) {
	requestID := l.nextRequestID()
	ctx = logger.WithRequestID(logger.WithLogger(ctx, l.logger), requestID)
	log := logger.L(ctx)

	path := l.Path()
	log.Debug("fetching remote configuration", "uri", l.client.Endpoint(), "path", path)

	env, err := l.do(ctx, path, requestID)
	l.observe(err)
	if err != nil {
		log.Debug("fetch attempt failed", "path", path, "error", err)
		return nil, err
	}

	log.Info("located remote configuration",
		"name", env.Name,
		"profiles", strings.Join(env.Profiles, ","),
		"label", env.Label,
		"version", env.Version,
		"sources", len(env.PropertySources),
	)
	return env, nil
}

func (l *Locator) do(ctx context.Context, path, requestID string) (*Environment, error) {
	resp, err := l.client.Get(ctx, path, l.headers(requestID))
	if err != nil {
		return nil, domain.ErrFetchFailed.WithCause(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, domain.ErrFetchNotFound.WithDetails(path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, domain.ErrFetchFailed.WithDetails(path).
			Wrapf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var env Environment
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, domain.ErrFetchFailed.WithDetails(path).WithCause(fmt.Errorf("decode environment: %w", err))
	}
	return &env, nil
}

func (l *Locator) observe(err error) {
	if l.observer == nil {
		return
	}
	switch {
	case err == nil:
		l.observer.ObserveFetch(OutcomeOK)
	case errors.Is(err, domain.ErrFetchNotFound):
		l.observer.ObserveFetch(OutcomeNotFound)
	default:
		l.observer.ObserveFetch(OutcomeFailed)
	}
}
