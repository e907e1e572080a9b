package locator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/oklog/ulid/v2"

	"github.com/yndnr/cfgclient-go/internal/core/domain"
	"github.com/yndnr/cfgclient-go/internal/core/fetchclient"
	"github.com/yndnr/cfgclient-go/internal/core/tlscontext"
	"github.com/yndnr/cfgclient-go/internal/telemetry/logger"
)

type countingObserver struct {
	mu     sync.Mutex
	counts map[string]int
}

func (o *countingObserver) ObserveFetch(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.counts == nil {
		o.counts = make(map[string]int)
	}
	o.counts[outcome]++
}

func (o *countingObserver) get(outcome string) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.counts[outcome]
}

func zeroBackOff() backoff.BackOff {
	return &backoff.ZeroBackOff{}
}

func discardLogger(t *testing.T) logger.Logger {
	t.Helper()
	l, err := logger.New(logger.Config{Level: "error", Format: "text", Output: io.Discard})
	if err != nil {
		t.Fatalf("logger.New() error = %v", err)
	}
	return l
}

func newClient(t *testing.T, url string) *fetchclient.TransportClient {
	t.Helper()
	c, err := fetchclient.CreateClient(url, false, tlscontext.Material{})
	if err != nil {
		t.Fatalf("CreateClient() error = %v", err)
	}
	t.Cleanup(c.CloseIdleConnections)
	return c
}

func testConfig() Config {
	return Config{
		Name:    "billing",
		Profile: "dev",
		Retry: RetryPolicy{
			InitialInterval: time.Millisecond,
			Multiplier:      1.1,
			MaxInterval:     2 * time.Millisecond,
			MaxAttempts:     3,
		},
	}
}

var sampleEnv = Environment{
	Name:     "billing",
	Profiles: []string{"dev"},
	Label:    "main",
	Version:  "4f2c1e0",
	PropertySources: []PropertySource{
		{Name: "billing-dev.yml", Source: map[string]any{"db.url": "jdbc:dev", "pool.size": float64(5)}},
		{Name: "application.yml", Source: map[string]any{"db.url": "jdbc:default", "region": "eu"}},
	},
}

func TestLocator_Path(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"name and profile", Config{Name: "app", Profile: "default"}, "/app/default"},
		{"multiple profiles", Config{Name: "app", Profile: "dev,db"}, "/app/dev,db"},
		{"label", Config{Name: "app", Profile: "dev", Label: "main"}, "/app/dev/main"},
		{"label with slash", Config{Name: "app", Profile: "dev", Label: "feature/x"}, "/app/dev/feature(_)x"},
		{"escaped name", Config{Name: "my app", Profile: "dev"}, "/my%20app/dev"},
		{"label with slashes and spaces", Config{Name: "app", Profile: "dev,db", Label: "release/v1 rc/2"}, "/app/dev,db/release(_)v1%20rc(_)2"},
		{"question mark and percent", Config{Name: "a?b", Profile: "50%", Label: "x;y"}, "/a%3Fb/50%25/x;y"},
	}

	c := newClient(t, "http://cfg.example:8888")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := New(c, tt.cfg).Path(); got != tt.want {
				t.Errorf("Path() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLocator_LocateSendsPathVerbatim(t *testing.T) {
	var requestURI string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestURI = r.RequestURI
		_ = json.NewEncoder(w).Encode(sampleEnv)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.Profile = "dev,db"
	cfg.Label = "feature/x"

	if _, err := New(newClient(t, ts.URL), cfg, WithLogger(discardLogger(t))).Locate(context.Background()); err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if requestURI != "/billing/dev,db/feature(_)x" {
		t.Errorf("RequestURI = %q, want %q", requestURI, "/billing/dev,db/feature(_)x")
	}
}

func TestLocator_Locate(t *testing.T) {
	var got *http.Request
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Clone(context.Background())
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(sampleEnv)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.Label = "main"
	cfg.Token = "s3cr3t"
	cfg.Username = "reader"
	cfg.Password = "pw"

	obs := &countingObserver{}
	loc := New(newClient(t, ts.URL), cfg, WithLogger(discardLogger(t)), WithObserver(obs))

	env, err := loc.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if env == nil {
		t.Fatal("Locate() returned nil environment")
	}
	if env.Name != "billing" || env.Version != "4f2c1e0" || len(env.PropertySources) != 2 {
		t.Errorf("Locate() = %+v", env)
	}

	if got.URL.Path != "/billing/dev/main" {
		t.Errorf("path = %q, want %q", got.URL.Path, "/billing/dev/main")
	}
	if a := got.Header.Get("Accept"); a != "application/json" {
		t.Errorf("Accept = %q", a)
	}
	if tok := got.Header.Get(HeaderToken); tok != "s3cr3t" {
		t.Errorf("%s = %q, want %q", HeaderToken, tok, "s3cr3t")
	}
	user, pass, ok := got.BasicAuth()
	if !ok || user != "reader" || pass != "pw" {
		t.Errorf("BasicAuth() = %q, %q, %v", user, pass, ok)
	}
	if _, err := ulid.ParseStrict(got.Header.Get(HeaderRequestID)); err != nil {
		t.Errorf("%s is not a ULID: %v", HeaderRequestID, err)
	}

	if n := obs.get(OutcomeOK); n != 1 {
		t.Errorf("ok observations = %d, want 1", n)
	}
}

func TestLocator_NoCredentialHeaders(t *testing.T) {
	var got http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		_ = json.NewEncoder(w).Encode(sampleEnv)
	}))
	defer ts.Close()

	loc := New(newClient(t, ts.URL), testConfig(), WithLogger(discardLogger(t)))
	if _, err := loc.Locate(context.Background()); err != nil {
		t.Fatalf("Locate() error = %v", err)
	}

	if got.Get(HeaderToken) != "" {
		t.Error("token header sent without a token")
	}
	if got.Get("Authorization") != "" {
		t.Error("Authorization sent without a username")
	}
}

func TestLocator_RequestIDsDiffer(t *testing.T) {
	var mu sync.Mutex
	seen := make(map[string]bool)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		seen[r.Header.Get(HeaderRequestID)] = true
		mu.Unlock()
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.FailFast = true
	loc := New(newClient(t, ts.URL), cfg, WithLogger(discardLogger(t)), WithBackOff(zeroBackOff))

	_, _ = loc.Locate(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != cfg.Retry.MaxAttempts {
		t.Errorf("distinct request IDs = %d, want %d", len(seen), cfg.Retry.MaxAttempts)
	}
}

func TestLocator_FailFastRetries(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.FailFast = true
	obs := &countingObserver{}
	loc := New(newClient(t, ts.URL), cfg,
		WithLogger(discardLogger(t)),
		WithObserver(obs),
		WithBackOff(zeroBackOff),
	)

	env, err := loc.Locate(context.Background())
	if env != nil {
		t.Error("Locate() returned an environment on failure")
	}
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("Locate() error = %v, want ErrFetchFailed", err)
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "backend unavailable") {
		t.Errorf("error %q lacks status or body", err)
	}

	if n := int(calls.Load()); n != cfg.Retry.MaxAttempts {
		t.Errorf("server calls = %d, want %d", n, cfg.Retry.MaxAttempts)
	}
	if n := obs.get(OutcomeFailed); n != cfg.Retry.MaxAttempts {
		t.Errorf("failed observations = %d, want %d", n, cfg.Retry.MaxAttempts)
	}
}

func TestLocator_FailFastRecovers(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		if n == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_ = json.NewEncoder(w).Encode(sampleEnv)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.FailFast = true
	loc := New(newClient(t, ts.URL), cfg, WithLogger(discardLogger(t)), WithBackOff(zeroBackOff))

	env, err := loc.Locate(context.Background())
	if err != nil {
		t.Fatalf("Locate() error = %v", err)
	}
	if env == nil || env.Name != "billing" {
		t.Errorf("Locate() = %+v", env)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("server calls = %d, want 2", n)
	}
}

func TestLocator_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.NotFound(w, r)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.FailFast = true
	obs := &countingObserver{}
	loc := New(newClient(t, ts.URL), cfg,
		WithLogger(discardLogger(t)),
		WithObserver(obs),
		WithBackOff(zeroBackOff),
	)

	_, err := loc.Locate(context.Background())
	if !errors.Is(err, domain.ErrFetchNotFound) {
		t.Fatalf("Locate() error = %v, want ErrFetchNotFound", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("server calls = %d, want 1", n)
	}
	if n := obs.get(OutcomeNotFound); n != 1 {
		t.Errorf("not_found observations = %d, want 1", n)
	}
}

func TestLocator_WithoutFailFast(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"not found", http.StatusNotFound},
		{"server error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
			}))
			defer ts.Close()

			var buf bytes.Buffer
			log, err := logger.New(logger.Config{Level: "warn", Format: "text", Output: &buf})
			if err != nil {
				t.Fatalf("logger.New() error = %v", err)
			}

			loc := New(newClient(t, ts.URL), testConfig(), WithLogger(log), WithBackOff(zeroBackOff))
			env, err := loc.Locate(context.Background())
			if err != nil || env != nil {
				t.Fatalf("Locate() = %v, %v, want nil, nil", env, err)
			}
			if n := calls.Load(); n != 1 {
				t.Errorf("server calls = %d, want 1", n)
			}
			if !strings.Contains(buf.String(), "continuing without it") {
				t.Errorf("no warning logged: %q", buf.String())
			}
		})
	}
}

func TestLocator_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	cfg := testConfig()
	cfg.FailFast = true
	cfg.Retry.MaxAttempts = 1
	loc := New(newClient(t, url), cfg, WithLogger(discardLogger(t)))

	_, err := loc.Locate(context.Background())
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("Locate() error = %v, want ErrFetchFailed", err)
	}
	if errors.Unwrap(err) == nil {
		t.Error("transport error not wrapped")
	}
}

func TestLocator_MalformedBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "{not json")
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.FailFast = true
	cfg.Retry.MaxAttempts = 1
	loc := New(newClient(t, ts.URL), cfg, WithLogger(discardLogger(t)))

	_, err := loc.Locate(context.Background())
	if !errors.Is(err, domain.ErrFetchFailed) {
		t.Fatalf("Locate() error = %v, want ErrFetchFailed", err)
	}
}

func TestLocator_ContextCanceled(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	cfg := testConfig()
	cfg.FailFast = true
	cfg.Retry.InitialInterval = time.Hour
	cfg.Retry.MaxInterval = time.Hour

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	loc := New(newClient(t, ts.URL), cfg, WithLogger(discardLogger(t)))

	start := time.Now()
	if _, err := loc.Locate(ctx); err == nil {
		t.Fatal("Locate() error = nil, want failure")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("Locate() ignored context cancellation")
	}
}
