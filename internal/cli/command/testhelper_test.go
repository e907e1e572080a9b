package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/yndnr/cfgclient-go/internal/locator"
)

// mockServer is a config server answering registered paths.
type mockServer struct {
	*httptest.Server

	mu       sync.Mutex
	handlers map[string]http.HandlerFunc
	requests []*http.Request
}

func newMockServer(t *testing.T) *mockServer {
	t.Helper()
	m := &mockServer{handlers: make(map[string]http.HandlerFunc)}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.Lock()
		m.requests = append(m.requests, r.Clone(context.Background()))
		handler, ok := m.handlers[r.URL.Path]
		m.mu.Unlock()

		if !ok {
			http.NotFound(w, r)
			return
		}
		handler(w, r)
	}))
	t.Cleanup(m.Close)
	return m
}

// handle registers a handler for an exact path.
func (m *mockServer) handle(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

func (m *mockServer) requestCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

func (m *mockServer) lastRequest() *http.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

// jsonResponse writes a JSON response.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func environmentHandler(env locator.Environment) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jsonResponse(w, http.StatusOK, env)
	}
}

func sampleEnvironment() locator.Environment {
	return locator.Environment{
		Name:     "billing",
		Profiles: []string{"dev"},
		Version:  "4f2c1e0",
		PropertySources: []locator.PropertySource{
			{Name: "billing-dev.yml", Source: map[string]any{
				"db.url":      "jdbc:postgresql://db-dev/billing",
				"db.password": "hunter2",
			}},
			{Name: "application.yml", Source: map[string]any{
				"db.url":    "jdbc:postgresql://db/billing",
				"pool.size": float64(10),
			}},
		},
	}
}

// syncBuffer is a bytes.Buffer safe for the watcher goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// runApp runs the CLI with args and returns what it wrote.
func runApp(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	return runAppContext(t, context.Background(), args...)
}

func runAppContext(t *testing.T, ctx context.Context, args ...string) (stdout, stderr string, err error) {
	t.Helper()
	var out, errOut syncBuffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	err = app.RunContext(ctx, append([]string{"cfgclient"}, args...))
	return out.String(), errOut.String(), err
}

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "cfgclient.yaml")
	if err := os.WriteFile(path, []byte(strings.TrimLeft(content, "\n")), 0o600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	return path
}
