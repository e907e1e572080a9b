package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// Signals are the signals that trigger shutdown.
var Signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM}

// Handler handles graceful shutdown.
type Handler struct {
	timeout time.Duration
	hooks   []func(context.Context) error
	mu      sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// NewHandler creates a new shutdown handler. Hooks share a context that
// expires after timeout.
func NewHandler(timeout time.Duration) *Handler {
	return &Handler{
		timeout: timeout,
		hooks:   make([]func(context.Context) error, 0),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers a shutdown hook.
// Hooks are called in reverse order of registration.
func (h *Handler) OnShutdown(hook func(context.Context) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.hooks = append(h.hooks, hook)
}

// Wait waits for a shutdown signal and executes hooks.
func (h *Handler) Wait() error {
	return h.WaitContext(context.Background())
}

// WaitContext waits for a shutdown signal or for ctx to end, then executes
// hooks. Hooks run at most once; later calls return immediately.
func (h *Handler) WaitContext(ctx context.Context) error {
	sigCtx, stop := signal.NotifyContext(ctx, Signals...)
	<-sigCtx.Done()
	stop()

	var err error
	ran := false
	h.once.Do(func() {
		ran = true
		err = h.run()
	})
	if !ran {
		<-h.done
	}
	return err
}

// Shutdown executes hooks without waiting for a signal.
func (h *Handler) Shutdown() error {
	var err error
	h.once.Do(func() {
		err = h.run()
	})
	return err
}

func (h *Handler) run() error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	h.mu.Lock()
	hooks := make([]func(context.Context) error, len(h.hooks))
	copy(hooks, h.hooks)
	h.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		if err := hooks[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}

	close(h.done)
	return errors.Join(errs...)
}

// Done returns a channel that closes when shutdown is complete.
func (h *Handler) Done() <-chan struct{} {
	return h.done
}

// WithSignals returns a context cancelled on SIGINT or SIGTERM.
func WithSignals(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, Signals...)
}
