package bootstrap

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/yndnr/cfgclient-go/internal/client/config"
	"github.com/yndnr/cfgclient-go/internal/core/fetchclient"
	"github.com/yndnr/cfgclient-go/internal/core/tlscontext"
	"github.com/yndnr/cfgclient-go/internal/infra/buildinfo"
	"github.com/yndnr/cfgclient-go/internal/locator"
	"github.com/yndnr/cfgclient-go/internal/telemetry/logger"
	"github.com/yndnr/cfgclient-go/internal/telemetry/metric"
)

// Phase is a step of the startup state machine.
type Phase int

const (
	PhaseUnconfigured Phase = iota
	PhaseSSLDecision
	PhaseReady
	PhaseFailed
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case PhaseUnconfigured:
		return "unconfigured"
	case PhaseSSLDecision:
		return "ssl_decision"
	case PhaseReady:
		return "ready"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (p Phase) Terminal() bool {
	return p == PhaseReady || p == PhaseFailed
}

// Result is the outcome of Start.
type Result struct {
	Client *fetchclient.TransportClient
	Phase  Phase
}

// Mode returns "secure" or "plain" for a ready result, and "" otherwise.
func (r *Result) Mode() string {
	if r.Phase != PhaseReady || r.Client == nil {
		return ""
	}
	if r.Client.Secure() {
		return "secure"
	}
	return "plain"
}

// Option configures Start.
type Option func(*options)

type options struct {
	logger      logger.Logger
	metrics     *metric.Registry
	builderOpts []tlscontext.Option
}

// WithLogger sets the logger used for phase transitions.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		o.logger = l
	}
}

// WithMetrics instruments the transport and, for a secure client, registers
// a TLSCollector with reg.
func WithMetrics(reg *metric.Registry) Option {
	return func(o *options) {
		o.metrics = reg
	}
}

// WithBuilderOptions passes options to tlscontext.Build.
func WithBuilderOptions(opts ...tlscontext.Option) Option {
	return func(o *options) {
		o.builderOpts = append(o.builderOpts, opts...)
	}
}

type machine struct {
	phase  Phase
	logger logger.Logger
}

func (m *machine) transition(to Phase, args ...any) {
	m.logger.Debug("bootstrap phase", append([]any{"from", m.phase.String(), "to", to.String()}, args...)...)
	m.phase = to
}

func (m *machine) fail(err error) (*Result, error) {
	m.transition(PhaseFailed, "error", err)
	return &Result{Phase: PhaseFailed}, err
}

// Start verifies cfg and creates the transport client. On error the result
// carries PhaseFailed and no client.
func Start(cfg *config.ClientConfig, opts ...Option) (*Result, error) {
	o := &options{logger: logger.Default()}
	for _, opt := range opts {
		opt(o)
	}

	m := &machine{phase: PhaseUnconfigured, logger: o.logger}

	if err := config.Verify(cfg); err != nil {
		return m.fail(err)
	}
	m.transition(PhaseSSLDecision, "ssl_enabled", cfg.SSL.Enabled)

	clientOpts := []fetchclient.Option{
		fetchclient.WithTimeout(cfg.Config.RequestTimeout),
		fetchclient.WithBuilderOptions(o.builderOpts...),
		fetchclient.WithUserAgent(buildinfo.UserAgent()),
	}
	if o.metrics != nil {
		clientOpts = append(clientOpts, fetchclient.WithRoundTripper(o.metrics.InstrumentRoundTripper))
	}

	client, err := fetchclient.CreateClient(cfg.Config.URI, cfg.SSL.Enabled, cfg.SSL.Material(), clientOpts...)
	if err != nil {
		return m.fail(err)
	}

	if o.metrics != nil && client.Secure() {
		if err := o.metrics.Register(metric.NewTLSCollector(client.TLS())); err != nil {
			var already prometheus.AlreadyRegisteredError
			if !errors.As(err, &already) {
				client.CloseIdleConnections()
				return m.fail(err)
			}
		}
	}

	res := &Result{Client: client, Phase: PhaseReady}
	m.transition(PhaseReady, "mode", res.Mode())

	o.logger.Info("config server transport ready",
		"uri", logger.RedactURL(client.Endpoint()),
		"mode", res.Mode(),
		"verify_hostname", client.Secure() && client.TLS().VerifyHostname(),
	)

	return res, nil
}

// LocatorConfig maps the client configuration onto a locator.Config.
func LocatorConfig(cfg *config.ClientConfig) locator.Config {
	s := cfg.Config
	return locator.Config{
		Name:     s.Name,
		Profile:  s.Profile,
		Label:    s.Label,
		Username: s.Username,
		Password: s.Password,
		Token:    s.Token,
		FailFast: s.FailFast,
		Retry: locator.RetryPolicy{
			InitialInterval: s.Retry.InitialInterval,
			Multiplier:      s.Retry.Multiplier,
			MaxInterval:     s.Retry.MaxInterval,
			MaxAttempts:     s.Retry.MaxAttempts,
		},
	}
}

// ErrNotReady is returned by Locate for a result that is not Ready.
var ErrNotReady = errors.New("bootstrap: transport not ready")

// Locate fetches the remote environment through the client of res.
// Without fail-fast a failed fetch yields (nil, nil).
func Locate(ctx context.Context, cfg *config.ClientConfig, res *Result, opts ...locator.Option) (*locator.Environment, error) {
	if res == nil || res.Phase != PhaseReady || res.Client == nil {
		return nil, ErrNotReady
	}
	return locator.New(res.Client, LocatorConfig(cfg), opts...).Locate(ctx)
}
