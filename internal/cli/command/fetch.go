package command

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cfgclient-go/internal/bootstrap"
	"github.com/yndnr/cfgclient-go/internal/cli/output"
	"github.com/yndnr/cfgclient-go/internal/core/domain"
	"github.com/yndnr/cfgclient-go/internal/infra/shutdown"
	"github.com/yndnr/cfgclient-go/internal/locator"
	"github.com/yndnr/cfgclient-go/internal/telemetry/logger"
	"github.com/yndnr/cfgclient-go/internal/telemetry/metric"
)

const maskedProperty = "******"

// FetchCommand returns the fetch command.
func FetchCommand() *cli.Command {
	return &cli.Command{
		Name:  "fetch",
		Usage: "Locate remote configuration and print its properties",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "name",
				Aliases: []string{"n"},
				Usage:   "Application name (overrides config.name)",
			},
			&cli.StringFlag{
				Name:    "profile",
				Aliases: []string{"p"},
				Usage:   "Comma-separated profiles (overrides config.profile)",
			},
			&cli.StringFlag{
				Name:    "label",
				Aliases: []string{"l"},
				Usage:   "Label or branch (overrides config.label)",
			},
			&cli.BoolFlag{
				Name:  "fail-fast",
				Usage: "Retry and fail when the server cannot be reached (overrides config.fail-fast)",
			},
			&cli.BoolFlag{
				Name:  "show-secrets",
				Usage: "Print sensitive property values instead of masking them",
			},
			&cli.BoolFlag{
				Name:  "serve-metrics",
				Usage: "After fetching, serve /metrics on metrics.addr until interrupted",
			},
		},
		Action: fetchAction,
	}
}

func fetchAction(c *cli.Context) error {
	f, format, err := formatter(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(c, cfg)
	if err != nil {
		return err
	}

	serve := c.Bool("serve-metrics")
	if serve && cfg.Metrics.Addr == "" {
		return domain.ErrConfigurationMissing.WithDetails("metrics.addr")
	}

	var reg *metric.Registry
	opts := []bootstrap.Option{bootstrap.WithLogger(log)}
	locOpts := []locator.Option{locator.WithLogger(log)}
	if cfg.Metrics.Enabled || serve {
		reg = metric.NewRegistry()
		opts = append(opts, bootstrap.WithMetrics(reg))
		locOpts = append(locOpts, locator.WithObserver(reg))
	}

	res, err := bootstrap.Start(cfg, opts...)
	if err != nil {
		return err
	}
	defer res.Client.CloseIdleConnections()

	ctx, cancel := shutdown.WithSignals(c.Context)
	defer cancel()

	env, err := bootstrap.Locate(ctx, cfg, res, locOpts...)
	if err != nil {
		return err
	}

	if env == nil {
		fmt.Fprintln(errWriter(c), "no remote configuration located; continuing with local settings")
	} else {
		if !c.Bool("show-secrets") {
			env = maskSecrets(env)
		}
		var data any = env
		if format == output.FormatTable {
			data = propertiesView{env: env}
		}
		if err := f.Format(writer(c), data); err != nil {
			return err
		}
	}

	if !serve {
		return nil
	}

	ln, err := net.Listen("tcp", cfg.Metrics.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", cfg.Metrics.Addr, err)
	}
	return serveMetrics(ctx, ln, reg.Handler(), log)
}

// serveMetrics serves handler at /metrics on ln until ctx ends.
func serveMetrics(ctx context.Context, ln net.Listener, handler http.Handler, log logger.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	h := shutdown.NewHandler(5 * time.Second)
	h.OnShutdown(srv.Shutdown)

	serveErr := make(chan error, 1)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			cancel()
		}
	}()

	log.Info("serving metrics", "addr", ln.Addr().String(), "path", "/metrics")

	if err := h.WaitContext(ctx); err != nil {
		return fmt.Errorf("stop metrics server: %w", err)
	}

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve metrics: %w", err)
	default:
		log.Info("metrics server stopped")
		return nil
	}
}

// maskSecrets returns a copy of env with sensitive property values masked.
func maskSecrets(env *locator.Environment) *locator.Environment {
	masked := *env
	masked.PropertySources = make([]locator.PropertySource, len(env.PropertySources))
	for i, ps := range env.PropertySources {
		source := make(map[string]any, len(ps.Source))
		for k, v := range ps.Source {
			if s, ok := v.(string); ok && (logger.IsSensitiveKey(k) || logger.IsSensitiveValue(s)) {
				v = maskedProperty
			}
			source[k] = v
		}
		masked.PropertySources[i] = locator.PropertySource{Name: ps.Name, Source: source}
	}
	return &masked
}

// propertiesView renders the effective properties with their origin.
type propertiesView struct {
	env *locator.Environment
}

func (v propertiesView) Table() *output.Table {
	t := &output.Table{Headers: []string{"KEY", "VALUE", "SOURCE"}}
	props := v.env.Properties()
	for _, k := range v.env.Keys() {
		source, _ := v.env.Origin(k)
		t.AddRow(k, output.Value(props[k]), source)
	}
	return t
}
