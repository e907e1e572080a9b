package command

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cfgclient-go/internal/bootstrap"
	"github.com/yndnr/cfgclient-go/internal/client/config"
	"github.com/yndnr/cfgclient-go/internal/core/domain"
	"github.com/yndnr/cfgclient-go/internal/infra/confloader"
	"github.com/yndnr/cfgclient-go/internal/infra/shutdown"
	"github.com/yndnr/cfgclient-go/internal/telemetry/logger"
)

// CheckCommand returns the check command.
func CheckCommand() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Verify the configuration and load the TLS material without contacting the server",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "Re-run the check whenever the --config file changes",
			},
			&cli.BoolFlag{
				Name:  "show-config",
				Usage: "Also print the effective configuration with secrets masked",
			},
		},
		Action: checkAction,
	}
}

// checkReport summarises a successful preflight.
type checkReport struct {
	URI            string     `json:"uri" yaml:"uri"`
	Mode           string     `json:"mode" yaml:"mode"`
	Name           string     `json:"name" yaml:"name"`
	Profile        string     `json:"profile" yaml:"profile"`
	Label          string     `json:"label,omitempty" yaml:"label,omitempty"`
	FailFast       bool       `json:"fail_fast" yaml:"fail_fast"`
	VerifyHostname bool       `json:"verify_hostname" yaml:"verify_hostname"`
	ClientSubject  string     `json:"client_subject,omitempty" yaml:"client_subject,omitempty"`
	ClientNotAfter *time.Time `json:"client_not_after,omitempty" yaml:"client_not_after,omitempty"`
	TrustAnchors   int        `json:"trust_anchors,omitempty" yaml:"trust_anchors,omitempty"`
}

func checkAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	log, err := newLogger(c, cfg)
	if err != nil {
		return err
	}

	if !c.Bool("watch") {
		return runCheck(c, log)
	}

	path := ParseGlobalFlags(c).Config
	if path == "" {
		return domain.ErrConfigurationMissing.WithDetails("--config is required with --watch")
	}

	report := func() {
		if err := runCheck(c, log); err != nil {
			fmt.Fprintf(errWriter(c), "error: %v\n", err)
		}
	}
	report()

	w, err := confloader.NewWatcher(confloader.WithWatcherLogger(log.Slog()))
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Watch(path); err != nil {
		_ = w.Stop()
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w.OnChange(func(string) {
		log.Info("configuration changed, re-running check", "file", path)
		report()
	})
	w.StartAsync()

	h := shutdown.NewHandler(5 * time.Second)
	h.OnShutdown(func(context.Context) error {
		return w.Stop()
	})
	return h.WaitContext(c.Context)
}

// runCheck loads the configuration afresh, applies its log level to log,
// builds the transport and prints the report.
func runCheck(c *cli.Context, log logger.Logger) error {
	f, _, err := formatter(c)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if err := log.SetLevel(cfg.Log.Level); err != nil {
		return domain.ErrInvalidConfiguration.WithDetails("log.level").WithCause(err)
	}

	res, err := bootstrap.Start(cfg, bootstrap.WithLogger(log))
	if err != nil {
		return err
	}
	defer res.Client.CloseIdleConnections()

	if err := f.Format(writer(c), newCheckReport(cfg, res)); err != nil {
		return err
	}

	if c.Bool("show-config") {
		fmt.Fprintln(writer(c))
		return f.Format(writer(c), config.Sanitize(cfg))
	}
	return nil
}

func newCheckReport(cfg *config.ClientConfig, res *bootstrap.Result) *checkReport {
	r := &checkReport{
		URI:      logger.RedactURL(res.Client.Endpoint()),
		Mode:     res.Mode(),
		Name:     cfg.Config.Name,
		Profile:  cfg.Config.Profile,
		Label:    cfg.Config.Label,
		FailFast: cfg.Config.FailFast,
	}

	if tc := res.Client.TLS(); tc != nil {
		r.VerifyHostname = tc.VerifyHostname()
		r.TrustAnchors = tc.TrustedCount()
		if leaf := tc.Identity().Leaf; leaf != nil {
			notAfter := leaf.NotAfter.UTC()
			r.ClientSubject = leaf.Subject.String()
			r.ClientNotAfter = &notAfter
		}
	}
	return r
}
