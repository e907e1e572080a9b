package command

import (
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/cfgclient-go/internal/cli/output"
	"github.com/yndnr/cfgclient-go/internal/client/config"
	"github.com/yndnr/cfgclient-go/internal/core/domain"
	"github.com/yndnr/cfgclient-go/internal/infra/buildinfo"
	"github.com/yndnr/cfgclient-go/internal/telemetry/logger"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "cfgclient",
		Usage:   "Fetch remote configuration from a config server, optionally over mutual TLS",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			FetchCommand(),
			CheckCommand(),
			VersionCommand(),
		},
	}
}

// globalFlags returns the global CLI flags.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to a YAML configuration file",
			EnvVars: []string{"CFGCLIENT_CONFIG_FILE"},
		},
		&cli.StringFlag{
			Name:    "uri",
			Aliases: []string{"u"},
			Usage:   "Config server URI (overrides config.uri)",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json, yaml",
			Value:   "table",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level: debug, info, warn, error (overrides log.level)",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Config   string
	URI      string
	Output   string
	LogLevel string
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Config:   c.String("config"),
		URI:      c.String("uri"),
		Output:   c.String("output"),
		LogLevel: c.String("log-level"),
	}
}

// flagOverrides maps flags that were set on the command line to config keys.
var flagOverrides = []struct {
	flag   string
	key    string
	isBool bool
}{
	{flag: "uri", key: "config.uri"},
	{flag: "log-level", key: "log.level"},
	{flag: "name", key: "config.name"},
	{flag: "profile", key: "config.profile"},
	{flag: "label", key: "config.label"},
	{flag: "fail-fast", key: "config.fail-fast", isBool: true},
}

// overrides collects explicitly set flags, so unset flags never mask file
// or environment values.
func overrides(c *cli.Context) map[string]any {
	values := make(map[string]any)
	for _, o := range flagOverrides {
		if !c.IsSet(o.flag) {
			continue
		}
		if o.isBool {
			values[o.key] = c.Bool(o.flag)
		} else {
			values[o.key] = c.String(o.flag)
		}
	}
	return values
}

// loadConfig reads the layered configuration for the current invocation.
func loadConfig(c *cli.Context) (*config.ClientConfig, error) {
	return config.Load(ParseGlobalFlags(c).Config, overrides(c))
}

// newLogger creates the logger for cfg, writing to the app's error stream,
// and installs it as the default.
func newLogger(c *cli.Context, cfg *config.ClientConfig) (logger.Logger, error) {
	log, err := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: errWriter(c),
	})
	if err != nil {
		return nil, domain.ErrInvalidConfiguration.WithDetails("log").WithCause(err)
	}
	logger.SetDefault(log)
	return log, nil
}

// formatter returns the formatter selected by --output.
func formatter(c *cli.Context) (output.Formatter, output.Format, error) {
	format, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return nil, "", err
	}
	return output.NewFormatter(format), format, nil
}

func writer(c *cli.Context) io.Writer {
	if c.App != nil && c.App.Writer != nil {
		return c.App.Writer
	}
	return os.Stdout
}

func errWriter(c *cli.Context) io.Writer {
	if c.App != nil && c.App.ErrWriter != nil {
		return c.App.ErrWriter
	}
	return os.Stderr
}
