package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/yndnr/cfgclient-go/internal/core/domain"
	"github.com/yndnr/cfgclient-go/internal/infra/keystore"
)

// Verify validates the configuration. SSL settings are only checked when
// ssl.enabled is true; a disabled section may hold anything.
func Verify(cfg *ClientConfig) error {
	if err := verifyServer(&cfg.Config); err != nil {
		return err
	}
	if cfg.SSL.Enabled {
		if err := verifySSL(cfg); err != nil {
			return err
		}
	}
	if err := verifyLog(&cfg.Log); err != nil {
		return err
	}
	return nil
}

func missing(key string) error {
	return domain.ErrConfigurationMissing.WithDetails(key)
}

func invalid(key, format string, args ...any) error {
	return domain.ErrInvalidConfiguration.WithDetails(key + ": " + fmt.Sprintf(format, args...))
}

func verifyServer(cfg *ServerSection) error {
	if strings.TrimSpace(cfg.URI) == "" {
		return missing("config.uri")
	}

	u, err := url.Parse(cfg.URI)
	if err != nil {
		return domain.ErrInvalidConfiguration.WithDetails("config.uri").WithCause(err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("config.uri", "scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return invalid("config.uri", "missing host")
	}

	if cfg.Name == "" {
		return missing("config.name")
	}
	if cfg.Profile == "" {
		return missing("config.profile")
	}
	if cfg.RequestTimeout < 0 {
		return invalid("config.request-timeout", "must not be negative")
	}

	r := cfg.Retry
	if r.InitialInterval <= 0 {
		return invalid("config.retry.initial-interval", "must be positive")
	}
	if r.Multiplier < 1 {
		return invalid("config.retry.multiplier", "must be at least 1")
	}
	if r.MaxInterval < r.InitialInterval {
		return invalid("config.retry.max-interval", "must be at least the initial interval")
	}
	if r.MaxAttempts < 1 {
		return invalid("config.retry.max-attempts", "must be at least 1")
	}

	return nil
}

// verifySSL requires every ssl key. The key and truststore passwords may be
// set to the empty string (keytool's "same as store password" and a PEM
// bundle respectively) but not left out.
func verifySSL(c *ClientConfig) error {
	cfg := &c.SSL
	required := []struct {
		key   string
		value string
		empty bool
	}{
		{key: "ssl.keystore", value: cfg.Keystore},
		{key: "ssl.keystore-password", value: cfg.KeystorePassword},
		{key: "ssl.key-alias", value: cfg.KeyAlias},
		{key: "ssl.key-password", value: cfg.KeyPassword, empty: true},
		{key: "ssl.truststore", value: cfg.Truststore},
		{key: "ssl.truststore-password", value: cfg.TruststorePassword, empty: true},
	}
	for _, r := range required {
		if r.empty && c.provided(r.key, r.value) {
			continue
		}
		if r.value == "" {
			return missing(r.key)
		}
	}

	if _, err := keystore.ParseFormat(cfg.KeystoreType); err != nil {
		return domain.ErrInvalidConfiguration.WithDetails("ssl.keystore-type").WithCause(err)
	}
	if _, err := keystore.ParseFormat(cfg.TruststoreType); err != nil {
		return domain.ErrInvalidConfiguration.WithDetails("ssl.truststore-type").WithCause(err)
	}

	if strings.HasPrefix(strings.ToLower(c.Config.URI), "http://") {
		return invalid("config.uri", "ssl.enabled requires an https uri")
	}

	return nil
}

func verifyLog(cfg *LogSection) error {
	switch strings.ToLower(cfg.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return invalid("log.level", "unknown level %q", cfg.Level)
	}

	switch strings.ToLower(cfg.Format) {
	case "text", "json":
	default:
		return invalid("log.format", "unknown format %q", cfg.Format)
	}

	return nil
}
