package config

import (
	"time"

	"github.com/yndnr/cfgclient-go/internal/core/tlscontext"
)

// ClientConfig is the root configuration for cfgclient.
type ClientConfig struct {
	Config  ServerSection  `koanf:"config" json:"config" yaml:"config"`
	SSL     SSLSection     `koanf:"ssl" json:"ssl" yaml:"ssl"`
	Log     LogSection     `koanf:"log" json:"log" yaml:"log"`
	Metrics MetricsSection `koanf:"metrics" json:"metrics" yaml:"metrics"`

	// set holds keys a source supplied, for settings where empty and unset differ.
	set map[string]bool
}

func (c *ClientConfig) markSet(key string) {
	if c.set == nil {
		c.set = make(map[string]bool)
	}
	c.set[key] = true
}

// provided reports whether key holds a value or was explicitly set, possibly
// to the empty string.
func (c *ClientConfig) provided(key, value string) bool {
	return value != "" || c.set[key]
}

// ServerSection describes the config server and what to fetch from it.
type ServerSection struct {
	URI      string `koanf:"uri" json:"uri" yaml:"uri"`
	Name     string `koanf:"name" json:"name" yaml:"name"`
	Profile  string `koanf:"profile" json:"profile" yaml:"profile"` // comma-separated
	Label    string `koanf:"label" json:"label" yaml:"label"`
	Username string `koanf:"username" json:"username" yaml:"username"`
	Password string `koanf:"password" json:"password" yaml:"password"`
	Token    string `koanf:"token" json:"token" yaml:"token"`

	// FailFast makes a failed fetch fatal, after retrying.
	FailFast bool `koanf:"fail-fast" json:"fail_fast" yaml:"fail-fast"`

	// RequestTimeout bounds each HTTP request. Zero means no timeout.
	RequestTimeout time.Duration `koanf:"request-timeout" json:"request_timeout" yaml:"request-timeout"`

	Retry RetryConfig `koanf:"retry" json:"retry" yaml:"retry"`
}

// RetryConfig configures the fail-fast retry schedule.
type RetryConfig struct {
	InitialInterval time.Duration `koanf:"initial-interval" json:"initial_interval" yaml:"initial-interval"`
	Multiplier      float64       `koanf:"multiplier" json:"multiplier" yaml:"multiplier"`
	MaxInterval     time.Duration `koanf:"max-interval" json:"max_interval" yaml:"max-interval"`
	MaxAttempts     int           `koanf:"max-attempts" json:"max_attempts" yaml:"max-attempts"`
}

// SSLSection configures mutual TLS towards the config server.
type SSLSection struct {
	Enabled bool `koanf:"enabled" json:"enabled" yaml:"enabled"`

	Keystore         string `koanf:"keystore" json:"keystore" yaml:"keystore"`
	KeystoreType     string `koanf:"keystore-type" json:"keystore_type" yaml:"keystore-type"`
	KeystorePassword string `koanf:"keystore-password" json:"keystore_password" yaml:"keystore-password"`
	KeyAlias         string `koanf:"key-alias" json:"key_alias" yaml:"key-alias"`
	KeyPassword      string `koanf:"key-password" json:"key_password" yaml:"key-password"`

	Truststore         string `koanf:"truststore" json:"truststore" yaml:"truststore"`
	TruststoreType     string `koanf:"truststore-type" json:"truststore_type" yaml:"truststore-type"`
	TruststorePassword string `koanf:"truststore-password" json:"truststore_password" yaml:"truststore-password"`

	VerifyHostname bool `koanf:"verify-hostname" json:"verify_hostname" yaml:"verify-hostname"`
}

// Material returns the TLS material described by the section.
func (s SSLSection) Material() tlscontext.Material {
	return tlscontext.Material{
		Keystore:           s.Keystore,
		KeystoreType:       s.KeystoreType,
		KeystorePassword:   s.KeystorePassword,
		KeyAlias:           s.KeyAlias,
		KeyPassword:        s.KeyPassword,
		Truststore:         s.Truststore,
		TruststoreType:     s.TruststoreType,
		TruststorePassword: s.TruststorePassword,
		VerifyHostname:     s.VerifyHostname,
	}
}

// LogSection configures logging.
type LogSection struct {
	Level  string `koanf:"level" json:"level" yaml:"level"`
	Format string `koanf:"format" json:"format" yaml:"format"`
}

// MetricsSection configures Prometheus instrumentation.
type MetricsSection struct {
	Enabled bool   `koanf:"enabled" json:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" json:"addr" yaml:"addr"`
}
