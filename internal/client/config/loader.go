package config

import (
	"github.com/yndnr/cfgclient-go/internal/core/domain"
	"github.com/yndnr/cfgclient-go/internal/infra/confloader"
)

// explicitKeys may legitimately be empty, so Load records whether a source
// set them at all.
var explicitKeys = []string{"ssl.key-password", "ssl.truststore-password"}

// Load reads the configuration from defaults, the optional file at path, the
// environment and overrides, in increasing priority. It does not verify.
func Load(path string, overrides map[string]any) (*ClientConfig, error) {
	cfg := Default()

	opts := []confloader.Option{confloader.WithOverrides(overrides)}
	if path != "" {
		opts = append(opts, confloader.WithConfigFile(path))
	}

	l := confloader.NewLoader(opts...)
	if err := l.Load(cfg); err != nil {
		return nil, domain.ErrInvalidConfiguration.WithCause(err)
	}
	for _, key := range explicitKeys {
		if l.Exists(key) {
			cfg.markSet(key)
		}
	}

	return cfg, nil
}
