package config

import "time"

// Default configuration values.
const (
	DefaultURI     = "http://localhost:8888"
	DefaultName    = "application"
	DefaultProfile = "default"

	DefaultRetryInitialInterval = 1000 * time.Millisecond
	DefaultRetryMultiplier      = 1.1
	DefaultRetryMaxInterval     = 2000 * time.Millisecond
	DefaultRetryMaxAttempts     = 6

	DefaultLogLevel  = "info"
	DefaultLogFormat = "text"
)

// Default returns the default client configuration. SSL is disabled and
// hostname verification is on.
func Default() *ClientConfig {
	return &ClientConfig{
		Config: ServerSection{
			URI:     DefaultURI,
			Name:    DefaultName,
			Profile: DefaultProfile,
			Retry: RetryConfig{
				InitialInterval: DefaultRetryInitialInterval,
				Multiplier:      DefaultRetryMultiplier,
				MaxInterval:     DefaultRetryMaxInterval,
				MaxAttempts:     DefaultRetryMaxAttempts,
			},
		},
		SSL: SSLSection{
			Enabled:        false,
			VerifyHostname: true,
		},
		Log: LogSection{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}
