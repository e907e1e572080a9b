// Package config defines the config client configuration structure.
//
// Keys are dotted kebab-case (config.fail-fast, ssl.key-alias) and are
// loaded through confloader. Default returns the baseline; Verify checks a
// loaded configuration before any transport is built; Sanitize masks
// secrets for display.
package config
