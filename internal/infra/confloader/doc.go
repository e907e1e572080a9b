// Package confloader loads the client configuration from layered sources.
//
// It uses koanf as the underlying library. Sources, from lowest to highest
// priority:
//
//  1. Defaults (the pre-populated target struct)
//  2. YAML configuration file
//  3. Environment variables (CFGCLIENT_ prefix)
//  4. Command-line flags (LoadMap)
//
// Environment names map onto dotted kebab-case keys: a double underscore
// separates levels and a single underscore becomes a dash, so
// CFGCLIENT_SSL__KEYSTORE_PASSWORD sets ssl.keystore-password.
//
// Watcher reports changes to a configuration file through fsnotify.
package confloader
