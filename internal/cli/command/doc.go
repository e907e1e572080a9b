// Package command defines the cfgclient command line using urfave/cli/v2.
//
//   - root.go: application, global flags, config and logger setup
//   - fetch.go: locate remote configuration and print it
//   - check.go: preflight of the local configuration and TLS material
//   - version.go: build information
//
// Configuration is read from defaults, the --config file, CFGCLIENT_*
// environment variables and finally flags. Errors are returned to the
// caller, which prints them and exits non-zero.
package command
