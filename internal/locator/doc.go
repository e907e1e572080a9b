// Package locator fetches externalized configuration from a config server
// speaking the Spring Cloud Config protocol.
//
// A Locator issues GET {uri}/{name}/{profiles}[/{label}] and decodes the
// returned Environment. With fail-fast enabled, failures are retried with
// exponential backoff and the last error is returned; otherwise a single
// attempt is made and a failure is logged and swallowed.
package locator
