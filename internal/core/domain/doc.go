// Package domain defines the error taxonomy of the config client.
//
// Every startup failure is a *DomainError with a stable code:
//
//   - CFG-CONF-*: configuration missing or malformed
//   - CFG-CRED-*: keystore / truststore material could not be loaded
//   - CFG-FETCH-*: the config server could not serve an environment
//
// Errors compare by code via errors.Is and keep their cause for errors.Unwrap.
package domain
