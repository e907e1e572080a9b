// Package tlsroots provides trust-anchor management for the config client.
//
//   - roots.go: an explicit Pool of trusted issuers plus hostname-free
//     chain verification used when hostname checks are disabled
//
// The pool never includes system roots. A truststore that yields no
// certificates leaves the pool empty, which callers treat as a load failure.
package tlsroots
