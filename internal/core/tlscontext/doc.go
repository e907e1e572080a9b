// Package tlscontext builds the client TLS configuration used to talk to the
// config server over mutual TLS.
//
// A Context is built once at startup from a keystore (client identity) and a
// truststore (server anchors). It is never refreshed. With hostname
// verification disabled the server chain is still verified against the
// truststore; only the name check is skipped.
package tlscontext
