// Package bootstrap is the explicit startup path of cfgclient.
//
// Start verifies a ClientConfig and builds the transport towards the config
// server, moving through the phases
//
//	Unconfigured -> SslDecision -> Ready (plain or secure)
//	                            -> Failed
//
// Ready and Failed are terminal. Nothing is kept in package state; the
// caller owns the returned Result. Locate then fetches the remote
// environment through that transport.
package bootstrap
