// Package fetchclient creates the HTTP client used to fetch remote
// configuration.
//
// The client is plain when ssl is disabled and mutually authenticated when
// it is enabled. Construction either yields a complete client or an error;
// a secure client is never downgraded.
package fetchclient
