package config

import "strings"

const masked = "****"

// Sanitize returns a copy of the config with secrets masked.
//
// Store paths and the key alias are kept; they are needed to diagnose a
// credential load failure.
func Sanitize(cfg *ClientConfig) *ClientConfig {
	sanitized := *cfg

	sanitized.Config.Password = maskSecret(sanitized.Config.Password)
	sanitized.Config.Token = maskSecret(sanitized.Config.Token)
	sanitized.SSL.KeystorePassword = maskSecret(sanitized.SSL.KeystorePassword)
	sanitized.SSL.KeyPassword = maskSecret(sanitized.SSL.KeyPassword)
	sanitized.SSL.TruststorePassword = maskSecret(sanitized.SSL.TruststorePassword)
	sanitized.Config.URI = maskUserinfo(sanitized.Config.URI)

	return &sanitized
}

// maskSecret hides a secret entirely. Empty stays empty so that an unset
// value is distinguishable from a set one.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return masked
}

// maskUserinfo hides a password embedded in a URI.
func maskUserinfo(uri string) string {
	scheme, rest, ok := strings.Cut(uri, "://")
	if !ok {
		return uri
	}
	at := strings.LastIndex(rest, "@")
	slash := strings.Index(rest, "/")
	if at < 0 || (slash >= 0 && slash < at) {
		return uri
	}
	user, _, hasPass := strings.Cut(rest[:at], ":")
	if !hasPass {
		return uri
	}
	return scheme + "://" + user + ":" + masked + rest[at:]
}
