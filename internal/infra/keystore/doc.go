// Package keystore decodes identity and trust stores into Go TLS material.
//
// Supported encodings:
//
//   - jks: Java KeyStore. Private key entries are addressed by alias and
//     protected by their own key password.
//   - pkcs12: PFX files. The alias is the key bag's friendlyName. The key is
//     protected by the store password.
//   - pem: certificate bundles. Only usable as a trust store.
//
// Callers pass raw bytes. Reading the file is left to the caller so that
// the open/read/close lifetime stays in one place.
package keystore
