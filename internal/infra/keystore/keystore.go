package keystore

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/tls"
	"crypto/x509"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/yndnr/cfgclient-go/internal/infra/tlsroots"
)

// Format identifies a store encoding.
type Format string

const (
	FormatAuto   Format = ""
	FormatJKS    Format = "jks"
	FormatPKCS12 Format = "pkcs12"
	FormatPEM    Format = "pem"
)

const jksMagic = 0xFEEDFEED

var (
	// ErrUnsupportedFormat is returned for store encodings that cannot be decoded.
	ErrUnsupportedFormat = errors.New("keystore: unsupported store format")

	// ErrAliasNotFound is returned when no private key entry matches the alias.
	ErrAliasNotFound = errors.New("keystore: no private key entry for alias")

	// ErrNotIdentityStore is returned when an identity is requested from a
	// format that cannot hold private keys.
	ErrNotIdentityStore = errors.New("keystore: format cannot hold a private key entry")

	// ErrKeyPasswordMismatch is returned when a PKCS#12 store is given a key
	// password that differs from its store password.
	ErrKeyPasswordMismatch = errors.New("keystore: pkcs12 key password must equal the store password")

	// ErrEmptyChain is returned when a key entry carries no certificate.
	ErrEmptyChain = errors.New("keystore: private key entry has no certificate chain")

	// ErrNoTrustedCertificates is returned when a trust store yields nothing to trust.
	ErrNoTrustedCertificates = errors.New("keystore: trust store contains no certificates")
)

// ParseFormat parses a configured store type. Empty and "auto" select detection.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return FormatAuto, nil
	case "jks":
		return FormatJKS, nil
	case "pkcs12", "p12", "pfx":
		return FormatPKCS12, nil
	case "pem":
		return FormatPEM, nil
	default:
		return FormatAuto, fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Detect infers the store format from its leading bytes.
func Detect(data []byte) (Format, error) {
	if len(data) >= 4 && binary.BigEndian.Uint32(data[:4]) == jksMagic {
		return FormatJKS, nil
	}
	if bytes.HasPrefix(bytes.TrimSpace(data), []byte("-----BEGIN")) {
		return FormatPEM, nil
	}
	// PFX is a DER SEQUENCE.
	if len(data) > 0 && data[0] == 0x30 {
		return FormatPKCS12, nil
	}
	return FormatAuto, ErrUnsupportedFormat
}

func resolve(data []byte, format Format) (Format, error) {
	if format != FormatAuto {
		return format, nil
	}
	return Detect(data)
}

// LoadIdentity decodes an identity store and returns the key pair stored
// under alias, with its certificate chain leaf first.
func LoadIdentity(data []byte, format Format, storePassword, alias, keyPassword string) (tls.Certificate, error) {
	format, err := resolve(data, format)
	if err != nil {
		return tls.Certificate{}, err
	}

	switch format {
	case FormatJKS:
		return jksIdentity(data, storePassword, alias, keyPassword)
	case FormatPKCS12:
		return pkcs12Identity(data, storePassword, alias, keyPassword)
	case FormatPEM:
		return tls.Certificate{}, ErrNotIdentityStore
	default:
		return tls.Certificate{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// LoadTrust decodes a trust store and adds every trusted certificate to pool.
// It fails if the store contributes no certificate.
func LoadTrust(data []byte, format Format, password string, pool *tlsroots.Pool) error {
	format, err := resolve(data, format)
	if err != nil {
		return err
	}

	before := pool.Len()

	switch format {
	case FormatJKS:
		err = jksTrust(data, password, pool)
	case FormatPKCS12:
		err = pkcs12Trust(data, password, pool)
	case FormatPEM:
		err = pemTrust(data, pool)
	default:
		err = fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return err
	}

	if pool.Len() == before {
		return ErrNoTrustedCertificates
	}
	return nil
}

// newCertificate assembles a tls.Certificate from a DER chain and key and
// checks that the key matches the leaf.
func newCertificate(chain [][]byte, key crypto.PrivateKey) (tls.Certificate, error) {
	if len(chain) == 0 {
		return tls.Certificate{}, ErrEmptyChain
	}

	leaf, err := x509.ParseCertificate(chain[0])
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("keystore: parse leaf certificate: %w", err)
	}

	if err := matchKey(leaf, key); err != nil {
		return tls.Certificate{}, err
	}

	return tls.Certificate{
		Certificate: chain,
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}

func matchKey(leaf *x509.Certificate, key crypto.PrivateKey) error {
	type publicKeyer interface {
		Public() crypto.PublicKey
	}
	signer, ok := key.(publicKeyer)
	if !ok {
		return fmt.Errorf("keystore: unsupported private key type %T", key)
	}

	type equaler interface {
		Equal(crypto.PublicKey) bool
	}
	pub, ok := signer.Public().(equaler)
	if !ok || !pub.Equal(leaf.PublicKey) {
		return errors.New("keystore: private key does not match leaf certificate")
	}
	return nil
}

// parsePrivateKey accepts PKCS#8, PKCS#1 and SEC 1 DER encodings.
func parsePrivateKey(der []byte) (crypto.PrivateKey, error) {
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch key.(type) {
		case *rsa.PrivateKey, *ecdsa.PrivateKey, ed25519.PrivateKey:
			return key, nil
		default:
			return nil, fmt.Errorf("keystore: unsupported private key type %T", key)
		}
	}
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, errors.New("keystore: failed to parse private key")
}
