package tlscontext

import (
	"crypto/tls"
	"fmt"
	"os"

	"github.com/yndnr/cfgclient-go/internal/core/domain"
	"github.com/yndnr/cfgclient-go/internal/infra/keystore"
	"github.com/yndnr/cfgclient-go/internal/infra/tlsroots"
)

// Material is the keystore/truststore configuration of a secure transport.
type Material struct {
	Keystore         string
	KeystoreType     string // jks, pkcs12; empty detects from content
	KeystorePassword string
	KeyAlias         string
	KeyPassword      string

	Truststore         string
	TruststoreType     string // jks, pkcs12, pem; empty detects from content
	TruststorePassword string

	VerifyHostname bool
}

// Context is an immutable client TLS configuration built from Material.
type Context struct {
	config         *tls.Config
	roots          *tlsroots.Pool
	verifyHostname bool
}

// TLSConfig returns a copy of the client TLS configuration.
func (c *Context) TLSConfig() *tls.Config {
	return c.config.Clone()
}

// VerifyHostname reports whether the peer hostname is checked.
func (c *Context) VerifyHostname() bool {
	return c.verifyHostname
}

// Identity returns the client certificate presented to the server.
func (c *Context) Identity() tls.Certificate {
	return c.config.Certificates[0]
}

// TrustedCount returns the number of trust anchors.
func (c *Context) TrustedCount() int {
	return c.roots.Len()
}

// Option configures Build.
type Option func(*builder)

// WithReadFile replaces os.ReadFile for loading store files.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(b *builder) {
		b.readFile = fn
	}
}

type builder struct {
	readFile func(string) ([]byte, error)
}

// Build loads the identity and trust stores described by m and returns a
// client TLS context. Any failure is reported as domain.ErrCredentialLoad
// wrapping the cause.
func Build(m Material, opts ...Option) (*Context, error) {
	b := &builder{readFile: os.ReadFile}
	for _, opt := range opts {
		opt(b)
	}

	identity, err := b.loadIdentity(m)
	if err != nil {
		return nil, domain.ErrCredentialLoad.WithCause(err)
	}

	roots, err := b.loadTrust(m)
	if err != nil {
		return nil, domain.ErrCredentialLoad.WithCause(err)
	}

	cfg := &tls.Config{
		Certificates: []tls.Certificate{identity},
		RootCAs:      roots.Pool(),
		MinVersion:   tls.VersionTLS12,
	}
	if !m.VerifyHostname {
		// The standard verifier cannot skip only the name check, so chain
		// verification moves into VerifyConnection. Failures keep the type
		// the standard verifier would have returned.
		cfg.InsecureSkipVerify = true
		cfg.VerifyConnection = func(cs tls.ConnectionState) error {
			if err := roots.VerifyChain(cs.PeerCertificates); err != nil {
				return &tls.CertificateVerificationError{UnverifiedCertificates: cs.PeerCertificates, Err: err}
			}
			return nil
		}
	}

	return &Context{
		config:         cfg,
		roots:          roots,
		verifyHostname: m.VerifyHostname,
	}, nil
}

func (b *builder) loadIdentity(m Material) (tls.Certificate, error) {
	format, err := keystore.ParseFormat(m.KeystoreType)
	if err != nil {
		return tls.Certificate{}, err
	}

	data, err := b.readFile(m.Keystore)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read keystore: %w", err)
	}

	cert, err := keystore.LoadIdentity(data, format, m.KeystorePassword, m.KeyAlias, m.KeyPassword)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("keystore %s: %w", m.Keystore, err)
	}
	return cert, nil
}

func (b *builder) loadTrust(m Material) (*tlsroots.Pool, error) {
	format, err := keystore.ParseFormat(m.TruststoreType)
	if err != nil {
		return nil, err
	}

	data, err := b.readFile(m.Truststore)
	if err != nil {
		return nil, fmt.Errorf("read truststore: %w", err)
	}

	pool := tlsroots.NewEmptyPool()
	if err := keystore.LoadTrust(data, format, m.TruststorePassword, pool); err != nil {
		return nil, fmt.Errorf("truststore %s: %w", m.Truststore, err)
	}
	return pool, nil
}
