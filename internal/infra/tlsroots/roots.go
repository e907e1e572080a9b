// Package tlsroots manages the trust anchors of a secure transport.
//
// Unlike the system pool, a Pool here starts empty: only certificates taken
// from the configured truststore are trusted.
package tlsroots

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
)

var (
	// ErrNoCertsFound is returned when no certificates are found in PEM data.
	ErrNoCertsFound = errors.New("tlsroots: no certificates found in PEM data")

	// ErrEmptyPool is returned when a chain is verified against a pool
	// holding no anchors.
	ErrEmptyPool = errors.New("tlsroots: trust pool is empty")

	// ErrNoPeerCertificates is returned when the peer presented no chain.
	ErrNoPeerCertificates = errors.New("tlsroots: peer presented no certificates")
)

// Pool manages a pool of trusted root certificates.
type Pool struct {
	certPool *x509.CertPool
	certs    []*x509.Certificate
}

// NewEmptyPool creates a new empty certificate pool without system roots.
func NewEmptyPool() *Pool {
	return &Pool{certPool: x509.NewCertPool()}
}

// AddCertPEM adds every CERTIFICATE block found in pemData.
// Other block types are skipped.
func (p *Pool) AddCertPEM(pemData []byte) error {
	var certsAdded int

	for len(pemData) > 0 {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}

		if block.Type != "CERTIFICATE" {
			continue
		}

		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return fmt.Errorf("tlsroots: parse certificate: %w", err)
		}

		p.AddCert(cert)
		certsAdded++
	}

	if certsAdded == 0 {
		return ErrNoCertsFound
	}

	return nil
}

// AddCert adds a certificate directly.
func (p *Pool) AddCert(cert *x509.Certificate) {
	p.certPool.AddCert(cert)
	p.certs = append(p.certs, cert)
}

// Len returns the number of certificates added to the pool.
func (p *Pool) Len() int {
	return len(p.certs)
}

// Certificates returns the certificates added to the pool, in insertion order.
func (p *Pool) Certificates() []*x509.Certificate {
	out := make([]*x509.Certificate, len(p.certs))
	copy(out, p.certs)
	return out
}

// Pool returns the underlying x509.CertPool.
func (p *Pool) Pool() *x509.CertPool {
	return p.certPool
}

// VerifyChain checks that chain[0] chains to an anchor in the pool, using
// chain[1:] as intermediates. No hostname is checked.
func (p *Pool) VerifyChain(chain []*x509.Certificate) error {
	if p.Len() == 0 {
		return ErrEmptyPool
	}
	if len(chain) == 0 {
		return ErrNoPeerCertificates
	}

	intermediates := x509.NewCertPool()
	for _, cert := range chain[1:] {
		intermediates.AddCert(cert)
	}

	_, err := chain[0].Verify(x509.VerifyOptions{
		Roots:         p.certPool,
		Intermediates: intermediates,
		KeyUsages:     []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	})
	if err != nil {
		return fmt.Errorf("tlsroots: verify chain: %w", err)
	}

	return nil
}
