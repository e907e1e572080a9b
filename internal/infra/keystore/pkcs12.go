package keystore

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"strings"

	"software.sslmate.com/src/go-pkcs12"

	"github.com/yndnr/cfgclient-go/internal/infra/tlsroots"
)

const (
	pemHeaderFriendlyName = "friendlyName"
	pemHeaderLocalKeyID   = "localKeyId"
)

// pkcs12Blocks decodes every safe bag of a two-safe PFX (certificates plus
// shrouded key, as written by openssl and keytool) into PEM blocks. Bag
// attributes (friendlyName, localKeyId) survive as block headers.
func pkcs12Blocks(data []byte, password string) ([]*pem.Block, error) {
	// Key blocks hold PKCS#1 or SEC 1 DER despite their label; parsePrivateKey
	// accepts both.
	blocks, err := pkcs12.ToPEM(data, password)
	if err != nil {
		return nil, fmt.Errorf("keystore: load pkcs12: %w", err)
	}
	return blocks, nil
}

// pkcs12Identity selects the key bag whose friendlyName equals alias
// (case-insensitively, as the JDK does) and pairs it with the certificate
// sharing its localKeyId.
func pkcs12Identity(data []byte, storePassword, alias, keyPassword string) (tls.Certificate, error) {
	if keyPassword != "" && keyPassword != storePassword {
		return tls.Certificate{}, ErrKeyPasswordMismatch
	}

	blocks, err := pkcs12Blocks(data, storePassword)
	if err != nil {
		return tls.Certificate{}, err
	}

	var keyBlock *pem.Block
	var certs []*pem.Block
	for _, b := range blocks {
		switch b.Type {
		case "PRIVATE KEY":
			if keyBlock == nil && strings.EqualFold(b.Headers[pemHeaderFriendlyName], alias) {
				keyBlock = b
			}
		case "CERTIFICATE":
			certs = append(certs, b)
		}
	}
	if keyBlock == nil {
		return tls.Certificate{}, fmt.Errorf("%w %q", ErrAliasNotFound, alias)
	}

	key, err := parsePrivateKey(keyBlock.Bytes)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("keystore: key %q: %w", alias, err)
	}

	parsed := make([]*x509.Certificate, 0, len(certs))
	var leaf *x509.Certificate
	keyID := keyBlock.Headers[pemHeaderLocalKeyID]
	for _, b := range certs {
		cert, err := x509.ParseCertificate(b.Bytes)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("keystore: parse certificate: %w", err)
		}
		if leaf == nil && keyID != "" && b.Headers[pemHeaderLocalKeyID] == keyID {
			leaf = cert
			continue
		}
		parsed = append(parsed, cert)
	}
	if leaf == nil {
		return tls.Certificate{}, ErrEmptyChain
	}

	return newCertificate(buildChain(leaf, parsed), key)
}

// buildChain orders DER certificates from leaf towards the root by
// following issuer links through candidates.
func buildChain(leaf *x509.Certificate, candidates []*x509.Certificate) [][]byte {
	chain := [][]byte{leaf.Raw}
	used := make(map[int]bool, len(candidates))

	current := leaf
	for {
		if string(current.RawIssuer) == string(current.RawSubject) {
			return chain
		}
		next := -1
		for i, c := range candidates {
			if !used[i] && string(c.RawSubject) == string(current.RawIssuer) {
				next = i
				break
			}
		}
		if next < 0 {
			return chain
		}
		used[next] = true
		current = candidates[next]
		chain = append(chain, current.Raw)
	}
}

// pkcs12Trust trusts every certificate in the PFX. A Java trust store (one
// safe of trusted certificate bags) is decoded directly; an identity PFX
// contributes all of its certificate bags, as JKS key entries do.
func pkcs12Trust(data []byte, password string, pool *tlsroots.Pool) error {
	certs, err := pkcs12.DecodeTrustStore(data, password)
	if err == nil {
		for _, cert := range certs {
			pool.AddCert(cert)
		}
		return nil
	}
	if errors.Is(err, pkcs12.ErrIncorrectPassword) {
		return fmt.Errorf("keystore: load pkcs12: %w", err)
	}

	blocks, blocksErr := pkcs12Blocks(data, password)
	if blocksErr != nil {
		return fmt.Errorf("keystore: load pkcs12: %w", err)
	}

	for _, b := range blocks {
		if b.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(b.Bytes)
		if err != nil {
			return fmt.Errorf("keystore: parse certificate: %w", err)
		}
		pool.AddCert(cert)
	}

	return nil
}
