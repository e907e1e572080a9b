package keystore

import (
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"

	jks "github.com/pavlo-v-chernykh/keystore-go/v4"

	"github.com/yndnr/cfgclient-go/internal/infra/tlsroots"
)

func loadJKS(data []byte, password string) (jks.KeyStore, error) {
	ks := jks.New()
	if err := ks.Load(bytes.NewReader(data), []byte(password)); err != nil {
		return ks, fmt.Errorf("keystore: load jks: %w", err)
	}
	return ks, nil
}

func jksIdentity(data []byte, storePassword, alias, keyPassword string) (tls.Certificate, error) {
	ks, err := loadJKS(data, storePassword)
	if err != nil {
		return tls.Certificate{}, err
	}

	if !ks.IsPrivateKeyEntry(alias) {
		return tls.Certificate{}, fmt.Errorf("%w %q", ErrAliasNotFound, alias)
	}

	// keytool protects keys with the store password unless told otherwise.
	if keyPassword == "" {
		keyPassword = storePassword
	}

	entry, err := ks.GetPrivateKeyEntry(alias, []byte(keyPassword))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("keystore: recover key %q: %w", alias, err)
	}

	key, err := parsePrivateKey(entry.PrivateKey)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("keystore: key %q: %w", alias, err)
	}

	chain := make([][]byte, 0, len(entry.CertificateChain))
	for _, c := range entry.CertificateChain {
		chain = append(chain, c.Content)
	}

	return newCertificate(chain, key)
}

// jksTrust follows the JDK trust manager: trusted certificate entries are
// anchors, and so is the leaf of every private key entry.
func jksTrust(data []byte, password string, pool *tlsroots.Pool) error {
	ks, err := loadJKS(data, password)
	if err != nil {
		return err
	}

	for _, alias := range ks.Aliases() {
		var der []byte

		switch {
		case ks.IsTrustedCertificateEntry(alias):
			entry, err := ks.GetTrustedCertificateEntry(alias)
			if err != nil {
				return fmt.Errorf("keystore: trusted entry %q: %w", alias, err)
			}
			der = entry.Certificate.Content
		case ks.IsPrivateKeyEntry(alias):
			chain, err := ks.GetPrivateKeyEntryCertificateChain(alias)
			if err != nil {
				return fmt.Errorf("keystore: chain of %q: %w", alias, err)
			}
			if len(chain) == 0 {
				continue
			}
			der = chain[0].Content
		default:
			continue
		}

		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return fmt.Errorf("keystore: parse certificate %q: %w", alias, err)
		}
		pool.AddCert(cert)
	}

	return nil
}
