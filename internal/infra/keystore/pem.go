package keystore

import (
	"fmt"

	"github.com/yndnr/cfgclient-go/internal/infra/tlsroots"
)

// pemTrust reads a PEM bundle. PEM has no integrity protection, so the
// configured truststore password is not used.
func pemTrust(data []byte, pool *tlsroots.Pool) error {
	if err := pool.AddCertPEM(data); err != nil {
		return fmt.Errorf("keystore: load pem: %w", err)
	}
	return nil
}
