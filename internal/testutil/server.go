package testutil

import (
	"crypto/tls"
	"crypto/x509"
	"net/http"
	"net/http/httptest"
	"testing"
)

// NewMTLSServer starts an httptest server presenting server and requiring a
// client certificate issued by clientCA. It is closed when the test ends.
func NewMTLSServer(t testing.TB, server *Leaf, clientCA *CA, handler http.Handler) *httptest.Server {
	t.Helper()

	clientCAs := x509.NewCertPool()
	clientCAs.AddCert(clientCA.Cert)

	ts := httptest.NewUnstartedServer(handler)
	ts.TLS = &tls.Config{
		Certificates: []tls.Certificate{server.TLSCertificate()},
		ClientAuth:   tls.RequireAndVerifyClientCert,
		ClientCAs:    clientCAs,
		MinVersion:   tls.VersionTLS12,
	}
	ts.StartTLS()
	t.Cleanup(ts.Close)

	return ts
}

// PeerCNHandler answers with the common name of the client certificate.
func PeerCNHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil || len(r.TLS.PeerCertificates) == 0 {
			http.Error(w, "no client certificate", http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(r.TLS.PeerCertificates[0].Subject.CommonName))
	})
}
