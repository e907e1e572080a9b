// Package testutil provides certificate and keystore fixtures for tests.
//
// Nothing in here is used outside _test.go files.
package testutil

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	jks "github.com/pavlo-v-chernykh/keystore-go/v4"
	gopkcs12 "software.sslmate.com/src/go-pkcs12"
)

var serial atomic.Int64

func nextSerial() *big.Int {
	return big.NewInt(time.Now().UnixNano() + serial.Add(1))
}

// CA is a self-signed certificate authority.
type CA struct {
	Cert *x509.Certificate
	Key  *ecdsa.PrivateKey
}

// Leaf is a certificate issued by a CA, with its private key.
type Leaf struct {
	Cert  *x509.Certificate
	Key   *ecdsa.PrivateKey
	Chain []*x509.Certificate // leaf first, CA last
}

// NewCA creates a self-signed CA.
func NewCA(t testing.TB, cn string) *CA {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          nextSerial(),
		Subject:               pkix.Name{Organization: []string{"cfgclient test"}, CommonName: cn},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}

	return &CA{Cert: cert, Key: key}
}

// IssueServer issues a server certificate valid for the given DNS names and IPs.
func (ca *CA) IssueServer(t testing.TB, cn string, dnsNames []string, ips []net.IP) *Leaf {
	t.Helper()
	return ca.issue(t, cn, dnsNames, ips, x509.ExtKeyUsageServerAuth)
}

// IssueClient issues a client-authentication certificate.
func (ca *CA) IssueClient(t testing.TB, cn string) *Leaf {
	t.Helper()
	return ca.issue(t, cn, nil, nil, x509.ExtKeyUsageClientAuth)
}

func (ca *CA) issue(t testing.TB, cn string, dnsNames []string, ips []net.IP, usage x509.ExtKeyUsage) *Leaf {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey() error = %v", err)
	}

	template := &x509.Certificate{
		SerialNumber: nextSerial(),
		Subject:      pkix.Name{CommonName: cn},
		DNSNames:     dnsNames,
		IPAddresses:  ips,
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{usage},
	}

	der, err := x509.CreateCertificate(rand.Reader, template, ca.Cert, &key.PublicKey, ca.Key)
	if err != nil {
		t.Fatalf("CreateCertificate() error = %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("ParseCertificate() error = %v", err)
	}

	return &Leaf{Cert: cert, Key: key, Chain: []*x509.Certificate{cert, ca.Cert}}
}

// TLSCertificate returns the leaf as a tls.Certificate.
func (l *Leaf) TLSCertificate() tls.Certificate {
	chain := make([][]byte, 0, len(l.Chain))
	for _, c := range l.Chain {
		chain = append(chain, c.Raw)
	}
	return tls.Certificate{Certificate: chain, PrivateKey: l.Key, Leaf: l.Cert}
}

// WriteJKSIdentity writes a JKS holding leaf under alias and returns its path.
func WriteJKSIdentity(t testing.TB, dir, name, storePassword, alias, keyPassword string, leaf *Leaf) string {
	t.Helper()

	keyDER, err := x509.MarshalPKCS8PrivateKey(leaf.Key)
	if err != nil {
		t.Fatalf("MarshalPKCS8PrivateKey() error = %v", err)
	}

	chain := make([]jks.Certificate, 0, len(leaf.Chain))
	for _, c := range leaf.Chain {
		chain = append(chain, jks.Certificate{Type: "X509", Content: c.Raw})
	}

	ks := jks.New()
	entry := jks.PrivateKeyEntry{
		CreationTime:     time.Now(),
		PrivateKey:       keyDER,
		CertificateChain: chain,
	}
	if err := ks.SetPrivateKeyEntry(alias, entry, []byte(keyPassword)); err != nil {
		t.Fatalf("SetPrivateKeyEntry() error = %v", err)
	}

	return storeJKS(t, ks, filepath.Join(dir, name), storePassword)
}

// WriteJKSTrust writes a JKS of trusted certificate entries and returns its path.
func WriteJKSTrust(t testing.TB, dir, name, storePassword string, certs ...*x509.Certificate) string {
	t.Helper()

	ks := jks.New()
	for i, c := range certs {
		entry := jks.TrustedCertificateEntry{
			CreationTime: time.Now(),
			Certificate:  jks.Certificate{Type: "X509", Content: c.Raw},
		}
		alias := "ca-" + string(rune('a'+i))
		if err := ks.SetTrustedCertificateEntry(alias, entry); err != nil {
			t.Fatalf("SetTrustedCertificateEntry() error = %v", err)
		}
	}

	return storeJKS(t, ks, filepath.Join(dir, name), storePassword)
}

func storeJKS(t testing.TB, ks jks.KeyStore, path, password string) string {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create(%s) error = %v", path, err)
	}
	defer f.Close()

	if err := ks.Store(f, []byte(password)); err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	return path
}

// WritePKCS12Identity writes leaf as a PFX encrypted with enc and returns
// its path. The key bag carries no friendlyName.
func WritePKCS12Identity(t testing.TB, dir, name string, enc *gopkcs12.Encoder, password string, leaf *Leaf) string {
	t.Helper()

	data, err := enc.Encode(leaf.Key, leaf.Cert, leaf.Chain[1:], password)
	if err != nil {
		t.Fatalf("pkcs12 Encode() error = %v", err)
	}
	return writeFile(t, filepath.Join(dir, name), data)
}

// WritePKCS12Trust writes certs as a Java-style PFX trust store encrypted
// with enc and returns its path.
func WritePKCS12Trust(t testing.TB, dir, name string, enc *gopkcs12.Encoder, password string, certs ...*x509.Certificate) string {
	t.Helper()

	data, err := enc.EncodeTrustStore(certs, password)
	if err != nil {
		t.Fatalf("pkcs12 EncodeTrustStore() error = %v", err)
	}
	return writeFile(t, filepath.Join(dir, name), data)
}

// WritePEM writes certs as a PEM bundle and returns its path.
func WritePEM(t testing.TB, dir, name string, certs ...*x509.Certificate) string {
	t.Helper()

	var data []byte
	for _, c := range certs {
		data = append(data, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})...)
	}
	return writeFile(t, filepath.Join(dir, name), data)
}

// WriteFile writes raw bytes and returns the path.
func WriteFile(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	return writeFile(t, filepath.Join(dir, name), data)
}

func writeFile(t testing.TB, path string, data []byte) string {
	t.Helper()
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatalf("WriteFile(%s) error = %v", path, err)
	}
	return path
}

// Stores is a JKS keystore holding a client identity and a JKS truststore
// holding the issuing CA, written to a temp dir.
type Stores struct {
	CA     *CA
	Client *Leaf

	Keystore      string
	Truststore    string
	StorePassword string
	KeyAlias      string
	KeyPassword   string
}

// NewStores issues a client certificate from a fresh CA and writes both stores.
func NewStores(t testing.TB) *Stores {
	t.Helper()

	dir := t.TempDir()
	ca := NewCA(t, "cfgclient test ca")
	client := ca.IssueClient(t, "cfgclient")

	s := &Stores{
		CA:            ca,
		Client:        client,
		StorePassword: "changeit",
		KeyAlias:      "cfgclient",
		KeyPassword:   "keysecret",
	}
	s.Keystore = WriteJKSIdentity(t, dir, "keystore.jks", s.StorePassword, s.KeyAlias, s.KeyPassword, client)
	s.Truststore = WriteJKSTrust(t, dir, "truststore.jks", s.StorePassword, ca.Cert)
	return s
}
