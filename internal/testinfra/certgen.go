package testinfra

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"
)

// CertBundle holds PEM-encoded material for a throwaway CA, a server
// certificate and a client certificate for the PostgresUser role.
type CertBundle struct {
	CACert, CAKey         []byte
	ServerCert, ServerKey []byte
	ClientCert, ClientKey []byte
}

// CertPaths are the files a CertBundle was written to.
type CertPaths struct {
	CACert     string
	ServerCert string
	ServerKey  string
	ClientCert string
	ClientKey  string
}

type issued struct {
	der []byte
	key *ecdsa.PrivateKey
}

func shortLived(serial int64, cn string) *x509.Certificate {
	return &x509.Certificate{
		SerialNumber: big.NewInt(serial),
		Subject:      pkix.Name{CommonName: cn},
		NotBefore:    time.Now().Add(-5 * time.Minute),
		NotAfter:     time.Now().Add(1 * time.Hour),
	}
}

// issue signs template with parent/parentKey. A nil parent self-signs.
func issue(template, parent *x509.Certificate, parentKey *ecdsa.PrivateKey) (issued, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return issued{}, fmt.Errorf("generate key for %s: %w", template.Subject.CommonName, err)
	}
	if parent == nil {
		parent, parentKey = template, key
	}
	der, err := x509.CreateCertificate(rand.Reader, template, parent, &key.PublicKey, parentKey)
	if err != nil {
		return issued{}, fmt.Errorf("create certificate %s: %w", template.Subject.CommonName, err)
	}
	return issued{der: der, key: key}, nil
}

// GenerateCertBundle creates a CA and leaf certificates valid for one hour.
// hosts become the server certificate's IP and DNS SANs.
func GenerateCertBundle(hosts []string) (*CertBundle, error) {
	caTemplate := shortLived(1, "pgload-test-ca")
	caTemplate.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageCRLSign
	caTemplate.BasicConstraintsValid = true
	caTemplate.IsCA = true

	ca, err := issue(caTemplate, nil, nil)
	if err != nil {
		return nil, err
	}
	caCert, err := x509.ParseCertificate(ca.der)
	if err != nil {
		return nil, fmt.Errorf("parse CA certificate: %w", err)
	}

	serverTemplate := shortLived(2, "pgload-test-server")
	serverTemplate.KeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment
	serverTemplate.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth}
	for _, h := range hosts {
		if ip := net.ParseIP(h); ip != nil {
			serverTemplate.IPAddresses = append(serverTemplate.IPAddresses, ip)
		} else {
			serverTemplate.DNSNames = append(serverTemplate.DNSNames, h)
		}
	}
	server, err := issue(serverTemplate, caCert, ca.key)
	if err != nil {
		return nil, err
	}

	// The client CN must match the role for cert authentication.
	clientTemplate := shortLived(3, PostgresUser)
	clientTemplate.KeyUsage = x509.KeyUsageDigitalSignature
	clientTemplate.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth}
	client, err := issue(clientTemplate, caCert, ca.key)
	if err != nil {
		return nil, err
	}

	bundle := &CertBundle{
		CACert:     encodeCertPEM(ca.der),
		ServerCert: encodeCertPEM(server.der),
		ClientCert: encodeCertPEM(client.der),
	}
	for _, k := range []struct {
		dst *[]byte
		key *ecdsa.PrivateKey
	}{
		{&bundle.CAKey, ca.key},
		{&bundle.ServerKey, server.key},
		{&bundle.ClientKey, client.key},
	} {
		if *k.dst, err = encodeKeyPEM(k.key); err != nil {
			return nil, fmt.Errorf("encode key: %w", err)
		}
	}
	return bundle, nil
}

// WriteToDir writes every part of the bundle into dir with mode 0600,
// which libpq requires for private keys.
func (b *CertBundle) WriteToDir(dir string) (*CertPaths, error) {
	paths := &CertPaths{
		CACert:     filepath.Join(dir, "ca.crt"),
		ServerCert: filepath.Join(dir, "server.crt"),
		ServerKey:  filepath.Join(dir, "server.key"),
		ClientCert: filepath.Join(dir, "client.crt"),
		ClientKey:  filepath.Join(dir, "client.key"),
	}

	files := map[string][]byte{
		paths.CACert:     b.CACert,
		paths.ServerCert: b.ServerCert,
		paths.ServerKey:  b.ServerKey,
		paths.ClientCert: b.ClientCert,
		paths.ClientKey:  b.ClientKey,
	}
	for path, data := range files {
		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, fmt.Errorf("write %s: %w", filepath.Base(path), err)
		}
	}
	return paths, nil
}

func encodeCertPEM(der []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
}

func encodeKeyPEM(key *ecdsa.PrivateKey) ([]byte, error) {
	der, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return nil, err
	}
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der}), nil
}
