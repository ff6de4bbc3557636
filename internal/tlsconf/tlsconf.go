// Package tlsconf loads PEM certificate and key material into the
// typed tls.Config objects the QUIC endpoints need, and builds the
// mutual-TLS configuration both server and client require (spec
// section 6).
package tlsconf

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"github.com/vqn-io/vqn/internal/config"
)

// LoadCertificate reads a PEM cert/key pair from disk.
func LoadCertificate(certPath, keyPath string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read certificate %s: %w", certPath, err)
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("read private key %s: %w", keyPath, err)
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("parse certificate/key pair: %w", err)
	}
	return cert, nil
}

// LoadRoots reads a PEM CA bundle into a cert pool.
func LoadRoots(caCertPath string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, fmt.Errorf("read ca_cert %s: %w", caCertPath, err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no valid certificates found in %s", caCertPath)
	}
	return pool, nil
}

// LoadCertChainDER reads a PEM-encoded certificate chain and returns
// the raw DER bytes of each certificate in order, suitable for
// core.IdentityFromChain.
func LoadCertChainDER(path string) ([][]byte, error) {
	pemData, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate %s: %w", path, err)
	}
	var chain [][]byte
	for {
		var block *pem.Block
		block, pemData = pem.Decode(pemData)
		if block == nil {
			break
		}
		if block.Type == "CERTIFICATE" {
			chain = append(chain, block.Bytes)
		}
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("no certificates found in %s", path)
	}
	return chain, nil
}

// ServerConfig builds a mutual-TLS server config: both sides present
// certificates, and the server requires the peer's chain to verify
// against ca_cert.
func ServerConfig(tlsConf config.TLS) (*tls.Config, error) {
	cert, err := LoadCertificate(tlsConf.Cert, tlsConf.Key)
	if err != nil {
		return nil, err
	}
	roots, err := LoadRoots(tlsConf.CACert)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientCAs:    roots,
		ClientAuth:   tls.RequireAndVerifyClientCert,
		NextProtos:   []string{"vqn"},
		MinVersion:   tls.VersionTLS13,
	}, nil
}

// ClientConfig builds a mutual-TLS client config: the client presents
// its own certificate and verifies the server's chain against
// ca_cert.
func ClientConfig(tlsConf config.TLS) (*tls.Config, error) {
	cert, err := LoadCertificate(tlsConf.Cert, tlsConf.Key)
	if err != nil {
		return nil, err
	}
	roots, err := LoadRoots(tlsConf.CACert)
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		RootCAs:      roots,
		NextProtos:   []string{"vqn"},
		MinVersion:   tls.VersionTLS13,
	}, nil
}
