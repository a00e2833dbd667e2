package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"atsengine/internal/config"
)

// configureTLS sets up TLS on httpServer according to the configured mode.
func (s *Server) configureTLS(httpServer *http.Server) error {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		fmt.Printf("Starting server on http://%s\n", httpServer.Addr)
		return nil
	case "server":
		fmt.Printf("Starting server with HTTPS on https://%s\n", httpServer.Addr)
	case "mutual":
		fmt.Printf("Starting server with mTLS on https://%s\n", httpServer.Addr)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", s.TLSConfig.Mode)
	}

	tlsConfig, err := buildTLSConfig(s.TLSConfig)
	if err != nil {
		return fmt.Errorf("failed to set up TLS: %w", err)
	}
	httpServer.TLSConfig = tlsConfig
	return nil
}

// buildTLSConfig loads the server certificate and, for mutual mode, the
// client CA pool. Content fields win over files.
func buildTLSConfig(cfg config.TLSConfig) (*tls.Config, error) {
	cert, err := loadServerCertificate(cfg)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		ClientAuth:   tls.NoClientCert,
	}
	if cfg.MinVersion == "1.3" {
		tlsConfig.MinVersion = tls.VersionTLS13
	}

	if cfg.Mode != "mutual" {
		return tlsConfig, nil
	}

	caPEM, err := readSource(cfg.CAContent, cfg.CAFile, "CA")
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("failed to append CA cert")
	}
	tlsConfig.ClientCAs = pool
	tlsConfig.ClientAuth = clientAuthPolicy(cfg.ClientAuthPolicy)
	return tlsConfig, nil
}

func loadServerCertificate(cfg config.TLSConfig) (tls.Certificate, error) {
	certPEM, err := readSource(cfg.CertContent, cfg.CertFile, "certificate")
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM, err := readSource(cfg.KeyContent, cfg.KeyFile, "key")
	if err != nil {
		return tls.Certificate{}, err
	}
	cert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to load server cert/key: %w", err)
	}
	return cert, nil
}

func readSource(content, file, what string) ([]byte, error) {
	if content != "" {
		return []byte(content), nil
	}
	if file == "" {
		return nil, fmt.Errorf("TLS %s is required (provide either a file or content)", what)
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read TLS %s file: %w", what, err)
	}
	return data, nil
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	switch policy {
	case "request":
		return tls.RequestClientCert
	case "verify":
		return tls.VerifyClientCertIfGiven
	default:
		return tls.RequireAndVerifyClientCert
	}
}
