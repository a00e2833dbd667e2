package config

import "fmt"

// ValidateTLSConfig validates the TLS configuration
func (c *Config) ValidateTLSConfig() error {
	return validateTLS(c.Server.TLS)
}

func validateTLS(tls TLSConfig) error {
	switch tls.Mode {
	case "", "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'disabled', 'server', or 'mutual')", tls.Mode)
	}

	if (tls.CertFile == "" && tls.CertContent == "") || (tls.KeyFile == "" && tls.KeyContent == "") {
		return fmt.Errorf("TLS certificate and key are required for %s mode (provide either files or content)", tls.Mode)
	}
	if err := exclusiveSource("cert", tls.CertFile, tls.CertContent); err != nil {
		return err
	}
	if err := exclusiveSource("key", tls.KeyFile, tls.KeyContent); err != nil {
		return err
	}

	if tls.Mode == "mutual" {
		if tls.CAFile == "" && tls.CAContent == "" {
			return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
		}
		if err := exclusiveSource("ca", tls.CAFile, tls.CAContent); err != nil {
			return err
		}
		switch tls.ClientAuthPolicy {
		case "", "require", "request", "verify":
		default:
			return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", tls.ClientAuthPolicy)
		}
	}

	switch tls.MinVersion {
	case "", "1.2", "1.3":
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", tls.MinVersion)
	}
	return nil
}

func exclusiveSource(name, file, content string) error {
	if file != "" && content != "" {
		return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", name, name)
	}
	return nil
}
