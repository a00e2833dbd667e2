package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"atsengine/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]*VaultSecret

func (f fakeSecrets) GetSecretV2(path string) (*VaultSecret, error) {
	if s, ok := f[path]; ok {
		return s, nil
	}
	return nil, fmt.Errorf("secret not found at path: %s", path)
}

func secret(data map[string]any) *VaultSecret {
	return &VaultSecret{Data: data, Version: 3}
}

func TestParseVersionValue(t *testing.T) {
	tests := []struct {
		name        string
		input       any
		expected    int64
		expectError bool
	}{
		{name: "int64 value", input: int64(42), expected: 42},
		{name: "float64 value", input: float64(42), expected: 42},
		{name: "string value", input: "42", expected: 42},
		{name: "invalid string value", input: "not-a-number", expectError: true},
		{name: "unsupported type", input: []string{"42"}, expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseVersionValue(tt.input, "secret/data/test")
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestParseKVv2(t *testing.T) {
	s, err := parseKVv2(map[string]any{
		"data":     map[string]any{"dsn": "postgres://x"},
		"metadata": map[string]any{"version": "7"},
	}, "secret/data/pg")
	require.NoError(t, err)
	assert.Equal(t, int64(7), s.Version)
	assert.Equal(t, "postgres://x", s.Data["dsn"])

	_, err = parseKVv2(map[string]any{"dsn": "postgres://x"}, "secret/pg")
	assert.ErrorContains(t, err, "missing 'data' field")

	_, err = parseKVv2(map[string]any{"data": map[string]any{}}, "secret/data/pg")
	assert.ErrorContains(t, err, "missing 'metadata' field")

	_, err = parseKVv2(map[string]any{"data": map[string]any{}, "metadata": map[string]any{}}, "secret/data/pg")
	assert.ErrorContains(t, err, "missing 'version' field")
}

func TestApplySecrets(t *testing.T) {
	cfg := &Config{
		AI: AIConfig{Rewrite: OperationAIConfig{APIKey: "explicit-rewrite-key"}},
		Vault: VaultConfig{Secrets: VaultSecrets{
			APIKeys:     "secret/data/api",
			GeminiKey:   "secret/data/gemini",
			TLSCerts:    "secret/data/tls",
			Postgres:    "secret/data/pg",
			ObjectStore: "secret/data/objects",
		}},
	}
	client := fakeSecrets{
		"secret/data/api":     secret(map[string]any{"keys": "k1, k2,,k3"}),
		"secret/data/gemini":  secret(map[string]any{"api_key": "gemini-from-vault"}),
		"secret/data/tls":     secret(map[string]any{"cert": "CERT", "key": "KEY"}),
		"secret/data/pg":      secret(map[string]any{"dsn": "postgres://vault"}),
		"secret/data/objects": secret(map[string]any{"access_key": "AK", "secret_key": "SK"}),
	}

	require.NoError(t, applySecrets(client, cfg, errors.NewDiscardLogger()))

	assert.Equal(t, []string{"k1", "k2", "k3"}, cfg.Server.APIKeys)
	assert.Equal(t, "gemini-from-vault", cfg.AI.APIKey)
	assert.Equal(t, "gemini-from-vault", cfg.AI.Critique.APIKey)
	assert.Equal(t, "explicit-rewrite-key", cfg.AI.Rewrite.APIKey)
	assert.Equal(t, "CERT", cfg.Server.TLS.CertContent)
	assert.Equal(t, "KEY", cfg.Server.TLS.KeyContent)
	assert.Empty(t, cfg.Server.TLS.CAContent)
	assert.Equal(t, "postgres://vault", cfg.Storage.Postgres.DSN)
	assert.Equal(t, "AK", cfg.Storage.MinIO.AccessKey)
	assert.Equal(t, "SK", cfg.Storage.S3.SecretKey)
}

func TestApplySecretsErrors(t *testing.T) {
	t.Run("missing secret", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{Postgres: "secret/data/none"}}}
		err := applySecrets(fakeSecrets{}, cfg, errors.NewDiscardLogger())
		assert.ErrorContains(t, err, "failed to load Postgres DSN from vault")
	})

	t.Run("missing key", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{GeminiKey: "secret/data/gemini"}}}
		client := fakeSecrets{"secret/data/gemini": secret(map[string]any{"key": "wrong-field"})}
		err := applySecrets(client, cfg, errors.NewDiscardLogger())
		assert.ErrorContains(t, err, "key 'api_key' not found")
	})

	t.Run("deprecated tls file field", func(t *testing.T) {
		cfg := &Config{Vault: VaultConfig{Secrets: VaultSecrets{TLSCerts: "secret/data/tls"}}}
		client := fakeSecrets{"secret/data/tls": secret(map[string]any{"cert_file": "/etc/cert.pem"})}
		err := applySecrets(client, cfg, errors.NewDiscardLogger())
		assert.ErrorContains(t, err, "Store certificate content in 'cert' field")
	})
}

func TestResolveVaultToken(t *testing.T) {
	dir := t.TempDir()
	tokenFile := filepath.Join(dir, "token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("  file-token\n"), 0o600))

	token, err := resolveVaultToken(VaultConfig{Token: "inline", TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "inline", token)

	token, err = resolveVaultToken(VaultConfig{TokenFile: tokenFile})
	require.NoError(t, err)
	assert.Equal(t, "file-token", token)

	_, err = resolveVaultToken(VaultConfig{TokenFile: filepath.Join(dir, "missing")})
	assert.Error(t, err)

	_, err = resolveVaultToken(VaultConfig{})
	assert.ErrorContains(t, err, "vault token is required")
}

func TestApplyVaultSecretsDisabled(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, ApplyVaultSecrets(cfg, nil))

	client, err := NewVaultClient(VaultConfig{}, nil)
	assert.NoError(t, err)
	assert.Nil(t, client)
}

func TestMaskSecret(t *testing.T) {
	assert.Equal(t, "abcd****6789", maskSecret("abcdef0123456789"))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "", maskSecret(""))
}
