package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"atsengine/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds Vault connection configuration
type VaultConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecrets `mapstructure:"secrets"`
}

// VaultSecrets holds KVv2 paths. An empty path skips that secret.
//
//	apiKeys      keys        comma separated server API keys
//	geminiKey    api_key     model API key for every operation
//	tlsCerts     cert, key, ca  PEM content
//	postgres     dsn
//	objectStore  access_key, secret_key  applied to MinIO and S3
type VaultSecrets struct {
	APIKeys     string `mapstructure:"apiKeys"`
	GeminiKey   string `mapstructure:"geminiKey"`
	TLSCerts    string `mapstructure:"tlsCerts"`
	Postgres    string `mapstructure:"postgres"`
	ObjectStore string `mapstructure:"objectStore"`
}

// secretReader is the part of VaultClient the loaders need.
type secretReader interface {
	GetSecretV2(path string) (*VaultSecret, error)
}

// VaultClient wraps the Vault API client
type VaultClient struct {
	client *api.Client
	logger *errors.Logger
}

// NewVaultClient connects to Vault and checks its health. It returns nil
// when Vault is disabled.
func NewVaultClient(config VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if !config.Enabled {
		logger.Debug("Vault integration disabled")
		return nil, nil
	}

	vaultConfig := api.DefaultConfig()
	if config.Address != "" {
		vaultConfig.Address = config.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}

	token, err := resolveVaultToken(config)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	health, err := client.Sys().Health()
	if err != nil {
		logger.LogError(err, "Failed to connect to Vault", "address", config.Address)
		return nil, fmt.Errorf("failed to connect to vault: %w", err)
	}
	logger.Info("Connected to Vault",
		"address", config.Address,
		"version", health.Version,
		"sealed", health.Sealed,
		"cluster_name", health.ClusterName)

	return &VaultClient{client: client, logger: logger}, nil
}

// resolveVaultToken prefers the inline token over the token file.
func resolveVaultToken(config VaultConfig) (string, error) {
	token := config.Token
	if token == "" && config.TokenFile != "" {
		tokenBytes, err := os.ReadFile(config.TokenFile) // #nosec G304 -- operator-configured path
		if err != nil {
			return "", fmt.Errorf("failed to read vault token file: %w", err)
		}
		token = strings.TrimSpace(string(tokenBytes))
	}
	if token == "" {
		return "", fmt.Errorf("vault token is required when vault is enabled")
	}
	return token, nil
}

// VaultSecret represents a secret read from Vault's KVv2 engine.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 retrieves a secret from a Vault KVv2 store.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not initialized")
	}
	vc.logger.Debug("Reading secret from Vault", "path", path)

	secret, err := vc.client.Logical().Read(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read secret from %s: %w", path, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret not found at path: %s", path)
	}
	return parseKVv2(secret.Data, path)
}

// parseKVv2 unpacks the data and metadata.version fields of a KVv2 read.
func parseKVv2(raw map[string]any, path string) (*VaultSecret, error) {
	data, ok := raw["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'data' field)", path)
	}
	metadata, ok := raw["metadata"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s is not in KVv2 format (missing 'metadata' field)", path)
	}
	versionRaw, ok := metadata["version"]
	if !ok {
		return nil, fmt.Errorf("secret metadata at %s is missing 'version' field", path)
	}
	version, err := parseVersionValue(versionRaw, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// parseVersionValue parses version value from the JSON number types Vault
// may return.
func parseVersionValue(versionRaw any, path string) (int64, error) {
	switch v := versionRaw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("could not parse secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, versionRaw)
	}
}

// String returns the string value stored under key.
func (s *VaultSecret) String(key string) (string, error) {
	value, ok := s.Data[key]
	if !ok {
		return "", fmt.Errorf("key '%s' not found in secret", key)
	}
	str, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("value for key '%s' is not a string", key)
	}
	return str, nil
}

// maskSecret keeps the first and last four characters of long values.
func maskSecret(s string) string {
	switch {
	case len(s) > 8:
		return s[:4] + "****" + s[len(s)-4:]
	case len(s) > 0:
		return "****"
	}
	return ""
}

// ApplyVaultSecrets loads secrets from Vault and applies them to the config
func ApplyVaultSecrets(config *Config, logger *errors.Logger) error {
	if logger == nil {
		logger = errors.NewDiscardLogger()
	}
	if !config.Vault.Enabled {
		logger.Debug("Vault integration disabled, skipping secret loading")
		return nil
	}

	client, err := NewVaultClient(config.Vault, logger)
	if err != nil {
		logger.LogError(err, "Failed to initialize Vault client")
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	return applySecrets(client, config, logger)
}

func applySecrets(client secretReader, config *Config, logger *errors.Logger) error {
	paths := config.Vault.Secrets
	loaders := []struct {
		name  string
		path  string
		apply func(*VaultSecret) error
	}{
		{"API keys", paths.APIKeys, func(s *VaultSecret) error { return applyAPIKeys(config, s, logger) }},
		{"Gemini API key", paths.GeminiKey, func(s *VaultSecret) error { return applyGeminiKey(config, s, logger) }},
		{"TLS certificates", paths.TLSCerts, func(s *VaultSecret) error { return applyTLSCerts(config, s, logger) }},
		{"Postgres DSN", paths.Postgres, func(s *VaultSecret) error { return applyPostgres(config, s) }},
		{"object store credentials", paths.ObjectStore, func(s *VaultSecret) error { return applyObjectStore(config, s, logger) }},
	}

	for _, l := range loaders {
		if l.path == "" {
			continue
		}
		secret, err := client.GetSecretV2(l.path)
		if err != nil {
			logger.LogError(err, "Failed to load secret from Vault", "secret", l.name, "path", l.path)
			return fmt.Errorf("failed to load %s from vault: %w", l.name, err)
		}
		if err := l.apply(secret); err != nil {
			return fmt.Errorf("failed to apply %s from vault (%s): %w", l.name, l.path, err)
		}
		logger.Info("Secret loaded from Vault", "secret", l.name, "version", secret.Version)
	}
	return nil
}

func applyAPIKeys(config *Config, secret *VaultSecret, logger *errors.Logger) error {
	value, err := secret.String("keys")
	if err != nil {
		return err
	}
	var keys []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			keys = append(keys, part)
		}
	}
	if len(keys) == 0 {
		logger.Warn("No API keys found in Vault secret")
		return nil
	}
	config.Server.APIKeys = keys
	return nil
}

// applyGeminiKey sets the global key and every operation key that is not
// already set explicitly.
func applyGeminiKey(config *Config, secret *VaultSecret, logger *errors.Logger) error {
	key, err := secret.String("api_key")
	if err != nil {
		return err
	}
	if key == "" {
		logger.Warn("Empty Gemini API key found in Vault")
		return nil
	}
	logger.Debug("Gemini API key retrieved from Vault", "masked_value", maskSecret(key))
	config.AI.APIKey = key
	for _, op := range []*OperationAIConfig{&config.AI.Critique, &config.AI.Rewrite} {
		if op.APIKey == "" {
			op.APIKey = key
		}
	}
	return nil
}

// applyTLSCerts loads PEM content. File paths are rejected because the
// content would not exist on the server host.
func applyTLSCerts(config *Config, secret *VaultSecret, logger *errors.Logger) error {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, ok := secret.Data[field]; ok {
			return fmt.Errorf("'%s' field is no longer supported. Store certificate content in '%s' field instead",
				field, strings.TrimSuffix(field, "_file"))
		}
	}

	targets := map[string]*string{
		"cert": &config.Server.TLS.CertContent,
		"key":  &config.Server.TLS.KeyContent,
		"ca":   &config.Server.TLS.CAContent,
	}
	loaded := 0
	for key, target := range targets {
		if content, ok := secret.Data[key].(string); ok && content != "" {
			*target = content
			loaded++
		}
	}
	logger.Debug("TLS certificate content loaded from Vault", "certificates_loaded", loaded)
	return nil
}

func applyPostgres(config *Config, secret *VaultSecret) error {
	dsn, err := secret.String("dsn")
	if err != nil {
		return err
	}
	config.Storage.Postgres.DSN = dsn
	return nil
}

func applyObjectStore(config *Config, secret *VaultSecret, logger *errors.Logger) error {
	accessKey, err := secret.String("access_key")
	if err != nil {
		return err
	}
	secretKey, err := secret.String("secret_key")
	if err != nil {
		return err
	}
	logger.Debug("Object store credentials retrieved from Vault", "access_key", maskSecret(accessKey))
	config.Storage.MinIO.AccessKey, config.Storage.MinIO.SecretKey = accessKey, secretKey
	config.Storage.S3.AccessKey, config.Storage.S3.SecretKey = accessKey, secretKey
	return nil
}
