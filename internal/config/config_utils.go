package config

import (
	"fmt"
	"log"
	"os"
	"strings"
)

// applyFallbacks fills values that depend on other settings or on plain
// environment variables viper does not bind.
func (c *Config) applyFallbacks() {
	c.applyServerAPIKeyFallbacks()
	c.applyTLSDefaults()

	if c.AI.APIKey == "" {
		c.AI.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if c.Observability.ServiceInstance == "" {
		c.Observability.ServiceInstance = generateServiceInstanceID(c.Observability.ServiceName)
	}
	if c.App.LogLevel == "debug" && !c.Observability.ConsoleOutput {
		c.Observability.ConsoleOutput = true
	}
}

// applyServerAPIKeyFallbacks reads the comma separated key list from the
// environment and trims every key, since viper splits env slices on commas
// without trimming.
func (c *Config) applyServerAPIKeyFallbacks() {
	raw := c.Server.APIKeys
	if len(raw) == 0 {
		raw = strings.Split(os.Getenv("ATSENGINE_SERVER_APIKEYS"), ",")
	}
	keys := make([]string, 0, len(raw))
	for _, key := range raw {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	c.Server.APIKeys = keys
}

func (c *Config) applyTLSDefaults() {
	if c.Server.TLS.Mode == "mutual" && c.Server.TLS.ClientAuthPolicy == "" {
		c.Server.TLS.ClientAuthPolicy = "require"
	}
	if c.Server.TLS.MinVersion == "" && c.Server.TLS.Mode != "disabled" {
		c.Server.TLS.MinVersion = "1.2"
	}
}

func generateServiceInstanceID(serviceName string) string {
	if hostname, err := os.Hostname(); err == nil {
		return fmt.Sprintf("%s-%s", serviceName, hostname)
	}
	return fmt.Sprintf("%s-1", serviceName)
}

// logConfigurationSources logs a summary of configuration sources being used
func (c *Config) logConfigurationSources(configFileUsed string) {
	log.Println("[CONFIG] === Configuration Sources Summary ===")
	if configFileUsed != "" {
		log.Printf("[CONFIG] Config file: %s", configFileUsed)
	} else {
		log.Println("[CONFIG] Config file: None (using defaults)")
	}

	envVars := []string{
		"ATSENGINE_AI_APIKEY",
		"ATSENGINE_AI_MODEL",
		"ATSENGINE_SERVER_PORT",
		"ATSENGINE_SERVER_HOST",
		"ATSENGINE_APP_LOGLEVEL",
		"ATSENGINE_STORAGE_POSTGRES_DSN",
		"ATSENGINE_VAULT_ENABLED",
		"GEMINI_API_KEY",
	}
	hasEnvVars := false
	for _, envVar := range envVars {
		value := os.Getenv(envVar)
		if value == "" {
			continue
		}
		lower := strings.ToLower(envVar)
		if strings.Contains(lower, "key") || strings.Contains(lower, "dsn") {
			value = "***MASKED***"
		}
		log.Printf("[CONFIG]   %s=%s", envVar, value)
		hasEnvVars = true
	}
	if !hasEnvVars {
		log.Println("[CONFIG]   No environment overrides set")
	}

	log.Printf("[CONFIG] AI: provider=%s model=%s enabled=%t key=%s",
		c.AI.Provider, c.AI.Model, c.AI.Enabled, configured(c.AI.APIKey))
	log.Printf("[CONFIG] Server: %s:%s tls=%s", c.Server.Host, c.Server.Port, c.Server.TLS.Mode)
	log.Printf("[CONFIG] Renderer: format=%s templateDir=%q", c.Renderer.Format, c.Renderer.TemplateDir)
	log.Printf("[CONFIG] Storage: postgres=%t redis=%t documents=%s rabbitmq=%t",
		c.Storage.Postgres.Enabled, c.Storage.Redis.Enabled, c.Storage.Documents.Backend, c.Storage.RabbitMQ.Enabled)
	log.Printf("[CONFIG] Vault Enabled: %t", c.Vault.Enabled)
	log.Printf("[CONFIG] Observability Enabled: %t", c.Observability.Enabled)
}

func configured(secret string) string {
	if secret == "" {
		return "***NOT SET***"
	}
	return "***CONFIGURED***"
}
