package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GEMINI_API_KEY", "ATSENGINE_AI_APIKEY", "ATSENGINE_SERVER_APIKEYS"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	cfg, err := Load(writeFile(t, dir, "config.yaml", "app:\n  logLevel: info\n"))
	require.NoError(t, err)

	assert.Equal(t, int64(10*1024*1024), cfg.App.MaxFileSize)
	assert.Equal(t, "technology", cfg.App.DefaultIndustry)
	assert.Equal(t, "markdown", cfg.Renderer.Format)
	assert.Equal(t, 30*time.Second, cfg.Analysis.CritiqueTimeout)
	assert.Equal(t, 90*time.Second, cfg.Analysis.RewriteTimeout)
	assert.Equal(t, DocumentBackendNone, cfg.Storage.Documents.Backend)
	assert.False(t, cfg.AIAvailable())

	critique := cfg.GetCritiqueConfig()
	assert.Equal(t, "gemini-2.0-flash", critique.Model)
	assert.Equal(t, 30*time.Second, *critique.Timeout)
	assert.InDelta(t, 0.1, float64(*critique.Temperature), 1e-6)
	assert.True(t, critique.CircuitBreaker.Enabled)

	rewrite := cfg.GetRewriteConfig()
	assert.Equal(t, 90*time.Second, *rewrite.Timeout)
	assert.Equal(t, 2, *rewrite.MaxRetries)
}

func TestLoadFileAndEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("ATSENGINE_AI_APIKEY", "env-key")
	t.Setenv("ATSENGINE_SERVER_APIKEYS", "a, b")

	dir := t.TempDir()
	path := writeFile(t, dir, "config.yaml", `
ai:
  model: gemini-2.5-pro
  rewrite:
    model: gemini-2.5-flash
server:
  port: "9000"
renderer:
  format: html
storage:
  documents:
    backend: minio
  minio:
    endpoint: minio:9000
    bucket: resumes
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.AI.APIKey)
	assert.True(t, cfg.AIAvailable())
	assert.Equal(t, []string{"a", "b"}, cfg.Server.APIKeys)
	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "gemini-2.5-pro", cfg.GetCritiqueConfig().Model)
	assert.Equal(t, "gemini-2.5-flash", cfg.GetRewriteConfig().Model)
	assert.Equal(t, "env-key", cfg.GetRewriteConfig().APIKey)
	assert.Equal(t, "resumes", cfg.Storage.MinIO.Bucket)
}

func TestGeminiKeyFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", "legacy-key")
	cfg, err := Load(writeFile(t, t.TempDir(), "config.yaml", "{}\n"))
	require.NoError(t, err)
	assert.Equal(t, "legacy-key", cfg.AI.APIKey)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	clearEnv(t)
	tests := []struct {
		name     string
		yaml     string
		errorMsg string
	}{
		{"bad renderer format", "renderer:\n  format: docx\n", "invalid renderer format"},
		{"bad default format", "app:\n  defaultFormat: xml\n", "invalid default format"},
		{"postgres without dsn", "storage:\n  postgres:\n    enabled: true\n", "postgres dsn is required"},
		{"unknown document backend", "storage:\n  documents:\n    backend: ftp\n", "invalid document backend"},
		{"tls without cert", "server:\n  tls:\n    mode: server\n", "TLS certificate and key are required"},
		{"missing prompt file", "ai:\n  critique:\n    customPrompts:\n      systemPrompts:\n        critiqueFile: /nonexistent/prompt.md\n", "prompt file not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, t.TempDir(), "config.yaml", tt.yaml))
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.errorMsg)
			}
		})
	}
}

func TestPromptFiles(t *testing.T) {
	dir := t.TempDir()
	globalSystem := writeFile(t, dir, "system.md", "  global system  \n")
	rewriteUser := writeFile(t, dir, "rewrite.user.md", "rewrite %s")
	empty := writeFile(t, dir, "empty.md", "   \n")

	cfg := &Config{AI: AIConfig{
		CustomPrompts: PromptConfig{SystemPrompts: PromptSet{CritiqueFile: globalSystem, RewriteFile: globalSystem}},
		Rewrite: OperationAIConfig{CustomPrompts: PromptConfig{
			UserPrompts: PromptSet{RewriteFile: rewriteUser},
		}},
	}}
	require.NoError(t, cfg.validatePromptFiles())
	require.NoError(t, cfg.loadPromptsFromFiles())

	assert.Equal(t, LoadedPrompt{System: "global system"}, cfg.LoadedPrompt(OperationCritique))
	assert.Equal(t, LoadedPrompt{System: "global system", User: "rewrite %s"}, cfg.LoadedPrompt(OperationRewrite))

	cfg.AI.Critique.CustomPrompts.UserPrompts.CritiqueFile = empty
	assert.ErrorContains(t, cfg.loadPromptsFromFiles(), "is empty")
}

func TestGetOperationConfigPromptFallbacks(t *testing.T) {
	timeout := 5 * time.Second
	cfg := &Config{AI: AIConfig{
		Model:   "global-model",
		Timeout: time.Minute,
		CustomPrompts: PromptConfig{
			SystemPrompts: PromptSet{Critique: "global critique system"},
			UserPrompts:   PromptSet{Critique: "global critique user"},
		},
		Critique: OperationAIConfig{
			Timeout:       &timeout,
			CustomPrompts: PromptConfig{UserPrompts: PromptSet{Critique: "own user"}},
		},
	}}

	op := cfg.GetOperationConfig(OperationCritique)
	assert.Equal(t, "global-model", op.Model)
	assert.Equal(t, timeout, *op.Timeout)
	assert.Equal(t, "global critique system", op.CustomPrompts.SystemPrompts.Critique)
	assert.Equal(t, "own user", op.CustomPrompts.UserPrompts.Critique)
	assert.Equal(t, time.Minute, *cfg.GetOperationConfig(OperationRewrite).Timeout)
}
