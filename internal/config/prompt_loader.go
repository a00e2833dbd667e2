package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

const (
	promptSystem = "system"
	promptUser   = "user"
	scopeGlobal  = "global"
)

var operations = []string{OperationCritique, OperationRewrite}

// LoadedPrompt is the prompt file content for one operation. Empty fields
// mean no file was configured.
type LoadedPrompt struct {
	System string
	User   string
}

type promptKey struct {
	scope     string
	operation string
	kind      string
}

type promptScope struct {
	name    string
	prompts *PromptConfig
}

func (c *Config) promptScopes() []promptScope {
	return []promptScope{
		{scopeGlobal, &c.AI.CustomPrompts},
		{OperationCritique, &c.AI.Critique.CustomPrompts},
		{OperationRewrite, &c.AI.Rewrite.CustomPrompts},
	}
}

// promptFile returns the configured file path for operation in set.
func promptFile(set PromptSet, operation string) string {
	if operation == OperationRewrite {
		return set.RewriteFile
	}
	return set.CritiqueFile
}

// LoadedPrompt returns prompt file content for operation. An operation's own
// file wins over the global one.
func (c *Config) LoadedPrompt(operation string) LoadedPrompt {
	pick := func(kind string) string {
		if s := c.loaded[promptKey{operation, operation, kind}]; s != "" {
			return s
		}
		return c.loaded[promptKey{scopeGlobal, operation, kind}]
	}
	return LoadedPrompt{System: pick(promptSystem), User: pick(promptUser)}
}

// loadPromptsFromFiles reads every configured prompt file. Paths stay in the
// config so the source remains visible.
func (c *Config) loadPromptsFromFiles() error {
	c.loaded = make(map[promptKey]string)

	for _, scope := range c.promptScopes() {
		for _, op := range operations {
			files := map[string]string{
				promptSystem: promptFile(scope.prompts.SystemPrompts, op),
				promptUser:   promptFile(scope.prompts.UserPrompts, op),
			}
			for kind, file := range files {
				if file == "" {
					continue
				}
				content, err := loadPromptFromFile(file, kind, op)
				if err != nil {
					return fmt.Errorf("failed to load %s prompts: %w", scope.name, err)
				}
				c.loaded[promptKey{scope.name, op, kind}] = content
			}
		}
	}

	if len(c.loaded) == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", len(c.loaded))
	}
	return nil
}

// loadPromptFromFile reads and trims a prompt file. Empty files are an error.
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	content, err := os.ReadFile(absPath) // #nosec G304 -- operator-configured path
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
		}
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmed))
	return trimmed, nil
}

// validatePromptFiles checks that every configured prompt file exists, and
// reports all missing files at once.
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, scope := range c.promptScopes() {
		for _, op := range operations {
			for kind, file := range map[string]string{
				promptSystem: promptFile(scope.prompts.SystemPrompts, op),
				promptUser:   promptFile(scope.prompts.UserPrompts, op),
			} {
				if file == "" {
					continue
				}
				absPath, err := filepath.Abs(file)
				if err != nil {
					validationErrors = append(validationErrors,
						fmt.Sprintf("invalid path for %s %s %s prompt: %s", scope.name, kind, op, file))
					continue
				}
				if _, err := os.Stat(absPath); os.IsNotExist(err) {
					validationErrors = append(validationErrors,
						fmt.Sprintf("%s %s %s prompt file not found: %s", scope.name, kind, op, absPath))
				}
			}
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}
	return nil
}
