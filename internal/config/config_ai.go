package config

// Operation names used for per-operation AI configuration and prompts.
const (
	OperationCritique = "critique"
	OperationRewrite  = "rewrite"
)

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// applyPromptFallbacks fills empty operation prompts from the global prompt
// block. pick selects the operation's field from a PromptSet.
func (c *Config) applyPromptFallbacks(opCfg *OperationAIConfig, pick func(*PromptSet) (*string, *string)) {
	for _, pair := range [][2]*PromptSet{
		{&opCfg.CustomPrompts.SystemPrompts, &c.AI.CustomPrompts.SystemPrompts},
		{&opCfg.CustomPrompts.UserPrompts, &c.AI.CustomPrompts.UserPrompts},
	} {
		text, file := pick(pair[0])
		globalText, globalFile := pick(pair[1])
		if *text == "" {
			*text = *globalText
		}
		if *file == "" {
			*file = *globalFile
		}
	}
}

// GetCritiqueConfig returns the AI configuration for the grammar and
// spelling critique with fallback to the global config.
func (c *Config) GetCritiqueConfig() OperationAIConfig {
	config := c.AI.Critique
	c.applyOperationDefaults(&config)
	c.applyPromptFallbacks(&config, func(p *PromptSet) (*string, *string) {
		return &p.Critique, &p.CritiqueFile
	})
	config.Loaded = c.LoadedPrompt(OperationCritique)
	return config
}

// GetRewriteConfig returns the AI configuration for résumé rewriting with
// fallback to the global config.
func (c *Config) GetRewriteConfig() OperationAIConfig {
	config := c.AI.Rewrite
	c.applyOperationDefaults(&config)
	c.applyPromptFallbacks(&config, func(p *PromptSet) (*string, *string) {
		return &p.Rewrite, &p.RewriteFile
	})
	config.Loaded = c.LoadedPrompt(OperationRewrite)
	return config
}

// GetOperationConfig returns the effective configuration for a named
// operation.
func (c *Config) GetOperationConfig(operation string) OperationAIConfig {
	if operation == OperationRewrite {
		return c.GetRewriteConfig()
	}
	return c.GetCritiqueConfig()
}
