package llm

import (
	"fmt"

	"GrowthAgent/internal/config"
	"GrowthAgent/internal/domain"
)

// NewBackend builds the configured provider behind the shared rate limit.
// Prompt files are read once here.
func NewBackend(cfg config.LLMConfig) (Backend, error) {
	var backend Backend
	switch cfg.Provider {
	case config.ProviderOpenRouter, "":
		prompts, err := LoadPrompts(cfg.PromptsDir)
		if err != nil {
			return nil, err
		}
		backend = NewChatClient(cfg, prompts)
	case config.ProviderOllama:
		prompts, err := LoadPrompts(cfg.PromptsDir)
		if err != nil {
			return nil, err
		}
		client, err := NewOllamaClient(cfg, prompts)
		if err != nil {
			return nil, err
		}
		backend = client
	case config.ProviderService:
		backend = NewServiceClient(cfg)
	default:
		return nil, fmt.Errorf("%w: unknown llm provider %q", domain.ErrConfiguration, cfg.Provider)
	}
	return NewRateLimited(backend, cfg.RequestsPerMinute), nil
}
