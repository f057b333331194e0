package summary

import (
	"fmt"

	"github.com/nijaru/yt-summary/config"
)

// NewCompleter builds the completer for the configured provider.
func NewCompleter(cfg config.SummaryConfig) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI:
		return NewOpenAI(cfg.OpenAIAPIKey, cfg.Model, cfg.BaseURL)
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.AnthropicAPIKey, cfg.Model, cfg.BaseURL, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unsupported summary provider: %s", cfg.Provider)
	}
}
