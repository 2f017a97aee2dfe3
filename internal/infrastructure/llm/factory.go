// Package llm holds the text-generation backends used by the classifier.
package llm

import (
	"fmt"
	"net/http"

	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
	openaiopt "github.com/openai/openai-go/option"

	"NewsDigest/internal/config"
	"NewsDigest/internal/ports"
)

// New selects a backend by provider name. A nil client uses each backend's
// default transport.
func New(cfg config.AIConfig, client *http.Client) (ports.TextGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("ai provider %s: api key is not configured", cfg.Provider)
	}

	switch cfg.Provider {
	case config.ProviderGemini, "":
		g, err := NewGeminiClient(cfg.Endpoint, cfg.APIKey, client)
		if err != nil {
			return nil, err
		}
		return g, nil
	case config.ProviderOpenAI:
		var opts []openaiopt.RequestOption
		if client != nil {
			opts = append(opts, openaiopt.WithHTTPClient(client))
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Endpoint, opts...), nil
	case config.ProviderAnthropic:
		var opts []anthropicopt.RequestOption
		if client != nil {
			opts = append(opts, anthropicopt.WithHTTPClient(client))
		}
		return NewAnthropicClient(cfg.APIKey, cfg.Endpoint, opts...), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.Provider)
	}
}
