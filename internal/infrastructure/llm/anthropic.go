package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"NewsDigest/internal/ports"
)

const defaultAnthropicMaxTokens = 4000

// AnthropicClient generates text through the Messages API.
type AnthropicClient struct {
	client *anthropic.Client
}

var _ ports.TextGenerator = (*AnthropicClient)(nil)

// NewAnthropicClient builds an SDK client with retries disabled.
func NewAnthropicClient(apiKey, baseURL string, opts ...option.RequestOption) *AnthropicClient {
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(append(base, opts...)...)
	return &AnthropicClient{client: &client}
}

// Name identifies the provider in logs.
func (c *AnthropicClient) Name() string { return "anthropic" }

// Generate sends a single user turn. The Messages API has no JSON mode, so
// JSON requests rely on the prompt and the caller's fence stripping.
func (c *AnthropicClient) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	maxTokens := int64(req.MaxTokens)
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Model),
		MaxTokens:   maxTokens,
		Temperature: anthropic.Float(req.Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserPrompt)),
		},
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", classifyStatus("anthropic", req.Model, apiErr.StatusCode, apiErr.Error())
		}
		return "", fmt.Errorf("anthropic %s: %w", req.Model, err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("anthropic %s: no text content", req.Model)
	}
	return sb.String(), nil
}
