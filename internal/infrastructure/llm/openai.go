package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"NewsDigest/internal/ports"
)

// OpenAIClient generates text through the Chat Completions API.
type OpenAIClient struct {
	client *openai.Client
}

var _ ports.TextGenerator = (*OpenAIClient)(nil)

// NewOpenAIClient builds an SDK client. Retries are disabled so quota errors
// reach the classifier's own backoff.
func NewOpenAIClient(apiKey, baseURL string, opts ...option.RequestOption) *OpenAIClient {
	base := []option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}
	if baseURL != "" {
		base = append(base, option.WithBaseURL(baseURL))
	}
	client := openai.NewClient(append(base, opts...)...)
	return &OpenAIClient{client: &client}
}

// Name identifies the provider in logs.
func (c *OpenAIClient) Name() string { return "openai" }

// Generate runs a single chat completion.
func (c *OpenAIClient) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserPrompt))

	params := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(req.Model),
		Messages:    messages,
		Temperature: openai.Float(req.Temperature),
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}
	if req.JSON {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return "", classifyStatus("openai", req.Model, apiErr.StatusCode, apiErr.Error())
		}
		return "", fmt.Errorf("openai %s: %w", req.Model, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", fmt.Errorf("openai %s: no response content", req.Model)
	}
	return resp.Choices[0].Message.Content, nil
}
