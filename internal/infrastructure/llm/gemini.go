package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"google.golang.org/genai"

	"NewsDigest/internal/ports"
)

var apiVersionSegment = regexp.MustCompile(`^v\d+(alpha|beta)?\d*$`)

// GeminiClient calls generateContent through the Gen AI SDK.
type GeminiClient struct {
	client *genai.Client
}

var _ ports.TextGenerator = (*GeminiClient)(nil)

// NewGeminiClient builds an SDK client for the Gemini API. The endpoint may
// carry the API version as its last path segment
// ("https://generativelanguage.googleapis.com/v1beta"). A nil client uses
// the SDK default transport; per-call deadlines come from the context.
func NewGeminiClient(endpoint, apiKey string, client *http.Client) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini client misconfigured")
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: client,
	}
	if endpoint != "" {
		base, version := splitEndpoint(endpoint)
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: base, APIVersion: version}
	}

	sdk, err := genai.NewClient(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &GeminiClient{client: sdk}, nil
}

// splitEndpoint separates a trailing version segment from the base URL.
func splitEndpoint(endpoint string) (base, version string) {
	u, err := url.Parse(strings.TrimRight(endpoint, "/"))
	if err != nil {
		return endpoint, ""
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; apiVersionSegment.MatchString(last) {
		version = last
		u.Path = "/" + strings.Join(segments[:len(segments)-1], "/")
	}
	base = strings.TrimRight(u.String(), "/") + "/"
	return base, version
}

// Name identifies the provider in logs.
func (c *GeminiClient) Name() string { return "gemini" }

// Generate sends one prompt to the requested model and returns the text of
// the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, req ports.GenerateRequest) (string, error) {
	if c.client == nil {
		return "", fmt.Errorf("gemini client misconfigured")
	}
	if req.Model == "" {
		return "", fmt.Errorf("gemini: model is required")
	}

	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(req.Temperature)),
		MaxOutputTokens: int32(req.MaxTokens),
	}
	if strings.TrimSpace(req.SystemPrompt) != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.SystemPrompt}}}
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}

	resp, err := c.client.Models.GenerateContent(ctx, req.Model, genai.Text(req.UserPrompt), cfg)
	if err != nil {
		return "", geminiError(req.Model, err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return "", fmt.Errorf("gemini %s: prompt blocked: %s", req.Model, resp.PromptFeedback.BlockReason)
		}
		return "", fmt.Errorf("gemini %s: no candidates", req.Model)
	}

	candidate := resp.Candidates[0]
	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("gemini %s: empty candidate (finish reason %s)", req.Model, candidate.FinishReason)
	}
	return sb.String(), nil
}

// geminiError maps SDK API errors through classifyStatus; transport errors
// and deadlines stay plain.
func geminiError(model string, err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus("gemini", model, apiErr.Code, apiErr.Status+" "+apiErr.Message)
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return classifyStatus("gemini", model, apiErrPtr.Code, apiErrPtr.Status+" "+apiErrPtr.Message)
	}
	return fmt.Errorf("gemini %s: %w", model, err)
}
