package generator

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const (
	anthropicBaseURL = "https://api.anthropic.com"
	openAIBaseURL    = "https://api.openai.com"

	anthropicVersion = "2023-06-01"
)

// LLMError carries the provider rejection that moves the chain to its next
// state.
type LLMError struct {
	Provider string
	Status   int
	Body     string
}

func (e *LLMError) Error() string {
	return fmt.Sprintf("%s completion failed with status %d: %s", e.Provider, e.Status, e.Body)
}

// TextCompleter produces article markdown from a prompt. Both LLM clients
// and the test fakes satisfy it.
type TextCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Configured() bool
}

// AnthropicClient calls the Anthropic messages API.
type AnthropicClient struct {
	logger *zap.Logger
	client *resty.Client
	apiKey string
	model  string

	// BaseURL overrides the API host, used by tests.
	BaseURL string
}

func NewAnthropicClient(apiKey, model string, logger *zap.Logger) *AnthropicClient {
	return &AnthropicClient{
		logger: logger,
		client: resty.New().SetTimeout(90 * time.Second),
		apiKey: apiKey,
		model:  model,
	}
}

func (c *AnthropicClient) Configured() bool {
	return c.apiKey != ""
}

func (c *AnthropicClient) Complete(ctx context.Context, prompt string) (string, error) {
	base := c.BaseURL
	if base == "" {
		base = anthropicBaseURL
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	resp, err := c.client.R().SetContext(ctx).
		SetHeader("x-api-key", c.apiKey).
		SetHeader("anthropic-version", anthropicVersion).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"model":      c.model,
			"max_tokens": 4096,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
		}).
		SetResult(&out).
		Post(base + "/v1/messages")
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}
	if resp.IsError() {
		return "", &LLMError{Provider: "anthropic", Status: resp.StatusCode(), Body: resp.String()}
	}

	for _, block := range out.Content {
		if block.Type == "text" && block.Text != "" {
			return block.Text, nil
		}
	}
	return "", &LLMError{Provider: "anthropic", Status: resp.StatusCode(), Body: "empty completion"}
}

// OpenAIClient calls the chat completions API.
type OpenAIClient struct {
	logger *zap.Logger
	client *resty.Client
	apiKey string
	model  string

	BaseURL string
}

func NewOpenAIClient(apiKey, model string, logger *zap.Logger) *OpenAIClient {
	return &OpenAIClient{
		logger: logger,
		client: resty.New().SetTimeout(90 * time.Second),
		apiKey: apiKey,
		model:  model,
	}
}

func (c *OpenAIClient) Configured() bool {
	return c.apiKey != ""
}

func (c *OpenAIClient) Complete(ctx context.Context, prompt string) (string, error) {
	base := c.BaseURL
	if base == "" {
		base = openAIBaseURL
	}

	var out struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	resp, err := c.client.R().SetContext(ctx).
		SetAuthToken(c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]interface{}{
			"model": c.model,
			"messages": []map[string]string{
				{"role": "user", "content": prompt},
			},
		}).
		SetResult(&out).
		Post(base + "/v1/chat/completions")
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	if resp.IsError() {
		return "", &LLMError{Provider: "openai", Status: resp.StatusCode(), Body: resp.String()}
	}

	if len(out.Choices) == 0 || out.Choices[0].Message.Content == "" {
		return "", &LLMError{Provider: "openai", Status: resp.StatusCode(), Body: "empty completion"}
	}
	return out.Choices[0].Message.Content, nil
}
