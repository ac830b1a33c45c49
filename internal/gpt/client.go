// internal/gpt/client.go
package gpt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"

	"diet-planner/internal/models"
)

var (
	ErrMissingAPIKey = errors.New("GPT API key is not configured")
	ErrRateLimited   = errors.New("GPT API rate limited")
)

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
}

// NewClient returns a client for an OpenAI compatible API. An empty baseURL
// means the public OpenAI endpoint. With an empty apiKey every call fails
// with ErrMissingAPIKey.
func NewClient(apiKey, baseURL string) *Client {
	c := &Client{
		model:       openai.GPT4oMini,
		temperature: 0.9,
		maxTokens:   8000,
	}
	if apiKey == "" {
		return c
	}

	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	c.client = openai.NewClientWithConfig(config)
	return c
}

func (c *Client) WithModel(model string) *Client {
	if model != "" {
		c.model = model
	}
	return c
}

func (c *Client) WithTemperature(t float32) *Client {
	c.temperature = t
	return c
}

func (c *Client) WithMaxTokens(n int) *Client {
	if n > 0 {
		c.maxTokens = n
	}
	return c
}

// GeneratePlan asks the model for a weekly plan as a JSON document. The
// document is only checked to be valid JSON; shape validation belongs to the
// consumer.
func (c *Client) GeneratePlan(ctx context.Context, profile models.UserProfile, targetCalories, seed int) (json.RawMessage, error) {
	if c.client == nil {
		return nil, ErrMissingAPIKey
	}

	prompt, err := BuildPrompt(profile, targetCalories, seed)
	if err != nil {
		return nil, err
	}

	req := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
		Seed:        &seed,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "weekly_plan",
				Schema: planSchema(),
				Strict: true,
			},
		},
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		if isRateLimit(err) {
			return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
		}
		return nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from GPT API")
	}

	content := stripCodeFence(resp.Choices[0].Message.Content)
	if !json.Valid([]byte(content)) {
		return nil, fmt.Errorf("GPT API returned non-JSON content")
	}
	return json.RawMessage(content), nil
}

func isRateLimit(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode == http.StatusTooManyRequests
	}
	return false
}

// stripCodeFence removes a ```json ... ``` wrapper some models add despite
// the response format.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
