package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gorewood/code-edit/internal/output"
)

const anthropicURL = "https://api.anthropic.com/v1/messages"

// Anthropic API types.
type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	System      string             `json:"system,omitempty"`
	Temperature *float64           `json:"temperature,omitempty"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeAnthropic(ctx context.Context, req Request) (*Response, error) {
	respBody, err := c.doRequest(ctx, anthropicURL, c.buildAnthropicRequest(req), map[string]string{
		"x-api-key":         c.apiKey,
		"anthropic-version": "2023-06-01",
	})
	if err != nil {
		return nil, err
	}

	return parseAnthropicResponse(respBody, c.model)
}

func (c *Client) buildAnthropicRequest(req Request) anthropicRequest {
	// Whole-file rewrites need room; the messages API requires a limit.
	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 16384
	}

	body := anthropicRequest{
		Model:     c.model,
		MaxTokens: maxTokens,
		System:    req.System,
		Messages:  []anthropicMessage{{Role: "user", Content: req.Prompt}},
	}
	if req.Temperature != nil {
		temp := *req.Temperature
		body.Temperature = &temp
	}
	return body
}

func parseAnthropicResponse(respBody []byte, model string) (*Response, error) {
	var result anthropicResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, output.NewProviderErrorWithCause("failed to parse response", err)
	}

	if result.Error != nil {
		return nil, output.NewProviderError("API error: " + result.Error.Message)
	}

	if result.StopReason == "max_tokens" {
		return nil, output.NewProviderError("response truncated: max output tokens reached")
	}

	if len(result.Content) == 0 {
		return nil, output.NewProviderError("empty response from API")
	}

	var content strings.Builder
	for _, block := range result.Content {
		if block.Type == "text" {
			content.WriteString(block.Text)
		}
	}

	if content.Len() == 0 {
		return nil, output.NewProviderError("response contained no text content")
	}

	return &Response{Content: content.String(), Model: model}, nil
}
