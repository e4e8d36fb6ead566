package llm

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/gorewood/code-edit/internal/output"
)

const openaiURL = "https://api.openai.com/v1/chat/completions"

// Chat completion types, shared by OpenAI and OpenAI-compatible local servers.
type chatRequest struct {
	Model       string        `json:"model,omitempty"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	MaxOutput   int           `json:"max_completion_tokens,omitempty"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		FinishReason string `json:"finish_reason"`
		Message      struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *Client) completeOpenAI(ctx context.Context, req Request) (*Response, error) {
	body := buildChatRequest(c.model, req)

	// OpenAI deprecated max_tokens, and reasoning models reject a custom temperature.
	body.MaxOutput, body.MaxTokens = body.MaxTokens, 0
	if isReasoningModel(c.model) {
		body.Temperature = nil
	}

	respBody, err := c.doRequest(ctx, openaiURL, body, map[string]string{
		"Authorization": "Bearer " + c.apiKey,
	})
	if err != nil {
		return nil, err
	}

	return parseChatResponse(respBody, c.model)
}

func buildChatRequest(model string, req Request) chatRequest {
	messages := []chatMessage{}
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body := chatRequest{Model: model, Messages: messages}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}
	if req.Temperature != nil {
		temp := *req.Temperature
		body.Temperature = &temp
	}
	return body
}

// isReasoningModel reports models that only accept the default temperature.
func isReasoningModel(model string) bool {
	for _, prefix := range []string{"gpt-5", "o1", "o3", "o4"} {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return true
		}
	}
	return false
}

func parseChatResponse(respBody []byte, model string) (*Response, error) {
	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, output.NewProviderErrorWithCause("failed to parse response", err)
	}

	if result.Error != nil {
		return nil, output.NewProviderError("API error: " + result.Error.Message)
	}

	if len(result.Choices) > 0 && result.Choices[0].FinishReason == "length" {
		return nil, output.NewProviderError("response truncated: max output tokens reached")
	}

	if len(result.Choices) == 0 || result.Choices[0].Message.Content == "" {
		return nil, output.NewProviderError("empty response from API")
	}

	return &Response{Content: result.Choices[0].Message.Content, Model: model}, nil
}
