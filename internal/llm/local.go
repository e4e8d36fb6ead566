package llm

import (
	"context"
)

// Local servers speak the OpenAI chat completion format.
// Works with LM Studio, Ollama, and other OpenAI-compatible servers.

func (c *Client) completeLocal(ctx context.Context, req Request) (*Response, error) {
	body := c.buildLocalRequest(req)
	url := LocalServerURL() + "/chat/completions"

	respBody, err := c.doRequest(ctx, url, body, nil)
	if err != nil {
		return nil, err
	}

	return parseLocalResponse(respBody, c.model)
}

func (c *Client) buildLocalRequest(req Request) chatRequest {
	// Empty model lets the server use whatever it has loaded
	model := c.model
	if model == "default" || model == "local" {
		model = ""
	}
	return buildChatRequest(model, req)
}

func parseLocalResponse(respBody []byte, model string) (*Response, error) {
	if model == "" || model == "default" {
		model = "local"
	}
	return parseChatResponse(respBody, model)
}
