package llm

import (
	"context"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/gorewood/code-edit/internal/output"
)

// completeGoogle calls Gemini through the generative-ai-go SDK.
func (c *Client) completeGoogle(ctx context.Context, req Request) (*Response, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(c.apiKey))
	if err != nil {
		return nil, output.NewProviderErrorWithCause("failed to create Gemini client", err)
	}
	defer func() { _ = client.Close() }()

	model := client.GenerativeModel(c.model)
	configureGoogleModel(model, req)

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, output.NewProviderErrorWithCause("request failed", err)
	}

	return parseGoogleResponse(resp, c.model)
}

// configureGoogleModel applies the request's system prompt and sampling settings.
func configureGoogleModel(model *genai.GenerativeModel, req Request) {
	model.SetCandidateCount(1)

	if req.System != "" {
		model.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(req.System)},
		}
	}
	if req.Temperature != nil {
		model.SetTemperature(float32(*req.Temperature))
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
}

func parseGoogleResponse(resp *genai.GenerateContentResponse, model string) (*Response, error) {
	if resp == nil {
		return nil, output.NewProviderError("empty response from API")
	}

	if len(resp.Candidates) == 0 {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != genai.BlockReasonUnspecified {
			return nil, output.NewProviderError("prompt blocked by provider: " + fb.BlockReason.String())
		}
		return nil, output.NewProviderError("empty response from API")
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonMaxTokens {
		return nil, output.NewProviderError("response truncated: max output tokens reached")
	}

	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		if candidate.FinishReason != genai.FinishReasonUnspecified && candidate.FinishReason != genai.FinishReasonStop {
			return nil, output.NewProviderError("response stopped: " + candidate.FinishReason.String())
		}
		return nil, output.NewProviderError("empty response from API")
	}

	var content strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			content.WriteString(string(text))
		}
	}

	if content.Len() == 0 {
		return nil, output.NewProviderError("response contained no text content")
	}

	return &Response{Content: content.String(), Model: model}, nil
}
