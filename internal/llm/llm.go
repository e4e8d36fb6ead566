// Package llm provides a minimal multi-provider LLM client.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/gorewood/code-edit/internal/output"
)

// Provider represents an LLM provider.
type Provider string

// Supported LLM providers.
const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderGoogle    Provider = "google"
	ProviderLocal     Provider = "local"
)

// DefaultModel is used when neither a flag nor a config file names a model.
const DefaultModel = "flash"

// Request represents an LLM completion request.
type Request struct {
	System      string  // System prompt
	Prompt      string  // User prompt
	Temperature *float64 // Temperature (nil uses the provider default)
	MaxTokens   int     // Max tokens (0 uses default)
}

// Float returns a pointer to v, for Request.Temperature.
func Float(v float64) *float64 {
	return &v
}

// Response represents an LLM completion response.
type Response struct {
	Content string // Generated content
	Model   string // Model used
}

// HTTPDoer defines the HTTP operations required by Client.
// This allows injection of test doubles for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client is a provider-agnostic LLM client.
type Client struct {
	provider   Provider
	model      string
	apiKey     string
	httpClient HTTPDoer
}

// New creates a new LLM client for the given model.
// Model can be a combined format like "claude-haiku", "gemini-flash", "openai-nano".
// Provider is inferred from the model name if not specified.
//
// The API key is read here, so a missing credential fails before any
// file is read or request is sent.
func New(model string, provider Provider) (*Client, error) {
	provider, model, _ = Resolve(model, provider)

	apiKey, err := getAPIKey(provider)
	if err != nil {
		return nil, err
	}

	return &Client{
		provider: provider,
		model:    model,
		apiKey:   apiKey,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// Provider returns the resolved provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// Model returns the resolved model name.
func (c *Client) Model() string {
	return c.model
}

// Complete generates a completion for the given request.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	switch c.provider {
	case ProviderAnthropic:
		return c.completeAnthropic(ctx, req)
	case ProviderOpenAI:
		return c.completeOpenAI(ctx, req)
	case ProviderGoogle:
		return c.completeGoogle(ctx, req)
	case ProviderLocal:
		return c.completeLocal(ctx, req)
	default:
		return nil, output.NewUserError(fmt.Sprintf("unsupported provider: %s", c.provider))
	}
}

// providerPrefixes maps explicit prefixes to providers for combined format parsing.
var providerPrefixes = map[string]Provider{
	"claude-":    ProviderAnthropic,
	"anthropic-": ProviderAnthropic,
	"gemini-":    ProviderGoogle,
	"google-":    ProviderGoogle,
	"openai-":    ProviderOpenAI,
	"local-":     ProviderLocal,
}

// nativePrefixes begin real model names, so they stay on the model.
var nativePrefixes = []string{"claude-", "gemini-"}

func hasNativePrefix(model string) bool {
	modelLower := strings.ToLower(model)
	for _, prefix := range nativePrefixes {
		if strings.HasPrefix(modelLower, prefix) {
			return true
		}
	}
	return false
}

// parseProviderPrefix extracts provider from combined format like "claude-haiku".
// Returns empty provider if no prefix matches.
func parseProviderPrefix(model string) (Provider, string) {
	modelLower := strings.ToLower(model)
	for prefix, provider := range providerPrefixes {
		if strings.HasPrefix(modelLower, prefix) {
			return provider, model[len(prefix):]
		}
	}
	return "", model
}

// providerPattern maps model substrings to providers.
type providerPattern struct {
	substring string
	provider  Provider
}

// providerPatterns checked in order; first match wins.
var providerPatterns = []providerPattern{
	{"claude", ProviderAnthropic},
	{"haiku", ProviderAnthropic},
	{"sonnet", ProviderAnthropic},
	{"opus", ProviderAnthropic},
	{"gpt", ProviderOpenAI},
	{"nano", ProviderOpenAI},
	{"o1", ProviderOpenAI},
	{"o3", ProviderOpenAI},
	{"o4", ProviderOpenAI},
	{"gemini", ProviderGoogle},
	{"flash", ProviderGoogle},
	{"local", ProviderLocal},
	{"qwen", ProviderLocal},
	{"llama", ProviderLocal},
	{"mistral", ProviderLocal},
	{"phi", ProviderLocal},
}

// inferProvider guesses the provider from the model name.
// Unknown names go to Google, whose Gemini models are the default.
func inferProvider(model string) Provider {
	modelLower := strings.ToLower(model)
	for _, p := range providerPatterns {
		if strings.Contains(modelLower, p.substring) {
			return p.provider
		}
	}
	return ProviderGoogle
}

// Model aliases - just convenient shorthands, users can pass full names directly.
var modelAliases = map[Provider]map[string]string{
	ProviderAnthropic: {
		"haiku":  "claude-haiku-4-5-20251001",
		"sonnet": "claude-sonnet-4-5-20250929",
		"opus":   "claude-opus-4-1-20250805",
	},
	ProviderOpenAI: {
		"nano": "gpt-5-nano",
		"mini": "gpt-5-mini",
		"gpt":  "gpt-5",
	},
	ProviderGoogle: {
		"flash":      "gemini-2.5-flash",
		"flash-lite": "gemini-2.5-flash-lite",
		"pro":        "gemini-2.5-pro",
	},
	ProviderLocal: {
		"local": "default",
	},
}

// resolveModelAlias expands shorthand aliases, passes through unknown names.
func resolveModelAlias(model string, provider Provider) string {
	if aliases, ok := modelAliases[provider]; ok {
		if resolved, ok := aliases[strings.ToLower(model)]; ok {
			return resolved
		}
	}
	return model
}

func isAlias(model string, provider Provider) bool {
	_, ok := modelAliases[provider][strings.ToLower(model)]
	return ok
}

// envVarForProvider maps providers to their API key environment variables.
var envVarForProvider = map[Provider]string{
	ProviderAnthropic: "ANTHROPIC_API_KEY",
	ProviderOpenAI:    "OPENAI_API_KEY",
	ProviderGoogle:    "GOOGLE_API_KEY",
	ProviderLocal:     "", // Local provider doesn't require an API key
}

// keyURLForProvider tells users where to get a key when it is missing.
var keyURLForProvider = map[Provider]string{
	ProviderAnthropic: "https://console.anthropic.com/settings/keys",
	ProviderOpenAI:    "https://platform.openai.com/api-keys",
	ProviderGoogle:    "https://aistudio.google.com/app/apikey",
}

func getAPIKey(provider Provider) (string, error) {
	envVar, ok := envVarForProvider[provider]
	if !ok {
		return "", output.NewUserError(fmt.Sprintf("unsupported provider: %s", provider))
	}

	// Local provider doesn't require an API key
	if envVar == "" {
		return "not-needed", nil
	}

	key := os.Getenv(envVar)
	if key == "" {
		msg := envVar + " environment variable not set"
		if url := keyURLForProvider[provider]; url != "" {
			msg += " (get a key from " + url + ")"
		}
		return "", output.NewConfigError(msg)
	}
	return key, nil
}

// LocalServerURL returns the URL for the local LLM server.
// Defaults to http://localhost:1234/v1 (LM Studio default).
func LocalServerURL() string {
	if url := os.Getenv("LOCAL_LLM_URL"); url != "" {
		return url
	}
	return "http://localhost:1234/v1"
}

// doRequest performs an HTTP POST request with JSON body.
func (c *Client) doRequest(ctx context.Context, url string, body any, headers map[string]string) ([]byte, error) {
	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to create request", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		httpReq.Header.Set(key, value)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, output.NewProviderErrorWithCause("request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, output.NewProviderErrorWithCause("failed to read response", err)
	}

	if resp.StatusCode != http.StatusOK {
		// Truncate error body to prevent sensitive data leakage and memory issues
		errBody := string(respBody)
		if len(errBody) > 500 {
			errBody = errBody[:500]
		}
		return nil, output.NewProviderError(fmt.Sprintf("API error (status %d): %s", resp.StatusCode, errBody))
	}

	return respBody, nil
}

// SupportedProviders returns a list of supported providers.
func SupportedProviders() []string {
	return []string{string(ProviderAnthropic), string(ProviderOpenAI), string(ProviderGoogle), string(ProviderLocal)}
}

// ProviderInfo describes a provider for the models command.
type ProviderInfo struct {
	Name    string
	EnvVar  string
	KeySet  bool
	Aliases map[string]string
}

// ProviderInfos returns every provider with its key variable and aliases,
// in SupportedProviders order.
func ProviderInfos() []ProviderInfo {
	infos := make([]ProviderInfo, 0, len(envVarForProvider))
	for _, name := range SupportedProviders() {
		p := Provider(name)
		envVar := envVarForProvider[p]
		infos = append(infos, ProviderInfo{
			Name:    name,
			EnvVar:  envVar,
			KeySet:  envVar == "" || os.Getenv(envVar) != "",
			Aliases: modelAliases[p],
		})
	}
	return infos
}

// Resolve returns the provider, model and key variable New would pick,
// without requiring the key to be set.
func Resolve(model string, provider Provider) (Provider, string, string) {
	if model == "" {
		model = DefaultModel
	}
	if provider == "" {
		var rest string
		provider, rest = parseProviderPrefix(model)
		// "gemini-flash" is an alias; "gemini-2.5-flash" is a full name.
		// "openai-gpt-4o" only selects the provider.
		if provider != "" && (isAlias(rest, provider) || !hasNativePrefix(model)) {
			model = rest
		}
	}
	if provider == "" {
		provider = inferProvider(model)
	}
	return provider, resolveModelAlias(model, provider), envVarForProvider[provider]
}

// ValidProvider reports whether name is empty or a supported provider.
func ValidProvider(name string) bool {
	return name == "" || slices.Contains(SupportedProviders(), name)
}
