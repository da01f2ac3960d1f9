package summarizer

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GoogleDefaultModel is the Gemini model used when none is configured.
const GoogleDefaultModel = "gemini-2.5-flash"

// generateContentAction is the SupportedActions entry of models that can summarize.
const generateContentAction = "generateContent"

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// ModelInfo describes one model offered by an engine.
type ModelInfo struct {
	Name                    string `json:"name"`
	DisplayName             string `json:"display_name,omitempty"`
	SupportsGenerateContent bool   `json:"supports_generate_content"`
}

// ModelLister is implemented by engines that can enumerate their models.
type ModelLister interface {
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// googleProvider speaks to the Gemini API through the genai SDK.
type googleProvider struct {
	client     *genai.Client
	model      string
	classifier *ErrorClassifier
}

// googleBackend is the prompt backend for Gemini plus model listing.
type googleBackend struct {
	*promptBackend
	provider *googleProvider
}

func newGoogleProvider(cfg Config) (Backend, error) {
	if cfg.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cc.HTTPClient == nil && cfg.Timeout > 0 {
		cc.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google client: %w", err)
	}

	p := &googleProvider{
		client:     client,
		model:      cmp.Or(cfg.Model, GoogleDefaultModel),
		classifier: &ErrorClassifier{Provider: "google"},
	}
	return &googleBackend{promptBackend: newPromptBackend(cfg, p), provider: p}, nil
}

// DoRequest implements Completer. MaxTokens is not forwarded: Gemini 2.5
// models spend output tokens on thinking, and a tight cap can leave the
// answer empty.
func (p *googleProvider) DoRequest(ctx context.Context, prompt string, opts RequestOptions) (string, int, int, error) {
	config := &genai.GenerateContentConfig{}
	if opts.Temperature != nil {
		config.Temperature = genai.Ptr(float32(ClampFloat64(*opts.Temperature, MinTemperature, MaxTemperature)))
	}

	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}
	resp, err := p.client.Models.GenerateContent(ctx, p.model, contents, config)
	if err != nil {
		return "", 0, 0, p.handleError(err)
	}

	content := resp.Text()
	var tokensIn, tokensOut int
	if resp.UsageMetadata != nil {
		tokensIn = int(resp.UsageMetadata.PromptTokenCount)
		tokensOut = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return content, tokensIn, tokensOut, nil
}

// Model implements Completer.
func (p *googleProvider) Model() string { return p.model }

// ListModels reports every model visible to the API key and whether it
// can serve generateContent.
func (b *googleBackend) ListModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	for m, err := range b.provider.client.Models.All(ctx) {
		if err != nil {
			return nil, b.provider.handleError(err)
		}
		models = append(models, ModelInfo{
			Name:                    m.Name,
			DisplayName:             m.DisplayName,
			SupportsGenerateContent: supportsGenerateContent(m.SupportedActions),
		})
	}
	return models, nil
}

func supportsGenerateContent(actions []string) bool {
	for _, a := range actions {
		if a == generateContentAction {
			return true
		}
	}
	return false
}

func (p *googleProvider) handleError(err error) error {
	if isContextError(err) {
		return p.classifier.ClassifyContextError(err)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		if isPolicyMessage(apiErr.Message) {
			return NewProviderError("google", ErrorTypeContentPolicy, apiErr.Code,
				"request blocked by safety filters", err)
		}
		return p.classifier.ClassifyHTTPError(apiErr.Code, apiErr.Message, err)
	}

	var gErr *googleapi.Error
	if errors.As(err, &gErr) {
		message := gErr.Message
		if message == "" && len(gErr.Errors) > 0 {
			message = gErr.Errors[0].Message
		}
		if containsContentPolicyError(gErr) {
			return NewProviderError("google", ErrorTypeContentPolicy, gErr.Code,
				"request blocked by safety filters", err)
		}
		return p.classifier.ClassifyHTTPError(gErr.Code, message, err)
	}

	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}

func containsContentPolicyError(apiErr *googleapi.Error) bool {
	if isPolicyMessage(apiErr.Message) {
		return true
	}
	for _, e := range apiErr.Errors {
		if e.Reason == "SAFETY" || e.Reason == "BLOCKED" {
			return true
		}
	}
	return false
}

func isPolicyMessage(msg string) bool {
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "safety") ||
		strings.Contains(lower, "policy") ||
		strings.Contains(lower, "blocked")
}
