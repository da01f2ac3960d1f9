package summarizer

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ahrav/go-precis/internal/domain"
	"github.com/ahrav/go-precis/internal/ports"
)

// Hugging Face inference defaults.
const (
	HuggingFaceDefaultModel   = "sshleifer/distilbart-cnn-12-6"
	HuggingFaceDefaultBaseURL = "https://api-inference.huggingface.co"

	// hfMinLength mirrors the pipeline's fixed minimum summary length in tokens.
	hfMinLength = 60

	// hfMaxErrorBody bounds how much of an error body is read into messages.
	hfMaxErrorBody = 4 << 10
)

func init() {
	RegisterProviderFactory("huggingface", newHuggingFaceProvider)
}

// huggingFaceBackend calls a hosted transformer summarization pipeline.
// The pipeline takes no instruction, so the request style is ignored.
type huggingFaceBackend struct {
	name       string
	model      string
	endpoint   string
	apiKey     string
	httpClient *http.Client
	estimator  TokenEstimator
	classifier *ErrorClassifier
}

type hfParameters struct {
	MaxLength int  `json:"max_length"`
	MinLength int  `json:"min_length"`
	DoSample  bool `json:"do_sample"`
}

type hfRequest struct {
	Inputs     string       `json:"inputs"`
	Parameters hfParameters `json:"parameters"`
}

type hfSummary struct {
	SummaryText string `json:"summary_text"`
}

type hfError struct {
	Error string `json:"error"`
}

func newHuggingFaceProvider(cfg Config) (Backend, error) {
	model := cmp.Or(cfg.Model, HuggingFaceDefaultModel)
	base := strings.TrimRight(cmp.Or(cfg.BaseURL, HuggingFaceDefaultBaseURL), "/")

	endpoint, err := url.JoinPath(base, "models", model)
	if err != nil {
		return nil, fmt.Errorf("invalid huggingface endpoint: %w", err)
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &huggingFaceBackend{
		name:       cfg.Name,
		model:      model,
		endpoint:   endpoint,
		apiKey:     cfg.APIKey,
		httpClient: client,
		estimator:  cfg.TokenEstimator,
		classifier: &ErrorClassifier{Provider: "huggingface"},
	}, nil
}

// HFMaxLength is the pipeline max_length for a word limit: 1.5 tokens per
// word, never below 64.
func HFMaxLength(maxWords int) int {
	return max(64, int(float64(maxWords)*1.5))
}

// Summarize implements Backend.
func (b *huggingFaceBackend) Summarize(ctx context.Context, req domain.SummaryRequest) (domain.Summary, error) {
	maxWords := req.MaxWords
	if maxWords <= 0 {
		maxWords = domain.DefaultMaxWords
	}

	body, err := json.Marshal(hfRequest{
		Inputs: req.Text,
		Parameters: hfParameters{
			MaxLength: HFMaxLength(maxWords),
			MinLength: hfMinLength,
			DoSample:  false,
		},
	})
	if err != nil {
		return domain.Summary{}, fmt.Errorf("failed to encode huggingface request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.Summary{}, fmt.Errorf("failed to build huggingface request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if b.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+b.apiKey)
	}

	start := time.Now()
	resp, err := b.httpClient.Do(httpReq)
	if err != nil {
		if isContextError(err) || ctx.Err() != nil {
			return domain.Summary{}, b.classifier.ClassifyContextError(cmp.Or(ctx.Err(), err))
		}
		return domain.Summary{}, NewProviderError("huggingface", ErrorTypeNetwork, 0, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.Summary{}, b.statusError(resp)
	}

	var results []hfSummary
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return domain.Summary{}, fmt.Errorf("%s: decode response: %w: %v", b.name, ports.ErrInvalidResponse, err)
	}
	if len(results) == 0 {
		return domain.Summary{}, fmt.Errorf("%s: %w", b.name, ports.ErrEmptyResponse)
	}

	text := strings.TrimSpace(results[0].SummaryText)
	if text == "" {
		return domain.Summary{}, fmt.Errorf("%s: %w", b.name, ports.ErrEmptyResponse)
	}

	return domain.Summary{
		Text:         text,
		Engine:       b.name,
		Model:        b.model,
		InputTokens:  b.estimator.EstimateTokens(req.Text),
		OutputTokens: b.estimator.EstimateTokens(text),
		Latency:      time.Since(start),
	}, nil
}

func (b *huggingFaceBackend) statusError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, hfMaxErrorBody))
	message := strings.TrimSpace(string(raw))
	var payload hfError
	if json.Unmarshal(raw, &payload) == nil && payload.Error != "" {
		message = payload.Error
	}
	return b.classifier.ClassifyHTTPError(resp.StatusCode, message, nil)
}

// Name implements Backend.
func (b *huggingFaceBackend) Name() string { return b.name }

// Model implements Backend.
func (b *huggingFaceBackend) Model() string { return b.model }
