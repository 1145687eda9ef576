package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/datagrep/datagrep/pkg/api"
	"github.com/datagrep/datagrep/pkg/config"
	"github.com/datagrep/datagrep/pkg/observability"
)

const systemPrompt = "You are an expert data engineer. Generate production-ready " +
	"data pipeline code based on user requirements. Always return valid Python or SQL code."

// Client generates pipelines through an OpenAI-compatible backend.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	models     []string
	logger     *slog.Logger
}

// New creates a generation client from configuration.
func New(cfg config.GeneratorConfig, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("generator API key is not configured")
	}
	if len(cfg.Models) == 0 {
		return nil, fmt.Errorf("generator model list is empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    strings.TrimRight(cfg.BackendURL, "/"),
		apiKey:     cfg.APIKey,
		models:     cfg.Models,
		logger:     logger,
	}, nil
}

// Generate produces pipeline code for the request. The configured
// models are tried in order; a model-side failure falls through to the
// next model, while connection and rate-limit errors abort the whole
// attempt since retrying another model cannot help.
func (c *Client) Generate(ctx context.Context, req Request) (*Result, error) {
	prompt := buildPrompt(req)

	var lastErr error
	for _, model := range c.models {
		start := time.Now()
		content, err := c.complete(ctx, model, prompt)
		if err != nil {
			observability.GenerationsTotal.WithLabelValues(model, "error").Inc()
			lastErr = err
			var te *terminalError
			if errors.As(err, &te) {
				break
			}
			c.logger.Warn("model failed, trying next",
				"model", model,
				"error", err)
			continue
		}
		observability.GenerationsTotal.WithLabelValues(model, "success").Inc()
		observability.GenerationLatency.WithLabelValues(model).Observe(time.Since(start).Seconds())

		code, language := extractCode(content, defaultLanguage(req.SourceType))
		c.logger.Info("pipeline generated",
			"model", model,
			"language", language,
			"code_bytes", len(code))

		return &Result{
			Code:        code,
			Language:    language,
			Description: "Generated pipeline",
			SourceType:  req.SourceType,
			ModelUsed:   model,
		}, nil
	}

	return nil, api.NewGenerationError(fmt.Sprintf("failed to generate pipeline: %s", lastErr))
}

// complete performs one chat completions call and returns the
// assistant message content.
func (c *Client) complete(ctx context.Context, model, prompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := c.baseURL + "/v1/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &terminalError{fmt.Errorf("connecting to generation backend: %w", err)}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode == http.StatusTooManyRequests {
		return "", &terminalError{fmt.Errorf("generation backend rate limited the request")}
	}
	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(httpResp.Body, 1024))
		return "", fmt.Errorf("generation backend returned %d: %s", httpResp.StatusCode, strings.TrimSpace(string(detail)))
	}

	var chatResp chatResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("parsing backend response: %w", err)
	}
	if chatResp.Error != nil {
		return "", fmt.Errorf("generation backend error: %s", chatResp.Error.Message)
	}
	if len(chatResp.Choices) == 0 {
		return "", fmt.Errorf("generation backend returned no choices")
	}
	return chatResp.Choices[0].Message.Content, nil
}

// Close releases client resources.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// terminalError marks failures where trying another model is
// pointless.
type terminalError struct {
	err error
}

func (e *terminalError) Error() string { return e.err.Error() }
func (e *terminalError) Unwrap() error { return e.err }

// defaultLanguage picks the target language for a source type. CSV and
// multi-source pipelines run as Python inside the sandbox; plain
// PostgreSQL sources generate SQL.
func defaultLanguage(sourceType api.SourceType) api.Language {
	if sourceType == api.SourceTypePostgres {
		return api.LanguageSQL
	}
	return api.LanguagePython
}

// extractCode pulls pipeline code out of the model response. Fenced
// blocks override the default language when they name one; a response
// without fences is taken as raw code.
func extractCode(response string, language api.Language) (string, api.Language) {
	if code, ok := fencedBlock(response, "```python"); ok {
		return code, api.LanguagePython
	}
	if code, ok := fencedBlock(response, "```sql"); ok {
		return code, api.LanguageSQL
	}
	if code, ok := fencedBlock(response, "```"); ok {
		// Strip a bare language identifier line left inside the fence.
		if first, rest, found := strings.Cut(code, "\n"); found {
			switch strings.TrimSpace(first) {
			case "python", "py":
				return strings.TrimSpace(rest), api.LanguagePython
			case "sql":
				return strings.TrimSpace(rest), api.LanguageSQL
			}
		}
		return code, language
	}
	return strings.TrimSpace(response), language
}

func fencedBlock(response, fence string) (string, bool) {
	start := strings.Index(response, fence)
	if start < 0 {
		return "", false
	}
	start += len(fence)
	end := strings.Index(response[start:], "```")
	if end < 0 {
		return "", false
	}
	return strings.TrimSpace(response[start : start+end]), true
}
