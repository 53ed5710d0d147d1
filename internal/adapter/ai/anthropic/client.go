// Package anthropic implements the AI client against the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
	"unicode/utf8"

	backoff "github.com/cenkalti/backoff/v4"

	"log/slog"

	"github.com/kerjaflow/fitscore/internal/adapter/ai/tokencount"
	"github.com/kerjaflow/fitscore/internal/adapter/observability"
	"github.com/kerjaflow/fitscore/internal/config"
	"github.com/kerjaflow/fitscore/internal/domain"
)

const (
	apiVersion           = "2023-06-01"
	extractTemperature   = 0.3
	extractMaxTokens     = 2048
	documentTemperature  = 0.7
	documentMaxTokens    = 4096
	defaultClientTimeout = 120 * time.Second
)

// Client implements domain.AIClient using the Anthropic Messages API. The
// model is fixed at construction so extraction and batch ranking can run on
// different models with otherwise identical behavior.
type Client struct {
	cfg     config.Config
	model   string
	hc      *http.Client
	counter *tokencount.Counter
}

// New constructs a client for the given model.
func New(cfg config.Config, model string) *Client {
	return &Client{
		cfg:     cfg,
		model:   model,
		hc:      &http.Client{Timeout: defaultClientTimeout},
		counter: tokencount.NewCounter(),
	}
}

func (c *Client) getBackoffConfig() *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	maxElapsedTime, initialInterval, maxInterval, multiplier := c.cfg.GetAIBackoffConfig()
	expo.MaxElapsedTime = maxElapsedTime
	expo.InitialInterval = initialInterval
	expo.MaxInterval = maxInterval
	expo.Multiplier = multiplier
	return expo
}

// ExtractFit runs the rubric prompt over one resume/job pair and returns the
// validated extraction.
func (c *Client) ExtractFit(ctx domain.Context, resumeText, jobDescription string) (domain.ExtractionResult, error) {
	resumeText = c.truncate(resumeText, c.cfg.MaxPromptTokens/2)
	jobDescription = c.truncate(jobDescription, c.cfg.MaxPromptTokens/2)

	body := map[string]any{
		"model":       c.model,
		"max_tokens":  extractMaxTokens,
		"temperature": extractTemperature,
		"system":      extractSystemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": buildExtractPrompt(resumeText, jobDescription)},
		},
		"output_format": map[string]any{
			"type":   "json_schema",
			"schema": extractionSchema,
		},
	}

	raw, err := c.call(ctx, "extract", body)
	if err != nil {
		return domain.ExtractionResult{}, err
	}
	res, err := decodeExtraction(raw)
	if err != nil {
		slog.Error("extraction output rejected", slog.String("model", c.model), slog.Any("error", err))
		return domain.ExtractionResult{}, err
	}
	return res, nil
}

// GenerateDocument produces a tailored resume or cover letter as plain text.
func (c *Client) GenerateDocument(ctx domain.Context, docType, resumeText string, listing domain.JobListing) (string, error) {
	resumeText = c.truncate(resumeText, c.cfg.MaxPromptTokens/2)
	listing.Description = c.truncate(listing.Description, c.cfg.MaxPromptTokens/2)

	body := map[string]any{
		"model":       c.model,
		"max_tokens":  documentMaxTokens,
		"temperature": documentTemperature,
		"system":      documentSystemPrompt,
		"messages": []map[string]string{
			{"role": "user", "content": buildDocumentPrompt(docType, resumeText, listing)},
		},
	}
	return c.call(ctx, "generate_document", body)
}

// call performs one Messages API request with exponential backoff. 429 and
// 5xx are retried; other 4xx are permanent.
func (c *Client) call(ctx domain.Context, operation string, body map[string]any) (string, error) {
	if c.cfg.AnthropicAPIKey == "" {
		slog.Error("Anthropic API key missing", slog.String("operation", operation))
		return "", fmt.Errorf("%w: ANTHROPIC_API_KEY missing", domain.ErrInvalidArgument)
	}

	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("op=anthropic.call: marshal request: %w", err)
	}

	var out struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
		StopReason string `json:"stop_reason"`
	}
	rateLimited := false
	op := func() error {
		start := time.Now()
		// Recreate request each attempt to avoid reusing consumed bodies
		r, _ := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.AnthropicBaseURL+"/v1/messages", bytes.NewReader(b))
		r.Header.Set("x-api-key", c.cfg.AnthropicAPIKey)
		r.Header.Set("anthropic-version", apiVersion)
		r.Header.Set("Content-Type", "application/json")
		resp, err := c.hc.Do(r)
		observability.AIRequestsTotal.WithLabelValues("anthropic", operation).Inc()
		observability.AIRequestDuration.WithLabelValues("anthropic", operation).Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
		defer func() { _ = resp.Body.Close() }()

		bodyBytes, err := io.ReadAll(resp.Body)
		if err != nil {
			slog.Error("failed to read response body", slog.String("operation", operation), slog.Any("error", err))
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			rateLimited = true
			slog.Warn("anthropic rate limited",
				slog.String("operation", operation),
				slog.Int("status", resp.StatusCode),
				slog.String("request_id", resp.Header.Get("request-id")))
			return fmt.Errorf("rate limited: 429")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			bodySnippet := string(bodyBytes)
			if len(bodySnippet) > 512 {
				bodySnippet = bodySnippet[:512]
			}
			slog.Warn("anthropic 4xx",
				slog.String("operation", operation),
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.model),
				slog.String("request_id", resp.Header.Get("request-id")),
				slog.String("body", bodySnippet))
			return backoff.Permanent(fmt.Errorf("messages status %d", resp.StatusCode))
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			slog.Error("anthropic non-2xx",
				slog.String("operation", operation),
				slog.Int("status", resp.StatusCode),
				slog.String("model", c.model),
				slog.String("request_id", resp.Header.Get("request-id")))
			return fmt.Errorf("messages status %d", resp.StatusCode)
		}
		rateLimited = false
		if err := json.Unmarshal(bodyBytes, &out); err != nil {
			slog.Error("anthropic decode error", slog.String("operation", operation), slog.Any("error", err))
			return err
		}
		return nil
	}

	expo := c.getBackoffConfig()
	bo := backoff.WithContext(expo, ctx)
	if err := backoff.Retry(op, bo); err != nil {
		if rateLimited {
			return "", fmt.Errorf("%w: op=anthropic.%s: %v", domain.ErrUpstreamRateLimit, operation, err)
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w: op=anthropic.%s: %v", domain.ErrUpstreamTimeout, operation, err)
		}
		return "", fmt.Errorf("%w: op=anthropic.%s: %v", domain.ErrExtractionFailed, operation, err)
	}

	var text string
	for _, block := range out.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}
	if text == "" {
		slog.Error("anthropic returned empty content", slog.String("operation", operation), slog.String("stop_reason", out.StopReason))
		return "", fmt.Errorf("%w: empty content", domain.ErrExtractionFailed)
	}
	return text, nil
}

// truncate cuts text down to roughly budget tokens, keeping the head. The
// token count is approximate for Claude models but stable, which is all the
// budget needs.
func (c *Client) truncate(text string, budget int) string {
	if budget <= 0 {
		return text
	}
	n, err := c.counter.CountTokens(text, c.model)
	if err != nil || n <= budget {
		return text
	}
	// Approximate bytes-per-token from this text, then cut with slack.
	cut := len(text) * budget / n
	if cut >= len(text) {
		return text
	}
	// Back the cut up to a rune boundary so a multi-byte character is never
	// split mid-sequence.
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	slog.Warn("truncating oversized input",
		slog.String("model", c.model),
		slog.Int("tokens", n),
		slog.Int("budget", budget))
	return text[:cut]
}
