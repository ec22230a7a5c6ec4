package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

// Client is the rate-limited, retry-aware, cache-aware Gemini wrapper.
// One Client maintains one sequential request stream and at most one
// internal cached-content resource.
type Client struct {
	backend Backend
	cfg     Config
	logger  *slog.Logger
	pacer   *pacer

	mu    sync.Mutex
	cache *cacheState
}

// NewClient creates a Client over the given backend.
func NewClient(backend Backend, cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = DefaultConfig("").Model
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultConfig("").EmbeddingModel
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	return &Client{
		backend: backend,
		cfg:     cfg,
		logger:  logger,
		pacer:   newPacer(cfg.RequestsPerMinute),
	}
}

// Model returns the client's default generation model.
func (c *Client) Model() string {
	return c.cfg.Model
}

// SetRate updates the request pacing mid-run.
func (c *Client) SetRate(requestsPerMinute int) {
	c.pacer.SetRate(requestsPerMinute)
}

// PacerStatus reports request pacing statistics.
func (c *Client) PacerStatus() PacerStatus {
	return c.pacer.Status()
}

// Generate performs one rate-limited, retried generation call.
//
// A safety block is not an error: the returned Response has empty Content
// and a safety FinishReason, and the caller decides whether to fall back
// to another model.
func (c *Client) Generate(ctx context.Context, req *Request) (*Response, error) {
	if err := c.pacer.Wait(ctx); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	cfg, cacheName := c.buildConfig(req, model)

	contents := []*genai.Content{
		genai.NewContentFromText(req.Prompt, genai.RoleUser),
	}

	var raw *genai.GenerateContentResponse
	attempts := 0
	err := withRetry(ctx, c.cfg.MaxRetries, func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
		defer cancel()

		resp, callErr := c.backend.GenerateContent(callCtx, model, contents, cfg)
		if callErr != nil {
			c.logger.Warn("generation attempt failed",
				"model", model, "attempt", attempts, "error", callErr)
			return callErr
		}
		raw = resp
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("generation failed after %d attempts: %w", attempts, err)
	}

	resp := parseResponse(raw, model, attempts)
	if cacheName != "" {
		c.logger.Debug("generation used cached content",
			"cache", cacheName, "cached_tokens", resp.CachedTokens)
	}
	if resp.SafetyBlocked() {
		c.logger.Warn("generation blocked by safety filter",
			"model", model, "finish_reason", resp.FinishReason)
		return resp, nil
	}
	if resp.Content == "" {
		return resp, ErrEmptyResponse
	}
	return resp, nil
}

// buildConfig assembles the provider call config and resolves which cache,
// if any, the request rides on. External cache names win over the internal
// cache; with any cache in play, system instruction and tools are dropped
// because they were baked in at cache creation.
func (c *Client) buildConfig(req *Request, model string) (*genai.GenerateContentConfig, string) {
	cfg := &genai.GenerateContentConfig{}

	temp := req.Temperature
	if temp == 0 {
		temp = c.cfg.Temperature
	}
	cfg.Temperature = genai.Ptr(float32(temp))

	maxTokens := req.MaxOutputTokens
	if maxTokens == 0 {
		maxTokens = c.cfg.MaxOutputTokens
	}
	if maxTokens > 0 {
		cfg.MaxOutputTokens = int32(maxTokens)
	}

	if c.cfg.IncludeThoughts {
		cfg.ThinkingConfig = &genai.ThinkingConfig{IncludeThoughts: true}
	}

	cacheName := req.CachedContent
	if cacheName == "" && !req.ForceNewSession {
		cacheName = c.internalCacheFor(model)
	}

	if cacheName != "" {
		cfg.CachedContent = cacheName
		return cfg, cacheName
	}

	if req.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}
	if len(req.Tools) > 0 {
		cfg.Tools = req.Tools
	}
	return cfg, ""
}

// parseResponse converts a raw provider response into a Response,
// separating thought parts from content parts.
func parseResponse(raw *genai.GenerateContentResponse, model string, attempts int) *Response {
	resp := &Response{
		ModelUsed:    model,
		FinishReason: FinishUnknown,
		Attempts:     attempts,
	}

	if raw == nil {
		return resp
	}

	if raw.UsageMetadata != nil {
		resp.InputTokens = int(raw.UsageMetadata.PromptTokenCount)
		resp.OutputTokens = int(raw.UsageMetadata.CandidatesTokenCount)
		resp.CachedTokens = int(raw.UsageMetadata.CachedContentTokenCount)
	}

	if raw.PromptFeedback != nil && raw.PromptFeedback.BlockReason != "" {
		resp.FinishReason = FinishBlocked
		return resp
	}

	if len(raw.Candidates) == 0 {
		return resp
	}

	cand := raw.Candidates[0]
	resp.FinishReason = normalizeFinishReason(cand.FinishReason)

	if cand.Content == nil {
		return resp
	}

	var content, thinking strings.Builder
	for _, part := range cand.Content.Parts {
		if part == nil || part.Text == "" {
			continue
		}
		if part.Thought {
			thinking.WriteString(part.Text)
		} else {
			content.WriteString(part.Text)
		}
	}
	resp.Content = content.String()
	resp.ThinkingContent = thinking.String()
	return resp
}

func normalizeFinishReason(fr genai.FinishReason) string {
	switch fr {
	case genai.FinishReasonStop:
		return FinishStop
	case genai.FinishReasonMaxTokens:
		return FinishMaxTokens
	case genai.FinishReasonSafety:
		return FinishSafety
	case genai.FinishReasonProhibitedContent:
		return FinishProhibited
	case "":
		return FinishUnknown
	default:
		return string(fr)
	}
}

// EmbedTexts embeds a batch of texts with one provider call, falling back
// to sequential calls only if the batch fails. Bulk RAG guidance depends
// on this being a single round trip.
func (c *Client) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	embedCfg := &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"}

	var result *genai.EmbedContentResponse
	err := withRetry(ctx, 3, func() error {
		resp, callErr := c.backend.EmbedContent(ctx, c.cfg.EmbeddingModel, contents, embedCfg)
		if callErr != nil {
			return callErr
		}
		result = resp
		return nil
	})
	if err == nil && result != nil && len(result.Embeddings) == len(texts) {
		out := make([][]float32, len(result.Embeddings))
		for i, emb := range result.Embeddings {
			out[i] = emb.Values
		}
		return out, nil
	}

	c.logger.Warn("batch embedding failed, falling back to sequential",
		"count", len(texts), "error", err)

	out := make([][]float32, len(texts))
	for i, text := range texts {
		single, embErr := c.embedOne(ctx, text, embedCfg)
		if embErr != nil {
			return nil, fmt.Errorf("embedding %d/%d failed: %w", i+1, len(texts), embErr)
		}
		out[i] = single
	}
	return out, nil
}

// EmbedText embeds a single text.
func (c *Client) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return c.embedOne(ctx, text, &genai.EmbedContentConfig{TaskType: "SEMANTIC_SIMILARITY"})
}

func (c *Client) embedOne(ctx context.Context, text string, embedCfg *genai.EmbedContentConfig) ([]float32, error) {
	contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}

	var values []float32
	err := withRetry(ctx, 3, func() error {
		resp, callErr := c.backend.EmbedContent(ctx, c.cfg.EmbeddingModel, contents, embedCfg)
		if callErr != nil {
			return callErr
		}
		if len(resp.Embeddings) == 0 {
			return ErrEmptyResponse
		}
		values = resp.Embeddings[0].Values
		return nil
	})
	if err != nil {
		return nil, err
	}
	return values, nil
}
