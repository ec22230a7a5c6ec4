// Package gemini wraps the Google Gemini API behind a narrow, rate-limited,
// retry-aware client. The client owns at most one provider-side cached
// content resource at a time and knows which model it was created for.
package gemini

import (
	"context"
	"errors"
	"time"

	"google.golang.org/genai"
)

// Sentinel errors for the gemini package.
var (
	// ErrSafetyBlocked is returned in Response.FinishReason, never as an
	// error: a safety block is a signal, not a failure. ErrEmptyResponse
	// covers the case where the model returned nothing at all.
	ErrEmptyResponse = errors.New("empty response from model")

	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("no Gemini API key configured")
)

// Finish reasons surfaced to callers. Safety-adjacent reasons make the
// orchestrator switch to the fallback model instead of retrying.
const (
	FinishStop       = "STOP"
	FinishMaxTokens  = "MAX_TOKENS"
	FinishSafety     = "SAFETY"
	FinishProhibited = "PROHIBITED_CONTENT"
	FinishBlocked    = "BLOCKED"
	FinishUnknown    = "UNKNOWN"
)

// Request describes one generation call.
type Request struct {
	Prompt            string
	SystemInstruction string
	Temperature       float64
	MaxOutputTokens   int

	// Model overrides the client default when set.
	Model string

	// CachedContent is an external cache name. When set, SystemInstruction
	// and Tools are ignored: they are baked into the cache at creation.
	CachedContent string

	// ForceNewSession bypasses the client's internal cache.
	ForceNewSession bool

	// Tools are optional provider tool declarations.
	Tools []*genai.Tool
}

// Response is the result of one generation call.
type Response struct {
	Content         string
	ThinkingContent string
	InputTokens     int
	OutputTokens    int
	CachedTokens    int
	FinishReason    string
	ModelUsed       string
	Attempts        int
}

// SafetyBlocked reports whether the model refused with a safety reason.
func (r *Response) SafetyBlocked() bool {
	switch r.FinishReason {
	case FinishSafety, FinishProhibited, FinishBlocked:
		return r.Content == ""
	}
	return false
}

// Backend is the minimal provider surface the client depends on.
// The production implementation wraps *genai.Client; tests substitute a stub.
type Backend interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	CreateCachedContent(ctx context.Context, model string, cfg *genai.CreateCachedContentConfig) (*genai.CachedContent, error)
	DeleteCachedContent(ctx context.Context, name string) error
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Config configures a Client.
type Config struct {
	APIKey            string
	Model             string
	EmbeddingModel    string
	RequestsPerMinute int
	MaxRetries        int
	Timeout           time.Duration
	Temperature       float64
	MaxOutputTokens   int
	IncludeThoughts   bool
}

// DefaultConfig returns sensible defaults for a Client.
func DefaultConfig(apiKey string) Config {
	return Config{
		APIKey:            apiKey,
		Model:             "gemini-2.5-pro",
		EmbeddingModel:    "gemini-embedding-001",
		RequestsPerMinute: 10,
		MaxRetries:        8,
		Timeout:           120 * time.Second,
		Temperature:       0.7,
		MaxOutputTokens:   65536,
	}
}
