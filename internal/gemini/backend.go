package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// genaiBackend adapts *genai.Client to the Backend interface.
type genaiBackend struct {
	client *genai.Client
}

// NewBackend creates the production Gemini backend.
func NewBackend(ctx context.Context, apiKey string) (Backend, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &genaiBackend{client: client}, nil
}

func (b *genaiBackend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return b.client.Models.GenerateContent(ctx, model, contents, cfg)
}

func (b *genaiBackend) CreateCachedContent(ctx context.Context, model string, cfg *genai.CreateCachedContentConfig) (*genai.CachedContent, error) {
	return b.client.Caches.Create(ctx, model, cfg)
}

func (b *genaiBackend) DeleteCachedContent(ctx context.Context, name string) error {
	_, err := b.client.Caches.Delete(ctx, name, &genai.DeleteCachedContentConfig{})
	return err
}

func (b *genaiBackend) EmbedContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	return b.client.Models.EmbedContent(ctx, model, contents, cfg)
}
