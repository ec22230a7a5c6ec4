// Package testutil provides the stub LLM backend and fixture builders the
// package tests share.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"google.golang.org/genai"
)

// StubBackend is a scripted gemini.Backend. Responses are served in order;
// when the script runs out, the last response repeats.
type StubBackend struct {
	mu sync.Mutex

	// Responses are consumed by GenerateContent calls.
	Responses []StubResponse

	// GenerateErr, when set, fails every GenerateContent call.
	GenerateErr error

	// CreateCacheErr fails CreateCachedContent.
	CreateCacheErr error

	// EmbedFn overrides embedding output. Default: unit vector per text.
	EmbedFn func(texts int) [][]float32

	// Call log.
	GenerateCalls []GenerateCall
	CachesCreated []string
	CachesDeleted []string
	EmbedBatches  [][]string

	calls int
}

// StubResponse scripts one GenerateContent result.
type StubResponse struct {
	Text         string
	Thinking     string
	FinishReason genai.FinishReason
	BlockReason  string
	InputTokens  int
	OutputTokens int
	CachedTokens int
	Err          error
}

// GenerateCall records the arguments of one GenerateContent call.
type GenerateCall struct {
	Model             string
	Prompt            string
	SystemInstruction string
	CachedContent     string
}

func (s *StubBackend) GenerateContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	call := GenerateCall{Model: model}
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		call.Prompt = contents[0].Parts[0].Text
	}
	if cfg != nil {
		call.CachedContent = cfg.CachedContent
		if cfg.SystemInstruction != nil && len(cfg.SystemInstruction.Parts) > 0 {
			call.SystemInstruction = cfg.SystemInstruction.Parts[0].Text
		}
	}
	s.GenerateCalls = append(s.GenerateCalls, call)

	if s.GenerateErr != nil {
		return nil, s.GenerateErr
	}

	idx := s.calls
	if idx >= len(s.Responses) {
		idx = len(s.Responses) - 1
	}
	s.calls++
	if idx < 0 {
		return &genai.GenerateContentResponse{}, nil
	}

	r := s.Responses[idx]
	if r.Err != nil {
		return nil, r.Err
	}
	return r.build(), nil
}

func (r StubResponse) build() *genai.GenerateContentResponse {
	resp := &genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:        int32(r.InputTokens),
			CandidatesTokenCount:    int32(r.OutputTokens),
			CachedContentTokenCount: int32(r.CachedTokens),
		},
	}
	if r.BlockReason != "" {
		resp.PromptFeedback = &genai.GenerateContentResponsePromptFeedback{
			BlockReason: genai.BlockedReason(r.BlockReason),
		}
		return resp
	}

	finish := r.FinishReason
	if finish == "" {
		finish = genai.FinishReasonStop
	}
	var parts []*genai.Part
	if r.Thinking != "" {
		parts = append(parts, &genai.Part{Text: r.Thinking, Thought: true})
	}
	if r.Text != "" {
		parts = append(parts, &genai.Part{Text: r.Text})
	}
	resp.Candidates = []*genai.Candidate{{
		Content:      &genai.Content{Parts: parts},
		FinishReason: finish,
	}}
	return resp
}

func (s *StubBackend) CreateCachedContent(ctx context.Context, model string, cfg *genai.CreateCachedContentConfig) (*genai.CachedContent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateCacheErr != nil {
		return nil, s.CreateCacheErr
	}
	name := fmt.Sprintf("cachedContents/stub-%d", len(s.CachesCreated)+1)
	s.CachesCreated = append(s.CachesCreated, name)
	return &genai.CachedContent{Name: name, Model: model}, nil
}

func (s *StubBackend) DeleteCachedContent(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CachesDeleted = append(s.CachesDeleted, name)
	return nil
}

func (s *StubBackend) EmbedContent(ctx context.Context, model string, contents []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	texts := make([]string, len(contents))
	for i, c := range contents {
		if len(c.Parts) > 0 {
			texts[i] = c.Parts[0].Text
		}
	}
	s.EmbedBatches = append(s.EmbedBatches, texts)

	var vectors [][]float32
	if s.EmbedFn != nil {
		vectors = s.EmbedFn(len(contents))
	} else {
		for i := range contents {
			vectors = append(vectors, UnitVector(768, i))
		}
	}

	resp := &genai.EmbedContentResponse{}
	for _, v := range vectors {
		resp.Embeddings = append(resp.Embeddings, &genai.ContentEmbedding{Values: v})
	}
	return resp, nil
}

// UnitVector returns a dim-length vector with a single 1.0 at position
// idx modulo dim. Distinct indexes are orthogonal; equal indexes have
// cosine similarity 1.
func UnitVector(dim, idx int) []float32 {
	v := make([]float32, dim)
	v[idx%dim] = 1
	return v
}
