package gemini_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"honyaku/internal/gemini"
	"honyaku/internal/testutil"
)

func testConfig() gemini.Config {
	cfg := gemini.DefaultConfig("")
	cfg.RequestsPerMinute = 6000 // 10ms spacing keeps tests fast
	cfg.MaxRetries = 1
	return cfg
}

func TestGenerateReturnsContent(t *testing.T) {
	backend := &testutil.StubBackend{
		Responses: []testutil.StubResponse{{
			Text:         "translated text",
			Thinking:     "reasoning about the chapter",
			InputTokens:  100,
			OutputTokens: 50,
		}},
	}
	client := gemini.NewClient(backend, testConfig(), nil)

	resp, err := client.Generate(context.Background(), &gemini.Request{Prompt: "translate this"})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "translated text" {
		t.Errorf("Content = %q", resp.Content)
	}
	if resp.ThinkingContent != "reasoning about the chapter" {
		t.Errorf("ThinkingContent = %q", resp.ThinkingContent)
	}
	if resp.InputTokens != 100 || resp.OutputTokens != 50 {
		t.Errorf("tokens = %d/%d", resp.InputTokens, resp.OutputTokens)
	}
	if resp.FinishReason != gemini.FinishStop {
		t.Errorf("FinishReason = %q", resp.FinishReason)
	}
}

func TestGenerateSafetyBlockIsNotAnError(t *testing.T) {
	backend := &testutil.StubBackend{
		Responses: []testutil.StubResponse{{FinishReason: "SAFETY"}},
	}
	client := gemini.NewClient(backend, testConfig(), nil)

	resp, err := client.Generate(context.Background(), &gemini.Request{Prompt: "p"})
	if err != nil {
		t.Fatalf("safety block surfaced as error: %v", err)
	}
	if !resp.SafetyBlocked() {
		t.Errorf("SafetyBlocked() = false, FinishReason = %q", resp.FinishReason)
	}
}

func TestGenerateEmptyResponse(t *testing.T) {
	backend := &testutil.StubBackend{
		Responses: []testutil.StubResponse{{Text: ""}},
	}
	client := gemini.NewClient(backend, testConfig(), nil)

	_, err := client.Generate(context.Background(), &gemini.Request{Prompt: "p"})
	if !errors.Is(err, gemini.ErrEmptyResponse) {
		t.Errorf("got %v, want ErrEmptyResponse", err)
	}
}

func TestGenerateCacheDropsSystemInstruction(t *testing.T) {
	backend := &testutil.StubBackend{
		Responses: []testutil.StubResponse{{Text: "ok"}},
	}
	client := gemini.NewClient(backend, testConfig(), nil)

	_, err := client.Generate(context.Background(), &gemini.Request{
		Prompt:            "p",
		SystemInstruction: "you are a translator",
		CachedContent:     "cachedContents/external-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	call := backend.GenerateCalls[0]
	if call.CachedContent != "cachedContents/external-1" {
		t.Errorf("CachedContent = %q", call.CachedContent)
	}
	if call.SystemInstruction != "" {
		t.Error("system instruction sent alongside cached content")
	}
}

func TestInternalCacheLifecycle(t *testing.T) {
	backend := &testutil.StubBackend{
		Responses: []testutil.StubResponse{{Text: "ok"}},
	}
	cfg := testConfig()
	cfg.Model = "model-a"
	client := gemini.NewClient(backend, cfg, nil)
	ctx := context.Background()

	name, err := client.CreateCache(ctx, "", "system", []string{"chapter one"}, time.Hour, "vol_full")
	if err != nil {
		t.Fatal(err)
	}
	if !client.CacheValid("model-a") {
		t.Error("cache invalid for its own model")
	}
	if client.CacheValid("model-b") {
		t.Error("cache valid for a different model")
	}

	// Requests for the default model ride the internal cache.
	if _, err := client.Generate(ctx, &gemini.Request{Prompt: "p"}); err != nil {
		t.Fatal(err)
	}
	if got := backend.GenerateCalls[0].CachedContent; got != name {
		t.Errorf("request rode cache %q, want %q", got, name)
	}

	// ClearCache forgets without deleting provider-side.
	client.ClearCache()
	if client.CacheValid("model-a") {
		t.Error("cache still valid after ClearCache")
	}
	if len(backend.CachesDeleted) != 0 {
		t.Error("ClearCache deleted the provider resource")
	}
}

func TestCloseDeletesInternalCache(t *testing.T) {
	backend := &testutil.StubBackend{
		Responses: []testutil.StubResponse{{Text: "ok"}},
	}
	client := gemini.NewClient(backend, testConfig(), nil)
	ctx := context.Background()

	name, err := client.WarmCache(ctx, "", "system", time.Hour, "vol_prompt")
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Close(ctx); err != nil {
		t.Fatal(err)
	}
	if len(backend.CachesDeleted) != 1 || backend.CachesDeleted[0] != name {
		t.Errorf("CachesDeleted = %v, want [%s]", backend.CachesDeleted, name)
	}
}

func TestEmbedTextsBatch(t *testing.T) {
	backend := &testutil.StubBackend{}
	client := gemini.NewClient(backend, testConfig(), nil)

	vecs, err := client.EmbedTexts(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatal(err)
	}
	if len(vecs) != 3 {
		t.Fatalf("got %d vectors", len(vecs))
	}
	if len(backend.EmbedBatches) != 1 {
		t.Errorf("batch embed made %d calls, want 1", len(backend.EmbedBatches))
	}
}
