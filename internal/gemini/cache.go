package gemini

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/text/unicode/norm"
	"google.golang.org/genai"
)

// maxDisplayNameBytes is the provider limit for cache display names.
const maxDisplayNameBytes = 128

// cacheState tracks the client's internal cached-content resource.
type cacheState struct {
	name      string
	model     string
	createdAt time.Time
	ttl       time.Duration
}

// valid reports whether the cache can serve a request for the given model.
// Model mismatch always invalidates: cached contents are model-specific.
func (s *cacheState) valid(model string) bool {
	if s == nil || s.name == "" {
		return false
	}
	if s.model != model {
		return false
	}
	return time.Since(s.createdAt) < s.ttl
}

// internalCacheFor returns the internal cache name when it is valid for the
// given model, or "".
func (c *Client) internalCacheFor(model string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache.valid(model) {
		return c.cache.name
	}
	return ""
}

// CacheValid reports whether the internal cache can serve the given model.
func (c *Client) CacheValid(model string) bool {
	return c.internalCacheFor(model) != ""
}

// CacheName returns the internal cache name, or "".
func (c *Client) CacheName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cache == nil {
		return ""
	}
	return c.cache.name
}

// CreateCache creates a provider-side cached content resource and adopts it
// as the internal cache. contents become the cached conversation prefix;
// the system instruction is baked in.
func (c *Client) CreateCache(ctx context.Context, model, systemInstruction string, contents []string, ttl time.Duration, displayName string) (string, error) {
	if model == "" {
		model = c.cfg.Model
	}
	if ttl <= 0 {
		ttl = time.Hour
	}

	if err := c.pacer.Wait(ctx); err != nil {
		return "", err
	}

	cfg := &genai.CreateCachedContentConfig{
		TTL:         ttl,
		DisplayName: SanitizeDisplayName(displayName),
	}
	if systemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemInstruction, genai.RoleUser)
	}
	for _, text := range contents {
		cfg.Contents = append(cfg.Contents, genai.NewContentFromText(text, genai.RoleUser))
	}

	var created *genai.CachedContent
	err := withRetry(ctx, 3, func() error {
		cc, callErr := c.backend.CreateCachedContent(ctx, model, cfg)
		if callErr != nil {
			return callErr
		}
		created = cc
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("cache creation failed: %w", err)
	}

	c.mu.Lock()
	c.cache = &cacheState{
		name:      created.Name,
		model:     model,
		createdAt: time.Now(),
		ttl:       ttl,
	}
	c.mu.Unlock()

	c.logger.Info("cached content created",
		"name", created.Name, "model", model, "ttl", ttl)
	return created.Name, nil
}

// WarmCache creates a prompt-only cache holding just the system
// instruction. Used when the full-volume cache cannot be created.
func (c *Client) WarmCache(ctx context.Context, model, systemInstruction string, ttl time.Duration, displayName string) (string, error) {
	return c.CreateCache(ctx, model, systemInstruction, nil, ttl, displayName)
}

// ClearCache forgets the internal cache reference without deleting the
// provider-side resource. Used before a fallback-model request so the
// request cannot ride a cache made for a different model.
func (c *Client) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = nil
}

// DeleteCache deletes a provider-side cache by name. If it is the internal
// cache, the internal reference is cleared too.
func (c *Client) DeleteCache(ctx context.Context, name string) error {
	if name == "" {
		return nil
	}
	err := c.backend.DeleteCachedContent(ctx, name)

	c.mu.Lock()
	if c.cache != nil && c.cache.name == name {
		c.cache = nil
	}
	c.mu.Unlock()

	if err != nil {
		return fmt.Errorf("cache deletion failed: %w", err)
	}
	c.logger.Info("cached content deleted", "name", name)
	return nil
}

// Close deletes the internal cache if one is still live.
func (c *Client) Close(ctx context.Context) error {
	name := c.CacheName()
	if name == "" {
		return nil
	}
	return c.DeleteCache(ctx, name)
}

// SanitizeDisplayName produces an ASCII-safe display name of at most 128
// bytes. Non-ASCII input (Japanese volume titles) is NFKC-normalized,
// transliterated to its ASCII subset, and suffixed with a deterministic
// 8-char hash so distinct titles stay distinct.
func SanitizeDisplayName(name string) string {
	if name == "" {
		return "cache"
	}

	hash := sha256.Sum256([]byte(name))
	suffix := hex.EncodeToString(hash[:])[:8]

	normalized := norm.NFKC.String(name)
	ascii := make([]byte, 0, len(normalized))
	hadNonASCII := false
	for _, r := range normalized {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			ascii = append(ascii, byte(r))
		case r == '_' || r == '-' || r == '.':
			ascii = append(ascii, byte(r))
		case r == ' ':
			ascii = append(ascii, '_')
		default:
			hadNonASCII = true
		}
	}

	out := string(ascii)
	if out == "" {
		out = "cache"
	}
	if hadNonASCII {
		out = out + "_" + suffix
	}

	if len(out) > maxDisplayNameBytes {
		keep := maxDisplayNameBytes - len(suffix) - 1
		out = out[:keep] + "_" + suffix
	}
	return out
}
