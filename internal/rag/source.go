package rag

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/mozillazg/go-pinyin"
)

// SourceFile is the JSON RAG source a store is built from.
type SourceFile struct {
	Patterns        []SourcePattern     `json:"patterns"`
	NegativeVectors map[string][]string `json:"negative_vectors,omitempty"` // category -> examples
}

// SourcePattern is one pattern declaration in the source file.
type SourcePattern struct {
	PatternID    string          `json:"pattern_id"`
	Category     string          `json:"category"`
	Register     string          `json:"register,omitempty"` // formal|casual|literary|neutral
	Structure    string          `json:"structure,omitempty"`
	Indicators   []string        `json:"indicators,omitempty"`
	ZhIndicators []string        `json:"zh_indicators,omitempty"`
	GenreContext string          `json:"genre_context,omitempty"`
	Examples     []SourceExample `json:"examples"`
}

// SourceExample pairs one source string with its natural rendering.
type SourceExample struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// LoadSource reads and parses a RAG source file.
func LoadSource(path string) (*SourceFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read RAG source: %w", err)
	}
	var sf SourceFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("failed to parse RAG source %s: %w", path, err)
	}
	return &sf, nil
}

// pinyinArgs is shared converter state for domain-hint prefixes.
var pinyinArgs = pinyin.NewArgs()

// shortHanziLimit bounds the "short string" case that needs a romanization
// hint: beyond four characters the embedding model separates strings fine
// on its own.
const shortHanziLimit = 4

// DomainHint prefixes a short all-ideograph string with its pinyin reading
// so trivially-similar compounds produce distinguishable vectors. Longer
// or mixed-script strings pass through unchanged.
func DomainHint(s string) string {
	runes := []rune(s)
	if len(runes) == 0 || len(runes) > shortHanziLimit {
		return s
	}
	for _, r := range runes {
		if !unicode.Is(unicode.Han, r) {
			return s
		}
	}
	syllables := pinyin.LazyPinyin(s, pinyinArgs)
	if len(syllables) == 0 {
		return s
	}
	return strings.Join(syllables, " ") + " | " + s
}

// IndexText builds the structured text a (pattern, example) unit is
// embedded under.
func IndexText(p SourcePattern, ex SourceExample) string {
	var sb strings.Builder
	if p.Structure != "" {
		sb.WriteString("Structure: " + p.Structure + " | ")
	}
	if len(p.Indicators) > 0 {
		sb.WriteString("Indicators: " + strings.Join(p.Indicators, ", ") + " | ")
	}
	sb.WriteString("Example: " + DomainHint(ex.Source))
	if ex.Target != "" {
		sb.WriteString(" | Natural: " + ex.Target)
	}
	return sb.String()
}
