// Package visual consumes the art director's pre-baked illustration
// analysis (visual_cache.json) and turns it into per-chapter prompt
// guidance. The guidance is stylistic only; the canon-event-fidelity
// directive that ships with every injection forbids adding events or
// details the source text does not contain.
package visual

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// CanonEventFidelityDirective is part of the prompt contract, verbatim in
// every injection of visual guidance.
const CanonEventFidelityDirective = `CANON EVENT FIDELITY: The Art Director's Notes above are STYLISTIC reference only.
- You MUST NOT add events that are visible in illustrations but absent from the source text.
- You MUST NOT describe visual details the source text does not mention.
- You MUST NOT reveal anything listed under "do not reveal" until the source text itself confirms it.`

// MultimodalStrictSuffix reinforces the fidelity rule at the end of the block.
const MultimodalStrictSuffix = `Translate the text as written. The illustrations inform mood and vocabulary, never content.`

// Context is the per-illustration analysis record.
type Context struct {
	Composition         string   `json:"composition,omitempty"`
	EmotionalDelta      string   `json:"emotional_delta,omitempty"`
	KeyDetails          []string `json:"key_details,omitempty"`
	NarrativeDirectives []string `json:"narrative_directives,omitempty"`
	SpoilerPrevention   Spoilers `json:"spoiler_prevention"`
}

// Spoilers lists content that must not surface before the text does.
type Spoilers struct {
	DoNotRevealBeforeText []string `json:"do_not_reveal_before_text,omitempty"`
}

// Cache is the visual_cache.json shape: analysis keyed by illustration id.
type Cache struct {
	Illustrations map[string]Context `json:"illustrations"`
}

// LoadCache reads a visual cache. A missing file returns (nil, nil):
// volumes without a visual pass run text-only.
func LoadCache(path string) (*Cache, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read visual cache: %w", err)
	}
	var c Cache
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse visual cache: %w", err)
	}
	return &c, nil
}

// illustTagRe matches inline illustration tags in chapter source.
var illustTagRe = regexp.MustCompile(`\[ILLUSTRATION:\s*([A-Za-z0-9_-]+)\]`)

// ExtractIDs returns every illustration id referenced by the chapter, in
// order of first appearance.
func ExtractIDs(source string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range illustTagRe.FindAllStringSubmatch(source, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			out = append(out, m[1])
		}
	}
	return out
}

// Guidance is the chapter-wide visual block plus the spoiler list the
// processor checks the output against.
type Guidance struct {
	Block       string
	DoNotReveal []string
}

// BuildGuidance assembles the Art Director's Notes block for a chapter.
// Japanese names in the notes are replaced with their canonical rendering
// from the merged glossary before injection, so the notes can never leak a
// non-canon name into the prompt. Returns nil when no referenced
// illustration has analysis.
func BuildGuidance(cache *Cache, ids []string, glossary map[string]string) *Guidance {
	if cache == nil || len(ids) == 0 {
		return nil
	}

	var sb strings.Builder
	var spoilers []string
	found := 0

	for _, id := range ids {
		ctx, ok := cache.Illustrations[id]
		if !ok {
			continue
		}
		found++
		fmt.Fprintf(&sb, "[%s]\n", id)
		if ctx.Composition != "" {
			fmt.Fprintf(&sb, "Composition: %s\n", enforceCanonNames(ctx.Composition, glossary))
		}
		if ctx.EmotionalDelta != "" {
			fmt.Fprintf(&sb, "Emotional shift: %s\n", enforceCanonNames(ctx.EmotionalDelta, glossary))
		}
		for _, d := range ctx.KeyDetails {
			fmt.Fprintf(&sb, "- %s\n", enforceCanonNames(d, glossary))
		}
		for _, d := range ctx.NarrativeDirectives {
			fmt.Fprintf(&sb, "Directive: %s\n", enforceCanonNames(d, glossary))
		}
		spoilers = append(spoilers, ctx.SpoilerPrevention.DoNotRevealBeforeText...)
	}

	if found == 0 {
		return nil
	}

	block := "=== ART DIRECTOR'S NOTES ===\n" + sb.String()
	if len(spoilers) > 0 {
		block += "Do not reveal before the text does:\n"
		for _, s := range spoilers {
			block += "- " + s + "\n"
		}
	}
	block += "\n" + CanonEventFidelityDirective + "\n" + MultimodalStrictSuffix

	return &Guidance{Block: block, DoNotReveal: spoilers}
}

// enforceCanonNames replaces Japanese glossary keys appearing in visual
// text with their canonical target-language rendering. Longer keys are
// replaced first so compound names are not partially rewritten.
func enforceCanonNames(text string, glossary map[string]string) string {
	if len(glossary) == 0 {
		return text
	}
	keys := make([]string, 0, len(glossary))
	for jp := range glossary {
		if jp != "" && strings.Contains(text, jp) {
			keys = append(keys, jp)
		}
	}
	if len(keys) == 0 {
		return text
	}
	// Longest-first replacement.
	for i := 0; i < len(keys); i++ {
		for j := i + 1; j < len(keys); j++ {
			if len(keys[j]) > len(keys[i]) {
				keys[i], keys[j] = keys[j], keys[i]
			}
		}
	}
	for _, jp := range keys {
		text = strings.ReplaceAll(text, jp, glossary[jp])
	}
	return text
}

// analysisLeakRes spot model commentary about the illustrations leaking
// into translated prose.
var analysisLeakRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bI notice\b`),
	regexp.MustCompile(`(?i)\bthe illustration (shows|depicts)\b`),
	regexp.MustCompile(`(?i)\bin the (image|artwork|picture),`),
	regexp.MustCompile(`(?i)\bas (seen|shown) in the illustration\b`),
	regexp.MustCompile(`(?i)\bart director`),
}

// DetectAnalysisLeaks returns warnings for output passages that read like
// image analysis rather than translation. Warnings only; the chapter still
// completes.
func DetectAnalysisLeaks(output string) []string {
	var warnings []string
	for _, re := range analysisLeakRes {
		if loc := re.FindString(output); loc != "" {
			warnings = append(warnings, fmt.Sprintf("possible analysis leak: %q", loc))
		}
	}
	return warnings
}
