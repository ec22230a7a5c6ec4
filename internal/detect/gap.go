package detect

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Gap kinds.
const (
	GapEmotionAction = "emotion_action"
	GapRubyJoke      = "ruby_joke"
	GapGhostRuby     = "ghost_ruby"
	GapSarcasm       = "sarcasm"
)

// GapFlag is one translation-gap hint injected into the user prompt.
type GapFlag struct {
	Kind    string
	Excerpt string
	Hint    string
}

var (
	// Emotion nouns adjacent to physical action verbs; the combination is
	// where literal translation flattens the line.
	emotionActionRe = regexp.MustCompile(`(怒り|悲しみ|喜び|恐怖|羞恥|焦り|安堵)[ぁ-ん]{0,4}(握り|震え|俯い|見つめ|逸らし|噛み)`)

	// Aozora-style ruby: base《reading》, optionally pipe-delimited.
	rubyRe = regexp.MustCompile(`[|｜]?([^《》|｜\n]{1,12})《([^《》\n]{1,20})》`)

	katakanaRe = regexp.MustCompile(`^[ァ-ヶー・]+$`)

	// Sarcasm: flat acknowledgements followed by a trailing ellipsis or
	// an echo question.
	sarcasmRe = regexp.MustCompile(`「(へえ|ふうん|はいはい|あっそ|そうですか)[。…～]*」`)
)

// FindGaps scans chapter source for spots where a literal rendering loses
// the joke or the subtext. Output is deliberately small: a handful of
// high-precision flags, never a running commentary.
func FindGaps(source string) []GapFlag {
	var flags []GapFlag

	for _, m := range emotionActionRe.FindAllString(source, 5) {
		flags = append(flags, GapFlag{
			Kind:    GapEmotionAction,
			Excerpt: m,
			Hint:    "emotion carried by gesture; render the feeling through the action, not alongside it",
		})
	}

	for _, m := range rubyRe.FindAllStringSubmatch(source, 10) {
		base, reading := m[1], m[2]
		switch {
		case katakanaRe.MatchString(reading) && !katakanaRe.MatchString(base):
			// Kira-kira ruby: katakana gloss over kanji. Usually a pun or a
			// chuuni flourish; needs a TL-note footnote, not silent dropping.
			flags = append(flags, GapFlag{
				Kind:    GapRubyJoke,
				Excerpt: fmt.Sprintf("%s《%s》", base, reading),
				Hint:    "kira-kira ruby: keep the surface reading, footnote the written form",
			})
		case looksLikeName(base):
			flags = append(flags, GapFlag{
				Kind:    GapGhostRuby,
				Excerpt: fmt.Sprintf("%s《%s》", base, reading),
				Hint:    "character-name ruby: romanize the reading, no footnote",
			})
		}
	}

	for _, m := range sarcasmRe.FindAllString(source, 5) {
		flags = append(flags, GapFlag{
			Kind:    GapSarcasm,
			Excerpt: m,
			Hint:    "flat acknowledgement is sarcastic; keep it dry, do not brighten the register",
		})
	}

	return flags
}

// looksLikeName is a cheap heuristic: short all-kanji base with no okurigana.
func looksLikeName(base string) bool {
	runes := []rune(base)
	if len(runes) < 2 || len(runes) > 4 {
		return false
	}
	for _, r := range runes {
		if !unicode.Is(unicode.Han, r) {
			return false
		}
	}
	return true
}

// FormatGaps renders gap flags as a prompt guidance block, or "".
func FormatGaps(flags []GapFlag) string {
	if len(flags) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("=== TRANSLATION GAP NOTES ===\n")
	for _, f := range flags {
		fmt.Fprintf(&sb, "- [%s] %s: %s\n", f.Kind, f.Excerpt, f.Hint)
	}
	return sb.String()
}
