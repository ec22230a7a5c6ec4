// Package rag implements the persistent semantic pattern stores that feed
// per-chapter translation guidance: a SQLite-backed cosine index over
// JP→target-language patterns with category, priority, and register
// metadata, a direct-lookup cache for exact hits, and a negative-anchor
// penalty scheme that suppresses look-alike false positives.
package rag

// Kind selects a pattern store variant. All behavioral differences between
// the variants are data: thresholds, category priorities, genre hints.
type Kind string

const (
	// KindEnglish holds JP→EN grammar and phrasing patterns.
	KindEnglish Kind = "english_patterns"

	// KindSinoVietnamese holds kanji-compound → Hán-Việt disambiguation.
	KindSinoVietnamese Kind = "sino_vietnamese"

	// KindVietnameseGrammar holds JP→VI grammar patterns.
	KindVietnameseGrammar Kind = "vietnamese_grammar"

	// KindAIisms holds bad-prose exemplars whose matches are warnings.
	KindAIisms Kind = "ai_isms"
)

// Negative-anchor constants, shared by every kind.
const (
	// NegThreshold is the negative similarity above which a penalty applies.
	NegThreshold = 0.72

	// NegPenalty is the maximum similarity deduction.
	NegPenalty = 0.15
)

// LogThreshold is the floor below which matches are ignored entirely.
// Between LogThreshold and the kind's inject threshold, matches are logged
// for audit but never injected: a low-confidence match is worse than none.
const LogThreshold = 0.65

// genreMismatchFactor scales similarity when a pattern's genre context
// disagrees with the volume's genre.
const genreMismatchFactor = 0.85

// KindConfig is the per-kind tuning block.
type KindConfig struct {
	InjectThreshold    float64
	CategoryPriorities map[string]int
	DefaultPriority    int
}

// configs holds the tuning for each store kind.
var configs = map[Kind]KindConfig{
	KindEnglish: {
		InjectThreshold: 0.78,
		CategoryPriorities: map[string]int{
			"causative_passive": 9,
			"keigo":             8,
			"aspect":            7,
			"sentence_final":    6,
			"idiom":             6,
			"onomatopoeia":      5,
		},
		DefaultPriority: 5,
	},
	KindSinoVietnamese: {
		InjectThreshold: 0.85,
		CategoryPriorities: map[string]int{
			"homograph":     10,
			"false_friend":  9,
			"proper_noun":   8,
			"buddhist_term": 6,
			"compound":      5,
		},
		DefaultPriority: 4,
	},
	KindVietnameseGrammar: {
		InjectThreshold: 0.70,
		CategoryPriorities: map[string]int{
			"classifier":     8,
			"pronoun_system": 8,
			"aspect":         6,
			"topic_marker":   5,
		},
		DefaultPriority: 5,
	},
	KindAIisms: {
		InjectThreshold: 0.80,
		CategoryPriorities: map[string]int{
			"purple_prose":  7,
			"hedging":       6,
			"list_cadence":  6,
			"stock_phrases": 5,
		},
		DefaultPriority: 5,
	},
}

// Config returns the tuning for a kind. Unknown kinds get English tuning.
func (k Kind) Config() KindConfig {
	if cfg, ok := configs[k]; ok {
		return cfg
	}
	return configs[KindEnglish]
}

// Priority derives a pattern's priority from its category.
func (k Kind) Priority(category string) int {
	cfg := k.Config()
	if p, ok := cfg.CategoryPriorities[category]; ok {
		return p
	}
	return cfg.DefaultPriority
}
