// Package detect holds the lightweight, regex-driven scanners that run over
// chapter source text before translation: kanji compound extraction for
// Sino-Vietnamese lookups, Japanese grammar-pattern spotting, translation-gap
// flags, and dialect detection. All detectors are low-volume and
// high-precision; a missed hint costs nothing, a false one pollutes the
// prompt.
package detect

import (
	"sort"
	"unicode"
)

// compound length bounds for Sino-Vietnamese lookup candidates.
const (
	minCompoundLen = 2
	maxCompoundLen = 4
)

// ExtractKanjiCompounds returns the topN most frequent kanji compounds
// (contiguous ideograph runs of length 2-4) in the text, most frequent
// first. Ties break lexicographically for determinism.
func ExtractKanjiCompounds(text string, topN int) []string {
	counts := make(map[string]int)

	var run []rune
	flush := func() {
		if len(run) >= minCompoundLen {
			// Long runs contribute their leading window; compounds longer
			// than four kanji are almost always concatenations.
			end := len(run)
			if end > maxCompoundLen {
				end = maxCompoundLen
			}
			counts[string(run[:end])]++
		}
		run = run[:0]
	}

	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			run = append(run, r)
			continue
		}
		flush()
	}
	flush()

	type freq struct {
		compound string
		count    int
	}
	ranked := make([]freq, 0, len(counts))
	for c, n := range counts {
		ranked = append(ranked, freq{c, n})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].compound < ranked[j].compound
	})

	if topN <= 0 || topN > len(ranked) {
		topN = len(ranked)
	}
	out := make([]string, topN)
	for i := 0; i < topN; i++ {
		out[i] = ranked[i].compound
	}
	return out
}
