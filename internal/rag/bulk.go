package rag

import (
	"context"
	"fmt"
	"log/slog"
)

// BulkGuidance is the result of a bulk term lookup.
type BulkGuidance struct {
	HighConfidence   []Match     `json:"high_confidence"`
	MediumConfidence []Match     `json:"medium_confidence"`
	Stats            LookupStats `json:"lookup_stats"`
}

// LookupStats counts how each term resolved.
type LookupStats struct {
	Terms      int `json:"terms"`
	DirectHits int `json:"direct_hits"`
	VectorHits int `json:"vector_hits"`
	DictHits   int `json:"dict_hits"`
	Misses     int `json:"misses"`
}

// Dictionary is an optional external fallback consulted after the vector
// search misses.
type Dictionary interface {
	Lookup(ctx context.Context, term string) (target string, ok bool)
}

// GetBulkGuidance resolves a batch of terms with one embedding round trip.
// Per-term resolution order: direct-lookup hit, batch-embedded vector
// search, optional external dictionary, miss. High confidence means the
// kind's inject threshold; minConfidence (when positive) raises the
// medium-band floor above the default log threshold.
func (s *Store) GetBulkGuidance(ctx context.Context, terms []string, genre, context_ string, minConfidence float64, dict Dictionary, logger *slog.Logger) (*BulkGuidance, error) {
	if logger == nil {
		logger = s.logger
	}
	out := &BulkGuidance{Stats: LookupStats{Terms: len(terms)}}
	if len(terms) == 0 {
		return out, nil
	}
	if minConfidence <= 0 {
		minConfidence = LogThreshold
	}

	// Direct lookups first; only the remainder costs an embedding call.
	var pending []string
	for _, term := range terms {
		m, err := s.lookupExact(ctx, term)
		if err != nil {
			return nil, err
		}
		if m != nil {
			out.Stats.DirectHits++
			out.HighConfidence = append(out.HighConfidence, *m)
			continue
		}
		pending = append(pending, term)
	}

	if len(pending) > 0 && s.embedder != nil {
		queries := make([]string, len(pending))
		for i, term := range pending {
			queries[i] = buildQuery(term, context_, "")
		}
		vecs, err := s.embedder.EmbedTexts(ctx, queries)
		if err != nil {
			return nil, fmt.Errorf("bulk embedding failed: %w", err)
		}

		filters := Filters{Genre: genre}
		var unresolved []string
		for i, term := range pending {
			matches, err := s.searchByVector(ctx, vecs[i], filters, 1)
			if err != nil {
				return nil, err
			}
			if len(matches) == 0 {
				unresolved = append(unresolved, term)
				continue
			}
			best := matches[0]
			switch {
			case s.Injectable(&best):
				out.Stats.VectorHits++
				out.HighConfidence = append(out.HighConfidence, best)
			case best.Similarity >= minConfidence:
				out.Stats.VectorHits++
				out.MediumConfidence = append(out.MediumConfidence, best)
				logger.Debug("pattern match below inject threshold, logged only",
					"kind", s.kind, "term", term, "similarity", best.Similarity)
			default:
				unresolved = append(unresolved, term)
			}
		}
		pending = unresolved
	}

	for _, term := range pending {
		if dict != nil {
			if target, ok := dict.Lookup(ctx, term); ok {
				out.Stats.DictHits++
				out.MediumConfidence = append(out.MediumConfidence, Match{
					PatternID:  "dict:" + term,
					Similarity: LogThreshold,
					Source:     term,
					Target:     target,
					Category:   "dictionary",
				})
				continue
			}
		}
		out.Stats.Misses++
	}

	return out, nil
}

// FormatGuidance renders high-confidence matches as a prompt block with the
// given heading, or "" when there is nothing injectable.
func FormatGuidance(heading string, matches []Match) string {
	if len(matches) == 0 {
		return ""
	}
	block := "=== " + heading + " ===\n"
	for _, m := range matches {
		block += fmt.Sprintf("- %s → %s", m.Source, m.Target)
		if m.Category != "" {
			block += fmt.Sprintf(" [%s]", m.Category)
		}
		block += "\n"
	}
	return block
}
