package rag

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Filters narrows a search.
type Filters struct {
	Category    string
	Register    string
	MinPriority int
	Genre       string
	SinoOnly    bool // restrict to patterns carrying zh indicators
}

// Match is one search result after re-scoring.
type Match struct {
	PatternID  string            `json:"pattern_id"`
	Similarity float64           `json:"similarity"`
	Document   string            `json:"document"`
	Category   string            `json:"category"`
	Priority   int               `json:"priority"`
	Register   string            `json:"register"`
	Source     string            `json:"source"`
	Target     string            `json:"target"`
	Genre      string            `json:"genre"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

// Injectable reports whether a match clears the kind's inject threshold.
func (s *Store) Injectable(m *Match) bool {
	return m.Similarity >= s.cfg.InjectThreshold
}

// Loggable reports whether a match lands in the log-only band.
func (s *Store) Loggable(m *Match) bool {
	return m.Similarity >= LogThreshold && m.Similarity < s.cfg.InjectThreshold
}

// SearchWithContext embeds the query once and returns re-scored matches,
// best first. The current term is duplicated around the context so it
// dominates the embedding.
func (s *Store) SearchWithContext(ctx context.Context, current, prev, next string, filters Filters, topK int) ([]Match, error) {
	if s.embedder == nil {
		return nil, ErrNoEmbedder
	}
	query := buildQuery(current, prev, next)
	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	return s.searchByVector(ctx, vecs[0], filters, topK)
}

// buildQuery weights the current term by duplication: current + context + current.
func buildQuery(current, prev, next string) string {
	parts := []string{DomainHint(current)}
	if prev != "" {
		parts = append(parts, prev)
	}
	if next != "" {
		parts = append(parts, next)
	}
	parts = append(parts, DomainHint(current))
	return strings.Join(parts, " ")
}

// searchByVector runs the KNN plus the kind's re-scoring pipeline:
// filters, genre factor, then the negative-anchor penalty.
func (s *Store) searchByVector(ctx context.Context, queryVec []float32, filters Filters, topK int) ([]Match, error) {
	if topK <= 0 {
		topK = 5
	}

	// Over-fetch before filtering and penalties trim the list.
	raw, err := s.knn(ctx, queryVec, topK*4)
	if err != nil {
		return nil, err
	}

	negatives, err := s.loadNegatives(ctx)
	if err != nil {
		return nil, err
	}

	var out []Match
	for _, m := range raw {
		if filters.Category != "" && m.Category != filters.Category {
			continue
		}
		if filters.Register != "" && m.Register != "neutral" && m.Register != filters.Register {
			continue
		}
		if filters.MinPriority > 0 && m.Priority < filters.MinPriority {
			continue
		}
		if filters.SinoOnly && len(m.Metadata["zh_indicators"]) <= 2 {
			continue
		}
		if filters.Genre != "" && m.Genre != "" && m.Genre != filters.Genre {
			m.Similarity *= genreMismatchFactor
		}

		m.Similarity = applyNegativePenalty(m.Similarity, queryVec, negatives[m.Category])
		if m.Similarity < LogThreshold {
			continue
		}
		out = append(out, m)
	}

	// Order by effective similarity, best first.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Similarity > out[i].Similarity {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > topK {
		out = out[:topK]
	}
	return out, nil
}

// applyNegativePenalty subtracts a proportional penalty when the query sits
// close to a negative anchor of the match's category:
//
//	neg ≥ T:  penalty = ((neg − T) / (1 − T)) × P
//
// Raising the negative similarity can only lower the effective similarity.
func applyNegativePenalty(sim float64, queryVec []float32, negatives [][]float32) float64 {
	if len(negatives) == 0 {
		return sim
	}
	var maxNeg float64
	for _, nv := range negatives {
		if c := cosine(queryVec, nv); c > maxNeg {
			maxNeg = c
		}
	}
	if maxNeg < NegThreshold {
		return sim
	}
	penalty := ((maxNeg - NegThreshold) / (1 - NegThreshold)) * NegPenalty
	sim -= penalty
	if sim < 0 {
		return 0
	}
	return sim
}

// loadNegatives lazily loads and caches per-category negative embeddings.
func (s *Store) loadNegatives(ctx context.Context) (map[string][][]float32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.negatives != nil {
		return s.negatives, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT category, embedding FROM negatives")
	if err != nil {
		return nil, fmt.Errorf("failed to load negative anchors: %w", err)
	}
	defer rows.Close()

	out := make(map[string][][]float32)
	for rows.Next() {
		var category string
		var blob []byte
		if err := rows.Scan(&category, &blob); err != nil {
			return nil, fmt.Errorf("failed to scan negative anchor: %w", err)
		}
		out[category] = append(out[category], decodeEmbedding(blob))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	s.negatives = out
	return out, nil
}

// knn returns the closest limit patterns by cosine similarity, trying the
// sqlite-vec virtual table first and falling back to a full scan.
func (s *Store) knn(ctx context.Context, queryVec []float32, limit int) ([]Match, error) {
	if s.vecTable {
		matches, err := s.knnVec(ctx, queryVec, limit)
		if err == nil {
			return matches, nil
		}
		s.logger.Debug("vec0 query failed, falling back to scan", "error", err)
	}
	return s.knnScan(ctx, queryVec, limit)
}

func (s *Store) knnVec(ctx context.Context, queryVec []float32, limit int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.pattern_id, p.category, p.priority, p.register, p.source, p.target, p.genre, p.document, p.zh_indicators, v.distance
		FROM patterns_vec v
		JOIN patterns p ON p.id = v.pattern_row
		WHERE v.embedding MATCH ? AND k = ?
		ORDER BY v.distance`,
		encodeEmbedding(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var zh string
		var distance float64
		if err := rows.Scan(&m.PatternID, &m.Category, &m.Priority, &m.Register,
			&m.Source, &m.Target, &m.Genre, &m.Document, &zh, &distance); err != nil {
			return nil, err
		}
		// vec0 cosine distance = 1 − cosine similarity.
		m.Similarity = 1 - distance
		m.Metadata = map[string]string{"zh_indicators": zh}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) knnScan(ctx context.Context, queryVec []float32, limit int) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT pattern_id, category, priority, register, source, target, genre, document, zh_indicators, embedding FROM patterns")
	if err != nil {
		return nil, fmt.Errorf("failed to scan patterns: %w", err)
	}
	defer rows.Close()

	var out []Match
	for rows.Next() {
		var m Match
		var zh string
		var blob []byte
		if err := rows.Scan(&m.PatternID, &m.Category, &m.Priority, &m.Register,
			&m.Source, &m.Target, &m.Genre, &m.Document, &zh, &blob); err != nil {
			return nil, err
		}
		m.Similarity = cosine(queryVec, decodeEmbedding(blob))
		m.Metadata = map[string]string{"zh_indicators": zh}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].Similarity > out[i].Similarity {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// lookupExact returns the best direct match for an exact JP string, if any.
func (s *Store) lookupExact(ctx context.Context, jp string) (*Match, error) {
	s.mu.Lock()
	cached, ok := s.direct[jp]
	built := s.direct != nil
	s.mu.Unlock()
	if ok {
		return cached, nil
	}
	if built {
		return nil, nil
	}

	if err := s.buildDirectCache(ctx); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.direct[jp], nil
}

// buildDirectCache loads {source → highest-priority entry} once per process.
// Exact hits serve at confidence 1.0 with no embedding call.
func (s *Store) buildDirectCache(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT pattern_id, category, priority, register, source, target, genre, document, zh_indicators FROM patterns")
	if err != nil {
		return fmt.Errorf("failed to build direct-lookup cache: %w", err)
	}
	defer rows.Close()

	direct := make(map[string]*Match)
	for rows.Next() {
		var m Match
		var zh string
		if err := rows.Scan(&m.PatternID, &m.Category, &m.Priority, &m.Register,
			&m.Source, &m.Target, &m.Genre, &m.Document, &zh); err != nil {
			return err
		}
		m.Similarity = 1.0
		m.Metadata = map[string]string{"zh_indicators": zh}
		if prev, exists := direct[m.Source]; !exists || m.Priority > prev.Priority {
			copied := m
			direct[m.Source] = &copied
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.direct = direct
	s.mu.Unlock()
	return nil
}

// ZhIndicators decodes a match's zh indicator list.
func (m *Match) ZhIndicators() []string {
	raw, ok := m.Metadata["zh_indicators"]
	if !ok || raw == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	return out
}
