package bible

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// fuzzyThreshold is the minimum similarity ratio for a title to claim a
// series when no substring match exists.
const fuzzyThreshold = 0.70

// shortIDRe extracts the 4-hex-char trailing suffix of a volume id.
var shortIDRe = regexp.MustCompile(`_([0-9a-f]{4})$`)

// ShortID returns the short-hash suffix of a volume id, or "".
func ShortID(volumeID string) string {
	m := shortIDRe.FindStringSubmatch(volumeID)
	if m == nil {
		return ""
	}
	return m[1]
}

// Resolver locates the series bible for a volume.
type Resolver struct {
	dir    string // bible registry directory
	index  *Index
	logger *slog.Logger
}

// NewResolver loads the registry index from dir.
func NewResolver(dir string, logger *slog.Logger) (*Resolver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	idx, err := LoadIndex(filepath.Join(dir, "index.json"))
	if err != nil {
		return nil, err
	}
	return &Resolver{dir: dir, index: idx, logger: logger}, nil
}

// Index exposes the loaded registry index.
func (r *Resolver) Index() *Index {
	return r.index
}

// Match describes how a volume resolved to a series.
type Match struct {
	SeriesID string
	Rule     string // "bible_id", "short_id", "substring", "fuzzy"
	Pattern  string
	Score    float64
}

// Resolve returns at most one series bible for a volume, trying in order:
// explicit bible id, registered volume short-hash, then fuzzy title match.
// ErrNoMatch means the volume runs standalone.
func (r *Resolver) Resolve(bibleID, volumeID, series, title string) (*SeriesBible, *Match, error) {
	if bibleID != "" {
		if _, ok := r.index.Series[bibleID]; ok {
			b, err := r.load(bibleID)
			if err != nil {
				return nil, nil, err
			}
			return b, &Match{SeriesID: bibleID, Rule: "bible_id"}, nil
		}
		r.logger.Warn("manifest bible_id not in index, falling through",
			"bible_id", bibleID)
	}

	if shortID := ShortID(volumeID); shortID != "" {
		if seriesID, ok := r.index.SeriesForShortID(shortID); ok {
			b, err := r.load(seriesID)
			if err != nil {
				return nil, nil, err
			}
			return b, &Match{SeriesID: seriesID, Rule: "short_id", Pattern: shortID}, nil
		}
	}

	if m := r.fuzzyMatch(series, title); m != nil {
		b, err := r.load(m.SeriesID)
		if err != nil {
			return nil, nil, err
		}
		return b, m, nil
	}

	return nil, nil, ErrNoMatch
}

func (r *Resolver) load(seriesID string) (*SeriesBible, error) {
	entry := r.index.Series[seriesID]
	file := entry.BibleFile
	if file == "" {
		file = seriesID + ".json"
	}
	return Load(filepath.Join(r.dir, file))
}

// fuzzyMatch compares the volume's series and title against every series'
// match patterns. A substring hit wins immediately; otherwise the highest
// ratio above the threshold wins.
func (r *Resolver) fuzzyMatch(series, title string) *Match {
	candidates := []string{}
	if series != "" {
		candidates = append(candidates, series)
	}
	if title != "" {
		candidates = append(candidates, title)
	}
	if len(candidates) == 0 {
		return nil
	}

	// Deterministic iteration over series ids.
	ids := make([]string, 0, len(r.index.Series))
	for id := range r.index.Series {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var best *Match
	for _, seriesID := range ids {
		for _, pattern := range r.index.Series[seriesID].MatchPatterns {
			for _, cand := range candidates {
				if containsFold(cand, pattern) {
					return &Match{SeriesID: seriesID, Rule: "substring", Pattern: pattern, Score: 1.0}
				}
				score := similarityRatio(normalizeTitle(cand), normalizeTitle(pattern))
				if score >= fuzzyThreshold && (best == nil || score > best.Score) {
					best = &Match{SeriesID: seriesID, Rule: "fuzzy", Pattern: pattern, Score: score}
				}
			}
		}
	}
	return best
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func normalizeTitle(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// similarityRatio returns 2*LCS/(len(a)+len(b)) over runes, the classic
// sequence-similarity ratio. 1.0 means identical, 0.0 means disjoint.
func similarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1.0
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	// Single-row LCS table.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}

// String renders a match for logs.
func (m *Match) String() string {
	if m == nil {
		return "none"
	}
	if m.Rule == "fuzzy" {
		return fmt.Sprintf("%s (%s %q score=%.2f)", m.SeriesID, m.Rule, m.Pattern, m.Score)
	}
	if m.Pattern != "" {
		return fmt.Sprintf("%s (%s %q)", m.SeriesID, m.Rule, m.Pattern)
	}
	return fmt.Sprintf("%s (%s)", m.SeriesID, m.Rule)
}
