package bible

import (
	"errors"
	"math"
	"path/filepath"
	"testing"
)

func TestShortID(t *testing.T) {
	tests := []struct{ id, want string }{
		{"maou_gakuin_vol3_a3f2", "a3f2"},
		{"standalone", ""},
		{"bad_suffix_ZZZZ", ""},
		{"trailing_12345", ""}, // five hex chars is not a short id
	}
	for _, tt := range tests {
		if got := ShortID(tt.id); got != tt.want {
			t.Errorf("ShortID(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestSimilarityRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1.0},
		{"abc", "", 0.0},
		{"abc", "abc", 1.0},
		{"abcd", "abxd", 0.75}, // LCS 3, 2*3/8
		{"abc", "xyz", 0.0},
	}
	for _, tt := range tests {
		if got := similarityRatio(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("similarityRatio(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

// newTestResolver writes a registry with one series and returns the resolver.
func newTestResolver(t *testing.T) *Resolver {
	t.Helper()
	dir := t.TempDir()

	b := sampleBible()
	if err := b.SaveTo(filepath.Join(dir, "maou_gakuin.json")); err != nil {
		t.Fatal(err)
	}

	idx := &Index{
		Series: map[string]IndexEntry{
			"maou_gakuin": {
				BibleFile:     "maou_gakuin.json",
				MatchPatterns: []string{"魔王学院", "misfit of demon king"},
				Volumes:       []string{"a3f2"},
			},
		},
		path: filepath.Join(dir, "index.json"),
	}
	if err := idx.Save(); err != nil {
		t.Fatal(err)
	}

	r, err := NewResolver(dir, nil)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestResolveByBibleID(t *testing.T) {
	r := newTestResolver(t)
	b, m, err := r.Resolve("maou_gakuin", "whatever_vol1", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if b.SeriesID != "maou_gakuin" || m.Rule != "bible_id" {
		t.Errorf("match = %+v", m)
	}
}

func TestResolveUnknownBibleIDFallsThrough(t *testing.T) {
	r := newTestResolver(t)
	// Unknown bible_id is a warning, not a failure; the short id still wins.
	b, m, err := r.Resolve("deleted_series", "maou_vol1_a3f2", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if b == nil || m.Rule != "short_id" || m.Pattern != "a3f2" {
		t.Errorf("match = %+v", m)
	}
}

func TestResolveByShortID(t *testing.T) {
	r := newTestResolver(t)
	_, m, err := r.Resolve("", "maou_vol1_a3f2", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if m.Rule != "short_id" {
		t.Errorf("match = %+v", m)
	}
}

func TestResolveSubstringBeatsFuzzy(t *testing.T) {
	r := newTestResolver(t)
	_, m, err := r.Resolve("", "some_vol", "魔王学院の不適合者", "第3巻")
	if err != nil {
		t.Fatal(err)
	}
	if m.Rule != "substring" || m.Score != 1.0 {
		t.Errorf("match = %+v", m)
	}
}

func TestResolveFuzzyTitle(t *testing.T) {
	r := newTestResolver(t)
	// Close but not containing the pattern verbatim.
	_, m, err := r.Resolve("", "some_vol", "", "The Misfit of Demon King Academy Vol. 3")
	if err != nil {
		t.Fatal(err)
	}
	if m.Rule != "substring" && m.Rule != "fuzzy" {
		t.Errorf("match = %+v", m)
	}
}

func TestResolveNoMatch(t *testing.T) {
	r := newTestResolver(t)
	_, _, err := r.Resolve("", "standalone_vol", "別の作品", "まったく別の話")
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("got %v, want ErrNoMatch", err)
	}
}

func TestResolveBelowFuzzyThreshold(t *testing.T) {
	r := newTestResolver(t)
	_, _, err := r.Resolve("", "v", "", "misfit")
	// "misfit" is a substring of the registered pattern's text but the
	// pattern is not a substring of the candidate; the LCS ratio against
	// "misfit of demon king" is 2*6/26 and stays below the floor.
	if !errors.Is(err, ErrNoMatch) {
		t.Errorf("got %v, want ErrNoMatch", err)
	}
}

func TestLinkVolumeInvariant(t *testing.T) {
	idx := &Index{Series: map[string]IndexEntry{
		"series_a": {BibleFile: "a.json", Volumes: []string{"1111"}},
		"series_b": {BibleFile: "b.json"},
	}}

	if err := idx.LinkVolume("series_a", "1111"); err != nil {
		t.Errorf("re-link to same series: %v", err)
	}
	if err := idx.LinkVolume("series_b", "1111"); err == nil {
		t.Error("volume linked under two series")
	}
	if err := idx.LinkVolume("series_b", "2222"); err != nil {
		t.Errorf("fresh link failed: %v", err)
	}
	if err := idx.LinkVolume("no_such_series", "3333"); err == nil {
		t.Error("link to unregistered series accepted")
	}
	if err := idx.LinkVolume("series_a", ""); err != nil {
		t.Errorf("empty short id should be a no-op: %v", err)
	}
}

func TestLoadIndexMissingIsEmpty(t *testing.T) {
	idx, err := LoadIndex(filepath.Join(t.TempDir(), "index.json"))
	if err != nil {
		t.Fatal(err)
	}
	if len(idx.Series) != 0 {
		t.Errorf("series = %v", idx.Series)
	}
}
