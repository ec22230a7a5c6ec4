package testutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

// FixtureVolume describes a synthetic volume under a temp working dir.
type FixtureVolume struct {
	VolumeID string
	Series   string
	Title    string
	Genre    string
	BibleID  string

	// Chapters maps chapter id to JP source body. Source files are named
	// CHAPTER_<NN>_JP.md from the id.
	Chapters map[string]string

	// CharacterNames feeds metadata_en.character_names.
	CharacterNames map[string]string

	// VisualCache, when non-nil, is written as visual_cache.json.
	VisualCache any

	// ContinuityPack, when non-nil, is written as continuity_pack.json.
	ContinuityPack any
}

// Build writes the fixture into a fresh temp working dir and returns its
// root path.
func (f FixtureVolume) Build(t *testing.T) string {
	t.Helper()
	work := t.TempDir()
	volDir := filepath.Join(work, f.VolumeID)
	jpDir := filepath.Join(volDir, "JP")
	if err := os.MkdirAll(jpDir, 0o755); err != nil {
		t.Fatalf("fixture mkdir: %v", err)
	}

	type chapterRec struct {
		ID         string `json:"id"`
		SourceFile string `json:"source_file"`
	}
	var chapters []chapterRec
	for id, body := range f.Chapters {
		name := fmt.Sprintf("%s_JP.md", upperID(id))
		if err := os.WriteFile(filepath.Join(jpDir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("fixture chapter write: %v", err)
		}
		chapters = append(chapters, chapterRec{ID: id, SourceFile: name})
	}
	sort.Slice(chapters, func(i, j int) bool { return chapters[i].ID < chapters[j].ID })

	m := map[string]any{
		"schema_version": "3.7",
		"volume_id":      f.VolumeID,
		"metadata": map[string]any{
			"series": f.Series,
			"title":  f.Title,
			"genre":  f.Genre,
		},
		"chapters": chapters,
		"pipeline_state": map[string]any{
			"librarian": map[string]any{"status": "completed"},
		},
	}
	if f.BibleID != "" {
		m["bible_id"] = f.BibleID
	}
	if len(f.CharacterNames) > 0 {
		m["metadata_en"] = map[string]any{"character_names": f.CharacterNames}
	}
	writeJSON(t, filepath.Join(volDir, "manifest.json"), m)

	if f.VisualCache != nil {
		writeJSON(t, filepath.Join(volDir, "visual_cache.json"), f.VisualCache)
	}
	if f.ContinuityPack != nil {
		writeJSON(t, filepath.Join(volDir, "continuity_pack.json"), f.ContinuityPack)
	}
	return work
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("fixture marshal %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("fixture write %s: %v", path, err)
	}
}

func upperID(id string) string {
	out := make([]byte, len(id))
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
