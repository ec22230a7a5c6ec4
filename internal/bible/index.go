package bible

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// IndexEntry describes one series in the registry index.
type IndexEntry struct {
	BibleFile     string   `json:"bible_file"`
	MatchPatterns []string `json:"match_patterns,omitempty"`
	Volumes       []string `json:"volumes,omitempty"` // volume short-hashes
	EntryCount    int      `json:"entry_count,omitempty"`
	LastUpdated   string   `json:"last_updated,omitempty"`
}

// Index is the installation-wide registry of series bibles.
// Invariant: a volume short-hash appears under at most one series.
type Index struct {
	Series map[string]IndexEntry `json:"series"`

	path string
}

// LoadIndex reads the registry index. A missing file yields an empty index:
// first run is not an error.
func LoadIndex(path string) (*Index, error) {
	idx := &Index{Series: make(map[string]IndexEntry), path: path}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return idx, nil
		}
		return nil, fmt.Errorf("failed to read bible index: %w", err)
	}
	if err := json.Unmarshal(data, idx); err != nil {
		return nil, fmt.Errorf("failed to parse bible index: %w", err)
	}
	if idx.Series == nil {
		idx.Series = make(map[string]IndexEntry)
	}
	idx.path = path
	return idx, nil
}

// Save atomically writes the index.
func (idx *Index) Save() error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bible index: %w", err)
	}
	tmp := idx.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bible index: %w", err)
	}
	if err := os.Rename(tmp, idx.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace bible index: %w", err)
	}
	return nil
}

// SeriesForShortID returns the series id owning a volume short-hash.
func (idx *Index) SeriesForShortID(shortID string) (string, bool) {
	if shortID == "" {
		return "", false
	}
	for seriesID, entry := range idx.Series {
		for _, v := range entry.Volumes {
			if v == shortID {
				return seriesID, true
			}
		}
	}
	return "", false
}

// LinkVolume records a volume short-hash under a series, enforcing the
// one-series-per-volume invariant. Re-linking to the same series is a no-op.
func (idx *Index) LinkVolume(seriesID, shortID string) error {
	if shortID == "" {
		return nil
	}
	if owner, ok := idx.SeriesForShortID(shortID); ok {
		if owner == seriesID {
			return nil
		}
		return fmt.Errorf("volume %s already linked to series %s", shortID, owner)
	}
	entry, ok := idx.Series[seriesID]
	if !ok {
		return fmt.Errorf("series %s not in index", seriesID)
	}
	entry.Volumes = append(entry.Volumes, shortID)
	entry.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	idx.Series[seriesID] = entry
	return nil
}

// Upsert records or refreshes a series entry.
func (idx *Index) Upsert(seriesID string, entry IndexEntry) {
	existing, ok := idx.Series[seriesID]
	if ok {
		if entry.BibleFile != "" {
			existing.BibleFile = entry.BibleFile
		}
		if entry.MatchPatterns != nil {
			existing.MatchPatterns = entry.MatchPatterns
		}
		if entry.EntryCount > 0 {
			existing.EntryCount = entry.EntryCount
		}
		existing.LastUpdated = time.Now().UTC().Format(time.RFC3339)
		idx.Series[seriesID] = existing
		return
	}
	entry.LastUpdated = time.Now().UTC().Format(time.RFC3339)
	idx.Series[seriesID] = entry
}
