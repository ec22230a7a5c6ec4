// Package bible manages the per-series canonical data registry: one JSON
// file per series plus an index listing match patterns and registered
// volumes. The bible is the authoritative source for character, place, and
// artifact names; everything downstream layers on top of its glossary.
package bible

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"
)

// Sentinel errors for the bible package.
var (
	// ErrNotFound is returned when a requested bible file does not exist.
	ErrNotFound = errors.New("bible not found")

	// ErrNoMatch is returned by resolution when no rule matched.
	// Callers treat this as "standalone volume", not a failure.
	ErrNoMatch = errors.New("no bible matched")
)

// Entry is one canonical glossary entry. Aliases resolve to the owning
// entry's short name (falling back to the canonical form), never to a
// pointer: traversal is always by JP key.
type Entry struct {
	CanonicalEN string   `json:"canonical_en"`
	ShortName   string   `json:"short_name,omitempty"`
	AliasesJP   []string `json:"aliases_jp,omitempty"`
	Category    string   `json:"category,omitempty"`
	Notes       string   `json:"notes,omitempty"`
}

// Resolved returns the name an alias of this entry resolves to.
func (e Entry) Resolved() string {
	if e.ShortName != "" {
		return e.ShortName
	}
	return e.CanonicalEN
}

// SeriesTitle holds the series title in its three conventional renderings.
type SeriesTitle struct {
	JA     string `json:"ja,omitempty"`
	EN     string `json:"en,omitempty"`
	Romaji string `json:"romaji,omitempty"`
}

// WorldSetting captures the series-wide translation policy decisions.
type WorldSetting struct {
	Type       string            `json:"type,omitempty"`  // "fantasy_western", "modern_japan", ...
	Label      string            `json:"label,omitempty"` // human-readable setting name
	Honorifics HonorificPolicy   `json:"honorifics"`
	NameOrder  NameOrderPolicy   `json:"name_order"`
	Exceptions []PolicyException `json:"exceptions,omitempty"`
}

// HonorificPolicy controls honorific retention.
type HonorificPolicy struct {
	Mode   string `json:"mode,omitempty"` // "keep", "drop", "localize"
	Policy string `json:"policy,omitempty"`
}

// NameOrderPolicy controls given/family name ordering.
type NameOrderPolicy struct {
	Default string `json:"default,omitempty"` // "western", "japanese"
	Policy  string `json:"policy,omitempty"`
}

// PolicyException overrides the world-setting policy for one character.
type PolicyException struct {
	Character string `json:"character"`
	Rule      string `json:"rule"`
}

// Geography groups place entries by scale.
type Geography struct {
	Countries map[string]Entry `json:"countries,omitempty"`
	Regions   map[string]Entry `json:"regions,omitempty"`
	Cities    map[string]Entry `json:"cities,omitempty"`
}

// RegisteredVolume records one volume linked to this series.
type RegisteredVolume struct {
	VolumeID string `json:"volume_id"`
	Title    string `json:"title,omitempty"`
	Index    int    `json:"index"`
}

// SeriesBible is the canonical data file for one series.
type SeriesBible struct {
	SchemaVersion     string             `json:"schema_version"`
	SeriesID          string             `json:"series_id"`
	SeriesTitle       SeriesTitle        `json:"series_title"`
	WorldSetting      WorldSetting       `json:"world_setting"`
	TranslationRules  []string           `json:"translation_rules,omitempty"`
	VolumesRegistered []RegisteredVolume `json:"volumes_registered,omitempty"`

	Characters       map[string]Entry `json:"characters,omitempty"`
	Geography        Geography        `json:"geography,omitempty"`
	WeaponsArtifacts map[string]Entry `json:"weapons_artifacts,omitempty"`
	Organizations    map[string]Entry `json:"organizations,omitempty"`
	CulturalTerms    map[string]Entry `json:"cultural_terms,omitempty"`
	Mythology        map[string]Entry `json:"mythology,omitempty"`

	LastUpdated string `json:"last_updated,omitempty"`

	path string
}

// CurrentSchemaVersion is written on save.
const CurrentSchemaVersion = "1.2"

// Load reads a series bible file.
func Load(path string) (*SeriesBible, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read bible: %w", err)
	}
	var b SeriesBible
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse bible %s: %w", path, err)
	}
	b.path = path
	return &b, nil
}

// Path returns the file path this bible was loaded from.
func (b *SeriesBible) Path() string {
	return b.path
}

// Save timestamps and atomically writes the bible back to its file.
func (b *SeriesBible) Save() error {
	if b.path == "" {
		return errors.New("bible has no path")
	}
	return b.SaveTo(b.path)
}

// SaveTo timestamps and atomically writes the bible to the given path.
func (b *SeriesBible) SaveTo(path string) error {
	if b.SchemaVersion == "" {
		b.SchemaVersion = CurrentSchemaVersion
	}
	b.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal bible: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write bible: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace bible: %w", err)
	}
	b.path = path
	return nil
}

// categoryMaps returns every flat entry map with its category label, in
// stable prompt order.
func (b *SeriesBible) categoryMaps() []struct {
	Label   string
	Entries map[string]Entry
} {
	return []struct {
		Label   string
		Entries map[string]Entry
	}{
		{"CHARACTERS", b.Characters},
		{"COUNTRIES", b.Geography.Countries},
		{"REGIONS", b.Geography.Regions},
		{"CITIES", b.Geography.Cities},
		{"WEAPONS & ARTIFACTS", b.WeaponsArtifacts},
		{"ORGANIZATIONS", b.Organizations},
		{"CULTURAL TERMS", b.CulturalTerms},
		{"MYTHOLOGY", b.Mythology},
	}
}

// FlatGlossary walks all categories and emits the authoritative JP->EN map:
// every entry's canonical form plus every alias resolved to the owner's
// short name.
func (b *SeriesBible) FlatGlossary() map[string]string {
	out := make(map[string]string)
	for _, cat := range b.categoryMaps() {
		for jp, entry := range cat.Entries {
			if entry.CanonicalEN == "" {
				continue
			}
			out[jp] = entry.CanonicalEN
			for _, alias := range entry.AliasesJP {
				out[alias] = entry.Resolved()
			}
		}
	}
	return out
}

// EntryCount returns the number of canonical entries across all categories.
func (b *SeriesBible) EntryCount() int {
	n := 0
	for _, cat := range b.categoryMaps() {
		n += len(cat.Entries)
	}
	return n
}

// AddEntry merges an entry at a dotted category path, e.g. "characters" or
// "geography.cities". Existing entries are enriched field-by-field rather
// than replaced.
func (b *SeriesBible) AddEntry(categoryPath, jpKey string, entry Entry) error {
	target, err := b.categoryMap(categoryPath)
	if err != nil {
		return err
	}
	existing, ok := target[jpKey]
	if !ok {
		target[jpKey] = entry
		return nil
	}
	if entry.CanonicalEN != "" {
		existing.CanonicalEN = entry.CanonicalEN
	}
	if entry.ShortName != "" {
		existing.ShortName = entry.ShortName
	}
	if entry.Notes != "" {
		existing.Notes = entry.Notes
	}
	if entry.Category != "" {
		existing.Category = entry.Category
	}
	existing.AliasesJP = mergeAliases(existing.AliasesJP, entry.AliasesJP)
	target[jpKey] = existing
	return nil
}

func (b *SeriesBible) categoryMap(path string) (map[string]Entry, error) {
	ensure := func(m *map[string]Entry) map[string]Entry {
		if *m == nil {
			*m = make(map[string]Entry)
		}
		return *m
	}
	switch path {
	case "characters":
		return ensure(&b.Characters), nil
	case "geography.countries":
		return ensure(&b.Geography.Countries), nil
	case "geography.regions":
		return ensure(&b.Geography.Regions), nil
	case "geography.cities":
		return ensure(&b.Geography.Cities), nil
	case "weapons_artifacts":
		return ensure(&b.WeaponsArtifacts), nil
	case "organizations":
		return ensure(&b.Organizations), nil
	case "cultural_terms":
		return ensure(&b.CulturalTerms), nil
	case "mythology":
		return ensure(&b.Mythology), nil
	}
	return nil, fmt.Errorf("unknown category path %q", path)
}

func mergeAliases(a, b []string) []string {
	seen := make(map[string]bool, len(a))
	out := append([]string(nil), a...)
	for _, s := range a {
		seen[s] = true
	}
	for _, s := range b {
		if !seen[s] {
			out = append(out, s)
			seen[s] = true
		}
	}
	return out
}

// RegisterVolume idempotently records a volume for this series, keeping the
// list sorted by index.
func (b *SeriesBible) RegisterVolume(volumeID, title string, index int) {
	for _, v := range b.VolumesRegistered {
		if v.VolumeID == volumeID {
			return
		}
	}
	b.VolumesRegistered = append(b.VolumesRegistered, RegisteredVolume{
		VolumeID: volumeID,
		Title:    title,
		Index:    index,
	})
	sort.Slice(b.VolumesRegistered, func(i, j int) bool {
		return b.VolumesRegistered[i].Index < b.VolumesRegistered[j].Index
	})
}
