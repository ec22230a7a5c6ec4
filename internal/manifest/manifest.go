// Package manifest models the volume manifest produced by the librarian.
//
// The translator only ever mutates chapters[*].{translation_status,
// <lang>_file, model, schema_cache} and pipeline_state.translator; every
// other field is owned by an upstream phase and round-tripped untouched.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Chapter translation statuses.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Translator pipeline states.
const (
	StateIdle       = "idle"
	StateInProgress = "in_progress"
	StateCompleted  = "completed"
	StatePartial    = "partial"
)

// Sentinel errors for the manifest package.
var (
	// ErrNotFound is returned when the manifest file does not exist.
	ErrNotFound = errors.New("manifest not found")

	// ErrInvalid is returned when the manifest fails validation.
	ErrInvalid = errors.New("invalid manifest")
)

// Manifest is the on-disk volume manifest.
type Manifest struct {
	SchemaVersion string        `json:"schema_version"`
	VolumeID      string        `json:"volume_id"`
	BibleID       string        `json:"bible_id,omitempty"`
	PublisherID   string        `json:"publisher_id,omitempty"`
	Metadata      Metadata      `json:"metadata"`
	MetadataEN    *LangMetadata `json:"metadata_en,omitempty"`
	MetadataVI    *LangMetadata `json:"metadata_vi,omitempty"`
	Chapters      []*Chapter    `json:"chapters"`
	PipelineState PipelineState `json:"pipeline_state"`

	// Fields owned by other phases are preserved verbatim on save.
	Extra map[string]json.RawMessage `json:"-"`

	path string
}

// Metadata is the language-independent volume metadata.
type Metadata struct {
	Series string `json:"series"`
	Title  string `json:"title"`
	Genre  string `json:"genre,omitempty"`
}

// LangMetadata is per-target-language metadata from the librarian.
type LangMetadata struct {
	CharacterNames    map[string]string  `json:"character_names,omitempty"`
	CharacterProfiles []CharacterProfile `json:"character_profiles,omitempty"`
	SemanticMetadata  *SemanticMetadata  `json:"semantic_metadata,omitempty"`
	LockedGlossary    map[string]string  `json:"locked_glossary,omitempty"`
}

// Chapter is one chapter record within the manifest.
type Chapter struct {
	ID                string `json:"id"`
	SourceFile        string `json:"source_file"`
	TitleEN           string `json:"title_en,omitempty"`
	TitleVI           string `json:"title_vi,omitempty"`
	FileEN            string `json:"en_file,omitempty"`
	FileVI            string `json:"vi_file,omitempty"`
	TranslationStatus string `json:"translation_status"`
	Model             string `json:"model,omitempty"`

	// SchemaCache is a per-chapter continuity cache written by the
	// continuity workflow. Round-tripped untouched by the translator.
	SchemaCache json.RawMessage `json:"schema_cache,omitempty"`
}

// Title returns the chapter title for a target language.
func (c *Chapter) Title(lang string) string {
	if isVietnamese(lang) {
		return c.TitleVI
	}
	return c.TitleEN
}

// SetTitle sets the chapter title for a target language.
func (c *Chapter) SetTitle(lang, title string) {
	if isVietnamese(lang) {
		c.TitleVI = title
		return
	}
	c.TitleEN = title
}

// OutputFile returns the recorded output file name for a target language.
func (c *Chapter) OutputFile(lang string) string {
	if isVietnamese(lang) {
		return c.FileVI
	}
	return c.FileEN
}

// SetOutputFile records the output file name for a target language.
func (c *Chapter) SetOutputFile(lang, name string) {
	if isVietnamese(lang) {
		c.FileVI = name
		return
	}
	c.FileEN = name
}

// PipelineState tracks per-phase pipeline status.
type PipelineState struct {
	Librarian  PhaseState      `json:"librarian"`
	Translator TranslatorState `json:"translator"`

	Extra map[string]json.RawMessage `json:"-"`
}

// PhaseState is the minimal status record for an upstream phase.
type PhaseState struct {
	Status string `json:"status"`
}

// TranslatorState is the translator's persisted pipeline state.
type TranslatorState struct {
	Status         string   `json:"status"`
	TargetLanguage string   `json:"target_language,omitempty"`
	Model          string   `json:"model,omitempty"`
	StartedAt      string   `json:"started_at,omitempty"`
	CompletedAt    string   `json:"completed_at,omitempty"`
	FailedChapters []string `json:"failed_chapters,omitempty"`
}

// Lang returns the language metadata block for a target language,
// or nil if the librarian did not produce one.
func (m *Manifest) Lang(lang string) *LangMetadata {
	if isVietnamese(lang) {
		return m.MetadataVI
	}
	return m.MetadataEN
}

// Path returns the file path this manifest was loaded from.
func (m *Manifest) Path() string {
	return m.path
}

func isVietnamese(lang string) bool {
	l := strings.ToLower(lang)
	return l == "vi" || l == "vn"
}

// IsVietnamese reports whether a language code denotes the Vietnamese target.
func IsVietnamese(lang string) bool {
	return isVietnamese(lang)
}

// Load reads, validates, and normalizes a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	if err := Validate(data); err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	// Preserve unknown top-level fields for round-tripping.
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err == nil {
		m.Extra = make(map[string]json.RawMessage)
		for k, v := range raw {
			switch k {
			case "schema_version", "volume_id", "bible_id", "publisher_id",
				"metadata", "metadata_en", "metadata_vi", "chapters", "pipeline_state":
			default:
				m.Extra[k] = v
			}
		}
		if ps, ok := raw["pipeline_state"]; ok {
			var psRaw map[string]json.RawMessage
			if err := json.Unmarshal(ps, &psRaw); err == nil {
				m.PipelineState.Extra = make(map[string]json.RawMessage)
				for k, v := range psRaw {
					if k != "librarian" && k != "translator" {
						m.PipelineState.Extra[k] = v
					}
				}
			}
		}
	}

	normalize(&m)
	m.path = path
	return &m, nil
}

// normalize fills defaults and upgrades legacy profile shapes so that
// downstream components only ever see the enhanced form.
func normalize(m *Manifest) {
	for _, ch := range m.Chapters {
		if ch.TranslationStatus == "" {
			ch.TranslationStatus = StatusPending
		}
	}
	if m.PipelineState.Translator.Status == "" {
		m.PipelineState.Translator.Status = StateIdle
	}
	for _, lm := range []*LangMetadata{m.MetadataEN, m.MetadataVI} {
		if lm == nil {
			continue
		}
		for i := range lm.CharacterProfiles {
			upgradeProfile(&lm.CharacterProfiles[i])
		}
	}
}

// Save writes the manifest atomically (write-temp + rename).
func (m *Manifest) Save() error {
	if m.path == "" {
		return errors.New("manifest has no path")
	}
	return m.SaveTo(m.path)
}

// SaveTo writes the manifest atomically to the given path.
func (m *Manifest) SaveTo(path string) error {
	out := map[string]any{
		"schema_version": m.SchemaVersion,
		"volume_id":      m.VolumeID,
		"metadata":       m.Metadata,
		"chapters":       m.Chapters,
	}
	if m.BibleID != "" {
		out["bible_id"] = m.BibleID
	}
	if m.PublisherID != "" {
		out["publisher_id"] = m.PublisherID
	}
	if m.MetadataEN != nil {
		out["metadata_en"] = m.MetadataEN
	}
	if m.MetadataVI != nil {
		out["metadata_vi"] = m.MetadataVI
	}

	ps := map[string]any{
		"librarian":  m.PipelineState.Librarian,
		"translator": m.PipelineState.Translator,
	}
	for k, v := range m.PipelineState.Extra {
		ps[k] = v
	}
	out["pipeline_state"] = ps

	for k, v := range m.Extra {
		out[k] = v
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}
	m.path = path
	return nil
}

// ChapterByID returns the chapter with the given id.
func (m *Manifest) ChapterByID(id string) (*Chapter, bool) {
	for _, ch := range m.Chapters {
		if ch.ID == id {
			return ch, true
		}
	}
	return nil, false
}

// chapterNumRe extracts the numeric suffix of a chapter id.
var chapterNumRe = regexp.MustCompile(`(\d+)\s*$`)

// ChapterNumber parses the chapter number from an id like "chapter_04".
// Returns 0 if no number is present.
func ChapterNumber(id string) int {
	match := chapterNumRe.FindString(id)
	if match == "" {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(match))
	if err != nil {
		return 0
	}
	return n
}

// CanonicalTitle derives the canonical chapter title from its id.
func CanonicalTitle(id string) string {
	n := ChapterNumber(id)
	if n == 0 {
		// Non-numeric ids (prologue, epilogue, afterword) title-case as-is.
		words := strings.Split(strings.ReplaceAll(id, "_", " "), " ")
		for i, w := range words {
			if w != "" {
				words[i] = strings.ToUpper(w[:1]) + w[1:]
			}
		}
		return strings.Join(words, " ")
	}
	return fmt.Sprintf("Chapter %d", n)
}

// Timestamp returns the manifest timestamp format for pipeline state.
func Timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// DefaultPath returns the manifest path within a volume directory.
func DefaultPath(volumeDir string) string {
	return filepath.Join(volumeDir, "manifest.json")
}
