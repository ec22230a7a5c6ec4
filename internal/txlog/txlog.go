// Package txlog provides translation call recording for traceability.
// Every translation API call is recorded with its chapter, model, and
// token metrics in an append-only per-volume log file.
package txlog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Entry represents one recorded translation call.
type Entry struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	VolumeID  string `json:"volume_id,omitempty"`
	ChapterID string `json:"chapter_id,omitempty"`
	Language  string `json:"language,omitempty"`

	// Model info
	Model       string  `json:"model"`
	UsedCache   bool    `json:"used_cache"`
	UsedVisual  bool    `json:"used_visual,omitempty"`
	Attempts    int     `json:"attempts,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
	CachedTokens int `json:"cached_tokens,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`

	// Quality signals from the post-translation audit.
	Quality *Quality `json:"quality,omitempty"`
}

// Quality holds the quick-audit results attached to a successful call.
type Quality struct {
	LengthRatio    float64 `json:"length_ratio"`
	CJKLeaks       int     `json:"cjk_leaks,omitempty"`
	AnalysisLeaks  int     `json:"analysis_leaks,omitempty"`
	UntranslatedJP bool    `json:"untranslated_jp,omitempty"`
}

// NewEntry constructs an Entry with a fresh id and timestamp. Callers fill
// the remaining fields before handing it to a Recorder.
func NewEntry(volumeID, chapterID, lang string) *Entry {
	return &Entry{
		ID:        uuid.New().String(),
		Timestamp: time.Now().UTC(),
		VolumeID:  volumeID,
		ChapterID: chapterID,
		Language:  lang,
	}
}

// Recorder appends entries to a JSON log file. Appends are serialized and
// each append rewrites the file atomically, so a crash mid-write never
// truncates history.
type Recorder struct {
	path   string
	logger *slog.Logger

	mu sync.Mutex
}

// NewRecorder creates a recorder for the log at path. A nil-safe zero
// value is not provided; a missing file is created on first append.
func NewRecorder(path string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{path: path, logger: logger}
}

// Record appends one entry. Failures are logged, not returned; a broken
// log must never abort a translation run.
func (r *Recorder) Record(e *Entry) {
	if r == nil || e == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.load()
	if err != nil {
		r.logger.Warn("translation log unreadable, starting fresh", "path", r.path, "error", err)
		entries = nil
	}
	entries = append(entries, *e)

	if err := r.write(entries); err != nil {
		r.logger.Warn("failed to append translation log entry",
			"path", r.path, "chapter", e.ChapterID, "error", err)
	}
}

// Entries returns the full recorded history, oldest first.
func (r *Recorder) Entries() ([]Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *Recorder) load() ([]Entry, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read translation log: %w", err)
	}
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse translation log %s: %w", r.path, err)
	}
	return entries, nil
}

func (r *Recorder) write(entries []Entry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(r.path), 0o755); err != nil {
		return err
	}
	tmp := r.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, r.path)
}
