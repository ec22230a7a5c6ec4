// Package workdir manages the honyaku working directory layout.
//
// The working directory holds one subdirectory per volume (as produced by
// the librarian), the series bible registry, and the RAG data files:
//
//	WORK/
//	  <volume_id>/
//	    manifest.json
//	    JP/CHAPTER_NN_JP.md
//	    EN/CHAPTER_NN_EN.md
//	    _assets/{illustrations,kuchie}/
//	    visual_cache.json
//	    continuity_pack.json
//	    translation_log.json
//	    THINKING/
//	  bibles/
//	    index.json
//	    <series_id>.json
//	  rag/
//	    <store_kind>.json
//	    <store_kind>.db
package workdir

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultDirName is the default working directory, relative to cwd.
	DefaultDirName = "WORK"

	// EnvWorkDir overrides the working directory location.
	EnvWorkDir = "HONYAKU_WORK_DIR"

	// BiblesDirName is the subdirectory holding the series bible registry.
	BiblesDirName = "bibles"

	// RAGDirName is the subdirectory holding RAG sources and indexes.
	RAGDirName = "rag"

	// ThinkingDirName is the per-volume directory for thinking transcripts.
	ThinkingDirName = "THINKING"
)

// Dir represents the honyaku working directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path. If path is empty, the
// HONYAKU_WORK_DIR environment variable is consulted, then ./WORK.
func New(path string) (*Dir, error) {
	if path == "" {
		path = os.Getenv(EnvWorkDir)
	}
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		path = filepath.Join(cwd, DefaultDirName)
	}
	return &Dir{path: path}, nil
}

// Path returns the root path of the working directory.
func (d *Dir) Path() string {
	return d.path
}

// Exists returns true if the working directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// EnsureExists creates the working directory and shared subdirectories.
func (d *Dir) EnsureExists() error {
	for _, p := range []string{d.BiblesPath(), d.RAGPath()} {
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p, err)
		}
	}
	return nil
}

// VolumePath returns the directory for a volume.
func (d *Dir) VolumePath(volumeID string) string {
	return filepath.Join(d.path, volumeID)
}

// VolumeExists returns true if the volume directory and its manifest exist.
func (d *Dir) VolumeExists(volumeID string) bool {
	_, err := os.Stat(d.ManifestPath(volumeID))
	return err == nil
}

// ManifestPath returns the path to a volume's manifest.json.
func (d *Dir) ManifestPath(volumeID string) string {
	return filepath.Join(d.VolumePath(volumeID), "manifest.json")
}

// SourceDir returns the directory holding a volume's Japanese chapters.
func (d *Dir) SourceDir(volumeID string) string {
	return filepath.Join(d.VolumePath(volumeID), "JP")
}

// SourcePath returns the path of one source chapter file.
func (d *Dir) SourcePath(volumeID, sourceFile string) string {
	return filepath.Join(d.SourceDir(volumeID), sourceFile)
}

// OutputDir returns the output directory for a target language.
// Language codes are upper-cased for the directory name ("en" -> "EN").
func (d *Dir) OutputDir(volumeID, lang string) string {
	return filepath.Join(d.VolumePath(volumeID), strings.ToUpper(lang))
}

// OutputPath returns the output file path for a chapter.
// Chapter ids follow the librarian's convention: chapter_04 -> CHAPTER_04_EN.md.
func (d *Dir) OutputPath(volumeID, lang, chapterID string) string {
	name := fmt.Sprintf("%s_%s.md", strings.ToUpper(chapterID), strings.ToUpper(lang))
	return filepath.Join(d.OutputDir(volumeID, lang), name)
}

// EnsureOutputDir creates the output directory for a volume run.
func (d *Dir) EnsureOutputDir(volumeID, lang string) error {
	return os.MkdirAll(d.OutputDir(volumeID, lang), 0o755)
}

// VisualCachePath returns the path to a volume's visual analysis cache.
func (d *Dir) VisualCachePath(volumeID string) string {
	return filepath.Join(d.VolumePath(volumeID), "visual_cache.json")
}

// ContinuityPackPath returns the path to a volume's continuity pack.
func (d *Dir) ContinuityPackPath(volumeID string) string {
	return filepath.Join(d.VolumePath(volumeID), "continuity_pack.json")
}

// TranslationLogPath returns the path to a volume's translation log.
func (d *Dir) TranslationLogPath(volumeID string) string {
	return filepath.Join(d.VolumePath(volumeID), "translation_log.json")
}

// ThinkingDir returns the directory for saved thinking transcripts.
func (d *Dir) ThinkingDir(volumeID string) string {
	return filepath.Join(d.VolumePath(volumeID), ThinkingDirName)
}

// ThinkingPath returns the transcript path for one chapter. The chapter id
// keeps its case: transcripts are named chapter_04_THINKING.md.
func (d *Dir) ThinkingPath(volumeID, chapterID string) string {
	return filepath.Join(d.ThinkingDir(volumeID), chapterID+"_THINKING.md")
}

// EnsureThinkingDir creates the thinking transcript directory.
func (d *Dir) EnsureThinkingDir(volumeID string) error {
	return os.MkdirAll(d.ThinkingDir(volumeID), 0o755)
}

// BiblesPath returns the series bible registry directory.
func (d *Dir) BiblesPath() string {
	return filepath.Join(d.path, BiblesDirName)
}

// BibleIndexPath returns the path to the bible registry index.
func (d *Dir) BibleIndexPath() string {
	return filepath.Join(d.BiblesPath(), "index.json")
}

// BiblePath returns the path of one series bible file.
func (d *Dir) BiblePath(seriesID string) string {
	return filepath.Join(d.BiblesPath(), seriesID+".json")
}

// RAGPath returns the RAG data directory.
func (d *Dir) RAGPath() string {
	return filepath.Join(d.path, RAGDirName)
}

// RAGSourcePath returns the JSON source file for a RAG store kind.
func (d *Dir) RAGSourcePath(kind string) string {
	return filepath.Join(d.RAGPath(), kind+".json")
}

// RAGIndexPath returns the SQLite index file for a RAG store kind.
func (d *Dir) RAGIndexPath(kind string) string {
	return filepath.Join(d.RAGPath(), kind+".db")
}

// ListVolumes returns the ids of all volumes with a manifest, sorted.
func (d *Dir) ListVolumes() ([]string, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read working directory: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || e.Name() == BiblesDirName || e.Name() == RAGDirName {
			continue
		}
		if d.VolumeExists(e.Name()) {
			ids = append(ids, e.Name())
		}
	}
	sort.Strings(ids)
	return ids, nil
}
