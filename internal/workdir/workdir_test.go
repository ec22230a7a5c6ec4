package workdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestNewPathPrecedence(t *testing.T) {
	explicit, err := New("/tmp/explicit")
	if err != nil {
		t.Fatal(err)
	}
	if explicit.Path() != "/tmp/explicit" {
		t.Errorf("path = %q", explicit.Path())
	}

	t.Setenv(EnvWorkDir, "/tmp/from-env")
	fromEnv, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if fromEnv.Path() != "/tmp/from-env" {
		t.Errorf("env path = %q", fromEnv.Path())
	}

	t.Setenv(EnvWorkDir, "")
	def, err := New("")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(def.Path()) != DefaultDirName {
		t.Errorf("default path = %q", def.Path())
	}
}

func TestPathLayout(t *testing.T) {
	d, _ := New("/w")
	tests := []struct{ got, want string }{
		{d.ManifestPath("vol_01"), "/w/vol_01/manifest.json"},
		{d.SourcePath("vol_01", "CHAPTER_04_JP.md"), "/w/vol_01/JP/CHAPTER_04_JP.md"},
		{d.OutputPath("vol_01", "en", "chapter_04"), "/w/vol_01/EN/CHAPTER_04_EN.md"},
		{d.OutputPath("vol_01", "vi", "chapter_12"), "/w/vol_01/VI/CHAPTER_12_VI.md"},
		{d.VisualCachePath("vol_01"), "/w/vol_01/visual_cache.json"},
		{d.ContinuityPackPath("vol_01"), "/w/vol_01/continuity_pack.json"},
		{d.TranslationLogPath("vol_01"), "/w/vol_01/translation_log.json"},
		{d.ThinkingPath("vol_01", "chapter_04"), "/w/vol_01/THINKING/chapter_04_THINKING.md"},
		{d.BibleIndexPath(), "/w/bibles/index.json"},
		{d.BiblePath("maou_gakuin"), "/w/bibles/maou_gakuin.json"},
		{d.RAGSourcePath("sino_vietnamese"), "/w/rag/sino_vietnamese.json"},
		{d.RAGIndexPath("sino_vietnamese"), "/w/rag/sino_vietnamese.db"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestEnsureExistsAndListVolumes(t *testing.T) {
	root := filepath.Join(t.TempDir(), "WORK")
	d, err := New(root)
	if err != nil {
		t.Fatal(err)
	}
	if d.Exists() {
		t.Error("directory exists before creation")
	}
	if err := d.EnsureExists(); err != nil {
		t.Fatal(err)
	}
	if !d.Exists() {
		t.Error("directory missing after EnsureExists")
	}

	// Volumes need a manifest to count; bibles/ and rag/ never count.
	for _, vol := range []string{"vol_b", "vol_a"} {
		if err := os.MkdirAll(d.VolumePath(vol), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(d.ManifestPath(vol), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(d.VolumePath("no_manifest"), 0o755); err != nil {
		t.Fatal(err)
	}

	ids, err := d.ListVolumes()
	if err != nil {
		t.Fatal(err)
	}
	if len(ids) != 2 || ids[0] != "vol_a" || ids[1] != "vol_b" {
		t.Errorf("volumes = %v", ids)
	}
}
