package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

const sampleManifest = `{
  "schema_version": "3.7",
  "volume_id": "kimi_no_na_wa_a3f2",
  "metadata": {"series": "君の名前", "title": "君の名前 第3巻", "genre": "romcom_school_life"},
  "metadata_en": {
    "character_names": {"田中": "Tanaka"},
    "character_profiles": [
      {
        "name": "山田花子",
        "voice_notes": "soft-spoken",
        "speech": {
          "fingerprint": "polite, trailing sentences",
          "contraction_rate": 0.2,
          "keigo_switch": {"先生": "formal"},
          "how_refers_to_others": {"田中": "Tanaka-kun"},
          "rtas": [{"target": "田中", "type": "crush", "score": 0.8}]
        }
      }
    ]
  },
  "chapters": [
    {"id": "chapter_01", "source_file": "CHAPTER_01_JP.md", "translation_status": "completed"},
    {"id": "chapter_02", "source_file": "CHAPTER_02_JP.md"}
  ],
  "pipeline_state": {
    "librarian": {"status": "completed"},
    "illustrator": {"status": "completed", "detail": {"count": 4}}
  },
  "art_direction": {"palette": "warm"}
}`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "manifest.json")
	if err := os.WriteFile(path, []byte(sampleManifest), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadNormalizes(t *testing.T) {
	m, err := Load(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	if m.Chapters[1].TranslationStatus != StatusPending {
		t.Errorf("missing status not defaulted: %q", m.Chapters[1].TranslationStatus)
	}
	if m.PipelineState.Translator.Status != StateIdle {
		t.Errorf("translator state = %q, want idle", m.PipelineState.Translator.Status)
	}
}

func TestLegacyProfileUpgrade(t *testing.T) {
	m, err := Load(writeSample(t))
	if err != nil {
		t.Fatal(err)
	}
	p := m.MetadataEN.CharacterProfiles[0]
	if p.NameJP != "山田花子" {
		t.Errorf("NameJP = %q", p.NameJP)
	}
	if p.VoiceSpec != "soft-spoken" {
		t.Errorf("VoiceSpec = %q", p.VoiceSpec)
	}
	if p.SpeechFingerprint != "polite, trailing sentences" {
		t.Errorf("SpeechFingerprint = %q", p.SpeechFingerprint)
	}
	if p.ContractionRate != 0.2 {
		t.Errorf("ContractionRate = %v", p.ContractionRate)
	}
	if p.KeigoSwitch["先生"] != "formal" {
		t.Errorf("KeigoSwitch = %v", p.KeigoSwitch)
	}
	if p.RefersToOthers["田中"] != "Tanaka-kun" {
		t.Errorf("RefersToOthers = %v", p.RefersToOthers)
	}
	if len(p.Relationships) != 1 || p.Relationships[0].Type != "crush" {
		t.Errorf("Relationships = %v", p.Relationships)
	}
	if p.LegacySpeech != nil {
		t.Error("legacy speech block not cleared")
	}
}

func TestSaveRoundTripsUnknownFields(t *testing.T) {
	path := writeSample(t)
	m, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	m.Chapters[1].TranslationStatus = StatusCompleted
	if err := m.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if _, ok := raw["art_direction"]; !ok {
		t.Error("unknown top-level field dropped on save")
	}
	var ps map[string]json.RawMessage
	if err := json.Unmarshal(raw["pipeline_state"], &ps); err != nil {
		t.Fatal(err)
	}
	if _, ok := ps["illustrator"]; !ok {
		t.Error("unknown pipeline_state phase dropped on save")
	}
}

func TestValidateRejectsMissingFields(t *testing.T) {
	if err := Validate([]byte(`{"volume_id": "v"}`)); err == nil {
		t.Error("manifest without chapters accepted")
	}
	if err := Validate([]byte(`not json`)); err == nil {
		t.Error("non-JSON accepted")
	}
}

func TestChapterNumber(t *testing.T) {
	tests := []struct {
		id   string
		want int
	}{
		{"chapter_01", 1},
		{"chapter_12", 12},
		{"prologue", 0},
		{"epilogue", 0},
		{"ch7", 7},
	}
	for _, tt := range tests {
		if got := ChapterNumber(tt.id); got != tt.want {
			t.Errorf("ChapterNumber(%q) = %d, want %d", tt.id, got, tt.want)
		}
	}
}

func TestCanonicalTitle(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"chapter_04", "Chapter 4"},
		{"chapter_12", "Chapter 12"},
		{"prologue", "Prologue"},
		{"side_story", "Side Story"},
	}
	for _, tt := range tests {
		if got := CanonicalTitle(tt.id); got != tt.want {
			t.Errorf("CanonicalTitle(%q) = %q, want %q", tt.id, got, tt.want)
		}
	}
}

func TestPreflight(t *testing.T) {
	ok := &Manifest{
		SchemaVersion: "3.6",
		Chapters: []*Chapter{
			{ID: "chapter_01", SourceFile: "CHAPTER_01_JP.md"},
			{ID: "chapter_02", SourceFile: "CHAPTER_02_JP.md"},
		},
	}
	if err := Preflight(ok); err != nil {
		t.Errorf("clean v3.6 manifest rejected: %v", err)
	}

	dup := &Manifest{
		SchemaVersion: "3.6",
		Chapters: []*Chapter{
			{ID: "chapter_01", SourceFile: "CHAPTER_01_JP.md"},
			{ID: "chapter_01", SourceFile: "CHAPTER_01B_JP.md"},
		},
	}
	if err := Preflight(dup); err == nil {
		t.Error("duplicate chapter ids accepted")
	}

	drift := &Manifest{
		SchemaVersion: "3.6",
		Chapters: []*Chapter{
			{ID: "chapter_03", SourceFile: "CHAPTER_07_JP.md"},
		},
	}
	if err := Preflight(drift); err == nil {
		t.Error("source-file drift accepted")
	}

	newer := &Manifest{SchemaVersion: "3.7", Chapters: drift.Chapters}
	if err := Preflight(newer); err != nil {
		t.Errorf("preflight applied outside v3.6: %v", err)
	}
}
