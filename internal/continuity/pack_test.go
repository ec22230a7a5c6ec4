package continuity

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestLoadMissingPack(t *testing.T) {
	p, err := Load(filepath.Join(t.TempDir(), "continuity_pack.json"))
	if err != nil {
		t.Fatal(err)
	}
	if p != nil {
		t.Errorf("missing pack returned %+v, want nil", p)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "continuity_pack.json")
	p := New()
	p.Roster["田中"] = "Tanaka"
	p.Relationships = append(p.Relationships, Relationship{From: "Tanaka", To: "Yamada", Type: "rival"})
	if err := p.Save(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Roster["田中"] != "Tanaka" {
		t.Errorf("roster = %v", loaded.Roster)
	}
	if loaded.Glossary == nil {
		t.Error("glossary map not initialized on load")
	}
}

func TestMergeMaps(t *testing.T) {
	base := map[string]string{"a": "1", "b": "2"}
	override := map[string]string{"b": "3", "c": "4"}
	got := MergeMaps(base, override)
	want := map[string]string{"a": "1", "b": "3", "c": "4"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if base["b"] != "2" {
		t.Error("base mutated")
	}
}

func TestAddSnapshotReplaces(t *testing.T) {
	p := New()
	p.AddSnapshot(Snapshot{ChapterID: "chapter_01", Glossary: map[string]string{"旧": "old"}})
	p.AddSnapshot(Snapshot{ChapterID: "chapter_02"})
	p.AddSnapshot(Snapshot{ChapterID: "chapter_01", Glossary: map[string]string{"新": "new"}})

	if len(p.ChapterSnapshots) != 2 {
		t.Fatalf("snapshots = %+v", p.ChapterSnapshots)
	}
	if _, ok := p.ChapterSnapshots[0].Glossary["新"]; !ok {
		t.Errorf("re-run snapshot not replaced: %+v", p.ChapterSnapshots[0])
	}
}

func TestAggregate(t *testing.T) {
	snapshots := []Snapshot{
		{
			ChapterID: "chapter_01", ChapterIndex: 1,
			Roster:         map[string]string{"田中": "Tanaka"},
			Glossary:       map[string]string{"魔王": "Demon King"},
			Relationships:  []Relationship{{From: "Tanaka", To: "Yamada", Type: "rival"}},
			NarrativeFlags: []string{"tanaka_confessed"},
		},
		{
			ChapterID: "chapter_02", ChapterIndex: 2,
			Roster:         map[string]string{"山田": "Yamada"},
			Glossary:       map[string]string{"魔王": "Demon Lord"}, // later chapter wins
			Relationships:  []Relationship{{From: "Tanaka", To: "Yamada", Type: "rival"}},
			NarrativeFlags: []string{"tanaka_confessed", "festival_over"},
		},
	}

	p := Aggregate(snapshots)
	if p.Roster["田中"] != "Tanaka" || p.Roster["山田"] != "Yamada" {
		t.Errorf("roster = %v", p.Roster)
	}
	if p.Glossary["魔王"] != "Demon Lord" {
		t.Errorf("glossary = %v", p.Glossary)
	}
	if len(p.Relationships) != 1 {
		t.Errorf("relationships not deduped: %+v", p.Relationships)
	}
	if len(p.NarrativeFlags) != 2 {
		t.Errorf("flags = %v", p.NarrativeFlags)
	}
	if len(p.ChapterSnapshots) != 2 {
		t.Errorf("snapshots not carried: %d", len(p.ChapterSnapshots))
	}
}

func TestFormat(t *testing.T) {
	var nilPack *Pack
	if got := nilPack.Format(); got != "" {
		t.Errorf("nil pack rendered %q", got)
	}
	if got := New().Format(); got != "" {
		t.Errorf("empty pack rendered %q", got)
	}

	p := New()
	p.Relationships = []Relationship{{From: "Tanaka", To: "Yamada", Type: "rival", Note: "since the festival"}}
	p.NarrativeFlags = []string{"festival_over"}
	got := p.Format()
	for _, want := range []string{
		"=== CONTINUITY ===",
		"Tanaka → Yamada: rival (since the festival)",
		"- festival_over",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %q in:\n%s", want, got)
		}
	}
}

func TestExtract(t *testing.T) {
	roster := map[string]string{"田中": "Tanaka", "山田": "Yamada"}
	glossary := map[string]string{"魔王": "Demon King", "聖剣": "Holy Sword"}
	translation := "Tanaka drew the Holy Sword and faced the morning."

	s := Extract("chapter_03", 3, translation, roster, glossary)
	if s.ChapterID != "chapter_03" || s.ChapterIndex != 3 {
		t.Errorf("snapshot header = %+v", s)
	}
	if !reflect.DeepEqual(s.Roster, map[string]string{"田中": "Tanaka"}) {
		t.Errorf("roster = %v", s.Roster)
	}
	if !reflect.DeepEqual(s.Glossary, map[string]string{"聖剣": "Holy Sword"}) {
		t.Errorf("glossary = %v", s.Glossary)
	}
}

func TestExtractNothingUsed(t *testing.T) {
	s := Extract("chapter_01", 1, "An unrelated passage.",
		map[string]string{"田中": "Tanaka"}, map[string]string{"魔王": "Demon King"})
	if s.Roster != nil || s.Glossary != nil {
		t.Errorf("snapshot = %+v", s)
	}
}
