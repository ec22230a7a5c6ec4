package bible

import (
	"path/filepath"
	"testing"
)

func sampleBible() *SeriesBible {
	return &SeriesBible{
		SeriesID: "maou_gakuin",
		SeriesTitle: SeriesTitle{
			JA: "魔王学院の不適合者",
			EN: "The Misfit of Demon King Academy",
		},
		Characters: map[string]Entry{
			"アノス・ヴォルディゴード": {
				CanonicalEN: "Anos Voldigoad",
				ShortName:   "Anos",
				AliasesJP:   []string{"アノス", "魔王様"},
			},
		},
		Geography: Geography{
			Cities: map[string]Entry{
				"ミッドヘイズ": {CanonicalEN: "Midhaze"},
			},
		},
		Mythology: map[string]Entry{
			"滅紫の魔眼": {CanonicalEN: "Demon Eyes of Destruction"},
		},
	}
}

func TestFlatGlossary(t *testing.T) {
	g := sampleBible().FlatGlossary()

	tests := []struct{ jp, want string }{
		{"アノス・ヴォルディゴード", "Anos Voldigoad"},
		{"アノス", "Anos"},   // alias resolves to short name
		{"魔王様", "Anos"},   // title alias likewise
		{"ミッドヘイズ", "Midhaze"},
		{"滅紫の魔眼", "Demon Eyes of Destruction"},
	}
	for _, tt := range tests {
		if got := g[tt.jp]; got != tt.want {
			t.Errorf("glossary[%q] = %q, want %q", tt.jp, got, tt.want)
		}
	}
}

func TestFlatGlossarySkipsEmptyCanonical(t *testing.T) {
	b := &SeriesBible{Characters: map[string]Entry{
		"名無し": {Notes: "placeholder from an earlier import"},
	}}
	if g := b.FlatGlossary(); len(g) != 0 {
		t.Errorf("placeholder entry emitted: %v", g)
	}
}

func TestEntryResolved(t *testing.T) {
	if got := (Entry{CanonicalEN: "Anos Voldigoad", ShortName: "Anos"}).Resolved(); got != "Anos" {
		t.Errorf("got %q", got)
	}
	if got := (Entry{CanonicalEN: "Midhaze"}).Resolved(); got != "Midhaze" {
		t.Errorf("got %q", got)
	}
}

func TestAddEntry(t *testing.T) {
	b := &SeriesBible{}
	if err := b.AddEntry("geography.cities", "ミッドヘイズ", Entry{CanonicalEN: "Midhaze"}); err != nil {
		t.Fatal(err)
	}
	if b.Geography.Cities["ミッドヘイズ"].CanonicalEN != "Midhaze" {
		t.Error("entry not added to nil category map")
	}

	// Merging enriches rather than replaces.
	if err := b.AddEntry("geography.cities", "ミッドヘイズ", Entry{
		Notes:     "capital of the demon realm",
		AliasesJP: []string{"魔都"},
	}); err != nil {
		t.Fatal(err)
	}
	got := b.Geography.Cities["ミッドヘイズ"]
	if got.CanonicalEN != "Midhaze" {
		t.Errorf("canonical lost on merge: %q", got.CanonicalEN)
	}
	if got.Notes != "capital of the demon realm" {
		t.Errorf("notes not merged: %q", got.Notes)
	}
	if len(got.AliasesJP) != 1 || got.AliasesJP[0] != "魔都" {
		t.Errorf("aliases = %v", got.AliasesJP)
	}

	// Duplicate aliases are not re-appended.
	b.AddEntry("geography.cities", "ミッドヘイズ", Entry{AliasesJP: []string{"魔都"}})
	if got := b.Geography.Cities["ミッドヘイズ"]; len(got.AliasesJP) != 1 {
		t.Errorf("alias duplicated: %v", got.AliasesJP)
	}

	if err := b.AddEntry("no_such_category", "x", Entry{}); err == nil {
		t.Error("unknown category path accepted")
	}
}

func TestRegisterVolumeIdempotentAndSorted(t *testing.T) {
	b := &SeriesBible{}
	b.RegisterVolume("vol_b3c4", "Volume 2", 2)
	b.RegisterVolume("vol_a1b2", "Volume 1", 1)
	b.RegisterVolume("vol_b3c4", "Volume 2 again", 2)

	if len(b.VolumesRegistered) != 2 {
		t.Fatalf("volumes = %+v", b.VolumesRegistered)
	}
	if b.VolumesRegistered[0].VolumeID != "vol_a1b2" {
		t.Errorf("not sorted by index: %+v", b.VolumesRegistered)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "maou_gakuin.json")
	b := sampleBible()
	if err := b.SaveTo(path); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.SchemaVersion != CurrentSchemaVersion {
		t.Errorf("schema version = %q", loaded.SchemaVersion)
	}
	if loaded.LastUpdated == "" {
		t.Error("last_updated not stamped")
	}
	if loaded.EntryCount() != 3 {
		t.Errorf("EntryCount = %d, want 3", loaded.EntryCount())
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err == nil {
		t.Fatal("missing bible loaded")
	}
}
