package manifest

import "testing"

func titlesOf(m *Manifest, lang string) []string {
	out := make([]string, len(m.Chapters))
	for i, ch := range m.Chapters {
		out[i] = ch.Title(lang)
	}
	return out
}

func TestNormalizeTitlesReplacesDuplicates(t *testing.T) {
	m := &Manifest{Chapters: []*Chapter{
		{ID: "chapter_01", TitleEN: "The Transfer Student"},
		{ID: "chapter_02", TitleEN: "The Transfer Student"},
		{ID: "chapter_03", TitleEN: "Culture Festival"},
	}}
	changed := NormalizeTitles(m, "en")
	if changed != 2 {
		t.Errorf("changed = %d, want 2", changed)
	}
	got := titlesOf(m, "en")
	want := []string{"Chapter 1", "Chapter 2", "Culture Festival"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chapter %d title = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestNormalizeTitlesNumberMismatch(t *testing.T) {
	m := &Manifest{Chapters: []*Chapter{
		{ID: "chapter_04", TitleEN: "Chapter 5: A Rainy Day"}, // wrong number
		{ID: "chapter_05", TitleEN: "Chapter 5: The Promise"}, // right number
	}}
	NormalizeTitles(m, "en")
	if got := m.Chapters[0].TitleEN; got != "Chapter 4" {
		t.Errorf("mismatched title kept: %q", got)
	}
	if got := m.Chapters[1].TitleEN; got != "Chapter 5: The Promise" {
		t.Errorf("correct title replaced: %q", got)
	}
}

func TestNormalizeTitlesLeavesNumberFreeTitles(t *testing.T) {
	m := &Manifest{Chapters: []*Chapter{
		{ID: "chapter_01", TitleEN: "First Meeting"},
		{ID: "chapter_02", TitleEN: "Second Thoughts"}, // "Second" carries no digit
	}}
	if changed := NormalizeTitles(m, "en"); changed != 0 {
		t.Errorf("number-free titles replaced: %d changes", changed)
	}
}

func TestNormalizeTitlesFillsEmpty(t *testing.T) {
	m := &Manifest{Chapters: []*Chapter{
		{ID: "chapter_01"},
		{ID: "epilogue"},
	}}
	NormalizeTitles(m, "en")
	if m.Chapters[0].TitleEN != "Chapter 1" {
		t.Errorf("empty title not filled: %q", m.Chapters[0].TitleEN)
	}
	if m.Chapters[1].TitleEN != "Epilogue" {
		t.Errorf("epilogue title = %q", m.Chapters[1].TitleEN)
	}
}

func TestNormalizeTitlesIdempotent(t *testing.T) {
	m := &Manifest{Chapters: []*Chapter{
		{ID: "chapter_01", TitleEN: "Chapter 2"},
		{ID: "chapter_02", TitleEN: "Chapter 2"},
		{ID: "chapter_03"},
	}}
	NormalizeTitles(m, "en")
	first := titlesOf(m, "en")
	if changed := NormalizeTitles(m, "en"); changed != 0 {
		t.Errorf("second run changed %d titles", changed)
	}
	second := titlesOf(m, "en")
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("chapter %d drifted: %q -> %q", i, first[i], second[i])
		}
	}
}

func TestNormalizeTitlesVietnamese(t *testing.T) {
	m := &Manifest{Chapters: []*Chapter{
		{ID: "chapter_01", TitleVI: "Chương 3"},
	}}
	NormalizeTitles(m, "vi")
	if m.Chapters[0].TitleVI != "Chapter 1" {
		t.Errorf("vi title = %q", m.Chapters[0].TitleVI)
	}
	if m.Chapters[0].TitleEN != "" {
		t.Error("en title touched on a vi run")
	}
}
