package detect

import (
	"reflect"
	"strings"
	"testing"
)

func TestExtractKanjiCompounds(t *testing.T) {
	text := "魔王は魔王城で待つ。勇者が魔王を倒す。"
	got := ExtractKanjiCompounds(text, 2)
	// 魔王 twice (standalone), 魔王城 once, 勇者 once; single kanji 倒 is
	// never a candidate.
	want := []string{"魔王", "勇者"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestExtractKanjiCompoundsLongRunWindow(t *testing.T) {
	got := ExtractKanjiCompounds("魔法学園都市伝説", 1)
	if len(got) != 1 || got[0] != "魔法学園" {
		t.Errorf("got %v, want leading four-kanji window", got)
	}
	if len([]rune(got[0])) > 4 {
		t.Errorf("compound longer than four kanji: %q", got[0])
	}
}

func TestExtractKanjiCompoundsIgnoresSingles(t *testing.T) {
	if got := ExtractKanjiCompounds("僕は君が好きだ", 10); len(got) != 0 {
		t.Errorf("single kanji extracted: %v", got)
	}
}

func TestExtractKanjiCompoundsTieBreak(t *testing.T) {
	// Equal frequency: lexicographic order keeps output deterministic.
	got := ExtractKanjiCompounds("勇者と魔王", 2)
	if len(got) != 2 || !(got[0] < got[1]) {
		t.Errorf("tie break not lexicographic: %v", got)
	}
}

func TestExtractKanjiCompoundsTopNClamped(t *testing.T) {
	got := ExtractKanjiCompounds("魔王", 100)
	if len(got) != 1 {
		t.Errorf("got %v", got)
	}
	all := ExtractKanjiCompounds("魔王と勇者", 0)
	if len(all) != 2 {
		t.Errorf("topN <= 0 should return all: %v", all)
	}
}

func TestDetectGrammarPatterns(t *testing.T) {
	text := "忘れてしまった。行かざるを得ない。嫌いなわけではない。"
	got := DetectGrammarPatterns(text)
	want := []string{"てしまう", "ざるを得ない", "わけではない"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestDetectGrammarPatternsColloquialVariants(t *testing.T) {
	got := DetectGrammarPatterns("食べちゃった、いや、食べてじまったんだ")
	found := false
	for _, k := range got {
		if k == "てしまう" {
			found = true
		}
	}
	if !found {
		t.Errorf("contracted てじまう form missed: %v", got)
	}
}

func TestDetectGrammarPatternsNone(t *testing.T) {
	if got := DetectGrammarPatterns("おはようございます"); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}

func TestDetectGrammarPatternsDeclarationOrder(t *testing.T) {
	// かのように appears first in the text but later in the pattern table.
	text := "かのように笑った。しかし、行ってしまった。"
	got := DetectGrammarPatterns(text)
	if len(got) < 2 || got[0] != "てしまう" {
		t.Errorf("output not in declaration order: %v", got)
	}
}

func TestDetectDialectKansai(t *testing.T) {
	got := DetectDialect("なんでやねん。そんなんあかんで。ほんまかいな。")
	if got == "" {
		t.Fatal("Kansai speech not detected")
	}
	if !strings.Contains(got, "Kansai-ben") {
		t.Errorf("guidance = %q", got)
	}
	if !strings.Contains(got, "=== DIALECT GUIDANCE ===") {
		t.Errorf("missing heading: %q", got)
	}
}

func TestDetectDialectNeedsThreeHits(t *testing.T) {
	// Two markers read as quoted speech, not a dialect speaker.
	if got := DetectDialect("あかん。ほんま。"); got != "" {
		t.Errorf("two hits reported: %q", got)
	}
}

func TestDetectDialectStandardJapanese(t *testing.T) {
	if got := DetectDialect("今日はいい天気ですね。散歩に行きましょう。"); got != "" {
		t.Errorf("standard Japanese flagged: %q", got)
	}
}
