package detect

import (
	"strings"
	"testing"
)

func flagsOfKind(flags []GapFlag, kind string) []GapFlag {
	var out []GapFlag
	for _, f := range flags {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

func TestFindGapsEmotionAction(t *testing.T) {
	flags := FindGaps("彼女は怒りに震えていた。")
	got := flagsOfKind(flags, GapEmotionAction)
	if len(got) != 1 {
		t.Fatalf("flags = %+v", flags)
	}
	if !strings.Contains(got[0].Excerpt, "怒り") {
		t.Errorf("excerpt = %q", got[0].Excerpt)
	}
}

func TestFindGapsKiraKiraRuby(t *testing.T) {
	flags := FindGaps("必殺技、|黒炎竜《ブラックドラゴン》！")
	got := flagsOfKind(flags, GapRubyJoke)
	if len(got) != 1 {
		t.Fatalf("flags = %+v", flags)
	}
	if got[0].Excerpt != "黒炎竜《ブラックドラゴン》" {
		t.Errorf("excerpt = %q", got[0].Excerpt)
	}
}

func TestFindGapsGhostRuby(t *testing.T) {
	// Hiragana reading over a name: romanize, no footnote.
	flags := FindGaps("転校生の｜八重樫《やえがし》さん")
	got := flagsOfKind(flags, GapGhostRuby)
	if len(got) != 1 {
		t.Fatalf("flags = %+v", flags)
	}
}

func TestFindGapsRubyOverKanaIgnored(t *testing.T) {
	// Katakana base under katakana reading carries no hidden joke.
	flags := FindGaps("ドラゴン《ドラゴン》")
	if len(flags) != 0 {
		t.Errorf("flags = %+v", flags)
	}
}

func TestFindGapsSarcasm(t *testing.T) {
	flags := FindGaps("「へえ…」と彼は言った。「はいはい」")
	got := flagsOfKind(flags, GapSarcasm)
	if len(got) != 2 {
		t.Fatalf("flags = %+v", flags)
	}
}

func TestFindGapsCleanText(t *testing.T) {
	if flags := FindGaps("今日は学校に行った。楽しかった。"); len(flags) != 0 {
		t.Errorf("clean text flagged: %+v", flags)
	}
}

func TestFormatGaps(t *testing.T) {
	if got := FormatGaps(nil); got != "" {
		t.Errorf("empty flags rendered %q", got)
	}
	got := FormatGaps([]GapFlag{{Kind: GapSarcasm, Excerpt: "「へえ」", Hint: "keep it dry"}})
	if !strings.Contains(got, "=== TRANSLATION GAP NOTES ===") {
		t.Errorf("missing heading: %q", got)
	}
	if !strings.Contains(got, "[sarcasm] 「へえ」: keep it dry") {
		t.Errorf("missing flag line: %q", got)
	}
}
