package chapter

import (
	"strings"
	"testing"
)

func TestScrubCJK(t *testing.T) {
	got, leaks := ScrubCJK("Hắn là ma王 của 魔界")
	if leaks != 1 {
		t.Errorf("leaks = %d, want 1 (界 has no entry)", leaks)
	}
	if !strings.Contains(got, "vương") {
		t.Errorf("王 not substituted: %q", got)
	}
	if !strings.Contains(got, "ma") {
		t.Errorf("魔 not substituted: %q", got)
	}
	if !strings.Contains(got, "界") {
		t.Errorf("unknown hanzi dropped instead of kept: %q", got)
	}
}

func TestScrubCJKClean(t *testing.T) {
	in := "Một buổi sáng bình thường."
	got, leaks := ScrubCJK(in)
	if got != in || leaks != 0 {
		t.Errorf("clean text altered: %q leaks=%d", got, leaks)
	}
}

func TestScrubCJKKanaNotCounted(t *testing.T) {
	// Kana is not Han; it neither substitutes nor counts as a leak here.
	_, leaks := ScrubCJK("ですます")
	if leaks != 0 {
		t.Errorf("kana counted as leak: %d", leaks)
	}
}
