package rag

import (
	"strings"
	"testing"
)

func TestDomainHint(t *testing.T) {
	tests := []struct {
		name  string
		input string
		// hinted inputs gain a romanization prefix and keep the original
		hinted bool
	}{
		{"short compound", "魔王", true},
		{"four characters", "魔法学園", true},
		{"five characters pass through", "魔法学園都市", false},
		{"mixed script passes through", "魔王さま", false},
		{"latin passes through", "maou", false},
		{"empty", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DomainHint(tt.input)
			if !tt.hinted {
				if got != tt.input {
					t.Errorf("DomainHint(%q) = %q, want unchanged", tt.input, got)
				}
				return
			}
			if !strings.HasSuffix(got, " | "+tt.input) {
				t.Errorf("DomainHint(%q) = %q, want romanization prefix + original", tt.input, got)
			}
			if strings.HasPrefix(got, " | ") {
				t.Errorf("DomainHint(%q) produced empty romanization: %q", tt.input, got)
			}
		})
	}
}

func TestDomainHintDisambiguates(t *testing.T) {
	a := DomainHint("生物") // seibutsu / namamono ambiguity aside, reading differs from:
	b := DomainHint("生地")
	if a == b {
		t.Errorf("distinct compounds hinted identically: %q", a)
	}
}

func TestIndexText(t *testing.T) {
	p := SourcePattern{
		PatternID:  "en_caus_pass_01",
		Category:   "causative_passive",
		Structure:  "V-させられる",
		Indicators: []string{"させられ", "させられた"},
	}
	ex := SourceExample{Source: "宿題をやらせられた", Target: "I got roped into doing the homework"}

	got := IndexText(p, ex)
	for _, want := range []string{
		"Structure: V-させられる",
		"Indicators: させられ, させられた",
		"Example: 宿題をやらせられた",
		"Natural: I got roped into doing the homework",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("IndexText missing %q:\n%s", want, got)
		}
	}
}

func TestIndexTextMinimal(t *testing.T) {
	got := IndexText(SourcePattern{}, SourceExample{Source: "魔王"})
	if strings.Contains(got, "Structure:") || strings.Contains(got, "Indicators:") || strings.Contains(got, "Natural:") {
		t.Errorf("empty fields rendered: %q", got)
	}
	if !strings.Contains(got, "魔王") {
		t.Errorf("source missing: %q", got)
	}
}
