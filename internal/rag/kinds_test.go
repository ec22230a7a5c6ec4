package rag

import "testing"

func TestKindPriority(t *testing.T) {
	tests := []struct {
		kind     Kind
		category string
		want     int
	}{
		{KindEnglish, "causative_passive", 9},
		{KindEnglish, "keigo", 8},
		{KindEnglish, "unknown_category", 5},
		{KindSinoVietnamese, "homograph", 10},
		{KindSinoVietnamese, "false_friend", 9},
		{KindSinoVietnamese, "unknown_category", 4},
		{KindVietnameseGrammar, "classifier", 8},
		{KindAIisms, "purple_prose", 7},
	}
	for _, tt := range tests {
		if got := tt.kind.Priority(tt.category); got != tt.want {
			t.Errorf("%s.Priority(%q) = %d, want %d", tt.kind, tt.category, got, tt.want)
		}
	}
}

func TestKindConfig(t *testing.T) {
	if got := KindSinoVietnamese.Config().InjectThreshold; got != 0.85 {
		t.Errorf("sino inject threshold = %v", got)
	}
	if got := KindVietnameseGrammar.Config().InjectThreshold; got != 0.70 {
		t.Errorf("vi grammar inject threshold = %v", got)
	}
	// Unknown kinds fall back to English tuning.
	if got := Kind("bogus").Config().InjectThreshold; got != 0.78 {
		t.Errorf("unknown kind inject threshold = %v", got)
	}
}
