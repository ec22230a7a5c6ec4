package detect

import "regexp"

// grammarPatterns maps a canonical pattern key to the regex that spots it.
// Keys double as lookup terms against the grammar pattern stores.
var grammarPatterns = []struct {
	Key string
	Re  *regexp.Regexp
}{
	{"てしまう", regexp.MustCompile(`て(しま|じま)[ぅうっお]`)},
	{"ざるを得ない", regexp.MustCompile(`ざるを得な`)},
	{"わけではない", regexp.MustCompile(`わけでは?な`)},
	{"ばかりか", regexp.MustCompile(`ばかりか`)},
	{"どころか", regexp.MustCompile(`どころか`)},
	{"ずにはいられない", regexp.MustCompile(`ずには?いられな`)},
	{"かのように", regexp.MustCompile(`かの(よう|様)に`)},
	{"にもかかわらず", regexp.MustCompile(`にも(かかわ|関わ)らず`)},
	{"はずがない", regexp.MustCompile(`はずが?な`)},
	{"に違いない", regexp.MustCompile(`に(違|ちが)いな`)},
	{"べきだ", regexp.MustCompile(`べき(だ|で|だった)`)},
	{"しかない", regexp.MustCompile(`しかな[いか]`)},
	{"ことになる", regexp.MustCompile(`ことに(なる|なった)`)},
	{"ようになる", regexp.MustCompile(`ように(なる|なった)`)},
	{"つもりだった", regexp.MustCompile(`つもり(だ|だった|で)`)},
}

// DetectGrammarPatterns returns the canonical keys of every Japanese
// grammar pattern present in the text, in declaration order.
func DetectGrammarPatterns(text string) []string {
	var out []string
	for _, p := range grammarPatterns {
		if p.Re.MatchString(text) {
			out = append(out, p.Key)
		}
	}
	return out
}
