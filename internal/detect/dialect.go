package detect

import (
	"fmt"
	"regexp"
	"strings"
)

// dialectMarkers maps a dialect to its tell-tale sentence endings and
// particles. Three hits from one dialect are required before guidance is
// emitted; single hits are too often quoted speech or coincidence.
var dialectMarkers = []struct {
	Name     string
	Guidance string
	Res      []*regexp.Regexp
}{
	{
		Name:     "Kansai",
		Guidance: "render as relaxed, direct colloquial English with dropped formality; do not use a regional English accent",
		Res: []*regexp.Regexp{
			regexp.MustCompile(`やねん`),
			regexp.MustCompile(`へんか?[。」]`),
			regexp.MustCompile(`ちゃう(ん|で|か)`),
			regexp.MustCompile(`せや(な|ろ|けど)?`),
			regexp.MustCompile(`あかん`),
			regexp.MustCompile(`おおきに`),
			regexp.MustCompile(`ほんま`),
		},
	},
	{
		Name:     "Tohoku",
		Guidance: "render as unhurried rural speech, simple vocabulary, no contraction-heavy slang; do not use a regional English accent",
		Res: []*regexp.Regexp{
			regexp.MustCompile(`だべ[。」]?`),
			regexp.MustCompile(`んだ(ず|べ)`),
			regexp.MustCompile(`けろ[。」]`),
		},
	},
	{
		Name:     "Hakata",
		Guidance: "render as warm, energetic colloquial English; do not use a regional English accent",
		Res: []*regexp.Regexp{
			regexp.MustCompile(`ばってん`),
			regexp.MustCompile(`と[よや]?[。」]`),
			regexp.MustCompile(`けん[。」]`),
		},
	},
}

// minDialectHits is the evidence floor before a dialect is reported.
const minDialectHits = 3

// DetectDialect scans for regional speech and returns a guidance block,
// or "" when the chapter reads as standard Japanese.
func DetectDialect(source string) string {
	bestName, bestGuidance, bestHits := "", "", 0
	for _, d := range dialectMarkers {
		hits := 0
		for _, re := range d.Res {
			hits += len(re.FindAllString(source, 10))
		}
		if hits > bestHits {
			bestName, bestGuidance, bestHits = d.Name, d.Guidance, hits
		}
	}
	if bestHits < minDialectHits {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("=== DIALECT GUIDANCE ===\n")
	fmt.Fprintf(&sb, "Detected %s-ben speech (%d markers). %s.\n", bestName, bestHits, bestGuidance)
	return sb.String()
}
