package chapter

import (
	"regexp"
	"strings"
)

// StripFences removes a markdown code fence wrapping the whole output.
// Models under instruction pressure still occasionally fence the chapter.
func StripFences(s string) string {
	text := strings.TrimSpace(s)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	end := strings.LastIndex(text, "```")
	if end <= 0 {
		return text
	}
	inner := text[:end]
	if idx := strings.IndexByte(inner, '\n'); idx >= 0 {
		inner = inner[idx+1:]
	} else {
		inner = strings.TrimPrefix(inner, "```")
	}
	return strings.TrimSpace(inner)
}

// sceneBreakRe matches a line consisting solely of asterisk-family runs,
// with optional interior spaces.
var sceneBreakRe = regexp.MustCompile(`^[\s]*[*∗✳＊][\s*∗✳＊]*[\s]*$`)

// FormatSceneBreaks replaces asterisk scene-break lines with a single ◆.
func FormatSceneBreaks(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if strings.ContainsAny(line, "*∗✳＊") && sceneBreakRe.MatchString(line) {
			lines[i] = "◆"
		}
	}
	return strings.Join(lines, "\n")
}
