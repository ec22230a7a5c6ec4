package manifest

import (
	"regexp"
	"strconv"
)

var titleNumRe = regexp.MustCompile(`\d+`)

// NormalizeTitles rewrites chapter titles that are duplicated across
// chapters or that carry a number contradicting the chapter id. Titles the
// model invented for the wrong chapter are a real failure mode: without
// this pass two chapters can end up sharing "Chapter 5".
//
// The operation is idempotent: canonical titles always survive a second run.
func NormalizeTitles(m *Manifest, lang string) int {
	counts := make(map[string]int)
	for _, ch := range m.Chapters {
		if t := ch.Title(lang); t != "" {
			counts[t]++
		}
	}

	changed := 0
	for _, ch := range m.Chapters {
		canonical := CanonicalTitle(ch.ID)
		title := ch.Title(lang)
		if title == "" {
			ch.SetTitle(lang, canonical)
			changed++
			continue
		}
		if title == canonical {
			continue
		}
		if counts[title] > 1 || titleNumberMismatch(title, ch.ID) {
			ch.SetTitle(lang, canonical)
			changed++
		}
	}
	return changed
}

// titleNumberMismatch reports whether a title carries a chapter number
// different from the one in the chapter id. Titles without any number
// (e.g. a translated subtitle) are left alone.
func titleNumberMismatch(title, id string) bool {
	want := ChapterNumber(id)
	if want == 0 {
		return false
	}
	match := titleNumRe.FindString(title)
	if match == "" {
		return false
	}
	got, err := strconv.Atoi(match)
	if err != nil {
		return false
	}
	return got != want
}
