package continuity

import "strings"

// Extract builds a chapter snapshot by scanning the translated text for
// the roster names and glossary terms that actually appear. Only terms the
// chapter used are carried forward; the next volume's pack stays bounded
// by what was on the page, not by the whole bible.
func Extract(chapterID string, chapterIndex int, translation string, roster, glossary map[string]string) Snapshot {
	s := Snapshot{
		ChapterID:    chapterID,
		ChapterIndex: chapterIndex,
	}

	for jp, en := range roster {
		if en != "" && strings.Contains(translation, en) {
			if s.Roster == nil {
				s.Roster = make(map[string]string)
			}
			s.Roster[jp] = en
		}
	}

	for jp, en := range glossary {
		if en != "" && strings.Contains(translation, en) {
			if s.Glossary == nil {
				s.Glossary = make(map[string]string)
			}
			s.Glossary[jp] = en
		}
	}

	return s
}
