package chapter

import (
	"strings"
	"unicode"
)

// hanViet maps hanzi that commonly leak into Vietnamese output to their
// Hán-Việt readings. The table is deliberately conservative: only
// single-character terms with one dominant reading, so a substitution can
// never be wrong in context.
var hanViet = map[rune]string{
	'人': "nhân",
	'大': "đại",
	'小': "tiểu",
	'天': "thiên",
	'地': "địa",
	'王': "vương",
	'神': "thần",
	'魔': "ma",
	'龍': "long",
	'竜': "long",
	'剣': "kiếm",
	'劍': "kiếm",
	'学': "học",
	'學': "học",
	'生': "sinh",
	'先': "tiên",
	'国': "quốc",
	'國': "quốc",
	'山': "sơn",
	'海': "hải",
	'火': "hỏa",
	'水': "thủy",
	'風': "phong",
	'雷': "lôi",
	'光': "quang",
	'闇': "ám",
	'聖': "thánh",
	'帝': "đế",
	'皇': "hoàng",
	'姫': "cơ",
	'公': "công",
	'主': "chủ",
	'師': "sư",
	'士': "sĩ",
	'兵': "binh",
	'軍': "quân",
	'城': "thành",
	'塔': "tháp",
	'門': "môn",
	'書': "thư",
	'花': "hoa",
	'月': "nguyệt",
	'星': "tinh",
	'金': "kim",
	'銀': "ngân",
	'鉄': "thiết",
	'心': "tâm",
	'気': "khí",
	'氣': "khí",
	'力': "lực",
	'術': "thuật",
	'法': "pháp",
	'道': "đạo",
	'武': "võ",
	'文': "văn",
	'一': "nhất",
	'二': "nhị",
	'三': "tam",
}

// ScrubCJK replaces known hanzi with their Hán-Việt readings and returns
// the scrubbed text plus the count of CJK runes that remain. Never fatal;
// the caller logs a nonzero leak count.
func ScrubCJK(s string) (string, int) {
	var sb strings.Builder
	sb.Grow(len(s))
	leaks := 0
	for _, r := range s {
		if hv, ok := hanViet[r]; ok {
			sb.WriteString(hv)
			continue
		}
		if unicode.Is(unicode.Han, r) {
			leaks++
		}
		sb.WriteRune(r)
	}
	return sb.String(), leaks
}
