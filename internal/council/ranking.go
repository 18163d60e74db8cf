package council

import (
	"sort"
	"strings"
	"unicode"
)

// RankingMarker introduces the machine-readable portion of a critique.
// Evaluation prompts instruct participants to end with this line.
const RankingMarker = "FINAL RANKING:"

// ParseRanking extracts an ordered list of known labels from free-text
// critique output. Two-tier grammar: the text after the marker line is
// parsed first; when the marker is missing or yields nothing, the whole
// text is scanned for label occurrences in first-appearance order. The
// result contains each live label at most once and is never nil — an
// unparseable critique yields an empty list, not an error.
func ParseRanking(raw string, labels []string) []string {
	if strings.TrimSpace(raw) == "" || len(labels) == 0 {
		return []string{}
	}
	if tail, found := textAfterMarker(raw); found {
		if ranked := labelsInOrder(tail, labels); len(ranked) > 0 {
			return ranked
		}
	}
	return labelsInOrder(raw, labels)
}

// textAfterMarker returns everything following the first marker
// occurrence, matched case-insensitively.
func textAfterMarker(raw string) (string, bool) {
	idx := markerIndex(raw, RankingMarker)
	if idx < 0 {
		return "", false
	}
	return raw[idx+len(RankingMarker):], true
}

// markerIndex finds the first case-insensitive occurrence of marker by
// comparing byte windows of the original string. Folding a copy of the
// whole text and indexing into that is not safe: upper-casing can change
// a rune's byte length, leaving offsets that do not exist in raw.
func markerIndex(raw, marker string) int {
	for i := 0; i+len(marker) <= len(raw); i++ {
		if strings.EqualFold(raw[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}

// lastMarkerIndex is markerIndex scanning from the end.
func lastMarkerIndex(raw, marker string) int {
	for i := len(raw) - len(marker); i >= 0; i-- {
		if strings.EqualFold(raw[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}

// labelsInOrder finds the first occurrence of each label and returns
// the labels sorted by where they appear. Matching is case-insensitive
// and refuses matches that run into a longer token, so "Response A"
// never matches inside "Response AB".
func labelsInOrder(text string, labels []string) []string {
	upper := strings.ToUpper(text)
	type hit struct {
		pos   int
		label string
	}
	hits := make([]hit, 0, len(labels))
	for _, label := range labels {
		if pos := findToken(upper, strings.ToUpper(label)); pos >= 0 {
			hits = append(hits, hit{pos: pos, label: label})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.label)
	}
	return out
}

// findToken locates the first occurrence of token in text that is not
// immediately followed by a letter or digit.
func findToken(text, token string) int {
	offset := 0
	for {
		idx := strings.Index(text[offset:], token)
		if idx < 0 {
			return -1
		}
		abs := offset + idx
		end := abs + len(token)
		if end >= len(text) || !isWordByte(text[end]) {
			return abs
		}
		offset = abs + 1
	}
}

func isWordByte(b byte) bool {
	return unicode.IsLetter(rune(b)) || unicode.IsDigit(rune(b))
}
