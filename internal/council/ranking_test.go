package council

import (
	"reflect"
	"strings"
	"testing"
)

var liveLabels = []string{"Response A", "Response B", "Response C"}

func TestParseRankingFromMarkerLine(t *testing.T) {
	raw := "Response B is thorough but verbose. Response A misses the edge case.\n\n" +
		"FINAL RANKING: Response B, Response C, Response A\n"
	got := ParseRanking(raw, liveLabels)
	want := []string{"Response B", "Response C", "Response A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseRankingMarkerIsCaseInsensitive(t *testing.T) {
	raw := "final ranking:\n1. Response C\n2. Response A\n"
	got := ParseRanking(raw, liveLabels)
	want := []string{"Response C", "Response A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseRankingFallbackScansWholeText(t *testing.T) {
	raw := "I found Response C the strongest, then Response A. Response B was weakest."
	got := ParseRanking(raw, liveLabels)
	want := []string{"Response C", "Response A", "Response B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseRankingDedupesRepeatedLabels(t *testing.T) {
	raw := "FINAL RANKING: Response A, Response B, Response A"
	got := ParseRanking(raw, liveLabels)
	want := []string{"Response A", "Response B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseRankingIgnoresUnknownLabels(t *testing.T) {
	raw := "FINAL RANKING: Response Z, Response B"
	got := ParseRanking(raw, []string{"Response A", "Response B"})
	want := []string{"Response B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseRankingNoMatchesReturnsEmptyNotNil(t *testing.T) {
	got := ParseRanking("no labels anywhere in this critique", liveLabels)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %v", got)
	}
}

func TestParseRankingEmptyInputs(t *testing.T) {
	if got := ParseRanking("", liveLabels); len(got) != 0 {
		t.Fatalf("empty text: got %v", got)
	}
	if got := ParseRanking("FINAL RANKING: Response A", nil); len(got) != 0 {
		t.Fatalf("no labels: got %v", got)
	}
}

func TestParseRankingDoesNotMatchLongerTokens(t *testing.T) {
	labels := []string{"Response A", "Response AB"}
	raw := "FINAL RANKING: Response AB, Response A"
	got := ParseRanking(raw, labels)
	want := []string{"Response AB", "Response A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseRankingSurvivesCaseLengtheningRunes(t *testing.T) {
	// ɐ (U+0250) is 2 bytes; its upper-case form Ɐ (U+2C6F) is 3. A
	// marker offset taken from a folded copy of the text would point
	// past the end of the original here.
	raw := strings.Repeat("ɐ", 40) + "FINAL RANKING: Response A, Response B"
	got := ParseRanking(raw, liveLabels)
	want := []string{"Response A", "Response B"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestParseRankingEmptyMarkerFallsBack(t *testing.T) {
	raw := "Response B edges out Response A overall.\nFINAL RANKING:\n"
	got := ParseRanking(raw, liveLabels)
	want := []string{"Response B", "Response A"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
