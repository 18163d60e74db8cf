package council

import (
	"strings"
	"testing"
)

func resolveFixture(name string) (string, bool) {
	known := map[string]string{"Sage": "p1", "Critic": "p2"}
	id, ok := known[name]
	return id, ok
}

func TestParseAttributionBlock(t *testing.T) {
	raw := "The final answer.\n\nATTRIBUTION:\nSage | 0.7 | carried the core argument\nCritic | 0.3 | caught the error\n"
	entries, content := ParseAttribution(raw, resolveFixture)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Participant != "p1" || entries[0].Weight != 0.7 {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].Reason != "caught the error" {
		t.Fatalf("unexpected reason: %q", entries[1].Reason)
	}
	if content != "The final answer." {
		t.Fatalf("content should exclude the block, got %q", content)
	}
}

func TestParseAttributionMissingBlockIsNonFatal(t *testing.T) {
	raw := "Just a final answer with no credits."
	entries, content := ParseAttribution(raw, resolveFixture)
	if entries != nil {
		t.Fatalf("expected nil entries, got %v", entries)
	}
	if content != raw {
		t.Fatalf("content should be untouched")
	}
}

func TestParseAttributionGarbageLinesAreSkipped(t *testing.T) {
	raw := "Answer.\nATTRIBUTION:\nnot a valid line\nSage | not-a-number | nope\nCritic | 1.0\n"
	entries, _ := ParseAttribution(raw, resolveFixture)
	if len(entries) != 1 {
		t.Fatalf("expected 1 surviving entry, got %d", len(entries))
	}
	if entries[0].Participant != "p2" || entries[0].Weight != 1.0 {
		t.Fatalf("unexpected entry: %+v", entries[0])
	}
}

func TestParseAttributionAllGarbageReturnsOriginalText(t *testing.T) {
	raw := "Answer.\nATTRIBUTION:\nnothing | parseable here at all\n"
	entries, content := ParseAttribution(raw, resolveFixture)
	if entries != nil {
		t.Fatalf("expected nil entries, got %v", entries)
	}
	if content != raw {
		t.Fatalf("content should be untouched when no entry parses")
	}
}

func TestParseAttributionSurvivesCaseLengtheningRunes(t *testing.T) {
	// Upper-casing ɐ (2 bytes) yields Ɐ (3 bytes), so a marker offset
	// computed on a folded copy would overrun the original text.
	raw := strings.Repeat("ɐ", 40) + "\nATTRIBUTION:\nSage | 0.7 | carried the argument\n"
	entries, content := ParseAttribution(raw, resolveFixture)
	if len(entries) != 1 || entries[0].Participant != "p1" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if !strings.HasPrefix(content, "ɐ") || strings.Contains(content, "ATTRIBUTION") {
		t.Fatalf("content should keep the prose and drop the block, got %q", content)
	}
}

func TestParseAttributionKeepsUnresolvableNames(t *testing.T) {
	raw := "Answer.\nATTRIBUTION:\nUnknown Advisor | 0.5 | contributed context\n"
	entries, _ := ParseAttribution(raw, resolveFixture)
	if len(entries) != 1 || entries[0].Participant != "Unknown Advisor" {
		t.Fatalf("expected raw name kept, got %+v", entries)
	}
}
