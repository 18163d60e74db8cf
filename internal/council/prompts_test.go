package council

import (
	"strings"
	"testing"

	"github.com/kingrea/council/internal/roster"
)

func TestDirectiveTextFallsBackToBalanced(t *testing.T) {
	if DirectiveText("no-such-directive") != directives[DirectiveBalanced] {
		t.Fatalf("unknown directive should fall back to balanced")
	}
	if DirectiveText("") != directives[DirectiveBalanced] {
		t.Fatalf("empty directive should fall back to balanced")
	}
	if DirectiveText(DirectiveRiskAverse) == directives[DirectiveBalanced] {
		t.Fatalf("known directive should resolve to its own text")
	}
}

func TestBuildCollectionPromptCombinesIdentityAndStance(t *testing.T) {
	p := roster.Participant{ID: "p1", SystemPrompt: "You are concise.", StancePrompt: "Favor primary sources."}
	prompt := BuildCollectionPrompt(p, "what changed?")
	if !strings.Contains(prompt.System, "You are concise.") || !strings.Contains(prompt.System, "Favor primary sources.") {
		t.Fatalf("system prompt missing fragments: %q", prompt.System)
	}
	if prompt.User != "what changed?" {
		t.Fatalf("query must pass through verbatim, got %q", prompt.User)
	}
}

func TestBuildEvaluationPromptCarriesMarkerAndPeers(t *testing.T) {
	peers := []LabeledResponse{
		{Label: "Response A", Content: "first answer"},
		{Label: "Response B", Content: "second answer"},
	}
	prompt := BuildEvaluationPrompt(roster.Participant{ID: "p3"}, "the question", peers)
	if !strings.Contains(prompt.User, RankingMarker) {
		t.Fatalf("evaluation prompt must instruct the marker line")
	}
	for _, peer := range peers {
		if !strings.Contains(prompt.User, peer.Label) || !strings.Contains(prompt.User, peer.Content) {
			t.Fatalf("peer %s missing from prompt", peer.Label)
		}
	}
}

func TestBuildSynthesisPromptDeanonymizes(t *testing.T) {
	turn := Turn{
		Query:  "the question",
		Stage1: stage1Fixture("p1", "p2"),
		Stage2: []Stage2Critique{critique("p1", "Response B")},
	}
	names := func(id string) string { return "Advisor " + id }
	prompt := BuildSynthesisPrompt(roster.Participant{ID: "chair"}, TurnInput{Directive: DirectiveNoveltySeeking}, turn, names)
	if !strings.Contains(prompt.User, "Advisor p1") || !strings.Contains(prompt.User, "Advisor p2") {
		t.Fatalf("synthesis prompt must name participants: %q", prompt.User)
	}
	if !strings.Contains(prompt.User, directives[DirectiveNoveltySeeking]) {
		t.Fatalf("directive text missing")
	}
}
