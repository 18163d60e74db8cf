package council

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/council/internal/gateway"
	"github.com/kingrea/council/internal/roster"
)

// Strategic directive names. A directive is a swappable instruction
// fragment that governs how synthesis reconciles conflicting evidence;
// it is selected by configuration and consumed verbatim.
const (
	DirectiveBalanced       = "balanced"
	DirectiveRiskAverse     = "risk-averse"
	DirectiveNoveltySeeking = "novelty-seeking"
)

var directives = map[string]string{
	DirectiveBalanced: "Weigh every answer and critique on its merits. Where they disagree, " +
		"present the strongest supported position and note material dissent briefly.",
	DirectiveRiskAverse: "Prefer claims that multiple answers independently support. Where answers " +
		"disagree, favor the most conservative defensible position and flag uncertainty explicitly.",
	DirectiveNoveltySeeking: "Give extra weight to insights that only one answer surfaced, provided " +
		"the critiques do not refute them. Favor the most informative synthesis over the safest one.",
}

// DirectiveNames lists the known directives, sorted.
func DirectiveNames() []string {
	names := make([]string, 0, len(directives))
	for name := range directives {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DirectiveText resolves a directive by name. Unknown or empty names
// fall back to the balanced directive.
func DirectiveText(name string) string {
	if text, ok := directives[strings.TrimSpace(name)]; ok {
		return text
	}
	return directives[DirectiveBalanced]
}

// LabeledResponse pairs an opaque label with the answer text it hides.
type LabeledResponse struct {
	Label   string
	Content string
}

// attributionMarker introduces the optional structured credit block at
// the end of a synthesis response.
const attributionMarker = "ATTRIBUTION:"

// BuildCollectionPrompt assembles the stage-one prompt for one
// participant: its configured identity plus the raw query.
func BuildCollectionPrompt(p roster.Participant, query string) gateway.Prompt {
	system := strings.TrimSpace(p.SystemPrompt)
	if stance := strings.TrimSpace(p.StancePrompt); stance != "" {
		if system != "" {
			system += "\n\n"
		}
		system += stance
	}
	return gateway.Prompt{System: system, User: query}
}

// BuildEvaluationPrompt assembles the anonymized critique prompt. The
// peer set must already exclude the reviewer's own answer.
func BuildEvaluationPrompt(p roster.Participant, query string, peers []LabeledResponse) gateway.Prompt {
	var b strings.Builder
	b.WriteString("You are reviewing anonymous answers to a question. Judge only the text; ")
	b.WriteString("you do not know who wrote what.\n\n")
	fmt.Fprintf(&b, "Question:\n%s\n\n", query)
	for _, peer := range peers {
		fmt.Fprintf(&b, "%s:\n%s\n\n", peer.Label, peer.Content)
	}
	b.WriteString("Critique each answer: note factual errors, missing considerations, and relative strengths.\n")
	fmt.Fprintf(&b, "End your response with a line that reads exactly %q followed by the labels ", RankingMarker)
	b.WriteString("in order from best to worst, for example:\n")
	fmt.Fprintf(&b, "%s ", RankingMarker)
	b.WriteString(exampleRanking(peers))
	b.WriteString("\n")
	return gateway.Prompt{System: strings.TrimSpace(p.SystemPrompt), User: b.String()}
}

func exampleRanking(peers []LabeledResponse) string {
	labels := make([]string, 0, len(peers))
	for _, peer := range peers {
		labels = append(labels, peer.Label)
	}
	return strings.Join(labels, ", ")
}

// BuildSynthesisPrompt assembles the final prompt: the query, the
// de-anonymized answers, the peer critiques, the aggregate ranking, and
// the strategic directive. Synthesis is not blind — only evaluation is.
func BuildSynthesisPrompt(synthesizer roster.Participant, input TurnInput, turn Turn, names func(id string) string) gateway.Prompt {
	if names == nil {
		names = func(id string) string { return id }
	}
	var b strings.Builder
	b.WriteString("Several advisors answered the question below and then critiqued each other's ")
	b.WriteString("answers anonymously. Produce the single best final answer.\n\n")
	fmt.Fprintf(&b, "Directive: %s\n\n", DirectiveText(input.Directive))
	fmt.Fprintf(&b, "Question:\n%s\n\n", turn.Query)
	b.WriteString("Answers:\n")
	for _, r := range turn.Stage1 {
		fmt.Fprintf(&b, "--- %s ---\n%s\n\n", names(r.Participant), r.Content)
	}
	if len(turn.Stage2) > 0 {
		b.WriteString("Peer critiques (reviewers saw the answers anonymized):\n")
		for _, c := range turn.Stage2 {
			fmt.Fprintf(&b, "--- critique by %s ---\n%s\n\n", names(c.Participant), c.RawText)
		}
	}
	if turn.Metadata != nil && len(turn.Metadata.AggregateRankings) > 0 {
		b.WriteString("Aggregate peer ranking (lower average is better):\n")
		for _, agg := range turn.Metadata.AggregateRankings {
			if agg.AverageRank != nil {
				fmt.Fprintf(&b, "- %s: average %.2f over %d votes\n", names(agg.Participant), *agg.AverageRank, agg.RankingsCount)
			} else {
				fmt.Fprintf(&b, "- %s: not ranked by any reviewer\n", names(agg.Participant))
			}
		}
		b.WriteString("\n")
	}
	b.WriteString("Write the final answer. Then, on its own line, write ")
	fmt.Fprintf(&b, "%q followed by one line per advisor in the form ", attributionMarker)
	b.WriteString("\"name | weight between 0 and 1 | one-sentence reason\".\n")
	return gateway.Prompt{System: strings.TrimSpace(synthesizer.SystemPrompt), User: b.String()}
}
