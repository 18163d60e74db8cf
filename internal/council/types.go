package council

import "time"

// Stage1Response is one participant's direct answer to the query.
// Only successful collection calls produce an entry; the slice keeps
// the participants' declared order.
type Stage1Response struct {
	Participant string `json:"participant"`
	Content     string `json:"content"`
}

// Stage2Critique is one participant's anonymized peer review. A
// critique whose ranking could not be parsed still appears here with an
// empty ParsedRanking.
type Stage2Critique struct {
	Participant   string   `json:"participant"`
	RawText       string   `json:"raw_text"`
	ParsedRanking []string `json:"parsed_ranking"`
}

// AttributionEntry credits one participant's influence on the final
// synthesis.
type AttributionEntry struct {
	Participant string  `json:"participant"`
	Weight      float64 `json:"weight"`
	Reason      string  `json:"reason,omitempty"`
}

// Stage3Synthesis is the final answer produced by the designated
// synthesizer, with an optional parsed attribution block.
type Stage3Synthesis struct {
	Participant string             `json:"participant"`
	Content     string             `json:"content"`
	Attribution []AttributionEntry `json:"attribution,omitempty"`
}

// AggregateRanking summarizes how peers placed one candidate. A
// candidate no voter mentioned has RankingsCount zero and a nil
// AverageRank; such entries sort after every scored candidate.
type AggregateRanking struct {
	Participant   string   `json:"participant"`
	AverageRank   *float64 `json:"average_rank,omitempty"`
	RankingsCount int      `json:"rankings_count"`
}

// TurnMetadata is the ephemeral by-product of a turn: the label
// bijection and the aggregate ranking. It is returned to the run's own
// caller and never persisted with the conversation history.
type TurnMetadata struct {
	LabelToParticipant map[string]string  `json:"label_to_participant"`
	AggregateRankings  []AggregateRanking `json:"aggregate_rankings"`
}

// Turn is the immutable record of one fully processed query. Only the
// orchestrator executing the run mutates it; once committed to the
// store it is append-only history.
type Turn struct {
	Query     string           `json:"query"`
	Stage1    []Stage1Response `json:"stage1"`
	Stage2    []Stage2Critique `json:"stage2"`
	Stage3    *Stage3Synthesis `json:"stage3,omitempty"`
	Metadata  *TurnMetadata    `json:"metadata,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

// TurnInput carries everything a run needs from its caller.
type TurnInput struct {
	Query     string
	Directive string
}
