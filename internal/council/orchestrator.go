package council

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kingrea/council/internal/events"
	"github.com/kingrea/council/internal/gateway"
	"github.com/kingrea/council/internal/roster"
)

// Phase tracks where a turn is in the pipeline.
type Phase string

const (
	PhaseCollecting   Phase = "collecting"
	PhaseEvaluating   Phase = "evaluating"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseCommitted    Phase = "committed"
	PhaseFailed       Phase = "failed"
)

// ErrNoResponses marks the fatal case where every stage-one call
// failed. Evaluation and synthesis are never attempted.
var ErrNoResponses = errors.New("council: every stage-one call failed")

// ErrSynthesisFailed marks a turn whose final synthesis call exhausted
// its retries. Everything before synthesis is discarded with it.
var ErrSynthesisFailed = errors.New("council: synthesis call failed")

// Caller issues one bounded completion call on behalf of a participant.
// *gateway.Gateway satisfies it; tests substitute fakes.
type Caller interface {
	Call(ctx context.Context, p roster.Participant, prompt gateway.Prompt) gateway.Outcome
}

// Logger records orchestration diagnostics.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Orchestrator sequences one turn: collection, anonymized evaluation,
// and synthesis. Per-call and per-parse failures are absorbed along the
// way; only zero stage-one successes or a failed synthesis abort a turn.
type Orchestrator struct {
	caller    Caller
	registry  *roster.Registry
	logger    Logger
	clock     func() time.Time
	directive string
}

// Option customizes the orchestrator.
type Option func(*Orchestrator)

// WithLogger injects a diagnostics logger.
func WithLogger(l Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithDefaultDirective sets the directive used when a turn does not
// name one. Unknown directives still fall back to balanced.
func WithDefaultDirective(directive string) Option {
	return func(o *Orchestrator) {
		o.directive = directive
	}
}

// WithClock injects a deterministic clock (primarily for tests).
func WithClock(clock func() time.Time) Option {
	return func(o *Orchestrator) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// NewOrchestrator wires the pipeline to a gateway and a participant
// registry.
func NewOrchestrator(caller Caller, registry *roster.Registry, opts ...Option) (*Orchestrator, error) {
	if caller == nil {
		return nil, fmt.Errorf("council: caller is required")
	}
	if registry == nil {
		return nil, fmt.Errorf("council: registry is required")
	}
	o := &Orchestrator{
		caller:   caller,
		registry: registry,
		logger:   nopLogger{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o, nil
}

// Run executes one full turn and reports stage boundaries through sink.
// The returned turn carries its ephemeral metadata; persisting it is
// the caller's concern. Terminal completed/failed events belong to the
// run owner, not to Run.
func (o *Orchestrator) Run(ctx context.Context, runID string, input TurnInput, sink events.Sink) (Turn, error) {
	if sink == nil {
		sink = events.SinkFunc(nil)
	}
	if input.Directive == "" {
		input.Directive = o.directive
	}
	turn := Turn{Query: input.Query, CreatedAt: o.clock().UTC()}
	participants := o.registry.Enabled()

	sink.Publish(events.CollectingStarted(runID, len(participants)))
	turn.Stage1 = o.collect(ctx, participants, input.Query)
	if len(turn.Stage1) == 0 {
		return Turn{}, ErrNoResponses
	}
	labels := AssignLabels(turn.Stage1)
	sink.Publish(events.CollectingDone(runID, participantIDs(turn.Stage1)))

	sink.Publish(events.EvaluatingStarted(runID, len(turn.Stage1)))
	turn.Stage2 = o.evaluate(ctx, turn.Stage1, labels, input.Query)
	turn.Metadata = &TurnMetadata{
		LabelToParticipant: labels.Snapshot(),
		AggregateRankings:  AggregateRankings(turn.Stage2, labels, participantIDs(turn.Stage1)),
	}
	sink.Publish(events.EvaluatingDone(runID, critiqueIDs(turn.Stage2)))

	synthesizer := o.registry.Synthesizer()
	sink.Publish(events.SynthesizingStarted(runID, synthesizer.ID))
	stage3, err := o.synthesize(ctx, synthesizer, input, turn)
	if err != nil {
		return Turn{}, err
	}
	turn.Stage3 = &stage3
	sink.Publish(events.SynthesizingDone(runID, synthesizer.ID))
	return turn, nil
}

// collect fans out to every enabled participant and recombines the
// successes in declared order, regardless of completion order.
func (o *Orchestrator) collect(ctx context.Context, participants []roster.Participant, query string) []Stage1Response {
	outcomes := make([]gateway.Outcome, len(participants))
	var g errgroup.Group
	for i, p := range participants {
		i, p := i, p
		g.Go(func() error {
			outcomes[i] = o.caller.Call(ctx, p, BuildCollectionPrompt(p, query))
			return nil
		})
	}
	_ = g.Wait()

	responses := make([]Stage1Response, 0, len(participants))
	for i, outcome := range outcomes {
		if !outcome.OK() {
			o.logger.Printf("council: stage1 %s dropped: %v", participants[i].ID, outcome.Err)
			continue
		}
		responses = append(responses, Stage1Response{Participant: participants[i].ID, Content: outcome.Content})
	}
	return responses
}

// evaluate runs the anonymized critique fan-out. Each reviewer ranks
// the peer set excluding its own answer. A failed call drops the
// reviewer from the results; a failed parse keeps the critique with an
// empty ranking. With a single survivor there are no peers to rank and
// evaluation is skipped entirely.
func (o *Orchestrator) evaluate(ctx context.Context, stage1 []Stage1Response, labels LabelMap, query string) []Stage2Critique {
	if len(stage1) < 2 {
		return []Stage2Critique{}
	}
	results := make([]*Stage2Critique, len(stage1))
	var g errgroup.Group
	for i, response := range stage1 {
		i, response := i, response
		reviewer, ok := o.registry.Lookup(response.Participant)
		if !ok {
			continue
		}
		peers, peerLabels := peerSet(stage1, labels, response.Participant)
		g.Go(func() error {
			outcome := o.caller.Call(ctx, reviewer, BuildEvaluationPrompt(reviewer, query, peers))
			if !outcome.OK() {
				o.logger.Printf("council: stage2 %s dropped: %v", reviewer.ID, outcome.Err)
				return nil
			}
			results[i] = &Stage2Critique{
				Participant:   reviewer.ID,
				RawText:       outcome.Content,
				ParsedRanking: ParseRanking(outcome.Content, peerLabels),
			}
			return nil
		})
	}
	_ = g.Wait()

	critiques := make([]Stage2Critique, 0, len(stage1))
	for _, c := range results {
		if c != nil {
			critiques = append(critiques, *c)
		}
	}
	return critiques
}

// peerSet builds the anonymized view one reviewer sees: every surviving
// answer except its own, in label order.
func peerSet(stage1 []Stage1Response, labels LabelMap, reviewer string) ([]LabeledResponse, []string) {
	peers := make([]LabeledResponse, 0, len(stage1)-1)
	peerLabels := make([]string, 0, len(stage1)-1)
	for _, r := range stage1 {
		if r.Participant == reviewer {
			continue
		}
		label, ok := labels.Label(r.Participant)
		if !ok {
			continue
		}
		peers = append(peers, LabeledResponse{Label: label, Content: r.Content})
		peerLabels = append(peerLabels, label)
	}
	return peers, peerLabels
}

// synthesize issues the single de-anonymized synthesis call and parses
// the optional attribution block from its output.
func (o *Orchestrator) synthesize(ctx context.Context, synthesizer roster.Participant, input TurnInput, turn Turn) (Stage3Synthesis, error) {
	names := func(id string) string {
		if p, ok := o.registry.Lookup(id); ok {
			return p.DisplayName()
		}
		return id
	}
	outcome := o.caller.Call(ctx, synthesizer, BuildSynthesisPrompt(synthesizer, input, turn, names))
	if !outcome.OK() {
		return Stage3Synthesis{}, fmt.Errorf("%w: %v", ErrSynthesisFailed, outcome.Err)
	}
	attribution, content := ParseAttribution(outcome.Content, o.resolveName)
	return Stage3Synthesis{Participant: synthesizer.ID, Content: content, Attribution: attribution}, nil
}

// resolveName maps a display name from an attribution line back to the
// participant ID.
func (o *Orchestrator) resolveName(name string) (string, bool) {
	for _, p := range o.registry.All() {
		if p.DisplayName() == name || p.ID == name {
			return p.ID, true
		}
	}
	return "", false
}

func participantIDs(responses []Stage1Response) []string {
	ids := make([]string, len(responses))
	for i, r := range responses {
		ids[i] = r.Participant
	}
	return ids
}

func critiqueIDs(critiques []Stage2Critique) []string {
	ids := make([]string, len(critiques))
	for i, c := range critiques {
		ids[i] = c.Participant
	}
	return ids
}
