package events

import "time"

// Type enumerates the closed set of progress events a deliberation run
// can emit. Consumers dispatch on this value; each type documents which
// payload fields it populates.
type Type string

const (
	TypeCollectingStarted   Type = "collecting_started"
	TypeCollectingDone      Type = "collecting_done"
	TypeEvaluatingStarted   Type = "evaluating_started"
	TypeEvaluatingDone      Type = "evaluating_done"
	TypeSynthesizingStarted Type = "synthesizing_started"
	TypeSynthesizingDone    Type = "synthesizing_done"
	TypeCompleted           Type = "completed"
	TypeFailed              Type = "failed"
)

// Event is one progress notification for a run. RunID and Timestamp are
// always set; the payload fields depend on Type:
//
//   - collecting_started / evaluating_started: Count (fan-out width)
//   - collecting_done / evaluating_done: Participants (survivors, declared order)
//   - synthesizing_started / synthesizing_done: Synthesizer
//   - failed: Reason
type Event struct {
	Type         Type      `json:"type"`
	RunID        string    `json:"run_id"`
	Timestamp    time.Time `json:"timestamp"`
	Count        int       `json:"count,omitempty"`
	Participants []string  `json:"participants,omitempty"`
	Synthesizer  string    `json:"synthesizer,omitempty"`
	Reason       string    `json:"reason,omitempty"`
}

// Terminal reports whether the event ends the run's stream.
func (e Event) Terminal() bool {
	return e.Type == TypeCompleted || e.Type == TypeFailed
}

func base(t Type, runID string) Event {
	return Event{Type: t, RunID: runID, Timestamp: time.Now().UTC()}
}

// CollectingStarted announces the stage-one fan-out.
func CollectingStarted(runID string, count int) Event {
	e := base(TypeCollectingStarted, runID)
	e.Count = count
	return e
}

// CollectingDone reports which participants produced a stage-one answer.
func CollectingDone(runID string, participants []string) Event {
	e := base(TypeCollectingDone, runID)
	e.Participants = participants
	return e
}

// EvaluatingStarted announces the critique fan-out.
func EvaluatingStarted(runID string, count int) Event {
	e := base(TypeEvaluatingStarted, runID)
	e.Count = count
	return e
}

// EvaluatingDone reports which participants returned a critique.
func EvaluatingDone(runID string, participants []string) Event {
	e := base(TypeEvaluatingDone, runID)
	e.Participants = participants
	return e
}

// SynthesizingStarted announces the final synthesis call.
func SynthesizingStarted(runID, synthesizer string) Event {
	e := base(TypeSynthesizingStarted, runID)
	e.Synthesizer = synthesizer
	return e
}

// SynthesizingDone reports the synthesis call finished.
func SynthesizingDone(runID, synthesizer string) Event {
	e := base(TypeSynthesizingDone, runID)
	e.Synthesizer = synthesizer
	return e
}

// Completed marks a committed turn. Distinct from the stream merely
// ending, so a consumer can never mistake a disconnect for success.
func Completed(runID string) Event {
	return base(TypeCompleted, runID)
}

// Failed marks a fatal run failure.
func Failed(runID, reason string) Event {
	e := base(TypeFailed, runID)
	e.Reason = reason
	return e
}

// Sink accepts published events. The orchestrator writes through this
// interface so it never depends on a concrete transport.
type Sink interface {
	Publish(Event)
}

// SinkFunc adapts a function into a Sink.
type SinkFunc func(Event)

// Publish executes f(e).
func (f SinkFunc) Publish(e Event) {
	if f != nil {
		f(e)
	}
}
