package runner

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/kingrea/council/internal/council"
	"github.com/kingrea/council/internal/events"
)

// ProcessingState is the per-conversation lifecycle flag enforcing
// single-run exclusivity.
type ProcessingState string

const (
	StateIdle   ProcessingState = "idle"
	StateActive ProcessingState = "active"
	StateError  ProcessingState = "error"
)

// defaultRunRetention bounds how many finished run handles remain
// addressable by Lookup. Each handle holds its committed turn, so the
// map would otherwise grow for the life of the process; a watcher that
// arrives after eviction reads the persisted turn from the store
// instead.
const defaultRunRetention = 64

// ErrConversationActive rejects a submit while a turn is in flight.
// Submits are rejected, never queued.
var ErrConversationActive = errors.New("runner: conversation already has an active turn")

// ErrConversationErrored rejects a submit until the failure is
// acknowledged. The runner does not self-heal from the error state.
var ErrConversationErrored = errors.New("runner: conversation requires acknowledgement")

// ErrRunNotFound is returned when no run matches the requested ID.
var ErrRunNotFound = errors.New("runner: run not found")

// Store persists committed turns; *store.Store satisfies it.
type Store interface {
	Append(conversationID string, turn council.Turn) error
}

// TurnRunner executes one full deliberation; *council.Orchestrator
// satisfies it.
type TurnRunner interface {
	Run(ctx context.Context, runID string, input council.TurnInput, sink events.Sink) (council.Turn, error)
}

// Logger records runner diagnostics.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Run is the handle for one accepted submission. The run executes on
// its own goroutine with a background context: no client connection can
// abort it. Wait blocks until commit or fatal failure.
type Run struct {
	ID             string
	ConversationID string
	Publisher      *events.Publisher

	done chan struct{}
	turn council.Turn
	err  error
}

// Wait blocks until the run finishes and returns the committed turn
// (ephemeral metadata included) or the fatal error.
func (r *Run) Wait() (council.Turn, error) {
	<-r.done
	return r.turn, r.err
}

// Done exposes completion for select-based consumers.
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Runner decouples deliberation from any request lifecycle. It owns an
// explicit conversation-state map with claim-on-insert semantics: at
// most one active turn per conversation, enforced atomically at
// submission time. That map and the gateway's semaphore are the only
// shared mutable state in the pipeline.
type Runner struct {
	orchestrator TurnRunner
	store        Store
	logger       Logger
	capacity     int
	retention    int

	mu            sync.Mutex
	conversations map[string]ProcessingState
	runs          map[string]*Run
	finished      []string
	wg            sync.WaitGroup
}

// Option customizes the runner.
type Option func(*Runner)

// WithLogger injects a diagnostics logger.
func WithLogger(l Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithPublisherCapacity overrides the per-run event buffer size.
func WithPublisherCapacity(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.capacity = n
		}
	}
}

// WithRunRetention overrides how many finished run handles stay
// addressable by Lookup.
func WithRunRetention(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.retention = n
		}
	}
}

// New wires the runner to an orchestrator and a store.
func New(orchestrator TurnRunner, store Store, opts ...Option) (*Runner, error) {
	if orchestrator == nil {
		return nil, fmt.Errorf("runner: orchestrator is required")
	}
	if store == nil {
		return nil, fmt.Errorf("runner: store is required")
	}
	r := &Runner{
		orchestrator:  orchestrator,
		store:         store,
		logger:        nopLogger{},
		retention:     defaultRunRetention,
		conversations: map[string]ProcessingState{},
		runs:          map[string]*Run{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r, nil
}

// Submit claims the conversation slot and starts a detached run. A
// conversation that is Active or unacknowledged-Error is rejected
// immediately; distinct Idle conversations proceed concurrently and
// independently.
func (r *Runner) Submit(conversationID string, input council.TurnInput) (*Run, error) {
	if conversationID == "" {
		return nil, fmt.Errorf("runner: conversation id is required")
	}
	r.mu.Lock()
	switch r.conversations[conversationID] {
	case StateActive:
		r.mu.Unlock()
		return nil, ErrConversationActive
	case StateError:
		r.mu.Unlock()
		return nil, ErrConversationErrored
	}
	var pubOpts []events.PublisherOption
	if r.capacity > 0 {
		pubOpts = append(pubOpts, events.WithCapacity(r.capacity))
	}
	run := &Run{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		done:           make(chan struct{}),
	}
	run.Publisher = events.NewPublisher(run.ID, pubOpts...)
	r.conversations[conversationID] = StateActive
	r.runs[run.ID] = run
	r.wg.Add(1)
	r.mu.Unlock()

	go r.execute(run, input)
	return run, nil
}

// execute runs the turn to completion regardless of whether anyone is
// subscribed to its publisher. The context is detached on purpose: the
// submitting request may be long gone before synthesis finishes.
func (r *Runner) execute(run *Run, input council.TurnInput) {
	defer r.wg.Done()
	ctx := context.Background()

	turn, err := r.orchestrator.Run(ctx, run.ID, input, run.Publisher)
	if err == nil {
		if storeErr := r.store.Append(run.ConversationID, turn); storeErr != nil {
			err = fmt.Errorf("runner: commit turn: %w", storeErr)
		}
	}

	r.mu.Lock()
	if err != nil {
		r.conversations[run.ConversationID] = StateError
	} else {
		r.conversations[run.ConversationID] = StateIdle
	}
	r.mu.Unlock()

	runID := run.Publisher.RunID()
	if err != nil {
		r.logger.Printf("runner: run %s for conversation %s failed: %v", runID, run.ConversationID, err)
		run.Publisher.Publish(events.Failed(runID, err.Error()))
	} else {
		r.logger.Printf("runner: run %s for conversation %s committed", runID, run.ConversationID)
		run.Publisher.Publish(events.Completed(runID))
	}
	run.Publisher.Close()

	run.turn = turn
	run.err = err
	r.retire(runID)
	close(run.done)
}

// retire records a finished run and evicts the oldest finished handles
// beyond the retention window. Active runs are never evicted.
func (r *Runner) retire(runID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, runID)
	for len(r.finished) > r.retention {
		delete(r.runs, r.finished[0])
		r.finished = r.finished[1:]
	}
}

// State reports the conversation's lifecycle flag. Unknown
// conversations are Idle.
func (r *Runner) State(conversationID string) ProcessingState {
	r.mu.Lock()
	defer r.mu.Unlock()
	if state, ok := r.conversations[conversationID]; ok {
		return state
	}
	return StateIdle
}

// Acknowledge resets an errored conversation to Idle. It is the only
// way out of the error state.
func (r *Runner) Acknowledge(conversationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conversations[conversationID] != StateError {
		return fmt.Errorf("runner: conversation %s is not in the error state", conversationID)
	}
	r.conversations[conversationID] = StateIdle
	return nil
}

// Lookup finds a run by ID so consumers can attach to its publisher.
// Finished runs remain addressable only within the retention window;
// after eviction the committed turn must be read from the store.
func (r *Runner) Lookup(runID string) (*Run, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	run, ok := r.runs[runID]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run, nil
}

// Wait blocks until every in-flight run finishes. Used by shutdown
// paths and tests.
func (r *Runner) Wait() {
	r.wg.Wait()
}
