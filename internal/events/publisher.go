package events

import "sync"

const defaultCapacity = 64

// Publisher is a single-producer broadcast channel for one run. Writes
// never block the producer: while no subscriber is attached, events
// accumulate in a bounded backlog that drops oldest-first; while a
// subscriber is attached, events flow through a buffered channel with
// the same drop-oldest policy. A subscriber that attaches late receives
// only events published after attachment — the backlog is discarded,
// never replayed. Consumers that need the final result after a gap must
// read the persisted turn instead.
type Publisher struct {
	mu       sync.Mutex
	runID    string
	capacity int
	backlog  []Event
	sub      chan Event
	closed   bool
}

// PublisherOption customizes publisher construction.
type PublisherOption func(*Publisher)

// WithCapacity overrides the buffer size shared by the backlog and the
// subscriber channel.
func WithCapacity(n int) PublisherOption {
	return func(p *Publisher) {
		if n > 0 {
			p.capacity = n
		}
	}
}

// NewPublisher creates the broadcast channel for one run.
func NewPublisher(runID string, opts ...PublisherOption) *Publisher {
	p := &Publisher{runID: runID, capacity: defaultCapacity}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// RunID identifies the run this publisher belongs to.
func (p *Publisher) RunID() string {
	if p == nil {
		return ""
	}
	return p.runID
}

// Publish delivers the event without ever blocking. On a full
// subscriber channel the oldest buffered event is dropped to make room.
func (p *Publisher) Publish(e Event) {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	if p.sub == nil {
		p.backlog = append(p.backlog, e)
		if len(p.backlog) > p.capacity {
			p.backlog = p.backlog[1:]
		}
		return
	}
	select {
	case p.sub <- e:
		return
	default:
	}
	select {
	case <-p.sub:
	default:
	}
	select {
	case p.sub <- e:
	default:
	}
}

// Subscribe attaches the (single) live consumer. Any backlog from
// before attachment is discarded. A previous subscriber, if any, is
// detached and its channel closed. The returned cancel func detaches
// without affecting the run.
func (p *Publisher) Subscribe() (<-chan Event, func()) {
	if p == nil {
		closed := make(chan Event)
		close(closed)
		return closed, func() {}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		done := make(chan Event)
		close(done)
		return done, func() {}
	}
	if p.sub != nil {
		close(p.sub)
	}
	p.backlog = nil
	ch := make(chan Event, p.capacity)
	p.sub = ch
	cancel := func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.sub == ch {
			p.sub = nil
			close(ch)
		}
	}
	return ch, cancel
}

// Close marks the stream terminal. Called once by the run owner after
// the terminal event has been published.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.backlog = nil
	if p.sub != nil {
		close(p.sub)
		p.sub = nil
	}
}
