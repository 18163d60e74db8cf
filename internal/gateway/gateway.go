package gateway

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/kingrea/council/internal/roster"
)

const (
	defaultMaxConcurrent = 8
	defaultCallTimeout   = 120 * time.Second
	defaultMaxRetries    = 2
	defaultRetryBackoff  = 2 * time.Second
	maxBackoff           = 30 * time.Second
)

// Limits bounds a gateway's outbound behaviour. MaxConcurrent applies
// across every call in every in-flight run; the remaining fields apply
// per call.
type Limits struct {
	MaxConcurrent int64
	CallTimeout   time.Duration
	MaxRetries    int
	RetryBackoff  time.Duration
}

func (l Limits) normalized() Limits {
	if l.MaxConcurrent <= 0 {
		l.MaxConcurrent = defaultMaxConcurrent
	}
	if l.CallTimeout <= 0 {
		l.CallTimeout = defaultCallTimeout
	}
	if l.MaxRetries < 0 {
		l.MaxRetries = defaultMaxRetries
	}
	if l.RetryBackoff <= 0 {
		l.RetryBackoff = defaultRetryBackoff
	}
	return l
}

// Outcome reports the result of one gateway call. A failed call carries
// Err rather than propagating it, so one bad participant can never
// abort a stage fan-out.
type Outcome struct {
	Participant string
	Content     string
	Attempts    int
	Err         error
}

// OK reports whether the call produced content.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Logger records gateway diagnostics. It matches logbook.Logbook's
// Printf signature.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// Sleeper pauses between retries; tests substitute an instant one.
type Sleeper func(ctx context.Context, d time.Duration) error

func defaultSleeper(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Gateway issues bounded, retried completion calls for participants.
// All calls across all stages and all runs share one weighted semaphore
// so aggregate pressure on upstream providers stays under the
// configured ceiling.
type Gateway struct {
	clients map[string]Client
	limits  Limits
	sem     *semaphore.Weighted
	sleep   Sleeper
	logger  Logger
}

// Option customizes gateway construction.
type Option func(*Gateway)

// WithLogger injects a diagnostics logger.
func WithLogger(l Logger) Option {
	return func(g *Gateway) {
		if l != nil {
			g.logger = l
		}
	}
}

// WithSleeper overrides the retry pause (tests).
func WithSleeper(s Sleeper) Option {
	return func(g *Gateway) {
		if s != nil {
			g.sleep = s
		}
	}
}

// New wires a gateway to per-participant clients keyed by participant ID.
func New(clients map[string]Client, limits Limits, opts ...Option) *Gateway {
	limits = limits.normalized()
	g := &Gateway{
		clients: clients,
		limits:  limits,
		sem:     semaphore.NewWeighted(limits.MaxConcurrent),
		sleep:   defaultSleeper,
		logger:  nopLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Call performs one bounded, retried completion for the participant.
// It never returns an error: exhausted retries produce an Outcome whose
// Err is set. Retries use exponential backoff capped at maxBackoff.
func (g *Gateway) Call(ctx context.Context, p roster.Participant, prompt Prompt) Outcome {
	client, ok := g.clients[p.ID]
	if !ok {
		return Outcome{Participant: p.ID, Err: fmt.Errorf("gateway: no client configured for %s", p.ID)}
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return Outcome{Participant: p.ID, Err: fmt.Errorf("gateway: acquire slot for %s: %w", p.ID, err)}
	}
	defer g.sem.Release(1)

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= g.limits.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := g.sleep(ctx, backoff(g.limits.RetryBackoff, attempt)); err != nil {
				lastErr = err
				break
			}
		}
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, g.limits.CallTimeout)
		content, err := client.Complete(callCtx, p.Model, prompt)
		cancel()
		if err == nil {
			return Outcome{Participant: p.ID, Content: content, Attempts: attempts}
		}
		lastErr = err
		g.logger.Printf("gateway: %s attempt %d/%d failed: %v", p.ID, attempts, g.limits.MaxRetries+1, err)
	}
	return Outcome{Participant: p.ID, Attempts: attempts, Err: fmt.Errorf("gateway: %s exhausted retries: %w", p.ID, lastErr)}
}

func backoff(base time.Duration, attempt int) time.Duration {
	d := base
	for i := 1; i < attempt; i++ {
		d *= 2
		if d >= maxBackoff {
			return maxBackoff
		}
	}
	if d > maxBackoff {
		d = maxBackoff
	}
	return d
}
