package events

import "testing"

func TestPublishNeverBlocksWithoutSubscriber(t *testing.T) {
	pub := NewPublisher("run-1", WithCapacity(2))
	for i := 0; i < 50; i++ {
		pub.Publish(CollectingStarted("run-1", i))
	}
	// Reaching this point at all is the assertion; also confirm the
	// backlog stayed bounded.
	pub.mu.Lock()
	backlog := len(pub.backlog)
	pub.mu.Unlock()
	if backlog != 2 {
		t.Fatalf("expected backlog capped at 2, got %d", backlog)
	}
}

func TestLateSubscriberGetsNoReplay(t *testing.T) {
	pub := NewPublisher("run-1")
	pub.Publish(CollectingStarted("run-1", 3))
	pub.Publish(CollectingDone("run-1", []string{"p1"}))
	ch, cancel := pub.Subscribe()
	defer cancel()
	select {
	case e := <-ch:
		t.Fatalf("unexpected replayed event %s", e.Type)
	default:
	}
	pub.Publish(EvaluatingStarted("run-1", 1))
	got := <-ch
	if got.Type != TypeEvaluatingStarted {
		t.Fatalf("expected evaluating_started, got %s", got.Type)
	}
}

func TestPublishDropsOldestOnFullSubscriber(t *testing.T) {
	pub := NewPublisher("run-1", WithCapacity(1))
	ch, cancel := pub.Subscribe()
	defer cancel()
	pub.Publish(CollectingStarted("run-1", 3))
	pub.Publish(Completed("run-1"))
	got := <-ch
	if got.Type != TypeCompleted {
		t.Fatalf("expected newest event to survive, got %s", got.Type)
	}
	select {
	case e := <-ch:
		t.Fatalf("unexpected extra event %s", e.Type)
	default:
	}
}

func TestCancelDetachesWithoutStoppingProducer(t *testing.T) {
	pub := NewPublisher("run-1")
	ch, cancel := pub.Subscribe()
	cancel()
	if _, open := <-ch; open {
		t.Fatalf("expected subscriber channel closed after cancel")
	}
	// Further publishes must not panic or block.
	pub.Publish(SynthesizingStarted("run-1", "chair"))
	pub.Publish(Completed("run-1"))
}

func TestCloseEndsStream(t *testing.T) {
	pub := NewPublisher("run-1")
	ch, _ := pub.Subscribe()
	pub.Publish(Failed("run-1", "zero stage-one successes"))
	pub.Close()
	got := <-ch
	if got.Type != TypeFailed || got.Reason == "" {
		t.Fatalf("expected failed event with reason, got %+v", got)
	}
	if _, open := <-ch; open {
		t.Fatalf("expected channel closed after Close")
	}
	ch2, _ := pub.Subscribe()
	if _, open := <-ch2; open {
		t.Fatalf("expected closed channel for post-Close subscriber")
	}
}

func TestTerminalClassification(t *testing.T) {
	cases := []struct {
		event    Event
		terminal bool
	}{
		{CollectingStarted("r", 2), false},
		{EvaluatingDone("r", nil), false},
		{SynthesizingDone("r", "chair"), false},
		{Completed("r"), true},
		{Failed("r", "boom"), true},
	}
	for _, tc := range cases {
		if tc.event.Terminal() != tc.terminal {
			t.Fatalf("%s: terminal = %v, want %v", tc.event.Type, tc.event.Terminal(), tc.terminal)
		}
	}
}
