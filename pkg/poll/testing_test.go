package poll

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

type testLogger struct {
	t *testing.T
}

func (l testLogger) Debug(level int, format string, args ...interface{}) {
	l.t.Logf("debug %d: %s", level, fmt.Sprintf(format, args...))
}

func (l testLogger) Info(format string, args ...interface{}) {
	l.t.Logf("info: %s", fmt.Sprintf(format, args...))
}

func (l testLogger) Error(format string, args ...interface{}) {
	l.t.Logf("error: %s", fmt.Sprintf(format, args...))
}

type sentEvent struct {
	SessionId SessionId // empty for broadcasts
	Event     Event
}

type testBroadcaster struct {
	mu     sync.Mutex
	events []sentEvent
}

func (b *testBroadcaster) Broadcast(ev Event) {
	b.mu.Lock()
	b.events = append(b.events, sentEvent{Event: ev})
	b.mu.Unlock()
}

func (b *testBroadcaster) SendTo(id SessionId, ev Event) {
	b.mu.Lock()
	b.events = append(b.events, sentEvent{SessionId: id, Event: ev})
	b.mu.Unlock()
}

func (b *testBroadcaster) Events() []sentEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]sentEvent(nil), b.events...)
}

func (b *testBroadcaster) EventsOfType(eventType string) []Event {
	var events []Event

	for _, sev := range b.Events() {
		if sev.Event.GetType() == eventType {
			events = append(events, sev.Event)
		}
	}

	return events
}

func (b *testBroadcaster) Reset() {
	b.mu.Lock()
	b.events = nil
	b.mu.Unlock()
}

type testTicker struct {
	c chan time.Time

	mu      sync.Mutex
	stopped bool
}

func (t *testTicker) C() <-chan time.Time {
	return t.c
}

func (t *testTicker) Stop() {
	t.mu.Lock()
	t.stopped = true
	t.mu.Unlock()
}

func (t *testTicker) Stopped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.stopped
}

type testTickers struct {
	mu      sync.Mutex
	tickers []*testTicker
}

func (ts *testTickers) NewTicker(time.Duration) Ticker {
	t := &testTicker{c: make(chan time.Time)}

	ts.mu.Lock()
	ts.tickers = append(ts.tickers, t)
	ts.mu.Unlock()

	return t
}

func (ts *testTickers) Last(t *testing.T) *testTicker {
	t.Helper()

	ts.mu.Lock()
	defer ts.mu.Unlock()

	if len(ts.tickers) == 0 {
		t.Fatalf("no ticker created")
	}

	return ts.tickers[len(ts.tickers)-1]
}

func (ts *testTickers) Len() int {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	return len(ts.tickers)
}

// tryTick delivers a tick and reports whether the coordinator consumed it.
func tryTick(ticker *testTicker, timeout time.Duration) bool {
	select {
	case ticker.c <- time.Now():
		return true
	case <-time.After(timeout):
		return false
	}
}

// tick delivers n ticks and waits for the coordinator to finish processing
// them. The main goroutine only accepts the next command once the previous
// tick has been fully applied.
func (env *testEnv) tick(t *testing.T, ticker *testTicker, n int) {
	t.Helper()

	for i := 0; i < n; i++ {
		if !tryTick(ticker, time.Second) {
			t.Fatalf("tick %d/%d was not consumed", i+1, n)
		}
	}

	env.sync(t)
}

func (env *testEnv) sync(t *testing.T) {
	t.Helper()

	if err := env.Coordinator.call(context.Background(), func() {}); err != nil {
		t.Fatalf("cannot synchronize with coordinator: %v", err)
	}
}

type testVoters int

func (v testVoters) EligibleVoters() int {
	return int(v)
}

type testEnv struct {
	Coordinator *Coordinator
	Broadcaster *testBroadcaster
	Tickers     *testTickers
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	broadcaster := &testBroadcaster{}
	tickers := &testTickers{}

	cfg := CoordinatorCfg{
		Logger:      testLogger{t: t},
		Broadcaster: broadcaster,
		Voters:      testVoters(3),
		NewTicker:   tickers.NewTicker,
	}

	c, err := NewCoordinator(cfg)
	if err != nil {
		t.Fatalf("cannot create coordinator: %v", err)
	}

	errorChan := make(chan error, 1)
	if err := c.Start(errorChan); err != nil {
		t.Fatalf("cannot start coordinator: %v", err)
	}

	t.Cleanup(func() {
		c.Stop()

		select {
		case err := <-errorChan:
			t.Errorf("coordinator error: %v", err)
		default:
		}
	})

	return &testEnv{
		Coordinator: c,
		Broadcaster: broadcaster,
		Tickers:     tickers,
	}
}

func (env *testEnv) createPoll(t *testing.T, req PollRequest) Poll {
	t.Helper()

	poll, err := env.Coordinator.CreatePoll(context.Background(), req)
	if err != nil {
		t.Fatalf("cannot create poll: %v", err)
	}

	return poll
}

func (env *testEnv) status(t *testing.T) Status {
	t.Helper()

	status, err := env.Coordinator.Status(context.Background())
	if err != nil {
		t.Fatalf("cannot read status: %v", err)
	}

	return status
}

func (env *testEnv) history(t *testing.T) []Poll {
	t.Helper()

	polls, err := env.Coordinator.History(context.Background())
	if err != nil {
		t.Fatalf("cannot read history: %v", err)
	}

	return polls
}

func (env *testEnv) vote(t *testing.T, optionId OptionId) bool {
	t.Helper()

	accepted, err := env.Coordinator.SubmitVote(context.Background(), optionId)
	if err != nil {
		t.Fatalf("cannot submit vote: %v", err)
	}

	return accepted
}

func simpleRequest(question string, duration int) PollRequest {
	return PollRequest{
		Question:       question,
		Options:        []string{"A", "B"},
		Duration:       duration,
		CorrectIndices: []OptionId{0},
	}
}
