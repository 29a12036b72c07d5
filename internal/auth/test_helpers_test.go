package auth

import (
	"sync"
	"testing"
	"time"

	"github.com/stagetwo/webgate/internal/challenge"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// scriptedPINs yields pins in order, repeating the last one.
func scriptedPINs(pins ...string) func() string {
	var mu sync.Mutex
	i := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		p := pins[i]
		if i < len(pins)-1 {
			i++
		}
		return p
	}
}

type recordingObserver struct {
	mu     sync.Mutex
	events []Event
}

func (o *recordingObserver) OnAuthEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

func (o *recordingObserver) kinds() []EventKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]EventKind, len(o.events))
	for i, e := range o.events {
		out[i] = e.Kind
	}
	return out
}

// testService builds a service over a generator with a 120 s window and
// a fake clock.
func testService(t testing.TB, pins []string, opts ...Option) (*Service, *fakeClock) {
	t.Helper()

	clock := newFakeClock()
	gen, err := challenge.New(challenge.Config{Duration: 120 * time.Second},
		challenge.WithClock(clock.Now),
		challenge.WithPINSource(scriptedPINs(pins...)),
	)
	if err != nil {
		t.Fatalf("challenge.New: %v", err)
	}

	svc, err := NewService(gen, Config{MaxAttempts: 5, TokenLength: 32}, append([]Option{WithClock(clock.Now)}, opts...)...)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc, clock
}
