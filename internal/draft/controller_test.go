package draft

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ipurpose/api/internal/forms"
)

type fakeTimer struct {
	at      time.Duration
	fn      func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{at: c.now + d, fn: f}
	c.timers = append(c.timers, t)
	return t
}

// Advance moves time forward and runs every live timer that came due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && t.at <= c.now {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()
	for _, t := range due {
		t.fn()
	}
}

type recordingFlusher struct {
	mu      sync.Mutex
	flushes []forms.FieldMap
	err     error
}

func (f *recordingFlusher) Flush(_ context.Context, fields forms.FieldMap) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushes = append(f.flushes, fields)
	return f.err
}

func (f *recordingFlusher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.flushes)
}

func newTestController(flusher Flusher, opts ...Option) (*Controller, *fakeClock) {
	clock := &fakeClock{}
	opts = append([]Option{WithClock(clock)}, opts...)
	return New(flusher, opts...), clock
}

func TestRapidEditsProduceOneFlushWithFinalMap(t *testing.T) {
	flusher := &recordingFlusher{}
	c, clock := newTestController(flusher)

	values := []string{"h", "he", "hel", "hell", "hello"}
	for _, v := range values {
		c.SetField("intention", v)
		clock.Advance(100 * time.Millisecond)
	}
	c.SetField("gratitude", "coffee")

	if flusher.count() != 0 {
		t.Fatalf("expected no flush inside quiet period, got %d", flusher.count())
	}
	if !c.Pending() {
		t.Fatal("expected pending flush")
	}

	clock.Advance(DefaultQuietPeriod)

	if flusher.count() != 1 {
		t.Fatalf("expected exactly one flush, got %d", flusher.count())
	}
	got := flusher.flushes[0]
	if got["intention"] != "hello" || got["gratitude"] != "coffee" || len(got) != 2 {
		t.Fatalf("unexpected flush payload: %v", got)
	}
	if c.Pending() {
		t.Fatal("expected no pending flush after firing")
	}
}

func TestFlushCarriesCompleteMapNotDiff(t *testing.T) {
	flusher := &recordingFlusher{}
	c, clock := newTestController(flusher)
	c.Load(forms.FieldMap{"whats_alive": "my clients"})

	c.SetField("intention", "focus")
	clock.Advance(DefaultQuietPeriod)

	if flusher.count() != 1 {
		t.Fatalf("expected one flush, got %d", flusher.count())
	}
	if flusher.flushes[0]["whats_alive"] != "my clients" {
		t.Fatalf("expected loaded value in flush, got %v", flusher.flushes[0])
	}
}

func TestLoadDoesNotSchedule(t *testing.T) {
	flusher := &recordingFlusher{}
	c, clock := newTestController(flusher)
	c.Load(forms.FieldMap{"a": "b"})
	clock.Advance(time.Hour)
	if flusher.count() != 0 {
		t.Fatalf("load must not flush, got %d flushes", flusher.count())
	}
}

func TestCloseDropsPendingEdit(t *testing.T) {
	flusher := &recordingFlusher{}
	c, clock := newTestController(flusher)

	c.SetField("intention", "unsaved")
	c.Close()
	clock.Advance(time.Second)

	if flusher.count() != 0 {
		t.Fatalf("expected pending edit to be dropped, got %d flushes", flusher.count())
	}

	c.SetField("intention", "after close")
	clock.Advance(time.Second)
	if flusher.count() != 0 {
		t.Fatalf("edits after close must not flush, got %d", flusher.count())
	}
}

func TestStaleTimerCallbackIsIgnored(t *testing.T) {
	flusher := &recordingFlusher{}
	c, clock := newTestController(flusher)

	c.SetField("a", "1")
	stale := clock.timers[0]
	c.SetField("a", "2")

	// A real timer can fire after Stop returned; the generation check keeps
	// it from flushing.
	stale.fn()
	if flusher.count() != 0 {
		t.Fatalf("stale callback flushed: %d", flusher.count())
	}

	clock.Advance(DefaultQuietPeriod)
	if flusher.count() != 1 || flusher.flushes[0]["a"] != "2" {
		t.Fatalf("expected one flush with latest value, got %v", flusher.flushes)
	}
}

func TestFlushFailureIsSwallowedAndReported(t *testing.T) {
	flusher := &recordingFlusher{err: errors.New("storage unavailable")}
	var hookErr error
	var hookCalls int
	c, clock := newTestController(flusher, WithOnFlush(func(_ forms.FieldMap, err error) {
		hookCalls++
		hookErr = err
	}))

	c.SetField("intention", "x")
	clock.Advance(DefaultQuietPeriod)

	if hookCalls != 1 || hookErr == nil {
		t.Fatalf("expected hook with error, got calls=%d err=%v", hookCalls, hookErr)
	}
	if got := c.Value("intention"); got != "x" {
		t.Fatalf("failed flush must keep local state, got %q", got)
	}

	// The next edit schedules a new flush carrying everything.
	flusher.err = nil
	c.SetField("gratitude", "y")
	clock.Advance(DefaultQuietPeriod)
	if flusher.count() != 2 {
		t.Fatalf("expected second flush, got %d", flusher.count())
	}
	if last := flusher.flushes[1]; last["intention"] != "x" || last["gratitude"] != "y" {
		t.Fatalf("unexpected second payload: %v", last)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c, _ := newTestController(&recordingFlusher{})
	c.SetField("a", "1")
	snap := c.Snapshot()
	snap["a"] = "mutated"
	if c.Value("a") != "1" {
		t.Fatal("snapshot mutation leaked into controller")
	}
}

func TestCustomQuietPeriod(t *testing.T) {
	flusher := &recordingFlusher{}
	c, clock := newTestController(flusher, WithQuietPeriod(2*time.Second))
	c.SetField("a", "1")
	clock.Advance(DefaultQuietPeriod)
	if flusher.count() != 0 {
		t.Fatal("flushed before custom quiet period")
	}
	clock.Advance(2 * time.Second)
	if flusher.count() != 1 {
		t.Fatalf("expected flush after custom quiet period, got %d", flusher.count())
	}
}

func TestRealClockFlushes(t *testing.T) {
	done := make(chan forms.FieldMap, 1)
	c := New(FlushFunc(func(_ context.Context, fields forms.FieldMap) error {
		done <- fields
		return nil
	}), WithQuietPeriod(10*time.Millisecond))
	defer c.Close()

	c.SetField("a", "1")
	select {
	case got := <-done:
		if got["a"] != "1" {
			t.Fatalf("unexpected payload: %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush")
	}
}
