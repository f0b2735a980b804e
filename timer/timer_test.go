package timer

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

func newTestManager(t *testing.T) (*TimerManager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	m := NewTimerManager(clock, time.Second)
	t.Cleanup(m.Stop)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := clock.BlockUntilContext(ctx, 1); err != nil {
		t.Fatalf("ticker was not armed: %v", err)
	}
	return m, clock
}

func waitFired(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(time.Second):
		t.Fatal("Expected timer callback to fire")
	}
}

func assertNotFired(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
		t.Fatal("Timer callback should not have fired")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerManager_OneShot(t *testing.T) {
	m, clock := newTestManager(t)
	fired := make(chan struct{}, 4)

	m.AddTimer(2*time.Second, 0, func() { fired <- struct{}{} })

	clock.Advance(time.Second)
	assertNotFired(t, fired)

	clock.Advance(time.Second)
	waitFired(t, fired)

	if m.Len() != 0 {
		t.Errorf("One-shot timer should be removed after firing, %d pending", m.Len())
	}
}

func TestTimerManager_Interval(t *testing.T) {
	m, clock := newTestManager(t)
	fired := make(chan struct{}, 4)

	id := m.AddTimer(time.Second, time.Second, func() { fired <- struct{}{} })

	clock.Advance(time.Second)
	waitFired(t, fired)
	clock.Advance(time.Second)
	waitFired(t, fired)

	m.RemoveTimer(id)
	clock.Advance(time.Second)
	assertNotFired(t, fired)
}

func TestTimerManager_RemoveBeforeFire(t *testing.T) {
	m, clock := newTestManager(t)
	fired := make(chan struct{}, 1)

	id := m.AddTimer(time.Second, 0, func() { fired <- struct{}{} })
	m.RemoveTimer(id)
	m.RemoveTimer(id)

	clock.Advance(time.Second)
	assertNotFired(t, fired)
	if m.Len() != 0 {
		t.Errorf("Expected no pending timers, got %d", m.Len())
	}
}

func TestTimerManager_OrdersByDeadline(t *testing.T) {
	m, clock := newTestManager(t)
	order := make(chan int, 2)

	m.AddTimer(3*time.Second, 0, func() { order <- 3 })
	m.AddTimer(time.Second, 0, func() { order <- 1 })

	clock.Advance(time.Second)
	select {
	case got := <-order:
		if got != 1 {
			t.Fatalf("Expected earliest timer first, got %d", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected first timer to fire")
	}
	if m.Len() != 1 {
		t.Errorf("Expected one pending timer, got %d", m.Len())
	}
}
