package fakeclock

import (
	"testing"
	"time"
)

func TestClock_AfterAdvances(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(start)

	got := <-c.After(5 * time.Second)
	if want := start.Add(5 * time.Second); !got.Equal(want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if !c.Now().Equal(start.Add(5 * time.Second)) {
		t.Errorf("expected clock to advance, now %v", c.Now())
	}

	<-c.After(0)
	<-c.After(2 * time.Second)

	sleeps := c.Sleeps()
	if len(sleeps) != 2 {
		t.Fatalf("expected 2 recorded sleeps, got %d", len(sleeps))
	}
	if c.Slept() != 7*time.Second {
		t.Errorf("expected 7s total, got %s", c.Slept())
	}
}

func TestClock_Advance(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New(start)

	c.Advance(time.Minute)
	if !c.Now().Equal(start.Add(time.Minute)) {
		t.Errorf("expected %v, got %v", start.Add(time.Minute), c.Now())
	}
	if len(c.Sleeps()) != 0 {
		t.Error("Advance should not record sleeps")
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("expected %v after Set, got %v", start, c.Now())
	}
}
