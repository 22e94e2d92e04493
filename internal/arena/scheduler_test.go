package arena

import (
	"testing"
	"time"
)

func TestSchedulerFiresInDueOrder(t *testing.T) {
	s := NewScheduler()
	var got []int
	s.After(GameClock, 3*time.Second, func() { got = append(got, 3) })
	s.After(GameClock, time.Second, func() { got = append(got, 1) })
	s.After(GameClock, time.Second, func() { got = append(got, 2) })

	s.Advance(GameClock, 2*time.Second)
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Fatalf("expected [1 2], got %v", got)
	}
	s.Advance(GameClock, time.Second)
	if len(got) != 3 || got[2] != 3 {
		t.Fatalf("expected third timer at 3s, got %v", got)
	}
	if s.Now(GameClock) != 3*time.Second {
		t.Errorf("expected clock at 3s, got %v", s.Now(GameClock))
	}
}

func TestSchedulerClocksIndependent(t *testing.T) {
	s := NewScheduler()
	fired := false
	s.After(RealClock, time.Second, func() { fired = true })

	s.Advance(GameClock, 10*time.Second)
	if fired {
		t.Fatal("game clock must not fire real clock timers")
	}
	s.Advance(RealClock, time.Second)
	if !fired {
		t.Fatal("real clock timer did not fire")
	}
}

func TestSchedulerStop(t *testing.T) {
	s := NewScheduler()
	fired := false
	tm := s.After(GameClock, time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatal("Stop on pending timer should report true")
	}
	if tm.Stop() {
		t.Error("second Stop should report false")
	}
	s.Advance(GameClock, 2*time.Second)
	if fired {
		t.Error("stopped timer fired")
	}
	if s.Pending() != 0 {
		t.Errorf("expected 0 pending, got %d", s.Pending())
	}
}

func TestSchedulerCancelOwner(t *testing.T) {
	s := NewScheduler()
	n := 0
	s.AfterFor(7, GameClock, time.Second, func() { n++ })
	s.AfterFor(7, RealClock, time.Second, func() { n++ })
	s.AfterFor(8, GameClock, time.Second, func() { n += 10 })

	if c := s.CancelOwner(7); c != 2 {
		t.Errorf("expected 2 cancelled, got %d", c)
	}
	s.Advance(GameClock, time.Second)
	s.Advance(RealClock, time.Second)
	if n != 10 {
		t.Errorf("expected only owner 8 to fire, got %d", n)
	}
}

func TestSchedulerChainedTimersInWindow(t *testing.T) {
	s := NewScheduler()
	var at []time.Duration
	s.After(GameClock, time.Second, func() {
		at = append(at, s.Now(GameClock))
		s.After(GameClock, time.Second, func() {
			at = append(at, s.Now(GameClock))
		})
	})
	s.Advance(GameClock, 5*time.Second)
	if len(at) != 2 || at[0] != time.Second || at[1] != 2*time.Second {
		t.Errorf("expected callbacks at 1s and 2s, got %v", at)
	}
}

func TestSchedulerCancelAllFromCallback(t *testing.T) {
	s := NewScheduler()
	later := false
	s.After(GameClock, time.Second, func() { s.CancelAll() })
	s.After(GameClock, 2*time.Second, func() { later = true })
	s.Advance(GameClock, 3*time.Second)
	if later {
		t.Error("timer cancelled by an earlier callback still fired")
	}
}
