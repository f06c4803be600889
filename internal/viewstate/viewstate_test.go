package viewstate

import (
	"sync"
	"testing"
)

func TestTracker_LatestWins(t *testing.T) {
	tr := NewTracker()

	first := tr.Begin("sess:transactions")
	second := tr.Begin("sess:transactions")

	if tr.Current(first) {
		t.Error("first fetch should be superseded")
	}
	if !tr.Current(second) {
		t.Error("second fetch should be current")
	}

	other := tr.Begin("sess:accounts")
	if !tr.Current(second) || !tr.Current(other) {
		t.Error("keys must not interfere")
	}
}

func TestTracker_FinishDoesNotRevive(t *testing.T) {
	tr := NewTracker()
	stale := tr.Begin("k")
	latest := tr.Begin("k")
	tr.Finish(latest)

	again := tr.Begin("k")
	if tr.Current(stale) {
		t.Error("stale token must stay stale after Finish and a new Begin")
	}
	if !tr.Current(again) {
		t.Error("new token should be current")
	}

	tr.Finish(stale)
	if !tr.Current(again) {
		t.Error("finishing a stale token must not clear the latest")
	}
}

func TestTracker_Concurrent(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup
	tokens := make([]Token, 50)
	for i := range tokens {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i] = tr.Begin("k")
		}(i)
	}
	wg.Wait()

	current := 0
	for _, tok := range tokens {
		if tr.Current(tok) {
			current++
		}
	}
	if current != 1 {
		t.Errorf("current tokens = %d, want exactly 1", current)
	}
}

func TestState(t *testing.T) {
	var s State[int]
	if !s.IsIdle() || s.Phase.String() != "idle" {
		t.Errorf("zero state = %v", s.Phase)
	}
	if r := Ready(3); !r.IsLoaded() || r.Data != 3 {
		t.Errorf("Ready = %+v", r)
	}
	if e := Error[int]("Network error. Please try again."); !e.IsError() || e.Phase.String() != "error" {
		t.Errorf("Error = %+v", e)
	}
}
