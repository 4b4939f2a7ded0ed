package retry

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestBreakerTrips(t *testing.T) {
	b := NewBreaker(3)
	if b.RecordFailure() || b.RecordFailure() {
		t.Fatal("breaker tripped before threshold")
	}
	if b.Open() {
		t.Error("Open should be false after 2 failures (threshold is 3)")
	}
	if !b.RecordFailure() {
		t.Error("third failure should trip the breaker")
	}
	if !b.Open() {
		t.Error("Open should be true after 3 failures")
	}
	if b.RecordFailure() {
		t.Error("an open breaker should not trip again")
	}
}

func TestBreakerSuccessCloses(t *testing.T) {
	b := NewBreaker(2)
	b.RecordFailure()
	b.RecordFailure()
	b.RecordSuccess()
	if b.Open() {
		t.Error("success should close the breaker")
	}
	b.RecordFailure()
	if b.Open() {
		t.Error("one failure after reset should not open")
	}
}

func TestBreakerDefaultThreshold(t *testing.T) {
	b := NewBreaker(0)
	for i := 0; i < 2; i++ {
		b.RecordFailure()
	}
	if b.Open() {
		t.Error("default threshold should be 3")
	}
	b.RecordFailure()
	if !b.Open() {
		t.Error("expected open after 3 failures")
	}
}

func TestBreakerConcurrent(t *testing.T) {
	b := NewBreaker(50)
	var wg sync.WaitGroup
	var trips atomic.Int32
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if b.RecordFailure() {
				trips.Add(1)
			}
		}()
	}
	wg.Wait()
	if n := trips.Load(); n != 1 {
		t.Errorf("breaker tripped %d times, want 1", n)
	}
	if !b.Open() {
		t.Error("expected open after 100 failures")
	}
}
