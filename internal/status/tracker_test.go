package status

import (
	"sync"
	"testing"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
)

func TestNewTracker(t *testing.T) {
	tr := NewTracker()
	if tr == nil {
		t.Fatal("NewTracker() returned nil")
	}
	if _, ok := tr.Last(); ok {
		t.Error("NewTracker() should start without a last report")
	}
	if tr.Ready() {
		t.Error("NewTracker() should not be ready")
	}
}

func TestRecord(t *testing.T) {
	tr := NewTracker()

	tr.Record(domain.Report{RunID: "r1", Outcome: domain.OutcomeDone, ServiceLinks: 3})
	tr.Record(domain.Report{RunID: "r2", Outcome: domain.OutcomeFailed, Error: "boom"})

	last, ok := tr.Last()
	if !ok || last.RunID != "r2" {
		t.Errorf("Last() = %v, want r2", last.RunID)
	}
	success, ok := tr.LastSuccess()
	if !ok || success.RunID != "r1" {
		t.Errorf("LastSuccess() = %v, want r1", success.RunID)
	}
	if tr.Count(domain.OutcomeDone) != 1 || tr.Count(domain.OutcomeFailed) != 1 {
		t.Errorf("Count() done=%d failed=%d, want 1/1", tr.Count(domain.OutcomeDone), tr.Count(domain.OutcomeFailed))
	}
	if !tr.Ready() {
		t.Error("Ready() should be true after a successful pass")
	}
}

func TestSubscribed(t *testing.T) {
	tr := NewTracker()
	tr.SetSubscribed(true)

	up, since := tr.Subscribed()
	if !up || since.IsZero() {
		t.Errorf("Subscribed() = %v, %v", up, since)
	}
	if !tr.Ready() {
		t.Error("Ready() should be true while subscribed")
	}

	tr.SetSubscribed(false)
	if up, _ := tr.Subscribed(); up {
		t.Error("Subscribed() should be false after SetSubscribed(false)")
	}
}

func TestConcurrentAccess(t *testing.T) {
	tr := NewTracker()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			tr.Record(domain.Report{Outcome: domain.OutcomeDone})
		}()
		go func() {
			defer wg.Done()
			_, _ = tr.Last()
			_ = tr.Ready()
		}()
	}
	wg.Wait()

	if got := tr.Count(domain.OutcomeDone); got != 10 {
		t.Errorf("Count(done) = %d, want 10", got)
	}
}
