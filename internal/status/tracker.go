package status

import (
	"sync"
	"time"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
)

// Tracker keeps what this process observed about its own passes and its
// event subscription. It is never consulted to decide what to push.
type Tracker struct {
	mu          sync.RWMutex
	last        *domain.Report
	lastSuccess *domain.Report
	counts      map[domain.Outcome]int
	subscribed  bool
	subscribeAt time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		counts: make(map[domain.Outcome]int),
	}
}

// Record stores a finished pass.
func (t *Tracker) Record(r domain.Report) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.last = &r
	if r.Outcome == domain.OutcomeDone {
		t.lastSuccess = &r
	}
	t.counts[r.Outcome]++
}

// Last returns the most recent pass.
func (t *Tracker) Last() (domain.Report, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.last == nil {
		return domain.Report{}, false
	}
	return *t.last, true
}

// LastSuccess returns the most recent pass that pushed a configuration.
func (t *Tracker) LastSuccess() (domain.Report, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.lastSuccess == nil {
		return domain.Report{}, false
	}
	return *t.lastSuccess, true
}

// Count returns how many passes ended with the outcome.
func (t *Tracker) Count(o domain.Outcome) int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.counts[o]
}

// SetSubscribed flags the event subscription as connected or not.
func (t *Tracker) SetSubscribed(up bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if up && !t.subscribed {
		t.subscribeAt = time.Now()
	}
	t.subscribed = up
}

// Subscribed reports whether the event subscription is connected and since when.
func (t *Tracker) Subscribed() (bool, time.Time) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.subscribed, t.subscribeAt
}

// Ready is true once events can be processed or a pass succeeded.
func (t *Tracker) Ready() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.subscribed || t.lastSuccess != nil
}
