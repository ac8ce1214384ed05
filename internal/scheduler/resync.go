package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
	"github.com/MrSnakeDoc/lbsync/internal/reconciler"
)

// Reconciler runs a full pass.
type Reconciler interface {
	Reconcile(ctx context.Context, trigger string) (domain.Report, error)
}

// Resyncer runs full passes periodically and on manual triggers
type Resyncer struct {
	reconciler    Reconciler
	logger        logger.Logger
	interval      time.Duration
	onStart       bool
	stopCh        chan struct{}
	done          sync.WaitGroup
	manualTrigger chan struct{}
}

// NewResyncer creates a resyncer. An interval of 0 disables periodic
// passes; manual triggers still work.
func NewResyncer(r Reconciler, log logger.Logger, interval time.Duration, onStart bool) *Resyncer {
	return &Resyncer{
		reconciler:    r,
		logger:        log,
		interval:      interval,
		onStart:       onStart,
		stopCh:        make(chan struct{}),
		manualTrigger: make(chan struct{}, 1),
	}
}

// Trigger asks for a pass. It returns false when one is already pending.
func (rs *Resyncer) Trigger() bool {
	select {
	case rs.manualTrigger <- struct{}{}:
		return true
	default:
		return false
	}
}

// Start begins the resync loop
func (rs *Resyncer) Start(ctx context.Context) {
	var tick <-chan time.Time
	var ticker *time.Ticker
	if rs.interval > 0 {
		ticker = time.NewTicker(rs.interval)
		tick = ticker.C
	}

	rs.done.Add(1)
	go func() {
		defer rs.done.Done()
		if ticker != nil {
			defer ticker.Stop()
		}

		if rs.onStart {
			rs.run(ctx, reconciler.TriggerStartup)
		}

		for {
			select {
			case <-tick:
				rs.run(ctx, reconciler.TriggerResync)
			case <-rs.manualTrigger:
				rs.logger.Info("manual reconciliation triggered")
				rs.run(ctx, reconciler.TriggerManual)
			case <-rs.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the loop and waits for an in-flight pass
func (rs *Resyncer) Stop() {
	close(rs.stopCh)
	rs.done.Wait()
}

// Errors are already logged by the reconciler; the next tick is a fresh attempt.
func (rs *Resyncer) run(ctx context.Context, trigger string) {
	_, _ = rs.reconciler.Reconcile(ctx, trigger)
}
