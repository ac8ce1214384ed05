package reconciler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
	"github.com/MrSnakeDoc/lbsync/internal/metrics"
	"github.com/MrSnakeDoc/lbsync/internal/scanner"
)

// Triggers recorded on reports.
const (
	TriggerEvent   = "event"
	TriggerManual  = "manual"
	TriggerResync  = "resync"
	TriggerOneShot = "oneshot"
	TriggerStartup = "startup"
)

const defaultRetryInterval = time.Second

// Platform is everything a pass reads from and writes to.
type Platform interface {
	scanner.Fleet
	GetEnvironment(ctx context.Context, link string) (domain.Stack, error)
	ListCertificates(ctx context.Context) ([]domain.Certificate, error)
	SetServiceLinks(ctx context.Context, lb domain.Service, entries []domain.ServiceLinkEntry) error
	SetCertificates(ctx context.Context, lb domain.Service, ids []string) error
}

// Locker serializes passes across replicas. Acquire blocks until the lock
// is held or ctx is done.
type Locker interface {
	Acquire(ctx context.Context) (release func(), err error)
}

// Recorder receives every finished pass.
type Recorder interface {
	Record(report domain.Report)
}

// Options tunes a Reconciler. Zero values are usable.
type Options struct {
	Routes        domain.RouteConfig
	Retries       int
	RetryInterval time.Duration
	Locker        Locker
	Recorders     []Recorder
	Metrics       *metrics.Metrics
}

// Reconciler pushes the routing table and certificates computed from a
// fresh snapshot of the fleet. At most one pass runs at a time.
type Reconciler struct {
	platform Platform
	scanner  *scanner.Scanner
	opts     Options
	logger   logger.Logger

	mu sync.Mutex
}

// New creates a reconciler.
func New(platform Platform, opts Options, log logger.Logger) *Reconciler {
	if opts.Routes.Domain == "" {
		opts.Routes = domain.DefaultRouteConfig()
	}
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = defaultRetryInterval
	}
	if opts.Retries < 0 {
		opts.Retries = 0
	}
	return &Reconciler{
		platform: platform,
		scanner:  scanner.New(platform, opts.Routes, log),
		opts:     opts,
		logger:   log,
	}
}

// Handle reacts to a platform event. Pings, other resource types and
// service states other than active/removed are ignored without any call
// to the platform.
func (r *Reconciler) Handle(ctx context.Context, ev domain.Event) (domain.Report, error) {
	if !ev.IsServiceChange() {
		if ev.IsNoise() {
			r.logger.Debug("ignoring noisy event", logger.String("resource_type", ev.ResourceType))
		} else if !ev.IsPing() {
			r.logger.Debug("ignoring event",
				logger.String("event", ev.Name),
				logger.String("resource_type", ev.ResourceType),
				logger.String("state", ev.ResourceState))
		}
		return domain.Report{Trigger: TriggerEvent, Outcome: domain.OutcomeIgnored}, nil
	}

	r.logger.Info("service changed",
		logger.String("event_id", ev.ID),
		logger.String("service_id", ev.ResourceID),
		logger.String("state", ev.ResourceState))

	return r.run(ctx, TriggerEvent, &ev)
}

// Reconcile runs a full pass that no event asked for.
func (r *Reconciler) Reconcile(ctx context.Context, trigger string) (domain.Report, error) {
	return r.run(ctx, trigger, nil)
}

// Plan is what a pass would push.
type Plan struct {
	LoadBalancerID string                    `json:"loadBalancerId" yaml:"loadBalancerId"`
	ServiceLinks   []domain.ServiceLinkEntry `json:"serviceLinks" yaml:"serviceLinks"`
	CertificateIDs []string                  `json:"certificateIds" yaml:"certificateIds"`
	Skipped        []scanner.Skipped         `json:"skipped,omitempty" yaml:"skipped,omitempty"`
}

// Plan computes the desired state without writing anything.
func (r *Reconciler) Plan(ctx context.Context) (*Plan, error) {
	res, err := r.scanner.Scan(ctx)
	if err != nil {
		return nil, err
	}
	certs, err := r.platform.ListCertificates(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}
	return &Plan{
		LoadBalancerID: res.LoadBalancer.ID,
		ServiceLinks:   res.Entries,
		CertificateIDs: domain.CertificateIDs(certs),
		Skipped:        res.Skipped,
	}, nil
}

func (r *Reconciler) run(ctx context.Context, trigger string, ev *domain.Event) (domain.Report, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	report := domain.Report{
		RunID:     uuid.NewString(),
		Trigger:   trigger,
		StartedAt: time.Now(),
	}
	log := r.logger.With(logger.String("run_id", report.RunID), logger.String("trigger", trigger))

	var lastErr error
	err := r.withLock(ctx, func() error {
		return backoff.RetryNotify(func() error {
			report.Attempts++
			lastErr = r.pass(ctx, log, ev, &report)
			if lastErr != nil && !domain.IsRetryable(lastErr) {
				return backoff.Permanent(lastErr)
			}
			return lastErr
		}, r.backOff(ctx), func(err error, next time.Duration) {
			log.Warn("reconciliation attempt failed, retrying",
				logger.Int("attempt", report.Attempts),
				logger.Duration("next", next),
				logger.Error(err))
		})
	})

	// The backoff reports ctx.Err() when the context ends between attempts.
	if err != nil && lastErr != nil && !errors.Is(err, lastErr) {
		err = fmt.Errorf("%w (last attempt: %w)", err, lastErr)
	}

	report.Duration = time.Since(report.StartedAt)
	if err != nil {
		report.Outcome = domain.OutcomeFailed
		report.Error = err.Error()
		fields := []logger.Field{logger.Int("attempts", report.Attempts), logger.Error(err)}
		if errors.Is(err, domain.ErrLoadBalancerNotFound) {
			log.Warn("reconciliation aborted, nothing pushed", fields...)
		} else {
			log.Error("reconciliation failed", fields...)
		}
	} else {
		report.Outcome = domain.OutcomeDone
		log.Info("reconciliation done",
			logger.String("load_balancer", report.LoadBalancerID),
			logger.Int("service_links", report.ServiceLinks),
			logger.Int("certificates", report.Certificates),
			logger.Int("skipped", report.Skipped),
			logger.Duration("duration", report.Duration))
	}

	r.record(report)
	return report, err
}

func (r *Reconciler) withLock(ctx context.Context, fn func() error) error {
	if r.opts.Locker == nil {
		return fn()
	}
	release, err := r.opts.Locker.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire reconcile lock: %w", err)
	}
	defer release()
	return fn()
}

func (r *Reconciler) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.opts.RetryInterval
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(r.opts.Retries)), ctx)
}

// pass is one attempt: resolve, scan, push links, then certificates.
// Certificates are only pushed once the links went through.
func (r *Reconciler) pass(ctx context.Context, log logger.Logger, ev *domain.Event, report *domain.Report) error {
	if ev != nil {
		if ev.EnvironmentLink == "" {
			return fmt.Errorf("event %s: %w", ev.ID, domain.ErrMissingEnvironment)
		}
		stack, err := r.platform.GetEnvironment(ctx, ev.EnvironmentLink)
		if err != nil {
			return fmt.Errorf("failed to resolve environment of event %s: %w", ev.ID, err)
		}
		log.Info("resolved event environment",
			logger.String("stack", stack.Name),
			logger.String("state", stack.State))
	}

	res, err := r.scanner.Scan(ctx)
	if err != nil {
		return err
	}
	report.LoadBalancerID = res.LoadBalancer.ID
	report.ServiceLinks = len(res.Entries)
	report.Skipped = len(res.Skipped)

	if err := r.platform.SetServiceLinks(ctx, res.LoadBalancer, res.Entries); err != nil {
		return fmt.Errorf("failed to set service links: %w", err)
	}
	log.Debug("service links pushed", logger.Int("count", len(res.Entries)))

	certs, err := r.platform.ListCertificates(ctx)
	if err != nil {
		return fmt.Errorf("failed to list certificates: %w", err)
	}
	ids := domain.CertificateIDs(certs)
	if err := r.platform.SetCertificates(ctx, res.LoadBalancer, ids); err != nil {
		return fmt.Errorf("failed to set certificates: %w", err)
	}
	report.Certificates = len(ids)
	log.Debug("certificates pushed", logger.Strings("ids", ids))

	return nil
}

func (r *Reconciler) record(report domain.Report) {
	r.opts.Metrics.ObserveReport(report)
	for _, rec := range r.opts.Recorders {
		rec.Record(report)
	}
}
