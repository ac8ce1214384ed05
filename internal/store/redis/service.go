package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/lbsync/internal/domain"
	"github.com/MrSnakeDoc/lbsync/internal/logger"
)

// DefaultReportTTL is how long the last report stays visible without a new pass
const DefaultReportTTL = 24 * time.Hour

// Store keeps fleet-wide observations in Redis. Nothing in it is read back
// to decide what a pass pushes.
type Store struct {
	client    *redis.Client
	reportTTL time.Duration
}

// NewStore creates a new Redis store
func NewStore(client *redis.Client) *Store {
	return &Store{
		client:    client,
		reportTTL: DefaultReportTTL,
	}
}

// Ping checks that Redis answers
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// SaveReport stores a finished pass as the last report and counts its outcome
func (s *Store) SaveReport(ctx context.Context, report domain.Report) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, KeyLastReport, data, s.reportTTL)
	pipe.HIncrBy(ctx, KeyOutcomes, string(report.Outcome), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// LastReport returns the last stored pass, or nil when there is none
func (s *Store) LastReport(ctx context.Context) (*domain.Report, error) {
	data, err := s.client.Get(ctx, KeyLastReport).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get last report: %w", err)
	}

	var report domain.Report
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return &report, nil
}

// ReportRecorder saves every finished pass in the background of the pass
// itself: a Redis failure is logged and never fails the pass.
type ReportRecorder struct {
	store   *Store
	timeout time.Duration
	logger  logger.Logger
}

// Recorder returns a ReportRecorder bounded by timeout per save
func (s *Store) Recorder(timeout time.Duration, log logger.Logger) *ReportRecorder {
	return &ReportRecorder{store: s, timeout: timeout, logger: log}
}

// Record saves the report
func (r *ReportRecorder) Record(report domain.Report) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.store.SaveReport(ctx, report); err != nil {
		r.logger.Warn("failed to store report in redis",
			logger.String("run_id", report.RunID),
			logger.Error(err))
	}
}
