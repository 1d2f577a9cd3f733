// Package scheduler runs background jobs on a fixed interval.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nivaasi/backend/internal/application/tenancy"
	"github.com/nivaasi/backend/internal/infrastructure/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of the most recent run
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// ConsistencyChecker scans the bed tree against tenant stays
type ConsistencyChecker interface {
	CheckConsistency(ctx context.Context) ([]tenancy.Inconsistency, error)
}

// Config holds consistency scheduler configuration
type Config struct {
	Enabled    bool
	Interval   time.Duration
	JobTimeout time.Duration
	// RunOnStart runs one check right after Start instead of waiting a full interval
	RunOnStart bool
}

// DefaultConfig returns an hourly check bounded to five minutes
func DefaultConfig() Config {
	return Config{
		Enabled:    true,
		Interval:   time.Hour,
		JobTimeout: 5 * time.Minute,
	}
}

// RunReport describes one finished or running check
type RunReport struct {
	Status          JobStatus               `json:"status"`
	StartedAt       *time.Time              `json:"started_at,omitempty"`
	CompletedAt     *time.Time              `json:"completed_at,omitempty"`
	Inconsistencies []tenancy.Inconsistency `json:"inconsistencies"`
	Error           string                  `json:"error,omitempty"`
}

// ConsistencyScheduler periodically runs the consistency check and keeps the last report
type ConsistencyScheduler struct {
	checker ConsistencyChecker
	config  Config
	logger  *zap.Logger
	now     func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
	inFlight  bool
	last      RunReport
}

// NewConsistencyScheduler creates a scheduler. A nil logger is replaced with a no-op logger.
func NewConsistencyScheduler(checker ConsistencyChecker, config Config, logger *zap.Logger) (*ConsistencyScheduler, error) {
	if checker == nil {
		return nil, fmt.Errorf("%w: checker is required", ErrInvalidConfig)
	}
	if config.Enabled && config.Interval <= 0 {
		return nil, fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultConfig().JobTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConsistencyScheduler{
		checker: checker,
		config:  config,
		logger:  logger.Named("consistency_scheduler"),
		now:     time.Now,
		last:    RunReport{Status: JobStatusPending, Inconsistencies: []tenancy.Inconsistency{}},
	}, nil
}

// Start launches the interval loop. Starting twice or starting a disabled scheduler is a no-op.
func (s *ConsistencyScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if !s.config.Enabled {
		s.mu.Unlock()
		s.logger.Info("Consistency scheduler is disabled")
		return nil
	}
	s.isRunning = true
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.mu.Unlock()

	s.wg.Add(1)
	go s.loop(ctx)

	s.logger.Info("Consistency scheduler started",
		zap.Duration("interval", s.config.Interval),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)
	return nil
}

// Stop cancels the loop and waits for an in-flight check, bounded by ctx
func (s *ConsistencyScheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Consistency scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Consistency scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether the interval loop is active
func (s *ConsistencyScheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// LastReport returns a copy of the most recent run report
func (s *ConsistencyScheduler) LastReport() RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := s.last
	r.Inconsistencies = append([]tenancy.Inconsistency(nil), s.last.Inconsistencies...)
	return r
}

// RunNow runs one check synchronously. It refuses to overlap a running check.
func (s *ConsistencyScheduler) RunNow(ctx context.Context) (RunReport, error) {
	return s.run(ctx)
}

func (s *ConsistencyScheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	if s.config.RunOnStart {
		_, _ = s.run(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("Consistency loop stopping")
			return
		case <-ticker.C:
			if _, err := s.run(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("Scheduled consistency check failed", zap.Error(err))
			}
		}
	}
}

func (s *ConsistencyScheduler) run(ctx context.Context) (RunReport, error) {
	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return RunReport{}, ErrRunInProgress
	}
	s.inFlight = true
	started := s.now()
	s.last = RunReport{Status: JobStatusRunning, StartedAt: &started, Inconsistencies: []tenancy.Inconsistency{}}
	s.mu.Unlock()

	ctx, span := telemetry.StartSpan(ctx, "consistency.check")
	defer span.End()

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	var (
		found []tenancy.Inconsistency
		err   error
	)
	telemetry.WithProfilingLabels(jobCtx, telemetry.OperationLabels("consistency_check", nil), func(ctx context.Context) {
		found, err = s.checker.CheckConsistency(ctx)
	})
	completed := s.now()
	report := RunReport{StartedAt: &started, CompletedAt: &completed, Inconsistencies: []tenancy.Inconsistency{}}
	if err != nil {
		telemetry.RecordError(span, err)
		report.Status = JobStatusFailed
		report.Error = err.Error()
	} else {
		report.Status = JobStatusSuccess
		if found != nil {
			report.Inconsistencies = found
		}
		span.SetAttributes(attribute.Int("consistency.inconsistencies", len(found)))
	}

	s.mu.Lock()
	s.last = report
	s.inFlight = false
	s.mu.Unlock()

	if err != nil {
		return report, err
	}
	if len(found) > 0 {
		s.logger.Warn("Consistency check found divergences",
			zap.Int("inconsistencies", len(found)),
			zap.Duration("duration", completed.Sub(started)),
		)
	}
	return report, nil
}
