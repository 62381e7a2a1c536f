package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/vogiaan1904/quickseat-booking/config"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// ExpiryProcessor polls the job queue and hands due expiry jobs to the
// reconciler. Jobs survive restarts because they live in the job store.
type ExpiryProcessor interface {
	Start(ctx context.Context) error
	Stop() error
	// RunOnce processes one batch of due jobs and returns how many it handled.
	RunOnce(ctx context.Context) (int, error)
	GetStatus() ProcessorStatus
}

type ProcessorStatus struct {
	IsRunning     bool      `json:"is_running"`
	StartedAt     time.Time `json:"started_at,omitempty"`
	LastProcessed time.Time `json:"last_processed,omitempty"`
	Scheduled     int64     `json:"scheduled"`
	InFlight      int64     `json:"in_flight"`
	TotalExpired  int64     `json:"total_expired"`
	ErrorCount    int64     `json:"error_count"`
}

type expiryProcessor struct {
	jobs       repository.JobRepository
	reconciler Reconciler
	clock      Clock
	l          logger.Logger

	config ProcessorConfig

	mu        sync.RWMutex
	isRunning bool
	startedAt time.Time
	stopCh    chan struct{}
	ticker    *time.Ticker
	wg        sync.WaitGroup

	lastProcessed time.Time
	totalExpired  int64
	errorCount    int64
}

type ProcessorConfig struct {
	PollInterval    time.Duration
	BatchSize       int
	LeaseTimeout    time.Duration
	MaxAttempts     int           // per job, before it is dropped
	RetryBackoff    time.Duration // base delay, doubled per attempt
	RetryAttempts   int           // for queue storage calls
	RetryDelay      time.Duration
	ShutdownTimeout time.Duration
	JobTimeout      time.Duration
}

func NewExpiryProcessor(
	jobs repository.JobRepository,
	reconciler Reconciler,
	clock Clock,
	l logger.Logger,
	cfg config.SchedulerConfig,
) ExpiryProcessor {
	return &expiryProcessor{
		jobs:       jobs,
		reconciler: reconciler,
		clock:      clock,
		l:          l,
		config: ProcessorConfig{
			PollInterval:    cfg.PollInterval,
			BatchSize:       cfg.BatchSize,
			LeaseTimeout:    cfg.LeaseTimeout,
			MaxAttempts:     cfg.MaxAttempts,
			RetryBackoff:    cfg.RetryBackoff,
			RetryAttempts:   3,
			RetryDelay:      200 * time.Millisecond,
			ShutdownTimeout: 30 * time.Second,
			JobTimeout:      10 * time.Second,
		},
		stopCh: make(chan struct{}),
	}
}

func (p *expiryProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isRunning {
		return errors.New("expiry processor is already running")
	}

	p.l.Infof(ctx, "service.expiryProcessor.Start: polling every %s, batch %d, lease %s",
		p.config.PollInterval, p.config.BatchSize, p.config.LeaseTimeout)

	p.isRunning = true
	p.startedAt = time.Now()
	p.stopCh = make(chan struct{})
	p.ticker = time.NewTicker(p.config.PollInterval)

	p.wg.Add(1)
	go p.processLoop(ctx)

	return nil
}

func (p *expiryProcessor) Stop() error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return errors.New("expiry processor is not running")
	}

	ctx := context.Background()
	p.l.Info(ctx, "Stopping expiry processor...")

	close(p.stopCh)
	if p.ticker != nil {
		p.ticker.Stop()
	}
	// The loop takes mu when it finishes a batch.
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.l.Info(ctx, "Expiry processor stopped gracefully")
	case <-time.After(p.config.ShutdownTimeout):
		p.l.Warn(ctx, "Expiry processor shutdown timeout exceeded")
	}

	p.mu.Lock()
	p.isRunning = false
	p.mu.Unlock()

	return nil
}

func (p *expiryProcessor) processLoop(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			p.l.Info(ctx, "Expiry processor stopped due to context cancellation")
			return
		case <-p.stopCh:
			return
		case <-p.ticker.C:
			if _, err := p.RunOnce(ctx); err != nil {
				p.incrementErrorCount()
				p.l.Errorf(ctx, "service.expiryProcessor.processLoop: %v", err)
			}
		}
	}
}

func (p *expiryProcessor) RunOnce(ctx context.Context) (int, error) {
	defer func() {
		p.mu.Lock()
		p.lastProcessed = time.Now()
		p.mu.Unlock()
	}()

	now := p.clock.Now()

	var recovered int
	if err := p.withRetry(ctx, func() error {
		var err error
		recovered, err = p.jobs.RecoverExpiredLeases(ctx, now)
		return err
	}); err != nil {
		return 0, fmt.Errorf("recover leases: %w", err)
	}
	if recovered > 0 {
		p.l.Warnf(ctx, "service.expiryProcessor.RunOnce: requeued %d jobs whose lease ran out", recovered)
	}

	var due []models.ExpiryJob
	if err := p.withRetry(ctx, func() error {
		var err error
		due, err = p.jobs.ClaimDue(ctx, now, p.config.BatchSize, p.config.LeaseTimeout)
		return err
	}); err != nil {
		return 0, fmt.Errorf("claim due jobs: %w", err)
	}

	handled := 0
	for _, job := range due {
		if err := p.process(ctx, job); err != nil {
			p.incrementErrorCount()
			p.l.Errorf(ctx, "service.expiryProcessor.RunOnce: job %s: %v", job.ID, err)
			continue
		}
		handled++
	}

	p.mu.Lock()
	p.totalExpired += int64(handled)
	p.mu.Unlock()

	return handled, nil
}

func (p *expiryProcessor) process(ctx context.Context, job models.ExpiryJob) error {
	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()
	jobCtx = p.l.With(jobCtx, "job_id", job.ID, "booking_id", job.BookingID)

	herr := p.reconciler.HandleExpiry(jobCtx, job)
	if herr == nil {
		return p.withRetry(ctx, func() error { return p.jobs.Ack(ctx, job) })
	}

	if job.Attempt+1 >= p.config.MaxAttempts {
		p.l.Errorf(jobCtx, "service.expiryProcessor.process: giving up after %d attempts, the sweep will pick it up: %v", job.Attempt+1, herr)
		if err := p.withRetry(ctx, func() error { return p.jobs.Ack(ctx, job) }); err != nil {
			return err
		}
		return herr
	}

	backoff := p.config.RetryBackoff << job.Attempt
	p.l.Warnf(jobCtx, "service.expiryProcessor.process: attempt %d failed, retrying in %s: %v", job.Attempt+1, backoff, herr)
	if err := p.withRetry(ctx, func() error {
		return p.jobs.Retry(ctx, job, p.clock.Now().Add(backoff))
	}); err != nil {
		return err
	}

	return herr
}

func (p *expiryProcessor) withRetry(ctx context.Context, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < p.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(p.config.RetryDelay * time.Duration(attempt)):
			}
		}

		if err := operation(); err != nil {
			lastErr = err
			p.l.Warnf(ctx, "service.expiryProcessor.withRetry: attempt %d/%d: %v", attempt+1, p.config.RetryAttempts, err)
			continue
		}

		return nil
	}

	return fmt.Errorf("operation failed after %d attempts: %w", p.config.RetryAttempts, lastErr)
}

func (p *expiryProcessor) incrementErrorCount() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorCount++
}

func (p *expiryProcessor) GetStatus() ProcessorStatus {
	p.mu.RLock()
	status := ProcessorStatus{
		IsRunning:     p.isRunning,
		StartedAt:     p.startedAt,
		LastProcessed: p.lastProcessed,
		TotalExpired:  p.totalExpired,
		ErrorCount:    p.errorCount,
	}
	p.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if scheduled, processing, err := p.jobs.Counts(ctx); err == nil {
		status.Scheduled = scheduled
		status.InFlight = processing
	}

	return status
}
