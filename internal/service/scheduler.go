package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

type jobScheduler struct {
	jobs  repository.JobRepository
	clock Clock
	l     logger.Logger
}

func NewJobScheduler(jobs repository.JobRepository, clock Clock, l logger.Logger) Scheduler {
	return &jobScheduler{
		jobs:  jobs,
		clock: clock,
		l:     l,
	}
}

func (s *jobScheduler) ScheduleOnce(ctx context.Context, delay time.Duration, job models.ExpiryJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	job.FireAt = s.clock.Now().Add(delay)
	job.Attempt = 0

	if err := s.jobs.Schedule(ctx, job); err != nil {
		s.l.Errorf(ctx, "service.jobScheduler.ScheduleOnce: booking %s: %v", job.BookingID, err)
		return err
	}

	return nil
}
