package cron

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// Sweeper is the fallback pass that reclaims expired holds missed by the
// expiry queue.
type Sweeper interface {
	SweepAll(ctx context.Context) (int, error)
}

// NewSweepScheduler runs sweeper every interval, starting immediately. A
// run that is still going when the next one is due is skipped.
func NewSweepScheduler(ctx context.Context, sweeper Sweeper, interval time.Duration, l logger.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			n, err := sweeper.SweepAll(ctx)
			if err != nil {
				l.Errorf(ctx, "cron.sweep: %v", err)
				return
			}
			if n > 0 {
				l.Infof(ctx, "cron.sweep: released %d expired bookings", n)
			}
		}),
		gocron.WithName("expired-booking-sweep"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}

	return s, nil
}
