package redisrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// claimDueScript atomically moves due job ids from the scheduled set to the
// processing set and returns them as flat id, payload pairs.
var claimDueScript = redis.NewScript(`
	local scheduled = KEYS[1]
	local processing = KEYS[2]
	local payload = KEYS[3]
	local now = ARGV[1]
	local limit = tonumber(ARGV[2])
	local deadline = ARGV[3]

	local ids = redis.call('ZRANGEBYSCORE', scheduled, '-inf', now, 'LIMIT', 0, limit)
	local jobs = {}
	for _, id in ipairs(ids) do
		redis.call('ZREM', scheduled, id)
		local body = redis.call('HGET', payload, id)
		if body then
			redis.call('ZADD', processing, deadline, id)
			table.insert(jobs, id)
			table.insert(jobs, body)
		end
	end
	return jobs
`)

// recoverLeasesScript re-queues jobs whose processing lease has expired.
var recoverLeasesScript = redis.NewScript(`
	local scheduled = KEYS[1]
	local processing = KEYS[2]
	local now = ARGV[1]

	local ids = redis.call('ZRANGEBYSCORE', processing, '-inf', now)
	for _, id in ipairs(ids) do
		redis.call('ZREM', processing, id)
		redis.call('ZADD', scheduled, now, id)
	end
	return #ids
`)

type redisJobRepository struct {
	cli  *redis.Client
	keys keyspace
	l    logger.Logger
}

func NewRedisJobRepository(cli *redis.Client, prefix string, l logger.Logger) repository.JobRepository {
	return &redisJobRepository{
		cli:  cli,
		keys: keyspace(prefix),
		l:    l,
	}
}

func (r *redisJobRepository) Schedule(ctx context.Context, job models.ExpiryJob) error {
	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.keys.jobsPayload(), job.ID, data)
		pipe.ZAdd(ctx, r.keys.jobsScheduled(), redis.Z{
			Score:  float64(job.FireAt.UnixMilli()),
			Member: job.ID,
		})
		return nil
	})
	if err != nil {
		r.l.Errorf(ctx, "redisJobRepository.Schedule: %v", err)
		return err
	}

	r.l.Debugf(ctx, "redisJobRepository.Schedule: job %s for booking %s fires at %s", job.ID, job.BookingID, job.FireAt.Format(time.RFC3339))

	return nil
}

func (r *redisJobRepository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]models.ExpiryJob, error) {
	keys := []string{r.keys.jobsScheduled(), r.keys.jobsProcessing(), r.keys.jobsPayload()}
	deadline := now.Add(lease).UnixMilli()

	pairs, err := claimDueScript.Run(ctx, r.cli, keys, now.UnixMilli(), limit, deadline).StringSlice()
	if err != nil && err != redis.Nil {
		r.l.Errorf(ctx, "redisJobRepository.ClaimDue: %v", err)
		return nil, err
	}

	jobs := make([]models.ExpiryJob, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		id, body := pairs[i], pairs[i+1]
		var job models.ExpiryJob
		if err := json.Unmarshal([]byte(body), &job); err != nil {
			// Left leased, it would be requeued on every lease timeout.
			r.l.Errorf(ctx, "redisJobRepository.ClaimDue: dropping undecodable job %s: %v", id, err)
			if err := r.Ack(ctx, models.ExpiryJob{ID: id}); err != nil {
				return nil, err
			}
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, nil
}

func (r *redisJobRepository) Ack(ctx context.Context, job models.ExpiryJob) error {
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.keys.jobsProcessing(), job.ID)
		pipe.HDel(ctx, r.keys.jobsPayload(), job.ID)
		return nil
	})
	if err != nil {
		r.l.Errorf(ctx, "redisJobRepository.Ack: %v", err)
		return err
	}

	return nil
}

func (r *redisJobRepository) Retry(ctx context.Context, job models.ExpiryJob, fireAt time.Time) error {
	job.Attempt++
	job.FireAt = fireAt

	data, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	_, err = r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.keys.jobsProcessing(), job.ID)
		pipe.HSet(ctx, r.keys.jobsPayload(), job.ID, data)
		pipe.ZAdd(ctx, r.keys.jobsScheduled(), redis.Z{
			Score:  float64(fireAt.UnixMilli()),
			Member: job.ID,
		})
		return nil
	})
	if err != nil {
		r.l.Errorf(ctx, "redisJobRepository.Retry: %v", err)
		return err
	}

	return nil
}

func (r *redisJobRepository) RecoverExpiredLeases(ctx context.Context, now time.Time) (int, error) {
	keys := []string{r.keys.jobsScheduled(), r.keys.jobsProcessing()}

	n, err := recoverLeasesScript.Run(ctx, r.cli, keys, strconv.FormatInt(now.UnixMilli(), 10)).Int()
	if err != nil {
		r.l.Errorf(ctx, "redisJobRepository.RecoverExpiredLeases: %v", err)
		return 0, err
	}

	if n > 0 {
		r.l.Warnf(ctx, "redisJobRepository.RecoverExpiredLeases: re-queued %d jobs", n)
	}

	return n, nil
}

func (r *redisJobRepository) Counts(ctx context.Context) (int64, int64, error) {
	pipe := r.cli.Pipeline()
	sched := pipe.ZCard(ctx, r.keys.jobsScheduled())
	proc := pipe.ZCard(ctx, r.keys.jobsProcessing())
	if _, err := pipe.Exec(ctx); err != nil {
		r.l.Errorf(ctx, "redisJobRepository.Counts: %v", err)
		return 0, 0, err
	}

	return sched.Val(), proc.Val(), nil
}
