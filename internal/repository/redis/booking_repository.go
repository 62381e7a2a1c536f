package redisrepo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
)

// Return codes shared by the conditional booking scripts.
const (
	scriptNotFound = -1
	scriptNoop     = 0
	scriptChanged  = 1
)

// markPaidScript flips is_paid once, clears the payment session and bumps
// the dashboard counters. Returns -1 if missing, 0 if already paid, 1 if
// this call changed it.
var markPaidScript = redis.NewScript(`
	local booking = KEYS[1]
	local pending = KEYS[2]
	local stats = KEYS[3]

	if redis.call('EXISTS', booking) == 0 then
		return -1
	end
	if redis.call('HGET', booking, 'is_paid') == '1' then
		return 0
	end

	redis.call('HSET', booking, 'is_paid', '1', 'paid_at', ARGV[2], 'payment_session_id', '', 'payment_link', '')
	redis.call('ZREM', pending, ARGV[1])

	local amount = tonumber(redis.call('HGET', booking, 'amount')) or 0
	redis.call('HINCRBY', stats, 'paid_bookings', 1)
	redis.call('HINCRBY', stats, 'revenue', amount)
	return 1
`)

// deleteUnpaidScript removes the booking and its index entries only while
// is_paid is still unset.
var deleteUnpaidScript = redis.NewScript(`
	local booking = KEYS[1]
	local pending = KEYS[2]
	local userIdx = KEYS[3]

	if redis.call('EXISTS', booking) == 0 then
		return -1
	end
	if redis.call('HGET', booking, 'is_paid') == '1' then
		return 0
	end

	redis.call('DEL', booking)
	redis.call('ZREM', pending, ARGV[1])
	redis.call('ZREM', userIdx, ARGV[1])
	return 1
`)

type redisBookingRepository struct {
	cli  *redis.Client
	keys keyspace
	l    logger.Logger
}

func NewRedisBookingRepository(cli *redis.Client, prefix string, l logger.Logger) repository.BookingRepository {
	return &redisBookingRepository{
		cli:  cli,
		keys: keyspace(prefix),
		l:    l,
	}
}

func (r *redisBookingRepository) CreateBooking(ctx context.Context, b *models.Booking) error {
	score := float64(b.CreatedAt.UnixMilli())

	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.keys.booking(b.ID), encodeBooking(b))
		pipe.ZAdd(ctx, r.keys.userBookings(b.UserID), redis.Z{Score: score, Member: b.ID})
		if !b.IsPaid {
			pipe.ZAdd(ctx, r.keys.pendingBookings(), redis.Z{Score: score, Member: b.ID})
		}
		return nil
	})
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.CreateBooking: %v", err)
		return err
	}

	return nil
}

func (r *redisBookingRepository) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	fields, err := r.cli.HGetAll(ctx, r.keys.booking(id)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.GetBooking: %v", err)
		return nil, err
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}

	b, err := decodeBooking(fields)
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.GetBooking: %v", err)
		return nil, err
	}

	return b, nil
}

func (r *redisBookingRepository) SetPaymentSession(ctx context.Context, id, sessionID, link string) error {
	key := r.keys.booking(id)

	// HSET on a missing hash would resurrect a deleted booking.
	n, err := r.cli.Exists(ctx, key).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.SetPaymentSession: %v", err)
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}

	if err := r.cli.HSet(ctx, key, "payment_session_id", sessionID, "payment_link", link).Err(); err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.SetPaymentSession: %v", err)
		return err
	}

	return nil
}

func (r *redisBookingRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	keys := []string{r.keys.booking(id), r.keys.pendingBookings(), r.keys.stats()}

	res, err := markPaidScript.Run(ctx, r.cli, keys, id, paidAt.UnixMilli()).Int()
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.MarkPaid: %v", err)
		return false, err
	}

	switch res {
	case scriptNotFound:
		return false, repository.ErrNotFound
	case scriptNoop:
		return false, nil
	case scriptChanged:
		return true, nil
	default:
		return false, fmt.Errorf("markPaid: unexpected script result %d", res)
	}
}

func (r *redisBookingRepository) DeleteUnpaid(ctx context.Context, id string) error {
	uID, err := r.cli.HGet(ctx, r.keys.booking(id), "user_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return repository.ErrNotFound
		}
		r.l.Errorf(ctx, "redisBookingRepository.DeleteUnpaid: %v", err)
		return err
	}

	keys := []string{r.keys.booking(id), r.keys.pendingBookings(), r.keys.userBookings(uID)}

	res, err := deleteUnpaidScript.Run(ctx, r.cli, keys, id).Int()
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.DeleteUnpaid: %v", err)
		return err
	}

	switch res {
	case scriptNotFound:
		return repository.ErrNotFound
	case scriptNoop:
		return repository.ErrAlreadyPaid
	default:
		return nil
	}
}

func (r *redisBookingRepository) DeleteBooking(ctx context.Context, id string) error {
	uID, err := r.cli.HGet(ctx, r.keys.booking(id), "user_id").Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		r.l.Errorf(ctx, "redisBookingRepository.DeleteBooking: %v", err)
		return err
	}

	_, err = r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.keys.booking(id))
		pipe.ZRem(ctx, r.keys.pendingBookings(), id)
		pipe.ZRem(ctx, r.keys.userBookings(uID), id)
		return nil
	})
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.DeleteBooking: %v", err)
		return err
	}

	return nil
}

func (r *redisBookingRepository) ListUserBookings(ctx context.Context, uID string) ([]*models.Booking, error) {
	ids, err := r.cli.ZRevRange(ctx, r.keys.userBookings(uID), 0, -1).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.ListUserBookings: %v", err)
		return nil, err
	}

	return r.getBookings(ctx, ids)
}

func (r *redisBookingRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Booking, error) {
	ids, err := r.cli.ZRangeByScore(ctx, r.keys.pendingBookings(), &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(cutoff.UnixMilli(), 10),
		Count: int64(limit),
	}).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.ListPendingBefore: %v", err)
		return nil, err
	}

	return r.getBookings(ctx, ids)
}

func (r *redisBookingRepository) Stats(ctx context.Context) (int64, int64, error) {
	fields, err := r.cli.HGetAll(ctx, r.keys.stats()).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.Stats: %v", err)
		return 0, 0, err
	}

	paid, _ := strconv.ParseInt(fields["paid_bookings"], 10, 64)
	revenue, _ := strconv.ParseInt(fields["revenue"], 10, 64)

	return paid, revenue, nil
}

func (r *redisBookingRepository) getBookings(ctx context.Context, ids []string) ([]*models.Booking, error) {
	if len(ids) == 0 {
		return []*models.Booking{}, nil
	}

	pipe := r.cli.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.keys.booking(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.l.Errorf(ctx, "redisBookingRepository.getBookings: %v", err)
		return nil, err
	}

	bookings := make([]*models.Booking, 0, len(ids))
	for _, cmd := range cmds {
		fields := cmd.Val()
		// Deleted between the index read and the fetch.
		if len(fields) == 0 {
			continue
		}
		b, err := decodeBooking(fields)
		if err != nil {
			r.l.Errorf(ctx, "redisBookingRepository.getBookings: %v", err)
			return nil, err
		}
		bookings = append(bookings, b)
	}

	return bookings, nil
}

func encodeBooking(b *models.Booking) map[string]interface{} {
	paid := "0"
	if b.IsPaid {
		paid = "1"
	}
	paidAt := ""
	if b.PaidAt != nil {
		paidAt = strconv.FormatInt(b.PaidAt.UnixMilli(), 10)
	}

	return map[string]interface{}{
		"id":                 b.ID,
		"user_id":            b.UserID,
		"user_email":         b.UserEmail,
		"show_id":            b.ShowID,
		"seats":              strings.Join(b.BookedSeats, ","),
		"amount":             b.Amount,
		"is_paid":            paid,
		"payment_session_id": b.PaymentSessionID,
		"payment_link":       b.PaymentLink,
		"created_at":         b.CreatedAt.UnixMilli(),
		"paid_at":            paidAt,
	}
}

func decodeBooking(f map[string]string) (*models.Booking, error) {
	amount, err := strconv.ParseInt(f["amount"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("booking %s: bad amount: %w", f["id"], err)
	}
	created, err := strconv.ParseInt(f["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("booking %s: bad created_at: %w", f["id"], err)
	}

	b := &models.Booking{
		ID:               f["id"],
		UserID:           f["user_id"],
		UserEmail:        f["user_email"],
		ShowID:           f["show_id"],
		BookedSeats:      splitList(f["seats"]),
		Amount:           amount,
		IsPaid:           f["is_paid"] == "1",
		PaymentSessionID: f["payment_session_id"],
		PaymentLink:      f["payment_link"],
		CreatedAt:        time.UnixMilli(created).UTC(),
	}

	if v := f["paid_at"]; v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("booking %s: bad paid_at: %w", f["id"], err)
		}
		t := time.UnixMilli(ms).UTC()
		b.PaidAt = &t
	}

	return b, nil
}
