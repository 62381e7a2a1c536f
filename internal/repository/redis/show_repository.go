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

// claimSeatsScript sets every seat to the holder only if none of them is
// already present. It returns the seats that were taken, empty on success.
var claimSeatsScript = redis.NewScript(`
	local key = KEYS[1]
	local holder = ARGV[1]

	local taken = {}
	for i = 2, #ARGV do
		if redis.call('HEXISTS', key, ARGV[i]) == 1 then
			table.insert(taken, ARGV[i])
		end
	end
	if #taken > 0 then
		return taken
	end

	for i = 2, #ARGV do
		redis.call('HSET', key, ARGV[i], holder)
	end
	return taken
`)

// releaseSeatsScript deletes the seats whose holder still matches.
var releaseSeatsScript = redis.NewScript(`
	local key = KEYS[1]
	local holder = ARGV[1]

	local released = {}
	for i = 2, #ARGV do
		if redis.call('HGET', key, ARGV[i]) == holder then
			redis.call('HDEL', key, ARGV[i])
			table.insert(released, ARGV[i])
		end
	end
	return released
`)

type redisShowRepository struct {
	cli  *redis.Client
	keys keyspace
	l    logger.Logger
}

func NewRedisShowRepository(cli *redis.Client, prefix string, l logger.Logger) repository.ShowRepository {
	return &redisShowRepository{
		cli:  cli,
		keys: keyspace(prefix),
		l:    l,
	}
}

func (r *redisShowRepository) CreateShow(ctx context.Context, show *models.Show) error {
	_, err := r.cli.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.keys.show(show.ID), encodeShow(show))
		pipe.ZAdd(ctx, r.keys.showsByStart(), redis.Z{
			Score:  float64(show.StartTime.Unix()),
			Member: show.ID,
		})
		return nil
	})
	if err != nil {
		r.l.Errorf(ctx, "redisShowRepository.CreateShow: %v", err)
		return err
	}

	return nil
}

func (r *redisShowRepository) GetShow(ctx context.Context, id string) (*models.Show, error) {
	fields, err := r.cli.HGetAll(ctx, r.keys.show(id)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisShowRepository.GetShow: %v", err)
		return nil, err
	}
	if len(fields) == 0 {
		return nil, repository.ErrNotFound
	}

	show, err := decodeShow(fields)
	if err != nil {
		r.l.Errorf(ctx, "redisShowRepository.GetShow: %v", err)
		return nil, err
	}

	return show, nil
}

func (r *redisShowRepository) ListUpcomingShows(ctx context.Context, now time.Time) ([]*models.Show, error) {
	ids, err := r.cli.ZRangeByScore(ctx, r.keys.showsByStart(), &redis.ZRangeBy{
		Min: strconv.FormatInt(now.Unix(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisShowRepository.ListUpcomingShows: %v", err)
		return nil, err
	}

	return r.getShows(ctx, ids)
}

func (r *redisShowRepository) ListShows(ctx context.Context) ([]*models.Show, error) {
	ids, err := r.cli.ZRange(ctx, r.keys.showsByStart(), 0, -1).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisShowRepository.ListShows: %v", err)
		return nil, err
	}

	return r.getShows(ctx, ids)
}

func (r *redisShowRepository) CountUpcomingShows(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.cli.ZCount(ctx, r.keys.showsByStart(), strconv.FormatInt(now.Unix(), 10), "+inf").Result()
	if err != nil {
		r.l.Errorf(ctx, "redisShowRepository.CountUpcomingShows: %v", err)
		return 0, err
	}

	return n, nil
}

func (r *redisShowRepository) OccupiedSeats(ctx context.Context, showID string) (map[string]models.SeatHold, error) {
	fields, err := r.cli.HGetAll(ctx, r.keys.showSeats(showID)).Result()
	if err != nil {
		r.l.Errorf(ctx, "redisShowRepository.OccupiedSeats: %v", err)
		return nil, err
	}

	occ := make(map[string]models.SeatHold, len(fields))
	for seat, holder := range fields {
		occ[seat] = models.ParseSeatHold(holder)
	}

	return occ, nil
}

func (r *redisShowRepository) ClaimSeats(ctx context.Context, showID string, hold models.SeatHold, seats []string) error {
	args := make([]interface{}, 0, len(seats)+1)
	args = append(args, hold.String())
	for _, s := range seats {
		args = append(args, s)
	}

	res, err := claimSeatsScript.Run(ctx, r.cli, []string{r.keys.showSeats(showID)}, args...).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.l.Errorf(ctx, "redisShowRepository.ClaimSeats: %v", err)
		return err
	}

	if len(res) > 0 {
		return fmt.Errorf("%w: %s", repository.ErrSeatConflict, strings.Join(res, ","))
	}

	r.l.Debugf(ctx, "redisShowRepository.ClaimSeats: show %s seats %v held by booking %s", showID, seats, hold.BookingID)

	return nil
}

func (r *redisShowRepository) ReleaseSeats(ctx context.Context, showID string, hold models.SeatHold, seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, nil
	}

	args := make([]interface{}, 0, len(seats)+1)
	args = append(args, hold.String())
	for _, s := range seats {
		args = append(args, s)
	}

	released, err := releaseSeatsScript.Run(ctx, r.cli, []string{r.keys.showSeats(showID)}, args...).StringSlice()
	if err != nil && !errors.Is(err, redis.Nil) {
		r.l.Errorf(ctx, "redisShowRepository.ReleaseSeats: %v", err)
		return nil, err
	}

	if len(released) > 0 {
		r.l.Debugf(ctx, "redisShowRepository.ReleaseSeats: show %s released %v of booking %s", showID, released, hold.BookingID)
	}

	return released, nil
}

func (r *redisShowRepository) getShows(ctx context.Context, ids []string) ([]*models.Show, error) {
	if len(ids) == 0 {
		return []*models.Show{}, nil
	}

	pipe := r.cli.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HGetAll(ctx, r.keys.show(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		r.l.Errorf(ctx, "redisShowRepository.getShows: %v", err)
		return nil, err
	}

	shows := make([]*models.Show, 0, len(ids))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			r.l.Warnf(ctx, "redisShowRepository.getShows: index references missing show %s", ids[i])
			continue
		}
		show, err := decodeShow(fields)
		if err != nil {
			r.l.Errorf(ctx, "redisShowRepository.getShows: %v", err)
			return nil, err
		}
		shows = append(shows, show)
	}

	return shows, nil
}

func encodeShow(s *models.Show) map[string]interface{} {
	return map[string]interface{}{
		"id":            s.ID,
		"movie_id":      s.MovieID,
		"movie_title":   s.MovieTitle,
		"start_time":    s.StartTime.Unix(),
		"price":         s.PricePerSeat,
		"rows":          strings.Join(s.Rows, ","),
		"seats_per_row": s.SeatsPerRow,
		"created_at":    s.CreatedAt.UnixMilli(),
	}
}

func decodeShow(f map[string]string) (*models.Show, error) {
	start, err := strconv.ParseInt(f["start_time"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("show %s: bad start_time: %w", f["id"], err)
	}
	price, err := strconv.ParseInt(f["price"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("show %s: bad price: %w", f["id"], err)
	}
	perRow, err := strconv.Atoi(f["seats_per_row"])
	if err != nil {
		return nil, fmt.Errorf("show %s: bad seats_per_row: %w", f["id"], err)
	}
	created, _ := strconv.ParseInt(f["created_at"], 10, 64)

	return &models.Show{
		ID:           f["id"],
		MovieID:      f["movie_id"],
		MovieTitle:   f["movie_title"],
		StartTime:    time.Unix(start, 0).UTC(),
		PricePerSeat: price,
		Rows:         splitList(f["rows"]),
		SeatsPerRow:  perRow,
		CreatedAt:    time.UnixMilli(created).UTC(),
	}, nil
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, ",")
}
