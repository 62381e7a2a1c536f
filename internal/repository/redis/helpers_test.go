package redisrepo

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/vogiaan1904/quickseat-booking/internal/models"
)

const testPrefix = "test"

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	cli := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = cli.Close() })

	return mr, cli
}

func testShow(id string, start time.Time) *models.Show {
	return &models.Show{
		ID:           id,
		MovieID:      "movie-1",
		MovieTitle:   "Interstellar",
		StartTime:    start.Truncate(time.Second),
		PricePerSeat: 150,
		Rows:         []string{"A", "B", "C"},
		SeatsPerRow:  9,
		CreatedAt:    time.Now().Truncate(time.Millisecond),
	}
}

func testBooking(id, userID, showID string, seats ...string) *models.Booking {
	return &models.Booking{
		ID:          id,
		UserID:      userID,
		UserEmail:   userID + "@example.com",
		ShowID:      showID,
		BookedSeats: seats,
		Amount:      int64(150 * len(seats)),
		CreatedAt:   time.Now().Truncate(time.Millisecond),
	}
}
