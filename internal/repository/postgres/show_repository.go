package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type pgShowRepository struct {
	db *gorm.DB
	l  logger.Logger
}

// NewPostgresShowRepository expects db opened with TranslateError so unique
// violations surface as gorm.ErrDuplicatedKey.
func NewPostgresShowRepository(db *gorm.DB, l logger.Logger) repository.ShowRepository {
	return &pgShowRepository{db: db, l: l}
}

func (r *pgShowRepository) CreateShow(ctx context.Context, show *models.Show) error {
	rec := toShowRecord(show)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		r.l.Errorf(ctx, "pgShowRepository.CreateShow: %v", err)
		return err
	}
	return nil
}

func (r *pgShowRepository) GetShow(ctx context.Context, id string) (*models.Show, error) {
	var rec showRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		r.l.Errorf(ctx, "pgShowRepository.GetShow: %v", err)
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *pgShowRepository) ListUpcomingShows(ctx context.Context, now time.Time) ([]*models.Show, error) {
	var recs []showRecord
	err := r.db.WithContext(ctx).
		Where("start_time >= ?", now.UTC().Truncate(time.Second)).
		Order("start_time").
		Find(&recs).Error
	if err != nil {
		r.l.Errorf(ctx, "pgShowRepository.ListUpcomingShows: %v", err)
		return nil, err
	}
	return showModels(recs), nil
}

func (r *pgShowRepository) ListShows(ctx context.Context) ([]*models.Show, error) {
	var recs []showRecord
	if err := r.db.WithContext(ctx).Order("start_time").Find(&recs).Error; err != nil {
		r.l.Errorf(ctx, "pgShowRepository.ListShows: %v", err)
		return nil, err
	}
	return showModels(recs), nil
}

func (r *pgShowRepository) CountUpcomingShows(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&showRecord{}).
		Where("start_time >= ?", now.UTC().Truncate(time.Second)).
		Count(&n).Error
	if err != nil {
		r.l.Errorf(ctx, "pgShowRepository.CountUpcomingShows: %v", err)
		return 0, err
	}
	return n, nil
}

func (r *pgShowRepository) OccupiedSeats(ctx context.Context, showID string) (map[string]models.SeatHold, error) {
	var recs []seatHoldRecord
	if err := r.db.WithContext(ctx).Where("show_id = ?", showID).Find(&recs).Error; err != nil {
		r.l.Errorf(ctx, "pgShowRepository.OccupiedSeats: %v", err)
		return nil, err
	}

	occ := make(map[string]models.SeatHold, len(recs))
	for _, rec := range recs {
		occ[rec.SeatLabel] = models.SeatHold{BookingID: rec.BookingID, UserID: rec.UserID}
	}
	return occ, nil
}

// ClaimSeats inserts all holds in one statement. The primary key on
// (show_id, seat_label) rejects the whole batch if any seat is taken.
func (r *pgShowRepository) ClaimSeats(ctx context.Context, showID string, hold models.SeatHold, seats []string) error {
	recs := make([]seatHoldRecord, 0, len(seats))
	for _, s := range seats {
		recs = append(recs, seatHoldRecord{
			ShowID:    showID,
			SeatLabel: s,
			BookingID: hold.BookingID,
			UserID:    hold.UserID,
		})
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(&recs).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: %v", repository.ErrSeatConflict, seats)
		}
		r.l.Errorf(ctx, "pgShowRepository.ClaimSeats: %v", err)
		return err
	}

	r.l.Debugf(ctx, "pgShowRepository.ClaimSeats: show %s seats %v held by booking %s", showID, seats, hold.BookingID)
	return nil
}

func (r *pgShowRepository) ReleaseSeats(ctx context.Context, showID string, hold models.SeatHold, seats []string) ([]string, error) {
	if len(seats) == 0 {
		return nil, nil
	}

	var released []seatHoldRecord
	err := r.db.WithContext(ctx).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "seat_label"}}}).
		Where("show_id = ? AND seat_label IN ? AND booking_id = ? AND user_id = ?", showID, seats, hold.BookingID, hold.UserID).
		Delete(&released).Error
	if err != nil {
		r.l.Errorf(ctx, "pgShowRepository.ReleaseSeats: %v", err)
		return nil, err
	}

	out := make([]string, 0, len(released))
	for _, rec := range released {
		out = append(out, rec.SeatLabel)
	}
	if len(out) > 0 {
		r.l.Debugf(ctx, "pgShowRepository.ReleaseSeats: show %s released %v of booking %s", showID, out, hold.BookingID)
	}
	return out, nil
}

func showModels(recs []showRecord) []*models.Show {
	out := make([]*models.Show, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out
}
