package postgresrepo

import (
	"context"
	"errors"
	"time"

	"github.com/vogiaan1904/quickseat-booking/internal/models"
	"github.com/vogiaan1904/quickseat-booking/internal/repository"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"gorm.io/gorm"
)

type pgBookingRepository struct {
	db *gorm.DB
	l  logger.Logger
}

func NewPostgresBookingRepository(db *gorm.DB, l logger.Logger) repository.BookingRepository {
	return &pgBookingRepository{db: db, l: l}
}

func (r *pgBookingRepository) CreateBooking(ctx context.Context, b *models.Booking) error {
	rec := toBookingRecord(b)
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		r.l.Errorf(ctx, "pgBookingRepository.CreateBooking: %v", err)
		return err
	}
	return nil
}

func (r *pgBookingRepository) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var rec bookingRecord
	if err := r.db.WithContext(ctx).First(&rec, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		r.l.Errorf(ctx, "pgBookingRepository.GetBooking: %v", err)
		return nil, err
	}
	return rec.toModel(), nil
}

func (r *pgBookingRepository) SetPaymentSession(ctx context.Context, id, sessionID, link string) error {
	res := r.db.WithContext(ctx).Model(&bookingRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"payment_session_id": sessionID, "payment_link": link})
	if res.Error != nil {
		r.l.Errorf(ctx, "pgBookingRepository.SetPaymentSession: %v", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *pgBookingRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).Model(&bookingRecord{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(map[string]interface{}{
			"is_paid":            true,
			"paid_at":            paidAt.UTC(),
			"payment_session_id": "",
			"payment_link":       "",
		})
	if res.Error != nil {
		r.l.Errorf(ctx, "pgBookingRepository.MarkPaid: %v", res.Error)
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		return true, nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, repository.ErrNotFound
	}
	return false, nil
}

func (r *pgBookingRepository) DeleteUnpaid(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Where("id = ? AND is_paid = ?", id, false).Delete(&bookingRecord{})
	if res.Error != nil {
		r.l.Errorf(ctx, "pgBookingRepository.DeleteUnpaid: %v", res.Error)
		return res.Error
	}
	if res.RowsAffected == 1 {
		return nil
	}

	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return repository.ErrNotFound
	}
	return repository.ErrAlreadyPaid
}

func (r *pgBookingRepository) DeleteBooking(ctx context.Context, id string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&bookingRecord{}).Error; err != nil {
		r.l.Errorf(ctx, "pgBookingRepository.DeleteBooking: %v", err)
		return err
	}
	return nil
}

func (r *pgBookingRepository) ListUserBookings(ctx context.Context, userID string) ([]*models.Booking, error) {
	var recs []bookingRecord
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		r.l.Errorf(ctx, "pgBookingRepository.ListUserBookings: %v", err)
		return nil, err
	}
	return bookingModels(recs), nil
}

func (r *pgBookingRepository) ListPendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]*models.Booking, error) {
	var recs []bookingRecord
	err := r.db.WithContext(ctx).
		Where("is_paid = ? AND created_at <= ?", false, cutoff.UTC()).
		Order("created_at").
		Limit(limit).
		Find(&recs).Error
	if err != nil {
		r.l.Errorf(ctx, "pgBookingRepository.ListPendingBefore: %v", err)
		return nil, err
	}
	return bookingModels(recs), nil
}

func (r *pgBookingRepository) Stats(ctx context.Context) (int64, int64, error) {
	var row struct {
		Paid    int64
		Revenue int64
	}
	err := r.db.WithContext(ctx).Model(&bookingRecord{}).
		Select("COUNT(*) AS paid, COALESCE(SUM(amount), 0) AS revenue").
		Where("is_paid = ?", true).
		Scan(&row).Error
	if err != nil {
		r.l.Errorf(ctx, "pgBookingRepository.Stats: %v", err)
		return 0, 0, err
	}
	return row.Paid, row.Revenue, nil
}

func (r *pgBookingRepository) exists(ctx context.Context, id string) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&bookingRecord{}).Where("id = ?", id).Count(&n).Error; err != nil {
		r.l.Errorf(ctx, "pgBookingRepository.exists: %v", err)
		return false, err
	}
	return n > 0, nil
}

func bookingModels(recs []bookingRecord) []*models.Booking {
	out := make([]*models.Booking, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toModel())
	}
	return out
}
