package repositories

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

type CheckinRepository interface {
	WithTx(idb bun.IDB) CheckinRepository
	// Create inserts a check-in. The unique index on
	// (user_id, place_id, month_key) is the idempotency guard; a second
	// check-in for the same place in the same month comes back as a
	// ConflictError.
	Create(ctx context.Context, checkin *models.Checkin) error
	CountByUser(ctx context.Context, userID int64) (int, error)
}

type checkinRepository struct {
	db bun.IDB
}

func NewCheckinRepository(db bun.IDB) CheckinRepository {
	return &checkinRepository{db: db}
}

func (r *checkinRepository) WithTx(idb bun.IDB) CheckinRepository {
	return &checkinRepository{db: idb}
}

func (r *checkinRepository) Create(ctx context.Context, checkin *models.Checkin) error {
	if checkin.CreatedAt.IsZero() {
		checkin.CreatedAt = time.Now()
	}
	checkin.MonthKey = models.StartOfMonth(checkin.CreatedAt)
	_, err := r.db.NewInsert().Model(checkin).Exec(ctx)
	return handleError("create", "checkin", checkin.PlaceID, err)
}

func (r *checkinRepository) CountByUser(ctx context.Context, userID int64) (int, error) {
	count, err := r.db.NewSelect().
		Model((*models.Checkin)(nil)).
		Where("user_id = ?", userID).
		Count(ctx)
	if err != nil {
		return 0, handleError("count_by_user", "checkin", userID, err)
	}
	return count, nil
}
