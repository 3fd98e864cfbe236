package repositories

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

type ReviewRepository interface {
	WithTx(idb bun.IDB) ReviewRepository
	// Create inserts a review; the per-month unique index is the guard,
	// same as check-ins.
	Create(ctx context.Context, review *models.Review) error
}

type reviewRepository struct {
	db bun.IDB
}

func NewReviewRepository(db bun.IDB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) WithTx(idb bun.IDB) ReviewRepository {
	return &reviewRepository{db: idb}
}

func (r *reviewRepository) Create(ctx context.Context, review *models.Review) error {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now()
	}
	review.MonthKey = models.StartOfMonth(review.CreatedAt)
	_, err := r.db.NewInsert().Model(review).Exec(ctx)
	return handleError("create", "review", review.PlaceID, err)
}
