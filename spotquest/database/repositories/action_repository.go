package repositories

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

type ActionRepository interface {
	WithTx(idb bun.IDB) ActionRepository
	Insert(ctx context.Context, event *models.ActionEvent) error
	// CountInWindow counts one user's events of one type inside the
	// half-open window [from, to). Nil bounds leave that side unbounded.
	CountInWindow(ctx context.Context, userID int64, action models.ActionType, from, to *time.Time) (int, error)
}

type actionRepository struct {
	db bun.IDB
}

func NewActionRepository(db bun.IDB) ActionRepository {
	return &actionRepository{db: db}
}

func (r *actionRepository) WithTx(idb bun.IDB) ActionRepository {
	return &actionRepository{db: idb}
}

func (r *actionRepository) Insert(ctx context.Context, event *models.ActionEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().Model(event).Exec(ctx)
	return handleError("insert", "action_event", event.UserID, err)
}

func (r *actionRepository) CountInWindow(ctx context.Context, userID int64, action models.ActionType, from, to *time.Time) (int, error) {
	q := r.db.NewSelect().
		Model((*models.ActionEvent)(nil)).
		Where("user_id = ?", userID).
		Where("action_type = ?", action)
	if from != nil {
		q = q.Where("created_at >= ?", *from)
	}
	if to != nil {
		q = q.Where("created_at < ?", *to)
	}
	count, err := q.Count(ctx)
	if err != nil {
		return 0, handleError("count_in_window", "action_event", userID, err)
	}
	return count, nil
}
