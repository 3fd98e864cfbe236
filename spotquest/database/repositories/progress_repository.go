package repositories

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

type ProgressRepository interface {
	WithTx(idb bun.IDB) ProgressRepository
	// GetForPeriod fetches the row for (user, goal, period). A nil
	// periodKey addresses the single one-time row.
	GetForPeriod(ctx context.Context, userID, goalID int64, periodKey *time.Time) (*models.GoalProgress, error)
	Create(ctx context.Context, progress *models.GoalProgress) error
	Update(ctx context.Context, progress *models.GoalProgress) error
	ListByUser(ctx context.Context, userID int64) ([]*models.GoalProgress, error)
}

type progressRepository struct {
	db bun.IDB
}

func NewProgressRepository(db bun.IDB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) WithTx(idb bun.IDB) ProgressRepository {
	return &progressRepository{db: idb}
}

func (r *progressRepository) GetForPeriod(ctx context.Context, userID, goalID int64, periodKey *time.Time) (*models.GoalProgress, error) {
	progress := new(models.GoalProgress)
	q := r.db.NewSelect().
		Model(progress).
		Where("gp.user_id = ?", userID).
		Where("gp.goal_id = ?", goalID)
	if periodKey == nil {
		q = q.Where("gp.period_key IS NULL")
	} else {
		q = q.Where("gp.period_key = ?", *periodKey)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, handleError("get_for_period", "goal_progress", goalID, err)
	}
	return progress, nil
}

func (r *progressRepository) Create(ctx context.Context, progress *models.GoalProgress) error {
	now := time.Now()
	progress.CreatedAt = now
	progress.UpdatedAt = now
	_, err := r.db.NewInsert().Model(progress).Exec(ctx)
	return handleError("create", "goal_progress", progress.GoalID, err)
}

func (r *progressRepository) Update(ctx context.Context, progress *models.GoalProgress) error {
	progress.UpdatedAt = time.Now()
	_, err := r.db.NewUpdate().
		Model(progress).
		WherePK().
		Exec(ctx)
	return handleError("update", "goal_progress", progress.ID, err)
}

// ListByUser returns all progress rows including historical periods.
func (r *progressRepository) ListByUser(ctx context.Context, userID int64) ([]*models.GoalProgress, error) {
	var rows []*models.GoalProgress
	err := r.db.NewSelect().
		Model(&rows).
		Relation("Goal").
		Where("gp.user_id = ?", userID).
		Order("gp.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, handleError("list_by_user", "goal_progress", userID, err)
	}
	return rows, nil
}
