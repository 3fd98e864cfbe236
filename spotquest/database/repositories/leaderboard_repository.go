package repositories

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

type LeaderboardRepository interface {
	WithTx(idb bun.IDB) LeaderboardRepository
	GetActive(ctx context.Context) (*models.LeaderboardSnapshot, error)
	// ReplaceActive deactivates the current snapshot and inserts the new
	// one as active. Callers run it inside the refresh transaction.
	ReplaceActive(ctx context.Context, snapshot *models.LeaderboardSnapshot) error
}

type leaderboardRepository struct {
	db bun.IDB
}

func NewLeaderboardRepository(db bun.IDB) LeaderboardRepository {
	return &leaderboardRepository{db: db}
}

func (r *leaderboardRepository) WithTx(idb bun.IDB) LeaderboardRepository {
	return &leaderboardRepository{db: idb}
}

func (r *leaderboardRepository) GetActive(ctx context.Context) (*models.LeaderboardSnapshot, error) {
	snapshot := new(models.LeaderboardSnapshot)
	err := r.db.NewSelect().
		Model(snapshot).
		Where("active = TRUE").
		Order("created_at DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, handleError("get_active", "leaderboard_snapshot", nil, err)
	}
	return snapshot, nil
}

func (r *leaderboardRepository) ReplaceActive(ctx context.Context, snapshot *models.LeaderboardSnapshot) error {
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}
	snapshot.Active = true
	_, err := r.db.NewUpdate().
		Model((*models.LeaderboardSnapshot)(nil)).
		Set("active = FALSE").
		Where("active = TRUE").
		Exec(ctx)
	if err != nil {
		return handleError("deactivate", "leaderboard_snapshot", nil, err)
	}
	_, err = r.db.NewInsert().Model(snapshot).Exec(ctx)
	return handleError("insert", "leaderboard_snapshot", nil, err)
}
