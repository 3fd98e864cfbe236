package repositories

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

type GoalRepository interface {
	WithTx(idb bun.IDB) GoalRepository
	GetByID(ctx context.Context, id int64) (*models.GoalDefinition, error)
	GetActiveByAction(ctx context.Context, action models.ActionType) ([]*models.GoalDefinition, error)
	ListActive(ctx context.Context) ([]*models.GoalDefinition, error)
	Upsert(ctx context.Context, goal *models.GoalDefinition) error
}

type goalRepository struct {
	db bun.IDB
}

func NewGoalRepository(db bun.IDB) GoalRepository {
	return &goalRepository{db: db}
}

func (r *goalRepository) WithTx(idb bun.IDB) GoalRepository {
	return &goalRepository{db: idb}
}

func (r *goalRepository) GetByID(ctx context.Context, id int64) (*models.GoalDefinition, error) {
	goal := new(models.GoalDefinition)
	err := r.db.NewSelect().
		Model(goal).
		Where("gd.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, handleError("get", "goal_definition", id, err)
	}
	return goal, nil
}

func (r *goalRepository) GetActiveByAction(ctx context.Context, action models.ActionType) ([]*models.GoalDefinition, error) {
	var goals []*models.GoalDefinition
	err := r.db.NewSelect().
		Model(&goals).
		Where("active = TRUE").
		Where("criteria_action = ?", action).
		Order("display_order ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, handleError("get_active_by_action", "goal_definition", action, err)
	}
	return goals, nil
}

func (r *goalRepository) ListActive(ctx context.Context) ([]*models.GoalDefinition, error) {
	var goals []*models.GoalDefinition
	err := r.db.NewSelect().
		Model(&goals).
		Where("active = TRUE").
		Order("display_order ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, handleError("list_active", "goal_definition", nil, err)
	}
	return goals, nil
}

// Upsert keys goals on their stable code so catalog seeding is idempotent.
func (r *goalRepository) Upsert(ctx context.Context, goal *models.GoalDefinition) error {
	now := time.Now()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	goal.UpdatedAt = now
	_, err := r.db.NewInsert().
		Model(goal).
		On("CONFLICT (code) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("icon_url = EXCLUDED.icon_url").
		Set("kind = EXCLUDED.kind").
		Set("criteria_action = EXCLUDED.criteria_action").
		Set("target = EXCLUDED.target").
		Set("reset_schedule = EXCLUDED.reset_schedule").
		Set("coin_reward = EXCLUDED.coin_reward").
		Set("xp_reward = EXCLUDED.xp_reward").
		Set("active = EXCLUDED.active").
		Set("display_order = EXCLUDED.display_order").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return handleError("upsert", "goal_definition", goal.Code, err)
}
