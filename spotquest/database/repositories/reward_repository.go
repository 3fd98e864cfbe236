package repositories

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

type RewardRepository interface {
	WithTx(idb bun.IDB) RewardRepository
	GetByID(ctx context.Context, id int64) (*models.Reward, error)
	ListActive(ctx context.Context) ([]*models.Reward, error)
	// DecrementStock takes one unit of stock if any remains. False with a
	// nil error means the stock was already exhausted; nothing changes.
	DecrementStock(ctx context.Context, rewardID int64) (bool, error)
	CreateRedemption(ctx context.Context, redemption *models.Redemption) error
	Upsert(ctx context.Context, reward *models.Reward) error
}

type rewardRepository struct {
	db bun.IDB
}

func NewRewardRepository(db bun.IDB) RewardRepository {
	return &rewardRepository{db: db}
}

func (r *rewardRepository) WithTx(idb bun.IDB) RewardRepository {
	return &rewardRepository{db: idb}
}

func (r *rewardRepository) GetByID(ctx context.Context, id int64) (*models.Reward, error) {
	reward := new(models.Reward)
	err := r.db.NewSelect().
		Model(reward).
		Where("rw.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, handleError("get", "reward", id, err)
	}
	return reward, nil
}

func (r *rewardRepository) ListActive(ctx context.Context) ([]*models.Reward, error) {
	var rewards []*models.Reward
	err := r.db.NewSelect().
		Model(&rewards).
		Where("active = TRUE").
		Order("display_order ASC", "id ASC").
		Scan(ctx)
	if err != nil {
		return nil, handleError("list_active", "reward", nil, err)
	}
	return rewards, nil
}

func (r *rewardRepository) DecrementStock(ctx context.Context, rewardID int64) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.Reward)(nil)).
		Set("stock = stock - 1").
		Set("updated_at = ?", time.Now()).
		Where("id = ?", rewardID).
		Where("stock > 0").
		Exec(ctx)
	if err != nil {
		return false, handleError("decrement_stock", "reward", rewardID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *rewardRepository) CreateRedemption(ctx context.Context, redemption *models.Redemption) error {
	if redemption.CreatedAt.IsZero() {
		redemption.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().Model(redemption).Exec(ctx)
	return handleError("create", "redemption", redemption.RewardID, err)
}

func (r *rewardRepository) Upsert(ctx context.Context, reward *models.Reward) error {
	now := time.Now()
	if reward.CreatedAt.IsZero() {
		reward.CreatedAt = now
	}
	reward.UpdatedAt = now
	_, err := r.db.NewInsert().
		Model(reward).
		On("CONFLICT (id) DO UPDATE").
		Set("name = EXCLUDED.name").
		Set("description = EXCLUDED.description").
		Set("coin_cost = EXCLUDED.coin_cost").
		Set("stock = EXCLUDED.stock").
		Set("active = EXCLUDED.active").
		Set("display_order = EXCLUDED.display_order").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	return handleError("upsert", "reward", reward.Name, err)
}
