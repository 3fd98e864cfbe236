package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/uptrace/bun"
)

// RedemptionService spends coins on stock-limited catalog rewards. Stock
// decrement and coin deduction are one atomic unit: a failure on either
// side rolls both back.
type RedemptionService struct {
	db      DB
	rewards repositories.RewardRepository
	ledger  *RewardLedger
}

func NewRedemptionService(db DB, rewards repositories.RewardRepository, ledger *RewardLedger) *RedemptionService {
	return &RedemptionService{db: db, rewards: rewards, ledger: ledger}
}

func (s *RedemptionService) Redeem(ctx context.Context, userID, rewardID int64) (*models.Redemption, error) {
	var redemption *models.Redemption
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		rewardRepo := s.rewards.WithTx(tx)

		reward, err := rewardRepo.GetByID(ctx, rewardID)
		if err != nil {
			return err
		}
		if !reward.Active {
			return validationErrorf(CodeInactiveReward, "reward %d is not active", rewardID)
		}

		// Stock is checked before balance: an exhausted reward always
		// fails with stock_exhausted regardless of how rich the user is.
		taken, err := rewardRepo.DecrementStock(ctx, rewardID)
		if err != nil {
			return err
		}
		if !taken {
			return validationErrorf(CodeStockExhausted, "reward %d is out of stock", rewardID)
		}

		cause, err := models.NewCause(models.CauseRedemption, rewardID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.useCoins(ctx, tx, userID, reward.CoinCost, cause, now); err != nil {
			return err
		}

		redemption = &models.Redemption{
			UserID:    userID,
			RewardID:  rewardID,
			CoinCost:  reward.CoinCost,
			CreatedAt: now,
		}
		return rewardRepo.CreateRedemption(ctx, redemption)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Reward redeemed",
		slog.String("type", "domain"),
		slog.Int64("user_id", userID),
		slog.Int64("reward_id", rewardID),
		slog.Int64("coin_cost", redemption.CoinCost))
	return redemption, nil
}

// ListRewards returns the active catalog for display.
func (s *RedemptionService) ListRewards(ctx context.Context) ([]*models.Reward, error) {
	return s.rewards.ListActive(ctx)
}
