package services

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/uptrace/bun"
)

// ReviewResult mirrors CheckinResult for the review operation.
type ReviewResult struct {
	Review      *models.Review `json:"review"`
	CoinsEarned int64          `json:"coins_earned"`
	XPEarned    int64          `json:"xp_earned"`
	Report      *ActionReport  `json:"report"`
}

// ReviewService enforces one rewarded review per (user, place) per
// calendar month, same shape as check-ins.
type ReviewService struct {
	db      DB
	reviews repositories.ReviewRepository
	users   repositories.UserRepository
	ledger  *RewardLedger
	engine  *RuleEngine
}

func NewReviewService(db DB, reviews repositories.ReviewRepository, users repositories.UserRepository, ledger *RewardLedger, engine *RuleEngine) *ReviewService {
	return &ReviewService{db: db, reviews: reviews, users: users, ledger: ledger, engine: engine}
}

func (s *ReviewService) Review(ctx context.Context, userID, placeID int64) (*ReviewResult, error) {
	var result *ReviewResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		review := &models.Review{
			UserID:    userID,
			PlaceID:   placeID,
			CreatedAt: now,
		}
		if err := s.reviews.WithTx(tx).Create(ctx, review); err != nil {
			if repositories.IsConflict(err) {
				return validationErrorf(CodeAlreadyReviewed,
					"user %d already reviewed place %d this month", userID, placeID)
			}
			return err
		}

		if err := s.users.WithTx(tx).IncrementCounter(ctx, userID, models.CounterReview); err != nil {
			return err
		}

		cause, err := models.NewCause(models.CauseReview, review.ID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.addCoins(ctx, tx, userID, ReviewCoinReward, cause, now); err != nil {
			return err
		}
		if _, err := s.ledger.addExp(ctx, tx, userID, ReviewXPReward, cause, now); err != nil {
			return err
		}

		report, err := s.engine.checkOnAction(ctx, tx, userID, models.ActionReview, map[string]any{
			"place_id": placeID,
		}, now)
		if err != nil {
			return err
		}

		result = &ReviewResult{
			Review:      review,
			CoinsEarned: ReviewCoinReward,
			XPEarned:    ReviewXPReward,
			Report:      report,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
