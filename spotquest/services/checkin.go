package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/uptrace/bun"
)

// Base rewards for domain actions.
const (
	CheckinCoinReward = 10
	CheckinXPReward   = 20
	ReviewCoinReward  = 15
	ReviewXPReward    = 30
)

// CheckinResult reports a committed check-in together with the goal
// effects it triggered.
type CheckinResult struct {
	Checkin     *models.Checkin `json:"checkin"`
	CoinsEarned int64           `json:"coins_earned"`
	XPEarned    int64           `json:"xp_earned"`
	Report      *ActionReport   `json:"report"`
}

// CheckinService is the check-in domain operation: one transaction writes
// the check-in record, grants base rewards, and runs the rule engine. The
// unique index on (user, place, month) makes a concurrent duplicate fail
// cleanly with nothing granted.
type CheckinService struct {
	db       DB
	checkins repositories.CheckinRepository
	users    repositories.UserRepository
	ledger   *RewardLedger
	engine   *RuleEngine
}

func NewCheckinService(db DB, checkins repositories.CheckinRepository, users repositories.UserRepository, ledger *RewardLedger, engine *RuleEngine) *CheckinService {
	return &CheckinService{db: db, checkins: checkins, users: users, ledger: ledger, engine: engine}
}

func (s *CheckinService) Checkin(ctx context.Context, userID, placeID int64) (*CheckinResult, error) {
	var result *CheckinResult
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		now := time.Now()
		checkin := &models.Checkin{
			UserID:    userID,
			PlaceID:   placeID,
			CreatedAt: now,
		}
		if err := s.checkins.WithTx(tx).Create(ctx, checkin); err != nil {
			if repositories.IsConflict(err) {
				return validationErrorf(CodeAlreadyCheckedIn,
					"user %d already checked in to place %d this month", userID, placeID)
			}
			return err
		}

		if err := s.users.WithTx(tx).IncrementCounter(ctx, userID, models.CounterCheckin); err != nil {
			return err
		}

		cause, err := models.NewCause(models.CauseCheckin, checkin.ID)
		if err != nil {
			return err
		}
		if _, err := s.ledger.addCoins(ctx, tx, userID, CheckinCoinReward, cause, now); err != nil {
			return err
		}
		if _, err := s.ledger.addExp(ctx, tx, userID, CheckinXPReward, cause, now); err != nil {
			return err
		}

		report, err := s.engine.checkOnAction(ctx, tx, userID, models.ActionCheckin, map[string]any{
			"place_id": placeID,
		}, now)
		if err != nil {
			return err
		}

		result = &CheckinResult{
			Checkin:     checkin,
			CoinsEarned: CheckinCoinReward,
			XPEarned:    CheckinXPReward,
			Report:      report,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Check-in recorded",
		slog.String("type", "domain"),
		slog.Int64("user_id", userID),
		slog.Int64("place_id", placeID),
		slog.Int("unlocked", len(result.Report.Unlocked)))
	return result, nil
}
