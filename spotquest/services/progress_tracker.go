package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/uptrace/bun"
)

type outcome string

const (
	outcomeUnlocked outcome = "unlocked"
	outcomeUpdated  outcome = "updated"
	outcomeSkipped  outcome = "skipped"
)

type evaluation struct {
	outcome  outcome
	progress *models.GoalProgress
}

// lockStripes bounds the in-process lock table. Distinct (user, goal)
// pairs may share a stripe; that only costs contention, never correctness.
const lockStripes = 256

// ProgressTracker runs the state machine per (user, goal, period):
// NotStarted (no row) -> InProgress -> Completed. Progress is recomputed
// by counting action events inside the goal's window on every check, which
// makes evaluation idempotent and order-independent; the window is at most
// one week of one user's events.
type ProgressTracker struct {
	progress repositories.ProgressRepository
	actions  repositories.ActionRepository
	users    repositories.UserRepository
	ledger   *RewardLedger

	// serializes evaluation per (user, goal), striped so the table stays
	// fixed-size no matter how many pairs a long-lived process sees
	locks [lockStripes]sync.Mutex
}

func NewProgressTracker(progress repositories.ProgressRepository, actions repositories.ActionRepository, users repositories.UserRepository, ledger *RewardLedger) *ProgressTracker {
	return &ProgressTracker{
		progress: progress,
		actions:  actions,
		users:    users,
		ledger:   ledger,
	}
}

func (pt *ProgressTracker) lockFor(userID, goalID int64) *sync.Mutex {
	h := uint64(userID)*0x9E3779B97F4A7C15 ^ uint64(goalID)
	return &pt.locks[h%lockStripes]
}

// evaluate applies one relevant action to one goal for one user and
// reports whether the goal unlocked, updated, or was skipped as already
// completed for its period.
func (pt *ProgressTracker) evaluate(ctx context.Context, idb bun.IDB, userID int64, goal *models.GoalDefinition, now time.Time) (evaluation, error) {
	// Misconfigured catalog rows are skipped defensively; rejecting them
	// is the admin surface's job.
	if err := goal.ValidateConfig(); err != nil {
		slog.Warn("Skipping misconfigured goal",
			slog.String("type", "engine"),
			slog.String("goal", goal.Code),
			slog.Any("error", err))
		return evaluation{outcome: outcomeSkipped}, nil
	}

	mu := pt.lockFor(userID, goal.ID)
	mu.Lock()
	defer mu.Unlock()

	progressRepo := pt.progress.WithTx(idb)
	periodKey := goal.ResetSchedule.PeriodKey(now)

	row, err := progressRepo.GetForPeriod(ctx, userID, goal.ID, periodKey)
	if err != nil {
		if !repositories.IsNotFound(err) {
			return evaluation{}, err
		}
		row = &models.GoalProgress{
			UserID:         userID,
			GoalID:         goal.ID,
			PeriodKey:      periodKey,
			TargetProgress: goal.Target,
		}
		if err := progressRepo.Create(ctx, row); err != nil {
			// A concurrent transaction created the row first; pick it up.
			if !repositories.IsConflict(err) {
				return evaluation{}, err
			}
			row, err = progressRepo.GetForPeriod(ctx, userID, goal.ID, periodKey)
			if err != nil {
				return evaluation{}, err
			}
		}
	}

	// One-time goals are terminal once completed; resettable goals stay
	// quiet until the period key advances and a fresh row takes over.
	if row.Completed() {
		return evaluation{outcome: outcomeSkipped, progress: row}, nil
	}

	from, to := goal.ResetSchedule.Window(now)
	count, err := pt.actions.WithTx(idb).CountInWindow(ctx, userID, goal.CriteriaAction, from, to)
	if err != nil {
		return evaluation{}, err
	}
	row.CurrentProgress = count

	if count < row.TargetProgress {
		if err := progressRepo.Update(ctx, row); err != nil {
			return evaluation{}, err
		}
		return evaluation{outcome: outcomeUpdated, progress: row}, nil
	}

	completedAt := now
	row.CompletedAt = &completedAt
	if err := progressRepo.Update(ctx, row); err != nil {
		return evaluation{}, err
	}

	if err := pt.grantCompletion(ctx, idb, userID, goal, now); err != nil {
		return evaluation{}, err
	}

	slog.Info("Goal unlocked",
		slog.String("type", "engine"),
		slog.Int64("user_id", userID),
		slog.String("goal", goal.Code),
		slog.String("kind", goal.Kind))
	return evaluation{outcome: outcomeUnlocked, progress: row}, nil
}

// grantCompletion pays out the goal's reward exactly once per completion.
// The completed-row check above is what prevents a second payout.
func (pt *ProgressTracker) grantCompletion(ctx context.Context, idb bun.IDB, userID int64, goal *models.GoalDefinition, now time.Time) error {
	causeKind := models.CauseAchievement
	if goal.Kind == models.GoalKindChallenge {
		causeKind = models.CauseChallenge
	}
	cause, err := models.NewCause(causeKind, goal.ID)
	if err != nil {
		return err
	}

	if goal.CoinReward > 0 {
		if _, err := pt.ledger.addCoins(ctx, idb, userID, goal.CoinReward, cause, now); err != nil {
			return err
		}
	}
	if goal.XPReward > 0 {
		if _, err := pt.ledger.addExp(ctx, idb, userID, goal.XPReward, cause, now); err != nil {
			return err
		}
	}

	// Only one-time completions count toward the lifetime total.
	if goal.OneTime() {
		if err := pt.users.WithTx(idb).IncrementCounter(ctx, userID, models.CounterAchievement); err != nil {
			return err
		}
	}
	return nil
}
