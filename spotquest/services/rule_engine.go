package services

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/uptrace/bun"
)

// UnlockedGoal describes a goal that transitioned to Completed during this
// call. Rewards are already committed; callers only surface the report.
type UnlockedGoal struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IconURL     string `json:"icon_url"`
	Kind        string `json:"kind"`
	RewardCoins int64  `json:"reward_coins"`
	RewardXP    int64  `json:"reward_xp"`
}

// UpdatedGoal describes a goal whose progress moved but is still short of
// its target.
type UpdatedGoal struct {
	ID         int64   `json:"id"`
	Code       string  `json:"code"`
	Name       string  `json:"name"`
	Kind       string  `json:"kind"`
	Progress   int     `json:"progress"`
	Target     int     `json:"target"`
	Percentage float64 `json:"percentage"`
}

// ActionReport is the result of one CheckOnAction call.
type ActionReport struct {
	Unlocked []UnlockedGoal `json:"unlocked"`
	Updated  []UpdatedGoal  `json:"updated"`
}

// RuleEngine orchestrates "on action X, evaluate all matching goals". One
// call is one transaction: log the action, evaluate every active goal
// whose criteria matches, and report what changed.
type RuleEngine struct {
	db      DB
	goals   repositories.GoalRepository
	logger  *ActionLogger
	tracker *ProgressTracker
}

func NewRuleEngine(db DB, goals repositories.GoalRepository, logger *ActionLogger, tracker *ProgressTracker) *RuleEngine {
	return &RuleEngine{db: db, goals: goals, logger: logger, tracker: tracker}
}

// CheckOnAction runs the whole chain in its own transaction. Domain
// operations that already hold a transaction use the unexported variant
// so everything commits or aborts together.
func (e *RuleEngine) CheckOnAction(ctx context.Context, userID int64, action models.ActionType, data map[string]any) (*ActionReport, error) {
	if !action.Valid() {
		return nil, validationErrorf(CodeUnknownAction, "unknown action type %q", action)
	}
	var report *ActionReport
	err := e.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		report, err = e.checkOnAction(ctx, tx, userID, action, data, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (e *RuleEngine) checkOnAction(ctx context.Context, idb bun.IDB, userID int64, action models.ActionType, data map[string]any, now time.Time) (*ActionReport, error) {
	if !action.Valid() {
		return nil, validationErrorf(CodeUnknownAction, "unknown action type %q", action)
	}
	if _, err := e.logger.log(ctx, idb, userID, action, data, now); err != nil {
		return nil, err
	}
	return e.evaluateGoals(ctx, idb, userID, action, now)
}

// evaluateGoals assumes the triggering event is already logged. The
// ledger's earned-event hook enters here directly.
func (e *RuleEngine) evaluateGoals(ctx context.Context, idb bun.IDB, userID int64, action models.ActionType, now time.Time) (*ActionReport, error) {
	ctx = withEvaluating(ctx)

	goals, err := e.goals.WithTx(idb).GetActiveByAction(ctx, action)
	if err != nil {
		return nil, err
	}

	report := &ActionReport{
		Unlocked: []UnlockedGoal{},
		Updated:  []UpdatedGoal{},
	}
	for _, goal := range goals {
		eval, err := e.tracker.evaluate(ctx, idb, userID, goal, now)
		if err != nil {
			return nil, err
		}
		switch eval.outcome {
		case outcomeUnlocked:
			report.Unlocked = append(report.Unlocked, UnlockedGoal{
				ID:          goal.ID,
				Code:        goal.Code,
				Name:        goal.Name,
				Description: goal.Description,
				IconURL:     goal.IconURL,
				Kind:        goal.Kind,
				RewardCoins: goal.CoinReward,
				RewardXP:    goal.XPReward,
			})
		case outcomeUpdated:
			report.Updated = append(report.Updated, UpdatedGoal{
				ID:         goal.ID,
				Code:       goal.Code,
				Name:       goal.Name,
				Kind:       goal.Kind,
				Progress:   eval.progress.CurrentProgress,
				Target:     eval.progress.TargetProgress,
				Percentage: eval.progress.Percentage(),
			})
		}
	}
	return report, nil
}
