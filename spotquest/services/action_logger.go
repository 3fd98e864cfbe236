package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/uptrace/bun"
)

// ActionLogger appends user actions to the audit trail the progress
// tracker recomputes from. It never deduplicates; uniqueness rules live
// with the domain operation that triggered the action.
type ActionLogger struct {
	actions repositories.ActionRepository
}

func NewActionLogger(actions repositories.ActionRepository) *ActionLogger {
	return &ActionLogger{actions: actions}
}

// Log records a single action event and returns it.
func (al *ActionLogger) Log(ctx context.Context, userID int64, action models.ActionType, data map[string]any) (*models.ActionEvent, error) {
	if !action.Valid() {
		return nil, validationErrorf(CodeUnknownAction, "unknown action type %q", action)
	}
	return al.logWith(ctx, al.actions, userID, action, data, time.Now())
}

// log joins an open transaction.
func (al *ActionLogger) log(ctx context.Context, idb bun.IDB, userID int64, action models.ActionType, data map[string]any, now time.Time) (*models.ActionEvent, error) {
	return al.logWith(ctx, al.actions.WithTx(idb), userID, action, data, now)
}

func (al *ActionLogger) logWith(ctx context.Context, repo repositories.ActionRepository, userID int64, action models.ActionType, data map[string]any, now time.Time) (*models.ActionEvent, error) {
	event := &models.ActionEvent{
		UserID:     userID,
		ActionType: action,
		Data:       data,
		CreatedAt:  now,
	}
	if err := repo.Insert(ctx, event); err != nil {
		return nil, err
	}
	slog.Debug("Action logged",
		slog.String("type", "engine"),
		slog.Int64("user_id", userID),
		slog.String("action", string(action)))
	return event, nil
}
