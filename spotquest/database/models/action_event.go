package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// ActionType is the closed vocabulary of countable user actions.
type ActionType string

const (
	ActionCheckin    ActionType = "checkin"
	ActionReview     ActionType = "review"
	ActionPost       ActionType = "post"
	ActionLike       ActionType = "like"
	ActionComment    ActionType = "comment"
	ActionFollow     ActionType = "follow"
	ActionCoinEarned ActionType = "coin_earned"
	ActionXPEarned   ActionType = "xp_earned"
	ActionTopRank    ActionType = "top_rank"
)

var knownActionTypes = map[ActionType]struct{}{
	ActionCheckin:    {},
	ActionReview:     {},
	ActionPost:       {},
	ActionLike:       {},
	ActionComment:    {},
	ActionFollow:     {},
	ActionCoinEarned: {},
	ActionXPEarned:   {},
	ActionTopRank:    {},
}

// Valid reports whether t is part of the closed action vocabulary.
func (t ActionType) Valid() bool {
	_, ok := knownActionTypes[t]
	return ok
}

// IsMeta reports whether t is emitted by the reward ledger itself rather
// than by a user-facing domain operation.
func (t ActionType) IsMeta() bool {
	return t == ActionCoinEarned || t == ActionXPEarned
}

// ParseActionType validates a raw string at the boundary. Unknown types are
// rejected rather than silently recorded.
func ParseActionType(raw string) (ActionType, error) {
	t := ActionType(raw)
	if !t.Valid() {
		return "", fmt.Errorf("unknown action type %q", raw)
	}
	return t, nil
}

// ActionEvent is an append-only record of a single user action. Rows are
// never updated or deleted; progress is recomputed by counting them.
type ActionEvent struct {
	bun.BaseModel `bun:"table:action_events,alias:ae"`

	ID         int64          `bun:"id,pk,autoincrement"`
	UserID     int64          `bun:"user_id,notnull"`
	ActionType ActionType     `bun:"action_type,notnull"`
	Data       map[string]any `bun:"data,type:jsonb"`
	CreatedAt  time.Time      `bun:"created_at,notnull"`
}
