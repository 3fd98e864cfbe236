package models

import (
	"time"

	"github.com/uptrace/bun"
)

// GoalProgress is the per-(user, goal, period) state machine row.
// No row means NotStarted; CompletedAt nil means InProgress; CompletedAt
// set means Completed. Resettable goals get a fresh row each period and
// old rows are kept for history.
type GoalProgress struct {
	bun.BaseModel `bun:"table:goal_progress,alias:gp"`

	ID              int64      `bun:"id,pk,autoincrement"`
	UserID          int64      `bun:"user_id,notnull"`
	GoalID          int64      `bun:"goal_id,notnull"`
	PeriodKey       *time.Time `bun:"period_key,type:date"`
	CurrentProgress int        `bun:"current_progress,notnull,default:0"`
	TargetProgress  int        `bun:"target_progress,notnull"`
	CompletedAt     *time.Time `bun:"completed_at"`
	CreatedAt       time.Time  `bun:"created_at,notnull"`
	UpdatedAt       time.Time  `bun:"updated_at,notnull"`

	Goal *GoalDefinition `bun:"rel:belongs-to,join:goal_id=id"`
}

// Completed reports whether this row reached its target.
func (p *GoalProgress) Completed() bool {
	return p.CompletedAt != nil
}

// Percentage returns current progress as a percentage, capped at 100.
func (p *GoalProgress) Percentage() float64 {
	if p.TargetProgress <= 0 {
		return 0
	}
	pct := float64(p.CurrentProgress) / float64(p.TargetProgress) * 100
	if pct > 100 {
		pct = 100
	}
	return pct
}
