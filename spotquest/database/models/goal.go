package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Goal kind constants
const (
	GoalKindAchievement = "achievement"
	GoalKindChallenge   = "challenge"
)

// ResetSchedule controls whether and how often goal progress restarts.
type ResetSchedule string

const (
	ResetNone   ResetSchedule = "none"
	ResetDaily  ResetSchedule = "daily"
	ResetWeekly ResetSchedule = "weekly"
)

// GoalDefinition is a catalog entry describing a countable target and its
// reward. Rows are managed by an external admin surface and are read-only
// to the rule engine.
type GoalDefinition struct {
	bun.BaseModel `bun:"table:goal_definitions,alias:gd"`

	ID             int64         `bun:"id,pk,autoincrement"`
	Code           string        `bun:"code,notnull,unique"`
	Name           string        `bun:"name,notnull"`
	Description    string        `bun:"description,notnull"`
	IconURL        string        `bun:"icon_url"`
	Kind           string        `bun:"kind,notnull"`
	CriteriaAction ActionType    `bun:"criteria_action,notnull"`
	Target         int           `bun:"target,notnull"`
	ResetSchedule  ResetSchedule `bun:"reset_schedule,notnull,default:'none'"`
	CoinReward     int64         `bun:"coin_reward,notnull,default:0"`
	XPReward       int64         `bun:"xp_reward,notnull,default:0"`
	Active         bool          `bun:"active,notnull,default:true"`
	DisplayOrder   int           `bun:"display_order,notnull,default:0"`
	CreatedAt      time.Time     `bun:"created_at,notnull"`
	UpdatedAt      time.Time     `bun:"updated_at,notnull"`
}

// OneTime reports whether the goal is terminal once completed.
func (g *GoalDefinition) OneTime() bool {
	return g.ResetSchedule == ResetNone
}

// ValidateConfig rejects catalog rows the engine must not evaluate.
// Misconfigured rows should be caught at admin-save time; at evaluation
// time the engine no-ops on them instead of crashing.
func (g *GoalDefinition) ValidateConfig() error {
	if g.Target <= 0 {
		return fmt.Errorf("goal %s: target must be positive, got %d", g.Code, g.Target)
	}
	if !g.CriteriaAction.Valid() {
		return fmt.Errorf("goal %s: unknown criteria action %q", g.Code, g.CriteriaAction)
	}
	switch g.ResetSchedule {
	case ResetNone, ResetDaily, ResetWeekly:
	default:
		return fmt.Errorf("goal %s: unknown reset schedule %q", g.Code, g.ResetSchedule)
	}
	return nil
}

// PeriodKey returns the date identifying the reset cycle t falls in,
// or nil for one-time goals.
func (s ResetSchedule) PeriodKey(t time.Time) *time.Time {
	switch s {
	case ResetDaily:
		day := StartOfDay(t)
		return &day
	case ResetWeekly:
		week := StartOfWeek(t)
		return &week
	default:
		return nil
	}
}

// Window returns the half-open [from, to) evaluation window for t.
// One-time goals have an unbounded window (nil, nil).
func (s ResetSchedule) Window(t time.Time) (from, to *time.Time) {
	switch s {
	case ResetDaily:
		start := StartOfDay(t)
		end := start.AddDate(0, 0, 1)
		return &start, &end
	case ResetWeekly:
		start := StartOfWeek(t)
		end := start.AddDate(0, 0, 7)
		return &start, &end
	default:
		return nil, nil
	}
}

// StartOfDay truncates t to local midnight.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek truncates t to the preceding Monday midnight.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// StartOfMonth truncates t to the first of the month.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}
