package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Checkin is the slim domain record anchoring the "one check-in per
// (user, place) per calendar month" guard. The unique index on
// (user_id, place_id, month_key) is the authoritative guard, not an
// application-level existence check.
type Checkin struct {
	bun.BaseModel `bun:"table:checkins,alias:ci"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	PlaceID   int64     `bun:"place_id,notnull"`
	MonthKey  time.Time `bun:"month_key,notnull,type:date"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}

// Review mirrors Checkin with the same per-month uniqueness rule.
type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:rv"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	PlaceID   int64     `bun:"place_id,notnull"`
	MonthKey  time.Time `bun:"month_key,notnull,type:date"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
