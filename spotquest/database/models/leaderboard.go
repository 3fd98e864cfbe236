package models

import (
	"time"

	"github.com/uptrace/bun"
)

// LeaderboardEntry is one ranked row inside a snapshot.
type LeaderboardEntry struct {
	Rank     int    `json:"rank"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Exp      int64  `json:"exp"`
}

// LeaderboardSnapshot is a materialized ranked list of top users. It is
// rebuilt wholesale by an explicit refresh, never patched incrementally.
type LeaderboardSnapshot struct {
	bun.BaseModel `bun:"table:leaderboard_snapshots,alias:ls"`

	ID          int64              `bun:"id,pk,autoincrement"`
	PeriodStart time.Time          `bun:"period_start,notnull"`
	PeriodEnd   time.Time          `bun:"period_end,notnull"`
	Active      bool               `bun:"active,notnull,default:false"`
	Entries     []LeaderboardEntry `bun:"entries,type:jsonb"`
	CreatedAt   time.Time          `bun:"created_at,notnull"`
}
