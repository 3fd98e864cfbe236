package models

import (
	"time"

	"github.com/uptrace/bun"
)

// User carries the cached aggregate totals and lifetime counters. The
// totals are mutated only inside the same transaction as the ledger entry
// that explains them.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID       int64  `bun:"id,pk,autoincrement"`
	Username string `bun:"username,notnull"`

	// Aggregates, kept consistent with reward_transactions
	TotalCoin int64 `bun:"total_coin,notnull,default:0"`
	TotalExp  int64 `bun:"total_exp,notnull,default:0"`

	// Lifetime counters
	TotalCheckin     int `bun:"total_checkin,notnull,default:0"`
	TotalReview      int `bun:"total_review,notnull,default:0"`
	TotalPost        int `bun:"total_post,notnull,default:0"`
	TotalAchievement int `bun:"total_achievement,notnull,default:0"`

	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

// LifetimeCounter names a counter column that can be bumped atomically.
type LifetimeCounter string

const (
	CounterCheckin     LifetimeCounter = "total_checkin"
	CounterReview      LifetimeCounter = "total_review"
	CounterPost        LifetimeCounter = "total_post"
	CounterAchievement LifetimeCounter = "total_achievement"
)

var knownCounters = map[LifetimeCounter]struct{}{
	CounterCheckin:     {},
	CounterReview:      {},
	CounterPost:        {},
	CounterAchievement: {},
}

// Valid reports whether c names a real counter column. Counters are
// interpolated into SQL, so the set is closed.
func (c LifetimeCounter) Valid() bool {
	_, ok := knownCounters[c]
	return ok
}
