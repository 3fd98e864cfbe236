package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Reward is a stock-limited catalog entry users redeem coins for.
type Reward struct {
	bun.BaseModel `bun:"table:rewards,alias:rw"`

	ID           int64     `bun:"id,pk,autoincrement"`
	Name         string    `bun:"name,notnull"`
	Description  string    `bun:"description"`
	CoinCost     int64     `bun:"coin_cost,notnull"`
	Stock        int       `bun:"stock,notnull,default:0"`
	Active       bool      `bun:"active,notnull,default:true"`
	DisplayOrder int       `bun:"display_order,notnull,default:0"`
	CreatedAt    time.Time `bun:"created_at,notnull"`
	UpdatedAt    time.Time `bun:"updated_at,notnull"`
}

// Redemption records a successful redemption with the cost at that time.
type Redemption struct {
	bun.BaseModel `bun:"table:redemptions,alias:rd"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	RewardID  int64     `bun:"reward_id,notnull"`
	CoinCost  int64     `bun:"coin_cost,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`

	Reward *Reward `bun:"rel:belongs-to,join:reward_id=id"`
}
