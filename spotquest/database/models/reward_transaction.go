package models

import (
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

// Currency distinguishes the two ledgers sharing one transaction table.
type Currency string

const (
	CurrencyCoin Currency = "coin"
	CurrencyXP   Currency = "xp"
)

// CauseKind is the closed enum of things that can produce a ledger entry.
type CauseKind string

const (
	CauseAchievement CauseKind = "achievement"
	CauseChallenge   CauseKind = "challenge"
	CauseCheckin     CauseKind = "checkin"
	CauseReview      CauseKind = "review"
	CausePost        CauseKind = "post"
	CauseRedemption  CauseKind = "redemption"
	CauseAdmin       CauseKind = "admin"
)

var knownCauseKinds = map[CauseKind]struct{}{
	CauseAchievement: {},
	CauseChallenge:   {},
	CauseCheckin:     {},
	CauseReview:      {},
	CausePost:        {},
	CauseRedemption:  {},
	CauseAdmin:       {},
}

// Cause is a tagged reference to the record that produced a ledger entry,
// e.g. achievement#7. Construct through NewCause so the kind is validated.
type Cause struct {
	Kind CauseKind `bun:"kind,notnull"`
	ID   int64     `bun:"id,notnull"`
}

// NewCause builds a validated cause reference.
func NewCause(kind CauseKind, id int64) (Cause, error) {
	if _, ok := knownCauseKinds[kind]; !ok {
		return Cause{}, fmt.Errorf("unknown cause kind %q", kind)
	}
	return Cause{Kind: kind, ID: id}, nil
}

func (c Cause) String() string {
	return fmt.Sprintf("%s#%d", c.Kind, c.ID)
}

// Validate re-checks a cause that was built literally.
func (c Cause) Validate() error {
	if _, ok := knownCauseKinds[c.Kind]; !ok {
		return fmt.Errorf("unknown cause kind %q", c.Kind)
	}
	return nil
}

// RewardTransaction is one immutable ledger entry. The invariant the whole
// system leans on: the sum of a user's entries per currency always equals
// the cached aggregate on the user row.
type RewardTransaction struct {
	bun.BaseModel `bun:"table:reward_transactions,alias:rt"`

	ID        int64     `bun:"id,pk,autoincrement"`
	UserID    int64     `bun:"user_id,notnull"`
	Currency  Currency  `bun:"currency,notnull"`
	Amount    int64     `bun:"amount,notnull"`
	Cause     Cause     `bun:"embed:cause_"`
	CreatedAt time.Time `bun:"created_at,notnull"`
}
