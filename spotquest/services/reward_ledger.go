package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/uptrace/bun"
)

// RewardLedger grants and deducts coins/EXP. Every call updates the cached
// aggregate on the user row and inserts the immutable transaction row in
// one atomic unit, so the sum of a user's ledger entries always matches
// the aggregate.
type RewardLedger struct {
	db     DB
	users  repositories.UserRepository
	txns   repositories.TransactionRepository
	logger *ActionLogger

	// engine, when bound, reacts to coin_earned/xp_earned events so
	// meta goals can count earnings. Optional.
	engine *RuleEngine
}

func NewRewardLedger(db DB, users repositories.UserRepository, txns repositories.TransactionRepository, logger *ActionLogger) *RewardLedger {
	return &RewardLedger{db: db, users: users, txns: txns, logger: logger}
}

// BindRuleEngine wires the re-evaluation hook. Done post-construction
// because the engine depends on the ledger for completion rewards.
func (l *RewardLedger) BindRuleEngine(engine *RuleEngine) {
	l.engine = engine
}

// AddCoins grants amount coins to the user for the given cause.
func (l *RewardLedger) AddCoins(ctx context.Context, userID int64, amount int64, cause models.Cause) (*models.RewardTransaction, error) {
	var txn *models.RewardTransaction
	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		txn, err = l.addCoins(ctx, tx, userID, amount, cause, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// AddExp grants amount EXP to the user for the given cause.
func (l *RewardLedger) AddExp(ctx context.Context, userID int64, amount int64, cause models.Cause) (*models.RewardTransaction, error) {
	var txn *models.RewardTransaction
	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		txn, err = l.addExp(ctx, tx, userID, amount, cause, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

// UseCoins deducts amount coins, failing with insufficient funds when the
// balance does not cover it. No mutation survives a failure.
func (l *RewardLedger) UseCoins(ctx context.Context, userID int64, amount int64, cause models.Cause) (*models.RewardTransaction, error) {
	var txn *models.RewardTransaction
	err := l.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		txn, err = l.useCoins(ctx, tx, userID, amount, cause, time.Now())
		return err
	})
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func validateGrant(amount int64, cause models.Cause) error {
	if amount <= 0 {
		return validationErrorf(CodeInvalidAmount, "amount must be positive, got %d", amount)
	}
	if err := cause.Validate(); err != nil {
		return validationErrorf(CodeInvalidCause, "invalid cause: %v", err)
	}
	return nil
}

func (l *RewardLedger) addCoins(ctx context.Context, idb bun.IDB, userID int64, amount int64, cause models.Cause, now time.Time) (*models.RewardTransaction, error) {
	if err := validateGrant(amount, cause); err != nil {
		return nil, err
	}
	if err := l.users.WithTx(idb).AddCoins(ctx, userID, amount); err != nil {
		return nil, err
	}
	txn := &models.RewardTransaction{
		UserID:    userID,
		Currency:  models.CurrencyCoin,
		Amount:    amount,
		Cause:     cause,
		CreatedAt: now,
	}
	if err := l.txns.WithTx(idb).Insert(ctx, txn); err != nil {
		return nil, err
	}
	if err := l.emitEarned(ctx, idb, userID, models.ActionCoinEarned, amount, cause, now); err != nil {
		return nil, err
	}
	slog.Debug("Coins granted",
		slog.String("type", "ledger"),
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount),
		slog.String("cause", cause.String()))
	return txn, nil
}

func (l *RewardLedger) addExp(ctx context.Context, idb bun.IDB, userID int64, amount int64, cause models.Cause, now time.Time) (*models.RewardTransaction, error) {
	if err := validateGrant(amount, cause); err != nil {
		return nil, err
	}
	if err := l.users.WithTx(idb).AddExp(ctx, userID, amount); err != nil {
		return nil, err
	}
	txn := &models.RewardTransaction{
		UserID:    userID,
		Currency:  models.CurrencyXP,
		Amount:    amount,
		Cause:     cause,
		CreatedAt: now,
	}
	if err := l.txns.WithTx(idb).Insert(ctx, txn); err != nil {
		return nil, err
	}
	if err := l.emitEarned(ctx, idb, userID, models.ActionXPEarned, amount, cause, now); err != nil {
		return nil, err
	}
	return txn, nil
}

func (l *RewardLedger) useCoins(ctx context.Context, idb bun.IDB, userID int64, amount int64, cause models.Cause, now time.Time) (*models.RewardTransaction, error) {
	if err := validateGrant(amount, cause); err != nil {
		return nil, err
	}
	applied, err := l.users.WithTx(idb).SpendCoins(ctx, userID, amount)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, validationErrorf(CodeInsufficientFunds, "user %d cannot spend %d coins", userID, amount)
	}
	txn := &models.RewardTransaction{
		UserID:    userID,
		Currency:  models.CurrencyCoin,
		Amount:    -amount,
		Cause:     cause,
		CreatedAt: now,
	}
	if err := l.txns.WithTx(idb).Insert(ctx, txn); err != nil {
		return nil, err
	}
	slog.Debug("Coins spent",
		slog.String("type", "ledger"),
		slog.Int64("user_id", userID),
		slog.Int64("amount", amount),
		slog.String("cause", cause.String()))
	return txn, nil
}

// emitEarned logs the meta action event for a grant and, outside an
// already-running evaluation, lets the engine react to it.
func (l *RewardLedger) emitEarned(ctx context.Context, idb bun.IDB, userID int64, action models.ActionType, amount int64, cause models.Cause, now time.Time) error {
	data := map[string]any{
		"amount": amount,
		"cause":  cause.String(),
	}
	if _, err := l.logger.log(ctx, idb, userID, action, data, now); err != nil {
		return err
	}
	if l.engine == nil || isEvaluating(ctx) {
		return nil
	}
	// Event is already logged above; only the goal evaluation runs here.
	_, err := l.engine.evaluateGoals(ctx, idb, userID, action, now)
	return err
}
