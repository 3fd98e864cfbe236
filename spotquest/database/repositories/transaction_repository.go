package repositories

import (
	"context"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

// ExpTotal is one user's summed EXP earnings inside a window.
type ExpTotal struct {
	UserID   int64  `bun:"user_id"`
	Username string `bun:"username"`
	Total    int64  `bun:"total"`
}

type TransactionRepository interface {
	WithTx(idb bun.IDB) TransactionRepository
	Insert(ctx context.Context, txn *models.RewardTransaction) error
	SumByUser(ctx context.Context, userID int64, currency models.Currency) (int64, error)
	// TopEarnersInWindow aggregates positive ledger rows created inside
	// [from, to), the basis for the weekly and monthly leaderboards the
	// lifetime aggregate cannot answer.
	TopEarnersInWindow(ctx context.Context, currency models.Currency, from, to time.Time, limit int) ([]ExpTotal, error)
}

type transactionRepository struct {
	db bun.IDB
}

func NewTransactionRepository(db bun.IDB) TransactionRepository {
	return &transactionRepository{db: db}
}

func (r *transactionRepository) WithTx(idb bun.IDB) TransactionRepository {
	return &transactionRepository{db: idb}
}

func (r *transactionRepository) Insert(ctx context.Context, txn *models.RewardTransaction) error {
	if txn.CreatedAt.IsZero() {
		txn.CreatedAt = time.Now()
	}
	_, err := r.db.NewInsert().Model(txn).Exec(ctx)
	return handleError("insert", "reward_transaction", txn.UserID, err)
}

func (r *transactionRepository) SumByUser(ctx context.Context, userID int64, currency models.Currency) (int64, error) {
	var total int64
	err := r.db.NewSelect().
		Model((*models.RewardTransaction)(nil)).
		ColumnExpr("COALESCE(SUM(amount), 0)").
		Where("user_id = ?", userID).
		Where("currency = ?", currency).
		Scan(ctx, &total)
	if err != nil {
		return 0, handleError("sum_by_user", "reward_transaction", userID, err)
	}
	return total, nil
}

func (r *transactionRepository) TopEarnersInWindow(ctx context.Context, currency models.Currency, from, to time.Time, limit int) ([]ExpTotal, error) {
	var totals []ExpTotal
	err := r.db.NewSelect().
		Model((*models.RewardTransaction)(nil)).
		ColumnExpr("rt.user_id").
		ColumnExpr("u.username").
		ColumnExpr("SUM(rt.amount) AS total").
		Join("JOIN users AS u ON u.id = rt.user_id").
		Where("rt.currency = ?", currency).
		Where("rt.amount > 0").
		Where("rt.created_at >= ?", from).
		Where("rt.created_at < ?", to).
		GroupExpr("rt.user_id, u.username, u.created_at").
		OrderExpr("total DESC, u.created_at ASC, rt.user_id ASC").
		Limit(limit).
		Scan(ctx, &totals)
	if err != nil {
		return nil, handleError("top_earners_in_window", "reward_transaction", currency, err)
	}
	return totals, nil
}
