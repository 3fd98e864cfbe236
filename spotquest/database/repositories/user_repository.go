package repositories

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/uptrace/bun"
)

type UserRepository interface {
	WithTx(idb bun.IDB) UserRepository
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	AddCoins(ctx context.Context, userID int64, amount int64) error
	SpendCoins(ctx context.Context, userID int64, amount int64) (bool, error)
	AddExp(ctx context.Context, userID int64, amount int64) error
	IncrementCounter(ctx context.Context, userID int64, counter models.LifetimeCounter) error
	GetTopByExp(ctx context.Context, limit int) ([]*models.User, error)
	RankByExp(ctx context.Context, userID int64) (int, error)
}

type userRepository struct {
	db bun.IDB
}

func NewUserRepository(db bun.IDB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) WithTx(idb bun.IDB) UserRepository {
	return &userRepository{db: idb}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	_, err := r.db.NewInsert().Model(user).Exec(ctx)
	return handleError("create", "user", user.Username, err)
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	user := new(models.User)
	err := r.db.NewSelect().
		Model(user).
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, handleError("get", "user", id, err)
	}
	return user, nil
}

func (r *userRepository) AddCoins(ctx context.Context, userID int64, amount int64) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("total_coin = total_coin + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return handleError("add_coins", "user", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "user", ID: userID}
	}
	return nil
}

// SpendCoins deducts amount only when the balance covers it. The
// conditional update is the race-safe funds guard; callers treat a false
// return as insufficient funds with no mutation applied.
func (r *userRepository) SpendCoins(ctx context.Context, userID int64, amount int64) (bool, error) {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("total_coin = total_coin - ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Where("total_coin >= ?", amount).
		Exec(ctx)
	if err != nil {
		return false, handleError("spend_coins", "user", userID, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

func (r *userRepository) AddExp(ctx context.Context, userID int64, amount int64) error {
	res, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("total_exp = total_exp + ?", amount).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return handleError("add_exp", "user", userID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &NotFoundError{Entity: "user", ID: userID}
	}
	return nil
}

func (r *userRepository) IncrementCounter(ctx context.Context, userID int64, counter models.LifetimeCounter) error {
	if !counter.Valid() {
		return fmt.Errorf("unknown lifetime counter %q", counter)
	}
	_, err := r.db.NewUpdate().
		Model((*models.User)(nil)).
		Set(fmt.Sprintf("%s = %s + 1", counter, counter)).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	return handleError("increment_counter", "user", userID, err)
}

// GetTopByExp orders by total EXP with a deterministic tiebreak: earlier
// account creation wins, then lower ID.
func (r *userRepository) GetTopByExp(ctx context.Context, limit int) ([]*models.User, error) {
	slog.Debug("UserRepository.GetTopByExp called",
		slog.String("type", "db"),
		slog.Int("limit", limit))

	var users []*models.User
	err := r.db.NewSelect().
		Model(&users).
		Order("total_exp DESC", "created_at ASC", "id ASC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, handleError("get_top_by_exp", "user", limit, err)
	}
	return users, nil
}

// RankByExp computes a user's 1-based rank under the same ordering as
// GetTopByExp, without touching any snapshot.
func (r *userRepository) RankByExp(ctx context.Context, userID int64) (int, error) {
	user, err := r.GetByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	ahead, err := r.db.NewSelect().
		Model((*models.User)(nil)).
		Where("total_exp > ?", user.TotalExp).
		WhereOr("total_exp = ? AND created_at < ?", user.TotalExp, user.CreatedAt).
		WhereOr("total_exp = ? AND created_at = ? AND id < ?", user.TotalExp, user.CreatedAt, user.ID).
		Count(ctx)
	if err != nil {
		return 0, handleError("rank_by_exp", "user", userID, err)
	}
	return ahead + 1, nil
}
