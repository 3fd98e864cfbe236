package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"github.com/hyewave/spotquest/spotquest/database/models"
)

const (
	defaultConnTimeout = 5 * time.Second
	defaultMaxRetries  = 3
	defaultRetryDelay  = time.Second
)

type Config struct {
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	Database     string `toml:"database"`
	PoolSize     int    `toml:"pool_size"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// DB bundles the bun handle used by repositories with a pgx pool kept for
// connection health checks.
type DB struct {
	pool  *pgxpool.Pool
	bunDB *bun.DB
}

func New(ctx context.Context, cfg Config) (*DB, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database)

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pool config: %w", err)
	}
	if cfg.PoolSize > 0 {
		poolCfg.MaxConns = int32(cfg.PoolSize)
	}

	var pool *pgxpool.Pool
	for i := 0; i < defaultMaxRetries; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
		pool, err = pgxpool.NewWithConfig(pingCtx, poolCfg)
		if err == nil {
			err = pool.Ping(pingCtx)
		}
		cancel()
		if err == nil {
			break
		}
		slog.Warn("Database connection attempt failed",
			slog.String("type", "db"),
			slog.Int("attempt", i+1),
			slog.Any("error", err))
		time.Sleep(defaultRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", defaultMaxRetries, err)
	}

	sqlDB := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.PoolSize > 0 {
		sqlDB.SetMaxOpenConns(cfg.PoolSize)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	return &DB{
		pool:  pool,
		bunDB: bun.NewDB(sqlDB, pgdialect.New()),
	}, nil
}

// BunDB exposes the handle repositories are built on.
func (db *DB) BunDB() *bun.DB {
	return db.bunDB
}

func (db *DB) Close() {
	if db.bunDB != nil {
		_ = db.bunDB.Close()
	}
	if db.pool != nil {
		db.pool.Close()
	}
}

// InitializeSchema creates tables and the unique indexes the idempotency
// guards depend on.
func (db *DB) InitializeSchema(ctx context.Context) error {
	tables := []any{
		(*models.User)(nil),
		(*models.GoalDefinition)(nil),
		(*models.ActionEvent)(nil),
		(*models.GoalProgress)(nil),
		(*models.RewardTransaction)(nil),
		(*models.Reward)(nil),
		(*models.Redemption)(nil),
		(*models.Checkin)(nil),
		(*models.Review)(nil),
		(*models.LeaderboardSnapshot)(nil),
	}

	for _, model := range tables {
		_, err := db.bunDB.NewCreateTable().
			Model(model).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}

	// The COALESCE lets one-time rows (NULL period key) share the same
	// uniqueness rule as period rows.
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_goal_progress_user_goal_period
			ON goal_progress (user_id, goal_id, COALESCE(period_key, '0001-01-01'::date))`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_checkins_user_place_month
			ON checkins (user_id, place_id, month_key)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_reviews_user_place_month
			ON reviews (user_id, place_id, month_key)`,
		`CREATE INDEX IF NOT EXISTS idx_action_events_user_type_created
			ON action_events (user_id, action_type, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_reward_transactions_user_currency
			ON reward_transactions (user_id, currency)`,
		`CREATE INDEX IF NOT EXISTS idx_reward_transactions_currency_created
			ON reward_transactions (currency, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_goal_definitions_action_active
			ON goal_definitions (criteria_action) WHERE active`,
	}
	for _, idx := range indexes {
		if _, err := db.bunDB.ExecContext(ctx, idx); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}

	slog.Info("Database schema initialized",
		slog.String("type", "db"),
		slog.Int("tables", len(tables)),
		slog.Int("indexes", len(indexes)))
	return nil
}
