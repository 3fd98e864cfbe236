package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyewave/spotquest/spotquest/cache"
	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/uptrace/bun"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTopN is the snapshot depth rebuilt on refresh.
	DefaultTopN = 100

	defaultCacheTTL = 5 * time.Minute
)

// LeaderboardAggregator builds and caches ranked snapshots from the EXP
// aggregate the ledger maintains. Refresh is the only mutator; reads fall
// back from cache to snapshot to a direct aggregate query.
//
// Ordering is pinned: total EXP descending, then earlier account creation,
// then lower user ID.
type LeaderboardAggregator struct {
	db        DB
	users     repositories.UserRepository
	txns      repositories.TransactionRepository
	snapshots repositories.LeaderboardRepository
	cache     cache.Cache
	ttl       time.Duration
	topN      int

	group singleflight.Group
	// every cache key handed out since the last refresh, so refresh can
	// invalidate all derived keys explicitly
	issuedKeys *xsync.MapOf[string, struct{}]
}

func NewLeaderboardAggregator(db DB, users repositories.UserRepository, txns repositories.TransactionRepository, snapshots repositories.LeaderboardRepository, c cache.Cache) *LeaderboardAggregator {
	return &LeaderboardAggregator{
		db:         db,
		users:      users,
		txns:       txns,
		snapshots:  snapshots,
		cache:      c,
		ttl:        defaultCacheTTL,
		topN:       DefaultTopN,
		issuedKeys: xsync.NewMapOf[string, struct{}](),
	}
}

// SetTTL overrides the cache TTL, mainly for tests and config wiring.
func (a *LeaderboardAggregator) SetTTL(ttl time.Duration) {
	if ttl > 0 {
		a.ttl = ttl
	}
}

func topKey(limit int) string     { return fmt.Sprintf("leaderboard:top:%d", limit) }
func rankKey(userID int64) string { return fmt.Sprintf("leaderboard:rank:%d", userID) }

// Period-scoped keys carry the period start so a week or month boundary
// is a natural cache miss instead of serving the old period until TTL.
func weeklyKey(period time.Time, limit int) string {
	return fmt.Sprintf("leaderboard:weekly:%s:%d", period.Format("2006-01-02"), limit)
}

func monthlyKey(period time.Time, limit int) string {
	return fmt.Sprintf("leaderboard:monthly:%s:%d", period.Format("2006-01-02"), limit)
}

// Refresh rebuilds the active snapshot wholesale and invalidates every
// derived cache key. Concurrent refreshes collapse into one rebuild.
func (a *LeaderboardAggregator) Refresh(ctx context.Context) (bool, error) {
	_, err, _ := a.group.Do("refresh", func() (any, error) {
		return nil, a.refresh(ctx)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (a *LeaderboardAggregator) refresh(ctx context.Context) error {
	start := time.Now()
	err := a.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		users, err := a.users.WithTx(tx).GetTopByExp(ctx, a.topN)
		if err != nil {
			return err
		}
		entries := make([]models.LeaderboardEntry, len(users))
		for i, u := range users {
			entries[i] = models.LeaderboardEntry{
				Rank:     i + 1,
				UserID:   u.ID,
				Username: u.Username,
				Exp:      u.TotalExp,
			}
		}
		snapshot := &models.LeaderboardSnapshot{
			PeriodStart: models.StartOfWeek(start),
			PeriodEnd:   models.StartOfWeek(start).AddDate(0, 0, 7),
			Entries:     entries,
			CreatedAt:   start,
		}
		return a.snapshots.WithTx(tx).ReplaceActive(ctx, snapshot)
	})
	if err != nil {
		return fmt.Errorf("failed to refresh leaderboard: %w", err)
	}

	var stale []string
	a.issuedKeys.Range(func(key string, _ struct{}) bool {
		stale = append(stale, key)
		return true
	})
	a.issuedKeys.Clear()
	if len(stale) > 0 {
		if err := a.cache.Invalidate(ctx, stale...); err != nil {
			slog.Warn("Failed to invalidate leaderboard cache",
				slog.String("type", "leaderboard"),
				slog.Int("keys", len(stale)),
				slog.Any("error", err))
		}
	}

	slog.Info("Leaderboard refreshed",
		slog.String("type", "leaderboard"),
		slog.Int("top_n", a.topN),
		slog.Duration("took", time.Since(start)))
	return nil
}

// GetTopUsers reads the top limit entries without mutating anything.
func (a *LeaderboardAggregator) GetTopUsers(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > a.topN {
		limit = a.topN
	}
	key := topKey(limit)
	if entries, ok := a.cachedEntries(ctx, key); ok {
		return entries, nil
	}

	snapshot, err := a.snapshots.GetActive(ctx)
	if err != nil && !repositories.IsNotFound(err) {
		return nil, err
	}
	var entries []models.LeaderboardEntry
	if snapshot != nil && err == nil {
		entries = snapshot.Entries
		if len(entries) > limit {
			entries = entries[:limit]
		}
	} else {
		// No snapshot yet: compute directly from the aggregate.
		users, err := a.users.GetTopByExp(ctx, limit)
		if err != nil {
			return nil, err
		}
		entries = make([]models.LeaderboardEntry, len(users))
		for i, u := range users {
			entries[i] = models.LeaderboardEntry{
				Rank:     i + 1,
				UserID:   u.ID,
				Username: u.Username,
				Exp:      u.TotalExp,
			}
		}
	}

	a.storeEntries(ctx, key, entries)
	return entries, nil
}

// GetUserRank returns a user's 1-based rank. Users inside the snapshot get
// the snapshot rank; everyone else is ranked directly off the aggregate.
func (a *LeaderboardAggregator) GetUserRank(ctx context.Context, userID int64) (int, error) {
	key := rankKey(userID)
	if raw, ok, _ := a.cache.Get(ctx, key); ok {
		var rank int
		if err := json.Unmarshal(raw, &rank); err == nil {
			return rank, nil
		}
	}

	rank := 0
	snapshot, err := a.snapshots.GetActive(ctx)
	if err == nil {
		for _, entry := range snapshot.Entries {
			if entry.UserID == userID {
				rank = entry.Rank
				break
			}
		}
	} else if !repositories.IsNotFound(err) {
		return 0, err
	}
	if rank == 0 {
		rank, err = a.users.RankByExp(ctx, userID)
		if err != nil {
			return 0, err
		}
	}

	if raw, err := json.Marshal(rank); err == nil {
		if err := a.cache.Set(ctx, key, raw, a.ttl); err == nil {
			a.issuedKeys.Store(key, struct{}{})
		}
	}
	return rank, nil
}

// GetTopUsersThisWeek ranks by EXP earned this week. The lifetime
// aggregate cannot answer this; it comes straight from the ledger.
func (a *LeaderboardAggregator) GetTopUsersThisWeek(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	from := models.StartOfWeek(time.Now())
	return a.windowTop(ctx, weeklyKey(from, limit), from, from.AddDate(0, 0, 7), limit)
}

// GetTopUsersThisMonth ranks by EXP earned this calendar month.
func (a *LeaderboardAggregator) GetTopUsersThisMonth(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	from := models.StartOfMonth(time.Now())
	return a.windowTop(ctx, monthlyKey(from, limit), from, from.AddDate(0, 1, 0), limit)
}

func (a *LeaderboardAggregator) windowTop(ctx context.Context, key string, from, to time.Time, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 || limit > a.topN {
		limit = a.topN
	}
	if entries, ok := a.cachedEntries(ctx, key); ok {
		return entries, nil
	}

	totals, err := a.txns.TopEarnersInWindow(ctx, models.CurrencyXP, from, to, limit)
	if err != nil {
		return nil, err
	}
	entries := make([]models.LeaderboardEntry, len(totals))
	for i, t := range totals {
		entries[i] = models.LeaderboardEntry{
			Rank:     i + 1,
			UserID:   t.UserID,
			Username: t.Username,
			Exp:      t.Total,
		}
	}

	a.storeEntries(ctx, key, entries)
	return entries, nil
}

func (a *LeaderboardAggregator) cachedEntries(ctx context.Context, key string) ([]models.LeaderboardEntry, bool) {
	raw, ok, err := a.cache.Get(ctx, key)
	if err != nil || !ok {
		return nil, false
	}
	var entries []models.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

func (a *LeaderboardAggregator) storeEntries(ctx context.Context, key string, entries []models.LeaderboardEntry) {
	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := a.cache.Set(ctx, key, raw, a.ttl); err != nil {
		slog.Warn("Failed to cache leaderboard entries",
			slog.String("type", "leaderboard"),
			slog.String("key", key),
			slog.Any("error", err))
		return
	}
	a.issuedKeys.Store(key, struct{}{})
}
