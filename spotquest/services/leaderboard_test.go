package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hyewave/spotquest/spotquest/database/models"
)

func TestLeaderboard_RefreshOrdersByExpWithTiebreaks(t *testing.T) {
	e := newEnv()
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	e.addUser(1, "ari", base)
	e.addUser(2, "bom", base.Add(-time.Hour)) // older account, same exp as ari
	e.addUser(3, "cho", base)

	e.users.users[1].TotalExp = 100
	e.users.users[2].TotalExp = 100
	e.users.users[3].TotalExp = 250

	ok, err := e.leaderboard.Refresh(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)

	require.NotNil(t, e.snapshots.active)
	entries := e.snapshots.active.Entries
	require.Len(t, entries, 3)
	assert.Equal(t, int64(3), entries[0].UserID)
	// equal exp: the older account ranks higher
	assert.Equal(t, int64(2), entries[1].UserID)
	assert.Equal(t, int64(1), entries[2].UserID)
	for i, entry := range entries {
		assert.Equal(t, i+1, entry.Rank)
	}
}

func TestLeaderboard_GetTopUsersReadsSnapshot(t *testing.T) {
	e := newEnv()
	for i := int64(1); i <= 5; i++ {
		u := e.addUser(i, "user", time.Now())
		u.TotalExp = i * 10
	}
	ctx := context.Background()

	_, err := e.leaderboard.Refresh(ctx)
	require.NoError(t, err)

	top, err := e.leaderboard.GetTopUsers(ctx, 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, int64(5), top[0].UserID)
	assert.Equal(t, int64(50), top[0].Exp)
}

func TestLeaderboard_GetTopUsersWithoutSnapshot(t *testing.T) {
	e := newEnv()
	u := e.addUser(1, "mina", time.Now())
	u.TotalExp = 40

	// no refresh has ever run; the read computes directly
	top, err := e.leaderboard.GetTopUsers(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(1), top[0].UserID)
	assert.Equal(t, 1, top[0].Rank)
}

func TestLeaderboard_ReadsAreCachedUntilRefresh(t *testing.T) {
	e := newEnv()
	u := e.addUser(1, "mina", time.Now())
	u.TotalExp = 10
	ctx := context.Background()

	_, err := e.leaderboard.Refresh(ctx)
	require.NoError(t, err)

	top, err := e.leaderboard.GetTopUsers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), top[0].Exp)

	// the aggregate moves, but the cached read stays stale
	u.TotalExp = 999
	top, err = e.leaderboard.GetTopUsers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(10), top[0].Exp)

	// refresh rebuilds the snapshot and drops every issued key
	_, err = e.leaderboard.Refresh(ctx)
	require.NoError(t, err)
	top, err = e.leaderboard.GetTopUsers(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(999), top[0].Exp)
}

func TestLeaderboard_GetUserRank(t *testing.T) {
	e := newEnv()
	for i := int64(1); i <= 3; i++ {
		u := e.addUser(i, "user", time.Now())
		u.TotalExp = i * 10
	}
	ctx := context.Background()

	_, err := e.leaderboard.Refresh(ctx)
	require.NoError(t, err)

	rank, err := e.leaderboard.GetUserRank(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, rank)

	rank, err = e.leaderboard.GetUserRank(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, rank)
}

func TestLeaderboard_GetUserRankOutsideSnapshot(t *testing.T) {
	e := newEnv()
	ctx := context.Background()

	// snapshot holds only the existing user
	top := e.addUser(1, "ari", time.Now())
	top.TotalExp = 100
	_, err := e.leaderboard.Refresh(ctx)
	require.NoError(t, err)

	// a user created after the refresh is ranked off the live aggregate
	late := e.addUser(2, "bom", time.Now())
	late.TotalExp = 50
	rank, err := e.leaderboard.GetUserRank(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, rank)
}

func TestLeaderboard_WeeklyTopUsesLedgerWindow(t *testing.T) {
	e := newEnv()
	e.addUser(1, "ari", time.Now())
	e.addUser(2, "bom", time.Now())
	ctx := context.Background()

	weekStart := models.StartOfWeek(time.Now())
	insert := func(userID, amount int64, at time.Time) {
		require.NoError(t, e.txns.Insert(ctx, &models.RewardTransaction{
			UserID:    userID,
			Currency:  models.CurrencyXP,
			Amount:    amount,
			CreatedAt: at,
		}))
	}

	insert(1, 30, weekStart.Add(time.Hour))
	insert(1, 20, weekStart.Add(2*time.Hour))
	insert(2, 40, weekStart.Add(time.Hour))
	// last week's earnings are outside the window
	insert(2, 500, weekStart.Add(-time.Hour))
	// coin rows never count toward the EXP board
	require.NoError(t, e.txns.Insert(ctx, &models.RewardTransaction{
		UserID:    2,
		Currency:  models.CurrencyCoin,
		Amount:    300,
		CreatedAt: weekStart.Add(time.Hour),
	}))

	entries, err := e.leaderboard.GetTopUsersThisWeek(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(1), entries[0].UserID)
	assert.Equal(t, int64(50), entries[0].Exp)
	assert.Equal(t, int64(2), entries[1].UserID)
	assert.Equal(t, int64(40), entries[1].Exp)
	assert.Equal(t, "ari", entries[0].Username)
}

func TestLeaderboard_PeriodKeysRotateAtBoundaries(t *testing.T) {
	week1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	week2 := week1.AddDate(0, 0, 7)

	assert.Equal(t, weeklyKey(week1, 10), weeklyKey(week1, 10))
	// a new period means a new key, so the old cache entry is never served
	assert.NotEqual(t, weeklyKey(week1, 10), weeklyKey(week2, 10))
	assert.NotEqual(t, weeklyKey(week1, 10), weeklyKey(week1, 25))

	march := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	april := march.AddDate(0, 1, 0)
	assert.NotEqual(t, monthlyKey(march, 10), monthlyKey(april, 10))
}

func TestLeaderboard_LimitFallsBackToTopN(t *testing.T) {
	e := newEnv()
	u := e.addUser(1, "mina", time.Now())
	u.TotalExp = 10

	top, err := e.leaderboard.GetTopUsers(context.Background(), -1)
	require.NoError(t, err)
	require.Len(t, top, 1)

	top, err = e.leaderboard.GetTopUsers(context.Background(), DefaultTopN+50)
	require.NoError(t, err)
	require.Len(t, top, 1)
}
