package services

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/hyewave/spotquest/spotquest/cache"
	"github.com/hyewave/spotquest/spotquest/database/models"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/uptrace/bun"
)

// fakeDB satisfies DB without a database. The fakes below ignore the
// transaction handle, so passing the zero bun.Tx through is enough.
type fakeDB struct {
	calls int
}

func (f *fakeDB) RunInTx(ctx context.Context, _ *sql.TxOptions, fn func(ctx context.Context, tx bun.Tx) error) error {
	f.calls++
	return fn(ctx, bun.Tx{})
}

// bunTx hands tests a transaction handle for calling tx-scoped internals
// directly; the fakes never touch it.
func bunTx() bun.Tx { return bun.Tx{} }

type fakeUserRepo struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[int64]*models.User{}, nextID: 1}
}

func (f *fakeUserRepo) WithTx(bun.IDB) repositories.UserRepository { return f }

func (f *fakeUserRepo) Create(_ context.Context, user *models.User) error {
	if user.ID == 0 {
		user.ID = f.nextID
		f.nextID++
	} else if user.ID >= f.nextID {
		f.nextID = user.ID + 1
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "user", ID: id}
	}
	return u, nil
}

func (f *fakeUserRepo) AddCoins(_ context.Context, userID, amount int64) error {
	u, ok := f.users[userID]
	if !ok {
		return &repositories.NotFoundError{Entity: "user", ID: userID}
	}
	u.TotalCoin += amount
	return nil
}

func (f *fakeUserRepo) SpendCoins(_ context.Context, userID, amount int64) (bool, error) {
	u, ok := f.users[userID]
	if !ok {
		return false, &repositories.NotFoundError{Entity: "user", ID: userID}
	}
	if u.TotalCoin < amount {
		return false, nil
	}
	u.TotalCoin -= amount
	return true, nil
}

func (f *fakeUserRepo) AddExp(_ context.Context, userID, amount int64) error {
	u, ok := f.users[userID]
	if !ok {
		return &repositories.NotFoundError{Entity: "user", ID: userID}
	}
	u.TotalExp += amount
	return nil
}

func (f *fakeUserRepo) IncrementCounter(_ context.Context, userID int64, counter models.LifetimeCounter) error {
	u, ok := f.users[userID]
	if !ok {
		return &repositories.NotFoundError{Entity: "user", ID: userID}
	}
	switch counter {
	case models.CounterCheckin:
		u.TotalCheckin++
	case models.CounterReview:
		u.TotalReview++
	case models.CounterPost:
		u.TotalPost++
	case models.CounterAchievement:
		u.TotalAchievement++
	}
	return nil
}

func (f *fakeUserRepo) ranked() []*models.User {
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalExp != out[j].TotalExp {
			return out[i].TotalExp > out[j].TotalExp
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (f *fakeUserRepo) GetTopByExp(_ context.Context, limit int) ([]*models.User, error) {
	out := f.ranked()
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeUserRepo) RankByExp(_ context.Context, userID int64) (int, error) {
	for i, u := range f.ranked() {
		if u.ID == userID {
			return i + 1, nil
		}
	}
	return 0, &repositories.NotFoundError{Entity: "user", ID: userID}
}

type fakeGoalRepo struct {
	goals []*models.GoalDefinition
}

func (f *fakeGoalRepo) WithTx(bun.IDB) repositories.GoalRepository { return f }

func (f *fakeGoalRepo) GetByID(_ context.Context, id int64) (*models.GoalDefinition, error) {
	for _, g := range f.goals {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "goal", ID: id}
}

func (f *fakeGoalRepo) GetActiveByAction(_ context.Context, action models.ActionType) ([]*models.GoalDefinition, error) {
	var out []*models.GoalDefinition
	for _, g := range f.goals {
		if g.Active && g.CriteriaAction == action {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DisplayOrder != out[j].DisplayOrder {
			return out[i].DisplayOrder < out[j].DisplayOrder
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (f *fakeGoalRepo) ListActive(_ context.Context) ([]*models.GoalDefinition, error) {
	var out []*models.GoalDefinition
	for _, g := range f.goals {
		if g.Active {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGoalRepo) Upsert(_ context.Context, goal *models.GoalDefinition) error {
	for _, g := range f.goals {
		if g.Code == goal.Code {
			*g = *goal
			return nil
		}
	}
	goal.ID = int64(len(f.goals) + 1)
	f.goals = append(f.goals, goal)
	return nil
}

type fakeActionRepo struct {
	events []*models.ActionEvent
	nextID int64
}

func (f *fakeActionRepo) WithTx(bun.IDB) repositories.ActionRepository { return f }

func (f *fakeActionRepo) Insert(_ context.Context, event *models.ActionEvent) error {
	f.nextID++
	event.ID = f.nextID
	f.events = append(f.events, event)
	return nil
}

func (f *fakeActionRepo) CountInWindow(_ context.Context, userID int64, action models.ActionType, from, to *time.Time) (int, error) {
	count := 0
	for _, e := range f.events {
		if e.UserID != userID || e.ActionType != action {
			continue
		}
		if from != nil && e.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && !e.CreatedAt.Before(*to) {
			continue
		}
		count++
	}
	return count, nil
}

func sameKey(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

type fakeProgressRepo struct {
	rows   []*models.GoalProgress
	nextID int64
}

func (f *fakeProgressRepo) WithTx(bun.IDB) repositories.ProgressRepository { return f }

func (f *fakeProgressRepo) GetForPeriod(_ context.Context, userID, goalID int64, periodKey *time.Time) (*models.GoalProgress, error) {
	for _, row := range f.rows {
		if row.UserID == userID && row.GoalID == goalID && sameKey(row.PeriodKey, periodKey) {
			return row, nil
		}
	}
	return nil, &repositories.NotFoundError{Entity: "goal progress", ID: goalID}
}

func (f *fakeProgressRepo) Create(_ context.Context, progress *models.GoalProgress) error {
	for _, row := range f.rows {
		if row.UserID == progress.UserID && row.GoalID == progress.GoalID && sameKey(row.PeriodKey, progress.PeriodKey) {
			return &repositories.ConflictError{Entity: "goal progress", Field: "unique key", Value: progress.GoalID}
		}
	}
	f.nextID++
	progress.ID = f.nextID
	f.rows = append(f.rows, progress)
	return nil
}

func (f *fakeProgressRepo) Update(_ context.Context, progress *models.GoalProgress) error {
	for i, row := range f.rows {
		if row.ID == progress.ID {
			f.rows[i] = progress
			return nil
		}
	}
	return &repositories.NotFoundError{Entity: "goal progress", ID: progress.ID}
}

func (f *fakeProgressRepo) ListByUser(_ context.Context, userID int64) ([]*models.GoalProgress, error) {
	var out []*models.GoalProgress
	for _, row := range f.rows {
		if row.UserID == userID {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeTxnRepo struct {
	txns   []*models.RewardTransaction
	users  *fakeUserRepo
	nextID int64
}

func (f *fakeTxnRepo) WithTx(bun.IDB) repositories.TransactionRepository { return f }

func (f *fakeTxnRepo) Insert(_ context.Context, txn *models.RewardTransaction) error {
	f.nextID++
	txn.ID = f.nextID
	f.txns = append(f.txns, txn)
	return nil
}

func (f *fakeTxnRepo) SumByUser(_ context.Context, userID int64, currency models.Currency) (int64, error) {
	var sum int64
	for _, t := range f.txns {
		if t.UserID == userID && t.Currency == currency {
			sum += t.Amount
		}
	}
	return sum, nil
}

func (f *fakeTxnRepo) TopEarnersInWindow(_ context.Context, currency models.Currency, from, to time.Time, limit int) ([]repositories.ExpTotal, error) {
	totals := map[int64]int64{}
	for _, t := range f.txns {
		if t.Currency != currency || t.Amount <= 0 {
			continue
		}
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(to) {
			continue
		}
		totals[t.UserID] += t.Amount
	}
	out := make([]repositories.ExpTotal, 0, len(totals))
	for userID, total := range totals {
		et := repositories.ExpTotal{UserID: userID, Total: total}
		if u, ok := f.users.users[userID]; ok {
			et.Username = u.Username
		}
		out = append(out, et)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].UserID < out[j].UserID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeRewardRepo struct {
	rewards     map[int64]*models.Reward
	redemptions []*models.Redemption
}

func newFakeRewardRepo() *fakeRewardRepo {
	return &fakeRewardRepo{rewards: map[int64]*models.Reward{}}
}

func (f *fakeRewardRepo) WithTx(bun.IDB) repositories.RewardRepository { return f }

func (f *fakeRewardRepo) GetByID(_ context.Context, id int64) (*models.Reward, error) {
	r, ok := f.rewards[id]
	if !ok {
		return nil, &repositories.NotFoundError{Entity: "reward", ID: id}
	}
	return r, nil
}

func (f *fakeRewardRepo) ListActive(_ context.Context) ([]*models.Reward, error) {
	var out []*models.Reward
	for _, r := range f.rewards {
		if r.Active {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeRewardRepo) DecrementStock(_ context.Context, rewardID int64) (bool, error) {
	r, ok := f.rewards[rewardID]
	if !ok {
		return false, &repositories.NotFoundError{Entity: "reward", ID: rewardID}
	}
	if r.Stock <= 0 {
		return false, nil
	}
	r.Stock--
	return true, nil
}

func (f *fakeRewardRepo) CreateRedemption(_ context.Context, redemption *models.Redemption) error {
	redemption.ID = int64(len(f.redemptions) + 1)
	f.redemptions = append(f.redemptions, redemption)
	return nil
}

func (f *fakeRewardRepo) Upsert(_ context.Context, reward *models.Reward) error {
	f.rewards[reward.ID] = reward
	return nil
}

type fakeCheckinRepo struct {
	checkins []*models.Checkin
}

func (f *fakeCheckinRepo) WithTx(bun.IDB) repositories.CheckinRepository { return f }

func (f *fakeCheckinRepo) Create(_ context.Context, checkin *models.Checkin) error {
	checkin.MonthKey = models.StartOfMonth(checkin.CreatedAt)
	for _, c := range f.checkins {
		if c.UserID == checkin.UserID && c.PlaceID == checkin.PlaceID && c.MonthKey.Equal(checkin.MonthKey) {
			return &repositories.ConflictError{Entity: "checkin", Field: "unique key", Value: checkin.PlaceID}
		}
	}
	checkin.ID = int64(len(f.checkins) + 1)
	f.checkins = append(f.checkins, checkin)
	return nil
}

func (f *fakeCheckinRepo) CountByUser(_ context.Context, userID int64) (int, error) {
	count := 0
	for _, c := range f.checkins {
		if c.UserID == userID {
			count++
		}
	}
	return count, nil
}

type fakeReviewRepo struct {
	reviews []*models.Review
}

func (f *fakeReviewRepo) WithTx(bun.IDB) repositories.ReviewRepository { return f }

func (f *fakeReviewRepo) Create(_ context.Context, review *models.Review) error {
	review.MonthKey = models.StartOfMonth(review.CreatedAt)
	for _, r := range f.reviews {
		if r.UserID == review.UserID && r.PlaceID == review.PlaceID && r.MonthKey.Equal(review.MonthKey) {
			return &repositories.ConflictError{Entity: "review", Field: "unique key", Value: review.PlaceID}
		}
	}
	review.ID = int64(len(f.reviews) + 1)
	f.reviews = append(f.reviews, review)
	return nil
}

type fakeSnapshotRepo struct {
	active *models.LeaderboardSnapshot
}

func (f *fakeSnapshotRepo) WithTx(bun.IDB) repositories.LeaderboardRepository { return f }

func (f *fakeSnapshotRepo) GetActive(_ context.Context) (*models.LeaderboardSnapshot, error) {
	if f.active == nil {
		return nil, &repositories.NotFoundError{Entity: "leaderboard snapshot", ID: "active"}
	}
	return f.active, nil
}

func (f *fakeSnapshotRepo) ReplaceActive(_ context.Context, snapshot *models.LeaderboardSnapshot) error {
	snapshot.Active = true
	f.active = snapshot
	return nil
}

// env wires the full service graph over fakes, mirroring how the
// application assembles it.
type env struct {
	db        *fakeDB
	users     *fakeUserRepo
	goals     *fakeGoalRepo
	actions   *fakeActionRepo
	progress  *fakeProgressRepo
	txns      *fakeTxnRepo
	rewards   *fakeRewardRepo
	checkins  *fakeCheckinRepo
	reviews   *fakeReviewRepo
	snapshots *fakeSnapshotRepo
	cache     cache.Cache

	logger      *ActionLogger
	ledger      *RewardLedger
	tracker     *ProgressTracker
	engine      *RuleEngine
	checkinSvc  *CheckinService
	reviewSvc   *ReviewService
	redeemSvc   *RedemptionService
	leaderboard *LeaderboardAggregator
}

func newEnv() *env {
	e := &env{
		db:        &fakeDB{},
		users:     newFakeUserRepo(),
		goals:     &fakeGoalRepo{},
		actions:   &fakeActionRepo{},
		progress:  &fakeProgressRepo{},
		rewards:   newFakeRewardRepo(),
		checkins:  &fakeCheckinRepo{},
		reviews:   &fakeReviewRepo{},
		snapshots: &fakeSnapshotRepo{},
		cache:     cache.NewMemory(64),
	}
	e.txns = &fakeTxnRepo{users: e.users}

	e.logger = NewActionLogger(e.actions)
	e.ledger = NewRewardLedger(e.db, e.users, e.txns, e.logger)
	e.tracker = NewProgressTracker(e.progress, e.actions, e.users, e.ledger)
	e.engine = NewRuleEngine(e.db, e.goals, e.logger, e.tracker)
	e.ledger.BindRuleEngine(e.engine)

	e.checkinSvc = NewCheckinService(e.db, e.checkins, e.users, e.ledger, e.engine)
	e.reviewSvc = NewReviewService(e.db, e.reviews, e.users, e.ledger, e.engine)
	e.redeemSvc = NewRedemptionService(e.db, e.rewards, e.ledger)
	e.leaderboard = NewLeaderboardAggregator(e.db, e.users, e.txns, e.snapshots, e.cache)
	return e
}

func (e *env) addUser(id int64, username string, createdAt time.Time) *models.User {
	u := &models.User{ID: id, Username: username, CreatedAt: createdAt}
	_ = e.users.Create(context.Background(), u)
	return u
}
