package spotquest

import (
	"github.com/hyewave/spotquest/spotquest/cache"
	"github.com/hyewave/spotquest/spotquest/database"
	"github.com/hyewave/spotquest/spotquest/database/repositories"
	"github.com/hyewave/spotquest/spotquest/services"
)

// App bundles the wired gamification core. Transports (HTTP, admin
// surfaces) live outside this repository and call into these services.
type App struct {
	Cfg     Config
	Version string
	Commit  string
	DB      *database.DB
	Cache   cache.Cache

	UserRepository repositories.UserRepository
	GoalRepository repositories.GoalRepository

	ActionLogger *services.ActionLogger
	RewardLedger *services.RewardLedger
	RuleEngine   *services.RuleEngine
	Checkins     *services.CheckinService
	Reviews      *services.ReviewService
	Redemptions  *services.RedemptionService
	Leaderboard  *services.LeaderboardAggregator
}

// New wires repositories and services over an open database handle. The
// ledger/engine cycle (grants emit earned events the engine may react to)
// is closed explicitly after both exist.
func New(cfg Config, version, commit string, db *database.DB, kv cache.Cache) *App {
	bunDB := db.BunDB()

	userRepo := repositories.NewUserRepository(bunDB)
	goalRepo := repositories.NewGoalRepository(bunDB)
	actionRepo := repositories.NewActionRepository(bunDB)
	progressRepo := repositories.NewProgressRepository(bunDB)
	txnRepo := repositories.NewTransactionRepository(bunDB)
	rewardRepo := repositories.NewRewardRepository(bunDB)
	checkinRepo := repositories.NewCheckinRepository(bunDB)
	reviewRepo := repositories.NewReviewRepository(bunDB)
	snapshotRepo := repositories.NewLeaderboardRepository(bunDB)

	actionLogger := services.NewActionLogger(actionRepo)
	ledger := services.NewRewardLedger(bunDB, userRepo, txnRepo, actionLogger)
	tracker := services.NewProgressTracker(progressRepo, actionRepo, userRepo, ledger)
	engine := services.NewRuleEngine(bunDB, goalRepo, actionLogger, tracker)
	ledger.BindRuleEngine(engine)

	leaderboard := services.NewLeaderboardAggregator(bunDB, userRepo, txnRepo, snapshotRepo, kv)
	if cfg.Cache.TTL > 0 {
		leaderboard.SetTTL(cfg.Cache.TTL)
	}

	return &App{
		Cfg:            cfg,
		Version:        version,
		Commit:         commit,
		DB:             db,
		Cache:          kv,
		UserRepository: userRepo,
		GoalRepository: goalRepo,
		ActionLogger:   actionLogger,
		RewardLedger:   ledger,
		RuleEngine:     engine,
		Checkins:       services.NewCheckinService(bunDB, checkinRepo, userRepo, ledger, engine),
		Reviews:        services.NewReviewService(bunDB, reviewRepo, userRepo, ledger, engine),
		Redemptions:    services.NewRedemptionService(bunDB, rewardRepo, ledger),
		Leaderboard:    leaderboard,
	}
}
