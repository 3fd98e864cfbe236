package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hyewave/spotquest/spotquest"
	"github.com/hyewave/spotquest/spotquest/cache"
	"github.com/hyewave/spotquest/spotquest/database"
	"github.com/hyewave/spotquest/spotquest/logger"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	path := flag.String("config", "config.toml", "path to config")
	seedGoals := flag.Bool("seed-goals", false, "upsert the starter goal catalog on startup")
	flag.Parse()

	cfg, err := spotquest.LoadConfig(*path)
	if err != nil {
		slog.Error("Failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	slog.SetDefault(slog.New(logger.NewHandler(cfg.Log.Level)))
	slog.Info("Starting SpotQuest gamification core",
		slog.String("version", version),
		slog.String("commit", commit))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		slog.Error("Database connection failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if err := db.InitializeSchema(ctx); err != nil {
		slog.Error("Failed to initialize database schema", slog.Any("error", err))
		os.Exit(1)
	}

	var kv cache.Cache
	switch cfg.Cache.Backend {
	case "redis":
		redisCache, err := cache.NewRedis(ctx, cfg.Cache.Redis)
		if err != nil {
			slog.Error("Redis cache connection failed", slog.Any("error", err))
			os.Exit(1)
		}
		defer redisCache.Close()
		kv = redisCache
	default:
		kv = cache.NewMemory(cfg.Cache.Size)
	}

	app := spotquest.New(*cfg, version, commit, db, kv)

	if *seedGoals {
		if err := database.SeedGoalData(ctx, app.GoalRepository); err != nil {
			slog.Error("Failed to seed goal catalog", slog.Any("error", err))
			os.Exit(1)
		}
	}

	runCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Stand-in for an external scheduler; refresh stays externally
	// triggerable through the aggregator either way.
	if interval := cfg.Leaderboard.RefreshInterval; interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-runCtx.Done():
					return
				case <-ticker.C:
					if _, err := app.Leaderboard.Refresh(runCtx); err != nil {
						slog.Error("Scheduled leaderboard refresh failed",
							slog.String("type", "leaderboard"),
							slog.Any("error", err))
					}
				}
			}
		}()
	}

	slog.Info("SpotQuest core is running, press Ctrl+C to stop")
	<-runCtx.Done()
	slog.Info("Shutting down")
}
