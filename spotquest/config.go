package spotquest

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/hyewave/spotquest/spotquest/cache"
	"github.com/hyewave/spotquest/spotquest/database"
)

func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err = toml.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type Config struct {
	Log         LogConfig         `toml:"log"`
	DB          database.Config   `toml:"db"`
	Cache       CacheConfig       `toml:"cache"`
	Leaderboard LeaderboardConfig `toml:"leaderboard"`
}

type LogConfig struct {
	Level     slog.Level `toml:"level"`
	AddSource bool       `toml:"add_source"`
}

type CacheConfig struct {
	// Backend is "memory" or "redis".
	Backend string            `toml:"backend"`
	Size    int               `toml:"size"`
	TTL     time.Duration     `toml:"ttl"`
	Redis   cache.RedisConfig `toml:"redis"`
}

type LeaderboardConfig struct {
	// RefreshInterval drives the built-in refresh ticker. Zero disables
	// it; an outside scheduler can call Refresh instead.
	RefreshInterval time.Duration `toml:"refresh_interval"`
}
