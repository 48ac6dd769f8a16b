package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	ListenAddr string
	EventsAddr string

	DatabaseURL string
	RedisURL    string

	RandomOrgURL     string
	RandomOrgTimeout time.Duration

	LeaderboardTTL time.Duration
	MessageDir     string
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		ListenAddr:       ":5000",
		EventsAddr:       ":5001",
		RandomOrgTimeout: 5 * time.Second,
		LeaderboardTTL:   15 * time.Second,
	}

	if v := strings.TrimSpace(os.Getenv("LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("EVENTS_ADDR")); v != "" {
		cfg.EventsAddr = v
	}

	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))

	cfg.RandomOrgURL = strings.TrimSpace(os.Getenv("RANDOM_ORG_URL"))
	if v := strings.TrimSpace(os.Getenv("RANDOM_ORG_TIMEOUT")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.RandomOrgTimeout = time.Duration(n) * time.Second
		}
	}
	if v := strings.TrimSpace(os.Getenv("LEADERBOARD_TTL")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.LeaderboardTTL = time.Duration(n) * time.Second
		}
	}
	cfg.MessageDir = strings.TrimSpace(os.Getenv("MESSAGE_DIR"))

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}
