// Package config loads service settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds everything the service reads from the environment.
// Empty RedisAddr or DatabaseURL disables the corresponding feature.
type Config struct {
	ListenAddr  string
	RedisAddr   string
	RedisDB     int
	DatabaseURL string
	TokenSecret string
	CardAPIBase string

	BroadcastWindow time.Duration
	SaveWindow      time.Duration
	SnapshotTTL     time.Duration
}

// Load reads the environment, after merging in a .env file if one is
// present. Missing values fall back to defaults; a missing .env is not
// an error.
func Load(log *logrus.Logger) Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("loading .env file")
	}
	return Config{
		ListenAddr:      envOr("LISTEN_ADDR", ":8080"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisDB:         envInt("REDIS_DB", 0),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		TokenSecret:     envOr("TOKEN_SECRET", ""),
		CardAPIBase:     envOr("CARD_API_BASE", "https://api.scryfall.com"),
		BroadcastWindow: envDuration(log, "BROADCAST_WINDOW", 150*time.Millisecond),
		SaveWindow:      envDuration(log, "SAVE_WINDOW", 5*time.Second),
		SnapshotTTL:     envDuration(log, "SNAPSHOT_TTL", 72*time.Hour),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(log *logrus.Logger, key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.WithField("key", key).WithError(err).Warn("invalid duration, using default")
		return fallback
	}
	return d
}
