package config

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func TestDefaults(t *testing.T) {
	cfg := Load(quietLogger())
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Equal(t, 150*time.Millisecond, cfg.BroadcastWindow)
	assert.Equal(t, 5*time.Second, cfg.SaveWindow)
	assert.Equal(t, 72*time.Hour, cfg.SnapshotTTL)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_DB", "3")
	t.Setenv("BROADCAST_WINDOW", "50ms")

	cfg := Load(quietLogger())
	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 3, cfg.RedisDB)
	assert.Equal(t, 50*time.Millisecond, cfg.BroadcastWindow)
}

func TestBadDurationFallsBack(t *testing.T) {
	t.Setenv("SAVE_WINDOW", "soonish")
	cfg := Load(quietLogger())
	assert.Equal(t, 5*time.Second, cfg.SaveWindow)
}
