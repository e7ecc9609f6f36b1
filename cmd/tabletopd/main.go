// Command tabletopd serves the multiplayer tabletop: a websocket relay
// for room state sync, durable snapshots in Redis, and deck storage in
// Postgres. Redis and Postgres are both optional; without them the
// relay still runs and the related routes degrade.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hexproof-games/tabletop/internal/auth"
	"github.com/hexproof-games/tabletop/internal/cache"
	"github.com/hexproof-games/tabletop/internal/cardinfo"
	"github.com/hexproof-games/tabletop/internal/config"
	"github.com/hexproof-games/tabletop/internal/database"
	"github.com/hexproof-games/tabletop/internal/httpapi"
	"github.com/hexproof-games/tabletop/internal/relay"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg := config.Load(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snaps *cache.Snapshots
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, snapshots disabled")
		} else {
			snaps = cache.NewSnapshots(rdb, cfg.SnapshotTTL, log)
			log.WithField("addr", cfg.RedisAddr).Info("snapshot store connected")
		}
	}

	var decks *database.Decks
	if cfg.DatabaseURL != "" {
		pool, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			log.WithError(err).Warn("postgres unreachable, deck storage disabled")
		} else {
			defer pool.Close()
			decks = database.NewDecks(pool)
			if err := decks.Migrate(ctx); err != nil {
				log.WithError(err).Fatal("migrating deck schema")
			}
			log.Info("deck store connected")
		}
	}

	var tokens *auth.Tokens
	if cfg.TokenSecret != "" {
		tokens = auth.New([]byte(cfg.TokenSecret), 0)
	} else {
		log.Warn("TOKEN_SECRET unset, seat resume disabled")
	}

	hub := relay.NewHub(log, tokens)
	cards := cardinfo.New(cfg.CardAPIBase, log)

	router := httpapi.NewRouter(httpapi.API{
		Decks: decks,
		Snaps: snaps,
		Cards: cards,
		Hub:   hub,
		Log:   log,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("addr", cfg.ListenAddr).Info("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("shutdown")
	}
}
