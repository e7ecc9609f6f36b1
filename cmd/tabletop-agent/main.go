// Command tabletop-agent joins a table as a headless participant. It
// mirrors the room's state into a local store and, when Redis is
// configured, keeps the durable room snapshot fresh so players on
// clients without their own persistence can still reload mid-game.
// Broadcast and save pacing follow BROADCAST_WINDOW and SAVE_WINDOW.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/hexproof-games/tabletop/internal/cache"
	"github.com/hexproof-games/tabletop/internal/config"
	"github.com/hexproof-games/tabletop/internal/relay"
	"github.com/hexproof-games/tabletop/internal/session"
	"github.com/hexproof-games/tabletop/internal/tabletop"
)

const writeTimeout = 10 * time.Second

func main() {
	var (
		server = flag.String("server", "ws://localhost:8080/ws", "relay websocket URL")
		room   = flag.String("room", "", "room code to join")
		name   = flag.String("name", "table-agent", "display name in the room")
	)
	flag.Parse()

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if *room == "" {
		log.Fatal("-room is required")
	}

	cfg := config.Load(log)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var snaps *cache.Snapshots
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.WithError(err).Warn("redis unreachable, durable saves disabled")
		} else {
			snaps = cache.NewSnapshots(rdb, cfg.SnapshotTTL, log)
			log.WithField("addr", cfg.RedisAddr).Info("snapshot store connected")
		}
	}

	conn, _, err := websocket.Dial(ctx, *server, nil)
	if err != nil {
		log.WithError(err).Fatal("dialing relay")
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// The scheduler's debounce timers and the main goroutine both
	// send; the connection takes one writer at a time.
	var writeMu sync.Mutex
	send := func(msg relay.Message) {
		data, err := json.Marshal(msg)
		if err != nil {
			log.WithError(err).Error("encoding frame")
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		defer cancel()
		if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
			log.WithError(err).Warn("writing frame")
		}
	}

	store := tabletop.NewStore()
	sess := session.New(store, snaps, send, *room, *name, log,
		session.WithWindows(cfg.BroadcastWindow, cfg.SaveWindow))
	sess.Start(ctx)
	defer sess.Close()

	log.WithFields(logrus.Fields{"room": *room, "server": *server}).Info("joined table")

	go func() {
		defer stop()
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				if ctx.Err() == nil {
					log.WithError(err).Warn("relay connection lost")
				}
				return
			}
			sess.HandleFrame(data)
		}
	}()

	<-ctx.Done()
	log.Info("leaving table")
}
