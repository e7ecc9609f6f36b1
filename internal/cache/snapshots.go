// Package cache persists the latest room snapshot in Redis so late
// joiners and reconnects can hydrate without waiting for a peer
// broadcast.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultTTL is how long a room snapshot survives without a save.
// Tables idle longer than this start fresh.
const DefaultTTL = 72 * time.Hour

const opTimeout = 2 * time.Second

// Snapshots stores one serialized snapshot per room code. All
// failures are logged and swallowed; the next debounced save retries
// naturally.
type Snapshots struct {
	rdb *redis.Client
	ttl time.Duration
	log *logrus.Logger
}

// NewSnapshots wraps a Redis client. TTL zero means DefaultTTL. A nil
// client yields a store whose Save is a no-op and whose Load always
// misses, so callers need no nil checks.
func NewSnapshots(rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *Snapshots {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Snapshots{rdb: rdb, ttl: ttl, log: log}
}

func snapshotKey(room string) string {
	return "room:snapshot:" + room
}

// Save upserts the latest snapshot for a room, replacing whatever was
// there and refreshing the TTL.
func (s *Snapshots) Save(ctx context.Context, room string, doc []byte) {
	if s.rdb == nil || room == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.rdb.Set(ctx, snapshotKey(room), doc, s.ttl).Err(); err != nil {
		s.log.WithField("room", room).WithError(err).Warn("saving room snapshot")
	}
}

// Load fetches the latest snapshot for a room. The second return is
// false when no snapshot exists or the fetch failed.
func (s *Snapshots) Load(ctx context.Context, room string) ([]byte, bool) {
	if s.rdb == nil || room == "" {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	doc, err := s.rdb.Get(ctx, snapshotKey(room)).Bytes()
	if err != nil {
		if err != redis.Nil {
			s.log.WithField("room", room).WithError(err).Warn("loading room snapshot")
		}
		return nil, false
	}
	return doc, true
}
