// Package session runs one participant's side of a table: it watches
// the local store for changes, pushes debounced snapshots to the relay
// and the durable store, and folds inbound relay frames back into the
// store.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/hexproof-games/tabletop/internal/cache"
	"github.com/hexproof-games/tabletop/internal/relay"
	"github.com/hexproof-games/tabletop/internal/tabletop"
)

// wireSnapshot is what actually crosses the relay: a snapshot with the
// private hand stripped and replaced by its count.
type wireSnapshot struct {
	tabletop.Snapshot
	HandCount int `json:"handCount"`
}

// Session glues a store to a room. Inbound frames go through
// HandleFrame; outbound frames leave through the send callback.
type Session struct {
	store *tabletop.Store
	sched *tabletop.Scheduler
	snaps *cache.Snapshots
	send  func(relay.Message)
	log   *logrus.Logger
	roll  func(sides int) int

	room string
	name string

	mu        sync.Mutex
	selfID    string
	playerKey string
	token     string

	// applying is set while an inbound frame is being folded in, so
	// peer-driven changes do not bounce straight back out as fresh
	// broadcasts. They still schedule a durable save.
	applying atomic.Bool

	unsubscribe func()
}

// Option configures a Session.
type Option func(*Session)

// WithWindows overrides the broadcast and save debounce windows.
func WithWindows(broadcast, save time.Duration) Option {
	return func(s *Session) {
		s.sched = tabletop.NewScheduler(s.broadcastNow, s.saveNow,
			tabletop.WithBroadcastWindow(broadcast),
			tabletop.WithSaveWindow(save))
	}
}

// WithRoll overrides the dice roller.
func WithRoll(roll func(sides int) int) Option {
	return func(s *Session) { s.roll = roll }
}

// WithResumeToken seats the session with a token from a previous
// connection so it can reclaim its player key.
func WithResumeToken(token string) Option {
	return func(s *Session) { s.token = token }
}

// New wires a session around a store. snaps may be nil (no durable
// saves); send must not be nil.
func New(store *tabletop.Store, snaps *cache.Snapshots, send func(relay.Message), room, name string, log *logrus.Logger, opts ...Option) *Session {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Session{
		store: store,
		snaps: snaps,
		send:  send,
		log:   log,
		room:  room,
		name:  name,
		roll:  func(sides int) int { return rand.Intn(sides) + 1 },
	}
	s.sched = tabletop.NewScheduler(s.broadcastNow, s.saveNow)
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = store.Subscribe(func(ev tabletop.Event) {
		if ev != tabletop.EventChange {
			return
		}
		if !s.applying.Load() {
			s.sched.ScheduleBroadcast()
		}
		s.sched.ScheduleSave()
	})
	return s
}

// Start hydrates from the durable snapshot if one exists, then joins
// the room.
func (s *Session) Start(ctx context.Context) {
	if s.snaps != nil {
		if doc, ok := s.snaps.Load(ctx, s.room); ok {
			s.store.Hydrate(doc)
		}
	}
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	s.send(relay.Message{Type: relay.TypeJoin, Room: s.room, Name: s.name, Token: token})
}

// Close stops the debounce timers and flushes one final save.
func (s *Session) Close() {
	s.sched.Stop()
	s.unsubscribe()
	s.saveNow()
}

// Token returns the current resume token, empty until the join is
// acked.
func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// RollDice rolls a die and announces it to the room. The relay attaches
// the sender name on fanout.
func (s *Session) RollDice(sides int) {
	if sides < 2 {
		sides = 6
	}
	s.send(relay.Message{Type: relay.TypeDice, Room: s.room, Die: sides, Value: s.roll(sides)})
}

// broadcastNow ships the current state to the room with the private
// hand reduced to a count.
func (s *Session) broadcastNow() {
	wire := wireSnapshot{Snapshot: s.store.Snapshot()}
	if len(wire.Players) > 0 {
		wire.HandCount = len(wire.Players[0].Hand)
	}
	for i := range wire.Players {
		wire.Players[i].Hand = nil
	}
	if _, ok := wire.Zones[string(tabletop.ZoneHand)]; ok {
		wire.Zones[string(tabletop.ZoneHand)] = []tabletop.Card{}
	}
	data, err := json.Marshal(wire)
	if err != nil {
		s.log.WithError(err).Error("encoding state broadcast")
		return
	}
	s.send(relay.Message{Type: relay.TypeState, Room: s.room, Snap: data})
}

// saveNow persists the full snapshot, private hand included, so a
// reload can restore it.
func (s *Session) saveNow() {
	if s.snaps == nil {
		return
	}
	data, err := json.Marshal(s.store.Snapshot())
	if err != nil {
		s.log.WithError(err).Error("encoding durable snapshot")
		return
	}
	s.snaps.Save(context.Background(), s.room, data)
}

// HandleFrame folds one inbound relay frame into the store. Unknown
// and undecodable frames are dropped.
func (s *Session) HandleFrame(data []byte) {
	var msg relay.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		s.log.WithError(err).Debug("dropping undecodable frame")
		return
	}

	s.applying.Store(true)
	defer s.applying.Store(false)

	switch msg.Type {
	case relay.TypeJoined:
		s.handleJoined(msg)
	case relay.TypeJoin:
		s.store.AppendLog(fmt.Sprintf("%s joined the table", displayName(msg.Name)))
		s.sched.ScheduleBroadcast()
	case relay.TypeLeave:
		s.store.ClearRemoteSeat(msg.ID)
		s.store.AppendLog(fmt.Sprintf("%s left the table", displayName(msg.Name)))
	case relay.TypeState:
		s.handleState(msg)
	case relay.TypeDice:
		s.store.AppendLog(fmt.Sprintf("%s rolled a %d (d%d)", displayName(msg.Name), msg.Value, msg.Die))
	}
}

func (s *Session) handleJoined(msg relay.Message) {
	s.mu.Lock()
	s.selfID = msg.ID
	s.playerKey = msg.PlayerKey
	if msg.Token != "" {
		s.token = msg.Token
	}
	s.mu.Unlock()
	s.store.SetIdentity(msg.PlayerKey, s.name)
}

// handleState updates the sender's remote-seat shadow from its
// broadcast snapshot. Our own echoes, and frames that cannot name a
// sender, are ignored; local zones are never touched by peer state.
func (s *Session) handleState(msg relay.Message) {
	s.mu.Lock()
	self := s.selfID
	s.mu.Unlock()
	if msg.From == "" || msg.From == self {
		return
	}

	var wire wireSnapshot
	if err := json.Unmarshal(msg.Snap, &wire); err != nil {
		s.log.WithField("from", msg.From).WithError(err).Debug("dropping undecodable peer state")
		return
	}

	patch := map[string]any{
		"name":         wire.PlayerName,
		"playerKey":    wire.PlayerKey,
		"socketId":     msg.From,
		"handCount":    wire.HandCount,
		"life":         wire.Life,
		"poison":       wire.Poison,
		"commanderTax": wire.CommanderTax,
		"lifeTheme":    wire.LifeTheme,
		"playmat":      wire.Playmat,
	}
	// A peer that never picked a seat broadcasts mySeat -1; sending
	// that along would make every unseated peer look like the same
	// seat.
	if wire.MySeat >= 0 {
		patch["seat"] = wire.MySeat
	}
	if len(wire.Players) > 0 {
		seat := wire.Players[0]
		patch["battlefield"] = seat.Battlefield
		patch["lands"] = seat.Lands
		patch["command"] = seat.Command
		patch["graveyard"] = seat.Graveyard
		patch["exile"] = seat.Exile
	}

	raw, err := json.Marshal(patch)
	if err != nil {
		s.log.WithError(err).Error("encoding seat patch")
		return
	}
	var seatPatch tabletop.SeatPatch
	if err := json.Unmarshal(raw, &seatPatch); err != nil {
		s.log.WithError(err).Error("decoding seat patch")
		return
	}
	s.store.SetRemoteSeat(msg.From, seatPatch)
}

func displayName(name string) string {
	if name == "" {
		return "A player"
	}
	return name
}
