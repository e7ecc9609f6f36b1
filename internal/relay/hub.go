// Package relay is the realtime fanout layer. It keeps rooms of
// connected clients keyed by join code and forwards state snapshots,
// presence events and dice rolls between them. The relay never
// inspects snapshot contents and makes no ordering or delivery
// guarantees; convergence is the receiving store's problem.
package relay

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/hexproof-games/tabletop/internal/auth"
)

// Hub routes messages between room members. All exported methods are
// safe for concurrent use.
type Hub struct {
	log    *logrus.Logger
	tokens *auth.Tokens

	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool
}

// NewHub builds a hub. tokens may be nil, in which case joins still
// work but no resume tokens are issued or honored.
func NewHub(log *logrus.Logger, tokens *auth.Tokens) *Hub {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Hub{
		log:     log,
		tokens:  tokens,
		clients: make(map[*Client]bool),
		rooms:   make(map[string]map[*Client]bool),
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.log.WithField("client", c.ID).Debug("client connected")
}

// unregister drops the client from the hub and, if it was sitting in a
// room, broadcasts its departure. Safe to call more than once.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	if !h.clients[c] {
		h.mu.Unlock()
		return
	}
	delete(h.clients, c)
	room, name := c.room, c.name
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	close(c.send)
	h.mu.Unlock()

	if room != "" {
		h.broadcast(room, Message{Type: TypeLeave, ID: c.ID, Name: name}, nil)
	}
	h.log.WithField("client", c.ID).Debug("client disconnected")
}

// handle dispatches one decoded-at-the-boundary inbound frame.
func (h *Hub) handle(c *Client, data []byte) {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		h.log.WithField("client", c.ID).WithError(err).Warn("dropping undecodable frame")
		return
	}

	switch msg.Type {
	case TypeJoin:
		h.handleJoin(c, msg)
	case TypeLeave:
		h.handleLeave(c)
	case TypeState:
		h.handleState(c, msg)
	case TypeDice:
		h.handleDice(c, msg)
	default:
		h.sendTo(c, Message{Type: TypeError, Error: "unknown message type"})
	}
}

// handleJoin seats the client in a room. A valid resume token for the
// room lets a reconnecting client reclaim its player key; otherwise a
// fresh key is minted. The joiner gets a "joined" ack carrying the key
// and a (re)issued token; everyone else in the room gets a presence
// event.
func (h *Hub) handleJoin(c *Client, msg Message) {
	if msg.Room == "" {
		h.sendTo(c, Message{Type: TypeError, Error: "join requires a room"})
		return
	}

	playerKey := uuid.NewString()
	name := msg.Name
	if h.tokens != nil && msg.Token != "" {
		if claims, err := h.tokens.Verify(msg.Token, msg.Room); err == nil {
			playerKey = claims.PlayerKey
			if name == "" {
				name = claims.Name
			}
		} else {
			h.log.WithField("client", c.ID).WithError(err).Info("ignoring stale resume token")
		}
	}

	h.mu.Lock()
	if prev := c.room; prev != "" && prev != msg.Room {
		if members, ok := h.rooms[prev]; ok {
			delete(members, c)
			if len(members) == 0 {
				delete(h.rooms, prev)
			}
		}
	}
	members, ok := h.rooms[msg.Room]
	if !ok {
		members = make(map[*Client]bool)
		h.rooms[msg.Room] = members
	}
	members[c] = true
	c.room = msg.Room
	c.name = name
	c.playerKey = playerKey
	h.mu.Unlock()

	ack := Message{Type: TypeJoined, ID: c.ID, Room: msg.Room, Name: name, PlayerKey: playerKey}
	if h.tokens != nil {
		token, err := h.tokens.Issue(msg.Room, playerKey, name)
		if err != nil {
			h.log.WithError(err).Error("issuing resume token")
		} else {
			ack.Token = token
		}
	}
	h.sendTo(c, ack)

	h.broadcast(msg.Room, Message{Type: TypeJoin, ID: c.ID, Name: name}, c)
	h.log.WithFields(logrus.Fields{"client": c.ID, "room": msg.Room}).Info("joined room")
}

func (h *Hub) handleLeave(c *Client) {
	h.mu.Lock()
	room, name := c.room, c.name
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
	c.room = ""
	h.mu.Unlock()

	if room != "" {
		h.broadcast(room, Message{Type: TypeLeave, ID: c.ID, Name: name}, nil)
	}
}

// handleState relays a snapshot to every other room member. From is
// stamped with the sender's connection id so receivers can suppress
// their own echo.
func (h *Hub) handleState(c *Client, msg Message) {
	h.mu.RLock()
	room := c.room
	h.mu.RUnlock()
	if room == "" {
		return
	}
	out := Message{Type: TypeState, Room: room, From: c.ID, Snap: msg.Snap}
	h.broadcast(room, out, c)
}

// handleDice relays a roll with the sender's display name attached.
// Rolls reach the whole room including the roller; with no room, they
// go to every connected client.
func (h *Hub) handleDice(c *Client, msg Message) {
	h.mu.RLock()
	room, name := c.room, c.name
	h.mu.RUnlock()

	out := Message{Type: TypeDice, ID: c.ID, Name: name, Die: msg.Die, Value: msg.Value}
	if room == "" {
		h.broadcastAll(out)
		return
	}
	out.Room = room
	h.broadcast(room, out, nil)
}

// broadcast sends msg to every member of room except the excluded
// client. Slow clients are skipped, not waited on.
func (h *Hub) broadcast(room string, msg Message, except *Client) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("encoding broadcast")
		return
	}
	h.mu.RLock()
	for c := range h.rooms[room] {
		if c == except {
			continue
		}
		select {
		case c.send <- data:
		default:
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) broadcastAll(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("encoding broadcast")
		return
	}
	h.mu.RLock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
		}
	}
	h.mu.RUnlock()
}

func (h *Hub) sendTo(c *Client, msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.log.WithError(err).Error("encoding message")
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// RoomSize reports how many clients currently sit in a room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
