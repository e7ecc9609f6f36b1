package tabletop

import (
	"encoding/json"
	"strings"
	"time"
)

// Snapshot is the transport-safe, self-contained form of the session
// document. Every collection is non-nil and every optional field is
// explicitly defaulted so serialized documents are stable for
// comparison and storage.
type Snapshot struct {
	Zones           map[string][]Card     `json:"zones"`
	Players         []Player              `json:"players"`
	RemoteSeats     map[string]RemoteSeat `json:"remoteSeats"`
	Life            int                   `json:"life"`
	Poison          int                   `json:"poison"`
	CommanderTax    int                   `json:"commanderTax"`
	CommanderDamage map[string]int        `json:"commanderDamage"`
	TurnOrder       []string              `json:"turnOrder"`
	CurrentTurn     int                   `json:"currentTurn"`
	MySeat          int                   `json:"mySeat"`
	PlayerKey       string                `json:"playerKey"`
	PlayerName      string                `json:"playerName"`
	Playmat         string                `json:"playmat"`
	LifeTheme       string                `json:"lifeTheme"`
	Log             []LogEntry            `json:"log"`
	SentAt          int64                 `json:"sentAt"`
}

// Snapshot produces a deep-copied wire document of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Zones:           make(map[string][]Card, len(zoneOrder)),
		Players:         make([]Player, len(s.doc.Players)),
		RemoteSeats:     make(map[string]RemoteSeat, len(s.doc.RemoteSeats)),
		Life:            s.doc.Life,
		Poison:          s.doc.Poison,
		CommanderTax:    s.doc.CommanderTax,
		CommanderDamage: make(map[string]int, len(s.doc.CommanderDamage)),
		TurnOrder:       append([]string{}, s.doc.TurnOrder...),
		CurrentTurn:     s.doc.CurrentTurn,
		MySeat:          s.doc.MySeat,
		PlayerKey:       s.doc.PlayerKey,
		PlayerName:      s.doc.PlayerName,
		Playmat:         s.doc.Playmat,
		LifeTheme:       s.doc.LifeTheme,
		Log:             append([]LogEntry{}, s.doc.Log...),
		SentAt:          s.now().UnixMilli(),
	}
	for _, zo := range zoneOrder {
		snap.Zones[string(zo)] = CloneCards(s.doc.Zones[zo])
	}
	for i, p := range s.doc.Players {
		snap.Players[i] = copyPlayer(p)
	}
	for k, v := range s.doc.RemoteSeats {
		snap.RemoteSeats[k] = defaultRemoteSeat(copyRemoteSeat(v))
	}
	for k, v := range s.doc.CommanderDamage {
		snap.CommanderDamage[k] = v
	}
	return snap
}

// sanitizeCards drops entries that cannot name a card (empty id) and
// clamps per-card fields into range. Always returns a non-nil slice.
func sanitizeCards(cards []Card) []Card {
	out := make([]Card, 0, len(cards))
	for _, c := range cards {
		if c.ID == "" {
			continue
		}
		if c.Counters < 0 {
			c.Counters = 0
		}
		c.CustomText = strings.TrimSpace(c.CustomText)
		out = append(out, c.Copy())
	}
	return out
}

// defaultRemoteSeat fills every collection so the record is stable for
// serialization and comparison.
func defaultRemoteSeat(r RemoteSeat) RemoteSeat {
	if r.Battlefield == nil {
		r.Battlefield = []Card{}
	}
	if r.Lands == nil {
		r.Lands = []Card{}
	}
	if r.Command == nil {
		r.Command = []Card{}
	}
	if r.Graveyard == nil {
		r.Graveyard = []Card{}
	}
	if r.Exile == nil {
		r.Exile = []Card{}
	}
	if r.Poison < 0 {
		r.Poison = 0
	}
	if r.CommanderTax < 0 {
		r.CommanderTax = 0
	}
	return r
}

// hydration is the staged result of decoding a snapshot document. Nil
// pointers and nil collections mean "keep the current value".
type hydration struct {
	changed bool

	zones   Zones
	players []Player

	seats    map[string]RemoteSeat
	seatsSet bool

	damage map[string]int

	turnOrder    []string
	turnOrderSet bool

	life, poison, tax, turn, mySeat       *int
	playerKey, playerName, playmat, theme *string

	log    []LogEntry
	logSet bool
}

// decodeHydration parses a snapshot document into staged state without
// touching the store. It tolerates anything: malformed sections fall
// back to "keep current", individual remote seats are skipped, and a
// panic anywhere in decoding yields ok=false.
func decodeHydration(data []byte, now func() time.Time) (h hydration, ok bool) {
	defer func() {
		if recover() != nil {
			h, ok = hydration{}, false
		}
	}()

	var top map[string]json.RawMessage
	if err := json.Unmarshal(data, &top); err != nil || top == nil {
		return hydration{}, false
	}

	if raw, exists := top["zones"]; exists {
		var zones map[string][]Card
		if err := json.Unmarshal(raw, &zones); err == nil && zones != nil {
			next := NewZones()
			for _, zo := range zoneOrder {
				if cards, found := zones[string(zo)]; found {
					next[zo] = sanitizeCards(cards)
				}
			}
			h.zones = next
			h.changed = true
		}
	}

	if raw, exists := top["players"]; exists {
		var players []Player
		if err := json.Unmarshal(raw, &players); err == nil && len(players) > 0 {
			for i := range players {
				players[i].Battlefield = sanitizeCards(players[i].Battlefield)
				players[i].Lands = sanitizeCards(players[i].Lands)
				players[i].Command = sanitizeCards(players[i].Command)
				players[i].Graveyard = sanitizeCards(players[i].Graveyard)
				players[i].Exile = sanitizeCards(players[i].Exile)
				players[i].Hand = sanitizeCards(players[i].Hand)
			}
			h.players = players
			h.changed = true
		}
	}

	if raw, exists := top["remoteSeats"]; exists {
		var entries map[string]json.RawMessage
		if err := json.Unmarshal(raw, &entries); err == nil {
			seats := make(map[string]RemoteSeat, len(entries))
			for id, entryRaw := range entries {
				if id == "" {
					continue
				}
				var seat RemoteSeat
				if err := json.Unmarshal(entryRaw, &seat); err != nil {
					continue // skip this entry, keep the rest
				}
				seat.ID = id
				if seat.UpdatedAt == 0 {
					seat.UpdatedAt = now().UnixMilli()
				}
				seats[id] = defaultRemoteSeat(seat)
			}
			h.seats = seats
			h.seatsSet = true
			h.changed = true
		}
	}

	h.life = hydrateInt(top, "life", false)
	h.poison = hydrateInt(top, "poison", true)
	h.tax = hydrateInt(top, "commanderTax", true)
	h.turn = hydrateInt(top, "currentTurn", true)
	h.mySeat = hydrateInt(top, "mySeat", false)
	h.playerKey = hydrateString(top, "playerKey")
	h.playerName = hydrateString(top, "playerName")
	h.playmat = hydrateString(top, "playmat")
	h.theme = hydrateString(top, "lifeTheme")
	if h.life != nil || h.poison != nil || h.tax != nil || h.turn != nil ||
		h.mySeat != nil || h.playerKey != nil || h.playerName != nil ||
		h.playmat != nil || h.theme != nil {
		h.changed = true
	}

	if raw, exists := top["commanderDamage"]; exists {
		var dmg map[string]int
		if err := json.Unmarshal(raw, &dmg); err == nil && dmg != nil {
			for k, v := range dmg {
				if v < 0 {
					dmg[k] = 0
				}
			}
			h.damage = dmg
			h.changed = true
		}
	}

	if raw, exists := top["turnOrder"]; exists {
		var order []string
		if err := json.Unmarshal(raw, &order); err == nil {
			h.turnOrder = order
			h.turnOrderSet = true
			h.changed = true
		}
	}

	if raw, exists := top["log"]; exists {
		var entries []LogEntry
		if err := json.Unmarshal(raw, &entries); err == nil {
			if len(entries) > logCapacity {
				entries = entries[len(entries)-logCapacity:]
			}
			h.log = entries
			h.logSet = true
			h.changed = true
		}
	}

	return h, h.changed
}

// Hydrate reconstructs store state from a received document. It is the
// convergence entry point and must never throw or partially apply:
// malformed zones fall back to current state, each remote seat entry is
// defaulted or skipped individually, and any decoding failure turns the
// whole call into a no-op. When a players array is present, its seat-0
// zones override the legacy zones view, since the sender's player 0 is
// authoritative for what was broadcast. All decoding happens before the
// lock is taken; the apply phase is plain assignment.
func (s *Store) Hydrate(data []byte) {
	h, ok := decodeHydration(data, s.now)
	if !ok {
		return
	}

	s.mu.Lock()
	if h.zones != nil {
		s.doc.Zones = h.zones
	}
	if len(h.players) > 0 {
		s.doc.Players = h.players
		// Seat 0 is authoritative for the sender's own cards.
		p0 := h.players[0]
		s.doc.Zones[ZoneBattlefield] = CloneCards(p0.Battlefield)
		s.doc.Zones[ZoneLands] = CloneCards(p0.Lands)
		s.doc.Zones[ZoneCommand] = CloneCards(p0.Command)
		s.doc.Zones[ZoneGraveyard] = CloneCards(p0.Graveyard)
		s.doc.Zones[ZoneExile] = CloneCards(p0.Exile)
		if len(p0.Hand) > 0 {
			s.doc.Zones[ZoneHand] = CloneCards(p0.Hand)
		}
	}
	if h.seatsSet {
		s.doc.RemoteSeats = h.seats
	}
	if h.life != nil {
		s.doc.Life = *h.life
	}
	if h.poison != nil {
		s.doc.Poison = *h.poison
	}
	if h.tax != nil {
		s.doc.CommanderTax = *h.tax
	}
	if h.damage != nil {
		s.doc.CommanderDamage = h.damage
	}
	if h.turnOrderSet {
		s.doc.TurnOrder = h.turnOrder
	}
	if h.turn != nil {
		s.doc.CurrentTurn = *h.turn
	}
	if len(s.doc.TurnOrder) == 0 || s.doc.CurrentTurn >= len(s.doc.TurnOrder) {
		s.doc.CurrentTurn = 0
	}
	if h.mySeat != nil {
		seat := *h.mySeat
		if seat < 0 {
			seat = -1
		}
		s.doc.MySeat = seat
	}
	if h.playerKey != nil {
		s.doc.PlayerKey = *h.playerKey
	}
	if h.playerName != nil {
		s.doc.PlayerName = *h.playerName
	}
	if h.playmat != nil {
		s.doc.Playmat = *h.playmat
	}
	if h.theme != nil {
		s.doc.LifeTheme = *h.theme
	}
	if h.logSet {
		s.doc.Log = h.log
	}
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

func hydrateInt(top map[string]json.RawMessage, key string, floorZero bool) *int {
	raw, ok := top[key]
	if !ok {
		return nil
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	if floorZero && v < 0 {
		v = 0
	}
	return &v
}

// hydrateString treats an empty incoming string as absent so a blank
// identity field can never wipe a known one.
func hydrateString(top map[string]json.RawMessage, key string) *string {
	raw, ok := top[key]
	if !ok {
		return nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil || v == "" {
		return nil
	}
	return &v
}
