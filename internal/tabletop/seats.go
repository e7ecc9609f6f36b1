package tabletop

import (
	"bytes"
	"encoding/json"
)

// Player is one local seat record. Hand is private: it is kept in local
// snapshots (so durable saves survive a reload) but stripped down to a
// count before anything goes over the wire.
type Player struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name,omitempty"`
	Battlefield []Card `json:"battlefield"`
	Lands       []Card `json:"lands"`
	Command     []Card `json:"command"`
	Graveyard   []Card `json:"graveyard"`
	Exile       []Card `json:"exile"`
	Hand        []Card `json:"hand,omitempty"`
	Playmat     string `json:"playmat,omitempty"`
	LifeTheme   string `json:"lifeTheme,omitempty"`
}

// copyPlayer deep-copies a player record.
func copyPlayer(p Player) Player {
	out := p
	out.Battlefield = CloneCards(p.Battlefield)
	out.Lands = CloneCards(p.Lands)
	out.Command = CloneCards(p.Command)
	out.Graveyard = CloneCards(p.Graveyard)
	out.Exile = CloneCards(p.Exile)
	out.Hand = CloneCards(p.Hand)
	return out
}

// RemoteSeat is a read-only shadow of one other participant's publicly
// visible state, keyed by their transport id. It is overwritten
// wholesale from that peer's broadcasts and never mutated by local
// actions.
type RemoteSeat struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Seat         int    `json:"seat"`
	PlayerKey    string `json:"playerKey"`
	SocketID     string `json:"socketId"`
	Battlefield  []Card `json:"battlefield"`
	Lands        []Card `json:"lands"`
	Command      []Card `json:"command"`
	Graveyard    []Card `json:"graveyard"`
	Exile        []Card `json:"exile"`
	HandCount    int    `json:"handCount"`
	RevealedHand []Card `json:"revealedHand,omitempty"`
	Life         int    `json:"life"`
	Poison       int    `json:"poison"`
	CommanderTax int    `json:"commanderTax"`
	LifeTheme    string `json:"lifeTheme,omitempty"`
	Playmat      string `json:"playmat,omitempty"`
	UpdatedAt    int64  `json:"updatedAt"`
}

func copyRemoteSeat(r RemoteSeat) RemoteSeat {
	out := r
	out.Battlefield = CloneCards(r.Battlefield)
	out.Lands = CloneCards(r.Lands)
	out.Command = CloneCards(r.Command)
	out.Graveyard = CloneCards(r.Graveyard)
	out.Exile = CloneCards(r.Exile)
	out.RevealedHand = CloneCards(r.RevealedHand)
	return out
}

// SeatPatch is a partial update for a remote seat as received off the
// wire. A key that is absent keeps the previous value; a key explicitly
// set to null clears it; an unparseable value is skipped.
type SeatPatch map[string]json.RawMessage

var jsonNull = []byte("null")

func patchString(raw json.RawMessage, dst *string) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		*dst = ""
		return
	}
	var v string
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

func patchInt(raw json.RawMessage, dst *int) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		*dst = 0
		return
	}
	var v int
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = v
	}
}

func patchCards(raw json.RawMessage, dst *[]Card) {
	if bytes.Equal(bytes.TrimSpace(raw), jsonNull) {
		*dst = nil
		return
	}
	var v []Card
	if err := json.Unmarshal(raw, &v); err == nil {
		*dst = sanitizeCards(v)
	}
}

// applySeatPatch merges a patch into a seat record, reporting whether
// the patch explicitly carried a seat index.
func applySeatPatch(seat *RemoteSeat, patch SeatPatch) (seatSet bool) {
	for key, raw := range patch {
		switch key {
		case "name":
			patchString(raw, &seat.Name)
		case "seat":
			patchInt(raw, &seat.Seat)
			seatSet = true
		case "playerKey":
			patchString(raw, &seat.PlayerKey)
		case "socketId":
			patchString(raw, &seat.SocketID)
		case "battlefield":
			patchCards(raw, &seat.Battlefield)
		case "lands":
			patchCards(raw, &seat.Lands)
		case "command":
			patchCards(raw, &seat.Command)
		case "graveyard":
			patchCards(raw, &seat.Graveyard)
		case "exile":
			patchCards(raw, &seat.Exile)
		case "handCount":
			patchInt(raw, &seat.HandCount)
		case "revealedHand":
			patchCards(raw, &seat.RevealedHand)
		case "life":
			patchInt(raw, &seat.Life)
		case "poison":
			patchInt(raw, &seat.Poison)
		case "commanderTax":
			patchInt(raw, &seat.CommanderTax)
		case "lifeTheme":
			patchString(raw, &seat.LifeTheme)
		case "playmat":
			patchString(raw, &seat.Playmat)
		}
	}
	return seatSet
}

// SetRemoteSeat upserts the shadow record for the given transport id.
// Before inserting, any other entry colliding on seat index, player key,
// or socket id is purged so a reconnecting peer with a new transport id
// does not leave a ghost seat behind.
func (s *Store) SetRemoteSeat(id string, patch SeatPatch) {
	if id == "" {
		return
	}
	s.mu.Lock()
	seat, known := s.doc.RemoteSeats[id]
	if !known {
		seat.Seat = -1
	}
	seat.ID = id
	seatSet := applySeatPatch(&seat, patch)
	seat.UpdatedAt = s.now().UnixMilli()

	for otherID, other := range s.doc.RemoteSeats {
		if otherID == id {
			continue
		}
		// A negative seat index means "not seated yet"; two unseated
		// peers do not collide with each other.
		collides := (seatSet && seat.Seat >= 0 && other.Seat == seat.Seat) ||
			(seat.PlayerKey != "" && other.PlayerKey == seat.PlayerKey) ||
			(seat.SocketID != "" && other.SocketID == seat.SocketID)
		if collides {
			delete(s.doc.RemoteSeats, otherID)
		}
	}
	s.doc.RemoteSeats[id] = seat
	s.mu.Unlock()
	s.notify(EventChange)
}

// ClearRemoteSeat removes one shadow record, typically on a peer-leave
// notification. Unknown ids are a no-op.
func (s *Store) ClearRemoteSeat(id string) {
	s.mu.Lock()
	if _, ok := s.doc.RemoteSeats[id]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.doc.RemoteSeats, id)
	s.mu.Unlock()
	s.notify(EventChange)
}

// ClearAllRemoteSeats drops every shadow record.
func (s *Store) ClearAllRemoteSeats() {
	s.mu.Lock()
	s.doc.RemoteSeats = make(map[string]RemoteSeat)
	s.mu.Unlock()
	s.notify(EventChange)
}

// RemoteSeats returns a deep copy of the shadow map.
func (s *Store) RemoteSeats() map[string]RemoteSeat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]RemoteSeat, len(s.doc.RemoteSeats))
	for k, v := range s.doc.RemoteSeats {
		out[k] = copyRemoteSeat(v)
	}
	return out
}

// SetMySeat declares which seat index is mine for future mirroring. It
// does not retroactively move data between seats.
func (s *Store) SetMySeat(index int) {
	s.mu.Lock()
	if index < 0 {
		index = -1
	}
	s.doc.MySeat = index
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// SetSeats renames all seats in order, extending the players array and
// turn order as needed while preserving existing zone contents.
func (s *Store) SetSeats(names []string) {
	s.mu.Lock()
	for i, name := range names {
		s.setSeatNameLocked(i, name)
	}
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// SetSeatName renames a single seat, extending coverage to index.
func (s *Store) SetSeatName(index int, name string) {
	if index < 0 {
		return
	}
	s.mu.Lock()
	s.setSeatNameLocked(index, name)
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

func (s *Store) setSeatNameLocked(index int, name string) {
	s.ensureSeatsLocked(index)
	s.doc.Players[index].Name = name
	for len(s.doc.TurnOrder) <= index {
		s.doc.TurnOrder = append(s.doc.TurnOrder, "")
	}
	s.doc.TurnOrder[index] = name
}

// ensureSeatsLocked grows the players array to cover seat index.
func (s *Store) ensureSeatsLocked(index int) {
	for len(s.doc.Players) <= index {
		s.doc.Players = append(s.doc.Players, Player{
			Battlefield: []Card{},
			Lands:       []Card{},
			Command:     []Card{},
			Graveyard:   []Card{},
			Exile:       []Card{},
		})
	}
}

// mirrorSeatLocked enforces the seat-synchronization invariant: the
// legacy single-seat zones view and the multi-seat players view must
// agree after every mutation. Seat 0 always mirrors the zones; so does
// mySeat when it points elsewhere.
func (s *Store) mirrorSeatLocked() {
	targets := []int{0}
	if s.doc.MySeat > 0 {
		targets = append(targets, s.doc.MySeat)
	}
	for _, idx := range targets {
		s.ensureSeatsLocked(idx)
		p := &s.doc.Players[idx]
		p.Battlefield = CloneCards(s.doc.Zones[ZoneBattlefield])
		p.Lands = CloneCards(s.doc.Zones[ZoneLands])
		p.Command = CloneCards(s.doc.Zones[ZoneCommand])
		p.Graveyard = CloneCards(s.doc.Zones[ZoneGraveyard])
		p.Exile = CloneCards(s.doc.Zones[ZoneExile])
		p.Hand = CloneCards(s.doc.Zones[ZoneHand])
		if p.Name == "" {
			p.Name = s.doc.PlayerName
		}
		if p.ID == "" {
			p.ID = s.doc.PlayerKey
		}
		p.Playmat = s.doc.Playmat
		p.LifeTheme = s.doc.LifeTheme
	}
}

// Players returns a deep copy of the players array.
func (s *Store) Players() []Player {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Player, len(s.doc.Players))
	for i, p := range s.doc.Players {
		out[i] = copyPlayer(p)
	}
	return out
}

// SetIdentity sets the stable player key and display name for the local
// participant.
func (s *Store) SetIdentity(playerKey, name string) {
	s.mu.Lock()
	s.doc.PlayerKey = playerKey
	if name != "" {
		s.doc.PlayerName = name
	}
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// SetTheming sets the playmat and life-counter theme references.
func (s *Store) SetTheming(playmat, lifeTheme string) {
	s.mu.Lock()
	s.doc.Playmat = playmat
	s.doc.LifeTheme = lifeTheme
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}
