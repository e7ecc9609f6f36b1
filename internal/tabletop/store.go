package tabletop

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event classifies a change notification from the store.
type Event int

const (
	// EventChange fires after any committed mutation.
	EventChange Event = iota
	// EventTurnPassed fires when the turn pointer advances, in addition
	// to EventChange. Consumers use it for cues (e.g. a turn chime);
	// subscriber panics are swallowed so a failing cue never breaks play.
	EventTurnPassed
)

// Document is the full mutable state of one table session. It is only
// ever replaced atomically; readers get deep copies via Snapshot.
type Document struct {
	Zones           Zones
	Players         []Player
	RemoteSeats     map[string]RemoteSeat
	Life            int
	Poison          int
	CommanderTax    int
	CommanderDamage map[string]int
	TurnOrder       []string
	CurrentTurn     int
	MySeat          int // -1 when unset; mirroring then targets seat 0 only
	PlayerKey       string
	PlayerName      string
	Playmat         string
	LifeTheme       string
	Log             []LogEntry
}

// DefaultDocument returns a fresh, empty session document.
func DefaultDocument() Document {
	return Document{
		Zones:           NewZones(),
		RemoteSeats:     make(map[string]RemoteSeat),
		CommanderDamage: make(map[string]int),
		Life:            40,
		MySeat:          -1,
	}
}

// cardRef locates a card inside the zones collection.
type cardRef struct {
	zone Zone
	idx  int
}

// Store owns the authoritative session document. All mutations are
// atomic: they run under the lock, re-establish the zone and seat
// invariants, and commit as a single replacement. Mutations never fail;
// an absent card id makes the operation a silent no-op so that stale ids
// arriving from the network can never crash a caller.
type Store struct {
	mu    sync.Mutex
	doc   Document
	index map[string]cardRef
	rng   *rand.Rand
	now   func() time.Time

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Store at construction.
type Option func(*Store)

// WithDocument seeds the store with an initial document.
func WithDocument(doc Document) Option {
	return func(s *Store) { s.doc = doc }
}

// WithRand sets the random source used for shuffles.
func WithRand(rng *rand.Rand) Option {
	return func(s *Store) { s.rng = rng }
}

// WithClock sets the time source used for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithPlayerName sets the local player's display name.
func WithPlayerName(name string) Option {
	return func(s *Store) { s.doc.PlayerName = name }
}

// NewStore builds a store around a fresh (or injected) document.
func NewStore(opts ...Option) *Store {
	s := &Store{
		doc:  DefaultDocument(),
		now:  time.Now,
		subs: make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.doc.Zones == nil {
		s.doc.Zones = NewZones()
	}
	if s.doc.RemoteSeats == nil {
		s.doc.RemoteSeats = make(map[string]RemoteSeat)
	}
	if s.doc.CommanderDamage == nil {
		s.doc.CommanderDamage = make(map[string]int)
	}
	s.finalizeLocked("")
	return s
}

// Subscribe registers a change listener and returns its remover.
// Listeners run synchronously after the mutation commits, outside the
// store lock; a panicking listener is swallowed.
func (s *Store) Subscribe(fn func(Event)) (unsubscribe func()) {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(ev Event) {
	s.subMu.Lock()
	fns := make([]func(Event), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		func() {
			defer func() { recover() }()
			fn(ev)
		}()
	}
}

// finalizeLocked re-establishes every cross-cutting invariant after a
// mutation: zone-level de-duplication, the seat-mirroring rule, and the
// id lookup index. logText, when non-empty, is appended to the activity
// log attributed to the acting seat.
func (s *Store) finalizeLocked(logText string) {
	s.doc.Zones = NormalizeZones(s.doc.Zones)
	s.mirrorSeatLocked()
	s.reindexLocked()
	if logText != "" {
		s.appendLog(logText)
	}
}

func (s *Store) reindexLocked() {
	s.index = make(map[string]cardRef)
	for _, zo := range zoneOrder {
		for i, c := range s.doc.Zones[zo] {
			s.index[c.ID] = cardRef{zone: zo, idx: i}
		}
	}
}

// findLocked returns a pointer into the live zones slice for the card,
// or nil when the id is unknown.
func (s *Store) findLocked(cardID string) (*Card, cardRef, bool) {
	ref, ok := s.index[cardID]
	if !ok {
		return nil, cardRef{}, false
	}
	cards := s.doc.Zones[ref.zone]
	if ref.idx >= len(cards) || cards[ref.idx].ID != cardID {
		// Index out of step with zones; treat as absent rather than guess.
		return nil, cardRef{}, false
	}
	return &cards[ref.idx], ref, true
}

// actorLocked resolves the display name used in log entries.
func (s *Store) actorLocked() string {
	seat := 0
	if s.doc.MySeat > 0 {
		seat = s.doc.MySeat
	}
	if seat < len(s.doc.Players) && s.doc.Players[seat].Name != "" {
		return s.doc.Players[seat].Name
	}
	if s.doc.PlayerName != "" {
		return s.doc.PlayerName
	}
	return "Player"
}

// Snapshot-independent cheap readers, used by consumers and tests.

// ZoneCards returns a deep copy of one zone's card sequence.
func (s *Store) ZoneCards(z Zone) []Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return CloneCards(s.doc.Zones[z])
}

// FindCard returns a copy of the card and its zone, if present anywhere.
func (s *Store) FindCard(cardID string) (Card, Zone, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ref, ok := s.findLocked(cardID)
	if !ok {
		return Card{}, "", false
	}
	return c.Copy(), ref.zone, true
}

// Life returns the local life total.
func (s *Store) Life() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Life
}

// Counters returns poison and commander-tax (raw, undoubled) counts.
func (s *Store) Counters() (poison, commanderTax int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Poison, s.doc.CommanderTax
}

// CommanderDamage returns a copy of the per-opponent damage map.
func (s *Store) CommanderDamage() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.doc.CommanderDamage))
	for k, v := range s.doc.CommanderDamage {
		out[k] = v
	}
	return out
}

// TurnState returns the turn order and current pointer.
func (s *Store) TurnState() ([]string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.doc.TurnOrder...), s.doc.CurrentTurn
}

// --- Zone mutations ---

// Draw moves up to n cards from the top of the library to the end of the
// hand. Drawing from an exhausted library is a valid partial draw, not
// an error.
func (s *Store) Draw(n int) {
	s.mu.Lock()
	if n <= 0 || len(s.doc.Zones[ZoneLibrary]) == 0 {
		s.mu.Unlock()
		return
	}
	lib := s.doc.Zones[ZoneLibrary]
	take := n
	if take > len(lib) {
		take = len(lib)
	}
	drawn := lib[:take]
	s.doc.Zones[ZoneLibrary] = lib[take:]
	s.doc.Zones[ZoneHand] = append(s.doc.Zones[ZoneHand], drawn...)
	s.finalizeLocked(fmt.Sprintf("%s drew %s", s.actorLocked(), describeCards(drawn)))
	s.mu.Unlock()
	s.notify(EventChange)
}

// describeCards names up to three cards, otherwise summarizes the count.
func describeCards(cards []Card) string {
	if len(cards) == 0 {
		return "no cards"
	}
	if len(cards) <= 3 {
		names := make([]string, len(cards))
		for i, c := range cards {
			names[i] = c.Name
		}
		return strings.Join(names, ", ")
	}
	return fmt.Sprintf("%d cards", len(cards))
}

// MoveCard relocates a card to the given zone, inserting at index (or
// appending when index is negative or out of range). Leaving the
// battlefield clears coordinates; landing anywhere but the battlefield
// resets tap state. A token landing off the battlefield is deleted
// instead of relocated. Unknown ids are a silent, unlogged no-op.
func (s *Store) MoveCard(cardID string, to Zone, index int) {
	s.mu.Lock()
	if !ValidZone(to) {
		s.mu.Unlock()
		return
	}
	c, ref, ok := s.findLocked(cardID)
	if !ok {
		s.mu.Unlock()
		return
	}
	card := c.Copy()
	actor := s.actorLocked()

	// Remove from origin.
	src := s.doc.Zones[ref.zone]
	s.doc.Zones[ref.zone] = append(src[:ref.idx], src[ref.idx+1:]...)

	var logText string
	if card.Token && to != ZoneBattlefield {
		// Tokens do not persist off the battlefield.
		logText = fmt.Sprintf("%s's token %s ceased to exist", actor, card.Name)
	} else {
		if ref.zone == ZoneBattlefield && to != ZoneBattlefield {
			card.X = nil
			card.Y = nil
		}
		if to != ZoneBattlefield {
			card.Tapped = false
		}
		dst := s.doc.Zones[to]
		if index < 0 || index > len(dst) {
			index = len(dst)
		}
		dst = append(dst, Card{})
		copy(dst[index+1:], dst[index:])
		dst[index] = card
		s.doc.Zones[to] = dst
		logText = fmt.Sprintf("%s moved %s to %s", actor, card.Name, to)
	}
	s.finalizeLocked(logText)
	s.mu.Unlock()
	s.notify(EventChange)
}

// SetBattlefieldPos updates the free-form coordinates of a battlefield
// card without moving it between zones. No-op off the battlefield.
func (s *Store) SetBattlefieldPos(cardID string, x, y float64) {
	s.mu.Lock()
	c, ref, ok := s.findLocked(cardID)
	if !ok || ref.zone != ZoneBattlefield {
		s.mu.Unlock()
		return
	}
	c.X = &x
	c.Y = &y
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// ToggleTap flips a card's tapped state wherever it sits.
func (s *Store) ToggleTap(cardID string) {
	s.mu.Lock()
	c, _, ok := s.findLocked(cardID)
	if !ok {
		s.mu.Unlock()
		return
	}
	c.Tapped = !c.Tapped
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// IncCounter adjusts a card's generic counter total by delta, clamped at
// zero. The field disappears from serialized documents when it hits zero.
func (s *Store) IncCounter(cardID string, delta int) {
	s.mu.Lock()
	c, _, ok := s.findLocked(cardID)
	if !ok {
		s.mu.Unlock()
		return
	}
	c.Counters += delta
	if c.Counters < 0 {
		c.Counters = 0
	}
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// ToggleLabel adds the label to the card if absent, removes it if present.
func (s *Store) ToggleLabel(cardID, label string) {
	s.mu.Lock()
	c, _, ok := s.findLocked(cardID)
	if !ok || label == "" {
		s.mu.Unlock()
		return
	}
	if c.HasLabel(label) {
		kept := c.Labels[:0]
		for _, l := range c.Labels {
			if l != label {
				kept = append(kept, l)
			}
		}
		c.Labels = kept
		if len(c.Labels) == 0 {
			c.Labels = nil
		}
	} else {
		c.Labels = append(c.Labels, label)
	}
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// SetCardCustomText annotates a card. Blank or whitespace-only text
// clears the annotation instead of storing an empty string.
func (s *Store) SetCardCustomText(cardID, text string) {
	s.mu.Lock()
	c, _, ok := s.findLocked(cardID)
	if !ok {
		s.mu.Unlock()
		return
	}
	c.CustomText = strings.TrimSpace(text)
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// MoveAnyToLibraryTop pulls a card from wherever it is to the top of the
// library, resetting tap state and coordinates.
func (s *Store) MoveAnyToLibraryTop(cardID string) {
	s.moveToLibrary(cardID, true)
}

// MoveAnyToLibraryBottom pulls a card from wherever it is to the bottom
// of the library, resetting tap state and coordinates.
func (s *Store) MoveAnyToLibraryBottom(cardID string) {
	s.moveToLibrary(cardID, false)
}

func (s *Store) moveToLibrary(cardID string, top bool) {
	s.mu.Lock()
	c, ref, ok := s.findLocked(cardID)
	if !ok {
		s.mu.Unlock()
		return
	}
	card := c.Copy()
	actor := s.actorLocked()
	src := s.doc.Zones[ref.zone]
	s.doc.Zones[ref.zone] = append(src[:ref.idx], src[ref.idx+1:]...)

	placement := "bottom"
	if card.Token {
		// Tokens cannot enter the library.
		s.finalizeLocked(fmt.Sprintf("%s's token %s ceased to exist", actor, card.Name))
		s.mu.Unlock()
		s.notify(EventChange)
		return
	}
	card.Tapped = false
	card.X = nil
	card.Y = nil
	if top {
		placement = "top"
		s.doc.Zones[ZoneLibrary] = append([]Card{card}, s.doc.Zones[ZoneLibrary]...)
	} else {
		s.doc.Zones[ZoneLibrary] = append(s.doc.Zones[ZoneLibrary], card)
	}
	s.finalizeLocked(fmt.Sprintf("%s put %s on %s of library", actor, card.Name, placement))
	s.mu.Unlock()
	s.notify(EventChange)
}

// MoveTopLibraryToBottom rotates the library by one card. No-op when the
// library is empty.
func (s *Store) MoveTopLibraryToBottom() {
	s.mu.Lock()
	lib := s.doc.Zones[ZoneLibrary]
	if len(lib) == 0 {
		s.mu.Unlock()
		return
	}
	top := lib[0]
	s.doc.Zones[ZoneLibrary] = append(lib[1:], top)
	s.finalizeLocked(fmt.Sprintf("%s moved the top library card to the bottom", s.actorLocked()))
	s.mu.Unlock()
	s.notify(EventChange)
}

// cloneOffset is the visual delta applied so a battlefield clone does
// not perfectly overlap its source.
const cloneOffset = 20.0

// CloneCard produces a copy of the card with a fresh id, inserted right
// after the source in its zone. Clones never chain: a clone of a clone
// points at the original source.
func (s *Store) CloneCard(cardID string) {
	s.mu.Lock()
	c, ref, ok := s.findLocked(cardID)
	if !ok {
		s.mu.Unlock()
		return
	}
	cloned := c.Copy()
	cloned.ID = uuid.NewString()
	if c.CloneOf != "" {
		cloned.CloneOf = c.CloneOf
	} else {
		cloned.CloneOf = c.ID
	}
	if ref.zone == ZoneBattlefield {
		if c.X != nil {
			x := *c.X + cloneOffset
			cloned.X = &x
		}
		if c.Y != nil {
			y := *c.Y + cloneOffset
			cloned.Y = &y
		}
	}
	cards := s.doc.Zones[ref.zone]
	cards = append(cards, Card{})
	copy(cards[ref.idx+2:], cards[ref.idx+1:])
	cards[ref.idx+1] = cloned
	s.doc.Zones[ref.zone] = cards
	s.finalizeLocked(fmt.Sprintf("%s cloned %s", s.actorLocked(), cloned.Name))
	s.mu.Unlock()
	s.notify(EventChange)
}

// AddToken synthesizes a token card directly into the target zone,
// bypassing the library.
func (s *Store) AddToken(name string, to Zone, image string) {
	s.mu.Lock()
	if !ValidZone(to) || name == "" {
		s.mu.Unlock()
		return
	}
	tok := NewCard(name)
	tok.Token = true
	tok.Image = image
	s.doc.Zones[to] = append(s.doc.Zones[to], tok)
	s.finalizeLocked(fmt.Sprintf("%s created token %s", s.actorLocked(), name))
	s.mu.Unlock()
	s.notify(EventChange)
}

// DrawSeven replaces the current hand with up to seven fresh cards from
// the library. The old hand is discarded outright, not returned.
func (s *Store) DrawSeven() {
	s.mu.Lock()
	lib := s.doc.Zones[ZoneLibrary]
	take := 7
	if take > len(lib) {
		take = len(lib)
	}
	s.doc.Zones[ZoneHand] = append([]Card(nil), lib[:take]...)
	s.doc.Zones[ZoneLibrary] = lib[take:]
	s.finalizeLocked(fmt.Sprintf("%s drew a new hand of %d", s.actorLocked(), take))
	s.mu.Unlock()
	s.notify(EventChange)
}

// mulliganLocked reconstitutes the library from the remaining library
// plus the current hand (battlefield coordinates cleared from hand
// cards), shuffles it, and draws a fresh hand of up to seven.
func (s *Store) mulliganLocked() {
	pool := append([]Card(nil), s.doc.Zones[ZoneLibrary]...)
	for _, c := range s.doc.Zones[ZoneHand] {
		cc := c.Copy()
		cc.X = nil
		cc.Y = nil
		cc.Tapped = false
		pool = append(pool, cc)
	}
	pool = Shuffle(s.rng, pool)
	take := 7
	if take > len(pool) {
		take = len(pool)
	}
	s.doc.Zones[ZoneHand] = append([]Card(nil), pool[:take]...)
	s.doc.Zones[ZoneLibrary] = pool[take:]
}

// MulliganSevenForSeven shuffles the hand back and draws seven again.
func (s *Store) MulliganSevenForSeven() {
	s.mu.Lock()
	s.mulliganLocked()
	s.finalizeLocked(fmt.Sprintf("%s mulliganed for seven", s.actorLocked()))
	s.mu.Unlock()
	s.notify(EventChange)
}

// MulliganLondon performs a London mulligan: shuffle the hand back, draw
// seven, then return bottomCount cards from the new hand to the bottom
// of the library.
func (s *Store) MulliganLondon(bottomCount int) {
	s.mu.Lock()
	s.mulliganLocked()
	if bottomCount < 0 {
		bottomCount = 0
	}
	hand := s.doc.Zones[ZoneHand]
	if bottomCount > len(hand) {
		bottomCount = len(hand)
	}
	if bottomCount > 0 {
		returned := hand[len(hand)-bottomCount:]
		s.doc.Zones[ZoneHand] = hand[:len(hand)-bottomCount]
		s.doc.Zones[ZoneLibrary] = append(s.doc.Zones[ZoneLibrary], returned...)
	}
	s.finalizeLocked(fmt.Sprintf("%s took a London mulligan, bottoming %d", s.actorLocked(), bottomCount))
	s.mu.Unlock()
	s.notify(EventChange)
}

// ShuffleLibrary shuffles the library in place.
func (s *Store) ShuffleLibrary() {
	s.mu.Lock()
	s.doc.Zones[ZoneLibrary] = Shuffle(s.rng, s.doc.Zones[ZoneLibrary])
	s.finalizeLocked(fmt.Sprintf("%s shuffled their library", s.actorLocked()))
	s.mu.Unlock()
	s.notify(EventChange)
}

// UntapAll clears tapped on every card in every zone.
func (s *Store) UntapAll() {
	s.mu.Lock()
	for _, zo := range zoneOrder {
		cards := s.doc.Zones[zo]
		for i := range cards {
			cards[i].Tapped = false
		}
	}
	s.finalizeLocked(fmt.Sprintf("%s untapped everything", s.actorLocked()))
	s.mu.Unlock()
	s.notify(EventChange)
}

// --- Counter mutations ---

// IncLife adjusts the life total by n. Life is unbounded in both
// directions.
func (s *Store) IncLife(n int) {
	s.mu.Lock()
	s.doc.Life += n
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// IncPoison adjusts the poison total by n, floored at zero.
func (s *Store) IncPoison(n int) {
	s.mu.Lock()
	s.doc.Poison += n
	if s.doc.Poison < 0 {
		s.doc.Poison = 0
	}
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// IncCommanderTax adjusts the commander-tax count by n, floored at zero.
// Display doubles this value; the store keeps the raw cast count.
func (s *Store) IncCommanderTax(n int) {
	s.mu.Lock()
	s.doc.CommanderTax += n
	if s.doc.CommanderTax < 0 {
		s.doc.CommanderTax = 0
	}
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// IncCommanderDamage adjusts the damage tracked against one opponent
// key, floored at zero.
func (s *Store) IncCommanderDamage(opponentKey string, n int) {
	s.mu.Lock()
	if opponentKey == "" {
		s.mu.Unlock()
		return
	}
	v := s.doc.CommanderDamage[opponentKey] + n
	if v < 0 {
		v = 0
	}
	s.doc.CommanderDamage[opponentKey] = v
	s.finalizeLocked("")
	s.mu.Unlock()
	s.notify(EventChange)
}

// --- Turn mutations ---

// SetTurnOrder replaces the turn order with the given names, trimmed,
// dropping empties. An empty resulting list is rejected as a no-op. The
// current-turn pointer is clamped into range.
func (s *Store) SetTurnOrder(order []string) {
	cleaned := make([]string, 0, len(order))
	for _, name := range order {
		if t := strings.TrimSpace(name); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return
	}
	s.mu.Lock()
	s.doc.TurnOrder = cleaned
	if s.doc.CurrentTurn >= len(cleaned) || s.doc.CurrentTurn < 0 {
		s.doc.CurrentTurn = 0
	}
	s.finalizeLocked("turn order set: " + strings.Join(cleaned, ", "))
	s.mu.Unlock()
	s.notify(EventChange)
}

// PassTurn advances the turn pointer, wrapping modulo the turn order.
func (s *Store) PassTurn() {
	s.mu.Lock()
	if len(s.doc.TurnOrder) == 0 {
		s.mu.Unlock()
		return
	}
	s.doc.CurrentTurn = (s.doc.CurrentTurn + 1) % len(s.doc.TurnOrder)
	next := s.doc.TurnOrder[s.doc.CurrentTurn]
	s.finalizeLocked(fmt.Sprintf("turn passed to %s", next))
	s.mu.Unlock()
	s.notify(EventChange)
	s.notify(EventTurnPassed)
}
