// Package tabletop holds the shared game-state document for a multiplayer
// card table and the operations that keep it consistent: zones, per-seat
// players, remote-seat shadows, and the snapshot/hydrate cycle used for
// realtime convergence between clients.
package tabletop

import (
	"math/rand"

	"github.com/google/uuid"
)

// Zone identifies one of the fixed card zones on the table.
type Zone string

const (
	ZoneLibrary     Zone = "library"
	ZoneHand        Zone = "hand"
	ZoneBattlefield Zone = "battlefield"
	ZoneLands       Zone = "lands"
	ZoneGraveyard   Zone = "graveyard"
	ZoneExile       Zone = "exile"
	ZoneCommand     Zone = "command"
)

// zoneOrder is the canonical iteration order. Normalization resolves
// duplicate card ids by keeping the first occurrence in this order.
var zoneOrder = []Zone{
	ZoneLibrary,
	ZoneHand,
	ZoneBattlefield,
	ZoneLands,
	ZoneGraveyard,
	ZoneExile,
	ZoneCommand,
}

// ValidZone reports whether z names one of the fixed zones.
func ValidZone(z Zone) bool {
	for _, zo := range zoneOrder {
		if z == zo {
			return true
		}
	}
	return false
}

// Card is a single physical object on the table. ID is stable for the
// card's lifetime; only CloneCard mints a new one. X/Y are pointers so a
// card off the battlefield carries no position at all rather than (0,0).
type Card struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Tapped     bool     `json:"tapped,omitempty"`
	Token      bool     `json:"token,omitempty"`
	Image      string   `json:"image,omitempty"`
	X          *float64 `json:"x,omitempty"`
	Y          *float64 `json:"y,omitempty"`
	Counters   int      `json:"counters,omitempty"`
	CustomText string   `json:"customText,omitempty"`
	CloneOf    string   `json:"cloneOf,omitempty"`
	Labels     []string `json:"labels,omitempty"`
}

// NewCard mints a card with a fresh id.
func NewCard(name string) Card {
	return Card{ID: uuid.NewString(), Name: name}
}

// Copy returns a deep copy of the card.
func (c Card) Copy() Card {
	out := c
	if c.X != nil {
		x := *c.X
		out.X = &x
	}
	if c.Y != nil {
		y := *c.Y
		out.Y = &y
	}
	if c.Labels != nil {
		out.Labels = append([]string(nil), c.Labels...)
	}
	return out
}

// HasLabel reports whether the card carries the given label.
func (c Card) HasLabel(label string) bool {
	for _, l := range c.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// Zones maps each zone to its ordered card sequence. Order matters for
// the library (top is index 0); elsewhere it is visual order only.
type Zones map[Zone][]Card

// NewZones returns an empty zones collection with every zone present.
func NewZones() Zones {
	z := make(Zones, len(zoneOrder))
	for _, zo := range zoneOrder {
		z[zo] = []Card{}
	}
	return z
}

// CloneZones deep-copies every card in every zone.
func CloneZones(z Zones) Zones {
	out := make(Zones, len(zoneOrder))
	for _, zo := range zoneOrder {
		cards := z[zo]
		copied := make([]Card, len(cards))
		for i, c := range cards {
			copied[i] = c.Copy()
		}
		out[zo] = copied
	}
	return out
}

// CloneCards deep-copies a card sequence.
func CloneCards(cards []Card) []Card {
	out := make([]Card, len(cards))
	for i, c := range cards {
		out[i] = c.Copy()
	}
	return out
}

// NormalizeZones returns a copy of z where every card id appears at most
// once across all zones. Duplicates are resolved by keeping the first
// occurrence in canonical zone order. Cards in the graveyard that carry a
// cloneOf reference are dropped: clones do not persist there. The input
// is never mutated.
func NormalizeZones(z Zones) Zones {
	seen := make(map[string]bool)
	out := make(Zones, len(zoneOrder))
	for _, zo := range zoneOrder {
		cards := z[zo]
		kept := make([]Card, 0, len(cards))
		for _, c := range cards {
			if c.ID == "" || seen[c.ID] {
				continue
			}
			if zo == ZoneGraveyard && c.CloneOf != "" {
				continue
			}
			seen[c.ID] = true
			kept = append(kept, c.Copy())
		}
		out[zo] = kept
	}
	return out
}

// Shuffle returns a uniformly random permutation of cards (Fisher-Yates).
// The input slice is not modified.
func Shuffle(rng *rand.Rand, cards []Card) []Card {
	out := make([]Card, len(cards))
	copy(out, cards)
	for i := len(out) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// CountCards returns the total number of cards across all zones.
func CountCards(z Zones) int {
	n := 0
	for _, zo := range zoneOrder {
		n += len(z[zo])
	}
	return n
}
