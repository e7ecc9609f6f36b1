package tabletop

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedCard(id, name string) Card {
	return Card{ID: id, Name: name}
}

func TestNormalizeZonesDeduplicates(t *testing.T) {
	z := NewZones()
	z[ZoneHand] = []Card{namedCard("a", "Island"), namedCard("b", "Swamp")}
	z[ZoneBattlefield] = []Card{namedCard("a", "Island"), namedCard("c", "Forest")}
	z[ZoneGraveyard] = []Card{namedCard("b", "Swamp")}

	out := NormalizeZones(z)

	assert.Len(t, out[ZoneHand], 2, "hand wins: earliest canonical zone keeps the card")
	assert.Len(t, out[ZoneBattlefield], 1)
	assert.Equal(t, "c", out[ZoneBattlefield][0].ID)
	assert.Empty(t, out[ZoneGraveyard])
}

func TestNormalizeZonesStripsGraveyardClones(t *testing.T) {
	z := NewZones()
	clone := namedCard("x", "Clone")
	clone.CloneOf = "orig"
	z[ZoneGraveyard] = []Card{clone, namedCard("y", "Bear")}

	out := NormalizeZones(z)

	require.Len(t, out[ZoneGraveyard], 1)
	assert.Equal(t, "y", out[ZoneGraveyard][0].ID)
}

func TestNormalizeZonesIdempotent(t *testing.T) {
	z := NewZones()
	z[ZoneLibrary] = []Card{namedCard("a", "A"), namedCard("b", "B")}
	z[ZoneHand] = []Card{namedCard("a", "A"), namedCard("c", "C")}
	cl := namedCard("d", "D")
	cl.CloneOf = "a"
	z[ZoneGraveyard] = []Card{cl}

	once := NormalizeZones(z)
	twice := NormalizeZones(once)

	assert.Equal(t, once, twice)
}

func TestNormalizeZonesDoesNotMutateInput(t *testing.T) {
	z := NewZones()
	z[ZoneHand] = []Card{namedCard("a", "A")}
	z[ZoneBattlefield] = []Card{namedCard("a", "A")}

	_ = NormalizeZones(z)

	assert.Len(t, z[ZoneBattlefield], 1, "input zones must be untouched")
}

func TestShufflePreservesCards(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	cards := make([]Card, 0, 20)
	for i := 0; i < 20; i++ {
		cards = append(cards, NewCard("Card"))
	}
	orig := append([]Card(nil), cards...)

	shuffled := Shuffle(rng, cards)

	require.Len(t, shuffled, len(cards))
	assert.Equal(t, orig, cards, "input slice must not be modified")
	seen := make(map[string]bool)
	for _, c := range shuffled {
		seen[c.ID] = true
	}
	assert.Len(t, seen, len(cards))
}

func TestCardCopyIsDeep(t *testing.T) {
	x, y := 10.0, 20.0
	c := Card{ID: "a", Name: "A", X: &x, Y: &y, Labels: []string{"summoning-sick"}}

	cp := c.Copy()
	*cp.X = 99
	cp.Labels[0] = "changed"

	assert.Equal(t, 10.0, *c.X)
	assert.Equal(t, "summoning-sick", c.Labels[0])
}

func TestCloneZonesIsDeep(t *testing.T) {
	z := NewZones()
	z[ZoneHand] = []Card{namedCard("a", "A")}

	cl := CloneZones(z)
	cl[ZoneHand][0].Name = "Mutated"

	assert.Equal(t, "A", z[ZoneHand][0].Name)
}
