package httpapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hexproof-games/tabletop/internal/tabletop"
)

func TestParseDecklistCountsAndNames(t *testing.T) {
	entries := ParseDecklist("2 Island\n1x Niv-Mizzet, Parun\nSol Ring\n")
	require.Len(t, entries, 3)
	assert.Equal(t, tabletop.DeckEntry{Name: "Island", Count: 2}, entries[0])
	assert.Equal(t, tabletop.DeckEntry{Name: "Niv-Mizzet, Parun", Count: 1}, entries[1])
	assert.Equal(t, tabletop.DeckEntry{Name: "Sol Ring", Count: 1}, entries[2])
}

func TestParseDecklistSkipsNoise(t *testing.T) {
	text := `// my deck
# lands
4 Mountain

SB: 2 Pyroblast
sb: 1 Red Elemental Blast
`
	entries := ParseDecklist(text)
	require.Len(t, entries, 1)
	assert.Equal(t, "Mountain", entries[0].Name)
	assert.Equal(t, 4, entries[0].Count)
}

func TestParseDecklistAccumulatesRepeats(t *testing.T) {
	entries := ParseDecklist("2 Island\n3 island\nIsland")
	require.Len(t, entries, 1)
	assert.Equal(t, 6, entries[0].Count)
}

func TestParseDecklistNumericNames(t *testing.T) {
	// A leading number only counts when followed by a name.
	entries := ParseDecklist("7")
	require.Len(t, entries, 1)
	assert.Equal(t, tabletop.DeckEntry{Name: "7", Count: 1}, entries[0])
}

func TestParseDecklistEmpty(t *testing.T) {
	assert.Empty(t, ParseDecklist(""))
	assert.Empty(t, ParseDecklist("\n\n// nothing\n"))
}
