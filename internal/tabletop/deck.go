package tabletop

import (
	"fmt"
	"strings"
)

// DeckEntry is one named line of a decklist.
type DeckEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
	Image string `json:"image,omitempty"`
}

// LoadDeckFromNames resets the session to a fresh deck: each
// non-commander entry is exploded into individual library copies, the
// named commanders go to the command zone, and every other zone is
// cleared. Per-entry counts are clamped to a minimum of one, so an
// entry with count zero still yields one copy; that matches the
// long-standing behavior clients depend on and is pinned by tests.
// Commanders match library entries case-insensitively to inherit an
// image.
func (s *Store) LoadDeckFromNames(entries []DeckEntry, commanders []string) {
	s.mu.Lock()

	zones := NewZones()
	totalCards := 0
	imagesByName := make(map[string]string)
	for _, entry := range entries {
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			continue
		}
		if entry.Image != "" {
			imagesByName[strings.ToLower(name)] = entry.Image
		}
		count := entry.Count
		if count < 1 {
			count = 1
		}
		for i := 0; i < count; i++ {
			c := NewCard(name)
			c.Image = entry.Image
			zones[ZoneLibrary] = append(zones[ZoneLibrary], c)
			totalCards++
		}
	}

	for _, name := range commanders {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		c := NewCard(name)
		c.Image = imagesByName[strings.ToLower(name)]
		zones[ZoneCommand] = append(zones[ZoneCommand], c)
	}

	s.doc.Zones = zones
	s.finalizeLocked(fmt.Sprintf("%s loaded a deck of %d cards", s.actorLocked(), totalCards))
	s.mu.Unlock()
	s.notify(EventChange)
}

// StarterDeck is the canned deck a fresh session starts with, so a new
// table is never empty.
func StarterDeck() ([]DeckEntry, []string) {
	entries := []DeckEntry{
		{Name: "Island", Count: 12},
		{Name: "Mountain", Count: 12},
		{Name: "Goblin Electromancer", Count: 4},
		{Name: "Counterspell", Count: 4},
		{Name: "Lightning Bolt", Count: 4},
		{Name: "Brainstorm", Count: 4},
	}
	commanders := []string{"Niv-Mizzet, Parun"}
	return entries, commanders
}
