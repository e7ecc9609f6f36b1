package httpapi

import (
	"strconv"
	"strings"

	"github.com/hexproof-games/tabletop/internal/tabletop"
)

// ParseDecklist turns plain decklist text into counted entries. Lines
// look like "2 Island" or "1x Niv-Mizzet, Parun"; a bare name counts as
// one copy. Blank lines, comments and sideboard lines ("SB:") are
// skipped. Repeated names accumulate.
func ParseDecklist(text string) []tabletop.DeckEntry {
	var entries []tabletop.DeckEntry
	index := make(map[string]int)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(strings.ToUpper(line), "SB:") {
			continue
		}

		count := 1
		name := line
		if fields := strings.SplitN(line, " ", 2); len(fields) == 2 {
			lead := strings.TrimSuffix(strings.ToLower(fields[0]), "x")
			if n, err := strconv.Atoi(lead); err == nil && n > 0 {
				count = n
				name = strings.TrimSpace(fields[1])
			}
		}
		if name == "" {
			continue
		}

		key := strings.ToLower(name)
		if i, ok := index[key]; ok {
			entries[i].Count += count
			continue
		}
		index[key] = len(entries)
		entries = append(entries, tabletop.DeckEntry{Name: name, Count: count})
	}
	return entries
}
