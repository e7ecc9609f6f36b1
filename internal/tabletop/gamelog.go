package tabletop

// logCapacity bounds the activity log. Once exceeded, the oldest entry
// is evicted on every append.
const logCapacity = 100

// LogEntry is one timestamped human-readable activity record.
type LogEntry struct {
	At   int64  `json:"at"` // unix millis
	Text string `json:"text"`
}

// appendLog appends an entry, evicting the oldest once capacity is hit.
// Assumes the store lock is held.
func (s *Store) appendLog(text string) {
	entry := LogEntry{At: s.now().UnixMilli(), Text: text}
	s.doc.Log = append(s.doc.Log, entry)
	if len(s.doc.Log) > logCapacity {
		s.doc.Log = s.doc.Log[len(s.doc.Log)-logCapacity:]
	}
}

// AppendLog adds a free-form entry to the activity log.
func (s *Store) AppendLog(text string) {
	s.mu.Lock()
	s.appendLog(text)
	s.mu.Unlock()
	s.notify(EventChange)
}

// ClearLog empties the activity log.
func (s *Store) ClearLog() {
	s.mu.Lock()
	s.doc.Log = nil
	s.mu.Unlock()
	s.notify(EventChange)
}

// Log returns a copy of the activity log, newest last.
func (s *Store) Log() []LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]LogEntry(nil), s.doc.Log...)
}
