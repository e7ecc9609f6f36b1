package tabletop

import (
	"sync"
	"time"
)

// Default coalescing windows. A burst of mutations produces one
// broadcast shortly after the burst settles and one durable save on a
// much longer cadence, bounding write amplification under rapid UI
// interaction such as dragging a card.
const (
	DefaultBroadcastWindow = 150 * time.Millisecond
	DefaultSaveWindow      = 5 * time.Second
)

// Scheduler owns the trailing-debounce timers for the broadcast and
// durable-save side effects. The store itself stays synchronous and
// I/O-free; consumers subscribe it to the store and point the sinks at
// the transport and snapshot store. Sinks run on timer goroutines and
// are responsible for their own failure handling.
type Scheduler struct {
	mu        sync.Mutex
	broadcast func()
	save      func()

	broadcastWindow time.Duration
	saveWindow      time.Duration

	broadcastTimer *time.Timer
	saveTimer      *time.Timer
	stopped        bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithBroadcastWindow overrides the broadcast coalescing window.
func WithBroadcastWindow(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.broadcastWindow = d }
}

// WithSaveWindow overrides the durable-save coalescing window.
func WithSaveWindow(d time.Duration) SchedulerOption {
	return func(s *Scheduler) { s.saveWindow = d }
}

// NewScheduler builds a scheduler around the two sink functions. Either
// sink may be nil, disabling that side effect.
func NewScheduler(broadcast, save func(), opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		broadcast:       broadcast,
		save:            save,
		broadcastWindow: DefaultBroadcastWindow,
		saveWindow:      DefaultSaveWindow,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleBroadcast (re)arms the trailing broadcast timer. Repeated
// calls within the window coalesce into a single send after activity
// settles.
func (s *Scheduler) ScheduleBroadcast() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.broadcast == nil {
		return
	}
	if s.broadcastTimer != nil {
		s.broadcastTimer.Stop()
	}
	s.broadcastTimer = time.AfterFunc(s.broadcastWindow, s.runBroadcast)
}

// ScheduleSave (re)arms the trailing save timer.
func (s *Scheduler) ScheduleSave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped || s.save == nil {
		return
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
	}
	s.saveTimer = time.AfterFunc(s.saveWindow, s.runSave)
}

func (s *Scheduler) runBroadcast() {
	s.mu.Lock()
	s.broadcastTimer = nil
	stopped := s.stopped
	s.mu.Unlock()
	if !stopped {
		s.broadcast()
	}
}

func (s *Scheduler) runSave() {
	s.mu.Lock()
	s.saveTimer = nil
	stopped := s.stopped
	s.mu.Unlock()
	if !stopped {
		s.save()
	}
}

// Stop cancels any pending timers. Used on session teardown so nothing
// is sent or saved after the session is gone.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	if s.broadcastTimer != nil {
		s.broadcastTimer.Stop()
		s.broadcastTimer = nil
	}
	if s.saveTimer != nil {
		s.saveTimer.Stop()
		s.saveTimer = nil
	}
}
