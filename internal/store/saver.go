package store

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultSaveDelay is how long the saver waits after the last save request
// before persisting, so bursts of guide edits collapse into one write.
const DefaultSaveDelay = 700 * time.Millisecond

// PersistFunc writes the durable state for one session.
type PersistFunc func(sessionID string) error

type flight struct {
	done chan struct{}
	err  error
}

// Saver debounces persistence per session. Repeated Save calls within the
// delay window share one in-flight write and one result.
type Saver struct {
	delay   time.Duration
	persist PersistFunc
	log     zerolog.Logger

	mu      sync.Mutex
	flights map[string]*flight
	lastErr map[string]error
}

func NewSaver(delay time.Duration, persist PersistFunc, log zerolog.Logger) *Saver {
	if delay <= 0 {
		delay = DefaultSaveDelay
	}
	return &Saver{
		delay:   delay,
		persist: persist,
		log:     log,
		flights: make(map[string]*flight),
		lastErr: make(map[string]error),
	}
}

// Save schedules a persist for the session and returns a channel that closes
// when the write completes. If a persist is already pending for the session
// the call attaches to it instead of scheduling another.
func (s *Saver) Save(sessionID string) <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.flights[sessionID]; ok {
		return f.done
	}
	f := &flight{done: make(chan struct{})}
	s.flights[sessionID] = f
	time.AfterFunc(s.delay, func() { s.run(sessionID, f) })
	return f.done
}

// Err returns the outcome of the session's last completed persist.
func (s *Saver) Err(sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr[sessionID]
}

func (s *Saver) run(sessionID string, f *flight) {
	f.err = s.persist(sessionID)
	if f.err != nil {
		s.log.Error().Err(f.err).Str("session", sessionID).Msg("persist failed")
	} else {
		s.log.Debug().Str("session", sessionID).Msg("state persisted")
	}

	s.mu.Lock()
	s.lastErr[sessionID] = f.err
	if s.flights[sessionID] == f {
		delete(s.flights, sessionID)
	}
	s.mu.Unlock()
	close(f.done)
}
