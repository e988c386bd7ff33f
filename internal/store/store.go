package store

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-review/internal/guides"
	"github.com/insightdelivered/statement-review/internal/models"
)

// PageData holds everything the engine knows about one statement page: the
// positioned OCR fragments and the rows last reconstructed from them.
type PageData struct {
	Fragments []models.OcrFragment
	Rows      []models.TransactionRow
	Bounds    []models.NormalizedBox
}

// Session is one review session over a single uploaded statement. All page
// data and guide state hang off the session; sessions are independent.
type Session struct {
	ID        string
	CreatedAt time.Time
	Guides    *guides.Store

	mu    sync.Mutex
	pages map[string]*PageData
	busy  map[string]bool
}

func newSession() *Session {
	return &Session{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Guides:    guides.NewStore(),
		pages:     make(map[string]*PageData),
		busy:      make(map[string]bool),
	}
}

// SetFragments replaces the OCR fragments for a page.
func (s *Session) SetFragments(pageKey string, fragments []models.OcrFragment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := s.page(pageKey)
	pd.Fragments = append([]models.OcrFragment(nil), fragments...)
}

// Fragments returns a copy of the page's OCR fragments.
func (s *Session) Fragments(pageKey string) []models.OcrFragment {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := s.page(pageKey)
	return append([]models.OcrFragment(nil), pd.Fragments...)
}

// SetRows replaces the reconstructed rows for a page.
func (s *Session) SetRows(pageKey string, rows []models.TransactionRow, bounds []models.NormalizedBox) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := s.page(pageKey)
	pd.Rows = append([]models.TransactionRow(nil), rows...)
	pd.Bounds = append([]models.NormalizedBox(nil), bounds...)
}

// Bounds returns the per-row bounding boxes from the last reconstruction.
func (s *Session) Bounds(pageKey string) []models.NormalizedBox {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := s.page(pageKey)
	return append([]models.NormalizedBox(nil), pd.Bounds...)
}

// Rows returns a copy of the page's reconstructed rows.
func (s *Session) Rows(pageKey string) []models.TransactionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	pd := s.page(pageKey)
	return append([]models.TransactionRow(nil), pd.Rows...)
}

// AllRows returns every reconstructed row across the session's pages in page
// order, for aggregation and export.
func (s *Session) AllRows() []models.TransactionRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.pages))
	for k := range s.pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []models.TransactionRow
	for _, k := range keys {
		out = append(out, s.pages[k].Rows...)
	}
	return out
}

// Pages lists the page keys the session has data for, sorted.
func (s *Session) Pages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.pages))
	for k := range s.pages {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TryBeginOCR marks a page as having an OCR pass in flight. It returns false
// when a pass is already running, so concurrent re-OCR requests for the same
// page are rejected rather than queued.
func (s *Session) TryBeginOCR(pageKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[pageKey] {
		return false
	}
	s.busy[pageKey] = true
	return true
}

// EndOCR clears the page's in-flight flag.
func (s *Session) EndOCR(pageKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, pageKey)
}

// OCRBusy reports whether an OCR pass is running for the page.
func (s *Session) OCRBusy(pageKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy[pageKey]
}

func (s *Session) page(pageKey string) *PageData {
	pd, ok := s.pages[pageKey]
	if !ok {
		pd = &PageData{}
		s.pages[pageKey] = pd
	}
	return pd
}

// Manager owns the live sessions.
type Manager struct {
	mu       sync.Mutex
	sessions map[string]*Session
	log      zerolog.Logger
}

func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		log:      log,
	}
}

// Create starts a new empty session and returns it.
func (m *Manager) Create() *Session {
	s := newSession()
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	m.log.Info().Str("session", s.ID).Msg("session created")
	return s
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Drop removes a session and all of its state.
func (m *Manager) Drop(id string) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		m.log.Info().Str("session", id).Msg("session dropped")
	}
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
