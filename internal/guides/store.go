package guides

import (
	"sort"
	"sync"

	"github.com/insightdelivered/statement-review/internal/layout"
	"github.com/insightdelivered/statement-review/internal/models"
)

// HistoryLimit bounds each page's undo and redo stacks.
const HistoryLimit = 100

// MaxSeededGuides caps the number of horizontal lines auto-seeding may emit.
const MaxSeededGuides = 40

// TouchState tracks how a page's horizontal guides have been established.
// Auto-seeding may only run while the page is Untouched or AutoSeeded; the
// first explicit reviewer edit moves it to ManuallyEdited for good.
type TouchState string

const (
	Untouched      TouchState = "untouched"
	AutoSeeded     TouchState = "auto_seeded"
	ManuallyEdited TouchState = "manually_edited"
)

type pageState struct {
	guides       State
	layout       layout.Layout
	layoutManual bool
	undo         []State
	redo         []State
	touch        TouchState
}

// Store owns all per-page guide state. Pages are created on first access and
// dropped explicitly; nothing is shared between pages. All operations are
// atomic: a caller never observes a partial update.
type Store struct {
	mu    sync.Mutex
	pages map[string]*pageState
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{pages: make(map[string]*pageState)}
}

// page returns the state for pageKey, creating it with the default column
// layout when the page has never been seen. Callers must hold s.mu.
func (s *Store) page(pageKey string) *pageState {
	st, ok := s.pages[pageKey]
	if !ok {
		lay := layout.Default()
		st = &pageState{
			guides: State{Vertical: layout.VerticalLines(lay)},
			layout: lay,
			touch:  Untouched,
		}
		s.pages[pageKey] = st
	}
	return st
}

// Drop discards all state for a page, e.g. when the reviewer navigates away.
func (s *Store) Drop(pageKey string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pages, pageKey)
}

// Guides returns a copy of the page's current guide state.
func (s *Store) Guides(pageKey string) State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page(pageKey).guides.Clone()
}

// Layout returns a copy of the page's current column layout.
func (s *Store) Layout(pageKey string) layout.Layout {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	out := make(layout.Layout, len(st.layout))
	copy(out, st.layout)
	return out
}

// Touch reports how the page's horizontal guides were established.
func (s *Store) Touch(pageKey string) TouchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.page(pageKey).touch
}

// snapshot pushes the pre-mutation guide state onto the undo stack and
// clears redo. Callers must hold s.mu.
func (st *pageState) snapshot() {
	st.undo = append(st.undo, st.guides.Clone())
	if len(st.undo) > HistoryLimit {
		st.undo = st.undo[len(st.undo)-HistoryLimit:]
	}
	st.redo = nil
}

// AddGuide inserts a guide line at the given normalized position. Only
// horizontal lines may be added directly; vertical lines are always derived
// from the column layout. Returns false (state unchanged) when the
// orientation is vertical, the position is outside (0,1), or a line already
// exists within Epsilon.
func (s *Store) AddGuide(pageKey string, o Orientation, pos float64) bool {
	if o != Horizontal {
		return false
	}
	if pos <= 0 || pos >= 1 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	if containsWithin(st.guides.Horizontal, pos, Epsilon) {
		return false
	}

	st.snapshot()
	st.guides.Horizontal = Dedupe(append(st.guides.Horizontal, pos))
	st.touch = ManuallyEdited
	return true
}

// ClearGuides resets the page's horizontal lines to empty and its vertical
// lines to the ones implied by the current column layout. It is a no-op
// (no history push, false) when the state is already in that configuration.
func (s *Store) ClearGuides(pageKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)

	target := State{Vertical: layout.VerticalLines(st.layout)}
	if st.guides.Equal(target) {
		return false
	}

	st.snapshot()
	st.guides = target
	st.touch = ManuallyEdited
	return true
}

// Undo restores the most recent pre-mutation snapshot. Returns false when
// there is nothing to undo.
func (s *Store) Undo(pageKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	if len(st.undo) == 0 {
		return false
	}
	st.redo = append(st.redo, st.guides.Clone())
	if len(st.redo) > HistoryLimit {
		st.redo = st.redo[len(st.redo)-HistoryLimit:]
	}
	st.guides = st.undo[len(st.undo)-1]
	st.undo = st.undo[:len(st.undo)-1]
	return true
}

// Redo restores the state most recently undone. Returns false when there is
// nothing to redo.
func (s *Store) Redo(pageKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	if len(st.redo) == 0 {
		return false
	}
	st.undo = append(st.undo, st.guides.Clone())
	if len(st.undo) > HistoryLimit {
		st.undo = st.undo[len(st.undo)-HistoryLimit:]
	}
	st.guides = st.redo[len(st.redo)-1]
	st.redo = st.redo[:len(st.redo)-1]
	return true
}

// AutoSeedHorizontal infers horizontal guides for a page the reviewer has
// never edited: the midpoint between the bottom of each row box and the top
// of the next, sorted by vertical center. It refuses to run once the page is
// manually edited, skips when fewer than two boxes exist, and caps output at
// MaxSeededGuides by uniform subsampling. Seeding itself does not count as a
// reviewer touch, so it can re-run until a manual edit occurs.
func (s *Store) AutoSeedHorizontal(pageKey string, rowBoxes []models.NormalizedBox) bool {
	if len(rowBoxes) < 2 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	if st.touch == ManuallyEdited {
		return false
	}

	boxes := make([]models.NormalizedBox, len(rowBoxes))
	copy(boxes, rowBoxes)
	sort.SliceStable(boxes, func(i, j int) bool {
		return boxes[i].CenterY() < boxes[j].CenterY()
	})

	inferred := make([]float64, 0, len(boxes)-1)
	for i := 0; i < len(boxes)-1; i++ {
		inferred = append(inferred, (boxes[i].Y2+boxes[i+1].Y1)/2)
	}
	inferred = Dedupe(inferred)
	if len(inferred) > MaxSeededGuides {
		inferred = subsample(inferred, MaxSeededGuides)
	}
	if len(inferred) == 0 {
		return false
	}

	st.snapshot()
	st.guides.Horizontal = inferred
	st.touch = AutoSeeded
	return true
}

// subsample picks n evenly spaced elements from sorted positions.
func subsample(positions []float64, n int) []float64 {
	out := make([]float64, 0, n)
	step := float64(len(positions)-1) / float64(n-1)
	for i := 0; i < n; i++ {
		out = append(out, positions[int(float64(i)*step+0.5)])
	}
	return Dedupe(out)
}

// SetLayout replaces the page's column layout (normalized first) and
// re-derives the vertical guide lines.
func (s *Store) SetLayout(pageKey string, lay layout.Layout) layout.Layout {
	normalized := layout.Normalize(lay)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	st.snapshot()
	st.layout = normalized
	st.layoutManual = true
	st.guides.Vertical = layout.VerticalLines(normalized)
	return normalized
}

// ManualLayout returns the page's column layout and whether the reviewer has
// explicitly defined it. Automatic header detection only applies when the
// layout is not manual.
func (s *Store) ManualLayout(pageKey string) (layout.Layout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	out := make(layout.Layout, len(st.layout))
	copy(out, st.layout)
	return out, st.layoutManual
}

// ReorderColumns moves sourceKey to targetKey's position, keeping widths, and
// re-derives vertical guides. Returns false when nothing moved.
func (s *Store) ReorderColumns(pageKey string, sourceKey, targetKey models.ColumnRole) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	moved, ok := layout.Reorder(st.layout, sourceKey, targetKey)
	if !ok {
		return false
	}
	st.snapshot()
	st.layout = moved
	st.layoutManual = true
	st.guides.Vertical = layout.VerticalLines(moved)
	return true
}

// ResizeColumnPair shifts width between columns index and index+1 by
// deltaRatio, rejecting the resize when either side would fall below the
// minimum width.
func (s *Store) ResizeColumnPair(pageKey string, index int, deltaRatio float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	resized, ok := layout.ResizePair(st.layout, index, deltaRatio)
	if !ok {
		return false
	}
	st.snapshot()
	st.layout = resized
	st.layoutManual = true
	st.guides.Vertical = layout.VerticalLines(resized)
	return true
}

// SyncLayoutFromGuides recomputes column widths from the current vertical
// guides when the counts line up (inverse of VerticalLines). When they
// disagree the layout stays authoritative and this is a no-op.
func (s *Store) SyncLayoutFromGuides(pageKey string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	synced, ok := layout.FromVerticalLines(st.layout, st.guides.Vertical)
	if !ok {
		return false
	}
	st.layout = synced
	st.layoutManual = true
	return true
}

// ToPayload serializes the page's persistable state in the wire shape the
// host application stores: column keys + widths and horizontal positions.
func (s *Store) ToPayload(pageKey string) models.GuidePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)

	cols := make([]models.ColumnPayload, len(st.layout))
	for i, col := range st.layout {
		cols[i] = models.ColumnPayload{Key: col.Key, Width: col.Width}
	}
	return models.GuidePayload{
		ColumnLayout: cols,
		Horizontal:   append([]float64(nil), st.guides.Horizontal...),
	}
}

// FromPayload restores a previously saved page state. History is reset; the
// page counts as manually edited when it carries horizontal lines, so
// auto-seeding will not overwrite restored reviewer work.
func (s *Store) FromPayload(pageKey string, payload models.GuidePayload) {
	lay := make(layout.Layout, 0, len(payload.ColumnLayout))
	for _, col := range payload.ColumnLayout {
		lay = append(lay, layout.Column{Key: col.Key, Width: col.Width})
	}
	normalized := layout.Normalize(lay)

	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.page(pageKey)
	st.layout = normalized
	st.layoutManual = len(payload.ColumnLayout) > 0
	st.guides = State{
		Vertical:   layout.VerticalLines(normalized),
		Horizontal: Dedupe(payload.Horizontal),
	}
	st.undo = nil
	st.redo = nil
	if len(st.guides.Horizontal) > 0 {
		st.touch = ManuallyEdited
	} else {
		st.touch = Untouched
	}
}
