// Package guides owns the per-page guide-line state a reviewer uses to
// describe the tabular structure of a statement page: normalized vertical and
// horizontal boundary positions plus bounded undo/redo history.
package guides

import (
	"math"
	"sort"
)

// Epsilon is the dedup tolerance for guide positions: two lines closer than
// this are the same line.
const Epsilon = 0.006

// Orientation selects which guide axis an operation targets.
type Orientation string

const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// State holds the guide lines for one page. Both slices are always sorted
// ascending and deduplicated within Epsilon; all values lie in (0,1).
type State struct {
	Vertical   []float64 `json:"vertical"`
	Horizontal []float64 `json:"horizontal"`
}

// Clone returns a deep copy of the state.
func (s State) Clone() State {
	return State{
		Vertical:   append([]float64(nil), s.Vertical...),
		Horizontal: append([]float64(nil), s.Horizontal...),
	}
}

// Equal reports whether two states hold the same lines within Epsilon.
func (s State) Equal(other State) bool {
	return linesEqual(s.Vertical, other.Vertical) &&
		linesEqual(s.Horizontal, other.Horizontal)
}

func linesEqual(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i]-b[i]) >= Epsilon {
			return false
		}
	}
	return true
}

// Dedupe sorts positions ascending and collapses values closer than Epsilon,
// keeping the first of each cluster. Values outside (0,1) are dropped.
// Dedupe(Dedupe(s)) == Dedupe(s).
func Dedupe(positions []float64) []float64 {
	sorted := make([]float64, 0, len(positions))
	for _, p := range positions {
		if p > 0 && p < 1 {
			sorted = append(sorted, p)
		}
	}
	sort.Float64s(sorted)

	out := sorted[:0]
	for _, p := range sorted {
		if len(out) > 0 && p-out[len(out)-1] < Epsilon {
			continue
		}
		out = append(out, p)
	}
	return out
}

func containsWithin(positions []float64, pos, tol float64) bool {
	for _, p := range positions {
		if math.Abs(p-pos) < tol {
			return true
		}
	}
	return false
}
