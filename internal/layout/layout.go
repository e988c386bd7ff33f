// Package layout models the ordered, proportionally sized column
// definitions a reviewer uses to describe a statement table. Column order is
// significant: it defines the left-to-right reading order and therefore the
// vertical guide positions derived from it.
package layout

import (
	"github.com/insightdelivered/statement-review/internal/models"
)

// MinWidth is the smallest fraction of the page any column may occupy.
const MinWidth = 0.08

// DefaultWidths are used when a role is missing from reviewer input.
var DefaultWidths = map[models.ColumnRole]float64{
	models.RoleDate:        0.16,
	models.RoleDescription: 0.34,
	models.RoleDebit:       0.16,
	models.RoleCredit:      0.16,
	models.RoleBalance:     0.18,
}

var defaultLabels = map[models.ColumnRole]string{
	models.RoleDate:        "Date",
	models.RoleDescription: "Description",
	models.RoleDebit:       "Debit",
	models.RoleCredit:      "Credit",
	models.RoleBalance:     "Balance",
}

// Column is one reviewer-visible column definition.
type Column struct {
	Key   models.ColumnRole `json:"key"`
	Label string            `json:"label"`
	Width float64           `json:"width"`
}

// Layout is an ordered list of columns whose widths sum to 1.0.
type Layout []Column

// Default returns the five fixed columns in default order with default widths.
func Default() Layout {
	return Normalize(nil)
}

// Normalize fills in any missing fixed roles with defaults, drops unknown or
// duplicate roles, clamps every width to MinWidth, then rescales so the
// widths sum to exactly 1.0. The input is never mutated.
func Normalize(in Layout) Layout {
	out := make(Layout, 0, len(models.Roles))
	seen := make(map[models.ColumnRole]bool, len(models.Roles))

	for _, col := range in {
		if _, known := DefaultWidths[col.Key]; !known || seen[col.Key] {
			continue
		}
		seen[col.Key] = true
		if col.Label == "" {
			col.Label = defaultLabels[col.Key]
		}
		if !(col.Width > 0) {
			col.Width = DefaultWidths[col.Key]
		}
		out = append(out, col)
	}

	for _, role := range models.Roles {
		if seen[role] {
			continue
		}
		out = append(out, Column{
			Key:   role,
			Label: defaultLabels[role],
			Width: DefaultWidths[role],
		})
	}

	sum := 0.0
	for i := range out {
		if out[i].Width < MinWidth {
			out[i].Width = MinWidth
		}
		sum += out[i].Width
	}
	for i := range out {
		out[i].Width /= sum
	}
	return out
}

// VerticalLines returns the N-1 cumulative boundary positions between the N
// ordered columns. This is the sole source of vertical guide lines.
func VerticalLines(l Layout) []float64 {
	if len(l) < 2 {
		return nil
	}
	lines := make([]float64, 0, len(l)-1)
	pos := 0.0
	for _, col := range l[:len(l)-1] {
		pos += col.Width
		lines = append(lines, pos)
	}
	return lines
}

// Reorder moves the column identified by sourceKey to the position of
// targetKey, preserving all widths. It is a no-op when either key is absent
// or the keys are equal; the returned bool reports whether anything moved.
func Reorder(l Layout, sourceKey, targetKey models.ColumnRole) (Layout, bool) {
	src, dst := -1, -1
	for i, col := range l {
		switch col.Key {
		case sourceKey:
			src = i
		case targetKey:
			dst = i
		}
	}
	if src < 0 || dst < 0 || src == dst {
		return l, false
	}

	out := make(Layout, 0, len(l))
	out = append(out, l[:src]...)
	out = append(out, l[src+1:]...)
	moved := l[src]

	// dst refers to positions in the original slice; recompute against the
	// slice with the source removed.
	insert := dst
	if src < dst {
		insert--
	}
	out = append(out[:insert], append(Layout{moved}, out[insert:]...)...)
	return out, true
}

// ResizePair shifts width between adjacent columns index and index+1 by
// deltaRatio. The resize is rejected (layout returned unchanged, false) when
// the index is out of range or either column would drop below MinWidth.
func ResizePair(l Layout, index int, deltaRatio float64) (Layout, bool) {
	if index < 0 || index+1 >= len(l) {
		return l, false
	}
	left := l[index].Width + deltaRatio
	right := l[index+1].Width - deltaRatio
	if left < MinWidth || right < MinWidth {
		return l, false
	}
	out := make(Layout, len(l))
	copy(out, l)
	out[index].Width = left
	out[index+1].Width = right
	return out, true
}

// FromVerticalLines recomputes column widths from guide boundary positions,
// the inverse of VerticalLines. It is a no-op (false) unless exactly
// len(l)-1 sorted boundaries are supplied.
func FromVerticalLines(l Layout, vertical []float64) (Layout, bool) {
	if len(l) == 0 || len(vertical) != len(l)-1 {
		return l, false
	}
	out := make(Layout, len(l))
	copy(out, l)
	prev := 0.0
	for i := range out {
		next := 1.0
		if i < len(vertical) {
			next = vertical[i]
		}
		out[i].Width = next - prev
		prev = next
	}
	return Normalize(out), true
}

// Keys returns the ordered role of each column.
func Keys(l Layout) []models.ColumnRole {
	keys := make([]models.ColumnRole, len(l))
	for i, col := range l {
		keys[i] = col.Key
	}
	return keys
}
