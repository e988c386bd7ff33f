// Package reconstruct turns raw spatially positioned OCR text fragments into
// structured transaction rows, using either a detected header band or the
// reviewer's manual column layout to assign semantic roles.
package reconstruct

import (
	"sort"

	"github.com/insightdelivered/statement-review/internal/guides"
	"github.com/insightdelivered/statement-review/internal/models"
)

// BandTolerance is how far a fragment's top/bottom edges may drift from a
// band's current bounds and still be considered part of the same visual row.
const BandTolerance = 0.01

// BuildSections emits one rectangle per cell of the grid formed by the guide
// lines (page edges included), in row-major order. Zero guide lines yield a
// single full-page section.
func BuildSections(gs guides.State) []models.NormalizedBox {
	xs := axis(gs.Vertical)
	ys := axis(gs.Horizontal)

	sections := make([]models.NormalizedBox, 0, (len(xs)-1)*(len(ys)-1))
	for j := 0; j < len(ys)-1; j++ {
		for i := 0; i < len(xs)-1; i++ {
			sections = append(sections, models.NormalizedBox{
				X1: xs[i], Y1: ys[j], X2: xs[i+1], Y2: ys[j+1],
			})
		}
	}
	return sections
}

// axis builds the sorted, deduplicated boundary list [0, positions..., 1].
func axis(positions []float64) []float64 {
	vals := append([]float64{0}, guides.Dedupe(positions)...)
	vals = append(vals, 1)
	sort.Float64s(vals)

	out := vals[:1]
	for _, v := range vals[1:] {
		if v-out[len(out)-1] < guides.Epsilon {
			continue
		}
		out = append(out, v)
	}
	return out
}

// GroupFragmentsIntoBands clusters fragments into visual table rows. A
// fragment joins an existing band when both its top and bottom edges are
// within BandTolerance of the band's bounds; band bounds are the union of
// member fragments. Within each band cells are ordered by x1 ascending.
func GroupFragmentsIntoBands(fragments []models.OcrFragment) []models.RowBand {
	if len(fragments) == 0 {
		return nil
	}

	sorted := make([]models.OcrFragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Box.Y1 != sorted[j].Box.Y1 {
			return sorted[i].Box.Y1 < sorted[j].Box.Y1
		}
		return sorted[i].Box.X1 < sorted[j].Box.X1
	})

	var bands []models.RowBand
	for _, frag := range sorted {
		merged := false
		for i := range bands {
			if within(frag.Box.Y1, bands[i].Y1, BandTolerance) &&
				within(frag.Box.Y2, bands[i].Y2, BandTolerance) {
				bands[i].Cells = append(bands[i].Cells, frag)
				if frag.Box.Y1 < bands[i].Y1 {
					bands[i].Y1 = frag.Box.Y1
				}
				if frag.Box.Y2 > bands[i].Y2 {
					bands[i].Y2 = frag.Box.Y2
				}
				merged = true
				break
			}
		}
		if !merged {
			bands = append(bands, models.RowBand{
				Y1:    frag.Box.Y1,
				Y2:    frag.Box.Y2,
				Cells: []models.OcrFragment{frag},
			})
		}
	}

	for i := range bands {
		cells := bands[i].Cells
		sort.SliceStable(cells, func(a, b int) bool {
			return cells[a].Box.X1 < cells[b].Box.X1
		})
	}
	return bands
}

func within(v, target, tol float64) bool {
	d := v - target
	if d < 0 {
		d = -d
	}
	return d <= tol
}
