package reconstruct

import (
	"fmt"
	"strings"

	"github.com/insightdelivered/statement-review/internal/layout"
	"github.com/insightdelivered/statement-review/internal/models"
)

// positionalDefault assigns roles by cell position when a header cell's text
// does not classify.
var positionalDefault = []models.ColumnRole{
	models.RoleDate,
	models.RoleDescription,
	models.RoleDebit,
	models.RoleCredit,
	models.RoleBalance,
}

// countPresets maps a band's cell count to a role layout when neither a
// manual layout nor a header band is available.
var countPresets = map[int][]models.ColumnRole{
	5: {models.RoleDate, models.RoleDescription, models.RoleDebit, models.RoleCredit, models.RoleBalance},
	4: {models.RoleDate, models.RoleDescription, models.RoleDebit, models.RoleBalance},
	3: {models.RoleDate, models.RoleDescription, models.RoleBalance},
	2: {models.RoleDate, models.RoleDescription},
}

// Reconstructor assembles transaction rows from OCR fragments.
type Reconstructor struct {
	Lexicon *Lexicon
}

// NewReconstructor returns a reconstructor with the default header lexicon.
func NewReconstructor() *Reconstructor {
	return &Reconstructor{Lexicon: DefaultLexicon()}
}

// DetectHeaderBand finds the band most likely to be the column header row.
// A band qualifies when its cells classify into at least MinHeaderRoles
// distinct roles; the score favors bands naming date and balance. Returns -1
// when no band qualifies.
func (r *Reconstructor) DetectHeaderBand(bands []models.RowBand) int {
	best := -1
	bestScore := 0
	for i, band := range bands {
		roles := make(map[models.ColumnRole]bool)
		for _, cell := range band.Cells {
			if role, ok := r.Lexicon.Classify(cell.Text); ok {
				roles[role] = true
			}
		}
		if len(roles) < r.Lexicon.MinHeaderRoles {
			continue
		}
		score := len(roles)
		if roles[models.RoleDate] {
			score++
		}
		if roles[models.RoleBalance] {
			score++
		}
		if score > bestScore {
			best = i
			bestScore = score
		}
	}
	return best
}

// Reconstruct groups the page's fragments into bands, resolves a role for
// every cell, and emits structured rows with their bounding boxes. A manual
// column layout, when present, always wins over header detection.
func (r *Reconstructor) Reconstruct(page string, fragments []models.OcrFragment, manual layout.Layout) models.ReconstructResult {
	result := models.ReconstructResult{
		Rows:   []models.TransactionRow{},
		Bounds: []models.NormalizedBox{},
	}

	if len(manual) == 0 {
		manual = nil
	}

	bands := GroupFragmentsIntoBands(fragments)
	if len(bands) == 0 {
		return result
	}

	headerIdx := r.DetectHeaderBand(bands)
	var headerRoles []models.ColumnRole
	if manual == nil && headerIdx >= 0 {
		headerRoles = r.rolesFromHeader(bands[headerIdx])
	}

	var boundaries []float64
	if manual != nil {
		boundaries = layout.VerticalLines(manual)
	}

	for i, band := range bands {
		if i == headerIdx {
			continue
		}

		row, box := r.buildRow(band, manual, boundaries, headerRoles)
		if row.Empty() {
			continue
		}
		if r.headerLike(row) {
			continue
		}

		row.RowID = fmt.Sprintf("%03d", len(result.Rows)+1)
		row.Page = page
		row.Box = &box
		result.Rows = append(result.Rows, row)
		result.Bounds = append(result.Bounds, box)
	}
	return result
}

// rolesFromHeader derives one role per cell index from the header band,
// falling back to the positional default for cells that do not classify.
func (r *Reconstructor) rolesFromHeader(header models.RowBand) []models.ColumnRole {
	roles := make([]models.ColumnRole, len(header.Cells))
	for i, cell := range header.Cells {
		if role, ok := r.Lexicon.Classify(cell.Text); ok {
			roles[i] = role
			continue
		}
		if i < len(positionalDefault) {
			roles[i] = positionalDefault[i]
		} else {
			roles[i] = models.RoleDescription
		}
	}
	return roles
}

// cellRole resolves the semantic role of one cell. Precedence: manual column
// layout (geometric, by the cell's horizontal center), then header-derived
// roles (by cell index), then the count presets.
func cellRole(band models.RowBand, idx int, manual layout.Layout, boundaries []float64, headerRoles []models.ColumnRole) models.ColumnRole {
	if manual != nil {
		cx := band.Cells[idx].Box.CenterX()
		col := 0
		for col < len(boundaries) && cx >= boundaries[col] {
			col++
		}
		return manual[col].Key
	}
	if headerRoles != nil {
		if idx < len(headerRoles) {
			return headerRoles[idx]
		}
		return models.RoleDescription
	}
	if preset, ok := countPresets[len(band.Cells)]; ok && idx < len(preset) {
		return preset[idx]
	}
	return models.RoleDescription
}

// buildRow assigns each cell's text to its resolved role. Description cells
// concatenate; amount cells go through ExtractAmount and keep the raw text
// when no numeric token survives.
func (r *Reconstructor) buildRow(band models.RowBand, manual layout.Layout, boundaries []float64, headerRoles []models.ColumnRole) (models.TransactionRow, models.NormalizedBox) {
	var row models.TransactionRow
	box := band.Cells[0].Box

	for i, cell := range band.Cells {
		box = box.Union(cell.Box)
		text := strings.Join(strings.Fields(cell.Text), " ")
		if text == "" {
			continue
		}

		switch cellRole(band, i, manual, boundaries, headerRoles) {
		case models.RoleDate:
			if row.Date == "" {
				row.Date = text
			}
		case models.RoleDescription:
			if row.Description == "" {
				row.Description = text
			} else {
				row.Description += " " + text
			}
		case models.RoleDebit:
			row.Debit = amountOrRaw(text)
		case models.RoleCredit:
			row.Credit = amountOrRaw(text)
		case models.RoleBalance:
			row.Balance = amountOrRaw(text)
		}
	}
	return row, box
}

func amountOrRaw(text string) string {
	if v, ok := ExtractAmount(text); ok {
		return FormatAmount(v)
	}
	return text
}

// headerLike guards against a repeated column header (common on
// multi-section pages) being mistaken for data: a row whose combined text
// matches two or more keyword families is discarded.
func (r *Reconstructor) headerLike(row models.TransactionRow) bool {
	combined := strings.Join([]string{
		row.Date, row.Description, row.Debit, row.Credit, row.Balance,
	}, " ")
	return r.Lexicon.FamilyCount(combined) >= 2
}
