package models

// ColumnRole identifies the semantic meaning of a table column.
type ColumnRole string

const (
	RoleDate        ColumnRole = "date"
	RoleDescription ColumnRole = "description"
	RoleDebit       ColumnRole = "debit"
	RoleCredit      ColumnRole = "credit"
	RoleBalance     ColumnRole = "balance"
)

// Roles lists the five fixed column roles in their default left-to-right order.
var Roles = []ColumnRole{RoleDate, RoleDescription, RoleDebit, RoleCredit, RoleBalance}

// OcrFragment is one spatially positioned piece of text produced by an
// external OCR collaborator. Fragments are immutable inputs.
type OcrFragment struct {
	Box  NormalizedBox `json:"box"`
	Text string        `json:"text"`
}

// RowBand is a cluster of fragments judged to belong to the same visual
// table row. Cells are ordered by x1 ascending.
type RowBand struct {
	Y1    float64       `json:"y1"`
	Y2    float64       `json:"y2"`
	Cells []OcrFragment `json:"cells"`
}

// TransactionRow is one reconstructed (or reviewer-edited) statement row.
// Debit, Credit and Balance keep the raw text when it does not parse as an
// amount; the reviewer fixes those by hand.
type TransactionRow struct {
	RowID       string         `json:"row_id"`
	Page        string         `json:"page"`
	Date        string         `json:"date"`
	Description string         `json:"description"`
	Debit       string         `json:"debit"`
	Credit      string         `json:"credit"`
	Balance     string         `json:"balance"`
	Box         *NormalizedBox `json:"box,omitempty"`
}

// Empty reports whether every field of the row is blank.
func (r TransactionRow) Empty() bool {
	return r.Date == "" && r.Description == "" &&
		r.Debit == "" && r.Credit == "" && r.Balance == ""
}

// ReconstructResult is the output of one reconstruction pass over a page.
type ReconstructResult struct {
	Rows   []TransactionRow `json:"rows"`
	Bounds []NormalizedBox  `json:"bounds"`
}

// GuidePayload is the wire shape the host application persists per page.
type GuidePayload struct {
	ColumnLayout []ColumnPayload `json:"column_layout"`
	Horizontal   []float64       `json:"horizontal"`
}

// ColumnPayload is one serialized column definition.
type ColumnPayload struct {
	Key   ColumnRole `json:"key"`
	Width float64    `json:"width"`
}
