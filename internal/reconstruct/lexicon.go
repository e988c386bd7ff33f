package reconstruct

import (
	"regexp"
	"strings"

	"github.com/insightdelivered/statement-review/internal/models"
)

// Lexicon holds the header keyword families used to classify column-header
// text. The defaults were tuned against real statements; banks with unusual
// header wording can supply their own keyword sets.
type Lexicon struct {
	Keywords map[models.ColumnRole][]string

	// MinHeaderRoles is how many distinct roles a band must yield to
	// qualify as a header.
	MinHeaderRoles int

	compiled map[models.ColumnRole]*regexp.Regexp
}

// classifyOrder fixes the priority when a cell's text matches several
// families ("transaction date" is a date column, not a description one).
var classifyOrder = []models.ColumnRole{
	models.RoleBalance,
	models.RoleDebit,
	models.RoleCredit,
	models.RoleDate,
	models.RoleDescription,
}

// DefaultLexicon returns the standard keyword families.
func DefaultLexicon() *Lexicon {
	lx := &Lexicon{
		Keywords: map[models.ColumnRole][]string{
			models.RoleDate:        {"book date", "value date", "posting date", "date"},
			models.RoleDescription: {"description", "particulars", "details", "transaction"},
			models.RoleDebit:       {"debit", "withdrawal", "dr"},
			models.RoleCredit:      {"credit", "deposit", "cr"},
			models.RoleBalance:     {"ending balance", "closing balance", "balance"},
		},
		MinHeaderRoles: 2,
	}
	lx.compile()
	return lx
}

// NewLexicon builds a lexicon from custom keyword families, falling back to
// the defaults for any family left empty.
func NewLexicon(keywords map[models.ColumnRole][]string, minHeaderRoles int) *Lexicon {
	lx := DefaultLexicon()
	for role, words := range keywords {
		if len(words) > 0 {
			lx.Keywords[role] = words
		}
	}
	if minHeaderRoles > 0 {
		lx.MinHeaderRoles = minHeaderRoles
	}
	lx.compile()
	return lx
}

func (lx *Lexicon) compile() {
	lx.compiled = make(map[models.ColumnRole]*regexp.Regexp, len(lx.Keywords))
	for role, words := range lx.Keywords {
		parts := make([]string, 0, len(words))
		for _, w := range words {
			w = strings.ToLower(strings.TrimSpace(w))
			if w == "" {
				continue
			}
			parts = append(parts, strings.ReplaceAll(regexp.QuoteMeta(w), " ", `\s+`))
		}
		if len(parts) == 0 {
			continue
		}
		// Keywords are quoted literals, so this cannot fail at runtime.
		lx.compiled[role] = regexp.MustCompile(`\b(?:` + strings.Join(parts, "|") + `)\b`)
	}
}

// Classify maps a header cell's text to a column role. Returns false when no
// family matches.
func (lx *Lexicon) Classify(text string) (models.ColumnRole, bool) {
	lower := strings.ToLower(text)
	for _, role := range classifyOrder {
		re := lx.compiled[role]
		if re != nil && re.MatchString(lower) {
			return role, true
		}
	}
	return "", false
}

// FamilyCount returns how many distinct keyword families the text matches.
// Used to reject header-like rows that slipped past header detection.
func (lx *Lexicon) FamilyCount(text string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, re := range lx.compiled {
		if re.MatchString(lower) {
			n++
		}
	}
	return n
}
