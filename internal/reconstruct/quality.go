package reconstruct

import (
	"math"

	"github.com/insightdelivered/statement-review/internal/models"
)

// Quality summarizes how usable a reconstruction pass was, so the host can
// decide whether to ask the reviewer for a manual column layout.
type Quality struct {
	Rows         int      `json:"rows"`
	DateRatio    float64  `json:"date_ratio"`
	BalanceRatio float64  `json:"balance_ratio"`
	FlowRatio    float64  `json:"flow_ratio"`
	Passes       bool     `json:"passes"`
	Reasons      []string `json:"reasons"`
}

const (
	qualityMinRows      = 3
	qualityMinDateRatio = 0.8
	qualityMinBalRatio  = 0.8
)

// EvaluateQuality computes row counts and field coverage ratios for a set of
// reconstructed rows.
func EvaluateQuality(rows []models.TransactionRow) Quality {
	if len(rows) == 0 {
		return Quality{Reasons: []string{"no_rows"}}
	}

	dateOK, balanceOK, flowOK := 0, 0, 0
	for _, r := range rows {
		if r.Date != "" {
			dateOK++
		}
		if r.Balance != "" {
			balanceOK++
		}
		if r.Debit != "" || r.Credit != "" {
			flowOK++
		}
	}

	total := float64(len(rows))
	q := Quality{
		Rows:         len(rows),
		DateRatio:    round3(float64(dateOK) / total),
		BalanceRatio: round3(float64(balanceOK) / total),
		FlowRatio:    round3(float64(flowOK) / total),
		Reasons:      []string{},
	}

	if q.Rows < qualityMinRows {
		q.Reasons = append(q.Reasons, "few_rows")
	}
	if q.DateRatio < qualityMinDateRatio {
		q.Reasons = append(q.Reasons, "low_date_ratio")
	}
	if q.BalanceRatio < qualityMinBalRatio {
		q.Reasons = append(q.Reasons, "low_balance_ratio")
	}
	q.Passes = len(q.Reasons) == 0
	return q
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
