package aggregate

import (
	"github.com/insightdelivered/statement-review/internal/models"
)

// Summary is what the review UI shows and what the export includes.
type Summary struct {
	TotalTransactions  int           `json:"total_transactions"`
	DebitTransactions  int           `json:"debit_transactions"`
	CreditTransactions int           `json:"credit_transactions"`
	ADB                float64       `json:"adb"`
	Monthly            []MonthBucket `json:"monthly"`
}

// Summarize aggregates a full set of reconstructed rows. ADB is zero when no
// daily balance series can be built.
func Summarize(rows []models.TransactionRow) Summary {
	s := Summary{
		TotalTransactions: len(rows),
		Monthly:           MonthlySummary(rows),
	}
	for _, row := range rows {
		if _, ok := saneAmount(row.Debit, row.Balance); ok {
			s.DebitTransactions++
		}
		if _, ok := saneAmount(row.Credit, row.Balance); ok {
			s.CreditTransactions++
		}
	}
	if adb, ok := AverageDailyBalance(rows); ok {
		s.ADB = adb
	}
	return s
}
