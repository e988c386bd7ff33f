package aggregate

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-review/internal/models"
	"github.com/insightdelivered/statement-review/internal/reconstruct"
)

// DailyBalancePoint is the balance on one calendar day (UTC midnight). When
// several rows land on the same day, the last one in document order wins.
type DailyBalancePoint struct {
	Date    time.Time `json:"date"`
	Balance float64   `json:"balance"`
}

// BuildDailyBalances collapses rows with a parseable date and a numeric
// balance into one point per calendar day, ascending by date.
func BuildDailyBalances(rows []models.TransactionRow) []DailyBalancePoint {
	type dated struct {
		date    time.Time
		balance float64
	}

	points := make([]dated, 0, len(rows))
	for _, row := range rows {
		date, ok := ParseStatementDate(row.Date)
		if !ok {
			continue
		}
		balance, ok := reconstruct.ExtractAmount(row.Balance)
		if !ok {
			continue
		}
		points = append(points, dated{date: date, balance: balance})
	}

	// Stable sort keeps document order within a day, so the last row of a
	// day is also the last entry after sorting.
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].date.Before(points[j].date)
	})

	var series []DailyBalancePoint
	for _, p := range points {
		if n := len(series); n > 0 && series[n-1].Date.Equal(p.date) {
			series[n-1].Balance = p.balance
			continue
		}
		series = append(series, DailyBalancePoint{Date: p.date, Balance: p.balance})
	}
	return series
}

// AverageDailyBalance computes the day-count-weighted mean balance. Each
// point covers the days until the next point; the final point covers one
// implicit day. Returns false when the daily series is empty.
func AverageDailyBalance(rows []models.TransactionRow) (float64, bool) {
	series := BuildDailyBalances(rows)
	if len(series) == 0 {
		return 0, false
	}

	weighted := decimal.Zero
	totalDays := 0
	for i, point := range series {
		days := 1
		if i+1 < len(series) {
			days = daysBetween(point.Date, series[i+1].Date)
			if days < 1 {
				days = 1
			}
		}
		weighted = weighted.Add(decimal.NewFromFloat(point.Balance).Mul(decimal.NewFromInt(int64(days))))
		totalDays += days
	}

	adb := weighted.Div(decimal.NewFromInt(int64(totalDays)))
	return adb.InexactFloat64(), true
}

// daysBetween counts whole days from a to b; both are UTC midnights.
func daysBetween(a, b time.Time) int {
	return int(b.Sub(a).Hours() / 24)
}
