package aggregate

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/insightdelivered/statement-review/internal/models"
	"github.com/insightdelivered/statement-review/internal/reconstruct"
)

// maxPlausibleAmount is the magnitude above which an "amount" is assumed to
// be a misread reference number rather than money.
const maxPlausibleAmount = 1_000_000_000

// balanceRatioLimit excludes amounts more than this many times the row's own
// balance.
const balanceRatioLimit = 50

// MonthBucket is one calendar month's activity, recomputed from scratch on
// every aggregation call.
type MonthBucket struct {
	Label              string  `json:"label"`
	DebitTotal         float64 `json:"debit_total"`
	CreditTotal        float64 `json:"credit_total"`
	DebitCount         int     `json:"debit_count"`
	CreditCount        int     `json:"credit_count"`
	AvgDebit           float64 `json:"avg_debit"`
	AvgCredit          float64 `json:"avg_credit"`
	WeightedBalanceSum float64 `json:"weighted_balance_sum"`
	DayCount           int     `json:"day_count"`
	ADB                float64 `json:"adb"`
}

type monthAccum struct {
	debitTotal  decimal.Decimal
	creditTotal decimal.Decimal
	debitCount  int
	creditCount int
	weighted    decimal.Decimal
	dayCount    int
}

// saneAmount parses an amount string and applies the plausibility guards: a
// magnitude of a billion or more, or more than 50x the row's own nonzero
// balance, is a non-monetary artifact and does not count as a transaction.
// Zero and absent amounts do not count either.
func saneAmount(raw, balanceRaw string) (float64, bool) {
	v, ok := reconstruct.ExtractAmount(raw)
	if !ok || v == 0 {
		return 0, false
	}
	mag := math.Abs(v)
	if mag >= maxPlausibleAmount {
		return 0, false
	}
	if bal, ok := reconstruct.ExtractAmount(balanceRaw); ok && bal != 0 {
		if mag > balanceRatioLimit*math.Abs(bal) {
			return 0, false
		}
	}
	return mag, true
}

// MonthlySummary buckets debit/credit activity and the daily-balance
// weighted sum by calendar month. Every month from the first to the last
// transaction month is seeded, even with zero transactions; buckets that end
// up with zero days and zero activity are dropped.
func MonthlySummary(rows []models.TransactionRow) []MonthBucket {
	var first, last time.Time
	for _, row := range rows {
		date, ok := ParseStatementDate(row.Date)
		if !ok {
			continue
		}
		m := monthOf(date)
		if first.IsZero() || m.Before(first) {
			first = m
		}
		if last.IsZero() || m.After(last) {
			last = m
		}
	}
	if first.IsZero() {
		return []MonthBucket{}
	}

	accums := make(map[time.Time]*monthAccum)
	var order []time.Time
	for m := first; !m.After(last); m = m.AddDate(0, 1, 0) {
		accums[m] = &monthAccum{}
		order = append(order, m)
	}

	for _, row := range rows {
		date, ok := ParseStatementDate(row.Date)
		if !ok {
			continue
		}
		acc := accums[monthOf(date)]
		if mag, ok := saneAmount(row.Debit, row.Balance); ok {
			acc.debitTotal = acc.debitTotal.Add(decimal.NewFromFloat(mag))
			acc.debitCount++
		}
		if mag, ok := saneAmount(row.Credit, row.Balance); ok {
			acc.creditTotal = acc.creditTotal.Add(decimal.NewFromFloat(mag))
			acc.creditCount++
		}
	}

	allocateWeightedBalances(BuildDailyBalances(rows), accums)

	buckets := make([]MonthBucket, 0, len(order))
	for _, m := range order {
		acc := accums[m]
		if acc.dayCount == 0 && acc.debitCount == 0 && acc.creditCount == 0 &&
			acc.debitTotal.IsZero() && acc.creditTotal.IsZero() {
			continue
		}
		buckets = append(buckets, bucketFrom(m, acc))
	}
	return buckets
}

// allocateWeightedBalances splits each [point, nextPoint) interval at month
// boundaries, crediting each partial interval's balance x days to the month
// it falls in. The final point contributes one implicit day.
func allocateWeightedBalances(series []DailyBalancePoint, accums map[time.Time]*monthAccum) {
	for i, point := range series {
		end := point.Date.AddDate(0, 0, 1)
		if i+1 < len(series) {
			end = series[i+1].Date
			if !end.After(point.Date) {
				end = point.Date.AddDate(0, 0, 1)
			}
		}

		cur := point.Date
		balance := decimal.NewFromFloat(point.Balance)
		for cur.Before(end) {
			monthEnd := monthOf(cur).AddDate(0, 1, 0)
			segEnd := end
			if monthEnd.Before(segEnd) {
				segEnd = monthEnd
			}
			days := daysBetween(cur, segEnd)
			if acc, ok := accums[monthOf(cur)]; ok {
				acc.weighted = acc.weighted.Add(balance.Mul(decimal.NewFromInt(int64(days))))
				acc.dayCount += days
			}
			cur = segEnd
		}
	}
}

func bucketFrom(month time.Time, acc *monthAccum) MonthBucket {
	b := MonthBucket{
		Label:              month.Format("2006-01"),
		DebitTotal:         acc.debitTotal.InexactFloat64(),
		CreditTotal:        acc.creditTotal.InexactFloat64(),
		DebitCount:         acc.debitCount,
		CreditCount:        acc.creditCount,
		WeightedBalanceSum: acc.weighted.InexactFloat64(),
		DayCount:           acc.dayCount,
	}
	if acc.debitCount > 0 {
		b.AvgDebit = acc.debitTotal.Div(decimal.NewFromInt(int64(acc.debitCount))).InexactFloat64()
	}
	if acc.creditCount > 0 {
		b.AvgCredit = acc.creditTotal.Div(decimal.NewFromInt(int64(acc.creditCount))).InexactFloat64()
	}
	if acc.dayCount > 0 {
		b.ADB = acc.weighted.Div(decimal.NewFromInt(int64(acc.dayCount))).InexactFloat64()
	}
	return b
}

func monthOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
