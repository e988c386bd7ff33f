package aggregate

import (
	"math"
	"testing"

	"github.com/insightdelivered/statement-review/internal/models"
)

func balanceRow(date, balance string) models.TransactionRow {
	return models.TransactionRow{Date: date, Balance: balance}
}

func TestBuildDailyBalances(t *testing.T) {
	rows := []models.TransactionRow{
		balanceRow("2024-01-03", "300.00"),
		balanceRow("2024-01-01", "100.00"),
		// Same day twice: the later row in document order wins.
		balanceRow("2024-01-01", "150.00"),
		// Unparsable entries are skipped, not zeroed.
		balanceRow("not a date", "999.00"),
		balanceRow("2024-01-05", "see note"),
	}

	series := BuildDailyBalances(rows)
	if len(series) != 2 {
		t.Fatalf("got %d points, want 2: %+v", len(series), series)
	}
	if series[0].Balance != 150.00 {
		t.Errorf("last row of the day should win: got %f", series[0].Balance)
	}
	if !series[0].Date.Before(series[1].Date) {
		t.Errorf("series not ascending: %+v", series)
	}
	if series[1].Balance != 300.00 {
		t.Errorf("second point: got %f", series[1].Balance)
	}
}

func TestBuildDailyBalancesEmpty(t *testing.T) {
	if got := BuildDailyBalances(nil); len(got) != 0 {
		t.Errorf("expected empty series, got %+v", got)
	}
}

func TestAverageDailyBalance(t *testing.T) {
	// 100 for two days (Jan 1-2), then 200 for the single implicit final
	// day: (100*2 + 200*1) / 3.
	rows := []models.TransactionRow{
		balanceRow("2024-01-01", "100.00"),
		balanceRow("2024-01-03", "200.00"),
	}

	adb, ok := AverageDailyBalance(rows)
	if !ok {
		t.Fatal("expected a result")
	}
	want := 400.0 / 3.0
	if math.Abs(adb-want) > 1e-6 {
		t.Errorf("got %f, want %f", adb, want)
	}
}

func TestAverageDailyBalanceSinglePoint(t *testing.T) {
	adb, ok := AverageDailyBalance([]models.TransactionRow{balanceRow("2024-01-01", "500.00")})
	if !ok || adb != 500.00 {
		t.Errorf("got (%f, %v), want (500.00, true)", adb, ok)
	}
}

func TestAverageDailyBalanceEmpty(t *testing.T) {
	if _, ok := AverageDailyBalance(nil); ok {
		t.Error("empty series should report false, not zero")
	}
	if _, ok := AverageDailyBalance([]models.TransactionRow{balanceRow("??", "??")}); ok {
		t.Error("unparsable rows should report false")
	}
}

func TestAverageDailyBalanceNegative(t *testing.T) {
	rows := []models.TransactionRow{
		balanceRow("2024-01-01", "(100.00)"),
		balanceRow("2024-01-02", "100.00"),
	}
	adb, ok := AverageDailyBalance(rows)
	if !ok {
		t.Fatal("expected a result")
	}
	if math.Abs(adb-0.0) > 1e-9 {
		t.Errorf("got %f, want 0", adb)
	}
}
