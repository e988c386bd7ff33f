package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/insightdelivered/statement-review/internal/aggregate"
	"github.com/insightdelivered/statement-review/internal/models"
)

// CSVWriter writes reconstructed rows to CSV format.
type CSVWriter struct {
	// IncludeSummary appends monthly totals after the transaction rows.
	IncludeSummary bool
}

// WriteToFile writes rows to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, rows []models.TransactionRow) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, rows)
}

// Write writes rows in CSV format to the given writer. Cell values are
// emitted exactly as reconstructed; unparsable amounts stay as raw text.
func (w *CSVWriter) Write(out io.Writer, rows []models.TransactionRow) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	header := []string{"Date", "Description", "Debit", "Credit", "Balance"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range rows {
		record := []string{
			row.Date,
			row.Description,
			row.Debit,
			row.Credit,
			row.Balance,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	if w.IncludeSummary {
		if err := w.writeSummary(writer, rows); err != nil {
			return err
		}
	}

	return writer.Error()
}

func (w *CSVWriter) writeSummary(writer *csv.Writer, rows []models.TransactionRow) error {
	months := aggregate.MonthlySummary(rows)
	if len(months) == 0 {
		return nil
	}

	writer.Write([]string{})
	header := []string{"Month", "Debit Total", "Credit Total", "Debits", "Credits", "ADB"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write summary header: %w", err)
	}
	for _, m := range months {
		record := []string{
			m.Label,
			fmt.Sprintf("%.2f", m.DebitTotal),
			fmt.Sprintf("%.2f", m.CreditTotal),
			fmt.Sprintf("%d", m.DebitCount),
			fmt.Sprintf("%d", m.CreditCount),
			fmt.Sprintf("%.2f", m.ADB),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write summary row: %w", err)
		}
	}
	return nil
}
