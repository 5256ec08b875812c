package writer

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/comptaflow/releve-converter/internal/models"
)

// CSVWriter writes the transaction list in the same column contract as the
// spreadsheet: DATE, PIECE, LIBELLE, DEBIT, CREDIT plus a totals row.
type CSVWriter struct {
	// IncludeTotals appends the TOTAL row, keeping parity with the
	// spreadsheet output.
	IncludeTotals bool
}

// WriteToFile writes transactions to a CSV file at the given path.
func (w *CSVWriter) WriteToFile(path string, txs []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()

	return w.Write(f, txs)
}

// Write writes transactions in CSV format to the given writer.
func (w *CSVWriter) Write(out io.Writer, txs []models.Transaction) error {
	writer := csv.NewWriter(out)
	defer writer.Flush()

	header := []string{"DATE", "PIECE", "LIBELLE", "DEBIT", "CREDIT"}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, tx := range txs {
		debit, credit := debitCredit(tx)
		row := []string{
			tx.DateOperation.Format("02/01/2006"),
			tx.DateOperation.Format("01"),
			tx.Label,
			"",
			"",
		}
		if debit != nil {
			row[3] = debit.StringFixed(2)
		}
		if credit != nil {
			row[4] = credit.StringFixed(2)
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	if w.IncludeTotals {
		debitCents, creditCents := Totals(txs)
		row := []string{
			"",
			"",
			"TOTAL",
			centsToDecimal(debitCents).StringFixed(2),
			centsToDecimal(creditCents).StringFixed(2),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV totals: %w", err)
		}
	}

	return nil
}
