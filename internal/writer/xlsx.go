package writer

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/comptaflow/releve-converter/internal/models"
)

// XLSXWriter builds the accounting spreadsheet: one row per transaction in
// DATE / PIECE / LIBELLE / DEBIT / CREDIT order, optional journal and
// account columns, and a totals row computed in integer cents.
type XLSXWriter struct {
	// Journal and Account, when set, add JOURNAL and COMPTE columns filled
	// with these values on every row.
	Journal string
	Account string
}

const xlsxSheet = "Ecritures"

// Write renders the workbook to out.
func (w *XLSXWriter) Write(out io.Writer, txs []models.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", xlsxSheet)

	headers := []string{"DATE", "PIECE", "LIBELLE", "DEBIT", "CREDIT"}
	if w.Journal != "" {
		headers = append(headers, "JOURNAL")
	}
	if w.Account != "" {
		headers = append(headers, "COMPTE")
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(xlsxSheet, cell, h)
	}

	for i, tx := range txs {
		row := i + 2
		setCell := func(col int, v interface{}) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			f.SetCellValue(xlsxSheet, cell, v)
		}

		setCell(1, tx.DateOperation.Format("02/01/2006"))
		setCell(2, tx.DateOperation.Format("01"))
		setCell(3, tx.Label)

		debit, credit := debitCredit(tx)
		if debit != nil {
			amount, _ := debit.Float64()
			setCell(4, amount)
		}
		if credit != nil {
			amount, _ := credit.Float64()
			setCell(5, amount)
		}

		col := 6
		if w.Journal != "" {
			setCell(col, w.Journal)
			col++
		}
		if w.Account != "" {
			setCell(col, w.Account)
		}
	}

	debitCents, creditCents := Totals(txs)
	totalRow := len(txs) + 2
	labelCell, _ := excelize.CoordinatesToCellName(3, totalRow)
	debitCell, _ := excelize.CoordinatesToCellName(4, totalRow)
	creditCell, _ := excelize.CoordinatesToCellName(5, totalRow)
	f.SetCellValue(xlsxSheet, labelCell, "TOTAL")
	totalDebit, _ := centsToDecimal(debitCents).Float64()
	totalCredit, _ := centsToDecimal(creditCents).Float64()
	f.SetCellValue(xlsxSheet, debitCell, totalDebit)
	f.SetCellValue(xlsxSheet, creditCell, totalCredit)

	if _, err := f.WriteTo(out); err != nil {
		return fmt.Errorf("xlsx write failed: %w", err)
	}
	return nil
}

// WriteToFile renders the workbook to a file path.
func (w *XLSXWriter) WriteToFile(path string, txs []models.Transaction) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file %q: %w", path, err)
	}
	defer f.Close()
	return w.Write(f, txs)
}
