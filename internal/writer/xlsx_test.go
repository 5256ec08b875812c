package writer

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/comptaflow/releve-converter/internal/models"
)

func sampleTransactions() []models.Transaction {
	val := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	return []models.Transaction{
		{
			DateOperation: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC),
			DateValeur:    &val,
			Label:         "VIR SEPA RECU CLIENT ACME",
			Amount:        decimal.RequireFromString("4200.00"),
		},
		{
			DateOperation: time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC),
			Label:         "VIREMENT SEPA LOYER JUIN",
			Amount:        decimal.RequireFromString("-1200.00"),
		},
		{
			DateOperation: time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC),
			Label:         "PRLV SEPA EDF",
			Amount:        decimal.RequireFromString("-120.50"),
		},
	}
}

func TestTotalsInCents(t *testing.T) {
	debit, credit := Totals(sampleTransactions())
	if debit != 132050 {
		t.Errorf("debit cents: got %d, want 132050", debit)
	}
	if credit != 420000 {
		t.Errorf("credit cents: got %d, want 420000", credit)
	}
}

func TestTotalsEmpty(t *testing.T) {
	debit, credit := Totals(nil)
	if debit != 0 || credit != 0 {
		t.Errorf("got (%d, %d), want (0, 0)", debit, credit)
	}
}

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &XLSXWriter{Journal: "BQ", Account: "512000"}
	if err := w.Write(&buf, sampleTransactions()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("workbook unreadable: %v", err)
	}
	defer f.Close()

	get := func(cell string) string {
		v, err := f.GetCellValue(xlsxSheet, cell)
		if err != nil {
			t.Fatalf("GetCellValue(%s): %v", cell, err)
		}
		return v
	}

	for cell, want := range map[string]string{
		"A1": "DATE",
		"B1": "PIECE",
		"C1": "LIBELLE",
		"D1": "DEBIT",
		"E1": "CREDIT",
		"F1": "JOURNAL",
		"G1": "COMPTE",
		"A2": "05/06/2025",
		"B2": "06",
		"C2": "VIR SEPA RECU CLIENT ACME",
		"F2": "BQ",
		"G2": "512000",
		"C3": "VIREMENT SEPA LOYER JUIN",
		"C5": "TOTAL",
	} {
		if got := get(cell); got != want {
			t.Errorf("%s: got %q, want %q", cell, got, want)
		}
	}

	// Credit amount on the credit row, debit cell empty.
	if got := get("E2"); got == "" {
		t.Error("E2: credit amount missing")
	}
	if got := get("D2"); got != "" {
		t.Errorf("D2: expected empty debit cell, got %q", got)
	}
	if got := get("D3"); got == "" {
		t.Error("D3: debit amount missing")
	}

	// Totals row, accumulated in cents.
	if got := get("D5"); got != "1320.5" && got != "1320.50" {
		t.Errorf("D5 total debit: got %q", got)
	}
	if got := get("E5"); got != "4200" && got != "4200.00" {
		t.Errorf("E5 total credit: got %q", got)
	}
}

func TestXLSXWriterEmpty(t *testing.T) {
	var buf bytes.Buffer
	w := &XLSXWriter{}
	if err := w.Write(&buf, nil); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected a workbook even with no transactions")
	}
}
