package writer

import (
	"bytes"
	"encoding/csv"
	"testing"
)

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{IncludeTotals: true}
	if err := w.Write(&buf, sampleTransactions()); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output not valid CSV: %v", err)
	}
	if len(records) != 5 {
		t.Fatalf("rows: got %d, want 5 (header + 3 + totals)", len(records))
	}

	header := records[0]
	want := []string{"DATE", "PIECE", "LIBELLE", "DEBIT", "CREDIT"}
	for i, h := range want {
		if header[i] != h {
			t.Errorf("header[%d]: got %q, want %q", i, header[i], h)
		}
	}

	credit := records[1]
	if credit[0] != "05/06/2025" {
		t.Errorf("date: got %q", credit[0])
	}
	if credit[3] != "" || credit[4] != "4200.00" {
		t.Errorf("credit row columns: got debit=%q credit=%q", credit[3], credit[4])
	}

	debit := records[2]
	if debit[3] != "1200.00" || debit[4] != "" {
		t.Errorf("debit row columns: got debit=%q credit=%q", debit[3], debit[4])
	}

	totals := records[4]
	if totals[2] != "TOTAL" {
		t.Errorf("totals label: got %q", totals[2])
	}
	if totals[3] != "1320.50" {
		t.Errorf("total debit: got %q, want 1320.50", totals[3])
	}
	if totals[4] != "4200.00" {
		t.Errorf("total credit: got %q, want 4200.00", totals[4])
	}
}

func TestCSVWriterNoTotals(t *testing.T) {
	var buf bytes.Buffer
	w := &CSVWriter{}
	if err := w.Write(&buf, sampleTransactions()); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output not valid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("rows: got %d, want 4 (header + 3)", len(records))
	}
}
