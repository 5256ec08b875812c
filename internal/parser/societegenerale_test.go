package parser

import (
	"strings"
	"testing"
	"time"

	"github.com/comptaflow/releve-converter/internal/models"
)

func sgFixtureLines() []models.PdfLine {
	return []models.PdfLine{
		lclLine(1, models.LineItem{Text: "SOCIETE GENERALE", X: 40}),
		lclLine(1,
			models.LineItem{Text: "DATE", X: 20},
			models.LineItem{Text: "DATE VALEUR", X: 55},
			models.LineItem{Text: "NATURE DE L'OPERATION", X: 120},
			models.LineItem{Text: "Débit", X: 380},
			models.LineItem{Text: "Crédit", X: 480},
		),
		lclLine(1,
			models.LineItem{Text: "02/05/2024", X: 20},
			models.LineItem{Text: "01/05/2024", X: 55},
			models.LineItem{Text: "VIR RECU SALAIRE", X: 120},
			models.LineItem{Text: "2 500,00", X: 480},
		),
		lclLine(1,
			models.LineItem{Text: "03/05/2024", X: 20},
			models.LineItem{Text: "03/05/2024", X: 55},
			models.LineItem{Text: "CHEQUE REJETE", X: 120},
			models.LineItem{Text: "100,00", X: 380},
			models.LineItem{Text: "100,00", X: 480},
		),
		lclLine(1,
			models.LineItem{Text: "04/05/2024", X: 20},
			models.LineItem{Text: "04/05/2024", X: 55},
			models.LineItem{Text: "PRELEVEMENT ORANGE", X: 120},
			models.LineItem{Text: "39,99", X: 380},
		),
		lclLine(1, models.LineItem{Text: "FACTURE 042024", X: 140}),
		lclLine(1, models.LineItem{Text: "TOTAUX DES MOUVEMENTS", X: 40}, models.LineItem{Text: "139,99", X: 380}, models.LineItem{Text: "2 600,00", X: 480}),
	}
}

func TestSGParser_GeometryColumns(t *testing.T) {
	p := &SocieteGeneraleParser{}

	txs, err := p.Parse(NewLinesSource(sgFixtureLines()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("transactions: got %d, want 3: %+v", len(txs), txs)
	}

	salaire := txs[0]
	if salaire.Amount.String() != "2500" {
		t.Errorf("salaire amount: got %s, want 2500", salaire.Amount)
	}
	// First date is the value date, second the operation date.
	wantOp := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !salaire.DateOperation.Equal(wantOp) {
		t.Errorf("salaire dateOperation: got %v, want %v", salaire.DateOperation, wantOp)
	}
	if salaire.DateValeur == nil || !salaire.DateValeur.Equal(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("salaire dateValeur: got %v", salaire.DateValeur)
	}

	// Two amounts, one per column: the credit column wins.
	rejet := txs[1]
	if rejet.Amount.String() != "100" {
		t.Errorf("rejet amount: got %s, want 100 (credit column wins)", rejet.Amount)
	}

	orange := txs[2]
	if orange.Amount.String() != "-39.99" {
		t.Errorf("orange amount: got %s, want -39.99", orange.Amount)
	}
	if !strings.Contains(orange.Label, "FACTURE 042024") {
		t.Errorf("continuation label missing: %q", orange.Label)
	}
}

func TestSGParser_ClusterColumnsWithoutHeader(t *testing.T) {
	// Header row names the window but carries no débit/crédit items; the
	// amount x positions cluster into the two columns instead.
	lines := []models.PdfLine{
		lclLine(1,
			models.LineItem{Text: "DATE VALEUR", X: 55},
			models.LineItem{Text: "NATURE", X: 120},
		),
		lclLine(1,
			models.LineItem{Text: "02/05/2024", X: 20},
			models.LineItem{Text: "01/05/2024", X: 55},
			models.LineItem{Text: "REMISE CB 0405", X: 120},
			models.LineItem{Text: "320,00", X: 481},
		),
		lclLine(1,
			models.LineItem{Text: "03/05/2024", X: 20},
			models.LineItem{Text: "02/05/2024", X: 55},
			models.LineItem{Text: "CARTE X1234 CARREFOUR", X: 120},
			models.LineItem{Text: "54,30", X: 382},
		),
		lclLine(1,
			models.LineItem{Text: "04/05/2024", X: 20},
			models.LineItem{Text: "03/05/2024", X: 55},
			models.LineItem{Text: "CARTE X1234 SNCF", X: 120},
			models.LineItem{Text: "27,80", X: 381},
		),
		lclLine(1, models.LineItem{Text: "NOUVEAU SOLDE", X: 40}),
	}

	p := &SocieteGeneraleParser{}
	txs, err := p.Parse(NewLinesSource(lines))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("transactions: got %d, want 3: %+v", len(txs), txs)
	}
	if txs[0].Amount.String() != "320" {
		t.Errorf("remise amount: got %s, want 320 (right-hand cluster is credit)", txs[0].Amount)
	}
	if txs[1].Amount.String() != "-54.3" {
		t.Errorf("carrefour amount: got %s, want -54.3", txs[1].Amount)
	}
	if txs[2].Amount.String() != "-27.8" {
		t.Errorf("sncf amount: got %s, want -27.8", txs[2].Amount)
	}
}

func TestSGParser_TextPath(t *testing.T) {
	p := &SocieteGeneraleParser{}

	text := `SOCIETE GENERALE RELEVE
02/05/2024 01/05/2024 VIR RECU ACOMPTE CLIENT 1 500,00
03/05/2024 02/05/2024 CARTE X1234 CARREFOUR * 45,00
PAGE 2
`
	txs, err := p.Parse(NewTextSource(text))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("transactions: got %d, want 2: %+v", len(txs), txs)
	}

	vir := txs[0]
	if vir.Amount.String() != "1500" {
		t.Errorf("vir amount: got %s, want 1500", vir.Amount)
	}
	if !strings.Contains(vir.Label, "VIR RECU ACOMPTE CLIENT") {
		t.Errorf("vir label: got %q", vir.Label)
	}
	wantOp := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if !vir.DateOperation.Equal(wantOp) {
		t.Errorf("vir dateOperation: got %v, want %v", vir.DateOperation, wantOp)
	}

	carte := txs[1]
	if carte.Amount.String() != "-45" {
		t.Errorf("carte amount: got %s, want -45 (starred rows are debits)", carte.Amount)
	}
}
