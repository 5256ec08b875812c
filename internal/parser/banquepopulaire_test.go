package parser

import (
	"errors"
	"testing"
	"time"
)

const bpFixture = `BANQUE POPULAIRE RIVES DE PARIS
RELEVE DE VOS COMPTES du 01/04/2024 au 30/04/2024
DATE COMPTA DATE OPERATION DATE VALEUR LIBELLE
17/04 ACHAT CB SUPERMARCHE 17/04 17/04 12,34
18/04 PRLV ASSURANCE AUTO 18/04 18/04 -56,78
19/04 VIR RECU DURAND 19/04 20/04 250,00 EUR REF 443
TOTAL DES MOUVEMENTS 69,12 250,00
`

func TestBanquePopulaireParser_Rows(t *testing.T) {
	p := &BanquePopulaireParser{}

	txs, err := p.Parse(NewTextSource(bpFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("transactions: got %d, want 3: %+v", len(txs), txs)
	}

	achat := txs[0]
	if achat.Amount.String() != "12.34" {
		t.Errorf("achat amount: got %s, want 12.34 (no minus in source)", achat.Amount)
	}
	want := time.Date(2024, 4, 17, 0, 0, 0, 0, time.UTC)
	if !achat.DateOperation.Equal(want) {
		t.Errorf("achat dateOperation: got %v, want %v", achat.DateOperation, want)
	}
	if achat.Label != "ACHAT CB SUPERMARCHE" {
		t.Errorf("achat label: got %q", achat.Label)
	}

	prlv := txs[1]
	if prlv.Amount.String() != "-56.78" {
		t.Errorf("prlv amount: got %s, want -56.78", prlv.Amount)
	}

	vir := txs[2]
	if vir.Amount.String() != "250" {
		t.Errorf("vir amount: got %s, want 250", vir.Amount)
	}
	if vir.DateValeur == nil || !vir.DateValeur.Equal(time.Date(2024, 4, 20, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("vir dateValeur: got %v", vir.DateValeur)
	}
	// Text after the amount joins the label, with currency noise stripped.
	if vir.Label != "VIR RECU DURAND REF 443" {
		t.Errorf("vir label: got %q", vir.Label)
	}
}

// The distilled row shape of some extractions puts all three dates first;
// the single trailing date then serves all three roles.
func TestBanquePopulaireParser_ThreeLeadingDates(t *testing.T) {
	p := &BanquePopulaireParser{}

	fixture := `BANQUE POPULAIRE
au 31/12/2024
DATECOMPTADATEOPERATION
17/04 17/04 17/04 ACHAT X 12,34
TOTAL DES MOUVEMENTS
`
	txs, err := p.Parse(NewTextSource(fixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1: %+v", len(txs), txs)
	}
	if txs[0].Amount.String() != "12.34" {
		t.Errorf("amount: got %s, want 12.34", txs[0].Amount)
	}
	want := time.Date(2024, 4, 17, 0, 0, 0, 0, time.UTC)
	if !txs[0].DateOperation.Equal(want) {
		t.Errorf("dateOperation: got %v, want %v", txs[0].DateOperation, want)
	}
	if txs[0].Label != "ACHAT X" {
		t.Errorf("label: got %q", txs[0].Label)
	}
}

func TestBanquePopulaireParser_TwoDates(t *testing.T) {
	p := &BanquePopulaireParser{}

	fixture := `BANQUE POPULAIRE
au 31/05/2024
DATE COMPTA
02/05 COTISATION COMPTE 03/05 4,50
TOTAL DES MOUVEMENTS
`
	txs, err := p.Parse(NewTextSource(fixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1: %+v", len(txs), txs)
	}
	tx := txs[0]
	want := time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC)
	if !tx.DateOperation.Equal(want) {
		t.Errorf("dateOperation: got %v, want %v", tx.DateOperation, want)
	}
	if tx.DateValeur == nil || !tx.DateValeur.Equal(want) {
		t.Errorf("dateValeur should repeat dateOperation: got %v", tx.DateValeur)
	}
}

func TestBanquePopulaireParser_MissingAnchor(t *testing.T) {
	p := &BanquePopulaireParser{}

	_, err := p.Parse(NewTextSource("BANQUE POPULAIRE\nrien ici\n"))
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("expected ErrUnrecognizedFormat, got %v", err)
	}
}
