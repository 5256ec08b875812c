package parser

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const bnpFixture = `RELEVE DE COMPTE BNP PARIBAS
COMPTE CHEQUES N 30004 00123 00012345678
DATE COMPTABLE DATE VALEUR OPERATIONS DEBIT CREDIT
VIREMENTS RECUS
05.06.25 VIR SEPA RECU CLIENT ACME 05.06.25 4 200,00
VIREMENTS EMIS
06.06.25 VIREMENT SEPA LOYER JUIN 06.06.25 1 200,00
PRELEVEMENTS, AMORTISSEMENTS DE PRETS
10.06.25 PRLV SEPA EDF 10.06.25 120,50
ID EMETTEUR/EDF 123456
TOTAL DES OPERATIONS 1 320,50 4 200,00
SOLDE CREDITEUR AU 30.06.2025 2 879,50
`

func TestBNPParser_ThreeRows(t *testing.T) {
	p := &BNPParser{}

	txs, err := p.Parse(NewTextSource(bnpFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("transactions: got %d, want 3: %+v", len(txs), txs)
	}

	credit := txs[0]
	if credit.Amount.String() != "4200" {
		t.Errorf("credit amount: got %s, want 4200", credit.Amount)
	}
	wantDate := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	if !credit.DateOperation.Equal(wantDate) {
		t.Errorf("credit dateOperation: got %v, want %v", credit.DateOperation, wantDate)
	}
	if credit.DateValeur == nil || !credit.DateValeur.Equal(wantDate) {
		t.Errorf("credit dateValeur: got %v", credit.DateValeur)
	}

	loyer := txs[1]
	if loyer.Amount.String() != "-1200" {
		t.Errorf("loyer amount: got %s, want -1200", loyer.Amount)
	}
	if !strings.Contains(loyer.Label, "VIREMENT SEPA LOYER") {
		t.Errorf("loyer label: got %q", loyer.Label)
	}

	prlv := txs[2]
	if prlv.Amount.String() != "-120.5" {
		t.Errorf("prlv amount: got %s, want -120.5", prlv.Amount)
	}
	if !strings.Contains(prlv.Label, "PRLV SEPA EDF") {
		t.Errorf("prlv label missing operation name: %q", prlv.Label)
	}
	if !strings.Contains(prlv.Label, "ID EMETTEUR/EDF 123456") {
		t.Errorf("prlv label missing continuation line: %q", prlv.Label)
	}
}

// A row carrying both a debit and a credit column keeps only the credit
// value, positive. The historical two-amount behaviour is pinned on purpose.
func TestBNPParser_TwoAmountRowKeepsCredit(t *testing.T) {
	p := &BNPParser{}

	fixture := `BNP PARIBAS
DATE COMPTABLE DATE VALEUR OPERATIONS
OPERATIONS DIVERSES
07.06.25 REGLEMENT FACTURE 07.06.25 300,00 450,00
TOTAL DES OPERATIONS
`
	txs, err := p.Parse(NewTextSource(fixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(txs))
	}
	if txs[0].Amount.String() != "450" {
		t.Errorf("amount: got %s, want 450 (credit value, positive)", txs[0].Amount)
	}
}

func TestBNPParser_SectionOverride(t *testing.T) {
	p := &BNPParser{}

	// The lone REMISE hint would make this row a credit, but the CHEQUES
	// EMIS section forces debit.
	fixture := `BNP PARIBAS
DATE COMPTABLE DATE VALEUR OPERATIONS
CHEQUES EMIS
08.06.25 REMISE CHEQUE 1234 08.06.25 89,90
TOTAL DES OPERATIONS
`
	txs, err := p.Parse(NewTextSource(fixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1", len(txs))
	}
	if txs[0].Amount.String() != "-89.9" {
		t.Errorf("amount: got %s, want -89.9", txs[0].Amount)
	}
	if txs[0].Section != "CHEQUES EMIS" {
		t.Errorf("section: got %q", txs[0].Section)
	}
}

func TestBNPParser_MissingAnchor(t *testing.T) {
	p := &BNPParser{}

	_, err := p.Parse(NewTextSource("BNP PARIBAS\nno table in this document\n"))
	if !errors.Is(err, ErrUnrecognizedFormat) {
		t.Fatalf("expected ErrUnrecognizedFormat, got %v", err)
	}
}

func TestBNPParser_RowWithoutAmountDropped(t *testing.T) {
	p := &BNPParser{}

	fixture := `BNP PARIBAS
DATE COMPTABLE DATE VALEUR OPERATIONS
VIREMENTS RECUS
05.06.25 VIR SANS MONTANT
06.06.25 VIR SEPA RECU OK 06.06.25 10,00
TOTAL DES OPERATIONS
`
	txs, err := p.Parse(NewTextSource(fixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("transactions: got %d, want 1 (amount-less row dropped): %+v", len(txs), txs)
	}
	if txs[0].Amount.String() != "10" {
		t.Errorf("amount: got %s, want 10", txs[0].Amount)
	}
}
