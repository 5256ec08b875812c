package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is the canonical output record of a statement parse.
// Amounts are signed: positive = credit, negative = debit, two fractional
// digits of EUR.
type Transaction struct {
	DateOperation time.Time       `json:"dateOperation"`
	DateValeur    *time.Time      `json:"dateValeur,omitempty"`
	Label         string          `json:"label"`
	Amount        decimal.Decimal `json:"amount"`

	// Optional provenance metadata.
	RawLine string `json:"rawLine,omitempty"`
	Page    int    `json:"page,omitempty"`
	Section string `json:"section,omitempty"`
}

// AmountCents returns the amount in integer cents. Accumulation across
// transactions happens on this value, never on floating sums.
func (t Transaction) AmountCents() int64 {
	return t.Amount.Shift(2).Round(0).IntPart()
}

// BankID identifies a supported statement issuer.
type BankID string

const (
	BankBNP             BankID = "bnp"
	BankLCL             BankID = "lcl"
	BankBanquePopulaire BankID = "banque-populaire"
	BankQonto           BankID = "qonto"
	BankCIC             BankID = "cic"
	BankSocieteGenerale BankID = "societe-generale"
)

// LineItem is one positioned text fragment within a reconstructed row.
type LineItem struct {
	Text string  `json:"text"`
	X    float64 `json:"x"`
}

// PdfLine is one visual row of one PDF page: the joined text plus the
// originating fragments with their x offsets, sorted ascending by x.
type PdfLine struct {
	Text  string     `json:"text"`
	Items []LineItem `json:"items"`
	Page  int        `json:"page"`
}
