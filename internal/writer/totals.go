// Package writer emits the parsed transaction list as a spreadsheet (XLSX)
// or CSV, with debit/credit totals accumulated in integer cents.
package writer

import (
	"github.com/shopspring/decimal"

	"github.com/comptaflow/releve-converter/internal/models"
)

// Totals sums debits and credits in integer cents. Floating accumulation
// drifts over long statements; cents do not.
func Totals(txs []models.Transaction) (debitCents, creditCents int64) {
	for _, tx := range txs {
		cents := tx.AmountCents()
		if cents < 0 {
			debitCents += -cents
		} else {
			creditCents += cents
		}
	}
	return debitCents, creditCents
}

// centsToDecimal renders an integer cent total back to a two-decimal value.
func centsToDecimal(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// debitCredit splits a signed amount into its column values: debits land in
// the DEBIT column as a positive value, credits in CREDIT.
func debitCredit(tx models.Transaction) (debit, credit *decimal.Decimal) {
	if tx.Amount.IsNegative() {
		d := tx.Amount.Abs()
		return &d, nil
	}
	c := tx.Amount
	return nil, &c
}
