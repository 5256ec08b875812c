package parser

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/comptaflow/releve-converter/internal/lexfr"
	"github.com/comptaflow/releve-converter/internal/models"
)

// BNPParser handles BNP Paribas statements.
//
// BNP PDFs flatten to a single text stream: the transaction table sits
// between a "DATE COMPTABLE" header and a totals/solde footer, rows start
// with a dd.mm.yy date and may continue over several lines. Debit vs credit
// is carried by the surrounding section heading and by keyword hints, not by
// geometry.
type BNPParser struct{}

func (p *BNPParser) BankID() models.BankID {
	return models.BankBNP
}

func (p *BNPParser) Detect(flatText string) bool {
	return strings.Contains(flatText, "BNP PARIBAS")
}

// bnpSections are the table subheadings that group rows by operation kind.
var bnpSections = []string{
	"VIREMENTS RECUS",
	"VIREMENTS EMIS",
	"PRELEVEMENTS, AMORTISSEMENTS DE PRETS",
	"AUTRES OPERATIONS DEBIT",
	"REMISES DE CARTES",
	"CHEQUES EMIS",
	"PAIEMENTS PAR CARTES",
}

var (
	bnpRowStartRe   = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{2}\s+`)
	bnpDateLetterRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{2}\s+\p{L}`)
	bnpPageRe       = regexp.MustCompile(`P\. ?\d+/\d+`)
	bnpNoiseRe      = regexp.MustCompile(`^(SOUS[- ]?TOTAL|SOLDE|TOTAL)`)
	bnpColSplitRe   = regexp.MustCompile(`\s{2,}`)
	bnpMultiNLRe    = regexp.MustCompile(`\n{2,}`)
)

var (
	bnpCreditHints = []string{"RECUS", "CREDIT", "VERSEMENT", "REMISE", "INTERETS", "REMBOURSEMENT"}
	bnpDebitHints  = []string{"EMIS", "PRELEVEMENTS", "DEBIT", "AMORTISSEMENTS", "FRAIS", "CARTE", "RETRAIT", "CHEQUES EMIS", "PAIEMENTS PAR CARTES"}

	bnpDebitSections  = []string{"CHEQUES EMIS", "PAIEMENTS PAR CARTES", "PRELEVEMENTS", "VIREMENTS EMIS", "AUTRES OPERATIONS DEBIT"}
	bnpCreditSections = []string{"REMISES DE CARTES", "VIREMENTS RECUS"}
)

func (p *BNPParser) Parse(src *Source) ([]models.Transaction, error) {
	text, err := src.FlatText()
	if err != nil {
		return nil, err
	}
	return p.parseText(text)
}

func (p *BNPParser) parseText(text string) ([]models.Transaction, error) {
	table, err := p.sliceTable(text)
	if err != nil {
		return nil, err
	}

	lines := p.splitRows(table)

	var txs []models.Transaction
	section := ""
	var row []string

	flush := func() {
		if len(row) == 0 {
			return
		}
		if tx, ok := p.buildTransaction(row, section); ok {
			txs = append(txs, tx)
		}
		row = nil
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if bnpRowStartRe.MatchString(trimmed) {
			flush()
			row = []string{line}
			continue
		}
		if s := bnpSectionFor(trimmed); s != "" {
			flush()
			section = s
			continue
		}
		if bnpNoiseRe.MatchString(trimmed) || bnpPageRe.MatchString(trimmed) {
			flush()
			continue
		}
		if lexfr.IsUppercaseTitle(trimmed) && !lexfr.DateDotRe.MatchString(trimmed) {
			flush()
			section = trimmed
			continue
		}
		if row != nil {
			row = append(row, trimmed)
		}
	}
	flush()

	return txs, nil
}

// sliceTable cuts the text down to the transaction table body.
func (p *BNPParser) sliceTable(text string) (string, error) {
	_, afterStart := indexIgnoringSpaces(text, "DATE COMPTABLE")
	if afterStart < 0 {
		return "", ErrUnrecognizedFormat
	}
	table := text[afterStart:]

	if end := firstIndexOfAny(table,
		"TOTAL DES OPERATIONS",
		"SOLDE CREDITEUR",
		"SOLDE DÉBITEUR",
		"SOLDE AU",
		"ANCIEN SOLDE",
	); end >= 0 {
		table = table[:end]
	}
	return table, nil
}

// splitRows re-inserts the line structure the flat extraction lost: a break
// before every row date, before section headings and before boilerplate.
func (p *BNPParser) splitRows(table string) []string {
	out := bnpDateLetterRe.ReplaceAllStringFunc(table, func(m string) string {
		return "\n" + m
	})
	for _, s := range bnpSections {
		out = strings.ReplaceAll(out, s, "\n"+s+"\n")
	}
	for _, b := range []string{"SOUS-TOTAL", "SOUS TOTAL", "SOLDE"} {
		out = strings.ReplaceAll(out, b, "\n"+b)
	}
	out = bnpPageRe.ReplaceAllStringFunc(out, func(m string) string {
		return "\n" + m + "\n"
	})
	out = bnpMultiNLRe.ReplaceAllString(out, "\n")
	return strings.Split(out, "\n")
}

// buildTransaction turns an accumulated row (first line + continuations)
// into a transaction. Rows without a recognizable amount are dropped.
func (p *BNPParser) buildTransaction(row []string, section string) (models.Transaction, bool) {
	first := row[0]

	dates := lexfr.DateDotRe.FindAllStringIndex(first, -1)
	if len(dates) == 0 {
		return models.Transaction{}, false
	}
	dateOp, err := lexfr.ParseDateFR(first[dates[0][0]:dates[0][1]])
	if err != nil {
		return models.Transaction{}, false
	}
	var valeur *string
	if len(dates) >= 2 {
		v := first[dates[1][0]:dates[1][1]]
		valeur = &v
	}

	amounts := p.findAmounts(first, dates)
	if len(amounts) == 0 {
		return models.Transaction{}, false
	}

	var amount decimal.Decimal
	if len(amounts) >= 2 {
		// Two columns present: the last match is the credit column. The
		// debit assignment is overwritten by the credit value, matching the
		// historical behaviour.
		amount, err = lexfr.ParseAmountFR(amounts[len(amounts)-1])
		if err != nil {
			return models.Transaction{}, false
		}
		amount = amount.Abs()
	} else {
		amount, err = lexfr.ParseAmountFR(amounts[0])
		if err != nil {
			return models.Transaction{}, false
		}
		amount = amount.Abs()
		if bnpInferSign(first, section) < 0 {
			amount = amount.Neg()
		}
	}

	// Section type takes over once the table context is unambiguous.
	upperSection := strings.ToUpper(section)
	if containsAny(upperSection, bnpDebitSections...) {
		amount = amount.Abs().Neg()
	} else if containsAny(upperSection, bnpCreditSections...) {
		amount = amount.Abs()
	}

	label := p.extractLabel(first, dates, valeur)
	for _, cont := range row[1:] {
		label = strings.TrimSpace(label + " " + cont)
	}
	label = lexfr.NormalizeSpaces(label)
	if label == "" {
		label = lexfr.NormalizeSpaces(first)
	}

	tx := models.Transaction{
		DateOperation: dateOp,
		Label:         label,
		Amount:        amount,
		RawLine:       strings.Join(row, " "),
		Section:       section,
	}
	if valeur != nil {
		if d, err := lexfr.ParseDateFR(*valeur); err == nil {
			tx.DateValeur = &d
		}
	}
	return tx, true
}

// findAmounts runs the three extraction strategies in order: column split on
// wide space runs, amount scan with dates removed, then amounts after the
// value-date token.
func (p *BNPParser) findAmounts(line string, dates [][]int) []string {
	parts := bnpColSplitRe.Split(strings.TrimSpace(line), -1)
	if len(parts) >= 4 {
		var cols []string
		for _, c := range parts[2:4] {
			c = strings.TrimSpace(c)
			if lexfr.AmountItemRe.MatchString(c) {
				cols = append(cols, c)
			}
		}
		if len(cols) > 0 {
			return cols
		}
	}

	noDates := lexfr.DateDotRe.ReplaceAllString(line, " ")
	if ms := lexfr.FindAmountsInLine(noDates); len(ms) > 0 {
		out := make([]string, len(ms))
		for i, m := range ms {
			out[i] = m.Text
		}
		return out
	}

	if len(dates) >= 2 {
		tail := line[dates[1][1]:]
		if ms := lexfr.FindAmountsInLine(tail); len(ms) > 0 {
			out := make([]string, len(ms))
			for i, m := range ms {
				out[i] = m.Text
			}
			return out
		}
	}
	return nil
}

// extractLabel takes the text between the operation date and the value date;
// without a value date, everything after the operation date minus any
// remaining date tokens.
func (p *BNPParser) extractLabel(line string, dates [][]int, valeur *string) string {
	if valeur != nil && len(dates) >= 2 {
		return lexfr.NormalizeSpaces(line[dates[0][1]:dates[1][0]])
	}
	tail := line[dates[0][1]:]
	tail = lexfr.DateDotRe.ReplaceAllString(tail, " ")
	// Keep only the text part: cut at the first amount.
	if ms := lexfr.FindAmountsInLine(tail); len(ms) > 0 {
		tail = tail[:ms[0].Start]
	}
	return lexfr.NormalizeSpaces(tail)
}

// bnpInferSign resolves debit vs credit from keyword hints. Section hints
// outrank line hints; unresolved rows default to debit.
func bnpInferSign(line, section string) int {
	if s := bnpHintSign(section); s != 0 {
		return s
	}
	if s := bnpHintSign(line); s != 0 {
		return s
	}
	return -1
}

func bnpHintSign(s string) int {
	upper := strings.ToUpper(s)
	if containsAny(upper, bnpCreditHints...) {
		return 1
	}
	if containsAny(upper, bnpDebitHints...) {
		return -1
	}
	return 0
}

// bnpSectionFor matches a line against the known section headings.
func bnpSectionFor(line string) string {
	upper := strings.ToUpper(line)
	for _, s := range bnpSections {
		if strings.Contains(upper, s) {
			return s
		}
	}
	return ""
}
