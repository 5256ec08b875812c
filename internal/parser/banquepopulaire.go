package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/comptaflow/releve-converter/internal/lexfr"
	"github.com/comptaflow/releve-converter/internal/models"
)

// BanquePopulaireParser handles Banque Populaire statements.
//
// BP extractions glue the header tokens together ("DATECOMPTA…"), so the
// table anchor is matched whitespace-insensitively. Rows carry up to three
// short dd/mm dates (compta, opération, valeur) and resolve their year from
// the "au dd/mm/yyyy" period line.
type BanquePopulaireParser struct{}

func (p *BanquePopulaireParser) BankID() models.BankID {
	return models.BankBanquePopulaire
}

func (p *BanquePopulaireParser) Detect(flatText string) bool {
	return strings.Contains(flatText, "BANQUE POPULAIRE")
}

var (
	bpYearRe    = regexp.MustCompile(`(?i)au (\d{2}/\d{2}/(\d{4}))`)
	bpNoiseRe   = regexp.MustCompile(`SOLDE CREDITEUR|SOLDE DEBITEUR|TOTAL DES MOUVEMENTS`)
	bpLigature  = strings.NewReplacer("ﬀ", "", "ﬁ", "", "ﬂ", "", "ﬃ", "", "ﬄ", "", "€", "", "EUR", "")
)

func (p *BanquePopulaireParser) Parse(src *Source) ([]models.Transaction, error) {
	text, err := src.FlatText()
	if err != nil {
		return nil, err
	}
	return p.parseText(text)
}

func (p *BanquePopulaireParser) parseText(text string) ([]models.Transaction, error) {
	_, afterStart := indexIgnoringSpaces(text, "DATECOMPTA")
	if afterStart < 0 {
		return nil, ErrUnrecognizedFormat
	}
	table := text[afterStart:]
	if end := firstIndexOfAny(table,
		"TOTAL DES MOUVEMENTS",
		"DETAIL DE VOS MOUVEMENTS",
		"DETAIL DES MOUVEMENTS",
	); end >= 0 {
		table = table[:end]
	}

	year := p.inferYear(text)
	normalized := lexfr.NormalizeSpaces(table)

	var txs []models.Transaction
	anchors := bpRowAnchors(normalized)
	for i, start := range anchors {
		end := len(normalized)
		if i+1 < len(anchors) {
			end = anchors[i+1]
		}
		if tx, ok := p.parseRow(normalized[start:end], year); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// inferYear reads the statement closing date; rows only carry dd/mm.
func (p *BanquePopulaireParser) inferYear(text string) int {
	if m := bpYearRe.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[2]); err == nil {
			return y
		}
	}
	return time.Now().UTC().Year()
}

// bpRowAnchors finds the offsets of every dd/mm token followed by
// whitespace and then the start of a label. A date followed by another
// dd/mm is an interior date of the same row, and a date followed by a
// digit is the value date sitting in front of its amount; neither starts
// a new row.
func bpRowAnchors(s string) []int {
	var anchors []int
	for _, d := range bpShortDates(s) {
		i := d[1]
		for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
			i++
		}
		if i >= len(s) {
			continue
		}
		if bpShortDateAt(s, i) {
			continue
		}
		c := s[i]
		if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
			anchors = append(anchors, d[0])
		}
	}
	return anchors
}

// bpShortDates returns the spans of standalone dd/mm tokens: not preceded by
// a digit or slash, not followed by a slash (which would make a long date).
func bpShortDates(s string) [][]int {
	var out [][]int
	for i := 0; i+5 <= len(s); i++ {
		if !bpShortDateAt(s, i) {
			continue
		}
		if i > 0 && (isDigit(s[i-1]) || s[i-1] == '/') {
			continue
		}
		out = append(out, []int{i, i + 5})
	}
	return out
}

func bpShortDateAt(s string, i int) bool {
	if i+5 > len(s) {
		return false
	}
	if !(isDigit(s[i]) && isDigit(s[i+1]) && s[i+2] == '/' && isDigit(s[i+3]) && isDigit(s[i+4])) {
		return false
	}
	if i+5 < len(s) && s[i+5] == '/' {
		return false
	}
	return true
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// parseRow decodes one anchored segment. Three short dates are expected
// (compta, opération, valeur); with two the value date repeats the operation
// date, with one all three collapse.
func (p *BanquePopulaireParser) parseRow(segment string, year int) (models.Transaction, bool) {
	upper := strings.ToUpper(segment)
	if bpNoiseRe.MatchString(upper) {
		return models.Transaction{}, false
	}

	dates := bpShortDates(segment)
	if len(dates) == 0 {
		return models.Transaction{}, false
	}
	compta := dates[0]
	operation := compta
	valeur := compta
	switch {
	case len(dates) >= 3:
		operation = dates[1]
		valeur = dates[2]
	case len(dates) == 2:
		operation = dates[1]
		valeur = operation
	}

	tail := segment[valeur[1]:]
	m := lexfr.SignedAmountRe.FindStringSubmatchIndex(tail)
	if m == nil {
		return models.Transaction{}, false
	}
	amount, err := lexfr.ParseAmountFR(tail[m[4]:m[5]])
	if err != nil {
		return models.Transaction{}, false
	}
	amount = amount.Abs()
	if m[2] >= 0 {
		amount = amount.Neg()
	}

	dateOp, err := lexfr.ParseShortDate(segment[operation[0]:operation[1]], year)
	if err != nil {
		return models.Transaction{}, false
	}
	dateVal, err := lexfr.ParseShortDate(segment[valeur[0]:valeur[1]], year)
	if err != nil {
		return models.Transaction{}, false
	}

	label := ""
	if operation[0] > compta[1] {
		label = lexfr.NormalizeSpaces(segment[compta[1]:operation[0]])
	}
	after := lexfr.NormalizeSpaces(bpLigature.Replace(tail[m[1]:]))
	if after != "" {
		label = lexfr.NormalizeSpaces(label + " " + after)
	}
	if label == "" {
		label = lexfr.NormalizeSpaces(segment[valeur[1] : valeur[1]+m[0]])
	}
	if label == "" {
		label = lexfr.NormalizeSpaces(segment)
	}

	return models.Transaction{
		DateOperation: dateOp,
		DateValeur:    &dateVal,
		Label:         label,
		Amount:        amount,
		RawLine:       segment,
	}, true
}
