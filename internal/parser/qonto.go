package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/comptaflow/releve-converter/internal/lexfr"
	"github.com/comptaflow/releve-converter/internal/models"
)

// QontoParser handles Qonto statements. Qonto rows flatten to
// "dd/mm LABEL ±1 234,56 EUR"; the sign is always explicit and the year
// comes from the "Du dd/mm/yyyy" period header.
type QontoParser struct{}

func (p *QontoParser) BankID() models.BankID {
	return models.BankQonto
}

func (p *QontoParser) Detect(flatText string) bool {
	return containsAny(flatText, "QONTO", "QNTOFRP")
}

var (
	qontoYearRe   = regexp.MustCompile(`(?i)du (\d{2}/\d{2}/(\d{4}))`)
	qontoAmountRe = regexp.MustCompile(`([+-])\s*(\d(?:[\d \x{00A0}.,]*\d)?)\s*EUR`)
	qontoStartRe  = regexp.MustCompile(`^\d{2}/\d{2}(?:\s|$)`)
)

func (p *QontoParser) Parse(src *Source) ([]models.Transaction, error) {
	text, err := src.FlatText()
	if err != nil {
		return nil, err
	}
	return p.parseText(text)
}

func (p *QontoParser) parseText(text string) ([]models.Transaction, error) {
	year := time.Now().UTC().Year()
	if m := qontoYearRe.FindStringSubmatch(text); m != nil {
		if y, err := strconv.Atoi(m[2]); err == nil {
			year = y
		}
	}

	var txs []models.Transaction
	for _, line := range p.splitRows(text) {
		if tx, ok := p.parseRow(line, year); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

// splitRows inserts a break before every standalone dd/mm token (a dd/mm
// that is not the head of a full dd/mm/yyyy date) and normalizes the pieces.
func (p *QontoParser) splitRows(text string) []string {
	var b strings.Builder
	for i := 0; i < len(text); i++ {
		if bpShortDateAt(text, i) &&
			(i == 0 || (!isDigit(text[i-1]) && text[i-1] != '/')) &&
			i+5 < len(text) && isSpaceByte(text[i+5]) {
			b.WriteByte('\n')
		}
		b.WriteByte(text[i])
	}

	var lines []string
	for _, raw := range strings.Split(b.String(), "\n") {
		line := lexfr.NormalizeSpaces(raw)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func isSpaceByte(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == 0xC2
}

func (p *QontoParser) parseRow(line string, year int) (models.Transaction, bool) {
	if !qontoStartRe.MatchString(line) {
		return models.Transaction{}, false
	}
	if strings.HasPrefix(line, "ENVY DE LIVE") || strings.Contains(strings.ToUpper(line), "DATE DE VALEUR") {
		return models.Transaction{}, false
	}

	m := qontoAmountRe.FindStringSubmatchIndex(line)
	if m == nil {
		return models.Transaction{}, false
	}

	amount, err := lexfr.ParseAmountFR(line[m[4]:m[5]])
	if err != nil {
		return models.Transaction{}, false
	}
	amount = amount.Abs()
	if line[m[2]:m[3]] == "-" {
		amount = amount.Neg()
	}

	date, err := lexfr.ParseShortDate(line[:5], year)
	if err != nil {
		return models.Transaction{}, false
	}

	label := lexfr.NormalizeSpaces(line[5:m[0]])
	if label == "" {
		label = lexfr.NormalizeSpaces(line)
	}

	dateVal := date
	return models.Transaction{
		DateOperation: date,
		DateValeur:    &dateVal,
		Label:         label,
		Amount:        amount,
		RawLine:       line,
	}, true
}
