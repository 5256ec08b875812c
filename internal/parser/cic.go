package parser

import (
	"regexp"
	"strings"

	"github.com/comptaflow/releve-converter/internal/lexfr"
	"github.com/comptaflow/releve-converter/internal/models"
)

// CICParser handles CIC statements. It needs positioned input: the
// debit/credit decision is purely geometric (which side of the column
// midpoint the amount item sits on) and the flat text stream carries no
// usable column structure.
type CICParser struct{}

func (p *CICParser) BankID() models.BankID {
	return models.BankCIC
}

// Detect is deliberately broad; the registry runs it last so the more
// specific issuers claim their documents first.
func (p *CICParser) Detect(flatText string) bool {
	return containsAny(flatText, "CREDIT INDUSTRIEL ET COMMERCIAL", "CIC")
}

// cicDefaultMidX is the debit/credit column midpoint used when the statement
// carries no explicit header line.
const cicDefaultMidX = 455.0

var (
	cicPageRe = regexp.MustCompile(`PAGE \d`)

	cicNoiseMarkers = []string{
		"RELEVE ET INFORMATIONS BANCAIRES",
		"CREDIT INDUSTRIEL ET COMMERCIAL",
		"CIC ",
		"VOTRE CONSEILLER",
		"C/C ",
		"KV.",
		"IBAN",
		"BIC",
		"SOLDE ",
		"TOTAL DES MOUVEMENTS",
		"TOTAL PRELEVE ",
		"DATE DATE VALEUR",
		"DATE COMMERCE VILLE",
	}
)

// cicRow accumulates one open transaction row across continuation lines.
type cicRow struct {
	tx    models.Transaction
	label []string
}

func (p *CICParser) Parse(src *Source) ([]models.Transaction, error) {
	lines, err := src.Lines()
	if err != nil {
		return nil, err
	}

	var debitX, creditX float64
	haveCols := false
	skipCard := false

	var txs []models.Transaction
	var open *cicRow

	flush := func() {
		if open == nil {
			return
		}
		open.tx.Label = lexfr.NormalizeSpaces(strings.Join(open.label, " "))
		if open.tx.Label == "" {
			open.tx.Label = lexfr.NormalizeSpaces(open.tx.RawLine)
		}
		txs = append(txs, open.tx)
		open = nil
	}

	for _, line := range lines {
		upper := strings.ToUpper(line.Text)

		if strings.Contains(upper, "DATE") && strings.Contains(upper, "DEBIT") && strings.Contains(upper, "CREDIT") {
			for _, it := range line.Items {
				itUpper := strings.ToUpper(it.Text)
				if strings.Contains(itUpper, "DEBIT") {
					debitX = it.X
					haveCols = true
				}
				if strings.Contains(itUpper, "CREDIT") {
					creditX = it.X
				}
			}
			skipCard = false
			continue
		}

		if strings.Contains(upper, "RELEVE DE VOTRE CARTE") {
			flush()
			skipCard = true
			continue
		}
		if skipCard {
			continue
		}

		if containsAny(upper, cicNoiseMarkers...) || cicPageRe.MatchString(upper) {
			continue
		}

		var dateIdx []int
		for i, it := range line.Items {
			if lexfr.DateLongItemRe.MatchString(strings.TrimSpace(it.Text)) {
				dateIdx = append(dateIdx, i)
			}
		}
		amtIdx := rightmostAmountItem(line.Items)

		if len(dateIdx) >= 2 && amtIdx >= 0 {
			flush()
			row, ok := p.startRow(line, dateIdx, amtIdx, haveCols, debitX, creditX)
			if ok {
				open = row
			}
			continue
		}

		if open != nil {
			open.label = append(open.label, line.Text)
			open.tx.RawLine += " " + line.Text
		}
	}
	flush()

	if len(txs) == 0 {
		return nil, ErrUnrecognizedFormat
	}
	return txs, nil
}

func (p *CICParser) startRow(line models.PdfLine, dateIdx []int, amtIdx int, haveCols bool, debitX, creditX float64) (*cicRow, bool) {
	opItem := line.Items[dateIdx[0]]
	valItem := line.Items[dateIdx[1]]
	amtItem := line.Items[amtIdx]

	dateOp, err := lexfr.ParseDateFR(strings.TrimSpace(opItem.Text))
	if err != nil {
		return nil, false
	}
	amount, err := lexfr.ParseAmountFR(amtItem.Text)
	if err != nil {
		return nil, false
	}
	amount = amount.Abs()

	mid := cicDefaultMidX
	if haveCols && creditX > 0 {
		mid = (debitX + creditX) / 2
	}
	if amtItem.X < mid {
		amount = amount.Neg()
	}

	var labelParts []string
	for _, it := range line.Items {
		if it.X > valItem.X && it.X < amtItem.X {
			labelParts = append(labelParts, it.Text)
		}
	}
	label := lexfr.NormalizeSpaces(strings.Join(labelParts, " "))
	if label == "" {
		stripped := line.Text
		stripped = strings.Replace(stripped, opItem.Text, " ", 1)
		stripped = strings.Replace(stripped, valItem.Text, " ", 1)
		stripped = strings.Replace(stripped, amtItem.Text, " ", 1)
		label = lexfr.NormalizeSpaces(stripped)
	}

	tx := models.Transaction{
		DateOperation: dateOp,
		Label:         label,
		Amount:        amount,
		RawLine:       line.Text,
		Page:          line.Page,
	}
	if dateVal, err := lexfr.ParseDateFR(strings.TrimSpace(valItem.Text)); err == nil {
		tx.DateValeur = &dateVal
	}

	return &cicRow{tx: tx, label: []string{label}}, true
}
