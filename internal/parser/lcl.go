package parser

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/comptaflow/releve-converter/internal/lexfr"
	"github.com/comptaflow/releve-converter/internal/models"
)

// LCLParser handles LCL (Crédit Lyonnais) statements.
//
// LCL preserves its table geometry, so parsing runs on positioned lines: the
// DEBIT/CREDIT header items give the column x anchors, each row carries a
// short operation date and a long value date, and the sign of an amount
// follows from which column it sits closest to. Card payments arrive twice
// (an aggregate RELEVE CB row plus a detail block); the detail block wins.
type LCLParser struct{}

func (p *LCLParser) BankID() models.BankID {
	return models.BankLCL
}

func (p *LCLParser) Detect(flatText string) bool {
	return containsAny(flatText, "CREDIT LYONNAIS", "LCL.FR")
}

var (
	lclPeriodRe   = regexp.MustCompile(`(?i)du (\d{2}/\d{2}/\d{4})`)
	lclPageRe     = regexp.MustCompile(`PAGE \d`)
	lclCardLineRe = regexp.MustCompile(`LE (\d{2}/\d{2})`)

	lclIgnoreMarkers = []string{
		"SOLDE INTERMEDIAIRE",
		"SOLDE EN EUROS",
		"TOTAUX",
		"SOUS TOTAL",
		"RELEVE DE COMPTE",
		"MONTANT COMPTABILISE",
		"CREDIT LYONNAIS",
		"RELEVE D'IDENTITE",
	}
)

func (p *LCLParser) Parse(src *Source) ([]models.Transaction, error) {
	lines, err := src.Lines()
	if err != nil {
		return nil, err
	}

	var debitX, creditX float64
	haveCols := false
	period := p.periodStart(lines)
	section := ""

	var txs []models.Transaction

	for _, line := range lines {
		upper := strings.ToUpper(line.Text)

		if strings.Contains(upper, "DATE") && strings.Contains(upper, "LIBELLE") && strings.Contains(upper, "VALEUR") {
			for _, it := range line.Items {
				itUpper := strings.ToUpper(it.Text)
				if strings.Contains(itUpper, "DEBIT") || strings.Contains(itUpper, "DÉBIT") {
					debitX = it.X
					haveCols = true
				}
				if strings.Contains(itUpper, "CREDIT") || strings.Contains(itUpper, "CRÉDIT") {
					creditX = it.X
					haveCols = true
				}
			}
			continue
		}

		if strings.Contains(upper, "ANCIEN SOLDE") {
			if tx, ok := p.ancienSolde(line, haveCols, debitX, creditX, period); ok {
				txs = append(txs, tx)
			}
			continue
		}

		if containsAny(upper, lclIgnoreMarkers...) || lclPageRe.MatchString(upper) {
			continue
		}

		if s := lclSectionFor(upper); s != "" {
			section = s
			continue
		}

		if tx, ok := p.parseRow(line, haveCols, debitX, creditX, period, section); ok {
			txs = append(txs, tx)
		}
	}

	txs = p.cardDetailPass(lines, txs, period)
	return txs, nil
}

// periodStart finds the statement period opening date ("du dd/mm/yyyy");
// rows carrying only short dates resolve their year against it.
func (p *LCLParser) periodStart(lines []models.PdfLine) time.Time {
	for _, line := range lines {
		if m := lclPeriodRe.FindStringSubmatch(line.Text); m != nil {
			if d, err := lexfr.ParseDateFRLong(m[1]); err == nil {
				return d
			}
		}
	}
	return time.Now().UTC().Truncate(24 * time.Hour)
}

// parseRow resolves the date roles of a candidate line and builds the
// transaction. Lines without both an operation-date item and a long
// value-date item are not rows.
func (p *LCLParser) parseRow(line models.PdfLine, haveCols bool, debitX, creditX float64, period time.Time, section string) (models.Transaction, bool) {
	var shorts, longs []int
	for i, it := range line.Items {
		t := strings.TrimSpace(it.Text)
		switch {
		case lexfr.DateShortItemRe.MatchString(t):
			shorts = append(shorts, i)
		case lexfr.DateLongItemRe.MatchString(t):
			longs = append(longs, i)
		}
	}

	opIdx := -1
	if len(shorts) > 0 {
		opIdx = shorts[0]
	} else if len(longs) > 0 {
		opIdx = longs[0]
	}
	if opIdx < 0 || len(longs) == 0 {
		return models.Transaction{}, false
	}
	valIdx := longs[len(longs)-1]
	if valIdx == opIdx {
		return models.Transaction{}, false
	}

	amtIdx := rightmostAmountItem(line.Items)
	if amtIdx < 0 {
		return models.Transaction{}, false
	}
	amtItem := line.Items[amtIdx]

	amount, err := lexfr.ParseAmountFR(amtItem.Text)
	if err != nil {
		return models.Transaction{}, false
	}
	amount = amount.Abs()
	if lclNegative(amtItem, haveCols, debitX, creditX, section) {
		amount = amount.Neg()
	}

	opItem := line.Items[opIdx]
	valItem := line.Items[valIdx]

	dateOp, err := p.resolveDate(strings.TrimSpace(opItem.Text), period)
	if err != nil {
		return models.Transaction{}, false
	}

	var labelParts []string
	for _, it := range line.Items {
		if it.X > opItem.X && it.X < valItem.X-1 {
			labelParts = append(labelParts, it.Text)
		}
	}
	label := lexfr.NormalizeSpaces(strings.Join(labelParts, " "))
	if label == "" {
		label = lexfr.NormalizeSpaces(line.Text)
	}

	tx := models.Transaction{
		DateOperation: dateOp,
		Label:         label,
		Amount:        amount,
		RawLine:       line.Text,
		Page:          line.Page,
		Section:       section,
	}
	if dateVal, err := lexfr.ParseDateFR(strings.TrimSpace(valItem.Text)); err == nil {
		tx.DateValeur = &dateVal
	}
	return tx, true
}

// ancienSolde emits the opening-balance row.
func (p *LCLParser) ancienSolde(line models.PdfLine, haveCols bool, debitX, creditX float64, period time.Time) (models.Transaction, bool) {
	amtIdx := rightmostAmountItem(line.Items)
	if amtIdx < 0 {
		return models.Transaction{}, false
	}
	amtItem := line.Items[amtIdx]
	amount, err := lexfr.ParseAmountFR(amtItem.Text)
	if err != nil {
		return models.Transaction{}, false
	}
	amount = amount.Abs()

	negative := true
	if haveCols && !strings.Contains(amtItem.Text, "-") {
		negative = math.Abs(amtItem.X-creditX) >= math.Abs(amtItem.X-debitX)
	}
	if negative {
		amount = amount.Neg()
	}

	date := period
	for _, it := range line.Items {
		if lexfr.DateShortItemRe.MatchString(strings.TrimSpace(it.Text)) {
			if d, err := lexfr.ParseShortDate(it.Text, period.Year()); err == nil {
				date = d
			}
			break
		}
	}

	return models.Transaction{
		DateOperation: date,
		Label:         "ANCIEN SOLDE",
		Amount:        amount,
		RawLine:       line.Text,
		Page:          line.Page,
	}, true
}

// cardDetailPass re-scans for per-payment card detail rows ("LE dd/mm …")
// once a MONTANT COMPTABILISE marker proves the statement has a detail
// block. When it does, earlier RELEVE CB aggregate rows are dropped even if
// the pass emitted nothing.
func (p *LCLParser) cardDetailPass(lines []models.PdfLine, txs []models.Transaction, period time.Time) []models.Transaction {
	found := false
	var cardValue *time.Time
	for _, line := range lines {
		if !strings.Contains(strings.ToUpper(line.Text), "MONTANT COMPTABILISE") {
			continue
		}
		found = true
		if m := lexfr.DateLongRe.FindString(line.Text); m != "" {
			if d, err := lexfr.ParseDateFRLong(m); err == nil {
				cardValue = &d
			}
		}
		break
	}
	if !found {
		return txs
	}

	kept := txs[:0]
	for _, tx := range txs {
		if strings.Contains(strings.ToUpper(tx.Label), "RELEVE CB") {
			continue
		}
		kept = append(kept, tx)
	}
	txs = kept

	for _, line := range lines {
		upper := strings.ToUpper(line.Text)
		if strings.Contains(upper, "DATE") && strings.Contains(upper, "LIBELLE") {
			continue
		}
		if containsAny(upper, "TOTAUX", "SOUS TOTAL", "MONTANT COMPTABILISE") {
			continue
		}
		m := lclCardLineRe.FindStringSubmatchIndex(upper)
		if m == nil {
			continue
		}
		if lexfr.DateLongRe.MatchString(line.Text) {
			continue
		}
		tail := line.Text[m[1]:]
		amounts := lexfr.FindAmountsInLine(tail)
		if len(amounts) == 0 {
			continue
		}
		amount, err := lexfr.ParseAmountFR(amounts[0].Text)
		if err != nil {
			continue
		}
		date, err := lexfr.ParseShortDate(upper[m[2]:m[3]], period.Year())
		if err != nil {
			continue
		}

		label := lexfr.NormalizeSpaces(tail[:amounts[0].Start])
		if label == "" {
			label = lexfr.NormalizeSpaces(line.Text)
		}

		tx := models.Transaction{
			DateOperation: date,
			Label:         label,
			Amount:        amount.Abs().Neg(),
			RawLine:       line.Text,
			Page:          line.Page,
			Section:       "PAIEMENTS PAR CARTE",
		}
		tx.DateValeur = cardValue
		txs = append(txs, tx)
	}
	return txs
}

// resolveDate parses either a short (dd/mm against the period year) or a
// full date token.
func (p *LCLParser) resolveDate(token string, period time.Time) (time.Time, error) {
	if lexfr.DateShortItemRe.MatchString(token) {
		return lexfr.ParseShortDate(token, period.Year())
	}
	return lexfr.ParseDateFR(token)
}

// lclNegative decides the sign of a row amount: an explicit minus wins, then
// column proximity, then the section hint.
func lclNegative(item models.LineItem, haveCols bool, debitX, creditX float64, section string) bool {
	if strings.Contains(item.Text, "-") || strings.Contains(item.Text, "−") {
		return true
	}
	if haveCols {
		return math.Abs(item.X-creditX) >= math.Abs(item.X-debitX)
	}
	return section != ""
}

func lclSectionFor(upper string) string {
	switch {
	case strings.Contains(upper, "PAIEMENTS PAR CARTE"):
		return "PAIEMENTS PAR CARTE"
	case strings.Contains(upper, "CHEQUES EMIS"):
		return "CHEQUES EMIS"
	case strings.Contains(upper, "CHEQUES"):
		return "CHEQUES"
	}
	return ""
}

// rightmostAmountItem returns the index of the amount-shaped item with the
// largest x, or -1.
func rightmostAmountItem(items []models.LineItem) int {
	best := -1
	for i, it := range items {
		if !lexfr.AmountItemRe.MatchString(strings.TrimSpace(it.Text)) {
			continue
		}
		if best < 0 || it.X > items[best].X {
			best = i
		}
	}
	return best
}
