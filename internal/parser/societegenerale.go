package parser

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/comptaflow/releve-converter/internal/lexfr"
	"github.com/comptaflow/releve-converter/internal/models"
)

// SocieteGeneraleParser handles Société Générale statements through two
// paths. The geometry path works on positioned lines: the débit/crédit
// header items (or, failing that, a density clustering of amount x
// positions) give the column anchors and each amount's side of the midpoint
// gives its sign. The text path re-segments the flat stream on
// value-date/operation-date pairs and falls back to keyword hints.
type SocieteGeneraleParser struct{}

func (p *SocieteGeneraleParser) BankID() models.BankID {
	return models.BankSocieteGenerale
}

func (p *SocieteGeneraleParser) Detect(flatText string) bool {
	return strings.Contains(flatText, "SOCIETE GENERALE")
}

var (
	sgDebitHeaderRe  = regexp.MustCompile(`(?i)d.?bit`)
	sgCreditHeaderRe = regexp.MustCompile(`(?i)cr.?dit`)
	sgDatePairRe     = regexp.MustCompile(`\d{2}/\d{2}/\d{4}\s+\d{2}/\d{2}/\d{4}`)

	sgCreditHints = []string{"REMISE CB", "VIR RECU", "REMISE CHEQUE"}
	sgDebitHints  = []string{"PRELEVEMENT", "VRST GAB", "VIR EUROPEEN EMIS", "VIR INSTANTANE EMIS", "DEBIT", "COTIS", "FRAIS", "ECHEANCE", "CHEQUE "}

	sgTextEndMarkers = []string{"SUITE >>>", "N° ADEME", "RELEVE DE COMPTE", "SOCIETE GENERALE", "PAGE "}
)

func (p *SocieteGeneraleParser) Parse(src *Source) ([]models.Transaction, error) {
	lines, err := src.Lines()
	if err != nil {
		if errors.Is(err, ErrUnsupportedInput) {
			return p.parseTextPath(src)
		}
		return nil, err
	}

	txs, err := p.parseGeometry(lines)
	if err != nil {
		if errors.Is(err, ErrUnrecognizedFormat) {
			return p.parseTextPath(src)
		}
		return nil, err
	}
	return txs, nil
}

func (p *SocieteGeneraleParser) parseTextPath(src *Source) ([]models.Transaction, error) {
	text, err := src.FlatText()
	if err != nil {
		return nil, err
	}
	return p.parseText(text)
}

// sgOpenRow accumulates one transaction row across continuation lines.
type sgOpenRow struct {
	tx      models.Transaction
	label   []string
	credits []decimal.Decimal
	debits  []decimal.Decimal
}

func (p *SocieteGeneraleParser) parseGeometry(lines []models.PdfLine) ([]models.Transaction, error) {
	start := -1
	for i, line := range lines {
		upper := strings.ToUpper(line.Text)
		if strings.Contains(upper, "DATE VALEUR") && strings.Contains(upper, "NATURE") {
			start = i
			break
		}
	}
	if start < 0 {
		return nil, ErrUnrecognizedFormat
	}

	var debitX, creditX float64
	haveCols := false
	for _, it := range lines[start].Items {
		if sgDebitHeaderRe.MatchString(it.Text) {
			debitX = it.X
			haveCols = true
		}
		if sgCreditHeaderRe.MatchString(it.Text) {
			creditX = it.X
		}
	}

	window := lines[start+1:]
	for i, line := range window {
		if containsAny(strings.ToUpper(line.Text), "TOTAUX DES MOUVEMENTS", "NOUVEAU SOLDE") {
			window = window[:i]
			break
		}
	}

	if !haveCols || creditX == 0 {
		debitX, creditX, haveCols = sgClusterColumns(window)
	}

	var txs []models.Transaction
	var open *sgOpenRow

	flush := func() {
		if open == nil {
			return
		}
		if tx, ok := p.closeRow(open, haveCols); ok {
			txs = append(txs, tx)
		}
		open = nil
	}

	for _, line := range window {
		dateIdx := sgRowDates(line)
		if len(dateIdx) >= 2 {
			flush()
			open = p.openRow(line, dateIdx, haveCols, debitX, creditX)
			continue
		}
		if open == nil {
			continue
		}
		for _, it := range line.Items {
			if lexfr.AmountItemRe.MatchString(strings.TrimSpace(it.Text)) {
				p.assignAmount(open, it, haveCols, debitX, creditX)
			} else {
				open.label = append(open.label, it.Text)
			}
		}
		open.tx.RawLine += " " + line.Text
	}
	flush()

	return txs, nil
}

// sgRowDates returns the indexes of the first two full-date items sitting in
// the date gutter (x < 70). The first is the value date, the second the
// operation date.
func sgRowDates(line models.PdfLine) []int {
	var idx []int
	for i, it := range line.Items {
		if it.X < 70 && lexfr.DateLongItemRe.MatchString(strings.TrimSpace(it.Text)) {
			idx = append(idx, i)
			if len(idx) == 2 {
				break
			}
		}
	}
	return idx
}

func (p *SocieteGeneraleParser) openRow(line models.PdfLine, dateIdx []int, haveCols bool, debitX, creditX float64) *sgOpenRow {
	valItem := line.Items[dateIdx[0]]
	opItem := line.Items[dateIdx[1]]

	dateOp, err := lexfr.ParseDateFR(strings.TrimSpace(opItem.Text))
	if err != nil {
		return nil
	}

	row := &sgOpenRow{}
	row.tx = models.Transaction{
		DateOperation: dateOp,
		RawLine:       line.Text,
		Page:          line.Page,
	}
	if dateVal, err := lexfr.ParseDateFR(strings.TrimSpace(valItem.Text)); err == nil {
		row.tx.DateValeur = &dateVal
	}

	for i, it := range line.Items {
		if i == dateIdx[0] || i == dateIdx[1] {
			continue
		}
		if lexfr.AmountItemRe.MatchString(strings.TrimSpace(it.Text)) {
			p.assignAmount(row, it, haveCols, debitX, creditX)
			continue
		}
		row.label = append(row.label, it.Text)
	}
	return row
}

// assignAmount files an amount item on the debit or credit side of the
// midpoint.
func (p *SocieteGeneraleParser) assignAmount(row *sgOpenRow, it models.LineItem, haveCols bool, debitX, creditX float64) {
	if row == nil {
		return
	}
	amount, err := lexfr.ParseAmountFR(it.Text)
	if err != nil {
		return
	}
	amount = amount.Abs()
	if haveCols {
		mid := (debitX + creditX) / 2
		if it.X >= mid {
			row.credits = append(row.credits, amount)
		} else {
			row.debits = append(row.debits, amount)
		}
		return
	}
	// No geometry: park on the debit side, the close step re-signs by hints.
	row.debits = append(row.debits, amount)
}

// closeRow picks the row amount: a credit-column amount wins over a debit
// one. Without column geometry the sign falls back to keyword hints.
func (p *SocieteGeneraleParser) closeRow(row *sgOpenRow, haveCols bool) (models.Transaction, bool) {
	if row == nil {
		return models.Transaction{}, false
	}
	label := lexfr.NormalizeSpaces(strings.Join(row.label, " "))
	if label == "" {
		label = lexfr.NormalizeSpaces(row.tx.RawLine)
	}
	row.tx.Label = label

	switch {
	case len(row.credits) > 0:
		row.tx.Amount = row.credits[len(row.credits)-1]
	case len(row.debits) > 0:
		amount := row.debits[len(row.debits)-1]
		if haveCols {
			row.tx.Amount = amount.Neg()
		} else if sgHintSign(row.tx.RawLine) > 0 {
			row.tx.Amount = amount
		} else {
			row.tx.Amount = amount.Neg()
		}
	default:
		return models.Transaction{}, false
	}
	return row.tx, true
}

// sgClusterColumns recovers the column anchors without a header: amount item
// x positions are bucketed to 5 px, the two densest buckets are the columns,
// and the larger x is the credit side.
func sgClusterColumns(window []models.PdfLine) (debitX, creditX float64, ok bool) {
	counts := make(map[float64]int)
	for _, line := range window {
		for _, it := range line.Items {
			if lexfr.AmountItemRe.MatchString(strings.TrimSpace(it.Text)) {
				bucket := math.Round(it.X/5) * 5
				counts[bucket]++
			}
		}
	}
	if len(counts) < 2 {
		return 0, 0, false
	}

	buckets := make([]float64, 0, len(counts))
	for b := range counts {
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(a, b int) bool {
		if counts[buckets[a]] != counts[buckets[b]] {
			return counts[buckets[a]] > counts[buckets[b]]
		}
		return buckets[a] > buckets[b]
	})

	first, second := buckets[0], buckets[1]
	if first > second {
		return second, first, true
	}
	return first, second, true
}

// parseText is the raw-text fallback: chunks start at value-date/operation-
// date pairs and end at the next pair or a page boundary marker.
func (p *SocieteGeneraleParser) parseText(text string) ([]models.Transaction, error) {
	locs := sgDatePairRe.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return nil, ErrUnrecognizedFormat
	}

	var txs []models.Transaction
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		chunk := text[loc[0]:end]
		for _, marker := range sgTextEndMarkers {
			if idx := strings.Index(strings.ToUpper(chunk), marker); idx >= 0 {
				chunk = chunk[:idx]
			}
		}
		if tx, ok := p.parseTextChunk(chunk); ok {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}

func (p *SocieteGeneraleParser) parseTextChunk(chunk string) (models.Transaction, bool) {
	dates := lexfr.DateLongRe.FindAllStringIndex(chunk, 2)
	if len(dates) < 2 {
		return models.Transaction{}, false
	}
	dateVal, err := lexfr.ParseDateFR(chunk[dates[0][0]:dates[0][1]])
	if err != nil {
		return models.Transaction{}, false
	}
	dateOp, err := lexfr.ParseDateFR(chunk[dates[1][0]:dates[1][1]])
	if err != nil {
		return models.Transaction{}, false
	}

	start, end := sgRightmostAmount(chunk, dates[1][1])
	if start < 0 {
		return models.Transaction{}, false
	}
	amount, err := lexfr.ParseAmountFR(chunk[start:end])
	if err != nil {
		return models.Transaction{}, false
	}
	amount = amount.Abs()
	if strings.Contains(chunk, "*") || sgHintSign(chunk) < 0 {
		amount = amount.Neg()
	}

	label := lexfr.NormalizeSpaces(chunk[dates[1][1]:start])
	if label == "" {
		label = lexfr.NormalizeSpaces(chunk)
	}

	return models.Transaction{
		DateOperation: dateOp,
		DateValeur:    &dateVal,
		Label:         label,
		Amount:        amount,
		RawLine:       lexfr.NormalizeSpaces(chunk),
	}, true
}

// sgRightmostAmount tries an anchored amount match at each offset after
// from, resuming right after the end of every match it finds, and keeps the
// rightmost match not immediately preceded by a digit.
func sgRightmostAmount(chunk string, from int) (int, int) {
	start, end := -1, -1
	i := from
	for i < len(chunk) {
		loc := lexfr.AmountStartRe.FindStringIndex(chunk[i:])
		if loc == nil {
			i++
			continue
		}
		if i == 0 || !isDigit(chunk[i-1]) {
			start, end = i, i+loc[1]
		}
		// Jump past the whole match so the tail of a space-grouped number is
		// never taken for an amount of its own; a glued neighbour starting
		// right at the boundary is still visited.
		i += loc[1]
	}
	return start, end
}

// sgHintSign resolves the sign from operation keywords: credit hints win,
// debit hints lose, unresolved rows default to debit.
func sgHintSign(s string) int {
	upper := strings.ToUpper(s)
	if containsAny(upper, sgCreditHints...) {
		return 1
	}
	if containsAny(upper, sgDebitHints...) {
		return -1
	}
	return -1
}
