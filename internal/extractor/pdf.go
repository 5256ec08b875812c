// Package extractor turns PDF byte streams into either a flat text stream or
// positioned line records. It drives github.com/ledongthuc/pdf and falls back
// to raw content-stream scanning when the library output is unreadable.
package extractor

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"github.com/comptaflow/releve-converter/internal/lexfr"
	"github.com/comptaflow/releve-converter/internal/models"
)

// ErrPDFLoad reports that the document could not be opened at all.
var ErrPDFLoad = errors.New("pdf load failed")

// ExtractFlatText concatenates every text fragment of the document, one
// newline between pages. The structured library is tried first; when its
// output is unreadable the raw content-stream fallback runs before giving up
// on quality and returning whatever was decoded.
func ExtractFlatText(data []byte) (string, error) {
	pages, err := extractPages(data)
	if err != nil {
		return "", err
	}
	if isReadableText(pages) {
		return strings.Join(pages, "\n"), nil
	}

	rawPages := extractTextRaw(data)
	if isReadableText(rawPages) {
		return strings.Join(rawPages, "\n"), nil
	}

	if len(pages) > 0 {
		return strings.Join(pages, "\n"), nil
	}
	return strings.Join(rawPages, "\n"), nil
}

// ExtractPositionedLines reconstructs visual rows page by page: text items
// are bucketed by round(y/2)*2, buckets ordered top to bottom, items left to
// right with their x offsets preserved.
func ExtractPositionedLines(data []byte) (lines []models.PdfLine, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: library panic: %v", ErrPDFLoad, r)
		}
	}()

	r, openErr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if openErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFLoad, openErr)
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		content := page.Content()
		items := make([]positionedItem, 0, len(content.Text))
		for _, t := range content.Text {
			items = append(items, positionedItem{text: t.S, x: t.X, y: t.Y})
		}
		lines = append(lines, buildLines(items, i)...)
	}
	return lines, nil
}

// positionedItem is one glyph run in page coordinates.
type positionedItem struct {
	text string
	x, y float64
}

// buildLines groups positioned items into rows. Two y coordinates belong to
// the same row iff round(y/2)*2 matches. Buckets are emitted top to bottom
// (descending y), items within a bucket ascending by x.
func buildLines(items []positionedItem, pageNum int) []models.PdfLine {
	buckets := make(map[int][]models.LineItem)
	for _, it := range items {
		if strings.TrimSpace(it.text) == "" {
			continue
		}
		key := int(math.Round(it.y/2)) * 2
		buckets[key] = append(buckets[key], models.LineItem{Text: it.text, X: it.x})
	}

	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	var lines []models.PdfLine
	for _, k := range keys {
		row := buckets[k]
		sort.Slice(row, func(a, b int) bool { return row[a].X < row[b].X })

		parts := make([]string, 0, len(row))
		for _, it := range row {
			parts = append(parts, it.Text)
		}
		text := lexfr.NormalizeSpaces(strings.Join(parts, " "))
		if text == "" {
			continue
		}
		lines = append(lines, models.PdfLine{Text: text, Items: row, Page: pageNum})
	}
	return lines
}

// extractPages pulls per-page plain text through the structured library.
// Library panics (malformed xref tables, exotic encodings) become load
// errors instead of crashing the caller.
func extractPages(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: library panic: %v", ErrPDFLoad, r)
		}
	}()

	r, openErr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if openErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrPDFLoad, openErr)
	}

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		fonts := make(map[string]*pdf.Font)
		for _, name := range page.Fonts() {
			f := page.Font(name)
			fonts[name] = &f
		}
		text, textErr := page.GetPlainText(fonts)
		if textErr != nil {
			continue
		}
		text = strings.TrimSpace(text)
		if text != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}

// statementWords are tokens expected in any French bank statement. Extraction
// output containing none of them is treated as garbage.
var statementWords = []string{
	"banque", "compte", "solde", "date", "releve", "relevé",
	"virement", "carte", "total", "iban", "bic", "paiement",
	"operation", "opération", "eur", "debit", "credit",
}

// isReadableText checks that pages carry enough text, that the characters are
// plausibly French statement text rather than mis-decoded glyphs, and that at
// least one expected statement word appears.
func isReadableText(pages []string) bool {
	total := 0
	readable := 0
	for _, page := range pages {
		for _, r := range page {
			total++
			if r < 128 && (unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) ||
				strings.ContainsRune(`.,-/:;()'"%&@#!?+=*`, r)) {
				readable++
				continue
			}
			if strings.ContainsRune("àâäéèêëîïôöùûüçÀÂÄÉÈÊËÎÏÔÖÙÛÜÇ€°'", r) {
				readable++
			}
		}
	}
	if total <= 50 {
		return false
	}
	if float64(readable)/float64(total) <= 0.6 {
		return false
	}
	combined := strings.ToLower(strings.Join(pages, " "))
	for _, w := range statementWords {
		if strings.Contains(combined, w) {
			return true
		}
	}
	return false
}
