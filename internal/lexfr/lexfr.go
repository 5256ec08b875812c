// Package lexfr holds the lexical layer shared by every statement parser:
// French amount and date parsing, whitespace normalization, and the common
// regular expressions for amount and date shapes.
package lexfr

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAmount reports a token that does not lex as a French amount.
	ErrInvalidAmount = errors.New("invalid amount")
	// ErrInvalidDate reports a token that does not lex as a statement date.
	ErrInvalidDate = errors.New("invalid date")
)

// French amount: groups of 1-3 digits, optional thousands separators
// (space, NBSP, dot), comma as the decimal separator.
const amountBody = `\d{1,3}(?:[ \x{00A0}.]\d{3})*,\d{2}`

var (
	// AmountRe matches a bare French amount anywhere in a string.
	AmountRe = regexp.MustCompile(amountBody)
	// AmountItemRe matches a positioned item that is exactly an amount,
	// optionally signed.
	AmountItemRe = regexp.MustCompile(`^[-+\x{2212}]?\s*` + amountBody + `$`)
	// SignedAmountRe captures an optional minus (ASCII or U+2212) in front
	// of an amount.
	SignedAmountRe = regexp.MustCompile(`([-\x{2212}])?\s*(` + amountBody + `)`)
	// AmountStartRe anchors the amount pattern at the scan position; used for
	// overlap-tolerant scans that must consider every offset.
	AmountStartRe = regexp.MustCompile(`^` + amountBody)

	// DateDotRe matches the canonical dd.mm.yy form.
	DateDotRe = regexp.MustCompile(`\d{2}\.\d{2}\.\d{2}`)
	// DateLongRe matches dd/mm/yyyy.
	DateLongRe = regexp.MustCompile(`\d{2}/\d{2}/\d{4}`)
	// DateShortItemRe matches an item that is exactly dd/mm or dd.mm.
	DateShortItemRe = regexp.MustCompile(`^\d{2}[./]\d{2}$`)
	// DateLongItemRe matches an item that is exactly dd/mm/yy or dd/mm/yyyy.
	DateLongItemRe = regexp.MustCompile(`^\d{2}/\d{2}/(?:\d{2}|\d{4})$`)

	wsRunRe = regexp.MustCompile(`\s+`)

	dateAnyRe = regexp.MustCompile(`^(\d{2})[./](\d{2})[./](\d{2}|\d{4})$`)
)

// ParseAmountFR converts a French-formatted amount ("1 400,00", "1.234,56",
// "-7,00") to a decimal. When a comma is present, spaces and dots are
// thousands noise and the comma is the decimal point; otherwise the token is
// read as a plain decimal with "." as separator.
func ParseAmountFR(s string) (decimal.Decimal, error) {
	t := strings.ReplaceAll(s, "\u00A0", " ")
	t = strings.ReplaceAll(t, "−", "-")
	t = strings.TrimSpace(t)
	if strings.Contains(t, ",") {
		t = strings.ReplaceAll(t, " ", "")
		t = strings.ReplaceAll(t, ".", "")
		t = strings.Replace(t, ",", ".", 1)
	} else {
		t = strings.ReplaceAll(t, " ", "")
	}
	d, err := decimal.NewFromString(t)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return d, nil
}

// ParseDateFR accepts dd.mm.yy (canonical) and dd/mm/yy(yy), returning a
// date at UTC midnight. Two-digit years map to 2000+yy.
func ParseDateFR(s string) (time.Time, error) {
	m := dateAnyRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	day, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[2])
	year, _ := strconv.Atoi(m[3])
	if len(m[3]) == 2 {
		year += 2000
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// ParseDateFRLong accepts dd/mm/yyyy only.
func ParseDateFRLong(s string) (time.Time, error) {
	t := strings.TrimSpace(s)
	if !DateLongRe.MatchString(t) || len(t) != 10 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return ParseDateFR(t)
}

// ParseShortDate resolves a dd/mm or dd.mm token against an externally
// supplied year (period header, or the current UTC year as a fallback).
func ParseShortDate(token string, referenceYear int) (time.Time, error) {
	t := strings.TrimSpace(token)
	if !DateShortItemRe.MatchString(t) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
	}
	day, _ := strconv.Atoi(t[:2])
	month, _ := strconv.Atoi(t[3:])
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, token)
	}
	return time.Date(referenceYear, time.Month(month), day, 0, 0, 0, 0, time.UTC), nil
}

// NormalizeSpaces replaces NBSP with a regular space, collapses whitespace
// runs to a single space and trims. Idempotent.
func NormalizeSpaces(s string) string {
	s = strings.ReplaceAll(s, "\u00A0", " ")
	return strings.TrimSpace(wsRunRe.ReplaceAllString(s, " "))
}

// AmountMatch is one amount occurrence inside a line.
type AmountMatch struct {
	Text  string
	Start int
	End   int
}

// FindAmountsInLine returns all non-overlapping French-amount matches in
// left-to-right order.
func FindAmountsInLine(s string) []AmountMatch {
	var out []AmountMatch
	for _, loc := range AmountRe.FindAllStringIndex(s, -1) {
		out = append(out, AmountMatch{Text: s[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return out
}

// IsUppercaseTitle reports whether s looks like a section heading: at least
// three characters, no digits, and equal to its own uppercase form.
func IsUppercaseTitle(s string) bool {
	t := strings.TrimSpace(s)
	if len([]rune(t)) < 3 {
		return false
	}
	for _, r := range t {
		if unicode.IsDigit(r) {
			return false
		}
	}
	return t == strings.ToUpper(t)
}
