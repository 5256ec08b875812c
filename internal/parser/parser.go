// Package parser implements the per-bank statement state machines behind a
// common BankParser contract, plus the ordered registry used for detection.
package parser

import (
	"strings"

	"github.com/comptaflow/releve-converter/internal/models"
)

// BankParser is the contract every issuer parser implements.
type BankParser interface {
	// BankID returns the stable short identifier.
	BankID() models.BankID
	// Detect reports whether the uppercase-folded flat text looks like a
	// statement from this issuer.
	Detect(flatText string) bool
	// Parse consumes the source and returns the transaction list.
	Parse(src *Source) ([]models.Transaction, error)
}

// registry holds the parsers in detection order. CIC registers last: its
// signature includes the bare literal "CIC", which also appears incidentally
// in other issuers' documents.
var registry = []BankParser{
	&BNPParser{},
	&LCLParser{},
	&BanquePopulaireParser{},
	&QontoParser{},
	&SocieteGeneraleParser{},
	&CICParser{},
}

// Registered returns the parsers in detection order.
func Registered() []BankParser {
	return registry
}

// Lookup finds a parser by bank id.
func Lookup(id models.BankID) (BankParser, error) {
	for _, p := range registry {
		if p.BankID() == id {
			return p, nil
		}
	}
	return nil, ErrUnknownBank
}

// DetectBank walks the registry in order against the uppercase-folded flat
// text and returns the first matching parser's id.
func DetectBank(flatText string) (models.BankID, bool) {
	upper := strings.ToUpper(flatText)
	for _, p := range registry {
		if p.Detect(upper) {
			return p.BankID(), true
		}
	}
	return "", false
}

// Detect extracts flat text from PDF bytes and runs bank detection.
func Detect(data []byte) (models.BankID, bool, error) {
	text, err := extractFlat(data)
	if err != nil {
		return "", false, err
	}
	id, ok := DetectBank(text)
	return id, ok, nil
}

// Parse runs the parser registered under id against PDF bytes. Structural
// failures come back as *ParseFailedError carrying the extracted text when
// extraction succeeded.
func Parse(data []byte, id models.BankID) ([]models.Transaction, error) {
	p, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	src := NewPDFSource(data)
	txs, err := p.Parse(src)
	if err != nil {
		fail := &ParseFailedError{Bank: id, Err: err}
		if src.hasText {
			fail.RawText = src.text
		} else if text, textErr := src.FlatText(); textErr == nil {
			fail.RawText = text
		}
		return nil, fail
	}
	return txs, nil
}

// ParseText runs the parser registered under id against pre-extracted raw
// text (no positioned input available).
func ParseText(text string, id models.BankID) ([]models.Transaction, error) {
	p, err := Lookup(id)
	if err != nil {
		return nil, err
	}
	txs, err := p.Parse(NewTextSource(text))
	if err != nil {
		return nil, &ParseFailedError{Bank: id, Err: err, RawText: text}
	}
	return txs, nil
}

func extractFlat(data []byte) (string, error) {
	return NewPDFSource(data).FlatText()
}

// containsAny reports whether text contains one of the needles. Both sides
// are expected pre-folded to uppercase.
func containsAny(text string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(text, n) {
			return true
		}
	}
	return false
}
