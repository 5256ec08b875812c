package parser

import (
	"errors"
	"fmt"

	"github.com/comptaflow/releve-converter/internal/models"
)

var (
	// ErrUnrecognizedFormat reports that a parser could not locate its table
	// anchors in the document.
	ErrUnrecognizedFormat = errors.New("unrecognized statement format")
	// ErrUnsupportedInput reports that a parser needing positioned input was
	// given raw text only.
	ErrUnsupportedInput = errors.New("parser requires positioned pdf input")
	// ErrUnknownBank reports a bank id absent from the registry.
	ErrUnknownBank = errors.New("unknown bank")
)

// ParseFailedError wraps any structural parse failure surfaced by the engine.
// RawText carries the extracted flat text when it was available, so a debug
// caller can hand it back as a diagnostic.
type ParseFailedError struct {
	Bank    models.BankID
	Err     error
	RawText string
}

func (e *ParseFailedError) Error() string {
	return fmt.Sprintf("parse failed (%s): %v", e.Bank, e.Err)
}

func (e *ParseFailedError) Unwrap() error {
	return e.Err
}
