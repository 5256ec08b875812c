package parser

import (
	"github.com/comptaflow/releve-converter/internal/extractor"
	"github.com/comptaflow/releve-converter/internal/models"
)

// Source is the input handed to a bank parser: PDF bytes, or a pre-extracted
// raw text fallback. Extractions are lazy and cached so a parser can ask for
// both forms without re-reading the document.
type Source struct {
	pdfData []byte

	text    string
	hasText bool

	lines    []models.PdfLine
	hasLines bool
}

// NewPDFSource wraps a PDF byte buffer.
func NewPDFSource(data []byte) *Source {
	return &Source{pdfData: data}
}

// NewTextSource wraps pre-extracted raw text. Positioned lines are not
// available from such a source.
func NewTextSource(text string) *Source {
	return &Source{text: text, hasText: true}
}

// FlatText returns the document as one concatenated text stream.
func (s *Source) FlatText() (string, error) {
	if s.hasText {
		return s.text, nil
	}
	text, err := extractor.ExtractFlatText(s.pdfData)
	if err != nil {
		return "", err
	}
	s.text = text
	s.hasText = true
	return text, nil
}

// Lines returns the document's positioned rows. Fails with
// ErrUnsupportedInput when the source carries no PDF bytes.
func (s *Source) Lines() ([]models.PdfLine, error) {
	if s.hasLines {
		return s.lines, nil
	}
	if s.pdfData == nil {
		return nil, ErrUnsupportedInput
	}
	lines, err := extractor.ExtractPositionedLines(s.pdfData)
	if err != nil {
		return nil, err
	}
	s.lines = lines
	s.hasLines = true
	return lines, nil
}

// NewLinesSource wraps already-reconstructed positioned lines, for callers
// that ran extraction themselves.
func NewLinesSource(lines []models.PdfLine) *Source {
	return &Source{lines: lines, hasLines: true}
}
