// Package api exposes the conversion engine over HTTP (Fiber handlers).
package api

import (
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/comptaflow/releve-converter/internal/models"
	"github.com/comptaflow/releve-converter/internal/parser"
	"github.com/comptaflow/releve-converter/internal/writer"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

var logger zerolog.Logger = log.With().Str("component", "api").Logger()

// ConvertResponse is the JSON envelope of /api/convert.
type ConvertResponse struct {
	Success      bool                 `json:"success"`
	Error        string               `json:"error,omitempty"`
	Bank         string               `json:"bank,omitempty"`
	Transactions []models.Transaction `json:"transactions"`
	Count        int                  `json:"count"`
	TotalDebit   float64              `json:"totalDebit"`
	TotalCredit  float64              `json:"totalCredit"`
	CSV          string               `json:"csv,omitempty"`
}

// DetectResponse is the JSON envelope of /api/detect.
type DetectResponse struct {
	BankID *string `json:"bankId"`
}

// HandleHealth reports service liveness.
func HandleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": Version,
	})
}

// HandleDetect extracts flat text from the uploaded PDF and returns the
// first matching bank id, or null.
func HandleDetect(c *fiber.Ctx) error {
	data, ok := uploadedPDF(c)
	if !ok {
		return nil
	}

	id, found, err := parser.Detect(data)
	if err != nil {
		logger.Warn().Err(err).Msg("detection failed")
		return writeFailure(c, fiber.StatusUnprocessableEntity, err.Error())
	}
	resp := DetectResponse{}
	if found {
		s := string(id)
		resp.BankID = &s
	}
	return c.JSON(resp)
}

// HandleConvert parses the uploaded PDF (detecting the bank when no "bank"
// form value is given) and returns the transactions as JSON, XLSX or CSV.
func HandleConvert(c *fiber.Ctx) error {
	data, ok := uploadedPDF(c)
	if !ok {
		return nil
	}

	bankID := models.BankID(strings.ToLower(strings.TrimSpace(c.FormValue("bank"))))
	if bankID == "" {
		id, found, detectErr := parser.Detect(data)
		if detectErr != nil {
			return writeFailure(c, fiber.StatusUnprocessableEntity, detectErr.Error())
		}
		if !found {
			return writeFailure(c, fiber.StatusUnprocessableEntity, "could not detect the bank; pass the 'bank' form value")
		}
		bankID = id
	}

	txs, err := parser.Parse(data, bankID)
	if err != nil {
		if errors.Is(err, parser.ErrUnknownBank) {
			return writeFailure(c, fiber.StatusBadRequest, "unknown bank: "+string(bankID))
		}
		return parseFailure(c, bankID, err)
	}

	logger.Info().Str("bank", string(bankID)).Int("transactions", len(txs)).Msg("statement converted")

	switch strings.ToLower(c.FormValue("format")) {
	case "xlsx":
		var buf bytes.Buffer
		xw := &writer.XLSXWriter{Journal: c.FormValue("journal"), Account: c.FormValue("account")}
		if err := xw.Write(&buf, txs); err != nil {
			return writeFailure(c, fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="releve.xlsx"`)
		return c.Send(buf.Bytes())
	case "csv":
		var buf bytes.Buffer
		cw := &writer.CSVWriter{IncludeTotals: true}
		if err := cw.Write(&buf, txs); err != nil {
			return writeFailure(c, fiber.StatusInternalServerError, err.Error())
		}
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="releve.csv"`)
		return c.Send(buf.Bytes())
	}

	var csvBuf bytes.Buffer
	cw := &writer.CSVWriter{IncludeTotals: true}
	if err := cw.Write(&csvBuf, txs); err != nil {
		return writeFailure(c, fiber.StatusInternalServerError, err.Error())
	}

	if txs == nil {
		txs = []models.Transaction{}
	}
	debitCents, creditCents := writer.Totals(txs)
	return c.JSON(ConvertResponse{
		Success:      true,
		Bank:         string(bankID),
		Transactions: txs,
		Count:        len(txs),
		TotalDebit:   float64(debitCents) / 100,
		TotalCredit:  float64(creditCents) / 100,
		CSV:          csvBuf.String(),
	})
}

// parseFailure maps a parse error to the HTTP response. With PDF_TEXT_DEBUG=1
// and extracted text available, the raw text comes back as a downloadable
// diagnostic instead of a bare error message.
func parseFailure(c *fiber.Ctx, bankID models.BankID, err error) error {
	logger.Warn().Err(err).Str("bank", string(bankID)).Msg("parse failed")

	var pf *parser.ParseFailedError
	if os.Getenv("PDF_TEXT_DEBUG") == "1" && errors.As(err, &pf) && pf.RawText != "" {
		c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="extracted-text.txt"`)
		return c.Status(fiber.StatusUnprocessableEntity).SendString(pf.RawText)
	}
	return writeFailure(c, fiber.StatusUnprocessableEntity, err.Error())
}

// uploadedPDF reads the multipart "file" field. On failure the error
// response is already written and ok is false.
func uploadedPDF(c *fiber.Ctx) ([]byte, bool) {
	fh, err := c.FormFile("file")
	if err != nil {
		writeFailure(c, fiber.StatusBadRequest, "no file uploaded; use form field 'file'")
		return nil, false
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
		writeFailure(c, fiber.StatusBadRequest, "only PDF files are supported")
		return nil, false
	}

	f, err := fh.Open()
	if err != nil {
		writeFailure(c, fiber.StatusInternalServerError, "failed to open upload")
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeFailure(c, fiber.StatusInternalServerError, "failed to read upload")
		return nil, false
	}
	return data, true
}

func writeFailure(c *fiber.Ctx, status int, msg string) error {
	return c.Status(status).JSON(ConvertResponse{
		Success:      false,
		Error:        msg,
		Transactions: []models.Transaction{},
	})
}
