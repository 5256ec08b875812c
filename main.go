package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/comptaflow/releve-converter/internal/api"
	"github.com/comptaflow/releve-converter/internal/models"
	"github.com/comptaflow/releve-converter/internal/parser"
	"github.com/comptaflow/releve-converter/internal/writer"
)

func main() {
	bankFlag := flag.String("bank", "", "Bank id: bnp, lcl, banque-populaire, qonto, cic, societe-generale (auto-detected if omitted)")
	outputFlag := flag.String("output", "", "Output file path (defaults to input filename with the format extension)")
	formatFlag := flag.String("format", "xlsx", "Output format: xlsx or csv")
	journalFlag := flag.String("journal", "", "Value for the JOURNAL column (xlsx)")
	accountFlag := flag.String("account", "", "Value for the COMPTE column (xlsx)")
	serveFlag := flag.Bool("serve", false, "Start the web server instead of CLI mode")
	portFlag := flag.String("port", "8080", "Port for the web server (used with --serve)")
	staticFlag := flag.String("static", "", "Path to the web UI build directory (used with --serve)")
	helpFlag := flag.Bool("help", false, "Show usage help")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Relevé Converter

Converts French bank statement PDFs (BNP Paribas, LCL, CIC,
Banque Populaire, Qonto, Société Générale) into accounting
spreadsheets.

Usage:
  releve-converter [flags] <releve.pdf> [releve2.pdf ...]

  Web mode:
  releve-converter --serve [--port=8080] [--static=./web/dist]

Flags:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if *serveFlag {
		startServer(*portFlag, *staticFlag)
		return
	}

	if *helpFlag || flag.NArg() == 0 {
		flag.Usage()
		os.Exit(0)
	}

	bankID := models.BankID(strings.ToLower(*bankFlag))
	if *bankFlag != "" {
		if _, err := parser.Lookup(bankID); err != nil {
			fatalf("Unknown bank %q. Supported: bnp, lcl, banque-populaire, qonto, cic, societe-generale\n", *bankFlag)
		}
	}

	for _, inputPath := range flag.Args() {
		if err := processFile(inputPath, bankID, *outputFlag, *formatFlag, *journalFlag, *accountFlag); err != nil {
			fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
			os.Exit(1)
		}
	}
}

func startServer(port, staticDir string) {
	app := fiber.New(fiber.Config{
		AppName:   "Relevé Converter v" + api.Version,
		BodyLimit: 15 * 1024 * 1024, // 15MiB input ceiling
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} | ${status} | ${latency} | ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Content-Type",
	}))

	apiGroup := app.Group("/api")
	apiGroup.Get("/health", api.HandleHealth)
	apiGroup.Post("/detect", api.HandleDetect)
	apiGroup.Post("/convert", api.HandleConvert)

	if staticDir != "" {
		app.Static("/", staticDir, fiber.Static{
			Index: "index.html",
		})
		app.Get("/*", func(c *fiber.Ctx) error {
			path := c.Path()
			if strings.HasPrefix(path, "/api/") {
				return c.SendStatus(fiber.StatusNotFound)
			}
			fullPath := filepath.Join(staticDir, path)
			if _, err := os.Stat(fullPath); os.IsNotExist(err) {
				return c.SendFile(filepath.Join(staticDir, "index.html"))
			}
			return c.Next()
		})
	}

	log.Info().Str("port", port).Str("static", staticDir).Msg("server starting")
	if err := app.Listen(":" + port); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

func processFile(inputPath string, bankID models.BankID, outputPath, format, journal, account string) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	data, err := os.ReadFile(inputPath)
	if err != nil {
		return err
	}

	fmt.Printf("Processing: %s\n", inputPath)

	effectiveBank := bankID
	if effectiveBank == "" {
		id, ok, err := parser.Detect(data)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("could not auto-detect the bank; pass --bank")
		}
		effectiveBank = id
		fmt.Printf("  Auto-detected bank: %s\n", effectiveBank)
	}

	txs, err := parser.Parse(data, effectiveBank)
	if err != nil {
		return err
	}

	fmt.Printf("  Found %d transaction(s)\n", len(txs))
	if len(txs) == 0 {
		fmt.Println("  Warning: no transactions found. Try --bank if detection was used.")
	}

	outPath := outputPath
	if outPath == "" {
		base := strings.TrimSuffix(inputPath, filepath.Ext(inputPath))
		outPath = base + "." + format
	}

	switch format {
	case "xlsx":
		w := &writer.XLSXWriter{Journal: journal, Account: account}
		if err := w.WriteToFile(outPath, txs); err != nil {
			return fmt.Errorf("xlsx write failed: %w", err)
		}
	case "csv":
		w := &writer.CSVWriter{IncludeTotals: true}
		if err := w.WriteToFile(outPath, txs); err != nil {
			return fmt.Errorf("csv write failed: %w", err)
		}
	default:
		return fmt.Errorf("unknown format %q (use xlsx or csv)", format)
	}

	debitCents, creditCents := writer.Totals(txs)
	fmt.Printf("  Output: %s (debit %.2f / credit %.2f)\n", outPath, float64(debitCents)/100, float64(creditCents)/100)
	return nil
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format, args...)
	os.Exit(1)
}
