package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/statement-review/internal/api"
	"github.com/insightdelivered/statement-review/internal/extractor"
	"github.com/insightdelivered/statement-review/internal/logger"
	"github.com/insightdelivered/statement-review/internal/models"
	"github.com/insightdelivered/statement-review/internal/reconstruct"
	"github.com/insightdelivered/statement-review/internal/store"
	"github.com/insightdelivered/statement-review/internal/writer"
)

const version = "1.1.0"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	addrFlag := flag.String("addr", envOr("LISTEN_ADDR", ":8080"), "Listen address for the review server")
	staticFlag := flag.String("static", os.Getenv("STATIC_DIR"), "Directory of UI assets to serve at /")
	stateFlag := flag.String("state", envOr("STATE_DIR", "."), "Directory for persisted session state")
	outputFlag := flag.String("output", "", "Output CSV path in convert mode (defaults to input name with .csv)")
	summaryFlag := flag.Bool("summary", true, "Append monthly totals to CSV output in convert mode")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Statement Review Engine
by Insight Delivered

Reconstructs transaction ledgers from positioned statement text and serves
the guide-line review API.

Usage:
  statement-review [flags]                 start the review server
  statement-review [flags] <input.pdf> ... convert statements to CSV

Flags:
`)
		flag.PrintDefaults()
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("statement-review v%s\n", version)
		os.Exit(0)
	}

	log := logger.New().Level(logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	if flag.NArg() > 0 {
		for _, inputPath := range flag.Args() {
			if err := convertFile(inputPath, *outputFlag, *summaryFlag); err != nil {
				fmt.Fprintf(os.Stderr, "Error processing %s: %v\n", inputPath, err)
				os.Exit(1)
			}
		}
		return
	}

	serve(*addrFlag, *staticFlag, *stateFlag, log)
}

func serve(addr, staticDir, stateDir string, log zerolog.Logger) {
	sessions := store.NewManager(log)

	delay := store.DefaultSaveDelay
	if ms, err := strconv.Atoi(os.Getenv("SAVE_DELAY_MS")); err == nil && ms > 0 {
		delay = time.Duration(ms) * time.Millisecond
	}
	saver := store.NewSaver(delay, persistTo(stateDir, sessions), log)

	app := fiber.New(fiber.Config{
		AppName:   "statement-review v" + version,
		BodyLimit: 32 << 20,
	})

	handler := api.NewHandler(sessions, saver, log)
	handler.StaticDir = staticDir
	handler.Register(app)

	log.Info().Str("addr", addr).Msg("review server listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// persistTo writes every page's guide payload for a session to one JSON file
// under dir, keyed by page.
func persistTo(dir string, sessions *store.Manager) store.PersistFunc {
	return func(sessionID string) error {
		sess, ok := sessions.Get(sessionID)
		if !ok {
			return nil
		}
		state := make(map[string]models.GuidePayload)
		for _, page := range sess.Pages() {
			state[page] = sess.Guides.ToPayload(page)
		}
		data, err := json.MarshalIndent(state, "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, sessionID+".json"), data, 0o644)
	}
}

// convertFile runs the full pipeline offline: extract the text layer,
// reconstruct rows per page with the default layout, and write CSV.
func convertFile(inputPath, outputPath string, includeSummary bool) error {
	if _, err := os.Stat(inputPath); os.IsNotExist(err) {
		return fmt.Errorf("input file not found: %s", inputPath)
	}
	if ext := strings.ToLower(filepath.Ext(inputPath)); ext != ".pdf" {
		return fmt.Errorf("expected .pdf file, got %q", ext)
	}

	fmt.Printf("Processing: %s\n", inputPath)

	pages, err := extractor.ExtractLayout(inputPath)
	if err != nil {
		return fmt.Errorf("PDF extraction failed: %w", err)
	}
	fmt.Printf("  Extracted %d page(s)\n", len(pages))

	recon := reconstruct.NewReconstructor()
	var rows []models.TransactionRow
	for i, page := range pages {
		result := recon.Reconstruct(fmt.Sprintf("%d", i+1), page.Fragments, nil)
		rows = append(rows, result.Rows...)
	}
	fmt.Printf("  Reconstructed %d row(s)\n", len(rows))

	quality := reconstruct.EvaluateQuality(rows)
	if !quality.Passes {
		fmt.Printf("  Warning: low reconstruction quality (%s)\n", strings.Join(quality.Reasons, ", "))
	}

	outPath := outputPath
	if outPath == "" {
		outPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".csv"
	}

	w := &writer.CSVWriter{IncludeSummary: includeSummary}
	if err := w.WriteToFile(outPath, rows); err != nil {
		return fmt.Errorf("CSV write failed: %w", err)
	}

	fmt.Printf("  Output: %s\n", outPath)
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
