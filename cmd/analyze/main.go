package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"treatylens/internal/actuarial"
	"treatylens/internal/config"
	"treatylens/internal/currency"
	"treatylens/internal/exposure"
	"treatylens/internal/history"
	"treatylens/internal/ingest"
	"treatylens/internal/services"
)

// analyze runs one submission from local files and prints the analysis
// payload as JSON, for desk use and batch scripting without the server.
func main() {
	var (
		insured    = flag.String("insured", "", "insured name (used for history lookup and currency detection)")
		exposureFn = flag.String("exposure", "", "path to the schedule of values workbook (required)")
		claimsList = flag.String("claims", "", "comma-separated paths to claims workbooks")
		curr       = flag.String("currency", "", "ISO currency override (default: detected from markers)")
		reference  = flag.Float64("reference", 0, "reference rate in per mille (default: configured value)")
	)
	flag.Parse()

	if *exposureFn == "" {
		fmt.Fprintln(os.Stderr, "analyze: -exposure is required")
		flag.Usage()
		os.Exit(2)
	}

	// Logs go to stderr so stdout stays clean JSON.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load()
	if err != nil {
		fatal(err)
	}
	repo, err := history.New(cfg.History, logger)
	if err != nil {
		fatal(err)
	}
	defer repo.Close()

	svc := services.NewAnalysisService(
		ingest.NewConsolidator(logger),
		exposure.NewResolver(cfg.Analysis.TIVPlausibleMin, logger),
		actuarial.NewEngine(cfg.Analysis.ReferencePerMille, logger),
		currency.NewService(cfg.Rates, logger),
		repo,
		logger,
	)

	req := services.AnalysisRequest{
		Insured:           *insured,
		Currency:          strings.ToUpper(*curr),
		ReferencePerMille: *reference,
	}
	req.ExposureFile, err = readFile(*exposureFn)
	if err != nil {
		fatal(err)
	}
	if *claimsList != "" {
		for _, path := range strings.Split(*claimsList, ",") {
			file, err := readFile(strings.TrimSpace(path))
			if err != nil {
				fatal(err)
			}
			req.ClaimFiles = append(req.ClaimFiles, file)
		}
	}

	resp, err := svc.Analyze(context.Background(), req)
	if err != nil {
		fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(resp); err != nil {
		fatal(err)
	}
}

func readFile(path string) (ingest.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ingest.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return ingest.File{Name: path, Data: data}, nil
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "analyze:", err)
	os.Exit(1)
}
