// Harrier - batch AML screening for money-transfer records.
// Copyright (c) 2025 opensource.finance
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/opensource-finance/harrier/internal/api"
	"github.com/opensource-finance/harrier/internal/config"
	"github.com/opensource-finance/harrier/internal/detect"
	"github.com/opensource-finance/harrier/internal/domain"
	"github.com/opensource-finance/harrier/internal/report"
	"github.com/opensource-finance/harrier/internal/runs"
	"github.com/opensource-finance/harrier/internal/simulate"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	serve := flag.Bool("serve", false, "Serve the dashboard API instead of a one-shot run")
	input := flag.String("input", "", "CSV batch to screen (one-shot mode); empty = generate a synthetic batch")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	setupLogging(cfg.Logging)

	slog.Info("starting harrier",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	detector, err := detect.New(cfg.Detection)
	if err != nil {
		slog.Error("failed to initialize detector", "error", err)
		os.Exit(1)
	}
	slog.Info("detector initialized",
		"rules_count", detector.Engine().RulesCount(),
		"forest_size", cfg.Detection.ForestSize,
		"contamination", cfg.Detection.Contamination,
	)

	if *serve {
		runServer(cfg, detector)
		return
	}

	if err := runOnce(cfg, detector, *input); err != nil {
		slog.Error("screening run failed", "error", err)
		os.Exit(1)
	}
}

func setupLogging(cfg config.LoggingConfig) {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if os.Getenv("HARRIER_DEBUG") == "true" {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// runOnce screens a single batch and writes the report files.
func runOnce(cfg *config.Config, detector *detect.Detector, input string) error {
	var txns []domain.Transaction
	if input != "" {
		batch, err := readBatchCSV(input)
		if err != nil {
			return fmt.Errorf("failed to read batch from %s: %w", input, err)
		}
		txns = batch
		slog.Info("batch loaded", "path", input, "size", len(txns))
	} else {
		batch := simulate.Generate(cfg.Simulation)
		txns = batch.Transactions
		slog.Info("synthetic batch generated",
			"size", len(txns),
			"structuring_senders", cfg.Simulation.StructuringSenders,
			"seed", cfg.Simulation.Seed,
		)
	}

	verdicts, err := detector.Detect(context.Background(), txns)
	if err != nil {
		return err
	}

	summary := report.Summarize(txns, verdicts, cfg.Report.TopN)

	if err := os.MkdirAll(cfg.Report.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	csvPath := filepath.Join(cfg.Report.OutputDir, "suspicious_transactions.csv")
	if err := writeFile(csvPath, func(w io.Writer) error {
		return report.WriteCSV(w, txns, verdicts, cfg.Report.SuspiciousOnly)
	}); err != nil {
		return err
	}

	txtPath := filepath.Join(cfg.Report.OutputDir, "aml_report.txt")
	if err := writeFile(txtPath, func(w io.Writer) error {
		return report.WriteText(w, summary)
	}); err != nil {
		return err
	}

	slog.Info("reports written", "csv", csvPath, "report", txtPath)
	printSummary(summary)
	return nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// readBatchCSV reads a transaction batch from a CSV file with columns
// transaction_id, sender_id, receiver_id, amount, timestamp, location.
func readBatchCSV(path string) ([]domain.Transaction, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	colIndex := make(map[string]int, len(header))
	for i, col := range header {
		colIndex[col] = i
	}
	for _, col := range []string{"transaction_id", "sender_id", "receiver_id", "amount", "timestamp", "location"} {
		if _, ok := colIndex[col]; !ok {
			return nil, fmt.Errorf("missing column %q", col)
		}
	}

	var txns []domain.Transaction
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		id, err := strconv.ParseInt(record[colIndex["transaction_id"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad transaction_id: %w", line, err)
		}
		sender, err := strconv.ParseInt(record[colIndex["sender_id"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad sender_id: %w", line, err)
		}
		receiver, err := strconv.ParseInt(record[colIndex["receiver_id"]], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad receiver_id: %w", line, err)
		}
		amount, err := strconv.ParseFloat(record[colIndex["amount"]], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: bad amount: %w", line, err)
		}
		ts, err := time.Parse(time.RFC3339, record[colIndex["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: bad timestamp: %w", line, err)
		}

		txns = append(txns, domain.Transaction{
			ID:         id,
			SenderID:   sender,
			ReceiverID: receiver,
			Amount:     amount,
			Timestamp:  ts,
			Location:   record[colIndex["location"]],
		})
	}
	return txns, nil
}

func printSummary(s report.Summary) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 HARRIER                  ║")
	fmt.Println("  ║       AML Batch Screening Results         ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Total Transactions:      %d\n", s.Total)
	fmt.Printf("  Suspicious Transactions: %d (%.2f%%)\n", s.Suspicious, s.SuspiciousPct)
	fmt.Printf("  Rule Flagged:            %d\n", s.RuleFlagged)
	fmt.Printf("  ML Flagged:              %d\n", s.MLFlagged)
	fmt.Printf("  Overall Risk Level:      %s\n", s.RiskLevel)
	fmt.Println()
}

func runServer(cfg *config.Config, detector *detect.Detector) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	store := runs.NewStore(cfg.MaxRuns)
	srv := api.NewServer(cfg.Server, detector, store, cfg.Report.TopN, Version)

	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("harrier is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)
	printBanner(cfg)

	<-ctx.Done()
	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("harrier shutdown complete")
}

func printBanner(cfg *config.Config) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║               🦅 HARRIER                  ║")
	fmt.Println("  ║        AML Batch Screening Engine         ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", Version)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /detect                - Screen a transaction batch")
	fmt.Println("    POST /simulate              - Generate and screen a synthetic batch")
	fmt.Println("    GET  /runs                  - List recent runs")
	fmt.Println("    GET  /runs/{id}             - Get run details")
	fmt.Println("    GET  /runs/{id}/report.csv  - Download verdict CSV")
	fmt.Println("    GET  /runs/{id}/report.txt  - Download monitoring report")
	fmt.Println("    GET  /rules                 - List loaded rules")
	fmt.Println("    GET  /health                - Health check")
	fmt.Println()
}
