package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	app_service "chain-forensics/internal/application/service"
	"chain-forensics/internal/domain/entity"
	domain_service "chain-forensics/internal/domain/service"
	"chain-forensics/internal/infrastructure/config"
	"chain-forensics/internal/infrastructure/database"
	"chain-forensics/internal/infrastructure/logger"
	"chain-forensics/internal/seed"

	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type options struct {
	ConfigFile string `short:"c" long:"config" description:"Path to the config file; the default search path is used when empty"`
	Reset      bool   `short:"r" long:"reset" description:"Truncate the ledger tables before seeding"`
	DryRun     bool   `short:"n" long:"dry-run" description:"Print the analysis of the dataset instead of writing it"`
	Seed       int64  `short:"s" long:"seed" description:"Random seed of the generated dataset"`
}

func main() {
	opts := options{Seed: time.Now().UnixNano()}
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if e, ok := err.(*flags.Error); ok && e.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	if err := run(opts); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(opts options) error {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.LoadFile(opts.ConfigFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.NewLogger(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Close()
	log = log.WithComponent("seed")

	events := seed.NewGenerator(opts.Seed, time.Now()).Dataset()
	log.Info("Generated demo dataset",
		zap.Int64("seed", opts.Seed),
		zap.Int("transfers", len(events)))

	ctx := context.Background()

	if opts.DryRun {
		return printAnalysis(ctx, cfg, log, events)
	}

	pg := database.NewPostgresClient(&cfg.Postgres, log)
	if err := pg.Connect(ctx); err != nil {
		return err
	}
	defer pg.Close()

	ledger := database.NewPostgresTransferRepository(pg, log)
	if err := ledger.EnsureSchema(ctx); err != nil {
		return err
	}
	if opts.Reset {
		if err := ledger.Truncate(ctx); err != nil {
			return err
		}
	}

	inserted, err := ledger.BatchSaveTransfers(ctx, events)
	if err != nil {
		return err
	}
	log.Info("Seeded ledger",
		zap.Int("transfers", len(events)),
		zap.Int("inserted", inserted))
	return nil
}

// printAnalysis runs the detectors over the dataset in memory and writes the
// report to stdout
func printAnalysis(ctx context.Context, cfg *config.Config, log *logger.Logger, events []*entity.TransferEvent) error {
	whale, shrimp := cfg.Detection.Thresholds()
	analysis := app_service.NewAnalysisApplicationService(
		domain_service.NewSuspiciousBehaviorDetector(log,
			domain_service.WithEdgePolicy(cfg.Detection.Policy()),
			domain_service.WithSearchBudget(cfg.Detection.MaxSearchSteps)),
		domain_service.NewAddressLabeler(domain_service.LabelThresholds{Whale: whale, Shrimp: shrimp}, log),
		app_service.Stores{},
		app_service.AnalysisSettings{
			Cycles: cfg.Detection.CycleParams(),
			FanOut: cfg.Detection.FanOutParams(),
		},
		log,
	)

	if err := analysis.IngestBatch(ctx, events); err != nil {
		return err
	}
	report, err := analysis.RunAnalysis(ctx)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
