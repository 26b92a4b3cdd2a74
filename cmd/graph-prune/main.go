package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"chain-forensics/internal/infrastructure/config"
	"chain-forensics/internal/infrastructure/database"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/google/uuid"
	flags "github.com/jessevdk/go-flags"
	"go.uber.org/zap"
)

type options struct {
	ConfigFile string        `short:"c" long:"config" description:"Path to the config file; the default search path is used when empty"`
	Keep       string        `short:"k" long:"keep" description:"Run id whose findings are kept; every finding is removed when empty"`
	Timeout    time.Duration `short:"t" long:"timeout" default:"10m" description:"Give up after this long"`
}

func main() {
	var opts options
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
	keep := uuid.Nil
	if opts.Keep != "" {
		id, err := uuid.Parse(opts.Keep)
		if err != nil {
			return fmt.Errorf("invalid run id %q: %w", opts.Keep, err)
		}
		keep = id
	}

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
	log = log.WithComponent("graph-prune")

	ctx, cancel := context.WithTimeout(context.Background(), opts.Timeout)
	defer cancel()

	client := database.NewNeo4JClient(&cfg.Neo4J, log)
	if err := client.Connect(ctx); err != nil {
		return err
	}
	defer client.Close(context.Background())

	log.Info("Connected to Neo4j, pruning findings", zap.String("keep_run_id", opts.Keep))

	deleted, err := database.NewNeo4JGraphRepository(client, log).PruneFindings(ctx, keep)
	if err != nil {
		return err
	}
	log.Info("Pruned findings", zap.Int64("deleted", deleted))
	return nil
}
