package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	app_service "chain-forensics/internal/application/service"
	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/domain/repository"
	domain_service "chain-forensics/internal/domain/service"
	"chain-forensics/internal/infrastructure/config"
	"chain-forensics/internal/infrastructure/database"
	"chain-forensics/internal/infrastructure/logger"
	"chain-forensics/internal/infrastructure/messaging"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Create logger
	log, err := logger.NewLogger(cfg.App.LogLevel, cfg.App.LogFile)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()

	app := fx.New(
		// Provide dependencies
		fx.Supply(cfg),
		fx.Supply(log),
		fx.Supply(&cfg.NATS),
		fx.Supply(&cfg.Neo4J),
		fx.Supply(&cfg.Postgres),
		fx.Supply(&cfg.Kafka),
		fx.Provide(func() *zap.Logger { return log.Logger }),

		// Infrastructure providers
		fx.Provide(
			database.NewNeo4JClient,
			database.NewNeo4JGraphRepository,
			database.NewPostgresClient,
			database.NewPostgresTransferRepository,
			messaging.NewNATSConsumer,
			messaging.NewKafkaPublisher,
		),

		// Domain services
		fx.Provide(
			newDetector,
			newLabeler,
		),

		// Application providers
		fx.Provide(newAnalysisService),

		// Lifecycle hooks
		fx.Invoke(startDetector),
		fx.Invoke(startHealthServer),

		fx.WithLogger(func() fxevent.Logger {
			return fxevent.NopLogger
		}),
	)

	ctx := context.Background()
	if err := app.Start(ctx); err != nil {
		log.Error("Failed to start application", zap.Error(err))
		os.Exit(1)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Info("Shutting down application...")

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.Stop(stopCtx); err != nil {
		log.Error("Failed to stop application gracefully", zap.Error(err))
		os.Exit(1)
	}

	log.Info("Application stopped successfully")
}

func newDetector(cfg *config.Config, log *logger.Logger) *domain_service.SuspiciousBehaviorDetector {
	return domain_service.NewSuspiciousBehaviorDetector(log,
		domain_service.WithEdgePolicy(cfg.Detection.Policy()),
		domain_service.WithSearchBudget(cfg.Detection.MaxSearchSteps),
	)
}

func newLabeler(cfg *config.Config, log *logger.Logger) *domain_service.AddressLabeler {
	whale, shrimp := cfg.Detection.Thresholds()
	return domain_service.NewAddressLabeler(domain_service.LabelThresholds{Whale: whale, Shrimp: shrimp}, log)
}

func newAnalysisService(
	cfg *config.Config,
	detector *domain_service.SuspiciousBehaviorDetector,
	labeler *domain_service.AddressLabeler,
	ledger *database.PostgresTransferRepository,
	graphRepo repository.GraphRepository,
	publisher *messaging.KafkaPublisher,
	log *logger.Logger,
) *app_service.AnalysisApplicationService {
	stores := app_service.Stores{
		Transfers: ledger,
		Labels:    ledger,
		Publisher: publisher,
	}
	if cfg.Neo4J.Enabled {
		stores.Graph = graphRepo
	}

	return app_service.NewAnalysisApplicationService(detector, labeler, stores, app_service.AnalysisSettings{
		Cycles:         cfg.Detection.CycleParams(),
		FanOut:         cfg.Detection.FanOutParams(),
		DedupCacheSize: uint(cfg.Detection.DedupCacheSize),
	}, log)
}

// startDetector connects the stores, reseeds the ledger and starts ingestion
// and periodic analysis
func startDetector(
	lifecycle fx.Lifecycle,
	consumer *messaging.NATSConsumer,
	analysis *app_service.AnalysisApplicationService,
	publisher *messaging.KafkaPublisher,
	pg *database.PostgresClient,
	ledger *database.PostgresTransferRepository,
	neo4jClient *database.Neo4JClient,
	log *zap.Logger,
	cfg *config.Config,
) {
	runCtx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("Starting behavior detector...")

			if err := pg.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to Postgres: %w", err)
			}
			if err := ledger.EnsureSchema(ctx); err != nil {
				return err
			}

			if cfg.Neo4J.Enabled {
				if err := neo4jClient.Connect(ctx); err != nil {
					return fmt.Errorf("failed to connect to Neo4J: %w", err)
				}
			}

			loaded, err := analysis.Reseed(ctx)
			if err != nil {
				return fmt.Errorf("failed to reseed ledger: %w", err)
			}
			log.Info("Ledger reseeded", zap.Int("transfers", loaded))

			log.Info("NATS Configuration",
				zap.String("url", cfg.NATS.URL),
				zap.String("stream_name", cfg.NATS.StreamName),
				zap.String("subject_prefix", cfg.NATS.SubjectPrefix),
				zap.Bool("enabled", cfg.NATS.Enabled),
			)
			if err := consumer.Connect(ctx); err != nil {
				return fmt.Errorf("failed to connect to NATS: %w", err)
			}

			wg.Add(2)
			go func() {
				defer wg.Done()
				processMessages(runCtx, consumer, analysis, log, cfg)
			}()
			go func() {
				defer wg.Done()
				runAnalysisLoop(runCtx, analysis, log, cfg.Detection.AnalysisInterval)
			}()

			log.Info("Behavior detector started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Stopping behavior detector...")
			err := consumer.Disconnect()
			cancel()
			wg.Wait()

			if err := publisher.Close(); err != nil {
				log.Error("Failed to close Kafka producer", zap.Error(err))
			}
			if cfg.Neo4J.Enabled {
				if err := neo4jClient.Close(ctx); err != nil {
					log.Error("Failed to close Neo4J connection", zap.Error(err))
				}
			}
			if err := pg.Close(); err != nil {
				log.Error("Failed to close Postgres connection", zap.Error(err))
			}
			return err
		},
	})
}

// runAnalysisLoop runs a full analysis every interval until ctx ends
func runAnalysisLoop(ctx context.Context, analysis *app_service.AnalysisApplicationService, log *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if analysis.LedgerStats().TransactionCount == 0 {
				continue
			}
			if _, err := analysis.RunAnalysis(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Analysis run incomplete", zap.Error(err))
			}
		}
	}
}

// startHealthServer starts the health check server
func startHealthServer(
	lifecycle fx.Lifecycle,
	cfg *config.Config,
	analysis *app_service.AnalysisApplicationService,
	consumer *messaging.NATSConsumer,
	pg *database.PostgresClient,
	logger *logger.Logger,
) {
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.HTTPPort),
		ReadHeaderTimeout: cfg.Health.Timeout,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			logger.Info("Starting health server...", zap.Int("port", cfg.App.HTTPPort))

			mux := http.NewServeMux()
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				checkCtx, cancel := context.WithTimeout(r.Context(), cfg.Health.Timeout)
				defer cancel()

				status := map[string]bool{
					"postgres": pg.IsConnected(checkCtx),
					"nats":     !cfg.NATS.Enabled || consumer.IsConnected(),
				}
				code := http.StatusOK
				for _, ok := range status {
					if !ok {
						code = http.StatusServiceUnavailable
					}
				}
				writeJSON(w, code, status)
			})
			mux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusOK, analysis.LedgerStats())
			})
			mux.HandleFunc("/wallets/", func(w http.ResponseWriter, r *http.Request) {
				address := r.URL.Path[len("/wallets/"):]
				profile, err := analysis.ProfileAddress(r.Context(), address)
				switch {
				case errors.Is(err, entity.ErrNotFound):
					writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
				case err != nil:
					writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
				default:
					writeJSON(w, http.StatusOK, profile)
				}
			})
			server.Handler = mux

			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Error("Health server error", zap.Error(err))
				}
			}()

			logger.Info("Health server started successfully")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("Stopping health server...")
			return server.Shutdown(ctx)
		},
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// processMessages batches deliveries and ingests them on a worker pool. Each
// delivery is acked only after its transfer is stored.
func processMessages(
	ctx context.Context,
	consumer *messaging.NATSConsumer,
	analysis *app_service.AnalysisApplicationService,
	logger *zap.Logger,
	cfg *config.Config,
) {
	msgChan := consumer.GetMessageChannel()
	batch := make([]*messaging.TransferDelivery, 0, cfg.App.BatchSize)
	ticker := time.NewTicker(5 * time.Second) // Flush batch every 5 seconds
	defer ticker.Stop()

	jobChan := make(chan []*messaging.TransferDelivery, cfg.App.WorkerPoolSize)
	var wg sync.WaitGroup

	for i := 0; i < cfg.App.WorkerPoolSize; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for deliveries := range jobChan {
				// Ingestion must finish even while shutting down.
				ingestCtx := context.WithoutCancel(ctx)
				var errs []error
				for _, d := range deliveries {
					if err := d.Ingest(ingestCtx, analysis); err != nil {
						errs = append(errs, err)
					}
				}
				if len(errs) > 0 {
					logger.Warn("Transfer batch partially ingested",
						zap.Error(errors.Join(errs...)),
						zap.Int("worker_id", workerID),
						zap.Int("batch_size", len(deliveries)),
						zap.Int("failed", len(errs)))
				}
			}
		}(i)
	}

	flush := func() {
		if len(batch) == 0 {
			return
		}
		deliveries := make([]*messaging.TransferDelivery, len(batch))
		copy(deliveries, batch)
		jobChan <- deliveries
		batch = batch[:0]
	}
	stop := func() {
		flush()
		close(jobChan)
		wg.Wait()
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return

		case delivery, ok := <-msgChan:
			if !ok {
				stop()
				return
			}
			batch = append(batch, delivery)
			if len(batch) >= cfg.App.BatchSize {
				flush()
			}

		case <-ticker.C:
			flush()
		}
	}
}
