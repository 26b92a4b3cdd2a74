package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chain-forensics/internal/domain/entity"
	"chain-forensics/internal/domain/repository"
	"chain-forensics/internal/domain/service"
	"chain-forensics/internal/infrastructure/cache"
	"chain-forensics/internal/infrastructure/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoLedgerStore is returned by operations that need the ledger store when
// none is configured
var ErrNoLedgerStore = errors.New("no ledger store configured")

// AnalysisSettings are the thresholds used by RunAnalysis and ProfileAddress
type AnalysisSettings struct {
	Cycles         entity.CycleParams
	FanOut         entity.FanOutParams
	DedupCacheSize uint
}

// DefaultAnalysisSettings returns the stock detector thresholds
func DefaultAnalysisSettings() AnalysisSettings {
	return AnalysisSettings{
		Cycles: entity.DefaultCycleParams(),
		FanOut: entity.DefaultFanOutParams(),
	}
}

// Stores groups the optional persistence and delivery backends. Nil members
// are skipped.
type Stores struct {
	Transfers repository.TransferRepository
	Labels    repository.LabelRepository
	Graph     repository.GraphRepository
	Publisher service.FindingPublisher
}

// AnalysisApplicationService implements AnalysisService. It owns one detector
// behind a read/write lock: ingestion is the single writer, detection runs on
// snapshots taken under the read lock.
type AnalysisApplicationService struct {
	mu       sync.RWMutex
	detector *service.SuspiciousBehaviorDetector
	labeler  *service.AddressLabeler
	stores   Stores
	dedup    *cache.DedupCache
	settings AnalysisSettings
	logger   *logger.Logger
	now      func() time.Time
	newRunID func() uuid.UUID
}

// NewAnalysisApplicationService creates a new analysis application service
func NewAnalysisApplicationService(
	detector *service.SuspiciousBehaviorDetector,
	labeler *service.AddressLabeler,
	stores Stores,
	settings AnalysisSettings,
	logger *logger.Logger,
) *AnalysisApplicationService {
	return &AnalysisApplicationService{
		detector: detector,
		labeler:  labeler,
		stores:   stores,
		dedup:    cache.NewDedupCache(settings.DedupCacheSize),
		settings: settings,
		logger:   logger.WithComponent("analysis-service"),
		now:      time.Now,
		newRunID: uuid.New,
	}
}

var _ service.AnalysisService = (*AnalysisApplicationService)(nil)

// IngestTransfer validates one event, drops redeliveries, persists it and
// adds it to the ledger
func (s *AnalysisApplicationService) IngestTransfer(ctx context.Context, event *entity.TransferEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}
	rec, err := event.Record()
	if err != nil {
		return err
	}

	key := event.Key()
	if s.dedup.SeenOrAdd(key) {
		s.logger.Debug("Skipping redelivered transfer", zap.String("key", key))
		return nil
	}

	if s.stores.Transfers != nil {
		inserted, err := s.stores.Transfers.SaveTransfer(ctx, event)
		if err != nil {
			s.dedup.Forget(key)
			return fmt.Errorf("failed to persist transfer: %w", err)
		}
		if !inserted {
			s.logger.Debug("Transfer already stored", zap.String("key", key))
			return nil
		}
	}

	s.mu.Lock()
	err = s.detector.AddRecord(rec)
	s.mu.Unlock()
	return err
}

// IngestBatch ingests every event and returns the rejections joined
func (s *AnalysisApplicationService) IngestBatch(ctx context.Context, events []*entity.TransferEvent) error {
	var errs []error
	accepted := 0
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := s.IngestTransfer(ctx, event); err != nil {
			errs = append(errs, fmt.Errorf("transfer %s: %w", event.Key(), err))
			continue
		}
		accepted++
	}

	s.logger.Debug("Ingested transfer batch",
		zap.Int("events", len(events)),
		zap.Int("accepted", accepted),
		zap.Int("rejected", len(errs)))
	return errors.Join(errs...)
}

// Reseed rebuilds the in-memory ledger from the ledger store, oldest first
func (s *AnalysisApplicationService) Reseed(ctx context.Context) (int, error) {
	if s.stores.Transfers == nil {
		return 0, ErrNoLedgerStore
	}

	events, err := s.stores.Transfers.ListTransfers(ctx, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to load ledger: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.detector.Reset()
	s.dedup.Reset(s.settings.DedupCacheSize)
	loaded := 0
	for _, event := range events {
		rec, err := event.Record()
		if err != nil {
			s.logger.Warn("Skipping unreadable stored transfer",
				zap.String("key", event.Key()),
				zap.Error(err))
			continue
		}
		if err := s.detector.AddRecord(rec); err != nil {
			s.logger.Warn("Skipping invalid stored transfer",
				zap.String("key", event.Key()),
				zap.Error(err))
			continue
		}
		s.dedup.SeenOrAdd(event.Key())
		loaded++
	}

	s.logger.Info("Reseeded ledger from store",
		zap.Int("stored", len(events)),
		zap.Int("loaded", loaded))
	return loaded, nil
}

// Reset drops the in-memory ledger
func (s *AnalysisApplicationService) Reset() {
	s.mu.Lock()
	s.detector.Reset()
	s.dedup.Reset(s.settings.DedupCacheSize)
	s.mu.Unlock()
}

func (s *AnalysisApplicationService) snapshot() *service.SuspiciousBehaviorDetector {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detector.Snapshot()
}

// DetectWashTrading runs cycle detection on a snapshot
func (s *AnalysisApplicationService) DetectWashTrading(minLen, maxLen int) []entity.CycleFinding {
	return s.snapshot().DetectWashTrading(minLen, maxLen)
}

// DetectFanOut runs fan-out detection on a snapshot
func (s *AnalysisApplicationService) DetectFanOut(params entity.FanOutParams) []entity.FanOutFinding {
	return s.snapshot().DetectFanOut(params)
}

// detectAll runs both detectors on one snapshot concurrently
func (s *AnalysisApplicationService) detectAll(ctx context.Context, snap *service.SuspiciousBehaviorDetector) ([]entity.CycleFinding, []entity.FanOutFinding, error) {
	var (
		cycles  []entity.CycleFinding
		fanOuts []entity.FanOutFinding
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		cycles = snap.DetectWashTrading(s.settings.Cycles.MinLength, s.settings.Cycles.MaxLength)
		return gctx.Err()
	})
	g.Go(func() error {
		fanOuts = snap.DetectFanOut(s.settings.FanOut)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return cycles, fanOuts, nil
}

// RunAnalysis runs every detector on a snapshot, labels addresses and pushes
// the report to the graph store, the label store and the publisher. The
// report is returned even when some of those fail; their errors are joined.
func (s *AnalysisApplicationService) RunAnalysis(ctx context.Context) (*entity.AnalysisReport, error) {
	start := s.now()
	snap := s.snapshot()

	cycles, fanOuts, err := s.detectAll(ctx, snap)
	if err != nil {
		return nil, err
	}

	report := &entity.AnalysisReport{
		RunID:       s.newRunID(),
		GeneratedAt: s.now().UTC(),
		Stats:       snap.Stats(),
		WashTrading: cycles,
		FanOuts:     fanOuts,
		Labels:      s.labeler.Label(snap.Transactions(), cycles, fanOuts),
	}

	log := s.logger.WithFields(map[string]interface{}{"run_id": report.RunID.String()})
	if len(fanOuts) > 0 {
		log.Debug("Widest fan-out",
			zap.String("sender", fanOuts[0].Sender),
			zap.Int("recipients", fanOuts[0].RecipientCount),
			zap.Stringer("window", fanOuts[0].TimeWindow))
	}
	log.Info("Analysis finished",
		zap.Int("transactions", report.Stats.TransactionCount),
		zap.Int("addresses", report.Stats.AddressCount),
		zap.Int("wash_trading", len(cycles)),
		zap.Int("fan_outs", len(fanOuts)),
		zap.Duration("took", s.now().Sub(start)))

	var errs []error
	if g := s.stores.Graph; g != nil {
		if err := g.SyncEdges(ctx, snap.Edges()); err != nil {
			errs = append(errs, err)
		}
		if err := g.SaveCycleFindings(ctx, report.RunID, cycles); err != nil {
			errs = append(errs, err)
		}
		if err := g.SaveFanOutFindings(ctx, report.RunID, fanOuts); err != nil {
			errs = append(errs, err)
		}
		if err := g.SaveLabels(ctx, report.Labels); err != nil {
			errs = append(errs, err)
		}
		if len(errs) == 0 {
			if _, err := g.PruneFindings(ctx, report.RunID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if s.stores.Labels != nil {
		if err := s.stores.Labels.UpsertLabels(ctx, report.Labels); err != nil {
			errs = append(errs, err)
		}
	}
	if s.stores.Publisher != nil {
		if err := s.stores.Publisher.PublishReport(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}

	if err := errors.Join(errs...); err != nil {
		log.Error("Failed to deliver analysis report", zap.Error(err))
		return report, err
	}
	return report, nil
}

// ProfileAddress builds the deep-dive view of one address
func (s *AnalysisApplicationService) ProfileAddress(ctx context.Context, address string) (*entity.AddressProfile, error) {
	snap := s.snapshot()
	if !snap.Graph().HasNode(address) {
		return nil, fmt.Errorf("address %s: %w", address, entity.ErrNotFound)
	}

	cycles, fanOuts, err := s.detectAll(ctx, snap)
	if err != nil {
		return nil, err
	}

	ledger := snap.Transactions()
	profile := service.BuildAddressProfile(address, ledger, cycles, fanOuts)
	for _, label := range s.labeler.Label(ledger, cycles, fanOuts) {
		if label.Address == address {
			profile.Label = label
			break
		}
	}

	if profile.Label == nil && s.stores.Labels != nil {
		label, err := s.stores.Labels.GetLabel(ctx, address)
		switch {
		case err == nil:
			profile.Label = label
		case !errors.Is(err, entity.ErrNotFound):
			return profile, err
		}
	}
	return profile, nil
}

// LedgerStats aggregates the current ledger
func (s *AnalysisApplicationService) LedgerStats() entity.LedgerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.detector.Stats()
}
