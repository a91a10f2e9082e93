package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
	"github.com/custodia-labs/sitesage/internal/logger"
)

// Ensure Synchronizer implements the interface.
var _ driving.CorpusSynchronizer = (*Synchronizer)(nil)

const (
	// defaultEmbedBatchSize bounds the texts sent in one embedding request.
	defaultEmbedBatchSize = 64

	// historyKeep is the number of runs kept per collection.
	historyKeep = 100
)

// SynchronizerConfig configures a Synchronizer.
type SynchronizerConfig struct {
	// Source is the seed URL of the corpus.
	Source string

	// Metric is used when the collection is created.
	Metric domain.Metric

	// EmbedBatchSize bounds texts per embedding request. Zero uses 64.
	EmbedBatchSize int
}

// Synchronizer reconciles the vector index with the live website.
// Only one cycle runs at a time.
type Synchronizer struct {
	source     string
	collection string
	metric     domain.Metric
	batchSize  int

	crawler    driven.Crawler
	normaliser driven.Normaliser
	pipeline   driven.PostProcessorPipeline
	store      driven.VectorStore
	embedder   driven.EmbeddingService
	history    driven.SyncHistoryStore

	writer sync.Mutex

	// Status tracking
	mu     sync.RWMutex
	status driving.SyncStatus
}

// NewSynchronizer creates a synchronizer. history may be nil.
func NewSynchronizer(
	cfg SynchronizerConfig,
	crawler driven.Crawler,
	normaliser driven.Normaliser,
	pipeline driven.PostProcessorPipeline,
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	history driven.SyncHistoryStore,
) *Synchronizer {
	metric := cfg.Metric
	if !metric.IsValid() {
		metric = domain.MetricL2
	}
	batch := cfg.EmbedBatchSize
	if batch <= 0 {
		batch = defaultEmbedBatchSize
	}
	name := domain.CollectionName(cfg.Source)
	return &Synchronizer{
		source:     cfg.Source,
		collection: name,
		metric:     metric,
		batchSize:  batch,
		crawler:    crawler,
		normaliser: normaliser,
		pipeline:   pipeline,
		store:      store,
		embedder:   embedder,
		history:    history,
		status: driving.SyncStatus{
			Collection: name,
			Phase:      domain.PhaseIdle,
		},
	}
}

// Collection returns the collection name derived from the source.
func (s *Synchronizer) Collection() string {
	return s.collection
}

// Sync runs one synchronisation cycle.
func (s *Synchronizer) Sync(ctx context.Context) (*domain.SyncReport, error) {
	if !s.writer.TryLock() {
		return nil, domain.ErrSyncInProgress
	}
	defer s.writer.Unlock()

	started := time.Now()
	s.begin()

	logger.Section("Sync " + s.collection)
	report, err := s.run(ctx, started)
	if report != nil {
		report.Duration = time.Since(started)
	}

	s.finish(report, err)
	s.record(ctx, started, report, err)

	if err != nil {
		return nil, err
	}
	logger.Info("Sync complete (%s): %d inserted, %d deleted, %d unchanged",
		report.Mode, report.Inserted, report.Deleted, report.Unchanged)
	return report, nil
}

// Status returns the current sync state. Before the first cycle of this
// process it falls back to the last recorded run.
func (s *Synchronizer) Status(ctx context.Context) (*driving.SyncStatus, error) {
	s.mu.RLock()
	status := s.status
	s.mu.RUnlock()

	if status.Running || status.LastReport != nil || status.LastError != "" || s.history == nil {
		return &status, nil
	}

	run, err := s.history.LastRun(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	if run != nil {
		status.LastReport = run.Report
		status.LastError = run.Error
	}
	return &status, nil
}

func (s *Synchronizer) run(ctx context.Context, started time.Time) (*domain.SyncReport, error) {
	report := &domain.SyncReport{
		Collection: s.collection,
		StartedAt:  started,
	}

	exists, err := s.store.HasCollection(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		report.Mode = domain.SyncBootstrap
		return report, s.bootstrap(ctx, report)
	}
	report.Mode = domain.SyncIncremental
	return report, s.incremental(ctx, report)
}

// bootstrap builds the collection from a full crawl.
func (s *Synchronizer) bootstrap(ctx context.Context, report *domain.SyncReport) error {
	passages, docs, err := s.crawl(ctx)
	if err != nil {
		return err
	}
	report.Documents = docs
	report.Passages = len(passages)

	dim := s.embedder.Dimensions()
	if dim <= 0 {
		return fmt.Errorf("create collection: %w", domain.ErrEmbeddingUnavailable)
	}
	coll, err := s.store.CreateCollection(ctx, domain.CollectionSpec{
		Name:      s.collection,
		Dimension: dim,
		Metric:    s.metric,
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	logger.Info("Created collection %s (%d dimensions, %s)", s.collection, dim, s.metric)

	if err := s.insert(ctx, coll, passages); err != nil {
		return err
	}
	report.Inserted = len(passages)

	return s.load(ctx, coll)
}

// incremental applies the diff between the crawl and the stored fingerprints.
func (s *Synchronizer) incremental(ctx context.Context, report *domain.SyncReport) error {
	coll, err := s.store.OpenCollection(ctx, s.collection)
	if err != nil {
		return fmt.Errorf("open collection: %w", err)
	}
	if dim, want := s.embedder.Dimensions(), coll.Spec().Dimension; dim > 0 && dim != want {
		return fmt.Errorf("collection %s: %w: embedder dim %d, collection dim %d",
			s.collection, domain.ErrDimensionMismatch, dim, want)
	}

	var (
		passages []domain.Passage
		docs     int
		existing map[string]struct{}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		passages, docs, err = s.crawl(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		existing, err = coll.ListFingerprints(gctx)
		if err != nil {
			return fmt.Errorf("list fingerprints: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	report.Documents = docs
	report.Passages = len(passages)

	if len(passages) == 0 && len(existing) > 0 {
		return fmt.Errorf("%w: %d entries kept in %s", domain.ErrEmptyCrawl, len(existing), s.collection)
	}

	plan := PlanSync(passages, existing)
	report.Unchanged = len(plan.Matched)
	logger.Info("Plan: %d to insert, %d to delete, %d unchanged",
		len(plan.ToInsert), len(plan.ToDelete), len(plan.Matched))

	s.setPhase(domain.PhaseDeleting)
	for _, fp := range plan.ToDelete {
		if err := coll.Delete(ctx, fp); err != nil {
			return fmt.Errorf("delete %s: %w", fp, err)
		}
		report.Deleted++
	}

	if err := s.insert(ctx, coll, plan.ToInsert); err != nil {
		return err
	}
	report.Inserted = len(plan.ToInsert)

	return s.load(ctx, coll)
}

// crawl fetches, cleans and chunks the site. Pages that fail to normalise are
// skipped.
func (s *Synchronizer) crawl(ctx context.Context) ([]domain.Passage, int, error) {
	s.setPhase(domain.PhaseCrawling)
	raws, err := s.crawler.Crawl(ctx, s.source)
	if err != nil {
		return nil, 0, fmt.Errorf("crawl %s: %w", s.source, err)
	}
	logger.Info("Fetched %d pages", len(raws))

	docs := make([]domain.Document, 0, len(raws))
	for i := range raws {
		doc, err := s.normaliser.Normalise(ctx, &raws[i])
		if err != nil {
			logger.Warn("Skipping %s: %v", raws[i].URL, err)
			continue
		}
		docs = append(docs, *doc)
	}

	s.setPhase(domain.PhaseChunking)
	passages, err := s.pipeline.ProcessCorpus(ctx, docs)
	if err != nil {
		return nil, 0, fmt.Errorf("chunk: %w", err)
	}
	logger.Info("Produced %d passages from %d documents", len(passages), len(docs))
	return passages, len(docs), nil
}

// insert embeds passages and writes them in a single bulk insert.
func (s *Synchronizer) insert(ctx context.Context, coll driven.Collection, passages []domain.Passage) error {
	if len(passages) == 0 {
		return nil
	}
	s.setPhase(domain.PhaseIndexing)

	batch := domain.NewEntryBatch(len(passages))
	for start := 0; start < len(passages); start += s.batchSize {
		end := min(start+s.batchSize, len(passages))
		texts := make([]string, 0, end-start)
		for _, p := range passages[start:end] {
			texts = append(texts, p.Text)
		}
		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed passages: %w", err)
		}
		for i, p := range passages[start:end] {
			batch.Append(p, vectors[i])
		}
		logger.Debug("Embedded %d/%d passages", end, len(passages))
	}

	if err := coll.BulkInsert(ctx, batch); err != nil {
		return fmt.Errorf("bulk insert: %w", err)
	}
	return nil
}

func (s *Synchronizer) load(ctx context.Context, coll driven.Collection) error {
	s.setPhase(domain.PhaseLoading)
	if err := coll.Load(ctx); err != nil {
		return fmt.Errorf("load collection: %w", err)
	}
	return nil
}

// PlanSync partitions a crawl against the stored fingerprints. Passages whose
// fingerprint is stored are matched; the rest are inserted. Stored
// fingerprints not matched are deleted, in sorted order.
func PlanSync(passages []domain.Passage, existing map[string]struct{}) domain.SyncPlan {
	var plan domain.SyncPlan
	matched := make(map[string]struct{}, len(passages))
	for _, p := range passages {
		if _, ok := existing[p.Fingerprint]; ok {
			if _, seen := matched[p.Fingerprint]; !seen {
				matched[p.Fingerprint] = struct{}{}
				plan.Matched = append(plan.Matched, p.Fingerprint)
			}
			continue
		}
		plan.ToInsert = append(plan.ToInsert, p)
	}
	for fp := range existing {
		if _, ok := matched[fp]; !ok {
			plan.ToDelete = append(plan.ToDelete, fp)
		}
	}
	slices.Sort(plan.ToDelete)
	return plan
}

func (s *Synchronizer) begin() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = true
	s.status.Phase = domain.PhaseCrawling
}

func (s *Synchronizer) setPhase(phase domain.SyncPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Phase = phase
}

func (s *Synchronizer) finish(report *domain.SyncReport, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Running = false
	s.status.Phase = domain.PhaseIdle
	if err != nil {
		s.status.LastError = err.Error()
		return
	}
	s.status.LastError = ""
	s.status.LastReport = report
}

// record persists the run. Failures are logged, never returned.
func (s *Synchronizer) record(ctx context.Context, started time.Time, report *domain.SyncReport, err error) {
	if s.history == nil {
		return
	}
	// A cancelled cycle is still recorded.
	ctx = context.WithoutCancel(ctx)
	if recErr := s.history.RecordRun(ctx, domain.NewSyncRun(s.collection, started, report, err)); recErr != nil {
		logger.Warn("record sync run: %v", recErr)
		return
	}
	if pruneErr := s.history.PruneHistory(ctx, historyKeep); pruneErr != nil {
		logger.Warn("prune sync history: %v", pruneErr)
	}
}

// IsSyncSkippable reports whether err only means another cycle is running.
func IsSyncSkippable(err error) bool {
	return errors.Is(err, domain.ErrSyncInProgress)
}
