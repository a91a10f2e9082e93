package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/sitesage/internal/adapters/driven/ai"
	"github.com/custodia-labs/sitesage/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sitesage/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sitesage/internal/adapters/driven/storage/qdrant"
	"github.com/custodia-labs/sitesage/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sitesage/internal/adapters/driving/cli"
	"github.com/custodia-labs/sitesage/internal/connectors/web"
	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/core/services"
	"github.com/custodia-labs/sitesage/internal/logger"
	"github.com/custodia-labs/sitesage/internal/normalisers/html"
	"github.com/custodia-labs/sitesage/internal/postprocessors"
)

// homeEnv overrides the state directory.
const homeEnv = "SITESAGE_HOME"

// resolveHome returns the directory holding config, prompts and the database.
func resolveHome(getenv func(string) string) (string, error) {
	if dir := getenv(homeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, file.DefaultDirName), nil
}

// storage bundles the driven stores chosen by storage.backend.
type storage struct {
	vectors driven.VectorStore
	stats   driven.StatsStore
	history driven.SyncHistoryStore
	closers []func() error
}

// openStorage opens the configured backend. Qdrant holds vectors only;
// statistics and sync history stay in the local sqlite database.
func openStorage(home string, s domain.StorageSettings) (*storage, error) {
	if s.Backend == domain.StorageMemory {
		return &storage{
			vectors: memory.NewVectorStore(),
			stats:   memory.NewStatsStore(),
			history: memory.NewSyncHistoryStore(),
		}, nil
	}

	path := s.Path
	if path == "" {
		path = filepath.Join(home, sqlite.DefaultFileName)
	}
	db, err := sqlite.NewStore(path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	st := &storage{
		vectors: db.VectorStore(),
		stats:   db.StatsStore(),
		history: db.SyncHistoryStore(),
		closers: []func() error{db.Close},
	}

	if s.Backend == domain.StorageQdrant {
		q, err := qdrant.NewStore(s.QdrantAddr)
		if err != nil {
			db.Close()
			return nil, err
		}
		st.vectors = q
		st.closers = append(st.closers, q.Close)
	}
	return st, nil
}

// app is the composition root.
type app struct {
	services cli.Services
	closers  []func() error
}

// Close releases stores and model clients.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// buildApp wires every adapter into the core services. Nothing here talks to
// the network; model providers are contacted on first use.
func buildApp(home string) (*app, error) {
	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("opening config: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore, ai.NewConfigValidator())

	settings, err := settingsSvc.Get()
	if err != nil {
		return nil, fmt.Errorf("reading settings: %w", err)
	}
	if err := settings.Validate(); err != nil {
		// Keep going so "settings set" can repair the file.
		logger.Warn("invalid settings, using defaults where needed: %v", err)
		defaults := settingsSvc.GetDefaults()
		settings = &defaults
	}

	store, err := openStorage(home, settings.Storage)
	if err != nil {
		return nil, err
	}
	a := &app{closers: store.closers}

	prompts, err := file.NewPromptStore(filepath.Join(home, "prompts"))
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("opening prompts: %w", err)
	}

	embeddingSettings := settings.Embedding
	embedder := services.NewSharedEmbedder(func() (driven.EmbeddingService, error) {
		return ai.CreateAndValidateEmbeddingService(&embeddingSettings)
	})
	a.closers = append(a.closers, embedder.Close)

	llm, err := ai.CreateLLMService(&settings.LLM)
	if err != nil {
		logger.Warn("llm disabled: %v", err)
		llm = nil
	}
	if llm != nil {
		a.closers = append(a.closers, llm.Close)
	}

	pipeline, err := postprocessors.NewDefaultPipeline(settings.Chunking.ChunkSize, settings.Chunking.Overlap)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("building chunking pipeline: %w", err)
	}

	syncer := services.NewSynchronizer(
		services.SynchronizerConfig{
			Source: settings.Corpus.Source,
			Metric: settings.Retrieval.Metric,
		},
		web.New(web.ConfigFromSettings(settings.Corpus)),
		html.New(),
		pipeline,
		store.vectors,
		embedder,
		store.history,
	)

	query := services.NewQueryService(
		services.QueryConfig{
			Source:      settings.Corpus.Source,
			Temperature: settings.LLM.Temperature,
			MaxTokens:   settings.LLM.MaxTokens,
		},
		store.vectors,
		embedder,
		services.NewThresholdRetriever(settings.Retrieval.K, settings.Retrieval.ScoreThreshold),
		llm,
		prompts,
	)
	stats := services.NewStatsService(store.stats)
	query.SetStatsService(stats)

	a.services = cli.Services{
		Query:     query,
		Sync:      syncer,
		Settings:  settingsSvc,
		Stats:     stats,
		Scheduler: services.NewScheduler(settings.Scheduler.Interval, syncer),
	}
	return a, nil
}
