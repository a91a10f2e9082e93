package services

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
)

const testDims = 4

// --- Crawler ---

// mockCrawler implements driven.Crawler for testing.
type mockCrawler struct {
	mu    sync.Mutex
	pages []domain.RawDocument
	err   error
	calls atomic.Int32

	// When set, Crawl blocks until release is closed.
	started chan struct{}
	release chan struct{}
}

func (m *mockCrawler) Crawl(ctx context.Context, _ string) ([]domain.RawDocument, error) {
	m.calls.Add(1)
	if m.started != nil {
		close(m.started)
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.RawDocument(nil), m.pages...), nil
}

func (m *mockCrawler) setPages(pages ...domain.RawDocument) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages = pages
}

func page(url, content string) domain.RawDocument {
	return domain.RawDocument{URL: url, Title: "Page " + url, Content: content}
}

// --- Normaliser ---

// passthroughNormaliser copies raw content into a document.
// Pages whose content starts with "!" fail.
type passthroughNormaliser struct{}

func (passthroughNormaliser) SupportedMIMETypes() []string { return []string{"text/html"} }

func (passthroughNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if strings.HasPrefix(raw.Content, "!") {
		return nil, errors.New("unparseable page")
	}
	return &domain.Document{URL: raw.URL, Title: raw.Title, Content: raw.Content}, nil
}

// --- Pipeline ---

// paragraphPipeline emits one fingerprinted passage per "\n\n" separated
// paragraph, dropping repeated text.
type paragraphPipeline struct {
	err error
}

func (p paragraphPipeline) Process(_ context.Context, doc *domain.Document) ([]domain.Passage, error) {
	if p.err != nil {
		return nil, p.err
	}
	var out []domain.Passage
	for i, para := range strings.Split(doc.Content, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}
		out = append(out, domain.Passage{
			Text:        para,
			Title:       doc.Title,
			Source:      doc.URL,
			Position:    i,
			Fingerprint: domain.Fingerprint(para),
		})
	}
	return out, nil
}

func (p paragraphPipeline) ProcessCorpus(ctx context.Context, docs []domain.Document) ([]domain.Passage, error) {
	seen := make(map[string]struct{})
	var out []domain.Passage
	for i := range docs {
		passages, err := p.Process(ctx, &docs[i])
		if err != nil {
			return nil, err
		}
		for _, ps := range passages {
			if _, dup := seen[ps.Fingerprint]; dup {
				continue
			}
			seen[ps.Fingerprint] = struct{}{}
			out = append(out, ps)
		}
	}
	return out, nil
}

// --- Embedding ---

// fakeEmbedder returns fixed vectors for known texts and a hashed basis
// vector otherwise.
type fakeEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   atomic.Int32
	closed  bool
}

func (m *fakeEmbedder) vector(text string) []float32 {
	if v, ok := m.vectors[text]; ok {
		return append([]float32(nil), v...)
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	v := make([]float32, testDims)
	v[h.Sum32()%testDims] = 2
	return v
}

func (m *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *fakeEmbedder) Dimensions() int              { return testDims }
func (m *fakeEmbedder) ModelName() string            { return "fake" }
func (m *fakeEmbedder) Ping(_ context.Context) error { return m.err }
func (m *fakeEmbedder) Close() error {
	m.closed = true
	return nil
}

// --- LLM ---

// mockLLMService implements driven.LLMService for testing.
type mockLLMService struct {
	reply    string
	err      error
	calls    int
	messages []driven.ChatMessage
	opts     driven.ChatOptions
}

func (m *mockLLMService) Chat(_ context.Context, messages []driven.ChatMessage, opts driven.ChatOptions) (string, error) {
	m.calls++
	m.messages = messages
	m.opts = opts
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func (m *mockLLMService) ModelName() string            { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                 { return nil }

// --- Prompts ---

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// --- Collection ---

// mockCollection returns canned search results.
type mockCollection struct {
	spec      domain.CollectionSpec
	hits      []domain.SearchHit
	searchErr error
}

func (m *mockCollection) Spec() domain.CollectionSpec { return m.spec }
func (m *mockCollection) BulkInsert(_ context.Context, _ *domain.EntryBatch) error {
	return nil
}
func (m *mockCollection) Delete(_ context.Context, _ string) error { return nil }
func (m *mockCollection) ListFingerprints(_ context.Context) (map[string]struct{}, error) {
	return map[string]struct{}{}, nil
}
func (m *mockCollection) Count(_ context.Context) (int, error) { return len(m.hits), nil }
func (m *mockCollection) Load(_ context.Context) error          { return nil }
func (m *mockCollection) Loaded() bool                         { return true }
func (m *mockCollection) Search(_ context.Context, _ []float32, k int) ([]domain.SearchHit, error) {
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	if k < len(m.hits) {
		return m.hits[:k], nil
	}
	return m.hits, nil
}

// recordingStore serves a single recordingCollection that already exists.
type recordingStore struct {
	coll *recordingCollection
}

func (r *recordingStore) HasCollection(_ context.Context, _ string) (bool, error) { return true, nil }
func (r *recordingStore) CreateCollection(_ context.Context, _ domain.CollectionSpec) (driven.Collection, error) {
	return r.coll, nil
}
func (r *recordingStore) OpenCollection(_ context.Context, _ string) (driven.Collection, error) {
	return r.coll, nil
}
func (r *recordingStore) Close() error { return nil }

// recordingCollection logs every mutating call in order.
type recordingCollection struct {
	spec     domain.CollectionSpec
	existing map[string]struct{}

	// When set, ListFingerprints closes listed and then waits for proceed.
	listed  chan struct{}
	proceed chan struct{}

	mu    sync.Mutex
	calls []string
}

func (c *recordingCollection) record(call string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, call)
}

func (c *recordingCollection) Calls() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.calls...)
}

func (c *recordingCollection) Spec() domain.CollectionSpec { return c.spec }
func (c *recordingCollection) BulkInsert(_ context.Context, _ *domain.EntryBatch) error {
	c.record("insert")
	return nil
}
func (c *recordingCollection) Delete(_ context.Context, fp string) error {
	c.record("delete:" + fp)
	return nil
}
func (c *recordingCollection) ListFingerprints(ctx context.Context) (map[string]struct{}, error) {
	c.record("list")
	if c.listed != nil {
		close(c.listed)
		select {
		case <-c.proceed:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	out := make(map[string]struct{}, len(c.existing))
	for fp := range c.existing {
		out[fp] = struct{}{}
	}
	return out, nil
}
func (c *recordingCollection) Count(_ context.Context) (int, error) { return len(c.existing), nil }
func (c *recordingCollection) Load(_ context.Context) error {
	c.record("load")
	return nil
}
func (c *recordingCollection) Loaded() bool { return true }
func (c *recordingCollection) Search(_ context.Context, _ []float32, _ int) ([]domain.SearchHit, error) {
	return nil, nil
}

// failingStore is a VectorStore that cannot be reached.
type failingStore struct {
	err error
}

func (f failingStore) HasCollection(_ context.Context, _ string) (bool, error) { return false, f.err }
func (f failingStore) CreateCollection(_ context.Context, _ domain.CollectionSpec) (driven.Collection, error) {
	return nil, f.err
}
func (f failingStore) OpenCollection(_ context.Context, _ string) (driven.Collection, error) {
	return nil, f.err
}
func (f failingStore) Close() error { return nil }

// --- Synchronizer ---

// mockSyncer implements driving.CorpusSynchronizer for scheduler tests.
type mockSyncer struct {
	calls atomic.Int32
	err   error
}

func (m *mockSyncer) Sync(_ context.Context) (*domain.SyncReport, error) {
	m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.SyncReport{}, nil
}

func (m *mockSyncer) Status(_ context.Context) (*driving.SyncStatus, error) {
	return &driving.SyncStatus{}, nil
}

// --- AI validator ---

type mockAIConfigValidator struct {
	embeddingErr error
	llmErr       error
}

func (m *mockAIConfigValidator) ValidateEmbedding(_ *domain.EmbeddingSettings) error {
	return m.embeddingErr
}

func (m *mockAIConfigValidator) ValidateLLM(_ *domain.LLMSettings) error {
	return m.llmErr
}

var (
	_ driven.Crawler               = (*mockCrawler)(nil)
	_ driven.Normaliser            = passthroughNormaliser{}
	_ driven.PostProcessorPipeline = paragraphPipeline{}
	_ driven.EmbeddingService      = (*fakeEmbedder)(nil)
	_ driven.LLMService            = (*mockLLMService)(nil)
	_ driven.PromptStore           = (*mockPromptStore)(nil)
	_ driven.Collection            = (*mockCollection)(nil)
	_ driven.Collection            = (*recordingCollection)(nil)
	_ driven.VectorStore           = (*recordingStore)(nil)
	_ driven.VectorStore           = failingStore{}
	_ driving.CorpusSynchronizer   = (*mockSyncer)(nil)
	_ driven.AIConfigValidator     = (*mockAIConfigValidator)(nil)
)
