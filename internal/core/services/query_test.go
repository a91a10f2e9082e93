package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sitesage/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
)

const (
	helpText  = "Passwords are reset at the help desk in room 101."
	otherText = "Parking permits are sold online."
)

type queryFixture struct {
	store    *memory.VectorStore
	embedder *fakeEmbedder
	llm      *mockLLMService
	prompts  *mockPromptStore
	svc      *QueryService
}

func newQueryFixture(t *testing.T, load bool) *queryFixture {
	t.Helper()
	ctx := context.Background()

	f := &queryFixture{
		store: memory.NewVectorStore(),
		embedder: &fakeEmbedder{vectors: map[string][]float32{
			"How do I reset my password?": {1, 0, 0, 0},
			"Where is the cafeteria?":     {0, 0, 1, 0},
			helpText:                      {1, 0, 0, 0},
			otherText:                     {0, 1, 0, 0},
		}},
		llm: &mockLLMService{reply: "Visit the help desk."},
		prompts: &mockPromptStore{prompts: map[string]string{
			driven.PromptAnswerSystem: "Answer only from the context.",
			driven.PromptAnswerUser:   "<question>%s</question>\n\n<context>%s</context>",
		}},
	}

	coll, err := f.store.CreateCollection(ctx, domain.CollectionSpec{
		Name:      domain.CollectionName(testSource),
		Dimension: testDims,
		Metric:    domain.MetricL2,
	})
	require.NoError(t, err)

	batch := domain.NewEntryBatch(2)
	batch.Append(domain.Passage{
		Text:        helpText,
		Title:       "IT Help\nDesk",
		Source:      "https://example.com/docs/help",
		Fingerprint: domain.Fingerprint(helpText),
	}, f.embedder.vector(helpText))
	batch.Append(domain.Passage{
		Text:        otherText,
		Title:       "Parking",
		Source:      "https://example.com/docs/parking",
		Fingerprint: domain.Fingerprint(otherText),
	}, f.embedder.vector(otherText))
	require.NoError(t, coll.BulkInsert(ctx, batch))
	if load {
		require.NoError(t, coll.Load(ctx))
	}

	f.svc = f.newService(f.store, f.llm)
	return f
}

func (f *queryFixture) newService(store driven.VectorStore, llm driven.LLMService) *QueryService {
	return NewQueryService(
		QueryConfig{Source: testSource, Temperature: 0.2, MaxTokens: 256},
		store,
		NewSharedEmbedderFrom(f.embedder),
		NewThresholdRetriever(3, 0.7),
		llm,
		f.prompts,
	)
}

func TestIsGreeting(t *testing.T) {
	tests := []struct {
		question string
		want     bool
	}{
		{"Hello", true},
		{"  HEY there ", true},
		{"who are you?", true},
		{"What's your name", true},
		{"what is your name?", true},
		{"good morning, who are you?", true},
		{"Can you help me?", true},
		{"yo", true},
		{"How do I reset my password?", false},
		{"Where is the cafeteria?", false},
		{"Is your office open on Sunday?", false},
		{"this is a thinking question", false},
		{"¡hola! hi", true},
		{"hey_there", false},
		{"Is there yoğurt in the cafeteria?", false},
		{"Wie öffnet das Büro? Hallo-hi", true},
		{"Is the café hiring?", false},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			assert.Equal(t, tt.want, IsGreeting(tt.question))
		})
	}
}

func TestQueryService_Greeting(t *testing.T) {
	f := newQueryFixture(t, true)

	answer, err := f.svc.Answer(context.Background(), "Hi!")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerGreeting, answer.Kind)
	assert.Equal(t, domain.GreetingMessage(testSource), answer.Text)
	assert.Empty(t, answer.Source)
	assert.Zero(t, f.llm.calls)
	assert.Zero(t, f.embedder.calls.Load())
}

func TestQueryService_GeneratesAnswerWithSource(t *testing.T) {
	f := newQueryFixture(t, true)

	answer, err := f.svc.Answer(context.Background(), "How do I reset my password?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerGenerated, answer.Kind)
	assert.Equal(t,
		"Visit the help desk.\n\nSource: [IT Help Desk](https://example.com/docs/help)",
		answer.Text)
	assert.Equal(t, "https://example.com/docs/help", answer.Source)
	require.Len(t, answer.Passages, 1)
	assert.InDelta(t, 1.0, answer.Passages[0].Score, 1e-6)

	require.Len(t, f.llm.messages, 2)
	assert.Equal(t, driven.RoleSystem, f.llm.messages[0].Role)
	assert.Equal(t, "Answer only from the context.", f.llm.messages[0].Content)
	assert.Equal(t, driven.RoleUser, f.llm.messages[1].Role)
	assert.Equal(t,
		"<question>How do I reset my password?</question>\n\n<context>"+helpText+"</context>",
		f.llm.messages[1].Content)
	assert.InDelta(t, 0.2, f.llm.opts.Temperature, 1e-9)
	assert.Equal(t, 256, f.llm.opts.MaxTokens)
}

func TestQueryService_NoQualifyingPassages(t *testing.T) {
	f := newQueryFixture(t, true)

	answer, err := f.svc.Answer(context.Background(), "Where is the cafeteria?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerInsufficient, answer.Kind)
	assert.Equal(t, domain.InsufficientInformationMessage(testSource), answer.Text)
	assert.Empty(t, answer.Source)
	assert.Zero(t, f.llm.calls)
}

func TestQueryService_MissingCollection(t *testing.T) {
	f := newQueryFixture(t, true)
	svc := f.newService(memory.NewVectorStore(), f.llm)

	answer, err := svc.Answer(context.Background(), "How do I reset my password?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerInsufficient, answer.Kind)
	assert.Zero(t, f.llm.calls)
	assert.Zero(t, f.embedder.calls.Load())
}

func TestQueryService_LoadsCollectionOnFirstQuery(t *testing.T) {
	f := newQueryFixture(t, false)

	passages, err := f.svc.Retrieve(context.Background(), "How do I reset my password?")

	require.NoError(t, err)
	require.Len(t, passages, 1)
	assert.Equal(t, domain.Fingerprint(helpText), passages[0].Fingerprint)
}

func TestQueryService_RateLimited(t *testing.T) {
	f := newQueryFixture(t, true)
	f.llm.err = domain.NewUpstreamError("mistral", 429, errors.New("too many requests"))

	answer, err := f.svc.Answer(context.Background(), "How do I reset my password?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerHighTraffic, answer.Kind)
	assert.Equal(t, domain.HighTrafficMessage, answer.Text)
	assert.Empty(t, answer.Source)
}

func TestQueryService_UpstreamFailure(t *testing.T) {
	f := newQueryFixture(t, true)
	f.llm.err = domain.NewUpstreamError("mistral", 500, errors.New("internal error"))

	answer, err := f.svc.Answer(context.Background(), "How do I reset my password?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerUnavailable, answer.Kind)
	assert.Equal(t, domain.UnavailableMessage, answer.Text)
	assert.NotContains(t, answer.Text, "internal error")
}

func TestQueryService_NoLLM(t *testing.T) {
	f := newQueryFixture(t, true)
	svc := f.newService(f.store, nil)

	answer, err := svc.Answer(context.Background(), "How do I reset my password?")

	require.NoError(t, err)
	assert.Equal(t, domain.AnswerUnavailable, answer.Kind)
}

func TestQueryService_UnknownSourceHasNoAttribution(t *testing.T) {
	f := newQueryFixture(t, true)
	ctx := context.Background()
	store := memory.NewVectorStore()
	coll, err := store.CreateCollection(ctx, domain.CollectionSpec{
		Name: domain.CollectionName(testSource), Dimension: testDims, Metric: domain.MetricL2,
	})
	require.NoError(t, err)
	batch := domain.NewEntryBatch(1)
	batch.Append(domain.Passage{Text: helpText, Fingerprint: domain.Fingerprint(helpText)}, f.embedder.vector(helpText))
	require.NoError(t, coll.BulkInsert(ctx, batch))
	require.NoError(t, coll.Load(ctx))

	answer, err := f.newService(store, f.llm).Answer(ctx, "How do I reset my password?")

	require.NoError(t, err)
	assert.Equal(t, "Visit the help desk.", answer.Text)
	assert.Empty(t, answer.Source)
}

func TestQueryService_StorageErrorPropagates(t *testing.T) {
	f := newQueryFixture(t, true)
	storeErr := errors.New("connection refused")
	svc := f.newService(failingStore{err: storeErr}, f.llm)

	_, err := svc.Answer(context.Background(), "How do I reset my password?")

	require.ErrorIs(t, err, storeErr)
}

func TestQueryService_DimensionMismatchPropagates(t *testing.T) {
	f := newQueryFixture(t, true)
	ctx := context.Background()
	store := memory.NewVectorStore()
	coll, err := store.CreateCollection(ctx, domain.CollectionSpec{
		Name: domain.CollectionName(testSource), Dimension: 8, Metric: domain.MetricL2,
	})
	require.NoError(t, err)
	require.NoError(t, coll.Load(ctx))
	svc := f.newService(store, f.llm)

	passages, err := svc.Retrieve(ctx, "How do I reset my password?")
	assert.Nil(t, passages)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)

	answer, err := svc.Answer(ctx, "How do I reset my password?")
	assert.Nil(t, answer)
	require.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Zero(t, f.llm.calls)
}

func TestQueryService_EmbeddingErrorPropagates(t *testing.T) {
	f := newQueryFixture(t, true)
	f.embedder.err = errors.New("embedder down")

	_, err := f.svc.Answer(context.Background(), "How do I reset my password?")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder down")
}

func TestQueryService_BadUserPromptFallsBack(t *testing.T) {
	f := newQueryFixture(t, true)
	f.prompts.prompts[driven.PromptAnswerUser] = "no placeholders here"

	_, err := f.svc.Answer(context.Background(), "How do I reset my password?")

	require.NoError(t, err)
	require.Len(t, f.llm.messages, 2)
	assert.Contains(t, f.llm.messages[1].Content, "<question>How do I reset my password?</question>")
}

func TestQueryService_MissingSystemPromptIsOmitted(t *testing.T) {
	f := newQueryFixture(t, true)
	delete(f.prompts.prompts, driven.PromptAnswerSystem)

	_, err := f.svc.Answer(context.Background(), "How do I reset my password?")

	require.NoError(t, err)
	require.Len(t, f.llm.messages, 1)
	assert.Equal(t, driven.RoleUser, f.llm.messages[0].Role)
}

func TestQueryService_RecordsStats(t *testing.T) {
	f := newQueryFixture(t, true)
	stats := NewStatsService(memory.NewStatsStore())
	f.svc.SetStatsService(stats)
	ctx := context.Background()

	_, err := f.svc.Answer(ctx, "How do I reset my password?")
	require.NoError(t, err)
	_, err = f.svc.Answer(ctx, "Where is the cafeteria?")
	require.NoError(t, err)

	summary, err := stats.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Usage.Questions)
	assert.Equal(t, 1, summary.Usage.Answered)
	assert.Equal(t, 1, summary.Usage.Declined)
}
