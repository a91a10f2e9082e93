package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/custodia-labs/sitesage/internal/core/domain"
	"github.com/custodia-labs/sitesage/internal/core/ports/driven"
	"github.com/custodia-labs/sitesage/internal/core/ports/driving"
	"github.com/custodia-labs/sitesage/internal/logger"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// Used when the answer_user prompt is unusable.
const fallbackAnswerFormat = "<question>%s</question>\n\n<context>%s</context>"

// greetingPatterns match small talk that is answered without retrieval.
var greetingPatterns = []*regexp.Regexp{
	// RE2's \b only knows ASCII, so word edges are spelled out to keep
	// "yoğurt" from matching "yo".
	regexp.MustCompile(`(?:^|[^\p{L}\p{N}_])(hi|hello|hey|hiya|howdy|greetings|yo)(?:[^\p{L}\p{N}_]|$)`),
	regexp.MustCompile(`who (are|r) you\??`),
	regexp.MustCompile(`what('?s| is) your name\??`),
	regexp.MustCompile(`(hi|hello|hey|yo),? (who are you|what('?s| is) your name)\??`),
	regexp.MustCompile(`(hi|hello|hey|yo),? (what do you do|what can you do)\??`),
	regexp.MustCompile(`good (morning|afternoon|evening),? (who are you|what('?s| is) your role)\??`),
	regexp.MustCompile(`(can you help me|what can you do for me)\??`),
}

// IsGreeting reports whether the question is a greeting or an identity
// question.
func IsGreeting(question string) bool {
	normalized := strings.ToLower(strings.TrimSpace(question))
	for _, p := range greetingPatterns {
		if p.MatchString(normalized) {
			return true
		}
	}
	return false
}

// QueryConfig configures a QueryService.
type QueryConfig struct {
	// Source is the corpus seed URL. It names the collection and appears in
	// canned replies.
	Source string

	// Temperature and MaxTokens are passed to the LLM.
	Temperature float64
	MaxTokens   int
}

// QueryService answers questions from the indexed corpus.
type QueryService struct {
	cfg        QueryConfig
	collection string

	store     driven.VectorStore
	embedder  driven.EmbeddingService
	retriever *ThresholdRetriever
	llm       driven.LLMService
	prompts   driven.PromptStore

	// Optional, set after construction.
	stats driving.StatsService
}

// NewQueryService creates a query service. llm may be nil, in which case
// every retrieval-backed answer is reported as unavailable.
func NewQueryService(
	cfg QueryConfig,
	store driven.VectorStore,
	embedder driven.EmbeddingService,
	retriever *ThresholdRetriever,
	llm driven.LLMService,
	prompts driven.PromptStore,
) *QueryService {
	return &QueryService{
		cfg:        cfg,
		collection: domain.CollectionName(cfg.Source),
		store:      store,
		embedder:   embedder,
		retriever:  retriever,
		llm:        llm,
		prompts:    prompts,
	}
}

// SetStatsService enables usage statistics.
func (s *QueryService) SetStatsService(stats driving.StatsService) {
	s.stats = stats
}

// Answer returns a reply for the question.
func (s *QueryService) Answer(ctx context.Context, question string) (*domain.Answer, error) {
	answer, err := s.answer(ctx, question)
	if err != nil {
		return nil, err
	}
	if s.stats != nil {
		if err := s.stats.RecordAnswer(ctx, question, answer); err != nil {
			logger.Warn("record stats: %v", err)
		}
	}
	return answer, nil
}

func (s *QueryService) answer(ctx context.Context, question string) (*domain.Answer, error) {
	if IsGreeting(question) {
		return &domain.Answer{
			Text: domain.GreetingMessage(s.cfg.Source),
			Kind: domain.AnswerGreeting,
		}, nil
	}

	passages, err := s.Retrieve(ctx, question)
	if err != nil {
		return nil, err
	}
	if len(passages) == 0 {
		return &domain.Answer{
			Text: domain.InsufficientInformationMessage(s.cfg.Source),
			Kind: domain.AnswerInsufficient,
		}, nil
	}

	reply, err := s.generate(ctx, question, passages)
	if err != nil {
		if errors.Is(err, domain.ErrRateLimited) {
			logger.Warn("LLM rate limited: %v", err)
			return &domain.Answer{Text: domain.HighTrafficMessage, Kind: domain.AnswerHighTraffic}, nil
		}
		logger.Error("generate answer: %v", err)
		return &domain.Answer{Text: domain.UnavailableMessage, Kind: domain.AnswerUnavailable}, nil
	}

	answer := &domain.Answer{
		Text:     reply,
		Kind:     domain.AnswerGenerated,
		Passages: passages,
	}
	top := passages[0]
	if top.Source != domain.DefaultSource {
		answer.Text += domain.SourceAttribution(top.Title, top.Source)
		answer.Source = top.Source
	}
	return answer, nil
}

// Retrieve returns the passages that pass the relevance threshold, best
// first. A missing collection yields no passages.
func (s *QueryService) Retrieve(ctx context.Context, question string) ([]domain.RetrievedPassage, error) {
	exists, err := s.store.HasCollection(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("check collection: %w", err)
	}
	if !exists {
		logger.Debug("Collection %s does not exist", s.collection)
		return []domain.RetrievedPassage{}, nil
	}

	coll, err := s.store.OpenCollection(ctx, s.collection)
	if err != nil {
		return nil, fmt.Errorf("open collection: %w", err)
	}
	if !coll.Loaded() {
		if err := coll.Load(ctx); err != nil {
			return nil, fmt.Errorf("load collection: %w", err)
		}
	}

	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embed question: %w", err)
	}
	if want := coll.Spec().Dimension; len(vector) != want {
		return nil, fmt.Errorf("collection %s: %w: query dim %d, collection dim %d",
			s.collection, domain.ErrDimensionMismatch, len(vector), want)
	}
	return s.retriever.Retrieve(ctx, vector, coll), nil
}

func (s *QueryService) generate(ctx context.Context, question string, passages []domain.RetrievedPassage) (string, error) {
	if s.llm == nil {
		return "", domain.ErrLLMUnavailable
	}

	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	var messages []driven.ChatMessage
	if system := s.loadPrompt(driven.PromptAnswerSystem, ""); system != "" {
		messages = append(messages, driven.ChatMessage{Role: driven.RoleSystem, Content: system})
	}
	messages = append(messages, driven.ChatMessage{
		Role:    driven.RoleUser,
		Content: s.userPrompt(question, strings.Join(texts, "\n\n")),
	})
	return s.llm.Chat(ctx, messages, driven.ChatOptions{
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
	})
}

func (s *QueryService) userPrompt(question, passages string) string {
	tmpl := s.loadPrompt(driven.PromptAnswerUser, fallbackAnswerFormat)
	if strings.Count(tmpl, "%s") != 2 {
		logger.Warn("prompt %s needs two %%s placeholders, using the built-in one", driven.PromptAnswerUser)
		tmpl = fallbackAnswerFormat
	}
	return fmt.Sprintf(tmpl, question, passages)
}

func (s *QueryService) loadPrompt(name, fallback string) string {
	if s.prompts == nil {
		return fallback
	}
	prompt, err := s.prompts.Load(name)
	if err != nil {
		logger.Warn("load prompt %s: %v", name, err)
		return fallback
	}
	return prompt
}
