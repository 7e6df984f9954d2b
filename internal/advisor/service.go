// Package advisor wires the pure engines (risk, scenario, prompt) to the
// boundary collaborators (analytics, text generation, persistence). It is
// the only layer that converts external failures into degraded states.
package advisor

import (
	"context"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/quantalpha/advisor-cli/internal/analytics"
	"github.com/quantalpha/advisor-cli/internal/cost"
	"github.com/quantalpha/advisor-cli/internal/model"
	"github.com/quantalpha/advisor-cli/internal/prompt"
	"github.com/quantalpha/advisor-cli/internal/resilience"
	"github.com/quantalpha/advisor-cli/internal/risk"
	"github.com/quantalpha/advisor-cli/internal/scenario"
	"github.com/quantalpha/advisor-cli/internal/store"
	"github.com/quantalpha/advisor-cli/pkg/anthropic"
)

// ErrConversationBusy is returned when a chat request arrives while another
// request for the same conversation is still in flight. One turn at a time
// keeps the visible message list strictly ordered.
var ErrConversationBusy = eris.New("advisor: conversation has a request in flight")

// Options configures the advisor service.
type Options struct {
	Model       string
	MaxTokens   int64
	MaxHistory  int
	Temperature *float64
	Circuit     resilience.CircuitBreakerConfig
}

// Service orchestrates assessments, projections, and advisory chat.
type Service struct {
	opts      Options
	questions []model.Question
	profiles  []model.RiskProfile
	dataset   scenario.Dataset

	analytics  analytics.Fetcher
	llm        anthropic.Client
	llmBreaker *resilience.CircuitBreaker
	costs      *cost.Calculator
	store      store.Store

	mu       sync.Mutex
	inFlight map[string]bool
}

// New validates the static configuration and builds a service. Invalid
// questionnaire, profile, or scenario configuration fails here, at startup.
func New(opts Options, dataset scenario.Dataset, fetcher analytics.Fetcher, llm anthropic.Client, st store.Store) (*Service, error) {
	questions := risk.Questions()
	profiles := risk.Profiles()
	if err := risk.ValidateConfig(questions, profiles); err != nil {
		return nil, err
	}
	if err := dataset.Validate(); err != nil {
		return nil, eris.Wrap(err, "advisor: scenario dataset")
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 10
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 500
	}
	return &Service{
		opts:       opts,
		questions:  questions,
		profiles:   profiles,
		dataset:    dataset,
		analytics:  fetcher,
		llm:        llm,
		llmBreaker: resilience.NewCircuitBreaker(opts.Circuit),
		costs:      cost.NewCalculator(cost.DefaultRates()),
		store:      st,
		inFlight:   make(map[string]bool),
	}, nil
}

// Questions returns the configured questionnaire.
func (s *Service) Questions() []model.Question { return s.questions }

// Profiles returns the configured risk profiles.
func (s *Service) Profiles() []model.RiskProfile { return s.profiles }

// Dataset returns the configured scenario dataset.
func (s *Service) Dataset() scenario.Dataset { return s.dataset }

// AssessmentResult bundles everything the UI renders after a completed
// questionnaire.
type AssessmentResult struct {
	Assessment      model.Assessment     `json:"assessment"`
	Profile         model.RiskProfile    `json:"profile"`
	Recommendations risk.Recommendations `json:"recommendations"`
}

// Assess classifies a completed answer set, persists the result, and returns
// the profile with its guidance tables.
func (s *Service) Assess(ctx context.Context, answers model.AnswerSet) (*AssessmentResult, error) {
	profile, err := risk.Classify(answers, s.questions, s.profiles)
	if err != nil {
		return nil, err
	}

	assessment := model.Assessment{
		Answers:    answers,
		Score:      risk.TotalScore(answers, s.questions),
		Profile:    profile.Name,
		Allocation: risk.AllocationFor(profile),
	}

	saved, err := s.store.CreateAssessment(ctx, assessment)
	if err != nil {
		return nil, err
	}

	recs, _ := risk.RecommendationsFor(profile.Name)
	zap.L().Info("assessment complete",
		zap.String("assessment_id", saved.ID),
		zap.Int("score", saved.Score),
		zap.String("profile", string(saved.Profile)),
	)

	return &AssessmentResult{Assessment: *saved, Profile: profile, Recommendations: recs}, nil
}

// Scenarios merges the selected regimes into one chart view. An empty
// selection defaults to all configured regimes.
func (s *Service) Scenarios(selected []string) (scenario.View, error) {
	if len(selected) == 0 {
		selected = s.dataset.Names()
	}
	return scenario.Merge(s.dataset, selected)
}

// ChatResult is one completed advisory turn.
type ChatResult struct {
	ConversationID string            `json:"conversation_id"`
	Reply          model.ChatMessage `json:"reply"`
	Degraded       bool              `json:"degraded"`
}

// Chat runs one advisory turn: fetch the snapshot and bounded history,
// assemble the context, call the text generator, and persist both turns.
// The onChunk callback, when non-nil, receives reply chunks in arrival
// order; the reply is finalized exactly once regardless.
//
// A failed analytics fetch degrades the context rather than failing the
// turn. Only one request per conversation may be in flight.
func (s *Service) Chat(ctx context.Context, conversationID, message string, onChunk func(string)) (*ChatResult, error) {
	if !s.acquire(conversationID) {
		return nil, ErrConversationBusy
	}
	defer s.release(conversationID)

	var (
		snapshot     *model.PortfolioSnapshot
		conversation *model.Conversation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := s.analytics.Snapshot(gctx)
		if err != nil {
			// Absent snapshot is a degraded state, not a failure.
			zap.L().Warn("analytics snapshot unavailable", zap.Error(err))
			return nil
		}
		snapshot = snap
		return nil
	})
	g.Go(func() error {
		conv, err := s.store.GetConversation(gctx, conversationID)
		if err != nil {
			return err
		}
		conversation = conv
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pctx, err := prompt.BuildContext(snapshot, conversation.Messages, message, s.opts.MaxHistory)
	if err != nil {
		return nil, err
	}

	reply, err := s.generate(ctx, pctx, onChunk)
	if err != nil {
		return nil, err
	}

	turns := []model.ChatMessage{
		{Role: model.RoleUser, Content: message},
		{Role: model.RoleAssistant, Content: reply},
	}
	if err := s.store.AppendMessages(ctx, conversationID, turns...); err != nil {
		return nil, err
	}

	return &ChatResult{
		ConversationID: conversationID,
		Reply:          turns[1],
		Degraded:       snapshot == nil,
	}, nil
}

// generate calls the text-generation collaborator through its circuit
// breaker, streaming when a chunk callback is provided and buffering
// otherwise.
func (s *Service) generate(ctx context.Context, pctx prompt.Context, onChunk func(string)) (string, error) {
	req := anthropic.MessageRequest{
		Model:       s.opts.Model,
		MaxTokens:   s.opts.MaxTokens,
		System:      pctx.SystemContext,
		Messages:    toLLMMessages(pctx.Messages),
		Temperature: s.opts.Temperature,
	}

	return resilience.ExecuteVal(ctx, s.llmBreaker, func(ctx context.Context) (string, error) {
		if onChunk == nil {
			resp, err := s.llm.CreateMessage(ctx, req)
			if err != nil {
				return "", err
			}
			resp.Usage.Log(resp.Model)
			if usd := s.costs.Claude(resp.Model, resp.Usage.InputTokens, resp.Usage.OutputTokens); usd > 0 {
				zap.L().Info("turn cost",
					zap.String("model", resp.Model),
					zap.Float64("estimated_usd", usd),
				)
			}
			return resp.Text, nil
		}

		stream, err := s.llm.StreamMessage(ctx, req)
		if err != nil {
			return "", err
		}
		defer stream.Close()

		var reply []byte
		for stream.Next() {
			chunk := stream.Text()
			reply = append(reply, chunk...)
			onChunk(chunk)
		}
		if err := stream.Err(); err != nil {
			// Surface the partial reply loss explicitly; the caller decides
			// whether to retry the whole turn.
			return "", err
		}
		return string(reply), nil
	})
}

func (s *Service) acquire(conversationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[conversationID] {
		return false
	}
	s.inFlight[conversationID] = true
	return true
}

func (s *Service) release(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, conversationID)
}

// NewConversation creates an empty persisted conversation.
func (s *Service) NewConversation(ctx context.Context) (*model.Conversation, error) {
	return s.store.CreateConversation(ctx)
}

// Portfolio returns the current snapshot, or nil when the analytics
// collaborator is unavailable.
func (s *Service) Portfolio(ctx context.Context) (*model.PortfolioSnapshot, error) {
	return s.analytics.Snapshot(ctx)
}

// Store exposes the session store for listing commands and handlers.
func (s *Service) Store() store.Store { return s.store }

func toLLMMessages(msgs []model.ChatMessage) []anthropic.Message {
	out := make([]anthropic.Message, len(msgs))
	for i, m := range msgs {
		out[i] = anthropic.Message{Role: string(m.Role), Content: m.Content}
	}
	return out
}
