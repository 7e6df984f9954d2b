package advisor

import (
	"context"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantalpha/advisor-cli/internal/model"
	"github.com/quantalpha/advisor-cli/internal/risk"
	"github.com/quantalpha/advisor-cli/internal/scenario"
	"github.com/quantalpha/advisor-cli/internal/store"
	"github.com/quantalpha/advisor-cli/pkg/anthropic"
)

// --- fakes ---

type fakeFetcher struct {
	mu       sync.Mutex
	snapshot *model.PortfolioSnapshot
	err      error
	delay    time.Duration
	calls    int
}

func (f *fakeFetcher) Snapshot(ctx context.Context) (*model.PortfolioSnapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.snapshot, nil
}

type fakeChunkStream struct {
	chunks []string
	pos    int
	err    error
}

func (s *fakeChunkStream) Next() bool {
	if s.pos >= len(s.chunks) {
		return false
	}
	s.pos++
	return true
}

func (s *fakeChunkStream) Text() string { return s.chunks[s.pos-1] }
func (s *fakeChunkStream) Err() error   { return s.err }
func (s *fakeChunkStream) Close() error { return nil }

type fakeLLM struct {
	mu       sync.Mutex
	reply    string
	chunks   []string
	err      error
	requests []anthropic.MessageRequest
	block    chan struct{} // when set, CreateMessage waits until closed
}

func (f *fakeLLM) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &anthropic.MessageResponse{Text: f.reply, Model: req.Model}, nil
}

func (f *fakeLLM) StreamMessage(ctx context.Context, req anthropic.MessageRequest) (anthropic.ChunkStream, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &fakeChunkStream{chunks: f.chunks}, nil
}

// fakeStore keeps conversations and assessments in memory.
type fakeStore struct {
	mu            sync.Mutex
	assessments   map[string]model.Assessment
	conversations map[string]*model.Conversation
	appendErr     error
	nextID        int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		assessments:   make(map[string]model.Assessment),
		conversations: make(map[string]*model.Conversation),
	}
}

func (s *fakeStore) id() string {
	s.nextID++
	return "id-" + strconv.Itoa(s.nextID)
}

func (s *fakeStore) CreateAssessment(ctx context.Context, a model.Assessment) (*model.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a.ID = s.id()
	a.CreatedAt = time.Now().UTC()
	s.assessments[a.ID] = a
	return &a, nil
}

func (s *fakeStore) GetAssessment(ctx context.Context, id string) (*model.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.assessments[id]
	if !ok {
		return nil, eris.New("assessment not found")
	}
	return &a, nil
}

func (s *fakeStore) ListAssessments(ctx context.Context, filter store.AssessmentFilter) ([]model.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Assessment
	for _, a := range s.assessments {
		if filter.Profile == "" || a.Profile == filter.Profile {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *fakeStore) CreateConversation(ctx context.Context) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := &model.Conversation{ID: s.id(), CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}
	s.conversations[c.ID] = c
	return c, nil
}

func (s *fakeStore) GetConversation(ctx context.Context, id string) (*model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.conversations[id]
	if !ok {
		return nil, eris.Errorf("conversation not found: %s", id)
	}
	cp := *c
	cp.Messages = append([]model.ChatMessage(nil), c.Messages...)
	return &cp, nil
}

func (s *fakeStore) AppendMessages(ctx context.Context, conversationID string, msgs ...model.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.appendErr != nil {
		return s.appendErr
	}
	c, ok := s.conversations[conversationID]
	if !ok {
		return eris.Errorf("conversation not found: %s", conversationID)
	}
	c.Messages = append(c.Messages, msgs...)
	return nil
}

func (s *fakeStore) ListConversations(ctx context.Context, limit int) ([]model.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Conversation
	for _, c := range s.conversations {
		out = append(out, *c)
	}
	return out, nil
}

func (s *fakeStore) Migrate(ctx context.Context) error { return nil }
func (s *fakeStore) Close() error                      { return nil }

// --- helpers ---

func snapshotFixture() *model.PortfolioSnapshot {
	ret := 12.34
	return &model.PortfolioSnapshot{
		TotalValue:      125750,
		AssetAllocation: map[string]float64{"stocks": 60, "bonds": 40},
		Metrics:         model.PortfolioMetrics{Return: &ret, NumAssets: 5},
	}
}

func newTestService(t *testing.T, fetcher *fakeFetcher, llm *fakeLLM, st store.Store) *Service {
	t.Helper()
	svc, err := New(Options{Model: "claude-haiku-4-5-20251001", MaxTokens: 500, MaxHistory: 10},
		scenario.Default(), fetcher, llm, st)
	require.NoError(t, err)
	return svc
}

func completeAnswers(value string) model.AnswerSet {
	answers := make(model.AnswerSet)
	for _, q := range risk.Questions() {
		answers[q.ID] = value
	}
	return answers
}

// --- tests ---

func TestAssess_PersistsAndReturnsProfile(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(t, &fakeFetcher{}, &fakeLLM{}, st)

	result, err := svc.Assess(context.Background(), completeAnswers("4"))
	require.NoError(t, err)

	assert.Equal(t, 24, result.Assessment.Score)
	assert.Equal(t, model.ProfileAggressive, result.Assessment.Profile)
	assert.Equal(t, model.Allocation{Stocks: 80, Bonds: 10, Crypto: 8, Cash: 2}, result.Assessment.Allocation)
	assert.NotEmpty(t, result.Recommendations.Strategy)

	stored, err := st.GetAssessment(context.Background(), result.Assessment.ID)
	require.NoError(t, err)
	assert.Equal(t, result.Assessment.Score, stored.Score)
}

func TestAssess_RejectsIncompleteAnswers(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(t, &fakeFetcher{}, &fakeLLM{}, st)

	answers := completeAnswers("2")
	delete(answers, 1)

	_, err := svc.Assess(context.Background(), answers)
	require.Error(t, err)
	assert.Empty(t, st.assessments, "invalid answers must not be persisted")
}

func TestScenarios_DefaultsToAllRegimes(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{}, &fakeLLM{}, newFakeStore())

	view, err := svc.Scenarios(nil)
	require.NoError(t, err)
	assert.Equal(t, scenario.Default().Names(), view.Selected)
	assert.Len(t, view.Projections, 3)
}

func TestScenarios_UnknownRegime(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{}, &fakeLLM{}, newFakeStore())

	_, err := svc.Scenarios([]string{"Stagflation"})
	assert.ErrorContains(t, err, "unknown regime")
}

func TestChat_BufferedTurn(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: snapshotFixture()}
	llm := &fakeLLM{reply: "Hold your allocation."}
	st := newFakeStore()
	svc := newTestService(t, fetcher, llm, st)

	conv, err := svc.NewConversation(context.Background())
	require.NoError(t, err)

	result, err := svc.Chat(context.Background(), conv.ID, "Should I sell?", nil)
	require.NoError(t, err)

	assert.Equal(t, conv.ID, result.ConversationID)
	assert.Equal(t, "Hold your allocation.", result.Reply.Content)
	assert.Equal(t, model.RoleAssistant, result.Reply.Role)
	assert.False(t, result.Degraded)

	// System context carries the live snapshot.
	require.Len(t, llm.requests, 1)
	assert.Contains(t, llm.requests[0].System, "$125,750")

	// Both turns persisted in order.
	stored, err := st.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	require.Len(t, stored.Messages, 2)
	assert.Equal(t, model.RoleUser, stored.Messages[0].Role)
	assert.Equal(t, "Should I sell?", stored.Messages[0].Content)
	assert.Equal(t, model.RoleAssistant, stored.Messages[1].Role)
}

func TestChat_StreamedTurn(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: snapshotFixture()}
	llm := &fakeLLM{chunks: []string{"Hold ", "your ", "allocation."}}
	st := newFakeStore()
	svc := newTestService(t, fetcher, llm, st)

	conv, err := svc.NewConversation(context.Background())
	require.NoError(t, err)

	var chunks []string
	result, err := svc.Chat(context.Background(), conv.ID, "Should I sell?", func(chunk string) {
		chunks = append(chunks, chunk)
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"Hold ", "your ", "allocation."}, chunks)
	assert.Equal(t, "Hold your allocation.", result.Reply.Content)
}

func TestChat_DegradesWithoutSnapshot(t *testing.T) {
	fetcher := &fakeFetcher{err: eris.New("analytics down")}
	llm := &fakeLLM{reply: "I cannot see your portfolio right now."}
	st := newFakeStore()
	svc := newTestService(t, fetcher, llm, st)

	conv, err := svc.NewConversation(context.Background())
	require.NoError(t, err)

	result, err := svc.Chat(context.Background(), conv.ID, "How am I doing?", nil)
	require.NoError(t, err, "analytics failure must not fail the turn")
	assert.True(t, result.Degraded)

	require.Len(t, llm.requests, 1)
	assert.Contains(t, llm.requests[0].System, "currently unavailable")
}

func TestChat_UnknownConversation(t *testing.T) {
	svc := newTestService(t, &fakeFetcher{snapshot: snapshotFixture()}, &fakeLLM{reply: "ok"}, newFakeStore())

	_, err := svc.Chat(context.Background(), "nonexistent", "hello", nil)
	assert.ErrorContains(t, err, "conversation not found")
}

func TestChat_GenerationFailureLeavesConversationUntouched(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: snapshotFixture()}
	llm := &fakeLLM{err: eris.New("overloaded")}
	st := newFakeStore()
	svc := newTestService(t, fetcher, llm, st)

	conv, err := svc.NewConversation(context.Background())
	require.NoError(t, err)

	_, err = svc.Chat(context.Background(), conv.ID, "hello", nil)
	require.Error(t, err)

	stored, err := st.GetConversation(context.Background(), conv.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Messages, "a failed turn must not be persisted")
}

func TestChat_ConversationBusy(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: snapshotFixture()}
	block := make(chan struct{})
	llm := &fakeLLM{reply: "done", block: block}
	st := newFakeStore()
	svc := newTestService(t, fetcher, llm, st)

	conv, err := svc.NewConversation(context.Background())
	require.NoError(t, err)

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		close(started)
		_, err := svc.Chat(context.Background(), conv.ID, "first", nil)
		done <- err
	}()

	<-started
	// Wait until the first turn reaches the blocked LLM call.
	require.Eventually(t, func() bool {
		llm.mu.Lock()
		defer llm.mu.Unlock()
		return len(llm.requests) == 1
	}, time.Second, time.Millisecond)

	_, err = svc.Chat(context.Background(), conv.ID, "second", nil)
	assert.ErrorIs(t, err, ErrConversationBusy)

	close(block)
	require.NoError(t, <-done)

	// The lock is released after the turn completes.
	_, err = svc.Chat(context.Background(), conv.ID, "third", nil)
	assert.NoError(t, err)
}

func TestChat_DistinctConversationsRunIndependently(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: snapshotFixture()}
	llm := &fakeLLM{reply: "ok"}
	st := newFakeStore()
	svc := newTestService(t, fetcher, llm, st)

	a, err := svc.NewConversation(context.Background())
	require.NoError(t, err)
	b, err := svc.NewConversation(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, conv := range []*model.Conversation{a, b} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = svc.Chat(context.Background(), id, "hello", nil)
		}(i, conv.ID)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
}

func TestNew_RejectsInvalidDataset(t *testing.T) {
	ds := scenario.Default()
	ds.Regimes[0].Series = ds.Regimes[0].Series[:5]

	_, err := New(Options{}, ds, &fakeFetcher{}, &fakeLLM{}, newFakeStore())
	assert.ErrorContains(t, err, "scenario dataset")
}

func TestChat_HistoryBoundAppliedToPrompt(t *testing.T) {
	fetcher := &fakeFetcher{snapshot: snapshotFixture()}
	llm := &fakeLLM{reply: "ok"}
	st := newFakeStore()

	svc, err := New(Options{Model: "m", MaxTokens: 100, MaxHistory: 4},
		scenario.Default(), fetcher, llm, st)
	require.NoError(t, err)

	conv, err := svc.NewConversation(context.Background())
	require.NoError(t, err)

	var history []model.ChatMessage
	for i := 0; i < 10; i++ {
		history = append(history,
			model.ChatMessage{Role: model.RoleUser, Content: "old question"},
		)
	}
	require.NoError(t, st.AppendMessages(context.Background(), conv.ID, history...))

	_, err = svc.Chat(context.Background(), conv.ID, "new question", nil)
	require.NoError(t, err)

	require.Len(t, llm.requests, 1)
	// 4 retained turns plus the new message.
	assert.Len(t, llm.requests[0].Messages, 5)
	assert.Equal(t, "new question", llm.requests[0].Messages[4].Content)
}
