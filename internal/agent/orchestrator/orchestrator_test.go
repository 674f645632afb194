package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plan-assist-core/server/internal/agent/graph/conversations"
	"github.com/plan-assist-core/server/internal/agent/model"
	"github.com/plan-assist-core/server/internal/agent/repo"
)

type fakeGenerator struct {
	mu     sync.Mutex
	calls  []model.GenerationInput
	text   string
	err    error
	panics bool
}

func (g *fakeGenerator) Generate(_ context.Context, in model.GenerationInput) (string, error) {
	g.mu.Lock()
	g.calls = append(g.calls, in)
	g.mu.Unlock()
	if g.panics {
		panic("model exploded")
	}
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

func (g *fakeGenerator) last(t *testing.T) model.GenerationInput {
	t.Helper()
	require.NotEmpty(t, g.calls)
	return g.calls[len(g.calls)-1]
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

type fakeRetriever struct {
	context string
	panics  bool
	calls   atomic.Int32
}

func (r *fakeRetriever) GetContext(context.Context, string) string {
	r.calls.Add(1)
	if r.panics {
		panic("index corrupted")
	}
	return r.context
}

func (r *fakeRetriever) count() int { return int(r.calls.Load()) }

type fakeGatherer struct {
	entries map[string]string
	order   []string
	calls   atomic.Int32
}

func (g *fakeGatherer) count() int { return int(g.calls.Load()) }

func (g *fakeGatherer) Gather(context.Context, string) model.ToolBundle {
	g.calls.Add(1)
	var b model.ToolBundle
	for _, label := range g.order {
		b.Set(label, g.entries[label])
	}
	return b
}

type testHarness struct {
	orch      *Orchestrator
	gen       *fakeGenerator
	retriever *fakeRetriever
	tools     *fakeGatherer
	clock     *fakeClock
}

func newHarness(t *testing.T, opts ...func(*Config)) *testHarness {
	t.Helper()
	h := &testHarness{
		gen:       &fakeGenerator{text: "generated answer"},
		retriever: &fakeRetriever{context: "Source: https://www.jio.com/mobile\nprepaid plans"},
		tools: &fakeGatherer{
			entries: map[string]string{"plan_299": "Plan: ₹299"},
			order:   []string{"plan_299"},
		},
		clock: newClock(),
	}
	cfg := Config{
		Tools:     h.tools,
		Retriever: h.retriever,
		Generator: h.gen,
		FollowUps: newTestFollowUps(h.clock),
		History: conversations.NewMessagesManager(repo.NewMemoryConversationRepository(),
			model.ConversationConfig{}),
		Now: h.clock.Now,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	orch, err := New(cfg)
	require.NoError(t, err)
	h.orch = orch
	return h
}

func TestNew_RequiresCollaborators(t *testing.T) {
	fu := newTestFollowUps(newClock())
	gen := &fakeGenerator{}
	tools := &fakeGatherer{}

	_, err := New(Config{Tools: tools, Generator: gen})
	assert.Error(t, err)
	_, err = New(Config{FollowUps: fu, Generator: gen})
	assert.Error(t, err)
	_, err = New(Config{FollowUps: fu, Tools: tools})
	assert.Error(t, err)
	_, err = New(Config{FollowUps: fu, Tools: tools, Generator: gen})
	assert.NoError(t, err)
}

func TestOrchestrator_GreetingIsCanned(t *testing.T) {
	for _, q := range []string{"hi", "hello", "hey", "namaste", "good morning", "good evening"} {
		t.Run(q, func(t *testing.T) {
			h := newHarness(t)

			res := h.orch.Handle(context.Background(), model.Request{Query: q, SessionID: "s1"})

			assert.True(t, res.Success)
			assert.Equal(t, greetingReply, res.Response)
			assert.Equal(t, model.StrategyDirect, res.Metadata.Strategy)
			assert.Equal(t, model.ComplexitySimple, res.Metadata.Complexity)
			assert.Zero(t, res.Metadata.AgentsUsed)
			assert.False(t, res.Metadata.RAGUsed)
			assert.False(t, res.Metadata.MCPUsed)
			assert.Empty(t, h.gen.calls)
			assert.Zero(t, h.tools.count())
			assert.Zero(t, h.retriever.count())
			assert.Equal(t, 1, h.orch.Metrics().DirectResponses)
		})
	}
}

func TestOrchestrator_ForceToolsSkipsCannedReply(t *testing.T) {
	h := newHarness(t)

	res := h.orch.Handle(context.Background(), model.Request{Query: "hi", ForceTools: true})

	assert.Equal(t, "generated answer", res.Response)
	assert.Equal(t, model.ComplexitySimple, res.Metadata.Complexity)
	assert.Equal(t, model.StrategySequential, h.gen.last(t).Strategy)
	assert.Equal(t, 1, h.tools.count())
}

func TestOrchestrator_BarePrice(t *testing.T) {
	h := newHarness(t)

	res := h.orch.Handle(context.Background(), model.Request{Query: "299", SessionID: "s1"})

	require.True(t, res.Success)
	assert.Equal(t, "generated answer", res.Response)
	assert.Equal(t, model.ComplexityMedium, res.Metadata.Complexity)
	assert.Equal(t, model.StrategySequential, res.Metadata.Strategy)
	assert.Equal(t, 1, res.Metadata.AgentsUsed)
	assert.True(t, res.Metadata.RAGUsed)
	assert.True(t, res.Metadata.MCPUsed)
	assert.Equal(t, []string{"plan_299"}, res.Metadata.ToolsCalled)
	assert.Equal(t, "s1", res.Metadata.SessionID)

	in := h.gen.last(t)
	assert.Equal(t, "299", in.Query)
	assert.Equal(t, "s1", in.SessionID)
	assert.Equal(t, []model.ToolEntry{{Label: "plan_299", Value: "Plan: ₹299"}}, in.Tools)
	assert.Equal(t, h.retriever.context, in.RAGContext)
	assert.Equal(t, len(in.RAGContext)+len("Plan: ₹299"), res.Metadata.ContextSize)
}

func TestOrchestrator_CachedRepeatIsIdentical(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := model.Request{Query: "compare 299 vs 399", SessionID: "s1"}

	first := h.orch.Handle(ctx, req)
	h.clock.Advance(10 * time.Second)
	second := h.orch.Handle(ctx, req)

	assert.False(t, first.Metadata.Cached)
	assert.True(t, second.Metadata.Cached)
	assert.Equal(t, 1, h.tools.count())
	assert.Equal(t, 1, h.retriever.count())
	assert.Len(t, h.gen.calls, 1)

	expected := *first
	expected.Metadata.Cached = true
	expected.Metadata.Duration = second.Metadata.Duration
	assert.Equal(t, &expected, second)

	s := h.orch.Metrics()
	assert.Equal(t, 2, s.TotalQueries)
	assert.Equal(t, 1, s.CacheHits)
}

func TestOrchestrator_CacheKeyIncludesStrategyHint(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.orch.Handle(ctx, model.Request{Query: "299", Strategy: "auto"})
	res := h.orch.Handle(ctx, model.Request{Query: "299", Strategy: "hierarchical"})

	assert.False(t, res.Metadata.Cached)
	assert.Len(t, h.gen.calls, 2)
	assert.Equal(t, model.StrategyHierarchical, h.gen.last(t).Strategy)
}

func TestOrchestrator_SkipCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	req := model.Request{Query: "299", SkipCache: true}

	h.orch.Handle(ctx, req)
	res := h.orch.Handle(ctx, req)

	assert.False(t, res.Metadata.Cached)
	assert.Len(t, h.gen.calls, 2)
	assert.Equal(t, 0, h.orch.Metrics().CacheHits)
}

func TestOrchestrator_CacheExpires(t *testing.T) {
	h := newHarness(t, func(c *Config) { c.CacheTTL = 20 * time.Millisecond })
	ctx := context.Background()

	h.orch.Handle(ctx, model.Request{Query: "299"})
	time.Sleep(60 * time.Millisecond)
	res := h.orch.Handle(ctx, model.Request{Query: "299"})

	assert.False(t, res.Metadata.Cached)
	assert.Len(t, h.gen.calls, 2)
}

func TestOrchestrator_StrategyHints(t *testing.T) {
	tests := []struct {
		name string
		hint string
		want model.Strategy
	}{
		{"auto selects", "auto", model.StrategyConsensus},
		{"empty means default", "", model.StrategyConsensus},
		{"explicit parallel", "parallel", model.StrategyParallel},
		{"explicit hierarchical", "Hierarchical", model.StrategyHierarchical},
		{"unknown falls back to sequential", "swarm", model.StrategySequential},
		{"direct hint still generates", "direct", model.StrategySequential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			res := h.orch.Handle(context.Background(), model.Request{Query: "compare 299 vs 399", Strategy: tt.hint})

			assert.Equal(t, tt.want, h.gen.last(t).Strategy)
			assert.Equal(t, tt.want, res.Metadata.Strategy)
		})
	}
}

func TestOrchestrator_GenerationFailureFallsBack(t *testing.T) {
	tests := []struct {
		name string
		gen  *fakeGenerator
	}{
		{"error", &fakeGenerator{err: errors.New("quota exceeded")}},
		{"panic", &fakeGenerator{panics: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, func(c *Config) { c.Generator = tt.gen })
			ctx := context.Background()

			res := h.orch.Handle(ctx, model.Request{Query: "299"})

			assert.False(t, res.Success)
			assert.Equal(t, FallbackResponse, res.Response)
			assert.NotEmpty(t, res.Error)

			h.orch.Handle(ctx, model.Request{Query: "299"})
			assert.Len(t, tt.gen.calls, 2, "failures are not cached")

			s := h.orch.Metrics()
			assert.Equal(t, 2, s.FailedOrchestrations)
			assert.Zero(t, s.SuccessfulOrchestrations)
		})
	}
}

func TestOrchestrator_FollowUpFlow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ask := h.orch.Handle(ctx, model.Request{Query: "plan", SessionID: "s1"})

	assert.True(t, ask.Success)
	assert.Equal(t, model.MetadataTypeFollowUp, ask.Metadata.Type)
	assert.Equal(t, model.StrategyFollowUp, ask.Metadata.Strategy)
	assert.Equal(t, model.ContextPlanRecommendation, ask.Metadata.WaitingFor)
	assert.Equal(t, "plan", ask.Metadata.OriginalQuery)
	assert.Equal(t, followUpRules[0].questions[0], ask.Response)
	assert.Empty(t, h.gen.calls)
	assert.Zero(t, h.tools.count())

	pending, err := h.orch.PendingFollowUp(ctx, "s1")
	require.NoError(t, err)
	require.NotNil(t, pending)

	answer := h.orch.Handle(ctx, model.Request{Query: "under 300, student", SessionID: "s1"})

	assert.True(t, answer.Success)
	assert.Equal(t, "generated answer", answer.Response)
	assert.Equal(t, "plan", answer.Metadata.OriginalQuery)
	assert.Equal(t, "Recommend best student plan under ₹300 with 2GB daily data", answer.Metadata.EnhancedQuery)
	assert.Equal(t, model.ContextPlanRecommendation, answer.Metadata.ResolvedType)
	assert.Equal(t, answer.Metadata.EnhancedQuery, h.gen.last(t).Query)

	pending, err = h.orch.PendingFollowUp(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, pending)

	s := h.orch.Metrics()
	assert.Equal(t, 1, s.FollowUpQuestions)
	assert.Equal(t, 1, s.TotalQueries)
}

func TestOrchestrator_FollowUpScenarios(t *testing.T) {
	tests := []struct {
		name         string
		first        string
		wantType     model.ContextType
		answer       string
		wantQuery    string
		wantStrategy model.Strategy
	}{
		{"5g location", "5g", model.Context5GCheck, "mumbai", "Check 5G availability in mumbai", model.StrategySequential},
		{"comparison", "compare", model.ContextComparison, "299 and 399", "Compare ₹299 vs ₹399 plans", model.StrategyConsensus},
		{"budget", "something affordable", model.ContextBudgetPlan, "₹250", "Best plans under ₹250", model.StrategySequential},
		{"help", "help", model.ContextGeneralHelp, "fiber", "help - fiber", model.StrategySequential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			ask := h.orch.Handle(ctx, model.Request{Query: tt.first, SessionID: "s1"})
			require.Equal(t, model.StrategyFollowUp, ask.Metadata.Strategy)
			assert.Equal(t, tt.wantType, ask.Metadata.WaitingFor)

			h.orch.Handle(ctx, model.Request{Query: tt.answer, SessionID: "s1"})

			in := h.gen.last(t)
			assert.Equal(t, tt.wantQuery, in.Query)
			assert.Equal(t, tt.wantStrategy, in.Strategy)
		})
	}
}

func TestOrchestrator_FollowUpAnswerIsNeverReasked(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.orch.Handle(ctx, model.Request{Query: "help", SessionID: "s1"})
	res := h.orch.Handle(ctx, model.Request{Query: "plan", SessionID: "s1"})

	assert.NotEqual(t, model.StrategyFollowUp, res.Metadata.Strategy)
	assert.Equal(t, "help - plan", h.gen.last(t).Query)
}

func TestOrchestrator_FollowUpsAreIsolatedPerSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.orch.Handle(ctx, model.Request{Query: "5g", SessionID: "a"})
	res := h.orch.Handle(ctx, model.Request{Query: "hi", SessionID: "b"})
	assert.Equal(t, greetingReply, res.Response)

	pending, err := h.orch.PendingFollowUp(ctx, "a")
	require.NoError(t, err)
	assert.NotNil(t, pending)
}

func TestOrchestrator_ClearFollowUp(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.orch.Handle(ctx, model.Request{Query: "5g", SessionID: "s1"})
	require.NoError(t, h.orch.ClearFollowUp(ctx, "s1"))

	res := h.orch.Handle(ctx, model.Request{Query: "hi", SessionID: "s1"})
	assert.Equal(t, greetingReply, res.Response)
}

func TestOrchestrator_CleanupExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.orch.Handle(ctx, model.Request{Query: "plan", SessionID: "s1"})
	h.clock.Advance(2 * time.Hour)

	removed, err := h.orch.CleanupExpired(ctx, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	pending, err := h.orch.PendingFollowUp(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, pending)
}

type failingFollowUpRepo struct {
	*repo.MemoryFollowUpRepository
}

func (failingFollowUpRepo) Save(context.Context, string, model.PendingFollowUp) error {
	return errors.New("store unavailable")
}

func TestOrchestrator_FollowUpStoreFailureAnswersDirectly(t *testing.T) {
	h := newHarness(t, func(c *Config) {
		c.FollowUps = NewFollowUpManager(failingFollowUpRepo{repo.NewMemoryFollowUpRepository()})
	})

	res := h.orch.Handle(context.Background(), model.Request{Query: "plan", SessionID: "s1"})

	assert.True(t, res.Success)
	assert.Equal(t, "generated answer", res.Response)
	assert.Zero(t, h.orch.Metrics().FollowUpQuestions)
}

func TestOrchestrator_DefaultSessionAndHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.orch.Handle(ctx, model.Request{Query: "thanks"})
	assert.Equal(t, DefaultSessionID, res.Metadata.SessionID)
	assert.Equal(t, thanksReply, res.Response)

	history, err := h.orch.History(ctx, DefaultSessionID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "thanks", history[0].Content)
	assert.Equal(t, thanksReply, history[1].Content)
}

func TestOrchestrator_StrategyUsageMetrics(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.orch.Handle(ctx, model.Request{Query: "hi"})
	h.orch.Handle(ctx, model.Request{Query: "299"})

	h.retriever.context = ""
	h.tools.order = nil
	h.orch.Handle(ctx, model.Request{Query: "tell me something quick"})

	s := h.orch.Metrics()
	assert.Equal(t, 1, s.StrategyUsage["direct"])
	assert.Equal(t, 1, s.StrategyUsage["rag_mcp"])
	assert.Equal(t, 1, s.StrategyUsage["parallel"])
	assert.Equal(t, 2, s.RAGUsage)
	assert.Equal(t, 1, s.MCPUsage)
	assert.Equal(t, 2, s.SuccessfulOrchestrations)
}

func TestOrchestrator_NewSessionAndClearCache(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	a, b := h.orch.NewSession(), h.orch.NewSession()
	assert.NotEqual(t, a, b)
	assert.Len(t, a, 36)

	h.orch.Handle(ctx, model.Request{Query: "299"})
	h.orch.ClearCache()
	res := h.orch.Handle(ctx, model.Request{Query: "299"})
	assert.False(t, res.Metadata.Cached)
	assert.Len(t, h.gen.calls, 2)
}

func TestOrchestrator_RunCleanupStopsWithContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		h.orch.RunCleanup(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not stop after cancel")
	}
}

func TestOrchestrator_RetrieverPanicMeansNoContext(t *testing.T) {
	h := newHarness(t)
	h.retriever.panics = true

	res := h.orch.Handle(context.Background(), model.Request{Query: "299", SessionID: "s1"})

	assert.True(t, res.Success)
	assert.Equal(t, "generated answer", res.Response)
	assert.False(t, res.Metadata.RAGUsed)
	assert.Empty(t, h.gen.last(t).RAGContext)
	assert.Equal(t, []string{"plan_299"}, res.Metadata.ToolsCalled)
	assert.Equal(t, 1, h.retriever.count())
}

func TestOrchestrator_ClearHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.orch.Handle(ctx, model.Request{Query: "hi", SessionID: "s1"})
	h.orch.Handle(ctx, model.Request{Query: "hi", SessionID: "s2"})
	require.NoError(t, h.orch.ClearHistory(ctx, "s1"))

	history, err := h.orch.History(ctx, "s1", 10)
	require.NoError(t, err)
	assert.Empty(t, history)
	history, err = h.orch.History(ctx, "s2", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	noHistory := newHarness(t, func(c *Config) { c.History = nil })
	assert.NoError(t, noHistory.orch.ClearHistory(ctx, "s1"))
}

// stampedFollowUpRepo records the created_at stamp of every follow-up saved
// and taken so each one can be traced to a single consumer.
type stampedFollowUpRepo struct {
	*repo.MemoryFollowUpRepository

	mu    sync.Mutex
	saved map[time.Time]bool
	taken []time.Time
}

func (r *stampedFollowUpRepo) Save(ctx context.Context, sessionID string, pending model.PendingFollowUp) error {
	if err := r.MemoryFollowUpRepository.Save(ctx, sessionID, pending); err != nil {
		return err
	}
	r.mu.Lock()
	r.saved[pending.CreatedAt] = true
	r.mu.Unlock()
	return nil
}

func (r *stampedFollowUpRepo) Take(ctx context.Context, sessionID string) (*model.PendingFollowUp, error) {
	p, err := r.MemoryFollowUpRepository.Take(ctx, sessionID)
	if p != nil {
		r.mu.Lock()
		r.taken = append(r.taken, p.CreatedAt)
		r.mu.Unlock()
	}
	return p, err
}

func TestOrchestrator_ConcurrentSessions(t *testing.T) {
	tests := []struct {
		name       string
		goroutines int
		sessions   int
	}{
		{"shared sessions", 50, 5},
		{"one hot session", 20, 1},
		{"session per caller", 20, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newClock()
			clock.step = time.Millisecond
			followUps := &stampedFollowUpRepo{
				MemoryFollowUpRepository: repo.NewMemoryFollowUpRepository(),
				saved:                    make(map[time.Time]bool),
			}
			h := newHarness(t, func(c *Config) {
				c.FollowUps = NewFollowUpManager(followUps,
					WithQuestionPicker(FirstPicker),
					WithFollowUpClock(clock.Now),
				)
			})
			ctx := context.Background()

			results := make(chan *model.Result, tt.goroutines*3)
			var wg sync.WaitGroup
			for i := 0; i < tt.goroutines; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					sid := fmt.Sprintf("s%d", i%tt.sessions)
					repeat := "hi"
					if i%2 == 1 {
						repeat = "compare 299 vs 399"
					}
					for _, q := range []string{"plan", "compare 299 vs 399", repeat} {
						results <- h.orch.Handle(ctx, model.Request{Query: q, SessionID: sid})
					}
				}(i)
			}
			wg.Wait()
			close(results)

			var asks, resolved, answered int
			for res := range results {
				require.True(t, res.Success, res.Error)
				require.NotEmpty(t, res.Response)
				switch {
				case res.Metadata.Type == model.MetadataTypeFollowUp:
					asks++
				case res.Metadata.ResolvedType != "":
					resolved++
					assert.Equal(t, "plan", res.Metadata.OriginalQuery)
					assert.Equal(t, model.ContextPlanRecommendation, res.Metadata.ResolvedType)
				default:
					answered++
				}
			}
			assert.Equal(t, tt.goroutines*3, asks+resolved+answered)

			followUps.mu.Lock()
			taken := append([]time.Time(nil), followUps.taken...)
			saved := len(followUps.saved)
			followUps.mu.Unlock()

			seen := make(map[time.Time]bool, len(taken))
			for _, stamp := range taken {
				assert.False(t, seen[stamp], "follow-up created at %s consumed twice", stamp)
				assert.True(t, followUps.saved[stamp], "consumed follow-up was never stored")
				seen[stamp] = true
			}
			assert.Equal(t, resolved, len(taken))
			assert.Equal(t, asks, saved)

			remaining, err := followUps.Count(ctx)
			require.NoError(t, err)
			assert.LessOrEqual(t, resolved+remaining, asks)
			assert.LessOrEqual(t, remaining, tt.sessions)
			if tt.sessions == tt.goroutines {
				assert.Equal(t, tt.goroutines, asks)
				assert.Equal(t, tt.goroutines, resolved)
				assert.Zero(t, remaining)
			}

			s := h.orch.Metrics()
			assert.Equal(t, asks, s.FollowUpQuestions)
			assert.Equal(t, resolved+answered, s.TotalQueries)
			assert.Equal(t, s.TotalQueries,
				s.CacheHits+s.DirectResponses+s.SuccessfulOrchestrations+s.FailedOrchestrations)
			assert.Zero(t, s.FailedOrchestrations)
			assert.Equal(t, s.SuccessfulOrchestrations, h.gen.callCount())
			assert.Equal(t, s.SuccessfulOrchestrations, h.tools.count())
		})
	}
}
