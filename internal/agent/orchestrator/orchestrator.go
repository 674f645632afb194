package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/schema"

	"github.com/plan-assist-core/server/internal/agent/model"
	errx "github.com/plan-assist-core/server/internal/core/error"
	logx "github.com/plan-assist-core/server/pkg/logger"
)

// DefaultSessionID is used when a request carries no session.
const DefaultSessionID = "default"

// Retriever returns knowledge-base context for a query, or "" on no match or
// error.
type Retriever interface {
	GetContext(ctx context.Context, query string) string
}

// Generator runs the generation pipeline variant named by in.Strategy.
type Generator interface {
	Generate(ctx context.Context, in model.GenerationInput) (string, error)
}

// ToolGatherer collects the labeled tool results for a query.
type ToolGatherer interface {
	Gather(ctx context.Context, query string) model.ToolBundle
}

// HistoryRecorder persists each finished exchange. Optional.
type HistoryRecorder interface {
	RecordExchange(ctx context.Context, sessionID, query, response string) error
	History(ctx context.Context, sessionID string, limit int) ([]*schema.Message, error)
	Clear(ctx context.Context, sessionID string) error
}

type Config struct {
	Tools     ToolGatherer
	Retriever Retriever
	Generator Generator
	FollowUps *FollowUpManager
	History   HistoryRecorder

	CacheSize int
	CacheTTL  time.Duration
	// DefaultStrategy applies when a request has no strategy hint.
	DefaultStrategy string
	// Now defaults to time.Now.
	Now func() time.Time
}

// Orchestrator routes one user turn through follow-up handling, the response
// cache, complexity gating, context gathering and generation. It always
// produces a textual answer; no path returns an error to the caller.
type Orchestrator struct {
	tools           ToolGatherer
	retriever       Retriever
	generator       Generator
	followUps       *FollowUpManager
	history         HistoryRecorder
	cache           *ResponseCache
	metrics         *Metrics
	defaultStrategy model.Strategy
	now             func() time.Time
}

func New(cfg Config) (*Orchestrator, error) {
	if cfg.FollowUps == nil {
		return nil, errors.New("orchestrator: follow-up manager is required")
	}
	if cfg.Tools == nil {
		return nil, errors.New("orchestrator: tool gatherer is required")
	}
	if cfg.Generator == nil {
		return nil, errors.New("orchestrator: generator is required")
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Orchestrator{
		tools:           cfg.Tools,
		retriever:       cfg.Retriever,
		generator:       cfg.Generator,
		followUps:       cfg.FollowUps,
		history:         cfg.History,
		cache:           NewResponseCache(cfg.CacheSize, cfg.CacheTTL),
		metrics:         NewMetrics(),
		defaultStrategy: model.ParseStrategy(cfg.DefaultStrategy),
		now:             now,
	}, nil
}

// turn carries one pass through the pipeline.
type turn struct {
	sessionID  string
	query      string
	hint       model.Strategy
	skipCache  bool
	forceTools bool
	start      time.Time
}

// Handle answers one user turn.
func (o *Orchestrator) Handle(ctx context.Context, req model.Request) *model.Result {
	t := turn{
		sessionID:  req.SessionID,
		query:      req.Query,
		hint:       model.ParseStrategy(req.Strategy),
		skipCache:  req.SkipCache,
		forceTools: req.ForceTools,
		start:      o.now(),
	}
	if t.sessionID == "" {
		t.sessionID = DefaultSessionID
	}
	if req.Strategy == "" {
		t.hint = o.defaultStrategy
	}

	result := o.handle(ctx, t)
	result.Metadata.SessionID = t.sessionID
	o.record(ctx, t.sessionID, req.Query, result.Response)
	return result
}

func (o *Orchestrator) handle(ctx context.Context, t turn) *model.Result {
	// 1. a pending follow-up is resolved by whatever the user says next
	merged, pending, err := o.followUps.Resolve(ctx, t.sessionID, t.query)
	if err != nil {
		logx.Warn().Err(err).Str("session_id", t.sessionID).Msg("Follow-up lookup failed; treating session as clear")
	}
	if pending != nil {
		logx.Info().
			Str("session_id", t.sessionID).
			Str("original_query", pending.OriginalQuery).
			Str("enhanced_query", merged).
			Msg("Processing follow-up answer")
		t.query = merged
		result := o.orchestrate(ctx, t)
		result.Metadata.OriginalQuery = pending.OriginalQuery
		result.Metadata.EnhancedQuery = merged
		result.Metadata.ResolvedType = pending.ContextType
		return result
	}

	// 2. vague queries get a clarifying question instead of an answer
	if det, ok := o.followUps.Detect(t.query); ok {
		if err := o.followUps.Store(ctx, t.sessionID, t.query, det.ContextType); err != nil {
			logx.Warn().Err(err).Str("session_id", t.sessionID).Msg("Failed to store follow-up; answering directly")
		} else {
			o.metrics.incFollowUp()
			logx.Info().
				Str("session_id", t.sessionID).
				Str("category", det.Category).
				Str("context_type", string(det.ContextType)).
				Msg("Query needs clarification")
			return &model.Result{
				Success:  true,
				Response: det.Question,
				Metadata: model.Metadata{
					Type:          model.MetadataTypeFollowUp,
					Strategy:      model.StrategyFollowUp,
					WaitingFor:    det.ContextType,
					OriginalQuery: t.query,
					Timestamp:     o.now(),
					Duration:      o.now().Sub(t.start),
				},
			}
		}
	}

	return o.orchestrate(ctx, t)
}

// orchestrate covers the cache, the canned-reply short circuit and the
// generation dispatch.
func (o *Orchestrator) orchestrate(ctx context.Context, t turn) *model.Result {
	o.metrics.incQuery()
	key := CacheKey(t.query, string(t.hint))

	// 3. cache
	if !t.skipCache {
		if hit, ok := o.cache.Get(key); ok {
			o.metrics.incCacheHit()
			hit.Metadata.Cached = true
			hit.Metadata.Duration = o.now().Sub(t.start)
			logx.Debug().Str("cache_key", key).Msg("Cache hit")
			return hit
		}
	}

	// 4. simple queries get a canned reply
	complexity := ClassifyComplexity(t.query)
	logx.Debug().Str("query", t.query).Str("complexity", string(complexity)).Msg("Classified query")
	if complexity == model.ComplexitySimple && !t.forceTools {
		o.metrics.incDirect()
		result := &model.Result{
			Success:  true,
			Response: cannedReply(t.query),
			Metadata: model.Metadata{
				Strategy:   model.StrategyDirect,
				Complexity: complexity,
				Timestamp:  o.now(),
				Duration:   o.now().Sub(t.start),
			},
		}
		o.store(t, key, result)
		return result
	}

	// 5. gather context and generate
	ragContext := ""
	if o.retriever != nil {
		ragContext = o.retrieve(ctx, t.query)
		o.metrics.incRAG()
	}
	bundle := o.tools.Gather(ctx, t.query)
	o.metrics.addMCP(bundle.Len())

	strategy := t.hint
	if strategy == model.StrategyAuto {
		strategy = SelectStrategy(t.query, complexity)
	}
	if ragContext != "" || bundle.Len() > 0 {
		o.metrics.incStrategy(strategyUsageRAGMCP)
	} else {
		o.metrics.incStrategy(string(strategy))
	}
	if !strategy.Dispatchable() {
		strategy = model.StrategySequential
	}

	logx.Debug().
		Str("strategy", string(strategy)).
		Int("rag_chars", len(ragContext)).
		Strs("tools", bundle.Labels()).
		Msg("Dispatching generation")

	text, err := o.generate(ctx, model.GenerationInput{
		SessionID:  t.sessionID,
		Strategy:   strategy,
		Query:      t.query,
		RAGContext: ragContext,
		Tools:      bundle.Entries(),
	})
	if err != nil {
		o.metrics.incFailure()
		logx.Error().
			Err(err).
			Int("status", errx.StatusOf(err)).
			Str("strategy", string(strategy)).
			Str("query", t.query).
			Msg("Orchestration failed")
		return &model.Result{
			Success:  false,
			Response: FallbackResponse,
			Error:    err.Error(),
			Metadata: model.Metadata{
				Strategy:   strategy,
				Complexity: complexity,
				Timestamp:  o.now(),
				Duration:   o.now().Sub(t.start),
			},
		}
	}
	o.metrics.incSuccess()

	result := &model.Result{
		Success:  true,
		Response: text,
		Metadata: model.Metadata{
			Strategy:    strategy,
			Complexity:  complexity,
			Timestamp:   o.now(),
			Duration:    o.now().Sub(t.start),
			AgentsUsed:  1,
			RAGUsed:     ragContext != "",
			MCPUsed:     bundle.Len() > 0,
			ToolsCalled: bundle.Labels(),
			ContextSize: len(ragContext) + bundle.Size(),
		},
	}
	o.store(t, key, result)
	return result
}

// retrieve treats a panicking retriever like one with no match.
func (o *Orchestrator) retrieve(ctx context.Context, query string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			logx.Error().Interface("panic", r).Str("query", query).Msg("Knowledge retrieval panicked")
			text = ""
		}
	}()
	return o.retriever.GetContext(ctx, query)
}

// generate dispatches to the pipeline; panics are converted to errors so a
// broken collaborator degrades to the fallback text.
func (o *Orchestrator) generate(ctx context.Context, in model.GenerationInput) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errx.WrapGeneration(fmt.Errorf("panic: %v", r))
		}
	}()
	text, err = o.generator.Generate(ctx, in)
	if err != nil {
		return "", errx.WrapGeneration(err)
	}
	return text, nil
}

func (o *Orchestrator) store(t turn, key string, result *model.Result) {
	if t.skipCache {
		return
	}
	o.cache.Put(key, result)
	logx.Debug().Str("cache_key", key).Int("cache_entries", o.cache.Len()).Msg("Cached response")
}

func (o *Orchestrator) record(ctx context.Context, sessionID, query, response string) {
	if o.history == nil {
		return
	}
	if err := o.history.RecordExchange(ctx, sessionID, query, response); err != nil {
		logx.Warn().Err(err).Str("session_id", sessionID).Msg("Failed to record conversation history")
	}
}
