package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plan-assist-core/server/internal/agent/graph"
	"github.com/plan-assist-core/server/internal/agent/graph/conversations"
	"github.com/plan-assist-core/server/internal/agent/graph/observers"
	"github.com/plan-assist-core/server/internal/agent/graph/tools"
	"github.com/plan-assist-core/server/internal/agent/knowledge"
	"github.com/plan-assist-core/server/internal/agent/model"
	"github.com/plan-assist-core/server/internal/agent/orchestrator"
	"github.com/plan-assist-core/server/internal/agent/repo"
	"github.com/plan-assist-core/server/internal/core"
	"github.com/plan-assist-core/server/internal/mcp"
	logx "github.com/plan-assist-core/server/pkg/logger"
	pkgredis "github.com/plan-assist-core/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	StoreBackend string `envconfig:"STORE_BACKEND" default:"memory"`
	Redis        pkgredis.Config
	MetricsAddr  string `envconfig:"METRICS_ADDR"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Research     model.ResearchModelConfig
	Architect    model.ArchitectModelConfig
	Prompt       model.PromptConfig
	Conversation model.ConversationConfig
	Orchestrator model.OrchestratorConfig
	FollowUp     model.FollowUpConfig
	Knowledge    model.KnowledgeConfig
	Tools        model.ToolsConfig
}

type stores struct {
	conversations model.ConversationRepository
	followUps     model.FollowUpRepository
	close         func()
}

func main() {
	if err := godotenv.Load(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Could not load .env file: %v\n", err)
	}

	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.LoggerOpts{Environment: envCfg.Environment, Level: envCfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, envCfg); err != nil {
		logx.Fatal().Err(err).Msg("Plan assistant stopped")
	}
}

func run(ctx context.Context, envCfg AppConfig) error {
	// ================= Retrieval =================
	docs, err := knowledge.LoadDocuments(envCfg.Knowledge.DataPath)
	if err != nil {
		return err
	}
	index, err := knowledge.NewIndex(ctx, docs, envCfg.Knowledge)
	if err != nil {
		return err
	}
	defer index.Close()

	// ================= Tools =================
	registry, err := tools.NewRegistry(ctx, index, observers.NewToolCallbacks())
	if err != nil {
		return err
	}

	toolServer, err := mcp.NewPlanToolServer(ctx, registry)
	if err != nil {
		return err
	}
	if envCfg.Tools.ServeStdio {
		return toolServer.ServeStdio()
	}

	var invoker tools.Invoker = registry
	if strings.EqualFold(envCfg.Tools.Transport, "mcp") {
		mcpInvoker, err := mcp.NewInProcessInvoker(ctx, toolServer)
		if err != nil {
			return err
		}
		defer mcpInvoker.Close()
		invoker = mcpInvoker
	}
	logx.Info().Str("transport", envCfg.Tools.Transport).Msg("Plan tools ready")

	// ================= Stores =================
	st, err := newStores(ctx, envCfg)
	if err != nil {
		return err
	}
	defer st.close()

	mm := conversations.NewMessagesManager(st.conversations, envCfg.Conversation)

	// ================= Generation =================
	runner, err := graph.BuildGenerationGraph(ctx, graph.Config{
		APIKey:       envCfg.APIKey,
		BaseURL:      envCfg.BaseURL,
		Research:     envCfg.Research,
		Architect:    envCfg.Architect,
		Prompt:       envCfg.Prompt,
		History:      mm,
		HistoryTurns: envCfg.Conversation.History.MaxTurns,
	})
	if err != nil {
		return err
	}

	orch, err := orchestrator.New(orchestrator.Config{
		Tools:           orchestrator.NewToolAggregator(tools.NewClient(invoker)),
		Retriever:       index,
		Generator:       runner,
		FollowUps:       orchestrator.NewFollowUpManager(st.followUps),
		History:         mm,
		CacheSize:       envCfg.Orchestrator.CacheSize,
		CacheTTL:        envCfg.Orchestrator.CacheTTL,
		DefaultStrategy: envCfg.Orchestrator.DefaultStrategy,
	})
	if err != nil {
		return err
	}

	go orch.RunCleanup(ctx, envCfg.FollowUp.CleanupInterval, envCfg.FollowUp.MaxAge)

	if envCfg.MetricsAddr != "" {
		srv := serveMetrics(envCfg.MetricsAddr, orch.Collector())
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	runDemo(ctx, orch)
	return nil
}

func newStores(ctx context.Context, envCfg AppConfig) (*stores, error) {
	switch strings.ToLower(envCfg.StoreBackend) {
	case "redis":
		ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
		if err != nil {
			return nil, fmt.Errorf("invalid CONVERSATION_TTL '%s': %w", envCfg.Conversation.TTL, err)
		}
		rdb, err := envCfg.Redis.New(ctx)
		if err != nil {
			return nil, fmt.Errorf("initialise redis client: %w", err)
		}
		logx.Info().Msg("Connected to Redis successfully")
		return &stores{
			conversations: repo.NewRedisConversationRepository(rdb, ttl),
			followUps:     repo.NewRedisFollowUpRepository(rdb, envCfg.FollowUp.MaxAge),
			close:         func() { _ = rdb.Close() },
		}, nil
	case "memory", "":
		return &stores{
			conversations: repo.NewMemoryConversationRepository(),
			followUps:     repo.NewMemoryFollowUpRepository(),
			close:         func() {},
		}, nil
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", envCfg.StoreBackend)
	}
}

func serveMetrics(addr string, c prometheus.Collector) *http.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c, collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		logx.Info().Str("addr", addr).Msg("Serving metrics")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Msg("Metrics server failed")
		}
	}()
	return srv
}

func runDemo(ctx context.Context, orch *orchestrator.Orchestrator) {
	testQueries := []struct {
		description string
		query       string
	}{
		{description: "Greeting", query: "hi"},
		{description: "Plan lookup", query: "Tell me about the 299 plan"},
		{description: "Comparison", query: "compare 299 and 399"},
		{description: "Vague request asks a follow-up", query: "suggest a plan"},
		{description: "Follow-up answer", query: "I'm a student with heavy data usage"},
		{description: "5G check", query: "Is 5G available in Mumbai?"},
		{description: "Cached repeat", query: "compare 299 and 399"},
	}

	sessionID := orch.NewSession()

	for i, test := range testQueries {
		if ctx.Err() != nil {
			return
		}
		fmt.Printf("\n🚀 Test %d: %s\n", i+1, test.description)
		fmt.Printf("Query: \"%s\"\n", test.query)

		res := orch.Handle(ctx, model.Request{Query: test.query, SessionID: sessionID})

		status := "✅"
		if !res.Success {
			status = "⚠️"
		}
		fmt.Printf("%s Response %d [%s, %s, cached=%t, %s]:\n%s\n",
			status, i+1, res.Metadata.Strategy, res.Metadata.Complexity, res.Metadata.Cached,
			res.Metadata.Duration.Round(time.Millisecond), res.Response)
		fmt.Println(strings.Repeat("─", 45))
	}

	m := orch.Metrics()
	fmt.Printf("\nQueries: %d, success rate: %.1f%%, cache hit rate: %.1f%%, follow-ups: %d\n",
		m.TotalQueries, m.SuccessRate, m.CacheHitRate, m.FollowUpQuestions)
}
