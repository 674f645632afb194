package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/plan-assist-core/server/internal/agent/model"
)

// strategyUsageKeys are the buckets strategy usage is reported under.
// rag_mcp counts every generated answer that had retrieval or tool context.
var strategyUsageKeys = []string{
	string(model.StrategyDirect),
	strategyUsageRAGMCP,
	string(model.StrategySequential),
	string(model.StrategyHierarchical),
	string(model.StrategyParallel),
	string(model.StrategyConsensus),
}

const strategyUsageRAGMCP = "rag_mcp"

// MetricsSnapshot is a point-in-time copy of the counters with derived rates
// in percent of total queries.
type MetricsSnapshot struct {
	TotalQueries             int            `json:"total_queries"`
	SuccessfulOrchestrations int            `json:"successful_orchestrations"`
	FailedOrchestrations     int            `json:"failed_orchestrations"`
	DirectResponses          int            `json:"direct_responses"`
	FollowUpQuestions        int            `json:"follow_up_questions"`
	RAGUsage                 int            `json:"rag_usage"`
	MCPUsage                 int            `json:"mcp_usage"`
	CacheHits                int            `json:"cache_hits"`
	StrategyUsage            map[string]int `json:"strategy_usage"`

	SuccessRate        float64 `json:"success_rate"`
	RAGUsageRate       float64 `json:"rag_usage_rate"`
	MCPUsageRate       float64 `json:"mcp_usage_rate"`
	CacheHitRate       float64 `json:"cache_hit_rate"`
	DirectResponseRate float64 `json:"direct_response_rate"`
	FollowUpRate       float64 `json:"follow_up_rate"`
}

// Metrics is owned by one Orchestrator. It also serves as a
// prometheus.Collector so the same counters can be scraped.
type Metrics struct {
	mu sync.Mutex

	totalQueries  int
	successful    int
	failed        int
	direct        int
	followUps     int
	ragUsage      int
	mcpUsage      int
	cacheHits     int
	strategyUsage map[string]int
}

func NewMetrics() *Metrics {
	m := &Metrics{strategyUsage: make(map[string]int, len(strategyUsageKeys))}
	for _, k := range strategyUsageKeys {
		m.strategyUsage[k] = 0
	}
	return m
}

func (m *Metrics) update(fn func(m *Metrics)) {
	m.mu.Lock()
	fn(m)
	m.mu.Unlock()
}

func (m *Metrics) incQuery() { m.update(func(m *Metrics) { m.totalQueries++ }) }
func (m *Metrics) incSuccess() { m.update(func(m *Metrics) { m.successful++ }) }
func (m *Metrics) incFailure() { m.update(func(m *Metrics) { m.failed++ }) }
func (m *Metrics) incFollowUp() { m.update(func(m *Metrics) { m.followUps++ }) }
func (m *Metrics) incRAG() { m.update(func(m *Metrics) { m.ragUsage++ }) }
func (m *Metrics) incCacheHit() { m.update(func(m *Metrics) { m.cacheHits++ }) }
func (m *Metrics) addMCP(n int) { m.update(func(m *Metrics) { m.mcpUsage += n }) }

func (m *Metrics) incDirect() {
	m.update(func(m *Metrics) {
		m.direct++
		m.strategyUsage[string(model.StrategyDirect)]++
	})
}

// incStrategy only counts known buckets; unknown hints are not tracked.
func (m *Metrics) incStrategy(key string) {
	m.update(func(m *Metrics) {
		if _, ok := m.strategyUsage[key]; ok {
			m.strategyUsage[key]++
		}
	})
}

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func (m *Metrics) Snapshot() MetricsSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	usage := make(map[string]int, len(m.strategyUsage))
	for k, v := range m.strategyUsage {
		usage[k] = v
	}
	total := m.totalQueries
	return MetricsSnapshot{
		TotalQueries:             total,
		SuccessfulOrchestrations: m.successful,
		FailedOrchestrations:     m.failed,
		DirectResponses:          m.direct,
		FollowUpQuestions:        m.followUps,
		RAGUsage:                 m.ragUsage,
		MCPUsage:                 m.mcpUsage,
		CacheHits:                m.cacheHits,
		StrategyUsage:            usage,

		SuccessRate:        percent(m.successful, total),
		RAGUsageRate:       percent(m.ragUsage, total),
		MCPUsageRate:       percent(m.mcpUsage, total),
		CacheHitRate:       percent(m.cacheHits, total),
		DirectResponseRate: percent(m.direct, total),
		FollowUpRate:       percent(m.followUps, total),
	}
}

// ====================== Prometheus ======================

var (
	descQueries = prometheus.NewDesc("plan_assist_queries_total",
		"Queries that reached the cache or pipeline stage", nil, nil)
	descOrchestrations = prometheus.NewDesc("plan_assist_orchestrations_total",
		"Generated answers by outcome", []string{"outcome"}, nil)
	descDirect = prometheus.NewDesc("plan_assist_direct_responses_total",
		"Canned replies returned for simple queries", nil, nil)
	descFollowUps = prometheus.NewDesc("plan_assist_follow_up_questions_total",
		"Clarifying questions asked", nil, nil)
	descRAG = prometheus.NewDesc("plan_assist_rag_usage_total",
		"Retrieval lookups", nil, nil)
	descMCP = prometheus.NewDesc("plan_assist_tool_results_total",
		"Tool results gathered into bundles", nil, nil)
	descCacheHits = prometheus.NewDesc("plan_assist_cache_hits_total",
		"Responses served from the response cache", nil, nil)
	descStrategy = prometheus.NewDesc("plan_assist_strategy_usage_total",
		"Answers by strategy bucket", []string{"strategy"}, nil)
)

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- descQueries
	ch <- descOrchestrations
	ch <- descDirect
	ch <- descFollowUps
	ch <- descRAG
	ch <- descMCP
	ch <- descCacheHits
	ch <- descStrategy
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	s := m.Snapshot()
	counter := func(d *prometheus.Desc, v int, labels ...string) {
		ch <- prometheus.MustNewConstMetric(d, prometheus.CounterValue, float64(v), labels...)
	}
	counter(descQueries, s.TotalQueries)
	counter(descOrchestrations, s.SuccessfulOrchestrations, "success")
	counter(descOrchestrations, s.FailedOrchestrations, "failure")
	counter(descDirect, s.DirectResponses)
	counter(descFollowUps, s.FollowUpQuestions)
	counter(descRAG, s.RAGUsage)
	counter(descMCP, s.MCPUsage)
	counter(descCacheHits, s.CacheHits)
	for _, k := range strategyUsageKeys {
		counter(descStrategy, s.StrategyUsage[k], k)
	}
}

var _ prometheus.Collector = (*Metrics)(nil)
