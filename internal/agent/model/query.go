package model

import (
	"strings"
	"time"
)

// Complexity gates canned replies and tool usage.
type Complexity string

const (
	ComplexitySimple  Complexity = "simple"
	ComplexityMedium  Complexity = "medium"
	ComplexityComplex Complexity = "complex"
)

// Strategy names a response-generation mode. parallel and consensus shape the
// prompt; they do not imply concurrent execution.
type Strategy string

const (
	StrategyAuto         Strategy = "auto"
	StrategyDirect       Strategy = "direct"
	StrategyFollowUp     Strategy = "follow_up"
	StrategySequential   Strategy = "sequential"
	StrategyParallel     Strategy = "parallel"
	StrategyConsensus    Strategy = "consensus"
	StrategyHierarchical Strategy = "hierarchical"
)

// ParseStrategy maps a caller-supplied hint onto a Strategy. Empty means auto;
// anything unknown is kept verbatim so the cache key stays the raw hint.
func ParseStrategy(s string) Strategy {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StrategyAuto
	}
	return Strategy(s)
}

// Dispatchable reports whether the strategy has its own generation pipeline.
func (s Strategy) Dispatchable() bool {
	switch s {
	case StrategySequential, StrategyParallel, StrategyConsensus, StrategyHierarchical:
		return true
	}
	return false
}

// ContextType tags a pending follow-up and selects the merge rule for the answer.
type ContextType string

const (
	ContextPlanRecommendation ContextType = "plan_recommendation"
	ContextComparison         ContextType = "comparison"
	Context5GCheck            ContextType = "5g_check"
	ContextBudgetPlan         ContextType = "budget_plan"
	ContextRecommendation     ContextType = "recommendation"
	ContextGeneralHelp        ContextType = "general_help"
)

// PendingFollowUp is the single clarification a session may be waiting on.
type PendingFollowUp struct {
	OriginalQuery string      `json:"original_query"`
	ContextType   ContextType `json:"context_type"`
	CreatedAt     time.Time   `json:"created_at"`
}

// ToolEntry is one labeled tool result, e.g. "plan_299" or "comparison".
type ToolEntry struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ToolBundle keeps tool results in insertion order. Setting an existing label
// replaces its value in place.
type ToolBundle struct {
	entries []ToolEntry
}

func (b *ToolBundle) Set(label, value string) {
	for i := range b.entries {
		if b.entries[i].Label == label {
			b.entries[i].Value = value
			return
		}
	}
	b.entries = append(b.entries, ToolEntry{Label: label, Value: value})
}

func (b *ToolBundle) Get(label string) (string, bool) {
	for _, e := range b.entries {
		if e.Label == label {
			return e.Value, true
		}
	}
	return "", false
}

func (b *ToolBundle) Len() int {
	return len(b.entries)
}

func (b *ToolBundle) Labels() []string {
	labels := make([]string, 0, len(b.entries))
	for _, e := range b.entries {
		labels = append(labels, e.Label)
	}
	return labels
}

// Entries returns a copy of the entries in insertion order.
func (b *ToolBundle) Entries() []ToolEntry {
	out := make([]ToolEntry, len(b.entries))
	copy(out, b.entries)
	return out
}

// Size is the total length of all values.
func (b *ToolBundle) Size() int {
	n := 0
	for _, e := range b.entries {
		n += len(e.Value)
	}
	return n
}

// Request is one user turn handed to the orchestrator.
type Request struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id"`
	Strategy  string `json:"strategy"`
	SkipCache bool   `json:"skip_cache"`
	// ForceTools runs retrieval and tools even for simple queries.
	ForceTools bool `json:"force_tools"`
}

// Result is the structured answer for one turn. The orchestrator never returns
// an error: failures surface as Success=false with the fallback text.
type Result struct {
	Success  bool     `json:"success"`
	Response string   `json:"response"`
	Error    string   `json:"error,omitempty"`
	Metadata Metadata `json:"metadata"`
}

type Metadata struct {
	Type          string        `json:"type,omitempty"`
	Strategy      Strategy      `json:"strategy"`
	Complexity    Complexity    `json:"complexity,omitempty"`
	Duration      time.Duration `json:"duration"`
	Timestamp     time.Time     `json:"timestamp"`
	AgentsUsed    int           `json:"agents_used"`
	RAGUsed       bool          `json:"rag_used"`
	MCPUsed       bool          `json:"mcp_used"`
	ToolsCalled   []string      `json:"mcp_tools_called,omitempty"`
	ContextSize   int           `json:"context_size,omitempty"`
	Cached        bool          `json:"cached"`
	SessionID     string        `json:"session_id,omitempty"`
	WaitingFor    ContextType   `json:"waiting_for,omitempty"`
	OriginalQuery string        `json:"original_query,omitempty"`
	EnhancedQuery string        `json:"enhanced_query,omitempty"`
	ResolvedType  ContextType   `json:"resolved_context_type,omitempty"`
}

// MetadataTypeFollowUp marks a result that carries a clarifying question.
const MetadataTypeFollowUp = "follow_up"

// Clone returns a deep copy so cached results are never shared with callers.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	if r.Metadata.ToolsCalled != nil {
		c.Metadata.ToolsCalled = append([]string(nil), r.Metadata.ToolsCalled...)
	}
	return &c
}
