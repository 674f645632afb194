package model

// GenerationState stores per-invocation state for the generation graph.
// Concurrency model:
//   - Registered as Graph Local State via compose.WithGenLocalState.
//   - Read and written only inside Eino state handlers or compose.ProcessState,
//     which Eino serializes, so no mutex is needed.
type GenerationState struct {
	SessionID string
	Strategy  Strategy
	Model     string

	// Accumulated total LLM cost (USD) across model invocations for this request
	TotalCostUSD float64
}

// GenerationInput is what the orchestrator hands to a generation pipeline:
// the (possibly merged) query plus everything gathered for it.
type GenerationInput struct {
	SessionID  string      `json:"session_id"`
	Strategy   Strategy    `json:"strategy"`
	Query      string      `json:"query"`
	RAGContext string      `json:"rag_context"`
	Tools      []ToolEntry `json:"tools"`
}
