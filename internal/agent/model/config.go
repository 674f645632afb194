package model

import "time"

// ================ Config ================
type ConversationConfig struct {
	TTL     string `envconfig:"CONVERSATION_TTL" default:"24h"`
	History struct {
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"20"`
	}
}

type ResearchModelConfig struct {
	Model       string  `envconfig:"RESEARCH_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESEARCH_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESEARCH_TEMPERATURE" default:"0.7"`
}

type ArchitectModelConfig struct {
	Model       string  `envconfig:"ARCHITECT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"ARCHITECT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"ARCHITECT_TEMPERATURE" default:"0.7"`
}

type PromptConfig struct {
	BrandName      string `envconfig:"PROMPT_BRAND_NAME" default:"Jio"`
	CurrencySymbol string `envconfig:"PROMPT_CURRENCY_SYMBOL" default:"₹"`
}

type OrchestratorConfig struct {
	CacheTTL        time.Duration `envconfig:"ORCHESTRATOR_CACHE_TTL" default:"300s"`
	CacheSize       int           `envconfig:"ORCHESTRATOR_CACHE_SIZE" default:"1000"`
	DefaultStrategy string        `envconfig:"ORCHESTRATOR_DEFAULT_STRATEGY" default:"auto"`
}

type FollowUpConfig struct {
	MaxAge          time.Duration `envconfig:"FOLLOWUP_MAX_AGE" default:"3600s"`
	CleanupInterval time.Duration `envconfig:"FOLLOWUP_CLEANUP_INTERVAL" default:"5m"`
}

type KnowledgeConfig struct {
	TopK         int    `envconfig:"KNOWLEDGE_TOP_K" default:"3"`
	ChunkSize    int    `envconfig:"KNOWLEDGE_CHUNK_SIZE" default:"500"`
	ChunkOverlap int    `envconfig:"KNOWLEDGE_CHUNK_OVERLAP" default:"50"`
	DataPath     string `envconfig:"KNOWLEDGE_DATA_PATH"`
}

type ToolsConfig struct {
	// Transport selects how the aggregator reaches the catalog tools: mcp or direct.
	Transport  string `envconfig:"TOOLS_TRANSPORT" default:"mcp"`
	ServeStdio bool   `envconfig:"MCP_SERVE_STDIO" default:"false"`
}
