package observability

const (
	AttrConversationID = "conversation.id"
	AttrNodeName       = "engine.node"
	AttrEngineStatus   = "engine.status"
	AttrToolName       = "tool.name"
	AttrLLMModel       = "llm.model"
	AttrLLMProvider    = "llm.provider"
	AttrSearchQuery    = "search.query"
	AttrSearchResults  = "search.results"
	AttrErrorType      = "error.type"

	SpanEngineRun     = "engine.run"
	SpanEngineNode    = "engine.node"
	SpanLLMRequest    = "llm.request"
	SpanToolExecution = "tool.execution"
	SpanHybridSearch  = "search.hybrid"
	SpanEmbedding     = "embedder.embed"

	DefaultServiceName = "scholarag"
)
