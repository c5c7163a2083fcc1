package observability

const (
	AttrServiceName    = "service.name"
	AttrServiceVersion = "service.version"
	AttrTemplateID     = "template.id"
	AttrGenerateMode   = "generate.mode"
	AttrLLMModel       = "llm.model"
	AttrLLMTokensIn    = "llm.tokens.input"
	AttrLLMTokensOut   = "llm.tokens.output"
	AttrGraphOperation = "graph.operation"
	AttrErrorType      = "error.type"

	AttrHTTPMethod       = "http.method"
	AttrHTTPPath         = "http.path"
	AttrHTTPStatusCode   = "http.status_code"
	AttrHTTPResponseSize = "http.response_size"

	SpanHTTPRequest  = "http.request"
	SpanTemplateFill = "template.fill"
	SpanGeneration   = "generator.generate"
	SpanLLMRequest   = "llm.request"
	SpanEmbedding    = "llm.embedding"
	SpanGraphQuery   = "graph.query"

	DefaultServiceName  = "ontomed"
	DefaultSamplingRate = 1.0
	DefaultOTLPEndpoint = "localhost:4317"
	DefaultMetricsPath  = "/metrics"
)
