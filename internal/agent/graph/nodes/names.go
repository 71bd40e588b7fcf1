package nodes

// Graph node names. Routing after classification is keyed on intent alone.
const (
	NodeClassifyQuery          = "classify_query"
	NodeAnalyzeQuestion        = "analyze_question"
	NodeCreateVisualConcept    = "create_visual_concept"
	NodeGenerateDemoVisualData = "generate_demo_visual_data"
	NodeGenerateCode           = "generate_code"
	NodeGenerateVisualCode     = "generate_visual_code"
	NodeExecuteCode            = "execute_code"
	NodeFormatResponse         = "format_response"
	NodeHandleNonDataQuery     = "handle_non_data_query"
)

// Entry-point names generated code must define.
const (
	EntryPointAnalyze = "analyze_data"
	EntryPointVisual  = "get_visual_data"
)
