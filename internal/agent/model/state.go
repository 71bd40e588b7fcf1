package model

// Intent is the classification result for a user query. It is the
// discriminant for both graph routing and the Analysis variant.
type Intent string

const (
	IntentDataQuestion   Intent = "data_question"
	IntentCreateVisual   Intent = "create_visual"
	IntentCasualGreeting Intent = "casual_greeting"
	IntentGratitude      Intent = "gratitude"
	IntentUnknown        Intent = "unknown"
)

// ParseIntent normalises a model-produced intent string. Anything the
// classifier invents outside the known set collapses to IntentUnknown so the
// graph falls through to the non-data branch instead of failing.
func ParseIntent(v string) Intent {
	switch Intent(v) {
	case IntentDataQuestion:
		return IntentDataQuestion
	case IntentCreateVisual:
		return IntentCreateVisual
	case IntentCasualGreeting:
		return IntentCasualGreeting
	case IntentGratitude:
		return IntentGratitude
	default:
		return IntentUnknown
	}
}

// Analysis is the variant field written by exactly one analyzer node.
// The run's Intent discriminates which arm is populated.
type Analysis struct {
	Question *QuestionAnalysis
	Visual   *VisualConcept
}

// QuestionAnalysis is the structured output of the question analyzer node.
type QuestionAnalysis struct {
	RequiredDatasetIDs  []string `json:"required_dataset_ids"`
	AnalysisDescription string   `json:"analysis_description"`
	SuggestedOperations []string `json:"suggested_operations"`
}

// AgentState is the single mutable record threaded through one
// query-answering run. One instance per run; nodes mutate it in sequence and
// must not retain a reference past the run.
type AgentState struct {
	ProjectID    string
	CurrentQuery string
	Datasets     []DataSource
	PastMessages []Message

	Intent            Intent
	Analysis          *Analysis
	RequiredDatasets  []DataSource
	VisualData        *VisualData
	GeneratedCode     string
	ExecutionResult   any
	FormattedResponse *FormattedResponse
	Error             string
}

// QuestionAnalysis returns the question arm of the analysis, or nil when the
// run took a different branch.
func (s *AgentState) QuestionAnalysis() *QuestionAnalysis {
	if s.Analysis == nil {
		return nil
	}
	return s.Analysis.Question
}

// VisualConcept returns the visual arm of the analysis, or nil when the run
// took a different branch.
func (s *AgentState) VisualConcept() *VisualConcept {
	if s.Analysis == nil {
		return nil
	}
	return s.Analysis.Visual
}

// ExecutionTargets returns the datasets code should run against: the
// analyzer-narrowed subset when one exists, otherwise every dataset visible
// to the project.
func (s *AgentState) ExecutionTargets() []DataSource {
	if len(s.RequiredDatasets) > 0 {
		return s.RequiredDatasets
	}
	return s.Datasets
}

// MatchDatasets returns the subset of datasets whose id appears in ids.
// Ids with no matching dataset are dropped silently; the result is always a
// subset of the input slice.
func MatchDatasets(datasets []DataSource, ids []string) []DataSource {
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	matched := make([]DataSource, 0, len(ids))
	for _, ds := range datasets {
		if wanted[ds.ID] {
			matched = append(matched, ds)
		}
	}
	return matched
}
