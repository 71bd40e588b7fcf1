package nodes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/Veer19/flow-ai-api/internal/agent/executor"
	"github.com/Veer19/flow-ai-api/internal/agent/llm"
	"github.com/Veer19/flow-ai-api/internal/agent/model"
	"github.com/Veer19/flow-ai-api/internal/agent/prompts"
	"github.com/Veer19/flow-ai-api/internal/agent/storage"
	logx "github.com/Veer19/flow-ai-api/pkg/logger"
)

// Deps holds the collaborators shared by all nodes of one graph.
type Deps struct {
	Gateway llm.Invoker
	Store   storage.ContentStore
	Runner  executor.Runner
}

// promptJSON renders a value as indented JSON for prompt interpolation.
func promptJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

// NewClassifyQueryNode determines the query's intent. Classification is
// mandatory: a failed model call fails the run.
func NewClassifyQueryNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		vars := map[string]any{
			"query":         st.CurrentQuery,
			"past_messages": model.Transcript(st.PastMessages),
		}
		system, err := prompts.Render(ctx, prompts.ClassifyQuerySystem, nil)
		if err != nil {
			return nil, err
		}
		user, err := prompts.Render(ctx, prompts.ClassifyQueryUser, vars)
		if err != nil {
			return nil, err
		}

		var out model.ClassifyResult
		if err := d.Gateway.InvokeStructured(ctx, user, system, llm.ProfileAnalyze, &out); err != nil {
			return nil, fmt.Errorf("classify query: %w", err)
		}

		st.Intent = model.ParseIntent(out.Intent)
		logx.Debug().
			Str("intent", string(st.Intent)).
			Str("reason", out.Reason).
			Msg("Query classified")
		return st, nil
	})
}

// NewRouteIntentCondition routes the classified state to its branch. Any
// intent outside the two data branches falls through to the non-data
// handler; unknown is a fail-safe default, not an error.
func NewRouteIntentCondition() func(context.Context, *model.AgentState) (string, error) {
	return func(ctx context.Context, st *model.AgentState) (string, error) {
		switch st.Intent {
		case model.IntentDataQuestion:
			return NodeAnalyzeQuestion, nil
		case model.IntentCreateVisual:
			return NodeCreateVisualConcept, nil
		default:
			return NodeHandleNonDataQuery, nil
		}
	}
}

// NewAnalyzeQuestionNode determines which datasets a data question needs and
// what operations answer it.
func NewAnalyzeQuestionNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		vars := map[string]any{
			"query":         st.CurrentQuery,
			"datasets":      promptJSON(model.PromptViews(st.Datasets)),
			"past_messages": model.Transcript(st.PastMessages),
		}
		system, err := prompts.Render(ctx, prompts.AnalyzeQuestionSystem, nil)
		if err != nil {
			return nil, err
		}
		user, err := prompts.Render(ctx, prompts.AnalyzeQuestionUser, vars)
		if err != nil {
			return nil, err
		}

		var out model.QuestionAnalysis
		if err := d.Gateway.InvokeStructured(ctx, user, system, llm.ProfileAnalyze, &out); err != nil {
			return nil, fmt.Errorf("analyze question: %w", err)
		}

		st.Analysis = &model.Analysis{Question: &out}
		// Ids that match no project dataset are dropped silently.
		st.RequiredDatasets = model.MatchDatasets(st.Datasets, out.RequiredDatasetIDs)
		logx.Debug().
			Int("required_datasets", len(st.RequiredDatasets)).
			Str("description", out.AnalysisDescription).
			Msg("Question analyzed")
		return st, nil
	})
}

// NewCreateVisualConceptNode picks a chart concept for a visualization
// request. Only the first concept the model proposes is used.
func NewCreateVisualConceptNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		vars := map[string]any{
			"query":         st.CurrentQuery,
			"datasets":      promptJSON(model.PromptViews(st.Datasets)),
			"past_messages": model.Transcript(st.PastMessages),
			"visual_types":  strings.Join(model.VisualTypeNames(), ", "),
		}
		system, err := prompts.Render(ctx, prompts.VisualConceptSystem, nil)
		if err != nil {
			return nil, err
		}
		user, err := prompts.Render(ctx, prompts.VisualConceptUser, vars)
		if err != nil {
			return nil, err
		}

		var out model.VisualConceptsResult
		if err := d.Gateway.InvokeStructured(ctx, user, system, llm.ProfileAnalyze, &out); err != nil {
			return nil, fmt.Errorf("create visual concept: %w", err)
		}
		if len(out.VisualConcepts) == 0 {
			return nil, errors.New("create visual concept: model proposed no concepts")
		}

		concept := out.VisualConcepts[0]
		st.Analysis = &model.Analysis{Visual: &concept}
		st.RequiredDatasets = model.MatchDatasets(st.Datasets, concept.RequiredDatasetIDs)
		logx.Debug().
			Str("chart_type", string(concept.Type)).
			Str("title", concept.Title).
			Int("required_datasets", len(st.RequiredDatasets)).
			Msg("Visual concept created")
		return st, nil
	})
}

// NewGenerateDemoVisualDataNode produces a small illustrative series/options
// sample that anchors the shape of the visual-code prompt. The sample is
// also stamped into ExecutionResult so the formatter's error branch stays
// consistent before real execution runs.
func NewGenerateDemoVisualDataNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		concept := st.VisualConcept()
		if concept == nil {
			return nil, errors.New("generate demo visual data: no visual concept in state")
		}

		vars := map[string]any{
			"concept":  promptJSON(concept),
			"datasets": promptJSON(model.PromptViews(st.RequiredDatasets)),
		}
		system, err := prompts.Render(ctx, prompts.DemoVisualDataSystem, nil)
		if err != nil {
			return nil, err
		}
		user, err := prompts.Render(ctx, prompts.DemoVisualDataUser, vars)
		if err != nil {
			return nil, err
		}

		var out model.VisualSampleResult
		if err := d.Gateway.InvokeStructured(ctx, user, system, llm.ProfileAnalyze, &out); err != nil {
			return nil, fmt.Errorf("generate demo visual data: %w", err)
		}

		st.VisualData = &out.VisualSampleData
		st.ExecutionResult = out.VisualSampleData
		return st, nil
	})
}

// NewGenerateCodeNode produces the pandas snippet for the data-question
// branch. The snippet is not validated here; execution does that.
func NewGenerateCodeNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		description := st.CurrentQuery
		var operations []string
		if qa := st.QuestionAnalysis(); qa != nil {
			description = qa.AnalysisDescription
			operations = qa.SuggestedOperations
		}

		vars := map[string]any{
			"description": description,
			"operations":  promptJSON(operations),
			"datasets":    promptJSON(model.PromptViews(st.ExecutionTargets())),
		}
		system, err := prompts.Render(ctx, prompts.GenerateCodeSystem, nil)
		if err != nil {
			return nil, err
		}
		user, err := prompts.Render(ctx, prompts.GenerateCodeUser, vars)
		if err != nil {
			return nil, err
		}

		content, err := d.Gateway.Invoke(ctx, user, system, llm.ProfileCode)
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		st.GeneratedCode = llm.ExtractCodeBlock(content)
		return st, nil
	})
}

// NewGenerateVisualCodeNode produces the snippet that builds the chart
// payload from the full datasets, shaped like the demo sample.
func NewGenerateVisualCodeNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		concept := st.VisualConcept()
		if concept == nil {
			return nil, errors.New("generate visual code: no visual concept in state")
		}

		vars := map[string]any{
			"concept":  promptJSON(concept),
			"sample":   promptJSON(st.VisualData),
			"datasets": promptJSON(model.PromptViews(st.ExecutionTargets())),
		}
		system, err := prompts.Render(ctx, prompts.GenerateVisualCodeSystem, nil)
		if err != nil {
			return nil, err
		}
		user, err := prompts.Render(ctx, prompts.GenerateVisualCodeUser, vars)
		if err != nil {
			return nil, err
		}

		content, err := d.Gateway.Invoke(ctx, user, system, llm.ProfileCode)
		if err != nil {
			return nil, fmt.Errorf("generate visual code: %w", err)
		}
		st.GeneratedCode = llm.ExtractCodeBlock(content)
		return st, nil
	})
}

// NewExecuteCodeNode fetches the required dataset contents and runs the
// generated code against them. Retrieval and execution failures propagate;
// the run boundary converts them into the canonical error response.
func NewExecuteCodeNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		targets := st.ExecutionTargets()
		loader := storage.NewLoader(d.Store)
		frames, err := loader.Frames(ctx, targets)
		if err != nil {
			return nil, fmt.Errorf("resolve datasets: %w", err)
		}

		entryPoint := EntryPointAnalyze
		if st.Intent == model.IntentCreateVisual {
			entryPoint = EntryPointVisual
		}

		result, err := d.Runner.Execute(ctx, st.GeneratedCode, frames, entryPoint)
		if err != nil {
			return nil, err
		}
		st.ExecutionResult = result
		return st, nil
	})
}

// NewFormatResponseNode turns the execution result into the final answer.
// With no result it answers with the fixed error payload and makes no model
// call. A formatter-side parse failure also degrades to the fixed payload;
// provider failures still propagate.
func NewFormatResponseNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		if st.ExecutionResult == nil {
			st.FormattedResponse = model.ErrorResponse()
			return st, nil
		}

		// For charts the model only words the message; the payload itself is
		// attached verbatim below, so describe the concept instead of dumping
		// the series.
		resultContext := promptJSON(st.ExecutionResult)
		if st.Intent == model.IntentCreateVisual {
			if concept := st.VisualConcept(); concept != nil {
				resultContext = promptJSON(concept)
			}
		}

		vars := map[string]any{
			"query":  st.CurrentQuery,
			"result": resultContext,
		}
		system, err := prompts.Render(ctx, prompts.FormatResponseSystem, nil)
		if err != nil {
			return nil, err
		}
		user, err := prompts.Render(ctx, prompts.FormatResponseUser, vars)
		if err != nil {
			return nil, err
		}

		var out model.FormattedResponse
		if err := d.Gateway.InvokeStructured(ctx, user, system, llm.ProfileCreative, &out); err != nil {
			var perr *llm.ParseError
			if errors.As(err, &perr) {
				logx.Warn().Err(err).Msg("Formatter output unparseable, using fixed error payload")
				st.FormattedResponse = model.ErrorResponse()
				return st, nil
			}
			return nil, fmt.Errorf("format response: %w", err)
		}

		if st.Intent == model.IntentCreateVisual {
			// The chart payload, not a model paraphrase, is what gets attached.
			out.Attach = model.VisualAttach()
			out.Data = st.ExecutionResult
		}
		st.FormattedResponse = &out
		return st, nil
	})
}

// NewHandleNonDataQueryNode answers greetings, gratitude and anything else
// that needs no dataset access. Terminal.
func NewHandleNonDataQueryNode(d *Deps) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
		vars := map[string]any{
			"query":         st.CurrentQuery,
			"past_messages": model.Transcript(st.PastMessages),
		}
		system, err := prompts.Render(ctx, prompts.NonDataQuerySystem, nil)
		if err != nil {
			return nil, err
		}
		user, err := prompts.Render(ctx, prompts.NonDataQueryUser, vars)
		if err != nil {
			return nil, err
		}

		reply, err := d.Gateway.Invoke(ctx, user, system, llm.ProfileAnalyze)
		if err != nil {
			return nil, fmt.Errorf("handle non-data query: %w", err)
		}

		st.FormattedResponse = &model.FormattedResponse{
			Type:    model.ResponseReply,
			Message: strings.TrimSpace(reply),
		}
		return st, nil
	})
}
