package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veer19/flow-ai-api/internal/agent/executor"
	"github.com/Veer19/flow-ai-api/internal/agent/graph"
	"github.com/Veer19/flow-ai-api/internal/agent/llm"
	"github.com/Veer19/flow-ai-api/internal/agent/model"
)

// scriptedInvoker replays canned completions in call order, one queue per
// invocation kind. The pipeline is sequential, so order is deterministic.
type scriptedInvoker struct {
	structured []string
	plain      []string

	structuredCalls int
	plainCalls      int
	profiles        []string
}

func (s *scriptedInvoker) Invoke(ctx context.Context, userPrompt, systemPrompt, profile string) (string, error) {
	s.profiles = append(s.profiles, profile)
	if s.plainCalls >= len(s.plain) {
		return "", errors.New("unexpected plain invocation")
	}
	out := s.plain[s.plainCalls]
	s.plainCalls++
	return out, nil
}

func (s *scriptedInvoker) InvokeStructured(ctx context.Context, userPrompt, systemPrompt, profile string, out any) error {
	s.profiles = append(s.profiles, profile)
	if s.structuredCalls >= len(s.structured) {
		return errors.New("unexpected structured invocation")
	}
	content := s.structured[s.structuredCalls]
	s.structuredCalls++
	return llm.DecodeJSON(content, out)
}

// stubStore serves fixed dataset bytes.
type stubStore struct {
	content map[string][]byte
}

func (s *stubStore) Fetch(ctx context.Context, locator string) ([]byte, error) {
	data, ok := s.content[locator]
	if !ok {
		return nil, errors.New("blob not found")
	}
	return data, nil
}

// stubRunner records what it was asked to run and returns a fixed result.
type stubRunner struct {
	result any
	err    error

	code       string
	entryPoint string
	frameNames []string
}

func (r *stubRunner) Execute(ctx context.Context, code string, frames map[string][]byte, entryPoint string) (any, error) {
	r.code = code
	r.entryPoint = entryPoint
	r.frameNames = r.frameNames[:0]
	for name := range frames {
		r.frameNames = append(r.frameNames, name)
	}
	if r.err != nil {
		return nil, r.err
	}
	return r.result, nil
}

func demoDatasets() []model.DataSource {
	return []model.DataSource{
		{ID: "ds-1", Filename: "sales.csv", BlobPath: "blob://sales"},
		{ID: "ds-2", Filename: "orders.csv", BlobPath: "blob://orders"},
	}
}

func newTestAgent(t *testing.T, gw llm.Invoker, runner executor.Runner) *Agent {
	t.Helper()
	store := &stubStore{content: map[string][]byte{
		"blob://sales":  []byte("region,revenue\nNorth,360\n"),
		"blob://orders": []byte("order_id,units\n1001,12\n"),
	}}
	ag, err := NewWithDeps(context.Background(), graph.Config{
		Gateway: gw,
		Store:   store,
		Runner:  runner,
	})
	require.NoError(t, err)
	return ag
}

func TestAnalyzeGreeting(t *testing.T) {
	gw := &scriptedInvoker{
		structured: []string{`{"intent":"casual_greeting","reason":"the user says hello"}`},
		plain:      []string{"Hello! Ask me anything about your data."},
	}
	ag := newTestAgent(t, gw, &stubRunner{})

	result, err := ag.Analyze(context.Background(), "p1", "Hi there!", demoDatasets(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.ResponseReply, result.Result.Type)
	assert.Equal(t, "Hello! Ask me anything about your data.", result.Result.Message)
	assert.Empty(t, result.CodeGenerated)
}

func TestAnalyzeDataQuestion(t *testing.T) {
	gw := &scriptedInvoker{
		structured: []string{
			`{"intent":"data_question","reason":"asks about totals"}`,
			`{"required_dataset_ids":["ds-1"],"analysis_description":"sum revenue by region","suggested_operations":["groupby","sum"]}`,
			`{"type":"analysis","message":"Total revenue by region: North 360."}`,
		},
		plain: []string{"```python\ndef analyze_data(dataframes):\n    return {\"North\": 360}\n```"},
	}
	runner := &stubRunner{result: map[string]any{"North": 360.0}}
	ag := newTestAgent(t, gw, runner)

	result, err := ag.Analyze(context.Background(), "p1", "total revenue per region?", demoDatasets(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.ResponseAnalysis, result.Result.Type)
	assert.Equal(t, "Total revenue by region: North 360.", result.Result.Message)

	// Code is unfenced and ran against only the required dataset.
	assert.Equal(t, "def analyze_data(dataframes):\n    return {\"North\": 360}", result.CodeGenerated)
	assert.Equal(t, "analyze_data", runner.entryPoint)
	assert.Equal(t, []string{"sales.csv"}, runner.frameNames)
}

func TestAnalyzeVisualRequest(t *testing.T) {
	payload := map[string]any{
		"series":  []any{map[string]any{"name": "units", "data": []any{12.0, 7.0}}},
		"options": map[string]any{"xaxis": []any{"Widget", "Gadget"}},
	}
	gw := &scriptedInvoker{
		structured: []string{
			`{"intent":"create_visual","reason":"asks for a chart"}`,
			`{"visual_concepts":[{"title":"Units by product","description":"bar of units","type":"bar","required_dataset_ids":["ds-2"]}]}`,
			`{"visual_sample_data":{"series":[{"name":"units","data":[1,2]}],"options":{}}}`,
			`{"type":"analysis","message":"Here is your chart."}`,
		},
		plain: []string{"```python\ndef get_visual_data(dataframes):\n    return {}\n```"},
	}
	runner := &stubRunner{result: payload}
	ag := newTestAgent(t, gw, runner)

	result, err := ag.Analyze(context.Background(), "p1", "bar chart of units by product", demoDatasets(), nil)
	require.NoError(t, err)

	assert.Equal(t, "Here is your chart.", result.Result.Message)
	require.NotNil(t, result.Result.Attach)
	assert.Equal(t, model.AttachVisual, *result.Result.Attach)
	// The executed payload, not the demo sample, is attached.
	assert.Equal(t, payload, result.Result.Data)

	assert.Equal(t, "get_visual_data", runner.entryPoint)
	assert.Equal(t, []string{"orders.csv"}, runner.frameNames)
}

func TestAnalyzeExecutionFailureYieldsErrorResponse(t *testing.T) {
	gw := &scriptedInvoker{
		structured: []string{
			`{"intent":"data_question","reason":"asks about totals"}`,
			`{"required_dataset_ids":["ds-1"],"analysis_description":"sum revenue","suggested_operations":[]}`,
		},
		plain: []string{"```python\ndef analyze_data(dataframes):\n    return broken\n```"},
	}
	runner := &stubRunner{err: &executor.ExecutionError{Op: executor.OpCall, Err: errors.New("NameError")}}
	ag := newTestAgent(t, gw, runner)

	result, err := ag.Analyze(context.Background(), "p1", "total revenue?", demoDatasets(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.ResponseError, result.Result.Type)
	assert.Equal(t, model.ErrorResponseMessage, result.Result.Message)
	// The code generated before the failure stays visible for debugging.
	assert.Contains(t, result.CodeGenerated, "def analyze_data")
}

func TestAnalyzeNilExecutionResultSkipsFormatter(t *testing.T) {
	gw := &scriptedInvoker{
		structured: []string{
			`{"intent":"data_question","reason":"asks about totals"}`,
			`{"required_dataset_ids":["ds-1"],"analysis_description":"sum revenue","suggested_operations":[]}`,
		},
		plain: []string{"def analyze_data(dataframes):\n    return None\n"},
	}
	// Generated code returning None decodes to a nil result.
	runner := &stubRunner{result: nil}
	ag := newTestAgent(t, gw, runner)

	result, err := ag.Analyze(context.Background(), "p1", "total revenue?", demoDatasets(), nil)
	require.NoError(t, err)

	assert.Equal(t, model.ResponseError, result.Result.Type)
	assert.Equal(t, model.ErrorResponseMessage, result.Result.Message)
	// The formatter made no model call: classify and analyze are the only
	// structured invocations, code generation the only plain one.
	assert.Equal(t, 2, gw.structuredCalls)
	assert.Equal(t, 1, gw.plainCalls)
}

func TestAnalyzeClassifierFailureYieldsErrorResponse(t *testing.T) {
	gw := &scriptedInvoker{
		structured: []string{`this is not json`},
	}
	ag := newTestAgent(t, gw, &stubRunner{})

	result, err := ag.Analyze(context.Background(), "p1", "anything", demoDatasets(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseError, result.Result.Type)
}

func TestAnalyzeUnknownIntentFallsThrough(t *testing.T) {
	gw := &scriptedInvoker{
		structured: []string{`{"intent":"philosophy_question","reason":"off topic"}`},
		plain:      []string{"I can only help with your project's data."},
	}
	ag := newTestAgent(t, gw, &stubRunner{})

	result, err := ag.Analyze(context.Background(), "p1", "what is the meaning of life?", demoDatasets(), nil)
	require.NoError(t, err)
	assert.Equal(t, model.ResponseReply, result.Result.Type)
	assert.Equal(t, "I can only help with your project's data.", result.Result.Message)
}

func TestAnalyzeFormatterParseFailureDegrades(t *testing.T) {
	gw := &scriptedInvoker{
		structured: []string{
			`{"intent":"data_question","reason":"asks about totals"}`,
			`{"required_dataset_ids":["ds-1"],"analysis_description":"sum revenue","suggested_operations":[]}`,
			`no json in this formatter reply`,
		},
		plain: []string{"def analyze_data(dataframes):\n    return 1\n"},
	}
	runner := &stubRunner{result: 1.0}
	ag := newTestAgent(t, gw, runner)

	result, err := ag.Analyze(context.Background(), "p1", "total revenue?", demoDatasets(), nil)
	require.NoError(t, err)
	// Parse failure in the formatter degrades to the fixed payload instead of
	// failing the run.
	assert.Equal(t, model.ResponseError, result.Result.Type)
	assert.Equal(t, model.ErrorResponseMessage, result.Result.Message)
	assert.Contains(t, result.CodeGenerated, "def analyze_data")
}
