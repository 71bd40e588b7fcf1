package executor

import (
	"context"
	"errors"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veer19/flow-ai-api/internal/agent/model"
)

// requirePandas skips tests that need a working interpreter with pandas.
func requirePandas(t *testing.T) *PythonRunner {
	t.Helper()
	path := ProbeInterpreter()
	if path == "" {
		t.Skip("no python interpreter on PATH")
	}
	if err := exec.Command(path, "-c", "import pandas").Run(); err != nil {
		t.Skip("pandas not importable")
	}
	runner, err := NewPythonRunner(model.ExecutorConfig{PythonPath: path, TimeoutSec: 30})
	require.NoError(t, err)
	return runner
}

var salesCSV = map[string][]byte{
	"sales.csv": []byte("region,revenue\nNorth,360\nSouth,210\nNorth,450\n"),
}

func TestExecuteAnalyzeData(t *testing.T) {
	runner := requirePandas(t)

	code := `
def analyze_data(dataframes):
    df = dataframes["sales.csv"]
    return df.groupby("region")["revenue"].sum().to_dict()
`
	result, err := runner.Execute(context.Background(), code, salesCSV, "analyze_data")
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok, "expected object result, got %T", result)
	assert.InDelta(t, 810, m["North"].(float64), 1e-6)
	assert.InDelta(t, 210, m["South"].(float64), 1e-6)
}

func TestExecuteSanitizesNaN(t *testing.T) {
	runner := requirePandas(t)

	code := `
def analyze_data(dataframes):
    return {"value": float("nan"), "inf": float("inf"), "ok": 1.5}
`
	result, err := runner.Execute(context.Background(), code, salesCSV, "analyze_data")
	require.NoError(t, err)

	m, ok := result.(map[string]any)
	require.True(t, ok)
	assert.Nil(t, m["value"])
	assert.Nil(t, m["inf"])
	assert.InDelta(t, 1.5, m["ok"].(float64), 1e-6)
}

func TestExecuteMissingEntryPoint(t *testing.T) {
	runner := requirePandas(t)

	code := "def something_else(dataframes):\n    return 1\n"
	_, err := runner.Execute(context.Background(), code, salesCSV, "analyze_data")

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, OpEntryPoint, execErr.Op)
}

func TestExecuteLoadFailure(t *testing.T) {
	runner := requirePandas(t)

	code := "this is not python at all {"
	_, err := runner.Execute(context.Background(), code, salesCSV, "analyze_data")

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, OpLoad, execErr.Op)
}

func TestExecuteRuntimeFailure(t *testing.T) {
	runner := requirePandas(t)

	code := `
def analyze_data(dataframes):
    raise ValueError("boom")
`
	_, err := runner.Execute(context.Background(), code, salesCSV, "analyze_data")

	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, OpCall, execErr.Op)
	assert.Contains(t, execErr.Output, "boom")
}

func TestExecuteIsRepeatable(t *testing.T) {
	runner := requirePandas(t)

	code := `
def analyze_data(dataframes):
    return len(dataframes["sales.csv"])
`
	first, err := runner.Execute(context.Background(), code, salesCSV, "analyze_data")
	require.NoError(t, err)
	second, err := runner.Execute(context.Background(), code, salesCSV, "analyze_data")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestExecuteTimeout(t *testing.T) {
	runner := requirePandas(t)
	runner.timeout = 2 * time.Second

	code := `
import time

def analyze_data(dataframes):
    time.sleep(30)
    return None
`
	start := time.Now()
	_, err := runner.Execute(context.Background(), code, salesCSV, "analyze_data")
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestNewPythonRunnerRequiresInterpreter(t *testing.T) {
	if ProbeInterpreter() != "" {
		t.Skip("interpreter present on PATH")
	}
	_, err := NewPythonRunner(model.ExecutorConfig{})
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name   string
		output string
		op     string
	}{
		{"entrypoint marker", "AGENT_EXEC_ERROR:entrypoint:code did not define callable 'analyze_data'\n", OpEntryPoint},
		{"call marker", "some warning\nAGENT_EXEC_ERROR:call:ValueError('boom')\n", OpCall},
		{"no marker", "Traceback (most recent call last)...", OpRun},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			op, _ := classify(tc.output)
			assert.Equal(t, tc.op, op)
		})
	}
}

func TestExecutionErrorUnwrap(t *testing.T) {
	cause := errors.New("exit status 1")
	err := &ExecutionError{Op: OpCall, Err: cause}
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), OpCall)
}
