// Package executor runs LLM-generated pandas snippets in a Python
// subprocess. The snippet is loaded into a fresh module namespace, the named
// entry point is resolved and called with a filename->DataFrame mapping, and
// the JSON-sanitised result is handed back.
//
// This is namespace isolation only, NOT a security sandbox: generated code
// executes with the same privileges as this process.
package executor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/Veer19/flow-ai-api/internal/agent/model"
	logx "github.com/Veer19/flow-ai-api/pkg/logger"

	_ "embed"
)

//go:embed harness.py
var harnessScript string

// errorMarker prefixes harness failures on stderr: AGENT_EXEC_ERROR:<op>:<detail>
const errorMarker = "AGENT_EXEC_ERROR:"

// Failure stages reported by ExecutionError.Op.
const (
	OpLoad       = "load"
	OpEntryPoint = "entrypoint"
	OpCall       = "call"
	OpRun        = "run"
	OpDecode     = "decode"
)

// ExecutionError reports a failed execution of generated code.
type ExecutionError struct {
	Op     string
	Output string
	Err    error
}

func (e *ExecutionError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("code execution failed at %s", e.Op)
	}
	return fmt.Sprintf("code execution failed at %s: %v", e.Op, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }

// Runner executes generated code against named tabular contents.
type Runner interface {
	Execute(ctx context.Context, code string, frames map[string][]byte, entryPoint string) (any, error)
}

// PythonRunner shells out to a Python interpreter with pandas available.
type PythonRunner struct {
	pythonPath string
	timeout    time.Duration
}

// NewPythonRunner resolves the interpreter from config or PATH.
func NewPythonRunner(cfg model.ExecutorConfig) (*PythonRunner, error) {
	path := cfg.PythonPath
	if path == "" {
		path = ProbeInterpreter()
	}
	if path == "" {
		return nil, errors.New("no python interpreter found; set PYTHON_PATH")
	}
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &PythonRunner{pythonPath: path, timeout: timeout}, nil
}

// ProbeInterpreter returns the first python3/python found on PATH.
func ProbeInterpreter() string {
	for _, name := range []string{"python3", "python"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	return ""
}

// Execute writes the snippet and frames into a temp work dir, runs the
// harness, and decodes result.json. The same code and frames always produce
// the same work-dir layout, so deterministic snippets yield identical
// results across calls.
func (r *PythonRunner) Execute(ctx context.Context, code string, frames map[string][]byte, entryPoint string) (any, error) {
	workDir, err := os.MkdirTemp("", "flowai_py_*")
	if err != nil {
		return nil, fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	if err := r.stage(workDir, code, frames); err != nil {
		return nil, err
	}

	harnessPath := filepath.Join(workDir, "harness.py")

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	cmd := exec.CommandContext(ctx, r.pythonPath, harnessPath, workDir, entryPoint)
	output, runErr := cmd.CombinedOutput()
	logx.Debug().
		Str("entry_point", entryPoint).
		Int("frames", len(frames)).
		Dur("elapsed", time.Since(start)).
		Msg("Executed generated code")

	if runErr != nil {
		op, detail := classify(string(output))
		return nil, &ExecutionError{
			Op:     op,
			Output: string(output),
			Err:    fmt.Errorf("%s: %w", detail, runErr),
		}
	}

	raw, err := os.ReadFile(filepath.Join(workDir, "result.json"))
	if err != nil {
		return nil, &ExecutionError{Op: OpDecode, Output: string(output), Err: err}
	}
	var result any
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, &ExecutionError{Op: OpDecode, Output: string(output), Err: err}
	}
	return result, nil
}

// stage lays out harness, snippet, frame CSVs and the frames manifest.
func (r *PythonRunner) stage(workDir, code string, frames map[string][]byte) error {
	if err := os.WriteFile(filepath.Join(workDir, "harness.py"), []byte(harnessScript), 0o600); err != nil {
		return fmt.Errorf("write harness: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "snippet.py"), []byte(code), 0o600); err != nil {
		return fmt.Errorf("write snippet: %w", err)
	}

	manifest := make(map[string]string, len(frames))
	i := 0
	for name, content := range frames {
		framePath := filepath.Join(workDir, fmt.Sprintf("frame_%d.csv", i))
		i++
		if err := os.WriteFile(framePath, content, 0o600); err != nil {
			return fmt.Errorf("write frame %q: %w", name, err)
		}
		manifest[name] = framePath
	}
	b, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("marshal frames manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(workDir, "frames.json"), b, 0o600); err != nil {
		return fmt.Errorf("write frames manifest: %w", err)
	}
	return nil
}

// classify maps harness stderr output to a failure stage.
func classify(output string) (op, detail string) {
	idx := strings.Index(output, errorMarker)
	if idx < 0 {
		return OpRun, "python process failed"
	}
	rest := output[idx+len(errorMarker):]
	if end := strings.IndexByte(rest, '\n'); end >= 0 {
		rest = rest[:end]
	}
	op, detail, ok := strings.Cut(rest, ":")
	if !ok || op == "" {
		return OpRun, rest
	}
	return op, detail
}

var _ Runner = (*PythonRunner)(nil)
