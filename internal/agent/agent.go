// Package agent is the entry point of the data-analysis pipeline. It owns the
// run boundary: every call yields a formatted response, and internal failures
// collapse to the canonical error payload instead of reaching the caller.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/Veer19/flow-ai-api/internal/agent/executor"
	"github.com/Veer19/flow-ai-api/internal/agent/graph"
	"github.com/Veer19/flow-ai-api/internal/agent/llm"
	"github.com/Veer19/flow-ai-api/internal/agent/model"
	"github.com/Veer19/flow-ai-api/internal/agent/storage"
	logx "github.com/Veer19/flow-ai-api/pkg/logger"
)

// maxHistoryTurns bounds the conversation context handed to the pipeline.
const maxHistoryTurns = 10

// Config holds agent-level configuration.
type Config struct {
	Gateway  model.GatewayConfig
	Executor model.ExecutorConfig
}

// Agent answers data questions and visualization requests over a project's
// datasets. Safe for concurrent use; each run carries its own state.
type Agent struct {
	pipeline graph.Runner
}

// New builds an agent with production collaborators: the provider gateway,
// the afs-backed content store and a subprocess Python runner.
func New(ctx context.Context, cfg Config) (*Agent, error) {
	runner, err := executor.NewPythonRunner(cfg.Executor)
	if err != nil {
		return nil, err
	}
	return NewWithDeps(ctx, graph.Config{
		Gateway: llm.NewGateway(cfg.Gateway),
		Store:   storage.NewBlobStore(),
		Runner:  runner,
	})
}

// NewWithDeps builds an agent over injected collaborators.
func NewWithDeps(ctx context.Context, cfg graph.Config) (*Agent, error) {
	pipeline, err := graph.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &Agent{pipeline: pipeline}, nil
}

// Analyze runs one query through the pipeline. It never surfaces internal
// failures: any pipeline error is logged and converted to the fixed error
// response, so the caller always gets an answer to show. Cancellation is the
// one exception and propagates as an error.
func (a *Agent) Analyze(ctx context.Context, projectID, query string, datasets []model.DataSource, past []model.Message) (*model.AnalyzeResult, error) {
	start := time.Now()
	st := &model.AgentState{
		ProjectID:    projectID,
		CurrentQuery: query,
		Datasets:     datasets,
		PastMessages: model.RecentTurns(past, maxHistoryTurns),
	}

	out, err := a.pipeline.Invoke(ctx, st)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		logx.Error().
			Err(err).
			Str("project_id", projectID).
			Str("query", query).
			Dur("elapsed", time.Since(start)).
			Msg("Pipeline run failed, returning error response")
		st.Error = err.Error()
		// Nodes mutate the shared state, so whatever code was generated
		// before the failure is still visible here.
		return &model.AnalyzeResult{
			Query:         query,
			Result:        model.ErrorResponse(),
			CodeGenerated: st.GeneratedCode,
		}, nil
	}

	if out.FormattedResponse == nil {
		out.FormattedResponse = model.ErrorResponse()
	}
	logx.Info().
		Str("project_id", projectID).
		Str("intent", string(out.Intent)).
		Str("response_type", string(out.FormattedResponse.Type)).
		Dur("elapsed", time.Since(start)).
		Msg("Pipeline run finished")

	return &model.AnalyzeResult{
		Query:         query,
		Result:        out.FormattedResponse,
		CodeGenerated: out.GeneratedCode,
	}, nil
}
