// Package graph composes the query-answering pipeline as an Eino graph.
//
// One run flows classify -> branch(question | visual | non-data). The
// question branch analyzes, generates code, executes and formats; the visual
// branch additionally produces a demo sample before code generation. Both
// data branches converge on execution and formatting.
package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/Veer19/flow-ai-api/internal/agent/executor"
	"github.com/Veer19/flow-ai-api/internal/agent/graph/nodes"
	"github.com/Veer19/flow-ai-api/internal/agent/graph/observers"
	"github.com/Veer19/flow-ai-api/internal/agent/llm"
	"github.com/Veer19/flow-ai-api/internal/agent/model"
	"github.com/Veer19/flow-ai-api/internal/agent/storage"
	logx "github.com/Veer19/flow-ai-api/pkg/logger"
)

// maxRunSteps bounds one invocation. The longest path (visual branch) visits
// six nodes; the bound leaves headroom without permitting loops.
const maxRunSteps = 12

// Runner executes the compiled pipeline for one query-scoped state.
type Runner interface {
	Invoke(ctx context.Context, st *model.AgentState) (*model.AgentState, error)
}

// Config holds the collaborators needed to compose the pipeline end-to-end.
type Config struct {
	Gateway llm.Invoker
	Store   storage.ContentStore
	Runner  executor.Runner
}

// Builder handles the construction of the pipeline graph.
type Builder struct {
	deps  *nodes.Deps
	graph *compose.Graph[*model.AgentState, *model.AgentState]
}

type graphRunner struct {
	runnable compose.Runnable[*model.AgentState, *model.AgentState]
}

func (r *graphRunner) Invoke(ctx context.Context, st *model.AgentState) (*model.AgentState, error) {
	return r.runnable.Invoke(ctx, st, compose.WithCallbacks(observers.NewAllCallbacks()))
}

// Build validates the config, composes the graph and returns a Runner.
func Build(ctx context.Context, cfg Config) (Runner, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("llm gateway is nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("content store is nil")
	}
	if cfg.Runner == nil {
		return nil, fmt.Errorf("code runner is nil")
	}

	builder := &Builder{
		deps: &nodes.Deps{
			Gateway: cfg.Gateway,
			Store:   cfg.Store,
			Runner:  cfg.Runner,
		},
		graph: compose.NewGraph[*model.AgentState, *model.AgentState](),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}

	if err := builder.addEdges(); err != nil {
		return nil, err
	}

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph.
func (b *Builder) addNodes() error {
	lambdas := []struct {
		name string
		node *compose.Lambda
	}{
		{nodes.NodeClassifyQuery, nodes.NewClassifyQueryNode(b.deps)},
		{nodes.NodeAnalyzeQuestion, nodes.NewAnalyzeQuestionNode(b.deps)},
		{nodes.NodeCreateVisualConcept, nodes.NewCreateVisualConceptNode(b.deps)},
		{nodes.NodeGenerateDemoVisualData, nodes.NewGenerateDemoVisualDataNode(b.deps)},
		{nodes.NodeGenerateCode, nodes.NewGenerateCodeNode(b.deps)},
		{nodes.NodeGenerateVisualCode, nodes.NewGenerateVisualCodeNode(b.deps)},
		{nodes.NodeExecuteCode, nodes.NewExecuteCodeNode(b.deps)},
		{nodes.NodeFormatResponse, nodes.NewFormatResponseNode(b.deps)},
		{nodes.NodeHandleNonDataQuery, nodes.NewHandleNonDataQueryNode(b.deps)},
	}

	for _, l := range lambdas {
		if err := b.graph.AddLambdaNode(l.name, l.node); err != nil {
			logx.Error().Err(err).Str("node", l.name).Msg("Error adding node")
			return fmt.Errorf("error adding node %s: %w", l.name, err)
		}
	}
	return nil
}

// addEdges creates the main flow connections between nodes. Both data
// branches converge on execute_code, which runs when either predecessor
// finishes.
func (b *Builder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeClassifyQuery},
		{nodes.NodeAnalyzeQuestion, nodes.NodeGenerateCode},
		{nodes.NodeCreateVisualConcept, nodes.NodeGenerateDemoVisualData},
		{nodes.NodeGenerateDemoVisualData, nodes.NodeGenerateVisualCode},
		{nodes.NodeGenerateCode, nodes.NodeExecuteCode},
		{nodes.NodeGenerateVisualCode, nodes.NodeExecuteCode},
		{nodes.NodeExecuteCode, nodes.NodeFormatResponse},
		{nodes.NodeFormatResponse, compose.END},
		{nodes.NodeHandleNonDataQuery, compose.END},
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			logx.Error().Err(err).Str("from", edge[0]).Str("to", edge[1]).Msg("Error adding edge")
			return fmt.Errorf("error adding edge %s -> %s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches creates the intent routing branch after classification.
func (b *Builder) addBranches() error {
	intentBranch := compose.NewGraphBranch(
		nodes.NewRouteIntentCondition(),
		map[string]bool{
			nodes.NodeAnalyzeQuestion:     true,
			nodes.NodeCreateVisualConcept: true,
			nodes.NodeHandleNonDataQuery:  true,
		},
	)
	if err := b.graph.AddBranch(nodes.NodeClassifyQuery, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph.
func (b *Builder) compile(ctx context.Context) (Runner, error) {
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxRunSteps))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Pipeline graph compiled successfully")
	return &graphRunner{runnable: runnable}, nil
}
