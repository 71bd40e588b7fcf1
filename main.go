package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/Veer19/flow-ai-api/internal/agent"
	"github.com/Veer19/flow-ai-api/internal/agent/memory"
	"github.com/Veer19/flow-ai-api/internal/agent/model"
	"github.com/Veer19/flow-ai-api/internal/agent/repo"
	logx "github.com/Veer19/flow-ai-api/pkg/logger"
	pkgredis "github.com/Veer19/flow-ai-api/pkg/redis"
)

// AppConfig defines all configurable parameters for the agent example,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	// Infrastructure
	Redis pkgredis.Config

	// Agent configs
	Gateway      model.GatewayConfig
	Executor     model.ExecutorConfig
	Conversation model.ConversationConfig
}

const sampleCSV = `order_id,region,product,units,revenue
1001,North,Widget,12,360.00
1002,South,Widget,7,210.00
1003,North,Gadget,3,450.00
1004,East,Widget,20,600.00
1005,South,Gadget,5,750.00
1006,East,Gadget,9,1350.00
`

func main() {
	fmt.Println("Testing data-analysis agent pipeline...")
	ctx := context.Background()
	// Load .env file
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Could not load .env file: %v", err)
	}

	// Load structured config from env
	var envCfg AppConfig
	if err := envconfig.Process("", &envCfg); err != nil {
		log.Fatalf("Failed to process environment config: %v", err)
	}

	logx.Init()

	rdb, err := envCfg.Redis.New()
	if err != nil {
		log.Fatalf("Failed to initialise Redis client: %v", err)
	}
	defer rdb.Close()

	fmt.Println("Connected to Redis successfully")

	// ====================================================
	ttl, err := time.ParseDuration(envCfg.Conversation.TTL)
	if err != nil {
		log.Fatalf("Invalid CONVERSATION_TTL '%s': %v", envCfg.Conversation.TTL, err)
	}

	threads := repo.NewRedisThreadRepository(rdb, ttl)
	history := memory.NewHistoryManager(threads, envCfg.Conversation)

	ag, err := agent.New(ctx, agent.Config{
		Gateway:  envCfg.Gateway,
		Executor: envCfg.Executor,
	})
	if err != nil {
		log.Fatalf("Failed to build agent: %v", err)
	}

	datasets, cleanup, err := stageSampleDatasets()
	if err != nil {
		log.Fatalf("Failed to stage sample datasets: %v", err)
	}
	defer cleanup()

	testQueries := []struct {
		description string
		query       string
	}{
		{
			description: "Initial greeting",
			query:       "Hi there!",
		},
		{
			description: "Data question over the sales dataset",
			query:       "What is the total revenue per region?",
		},
		{
			description: "Visualization request",
			query:       "Show me a bar chart of units sold by product",
		},
		{
			description: "Follow-up with thanks",
			query:       "Thanks, that's exactly what I needed",
		},
	}

	projectID := "demo-project"
	threadID := repo.NewThreadID()

	for i, test := range testQueries {
		fmt.Printf("\nTest %d: %s\n", i+1, test.description)
		fmt.Printf("Query: %q\n", test.query)
		fmt.Println("Processing...")

		past, err := history.Recent(ctx, threadID)
		if err != nil {
			log.Fatalf("Failed to load history for test %d: %v", i+1, err)
		}
		if err := history.RecordUserMessage(ctx, threadID, test.query); err != nil {
			log.Fatalf("Failed to record user message for test %d: %v", i+1, err)
		}

		result, err := ag.Analyze(ctx, projectID, test.query, datasets, past)
		if err != nil {
			log.Fatalf("Failed to analyze query for test %d: %v", i+1, err)
		}
		if err := history.RecordResponse(ctx, threadID, result.Result); err != nil {
			log.Fatalf("Failed to record response for test %d: %v", i+1, err)
		}

		fmt.Printf("Response %d [%s]: %s\n", i+1, result.Result.Type, result.Result.Message)
		if result.Result.Data != nil {
			if b, err := json.MarshalIndent(result.Result.Data, "", "  "); err == nil {
				fmt.Printf("Data: %s\n", string(b))
			}
		}
		fmt.Println("------------------------------------------------")

		// slight delay between tests for readability
		time.Sleep(500 * time.Millisecond)
	}

	fmt.Println("All pipeline tests completed successfully!")
}

// stageSampleDatasets writes the demo CSV to a temp dir and describes it the
// way project datasets are described in production.
func stageSampleDatasets() ([]model.DataSource, func(), error) {
	dir, err := os.MkdirTemp("", "flowai_demo_*")
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { os.RemoveAll(dir) }

	path := filepath.Join(dir, "sales.csv")
	if err := os.WriteFile(path, []byte(sampleCSV), 0o600); err != nil {
		cleanup()
		return nil, nil, err
	}

	now := time.Now().UTC()
	datasets := []model.DataSource{
		{
			ID:        "ds-sales-001",
			ProjectID: "demo-project",
			Type:      "csv",
			Filename:  "sales.csv",
			BlobPath:  "file://" + path,
			Size:      int64(len(sampleCSV)),
			Rows:      6,
			Columns:   5,
			SampleData: []map[string]any{
				{"order_id": 1001, "region": "North", "product": "Widget", "units": 12, "revenue": 360.00},
			},
			ColumnMetadata: []model.ColumnMetadata{
				{Name: "order_id", Type: "integer"},
				{Name: "region", Type: "string"},
				{Name: "product", Type: "string"},
				{Name: "units", Type: "integer"},
				{Name: "revenue", Type: "float"},
			},
			Status:        model.DatasetStatusReady,
			CreatedAt:     now,
			LastUpdatedAt: now,
		},
	}
	return datasets, cleanup, nil
}
