// Package memory builds bounded conversation context on top of the thread
// repository.
package memory

import (
	"context"
	"strings"

	"github.com/Veer19/flow-ai-api/internal/agent/model"
)

// HistoryManager loads recent thread history for prompting and records the
// turns a run produces.
type HistoryManager struct {
	repo      model.ThreadRepository
	maxTurns  int
	maxTokens int
}

func NewHistoryManager(repo model.ThreadRepository, cfg model.ConversationConfig) *HistoryManager {
	return &HistoryManager{
		repo:      repo,
		maxTurns:  cfg.MaxTurns,
		maxTokens: cfg.MaxTokens,
	}
}

// Recent returns the thread's most recent turns bounded by the configured
// turn count and token budget, oldest first.
func (m *HistoryManager) Recent(ctx context.Context, threadID string) ([]model.Message, error) {
	msgs, err := m.repo.LoadMessages(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return trimBudget(model.RecentTurns(msgs, m.maxTurns), m.maxTokens), nil
}

// RecordUserMessage appends the user's query as a turn.
func (m *HistoryManager) RecordUserMessage(ctx context.Context, threadID, query string) error {
	return m.repo.AppendMessages(ctx, threadID, []model.Message{model.UserMessage(query)})
}

// RecordResponse appends the run's formatted answer as an assistant turn,
// carrying its attachment when present.
func (m *HistoryManager) RecordResponse(ctx context.Context, threadID string, fr *model.FormattedResponse) error {
	return m.repo.AppendMessages(ctx, threadID, []model.Message{model.AssistantMessage(fr)})
}

// trimBudget drops oldest turns until the estimated token count fits. The
// estimate is word count, which overshoots slightly and keeps the prompt
// safely under the budget.
func trimBudget(msgs []model.Message, maxTokens int) []model.Message {
	if maxTokens <= 0 {
		return msgs
	}
	total := 0
	cut := len(msgs)
	for i := len(msgs) - 1; i >= 0; i-- {
		total += len(strings.Fields(msgs[i].Content))
		if total > maxTokens {
			break
		}
		cut = i
	}
	return msgs[cut:]
}
