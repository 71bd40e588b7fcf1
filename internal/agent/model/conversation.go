package model

import (
	"context"
	"strings"
	"time"
)

// Roles of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ThreadStatusOpen is the lifecycle status of an active thread.
const ThreadStatusOpen = "OPEN"

// Attachment is a typed payload attached to an assistant turn.
type Attachment struct {
	Type       AttachmentType `json:"type"`
	Attachment any            `json:"attachment"`
}

// Message is one conversation turn. Immutable once created; threads are
// append-only.
type Message struct {
	Role        string       `json:"role"`
	Content     string       `json:"content"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Thread is an ordered conversation between a user and the agent.
type Thread struct {
	ThreadID      string    `json:"thread_id"`
	ProjectID     string    `json:"project_id"`
	Status        string    `json:"status"`
	Messages      []Message `json:"messages"`
	CreatedAt     time.Time `json:"createdAt"`
	LastUpdatedAt time.Time `json:"lastUpdatedAt"`
}

// ThreadRepository persists conversation turns per thread.
type ThreadRepository interface {
	// AppendMessages appends turns to the thread, creating it when absent.
	AppendMessages(ctx context.Context, threadID string, messages []Message) error

	// LoadMessages returns every turn of the thread, oldest first.
	LoadMessages(ctx context.Context, threadID string) ([]Message, error)

	// MessageCount returns the number of turns in the thread.
	MessageCount(ctx context.Context, threadID string) (int, error)

	// ClearThread removes the thread's history.
	ClearThread(ctx context.Context, threadID string) error
}

// UserMessage builds a user turn stamped with the current time.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content, Timestamp: time.Now().UTC()}
}

// AssistantMessage builds an assistant turn from a formatted response,
// lifting its attach/data pair into attachments.
func AssistantMessage(fr *FormattedResponse) Message {
	msg := Message{Role: RoleAssistant, Timestamp: time.Now().UTC()}
	if fr == nil {
		return msg
	}
	msg.Content = fr.Message
	if fr.Attach != nil && fr.Data != nil {
		msg.Attachments = append(msg.Attachments, Attachment{
			Type:       *fr.Attach,
			Attachment: fr.Data,
		})
	}
	return msg
}

// RecentTurns returns the most recent max turns, oldest first.
func RecentTurns(messages []Message, max int) []Message {
	if max <= 0 || len(messages) <= max {
		return messages
	}
	return messages[len(messages)-max:]
}

// Transcript renders turns as a plain role-prefixed transcript for prompts.
func Transcript(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		if m.Content == "" {
			continue
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
