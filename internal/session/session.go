// Package session provides session state and durable storage for Mentor.
package session

import (
	"time"

	"github.com/cloudwego/eino/schema"
)

// Phase is the lifecycle state of a session. Transitions are monotonic:
// init → inquiry → teaching. Teaching is the steady state; there is no
// terminal phase.
type Phase string

const (
	PhaseInit     Phase = "init"
	PhaseInquiry  Phase = "inquiry"
	PhaseTeaching Phase = "teaching"
)

// charsPerToken is the fixed approximation ratio used for token accounting.
// A real tokenizer is deliberately out of scope.
const charsPerToken = 4

// ToolCall describes a tool invocation emitted by the assistant.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single turn in a conversation. The log is append-only; it is
// never mutated in place, only summarized via context compression.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Ts         time.Time  `json:"ts"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToSchemaMessage converts a session Message to an Eino schema.Message.
func (m Message) ToSchemaMessage() *schema.Message {
	out := &schema.Message{
		Role:       schema.RoleType(m.Role),
		Content:    m.Content,
		ToolCallID: m.ToolCallID,
	}
	for _, tc := range m.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, schema.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: schema.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.Arguments,
			},
		})
	}
	return out
}

// NewMessage creates a timestamped message.
func NewMessage(role, content string) Message {
	return Message{Role: role, Content: content, Ts: time.Now()}
}

// Session holds one learner's conversation and its storage scope.
type Session struct {
	ID                string    `json:"id"`
	Theme             string    `json:"theme"`
	CreatedAt         time.Time `json:"created_at"`
	Path              string    `json:"path"`
	Phase             Phase     `json:"current_phase"`
	TokenCount        int       `json:"token_count"`
	TokenThreshold    int       `json:"token_threshold"`
	Messages          []Message `json:"-"`
	CompressedContext string    `json:"compressed_context,omitempty"`
}

// Append adds messages to the end of the log.
func (s *Session) Append(msgs ...Message) {
	s.Messages = append(s.Messages, msgs...)
}

// RecomputeTokens recalculates the approximate cumulative token count from
// the message log and stores it on the session. The computation is a pure
// function of the log, so repeated calls without new messages are idempotent.
func (s *Session) RecomputeTokens() int {
	s.TokenCount = EstimateTokens(s.Messages)
	return s.TokenCount
}

// NeedsCompression reports whether the token budget has been exceeded and no
// compressed summary exists yet. Once a summary is present the condition is
// permanently false; compression fires at most once per session lifetime.
func (s *Session) NeedsCompression() bool {
	return s.TokenCount > s.TokenThreshold && s.CompressedContext == ""
}

// EstimateTokens returns the approximate token count for a message log.
func EstimateTokens(messages []Message) int {
	total := 0
	for _, m := range messages {
		total += len(m.Content) / charsPerToken
	}
	return total
}

// SchemaMessages converts a message slice for a model request.
func SchemaMessages(messages []Message) []*schema.Message {
	out := make([]*schema.Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, m.ToSchemaMessage())
	}
	return out
}
