package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorkit/mentor/internal/session"
)

const (
	// CompressionFailedSentinel is stored as the compressed context when the
	// summary request fails. It still counts as a performed compression, so
	// compression stays one-shot per session.
	CompressionFailedSentinel = "[Context compression failed - using recent messages only]"

	compressionTemperature = 0.3
	compressionMaxTokens   = 2000
	compressionRecentMsgs  = 10
	compressionMsgChars    = 500
)

// compressContext asks the model for a one-shot summary of the session.
// Failures never propagate: the sentinel is returned instead so the teaching
// turn finishes normally.
func compressContext(ctx context.Context, gw ChatGateway, messages []session.Message, studyPlan, agentState string) string {
	var prompt strings.Builder
	prompt.WriteString(`[SYSTEM] Context compression required.
Create a concise summary of the learning session preserving:
- Key concepts taught so far
- Student's weak points and common mistakes
- Current topic progress (% of study_plan completed)
- Any pending exercises or unresolved questions

Format: Structured markdown with clear headings.

[STUDY_PLAN]
`)
	prompt.WriteString(studyPlan)
	prompt.WriteString("\n\n[AGENT_STATE]\n")
	prompt.WriteString(agentState)
	prompt.WriteString("\n\n[CONVERSATION_HISTORY]\n")

	recent := messages
	if len(recent) > compressionRecentMsgs {
		recent = recent[len(recent)-compressionRecentMsgs:]
	}
	for _, msg := range recent {
		prompt.WriteString(fmt.Sprintf("\n%s: %s", msg.Role, truncate(msg.Content, compressionMsgChars)))
	}

	summary, err := gw.Complete(ctx,
		[]*schema.Message{
			schema.SystemMessage("You are a context compression assistant."),
			schema.UserMessage(prompt.String()),
		},
		model.WithTemperature(compressionTemperature),
		model.WithMaxTokens(compressionMaxTokens),
	)
	if err != nil {
		slog.Error("context compression failed", "error", err)
		return CompressionFailedSentinel
	}
	return summary
}

// truncate limits s to max characters, never splitting a rune.
func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	return string([]rune(s)[:max])
}
