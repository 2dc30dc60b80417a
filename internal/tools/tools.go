// Package tools implements the tutor's tool surface: generate_exercise,
// web_search, file_system and end_inquiry. Every execution returns a
// structured Result the model can read back; failures are data, never panics.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mentorkit/mentor/internal/session"
)

// Tool names.
const (
	NameGenerateExercise = "generate_exercise"
	NameWebSearch        = "web_search"
	NameFileSystem       = "file_system"
	NameEndInquiry       = "end_inquiry"
)

// Result is a tool outcome serialized back to the model as the tool message.
// Error carries what went wrong, Hint how to fix the call.
type Result struct {
	Success         bool              `json:"success,omitempty"`
	Error           string            `json:"error,omitempty"`
	Hint            string            `json:"hint,omitempty"`
	Message         string            `json:"message,omitempty"`
	Content         string            `json:"content,omitempty"`
	ExerciseID      string            `json:"exercise_id,omitempty"`
	Exercise        *session.Exercise `json:"exercise,omitempty"`
	Results         []SearchResult    `json:"results,omitempty"`
	Summary         string            `json:"summary,omitempty"`
	InquiryComplete bool              `json:"inquiry_complete,omitempty"`
}

// JSON renders the result for the tool message content.
func (r Result) JSON() string {
	b, err := json.Marshal(r)
	if err != nil {
		return `{"error": "result serialization failed"}`
	}
	return string(b)
}

func errResult(err, hint string) Result {
	return Result{Error: err, Hint: hint}
}

// Executor dispatches tool calls against a session's workspace.
type Executor struct {
	store  *session.FileStore
	search Provider // nil when search is not configured
}

func NewExecutor(store *session.FileStore, search Provider) *Executor {
	return &Executor{store: store, search: search}
}

// Execute runs the named tool with raw JSON arguments. It never panics and
// never returns a Go error: every failure mode is a Result the model can act
// on.
func (e *Executor) Execute(ctx context.Context, name, rawArgs string, sess *session.Session) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("tool panicked", "tool", name, "panic", r)
			result = errResult(fmt.Sprintf("tool %s failed: %v", name, r), "")
		}
	}()

	var params map[string]any
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &params); err != nil {
			return errResult("invalid tool arguments: "+err.Error(), "arguments must be a JSON object")
		}
	}
	if params == nil {
		params = map[string]any{}
	}

	slog.Info("executing tool", "tool", name, "session", sess.ID)

	switch name {
	case NameGenerateExercise:
		return e.generateExercise(params, sess)
	case NameWebSearch:
		return e.webSearch(ctx, params)
	case NameFileSystem:
		return e.fileSystem(params, sess)
	case NameEndInquiry:
		return e.endInquiry(params)
	default:
		return errResult(fmt.Sprintf("unknown tool: %s", name), "")
	}
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)
	return s
}

func stringSliceParam(params map[string]any, key string) []string {
	raw, ok := params[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		out = append(out, fmt.Sprint(v))
	}
	return out
}

func intParam(params map[string]any, key string, fallback int) int {
	if f, ok := params[key].(float64); ok {
		return int(f)
	}
	return fallback
}
