// Package orchestrator drives a tutoring session through its phases:
// needs inquiry, plan generation, teaching. Each streamed turn yields an
// ordered event channel; tool calls are intercepted from the stream and
// executed after it drains, one per turn.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/mentorkit/mentor/internal/events"
	"github.com/mentorkit/mentor/internal/gateway"
	"github.com/mentorkit/mentor/internal/prompts"
	"github.com/mentorkit/mentor/internal/session"
	"github.com/mentorkit/mentor/internal/tools"
)

const (
	planSummaryChars = 200
	recentMsgLimit   = 10
	recentMsgChars   = 500
	fileTreeLimit    = 20

	// Shown when end_inquiry arguments never materialize; the phase still
	// completes.
	fallbackInquirySummary = "Enough information about the student's needs has been collected."
)

// ChatGateway is the model surface the orchestrator drives.
type ChatGateway interface {
	StreamChat(ctx context.Context, messages []*schema.Message, tools []*schema.ToolInfo) (<-chan gateway.StreamEvent, error)
	Complete(ctx context.Context, messages []*schema.Message, opts ...model.Option) (string, error)
}

// Orchestrator owns the phase state machine for all sessions.
type Orchestrator struct {
	repo          session.Repository
	gw            ChatGateway
	exec          *tools.Executor
	prompts       *prompts.Store
	bus           *events.Bus
	contextWindow int
}

func New(repo session.Repository, gw ChatGateway, exec *tools.Executor, store *prompts.Store, bus *events.Bus, contextWindow int) *Orchestrator {
	return &Orchestrator{
		repo:          repo,
		gw:            gw,
		exec:          exec,
		prompts:       store,
		bus:           bus,
		contextWindow: contextWindow,
	}
}

// InquiryCompletePhrase is the canned closing line of the inquiry phase.
func (o *Orchestrator) InquiryCompletePhrase() string {
	return o.prompts.EndPhrase("inquiry_complete")
}

// TeachingWelcome is the canned opening line of the teaching phase.
func (o *Orchestrator) TeachingWelcome() string {
	return o.prompts.EndPhrase("teaching_welcome")
}

// RunInquiryTurn streams one needs-inquiry exchange. Only end_inquiry is
// available to the model; inquiry turns are not persisted, the caller carries
// the history. The returned channel closes after the final Done (or Error)
// event.
func (o *Orchestrator) RunInquiryTurn(ctx context.Context, sessionID, userInput string, history []session.Message) (<-chan Event, error) {
	sess, err := o.repo.Get(sessionID)
	if err != nil {
		return nil, err
	}

	messages := []*schema.Message{schema.SystemMessage(o.prompts.InquiryPrompt(userInput))}
	messages = append(messages, session.SchemaMessages(history)...)
	messages = append(messages, schema.UserMessage(userInput))

	stream, err := o.gw.StreamChat(ctx, messages, tools.InquiryToolInfos())
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		turnID := uuid.NewString()

		done, ok := o.forward(ctx, stream, sess.ID, turnID, out)
		if !ok {
			return
		}

		if tc, found := pickToolCall(done.ToolCalls, tools.NameEndInquiry); found {
			o.emit(out, sess.ID, Event{Kind: KindToolStarted, TurnID: turnID, Tool: tc.Name})
			result := o.exec.Execute(ctx, tc.Name, tc.Arguments, sess)
			summary := result.Summary
			if result.Error != "" || !result.InquiryComplete {
				summary = fallbackInquirySummary
			}
			o.emit(out, sess.ID, Event{Kind: KindInquiryComplete, TurnID: turnID, Summary: summary})
		} else if contains(done.Incomplete, tools.NameEndInquiry) {
			// The model tried to end the phase but the arguments never
			// parsed. Complete anyway.
			o.emit(out, sess.ID, Event{Kind: KindInquiryComplete, TurnID: turnID, Summary: fallbackInquirySummary})
		}

		o.emit(out, sess.ID, Event{Kind: KindDone, TurnID: turnID, FullResponse: done.Content})
	}()

	return out, nil
}

// GeneratePlan produces the study plan from the inquiry history, persists it
// and advances the session to the teaching phase. Phases only move forward:
// regenerating a plan never resets a teaching session.
func (o *Orchestrator) GeneratePlan(ctx context.Context, sessionID string, history []session.Message) (string, error) {
	sess, err := o.repo.Get(sessionID)
	if err != nil {
		return "", err
	}

	var summary strings.Builder
	for _, msg := range history {
		summary.WriteString(fmt.Sprintf("\n%s: %s", msg.Role, truncate(msg.Content, planSummaryChars)))
	}

	plan, err := o.gw.Complete(ctx, []*schema.Message{
		schema.SystemMessage(o.prompts.PlanPrompt(summary.String())),
	})
	if err != nil {
		return "", fmt.Errorf("generate plan: %w", err)
	}

	if err := o.repo.Store().SaveStudyPlan(sess.ID, plan); err != nil {
		return "", fmt.Errorf("save plan: %w", err)
	}

	sess.Phase = session.PhaseTeaching
	if err := o.repo.Save(sess); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}

	o.publish(events.EventPlanGenerated, sess.ID, map[string]any{"length": len(plan)})
	return plan, nil
}

// RunTeachingTurn streams one teaching exchange. At most one tool call is
// executed per turn (the first that materializes); the conversation is
// persisted after the stream drains, then token usage is recomputed and the
// one-shot context compression runs when the budget is exceeded.
func (o *Orchestrator) RunTeachingTurn(ctx context.Context, sessionID, userInput string) (<-chan Event, error) {
	sess, err := o.repo.Get(sessionID)
	if err != nil {
		return nil, err
	}

	store := o.repo.Store()
	studyPlan := store.StudyPlan(sess.ID)
	agentState := store.Profile(sess.ID)

	systemPrompt := o.prompts.TeachingPrompt(map[string]string{
		"max_context":      fmt.Sprintf("%d", o.contextWindow/1000),
		"token_count":      fmt.Sprintf("%d", sess.TokenCount),
		"token_threshold":  fmt.Sprintf("%d", sess.TokenThreshold),
		"study_plan":       studyPlan,
		"agent_state":      agentState,
		"lesson_context":   lessonContext(sess),
		"recent_exchanges": recentExchanges(sess.Messages),
		"file_tree":        fileTreeListing(store, sess.ID),
	})

	messages := []*schema.Message{schema.SystemMessage(systemPrompt)}
	messages = append(messages, session.SchemaMessages(sess.Messages)...)
	messages = append(messages, schema.UserMessage(userInput))

	stream, err := o.gw.StreamChat(ctx, messages, tools.TeachingToolInfos())
	if err != nil {
		return nil, err
	}

	out := make(chan Event)
	go func() {
		defer close(out)
		turnID := uuid.NewString()

		done, ok := o.forward(ctx, stream, sess.ID, turnID, out)
		if !ok {
			return
		}

		sess.Append(session.NewMessage("user", userInput))

		switch {
		case len(done.ToolCalls) > 0:
			tc := done.ToolCalls[0]
			o.emit(out, sess.ID, Event{Kind: KindToolStarted, TurnID: turnID, Tool: tc.Name})

			result := o.exec.Execute(ctx, tc.Name, tc.Arguments, sess)

			assistant := session.NewMessage("assistant", done.Content)
			assistant.ToolCalls = []session.ToolCall{tc}
			toolMsg := session.NewMessage("tool", result.JSON())
			toolMsg.ToolCallID = tc.ID
			sess.Append(assistant, toolMsg)

			o.emit(out, sess.ID, Event{Kind: KindToolCompleted, TurnID: turnID, Tool: tc.Name, Result: &result})
			if result.Exercise != nil {
				o.emit(out, sess.ID, Event{Kind: KindExercise, TurnID: turnID, Exercise: result.Exercise})
			}

		case len(done.Incomplete) > 0:
			name := done.Incomplete[0]
			result := tools.Result{
				Error: "tool call arguments were incomplete at stream end",
				Hint:  "the call was not executed",
			}
			o.emit(out, sess.ID, Event{Kind: KindToolCompleted, TurnID: turnID, Tool: name, Result: &result})
			sess.Append(session.NewMessage("assistant", done.Content))

		default:
			sess.Append(session.NewMessage("assistant", done.Content))
		}

		sess.RecomputeTokens()

		if sess.NeedsCompression() {
			o.emit(out, sess.ID, Event{Kind: KindStatus, TurnID: turnID, Status: StatusCompressing})
			sess.CompressedContext = compressContext(ctx, o.gw, sess.Messages, studyPlan, agentState)
			o.emit(out, sess.ID, Event{Kind: KindStatus, TurnID: turnID, Status: StatusCompressed})
		}

		if err := o.repo.Save(sess); err != nil {
			slog.Error("save session after turn", "session", sess.ID, "error", err)
		}

		o.emit(out, sess.ID, Event{
			Kind:         KindDone,
			TurnID:       turnID,
			TokenCount:   sess.TokenCount,
			FullResponse: done.Content,
		})
	}()

	return out, nil
}

// forward relays content deltas until the stream finishes. Returns false when
// the stream failed (the error event has already been emitted).
func (o *Orchestrator) forward(ctx context.Context, stream <-chan gateway.StreamEvent, sessionID, turnID string, out chan<- Event) (*gateway.StreamDone, bool) {
	for ev := range stream {
		switch {
		case ev.Err != nil:
			o.emit(out, sessionID, Event{Kind: KindError, TurnID: turnID, Err: ev.Err})
			return nil, false
		case ev.Done != nil:
			return ev.Done, true
		case ev.Delta != "":
			select {
			case out <- Event{Kind: KindContent, TurnID: turnID, Content: ev.Delta}:
				o.publish(events.EventTurnDelta, sessionID, map[string]any{"content": ev.Delta})
			case <-ctx.Done():
				return nil, false
			}
		}
	}
	o.emit(out, sessionID, Event{Kind: KindError, TurnID: turnID, Err: fmt.Errorf("stream ended unexpectedly")})
	return nil, false
}

func (o *Orchestrator) emit(out chan<- Event, sessionID string, ev Event) {
	out <- ev
	o.mirror(sessionID, ev)
}

// mirror republishes turn events on the observer bus.
func (o *Orchestrator) mirror(sessionID string, ev Event) {
	switch ev.Kind {
	case KindToolStarted:
		o.publish(events.EventToolStarted, sessionID, map[string]any{"tool": ev.Tool})
	case KindToolCompleted:
		payload := map[string]any{"tool": ev.Tool}
		if ev.Result != nil && ev.Result.Error != "" {
			payload["error"] = ev.Result.Error
		}
		o.publish(events.EventToolCompleted, sessionID, payload)
	case KindStatus:
		o.publish(events.EventStatus, sessionID, map[string]any{"status": ev.Status})
	case KindInquiryComplete:
		o.publish(events.EventInquiryComplete, sessionID, map[string]any{"summary": ev.Summary})
	case KindError:
		o.publish(events.EventTurnError, sessionID, map[string]any{"error": ev.Err.Error()})
	case KindDone:
		o.publish(events.EventTurnDone, sessionID, map[string]any{"token_count": ev.TokenCount})
	}
}

func (o *Orchestrator) publish(t events.EventType, sessionID string, payload map[string]any) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.NewEvent(t, sessionID, payload))
}

func lessonContext(sess *session.Session) string {
	if sess.CompressedContext == "" {
		return ""
	}
	return "[LESSON_CONTEXT - Compressed]\n" + sess.CompressedContext
}

func recentExchanges(messages []session.Message) string {
	recent := messages
	if len(recent) > recentMsgLimit {
		recent = recent[len(recent)-recentMsgLimit:]
	}
	lines := make([]string, 0, len(recent))
	for _, msg := range recent {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, truncate(msg.Content, recentMsgChars)))
	}
	return strings.Join(lines, "\n")
}

func fileTreeListing(store *session.FileStore, id string) string {
	entries, err := store.FileTree(id, fileTreeLimit)
	if err != nil {
		return ""
	}
	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		paths = append(paths, entry.Path)
	}
	return strings.Join(paths, "\n")
}

func pickToolCall(calls []session.ToolCall, name string) (session.ToolCall, bool) {
	for _, tc := range calls {
		if tc.Name == name {
			return tc, true
		}
	}
	return session.ToolCall{}, false
}

func contains(names []string, name string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}
