package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mentorkit/mentor/internal/gateway"
	"github.com/mentorkit/mentor/internal/prompts"
	"github.com/mentorkit/mentor/internal/session"
	"github.com/mentorkit/mentor/internal/tools"
)

type fakeGateway struct {
	deltas      []string
	done        gateway.StreamDone
	streamErr   error
	completeOut string
	completeErr error

	completeMsgs []*schema.Message
}

func (f *fakeGateway) StreamChat(_ context.Context, _ []*schema.Message, _ []*schema.ToolInfo) (<-chan gateway.StreamEvent, error) {
	ch := make(chan gateway.StreamEvent, len(f.deltas)+1)
	go func() {
		defer close(ch)
		for _, d := range f.deltas {
			ch <- gateway.StreamEvent{Delta: d}
		}
		if f.streamErr != nil {
			ch <- gateway.StreamEvent{Err: f.streamErr}
			return
		}
		done := f.done
		ch <- gateway.StreamEvent{Done: &done}
	}()
	return ch, nil
}

func (f *fakeGateway) Complete(_ context.Context, messages []*schema.Message, _ ...model.Option) (string, error) {
	f.completeMsgs = messages
	return f.completeOut, f.completeErr
}

func newOrchestrator(t *testing.T, gw ChatGateway, budget int) (*Orchestrator, *session.Session) {
	t.Helper()

	store, err := session.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	repo := session.NewRepository(store, func() int { return budget })

	sess, err := repo.Create("Graph Theory")
	if err != nil {
		t.Fatal(err)
	}

	promptStore, err := prompts.Load("")
	if err != nil {
		t.Fatal(err)
	}

	exec := tools.NewExecutor(store, nil)
	return New(repo, gw, exec, promptStore, nil, 128000), sess
}

func collect(t *testing.T, ch <-chan Event) []Event {
	t.Helper()
	var out []Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func kinds(evs []Event) []EventKind {
	out := make([]EventKind, len(evs))
	for i, ev := range evs {
		out[i] = ev.Kind
	}
	return out
}

func find(evs []Event, kind EventKind) (Event, bool) {
	for _, ev := range evs {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return Event{}, false
}

func TestInquiryTurnStreamsContent(t *testing.T) {
	gw := &fakeGateway{
		deltas: []string{"What do ", "you want to learn?"},
		done:   gateway.StreamDone{Content: "What do you want to learn?"},
	}
	o, sess := newOrchestrator(t, gw, 1000)

	ch, err := o.RunInquiryTurn(context.Background(), sess.ID, "hi", nil)
	if err != nil {
		t.Fatalf("RunInquiryTurn: %v", err)
	}
	evs := collect(t, ch)

	if evs[0].Kind != KindContent || evs[1].Kind != KindContent {
		t.Errorf("kinds = %v, want two content deltas first", kinds(evs))
	}
	done, ok := find(evs, KindDone)
	if !ok || done.FullResponse != "What do you want to learn?" {
		t.Errorf("done = %+v", done)
	}
	if _, ok := find(evs, KindInquiryComplete); ok {
		t.Error("no inquiry-complete without an end_inquiry call")
	}
}

func TestInquiryTurnEndInquiry(t *testing.T) {
	gw := &fakeGateway{
		done: gateway.StreamDone{ToolCalls: []session.ToolCall{
			{ID: "c1", Name: tools.NameEndInquiry, Arguments: `{"summary": "beginner, wants graphs"}`},
		}},
	}
	o, sess := newOrchestrator(t, gw, 1000)

	ch, err := o.RunInquiryTurn(context.Background(), sess.ID, "5 hours a week", nil)
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, ch)

	if _, ok := find(evs, KindToolStarted); !ok {
		t.Error("expected a tool-started event")
	}
	complete, ok := find(evs, KindInquiryComplete)
	if !ok || complete.Summary != "beginner, wants graphs" {
		t.Errorf("inquiry complete = %+v", complete)
	}
	if _, ok := find(evs, KindDone); !ok {
		t.Error("expected a done event")
	}
}

func TestInquiryTurnFallbackSummary(t *testing.T) {
	gw := &fakeGateway{
		done: gateway.StreamDone{Incomplete: []string{tools.NameEndInquiry}},
	}
	o, sess := newOrchestrator(t, gw, 1000)

	ch, err := o.RunInquiryTurn(context.Background(), sess.ID, "ok", nil)
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, ch)

	complete, ok := find(evs, KindInquiryComplete)
	if !ok || complete.Summary != fallbackInquirySummary {
		t.Errorf("inquiry complete = %+v, want fallback summary", complete)
	}
}

func TestGeneratePlanAdvancesPhase(t *testing.T) {
	gw := &fakeGateway{completeOut: "# Study Plan\nWeek 1: basics"}
	o, sess := newOrchestrator(t, gw, 1000)

	history := []session.Message{
		session.NewMessage("user", strings.Repeat("x", 300)),
		session.NewMessage("assistant", "How much time per week?"),
	}

	plan, err := o.GeneratePlan(context.Background(), sess.ID, history)
	if err != nil {
		t.Fatalf("GeneratePlan: %v", err)
	}
	if plan != "# Study Plan\nWeek 1: basics" {
		t.Errorf("plan = %q", plan)
	}

	// Long history messages are truncated in the summary.
	prompt := gw.completeMsgs[0].Content
	if strings.Contains(prompt, strings.Repeat("x", 201)) {
		t.Error("history message was not truncated to 200 chars")
	}

	reloaded, err := o.repo.Get(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if reloaded.Phase != session.PhaseTeaching {
		t.Errorf("phase = %q, want teaching", reloaded.Phase)
	}
	if got := o.repo.Store().StudyPlan(sess.ID); got != plan {
		t.Errorf("stored plan = %q", got)
	}

	// Regenerating keeps the session in teaching.
	if _, err := o.GeneratePlan(context.Background(), sess.ID, history); err != nil {
		t.Fatal(err)
	}
	reloaded, _ = o.repo.Get(sess.ID)
	if reloaded.Phase != session.PhaseTeaching {
		t.Errorf("phase regressed to %q", reloaded.Phase)
	}
}

func TestGeneratePlanModelFailure(t *testing.T) {
	gw := &fakeGateway{completeErr: errors.New("timeout")}
	o, sess := newOrchestrator(t, gw, 1000)

	if _, err := o.GeneratePlan(context.Background(), sess.ID, nil); err == nil {
		t.Fatal("expected error")
	}
	reloaded, _ := o.repo.Get(sess.ID)
	if reloaded.Phase == session.PhaseTeaching {
		t.Error("failed plan generation must not advance the phase")
	}
}

func TestTeachingTurnPersistsMessages(t *testing.T) {
	gw := &fakeGateway{
		deltas: []string{"Let's start ", "with nodes."},
		done:   gateway.StreamDone{Content: "Let's start with nodes."},
	}
	o, sess := newOrchestrator(t, gw, 100000)

	ch, err := o.RunTeachingTurn(context.Background(), sess.ID, "teach me graphs")
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, ch)

	done, ok := find(evs, KindDone)
	if !ok || done.TokenCount == 0 {
		t.Errorf("done = %+v", done)
	}

	reloaded, err := o.repo.Get(sess.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(reloaded.Messages) != 2 {
		t.Fatalf("messages = %d, want user + assistant", len(reloaded.Messages))
	}
	if reloaded.Messages[0].Role != "user" || reloaded.Messages[1].Content != "Let's start with nodes." {
		t.Errorf("messages = %+v", reloaded.Messages)
	}
	if reloaded.TokenCount != done.TokenCount {
		t.Errorf("persisted token count %d != done %d", reloaded.TokenCount, done.TokenCount)
	}
}

func TestTeachingTurnToolCall(t *testing.T) {
	gw := &fakeGateway{
		done: gateway.StreamDone{
			Content: "Saving your notes.",
			ToolCalls: []session.ToolCall{{
				ID:        "c1",
				Name:      tools.NameFileSystem,
				Arguments: `{"action": "write", "path": "notes/intro.md", "content": "graphs"}`,
			}},
		},
	}
	o, sess := newOrchestrator(t, gw, 100000)

	ch, err := o.RunTeachingTurn(context.Background(), sess.ID, "save a note")
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, ch)

	started, ok := find(evs, KindToolStarted)
	if !ok || started.Tool != tools.NameFileSystem {
		t.Errorf("tool started = %+v", started)
	}
	completed, ok := find(evs, KindToolCompleted)
	if !ok || completed.Result == nil || !completed.Result.Success {
		t.Errorf("tool completed = %+v", completed)
	}

	reloaded, _ := o.repo.Get(sess.ID)
	if len(reloaded.Messages) != 3 {
		t.Fatalf("messages = %d, want user + assistant + tool", len(reloaded.Messages))
	}
	assistant := reloaded.Messages[1]
	if len(assistant.ToolCalls) != 1 || assistant.ToolCalls[0].Name != tools.NameFileSystem {
		t.Errorf("assistant message = %+v", assistant)
	}
	toolMsg := reloaded.Messages[2]
	if toolMsg.Role != "tool" || toolMsg.ToolCallID != "c1" {
		t.Errorf("tool message = %+v", toolMsg)
	}
}

func TestTeachingTurnExerciseEvent(t *testing.T) {
	gw := &fakeGateway{
		done: gateway.StreamDone{
			ToolCalls: []session.ToolCall{{
				ID:        "c1",
				Name:      tools.NameGenerateExercise,
				Arguments: `{"question": "2+2?", "type": "choice", "options": ["3", "4"], "correct_answers": ["4"]}`,
			}},
		},
	}
	o, sess := newOrchestrator(t, gw, 100000)

	ch, err := o.RunTeachingTurn(context.Background(), sess.ID, "quiz me")
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, ch)

	ex, ok := find(evs, KindExercise)
	if !ok || ex.Exercise == nil || ex.Exercise.Question != "2+2?" {
		t.Errorf("exercise event = %+v", ex)
	}
}

func TestTeachingTurnIncompleteToolCall(t *testing.T) {
	gw := &fakeGateway{
		done: gateway.StreamDone{
			Content:    "Let me check that.",
			Incomplete: []string{tools.NameWebSearch},
		},
	}
	o, sess := newOrchestrator(t, gw, 100000)

	ch, err := o.RunTeachingTurn(context.Background(), sess.ID, "search something")
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, ch)

	completed, ok := find(evs, KindToolCompleted)
	if !ok || completed.Result == nil || completed.Result.Error == "" {
		t.Errorf("completed = %+v, want an error result", completed)
	}
	if _, ok := find(evs, KindDone); !ok {
		t.Error("incomplete tool call must not fail the turn")
	}

	reloaded, _ := o.repo.Get(sess.ID)
	if len(reloaded.Messages) != 2 {
		t.Errorf("messages = %d, want user + assistant only", len(reloaded.Messages))
	}
}

func TestTeachingTurnCompression(t *testing.T) {
	gw := &fakeGateway{
		done:        gateway.StreamDone{Content: strings.Repeat("long answer ", 20)},
		completeOut: "## Summary\nnodes and edges covered",
	}
	// Budget of 10 tokens forces compression on the first turn.
	o, sess := newOrchestrator(t, gw, 10)

	ch, err := o.RunTeachingTurn(context.Background(), sess.ID, "go on")
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, ch)

	var statuses []string
	for _, ev := range evs {
		if ev.Kind == KindStatus {
			statuses = append(statuses, ev.Status)
		}
	}
	if len(statuses) != 2 || statuses[0] != StatusCompressing || statuses[1] != StatusCompressed {
		t.Errorf("statuses = %v", statuses)
	}

	reloaded, _ := o.repo.Get(sess.ID)
	if reloaded.CompressedContext != "## Summary\nnodes and edges covered" {
		t.Errorf("compressed context = %q", reloaded.CompressedContext)
	}

	// Compression is one-shot: a second over-budget turn must not rerun it.
	ch, err = o.RunTeachingTurn(context.Background(), sess.ID, "more")
	if err != nil {
		t.Fatal(err)
	}
	for _, ev := range collect(t, ch) {
		if ev.Kind == KindStatus {
			t.Errorf("unexpected status event on second turn: %+v", ev)
		}
	}
}

func TestTeachingTurnCompressionFailureSentinel(t *testing.T) {
	gw := &fakeGateway{
		done:        gateway.StreamDone{Content: strings.Repeat("long answer ", 20)},
		completeErr: errors.New("model unavailable"),
	}
	o, sess := newOrchestrator(t, gw, 10)

	ch, err := o.RunTeachingTurn(context.Background(), sess.ID, "go on")
	if err != nil {
		t.Fatal(err)
	}
	collect(t, ch)

	reloaded, _ := o.repo.Get(sess.ID)
	if reloaded.CompressedContext != CompressionFailedSentinel {
		t.Errorf("compressed context = %q, want sentinel", reloaded.CompressedContext)
	}
	if reloaded.NeedsCompression() {
		t.Error("the sentinel still counts as a performed compression")
	}
}

func TestTeachingTurnStreamError(t *testing.T) {
	gw := &fakeGateway{
		deltas:    []string{"partial"},
		streamErr: errors.New("connection reset"),
	}
	o, sess := newOrchestrator(t, gw, 100000)

	ch, err := o.RunTeachingTurn(context.Background(), sess.ID, "hello")
	if err != nil {
		t.Fatal(err)
	}
	evs := collect(t, ch)

	errEv, ok := find(evs, KindError)
	if !ok || errEv.Err == nil {
		t.Fatalf("events = %v, want an error event", kinds(evs))
	}
	if _, ok := find(evs, KindDone); ok {
		t.Error("no done event after a stream error")
	}

	// A failed turn is not persisted.
	reloaded, _ := o.repo.Get(sess.ID)
	if len(reloaded.Messages) != 0 {
		t.Errorf("messages = %d, want 0", len(reloaded.Messages))
	}
}

func TestCompressionPromptEvidence(t *testing.T) {
	gw := &fakeGateway{completeOut: "ok"}

	messages := make([]session.Message, 0, 15)
	for i := 0; i < 15; i++ {
		messages = append(messages, session.NewMessage("user", strings.Repeat("m", 600)))
	}

	got := compressContext(context.Background(), gw, messages, "the plan", "the profile")
	if got != "ok" {
		t.Errorf("summary = %q", got)
	}

	prompt := gw.completeMsgs[1].Content
	if !strings.Contains(prompt, "the plan") || !strings.Contains(prompt, "the profile") {
		t.Error("compression prompt missing plan or profile")
	}
	if strings.Contains(prompt, strings.Repeat("m", 501)) {
		t.Error("messages not truncated to 500 chars")
	}
	if got := strings.Count(prompt, "user: "); got != compressionRecentMsgs {
		t.Errorf("evidence messages = %d, want %d", got, compressionRecentMsgs)
	}
}

func TestTruncateRuneBoundary(t *testing.T) {
	if got := truncate(strings.Repeat("é", 10), 4); got != strings.Repeat("é", 4) {
		t.Errorf("truncate = %q, want 4 runes", got)
	}
	if !utf8.ValidString(truncate("héllo wörld", 6)) {
		t.Error("truncate produced invalid UTF-8")
	}
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q, want unchanged", got)
	}
}
