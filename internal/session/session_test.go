package session

import (
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: strings.Repeat("a", 40)},      // 10
		{Role: "assistant", Content: strings.Repeat("b", 43)}, // 10 (integer division)
	}
	if got := EstimateTokens(msgs); got != 20 {
		t.Errorf("EstimateTokens = %d, want 20", got)
	}
}

func TestRecomputeTokensIdempotent(t *testing.T) {
	s := &Session{}
	s.Append(NewMessage("user", strings.Repeat("x", 100)))

	first := s.RecomputeTokens()
	second := s.RecomputeTokens()
	if first != second {
		t.Errorf("recompute not idempotent: %d vs %d", first, second)
	}
	if first != 25 {
		t.Errorf("TokenCount = %d, want 25", first)
	}
}

func TestNeedsCompression(t *testing.T) {
	s := &Session{TokenThreshold: 10}
	s.Append(NewMessage("user", strings.Repeat("x", 100)))
	s.RecomputeTokens()

	if !s.NeedsCompression() {
		t.Error("expected compression to be needed over threshold")
	}

	// Once a summary exists the condition is permanently false.
	s.CompressedContext = "summary"
	s.Append(NewMessage("user", strings.Repeat("y", 400)))
	s.RecomputeTokens()
	if s.NeedsCompression() {
		t.Error("compression must fire at most once per session")
	}
}

func TestToSchemaMessage(t *testing.T) {
	m := Message{
		Role:    "assistant",
		Content: "checking",
		ToolCalls: []ToolCall{
			{ID: "call_9", Name: "web_search", Arguments: `{"query":"go"}`},
		},
	}
	sm := m.ToSchemaMessage()
	if string(sm.Role) != "assistant" || sm.Content != "checking" {
		t.Errorf("schema message = %+v", sm)
	}
	if len(sm.ToolCalls) != 1 || sm.ToolCalls[0].Function.Name != "web_search" {
		t.Errorf("tool calls = %+v", sm.ToolCalls)
	}
}

func TestGradeObjective(t *testing.T) {
	ex := &Exercise{
		Type:           ExerciseChoice,
		CorrectAnswers: []string{"B"},
		Explanation:    "because",
	}

	res := ex.Grade([]string{"B"})
	if !res.Correct {
		t.Error("expected correct grade")
	}
	if res.Explanation != "because" {
		t.Errorf("Explanation = %q", res.Explanation)
	}

	res = ex.Grade([]string{"A"})
	if res.Correct {
		t.Error("expected incorrect grade")
	}

	res = ex.Grade(nil)
	if res.Correct {
		t.Error("expected incorrect grade for missing answers")
	}
}

func TestGradeShortAnswer(t *testing.T) {
	ex := &Exercise{Type: ExerciseShortAnswer, CorrectAnswers: []string{"essay"}}
	res := ex.Grade([]string{"anything"})
	if !res.RequiresGrading {
		t.Error("short answers require model-side grading")
	}
	if res.Correct {
		t.Error("short answers are never auto-marked correct")
	}
}
