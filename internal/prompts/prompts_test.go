package prompts

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.InquiryPrompt("") == "" {
		t.Error("default inquiry prompt is empty")
	}
	if s.EndPhrase("inquiry_complete") == "" {
		t.Error("default inquiry_complete phrase is empty")
	}
	if s.EndPhrase("teaching_welcome") == "" {
		t.Error("default teaching_welcome phrase is empty")
	}
	if s.EndPhrase("nope") != "" {
		t.Error("unknown phrase should be empty")
	}
}

func TestInquiryPromptAppendsInput(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := s.InquiryPrompt("I want to learn graphs")
	if !strings.Contains(got, "Current user input: I want to learn graphs") {
		t.Errorf("user input not appended: %q", got)
	}
}

func TestPlanPromptAppendsSummary(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := s.PlanPrompt("beginner, 5h/week")
	if !strings.Contains(got, "Inquiry summary:\nbeginner, 5h/week") {
		t.Errorf("summary not appended: %q", got)
	}
}

func TestTeachingPromptFillsSlots(t *testing.T) {
	s, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := s.TeachingPrompt(map[string]string{
		"max_context":      "128",
		"token_count":      "1200",
		"token_threshold":  "102400",
		"study_plan":       "week 1: basics",
		"agent_state":      "Theme: Graphs",
		"lesson_context":   "",
		"recent_exchanges": "user: hi",
		"file_tree":        "notes/day1.md",
	})
	for _, want := range []string{"128K tokens", "1200 / 102400", "week 1: basics", "notes/day1.md"} {
		if !strings.Contains(got, want) {
			t.Errorf("teaching prompt missing %q", want)
		}
	}
	if strings.Contains(got, "{study_plan}") {
		t.Error("placeholder left unfilled")
	}
}

func TestLoadCustomFileWithPartialSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yml")
	custom := "phase1_inquiry:\n  system: custom inquiry\nend_phrases:\n  inquiry_complete: done now\n"
	if err := os.WriteFile(path, []byte(custom), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := s.InquiryPrompt(""); got != "custom inquiry" {
		t.Errorf("inquiry = %q, want custom", got)
	}
	if got := s.EndPhrase("inquiry_complete"); got != "done now" {
		t.Errorf("inquiry_complete = %q", got)
	}
	// Sections absent from the custom file fall back to defaults.
	if s.prompts.Teaching.System == "" {
		t.Error("teaching prompt should fall back to default")
	}
	if s.EndPhrase("teaching_welcome") == "" {
		t.Error("teaching_welcome should fall back to default")
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.InquiryPrompt("") == "" {
		t.Error("expected embedded defaults")
	}
}

func TestLoadBrokenFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prompts.yml")
	if err := os.WriteFile(path, []byte(":\n\t- not yaml"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
