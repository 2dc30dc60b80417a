// Package prompts loads the phase prompt templates. Templates live in a
// prompts.yml file next to the config; when absent the embedded English
// defaults are used.
package prompts

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yml
var defaultsYAML []byte

type phasePrompt struct {
	System string `yaml:"system"`
}

type promptFile struct {
	Inquiry    phasePrompt       `yaml:"phase1_inquiry"`
	Plan       phasePrompt       `yaml:"phase2_plan_generation"`
	Teaching   phasePrompt       `yaml:"phase3_teaching"`
	EndPhrases map[string]string `yaml:"end_phrases"`
}

// Store holds the loaded prompt templates for all phases.
type Store struct {
	prompts promptFile
}

// Load reads templates from path, falling back to the embedded defaults when
// path is empty or the file does not exist. A present-but-broken file is an
// error, not a silent fallback.
func Load(path string) (*Store, error) {
	data := defaultsYAML
	if path != "" {
		b, err := os.ReadFile(path)
		if err == nil {
			data = b
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("read prompts file: %w", err)
		}
	}

	var pf promptFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse prompts: %w", err)
	}

	// Missing sections fall back to the defaults individually.
	var def promptFile
	if err := yaml.Unmarshal(defaultsYAML, &def); err != nil {
		return nil, fmt.Errorf("parse embedded prompts: %w", err)
	}
	if pf.Inquiry.System == "" {
		pf.Inquiry = def.Inquiry
	}
	if pf.Plan.System == "" {
		pf.Plan = def.Plan
	}
	if pf.Teaching.System == "" {
		pf.Teaching = def.Teaching
	}
	if pf.EndPhrases == nil {
		pf.EndPhrases = def.EndPhrases
	} else {
		for k, v := range def.EndPhrases {
			if pf.EndPhrases[k] == "" {
				pf.EndPhrases[k] = v
			}
		}
	}

	return &Store{prompts: pf}, nil
}

// InquiryPrompt returns the needs-inquiry system prompt, optionally appending
// the current user input.
func (s *Store) InquiryPrompt(userInput string) string {
	prompt := s.prompts.Inquiry.System
	if userInput != "" {
		prompt += fmt.Sprintf("\n\nCurrent user input: %s", userInput)
	}
	return prompt
}

// PlanPrompt returns the plan-generation system prompt with the inquiry
// summary appended.
func (s *Store) PlanPrompt(inquirySummary string) string {
	return fmt.Sprintf("%s\n\nInquiry summary:\n%s", s.prompts.Plan.System, inquirySummary)
}

// TeachingPrompt fills the teaching template's named {placeholder} slots.
func (s *Store) TeachingPrompt(slots map[string]string) string {
	prompt := s.prompts.Teaching.System
	for key, value := range slots {
		prompt = strings.ReplaceAll(prompt, "{"+key+"}", value)
	}
	return prompt
}

// EndPhrase returns the named end phrase, or "" when unknown.
func (s *Store) EndPhrase(name string) string {
	return s.prompts.EndPhrases[name]
}
