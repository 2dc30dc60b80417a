package session

import "time"

// Exercise types supported by generate_exercise.
const (
	ExerciseChoice      = "choice"
	ExerciseFillBlank   = "fill_blank"
	ExerciseShortAnswer = "short_answer"
	ExerciseMatch       = "match"
	ExerciseMultiFill   = "multi_fill"
)

// Exercise is a persisted practice question with canonical answers. It is
// addressable by id independently of the conversation log so it can be
// fetched and graded later.
type Exercise struct {
	Type           string    `json:"type"`
	Question       string    `json:"question"`
	Options        []string  `json:"options"`
	Blanks         []string  `json:"blanks"`
	CorrectAnswers []string  `json:"correct_answers"`
	Explanation    string    `json:"explanation"`
	Difficulty     string    `json:"difficulty"`
	CreatedAt      time.Time `json:"created_at"`
}

// GradeResult is the outcome of checking submitted answers.
type GradeResult struct {
	Correct         bool     `json:"correct"`
	RequiresGrading bool     `json:"requires_grading,omitempty"`
	CorrectAnswers  []string `json:"correct_answers,omitempty"`
	Explanation     string   `json:"explanation,omitempty"`
}

// Grade checks submitted answers against the canonical ones. Objective types
// are compared exactly, in order. Short answers need model-side grading and
// are only flagged as such.
func (e *Exercise) Grade(answers []string) GradeResult {
	if e.Type == ExerciseShortAnswer {
		return GradeResult{RequiresGrading: true}
	}

	correct := len(answers) == len(e.CorrectAnswers)
	if correct {
		for i := range answers {
			if answers[i] != e.CorrectAnswers[i] {
				correct = false
				break
			}
		}
	}

	return GradeResult{
		Correct:        correct,
		CorrectAnswers: e.CorrectAnswers,
		Explanation:    e.Explanation,
	}
}
