package tools

import (
	"time"

	"github.com/mentorkit/mentor/internal/session"
)

// generateExercise validates and persists a practice question under the
// session's exercises/ directory.
func (e *Executor) generateExercise(params map[string]any, sess *session.Session) Result {
	question := stringParam(params, "question")
	if question == "" {
		return errResult("question must not be empty",
			"provide the full exercise, including question and type parameters")
	}

	exerciseType := stringParam(params, "type")
	if exerciseType == "" {
		exerciseType = session.ExerciseChoice
	}

	options := stringSliceParam(params, "options")
	blanks := stringSliceParam(params, "blanks")
	answers := stringSliceParam(params, "correct_answers")

	switch exerciseType {
	case session.ExerciseChoice:
		if len(options) < 2 {
			return errResult("choice exercises need at least 2 options", "provide a full options array")
		}
		if len(answers) == 0 {
			return errResult("choice exercises need correct answers", "provide the correct_answers parameter")
		}
	case session.ExerciseFillBlank:
		if len(blanks) == 0 {
			return errResult("fill_blank exercises need blank positions", "provide the blanks parameter")
		}
		if len(answers) == 0 {
			return errResult("fill_blank exercises need correct answers", "provide the correct_answers parameter")
		}
	}

	difficulty := stringParam(params, "difficulty")
	if difficulty == "" {
		difficulty = "medium"
	}

	exercise := &session.Exercise{
		Type:           exerciseType,
		Question:       question,
		Options:        options,
		Blanks:         blanks,
		CorrectAnswers: answers,
		Explanation:    stringParam(params, "explanation"),
		Difficulty:     difficulty,
		CreatedAt:      time.Now(),
	}

	id, err := e.store.SaveExercise(sess.ID, exercise)
	if err != nil {
		return errResult(err.Error(), "")
	}

	return Result{Success: true, ExerciseID: id, Exercise: exercise}
}
