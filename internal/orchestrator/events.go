package orchestrator

import (
	"github.com/mentorkit/mentor/internal/session"
	"github.com/mentorkit/mentor/internal/tools"
)

// EventKind identifies a turn event.
type EventKind string

const (
	KindContent         EventKind = "content"
	KindToolStarted     EventKind = "tool_started"
	KindToolCompleted   EventKind = "tool_completed"
	KindStatus          EventKind = "status"
	KindInquiryComplete EventKind = "inquiry_complete"
	KindExercise        EventKind = "exercise"
	KindError           EventKind = "error"
	KindDone            EventKind = "done"
)

// Status values emitted around context compression.
const (
	StatusCompressing = "compressing_context"
	StatusCompressed  = "context_compressed"
)

// Event is one item of a turn's ordered event stream. The channel closing is
// the end marker; Done (or Error) is the last event before that.
type Event struct {
	Kind    EventKind
	TurnID  string
	Content string // KindContent delta

	Tool   string        // tool events
	Result *tools.Result // KindToolCompleted

	Status  string // KindStatus
	Summary string // KindInquiryComplete

	Exercise *session.Exercise // KindExercise

	Err error // KindError

	TokenCount   int    // KindDone
	FullResponse string // KindDone
}
