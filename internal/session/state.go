package session

// State is the lifecycle position of one interview session.
type State int

const (
	// StateLoading is the initial state before Initialize has finished.
	StateLoading State = iota
	// StateActive means a question is on screen and an answer is expected.
	StateActive
	// StateAwaitingAnswer means a submission is in flight.
	StateAwaitingAnswer
	// StateComplete is terminal; the evaluation is available when the server
	// sent one.
	StateComplete
	// StateErrored means the last remote call exhausted its retries. The
	// state is recoverable via ClearError or by switching to text input.
	StateErrored
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateComplete:
		return "complete"
	case StateErrored:
		return "error"
	default:
		return "unknown"
	}
}

// EventKind classifies notices emitted by the controller for the view layer.
type EventKind int

const (
	// EventQuestion carries the next question to render.
	EventQuestion EventKind = iota
	// EventTranscription carries the server transcription of a spoken answer.
	EventTranscription
	// EventFeedback carries interviewer feedback on the previous answer.
	EventFeedback
	// EventNotice carries informational messages.
	EventNotice
	// EventError carries a user-facing failure with an actionable next step.
	EventError
	// EventCompleted signals the interview is over.
	EventCompleted
)

// Event is a notice queued for the view layer to render. The controller never
// touches presentation directly; it only publishes these.
type Event struct {
	Kind    EventKind
	Message string
}
