package interview

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Session statuses reported by the interview-info endpoint.
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

// Progress mirrors the server-reported counters used to render completion.
type Progress struct {
	QuestionsAsked     int     `json:"questions_asked" mapstructure:"questions_asked"`
	MaxQuestions       int     `json:"max_questions" mapstructure:"max_questions"`
	ElapsedMinutes     float64 `json:"elapsed_minutes" mapstructure:"elapsed_minutes"`
	MaxDurationMinutes float64 `json:"max_duration_minutes" mapstructure:"max_duration_minutes"`
}

// Info is the current state of a session as reported by the remote API.
type Info struct {
	Status          string    `json:"status"`
	CurrentQuestion string    `json:"current_question"`
	CurrentTopic    string    `json:"current_topic"`
	Progress        *Progress `json:"progress"`
}

// Started is the response to a start-interview call.
type Started struct {
	FirstQuestion string `json:"first_question"`
	CurrentTopic  string `json:"current_topic"`
}

// AnswerResult is the response to both audio and text answer submissions.
type AnswerResult struct {
	Transcription string             `json:"transcription"`
	AIResponse    string             `json:"ai_response"`
	Progress      *Progress          `json:"progress"`
	Completed     bool               `json:"completed"`
	NextQuestion  string             `json:"next_question"`
	Evaluation    map[string]any     `json:"evaluation"`
	Scores        map[string]float64 `json:"scores"`
}

// Evaluation is the typed view of the loosely-shaped evaluation payload.
type Evaluation struct {
	Summary        string   `json:"summary" mapstructure:"summary"`
	Strengths      []string `json:"strengths" mapstructure:"strengths"`
	Weaknesses     []string `json:"weaknesses" mapstructure:"weaknesses"`
	Recommendation string   `json:"recommendation" mapstructure:"recommendation"`
}

// DecodeEvaluation converts the raw evaluation map into its typed form.
// Returns nil when the result carries no evaluation.
func (r *AnswerResult) DecodeEvaluation() (*Evaluation, error) {
	return DecodeEvaluation(r.Evaluation)
}

// DecodeEvaluation converts a raw evaluation map into its typed form.
func DecodeEvaluation(raw map[string]any) (*Evaluation, error) {
	if len(raw) == 0 {
		return nil, nil
	}

	var evaluation Evaluation
	if err := mapstructure.Decode(raw, &evaluation); err != nil {
		return nil, fmt.Errorf("decode evaluation: %w", err)
	}

	return &evaluation, nil
}

// APIError is a non-2xx response from the interview API. Detail carries the
// server-provided message verbatim when the body has one.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("interview api: %s (status %d)", e.Detail, e.StatusCode)
	}
	return fmt.Sprintf("interview api: unexpected status %d", e.StatusCode)
}

// Retryable reports whether repeating the request can help. Validation
// failures (4xx) never change on retry; 5xx responses may.
func (e *APIError) Retryable() bool {
	return e.StatusCode >= 500
}
