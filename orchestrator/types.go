package orchestrator

import (
	"fmt"

	"github.com/maastricht-university/nursecheck-triage/models"
)

type State string

const (
	StateIdle              State = "IDLE"
	StateTranscriptFetched State = "TRANSCRIPT_FETCHED"
	StateEmotionAggregated State = "EMOTION_AGGREGATED"
	StateClassified        State = "CLASSIFIED"
	StatePersisted         State = "PERSISTED"
	StateAlerted           State = "ALERTED"
	StateDone              State = "DONE"
	StateFailed            State = "FAILED"
)

// StageError reports the state the pipeline was moving into when it failed.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("triage failed at %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

type Result struct {
	RunID     string `json:"run_id"`
	PatientID string `json:"patient_id"`
	SessionID string `json:"session_id,omitempty"`

	State       State   `json:"state"`
	FailedStage State   `json:"failed_stage,omitempty"`
	Trail       []State `json:"trail"`

	// NoConversation is set when the session had no turns; nothing was written.
	NoConversation bool `json:"no_conversation,omitempty"`

	TopEmotions models.TopEmotions     `json:"top_emotions,omitempty"`
	Verdict     *models.UrgencyVerdict `json:"verdict,omitempty"`

	// Entry is set once the record append succeeded, even if a later write failed.
	Entry        *models.RecordEntry `json:"entry,omitempty"`
	DocumentPath string              `json:"document_path,omitempty"`
	Alerted      bool                `json:"alerted"`
	AlertError   string              `json:"alert_error,omitempty"`
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trail = append(r.Trail, s)
}
