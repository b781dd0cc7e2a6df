package domain

import "time"

// DocumentStateAudit is one immutable transition of a document's state.
type DocumentStateAudit struct {
	ID                       string        `json:"id"`
	DocumentID               string        `json:"document_id"`
	PreviousState            DocumentState `json:"previous_state"`
	NewState                 DocumentState `json:"new_state"`
	ActorID                  string        `json:"actor_id,omitempty"`
	Comment                  string        `json:"comment,omitempty"`
	TimeInPreviousStateHours int           `json:"time_in_previous_state_hours"`
	CreatedAt                time.Time     `json:"created_at"`
}

// ElapsedHours is the whole number of hours between two transitions, never negative.
func ElapsedHours(from, to time.Time) int {
	if from.IsZero() || !to.After(from) {
		return 0
	}
	return int(to.Sub(from) / time.Hour)
}

type AuditSummary struct {
	DocumentID       string                `json:"document_id"`
	Transitions      int                   `json:"transitions"`
	Rejections       int                   `json:"rejections"`
	HoursByState     map[DocumentState]int `json:"hours_by_state"`
	CurrentState     DocumentState         `json:"current_state,omitempty"`
	LastTransitionAt *time.Time            `json:"last_transition_at,omitempty"`
}

// SummarizeAudit folds a newest-first history into per-state dwell time and
// the rejection count used by SLA reporting.
func SummarizeAudit(documentID string, history []DocumentStateAudit) AuditSummary {
	summary := AuditSummary{
		DocumentID:   documentID,
		HoursByState: make(map[DocumentState]int),
	}
	for i, entry := range history {
		if i == 0 {
			summary.CurrentState = entry.NewState
			at := entry.CreatedAt
			summary.LastTransitionAt = &at
		}
		summary.Transitions++
		if entry.NewState == StateRejected {
			summary.Rejections++
		}
		if entry.PreviousState != StateNone {
			summary.HoursByState[entry.PreviousState] += entry.TimeInPreviousStateHours
		}
	}
	return summary
}
