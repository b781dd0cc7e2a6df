package domain

import (
	"strings"
	"time"
)

type DocumentState string

const (
	StatePending       DocumentState = "pending"
	StateSubmitted     DocumentState = "submitted"
	StateApproved      DocumentState = "approved"
	StateRejected      DocumentState = "rejected"
	StateNotApplicable DocumentState = "not_applicable"

	// StateNone is only ever written as the previous state of a creation audit row.
	StateNone DocumentState = "none"
)

func (s DocumentState) Valid() bool {
	switch s {
	case StatePending, StateSubmitted, StateApproved, StateRejected, StateNotApplicable:
		return true
	default:
		return false
	}
}

// Loaded reports whether a document in this state counts as uploaded for completion.
func (s DocumentState) Loaded() bool {
	switch s {
	case StateSubmitted, StateApproved, StateRejected, StateNotApplicable:
		return true
	default:
		return false
	}
}

func ParseDocumentState(raw string) (DocumentState, error) {
	state := DocumentState(strings.ToLower(strings.TrimSpace(raw)))
	if state == "" {
		return "", invalidInput("parse state", "state is required")
	}
	if !state.Valid() {
		return "", invalidInput("parse state", "unknown state %q", raw)
	}
	return state, nil
}

type Document struct {
	ID             string        `json:"id"`
	Name           string        `json:"name"`
	SubcriterionID string        `json:"subcriterion_id"`
	PairingID      string        `json:"pairing_id"`
	EmployeeID     string        `json:"employee_id,omitempty"`
	State          DocumentState `json:"state"`
	Comment        string        `json:"comment,omitempty"`
	EndDate        *time.Time    `json:"end_date,omitempty"`
	ProjectID      string        `json:"project_id,omitempty"`
	ContractorID   string        `json:"contractor_id,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Slot identifies which expected document this one fills.
func (d Document) Slot() SlotKey {
	return SlotKey{SubcriterionID: d.SubcriterionID, EmployeeID: d.EmployeeID}
}

// Validate checks the fields every stored document must carry.
func (d Document) Validate() error {
	if strings.TrimSpace(d.Name) == "" {
		return invalidInput("validate document", "name is required")
	}
	if d.State == "" {
		return invalidInput("validate document", "state is required")
	}
	if !d.State.Valid() {
		return invalidInput("validate document", "unknown state %q", d.State)
	}
	if strings.TrimSpace(d.SubcriterionID) == "" {
		return invalidInput("validate document", "subcriterion_id is required")
	}
	if strings.TrimSpace(d.PairingID) == "" {
		return invalidInput("validate document", "pairing_id is required")
	}
	return nil
}

// DocumentPatch carries the mutable fields of an update; nil means unchanged.
type DocumentPatch struct {
	ID      string
	Name    *string
	State   *DocumentState
	Comment *string
	EndDate *time.Time
}

func (p DocumentPatch) Validate() error {
	if strings.TrimSpace(p.ID) == "" {
		return invalidInput("validate patch", "id is required")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return invalidInput("validate patch", "name cannot be blank")
	}
	if p.State != nil && !p.State.Valid() {
		return invalidInput("validate patch", "unknown state %q", *p.State)
	}
	return nil
}

// Apply merges the patch into a copy of doc.
func (p DocumentPatch) Apply(doc Document) Document {
	if p.Name != nil {
		doc.Name = strings.TrimSpace(*p.Name)
	}
	if p.State != nil {
		doc.State = *p.State
	}
	if p.Comment != nil {
		doc.Comment = *p.Comment
	}
	if p.EndDate != nil {
		end := *p.EndDate
		doc.EndDate = &end
	}
	return doc
}

// DocumentFilter selects one of the read paths of the document store.
type DocumentFilter struct {
	PairingID      string
	State          DocumentState
	SubcriterionID string
	EmployeeID     string
	ProjectID      string
	ContractorID   string
}
