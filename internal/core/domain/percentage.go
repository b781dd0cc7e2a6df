package domain

import (
	"math"
	"time"
)

// The two calculators disagree on what an empty slot set means. Approval of
// nothing is complete; completion of nothing has not started. Both values are
// relied on by reporting, so they stay separate.
const (
	VacuousApprovalPercent   = 100
	VacuousCompletionPercent = 0
)

// Percent returns round(numerator/denominator*100) clamped to [0,100], or
// vacuous when the denominator is not positive.
func Percent(numerator, denominator, vacuous int) int {
	if denominator <= 0 {
		return vacuous
	}
	return ClampPercent(int(math.Round(float64(numerator) / float64(denominator) * 100)))
}

func ClampPercent(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	default:
		return v
	}
}

// SlotKey is a (subcriterion, employee) pair; an empty EmployeeID is the
// pairing-wide slot.
type SlotKey struct {
	SubcriterionID string
	EmployeeID     string
}

// SlotState is the state of one stored document reduced to its slot.
type SlotState struct {
	SubcriterionID string
	EmployeeID     string
	State          DocumentState
}

func (s SlotState) Key() SlotKey {
	return SlotKey{SubcriterionID: s.SubcriterionID, EmployeeID: s.EmployeeID}
}

// SlotTally counts de-duplicated slot states.
type SlotTally struct {
	Pending       int
	Submitted     int
	Approved      int
	Rejected      int
	NotApplicable int
}

// Loaded counts every slot whose document left pending, not-applicable included.
func (t SlotTally) Loaded() int {
	return t.Submitted + t.Approved + t.Rejected + t.NotApplicable
}

// TallySlots counts states after keeping only the first entry per slot, so
// callers pass states newest first.
func TallySlots(states []SlotState) SlotTally {
	var tally SlotTally
	seen := make(map[SlotKey]struct{}, len(states))
	for _, st := range states {
		key := st.Key()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		switch st.State {
		case StatePending:
			tally.Pending++
		case StateSubmitted:
			tally.Submitted++
		case StateApproved:
			tally.Approved++
		case StateRejected:
			tally.Rejected++
		case StateNotApplicable:
			tally.NotApplicable++
		}
	}
	return tally
}

// CompletionBreakdown is the detail behind a completion percentage.
// Expected counts every slot; Total excludes not-applicable ones.
type CompletionBreakdown struct {
	PairingID     string `json:"pairing_id"`
	Expected      int    `json:"expected"`
	Total         int    `json:"total"`
	Loaded        int    `json:"loaded"`
	Approved      int    `json:"approved"`
	Submitted     int    `json:"submitted"`
	Rejected      int    `json:"rejected"`
	NotApplicable int    `json:"not_applicable"`
	Percentage    int    `json:"percentage"`
}

type PercentageKind string

const (
	PercentageApproval   PercentageKind = "approval"
	PercentageCompletion PercentageKind = "completion"
)

type OutcomeStatus string

const (
	OutcomeUpdated OutcomeStatus = "updated"
	// OutcomeStale means the calculation failed and the cached row was flagged.
	OutcomeStale OutcomeStatus = "stale"
)

// Outcome reports what happened to one cached percentage.
type Outcome struct {
	Kind        PercentageKind `json:"kind"`
	PairingID   string         `json:"pairing_id"`
	CriterionID string         `json:"criterion_id,omitempty"`
	Percentage  int            `json:"percentage"`
	Status      OutcomeStatus  `json:"status"`
	Err         error          `json:"-"`
	Error       string         `json:"error,omitempty"`
	At          time.Time      `json:"at"`
	Duration    time.Duration  `json:"-"`
}

// Report collects the outcomes of one propagation.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

func (r *Report) Add(o Outcome) {
	if o.Err != nil && o.Error == "" {
		o.Error = o.Err.Error()
	}
	r.Outcomes = append(r.Outcomes, o)
}

func (r Report) Stale() bool {
	for _, o := range r.Outcomes {
		if o.Status == OutcomeStale {
			return true
		}
	}
	return false
}

// PercentageEvent is published to collaborators after a propagation commits.
type PercentageEvent struct {
	Kind        PercentageKind `json:"kind"`
	PairingID   string         `json:"pairing_id"`
	CriterionID string         `json:"criterion_id,omitempty"`
	Percentage  int            `json:"percentage"`
	Stale       bool           `json:"stale"`
	At          time.Time      `json:"at"`
}

func (r Report) Events() []PercentageEvent {
	events := make([]PercentageEvent, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		events = append(events, PercentageEvent{
			Kind:        o.Kind,
			PairingID:   o.PairingID,
			CriterionID: o.CriterionID,
			Percentage:  o.Percentage,
			Stale:       o.Status == OutcomeStale,
			At:          o.At,
		})
	}
	return events
}
