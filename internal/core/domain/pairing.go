package domain

import "time"

// Pairing is one contractor engaged on one project.
type Pairing struct {
	ID                   string     `json:"id"`
	ProjectID            string     `json:"project_id"`
	ContractorID         string     `json:"contractor_id"`
	CompletionPercentage int        `json:"completion_percentage"`
	CompletionStale      bool       `json:"completion_stale"`
	CompletionComputedAt *time.Time `json:"completion_computed_at,omitempty"`
}

type Employee struct {
	ID        string    `json:"id"`
	PairingID string    `json:"pairing_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CriterionApproval is the cached approval percentage of one criterion for one pairing.
type CriterionApproval struct {
	PairingID          string     `json:"pairing_id"`
	CriterionID        string     `json:"criterion_id"`
	ApprovalPercentage int        `json:"approval_percentage"`
	Stale              bool       `json:"stale"`
	ComputedAt         *time.Time `json:"computed_at,omitempty"`
}

// PairingPercentages is the cached read model of a pairing.
type PairingPercentages struct {
	Pairing   Pairing             `json:"pairing"`
	Approvals []CriterionApproval `json:"approvals"`
}
