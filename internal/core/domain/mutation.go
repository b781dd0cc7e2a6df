package domain

type MutationKind string

const (
	MutationDocumentCreated MutationKind = "document_created"
	MutationDocumentUpdated MutationKind = "document_updated"
	MutationDocumentDeleted MutationKind = "document_deleted"
	MutationRosterChanged   MutationKind = "roster_changed"
)

// Mutation describes a write that may change cached percentages.
type Mutation struct {
	Kind         MutationKind
	PairingID    string
	CriterionID  string
	StateChanged bool
}

func DocumentCreated(doc Document, criterionID string) Mutation {
	return Mutation{Kind: MutationDocumentCreated, PairingID: doc.PairingID, CriterionID: criterionID, StateChanged: true}
}

func DocumentUpdated(doc Document, criterionID string, stateChanged bool) Mutation {
	return Mutation{Kind: MutationDocumentUpdated, PairingID: doc.PairingID, CriterionID: criterionID, StateChanged: stateChanged}
}

func DocumentDeleted(doc Document, criterionID string) Mutation {
	return Mutation{Kind: MutationDocumentDeleted, PairingID: doc.PairingID, CriterionID: criterionID, StateChanged: true}
}

func RosterChanged(pairingID string) Mutation {
	return Mutation{Kind: MutationRosterChanged, PairingID: pairingID}
}

// RecomputesCriterion reports whether the mutation's own criterion needs a
// fresh approval percentage. Roster changes fan out separately.
func (m Mutation) RecomputesCriterion() bool {
	switch m.Kind {
	case MutationDocumentCreated, MutationDocumentDeleted:
		return m.CriterionID != ""
	case MutationDocumentUpdated:
		return m.StateChanged && m.CriterionID != ""
	default:
		return false
	}
}

func (m Mutation) Validate() error {
	switch m.Kind {
	case MutationDocumentCreated, MutationDocumentUpdated, MutationDocumentDeleted, MutationRosterChanged:
	default:
		return invalidInput("validate mutation", "unknown mutation kind %q", m.Kind)
	}
	if m.PairingID == "" {
		return invalidInput("validate mutation", "pairing_id is required")
	}
	return nil
}
