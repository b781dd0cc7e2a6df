package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// CompletionCalculator computes how much of the onboarding paperwork a pairing
// has uploaded. The scope is every subcriterion of the configured document
// type, regardless of which criteria apply to the pairing.
type CompletionCalculator struct {
	documentType domain.DocumentType
}

func NewCompletionCalculator(documentType domain.DocumentType) *CompletionCalculator {
	if strings.TrimSpace(string(documentType)) == "" {
		documentType = domain.DocumentTypeIntake
	}
	return &CompletionCalculator{documentType: documentType}
}

func (c *CompletionCalculator) DocumentType() domain.DocumentType {
	return c.documentType
}

func (c *CompletionCalculator) Calculate(ctx context.Context, store ports.Store, pairingID string) (domain.CompletionBreakdown, error) {
	breakdown := domain.CompletionBreakdown{PairingID: pairingID}

	subcriteria, err := store.Criteria().ListSubcriteriaByDocumentType(ctx, c.documentType)
	if err != nil {
		return breakdown, fmt.Errorf("list %s subcriteria: %w", c.documentType, err)
	}

	employees, err := store.Roster().ListByPairing(ctx, pairingID)
	if err != nil {
		return breakdown, fmt.Errorf("list roster of pairing %s: %w", pairingID, err)
	}
	breakdown.Expected = domain.TotalSlots(subcriteria, len(employees))

	var tally domain.SlotTally
	if len(subcriteria) > 0 {
		states, err := store.Documents().ListSlotStates(ctx, pairingID, domain.SubcriterionIDs(subcriteria))
		if err != nil {
			return breakdown, fmt.Errorf("list slot states: %w", err)
		}
		tally = domain.TallySlots(states)
	}

	breakdown.Submitted = tally.Submitted
	breakdown.Approved = tally.Approved
	breakdown.Rejected = tally.Rejected
	breakdown.NotApplicable = tally.NotApplicable
	breakdown.Loaded = tally.Loaded() - tally.NotApplicable
	breakdown.Total = breakdown.Expected - tally.NotApplicable
	breakdown.Percentage = domain.Percent(breakdown.Loaded, breakdown.Total, domain.VacuousCompletionPercent)
	return breakdown, nil
}
