package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// ApprovalCalculator computes the share of a criterion's slots whose document
// is approved for one pairing.
type ApprovalCalculator struct{}

func NewApprovalCalculator() *ApprovalCalculator {
	return &ApprovalCalculator{}
}

func (c *ApprovalCalculator) Calculate(ctx context.Context, store ports.Store, criterionID, pairingID string) (int, error) {
	subcriteria, err := store.Criteria().ListSubcriteriaByCriterion(ctx, criterionID)
	if err != nil {
		return 0, fmt.Errorf("list subcriteria of criterion %s: %w", criterionID, err)
	}
	if len(subcriteria) == 0 {
		return domain.VacuousApprovalPercent, nil
	}

	employees, err := store.Roster().ListByPairing(ctx, pairingID)
	if err != nil {
		return 0, fmt.Errorf("list roster of pairing %s: %w", pairingID, err)
	}
	totalSlots := domain.TotalSlots(subcriteria, len(employees))

	states, err := store.Documents().ListSlotStates(ctx, pairingID, domain.SubcriterionIDs(subcriteria))
	if err != nil {
		return 0, fmt.Errorf("list slot states: %w", err)
	}
	tally := domain.TallySlots(states)

	totalSlots -= tally.NotApplicable
	return domain.Percent(tally.Approved, totalSlots, domain.VacuousApprovalPercent), nil
}
