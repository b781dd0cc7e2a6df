package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// RecomputeUseCase serves explicit recomputation and the cached read model.
type RecomputeUseCase struct {
	uow        ports.UnitOfWork
	propagator *Propagator
	publisher  ports.EventPublisher
}

func NewRecomputeUseCase(uow ports.UnitOfWork, propagator *Propagator, publisher ports.EventPublisher) *RecomputeUseCase {
	return &RecomputeUseCase{
		uow:        uow,
		propagator: propagator,
		publisher:  publisherOrNop(publisher),
	}
}

func (uc *RecomputeUseCase) RecomputeCompletion(ctx context.Context, pairingID string) (domain.Outcome, error) {
	if strings.TrimSpace(pairingID) == "" {
		return domain.Outcome{}, domain.WrapError(domain.ErrInvalidInput, "recompute completion", errors.New("pairing id is required"))
	}

	var outcome domain.Outcome
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		var err error
		outcome, err = uc.propagator.recomputeCompletion(ctx, store, pairingID)
		return err
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("recompute completion: %w", err)
	}

	var report domain.Report
	report.Add(outcome)
	uc.propagator.Observe(report)
	publishReport(ctx, uc.publisher, report)
	return report.Outcomes[0], nil
}

func (uc *RecomputeUseCase) RecomputeApproval(ctx context.Context, pairingID, criterionID string) (domain.Outcome, error) {
	if strings.TrimSpace(pairingID) == "" || strings.TrimSpace(criterionID) == "" {
		return domain.Outcome{}, domain.WrapError(domain.ErrInvalidInput, "recompute approval", errors.New("pairing id and criterion id are required"))
	}

	var outcome domain.Outcome
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		if _, err := store.Percentages().GetPairing(ctx, pairingID); err != nil {
			return err
		}
		var err error
		outcome, err = uc.propagator.recomputeApproval(ctx, store, pairingID, criterionID)
		return err
	})
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("recompute approval: %w", err)
	}

	var report domain.Report
	report.Add(outcome)
	uc.propagator.Observe(report)
	publishReport(ctx, uc.publisher, report)
	return report.Outcomes[0], nil
}

// CompletionBreakdown computes the live breakdown without touching the cache.
func (uc *RecomputeUseCase) CompletionBreakdown(ctx context.Context, pairingID string) (domain.CompletionBreakdown, error) {
	reader := uc.uow.Reader()
	if _, err := reader.Percentages().GetPairing(ctx, pairingID); err != nil {
		return domain.CompletionBreakdown{}, err
	}
	breakdown, err := uc.propagator.completion.Calculate(ctx, reader, pairingID)
	if err != nil {
		return domain.CompletionBreakdown{}, domain.WrapError(domain.ErrCalculation, "completion breakdown", err)
	}
	return breakdown, nil
}

func (uc *RecomputeUseCase) PairingPercentages(ctx context.Context, pairingID string) (*domain.PairingPercentages, error) {
	reader := uc.uow.Reader()
	pairing, err := reader.Percentages().GetPairing(ctx, pairingID)
	if err != nil {
		return nil, err
	}
	approvals, err := reader.Percentages().ListApprovals(ctx, pairingID)
	if err != nil {
		return nil, fmt.Errorf("list approvals: %w", err)
	}
	return &domain.PairingPercentages{Pairing: *pairing, Approvals: approvals}, nil
}
