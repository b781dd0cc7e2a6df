package usecase

import (
	"context"
	"testing"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

func TestRecomputeCompletionUpdatesCache(t *testing.T) {
	h := newHarness()
	h.seedSafety()
	h.store.addDoc("d1", "p1", "insurance", "", domain.StateApproved)
	h.store.addDoc("d2", "p1", "id-card", "e1", domain.StateSubmitted)

	outcome, err := h.recompute.RecomputeCompletion(context.Background(), "p1")
	if err != nil {
		t.Fatalf("RecomputeCompletion() error: %v", err)
	}
	if outcome.Status != domain.OutcomeUpdated || outcome.Percentage != 67 {
		t.Fatalf("unexpected outcome: %+v", outcome)
	}
	if h.store.pairings["p1"].CompletionPercentage != 67 {
		t.Fatalf("expected cached completion 67")
	}
	if len(h.publisher.events) != 1 {
		t.Fatalf("expected 1 published event, got %d", len(h.publisher.events))
	}
}

func TestRecomputeCompletionMissingPairing(t *testing.T) {
	h := newHarness()
	h.seedSafety()

	_, err := h.recompute.RecomputeCompletion(context.Background(), "ghost")
	if !domain.IsKind(err, domain.ErrPairingNotFound) {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
}

func TestRecomputeApprovalMissingPairing(t *testing.T) {
	h := newHarness()
	h.seedSafety()

	_, err := h.recompute.RecomputeApproval(context.Background(), "ghost", "safety")
	if !domain.IsKind(err, domain.ErrPairingNotFound) {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
	if _, ok := h.store.approvals[[2]string{"ghost", "safety"}]; ok {
		t.Fatalf("approval must not be cached for a missing pairing")
	}
}

func TestCompletionBreakdownDoesNotWriteCache(t *testing.T) {
	h := newHarness()
	h.seedSafety()
	h.store.addDoc("d1", "p1", "insurance", "", domain.StateApproved)

	breakdown, err := h.recompute.CompletionBreakdown(context.Background(), "p1")
	if err != nil {
		t.Fatalf("CompletionBreakdown() error: %v", err)
	}
	if breakdown.Expected != 3 || breakdown.Approved != 1 || breakdown.Percentage != 33 {
		t.Fatalf("unexpected breakdown: %+v", breakdown)
	}
	if h.store.pairings["p1"].CompletionComputedAt != nil {
		t.Fatalf("breakdown must not touch the cache")
	}
}

func TestPairingPercentagesReadModel(t *testing.T) {
	h := newHarness()
	h.seedSafety()
	if _, err := h.prop.OnRosterChanged(context.Background(), h.store, "p1"); err != nil {
		t.Fatalf("OnRosterChanged() error: %v", err)
	}

	view, err := h.recompute.PairingPercentages(context.Background(), "p1")
	if err != nil {
		t.Fatalf("PairingPercentages() error: %v", err)
	}
	if view.Pairing.ID != "p1" || len(view.Approvals) != 2 {
		t.Fatalf("unexpected read model: %+v", view)
	}
	if view.Approvals[0].CriterionID != "onboarding" {
		t.Fatalf("expected approvals ordered by criterion, got %+v", view.Approvals)
	}
}
