package usecase

import (
	"time"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

type harness struct {
	store     *memStore
	clock     *fixedClock
	recorder  *recorderFake
	publisher *publisherFake
	audit     *AuditTrail
	prop      *Propagator
	documents *DocumentUseCase
	roster    *RosterUseCase
	recompute *RecomputeUseCase
}

func newHarness() *harness {
	h := &harness{
		store:     newMemStore(),
		clock:     &fixedClock{t: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)},
		recorder:  newRecorderFake(),
		publisher: &publisherFake{},
	}
	h.audit = NewAuditTrail(h.store, h.recorder, h.clock.Now)
	h.prop = NewPropagator(NewApprovalCalculator(), NewCompletionCalculator(domain.DocumentTypeIntake), h.recorder, h.clock.Now)
	h.documents = NewDocumentUseCase(h.store, h.audit, h.prop, h.publisher, h.clock.Now)
	h.roster = NewRosterUseCase(h.store, h.prop, h.publisher, h.clock.Now)
	h.recompute = NewRecomputeUseCase(h.store, h.prop, h.publisher)
	return h
}

// seedSafety builds a pairing with two employees and a "safety" criterion
// holding one pairing-wide and one per-employee subcriterion, plus an intake
// criterion of the same shape.
func (h *harness) seedSafety() {
	s := h.store
	s.addPairing("p1")
	s.addEmployee("e1", "p1")
	s.addEmployee("e2", "p1")

	s.addCriterion("safety", "compliance")
	s.addSub("safety-plan", "safety", domain.PerPairingSlot{})
	s.addSub("safety-cert", "safety", domain.PerEmployeeSlot{})

	s.addCriterion("onboarding", domain.DocumentTypeIntake)
	s.addSub("insurance", "onboarding", domain.PerPairingSlot{})
	s.addSub("id-card", "onboarding", domain.PerEmployeeSlot{})
}

func (h *harness) approval(pairingID, criterionID string) domain.CriterionApproval {
	return h.store.approvals[[2]string{pairingID, criterionID}]
}

func outcomeFor(report domain.Report, kind domain.PercentageKind, criterionID string) (domain.Outcome, bool) {
	for _, o := range report.Outcomes {
		if o.Kind == kind && o.CriterionID == criterionID {
			return o, true
		}
	}
	return domain.Outcome{}, false
}

func statePtr(s domain.DocumentState) *domain.DocumentState { return &s }

func strPtr(s string) *string { return &s }
