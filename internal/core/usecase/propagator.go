package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

const (
	savepointApproval   = "recompute_approval"
	savepointCompletion = "recompute_completion"
	savepointMarkStale  = "mark_stale"
	savepointFanout     = "roster_fanout"
)

// Propagator is the single entry point that refreshes cached percentages
// after any mutation. It runs inside the mutation's transaction.
type Propagator struct {
	approval   *ApprovalCalculator
	completion *CompletionCalculator
	recorder   ports.RecomputeRecorder
	now        func() time.Time
}

func NewPropagator(
	approval *ApprovalCalculator,
	completion *CompletionCalculator,
	recorder ports.RecomputeRecorder,
	now func() time.Time,
) *Propagator {
	if approval == nil {
		approval = NewApprovalCalculator()
	}
	if completion == nil {
		completion = NewCompletionCalculator(domain.DocumentTypeIntake)
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if now == nil {
		now = time.Now
	}
	return &Propagator{
		approval:   approval,
		completion: completion,
		recorder:   recorder,
		now:        now,
	}
}

// Propagate recomputes whatever the mutation can have changed. Calculation
// failures become stale outcomes in the report; only not-found errors from
// cache writes and store failures while flagging staleness are returned.
func (p *Propagator) Propagate(ctx context.Context, store ports.Store, m domain.Mutation) (domain.Report, error) {
	var report domain.Report
	if err := m.Validate(); err != nil {
		return report, err
	}

	var criteria []string
	switch m.Kind {
	case domain.MutationRosterChanged:
		var subcriteria []domain.Subcriterion
		err := store.Savepoint(ctx, savepointFanout, func(ctx context.Context) error {
			var err error
			subcriteria, err = store.Criteria().ListPerEmployeeSubcriteria(ctx)
			return err
		})
		if err != nil {
			// Without the fan-out list only completion can be refreshed.
			slog.Warn("roster_fanout_failed", "pairing_id", m.PairingID, "error", err)
		}
		criteria = domain.CriterionIDs(subcriteria)
	default:
		if m.RecomputesCriterion() {
			criteria = []string{m.CriterionID}
		}
	}

	for _, criterionID := range criteria {
		outcome, err := p.recomputeApproval(ctx, store, m.PairingID, criterionID)
		if err != nil {
			return report, err
		}
		report.Add(outcome)
	}

	outcome, err := p.recomputeCompletion(ctx, store, m.PairingID)
	if err != nil {
		return report, err
	}
	report.Add(outcome)
	return report, nil
}

// OnDocumentMutated refreshes completion, and approval when the state changed.
func (p *Propagator) OnDocumentMutated(ctx context.Context, store ports.Store, doc domain.Document, criterionID string, stateChanged bool) (domain.Report, error) {
	return p.Propagate(ctx, store, domain.DocumentUpdated(doc, criterionID, stateChanged))
}

// OnRosterChanged refreshes every criterion with per-employee slots and then completion.
func (p *Propagator) OnRosterChanged(ctx context.Context, store ports.Store, pairingID string) (domain.Report, error) {
	return p.Propagate(ctx, store, domain.RosterChanged(pairingID))
}

// Observe records the outcomes of a propagation. Call it after commit.
func (p *Propagator) Observe(report domain.Report) {
	for _, o := range report.Outcomes {
		p.recorder.ObserveRecompute(o.Kind, o.Status, o.Duration)
	}
}

func (p *Propagator) recomputeApproval(ctx context.Context, store ports.Store, pairingID, criterionID string) (domain.Outcome, error) {
	start := time.Now()
	outcome := domain.Outcome{
		Kind:        domain.PercentageApproval,
		PairingID:   pairingID,
		CriterionID: criterionID,
	}

	err := store.Savepoint(ctx, savepointApproval, func(ctx context.Context) error {
		percentage, err := p.approval.Calculate(ctx, store, criterionID, pairingID)
		if err != nil {
			return domain.WrapError(domain.ErrCalculation, "approval", err)
		}
		outcome.Percentage = percentage
		outcome.At = p.now().UTC()
		return store.Percentages().UpsertApproval(ctx, domain.CriterionApproval{
			PairingID:          pairingID,
			CriterionID:        criterionID,
			ApprovalPercentage: percentage,
			ComputedAt:         &outcome.At,
		})
	})
	if err == nil {
		outcome.Status = domain.OutcomeUpdated
		outcome.Duration = time.Since(start)
		return outcome, nil
	}
	if surfaced(err) {
		return outcome, err
	}

	slog.Warn("approval_recompute_failed",
		"pairing_id", pairingID,
		"criterion_id", criterionID,
		"error", err,
	)
	if markErr := p.markStale(ctx, store, func(ctx context.Context) error {
		return store.Percentages().MarkApprovalStale(ctx, pairingID, criterionID)
	}); markErr != nil {
		return outcome, markErr
	}
	outcome.Status = domain.OutcomeStale
	outcome.Err = err
	outcome.At = p.now().UTC()
	outcome.Duration = time.Since(start)
	return outcome, nil
}

func (p *Propagator) recomputeCompletion(ctx context.Context, store ports.Store, pairingID string) (domain.Outcome, error) {
	start := time.Now()
	outcome := domain.Outcome{
		Kind:      domain.PercentageCompletion,
		PairingID: pairingID,
	}

	err := store.Savepoint(ctx, savepointCompletion, func(ctx context.Context) error {
		breakdown, err := p.completion.Calculate(ctx, store, pairingID)
		if err != nil {
			return domain.WrapError(domain.ErrCalculation, "completion", err)
		}
		outcome.Percentage = breakdown.Percentage
		outcome.At = p.now().UTC()
		return store.Percentages().SetCompletion(ctx, pairingID, breakdown.Percentage, outcome.At)
	})
	if err == nil {
		outcome.Status = domain.OutcomeUpdated
		outcome.Duration = time.Since(start)
		return outcome, nil
	}
	if surfaced(err) {
		return outcome, err
	}

	slog.Warn("completion_recompute_failed", "pairing_id", pairingID, "error", err)
	if markErr := p.markStale(ctx, store, func(ctx context.Context) error {
		return store.Percentages().MarkCompletionStale(ctx, pairingID)
	}); markErr != nil {
		return outcome, markErr
	}
	outcome.Status = domain.OutcomeStale
	outcome.Err = err
	outcome.At = p.now().UTC()
	outcome.Duration = time.Since(start)
	return outcome, nil
}

// markStale flags a cache row. A missing pairing is returned; other failures
// are logged and leave the old value in place.
func (p *Propagator) markStale(ctx context.Context, store ports.Store, mark func(context.Context) error) error {
	err := store.Savepoint(ctx, savepointMarkStale, mark)
	if err == nil {
		return nil
	}
	if domain.IsNotFound(err) {
		return err
	}
	slog.Warn("mark_stale_failed", "error", err)
	return nil
}

// surfaced reports whether a recompute error belongs to the caller rather than
// the best-effort policy: a cache write hit a row that does not exist.
func surfaced(err error) bool {
	return !domain.IsKind(err, domain.ErrCalculation) && domain.IsNotFound(err)
}

func wrapPropagation(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("propagate percentages: %w", err)
}
