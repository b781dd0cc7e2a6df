package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// AuditTrail appends state transitions and serves their history.
type AuditTrail struct {
	uow      ports.UnitOfWork
	recorder ports.RecomputeRecorder
	now      func() time.Time
}

func NewAuditTrail(uow ports.UnitOfWork, recorder ports.RecomputeRecorder, now func() time.Time) *AuditTrail {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if now == nil {
		now = time.Now
	}
	return &AuditTrail{uow: uow, recorder: recorder, now: now}
}

// Record appends the transition from -> to. For creations (from == none) the
// elapsed time is zero; otherwise it is the whole hours since the document's
// last transition. A clock behind the last transition is clamped to it so
// timestamps never go backwards.
func (t *AuditTrail) Record(
	ctx context.Context,
	store ports.Store,
	documentID string,
	from, to domain.DocumentState,
	actorID, comment string,
) (*domain.DocumentStateAudit, error) {
	now := t.now().UTC()
	hours := 0
	if from != domain.StateNone {
		last, ok, err := store.Audits().LastTransitionTime(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("read last transition: %w", err)
		}
		if ok {
			if now.Before(last) {
				now = last
			}
			hours = domain.ElapsedHours(last, now)
		}
	}

	entry := &domain.DocumentStateAudit{
		ID:                       uuid.NewString(),
		DocumentID:               documentID,
		PreviousState:            from,
		NewState:                 to,
		ActorID:                  strings.TrimSpace(actorID),
		Comment:                  comment,
		TimeInPreviousStateHours: hours,
		CreatedAt:                now,
	}
	if err := store.Audits().Append(ctx, entry); err != nil {
		return nil, fmt.Errorf("append audit: %w", err)
	}
	return entry, nil
}

// Observe records committed transitions. Nil entries are skipped.
func (t *AuditTrail) Observe(entries ...*domain.DocumentStateAudit) {
	for _, e := range entries {
		if e != nil {
			t.recorder.ObserveTransition(e.PreviousState, e.NewState)
		}
	}
}

func (t *AuditTrail) LastTransitionTime(ctx context.Context, documentID string) (time.Time, bool, error) {
	return t.uow.Reader().Audits().LastTransitionTime(ctx, documentID)
}

// History returns transitions newest first. Deleted documents keep their history.
func (t *AuditTrail) History(ctx context.Context, documentID string) ([]domain.DocumentStateAudit, error) {
	if strings.TrimSpace(documentID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "audit history", fmt.Errorf("document id is required"))
	}
	history, err := t.uow.Reader().Audits().ListByDocument(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("list audit history: %w", err)
	}
	return history, nil
}

func (t *AuditTrail) Summary(ctx context.Context, documentID string) (domain.AuditSummary, error) {
	history, err := t.History(ctx, documentID)
	if err != nil {
		return domain.AuditSummary{}, err
	}
	return domain.SummarizeAudit(documentID, history), nil
}
