package ports

import (
	"context"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

// DocumentRepository persists and reads compliance documents.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	Update(ctx context.Context, doc *domain.Document) error
	Delete(ctx context.Context, id string) error

	ListBySubcriterion(ctx context.Context, subcriterionID, pairingID string) ([]domain.Document, error)
	ListByEmployee(ctx context.Context, employeeID string) ([]domain.Document, error)
	ListByPairingState(ctx context.Context, pairingID string, state domain.DocumentState) ([]domain.Document, error)
	ListByPairing(ctx context.Context, pairingID string) ([]domain.Document, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Document, error)
	ListByContractor(ctx context.Context, contractorID string) ([]domain.Document, error)

	// ListSlotStates returns the states of a pairing's documents for the given
	// subcriteria, most recently updated first.
	ListSlotStates(ctx context.Context, pairingID string, subcriterionIDs []string) ([]domain.SlotState, error)
}

// AuditRepository is the append-only store of state transitions.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.DocumentStateAudit) error
	LastTransitionTime(ctx context.Context, documentID string) (time.Time, bool, error)
	// ListByDocument returns the history newest first.
	ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentStateAudit, error)
}

// CriteriaReader reads criterion configuration owned by another service.
type CriteriaReader interface {
	GetSubcriterion(ctx context.Context, id string) (*domain.Subcriterion, error)
	ListSubcriteriaByCriterion(ctx context.Context, criterionID string) ([]domain.Subcriterion, error)
	ListSubcriteriaByDocumentType(ctx context.Context, documentType domain.DocumentType) ([]domain.Subcriterion, error)
	ListPerEmployeeSubcriteria(ctx context.Context) ([]domain.Subcriterion, error)
}

// RosterRepository persists the employees of a pairing.
type RosterRepository interface {
	Create(ctx context.Context, employee *domain.Employee) error
	GetByID(ctx context.Context, id string) (*domain.Employee, error)
	Update(ctx context.Context, employee *domain.Employee) error
	Delete(ctx context.Context, id string) error
	ListByPairing(ctx context.Context, pairingID string) ([]domain.Employee, error)
}

// PercentageCache holds the derived completion and approval percentages.
type PercentageCache interface {
	UpsertApproval(ctx context.Context, approval domain.CriterionApproval) error
	MarkApprovalStale(ctx context.Context, pairingID, criterionID string) error
	SetCompletion(ctx context.Context, pairingID string, percentage int, computedAt time.Time) error
	MarkCompletionStale(ctx context.Context, pairingID string) error

	GetPairing(ctx context.Context, pairingID string) (*domain.Pairing, error)
	ListApprovals(ctx context.Context, pairingID string) ([]domain.CriterionApproval, error)
}

// Store is a set of repositories bound to one connection or transaction.
type Store interface {
	Documents() DocumentRepository
	Audits() AuditRepository
	Criteria() CriteriaReader
	Roster() RosterRepository
	Percentages() PercentageCache

	// Savepoint runs fn so that its failure is undone without aborting the
	// surrounding transaction. The error from fn is returned unchanged.
	Savepoint(ctx context.Context, name string, fn func(context.Context) error) error
}

// UnitOfWork runs a mutation and its recomputation in one transaction.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
	// Reader returns a non-transactional store for side-effect-free reads.
	Reader() Store
}

// EventPublisher notifies collaborators about recomputed percentages.
type EventPublisher interface {
	PublishPercentageChanged(ctx context.Context, events []domain.PercentageEvent) error
}

// RecomputeRecorder observes recomputation and audit activity.
type RecomputeRecorder interface {
	ObserveRecompute(kind domain.PercentageKind, status domain.OutcomeStatus, duration time.Duration)
	ObserveTransition(from, to domain.DocumentState)
}
