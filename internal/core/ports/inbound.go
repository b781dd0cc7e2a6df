package ports

import (
	"context"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

// DocumentService is the inbound contract of the document upload/review workflow.
type DocumentService interface {
	Create(ctx context.Context, doc domain.Document, actorID string) (*domain.Document, domain.Report, error)
	Update(ctx context.Context, patch domain.DocumentPatch, actorID string) (*domain.Document, domain.Report, error)
	Delete(ctx context.Context, id string) (domain.Report, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error)
}

// AuditService exposes the transition history to SLA and audit reporting.
type AuditService interface {
	History(ctx context.Context, documentID string) ([]domain.DocumentStateAudit, error)
	Summary(ctx context.Context, documentID string) (domain.AuditSummary, error)
}

// RecomputeService exposes explicit recomputation and the percentage read model.
type RecomputeService interface {
	RecomputeCompletion(ctx context.Context, pairingID string) (domain.Outcome, error)
	RecomputeApproval(ctx context.Context, pairingID, criterionID string) (domain.Outcome, error)
	CompletionBreakdown(ctx context.Context, pairingID string) (domain.CompletionBreakdown, error)
	PairingPercentages(ctx context.Context, pairingID string) (*domain.PairingPercentages, error)
}

// RosterService mutates a pairing's roster and keeps percentages in step.
type RosterService interface {
	AddEmployee(ctx context.Context, pairingID, name string) (*domain.Employee, domain.Report, error)
	UpdateEmployee(ctx context.Context, id, name string) (*domain.Employee, domain.Report, error)
	RemoveEmployee(ctx context.Context, id string) (domain.Report, error)
}
