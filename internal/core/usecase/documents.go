package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// DocumentUseCase owns the document lifecycle. Every write, its audit row and
// the percentage recomputation share one transaction.
type DocumentUseCase struct {
	uow        ports.UnitOfWork
	audit      *AuditTrail
	propagator *Propagator
	publisher  ports.EventPublisher
	now        func() time.Time
}

func NewDocumentUseCase(
	uow ports.UnitOfWork,
	audit *AuditTrail,
	propagator *Propagator,
	publisher ports.EventPublisher,
	now func() time.Time,
) *DocumentUseCase {
	if now == nil {
		now = time.Now
	}
	return &DocumentUseCase{
		uow:        uow,
		audit:      audit,
		propagator: propagator,
		publisher:  publisherOrNop(publisher),
		now:        now,
	}
}

func (uc *DocumentUseCase) Create(ctx context.Context, doc domain.Document, actorID string) (*domain.Document, domain.Report, error) {
	doc.Name = strings.TrimSpace(doc.Name)
	doc.EmployeeID = strings.TrimSpace(doc.EmployeeID)
	if err := doc.Validate(); err != nil {
		return nil, domain.Report{}, err
	}

	now := uc.now().UTC()
	doc.ID = uuid.NewString()
	doc.CreatedAt = now
	doc.UpdatedAt = now

	var (
		report domain.Report
		entry  *domain.DocumentStateAudit
	)
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		sub, err := uc.loadSubcriterion(ctx, store, doc.SubcriterionID)
		if err != nil {
			return err
		}
		if err := sub.CheckEmployee(doc.EmployeeID); err != nil {
			return err
		}
		if err := checkRosterMember(ctx, store, doc); err != nil {
			return err
		}
		if err := store.Documents().Create(ctx, &doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}
		entry, err = uc.audit.Record(ctx, store, doc.ID, domain.StateNone, doc.State, actorID, doc.Comment)
		if err != nil {
			return err
		}
		report, err = uc.propagator.Propagate(ctx, store, domain.DocumentCreated(doc, sub.CriterionID))
		return wrapPropagation(err)
	})
	if err != nil {
		return nil, domain.Report{}, err
	}

	uc.committed(ctx, report, entry)
	return &doc, report, nil
}

// Update merges the patch into the stored document. An audit row is written
// only when the state changes; approval is recomputed only then as well.
func (uc *DocumentUseCase) Update(ctx context.Context, patch domain.DocumentPatch, actorID string) (*domain.Document, domain.Report, error) {
	if err := patch.Validate(); err != nil {
		return nil, domain.Report{}, err
	}

	var (
		updated domain.Document
		report  domain.Report
		entry   *domain.DocumentStateAudit
	)
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		entry = nil
		current, err := store.Documents().GetByID(ctx, patch.ID)
		if err != nil {
			return fmt.Errorf("fetch document by id: %w", err)
		}
		previous := current.State

		updated = patch.Apply(*current)
		updated.UpdatedAt = uc.now().UTC()
		if err := store.Documents().Update(ctx, &updated); err != nil {
			return fmt.Errorf("update document: %w", err)
		}

		stateChanged := updated.State != previous
		if stateChanged {
			comment := ""
			if patch.Comment != nil {
				comment = *patch.Comment
			}
			entry, err = uc.audit.Record(ctx, store, updated.ID, previous, updated.State, actorID, comment)
			if err != nil {
				return err
			}
		}

		sub, err := uc.loadSubcriterion(ctx, store, updated.SubcriterionID)
		if err != nil {
			return err
		}
		report, err = uc.propagator.Propagate(ctx, store, domain.DocumentUpdated(updated, sub.CriterionID, stateChanged))
		return wrapPropagation(err)
	})
	if err != nil {
		return nil, domain.Report{}, err
	}

	uc.committed(ctx, report, entry)
	return &updated, report, nil
}

// Delete removes the document and refreshes both percentages it fed into.
func (uc *DocumentUseCase) Delete(ctx context.Context, id string) (domain.Report, error) {
	if strings.TrimSpace(id) == "" {
		return domain.Report{}, domain.WrapError(domain.ErrInvalidInput, "delete document", errors.New("id is required"))
	}

	var report domain.Report
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		doc, err := store.Documents().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("fetch document by id: %w", err)
		}
		sub, err := uc.loadSubcriterion(ctx, store, doc.SubcriterionID)
		if err != nil {
			return err
		}
		if err := store.Documents().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		report, err = uc.propagator.Propagate(ctx, store, domain.DocumentDeleted(*doc, sub.CriterionID))
		return wrapPropagation(err)
	})
	if err != nil {
		return domain.Report{}, err
	}

	uc.committed(ctx, report, nil)
	return report, nil
}

func (uc *DocumentUseCase) Get(ctx context.Context, id string) (*domain.Document, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "get document", errors.New("id is required"))
	}
	return uc.uow.Reader().Documents().GetByID(ctx, id)
}

// List dispatches to exactly one read path of the store.
func (uc *DocumentUseCase) List(ctx context.Context, filter domain.DocumentFilter) ([]domain.Document, error) {
	docs := uc.uow.Reader().Documents()
	switch {
	case filter.SubcriterionID != "":
		if filter.PairingID == "" {
			return nil, domain.WrapError(domain.ErrInvalidInput, "list documents", errors.New("pairing_id is required with subcriterion_id"))
		}
		return docs.ListBySubcriterion(ctx, filter.SubcriterionID, filter.PairingID)
	case filter.PairingID != "" && filter.State != "":
		if !filter.State.Valid() {
			return nil, domain.WrapError(domain.ErrInvalidInput, "list documents", fmt.Errorf("unknown state %q", filter.State))
		}
		return docs.ListByPairingState(ctx, filter.PairingID, filter.State)
	case filter.PairingID != "":
		return docs.ListByPairing(ctx, filter.PairingID)
	case filter.EmployeeID != "":
		return docs.ListByEmployee(ctx, filter.EmployeeID)
	case filter.ProjectID != "":
		return docs.ListByProject(ctx, filter.ProjectID)
	case filter.ContractorID != "":
		return docs.ListByContractor(ctx, filter.ContractorID)
	default:
		return nil, domain.WrapError(domain.ErrInvalidInput, "list documents", errors.New("one of pairing_id, subcriterion_id, employee_id, project_id, contractor_id is required"))
	}
}

// committed records metrics and publishes events for a committed mutation.
func (uc *DocumentUseCase) committed(ctx context.Context, report domain.Report, entry *domain.DocumentStateAudit) {
	uc.audit.Observe(entry)
	uc.propagator.Observe(report)
	publishReport(ctx, uc.publisher, report)
}

// checkRosterMember rejects a document naming an employee of another pairing;
// such a document would fill a slot the pairing's roster does not have.
func checkRosterMember(ctx context.Context, store ports.Store, doc domain.Document) error {
	if doc.EmployeeID == "" {
		return nil
	}
	employee, err := store.Roster().GetByID(ctx, doc.EmployeeID)
	if err != nil {
		return fmt.Errorf("fetch employee %s: %w", doc.EmployeeID, err)
	}
	if employee.PairingID != doc.PairingID {
		return domain.WrapError(domain.ErrInvalidInput, "create document",
			fmt.Errorf("employee %s belongs to pairing %s, not %s", employee.ID, employee.PairingID, doc.PairingID))
	}
	return nil
}

func (uc *DocumentUseCase) loadSubcriterion(ctx context.Context, store ports.Store, id string) (*domain.Subcriterion, error) {
	sub, err := store.Criteria().GetSubcriterion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch subcriterion %s: %w", id, err)
	}
	return sub, nil
}
