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

// RosterUseCase routes every roster mutation, updates included, through the
// propagator in the same transaction.
type RosterUseCase struct {
	uow        ports.UnitOfWork
	propagator *Propagator
	publisher  ports.EventPublisher
	now        func() time.Time
}

func NewRosterUseCase(uow ports.UnitOfWork, propagator *Propagator, publisher ports.EventPublisher, now func() time.Time) *RosterUseCase {
	if now == nil {
		now = time.Now
	}
	return &RosterUseCase{
		uow:        uow,
		propagator: propagator,
		publisher:  publisherOrNop(publisher),
		now:        now,
	}
}

func (uc *RosterUseCase) AddEmployee(ctx context.Context, pairingID, name string) (*domain.Employee, domain.Report, error) {
	pairingID = strings.TrimSpace(pairingID)
	name = strings.TrimSpace(name)
	if pairingID == "" || name == "" {
		return nil, domain.Report{}, domain.WrapError(domain.ErrInvalidInput, "add employee", errors.New("pairing_id and name are required"))
	}

	now := uc.now().UTC()
	employee := domain.Employee{
		ID:        uuid.NewString(),
		PairingID: pairingID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var report domain.Report
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		if _, err := store.Percentages().GetPairing(ctx, pairingID); err != nil {
			return fmt.Errorf("fetch pairing: %w", err)
		}
		if err := store.Roster().Create(ctx, &employee); err != nil {
			return fmt.Errorf("create employee: %w", err)
		}
		var err error
		report, err = uc.propagator.OnRosterChanged(ctx, store, pairingID)
		return wrapPropagation(err)
	})
	if err != nil {
		return nil, domain.Report{}, err
	}

	uc.propagator.Observe(report)
	publishReport(ctx, uc.publisher, report)
	return &employee, report, nil
}

func (uc *RosterUseCase) UpdateEmployee(ctx context.Context, id, name string) (*domain.Employee, domain.Report, error) {
	id = strings.TrimSpace(id)
	name = strings.TrimSpace(name)
	if id == "" || name == "" {
		return nil, domain.Report{}, domain.WrapError(domain.ErrInvalidInput, "update employee", errors.New("id and name are required"))
	}

	var (
		employee *domain.Employee
		report   domain.Report
	)
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		var err error
		employee, err = store.Roster().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("fetch employee: %w", err)
		}
		employee.Name = name
		employee.UpdatedAt = uc.now().UTC()
		if err := store.Roster().Update(ctx, employee); err != nil {
			return fmt.Errorf("update employee: %w", err)
		}
		report, err = uc.propagator.OnRosterChanged(ctx, store, employee.PairingID)
		return wrapPropagation(err)
	})
	if err != nil {
		return nil, domain.Report{}, err
	}

	uc.propagator.Observe(report)
	publishReport(ctx, uc.publisher, report)
	return employee, report, nil
}

// RemoveEmployee deletes the employee; their per-employee documents go with them.
func (uc *RosterUseCase) RemoveEmployee(ctx context.Context, id string) (domain.Report, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return domain.Report{}, domain.WrapError(domain.ErrInvalidInput, "remove employee", errors.New("id is required"))
	}

	var report domain.Report
	err := uc.uow.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		employee, err := store.Roster().GetByID(ctx, id)
		if err != nil {
			return fmt.Errorf("fetch employee: %w", err)
		}
		if err := store.Roster().Delete(ctx, id); err != nil {
			return fmt.Errorf("delete employee: %w", err)
		}
		report, err = uc.propagator.OnRosterChanged(ctx, store, employee.PairingID)
		return wrapPropagation(err)
	})
	if err != nil {
		return domain.Report{}, err
	}

	uc.propagator.Observe(report)
	publishReport(ctx, uc.publisher, report)
	return report, nil
}
