package resilience

import (
	"context"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

const operationTx = "postgres.tx"

// UnitOfWork reruns whole transactions that failed with a temporary error,
// such as a serialization failure or a deadlock.
type UnitOfWork struct {
	inner    ports.UnitOfWork
	executor *Executor
}

func NewUnitOfWork(inner ports.UnitOfWork, executor *Executor) *UnitOfWork {
	return &UnitOfWork{inner: inner, executor: executor}
}

func (u *UnitOfWork) WithinTx(ctx context.Context, fn func(context.Context, ports.Store) error) error {
	if u.executor == nil {
		return u.inner.WithinTx(ctx, fn)
	}
	err := u.executor.Execute(ctx, operationTx, func(ctx context.Context) error {
		return u.inner.WithinTx(ctx, fn)
	}, ClassifyDomain)
	if IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, operationTx, err)
	}
	return err
}

func (u *UnitOfWork) Reader() ports.Store {
	return u.inner.Reader()
}
