package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

// Foreign keys whose violation means the referenced row is missing.
var missingByConstraint = map[string]error{
	"documents_pairing_fk":  domain.ErrPairingNotFound,
	"employees_pairing_fk":  domain.ErrPairingNotFound,
	"approvals_pairing_fk":  domain.ErrPairingNotFound,
	"documents_employee_fk": domain.ErrEmployeeNotFound,
}

// classify maps driver errors onto domain kinds.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	switch pgErr.Code {
	case "23503":
		if kind, ok := missingByConstraint[pgErr.ConstraintName]; ok {
			return domain.WrapError(kind, operation, err)
		}
		return domain.WrapError(domain.ErrInvalidInput, operation, err)
	case "23505", "23514", "22P02", "22001":
		return domain.WrapError(domain.ErrInvalidInput, operation, err)
	case "40001", "40P01", "55P03":
		return domain.WrapError(domain.ErrTemporary, operation, err)
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
