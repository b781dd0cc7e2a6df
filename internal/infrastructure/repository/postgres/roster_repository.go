package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

type RosterRepository struct {
	q dbtx
}

func (r *RosterRepository) Create(ctx context.Context, e *domain.Employee) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO employees (id, pairing_id, name, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5)
`, e.ID, e.PairingID, e.Name, e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return classify("insert employee", err)
	}
	return nil
}

func (r *RosterRepository) GetByID(ctx context.Context, id string) (*domain.Employee, error) {
	var e domain.Employee
	err := r.q.QueryRowContext(ctx, `
SELECT id, pairing_id, name, created_at, updated_at
FROM employees
WHERE id = $1
`, id).Scan(&e.ID, &e.PairingID, &e.Name, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrEmployeeNotFound, "get employee", fmt.Errorf("id=%s", id))
		}
		return nil, classify("scan employee", err)
	}
	return &e, nil
}

func (r *RosterRepository) Update(ctx context.Context, e *domain.Employee) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE employees SET name = $2, updated_at = $3 WHERE id = $1
`, e.ID, e.Name, e.UpdatedAt)
	if err != nil {
		return classify("update employee", err)
	}
	return expectAffected(res, domain.ErrEmployeeNotFound, "update employee", e.ID)
}

// Delete removes the employee; the schema cascades to their documents.
func (r *RosterRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		return classify("delete employee", err)
	}
	return expectAffected(res, domain.ErrEmployeeNotFound, "delete employee", id)
}

func (r *RosterRepository) ListByPairing(ctx context.Context, pairingID string) ([]domain.Employee, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT id, pairing_id, name, created_at, updated_at
FROM employees
WHERE pairing_id = $1
ORDER BY created_at, id
`, pairingID)
	if err != nil {
		return nil, classify("list employees", err)
	}
	defer rows.Close()

	out := make([]domain.Employee, 0)
	for rows.Next() {
		var e domain.Employee
		if err := rows.Scan(&e.ID, &e.PairingID, &e.Name, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan employee: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate employees: %w", err)
	}
	return out, nil
}
