package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// CriteriaRepository reads the criteria catalog.
type CriteriaRepository struct {
	q dbtx
}

const selectSubcriterion = `
SELECT s.id, s.criterion_id, s.name, s.employee_required, s.multiple_required
FROM subcriteria s
`

func (r *CriteriaRepository) GetSubcriterion(ctx context.Context, id string) (*domain.Subcriterion, error) {
	sub, err := scanSubcriterion(r.q.QueryRowContext(ctx, selectSubcriterion+`WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrInvalidInput, "get subcriterion", fmt.Errorf("unknown subcriterion %s", id))
		}
		return nil, classify("get subcriterion", err)
	}
	return &sub, nil
}

func (r *CriteriaRepository) ListSubcriteriaByCriterion(ctx context.Context, criterionID string) ([]domain.Subcriterion, error) {
	return r.list(ctx, "list subcriteria by criterion", selectSubcriterion+`WHERE s.criterion_id = $1`, criterionID)
}

func (r *CriteriaRepository) ListSubcriteriaByDocumentType(ctx context.Context, docType domain.DocumentType) ([]domain.Subcriterion, error) {
	return r.list(ctx, "list subcriteria by document type",
		selectSubcriterion+`JOIN criteria c ON c.id = s.criterion_id WHERE c.document_type = $1`, string(docType))
}

func (r *CriteriaRepository) ListPerEmployeeSubcriteria(ctx context.Context) ([]domain.Subcriterion, error) {
	return r.list(ctx, "list per-employee subcriteria", selectSubcriterion+`WHERE s.employee_required`)
}

func (r *CriteriaRepository) list(ctx context.Context, op, query string, args ...any) ([]domain.Subcriterion, error) {
	rows, err := r.q.QueryContext(ctx, query+"\nORDER BY s.criterion_id, s.id", args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	out := make([]domain.Subcriterion, 0)
	for rows.Next() {
		sub, err := scanSubcriterion(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

func scanSubcriterion(row rowScanner) (domain.Subcriterion, error) {
	var (
		sub              domain.Subcriterion
		employeeRequired bool
	)
	if err := row.Scan(&sub.ID, &sub.CriterionID, &sub.Name, &employeeRequired, &sub.MultipleRequired); err != nil {
		return domain.Subcriterion{}, err
	}
	sub.Slot = domain.SlotRuleFor(employeeRequired)
	return sub, nil
}

// SeedCatalog upserts reference data in one transaction. Cached percentages
// of existing pairings are left untouched.
func (s *Store) SeedCatalog(ctx context.Context, catalog domain.Catalog) error {
	if err := catalog.Validate(); err != nil {
		return err
	}
	return s.WithinTx(ctx, func(ctx context.Context, store ports.Store) error {
		q := store.(*Store).q
		for _, cr := range catalog.Criteria {
			if _, err := q.ExecContext(ctx, `
INSERT INTO criteria (id, name, document_type) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, document_type = EXCLUDED.document_type
`, cr.ID, cr.Name, string(cr.DocumentType)); err != nil {
				return classify("seed criterion "+cr.ID, err)
			}
		}
		for _, sub := range catalog.Subcriteria {
			if _, err := q.ExecContext(ctx, `
INSERT INTO subcriteria (id, criterion_id, name, employee_required, multiple_required) VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (id) DO UPDATE SET criterion_id = EXCLUDED.criterion_id, name = EXCLUDED.name,
	employee_required = EXCLUDED.employee_required, multiple_required = EXCLUDED.multiple_required
`, sub.ID, sub.CriterionID, sub.Name, domain.EmployeeRequired(sub.Slot), sub.MultipleRequired); err != nil {
				return classify("seed subcriterion "+sub.ID, err)
			}
		}
		for _, p := range catalog.Pairings {
			if _, err := q.ExecContext(ctx, `
INSERT INTO pairings (id, project_id, contractor_id) VALUES ($1,$2,$3)
ON CONFLICT (id) DO UPDATE SET project_id = EXCLUDED.project_id, contractor_id = EXCLUDED.contractor_id
`, p.ID, p.ProjectID, p.ContractorID); err != nil {
				return classify("seed pairing "+p.ID, err)
			}
		}
		return nil
	})
}
