package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

type DocumentRepository struct {
	q dbtx
}

const selectDocument = `
SELECT d.id, d.name, d.subcriterion_id, d.pairing_id, COALESCE(d.employee_id, ''), d.state, d.comment,
	d.end_date, p.project_id, p.contractor_id, d.created_at, d.updated_at
FROM documents d
JOIN pairings p ON p.id = d.pairing_id
`

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO documents (id, name, subcriterion_id, pairing_id, employee_id, state, comment, end_date, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
`,
		doc.ID, doc.Name, doc.SubcriterionID, doc.PairingID, nullString(doc.EmployeeID), string(doc.State),
		doc.Comment, nullTime(doc.EndDate), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return classify("insert document", err)
	}
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.q.QueryRowContext(ctx, selectDocument+`WHERE d.id = $1`, id)
	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
		}
		return nil, classify("scan document", err)
	}
	return &doc, nil
}

func (r *DocumentRepository) Update(ctx context.Context, doc *domain.Document) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE documents
SET name = $2, state = $3, comment = $4, end_date = $5, updated_at = $6
WHERE id = $1
`, doc.ID, doc.Name, string(doc.State), doc.Comment, nullTime(doc.EndDate), doc.UpdatedAt)
	if err != nil {
		return classify("update document", err)
	}
	return expectAffected(res, domain.ErrDocumentNotFound, "update document", doc.ID)
}

func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return classify("delete document", err)
	}
	return expectAffected(res, domain.ErrDocumentNotFound, "delete document", id)
}

func (r *DocumentRepository) ListBySubcriterion(ctx context.Context, subcriterionID, pairingID string) ([]domain.Document, error) {
	return r.list(ctx, "list documents by subcriterion",
		`WHERE d.subcriterion_id = $1 AND d.pairing_id = $2`, subcriterionID, pairingID)
}

func (r *DocumentRepository) ListByEmployee(ctx context.Context, employeeID string) ([]domain.Document, error) {
	return r.list(ctx, "list documents by employee", `WHERE d.employee_id = $1`, employeeID)
}

func (r *DocumentRepository) ListByPairingState(ctx context.Context, pairingID string, state domain.DocumentState) ([]domain.Document, error) {
	return r.list(ctx, "list documents by state",
		`WHERE d.pairing_id = $1 AND d.state = $2`, pairingID, string(state))
}

func (r *DocumentRepository) ListByPairing(ctx context.Context, pairingID string) ([]domain.Document, error) {
	return r.list(ctx, "list documents by pairing", `WHERE d.pairing_id = $1`, pairingID)
}

func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string) ([]domain.Document, error) {
	return r.list(ctx, "list documents by project", `WHERE p.project_id = $1`, projectID)
}

func (r *DocumentRepository) ListByContractor(ctx context.Context, contractorID string) ([]domain.Document, error) {
	return r.list(ctx, "list documents by contractor", `WHERE p.contractor_id = $1`, contractorID)
}

// ListSlotStates returns the slot of every document of the pairing under the
// given subcriteria, newest first.
func (r *DocumentRepository) ListSlotStates(ctx context.Context, pairingID string, subcriterionIDs []string) ([]domain.SlotState, error) {
	out := make([]domain.SlotState, 0)
	if len(subcriterionIDs) == 0 {
		return out, nil
	}
	rows, err := r.q.QueryContext(ctx, `
SELECT subcriterion_id, COALESCE(employee_id, ''), state
FROM documents
WHERE pairing_id = $1 AND subcriterion_id = ANY($2)
ORDER BY updated_at DESC, id
`, pairingID, subcriterionIDs)
	if err != nil {
		return nil, classify("list slot states", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			st    domain.SlotState
			state string
		)
		if err := rows.Scan(&st.SubcriterionID, &st.EmployeeID, &state); err != nil {
			return nil, fmt.Errorf("scan slot state: %w", err)
		}
		st.State = domain.DocumentState(state)
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate slot states: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) list(ctx context.Context, op, where string, args ...any) ([]domain.Document, error) {
	rows, err := r.q.QueryContext(ctx, selectDocument+where+"\nORDER BY d.updated_at DESC, d.id", args...)
	if err != nil {
		return nil, classify(op, err)
	}
	defer rows.Close()

	out := make([]domain.Document, 0)
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: iterate: %w", op, err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (domain.Document, error) {
	var (
		doc     domain.Document
		state   string
		endDate sql.NullTime
	)
	err := row.Scan(
		&doc.ID, &doc.Name, &doc.SubcriterionID, &doc.PairingID, &doc.EmployeeID, &state, &doc.Comment,
		&endDate, &doc.ProjectID, &doc.ContractorID, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return domain.Document{}, err
	}
	doc.State = domain.DocumentState(state)
	doc.EndDate = timePtr(endDate)
	return doc, nil
}

func expectAffected(res sql.Result, kind error, op, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: rows affected: %w", op, err)
	}
	if affected == 0 {
		return domain.WrapError(kind, op, fmt.Errorf("id=%s", id))
	}
	return nil
}
