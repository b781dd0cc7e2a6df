package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

// PercentageRepository holds the cached approval and completion percentages.
type PercentageRepository struct {
	q dbtx
}

func (r *PercentageRepository) UpsertApproval(ctx context.Context, a domain.CriterionApproval) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO contractor_on_project_criteria (pairing_id, criterion_id, approval_percentage, stale, computed_at)
VALUES ($1,$2,$3,FALSE,$4)
ON CONFLICT (pairing_id, criterion_id) DO UPDATE
SET approval_percentage = EXCLUDED.approval_percentage, stale = FALSE, computed_at = EXCLUDED.computed_at
`, a.PairingID, a.CriterionID, domain.ClampPercent(a.ApprovalPercentage), nullTime(a.ComputedAt))
	if err != nil {
		return classify("upsert approval", err)
	}
	return nil
}

// MarkApprovalStale flags the row, creating it when no value was ever computed.
func (r *PercentageRepository) MarkApprovalStale(ctx context.Context, pairingID, criterionID string) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO contractor_on_project_criteria (pairing_id, criterion_id, stale)
VALUES ($1,$2,TRUE)
ON CONFLICT (pairing_id, criterion_id) DO UPDATE SET stale = TRUE
`, pairingID, criterionID)
	if err != nil {
		return classify("mark approval stale", err)
	}
	return nil
}

func (r *PercentageRepository) SetCompletion(ctx context.Context, pairingID string, percentage int, computedAt time.Time) error {
	res, err := r.q.ExecContext(ctx, `
UPDATE pairings
SET completion_percentage = $2, completion_stale = FALSE, completion_computed_at = $3
WHERE id = $1
`, pairingID, domain.ClampPercent(percentage), computedAt.UTC())
	if err != nil {
		return classify("set completion", err)
	}
	return expectAffected(res, domain.ErrPairingNotFound, "set completion", pairingID)
}

func (r *PercentageRepository) MarkCompletionStale(ctx context.Context, pairingID string) error {
	res, err := r.q.ExecContext(ctx, `UPDATE pairings SET completion_stale = TRUE WHERE id = $1`, pairingID)
	if err != nil {
		return classify("mark completion stale", err)
	}
	return expectAffected(res, domain.ErrPairingNotFound, "mark completion stale", pairingID)
}

func (r *PercentageRepository) GetPairing(ctx context.Context, pairingID string) (*domain.Pairing, error) {
	var (
		p          domain.Pairing
		computedAt sql.NullTime
	)
	err := r.q.QueryRowContext(ctx, `
SELECT id, project_id, contractor_id, completion_percentage, completion_stale, completion_computed_at
FROM pairings
WHERE id = $1
`, pairingID).Scan(&p.ID, &p.ProjectID, &p.ContractorID, &p.CompletionPercentage, &p.CompletionStale, &computedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrPairingNotFound, "get pairing", fmt.Errorf("id=%s", pairingID))
		}
		return nil, classify("scan pairing", err)
	}
	p.CompletionComputedAt = timePtr(computedAt)
	return &p, nil
}

func (r *PercentageRepository) ListApprovals(ctx context.Context, pairingID string) ([]domain.CriterionApproval, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT pairing_id, criterion_id, approval_percentage, stale, computed_at
FROM contractor_on_project_criteria
WHERE pairing_id = $1
ORDER BY criterion_id
`, pairingID)
	if err != nil {
		return nil, classify("list approvals", err)
	}
	defer rows.Close()

	out := make([]domain.CriterionApproval, 0)
	for rows.Next() {
		var (
			a          domain.CriterionApproval
			computedAt sql.NullTime
		)
		if err := rows.Scan(&a.PairingID, &a.CriterionID, &a.ApprovalPercentage, &a.Stale, &computedAt); err != nil {
			return nil, fmt.Errorf("scan approval: %w", err)
		}
		a.ComputedAt = timePtr(computedAt)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate approvals: %w", err)
	}
	return out, nil
}
