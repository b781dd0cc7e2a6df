package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

// AuditRepository is append-only. Rows are kept after their document is deleted.
type AuditRepository struct {
	q dbtx
}

func (r *AuditRepository) Append(ctx context.Context, entry *domain.DocumentStateAudit) error {
	_, err := r.q.ExecContext(ctx, `
INSERT INTO document_state_audits (id, document_id, previous_state, new_state, actor_id, comment, time_in_previous_state_hours, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
`,
		entry.ID, entry.DocumentID, string(entry.PreviousState), string(entry.NewState),
		entry.ActorID, entry.Comment, entry.TimeInPreviousStateHours, entry.CreatedAt,
	)
	if err != nil {
		return classify("append audit", err)
	}
	return nil
}

func (r *AuditRepository) LastTransitionTime(ctx context.Context, documentID string) (time.Time, bool, error) {
	var at time.Time
	err := r.q.QueryRowContext(ctx, `
SELECT created_at
FROM document_state_audits
WHERE document_id = $1
ORDER BY created_at DESC, seq DESC
LIMIT 1
`, documentID).Scan(&at)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, false, nil
		}
		return time.Time{}, false, classify("last transition", err)
	}
	return at.UTC(), true, nil
}

func (r *AuditRepository) ListByDocument(ctx context.Context, documentID string) ([]domain.DocumentStateAudit, error) {
	rows, err := r.q.QueryContext(ctx, `
SELECT id, document_id, previous_state, new_state, actor_id, comment, time_in_previous_state_hours, created_at
FROM document_state_audits
WHERE document_id = $1
ORDER BY created_at DESC, seq DESC
`, documentID)
	if err != nil {
		return nil, classify("list audits", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentStateAudit, 0)
	for rows.Next() {
		var (
			entry    domain.DocumentStateAudit
			previous string
			next     string
		)
		if err := rows.Scan(
			&entry.ID, &entry.DocumentID, &previous, &next, &entry.ActorID, &entry.Comment,
			&entry.TimeInPreviousStateHours, &entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		entry.PreviousState = domain.DocumentState(previous)
		entry.NewState = domain.DocumentState(next)
		out = append(out, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audits: %w", err)
	}
	return out, nil
}
