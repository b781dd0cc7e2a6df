package postgres

import (
	"context"
	"fmt"
)

const schemaLockID int64 = 2026101601

const schemaDDL = `
CREATE TABLE IF NOT EXISTS pairings (
	id TEXT PRIMARY KEY,
	project_id TEXT NOT NULL,
	contractor_id TEXT NOT NULL,
	completion_percentage INTEGER NOT NULL DEFAULT 0
		CONSTRAINT pairings_completion_range CHECK (completion_percentage BETWEEN 0 AND 100),
	completion_stale BOOLEAN NOT NULL DEFAULT FALSE,
	completion_computed_at TIMESTAMPTZ,
	UNIQUE (project_id, contractor_id)
);

CREATE TABLE IF NOT EXISTS criteria (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	document_type TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS subcriteria (
	id TEXT PRIMARY KEY,
	criterion_id TEXT NOT NULL CONSTRAINT subcriteria_criterion_fk REFERENCES criteria(id),
	name TEXT NOT NULL,
	employee_required BOOLEAN NOT NULL DEFAULT FALSE,
	multiple_required BOOLEAN NOT NULL DEFAULT FALSE
);

CREATE TABLE IF NOT EXISTS employees (
	id TEXT PRIMARY KEY,
	pairing_id TEXT NOT NULL CONSTRAINT employees_pairing_fk REFERENCES pairings(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT employees_id_pairing_key UNIQUE (id, pairing_id)
);

CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	subcriterion_id TEXT NOT NULL CONSTRAINT documents_subcriterion_fk REFERENCES subcriteria(id),
	pairing_id TEXT NOT NULL CONSTRAINT documents_pairing_fk REFERENCES pairings(id) ON DELETE CASCADE,
	employee_id TEXT,
	state TEXT NOT NULL
		CONSTRAINT documents_state_check CHECK (state IN ('pending','submitted','approved','rejected','not_applicable')),
	comment TEXT NOT NULL DEFAULT '',
	end_date TIMESTAMPTZ,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT documents_employee_fk FOREIGN KEY (employee_id, pairing_id)
		REFERENCES employees(id, pairing_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_documents_pairing_sub ON documents(pairing_id, subcriterion_id, updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_documents_employee ON documents(employee_id);

CREATE TABLE IF NOT EXISTS document_state_audits (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	document_id TEXT NOT NULL,
	previous_state TEXT NOT NULL,
	new_state TEXT NOT NULL,
	actor_id TEXT NOT NULL DEFAULT '',
	comment TEXT NOT NULL DEFAULT '',
	time_in_previous_state_hours INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audits_document ON document_state_audits(document_id, created_at DESC, seq DESC);

CREATE TABLE IF NOT EXISTS contractor_on_project_criteria (
	pairing_id TEXT NOT NULL CONSTRAINT approvals_pairing_fk REFERENCES pairings(id) ON DELETE CASCADE,
	criterion_id TEXT NOT NULL CONSTRAINT approvals_criterion_fk REFERENCES criteria(id),
	approval_percentage INTEGER NOT NULL DEFAULT 0
		CONSTRAINT approvals_range CHECK (approval_percentage BETWEEN 0 AND 100),
	stale BOOLEAN NOT NULL DEFAULT FALSE,
	computed_at TIMESTAMPTZ,
	PRIMARY KEY (pairing_id, criterion_id)
);
`

// EnsureSchema creates the tables. Concurrent startups serialize on an
// advisory lock.
func (s *Store) EnsureSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}
	if _, err := tx.ExecContext(ctx, schemaDDL); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
