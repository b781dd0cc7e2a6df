package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// arrayConverter lets []string arguments through, as the pgx driver does.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newStoreWithMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return NewStore(db), mock, func() { _ = db.Close() }
}

func expectMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

var documentColumns = []string{
	"id", "name", "subcriterion_id", "pairing_id", "employee_id", "state", "comment",
	"end_date", "project_id", "contractor_id", "created_at", "updated_at",
}

func TestEnsureSchemaTakesAdvisoryLock(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("pg_advisory_xact_lock").WithArgs(schemaLockID).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pairings").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	if err := store.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema() error = %v", err)
	}
	expectMet(t, mock)
}

func TestWithinTxCommitsAfterSavepointRollback(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^SAVEPOINT "recompute_completion"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("UPDATE pairings").WillReturnError(errors.New("canceling statement due to statement timeout"))
	mock.ExpectExec(`^ROLLBACK TO SAVEPOINT "recompute_completion"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	var inner error
	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.Store) error {
		doc := &domain.Document{ID: "d1", Name: "plan.pdf", State: domain.StateApproved, UpdatedAt: time.Now()}
		if err := tx.Documents().Update(ctx, doc); err != nil {
			return err
		}
		inner = tx.Savepoint(ctx, "recompute_completion", func(ctx context.Context) error {
			return tx.Percentages().SetCompletion(ctx, "p1", 50, time.Now())
		})
		return nil
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}
	if inner == nil {
		t.Fatalf("expected savepoint body error")
	}
	expectMet(t, mock)
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinTx(context.Background(), func(context.Context, ports.Store) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	expectMet(t, mock)
}

func TestSavepointReleasesOnSuccess(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(`^SAVEPOINT "mark_stale"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^UPDATE pairings SET completion_stale").WithArgs("p1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`^RELEASE SAVEPOINT "mark_stale"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(ctx context.Context, tx ports.Store) error {
		return tx.Savepoint(ctx, "mark_stale", func(ctx context.Context) error {
			return tx.Percentages().MarkCompletionStale(ctx, "p1")
		})
	})
	if err != nil {
		t.Fatalf("WithinTx() error = %v", err)
	}
	expectMet(t, mock)
}

func TestSavepointOutsideTxRunsDirectly(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	called := false
	if err := store.Savepoint(context.Background(), "x", func(context.Context) error {
		called = true
		return nil
	}); err != nil {
		t.Fatalf("Savepoint() error = %v", err)
	}
	if !called {
		t.Fatalf("expected fn to run")
	}
	expectMet(t, mock)
}

func TestDocumentGetByIDReturnsDomainNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("FROM documents d").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := store.Documents().GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestDocumentGetByIDScansJoinedPairing(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	now := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(documentColumns).
		AddRow("d1", "cert.pdf", "s1", "p1", "e1", "submitted", "", nil, "proj-1", "ctr-1", now, now)
	mock.ExpectQuery("JOIN pairings p").WithArgs("d1").WillReturnRows(rows)

	doc, err := store.Documents().GetByID(context.Background(), "d1")
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if doc.State != domain.StateSubmitted || doc.ProjectID != "proj-1" || doc.EmployeeID != "e1" || doc.EndDate != nil {
		t.Fatalf("unexpected document: %+v", doc)
	}
	expectMet(t, mock)
}

func TestDocumentUpdateReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Documents().Update(context.Background(), &domain.Document{ID: "missing", State: domain.StatePending})
	if !domain.IsKind(err, domain.ErrDocumentNotFound) {
		t.Fatalf("expected ErrDocumentNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestDocumentCreateMapsMissingPairing(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO documents").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "documents_pairing_fk"})

	err := store.Documents().Create(context.Background(), &domain.Document{ID: "d1", PairingID: "ghost"})
	if !domain.IsKind(err, domain.ErrPairingNotFound) {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestListSlotStatesNewestFirst(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"subcriterion_id", "employee_id", "state"}).
		AddRow("s1", "", "approved").
		AddRow("s2", "e1", "not_applicable")
	mock.ExpectQuery("subcriterion_id = ANY").
		WithArgs("p1", sqlmock.AnyArg()).
		WillReturnRows(rows)

	states, err := store.Documents().ListSlotStates(context.Background(), "p1", []string{"s1", "s2"})
	if err != nil {
		t.Fatalf("ListSlotStates() error = %v", err)
	}
	if len(states) != 2 || states[1].State != domain.StateNotApplicable || states[1].EmployeeID != "e1" {
		t.Fatalf("unexpected states: %+v", states)
	}
	expectMet(t, mock)
}

func TestListSlotStatesSkipsQueryWithoutSubcriteria(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	states, err := store.Documents().ListSlotStates(context.Background(), "p1", nil)
	if err != nil || len(states) != 0 {
		t.Fatalf("expected empty result, got %v, %v", states, err)
	}
	expectMet(t, mock)
}

func TestLastTransitionTimeWithoutHistory(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("FROM document_state_audits").WithArgs("d1").WillReturnError(sql.ErrNoRows)

	_, ok, err := store.Audits().LastTransitionTime(context.Background(), "d1")
	if err != nil || ok {
		t.Fatalf("expected no transition, got ok=%v err=%v", ok, err)
	}
	expectMet(t, mock)
}

func TestGetSubcriterionMapsSlotRule(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	rows := sqlmock.NewRows([]string{"id", "criterion_id", "name", "employee_required", "multiple_required"}).
		AddRow("s1", "c1", "Certificate", true, false)
	mock.ExpectQuery("FROM subcriteria s").WithArgs("s1").WillReturnRows(rows)

	sub, err := store.Criteria().GetSubcriterion(context.Background(), "s1")
	if err != nil {
		t.Fatalf("GetSubcriterion() error = %v", err)
	}
	if _, ok := sub.Slot.(domain.PerEmployeeSlot); !ok {
		t.Fatalf("expected per-employee slot, got %v", sub.Slot)
	}
	expectMet(t, mock)
}

func TestGetSubcriterionUnknownIsInvalidInput(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectQuery("FROM subcriteria s").WithArgs("nope").WillReturnError(sql.ErrNoRows)

	if _, err := store.Criteria().GetSubcriterion(context.Background(), "nope"); !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	expectMet(t, mock)
}

func TestRosterDeleteReturnsDomainNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM employees").WithArgs("ghost").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := store.Roster().Delete(context.Background(), "ghost"); !domain.IsKind(err, domain.ErrEmployeeNotFound) {
		t.Fatalf("expected ErrEmployeeNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestSetCompletionReturnsPairingNotFound(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE pairings").
		WithArgs("ghost", 40, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Percentages().SetCompletion(context.Background(), "ghost", 40, time.Now())
	if !domain.IsKind(err, domain.ErrPairingNotFound) {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestUpsertApprovalMapsMissingPairing(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectExec("INSERT INTO contractor_on_project_criteria").
		WithArgs("ghost", "c1", 100, sqlmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "approvals_pairing_fk"})

	err := store.Percentages().UpsertApproval(context.Background(), domain.CriterionApproval{
		PairingID: "ghost", CriterionID: "c1", ApprovalPercentage: 100,
	})
	if !domain.IsKind(err, domain.ErrPairingNotFound) {
		t.Fatalf("expected ErrPairingNotFound, got %v", err)
	}
	expectMet(t, mock)
}

func TestSeedCatalogUpsertsInOneTx(t *testing.T) {
	store, mock, done := newStoreWithMock(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO criteria").WithArgs("c1", "Onboarding", "intake").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO subcriteria").WithArgs("s1", "c1", "ID card", true, false).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO pairings").WithArgs("p1", "proj-1", "ctr-1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.SeedCatalog(context.Background(), domain.Catalog{
		Criteria:    []domain.Criterion{{ID: "c1", Name: "Onboarding", DocumentType: domain.DocumentTypeIntake}},
		Subcriteria: []domain.Subcriterion{{ID: "s1", CriterionID: "c1", Name: "ID card", Slot: domain.PerEmployeeSlot{}}},
		Pairings:    []domain.Pairing{{ID: "p1", ProjectID: "proj-1", ContractorID: "ctr-1"}},
	})
	if err != nil {
		t.Fatalf("SeedCatalog() error = %v", err)
	}
	expectMet(t, mock)
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		kind error
	}{
		{"serialization", &pgconn.PgError{Code: "40001"}, domain.ErrTemporary},
		{"deadlock", &pgconn.PgError{Code: "40P01"}, domain.ErrTemporary},
		{"employee fk", &pgconn.PgError{Code: "23503", ConstraintName: "documents_employee_fk"}, domain.ErrEmployeeNotFound},
		{"subcriterion fk", &pgconn.PgError{Code: "23503", ConstraintName: "documents_subcriterion_fk"}, domain.ErrInvalidInput},
		{"check", &pgconn.PgError{Code: "23514"}, domain.ErrInvalidInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := classify("op", tc.err); !domain.IsKind(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
		})
	}
	if err := classify("op", errors.New("plain")); domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("plain errors must stay unclassified")
	}
}
