package usecase

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
)

// memStore is an in-memory ports.Store and ports.UnitOfWork for use case tests.
type memStore struct {
	criteria  map[string]domain.Criterion
	subs      []domain.Subcriterion
	documents map[string]domain.Document
	audits    []domain.DocumentStateAudit
	employees map[string]domain.Employee
	pairings  map[string]*domain.Pairing
	approvals map[[2]string]domain.CriterionApproval

	slotStatesErr error
	fanoutErr     error
	commitErr     error
	txCount       int
	savepoints    []string
}

func newMemStore() *memStore {
	return &memStore{
		criteria:  make(map[string]domain.Criterion),
		documents: make(map[string]domain.Document),
		employees: make(map[string]domain.Employee),
		pairings:  make(map[string]*domain.Pairing),
		approvals: make(map[[2]string]domain.CriterionApproval),
	}
}

func (s *memStore) addPairing(id string) {
	s.pairings[id] = &domain.Pairing{ID: id, ProjectID: "proj-" + id, ContractorID: "ctr-" + id}
}

func (s *memStore) addCriterion(id string, docType domain.DocumentType) {
	s.criteria[id] = domain.Criterion{ID: id, Name: id, DocumentType: docType}
}

func (s *memStore) addSub(id, criterionID string, rule domain.SlotRule) {
	s.subs = append(s.subs, domain.Subcriterion{ID: id, CriterionID: criterionID, Name: id, Slot: rule})
}

func (s *memStore) addEmployee(id, pairingID string) {
	at := time.Date(2026, 1, 1, 0, 0, len(s.employees), 0, time.UTC)
	s.employees[id] = domain.Employee{ID: id, PairingID: pairingID, Name: id, CreatedAt: at, UpdatedAt: at}
}

var docClock = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

func (s *memStore) addDoc(id, pairingID, subID, employeeID string, state domain.DocumentState) {
	docClock = docClock.Add(time.Minute)
	s.documents[id] = domain.Document{
		ID: id, Name: id, PairingID: pairingID, SubcriterionID: subID, EmployeeID: employeeID,
		State: state, CreatedAt: docClock, UpdatedAt: docClock,
	}
}

func (s *memStore) auditsFor(documentID string) []domain.DocumentStateAudit {
	var out []domain.DocumentStateAudit
	for _, a := range s.audits {
		if a.DocumentID == documentID {
			out = append(out, a)
		}
	}
	return out
}

func (s *memStore) WithinTx(ctx context.Context, fn func(context.Context, ports.Store) error) error {
	s.txCount++
	if err := fn(ctx, s); err != nil {
		return err
	}
	return s.commitErr
}

func (s *memStore) Reader() ports.Store { return s }

func (s *memStore) Documents() ports.DocumentRepository { return memDocuments{s} }
func (s *memStore) Audits() ports.AuditRepository       { return memAudits{s} }
func (s *memStore) Criteria() ports.CriteriaReader      { return memCriteria{s} }
func (s *memStore) Roster() ports.RosterRepository      { return memRoster{s} }
func (s *memStore) Percentages() ports.PercentageCache  { return memPercentages{s} }

func (s *memStore) Savepoint(ctx context.Context, name string, fn func(context.Context) error) error {
	s.savepoints = append(s.savepoints, name)
	return fn(ctx)
}

type memDocuments struct{ s *memStore }

func (r memDocuments) Create(_ context.Context, doc *domain.Document) error {
	if _, ok := r.s.pairings[doc.PairingID]; !ok {
		return domain.WrapError(domain.ErrPairingNotFound, "create document", fmt.Errorf("id=%s", doc.PairingID))
	}
	r.s.documents[doc.ID] = *doc
	return nil
}

func (r memDocuments) GetByID(_ context.Context, id string) (*domain.Document, error) {
	doc, ok := r.s.documents[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrDocumentNotFound, "get document", fmt.Errorf("id=%s", id))
	}
	return &doc, nil
}

func (r memDocuments) Update(_ context.Context, doc *domain.Document) error {
	if _, ok := r.s.documents[doc.ID]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "update document", fmt.Errorf("id=%s", doc.ID))
	}
	r.s.documents[doc.ID] = *doc
	return nil
}

func (r memDocuments) Delete(_ context.Context, id string) error {
	if _, ok := r.s.documents[id]; !ok {
		return domain.WrapError(domain.ErrDocumentNotFound, "delete document", fmt.Errorf("id=%s", id))
	}
	delete(r.s.documents, id)
	return nil
}

func (r memDocuments) list(keep func(domain.Document) bool) []domain.Document {
	out := make([]domain.Document, 0)
	for _, doc := range r.s.documents {
		if keep(doc) {
			out = append(out, doc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	return out
}

func (r memDocuments) ListBySubcriterion(_ context.Context, subID, pairingID string) ([]domain.Document, error) {
	return r.list(func(d domain.Document) bool { return d.SubcriterionID == subID && d.PairingID == pairingID }), nil
}

func (r memDocuments) ListByEmployee(_ context.Context, employeeID string) ([]domain.Document, error) {
	return r.list(func(d domain.Document) bool { return d.EmployeeID == employeeID }), nil
}

func (r memDocuments) ListByPairingState(_ context.Context, pairingID string, state domain.DocumentState) ([]domain.Document, error) {
	return r.list(func(d domain.Document) bool { return d.PairingID == pairingID && d.State == state }), nil
}

func (r memDocuments) ListByPairing(_ context.Context, pairingID string) ([]domain.Document, error) {
	return r.list(func(d domain.Document) bool { return d.PairingID == pairingID }), nil
}

func (r memDocuments) ListByProject(_ context.Context, projectID string) ([]domain.Document, error) {
	return r.list(func(d domain.Document) bool {
		p, ok := r.s.pairings[d.PairingID]
		return ok && p.ProjectID == projectID
	}), nil
}

func (r memDocuments) ListByContractor(_ context.Context, contractorID string) ([]domain.Document, error) {
	return r.list(func(d domain.Document) bool {
		p, ok := r.s.pairings[d.PairingID]
		return ok && p.ContractorID == contractorID
	}), nil
}

func (r memDocuments) ListSlotStates(_ context.Context, pairingID string, subIDs []string) ([]domain.SlotState, error) {
	if r.s.slotStatesErr != nil {
		return nil, r.s.slotStatesErr
	}
	wanted := make(map[string]bool, len(subIDs))
	for _, id := range subIDs {
		wanted[id] = true
	}
	docs := r.list(func(d domain.Document) bool { return d.PairingID == pairingID && wanted[d.SubcriterionID] })
	out := make([]domain.SlotState, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.SlotState{SubcriterionID: d.SubcriterionID, EmployeeID: d.EmployeeID, State: d.State})
	}
	return out, nil
}

type memAudits struct{ s *memStore }

func (r memAudits) Append(_ context.Context, entry *domain.DocumentStateAudit) error {
	r.s.audits = append(r.s.audits, *entry)
	return nil
}

func (r memAudits) LastTransitionTime(_ context.Context, documentID string) (time.Time, bool, error) {
	history, _ := r.ListByDocument(context.Background(), documentID)
	if len(history) == 0 {
		return time.Time{}, false, nil
	}
	return history[0].CreatedAt, true, nil
}

func (r memAudits) ListByDocument(_ context.Context, documentID string) ([]domain.DocumentStateAudit, error) {
	entries := r.s.auditsFor(documentID)
	out := make([]domain.DocumentStateAudit, 0, len(entries))
	for i := len(entries) - 1; i >= 0; i-- {
		out = append(out, entries[i])
	}
	return out, nil
}

type memCriteria struct{ s *memStore }

func (r memCriteria) GetSubcriterion(_ context.Context, id string) (*domain.Subcriterion, error) {
	for _, sub := range r.s.subs {
		if sub.ID == id {
			sub := sub
			return &sub, nil
		}
	}
	return nil, domain.WrapError(domain.ErrInvalidInput, "get subcriterion", fmt.Errorf("unknown subcriterion %s", id))
}

func (r memCriteria) ListSubcriteriaByCriterion(_ context.Context, criterionID string) ([]domain.Subcriterion, error) {
	var out []domain.Subcriterion
	for _, sub := range r.s.subs {
		if sub.CriterionID == criterionID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r memCriteria) ListSubcriteriaByDocumentType(_ context.Context, docType domain.DocumentType) ([]domain.Subcriterion, error) {
	var out []domain.Subcriterion
	for _, sub := range r.s.subs {
		if r.s.criteria[sub.CriterionID].DocumentType == docType {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (r memCriteria) ListPerEmployeeSubcriteria(context.Context) ([]domain.Subcriterion, error) {
	if r.s.fanoutErr != nil {
		return nil, r.s.fanoutErr
	}
	var out []domain.Subcriterion
	for _, sub := range r.s.subs {
		if domain.EmployeeRequired(sub.Slot) {
			out = append(out, sub)
		}
	}
	return out, nil
}

type memRoster struct{ s *memStore }

func (r memRoster) Create(_ context.Context, e *domain.Employee) error {
	r.s.employees[e.ID] = *e
	return nil
}

func (r memRoster) GetByID(_ context.Context, id string) (*domain.Employee, error) {
	e, ok := r.s.employees[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrEmployeeNotFound, "get employee", fmt.Errorf("id=%s", id))
	}
	return &e, nil
}

func (r memRoster) Update(_ context.Context, e *domain.Employee) error {
	if _, ok := r.s.employees[e.ID]; !ok {
		return domain.WrapError(domain.ErrEmployeeNotFound, "update employee", fmt.Errorf("id=%s", e.ID))
	}
	r.s.employees[e.ID] = *e
	return nil
}

func (r memRoster) Delete(_ context.Context, id string) error {
	if _, ok := r.s.employees[id]; !ok {
		return domain.WrapError(domain.ErrEmployeeNotFound, "delete employee", fmt.Errorf("id=%s", id))
	}
	delete(r.s.employees, id)
	for docID, doc := range r.s.documents {
		if doc.EmployeeID == id {
			delete(r.s.documents, docID)
		}
	}
	return nil
}

func (r memRoster) ListByPairing(_ context.Context, pairingID string) ([]domain.Employee, error) {
	out := make([]domain.Employee, 0)
	for _, e := range r.s.employees {
		if e.PairingID == pairingID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

type memPercentages struct{ s *memStore }

func (r memPercentages) UpsertApproval(_ context.Context, a domain.CriterionApproval) error {
	a.Stale = false
	r.s.approvals[[2]string{a.PairingID, a.CriterionID}] = a
	return nil
}

func (r memPercentages) MarkApprovalStale(_ context.Context, pairingID, criterionID string) error {
	key := [2]string{pairingID, criterionID}
	a, ok := r.s.approvals[key]
	if !ok {
		a = domain.CriterionApproval{PairingID: pairingID, CriterionID: criterionID}
	}
	a.Stale = true
	r.s.approvals[key] = a
	return nil
}

func (r memPercentages) SetCompletion(_ context.Context, pairingID string, pct int, at time.Time) error {
	p, ok := r.s.pairings[pairingID]
	if !ok {
		return domain.WrapError(domain.ErrPairingNotFound, "set completion", fmt.Errorf("id=%s", pairingID))
	}
	p.CompletionPercentage = pct
	p.CompletionStale = false
	p.CompletionComputedAt = &at
	return nil
}

func (r memPercentages) MarkCompletionStale(_ context.Context, pairingID string) error {
	p, ok := r.s.pairings[pairingID]
	if !ok {
		return domain.WrapError(domain.ErrPairingNotFound, "mark completion stale", fmt.Errorf("id=%s", pairingID))
	}
	p.CompletionStale = true
	return nil
}

func (r memPercentages) GetPairing(_ context.Context, pairingID string) (*domain.Pairing, error) {
	p, ok := r.s.pairings[pairingID]
	if !ok {
		return nil, domain.WrapError(domain.ErrPairingNotFound, "get pairing", fmt.Errorf("id=%s", pairingID))
	}
	copyPairing := *p
	return &copyPairing, nil
}

func (r memPercentages) ListApprovals(_ context.Context, pairingID string) ([]domain.CriterionApproval, error) {
	out := make([]domain.CriterionApproval, 0)
	for _, a := range r.s.approvals {
		if a.PairingID == pairingID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CriterionID < out[j].CriterionID })
	return out, nil
}

// fixedClock returns a controllable clock.
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recorderFake struct {
	recomputes  map[domain.OutcomeStatus]int
	transitions [][2]domain.DocumentState
}

func newRecorderFake() *recorderFake {
	return &recorderFake{recomputes: make(map[domain.OutcomeStatus]int)}
}

func (r *recorderFake) ObserveRecompute(_ domain.PercentageKind, status domain.OutcomeStatus, _ time.Duration) {
	r.recomputes[status]++
}

func (r *recorderFake) ObserveTransition(from, to domain.DocumentState) {
	r.transitions = append(r.transitions, [2]domain.DocumentState{from, to})
}

type publisherFake struct {
	events []domain.PercentageEvent
	err    error
}

func (p *publisherFake) PublishPercentageChanged(_ context.Context, events []domain.PercentageEvent) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, events...)
	return nil
}
