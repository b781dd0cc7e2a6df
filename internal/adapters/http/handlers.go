package httpadapter

import (
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/core/domain"
)

type documentCreateRequest struct {
	Name           string     `json:"name"`
	SubcriterionID string     `json:"subcriterion_id"`
	PairingID      string     `json:"pairing_id"`
	EmployeeID     string     `json:"employee_id"`
	State          string     `json:"state"`
	Comment        string     `json:"comment"`
	EndDate        *time.Time `json:"end_date"`
}

type documentPatchRequest struct {
	Name    *string    `json:"name"`
	State   *string    `json:"state"`
	Comment *string    `json:"comment"`
	EndDate *time.Time `json:"end_date"`
}

type employeeRequest struct {
	Name string `json:"name"`
}

// mutationResponse pairs the written entity with the percentages it refreshed.
type mutationResponse struct {
	Document *domain.Document `json:"document,omitempty"`
	Employee *domain.Employee `json:"employee,omitempty"`
	Outcomes []domain.Outcome `json:"outcomes"`
	Stale    bool             `json:"stale"`
}

func newMutationResponse(report domain.Report) mutationResponse {
	outcomes := report.Outcomes
	if outcomes == nil {
		outcomes = []domain.Outcome{}
	}
	return mutationResponse{Outcomes: outcomes, Stale: report.Stale()}
}

func actorID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(actorIDHeader))
}

func (rt *Router) createDocument(w http.ResponseWriter, r *http.Request) {
	var req documentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	state, err := domain.ParseDocumentState(req.State)
	if err != nil {
		writeError(w, r, err)
		return
	}

	doc, report, err := rt.documents.Create(r.Context(), domain.Document{
		Name:           req.Name,
		SubcriterionID: req.SubcriterionID,
		PairingID:      req.PairingID,
		EmployeeID:     req.EmployeeID,
		State:          state,
		Comment:        req.Comment,
		EndDate:        req.EndDate,
	}, actorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newMutationResponse(report)
	resp.Document = doc
	writeJSON(w, http.StatusCreated, resp)
}

func (rt *Router) getDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := rt.documents.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (rt *Router) updateDocument(w http.ResponseWriter, r *http.Request) {
	var req documentPatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	patch := domain.DocumentPatch{
		ID:      r.PathValue("id"),
		Name:    req.Name,
		Comment: req.Comment,
		EndDate: req.EndDate,
	}
	if req.State != nil {
		state, err := domain.ParseDocumentState(*req.State)
		if err != nil {
			writeError(w, r, err)
			return
		}
		patch.State = &state
	}

	doc, report, err := rt.documents.Update(r.Context(), patch, actorID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newMutationResponse(report)
	resp.Document = doc
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) deleteDocument(w http.ResponseWriter, r *http.Request) {
	report, err := rt.documents.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(report))
}

func (rt *Router) listDocuments(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := domain.DocumentFilter{
		PairingID:      strings.TrimSpace(query.Get("pairing_id")),
		SubcriterionID: strings.TrimSpace(query.Get("subcriterion_id")),
		EmployeeID:     strings.TrimSpace(query.Get("employee_id")),
		ProjectID:      strings.TrimSpace(query.Get("project_id")),
		ContractorID:   strings.TrimSpace(query.Get("contractor_id")),
	}
	if raw := query.Get("state"); raw != "" {
		state, err := domain.ParseDocumentState(raw)
		if err != nil {
			writeError(w, r, err)
			return
		}
		filter.State = state
	}

	docs, err := rt.documents.List(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"documents": docs})
}

func (rt *Router) documentAudit(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	history, err := rt.audits.History(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if history == nil {
		history = []domain.DocumentStateAudit{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"document_id": id, "history": history})
}

func (rt *Router) documentAuditSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := rt.audits.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (rt *Router) pairingPercentages(w http.ResponseWriter, r *http.Request) {
	percentages, err := rt.recompute.PairingPercentages(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, percentages)
}

func (rt *Router) completionBreakdown(w http.ResponseWriter, r *http.Request) {
	breakdown, err := rt.recompute.CompletionBreakdown(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (rt *Router) recomputeCompletion(w http.ResponseWriter, r *http.Request) {
	outcome, err := rt.recompute.RecomputeCompletion(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) recomputeApproval(w http.ResponseWriter, r *http.Request) {
	outcome, err := rt.recompute.RecomputeApproval(r.Context(), r.PathValue("id"), r.PathValue("criterionId"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, outcome)
}

func (rt *Router) addEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	employee, report, err := rt.roster.AddEmployee(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newMutationResponse(report)
	resp.Employee = employee
	writeJSON(w, http.StatusCreated, resp)
}

func (rt *Router) updateEmployee(w http.ResponseWriter, r *http.Request) {
	var req employeeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	employee, report, err := rt.roster.UpdateEmployee(r.Context(), r.PathValue("id"), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := newMutationResponse(report)
	resp.Employee = employee
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) removeEmployee(w http.ResponseWriter, r *http.Request) {
	report, err := rt.roster.RemoveEmployee(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newMutationResponse(report))
}
