package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/kirillkom/contractor-compliance/internal/config"
	"github.com/kirillkom/contractor-compliance/internal/core/domain"
	"github.com/kirillkom/contractor-compliance/internal/core/ports"
	"github.com/kirillkom/contractor-compliance/internal/observability/metrics"
)

const (
	serviceName        = "compliance-api"
	maxRequestBodySize = 1 << 20
	healthCheckTimeout = 2 * time.Second
)

type Router struct {
	cfg       config.Config
	documents ports.DocumentService
	audits    ports.AuditService
	recompute ports.RecomputeService
	roster    ports.RosterService
	metrics   *metrics.HTTPServerMetrics
	health    func(context.Context) error
}

type Option func(*Router)

// WithMetrics instruments every request and serves the registry on /metrics.
func WithMetrics(m *metrics.HTTPServerMetrics) Option {
	return func(rt *Router) { rt.metrics = m }
}

// WithHealthCheck makes /healthz answer 503 while check fails.
func WithHealthCheck(check func(context.Context) error) Option {
	return func(rt *Router) { rt.health = check }
}

func NewRouter(
	cfg config.Config,
	documents ports.DocumentService,
	audits ports.AuditService,
	recompute ports.RecomputeService,
	roster ports.RosterService,
	opts ...Option,
) *Router {
	rt := &Router{
		cfg:       cfg,
		documents: documents,
		audits:    audits,
		recompute: recompute,
		roster:    roster,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

func (rt *Router) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	var validator *requestValidator
	if rt.cfg.OpenAPIValidation {
		var err error
		if validator, err = newRequestValidator(); err != nil {
			return nil, err
		}
	}

	routes := []struct {
		pattern string
		handler http.HandlerFunc
	}{
		{"POST /v1/documents", rt.createDocument},
		{"GET /v1/documents", rt.listDocuments},
		{"GET /v1/documents/{id}", rt.getDocument},
		{"PATCH /v1/documents/{id}", rt.updateDocument},
		{"DELETE /v1/documents/{id}", rt.deleteDocument},
		{"GET /v1/documents/{id}/audit", rt.documentAudit},
		{"GET /v1/documents/{id}/audit/summary", rt.documentAuditSummary},
		{"GET /v1/pairings/{id}", rt.pairingPercentages},
		{"POST /v1/pairings/{id}/employees", rt.addEmployee},
		{"GET /v1/pairings/{id}/completion", rt.completionBreakdown},
		{"POST /v1/pairings/{id}/recompute", rt.recomputeCompletion},
		{"POST /v1/pairings/{id}/criteria/{criterionId}/recompute", rt.recomputeApproval},
		{"PATCH /v1/employees/{id}", rt.updateEmployee},
		{"DELETE /v1/employees/{id}", rt.removeEmployee},
	}
	for _, route := range routes {
		var handler http.Handler = route.handler
		if validator != nil {
			wrapped, err := validator.wrap(route.pattern, handler)
			if err != nil {
				return nil, err
			}
			handler = wrapped
		}
		mux.Handle(route.pattern, handler)
	}

	var reject rejectFunc
	if rt.metrics != nil {
		reject = func(reason string) { rt.metrics.RecordRejected(serviceName, reason) }
	}

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, rt.cfg.APIOverloadWait, reject)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, reject)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(serviceName, handler)
	}
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, r *http.Request) {
	if rt.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
		defer cancel()
		if err := rt.health(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("request body is required"))
	}
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "decode request", err)
	}
	return nil
}
