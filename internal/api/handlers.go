package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/star/skyrot/internal/batch"
	"github.com/star/skyrot/internal/catalog"
	"github.com/star/skyrot/internal/httputil"
	"github.com/star/skyrot/internal/metrics"
	"github.com/star/skyrot/internal/transform"
)

// maxBodyBytes caps request bodies. A million coordinate pairs in JSON is
// roughly 40 MB.
const maxBodyBytes = 64 << 20

type handlers struct {
	logger     *slog.Logger
	catalog    *catalog.Catalog
	pool       *batch.Pool
	limiter    *evalLimiter
	maxPoints  int
	trustProxy bool
}

// evaluateRequest is the body of both evaluate routes. Transform is only read
// by the inline route.
type evaluateRequest struct {
	Transform *transform.Spec   `json:"transform,omitempty"`
	Inputs    []transform.Array `json:"inputs"`
	Inverse   bool              `json:"inverse,omitempty"`
}

type evaluateResponse struct {
	Name    string            `json:"name,omitempty"`
	Kind    transform.Kind    `json:"kind"`
	Inverse bool              `json:"inverse,omitempty"`
	Outputs []transform.Array `json:"outputs"`
}

func (h *handlers) ready() error {
	if h.catalog == nil {
		return errors.New("catalog not loaded")
	}
	return nil
}

func (h *handlers) listTransforms(w http.ResponseWriter, r *http.Request) {
	specs := make([]transform.Spec, 0, h.catalog.Len())
	for _, e := range h.catalog.Entries() {
		specs = append(specs, e.Spec())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":      len(specs),
		"transforms": specs,
		"kinds":      transform.Kinds(),
	})
}

func (h *handlers) getTransform(w http.ResponseWriter, r *http.Request) {
	e, err := h.catalog.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, e.Spec())
}

func (h *handlers) getInverse(w http.ResponseWriter, r *http.Request) {
	e, err := h.catalog.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	s := e.Transform.Inverse().Spec()
	s.Name = e.Name + "^-1"
	writeJSON(w, http.StatusOK, s)
}

func (h *handlers) evaluateNamed(w http.ResponseWriter, r *http.Request) {
	e, err := h.catalog.Get(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.Transform != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "transform must not be set when evaluating a named transform",
		})
		return
	}
	h.evaluate(w, r, e.Name, e.Transform, req)
}

func (h *handlers) evaluateInline(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	if req.Transform == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "transform is required"})
		return
	}
	t, err := transform.Build(*req.Transform)
	if err != nil {
		writeError(w, err)
		return
	}
	h.evaluate(w, r, req.Transform.Name, t, req)
}

// decode reads and checks an evaluate body. It writes the error response
// itself and reports whether the caller should continue.
func (h *handlers) decode(w http.ResponseWriter, r *http.Request) (evaluateRequest, bool) {
	var req evaluateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body: " + err.Error()})
		return req, false
	}
	if len(req.Inputs) != 2 {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("inputs must hold exactly 2 coordinate arrays, got %d", len(req.Inputs)),
		})
		return req, false
	}
	if n := req.Inputs[0].Len(); n > h.maxPoints {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":      fmt.Sprintf("request holds %d coordinate pairs, over the limit", n),
			"points":     n,
			"max_points": h.maxPoints,
		})
		return req, false
	}
	return req, true
}

func (h *handlers) evaluate(w http.ResponseWriter, r *http.Request, name string, t transform.Transform, req evaluateRequest) {
	ip := httputil.ClientIP(r, h.trustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncLimiterRejections()
		h.logger.Warn("evaluation rejected by concurrency limit", "component", "api", "client_ip", ip)
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many concurrent evaluations"})
		return
	}
	defer h.limiter.release(ip)

	if req.Inverse {
		t = t.Inverse()
	}

	a, b, err := h.pool.Evaluate(r.Context(), t, req.Inputs[0], req.Inputs[1])
	if err != nil {
		h.logger.Debug("evaluation failed", "component", "api", "kind", t.Kind(), "error", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, evaluateResponse{
		Name:    name,
		Kind:    t.Kind(),
		Inverse: req.Inverse,
		Outputs: []transform.Array{a, b},
	})
}

// statusFor maps domain errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, transform.ErrInvalidParameter), errors.Is(err, transform.ErrShapeMismatch):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
