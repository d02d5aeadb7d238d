// CLAUDE:SUMMARY HTTP routes of the lexcheck API: evaluate, report download, catalog and case listing, normalize, health.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/hazyhaar/lexcheck/pkg/catalog"
	"github.com/hazyhaar/lexcheck/pkg/kit"
)

// Option customizes the router.
type Option func(*handler)

// WithClock replaces time.Now as the report timestamp source.
func WithClock(now func() time.Time) Option {
	return func(h *handler) { h.now = now }
}

// NewRouter returns an http.Handler with all lexcheck API routes.
func NewRouter(reg *catalog.Registry, logger *slog.Logger, opts ...Option) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handler{reg: reg, now: time.Now}
	for _, opt := range opts {
		opt(h)
	}

	wrap := func(name string, ep kit.Endpoint) kit.Endpoint {
		return kit.Chain(kit.RequestID(), kit.Logging(logger, name))(ep)
	}
	h.evaluate = wrap("evaluate", evaluateEndpoint(reg))
	h.report = wrap("report", reportEndpoint(reg, h.now))
	h.listCatalogs = wrap("list_catalogs", listCatalogsEndpoint(reg))
	h.listCases = wrap("list_cases", listCasesEndpoint(reg))
	h.normalize = wrap("normalize", normalizeEndpoint())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/evaluate", methodNotAllowed)
	mux.HandleFunc("POST /v1/evaluate", h.handleEvaluate)
	mux.HandleFunc("POST /v1/evaluate/report", h.handleReport)
	mux.HandleFunc("GET /v1/catalogs", h.handleListCatalogs)
	mux.HandleFunc("GET /v1/catalogs/{catalog}/cases", h.handleListCases)
	mux.HandleFunc("GET /v1/normalize", h.handleNormalize)
	mux.HandleFunc("GET /v1/health", h.handleHealth)

	return cors(kit.HTTPRequestID(mux))
}

type handler struct {
	evaluate     kit.Endpoint
	report       kit.Endpoint
	listCatalogs kit.Endpoint
	listCases    kit.Endpoint
	normalize    kit.Endpoint
	reg          *catalog.Registry
	now          func() time.Time
}

// --- evaluate ---

func (h *handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateReq
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.evaluate(r.Context(), &req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- report download ---

func (h *handler) handleReport(w http.ResponseWriter, r *http.Request) {
	var req reportReq
	if !decodeBody(w, r, &req.evaluateReq) {
		return
	}
	req.Format = r.URL.Query().Get("format")

	resp, err := h.report(r.Context(), &req)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	out := resp.(*reportResponse)
	w.Header().Set("Content-Type", out.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+out.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(out.Body)))
	w.WriteHeader(http.StatusOK)
	w.Write(out.Body)
}

// --- catalogs and cases ---

func (h *handler) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listCatalogs(r.Context(), nil)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *handler) handleListCases(w http.ResponseWriter, r *http.Request) {
	resp, err := h.listCases(r.Context(), &casesReq{Catalog: r.PathValue("catalog")})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- normalize ---

func (h *handler) handleNormalize(w http.ResponseWriter, r *http.Request) {
	resp, err := h.normalize(r.Context(), &normalizeReq{Text: r.URL.Query().Get("text")})
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// --- health ---

type healthResponse struct {
	Status       string `json:"status"`
	Catalogs     int    `json:"catalogs"`
	TotalEntries int    `json:"total_entries"`
}

func (h *handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		Catalogs:     h.reg.Count(),
		TotalEntries: h.reg.TotalEntries(),
	})
}

// --- helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 2*maxTextLen)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, errInvalid):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrUnknownCatalog):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func methodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// cors is a simple CORS middleware for browser-based clients.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition, X-Request-ID")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
