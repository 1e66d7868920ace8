package web

import (
	"net/http"
	"strconv"
	"strings"

	"receivables-analytics/internal/app"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc    app.ApplicationService
	router chi.Router
	logger logrus.FieldLogger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, logger logrus.FieldLogger) http.Handler {
	h := &Handler{
		svc:    svc,
		logger: logger.WithField("module", "web"),
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.logger))
	r.Use(Recoverer(h.logger))
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Route("/api/company/{guid}", func(r chi.Router) {
		r.Get("/dashboard", h.apiDashboard)
		r.Get("/overview", h.apiOverview)
		r.Get("/customers/outstanding", h.apiOutstandingCustomers)
		r.Get("/customers/{ledgerID}/aging", h.apiCustomerAging)
		r.Get("/insights", h.apiInsights)
	})

	r.Post("/api/admin/refresh-dashboard/{guid}", h.apiRefreshDashboard)

	h.router = r
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
	}
	writeJSON(w, response{Status: "ok"})
}

// tenantID extracts the {guid} URL parameter.
func tenantID(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "guid"))
}

// parseID parses a positive integer identifier. On failure it writes a 400 and
// returns false.
func parseID(w http.ResponseWriter, r *http.Request, raw, name string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name+": "+raw, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}
