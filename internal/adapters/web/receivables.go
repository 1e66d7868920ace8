package web

import (
	"net/http"

	"receivables-analytics/internal/app"

	"github.com/go-chi/chi/v5"
)

// apiDashboard handles GET /api/company/{guid}/dashboard.
func (h *Handler) apiDashboard(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetDashboard(r.Context(), tenantID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiOverview handles GET /api/company/{guid}/overview.
func (h *Handler) apiOverview(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.GetBusinessOverview(r.Context(), tenantID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiOutstandingCustomers handles GET /api/company/{guid}/customers/outstanding.
func (h *Handler) apiOutstandingCustomers(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.ListOutstandingCustomers(r.Context(), tenantID(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiCustomerAging handles GET /api/company/{guid}/customers/{ledgerID}/aging.
func (h *Handler) apiCustomerAging(w http.ResponseWriter, r *http.Request) {
	ledgerID, ok := parseID(w, r, chi.URLParam(r, "ledgerID"), "ledger id")
	if !ok {
		return
	}
	result, err := h.svc.GetCustomerAging(r.Context(), tenantID(r), ledgerID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiInsights handles GET /api/company/{guid}/insights[?customer=<ledgerID>].
func (h *Handler) apiInsights(w http.ResponseWriter, r *http.Request) {
	req := app.InsightRequest{TenantID: tenantID(r)}
	if raw := r.URL.Query().Get("customer"); raw != "" {
		id, ok := parseID(w, r, raw, "customer")
		if !ok {
			return
		}
		req.CustomerID = &id
	}

	result, err := h.svc.GetInsights(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// apiRefreshDashboard handles POST /api/admin/refresh-dashboard/{guid}.
// The refresh runs synchronously.
func (h *Handler) apiRefreshDashboard(w http.ResponseWriter, r *http.Request) {
	guid := tenantID(r)
	if guid == "" {
		writeError(w, r, "company guid is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	result, err := h.svc.RefreshTenant(r.Context(), guid)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, result)
}
