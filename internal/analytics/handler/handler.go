package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultkeeper/internal/analytics"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/httputil"
)

// Service defines the interface for dashboard aggregation.
type Service interface {
	Dashboard(ctx context.Context, accountID id.AccountID) (*analytics.Dashboard, error)
}

// Handler wires the dashboard endpoint to the analytics service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the dashboard endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/analytics/dashboard", h.HandleDashboard)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	dashboard, err := h.service.Dashboard(ctx, accountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "dashboard aggregation failed", "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, dashboard)
}
