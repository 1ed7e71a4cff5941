package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vaultkeeper/internal/audit"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/httputil"
)

// Store is the read side of the audit trail.
type Store interface {
	ListByVault(ctx context.Context, vaultID string) ([]audit.Event, error)
}

// Handler exposes a vault's audit trail.
type Handler struct {
	store  Store
	logger *slog.Logger
}

func New(store Store, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// Register mounts the audit endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/vaults/{vaultID}/audit-events", h.HandleList)
}

// EventResponse is the HTTP representation of an audit event.
type EventResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
	Action    string    `json:"action"`
	Subject   string    `json:"subject,omitempty"`
	Detail    string    `json:"detail,omitempty"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if _, ok := httputil.AuthenticatedAccount(w, ctx); !ok {
		return
	}
	vaultID, err := id.ParseVaultID(chi.URLParam(r, "vaultID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.store.ListByVault(ctx, vaultID.String())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*EventResponse, 0, len(events))
	for _, event := range events {
		out = append(out, &EventResponse{
			Timestamp: event.Timestamp,
			Actor:     event.Actor,
			Action:    event.Action,
			Subject:   event.Subject,
			Detail:    event.Detail,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
