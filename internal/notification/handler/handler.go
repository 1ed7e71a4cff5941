package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"vaultkeeper/internal/notification"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/httputil"
)

// Service defines the interface for notification operations.
type Service interface {
	List(ctx context.Context, accountID id.AccountID) ([]*notification.Notification, error)
	MarkRead(ctx context.Context, accountID id.AccountID, notificationID id.NotificationID) error
}

// Handler wires notification endpoints to the notification service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts notification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.Post("/notifications/{notificationID}/read", h.HandleMarkRead)
}

// NotificationResponse is the HTTP representation of a notification.
type NotificationResponse struct {
	ID        string    `json:"id"`
	VaultID   string    `json:"vault_id"`
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	notifications, err := h.service.List(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]*NotificationResponse, 0, len(notifications))
	for _, n := range notifications {
		out = append(out, &NotificationResponse{
			ID:        n.ID.String(),
			VaultID:   n.VaultID.String(),
			Kind:      string(n.Kind),
			Message:   n.Message,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}
	notificationID, err := id.ParseNotificationID(chi.URLParam(r, "notificationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.MarkRead(ctx, accountID, notificationID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}
