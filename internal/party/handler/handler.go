package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultkeeper/internal/party"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/httputil"
	"vaultkeeper/pkg/requestcontext"
)

// Service defines the interface for trusted-party operations.
type Service interface {
	Create(ctx context.Context, accountID id.AccountID, params party.CreateParams) (*party.Party, error)
	List(ctx context.Context, accountID id.AccountID) ([]*party.Party, error)
	Delete(ctx context.Context, accountID id.AccountID, partyID id.PartyID) error
}

// Handler wires trusted-party endpoints to the party service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts trusted-party endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/trusted-parties", h.HandleCreate)
	r.Get("/trusted-parties", h.HandleList)
	r.Delete("/trusted-parties/{partyID}", h.HandleDelete)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreatePartyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	p, err := h.service.Create(ctx, accountID, party.CreateParams{
		VaultID:      req.ParsedVaultID(),
		Name:         req.Name,
		Email:        req.Email,
		Role:         req.ParsedRole(),
		Phone:        req.Phone,
		Relationship: req.Relationship,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "party creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromParty(p))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	parties, err := h.service.List(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromParties(parties))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}
	partyID, err := id.ParsePartyID(chi.URLParam(r, "partyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, accountID, partyID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}
