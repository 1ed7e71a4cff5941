package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultkeeper/internal/vault"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/httputil"
	"vaultkeeper/pkg/requestcontext"
)

// Service defines the interface for vault operations.
type Service interface {
	Create(ctx context.Context, accountID id.AccountID, name, description string, threshold int) (*vault.Vault, error)
	Get(ctx context.Context, accountID id.AccountID, vaultID id.VaultID) (*vault.Vault, error)
	List(ctx context.Context, accountID id.AccountID) ([]*vault.Vault, error)
}

// Handler wires vault endpoints to the vault service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts vault endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/vaults", h.HandleCreate)
	r.Get("/vaults", h.HandleList)
	r.Get("/vaults/{vaultID}", h.HandleGet)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateVaultRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.service.Create(ctx, accountID, req.Name, req.Description, req.QuorumThreshold)
	if err != nil {
		h.logger.ErrorContext(ctx, "vault creation failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromVault(v))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	vaults, err := h.service.List(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVaults(vaults))
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}
	vaultID, err := id.ParseVaultID(chi.URLParam(r, "vaultID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	v, err := h.service.Get(ctx, accountID, vaultID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVault(v))
}
