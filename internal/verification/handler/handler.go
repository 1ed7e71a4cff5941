package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultkeeper/internal/vault"
	"vaultkeeper/internal/verification"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/httputil"
	"vaultkeeper/pkg/requestcontext"
)

// Service defines the interface for attestation operations.
type Service interface {
	Submit(ctx context.Context, vaultID id.VaultID, partyID id.PartyID, evidence verification.Evidence) (*verification.Verification, error)
	Review(ctx context.Context, verificationID id.VerificationID, status verification.Status, reviewer id.AccountID) (*verification.Verification, error)
	List(ctx context.Context, vaultID id.VaultID) ([]*verification.Verification, error)
}

// VaultLister scopes the flat attestation projection to the caller's vaults.
type VaultLister interface {
	List(ctx context.Context, accountID id.AccountID) ([]*vault.Vault, error)
}

// Handler wires death-verification endpoints to the verification service.
type Handler struct {
	service Service
	vaults  VaultLister
	logger  *slog.Logger
}

func New(service Service, vaults VaultLister, logger *slog.Logger) *Handler {
	return &Handler{service: service, vaults: vaults, logger: logger}
}

// Register mounts death-verification endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/death-verifications", h.HandleSubmit)
	r.Patch("/death-verifications/{verificationID}/status", h.HandleReview)
	r.Get("/death-verifications", h.HandleListAll)
	r.Get("/vaults/{vaultID}/death-verifications", h.HandleList)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	if _, ok := httputil.AuthenticatedAccount(w, ctx); !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, err := h.service.Submit(ctx, req.ParsedVaultID(), req.ParsedPartyID(), verification.Evidence{
		Type:  req.Evidence.Type,
		URL:   req.Evidence.URL,
		Notes: req.Evidence.Notes,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "attestation submission failed",
			"request_id", requestID,
			"vault_id", req.VaultID,
			"party_id", req.PartyID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromVerification(v))
}

func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}
	verificationID, err := id.ParseVerificationID(chi.URLParam(r, "verificationID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	status, err := verification.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	v, err := h.service.Review(ctx, verificationID, status, accountID)
	if err != nil {
		h.logger.ErrorContext(ctx, "attestation review failed",
			"request_id", requestID,
			"verification_id", verificationID.String(),
			"status", string(status),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(v))
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

	verifications, err := h.service.List(ctx, vaultID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerifications(verifications))
}

// HandleListAll projects every attestation across the caller's vaults.
func (h *Handler) HandleListAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	vaults, err := h.vaults.List(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var all []*verification.Verification
	for _, v := range vaults {
		verifications, err := h.service.List(ctx, v.ID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		all = append(all, verifications...)
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerifications(all))
}
