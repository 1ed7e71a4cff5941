package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vaultkeeper/internal/instruction"
	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/httputil"
	"vaultkeeper/pkg/requestcontext"
)

// Service defines the interface for legacy-instruction operations.
type Service interface {
	Create(ctx context.Context, accountID id.AccountID, params instruction.CreateParams) (*instruction.Instruction, error)
	List(ctx context.Context, accountID id.AccountID) ([]*instruction.Instruction, error)
	Delete(ctx context.Context, accountID id.AccountID, instructionID id.InstructionID) error
}

// Handler wires legacy-instruction endpoints to the instruction service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts legacy-instruction endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/legacy-instructions", h.HandleCreate)
	r.Get("/legacy-instructions", h.HandleList)
	r.Delete("/legacy-instructions/{instructionID}", h.HandleDelete)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateInstructionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	inst, err := h.service.Create(ctx, accountID, instruction.CreateParams{
		VaultID:     req.ParsedVaultID(),
		Action:      req.ParsedAction(),
		Title:       req.Title,
		TargetEmail: req.TargetEmail,
		AssetRef:    req.AssetRef,
		Message:     req.Message,
		DelayDays:   req.DelayDays,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "instruction creation failed",
			"request_id", requestID,
			"vault_id", req.VaultID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromInstruction(inst))
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}

	instructions, err := h.service.List(ctx, accountID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromInstructions(instructions))
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	accountID, ok := httputil.AuthenticatedAccount(w, ctx)
	if !ok {
		return
	}
	instructionID, err := id.ParseInstructionID(chi.URLParam(r, "instructionID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Delete(ctx, accountID, instructionID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusNoContent, nil)
}
