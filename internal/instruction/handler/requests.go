package handler

import (
	"strings"

	"vaultkeeper/internal/instruction"
	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
)

// CreateInstructionRequest is the HTTP request body for POST
// /legacy-instructions.
type CreateInstructionRequest struct {
	VaultID     string `json:"vault_id"`
	Action      string `json:"action_type"`
	Title       string `json:"title"`
	TargetEmail string `json:"target_email"`
	AssetRef    string `json:"asset_ref"`
	Message     string `json:"message"`
	DelayDays   int    `json:"delay_days"`

	parsedVaultID id.VaultID
	parsedAction  instruction.ActionType
}

// Validate implements httputil.Validatable.
func (r *CreateInstructionRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.DelayDays < 0 {
		return dErrors.New(dErrors.CodeValidation, "delay_days must not be negative")
	}

	vaultID, err := id.ParseVaultID(r.VaultID)
	if err != nil {
		return err
	}
	r.parsedVaultID = vaultID

	action, err := instruction.ParseActionType(r.Action)
	if err != nil {
		return err
	}
	r.parsedAction = action
	return nil
}

func (r *CreateInstructionRequest) ParsedVaultID() id.VaultID { return r.parsedVaultID }

func (r *CreateInstructionRequest) ParsedAction() instruction.ActionType { return r.parsedAction }
