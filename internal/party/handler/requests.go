package handler

import (
	"strings"

	"vaultkeeper/internal/party"
	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
)

// CreatePartyRequest is the HTTP request body for POST /trusted-parties.
type CreatePartyRequest struct {
	VaultID      string `json:"vault_id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	Role         string `json:"role"`
	Phone        string `json:"phone"`
	Relationship string `json:"relationship"`

	parsedVaultID id.VaultID
	parsedRole    party.Role
}

// Validate implements httputil.Validatable.
func (r *CreatePartyRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}

	vaultID, err := id.ParseVaultID(r.VaultID)
	if err != nil {
		return err
	}
	r.parsedVaultID = vaultID

	role, err := party.ParseRole(r.Role)
	if err != nil {
		return err
	}
	r.parsedRole = role
	return nil
}

func (r *CreatePartyRequest) ParsedVaultID() id.VaultID { return r.parsedVaultID }

func (r *CreatePartyRequest) ParsedRole() party.Role { return r.parsedRole }
