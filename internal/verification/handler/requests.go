package handler

import (
	"strings"

	id "vaultkeeper/pkg/domain"
	dErrors "vaultkeeper/pkg/domain-errors"
)

// SubmitRequest is the HTTP request body for POST /death-verifications.
type SubmitRequest struct {
	VaultID  string          `json:"vault_id"`
	PartyID  string          `json:"party_id"`
	Evidence EvidenceRequest `json:"evidence"`

	parsedVaultID id.VaultID
	parsedPartyID id.PartyID
}

// EvidenceRequest is the evidence descriptor a verifier submits.
type EvidenceRequest struct {
	Type  string `json:"type"`
	URL   string `json:"url"`
	Notes string `json:"notes"`
}

// Validate implements httputil.Validatable.
func (r *SubmitRequest) Validate() error {
	r.Evidence.Type = strings.TrimSpace(r.Evidence.Type)
	if r.Evidence.Type == "" {
		return dErrors.New(dErrors.CodeValidation, "evidence.type is required")
	}

	vaultID, err := id.ParseVaultID(r.VaultID)
	if err != nil {
		return err
	}
	r.parsedVaultID = vaultID

	partyID, err := id.ParsePartyID(r.PartyID)
	if err != nil {
		return err
	}
	r.parsedPartyID = partyID
	return nil
}

func (r *SubmitRequest) ParsedVaultID() id.VaultID { return r.parsedVaultID }

func (r *SubmitRequest) ParsedPartyID() id.PartyID { return r.parsedPartyID }
