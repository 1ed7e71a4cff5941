package handler

import (
	"time"

	"vaultkeeper/internal/verification"
)

// VerificationResponse is the HTTP representation of an attestation.
type VerificationResponse struct {
	ID         string           `json:"id"`
	VaultID    string           `json:"vault_id"`
	PartyID    string           `json:"party_id"`
	Evidence   EvidenceResponse `json:"evidence"`
	Status     string           `json:"status"`
	ReviewedBy string           `json:"reviewed_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	DecidedAt  *time.Time       `json:"decided_at,omitempty"`
}

// EvidenceResponse mirrors the submitted evidence descriptor.
type EvidenceResponse struct {
	Type  string `json:"type"`
	URL   string `json:"url,omitempty"`
	Notes string `json:"notes,omitempty"`
}

func FromVerification(v *verification.Verification) *VerificationResponse {
	resp := &VerificationResponse{
		ID:      v.ID.String(),
		VaultID: v.VaultID.String(),
		PartyID: v.PartyID.String(),
		Evidence: EvidenceResponse{
			Type:  v.Evidence.Type,
			URL:   v.Evidence.URL,
			Notes: v.Evidence.Notes,
		},
		Status:    string(v.Status),
		CreatedAt: v.CreatedAt,
		DecidedAt: v.DecidedAt,
	}
	if v.ReviewedBy != nil {
		resp.ReviewedBy = v.ReviewedBy.String()
	}
	return resp
}

func FromVerifications(verifications []*verification.Verification) []*VerificationResponse {
	out := make([]*VerificationResponse, 0, len(verifications))
	for _, v := range verifications {
		out = append(out, FromVerification(v))
	}
	return out
}
