package handler

import (
	"time"

	"vaultkeeper/internal/party"
)

// PartyResponse is the HTTP representation of a trusted party.
type PartyResponse struct {
	ID           string    `json:"id"`
	VaultID      string    `json:"vault_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Phone        string    `json:"phone,omitempty"`
	Relationship string    `json:"relationship,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

func FromParty(p *party.Party) *PartyResponse {
	return &PartyResponse{
		ID:           p.ID.String(),
		VaultID:      p.VaultID.String(),
		Name:         p.Name,
		Email:        p.Email,
		Role:         string(p.Role),
		Phone:        p.Phone,
		Relationship: p.Relationship,
		CreatedAt:    p.CreatedAt,
	}
}

func FromParties(parties []*party.Party) []*PartyResponse {
	out := make([]*PartyResponse, 0, len(parties))
	for _, p := range parties {
		out = append(out, FromParty(p))
	}
	return out
}
