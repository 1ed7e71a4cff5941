package handler

import (
	"time"

	"vaultkeeper/internal/vault"
)

// VaultResponse is the HTTP representation of a vault.
type VaultResponse struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description,omitempty"`
	State           string     `json:"state"`
	QuorumThreshold int        `json:"quorum_threshold"`
	UnlockedAt      *time.Time `json:"unlocked_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func FromVault(v *vault.Vault) *VaultResponse {
	return &VaultResponse{
		ID:              v.ID.String(),
		Name:            v.Name,
		Description:     v.Description,
		State:           string(v.State),
		QuorumThreshold: v.QuorumThreshold,
		UnlockedAt:      v.UnlockedAt,
		CreatedAt:       v.CreatedAt,
	}
}

func FromVaults(vaults []*vault.Vault) []*VaultResponse {
	out := make([]*VaultResponse, 0, len(vaults))
	for _, v := range vaults {
		out = append(out, FromVault(v))
	}
	return out
}
