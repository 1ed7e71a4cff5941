package handler

import (
	"strings"

	dErrors "vaultkeeper/pkg/domain-errors"
)

// CreateVaultRequest is the HTTP request body for POST /vaults.
type CreateVaultRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	QuorumThreshold int    `json:"quorum_threshold"`
}

// Validate implements httputil.Validatable.
func (r *CreateVaultRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > 200 {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 200 characters")
	}
	if r.QuorumThreshold < 0 {
		return dErrors.New(dErrors.CodeValidation, "quorum_threshold must not be negative")
	}
	return nil
}
