package handler

import (
	"time"

	"vaultkeeper/internal/instruction"
)

// InstructionResponse is the HTTP representation of a legacy instruction.
type InstructionResponse struct {
	ID            string     `json:"id"`
	VaultID       string     `json:"vault_id"`
	Action        string     `json:"action_type"`
	Title         string     `json:"title"`
	TargetEmail   string     `json:"target_email,omitempty"`
	AssetRef      string     `json:"asset_ref,omitempty"`
	Message       string     `json:"message,omitempty"`
	DelayDays     int        `json:"delay_days"`
	IsExecuted    bool       `json:"is_executed"`
	ExecutedAt    *time.Time `json:"executed_at,omitempty"`
	FailedAt      *time.Time `json:"failed_at,omitempty"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func FromInstruction(inst *instruction.Instruction) *InstructionResponse {
	return &InstructionResponse{
		ID:            inst.ID.String(),
		VaultID:       inst.VaultID.String(),
		Action:        string(inst.Action),
		Title:         inst.Title,
		TargetEmail:   inst.TargetEmail,
		AssetRef:      inst.AssetRef,
		Message:       inst.Message,
		DelayDays:     inst.DelayDays,
		IsExecuted:    inst.IsExecuted,
		ExecutedAt:    inst.ExecutedAt,
		FailedAt:      inst.FailedAt,
		FailureReason: inst.FailureReason,
		CreatedAt:     inst.CreatedAt,
	}
}

func FromInstructions(instructions []*instruction.Instruction) []*InstructionResponse {
	out := make([]*InstructionResponse, 0, len(instructions))
	for _, inst := range instructions {
		out = append(out, FromInstruction(inst))
	}
	return out
}
