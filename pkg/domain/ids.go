// Package domain holds the typed identifiers shared across the engine.
// Wrapping uuid.UUID per entity keeps a vault id from ever standing in for
// a party id at a call site.
package domain

import (
	"github.com/google/uuid"

	dErrors "vaultkeeper/pkg/domain-errors"
)

type AccountID uuid.UUID

type VaultID uuid.UUID

type PartyID uuid.UUID

type VerificationID uuid.UUID

type InstructionID uuid.UUID

type NotificationID uuid.UUID

func NewAccountID() AccountID           { return AccountID(uuid.New()) }
func NewVaultID() VaultID               { return VaultID(uuid.New()) }
func NewPartyID() PartyID               { return PartyID(uuid.New()) }
func NewVerificationID() VerificationID { return VerificationID(uuid.New()) }
func NewInstructionID() InstructionID   { return InstructionID(uuid.New()) }
func NewNotificationID() NotificationID { return NotificationID(uuid.New()) }

func (i AccountID) String() string      { return uuid.UUID(i).String() }
func (i VaultID) String() string        { return uuid.UUID(i).String() }
func (i PartyID) String() string        { return uuid.UUID(i).String() }
func (i VerificationID) String() string { return uuid.UUID(i).String() }
func (i InstructionID) String() string  { return uuid.UUID(i).String() }
func (i NotificationID) String() string { return uuid.UUID(i).String() }

func (i AccountID) IsZero() bool      { return uuid.UUID(i) == uuid.Nil }
func (i VaultID) IsZero() bool        { return uuid.UUID(i) == uuid.Nil }
func (i PartyID) IsZero() bool        { return uuid.UUID(i) == uuid.Nil }
func (i VerificationID) IsZero() bool { return uuid.UUID(i) == uuid.Nil }
func (i InstructionID) IsZero() bool  { return uuid.UUID(i) == uuid.Nil }

func ParseAccountID(raw string) (AccountID, error) {
	u, err := parseUUID(raw, "account id")
	return AccountID(u), err
}

func ParseVaultID(raw string) (VaultID, error) {
	u, err := parseUUID(raw, "vault id")
	return VaultID(u), err
}

func ParsePartyID(raw string) (PartyID, error) {
	u, err := parseUUID(raw, "party id")
	return PartyID(u), err
}

func ParseVerificationID(raw string) (VerificationID, error) {
	u, err := parseUUID(raw, "verification id")
	return VerificationID(u), err
}

func ParseInstructionID(raw string) (InstructionID, error) {
	u, err := parseUUID(raw, "instruction id")
	return InstructionID(u), err
}

func ParseNotificationID(raw string) (NotificationID, error) {
	u, err := parseUUID(raw, "notification id")
	return NotificationID(u), err
}

func parseUUID(raw, label string) (uuid.UUID, error) {
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeValidation, "invalid "+label)
	}
	return u, nil
}
