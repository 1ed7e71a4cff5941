package instruction

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a unique
// constraint violation.
const uniqueViolation = "23505"

// PostgresStore persists legacy instructions in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const instructionColumns = `
	id, vault_id, account_id, action_type, title, target_email, asset_ref,
	message, delay_days, is_executed, executed_at, failed_at, failure_reason,
	held_at, hold_reason, created_at
`

func (s *PostgresStore) Create(ctx context.Context, inst *Instruction) error {
	query := `
		INSERT INTO legacy_instructions
			(id, vault_id, account_id, action_type, title, target_email, asset_ref, message, delay_days, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(inst.ID), uuid.UUID(inst.VaultID), uuid.UUID(inst.AccountID),
		string(inst.Action), inst.Title, inst.TargetEmail, inst.AssetRef,
		inst.Message, inst.DelayDays, inst.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create instruction: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, instructionID id.InstructionID) (*Instruction, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+instructionColumns+` FROM legacy_instructions WHERE id = $1`,
		uuid.UUID(instructionID))
	return scanInstruction(row)
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Instruction, error) {
	return s.list(ctx,
		`SELECT `+instructionColumns+` FROM legacy_instructions WHERE account_id = $1 ORDER BY created_at, id`,
		uuid.UUID(accountID))
}

func (s *PostgresStore) ListPendingByVault(ctx context.Context, vaultID id.VaultID) ([]*Instruction, error) {
	return s.list(ctx, `
		SELECT `+instructionColumns+` FROM legacy_instructions
		WHERE vault_id = $1 AND is_executed = FALSE AND failed_at IS NULL AND held_at IS NULL
		ORDER BY created_at, id
	`, uuid.UUID(vaultID))
}

func (s *PostgresStore) Delete(ctx context.Context, accountID id.AccountID, instructionID id.InstructionID) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM legacy_instructions
		WHERE id = $1 AND account_id = $2 AND is_executed = FALSE
	`, uuid.UUID(instructionID), uuid.UUID(accountID))
	if err != nil {
		return fmt.Errorf("delete instruction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete instruction: %w", err)
	}
	if affected == 0 {
		inst, findErr := s.FindByID(ctx, instructionID)
		if findErr != nil {
			return findErr
		}
		if inst.IsExecuted {
			return sentinel.ErrInvalidState
		}
		return sentinel.ErrNotFound
	}
	return nil
}

// MarkExecuted flips is_executed exactly once; the guarded UPDATE is the
// compare-and-set that keeps execution exactly-once across workers.
func (s *PostgresStore) MarkExecuted(ctx context.Context, instructionID id.InstructionID, executedAt time.Time) error {
	return s.conditionalMark(ctx, `
		UPDATE legacy_instructions
		SET is_executed = TRUE, executed_at = $2
		WHERE id = $1 AND is_executed = FALSE AND failed_at IS NULL
	`, instructionID, executedAt)
}

// MarkFailed records the permanent-failure terminal state.
func (s *PostgresStore) MarkFailed(ctx context.Context, instructionID id.InstructionID, failedAt time.Time, reason string) error {
	return s.conditionalMark(ctx, `
		UPDATE legacy_instructions
		SET failed_at = $2, failure_reason = $3
		WHERE id = $1 AND is_executed = FALSE AND failed_at IS NULL
	`, instructionID, failedAt, reason)
}

// Hold parks an instruction after an internal-consistency fault.
func (s *PostgresStore) Hold(ctx context.Context, instructionID id.InstructionID, heldAt time.Time, reason string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE legacy_instructions SET held_at = $2, hold_reason = $3 WHERE id = $1
	`, uuid.UUID(instructionID), heldAt, reason)
	if err != nil {
		return fmt.Errorf("hold instruction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("hold instruction: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) conditionalMark(ctx context.Context, query string, instructionID id.InstructionID, args ...any) error {
	queryArgs := append([]any{uuid.UUID(instructionID)}, args...)
	res, err := s.db.ExecContext(ctx, query, queryArgs...)
	if err != nil {
		return fmt.Errorf("mark instruction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark instruction: %w", err)
	}
	if affected == 0 {
		if _, findErr := s.FindByID(ctx, instructionID); findErr != nil {
			return findErr
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*Instruction, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list instructions: %w", err)
	}
	defer rows.Close()

	var out []*Instruction
	for rows.Next() {
		inst, err := scanInstruction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInstruction(row rowScanner) (*Instruction, error) {
	var inst Instruction
	var instructionID, vaultID, accountID uuid.UUID
	var action string
	var executedAt, failedAt, heldAt sql.NullTime
	var failureReason, holdReason sql.NullString
	err := row.Scan(&instructionID, &vaultID, &accountID, &action, &inst.Title,
		&inst.TargetEmail, &inst.AssetRef, &inst.Message, &inst.DelayDays,
		&inst.IsExecuted, &executedAt, &failedAt, &failureReason,
		&heldAt, &holdReason, &inst.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan instruction: %w", err)
	}
	inst.ID = id.InstructionID(instructionID)
	inst.VaultID = id.VaultID(vaultID)
	inst.AccountID = id.AccountID(accountID)
	inst.Action = ActionType(action)
	if executedAt.Valid {
		t := executedAt.Time
		inst.ExecutedAt = &t
	}
	if failedAt.Valid {
		t := failedAt.Time
		inst.FailedAt = &t
	}
	inst.FailureReason = failureReason.String
	if heldAt.Valid {
		t := heldAt.Time
		inst.HeldAt = &t
	}
	inst.HoldReason = holdReason.String
	return &inst, nil
}
