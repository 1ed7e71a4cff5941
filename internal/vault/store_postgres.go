package vault

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

// PostgresStore persists vaults in PostgreSQL. The unlock transition is a
// guarded single-statement UPDATE, so the database enforces the exactly-once
// winner even across processes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, v *Vault) error {
	query := `
		INSERT INTO vaults (id, account_id, name, description, state, quorum_threshold, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(v.ID), uuid.UUID(v.AccountID), v.Name, v.Description,
		string(v.State), v.QuorumThreshold, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create vault: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, vaultID id.VaultID) (*Vault, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, description, state, quorum_threshold, unlocked_at, created_at, updated_at
		FROM vaults WHERE id = $1
	`, uuid.UUID(vaultID))
	return scanVault(row)
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Vault, error) {
	return s.list(ctx, `
		SELECT id, account_id, name, description, state, quorum_threshold, unlocked_at, created_at, updated_at
		FROM vaults WHERE account_id = $1 ORDER BY created_at
	`, uuid.UUID(accountID))
}

func (s *PostgresStore) ListUnlocked(ctx context.Context) ([]*Vault, error) {
	return s.list(ctx, `
		SELECT id, account_id, name, description, state, quorum_threshold, unlocked_at, created_at, updated_at
		FROM vaults WHERE state = $1 ORDER BY unlocked_at
	`, string(StateUnlocked))
}

// TransitionToUnlocked performs the Active->Unlocked compare-and-set.
// The WHERE clause on state guarantees at most one row transition; a zero
// row count means another caller already won.
func (s *PostgresStore) TransitionToUnlocked(ctx context.Context, vaultID id.VaultID, unlockedAt time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE vaults
		SET state = $3, unlocked_at = $2, updated_at = $2
		WHERE id = $1 AND state = $4
	`, uuid.UUID(vaultID), unlockedAt, string(StateUnlocked), string(StateActive))
	if err != nil {
		return false, fmt.Errorf("unlock vault: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unlock vault: %w", err)
	}
	if affected == 0 {
		// Either the vault does not exist or it already left Active.
		if _, findErr := s.FindByID(ctx, vaultID); findErr != nil {
			return false, findErr
		}
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*Vault, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list vaults: %w", err)
	}
	defer rows.Close()

	var out []*Vault
	for rows.Next() {
		v, err := scanVault(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVault(row rowScanner) (*Vault, error) {
	var v Vault
	var vaultID, accountID uuid.UUID
	var state string
	var unlockedAt sql.NullTime
	err := row.Scan(&vaultID, &accountID, &v.Name, &v.Description, &state,
		&v.QuorumThreshold, &unlockedAt, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan vault: %w", err)
	}
	v.ID = id.VaultID(vaultID)
	v.AccountID = id.AccountID(accountID)
	v.State = State(state)
	if unlockedAt.Valid {
		t := unlockedAt.Time
		v.UnlockedAt = &t
	}
	return &v, nil
}
