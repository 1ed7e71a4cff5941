package party

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	id "vaultkeeper/pkg/domain"
	"vaultkeeper/pkg/platform/sentinel"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a unique
// constraint violation.
const uniqueViolation = "23505"

// PostgresStore persists trusted parties in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, p *Party) error {
	query := `
		INSERT INTO trusted_parties (id, vault_id, account_id, name, email, role, phone, relationship, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(p.ID), uuid.UUID(p.VaultID), uuid.UUID(p.AccountID),
		p.Name, p.Email, string(p.Role), p.Phone, p.Relationship, p.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create trusted party: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, partyID id.PartyID) (*Party, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, vault_id, account_id, name, email, role, phone, relationship, created_at
		FROM trusted_parties WHERE id = $1
	`, uuid.UUID(partyID))
	return scanParty(row)
}

func (s *PostgresStore) ListByVault(ctx context.Context, vaultID id.VaultID) ([]*Party, error) {
	return s.list(ctx, `
		SELECT id, vault_id, account_id, name, email, role, phone, relationship, created_at
		FROM trusted_parties WHERE vault_id = $1 ORDER BY created_at
	`, uuid.UUID(vaultID))
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Party, error) {
	return s.list(ctx, `
		SELECT id, vault_id, account_id, name, email, role, phone, relationship, created_at
		FROM trusted_parties WHERE account_id = $1 ORDER BY created_at
	`, uuid.UUID(accountID))
}

func (s *PostgresStore) Delete(ctx context.Context, accountID id.AccountID, partyID id.PartyID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM trusted_parties WHERE id = $1 AND account_id = $2`,
		uuid.UUID(partyID), uuid.UUID(accountID),
	)
	if err != nil {
		return fmt.Errorf("delete trusted party: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trusted party: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) IsVerifier(ctx context.Context, vaultID id.VaultID, partyID id.PartyID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM trusted_parties
			WHERE id = $1 AND vault_id = $2 AND role = 'verifier'
		)
	`, uuid.UUID(partyID), uuid.UUID(vaultID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check verifier role: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, arg any) ([]*Party, error) {
	rows, err := s.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list trusted parties: %w", err)
	}
	defer rows.Close()

	var out []*Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParty(row rowScanner) (*Party, error) {
	var p Party
	var partyID, vaultID, accountID uuid.UUID
	var role string
	err := row.Scan(&partyID, &vaultID, &accountID, &p.Name, &p.Email, &role, &p.Phone, &p.Relationship, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan trusted party: %w", err)
	}
	p.ID = id.PartyID(partyID)
	p.VaultID = id.VaultID(vaultID)
	p.AccountID = id.AccountID(accountID)
	p.Role = Role(role)
	return &p, nil
}
