package verification

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

// PostgresStore persists the attestation ledger in PostgreSQL. Finalize is a
// guarded single-statement UPDATE on status, so the AlreadyFinalized
// contract holds across processes without explicit locking.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const verificationColumns = `
	id, vault_id, party_id, evidence_type, evidence_url, evidence_notes,
	status, reviewed_by, created_at, decided_at
`

func (s *PostgresStore) Append(ctx context.Context, v *Verification) error {
	query := `
		INSERT INTO death_verifications
			(id, vault_id, party_id, evidence_type, evidence_url, evidence_notes, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(v.ID), uuid.UUID(v.VaultID), uuid.UUID(v.PartyID),
		v.Evidence.Type, v.Evidence.URL, v.Evidence.Notes,
		string(v.Status), v.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("append verification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, verificationID id.VerificationID) (*Verification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+verificationColumns+` FROM death_verifications WHERE id = $1`,
		uuid.UUID(verificationID))
	return scanVerification(row)
}

func (s *PostgresStore) ListByVault(ctx context.Context, vaultID id.VaultID) ([]*Verification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+verificationColumns+` FROM death_verifications WHERE vault_id = $1 ORDER BY created_at`,
		uuid.UUID(vaultID))
	if err != nil {
		return nil, fmt.Errorf("list verifications: %w", err)
	}
	defer rows.Close()

	var out []*Verification
	for rows.Next() {
		v, err := scanVerification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *PostgresStore) HasPending(ctx context.Context, vaultID id.VaultID, partyID id.PartyID) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM death_verifications
			WHERE vault_id = $1 AND party_id = $2 AND status = 'pending'
		)
	`, uuid.UUID(vaultID), uuid.UUID(partyID)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending verification: %w", err)
	}
	return exists, nil
}

// Finalize moves a Pending record to its terminal status. The WHERE clause
// on status is the compare-and-set; zero rows means either an unknown id or
// an already-finalized record, disambiguated by a follow-up read.
func (s *PostgresStore) Finalize(ctx context.Context, verificationID id.VerificationID, status Status, reviewer id.AccountID, decidedAt time.Time) (*Verification, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE death_verifications
		SET status = $2, reviewed_by = $3, decided_at = GREATEST($4, created_at)
		WHERE id = $1 AND status = 'pending'
		RETURNING `+verificationColumns,
		uuid.UUID(verificationID), string(status), uuid.UUID(reviewer), decidedAt)
	v, err := scanVerification(row)
	if err == nil {
		return v, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, err
	}
	if _, findErr := s.FindByID(ctx, verificationID); findErr != nil {
		return nil, findErr
	}
	return nil, sentinel.ErrInvalidState
}

func (s *PostgresStore) CountDistinctVerifiedParties(ctx context.Context, vaultID id.VaultID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT party_id) FROM death_verifications
		WHERE vault_id = $1 AND status = 'verified'
	`, uuid.UUID(vaultID)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count verified parties: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanVerification(row rowScanner) (*Verification, error) {
	var v Verification
	var verificationID, vaultID, partyID uuid.UUID
	var status string
	var reviewedBy uuid.NullUUID
	var decidedAt sql.NullTime
	err := row.Scan(&verificationID, &vaultID, &partyID,
		&v.Evidence.Type, &v.Evidence.URL, &v.Evidence.Notes,
		&status, &reviewedBy, &v.CreatedAt, &decidedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan verification: %w", err)
	}
	v.ID = id.VerificationID(verificationID)
	v.VaultID = id.VaultID(vaultID)
	v.PartyID = id.PartyID(partyID)
	v.Status = Status(status)
	if reviewedBy.Valid {
		reviewer := id.AccountID(reviewedBy.UUID)
		v.ReviewedBy = &reviewer
	}
	if decidedAt.Valid {
		t := decidedAt.Time
		v.DecidedAt = &t
	}
	return &v, nil
}
