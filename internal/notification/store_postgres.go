package notification

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

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, n *Notification) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, account_id, vault_id, kind, message, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.UUID(n.ID), uuid.UUID(n.AccountID), uuid.UUID(n.VaultID),
		string(n.Kind), n.Message, n.Read, n.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListByAccount(ctx context.Context, accountID id.AccountID) ([]*Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, vault_id, kind, message, is_read, created_at
		FROM notifications
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
	`, uuid.UUID(accountID))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*Notification
	for rows.Next() {
		var n Notification
		var notificationID, account, vault uuid.UUID
		var kind string
		if err := rows.Scan(&notificationID, &account, &vault, &kind, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.ID = id.NotificationID(notificationID)
		n.AccountID = id.AccountID(account)
		n.VaultID = id.VaultID(vault)
		n.Kind = Kind(kind)
		out = append(out, &n)
	}
	return out, rows.Err()
}

func (s *PostgresStore) MarkRead(ctx context.Context, accountID id.AccountID, notificationID id.NotificationID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND account_id = $2
	`, uuid.UUID(notificationID), uuid.UUID(accountID))
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
