// Package sessions stores serialized messaging credentials per account.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadrelay/leadrelay/internal/db"
)

// ErrNotFound is returned when no credential exists for an account.
var ErrNotFound = errors.New("sessions: no credential for account")

type Store interface {
	Get(ctx context.Context, accountID string) (Session, error)
}

type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

const getSessionQuery = `
SELECT account_id, credential, created_at, updated_at
FROM sessions
WHERE account_id = $1
`

// Get returns the stored credential for accountID.
func (s *Service) Get(ctx context.Context, accountID string) (Session, error) {
	if s.pool == nil {
		return Session{}, fmt.Errorf("sessions store not configured")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return Session{}, fmt.Errorf("account id is required")
	}
	var (
		session   Session
		createdAt pgtype.Timestamptz
		updatedAt pgtype.Timestamptz
	)
	err := s.pool.QueryRow(ctx, getSessionQuery, accountID).Scan(
		&session.AccountID,
		&session.Credential,
		&createdAt,
		&updatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, accountID)
	}
	if err != nil {
		return Session{}, err
	}
	session.CreatedAt = db.TimeFromPg(createdAt)
	session.UpdatedAt = db.TimeFromPg(updatedAt)
	return session, nil
}

const putSessionQuery = `
INSERT INTO sessions (account_id, credential)
VALUES ($1, $2)
ON CONFLICT (account_id)
DO UPDATE SET credential = EXCLUDED.credential, updated_at = now()
`

// Put stores or replaces the credential for accountID.
func (s *Service) Put(ctx context.Context, accountID string, credential []byte) error {
	if s.pool == nil {
		return fmt.Errorf("sessions store not configured")
	}
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return fmt.Errorf("account id is required")
	}
	if len(credential) == 0 {
		return fmt.Errorf("credential is required")
	}
	_, err := s.pool.Exec(ctx, putSessionQuery, accountID, credential)
	return err
}

// Delete removes the credential for accountID.
func (s *Service) Delete(ctx context.Context, accountID string) error {
	if s.pool == nil {
		return fmt.Errorf("sessions store not configured")
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, strings.TrimSpace(accountID))
	return err
}
