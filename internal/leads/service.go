// Package leads persists terminal dispatch outcomes per lead.
package leads

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/leadrelay/leadrelay/internal/db"
)

// Reporter is the write side used by the dispatcher.
type Reporter interface {
	UpdateStatus(ctx context.Context, leadID, status, diagnostic string) error
}

type Service struct {
	pool *pgxpool.Pool
}

func NewService(pool *pgxpool.Pool) *Service {
	return &Service{pool: pool}
}

const updateStatusQuery = `
UPDATE leads
SET status = $2, diagnostic = $3, updated_at = now()
WHERE id = $1
`

// UpdateStatus writes the terminal status and diagnostic for one lead.
// The dispatcher calls this exactly once per attempt.
func (s *Service) UpdateStatus(ctx context.Context, leadID, status, diagnostic string) error {
	if s.pool == nil {
		return fmt.Errorf("leads store not configured")
	}
	pgID, err := db.ParseUUID(leadID)
	if err != nil {
		return err
	}
	if status != StatusSent && status != StatusFailed {
		return fmt.Errorf("invalid lead status: %s", status)
	}
	tag, err := s.pool.Exec(ctx, updateStatusQuery, pgID, status, db.TextFromString(diagnostic))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lead not found: %s", leadID)
	}
	return nil
}

const getLeadQuery = `
SELECT id, account_id, handle, peer_id, origin_chat_id, status, diagnostic, created_at, updated_at
FROM leads
WHERE id = $1
`

func (s *Service) Get(ctx context.Context, leadID string) (Lead, error) {
	if s.pool == nil {
		return Lead{}, fmt.Errorf("leads store not configured")
	}
	pgID, err := db.ParseUUID(leadID)
	if err != nil {
		return Lead{}, err
	}
	return scanLead(s.pool.QueryRow(ctx, getLeadQuery, pgID))
}

const listLeadsQuery = `
SELECT id, account_id, handle, peer_id, origin_chat_id, status, diagnostic, created_at, updated_at
FROM leads
WHERE account_id = $1
ORDER BY created_at DESC
LIMIT $2
`

func (s *Service) ListByAccount(ctx context.Context, accountID string, limit int) ([]Lead, error) {
	if s.pool == nil {
		return nil, fmt.Errorf("leads store not configured")
	}
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, listLeadsQuery, strings.TrimSpace(accountID), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, lead)
	}
	return items, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (Lead, error) {
	var (
		lead       Lead
		id         pgtype.UUID
		handle     pgtype.Text
		peerID     pgtype.Text
		originChat pgtype.Text
		diagnostic pgtype.Text
		createdAt  pgtype.Timestamptz
		updatedAt  pgtype.Timestamptz
	)
	if err := row.Scan(&id, &lead.AccountID, &handle, &peerID, &originChat, &lead.Status, &diagnostic, &createdAt, &updatedAt); err != nil {
		return Lead{}, err
	}
	lead.ID = db.UUIDToString(id)
	lead.Handle = db.TextToString(handle)
	lead.PeerID = db.TextToString(peerID)
	lead.OriginChatID = db.TextToString(originChat)
	lead.Diagnostic = db.TextToString(diagnostic)
	lead.CreatedAt = db.TimeFromPg(createdAt)
	lead.UpdatedAt = db.TimeFromPg(updatedAt)
	return lead, nil
}
