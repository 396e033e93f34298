package leads

import "time"

// Terminal statuses written by the dispatcher.
const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

type Lead struct {
	ID           string
	AccountID    string
	Handle       string
	PeerID       string
	OriginChatID string
	Status       string
	Diagnostic   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
