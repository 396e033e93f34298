package sessions

import "time"

// Session is a reusable serialized connection credential for one account.
// It is borrowed by a dispatch invocation and never mutated by it.
type Session struct {
	AccountID  string
	Credential []byte
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
