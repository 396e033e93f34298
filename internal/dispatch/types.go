package dispatch

import "github.com/leadrelay/leadrelay/internal/resolver"

// Payload is the caller-supplied content: a templated body with optional
// alternation groups, plus an optional remote media reference.
type Payload struct {
	Text     string
	MediaURL string
}

// Request is one dispatch invocation.
type Request struct {
	AccountID string
	LeadID    string
	Target    resolver.Descriptor
	Payload   Payload
}

// Result carries the terminal outcome back to the caller.
type Result struct {
	Outcome Outcome
}
