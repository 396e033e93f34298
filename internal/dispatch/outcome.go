package dispatch

import (
	"errors"
	"net/http"
	"strings"

	"github.com/leadrelay/leadrelay/internal/leads"
	"github.com/leadrelay/leadrelay/internal/resolver"
)

// OutcomeKind is the terminal classification of one dispatch attempt.
type OutcomeKind string

const (
	OutcomeSent             OutcomeKind = "sent"
	OutcomeResolutionFailed OutcomeKind = "resolution_failed"
	OutcomeRateLimited      OutcomeKind = "rate_limited"
	OutcomeTransientError   OutcomeKind = "transient_error"
)

// Backend markers indicating throttling rather than permanent failure.
var rateLimitMarkers = []string{"PEER_FLOOD", "FLOOD_WAIT"}

// Outcome is the single terminal result of a dispatch attempt.
type Outcome struct {
	Kind    OutcomeKind
	Message string
}

// Sent is the success outcome.
var Sent = Outcome{Kind: OutcomeSent}

// Classify maps a terminal error to an outcome. Rate-limit markers win
// over everything else in the message; resolution exhaustion maps to
// ResolutionFailed; the rest is transient.
func Classify(err error) Outcome {
	if err == nil {
		return Sent
	}
	msg := err.Error()
	for _, marker := range rateLimitMarkers {
		if strings.Contains(msg, marker) {
			return Outcome{Kind: OutcomeRateLimited, Message: msg}
		}
	}
	if errors.Is(err, resolver.ErrExhausted) {
		return Outcome{Kind: OutcomeResolutionFailed, Message: msg}
	}
	return Outcome{Kind: OutcomeTransientError, Message: msg}
}

// Success reports whether the payload was delivered.
func (o Outcome) Success() bool {
	return o.Kind == OutcomeSent
}

// LeadStatus maps the outcome onto the lead store's status vocabulary.
func (o Outcome) LeadStatus() string {
	if o.Success() {
		return leads.StatusSent
	}
	return leads.StatusFailed
}

// HTTPStatus returns the HTTP-equivalent status for the outcome.
func (o Outcome) HTTPStatus() int {
	switch o.Kind {
	case OutcomeSent:
		return http.StatusOK
	case OutcomeResolutionFailed:
		return http.StatusNotFound
	case OutcomeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
