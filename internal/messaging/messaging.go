// Package messaging defines the capability boundary to the external
// messaging network. Implementations connect with a serialized session
// credential and expose the primitives the resolver and dispatcher need;
// the wire protocol itself is out of scope here.
package messaging

import (
	"context"
	"errors"
)

var (
	// ErrPeerNotFound is returned when a lookup cannot produce a peer.
	ErrPeerNotFound = errors.New("messaging: peer not found")
	// ErrUnsupported is returned by backends that cannot express an
	// operation; the resolver treats it as an ordinary tier failure.
	ErrUnsupported = errors.New("messaging: operation not supported")
)

// Tier identifies which resolution strategy produced a peer reference.
// Diagnostic only; no logic branches on it once a peer exists.
type Tier int

const (
	TierNone Tier = iota
	TierHandle
	TierIDLookup
	TierOriginContext
	TierProbeSend
	TierContactAdd
	TierContactImport
)

func (t Tier) String() string {
	switch t {
	case TierHandle:
		return "handle"
	case TierIDLookup:
		return "id_lookup"
	case TierOriginContext:
		return "origin_context"
	case TierProbeSend:
		return "probe_send"
	case TierContactAdd:
		return "contact_add"
	case TierContactImport:
		return "contact_import"
	default:
		return "none"
	}
}

// PeerRef is a validated, addressable peer. Immutable once produced and
// discarded after the dispatch call returns.
type PeerRef struct {
	ID          int64
	AccessToken int64
	Source      Tier
}

// Participant is one member record from a context chat listing.
type Participant struct {
	PeerID      int64
	AccessToken int64
	Handle      string
}

// FileRef is an opaque handle for uploaded content.
type FileRef struct {
	ID       string
	MimeType string
}

// TypingKind selects the presence indicator appropriate to the payload.
type TypingKind string

const (
	TypingText  TypingKind = "text"
	TypingMedia TypingKind = "media"
)

// Messenger is a live connection to the messaging backend. One Messenger
// serves exactly one dispatch invocation; it is dialed per call and never
// pooled.
type Messenger interface {
	Connect(ctx context.Context, credential []byte) error
	Close(ctx context.Context) error

	// ResolvePeerByHandle looks a peer up by public handle (no leading
	// marker character).
	ResolvePeerByHandle(ctx context.Context, handle string) (PeerRef, error)
	// ResolvePeerByID looks a peer up by numeric id against the
	// session's local address cache.
	ResolvePeerByID(ctx context.Context, id int64) (PeerRef, error)
	// ListParticipants searches a context chat's member list, filtered
	// by idFilter, returning at most limit records.
	ListParticipants(ctx context.Context, contextID int64, idFilter string, limit int) ([]Participant, error)
	// AddContact requests the backend add id to the session's contacts
	// under a synthetic name.
	AddContact(ctx context.Context, id int64, syntheticName string) error
	// ImportContact issues a generic phone-record import; last carries
	// the synthetic identifier.
	ImportContact(ctx context.Context, phone, first, last string) error

	SetTyping(ctx context.Context, peer PeerRef, kind TypingKind) error
	UploadContent(ctx context.Context, data []byte, mimeType string) (FileRef, error)
	// SendMessage delivers text to peer, optionally attaching file, and
	// returns the backend message id. linkPreview only applies to
	// text-only sends.
	SendMessage(ctx context.Context, peer PeerRef, text string, file *FileRef, linkPreview bool) (int64, error)
	DeleteMessage(ctx context.Context, peer PeerRef, messageID int64) error
}

// Dialer opens a Messenger for one dispatch invocation.
type Dialer interface {
	Dial(ctx context.Context, credential []byte) (Messenger, error)
}

// DialerFunc adapts a function to the Dialer interface.
type DialerFunc func(ctx context.Context, credential []byte) (Messenger, error)

func (f DialerFunc) Dial(ctx context.Context, credential []byte) (Messenger, error) {
	return f(ctx, credential)
}
