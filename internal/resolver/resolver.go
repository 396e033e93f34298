// Package resolver converts a target descriptor into an addressable peer
// through an ordered cascade of strategies. Cheap, reversible lookups run
// first; strategies with side effects (contact add/import) run last;
// between them sits a probe send that can finish the whole dispatch early.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/leadrelay/leadrelay/internal/messaging"
)

// ErrExhausted is returned when every applicable strategy failed; the
// target is considered inaccessible for this session.
var ErrExhausted = errors.New("resolver: target inaccessible")

// Descriptor carries the caller-supplied hints identifying a target.
// At least one of Handle/OpaqueID must be set.
type Descriptor struct {
	Handle       string
	OpaqueID     string
	OriginChatID string
}

// Result is the outcome of a successful resolution. When ProbeSent is
// true the tier-4 probe already delivered the payload and no further
// dispatch work remains.
type Result struct {
	Peer      messaging.PeerRef
	ProbeSent bool
}

// ProbeSender runs the full send sequence against an unvalidated peer.
// The dispatcher supplies it so the resolver never duplicates pacing,
// upload, or cleanup logic.
type ProbeSender func(ctx context.Context, peer messaging.PeerRef) error

// SleepFunc suspends for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// DefaultSleep sleeps on a timer, honoring context cancellation.
func DefaultSleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Resolver runs the cascade. Stateless across calls; safe for concurrent
// use with distinct messengers.
type Resolver struct {
	logger *slog.Logger
	settle time.Duration
	sleep  SleepFunc
}

// New creates a Resolver. settle is the wait after contact add/import
// before the id lookup is retried; sleep may be nil for the default.
func New(log *slog.Logger, settle time.Duration, sleep SleepFunc) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	if sleep == nil {
		sleep = DefaultSleep
	}
	return &Resolver{
		logger: log.With(slog.String("component", "resolver")),
		settle: settle,
		sleep:  sleep,
	}
}

type tierStep struct {
	tier    messaging.Tier
	applies func(d Descriptor) bool
	run     func(ctx context.Context, m messaging.Messenger, d Descriptor, probe ProbeSender) (Result, error)
}

// Resolve walks the tiers in order and returns at the first success.
// The returned peer is tagged with the producing tier for diagnostics.
func (r *Resolver) Resolve(ctx context.Context, m messaging.Messenger, d Descriptor, probe ProbeSender) (Result, error) {
	if strings.TrimSpace(d.Handle) == "" && strings.TrimSpace(d.OpaqueID) == "" {
		return Result{}, fmt.Errorf("%w: no handle or id supplied", ErrExhausted)
	}

	steps := []tierStep{
		{messaging.TierHandle, hasHandle, r.byHandle},
		{messaging.TierIDLookup, hasNumericID, r.byID},
		{messaging.TierOriginContext, hasOriginContext, r.byOriginContext},
		{messaging.TierProbeSend, hasNumericID, r.byProbeSend},
		{messaging.TierContactAdd, hasNumericID, r.byContactAdd},
		{messaging.TierContactImport, hasOpaqueID, r.byContactImport},
	}

	var lastErr error
	for _, step := range steps {
		if !step.applies(d) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		res, err := step.run(ctx, m, d, probe)
		if err == nil {
			r.logger.Debug("resolved",
				slog.String("tier", step.tier.String()),
				slog.Int64("peer_id", res.Peer.ID),
				slog.Bool("probe_sent", res.ProbeSent),
			)
			return res, nil
		}
		lastErr = err
		r.logger.Debug("tier failed",
			slog.String("tier", step.tier.String()),
			slog.Any("error", err),
		)
	}

	if lastErr != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExhausted, lastErr)
	}
	return Result{}, fmt.Errorf("%w: no applicable strategy", ErrExhausted)
}

func hasHandle(d Descriptor) bool {
	return strings.TrimSpace(d.Handle) != ""
}

func hasOpaqueID(d Descriptor) bool {
	return strings.TrimSpace(d.OpaqueID) != ""
}

func hasNumericID(d Descriptor) bool {
	_, err := parseID(d.OpaqueID)
	return err == nil
}

func hasOriginContext(d Descriptor) bool {
	if _, err := parseID(d.OriginChatID); err != nil {
		return false
	}
	return hasOpaqueID(d)
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}

func (r *Resolver) byHandle(ctx context.Context, m messaging.Messenger, d Descriptor, _ ProbeSender) (Result, error) {
	handle := strings.TrimPrefix(strings.TrimSpace(d.Handle), "@")
	peer, err := m.ResolvePeerByHandle(ctx, handle)
	if err != nil {
		return Result{}, err
	}
	peer.Source = messaging.TierHandle
	return Result{Peer: peer}, nil
}

func (r *Resolver) byID(ctx context.Context, m messaging.Messenger, d Descriptor, _ ProbeSender) (Result, error) {
	id, err := parseID(d.OpaqueID)
	if err != nil {
		return Result{}, err
	}
	peer, err := m.ResolvePeerByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	peer.Source = messaging.TierIDLookup
	return Result{Peer: peer}, nil
}

// byOriginContext searches the originating chat for the target with a
// bounded single-item query. A participant without an access token still
// resolves, with a zero token; the probe path covers the rest.
func (r *Resolver) byOriginContext(ctx context.Context, m messaging.Messenger, d Descriptor, _ ProbeSender) (Result, error) {
	contextID, err := parseID(d.OriginChatID)
	if err != nil {
		return Result{}, err
	}
	participants, err := m.ListParticipants(ctx, contextID, strings.TrimSpace(d.OpaqueID), 1)
	if err != nil {
		return Result{}, err
	}
	if len(participants) == 0 {
		return Result{}, fmt.Errorf("no participant matched %q in context %d: %w", d.OpaqueID, contextID, messaging.ErrPeerNotFound)
	}
	p := participants[0]
	peerID := p.PeerID
	if peerID == 0 {
		if peerID, err = parseID(d.OpaqueID); err != nil {
			return Result{}, err
		}
	}
	return Result{Peer: messaging.PeerRef{
		ID:          peerID,
		AccessToken: p.AccessToken,
		Source:      messaging.TierOriginContext,
	}}, nil
}

// byProbeSend attempts the full send sequence against a zero-token peer.
// Send APIs sometimes accept a bare identifier; when that works the whole
// operation is already complete.
func (r *Resolver) byProbeSend(ctx context.Context, m messaging.Messenger, d Descriptor, probe ProbeSender) (Result, error) {
	if probe == nil {
		return Result{}, fmt.Errorf("no probe sender configured")
	}
	id, err := parseID(d.OpaqueID)
	if err != nil {
		return Result{}, err
	}
	peer := messaging.PeerRef{ID: id, Source: messaging.TierProbeSend}
	if err := probe(ctx, peer); err != nil {
		return Result{}, err
	}
	return Result{Peer: peer, ProbeSent: true}, nil
}

func (r *Resolver) byContactAdd(ctx context.Context, m messaging.Messenger, d Descriptor, _ ProbeSender) (Result, error) {
	id, err := parseID(d.OpaqueID)
	if err != nil {
		return Result{}, err
	}
	if err := m.AddContact(ctx, id, "lead-"+strings.TrimSpace(d.OpaqueID)); err != nil {
		return Result{}, err
	}
	if err := r.sleep(ctx, r.settle); err != nil {
		return Result{}, err
	}
	peer, err := m.ResolvePeerByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	peer.Source = messaging.TierContactAdd
	return Result{Peer: peer}, nil
}

// byContactImport files a generic phone-record import with the opaque id
// as the synthetic last name, then retries the id lookup.
func (r *Resolver) byContactImport(ctx context.Context, m messaging.Messenger, d Descriptor, _ ProbeSender) (Result, error) {
	opaque := strings.TrimSpace(d.OpaqueID)
	if err := m.ImportContact(ctx, "", "lead", opaque); err != nil {
		return Result{}, err
	}
	if err := r.sleep(ctx, r.settle); err != nil {
		return Result{}, err
	}
	id, err := parseID(opaque)
	if err != nil {
		return Result{}, err
	}
	peer, err := m.ResolvePeerByID(ctx, id)
	if err != nil {
		return Result{}, err
	}
	peer.Source = messaging.TierContactImport
	return Result{Peer: peer}, nil
}
