// Package dispatch orchestrates one delivery: fetch credential, connect,
// resolve the target, pace, send, erase, and report a single terminal
// outcome to the lead store.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/leadrelay/leadrelay/internal/config"
	"github.com/leadrelay/leadrelay/internal/leads"
	"github.com/leadrelay/leadrelay/internal/messaging"
	"github.com/leadrelay/leadrelay/internal/resolver"
	"github.com/leadrelay/leadrelay/internal/sessions"
	"github.com/leadrelay/leadrelay/internal/template"
)

// Service runs dispatch invocations. Each invocation opens and tears
// down its own messenger connection; invocations for distinct accounts
// may run concurrently.
type Service struct {
	logger   *slog.Logger
	cfg      config.DispatchConfig
	sessions sessions.Store
	leads    leads.Reporter
	dialer   messaging.Dialer
	resolver *resolver.Resolver
	media    MediaFetcher

	// Injectable for deterministic tests.
	sleep   resolver.SleepFunc
	randInt func(n int64) int64
	choose  template.ChoiceFunc

	locks *accountLocks

	limiterMu sync.Mutex
	limiters  map[string]*rate.Limiter
}

// NewService creates the dispatch service.
func NewService(log *slog.Logger, cfg config.DispatchConfig, sessionStore sessions.Store, leadStore leads.Reporter, dialer messaging.Dialer) *Service {
	if log == nil {
		log = slog.Default()
	}
	sleep := resolver.DefaultSleep
	return &Service{
		logger:   log.With(slog.String("component", "dispatch")),
		cfg:      cfg,
		sessions: sessionStore,
		leads:    leadStore,
		dialer:   dialer,
		resolver: resolver.New(log, cfg.Settle(), sleep),
		media:    NewMediaFetcher(cfg.MediaTimeout()),
		sleep:    sleep,
		randInt:   rand.Int64N,
		locks:    newAccountLocks(),
		limiters: make(map[string]*rate.Limiter),
	}
}

// SetSleep overrides the pacing/settle sleeper (tests).
func (s *Service) SetSleep(sleep resolver.SleepFunc) {
	s.sleep = sleep
	s.resolver = resolver.New(s.logger, s.cfg.Settle(), sleep)
}

// SetRand overrides the pacing jitter source (tests).
func (s *Service) SetRand(randInt func(n int64) int64) {
	s.randInt = randInt
}

// SetChoose overrides template alternation choice (tests).
func (s *Service) SetChoose(choose template.ChoiceFunc) {
	s.choose = choose
}

// SetMediaFetcher overrides the media fetcher (tests).
func (s *Service) SetMediaFetcher(f MediaFetcher) {
	s.media = f
}

// Dispatch runs one invocation end to end and always returns a definite
// outcome. When req.LeadID is set, the lead store receives the matching
// terminal status exactly once.
func (s *Service) Dispatch(ctx context.Context, req Request) Result {
	outcome := s.run(ctx, req)
	s.report(ctx, req.LeadID, outcome)
	if outcome.Success() {
		s.logger.Info("dispatched",
			slog.String("account_id", req.AccountID),
			slog.String("lead_id", req.LeadID),
		)
	} else {
		s.logger.Warn("dispatch failed",
			slog.String("account_id", req.AccountID),
			slog.String("lead_id", req.LeadID),
			slog.String("outcome", string(outcome.Kind)),
			slog.String("message", outcome.Message),
		)
	}
	return Result{Outcome: outcome}
}

func (s *Service) run(ctx context.Context, req Request) Outcome {
	accountID := strings.TrimSpace(req.AccountID)
	if accountID == "" {
		return Classify(fmt.Errorf("account id is required"))
	}

	if s.cfg.Serialize() {
		unlock := s.locks.acquire(accountID)
		defer unlock()
	}

	if lim := s.limiterFor(accountID); lim != nil && !lim.Allow() {
		return Classify(fmt.Errorf("FLOOD_WAIT: local flood limit for account %s", accountID))
	}

	session, err := s.sessions.Get(ctx, accountID)
	if err != nil {
		return Classify(err)
	}

	m, err := s.dialer.Dial(ctx, session.Credential)
	if err != nil {
		return Classify(fmt.Errorf("dial: %w", err))
	}
	if err := m.Connect(ctx, session.Credential); err != nil {
		return Classify(fmt.Errorf("connect: %w", err))
	}
	defer func() {
		if err := m.Close(ctx); err != nil {
			s.logger.Warn("close messenger", slog.Any("error", err))
		}
	}()

	text := template.RenderWith(req.Payload.Text, s.choose)

	probe := func(ctx context.Context, peer messaging.PeerRef) error {
		return s.sendSequence(ctx, m, peer, text, req.Payload.MediaURL)
	}

	res, err := s.resolver.Resolve(ctx, m, req.Target, probe)
	if err != nil {
		return Classify(err)
	}
	if res.ProbeSent {
		return Sent
	}

	if err := s.sendSequence(ctx, m, res.Peer, text, req.Payload.MediaURL); err != nil {
		return Classify(err)
	}
	return Sent
}

// sendSequence performs typing, pacing, optional media upload, the send
// itself, and the best-effort self-erase. It is also the tier-4 probe.
func (s *Service) sendSequence(ctx context.Context, m messaging.Messenger, peer messaging.PeerRef, text, mediaURL string) error {
	kind := messaging.TypingText
	if mediaURL != "" {
		kind = messaging.TypingMedia
	}
	if err := m.SetTyping(ctx, peer, kind); err != nil {
		return fmt.Errorf("typing: %w", err)
	}
	if err := s.pace(ctx); err != nil {
		return err
	}

	var (
		msgID int64
		err   error
	)
	if mediaURL != "" {
		data, mimeType, err2 := s.media.Fetch(ctx, mediaURL)
		if err2 != nil {
			return err2
		}
		file, err2 := m.UploadContent(ctx, data, mimeType)
		if err2 != nil {
			return fmt.Errorf("upload: %w", err2)
		}
		msgID, err = m.SendMessage(ctx, peer, text, &file, false)
	} else {
		msgID, err = m.SendMessage(ctx, peer, text, nil, true)
	}
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}

	// Ghost mode: the message is already delivered, so erase failure
	// must never fail the outcome.
	if err := m.DeleteMessage(ctx, peer, msgID); err != nil {
		s.logger.Warn("self-erase failed",
			slog.Int64("message_id", msgID),
			slog.Int64("peer_id", peer.ID),
			slog.Any("error", err),
		)
	}
	return nil
}

// pace suspends for a uniform random interval in [PaceMin, PaceMax),
// modeling human response latency before the send.
func (s *Service) pace(ctx context.Context) error {
	minD, maxD := s.cfg.PaceMin(), s.cfg.PaceMax()
	d := minD
	if span := maxD - minD; span > 0 {
		d += time.Duration(s.randInt(int64(span)))
	}
	return s.sleep(ctx, d)
}

func (s *Service) report(ctx context.Context, leadID string, outcome Outcome) {
	if strings.TrimSpace(leadID) == "" || s.leads == nil {
		return
	}
	if err := s.leads.UpdateStatus(ctx, leadID, outcome.LeadStatus(), outcome.Message); err != nil {
		s.logger.Warn("lead status update failed",
			slog.String("lead_id", leadID),
			slog.Any("error", err),
		)
	}
}

func (s *Service) limiterFor(accountID string) *rate.Limiter {
	if s.cfg.FloodPerMinute <= 0 {
		return nil
	}
	s.limiterMu.Lock()
	defer s.limiterMu.Unlock()
	lim, ok := s.limiters[accountID]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(s.cfg.FloodPerMinute)), s.cfg.FloodPerMinute)
		s.limiters[accountID] = lim
	}
	return lim
}
