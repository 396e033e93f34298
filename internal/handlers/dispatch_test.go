package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/leadrelay/leadrelay/internal/config"
	"github.com/leadrelay/leadrelay/internal/dispatch"
	"github.com/leadrelay/leadrelay/internal/messaging"
	"github.com/leadrelay/leadrelay/internal/sessions"
)

type okMessenger struct{}

func (okMessenger) Connect(ctx context.Context, credential []byte) error { return nil }
func (okMessenger) Close(ctx context.Context) error                      { return nil }

func (okMessenger) ResolvePeerByHandle(ctx context.Context, handle string) (messaging.PeerRef, error) {
	return messaging.PeerRef{ID: 1}, nil
}

func (okMessenger) ResolvePeerByID(ctx context.Context, id int64) (messaging.PeerRef, error) {
	return messaging.PeerRef{ID: id}, nil
}

func (okMessenger) ListParticipants(ctx context.Context, contextID int64, idFilter string, limit int) ([]messaging.Participant, error) {
	return nil, messaging.ErrPeerNotFound
}

func (okMessenger) AddContact(ctx context.Context, id int64, syntheticName string) error {
	return messaging.ErrUnsupported
}

func (okMessenger) ImportContact(ctx context.Context, phone, first, last string) error {
	return messaging.ErrUnsupported
}

func (okMessenger) SetTyping(ctx context.Context, peer messaging.PeerRef, kind messaging.TypingKind) error {
	return nil
}

func (okMessenger) UploadContent(ctx context.Context, data []byte, mimeType string) (messaging.FileRef, error) {
	return messaging.FileRef{ID: "f"}, nil
}

func (okMessenger) SendMessage(ctx context.Context, peer messaging.PeerRef, text string, file *messaging.FileRef, linkPreview bool) (int64, error) {
	return 5, nil
}

func (okMessenger) DeleteMessage(ctx context.Context, peer messaging.PeerRef, messageID int64) error {
	return nil
}

type memSessions struct{}

func (memSessions) Get(ctx context.Context, accountID string) (sessions.Session, error) {
	return sessions.Session{AccountID: accountID, Credential: []byte("c")}, nil
}

func newTestHandler() *DispatchHandler {
	cfg := config.DispatchConfig{PaceMinMs: 0, PaceMaxMs: 0}
	dialer := messaging.DialerFunc(func(ctx context.Context, credential []byte) (messaging.Messenger, error) {
		return okMessenger{}, nil
	})
	svc := dispatch.NewService(slog.Default(), cfg, memSessions{}, nil, dialer)
	svc.SetSleep(func(ctx context.Context, d time.Duration) error { return nil })
	return NewDispatchHandler(slog.Default(), svc)
}

func postDispatch(t *testing.T, h *DispatchHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/dispatch", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Dispatch(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

func TestDispatchHandlerValidation(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	cases := []string{
		`{}`,
		`{"account_id":"a"}`,
		`{"account_id":"a","target":{"handle":"x"}}`,
		`{"account_id":"","target":{"handle":"x"},"payload":{"text":"hi"}}`,
	}
	for _, body := range cases {
		rec := postDispatch(t, h, body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: expected 400, got %d", body, rec.Code)
		}
	}
}

func TestDispatchHandlerSuccess(t *testing.T) {
	t.Parallel()

	h := newTestHandler()
	rec := postDispatch(t, h, `{"account_id":"a","target":{"handle":"alice"},"payload":{"text":"hi"}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestDispatchHandlerNotFoundMapping(t *testing.T) {
	t.Parallel()

	cfg := config.DispatchConfig{PaceMinMs: 0, PaceMaxMs: 0}
	dialer := messaging.DialerFunc(func(ctx context.Context, credential []byte) (messaging.Messenger, error) {
		return failingMessenger{}, nil
	})
	svc := dispatch.NewService(slog.Default(), cfg, memSessions{}, nil, dialer)
	svc.SetSleep(func(ctx context.Context, d time.Duration) error { return nil })
	h := NewDispatchHandler(slog.Default(), svc)

	rec := postDispatch(t, h, `{"account_id":"a","target":{"id":"555","origin_chat_id":"777"},"payload":{"text":"hi"}}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for inaccessible target, got %d: %s", rec.Code, rec.Body.String())
	}
}

type failingMessenger struct{ okMessenger }

func (failingMessenger) ResolvePeerByHandle(ctx context.Context, handle string) (messaging.PeerRef, error) {
	return messaging.PeerRef{}, messaging.ErrPeerNotFound
}

func (failingMessenger) ResolvePeerByID(ctx context.Context, id int64) (messaging.PeerRef, error) {
	return messaging.PeerRef{}, messaging.ErrPeerNotFound
}

func (failingMessenger) SendMessage(ctx context.Context, peer messaging.PeerRef, text string, file *messaging.FileRef, linkPreview bool) (int64, error) {
	return 0, messaging.ErrPeerNotFound
}
