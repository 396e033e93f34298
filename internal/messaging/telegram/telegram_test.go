package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/leadrelay/leadrelay/internal/config"
	"github.com/leadrelay/leadrelay/internal/messaging"
)

func TestConnectRejectsEmptyCredential(t *testing.T) {
	t.Parallel()

	dialer := NewDialer(nil, config.TelegramConfig{})
	m, err := dialer.Dial(context.Background(), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if err := m.Connect(context.Background(), []byte("  ")); err == nil {
		t.Fatal("expected error for empty credential")
	}
}

func TestOperationsRequireConnection(t *testing.T) {
	t.Parallel()

	m := &Messenger{}
	if _, err := m.ResolvePeerByHandle(context.Background(), "alice"); err == nil {
		t.Fatal("expected not-connected error")
	}
	if _, err := m.SendMessage(context.Background(), messaging.PeerRef{ID: 1}, "hi", nil, true); err == nil {
		t.Fatal("expected not-connected error")
	}
}

func TestContactPrimitivesUnsupported(t *testing.T) {
	t.Parallel()

	m := &Messenger{}
	if err := m.AddContact(context.Background(), 1, "x"); !errors.Is(err, messaging.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if err := m.ImportContact(context.Background(), "", "a", "b"); !errors.Is(err, messaging.ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
}

func TestUploadStagesPendingBytes(t *testing.T) {
	t.Parallel()

	m := &Messenger{}
	if _, err := m.UploadContent(context.Background(), nil, "image/png"); err == nil {
		t.Fatal("expected error for empty upload")
	}
	ref, err := m.UploadContent(context.Background(), []byte("data"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if ref.MimeType != "image/png" {
		t.Fatalf("unexpected ref: %+v", ref)
	}
}
