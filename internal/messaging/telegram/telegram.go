// Package telegram implements the messaging capability over the Telegram
// Bot API. The Bot API can address peers only by numeric chat id, so
// handle resolution falls back to public chat lookup and the contact
// primitives report ErrUnsupported; the resolution cascade treats both as
// ordinary tier failures and leans on the id-addressed probe path.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/leadrelay/leadrelay/internal/config"
	"github.com/leadrelay/leadrelay/internal/messaging"
)

// Messenger is a Bot API backed messaging.Messenger. One instance serves
// one dispatch invocation.
type Messenger struct {
	logger      *slog.Logger
	apiEndpoint string
	debug       bool

	bot *tgbotapi.BotAPI

	// pending holds bytes handed to UploadContent until the next send;
	// the Bot API uploads at send time.
	pending     []byte
	pendingMime string
}

// NewDialer returns a Dialer producing Bot API messengers.
func NewDialer(log *slog.Logger, cfg config.TelegramConfig) messaging.Dialer {
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("backend", "telegram"))
	return messaging.DialerFunc(func(ctx context.Context, credential []byte) (messaging.Messenger, error) {
		return &Messenger{
			logger:      log,
			apiEndpoint: cfg.APIEndpoint,
			debug:       cfg.Debug,
		}, nil
	})
}

// Connect authenticates the bot token carried in credential.
func (m *Messenger) Connect(ctx context.Context, credential []byte) error {
	token := strings.TrimSpace(string(credential))
	if token == "" {
		return fmt.Errorf("telegram: empty credential")
	}
	endpoint := m.apiEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(token, endpoint)
	if err != nil {
		return fmt.Errorf("telegram: connect: %w", err)
	}
	bot.Debug = m.debug
	m.bot = bot
	m.logger.Debug("connected", slog.String("bot", bot.Self.UserName))
	return nil
}

func (m *Messenger) Close(ctx context.Context) error {
	m.bot = nil
	m.pending = nil
	return nil
}

func (m *Messenger) ResolvePeerByHandle(ctx context.Context, handle string) (messaging.PeerRef, error) {
	if m.bot == nil {
		return messaging.PeerRef{}, fmt.Errorf("telegram: not connected")
	}
	// Only public chats resolve by username over the Bot API.
	chat, err := m.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{SuperGroupUsername: "@" + handle},
	})
	if err != nil {
		return messaging.PeerRef{}, fmt.Errorf("%w: %s: %v", messaging.ErrPeerNotFound, handle, err)
	}
	return messaging.PeerRef{ID: chat.ID}, nil
}

func (m *Messenger) ResolvePeerByID(ctx context.Context, id int64) (messaging.PeerRef, error) {
	if m.bot == nil {
		return messaging.PeerRef{}, fmt.Errorf("telegram: not connected")
	}
	chat, err := m.bot.GetChat(tgbotapi.ChatInfoConfig{
		ChatConfig: tgbotapi.ChatConfig{ChatID: id},
	})
	if err != nil {
		return messaging.PeerRef{}, fmt.Errorf("%w: %d: %v", messaging.ErrPeerNotFound, id, err)
	}
	return messaging.PeerRef{ID: chat.ID}, nil
}

func (m *Messenger) ListParticipants(ctx context.Context, contextID int64, idFilter string, limit int) ([]messaging.Participant, error) {
	if m.bot == nil {
		return nil, fmt.Errorf("telegram: not connected")
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(idFilter), 10, 64)
	if err != nil {
		return nil, messaging.ErrUnsupported
	}
	member, err := m.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{ChatID: contextID, UserID: userID},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: member %d in %d: %v", messaging.ErrPeerNotFound, userID, contextID, err)
	}
	if member.User == nil {
		return nil, messaging.ErrPeerNotFound
	}
	return []messaging.Participant{{
		PeerID: member.User.ID,
		Handle: member.User.UserName,
	}}, nil
}

// AddContact is not expressible over the Bot API.
func (m *Messenger) AddContact(ctx context.Context, id int64, syntheticName string) error {
	return messaging.ErrUnsupported
}

// ImportContact is not expressible over the Bot API.
func (m *Messenger) ImportContact(ctx context.Context, phone, first, last string) error {
	return messaging.ErrUnsupported
}

func (m *Messenger) SetTyping(ctx context.Context, peer messaging.PeerRef, kind messaging.TypingKind) error {
	if m.bot == nil {
		return fmt.Errorf("telegram: not connected")
	}
	action := tgbotapi.ChatTyping
	if kind == messaging.TypingMedia {
		action = tgbotapi.ChatUploadPhoto
	}
	if _, err := m.bot.Request(tgbotapi.NewChatAction(peer.ID, action)); err != nil {
		return fmt.Errorf("telegram: chat action: %w", err)
	}
	return nil
}

func (m *Messenger) UploadContent(ctx context.Context, data []byte, mimeType string) (messaging.FileRef, error) {
	if len(data) == 0 {
		return messaging.FileRef{}, fmt.Errorf("telegram: empty upload")
	}
	m.pending = data
	m.pendingMime = mimeType
	return messaging.FileRef{ID: "pending", MimeType: mimeType}, nil
}

func (m *Messenger) SendMessage(ctx context.Context, peer messaging.PeerRef, text string, file *messaging.FileRef, linkPreview bool) (int64, error) {
	if m.bot == nil {
		return 0, fmt.Errorf("telegram: not connected")
	}
	if file != nil {
		data := m.pending
		m.pending = nil
		if len(data) == 0 {
			return 0, fmt.Errorf("telegram: no uploaded content for file ref %s", file.ID)
		}
		bytes := tgbotapi.FileBytes{Name: "media", Bytes: data}
		if strings.HasPrefix(m.pendingMime, "image/") {
			photo := tgbotapi.NewPhoto(peer.ID, bytes)
			photo.Caption = text
			sent, err := m.bot.Send(photo)
			if err != nil {
				return 0, fmt.Errorf("telegram: send photo: %w", err)
			}
			return int64(sent.MessageID), nil
		}
		doc := tgbotapi.NewDocument(peer.ID, bytes)
		doc.Caption = text
		sent, err := m.bot.Send(doc)
		if err != nil {
			return 0, fmt.Errorf("telegram: send document: %w", err)
		}
		return int64(sent.MessageID), nil
	}

	msg := tgbotapi.NewMessage(peer.ID, text)
	msg.DisableWebPagePreview = !linkPreview
	sent, err := m.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("telegram: send: %w", err)
	}
	return int64(sent.MessageID), nil
}

func (m *Messenger) DeleteMessage(ctx context.Context, peer messaging.PeerRef, messageID int64) error {
	if m.bot == nil {
		return fmt.Errorf("telegram: not connected")
	}
	if _, err := m.bot.Request(tgbotapi.NewDeleteMessage(peer.ID, int(messageID))); err != nil {
		return fmt.Errorf("telegram: delete: %w", err)
	}
	return nil
}
