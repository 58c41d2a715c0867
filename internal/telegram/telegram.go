// Package telegram serves chat commands over Telegram long polling and sends
// notifications to the configured chat.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/class-booker/internal/chat"
)

// maxMessageLength is Telegram's limit for one text message.
const maxMessageLength = 4096

// ErrNotAuthorized is logged for updates from chats other than the configured one.
var ErrNotAuthorized = errors.New("telegram: chat not authorized")

// Sender sends one Telegram request.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UpdateSource delivers incoming updates.
type UpdateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Handler runs one chat command.
type Handler interface {
	Handle(ctx context.Context, text string, responder chat.Responder)
}

// NewBot connects to the Bot API with token.
func NewBot(token string) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect telegram bot: %w", err)
	}
	return bot, nil
}

// Notifier sends messages to one chat.
type Notifier struct {
	sender Sender
	chatID int64
}

// NewNotifier returns a notifier for chatID.
func NewNotifier(sender Sender, chatID int64) *Notifier {
	return &Notifier{sender: sender, chatID: chatID}
}

// Notify sends text, split into several messages if it is too long for one.
func (n *Notifier) Notify(ctx context.Context, text string) error {
	for _, part := range splitMessage(text, maxMessageLength) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := n.sender.Send(tgbotapi.NewMessage(n.chatID, part)); err != nil {
			return fmt.Errorf("send telegram message: %w", err)
		}
	}
	return nil
}

// Reply implements chat.Responder.
func (n *Notifier) Reply(ctx context.Context, text string) error {
	return n.Notify(ctx, text)
}

// splitMessage cuts text into parts of at most limit bytes, preferring line breaks.
func splitMessage(text string, limit int) []string {
	if len(text) <= limit {
		return []string{text}
	}
	var parts []string
	for len(text) > limit {
		cut := strings.LastIndexByte(text[:limit], '\n')
		if cut <= 0 {
			cut = limit
			for cut > 0 && !utf8Start(text[cut]) {
				cut--
			}
		}
		parts = append(parts, text[:cut])
		text = strings.TrimPrefix(text[cut:], "\n")
	}
	if text != "" {
		parts = append(parts, text)
	}
	return parts
}

func utf8Start(b byte) bool {
	return b&0xC0 != 0x80
}

// Transport long-polls for updates and hands messages from the configured chat
// to the handler.
type Transport struct {
	source  UpdateSource
	sender  Sender
	chatID  int64
	handler Handler
	timeout int
	logger  *slog.Logger
}

// NewTransport constructs a transport. bot is usually a *tgbotapi.BotAPI.
func NewTransport(bot interface {
	Sender
	UpdateSource
}, chatID int64, handler Handler, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transport{
		source:  bot,
		sender:  bot,
		chatID:  chatID,
		handler: handler,
		timeout: 30,
		logger:  logger.With("component", "telegram", "chat_id", chatID),
	}
}

// Run serves updates until ctx is done, then waits for commands in flight.
func (t *Transport) Run(ctx context.Context) error {
	config := tgbotapi.NewUpdate(0)
	config.Timeout = t.timeout
	updates := t.source.GetUpdatesChan(config)
	t.logger.InfoContext(ctx, "listening for commands")

	var wg sync.WaitGroup
	defer wg.Wait()
	for {
		select {
		case <-ctx.Done():
			t.source.StopReceivingUpdates()
			t.logger.Info("stopped listening for commands")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			message := update.Message
			if message == nil || message.Chat == nil || strings.TrimSpace(message.Text) == "" {
				continue
			}
			if message.Chat.ID != t.chatID {
				t.logger.WarnContext(ctx, "ignoring message", "from_chat", message.Chat.ID, "error", ErrNotAuthorized)
				continue
			}
			wg.Add(1)
			go func(text string) {
				defer wg.Done()
				t.handler.Handle(ctx, text, NewNotifier(t.sender, t.chatID))
			}(message.Text)
		}
	}
}
