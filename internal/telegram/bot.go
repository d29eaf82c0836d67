// Package telegram connects the dialog machine to the Telegram Bot API by
// long polling.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"fintrack/internal/dialog"
	"fintrack/internal/log"
)

const transportName = "telegram"

// Handler answers one inbound message. *dialog.Machine implements it.
type Handler interface {
	Handle(ctx context.Context, msg dialog.Message) []dialog.Reply
}

// Sender delivers outbound messages. *tgbotapi.BotAPI implements it.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Counter counts handled messages per transport.
type Counter interface {
	MessageHandled(transport string)
}

type Config struct {
	Token       string
	Debug       bool
	PollTimeout int
}

type Bot struct {
	api     *tgbotapi.BotAPI
	sender  Sender
	handler Handler
	counter Counter
	timeout int
	logger  *log.Logger
}

// New authenticates against the Bot API.
func New(cfg Config, handler Handler, counter Counter, logger *log.Logger) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("missing telegram token")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("telegram login: %w", err)
	}
	api.Debug = cfg.Debug

	b := newBot(api, handler, counter, logger)
	b.api = api
	b.timeout = cfg.PollTimeout
	b.logger.Info("Authorized on Telegram", "account", api.Self.UserName)
	return b, nil
}

func newBot(sender Sender, handler Handler, counter Counter, logger *log.Logger) *Bot {
	if logger == nil {
		logger = log.Default(log.ComponentTelegram)
	}
	return &Bot{
		sender:  sender,
		handler: handler,
		counter: counter,
		timeout: 60,
		logger:  logger.WithComponent(log.ComponentTelegram),
	}
}

// Run polls for updates until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if b.api == nil {
		return errors.New("telegram bot is not connected")
	}
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.timeout
	updates := b.api.GetUpdatesChan(u)
	defer b.api.StopReceivingUpdates()

	b.logger.Info("Polling for updates", "timeout", b.timeout)
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Stopping update polling")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.Dispatch(ctx, update)
		}
	}
}

// Dispatch handles one update. Updates without message text are ignored.
func (b *Bot) Dispatch(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.Text == "" {
		return
	}
	msg := toMessage(update.Message)
	chatID := update.Message.Chat.ID
	logger := b.logger.With(log.FieldUserID, msg.UserID)
	ctx = log.NewContext(ctx, logger)

	replies := b.handler.Handle(ctx, msg)
	if b.counter != nil {
		b.counter.MessageHandled(transportName)
	}
	for _, r := range replies {
		if _, err := b.sender.Send(toChattable(chatID, r)); err != nil {
			logger.ErrorContext(ctx, "Failed to send reply", log.FieldError, err)
			return
		}
	}
}

// toMessage identifies the user by chat, which for a private chat is the
// user's own id.
func toMessage(m *tgbotapi.Message) dialog.Message {
	out := dialog.Message{Text: m.Text}
	if m.Chat != nil {
		out.UserID = strconv.FormatInt(m.Chat.ID, 10)
	}
	if m.From != nil {
		if out.UserID == "" {
			out.UserID = strconv.FormatInt(m.From.ID, 10)
		}
		out.DisplayName = m.From.FirstName
		if out.DisplayName == "" {
			out.DisplayName = m.From.UserName
		}
	}
	return out
}

func toChattable(chatID int64, r dialog.Reply) tgbotapi.Chattable {
	markup := replyMarkup(r)
	if r.Image != nil {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: r.Image.Filename, Bytes: r.Image.Data})
		photo.Caption = r.Text
		if markup != nil {
			photo.ReplyMarkup = markup
		}
		return photo
	}
	msg := tgbotapi.NewMessage(chatID, r.Text)
	if markup != nil {
		msg.ReplyMarkup = markup
	}
	return msg
}

func replyMarkup(r dialog.Reply) any {
	switch {
	case len(r.Keyboard) > 0:
		rows := make([][]tgbotapi.KeyboardButton, 0, len(r.Keyboard))
		for _, row := range r.Keyboard {
			buttons := make([]tgbotapi.KeyboardButton, len(row))
			for i, label := range row {
				buttons[i] = tgbotapi.NewKeyboardButton(label)
			}
			rows = append(rows, buttons)
		}
		kb := tgbotapi.NewReplyKeyboard(rows...)
		kb.OneTimeKeyboard = true
		kb.ResizeKeyboard = true
		return kb
	case r.RemoveKeyboard:
		return tgbotapi.NewRemoveKeyboard(false)
	default:
		return nil
	}
}
