package adapter

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/slotbot/slotbot/internal/errors"
	"github.com/slotbot/slotbot/internal/model"
)

const defaultUpdateTimeout = 30

type TelegramAdapter struct {
	token         string
	updateTimeout int
	handler       Handler
	bot           *tgbotapi.BotAPI
}

func NewTelegramAdapter(token string, handler Handler, updateTimeout int) *TelegramAdapter {
	if updateTimeout <= 0 {
		updateTimeout = defaultUpdateTimeout
	}
	return &TelegramAdapter{
		token:         token,
		updateTimeout: updateTimeout,
		handler:       handler,
	}
}

func (t *TelegramAdapter) Name() string {
	return "telegram"
}

func (t *TelegramAdapter) Start(ctx context.Context) error {
	var err error
	t.bot, err = tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return errors.Wrap(err, "init telegram bot")
	}

	slog.Info("Telegram adapter started", "user", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = t.updateTimeout
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-updates:
				t.handleUpdate(ctx, update)
			}
		}
	}()

	return nil
}

func (t *TelegramAdapter) Stop(ctx context.Context) error {
	if t.bot != nil {
		t.bot.StopReceivingUpdates()
	}
	return nil
}

func (t *TelegramAdapter) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || t.handler == nil {
		return
	}
	msg := update.Message

	senderName := ""
	if msg.From != nil {
		senderName = msg.From.UserName
		if senderName == "" {
			senderName = msg.From.FirstName
		}
	}

	in := model.IncomingMessage{
		Channel:    "telegram",
		SenderID:   strconv.FormatInt(msg.Chat.ID, 10),
		SenderName: senderName,
		Text:       msg.Text,
		Timestamp:  time.Unix(int64(msg.Date), 0),
		Metadata:   map[string]string{"msg_id": strconv.Itoa(msg.MessageID)},
	}

	reply := t.handler(ctx, in)
	if reply.Text == "" {
		return
	}
	if err := t.Send(ctx, in.SenderID, reply.Text); err != nil {
		slog.Error("Failed to send telegram reply", "chat", in.SenderID, "error", err)
	}
}

func (t *TelegramAdapter) Send(ctx context.Context, senderID, text string) error {
	chatID, err := strconv.ParseInt(senderID, 10, 64)
	if err != nil {
		return errors.Validation("invalid telegram chat id: " + senderID)
	}
	if _, err := t.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return errors.Wrap(err, "send telegram message")
	}
	slog.Debug("Telegram message sent", "chat_id", senderID)
	return nil
}

func (t *TelegramAdapter) Health(ctx context.Context) error {
	if t.bot == nil {
		return errors.ExternalService("telegram bot not initialized")
	}
	if _, err := t.bot.GetMe(); err != nil {
		return errors.ExternalService("telegram connection failed: " + err.Error())
	}
	return nil
}
