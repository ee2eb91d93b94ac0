package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"hnwatch/internal/domain"

	"github.com/go-telegram/bot"
	"github.com/google/uuid"
)

// TelegramSender delivers notifications as messages to a fixed chat.
type TelegramSender struct {
	bot    *bot.Bot
	chatID int64
	log    *slog.Logger
}

func NewTelegramSender(token string, chatID int64, log *slog.Logger) (*TelegramSender, error) {
	token = strings.TrimSpace(token)

	b, err := bot.New(token)
	if err != nil {
		return nil, fmt.Errorf("create bot: %w", err)
	}

	return &TelegramSender{
		bot:    b,
		chatID: chatID,
		log:    log,
	}, nil
}

func (s *TelegramSender) Deliver(
	ctx context.Context,
	title string,
	body string,
	payload domain.NotificationPayload,
) (string, error) {
	lines := []string{title, body}
	if payload.URL != "" {
		lines = append(lines, payload.URL)
	}

	msg, err := s.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: s.chatID,
		Text:   strings.Join(lines, "\n\n"),
	})
	if err != nil {
		return "", fmt.Errorf("send message: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// LogSender is the fallback delivery channel used when no Telegram
// token is configured: notifications only show up in the service log.
type LogSender struct {
	log *slog.Logger
}

func NewLogSender(log *slog.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Deliver(
	ctx context.Context,
	title string,
	body string,
	payload domain.NotificationPayload,
) (string, error) {
	handle := uuid.NewString()

	s.log.InfoContext(ctx, "Notification",
		"handle", handle,
		"title", title,
		"body", body,
		"articleID", payload.ArticleID,
		"url", payload.URL)

	return handle, nil
}
