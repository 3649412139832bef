// Package telegram delivers pipeline results to end users through the
// Telegram Bot API.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/genrelay/genrelay/config"
)

// mediaGroupMax is the Telegram limit on items per media group.
const mediaGroupMax = 10

// botAPI is the slice of *tgbotapi.BotAPI the sender uses.
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	SendMediaGroup(cfg tgbotapi.MediaGroupConfig) ([]tgbotapi.Message, error)
}

// Sender pushes generated media and failure notices into Telegram chats.
type Sender struct {
	api    botAPI
	logger *slog.Logger
}

// New connects to the Bot API and returns a Sender. SendTimeout bounds each
// HTTP call to the Bot API.
func New(cfg config.TelegramConfig, logger *slog.Logger) (*Sender, error) {
	client := &http.Client{Timeout: cfg.SendTimeout}
	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("telegram: connect bot api: %w", err)
	}
	bot.Debug = cfg.Debug

	if logger != nil {
		logger = logger.With("component", "telegram_sender")
		logger.Info("telegram bot authorized", "username", bot.Self.UserName)
	}

	return &Sender{api: bot, logger: logger}, nil
}

// NewWithAPI wraps an existing bot API client. Used by tests.
func NewWithAPI(api botAPI, logger *slog.Logger) *Sender {
	return &Sender{api: api, logger: logger}
}

// SendResult pushes generated media URLs into the chat. A single URL goes
// out as one photo message; multiple URLs go out as media groups of up to
// ten items each, per the Bot API limit.
func (s *Sender) SendResult(ctx context.Context, chatID int64, urls []string) error {
	if len(urls) == 0 {
		return fmt.Errorf("telegram: no result urls for chat %d", chatID)
	}
	if err := s.checkDeadline(ctx); err != nil {
		return err
	}

	if len(urls) == 1 {
		photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileURL(urls[0]))
		if _, err := s.api.Send(photo); err != nil {
			return fmt.Errorf("telegram: send photo: %w", err)
		}
		return nil
	}

	for _, batch := range batchMedia(chatID, urls) {
		if err := s.checkDeadline(ctx); err != nil {
			return err
		}
		if _, err := s.api.SendMediaGroup(batch); err != nil {
			return fmt.Errorf("telegram: send media group: %w", err)
		}
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "result sent", "chat_id", chatID, "urls", len(urls))
	}
	return nil
}

// SendFailureNotice tells the user their request will not complete.
func (s *Sender) SendFailureNotice(ctx context.Context, chatID int64, reason string) error {
	if err := s.checkDeadline(ctx); err != nil {
		return err
	}

	text := "Sorry, your request could not be completed."
	if reason != "" {
		text = fmt.Sprintf("Sorry, your request could not be completed: %s", reason)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := s.api.Send(msg); err != nil {
		return fmt.Errorf("telegram: send failure notice: %w", err)
	}
	return nil
}

// batchMedia splits result URLs into media group requests of at most ten
// photos each. The Bot API also rejects groups of fewer than two items,
// so a batch that would strand a trailing singleton gives one item up to
// keep the final group at two.
func batchMedia(chatID int64, urls []string) []tgbotapi.MediaGroupConfig {
	var groups []tgbotapi.MediaGroupConfig
	for start := 0; start < len(urls); {
		end := start + mediaGroupMax
		if end > len(urls) {
			end = len(urls)
		}
		if len(urls)-end == 1 {
			end--
		}

		media := make([]interface{}, 0, end-start)
		for _, url := range urls[start:end] {
			media = append(media, tgbotapi.NewInputMediaPhoto(tgbotapi.FileURL(url)))
		}
		groups = append(groups, tgbotapi.NewMediaGroup(chatID, media))
		start = end
	}
	return groups
}

// checkDeadline fails fast when the caller's context is already done. The
// underlying Bot API client does not take a context, so this is the only
// cancellation point available per request.
func (s *Sender) checkDeadline(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
