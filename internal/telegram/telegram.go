// Package telegram adapts Telegram chats onto the concierge session router.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/hoteldesk/conciergebot/internal/logger"
	"github.com/hoteldesk/conciergebot/internal/session"
)

const sendMessageTimeout = 10 * time.Second

// NewTelegramBot creates the Telegram bot instance and wires every
// incoming text message into the router. Each Telegram chat maps to a
// stable concierge username of the form "tg:<chat-id>" so its session
// and history stay separate from web and WhatsApp guests.
func NewTelegramBot(token string, log *slog.Logger, router *session.Router) (*tgbot.Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token cannot be empty")
	}
	if log == nil {
		log = slog.Default()
	}
	blog := log.With("component", "telegram_bot")

	b, err := tgbot.New(token,
		tgbot.WithDefaultHandler(newMessageHandler(blog, router)),
		tgbot.WithMiddlewares(logger.TelegramMiddleware(blog)),
	)
	if err != nil {
		blog.Error("Failed to create Telegram bot instance", "error", err)
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	blog.Info("Telegram bot instance created successfully")
	return b, nil
}

func newMessageHandler(log *slog.Logger, router *session.Router) tgbot.HandlerFunc {
	return func(ctx context.Context, b *tgbot.Bot, update *models.Update) {
		msg := update.Message
		if msg == nil || msg.Text == "" || msg.From == nil {
			log.DebugContext(ctx, "Ignoring update with nil message or empty text", "update_id", update.ID)
			return
		}

		chatID := msg.Chat.ID
		username := "tg:" + strconv.FormatInt(chatID, 10)

		reply, err := router.HandleTurn(ctx, username, msg.Text)
		if err != nil {
			log.ErrorContext(ctx, "Turn failed", "error", err, "chat_id", chatID)
			reply = "Sorry, something went wrong. Please try again in a moment."
		}

		sendCtx, cancel := context.WithTimeout(ctx, sendMessageTimeout)
		defer cancel()
		if _, err := b.SendMessage(sendCtx, &tgbot.SendMessageParams{ChatID: chatID, Text: reply}); err != nil {
			log.ErrorContext(ctx, "Failed to send reply message", "error", err, "chat_id", chatID)
		}
	}
}
