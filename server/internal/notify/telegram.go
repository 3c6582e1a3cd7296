package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/pulsewatch/pulsewatch/server/internal/store"
)

// telegramName is the channel name recorded on attempts.
const telegramName = "TELEGRAM"

// botClient is the subset of *tgbotapi.BotAPI the channel uses, abstracted
// so tests can fake the provider.
type botClient interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// TelegramChannel posts alerts to a Telegram chat through the Bot API.
// A channel without credentials stays registered but disabled: every Send
// reports a failed outcome with the reason, so the dispatcher still records
// the attempt.
type TelegramChannel struct {
	bot    botClient
	chatID int64
	reason string // why the channel is disabled; empty when enabled
}

// NewTelegram creates the Telegram channel. Missing credentials or a failed
// bot authorization disable the channel rather than failing construction —
// notification channels must never block server startup.
func NewTelegram(token string, chatID int64) *TelegramChannel {
	c := &TelegramChannel{chatID: chatID}

	if token == "" || chatID == 0 {
		c.reason = "telegram is not configured (missing bot token or chat id)"
		slog.Warn("notify: telegram channel disabled", "reason", c.reason)
		return c
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		c.reason = fmt.Sprintf("telegram bot authorization failed: %v", err)
		slog.Warn("notify: telegram channel disabled", "reason", c.reason)
		return c
	}

	c.bot = bot
	slog.Info("notify: telegram channel ready", "bot", bot.Self.UserName, "chat_id", chatID)
	return c
}

// Name implements Channel.
func (c *TelegramChannel) Name() string { return telegramName }

// Send implements Channel.
func (c *TelegramChannel) Send(ctx context.Context, a *store.Alert) Outcome {
	if c.bot == nil {
		return Outcome{Err: c.reason}
	}

	msg := tgbotapi.NewMessage(c.chatID, formatAlert(a))
	sent, err := c.bot.Send(msg)
	if err != nil {
		return Outcome{Err: fmt.Sprintf("telegram send failed: %v", err)}
	}

	return Outcome{
		Sent:      true,
		MessageID: strconv.Itoa(sent.MessageID),
	}
}
