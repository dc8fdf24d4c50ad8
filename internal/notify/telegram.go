package notify

import (
	"context"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/sirupsen/logrus"

	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// TelegramSender delivers messages through the Telegram Bot API. The chat
// address is the decimal chat id.
type TelegramSender struct {
	bot    *tgbotapi.BotAPI
	logger *logrus.Logger
}

// NewTelegramSender creates a sender from a bot token.
func NewTelegramSender(token string) (*TelegramSender, error) {
	if token == "" {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Telegram bot token is required")
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "Failed to initialize Telegram bot", err.Error())
	}
	bot.Debug = false

	return &TelegramSender{
		bot:    bot,
		logger: utils.GetLogger(),
	}, nil
}

// Send delivers one message. The context is accepted for interface symmetry;
// the underlying client manages its own request timeout.
func (t *TelegramSender) Send(ctx context.Context, chatAddress, text string) error {
	chatID, err := strconv.ParseInt(chatAddress, 10, 64)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeDelivery, "Invalid chat address", chatAddress)
	}

	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return utils.NewAppError(utils.ErrCodeDelivery, "Telegram send failed", err.Error())
	}

	t.logger.WithField("chat", chatAddress).Debug("Message delivered")
	return nil
}
