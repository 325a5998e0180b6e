package handler

import (
	"context"

	tele "gopkg.in/telebot.v3"
)

// TelegramSender delivers broadcast messages through the bot API. It
// satisfies the broadcast worker's sender contract.
type TelegramSender struct {
	bot *tele.Bot
}

// NewTelegramSender wraps the bot for the broadcast worker
func NewTelegramSender(bot *tele.Bot) *TelegramSender {
	return &TelegramSender{bot: bot}
}

// Send delivers one message to one recipient
func (s *TelegramSender) Send(ctx context.Context, telegramID int64, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := s.bot.Send(&tele.User{ID: telegramID}, text)
	return err
}
