package services

import (
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/alfaref/referral_backend/internal/models"
)

// ErrUnknownNotificationType — событие с нераспознанным type.
var ErrUnknownNotificationType = errors.New("invalid notification type")

// MessageSender доставляет готовый текст пользователю.
type MessageSender interface {
	Send(chatID int64, text string) error
}

// TelegramSender шлёт сообщения через Telegram Bot API в HTML-разметке.
type TelegramSender struct {
	bot *tgbotapi.BotAPI
}

func NewTelegramSender(token string) (*TelegramSender, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram bot init: %w", err)
	}
	return &TelegramSender{bot: bot}, nil
}

func (s *TelegramSender) Send(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := s.bot.Send(msg); err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	return nil
}

// RenderNotification строит текст сообщения по типу события.
func RenderNotification(eventType string, data map[string]interface{}) (string, error) {
	switch eventType {
	case models.NotificationNewReferral:
		name := stringValue(data, "referral_name", "Новый пользователь")
		return fmt.Sprintf("🎉 <b>Новый реферал!</b>\n\n%s зарегистрировался по вашему промокоду.\n\n💰 Вы получите <b>200₽</b>, как только он оформит карту Альфа-Банка.", name), nil

	case models.NotificationCardIssued:
		name := stringValue(data, "referral_name", "Пользователь")
		amount := numberValue(data, "amount", 200)
		return fmt.Sprintf("✅ <b>Карта оформлена!</b>\n\n%s успешно оформил карту по вашему промокоду.\n\n💸 На ваш баланс начислено <b>%s₽</b>!", name, formatAmount(amount)), nil

	case models.NotificationCustom:
		return stringValue(data, "message", "Уведомление от Альфа-Банка"), nil

	default:
		return "", ErrUnknownNotificationType
	}
}

func stringValue(data map[string]interface{}, key, fallback string) string {
	if v, ok := data[key].(string); ok && v != "" {
		return v
	}
	return fallback
}

func numberValue(data map[string]interface{}, key string, fallback float64) float64 {
	if v, ok := data[key].(float64); ok {
		return v
	}
	return fallback
}

// formatAmount печатает сумму без хвостовых нулей: 200, 150.5.
func formatAmount(amount float64) string {
	return strconv.FormatFloat(amount, 'f', -1, 64)
}
