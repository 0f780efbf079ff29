package models

// Типы событий, которые понимает сервис уведомлений.
const (
	NotificationNewReferral = "new_referral"
	NotificationCardIssued  = "card_issued"
	NotificationCustom      = "custom"
)

// NotificationEvent — типизированное событие для сервиса уведомлений.
// Этим же форматом ходит webhook от реферального сервиса.
type NotificationEvent struct {
	TelegramID int64                  `json:"telegram_id"`
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data"`
}

// NotifyResponse — ответ сервиса уведомлений.
type NotifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}
