package notify

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/alfaref/referral_backend/internal/models"
	"github.com/alfaref/referral_backend/internal/pkg/response"
	"github.com/alfaref/referral_backend/internal/services"
)

// Handler принимает типизированное событие и ретранслирует его
// в Telegram. Сбой доставки — это не ошибка HTTP: клиент получает
// 200 с success=false, выше ошибка не уходит.
type Handler struct {
	sender services.MessageSender
}

// NewHandler принимает nil, если Telegram не сконфигурирован:
// тогда все доставки честно репортятся как неуспешные.
func NewHandler(sender services.MessageSender) *Handler {
	return &Handler{sender: sender}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		response.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var event models.NotificationEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if event.TelegramID == 0 {
		response.RespondWithError(w, http.StatusBadRequest, "telegram_id required")
		return
	}

	message, err := services.RenderNotification(event.Type, event.Data)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid notification type")
		return
	}

	if h.sender == nil {
		response.RespondWithJSON(w, http.StatusOK, models.NotifyResponse{Success: false, Message: "Failed to send"})
		return
	}

	if err := h.sender.Send(event.TelegramID, message); err != nil {
		log.Printf("notification to %d failed: %v", event.TelegramID, err)
		response.RespondWithJSON(w, http.StatusOK, models.NotifyResponse{Success: false, Message: "Failed to send"})
		return
	}

	response.RespondWithJSON(w, http.StatusOK, models.NotifyResponse{Success: true, Message: "Notification sent"})
}
