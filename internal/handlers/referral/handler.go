package referral

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/alfaref/referral_backend/internal/models"
	"github.com/alfaref/referral_backend/internal/pkg/response"
	"github.com/alfaref/referral_backend/internal/repositories"
	"github.com/alfaref/referral_backend/internal/services"
)

// Handler обслуживает эндпоинт реферального сервиса. Диспетчеризация
// по методу: POST с полем action — мутации, GET — профиль.
type Handler struct {
	service *services.ReferralService
}

func NewHandler(service *services.ReferralService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.handlePost(w, r)
	case http.MethodGet:
		h.handleGet(w, r)
	default:
		response.RespondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	var req models.ReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	switch req.Action {
	case "register":
		h.register(w, r, req)
	case "issue_card":
		h.issueCard(w, r, req)
	default:
		response.RespondWithError(w, http.StatusBadRequest, "Unknown action")
	}
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request, req models.ReferralRequest) {
	if req.TelegramID == 0 {
		response.RespondWithError(w, http.StatusBadRequest, "telegram_id required")
		return
	}

	result, err := h.service.Register(r.Context(), repositories.CreateUserParams{
		TelegramID:    req.TelegramID,
		Username:      req.Username,
		FirstName:     req.FirstName,
		ReferrerPromo: req.ReferrerPromo,
	})
	if err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := models.RegisterResponse{User: models.NewUserResponse(result.User)}
	if result.Existed {
		resp.Message = "User already exists"
	}
	response.RespondWithJSON(w, http.StatusOK, resp)
}

func (h *Handler) issueCard(w http.ResponseWriter, r *http.Request, req models.ReferralRequest) {
	if req.TelegramID == 0 {
		response.RespondWithError(w, http.StatusBadRequest, "telegram_id required")
		return
	}

	if err := h.service.IssueCard(r.Context(), req.TelegramID, req.PromoCode); err != nil {
		response.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	// успех и при отсутствии привязки: см. IssueCard в services
	response.RespondWithJSON(w, http.StatusOK, models.IssueCardResponse{
		Success: true,
		Message: "Card issued and reward credited",
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	idParam := r.URL.Query().Get("telegram_id")
	if idParam == "" {
		response.RespondWithError(w, http.StatusBadRequest, "telegram_id required")
		return
	}
	telegramID, err := strconv.ParseInt(idParam, 10, 64)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "telegram_id must be a number")
		return
	}

	profile, err := h.service.Profile(r.Context(), telegramID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			response.RespondWithError(w, http.StatusNotFound, "User not found")
			return
		}
		response.RespondWithError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.RespondWithJSON(w, http.StatusOK, models.ProfileResponse{
		User:         models.NewUserResponse(profile.User),
		Stats:        profile.Stats,
		Transactions: models.NewTransactionResponses(profile.Transactions),
	})
}
