package models

import "time"

// ReferralRequest — тело POST-запроса к реферальному сервису.
// Какие поля обязательны, зависит от action.
type ReferralRequest struct {
	Action        string `json:"action"`
	TelegramID    int64  `json:"telegram_id"`
	Username      string `json:"username"`
	FirstName     string `json:"first_name"`
	ReferrerPromo string `json:"referrer_promo"`
	PromoCode     string `json:"promo_code"`
}

// UserResponse — пользователь в теле ответа. Баланс конвертируется
// в float только здесь, на границе сериализации.
type UserResponse struct {
	ID         int64   `json:"id"`
	TelegramID int64   `json:"telegram_id"`
	Username   string  `json:"username"`
	FirstName  string  `json:"first_name"`
	PromoCode  string  `json:"promo_code"`
	Balance    float64 `json:"balance"`
}

func NewUserResponse(u *User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		TelegramID: u.TelegramID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		PromoCode:  u.PromoCode,
		Balance:    u.Balance.InexactFloat64(),
	}
}

type RegisterResponse struct {
	User    UserResponse `json:"user"`
	Message string       `json:"message,omitempty"`
}

type IssueCardResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type TransactionResponse struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	Amount      float64   `json:"amount"`
	Type        string    `json:"type"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewTransactionResponses всегда возвращает непустой срез,
// чтобы в JSON уходил [], а не null.
func NewTransactionResponses(transactions []Transaction) []TransactionResponse {
	result := make([]TransactionResponse, 0, len(transactions))
	for _, t := range transactions {
		result = append(result, TransactionResponse{
			ID:          t.ID,
			UserID:      t.UserID,
			Amount:      t.Amount.InexactFloat64(),
			Type:        t.Type,
			Description: t.Description,
			CreatedAt:   t.CreatedAt,
		})
	}
	return result
}

type ProfileResponse struct {
	User         UserResponse          `json:"user"`
	Stats        ReferralStats         `json:"stats"`
	Transactions []TransactionResponse `json:"transactions"`
}
