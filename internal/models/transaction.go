package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionTypeReferralReward — начисление за оформленную по промокоду карту.
const TransactionTypeReferralReward = "referral_reward"

// Transaction — неизменяемая запись об изменении баланса.
// Строки только добавляются, никогда не правятся и не удаляются.
type Transaction struct {
	ID          int64
	UserID      int64 // telegram_id владельца баланса
	Amount      decimal.Decimal
	Type        string
	Description string
	CreatedAt   time.Time
}
