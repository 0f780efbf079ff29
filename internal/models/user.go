package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User — участник реферальной программы. Баланс храним как decimal,
// денежные суммы не проходят через float в бизнес-логике.
type User struct {
	ID         int64
	TelegramID int64
	Username   string
	FirstName  string
	PromoCode  string
	Balance    decimal.Decimal
	CreatedAt  time.Time
}

// DisplayName возвращает имя для уведомлений: first_name, иначе username.
func (u *User) DisplayName() string {
	if u.FirstName != "" {
		return u.FirstName
	}
	return u.Username
}
