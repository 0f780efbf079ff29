package models

import "time"

// Referral связывает реферера с приглашённым пользователем через промокод.
// Флаги card_issued и reward_paid терминальные: выставленные один раз,
// они никогда не сбрасываются.
type Referral struct {
	ID           int64
	ReferrerID   int64 // telegram_id реферера
	ReferredID   int64 // telegram_id приглашённого
	PromoCode    string
	CardIssued   bool
	CardIssuedAt *time.Time
	RewardPaid   bool
	CreatedAt    time.Time
}

// ReferralStats — агрегаты по рефералам пользователя.
type ReferralStats struct {
	TotalReferrals int `json:"total_referrals"`
	CardsIssued    int `json:"cards_issued"`
}
