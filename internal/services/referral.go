package services

import (
	"context"
	"errors"
	"log"

	"github.com/alfaref/referral_backend/internal/models"
	"github.com/alfaref/referral_backend/internal/repositories"
)

// Профиль отдаёт не всю историю, а последние операции.
const recentTransactionsLimit = 10

type referralRepository interface {
	UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	CreateUser(ctx context.Context, p repositories.CreateUserParams, nextCode func() string) (*models.User, int64, error)
	IssueCard(ctx context.Context, telegramID int64, promoCode string) (*repositories.RewardResult, error)
	Stats(ctx context.Context, telegramID int64) (models.ReferralStats, error)
	RecentTransactions(ctx context.Context, telegramID int64, limit int) ([]models.Transaction, error)
}

// NotificationSink доставляет событие пользователю. Реферальный сервис
// вызывает его best-effort: результат логируется и отбрасывается.
type NotificationSink interface {
	Notify(ctx context.Context, event models.NotificationEvent) error
}

type codeGenerator interface {
	Code() string
}

type ReferralService struct {
	repo  referralRepository
	sink  NotificationSink
	codes codeGenerator
}

func NewReferralService(repo referralRepository, sink NotificationSink, codes codeGenerator) *ReferralService {
	return &ReferralService{repo: repo, sink: sink, codes: codes}
}

// RegisterResult — итог регистрации. Existed означает, что пользователь
// уже был зарегистрирован и никаких изменений не произошло.
type RegisterResult struct {
	User    *models.User
	Existed bool
}

// Register регистрирует пользователя с новым промокодом и привязывает
// его к рефереру, если referrer_promo указан и резолвится.
// Повторная регистрация возвращает существующего пользователя как есть.
func (s *ReferralService) Register(ctx context.Context, p repositories.CreateUserParams) (*RegisterResult, error) {
	user, err := s.repo.UserByTelegramID(ctx, p.TelegramID)
	if err == nil {
		return &RegisterResult{User: user, Existed: true}, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, err
	}

	user, referrerID, err := s.repo.CreateUser(ctx, p, s.codes.Code)
	if err != nil {
		if repositories.IsDuplicateUser(err) {
			// параллельная регистрация того же telegram_id успела раньше
			existing, lookupErr := s.repo.UserByTelegramID(ctx, p.TelegramID)
			if lookupErr != nil {
				return nil, lookupErr
			}
			return &RegisterResult{User: existing, Existed: true}, nil
		}
		return nil, err
	}

	if referrerID != 0 {
		s.notify(ctx, models.NotificationEvent{
			TelegramID: referrerID,
			Type:       models.NotificationNewReferral,
			Data: map[string]interface{}{
				"referral_name": user.DisplayName(),
			},
		})
	}

	return &RegisterResult{User: user, Existed: false}, nil
}

// IssueCard фиксирует оформление карты и начисляет вознаграждение рефереру.
// Отсутствие подходящей привязки не ошибка: операция ничего не меняет,
// но завершается успешно.
func (s *ReferralService) IssueCard(ctx context.Context, telegramID int64, promoCode string) error {
	reward, err := s.repo.IssueCard(ctx, telegramID, promoCode)
	if err != nil {
		return err
	}
	if reward == nil {
		return nil
	}

	s.notify(ctx, models.NotificationEvent{
		TelegramID: reward.ReferrerID,
		Type:       models.NotificationCardIssued,
		Data: map[string]interface{}{
			"referral_name": reward.ReferralName,
			"amount":        reward.Amount.InexactFloat64(),
		},
	})
	return nil
}

// Profile — пользователь, агрегаты по его рефералам и последние операции.
type Profile struct {
	User         *models.User
	Stats        models.ReferralStats
	Transactions []models.Transaction
}

func (s *ReferralService) Profile(ctx context.Context, telegramID int64) (*Profile, error) {
	user, err := s.repo.UserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	stats, err := s.repo.Stats(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	transactions, err := s.repo.RecentTransactions(ctx, telegramID, recentTransactionsLimit)
	if err != nil {
		return nil, err
	}

	return &Profile{User: user, Stats: stats, Transactions: transactions}, nil
}

// notify гасит любую ошибку доставки: уведомления не должны влиять
// на исход основной операции.
func (s *ReferralService) notify(ctx context.Context, event models.NotificationEvent) {
	if s.sink == nil {
		return
	}
	if err := s.sink.Notify(ctx, event); err != nil {
		log.Printf("notification %s to %d failed: %v", event.Type, event.TelegramID, err)
	}
}
