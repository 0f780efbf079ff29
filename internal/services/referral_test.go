package services

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alfaref/referral_backend/internal/models"
	"github.com/alfaref/referral_backend/internal/repositories"
)

type fakeRepo struct {
	users        map[int64]*models.User
	createUser   *models.User
	createErr    error
	referrerID   int64
	reward       *repositories.RewardResult
	issueErr     error
	stats        models.ReferralStats
	transactions []models.Transaction

	createCalls int
	issueCalls  int
	lastLimit   int

	// lookupMisses заставляет первые N проверок не находить пользователя,
	// имитируя регистрацию, проигравшую гонку между проверкой и вставкой
	lookupMisses int
}

func (f *fakeRepo) UserByTelegramID(_ context.Context, telegramID int64) (*models.User, error) {
	if f.lookupMisses > 0 {
		f.lookupMisses--
		return nil, repositories.ErrUserNotFound
	}
	if u, ok := f.users[telegramID]; ok {
		return u, nil
	}
	return nil, repositories.ErrUserNotFound
}

func (f *fakeRepo) CreateUser(_ context.Context, _ repositories.CreateUserParams, nextCode func() string) (*models.User, int64, error) {
	f.createCalls++
	if f.createErr != nil {
		return nil, 0, f.createErr
	}
	if f.createUser.PromoCode == "" {
		f.createUser.PromoCode = nextCode()
	}
	return f.createUser, f.referrerID, nil
}

func (f *fakeRepo) IssueCard(_ context.Context, _ int64, _ string) (*repositories.RewardResult, error) {
	f.issueCalls++
	return f.reward, f.issueErr
}

func (f *fakeRepo) Stats(_ context.Context, _ int64) (models.ReferralStats, error) {
	return f.stats, nil
}

func (f *fakeRepo) RecentTransactions(_ context.Context, _ int64, limit int) ([]models.Transaction, error) {
	f.lastLimit = limit
	return f.transactions, nil
}

type recordingSink struct {
	events []models.NotificationEvent
	err    error
}

func (s *recordingSink) Notify(_ context.Context, event models.NotificationEvent) error {
	s.events = append(s.events, event)
	return s.err
}

type staticCodes struct{ code string }

func (c staticCodes) Code() string { return c.code }

func TestRegisterExistingUserIsNoOp(t *testing.T) {
	existing := &models.User{TelegramID: 111, PromoCode: "CODE0001"}
	repo := &fakeRepo{users: map[int64]*models.User{111: existing}}
	sink := &recordingSink{}
	service := NewReferralService(repo, sink, staticCodes{"UNUSED00"})

	result, err := service.Register(context.Background(), repositories.CreateUserParams{TelegramID: 111})
	require.NoError(t, err)
	assert.True(t, result.Existed)
	assert.Same(t, existing, result.User)
	assert.Zero(t, repo.createCalls)
	assert.Empty(t, sink.events)
}

func TestRegisterNotifiesReferrer(t *testing.T) {
	repo := &fakeRepo{
		users:      map[int64]*models.User{},
		createUser: &models.User{TelegramID: 222, FirstName: "Пётр"},
		referrerID: 111,
	}
	sink := &recordingSink{}
	service := NewReferralService(repo, sink, staticCodes{"CODE0002"})

	result, err := service.Register(context.Background(),
		repositories.CreateUserParams{TelegramID: 222, ReferrerPromo: "CODE0001"})
	require.NoError(t, err)
	assert.False(t, result.Existed)
	assert.Equal(t, "CODE0002", result.User.PromoCode)

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, int64(111), event.TelegramID)
	assert.Equal(t, models.NotificationNewReferral, event.Type)
	assert.Equal(t, "Пётр", event.Data["referral_name"])
}

func TestRegisterWithoutLinkageSendsNothing(t *testing.T) {
	repo := &fakeRepo{
		users:      map[int64]*models.User{},
		createUser: &models.User{TelegramID: 222},
	}
	sink := &recordingSink{}
	service := NewReferralService(repo, sink, staticCodes{"CODE0002"})

	_, err := service.Register(context.Background(), repositories.CreateUserParams{TelegramID: 222})
	require.NoError(t, err)
	assert.Empty(t, sink.events)
}

// Ошибка доставки уведомления не влияет на результат регистрации.
func TestRegisterSurvivesSinkFailure(t *testing.T) {
	repo := &fakeRepo{
		users:      map[int64]*models.User{},
		createUser: &models.User{TelegramID: 222},
		referrerID: 111,
	}
	sink := &recordingSink{err: errors.New("connection refused")}
	service := NewReferralService(repo, sink, staticCodes{"CODE0002"})

	result, err := service.Register(context.Background(), repositories.CreateUserParams{TelegramID: 222})
	require.NoError(t, err)
	assert.False(t, result.Existed)
}

// Проигранная гонка за telegram_id превращается в ответ "уже существует".
func TestRegisterConcurrentDuplicate(t *testing.T) {
	winner := &models.User{TelegramID: 222, PromoCode: "WINNER01"}
	repo := &fakeRepo{
		users:        map[int64]*models.User{222: winner},
		createErr:    fmt.Errorf("insert user: %w", &pq.Error{Code: "23505", Constraint: "users_telegram_id_key"}),
		lookupMisses: 1,
	}
	sink := &recordingSink{}
	service := NewReferralService(repo, sink, staticCodes{"CODE0002"})

	result, err := service.Register(context.Background(), repositories.CreateUserParams{TelegramID: 222})
	require.NoError(t, err)
	assert.True(t, result.Existed)
	assert.Same(t, winner, result.User)
}

func TestIssueCardNotifiesReferrer(t *testing.T) {
	repo := &fakeRepo{
		reward: &repositories.RewardResult{
			ReferrerID:   111,
			ReferralName: "Пётр",
			Amount:       decimal.RequireFromString("200.00"),
		},
	}
	sink := &recordingSink{}
	service := NewReferralService(repo, sink, staticCodes{""})

	require.NoError(t, service.IssueCard(context.Background(), 222, "CODE0001"))

	require.Len(t, sink.events, 1)
	event := sink.events[0]
	assert.Equal(t, int64(111), event.TelegramID)
	assert.Equal(t, models.NotificationCardIssued, event.Type)
	assert.Equal(t, "Пётр", event.Data["referral_name"])
	assert.Equal(t, 200.0, event.Data["amount"])
}

func TestIssueCardWithoutLinkageSucceedsSilently(t *testing.T) {
	repo := &fakeRepo{reward: nil}
	sink := &recordingSink{}
	service := NewReferralService(repo, sink, staticCodes{""})

	require.NoError(t, service.IssueCard(context.Background(), 222, "CODE0001"))
	assert.Equal(t, 1, repo.issueCalls)
	assert.Empty(t, sink.events)
}

func TestProfile(t *testing.T) {
	user := &models.User{TelegramID: 111}
	repo := &fakeRepo{
		users: map[int64]*models.User{111: user},
		stats: models.ReferralStats{TotalReferrals: 3, CardsIssued: 1},
		transactions: []models.Transaction{
			{ID: 1, UserID: 111, Amount: decimal.RequireFromString("200.00")},
		},
	}
	service := NewReferralService(repo, &recordingSink{}, staticCodes{""})

	profile, err := service.Profile(context.Background(), 111)
	require.NoError(t, err)
	assert.Same(t, user, profile.User)
	assert.Equal(t, 3, profile.Stats.TotalReferrals)
	assert.Len(t, profile.Transactions, 1)
	assert.Equal(t, 10, repo.lastLimit)
}

func TestProfileUnknownUser(t *testing.T) {
	service := NewReferralService(&fakeRepo{users: map[int64]*models.User{}}, &recordingSink{}, staticCodes{""})

	_, err := service.Profile(context.Background(), 999)
	assert.ErrorIs(t, err, repositories.ErrUserNotFound)
}
