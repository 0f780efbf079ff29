package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/alfaref/referral_backend/internal/models"
)

// ErrUserNotFound — пользователь с таким telegram_id не зарегистрирован.
var ErrUserNotFound = errors.New("user not found")

// RewardAmount — фиксированное вознаграждение за оформленную карту.
var RewardAmount = decimal.RequireFromString("200.00")

const uniqueViolation = "23505"

const (
	promoCodeConstraint  = "users_promo_code_key"
	telegramIDConstraint = "users_telegram_id_key"
)

type ReferralRepository struct {
	db *sql.DB
}

func NewReferralRepository(db *sql.DB) *ReferralRepository {
	return &ReferralRepository{db: db}
}

// CreateUserParams — данные регистрации нового пользователя.
type CreateUserParams struct {
	TelegramID    int64
	Username      string
	FirstName     string
	ReferrerPromo string
}

// RewardResult — итог успешного начисления за оформленную карту.
type RewardResult struct {
	ReferrerID   int64 // telegram_id получателя вознаграждения
	ReferralName string
	Amount       decimal.Decimal
}

// UserByTelegramID возвращает пользователя или ErrUserNotFound.
func (r *ReferralRepository) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, username, first_name, promo_code, balance
		FROM users
		WHERE telegram_id = $1`, telegramID)

	user, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// CreateUser регистрирует пользователя и, если промокод реферера найден,
// связывает его с новым пользователем — всё в одной транзакции.
// Уникальность промокода гарантирует констрейнт в БД: при коллизии кода
// транзакция повторяется с новым значением из nextCode, пока вставка
// не пройдёт. Возвращает созданного пользователя и telegram_id реферера
// (0, если привязки не было).
func (r *ReferralRepository) CreateUser(ctx context.Context, p CreateUserParams, nextCode func() string) (*models.User, int64, error) {
	for {
		user, referrerID, err := r.tryCreateUser(ctx, p, nextCode())
		if isUniqueViolation(err, promoCodeConstraint) {
			// код достался другому пользователю — пробуем следующий
			continue
		}
		if err != nil {
			return nil, 0, err
		}
		return user, referrerID, nil
	}
}

func (r *ReferralRepository) tryCreateUser(ctx context.Context, p CreateUserParams, code string) (*models.User, int64, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		INSERT INTO users (telegram_id, username, first_name, promo_code)
		VALUES ($1, $2, $3, $4)
		RETURNING id, telegram_id, username, first_name, promo_code, balance`,
		p.TelegramID, nullString(p.Username), nullString(p.FirstName), code)

	user, err := scanUser(row)
	if err != nil {
		return nil, 0, fmt.Errorf("insert user: %w", err)
	}

	var referrerID int64
	if p.ReferrerPromo != "" {
		var refID int64
		err = tx.QueryRowContext(ctx,
			`SELECT telegram_id FROM users WHERE promo_code = $1`,
			p.ReferrerPromo).Scan(&refID)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			// промокод не найден — регистрируем без привязки
		case err != nil:
			return nil, 0, fmt.Errorf("lookup referrer: %w", err)
		case refID == p.TelegramID:
			// собственный промокод привязку не создаёт
		default:
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO referrals (referrer_id, referred_id, promo_code)
				VALUES ($1, $2, $3)`,
				refID, p.TelegramID, p.ReferrerPromo); err != nil {
				return nil, 0, fmt.Errorf("insert referral: %w", err)
			}
			referrerID = refID
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit: %w", err)
	}
	return user, referrerID, nil
}

// IssueCard отмечает карту оформленной и начисляет вознаграждение.
// Все четыре эффекта (card_issued, баланс, транзакция, reward_paid)
// уходят одним коммитом. Если подходящей неоформленной привязки нет,
// возвращает (nil, nil) — ничего не меняя.
func (r *ReferralRepository) IssueCard(ctx context.Context, telegramID int64, promoCode string) (*RewardResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var referrerID int64
	err = tx.QueryRowContext(ctx, `
		UPDATE referrals
		SET card_issued = TRUE, card_issued_at = CURRENT_TIMESTAMP
		WHERE promo_code = $1 AND referred_id = $2 AND card_issued = FALSE
		RETURNING referrer_id`,
		promoCode, telegramID).Scan(&referrerID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mark card issued: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET balance = balance + $1 WHERE telegram_id = $2`,
		RewardAmount, referrerID); err != nil {
		return nil, fmt.Errorf("credit reward: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (user_id, amount, type, description)
		VALUES ($1, $2, $3, $4)`,
		referrerID, RewardAmount, models.TransactionTypeReferralReward,
		fmt.Sprintf("Reward for referral %d", telegramID)); err != nil {
		return nil, fmt.Errorf("insert transaction: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE referrals SET reward_paid = TRUE
		WHERE promo_code = $1 AND referred_id = $2`,
		promoCode, telegramID); err != nil {
		return nil, fmt.Errorf("mark reward paid: %w", err)
	}

	var referralName sql.NullString
	if err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(NULLIF(first_name, ''), username)
		FROM users
		WHERE telegram_id = $1`,
		telegramID).Scan(&referralName); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lookup referral name: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return &RewardResult{
		ReferrerID:   referrerID,
		ReferralName: referralName.String,
		Amount:       RewardAmount,
	}, nil
}

// Stats считает рефералов пользователя и сколько из них оформили карту.
func (r *ReferralRepository) Stats(ctx context.Context, telegramID int64) (models.ReferralStats, error) {
	var stats models.ReferralStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN card_issued THEN 1 ELSE 0 END), 0)
		FROM referrals
		WHERE referrer_id = $1`,
		telegramID).Scan(&stats.TotalReferrals, &stats.CardsIssued)
	if err != nil {
		return models.ReferralStats{}, fmt.Errorf("select stats: %w", err)
	}
	return stats, nil
}

// RecentTransactions возвращает последние операции по балансу, свежие первыми.
func (r *ReferralRepository) RecentTransactions(ctx context.Context, telegramID int64, limit int) ([]models.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, amount, type, description, created_at
		FROM transactions
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		telegramID, limit)
	if err != nil {
		return nil, fmt.Errorf("select transactions: %w", err)
	}
	defer rows.Close()

	transactions := make([]models.Transaction, 0, limit)
	for rows.Next() {
		var t models.Transaction
		var description sql.NullString
		if err := rows.Scan(&t.ID, &t.UserID, &t.Amount, &t.Type, &description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Description = description.String
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return transactions, nil
}

// IsDuplicateUser — нарушение уникальности telegram_id: пользователь
// уже зарегистрирован параллельным запросом.
func IsDuplicateUser(err error) bool {
	return isUniqueViolation(err, telegramIDConstraint)
}

func isUniqueViolation(err error, constraint string) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation && pqErr.Constraint == constraint
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanUser(row rowScanner) (*models.User, error) {
	var user models.User
	var username, firstName sql.NullString
	if err := row.Scan(&user.ID, &user.TelegramID, &username, &firstName, &user.PromoCode, &user.Balance); err != nil {
		return nil, err
	}
	user.Username = username.String
	user.FirstName = firstName.String
	return &user, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
