package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivankudzin/oneclick/internal/domain/model"
	"github.com/ivankudzin/oneclick/internal/repo"
)

const transactionColumns = `
	id,
	buy_order,
	commerce_code,
	inscription_id,
	user_id,
	amount,
	shares,
	auth_code,
	response_code,
	payment_type,
	status,
	card_digits,
	created_at`

type TransactionRepo struct {
	pool *pgxpool.Pool
}

func NewTransactionRepo(pool *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

func (r *TransactionRepo) CountByBuyOrder(ctx context.Context, buyOrder string) (int64, error) {
	if r.pool == nil {
		return 0, fmt.Errorf("postgres pool is nil")
	}

	var count int64
	if err := r.pool.QueryRow(ctx, `
SELECT COUNT(*)
FROM transactions
WHERE buy_order = $1
`, strings.TrimSpace(buyOrder)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions by buy_order: %w", err)
	}
	return count, nil
}

func (r *TransactionRepo) Create(ctx context.Context, tx model.Transaction) (model.Transaction, error) {
	if r.pool == nil {
		return model.Transaction{}, fmt.Errorf("postgres pool is nil")
	}
	tx.BuyOrder = strings.TrimSpace(tx.BuyOrder)
	if tx.BuyOrder == "" || tx.InscriptionID == "" || tx.Amount <= 0 {
		return model.Transaction{}, fmt.Errorf("invalid transaction create payload")
	}
	if tx.ID == "" {
		tx.ID = uuid.NewString()
	}
	if tx.Shares <= 0 {
		tx.Shares = 1
	}
	if tx.CreatedAt.IsZero() {
		tx.CreatedAt = time.Now().UTC()
	}

	record, err := scanTransactionRow(r.pool.QueryRow(ctx, `
INSERT INTO transactions (
	id,
	buy_order,
	commerce_code,
	inscription_id,
	user_id,
	amount,
	shares,
	auth_code,
	response_code,
	payment_type,
	status,
	card_digits,
	created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
RETURNING`+transactionColumns,
		tx.ID,
		tx.BuyOrder,
		tx.CommerceCode,
		tx.InscriptionID,
		tx.UserID,
		tx.Amount,
		tx.Shares,
		tx.AuthCode,
		tx.ResponseCode,
		tx.PaymentType,
		tx.Status,
		tx.CardDigits,
		tx.CreatedAt.UTC(),
	))
	if err != nil {
		if isUniqueViolation(err, transactionBuyOrderKey) {
			return model.Transaction{}, repo.ErrBuyOrderExists
		}
		return model.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return record, nil
}

func (r *TransactionRepo) Find(ctx context.Context, filter repo.TransactionFilter) (model.Transaction, error) {
	if r.pool == nil {
		return model.Transaction{}, fmt.Errorf("postgres pool is nil")
	}

	query := `
SELECT` + transactionColumns + `
FROM transactions
WHERE buy_order = $1`
	args := []any{strings.TrimSpace(filter.BuyOrder)}
	if userID := strings.TrimSpace(filter.UserID); userID != "" {
		args = append(args, userID)
		query += fmt.Sprintf("\n  AND user_id = $%d", len(args))
	}
	if authCode := strings.TrimSpace(filter.AuthCode); authCode != "" {
		args = append(args, authCode)
		query += fmt.Sprintf("\n  AND auth_code = $%d", len(args))
	}

	record, err := scanTransactionRow(r.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Transaction{}, repo.ErrTransactionNotFound
		}
		return model.Transaction{}, fmt.Errorf("find transaction: %w", err)
	}
	return record, nil
}

func scanTransactionRow(row pgx.Row) (model.Transaction, error) {
	var record model.Transaction
	if err := row.Scan(
		&record.ID,
		&record.BuyOrder,
		&record.CommerceCode,
		&record.InscriptionID,
		&record.UserID,
		&record.Amount,
		&record.Shares,
		&record.AuthCode,
		&record.ResponseCode,
		&record.PaymentType,
		&record.Status,
		&record.CardDigits,
		&record.CreatedAt,
	); err != nil {
		return model.Transaction{}, err
	}
	return record, nil
}
