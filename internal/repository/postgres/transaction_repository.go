package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/transaction"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const transactionColumns = `id, merchant_id, amount, currency, idempotency_key,
	customer_id, payment_method, webhook_url, metadata, status, created_at, updated_at`

// TransactionRepository implements transaction.Repository using PostgreSQL.
// The UNIQUE constraint on idempotency_key is what actually enforces
// one-transaction-per-key; everything above it is acceleration.
type TransactionRepository struct {
	pool *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(pool *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{pool: pool}
}

func (r *TransactionRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Create inserts a new transaction. A unique violation on idempotency_key
// is reported as ErrDuplicateIdempotencyKey.
func (r *TransactionRepository) Create(ctx context.Context, txn *transaction.Transaction) error {
	metadata, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO transactions
		 (id, merchant_id, amount, currency, idempotency_key,
		  customer_id, payment_method, webhook_url, metadata, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		txn.ID, txn.MerchantID, centsToNumericString(txn.Amount.ValueCents), txn.Amount.Currency,
		txn.IdempotencyKey, txn.CustomerID, txn.PaymentMethod, txn.WebhookURL,
		metadata, string(txn.Status), txn.CreatedAt, txn.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domainErrors.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// GetByID retrieves a transaction by its ID.
func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id))
}

// GetByIdempotencyKey retrieves a transaction by idempotency key.
func (r *TransactionRepository) GetByIdempotencyKey(ctx context.Context, key string) (*transaction.Transaction, error) {
	return r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE idempotency_key = $1`, key))
}

// Update persists the mutable fields of a transaction.
func (r *TransactionRepository) Update(ctx context.Context, txn *transaction.Transaction) error {
	metadata, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE transactions SET status=$1, metadata=$2, updated_at=$3 WHERE id=$4`,
		string(txn.Status), metadata, txn.UpdatedAt, txn.ID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrTransactionNotFound
	}
	return nil
}

// Lock retrieves a transaction with a row lock (SELECT FOR UPDATE). Must be
// called inside a transaction; concurrent refunds against the same
// transaction serialize on this lock.
func (r *TransactionRepository) Lock(ctx context.Context, id uuid.UUID) (*transaction.Transaction, error) {
	return r.scanTransaction(r.db(ctx).QueryRow(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id))
}

func (r *TransactionRepository) scanTransaction(s scanner) (*transaction.Transaction, error) {
	txn := &transaction.Transaction{Metadata: make(map[string]any)}
	var (
		amountStr string
		status    string
		metadata  []byte
	)
	err := s.Scan(
		&txn.ID, &txn.MerchantID, &amountStr, &txn.Amount.Currency, &txn.IdempotencyKey,
		&txn.CustomerID, &txn.PaymentMethod, &txn.WebhookURL, &metadata, &status,
		&txn.CreatedAt, &txn.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrTransactionNotFound
		}
		return nil, fmt.Errorf("scan transaction: %w", err)
	}

	cents, err := numericStringToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	txn.Amount.ValueCents = cents
	txn.Status = transaction.Status(status)

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal transaction metadata: %w", err)
		}
	}
	return txn, nil
}
