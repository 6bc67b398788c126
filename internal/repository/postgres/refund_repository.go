package postgres

import (
	"context"
	"fmt"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/refund"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const refundColumns = `id, transaction_id, amount, currency, reason, status, created_at, updated_at`

// RefundRepository implements refund.Repository using PostgreSQL.
type RefundRepository struct {
	pool *pgxpool.Pool
}

// NewRefundRepository creates a new RefundRepository.
func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{pool: pool}
}

func (r *RefundRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts a new refund.
func (r *RefundRepository) Create(ctx context.Context, ref *refund.Refund) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO refunds (id, transaction_id, amount, currency, reason, status, created_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ref.ID, ref.TransactionID, centsToNumericString(ref.AmountCents), ref.Currency,
		ref.Reason, string(ref.Status), ref.CreatedAt, ref.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert refund: %w", err)
	}
	return nil
}

// GetByID retrieves a refund by its ID.
func (r *RefundRepository) GetByID(ctx context.Context, id uuid.UUID) (*refund.Refund, error) {
	return r.scanRefund(r.db(ctx).QueryRow(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id))
}

// Update persists the mutable fields of a refund.
func (r *RefundRepository) Update(ctx context.Context, ref *refund.Refund) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE refunds SET status=$1, updated_at=$2 WHERE id=$3`,
		string(ref.Status), ref.UpdatedAt, ref.ID,
	)
	if err != nil {
		return fmt.Errorf("update refund: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrRefundNotFound
	}
	return nil
}

// ListByTransaction returns all refunds for a transaction, oldest first.
func (r *RefundRepository) ListByTransaction(ctx context.Context, transactionID uuid.UUID) ([]*refund.Refund, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+refundColumns+` FROM refunds WHERE transaction_id = $1 ORDER BY created_at ASC`,
		transactionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list refunds: %w", err)
	}
	defer rows.Close()

	var refunds []*refund.Refund
	for rows.Next() {
		ref, err := r.scanRefund(rows)
		if err != nil {
			return nil, err
		}
		refunds = append(refunds, ref)
	}
	return refunds, rows.Err()
}

// SumCompletedByTransaction returns the total amount of completed refunds
// for a transaction, in cents. Call it under the parent row lock when the
// result feeds a balance decision.
func (r *RefundRepository) SumCompletedByTransaction(ctx context.Context, transactionID uuid.UUID) (int64, error) {
	var sumStr string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0)::text FROM refunds
		 WHERE transaction_id = $1 AND status = $2`,
		transactionID, string(refund.StatusCompleted),
	).Scan(&sumStr)
	if err != nil {
		return 0, fmt.Errorf("sum refunds: %w", err)
	}
	return numericStringToCents(sumStr)
}

func (r *RefundRepository) scanRefund(s scanner) (*refund.Refund, error) {
	ref := &refund.Refund{}
	var (
		amountStr string
		status    string
	)
	err := s.Scan(
		&ref.ID, &ref.TransactionID, &amountStr, &ref.Currency, &ref.Reason,
		&status, &ref.CreatedAt, &ref.UpdatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrRefundNotFound
		}
		return nil, fmt.Errorf("scan refund: %w", err)
	}

	cents, err := numericStringToCents(amountStr)
	if err != nil {
		return nil, fmt.Errorf("parse amount: %w", err)
	}
	ref.AmountCents = cents
	ref.Status = refund.Status(status)
	return ref, nil
}
