package postgres

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/cassiomorais/gateway/internal/domain/errors"
	"github.com/cassiomorais/gateway/internal/domain/webhook"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const webhookColumns = `id, subject_id, subject_type, event_type, payload, target_url,
	status, attempts, max_attempts, next_retry_at, delivered_at, created_at`

// WebhookRepository implements webhook.Repository using PostgreSQL. The
// events table is the durable retry schedule; the dispatcher reads due
// events from here no matter how it was woken up.
type WebhookRepository struct {
	pool *pgxpool.Pool
}

// NewWebhookRepository creates a new WebhookRepository.
func NewWebhookRepository(pool *pgxpool.Pool) *WebhookRepository {
	return &WebhookRepository{pool: pool}
}

func (r *WebhookRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// Create inserts a new webhook event.
func (r *WebhookRepository) Create(ctx context.Context, e *webhook.Event) error {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO webhook_events
		 (id, subject_id, subject_type, event_type, payload, target_url,
		  status, attempts, max_attempts, next_retry_at, delivered_at, created_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		e.ID, e.SubjectID, e.SubjectType, e.EventType, e.Payload, e.TargetURL,
		string(e.Status), e.Attempts, e.MaxAttempts, e.NextRetryAt, e.DeliveredAt, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

// GetByID retrieves a webhook event by its ID.
func (r *WebhookRepository) GetByID(ctx context.Context, id uuid.UUID) (*webhook.Event, error) {
	return r.scanEvent(r.db(ctx).QueryRow(ctx,
		`SELECT `+webhookColumns+` FROM webhook_events WHERE id = $1`, id))
}

// Update persists the delivery state of a webhook event.
func (r *WebhookRepository) Update(ctx context.Context, e *webhook.Event) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE webhook_events
		 SET status=$1, attempts=$2, next_retry_at=$3, delivered_at=$4
		 WHERE id=$5`,
		string(e.Status), e.Attempts, e.NextRetryAt, e.DeliveredAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("update webhook event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrEventNotFound
	}
	return nil
}

// GetDue returns pending events eligible for a delivery attempt at now,
// oldest first.
func (r *WebhookRepository) GetDue(ctx context.Context, now time.Time, limit int) ([]*webhook.Event, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+webhookColumns+` FROM webhook_events
		 WHERE status = $1 AND (next_retry_at IS NULL OR next_retry_at <= $2)
		 ORDER BY created_at ASC
		 LIMIT $3`,
		string(webhook.StatusPending), now, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query due webhook events: %w", err)
	}
	defer rows.Close()

	var events []*webhook.Event
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// NextDue returns the earliest future retry time among pending events, or
// nil when nothing is scheduled.
func (r *WebhookRepository) NextDue(ctx context.Context, now time.Time) (*time.Time, error) {
	var next *time.Time
	err := r.db(ctx).QueryRow(ctx,
		`SELECT MIN(next_retry_at) FROM webhook_events
		 WHERE status = $1 AND next_retry_at > $2`,
		string(webhook.StatusPending), now,
	).Scan(&next)
	if err != nil {
		return nil, fmt.Errorf("query next due webhook event: %w", err)
	}
	return next, nil
}

// ListBySubject returns all events recorded for a subject, oldest first.
func (r *WebhookRepository) ListBySubject(ctx context.Context, subjectID uuid.UUID) ([]*webhook.Event, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+webhookColumns+` FROM webhook_events
		 WHERE subject_id = $1 ORDER BY created_at ASC`,
		subjectID,
	)
	if err != nil {
		return nil, fmt.Errorf("list webhook events: %w", err)
	}
	defer rows.Close()

	var events []*webhook.Event
	for rows.Next() {
		e, err := r.scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *WebhookRepository) scanEvent(s scanner) (*webhook.Event, error) {
	e := &webhook.Event{}
	var status string
	err := s.Scan(
		&e.ID, &e.SubjectID, &e.SubjectType, &e.EventType, &e.Payload, &e.TargetURL,
		&status, &e.Attempts, &e.MaxAttempts, &e.NextRetryAt, &e.DeliveredAt, &e.CreatedAt,
	)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, domainErrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("scan webhook event: %w", err)
	}
	e.Status = webhook.Status(status)
	return e, nil
}
