package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ykvlv/dailyping/internal/domain"
)

// RecordDelivery appends one channel outcome to the delivery log.
func (r *SQLRepo) RecordDelivery(ctx context.Context, o domain.DeliveryOutcome) error {
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, r.q(`
		INSERT INTO delivery_outcomes (id, user_id, channel, period_key, kind, status, error, duration_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		o.ID, o.UserID, o.Channel, o.PeriodKey, o.Kind, string(o.Status), o.Error,
		o.Duration.Milliseconds(), toUnix(o.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("record delivery: %w", err)
	}
	return nil
}

// ListDeliveries returns the most recent outcomes for a user, newest first.
func (r *SQLRepo) ListDeliveries(ctx context.Context, userID string, limit int) ([]domain.DeliveryOutcome, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx, r.q(`
		SELECT id, user_id, channel, period_key, kind, status, error, duration_ms, created_at
		FROM delivery_outcomes
		WHERE user_id = ?
		ORDER BY created_at DESC, id
		LIMIT ?`),
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var res []domain.DeliveryOutcome
	for rows.Next() {
		var (
			o          domain.DeliveryOutcome
			status     string
			durationMS int64
			createdAt  int64
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.Channel, &o.PeriodKey, &o.Kind, &status,
			&o.Error, &durationMS, &createdAt); err != nil {
			return nil, err
		}
		o.Status = domain.DeliveryStatus(status)
		o.Duration = time.Duration(durationMS) * time.Millisecond
		o.CreatedAt = fromUnix(createdAt)
		res = append(res, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}
