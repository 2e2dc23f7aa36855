package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

func (r *Repository) CreateRecurringDelivery(ctx context.Context, pattern *domain.RecurringDeliveryPattern) error {
	query := `
		INSERT INTO recurring_deliveries (subscription_id, frequency, day_of_week, preferred_time_slot, active)
		VALUES ($1, $2, $3::jsonb, $4, $5)
		RETURNING id, created_at
	`

	days, err := json.Marshal(pattern.DaysOfWeek)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{
		pattern.SubscriptionID,
		pattern.Frequency,
		string(days),
		pattern.PreferredTimeSlot,
		pattern.Active,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&pattern.ID, &pattern.CreatedAt); err != nil {
		return translateError(err)
	}

	return nil
}

func (r *Repository) GetRecurringDelivery(ctx context.Context, id uuid.UUID) (*domain.RecurringDeliveryPattern, error) {
	query := `
		SELECT subscription_id, frequency, day_of_week, preferred_time_slot, active, created_at
		FROM recurring_deliveries
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	pattern := &domain.RecurringDeliveryPattern{
		ID: id,
	}

	var days []byte
	dst := []any{
		&pattern.SubscriptionID,
		&pattern.Frequency,
		&days,
		&pattern.PreferredTimeSlot,
		&pattern.Active,
		&pattern.CreatedAt,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, translateError(err)
	}

	if err := json.Unmarshal(days, &pattern.DaysOfWeek); err != nil {
		return nil, err
	}

	return pattern, nil
}

func (r *Repository) SetRecurringDeliveryActive(ctx context.Context, id uuid.UUID, active bool) error {
	query := `UPDATE recurring_deliveries SET active = $1 WHERE id = $2`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	result, err := r.dbpool.ExecContext(ctx, query, active, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}

	return nil
}
