package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

func (r *Repository) GetDeliveryPreferences(ctx context.Context, userID uuid.UUID) (*domain.DeliveryPreferences, error) {
	query := `
		SELECT preferred_days, preferred_time_slots, delivery_notes, contact_before_delivery, updated_at
		FROM delivery_preferences
		WHERE user_id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var (
		prefs     domain.DeliveryPreferences
		days      []byte
		slots     []byte
		updatedAt time.Time
	)
	dst := []any{&days, &slots, &prefs.DeliveryNotes, &prefs.ContactBeforeDelivery, &updatedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, userID).Scan(dst...); err != nil {
		return nil, translateError(err)
	}

	if err := json.Unmarshal(days, &prefs.PreferredDays); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(slots, &prefs.PreferredTimeSlots); err != nil {
		return nil, err
	}
	prefs.UpdatedAt = &updatedAt

	return &prefs, nil
}

const upsertPreferencesQuery = `
	INSERT INTO delivery_preferences (user_id, preferred_days, preferred_time_slots, delivery_notes, contact_before_delivery)
	VALUES ($1, $2::jsonb, $3::jsonb, $4, $5)
	ON CONFLICT (user_id) DO UPDATE SET
		preferred_days = EXCLUDED.preferred_days,
		preferred_time_slots = EXCLUDED.preferred_time_slots,
		delivery_notes = EXCLUDED.delivery_notes,
		contact_before_delivery = EXCLUDED.contact_before_delivery,
		updated_at = NOW()
	RETURNING updated_at
`

// queryRower 由 *sql.DB 和 *sql.Tx 实现
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func upsertPreferences(ctx context.Context, q queryRower, userID uuid.UUID, prefs *domain.DeliveryPreferences) error {
	days, err := json.Marshal(prefs.PreferredDays)
	if err != nil {
		return err
	}
	slots, err := json.Marshal(prefs.PreferredTimeSlots)
	if err != nil {
		return err
	}

	var updatedAt time.Time
	params := []any{userID, string(days), string(slots), prefs.DeliveryNotes, prefs.ContactBeforeDelivery}
	if err := q.QueryRowContext(ctx, upsertPreferencesQuery, params...).Scan(&updatedAt); err != nil {
		return err
	}
	prefs.UpdatedAt = &updatedAt

	return nil
}

// UpsertDeliveryPreferences 整体覆盖用户的偏好，不存在时插入
func (r *Repository) UpsertDeliveryPreferences(ctx context.Context, userID uuid.UUID, prefs *domain.DeliveryPreferences) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return translateError(upsertPreferences(ctx, r.dbpool, userID, prefs))
}
