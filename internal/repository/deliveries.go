package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
)

// 序列化冲突时最多尝试的次数
const maxInsertAttempts = 3

func (r *Repository) CountBookings(ctx context.Context, startDate, endDate string) (map[domain.SlotKey]int, error) {
	query := `
		SELECT delivery_date::text, time_slot, COUNT(*)
		FROM delivery_schedules
		WHERE delivery_date BETWEEN $1::date AND $2::date
		GROUP BY delivery_date, time_slot
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, startDate, endDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.SlotKey]int)
	for rows.Next() {
		var (
			key   domain.SlotKey
			count int
		)
		if err := rows.Scan(&key.Date, &key.TimeWindow, &count); err != nil {
			return nil, err
		}
		counts[key] = count
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return counts, nil
}

func (r *Repository) InsertDelivery(ctx context.Context, delivery *domain.DeliverySchedule, notification *domain.DeliveryNotification, opts scheduler.InsertOptions) error {
	var err error
	for attempt := 1; attempt <= maxInsertAttempts; attempt++ {
		err = r.insertDelivery(ctx, delivery, notification, opts)
		if err == nil || !isRetryable(err) {
			break
		}
	}
	return translateError(err)
}

func (r *Repository) insertDelivery(ctx context.Context, delivery *domain.DeliverySchedule, notification *domain.DeliveryNotification, opts scheduler.InsertOptions) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 同一时段的预约在事务级咨询锁上串行，计数和写入之间不会有其他预约插入
	query := `SELECT pg_advisory_xact_lock(hashtext($1))`
	if _, err := tx.ExecContext(ctx, query, delivery.Slot().ID()); err != nil {
		return err
	}

	if opts.UniquePerSubscription {
		query = `
			SELECT EXISTS (
				SELECT 1 FROM delivery_schedules
				WHERE subscription_id = $1 AND delivery_date = $2::date AND time_slot = $3
			)
		`

		var exists bool
		if err := tx.QueryRowContext(ctx, query, delivery.SubscriptionID, delivery.DeliveryDate, delivery.TimeSlot).Scan(&exists); err != nil {
			return err
		}
		if exists {
			return domain.ErrAlreadyScheduled
		}
	}

	query = `SELECT COUNT(*) FROM delivery_schedules WHERE delivery_date = $1::date AND time_slot = $2`

	var booked int
	if err := tx.QueryRowContext(ctx, query, delivery.DeliveryDate, delivery.TimeSlot).Scan(&booked); err != nil {
		return err
	}
	if booked >= opts.Capacity {
		return fmt.Errorf("%w: %s", domain.ErrCapacityExceeded, delivery.Slot().ID())
	}

	query = `
		INSERT INTO delivery_schedules (subscription_id, delivery_date, time_slot, status, delivery_notes)
		VALUES ($1, $2::date, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	params := []any{
		delivery.SubscriptionID,
		delivery.DeliveryDate,
		delivery.TimeSlot,
		delivery.Status,
		delivery.DeliveryNotes,
	}
	dst := []any{&delivery.ID, &delivery.CreatedAt, &delivery.UpdatedAt}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return err
	}

	notification.DeliveryID = delivery.ID
	if err := insertNotification(ctx, tx, notification); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func insertNotification(ctx context.Context, tx *sql.Tx, notification *domain.DeliveryNotification) error {
	query := `
		INSERT INTO delivery_notifications (delivery_id, type, content)
		VALUES ($1, $2, $3)
		RETURNING id, sent_at
	`

	params := []any{notification.DeliveryID, notification.Type, notification.Content}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&notification.ID, &notification.SentAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeliveryExists(ctx context.Context, subscriptionID uuid.UUID, slot domain.SlotKey) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM delivery_schedules
			WHERE subscription_id = $1 AND delivery_date = $2::date AND time_slot = $3
		)
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var exists bool
	if err := r.dbpool.QueryRowContext(ctx, query, subscriptionID, slot.Date, slot.TimeWindow).Scan(&exists); err != nil {
		return false, err
	}

	return exists, nil
}

func (r *Repository) GetDelivery(ctx context.Context, id uuid.UUID) (*domain.DeliverySchedule, error) {
	query := `
		SELECT subscription_id, delivery_date::text, time_slot, status, delivery_notes, created_at, updated_at
		FROM delivery_schedules
		WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	delivery := &domain.DeliverySchedule{
		ID: id,
	}

	dst := []any{
		&delivery.SubscriptionID,
		&delivery.DeliveryDate,
		&delivery.TimeSlot,
		&delivery.Status,
		&delivery.DeliveryNotes,
		&delivery.CreatedAt,
		&delivery.UpdatedAt,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, translateError(err)
	}

	return delivery, nil
}

func (r *Repository) UpdateDeliveryStatus(ctx context.Context, delivery *domain.DeliverySchedule, from domain.DeliveryStatus, notification *domain.DeliveryNotification) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// 状态在读取之后被其他请求修改过时不更新
	query := `
		UPDATE delivery_schedules
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING updated_at
	`

	if err := tx.QueryRowContext(ctx, query, delivery.Status, delivery.ID, from).Scan(&delivery.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: 配送状态已被修改", domain.ErrInvalidTransition)
		}
		return err
	}

	notification.DeliveryID = delivery.ID
	if err := insertNotification(ctx, tx, notification); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) ListDeliveriesBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*domain.DeliverySchedule, error) {
	query := `
		SELECT id, delivery_date::text, time_slot, status, delivery_notes, created_at, updated_at
		FROM delivery_schedules
		WHERE subscription_id = $1
		ORDER BY delivery_date DESC, time_slot
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	deliveries := []*domain.DeliverySchedule{}
	index := make(map[uuid.UUID]*domain.DeliverySchedule)
	for rows.Next() {
		delivery := domain.DeliverySchedule{
			SubscriptionID: subscriptionID,
			Notifications:  []domain.DeliveryNotification{},
		}
		dst := []any{
			&delivery.ID,
			&delivery.DeliveryDate,
			&delivery.TimeSlot,
			&delivery.Status,
			&delivery.DeliveryNotes,
			&delivery.CreatedAt,
			&delivery.UpdatedAt,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		deliveries = append(deliveries, &delivery)
		index[delivery.ID] = &delivery
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(deliveries) == 0 {
		return deliveries, nil
	}

	query = `
		SELECT n.id, n.delivery_id, n.type, n.content, n.sent_at
		FROM delivery_notifications n
		JOIN delivery_schedules d ON d.id = n.delivery_id
		WHERE d.subscription_id = $1
		ORDER BY n.sent_at
	`

	nrows, err := r.dbpool.QueryContext(ctx, query, subscriptionID)
	if err != nil {
		return nil, err
	}
	defer nrows.Close()

	for nrows.Next() {
		var n domain.DeliveryNotification
		if err := nrows.Scan(&n.ID, &n.DeliveryID, &n.Type, &n.Content, &n.SentAt); err != nil {
			return nil, err
		}
		if delivery, ok := index[n.DeliveryID]; ok {
			delivery.Notifications = append(delivery.Notifications, n)
		}
	}

	if err := nrows.Err(); err != nil {
		return nil, err
	}

	return deliveries, nil
}
