package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
)

func (r *Repository) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	// 通知地址取订阅所属用户的邮箱
	query := `
		SELECT s.user_id, s.status, p.email
		FROM subscriptions s
		JOIN profiles p ON p.id = s.user_id
		WHERE s.id = $1
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	sub := &domain.Subscription{
		ID: id,
	}

	dst := []any{&sub.UserID, &sub.Status, &sub.ContactEmail}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, translateError(err)
	}

	return sub, nil
}

// CreateSubscriber 在同一个事务中写入用户、订阅和配送偏好，sub 和 prefs 为 nil 时跳过对应的写入
func (r *Repository) CreateSubscriber(ctx context.Context, profile *domain.Profile, sub *domain.Subscription, prefs *domain.DeliveryPreferences) error {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO profiles (email, full_name, role)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`

	params := []any{profile.Email, profile.FullName, profile.Role}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&profile.ID, &profile.CreatedAt); err != nil {
		return err
	}

	if sub != nil {
		query = `
			INSERT INTO subscriptions (user_id, status)
			VALUES ($1, $2)
			RETURNING id
		`

		sub.UserID = profile.ID
		if err := tx.QueryRowContext(ctx, query, sub.UserID, sub.Status).Scan(&sub.ID); err != nil {
			return translateError(err)
		}
	}

	if prefs != nil {
		if err := upsertPreferences(ctx, tx, profile.ID, prefs); err != nil {
			return translateError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) ListActiveSubscriptionIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT id
		FROM subscriptions
		WHERE status = 'active'
		ORDER BY id
	`

	ctx, cancel := context.WithTimeout(ctx, time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []uuid.UUID{}
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
