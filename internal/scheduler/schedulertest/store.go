// Package schedulertest 提供 scheduler.Store 的内存实现，供测试使用
package schedulertest

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
)

var _ scheduler.Store = (*Store)(nil)

// Store 用一把互斥锁模拟数据库事务，容量检查和写入在同一把锁内完成
type Store struct {
	mu            sync.Mutex
	subscriptions map[uuid.UUID]domain.Subscription
	deliveries    map[uuid.UUID]*domain.DeliverySchedule
	notifications []domain.DeliveryNotification
	patterns      map[uuid.UUID]*domain.RecurringDeliveryPattern
	preferences   map[uuid.UUID]domain.DeliveryPreferences
	errs          map[string]error
}

func NewStore() *Store {
	return &Store{
		subscriptions: make(map[uuid.UUID]domain.Subscription),
		deliveries:    make(map[uuid.UUID]*domain.DeliverySchedule),
		patterns:      make(map[uuid.UUID]*domain.RecurringDeliveryPattern),
		preferences:   make(map[uuid.UUID]domain.DeliveryPreferences),
		errs:          make(map[string]error),
	}
}

// AddSubscription 插入一个订阅并返回它
func (s *Store) AddSubscription(userID uuid.UUID, email string) domain.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub := domain.Subscription{
		ID:           uuid.New(),
		UserID:       userID,
		Status:       "active",
		ContactEmail: email,
	}
	s.subscriptions[sub.ID] = sub
	return sub
}

// FailOn 令指定的方法返回 err，err 为 nil 时恢复正常
func (s *Store) FailOn(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[method] = err
}

// Deliveries 返回当前所有配送的副本
func (s *Store) Deliveries() []domain.DeliverySchedule {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.DeliverySchedule, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		out = append(out, *d)
	}
	slices.SortFunc(out, func(a, b domain.DeliverySchedule) int {
		return cmp.Or(cmp.Compare(a.DeliveryDate, b.DeliveryDate), cmp.Compare(a.TimeSlot, b.TimeSlot))
	})
	return out
}

// Notifications 返回某个配送的所有通知
func (s *Store) Notifications(deliveryID uuid.UUID) []domain.DeliveryNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.notificationsOf(deliveryID)
}

func (s *Store) notificationsOf(deliveryID uuid.UUID) []domain.DeliveryNotification {
	out := make([]domain.DeliveryNotification, 0)
	for _, n := range s.notifications {
		if n.DeliveryID == deliveryID {
			out = append(out, n)
		}
	}
	return out
}

func (s *Store) GetSubscription(ctx context.Context, id uuid.UUID) (*domain.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs["GetSubscription"]; err != nil {
		return nil, err
	}
	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &sub, nil
}

func (s *Store) CountBookings(ctx context.Context, startDate, endDate string) (map[domain.SlotKey]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs["CountBookings"]; err != nil {
		return nil, err
	}
	counts := make(map[domain.SlotKey]int)
	for _, d := range s.deliveries {
		if d.DeliveryDate >= startDate && d.DeliveryDate <= endDate {
			counts[d.Slot()]++
		}
	}
	return counts, nil
}

func (s *Store) InsertDelivery(ctx context.Context, delivery *domain.DeliverySchedule, notification *domain.DeliveryNotification, opts scheduler.InsertOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs["InsertDelivery"]; err != nil {
		return err
	}
	if _, ok := s.subscriptions[delivery.SubscriptionID]; !ok {
		return domain.ErrNotFound
	}

	booked := 0
	for _, d := range s.deliveries {
		if d.Slot() != delivery.Slot() {
			continue
		}
		if opts.UniquePerSubscription && d.SubscriptionID == delivery.SubscriptionID {
			return domain.ErrAlreadyScheduled
		}
		booked++
	}
	if booked >= opts.Capacity {
		return domain.ErrCapacityExceeded
	}

	now := time.Now()
	delivery.ID = uuid.New()
	delivery.CreatedAt = now
	delivery.UpdatedAt = now
	stored := *delivery
	stored.Notifications = nil
	s.deliveries[delivery.ID] = &stored

	notification.ID = uuid.New()
	notification.DeliveryID = delivery.ID
	notification.SentAt = now
	s.notifications = append(s.notifications, *notification)

	return nil
}

func (s *Store) DeliveryExists(ctx context.Context, subscriptionID uuid.UUID, slot domain.SlotKey) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs["DeliveryExists"]; err != nil {
		return false, err
	}
	for _, d := range s.deliveries {
		if d.SubscriptionID == subscriptionID && d.Slot() == slot {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetDelivery(ctx context.Context, id uuid.UUID) (*domain.DeliverySchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *d
	return &out, nil
}

func (s *Store) UpdateDeliveryStatus(ctx context.Context, delivery *domain.DeliverySchedule, from domain.DeliveryStatus, notification *domain.DeliveryNotification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.errs["UpdateDeliveryStatus"]; err != nil {
		return err
	}
	stored, ok := s.deliveries[delivery.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != from {
		return domain.ErrInvalidTransition
	}

	now := time.Now()
	stored.Status = delivery.Status
	stored.UpdatedAt = now
	delivery.UpdatedAt = now

	notification.ID = uuid.New()
	notification.DeliveryID = delivery.ID
	notification.SentAt = now
	s.notifications = append(s.notifications, *notification)

	return nil
}

func (s *Store) ListDeliveriesBySubscription(ctx context.Context, subscriptionID uuid.UUID) ([]*domain.DeliverySchedule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.DeliverySchedule, 0)
	for _, d := range s.deliveries {
		if d.SubscriptionID != subscriptionID {
			continue
		}
		delivery := *d
		delivery.Notifications = s.notificationsOf(d.ID)
		out = append(out, &delivery)
	}
	slices.SortFunc(out, func(a, b *domain.DeliverySchedule) int {
		return cmp.Or(cmp.Compare(b.DeliveryDate, a.DeliveryDate), cmp.Compare(a.TimeSlot, b.TimeSlot))
	})
	return out, nil
}

func (s *Store) CreateRecurringDelivery(ctx context.Context, pattern *domain.RecurringDeliveryPattern) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[pattern.SubscriptionID]; !ok {
		return domain.ErrNotFound
	}
	pattern.ID = uuid.New()
	pattern.CreatedAt = time.Now()
	stored := *pattern
	stored.DaysOfWeek = slices.Clone(pattern.DaysOfWeek)
	s.patterns[pattern.ID] = &stored
	return nil
}

func (s *Store) GetRecurringDelivery(ctx context.Context, id uuid.UUID) (*domain.RecurringDeliveryPattern, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := *p
	out.DaysOfWeek = slices.Clone(p.DaysOfWeek)
	return &out, nil
}

func (s *Store) SetRecurringDeliveryActive(ctx context.Context, id uuid.UUID, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.patterns[id]
	if !ok {
		return domain.ErrNotFound
	}
	p.Active = active
	return nil
}

func (s *Store) GetDeliveryPreferences(ctx context.Context, userID uuid.UUID) (*domain.DeliveryPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.preferences[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &p, nil
}

func (s *Store) UpsertDeliveryPreferences(ctx context.Context, userID uuid.UUID, prefs *domain.DeliveryPreferences) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	stored := *prefs
	stored.PreferredDays = slices.Clone(prefs.PreferredDays)
	stored.PreferredTimeSlots = slices.Clone(prefs.PreferredTimeSlots)
	stored.UpdatedAt = &now
	s.preferences[userID] = stored
	prefs.UpdatedAt = &now
	return nil
}
