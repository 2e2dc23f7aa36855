package seed

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler/schedulertest"
	"go.uber.org/mock/gomock"
)

type subscriber struct {
	profile *domain.Profile
	sub     *domain.Subscription
	prefs   *domain.DeliveryPreferences
}

// 和数据库事务一样，失败时不保存任何数据
type fakeSubscriberStore struct {
	subscribers []subscriber
	failEmail   string
}

func (s *fakeSubscriberStore) CreateSubscriber(ctx context.Context, profile *domain.Profile, sub *domain.Subscription, prefs *domain.DeliveryPreferences) error {
	if profile.Email == s.failEmail {
		return errors.New(`duplicate key value violates unique constraint "profiles_email_key"`)
	}
	profile.ID = uuid.New()
	if sub != nil {
		sub.ID = uuid.New()
		sub.UserID = profile.ID
	}
	s.subscribers = append(s.subscribers, subscriber{profile: profile, sub: sub, prefs: prefs})
	return nil
}

func newNormalizer(t *testing.T) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New(nil, schedulertest.NewStore(), scheduler.NewMockNotifier(gomock.NewController(t)))
	require.NoError(t, err)
	return s
}

func TestImportSubscribers(t *testing.T) {
	csv := strings.Join([]string{
		"姓名,邮箱,角色,偏好星期,偏好时段,备注",
		"王芳,wangfang@example.com,customer,Monday、thursday,morning,放在门口",
		"李强,,customer,friday,evening,",
		"张敏,zhangmin@example.com,customer,funday,morning,",
		"赵磊,zhaolei@example.com,customer,friday,evening,",
		"陈静,chenjing@example.com,admin,,,",
	}, "\n")

	store := &fakeSubscriberStore{failEmail: "zhaolei@example.com"}

	imported, err := ImportSubscribers(context.Background(), strings.NewReader(csv), store, newNormalizer(t))
	require.NoError(t, err)

	// 缺少邮箱、偏好无效和写入失败的行都不会留下任何数据
	assert.Equal(t, 2, imported)
	require.Len(t, store.subscribers, 2)

	first := store.subscribers[0]
	assert.Equal(t, "wangfang@example.com", first.profile.Email)
	require.NotNil(t, first.sub)
	assert.Equal(t, first.profile.ID, first.sub.UserID)
	assert.Equal(t, "active", first.sub.Status)
	require.NotNil(t, first.prefs)
	assert.Equal(t, []string{"monday", "thursday"}, first.prefs.PreferredDays)
	assert.Equal(t, []domain.TimeWindow{domain.TimeWindowMorning}, first.prefs.PreferredTimeSlots)
	assert.Equal(t, "放在门口", first.prefs.DeliveryNotes)

	admin := store.subscribers[1]
	assert.Equal(t, domain.RoleAdmin, admin.profile.Role)
	assert.Nil(t, admin.sub)
	assert.Nil(t, admin.prefs)
}

func TestImportSubscribers_InvalidPreferencesWriteNothing(t *testing.T) {
	csv := "姓名,邮箱,角色,偏好星期,偏好时段,备注\n张敏,zhangmin@example.com,customer,monday,night,\n"
	store := &fakeSubscriberStore{}

	imported, err := ImportSubscribers(context.Background(), strings.NewReader(csv), store, newNormalizer(t))
	require.NoError(t, err)
	assert.Zero(t, imported)
	assert.Empty(t, store.subscribers)
}

func TestImportSubscribers_MissingHeader(t *testing.T) {
	_, err := ImportSubscribers(context.Background(), strings.NewReader("姓名,邮箱\n王芳,a@example.com\n"), &fakeSubscriberStore{}, newNormalizer(t))
	assert.Error(t, err)
}
