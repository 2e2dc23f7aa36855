package scheduler_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler/schedulertest"
	"go.uber.org/mock/gomock"
)

// 2025-01-01 是周三
var fixedNow = time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	scheduler *scheduler.Scheduler
	store     *schedulertest.Store
	notifier  *scheduler.MockNotifier
	sub       domain.Subscription
}

func newFixture(t *testing.T, mutate func(p *scheduler.Parameters), opts ...scheduler.Option) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)
	store := schedulertest.NewStore()
	notifier := scheduler.NewMockNotifier(ctrl)

	params := scheduler.DefaultParameters()
	if mutate != nil {
		mutate(params)
	}

	opts = append([]scheduler.Option{scheduler.WithClock(func() time.Time { return fixedNow })}, opts...)
	s, err := scheduler.New(params, store, notifier, opts...)
	require.NoError(t, err)

	return &fixture{
		scheduler: s,
		store:     store,
		notifier:  notifier,
		sub:       store.AddSubscription(uuid.New(), "lihua@example.com"),
	}
}
