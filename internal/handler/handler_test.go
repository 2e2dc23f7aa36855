package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/config"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler/schedulertest"
	"go.uber.org/mock/gomock"
)

const testSecret = "test-secret"

type testEnv struct {
	handler  *Handler
	store    *schedulertest.Store
	notifier *scheduler.MockNotifier
	customer uuid.UUID
	sub      domain.Subscription
}

type testResponse struct {
	Success bool            `json:"success"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cfg := &config.Config{}
	cfg.JWT.Secret = testSecret

	ctrl := gomock.NewController(t)
	store := schedulertest.NewStore()
	notifier := scheduler.NewMockNotifier(ctrl)
	notifier.EXPECT().SendDeliveryConfirmation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	notifier.EXPECT().SendDeliveryStatusUpdate(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	now := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)
	s, err := scheduler.New(scheduler.DefaultParameters(), store, notifier, scheduler.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	h, err := NewHandler(cfg, s)
	require.NoError(t, err)
	h.RegisterRoutes()

	customer := uuid.New()
	return &testEnv{
		handler:  h,
		store:    store,
		notifier: notifier,
		customer: customer,
		sub:      store.AddSubscription(customer, "lihua@example.com"),
	}
}

func signToken(t *testing.T, userID uuid.UUID, role domain.Role) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role: string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	ss, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return ss
}

func (e *testEnv) customerToken(t *testing.T) string {
	return signToken(t, e.customer, domain.RoleCustomer)
}

func (e *testEnv) adminToken(t *testing.T) string {
	return signToken(t, uuid.New(), domain.RoleAdmin)
}

func (e *testEnv) do(t *testing.T, method, path string, body any, token string) (int, testResponse) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: TokenCookieName, Value: token})
	}

	rec := httptest.NewRecorder()
	e.handler.Mux.ServeHTTP(rec, req)

	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return rec.Code, resp
}

func (e *testEnv) schedule(t *testing.T, date, timeSlot string) (int, testResponse) {
	return e.do(t, http.MethodPost, "/deliveries/schedule", map[string]any{
		"subscriptionId": e.sub.ID.String(),
		"date":           date,
		"timeSlot":       timeSlot,
	}, e.customerToken(t))
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.do(t, http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, resp.Success)
}

func TestGetAvailableSlots(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.do(t, http.MethodGet, "/deliveries/available-slots?startDate=2025-03-10&endDate=2025-03-11", nil, "")
	require.Equal(t, http.StatusOK, status)

	var slots []domain.DeliverySlot
	require.NoError(t, json.Unmarshal(resp.Data, &slots))
	require.Len(t, slots, 6)
	assert.Equal(t, "2025-03-10-09:00-12:00", slots[0].ID)
	assert.Equal(t, "2025-03-11-17:00-20:00", slots[5].ID)

	tests := []string{
		"/deliveries/available-slots?startDate=2025-03-10",
		"/deliveries/available-slots?startDate=2025/03/10&endDate=2025-03-11",
		"/deliveries/available-slots?startDate=2025-01-01&endDate=2027-01-01",
	}
	for _, path := range tests {
		status, resp := env.do(t, http.MethodGet, path, nil, "")
		assert.Equal(t, http.StatusBadRequest, status, path)
		assert.Equal(t, CodeValidationError, resp.Code, path)
	}
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.do(t, http.MethodGet, "/deliveries/preferences", nil, "")
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, CodeUnauthorized, resp.Code)

	status, _ = env.do(t, http.MethodGet, "/deliveries/preferences", nil, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, status)

	// 使用其他密钥签发的令牌
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AuthClaims{
		Role:             string(domain.RoleAdmin),
		RegisteredClaims: jwt.RegisteredClaims{Subject: uuid.NewString()},
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)
	status, _ = env.do(t, http.MethodGet, "/deliveries/preferences", nil, forged)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestBearerToken(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodGet, "/deliveries/preferences", nil)
	req.Header.Set("Authorization", "Bearer "+env.customerToken(t))
	rec := httptest.NewRecorder()
	env.handler.Mux.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScheduleDelivery(t *testing.T) {
	env := newTestEnv(t)

	status, resp := env.schedule(t, "2025-03-10", "morning")
	require.Equal(t, http.StatusOK, status, resp.Message)

	var delivery domain.DeliverySchedule
	require.NoError(t, json.Unmarshal(resp.Data, &delivery))
	assert.Equal(t, domain.TimeWindowMorning, delivery.TimeSlot)
	assert.Equal(t, domain.DeliveryStatusScheduled, delivery.Status)
	assert.Equal(t, env.sub.ID, delivery.SubscriptionID)
}

func TestScheduleDelivery_CapacityExceeded(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 10; i++ {
		status, resp := env.schedule(t, "2025-03-10", "09:00-12:00")
		require.Equal(t, http.StatusOK, status, resp.Message)
	}

	status, resp := env.schedule(t, "2025-03-10", "09:00-12:00")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeCapacityExceeded, resp.Code)
	assert.False(t, resp.Success)
}

func TestScheduleDelivery_Errors(t *testing.T) {
	env := newTestEnv(t)
	other := env.store.AddSubscription(uuid.New(), "")

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
		wantCode   string
	}{
		{
			name:       "unknown subscription",
			body:       map[string]any{"subscriptionId": uuid.NewString(), "date": "2025-03-10", "timeSlot": "morning"},
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
		},
		{
			name:       "subscription of another user",
			body:       map[string]any{"subscriptionId": other.ID.String(), "date": "2025-03-10", "timeSlot": "morning"},
			wantStatus: http.StatusNotFound,
			wantCode:   CodeNotFound,
		},
		{
			name:       "bad time slot",
			body:       map[string]any{"subscriptionId": env.sub.ID.String(), "date": "2025-03-10", "timeSlot": "08:00-09:00"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeValidationError,
		},
		{
			name:       "bad date",
			body:       map[string]any{"subscriptionId": env.sub.ID.String(), "date": "10/03/2025", "timeSlot": "morning"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeValidationError,
		},
		{
			name:       "missing subscription",
			body:       map[string]any{"date": "2025-03-10", "timeSlot": "morning"},
			wantStatus: http.StatusBadRequest,
			wantCode:   CodeValidationError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, resp := env.do(t, http.MethodPost, "/deliveries/schedule", tt.body, env.customerToken(t))
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, resp.Code)
		})
	}
	assert.Empty(t, env.store.Deliveries())
}

func TestUpdateDeliveryStatus(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.schedule(t, "2025-03-10", "evening")
	var delivery domain.DeliverySchedule
	require.NoError(t, json.Unmarshal(resp.Data, &delivery))
	path := "/deliveries/" + delivery.ID.String() + "/status"

	status, resp := env.do(t, http.MethodPatch, path, map[string]string{"status": "out_for_delivery"}, env.customerToken(t))
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, CodeForbidden, resp.Code)

	status, resp = env.do(t, http.MethodPatch, path, map[string]string{"status": "lost"}, env.adminToken(t))
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeInvalidStatus, resp.Code)

	status, resp = env.do(t, http.MethodPatch, path, map[string]string{"status": "out_for_delivery"}, env.adminToken(t))
	require.Equal(t, http.StatusOK, status, resp.Message)

	status, resp = env.do(t, http.MethodPatch, path, map[string]string{"status": "scheduled"}, env.adminToken(t))
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, CodeInvalidTransition, resp.Code)

	status, _ = env.do(t, http.MethodPatch, "/deliveries/"+uuid.NewString()+"/status", map[string]string{"status": "delivered"}, env.adminToken(t))
	assert.Equal(t, http.StatusNotFound, status)

	assert.Len(t, env.store.Notifications(delivery.ID), 2)
}

func TestDeliveryPreferences(t *testing.T) {
	env := newTestEnv(t)
	token := env.customerToken(t)

	status, resp := env.do(t, http.MethodGet, "/deliveries/preferences", nil, token)
	require.Equal(t, http.StatusOK, status)
	var prefs domain.DeliveryPreferences
	require.NoError(t, json.Unmarshal(resp.Data, &prefs))
	assert.Empty(t, prefs.PreferredDays)

	status, resp = env.do(t, http.MethodPut, "/deliveries/preferences", map[string]any{
		"preferredDays":         []string{"Monday", "wednesday"},
		"preferredTimeSlots":    []string{"evening"},
		"deliveryNotes":         "放前台",
		"contactBeforeDelivery": true,
	}, token)
	require.Equal(t, http.StatusOK, status, resp.Message)
	require.NoError(t, json.Unmarshal(resp.Data, &prefs))
	assert.Equal(t, []string{"monday", "wednesday"}, prefs.PreferredDays)
	assert.Equal(t, []domain.TimeWindow{domain.TimeWindowEvening}, prefs.PreferredTimeSlots)
	assert.True(t, prefs.ContactBeforeDelivery)

	status, resp = env.do(t, http.MethodPut, "/deliveries/preferences", map[string]any{
		"preferredDays": []string{"someday"},
	}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidationError, resp.Code)
}

func TestRecurringDelivery(t *testing.T) {
	env := newTestEnv(t)
	token := env.customerToken(t)

	status, resp := env.do(t, http.MethodPost, "/deliveries/recurring", map[string]any{
		"subscriptionId":    env.sub.ID.String(),
		"frequency":         "monthly",
		"dayOfWeek":         []int{3},
		"preferredTimeSlot": "09:00-12:00",
	}, token)
	require.Equal(t, http.StatusOK, status, resp.Message)

	var created struct {
		Pattern domain.RecurringDeliveryPattern `json:"pattern"`
		Report  domain.ExpansionReport          `json:"report"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, 2, created.Report.Count(domain.ExpansionScheduled))
	assert.Len(t, env.store.Deliveries(), 2)

	path := "/deliveries/recurring/" + created.Pattern.ID.String()

	status, resp = env.do(t, http.MethodGet, path, nil, token)
	require.Equal(t, http.StatusOK, status)

	// 只有管理员可以重新展开
	status, _ = env.do(t, http.MethodPost, path+"/expand", nil, token)
	assert.Equal(t, http.StatusForbidden, status)

	status, resp = env.do(t, http.MethodPost, path+"/expand", nil, env.adminToken(t))
	require.Equal(t, http.StatusOK, status)
	var report domain.ExpansionReport
	require.NoError(t, json.Unmarshal(resp.Data, &report))
	assert.Equal(t, 2, report.Count(domain.ExpansionSkipped))
	assert.Len(t, env.store.Deliveries(), 2)

	status, resp = env.do(t, http.MethodPatch, path, map[string]any{"active": false}, token)
	require.Equal(t, http.StatusOK, status)
	var pattern domain.RecurringDeliveryPattern
	require.NoError(t, json.Unmarshal(resp.Data, &pattern))
	assert.False(t, pattern.Active)

	// 其他用户看不到这个周期配送
	status, _ = env.do(t, http.MethodGet, path, nil, signToken(t, uuid.New(), domain.RoleCustomer))
	assert.Equal(t, http.StatusNotFound, status)

	status, resp = env.do(t, http.MethodPost, "/deliveries/recurring", map[string]any{
		"subscriptionId":    env.sub.ID.String(),
		"frequency":         "daily",
		"dayOfWeek":         []int{1},
		"preferredTimeSlot": "morning",
	}, token)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, CodeValidationError, resp.Code)
}

func TestRecurringDelivery_StoreErrorNotExposed(t *testing.T) {
	env := newTestEnv(t)
	env.store.FailOn("InsertDelivery", errors.New(`ERROR: relation "delivery_schedules" does not exist (SQLSTATE 42P01)`))

	status, resp := env.do(t, http.MethodPost, "/deliveries/recurring", map[string]any{
		"subscriptionId":    env.sub.ID.String(),
		"frequency":         "monthly",
		"dayOfWeek":         []int{3},
		"preferredTimeSlot": "morning",
	}, env.customerToken(t))
	require.Equal(t, http.StatusOK, status, resp.Message)
	assert.NotContains(t, string(resp.Data), "SQLSTATE")
	assert.NotContains(t, string(resp.Data), "delivery_schedules")

	var created struct {
		Report domain.ExpansionReport `json:"report"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &created))
	assert.Equal(t, 2, created.Report.Count(domain.ExpansionFailed))
}

func TestGetDeliveryHistory(t *testing.T) {
	env := newTestEnv(t)

	for _, date := range []string{"2025-03-10", "2025-03-12", "2025-03-11"} {
		status, resp := env.schedule(t, date, "afternoon")
		require.Equal(t, http.StatusOK, status, resp.Message)
	}

	status, resp := env.do(t, http.MethodGet, "/deliveries/history?subscriptionId="+env.sub.ID.String(), nil, env.customerToken(t))
	require.Equal(t, http.StatusOK, status)

	var history []domain.DeliverySchedule
	require.NoError(t, json.Unmarshal(resp.Data, &history))
	require.Len(t, history, 3)
	assert.Equal(t, "2025-03-12", history[0].DeliveryDate)
	assert.Equal(t, "2025-03-10", history[2].DeliveryDate)
	assert.Len(t, history[0].Notifications, 1)

	// 管理员可以查看任意订阅
	status, _ = env.do(t, http.MethodGet, "/deliveries/history?subscriptionId="+env.sub.ID.String(), nil, env.adminToken(t))
	assert.Equal(t, http.StatusOK, status)

	status, _ = env.do(t, http.MethodGet, "/deliveries/history?subscriptionId="+env.sub.ID.String(), nil, signToken(t, uuid.New(), domain.RoleCustomer))
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.do(t, http.MethodGet, "/deliveries/history", nil, env.customerToken(t))
	assert.Equal(t, http.StatusBadRequest, status)
}
