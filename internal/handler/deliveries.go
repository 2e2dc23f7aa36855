package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/utils"
)

// 查询可用时段时允许的最大天数
const maxSlotRangeDays = 366

func (h *Handler) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	req := struct {
		StartDate string `validate:"required,datetime=2006-01-02"`
		EndDate   string `validate:"required,datetime=2006-01-02"`
	}{
		StartDate: r.URL.Query().Get("startDate"),
		EndDate:   r.URL.Query().Get("endDate"),
	}

	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateDateRange(req.StartDate, req.EndDate, maxSlotRangeDays); err != nil {
		h.badRequest(w, r, err)
		return
	}

	slots, err := h.scheduler.GetAvailableSlots(r.Context(), req.StartDate, req.EndDate)
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取可用时段成功", slots)
}

func (h *Handler) ScheduleDelivery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubscriptionID string `json:"subscriptionId" validate:"required,uuid"`
		Date           string `json:"date" validate:"required,datetime=2006-01-02"`
		TimeSlot       string `json:"timeSlot" validate:"required"`
		Notes          string `json:"notes"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	timeSlot, err := domain.ParseTimeWindow(req.TimeSlot)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	sub, err := h.ownedSubscription(r, uuid.MustParse(req.SubscriptionID))
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	delivery, err := h.scheduler.Schedule(r.Context(), sub.ID, req.Date, timeSlot, req.Notes)
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	msg := "预约配送成功"
	if delivery.NotificationWarning != "" {
		msg = "预约配送成功，但确认通知发送失败"
	}
	h.successResponse(w, r, msg, delivery)
}

func (h *Handler) GetDeliveryHistory(w http.ResponseWriter, r *http.Request) {
	req := struct {
		SubscriptionID string `validate:"required,uuid"`
	}{
		SubscriptionID: r.URL.Query().Get("subscriptionId"),
	}

	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	sub, err := h.ownedSubscription(r, uuid.MustParse(req.SubscriptionID))
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	history, err := h.scheduler.History(r.Context(), sub.ID)
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取配送历史成功", history)
}

func (h *Handler) UpdateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
	deliveryID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.badRequest(w, r, fmt.Errorf("%w: 配送ID无效", domain.ErrValidation))
		return
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	delivery, err := h.scheduler.Transition(r.Context(), deliveryID, req.Status)
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	msg := "更新配送状态成功"
	if delivery.NotificationWarning != "" {
		msg = "更新配送状态成功，但状态通知发送失败"
	}
	h.successResponse(w, r, msg, delivery)
}

func (h *Handler) GetDeliveryPreferences(w http.ResponseWriter, r *http.Request) {
	identity := r.Context().Value(IdentityCtx).(domain.Identity)

	prefs, err := h.scheduler.GetPreferences(r.Context(), identity.UserID)
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取配送偏好成功", prefs)
}

func (h *Handler) UpdateDeliveryPreferences(w http.ResponseWriter, r *http.Request) {
	identity := r.Context().Value(IdentityCtx).(domain.Identity)

	// 整体覆盖，缺省的字段会被清空
	var req struct {
		PreferredDays         []string `json:"preferredDays" validate:"dive,required"`
		PreferredTimeSlots    []string `json:"preferredTimeSlots" validate:"dive,required"`
		DeliveryNotes         string   `json:"deliveryNotes"`
		ContactBeforeDelivery bool     `json:"contactBeforeDelivery"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	prefs := &domain.DeliveryPreferences{
		PreferredDays:         req.PreferredDays,
		PreferredTimeSlots:    make([]domain.TimeWindow, 0, len(req.PreferredTimeSlots)),
		DeliveryNotes:         req.DeliveryNotes,
		ContactBeforeDelivery: req.ContactBeforeDelivery,
	}
	for _, slot := range req.PreferredTimeSlots {
		prefs.PreferredTimeSlots = append(prefs.PreferredTimeSlots, domain.TimeWindow(slot))
	}

	if err := h.scheduler.UpdatePreferences(r.Context(), identity.UserID, prefs); err != nil {
		h.schedulingError(w, r, err)
		return
	}

	// 返回规范化之后的偏好
	saved, err := h.scheduler.GetPreferences(r.Context(), identity.UserID)
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新配送偏好成功", saved)
}

func (h *Handler) SetupRecurringDelivery(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SubscriptionID    string `json:"subscriptionId" validate:"required,uuid"`
		Frequency         string `json:"frequency" validate:"required,oneof=weekly biweekly monthly"`
		DayOfWeek         []int  `json:"dayOfWeek" validate:"dive,min=0,max=6"`
		PreferredTimeSlot string `json:"preferredTimeSlot"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	sub, err := h.ownedSubscription(r, uuid.MustParse(req.SubscriptionID))
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	pattern, report, err := h.scheduler.SetupRecurring(r.Context(), sub.ID, scheduler.PatternInput{
		Frequency:         req.Frequency,
		DaysOfWeek:        req.DayOfWeek,
		PreferredTimeSlot: req.PreferredTimeSlot,
	})
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	msg := "创建周期配送成功"
	if report.Warning != "" {
		msg = "创建周期配送成功，但生成配送失败，请稍后重新生成"
	}
	h.successResponse(w, r, msg, struct {
		Pattern *domain.RecurringDeliveryPattern `json:"pattern"`
		Report  *domain.ExpansionReport          `json:"report"`
	}{
		Pattern: pattern,
		Report:  report,
	})
}

func (h *Handler) GetRecurringDelivery(w http.ResponseWriter, r *http.Request) {
	pattern := r.Context().Value(RecurringPatternCtx).(*domain.RecurringDeliveryPattern)

	h.successResponse(w, r, "获取周期配送成功", pattern)
}

func (h *Handler) UpdateRecurringDelivery(w http.ResponseWriter, r *http.Request) {
	pattern := r.Context().Value(RecurringPatternCtx).(*domain.RecurringDeliveryPattern)

	var req struct {
		Active *bool `json:"active" validate:"required"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	updated, err := h.scheduler.SetRecurringActive(r.Context(), pattern.ID, *req.Active)
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新周期配送成功", updated)
}

func (h *Handler) ExpandRecurringDelivery(w http.ResponseWriter, r *http.Request) {
	pattern := r.Context().Value(RecurringPatternCtx).(*domain.RecurringDeliveryPattern)

	report, err := h.scheduler.Expand(r.Context(), pattern.ID)
	if err != nil {
		h.schedulingError(w, r, err)
		return
	}

	h.successResponse(w, r, "展开周期配送成功", report)
}
