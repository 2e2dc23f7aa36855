package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/config"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/domain"
	"github.com/sysu-ecnc-dev/mealbox/backend/internal/scheduler"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	scheduler  *scheduler.Scheduler
	translator ut.Translator

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, s *scheduler.Scheduler) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		scheduler:  s,
		translator: trans,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	h.Mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		h.successResponse(w, r, "ok", nil)
	})
	h.Mux.Handle("/metrics", promhttp.Handler())

	h.Mux.Route("/deliveries", func(r chi.Router) {
		// 查询时段不需要登录
		r.Get("/available-slots", h.GetAvailableSlots)

		// 以下 API 必须要在登录后才允许调用
		r.Group(func(r chi.Router) {
			r.Use(h.auth)
			r.Post("/schedule", h.ScheduleDelivery)
			r.Get("/history", h.GetDeliveryHistory)

			r.Route("/preferences", func(r chi.Router) {
				r.Get("/", h.GetDeliveryPreferences)
				r.Put("/", h.UpdateDeliveryPreferences)
			})

			r.Route("/recurring", func(r chi.Router) {
				r.Post("/", h.SetupRecurringDelivery)
				r.Route("/{id}", func(r chi.Router) {
					r.Use(h.recurringPattern)
					r.Get("/", h.GetRecurringDelivery)
					r.Patch("/", h.UpdateRecurringDelivery)
					r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/expand", h.ExpandRecurringDelivery)
				})
			})

			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Patch("/{id}/status", h.UpdateDeliveryStatus)
		})
	})
}
