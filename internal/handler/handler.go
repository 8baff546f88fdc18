package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/config"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/repository"
)

type Handler struct {
	validate      *validator.Validate
	config        *config.Config
	repository    *repository.Repository
	translator    ut.Translator
	notifyChannel *amqp.Channel
	redisClient   *redis.Client

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, notifyCh *amqp.Channel, rdb *redis.Client) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:      validate,
		config:        cfg,
		repository:    repo,
		translator:    trans,
		notifyChannel: notifyCh,
		redisClient:   rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	h.Mux.Use(h.measure)

	// 排班运行
	h.Mux.Route("/schedule-runs", func(r chi.Router) {
		r.Post("/", h.CreateScheduleRun)
		r.Get("/", h.GetAllScheduleRuns)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.scheduleRun)
			r.Get("/", h.GetScheduleRun)
			r.Get("/progress", h.GetScheduleRunProgress)
			r.Get("/result", h.GetScheduleRunResult)
			r.Delete("/", h.DeleteScheduleRun)
		})
	})

	// 人力需求模板
	h.Mux.Route("/coverage-templates", func(r chi.Router) {
		r.Post("/", h.CreateCoverageTemplate)
		r.Get("/", h.GetAllCoverageTemplates)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.coverageTemplate)
			r.Get("/", h.GetCoverageTemplate)
			r.Get("/expand", h.ExpandCoverageTemplate)
			r.Patch("/", h.UpdateCoverageTemplate)
			r.Delete("/", h.DeleteCoverageTemplate)
		})
	})

	// 员工名单只读，维护入口在导入和种子数据
	h.Mux.Route("/employees", func(r chi.Router) {
		r.Get("/", h.GetAllEmployees)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(h.employee)
			r.Get("/", h.GetEmployee)
		})
	})

	h.Mux.Get("/teams", h.GetAllTeams)

	h.Mux.Handle("/metrics", metrics.Handler())
}
