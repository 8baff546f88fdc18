package handler

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

type coverageTemplateRuleReq struct {
	ShiftType    string `json:"shiftType" validate:"required,oneof=day evening night"`
	WeekdayCount int32  `json:"weekdayCount" validate:"gte=0"`
	WeekendCount int32  `json:"weekendCount" validate:"gte=0"`
	MinLevel     int32  `json:"minLevel" validate:"gte=1,lte=5"`
}

func (h *Handler) GetAllCoverageTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.repository.GetAllCoverageTemplates()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取所有需求模板成功", templates)
}

func (h *Handler) CreateCoverageTemplate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name        string                    `json:"name" validate:"required"`
		Description string                    `json:"description"`
		Rules       []coverageTemplateRuleReq `json:"rules" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	template := &domain.CoverageTemplate{
		Name:        req.Name,
		Description: req.Description,
		Rules:       make([]domain.CoverageTemplateRule, 0, len(req.Rules)),
	}

	for _, rule := range req.Rules {
		template.Rules = append(template.Rules, domain.CoverageTemplateRule{
			ShiftType:    domain.ShiftType(rule.ShiftType),
			WeekdayCount: rule.WeekdayCount,
			WeekendCount: rule.WeekendCount,
			MinLevel:     domain.Level(rule.MinLevel),
		})
	}

	if err := h.repository.CreateCoverageTemplate(template); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "coverage_templates_name_key":
				h.errorResponse(w, r, "模板名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建模板成功", template)
}

func (h *Handler) GetCoverageTemplate(w http.ResponseWriter, r *http.Request) {
	template := r.Context().Value(CoverageTemplateCtx).(*domain.CoverageTemplate)

	h.successResponse(w, r, "获取模板成功", template)
}

func (h *Handler) UpdateCoverageTemplate(w http.ResponseWriter, r *http.Request) {
	template := r.Context().Value(CoverageTemplateCtx).(*domain.CoverageTemplate)

	var req struct {
		Name        *string                   `json:"name"`
		Description *string                   `json:"description"`
		Rules       []coverageTemplateRuleReq `json:"rules" validate:"omitempty,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if req.Name != nil {
		template.Name = *req.Name
	}
	if req.Description != nil {
		template.Description = *req.Description
	}
	if req.Rules != nil {
		template.Rules = make([]domain.CoverageTemplateRule, 0, len(req.Rules))
		for _, rule := range req.Rules {
			template.Rules = append(template.Rules, domain.CoverageTemplateRule{
				ShiftType:    domain.ShiftType(rule.ShiftType),
				WeekdayCount: rule.WeekdayCount,
				WeekendCount: rule.WeekendCount,
				MinLevel:     domain.Level(rule.MinLevel),
			})
		}
	}

	if err := h.repository.UpdateCoverageTemplate(template); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "coverage_templates_name_key":
				h.errorResponse(w, r, "模板名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新模板成功", template)
}

func (h *Handler) DeleteCoverageTemplate(w http.ResponseWriter, r *http.Request) {
	template := r.Context().Value(CoverageTemplateCtx).(*domain.CoverageTemplate)

	if err := h.repository.DeleteCoverageTemplate(template.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除模板成功", nil)
}

// ExpandCoverageTemplate 按给定日期范围预览模板展开后的逐日需求，便于创建运行前核对
func (h *Handler) ExpandCoverageTemplate(w http.ResponseWriter, r *http.Request) {
	template := r.Context().Value(CoverageTemplateCtx).(*domain.CoverageTemplate)

	startDate, err := domain.ParseDate(r.URL.Query().Get("startDate"))
	if err != nil {
		h.errorResponse(w, r, "开始日期无效")
		return
	}
	endDate, err := domain.ParseDate(r.URL.Query().Get("endDate"))
	if err != nil {
		h.errorResponse(w, r, "结束日期无效")
		return
	}

	dateRange := domain.DateRange{StartDate: startDate, EndDate: endDate}
	if dateRange.Days() == 0 {
		h.errorResponse(w, r, "结束日期不能早于开始日期")
		return
	}

	h.successResponse(w, r, "展开模板成功", template.Expand(dateRange))
}
