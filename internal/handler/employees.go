package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/shift-optimizer/backend/internal/domain"
)

func (h *Handler) GetAllEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.repository.GetAllEmployees()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取员工列表成功", employees)
}

func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp := r.Context().Value(EmployeeCtx).(*domain.Employee)
	h.successResponse(w, r, "获取员工信息成功", emp)
}

func (h *Handler) GetAllTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := h.repository.GetAllTeams()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班组列表成功", teams)
}
