package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/validator"
)

// RosterHandler serves the registered-students listing.
type RosterHandler struct {
	rosterService *service.RosterService
}

// NewRosterHandler creates a new RosterHandler.
func NewRosterHandler(rosterService *service.RosterService) *RosterHandler {
	return &RosterHandler{rosterService: rosterService}
}

// ListStudents godoc
// GET /api/v1/admin/students?search=&class=&section=&sort_by=&sort_dir=&page=&per_page=
func (h *RosterHandler) ListStudents(c *gin.Context) {
	var q model.ListQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	page, err := h.rosterService.List(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	response.SuccessWithPagination(c, http.StatusOK, gin.H{"students": page.Items}, pagination(page))
}

// pagination renders a Page; an unpaged listing reports a single page.
func pagination[T any](p service.Page[T]) *response.Pagination {
	if p.PerPage == 0 {
		return response.NewPagination(1, p.Total, p.Total)
	}
	return response.NewPagination(p.Page, p.PerPage, p.Total)
}
