package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/exam-portal/internal/middleware"
	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/session"
	"github.com/stemsi/exam-portal/internal/validator"
)

// PortalHandler exposes the exam session state machine to the browser.
type PortalHandler struct {
	portalService *service.PortalService
	log           zerolog.Logger
}

// NewPortalHandler creates a new PortalHandler.
func NewPortalHandler(portalService *service.PortalService, log zerolog.Logger) *PortalHandler {
	return &PortalHandler{
		portalService: portalService,
		log:           log.With().Str("component", "portal_handler").Logger(),
	}
}

// controller resolves the session bound to the caller's portal token.
func (h *PortalHandler) controller(c *gin.Context) (*session.Controller, bool) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return nil, false
	}
	ctrl, err := h.portalService.Resolve(claims.SessionID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ctrl, true
}

// CreateSession godoc
// POST /api/v1/portal/sessions
// Opens a new exam session in the registration stage and returns its token.
func (h *PortalHandler) CreateSession(c *gin.Context) {
	ps, err := h.portalService.Open()
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, ps)
}

// GetSession godoc
// GET /api/v1/portal/session
func (h *PortalHandler) GetSession(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// Register godoc
// POST /api/v1/portal/session/register
// Validates the form and starts loading. The session moves to INSTRUCTIONS
// or FAILED asynchronously, so the response is 202.
func (h *PortalHandler) Register(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.StudentRegistration
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.Register(req); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, ctrl.Snapshot())
}

// Start godoc
// POST /api/v1/portal/session/start
func (h *PortalHandler) Start(c *gin.Context) {
	h.act(c, http.StatusOK, (*session.Controller).Start)
}

// Submit godoc
// POST /api/v1/portal/session/submit
// Begins scoring. The session reaches COMPLETE or FAILED asynchronously.
func (h *PortalHandler) Submit(c *gin.Context) {
	h.act(c, http.StatusAccepted, (*session.Controller).Submit)
}

// Reset godoc
// POST /api/v1/portal/session/reset
// Returns a failed or completed session to the registration stage.
func (h *PortalHandler) Reset(c *gin.Context) {
	h.act(c, http.StatusOK, (*session.Controller).Reset)
}

func (h *PortalHandler) act(c *gin.Context, status int, op func(*session.Controller) error) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	if err := op(ctrl); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, status, ctrl.Snapshot())
}

// SelectOption godoc
// PUT /api/v1/portal/session/answers/:index
func (h *PortalHandler) SelectOption(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Fail(c, http.StatusBadRequest, response.ErrQuestionIndex)
		return
	}

	var req model.SelectOptionRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if err := ctrl.SelectOption(index, *req.Option); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// Navigate godoc
// POST /api/v1/portal/session/navigate
// Out-of-range targets are clamped to the first or last question.
func (h *PortalHandler) Navigate(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}

	var req model.NavigateRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	if _, err := ctrl.Navigate(*req.Index); err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ctrl.Snapshot())
}

// CloseSession godoc
// DELETE /api/v1/portal/session
// Abandons the session. Any in-flight call or running countdown is cancelled.
func (h *PortalHandler) CloseSession(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}
	if err := h.portalService.Close(claims.SessionID); err != nil {
		respondError(c, err)
		return
	}
	h.log.Debug().Str("session_id", claims.SessionID).Msg("Portal session closed by client")
	response.Success(c, http.StatusOK, gin.H{})
}
