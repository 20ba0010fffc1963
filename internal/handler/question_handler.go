package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exam-portal/internal/model"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/validator"
)

// QuestionHandler handles per-class question authoring.
type QuestionHandler struct {
	questionService *service.QuestionService
}

// NewQuestionHandler creates a new QuestionHandler.
func NewQuestionHandler(questionService *service.QuestionService) *QuestionHandler {
	return &QuestionHandler{questionService: questionService}
}

// ListAll godoc
// GET /api/v1/admin/questions
// Lists the managed questions of every configured class.
func (h *QuestionHandler) ListAll(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{"classes": h.questionService.ListAll(c.Request.Context())})
}

// ListClass godoc
// GET /api/v1/admin/questions/:class
func (h *QuestionHandler) ListClass(c *gin.Context) {
	cq, err := h.questionService.ListClass(c.Request.Context(), c.Param("class"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cq)
}

// AddQuestion godoc
// POST /api/v1/admin/questions/:class
func (h *QuestionHandler) AddQuestion(c *gin.Context) {
	var req model.QuestionDraft
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cq, err := h.questionService.Add(c.Request.Context(), c.Param("class"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, cq)
}

// UpdateQuestion godoc
// PUT /api/v1/admin/questions/:class/:id
func (h *QuestionHandler) UpdateQuestion(c *gin.Context) {
	var req model.QuestionDraft
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	cq, err := h.questionService.Update(c.Request.Context(), c.Param("class"), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cq)
}

// DeleteQuestion godoc
// DELETE /api/v1/admin/questions/:class/:id
func (h *QuestionHandler) DeleteQuestion(c *gin.Context) {
	cq, err := h.questionService.Delete(c.Request.Context(), c.Param("class"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cq)
}

// GenerateQuestions godoc
// POST /api/v1/admin/questions/:class/generate
// Queues an AI generation job. Poll the job for its outcome.
func (h *QuestionHandler) GenerateQuestions(c *gin.Context) {
	var req model.GenerateQuestionsRequest
	if c.Request.ContentLength != 0 {
		if fields := validator.Bind(c, &req); fields != nil {
			response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
			return
		}
	}

	job, err := h.questionService.EnqueueGeneration(c.Request.Context(), c.Param("class"), req.Count)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, job)
}

// GetGenerationJob godoc
// GET /api/v1/admin/generation-jobs/:id
func (h *QuestionHandler) GetGenerationJob(c *gin.Context) {
	job, err := h.questionService.GenerationJob(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, http.StatusOK, job)
}
