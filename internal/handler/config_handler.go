package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exam-portal/internal/config"
	"github.com/stemsi/exam-portal/internal/response"
)

// ConfigHandler publishes the exam configuration the registration form needs.
type ConfigHandler struct {
	exam config.ExamConfig
}

// NewConfigHandler creates a new ConfigHandler.
func NewConfigHandler(exam config.ExamConfig) *ConfigHandler {
	return &ConfigHandler{exam: exam.Clone()}
}

// GetExamConfig godoc
// GET /api/v1/public/exam-config
func (h *ConfigHandler) GetExamConfig(c *gin.Context) {
	response.Success(c, http.StatusOK, h.exam)
}
