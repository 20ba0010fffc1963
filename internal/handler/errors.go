package handler

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/stemsi/exam-portal/internal/backend"
	"github.com/stemsi/exam-portal/internal/generator"
	"github.com/stemsi/exam-portal/internal/repository"
	"github.com/stemsi/exam-portal/internal/response"
	"github.com/stemsi/exam-portal/internal/service"
	"github.com/stemsi/exam-portal/internal/session"
)

// apiFailure is the HTTP rendering of a domain error. An empty message
// means the code's default text.
type apiFailure struct {
	status  int
	code    response.ErrCode
	message string
}

func classify(err error) apiFailure {
	var apiErr *backend.APIError
	var urlErr *url.Error

	switch {
	// ─── Session ───────────────────────────────────────────────────────
	case errors.Is(err, session.ErrSessionNotFound):
		return apiFailure{http.StatusNotFound, response.ErrSessionNotFound, ""}
	case errors.Is(err, session.ErrAlreadySubmitted):
		return apiFailure{http.StatusConflict, response.ErrAlreadySubmitted, ""}
	case errors.Is(err, session.ErrInvalidTransition):
		return apiFailure{http.StatusConflict, response.ErrInvalidTransition, ""}
	case errors.Is(err, session.ErrIndexOutOfRange):
		return apiFailure{http.StatusBadRequest, response.ErrQuestionIndex, ""}
	case errors.Is(err, session.ErrInvalidOption):
		return apiFailure{http.StatusBadRequest, response.ErrOptionIndex, ""}
	case errors.Is(err, session.ErrInvalidRegistration):
		return apiFailure{http.StatusBadRequest, response.ErrRegistrationFailed, err.Error()}
	case errors.Is(err, session.ErrSessionClosed):
		return apiFailure{http.StatusGone, response.ErrSessionClosed, ""}

	// ─── Payload ───────────────────────────────────────────────────────
	case errors.Is(err, errMissingIndex), errors.Is(err, errUnknownAction):
		return apiFailure{http.StatusBadRequest, response.ErrInvalidPayload, err.Error()}

	// ─── Admin tooling ─────────────────────────────────────────────────
	case errors.Is(err, service.ErrUnknownClass):
		return apiFailure{http.StatusNotFound, response.ErrUnknownClass, ""}
	case errors.Is(err, service.ErrQuestionNotFound), errors.Is(err, repository.ErrJobNotFound):
		return apiFailure{http.StatusNotFound, response.ErrNotFound, ""}
	case errors.Is(err, service.ErrInvalidQuestion):
		return apiFailure{http.StatusBadRequest, response.ErrValidation, err.Error()}
	case errors.Is(err, service.ErrInvalidSort):
		return apiFailure{http.StatusBadRequest, response.ErrInvalidSort, ""}
	case errors.Is(err, service.ErrGenerationUnavailable), errors.Is(err, generator.ErrNotConfigured):
		return apiFailure{http.StatusServiceUnavailable, response.ErrGenerationUnavailable, ""}
	case errors.Is(err, generator.ErrGenerationFailed):
		return apiFailure{http.StatusBadGateway, response.ErrGenerationFailed, generator.ErrGenerationFailed.Error()}

	// ─── Upstream ──────────────────────────────────────────────────────
	case errors.As(err, &apiErr):
		return apiFailure{http.StatusBadGateway, response.ErrBackendUnavailable, apiErr.Error()}
	case errors.As(err, &urlErr), errors.Is(err, context.DeadlineExceeded):
		return apiFailure{http.StatusBadGateway, response.ErrBackendUnavailable, ""}
	}
	return apiFailure{http.StatusInternalServerError, response.ErrInternal, ""}
}

// respondError writes err as an envelope failure. Unclassified errors are
// attached to the context for the access log.
func respondError(c *gin.Context, err error) {
	f := classify(err)
	if f.status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	if f.message == "" {
		response.Fail(c, f.status, f.code)
		return
	}
	response.FailWithMessage(c, f.status, f.code, f.message)
}

// errorMessage is the text shown for err outside the HTTP envelope.
func errorMessage(f apiFailure) string {
	if f.message != "" {
		return f.message
	}
	return response.GetMessage(f.code)
}
