package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrInvalidCredentials ErrCode = "INVALID_CREDENTIALS"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrPortalAccessOnly ErrCode = "PORTAL_ACCESS_ONLY"
	ErrAdminAccessOnly  ErrCode = "ADMIN_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation        ErrCode = "VALIDATION_ERROR"
	ErrInvalidID         ErrCode = "INVALID_ID"
	ErrInvalidPayload    ErrCode = "INVALID_PAYLOAD"
	ErrUnknownClass      ErrCode = "UNKNOWN_CLASS"
	ErrUnsupportedFormat ErrCode = "UNSUPPORTED_FORMAT"
	ErrInvalidSort       ErrCode = "INVALID_SORT"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"

	// ─── Exam session ──────────────────────────────────────────────────
	ErrSessionNotFound    ErrCode = "SESSION_NOT_FOUND"
	ErrInvalidTransition  ErrCode = "INVALID_TRANSITION"
	ErrAlreadySubmitted   ErrCode = "ALREADY_SUBMITTED"
	ErrQuestionIndex      ErrCode = "QUESTION_INDEX_OUT_OF_RANGE"
	ErrOptionIndex        ErrCode = "OPTION_INDEX_OUT_OF_RANGE"
	ErrSessionClosed      ErrCode = "SESSION_CLOSED"
	ErrRegistrationFailed ErrCode = "REGISTRATION_INVALID"

	// ─── Upstream ──────────────────────────────────────────────────────
	ErrBackendUnavailable    ErrCode = "BACKEND_UNAVAILABLE"
	ErrGenerationUnavailable ErrCode = "GENERATION_UNAVAILABLE"
	ErrGenerationFailed      ErrCode = "GENERATION_FAILED"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrInvalidCredentials:
		return "Invalid username or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrPortalAccessOnly:
		return "This resource is limited to exam portal sessions."
	case ErrAdminAccessOnly:
		return "This resource is limited to administrators."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."
	case ErrInvalidPayload:
		return "Invalid request payload."
	case ErrUnknownClass:
		return "Unknown class."
	case ErrUnsupportedFormat:
		return "Unsupported export format."
	case ErrInvalidSort:
		return "Unknown sort column."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."

	// ─── Exam session ──────────────────────────────────────────────────
	case ErrSessionNotFound:
		return "Exam session not found. Please start again."
	case ErrInvalidTransition:
		return "That action is not available at this stage of the exam."
	case ErrAlreadySubmitted:
		return "Your exam has already been submitted."
	case ErrQuestionIndex:
		return "Question index is out of range."
	case ErrOptionIndex:
		return "Option index is out of range."
	case ErrSessionClosed:
		return "This exam session has been closed."
	case ErrRegistrationFailed:
		return "Name and roll number are required, and class and section must be valid."

	// ─── Upstream ──────────────────────────────────────────────────────
	case ErrBackendUnavailable:
		return "The exam service is unavailable. Please try again later."
	case ErrGenerationUnavailable:
		return "AI question generation is not configured."
	case ErrGenerationFailed:
		return "Failed to generate exam questions. Please try again."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
