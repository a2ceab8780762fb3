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
	ErrForbidden         ErrCode = "FORBIDDEN"
	ErrTeacherAccessOnly ErrCode = "TEACHER_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation ErrCode = "VALIDATION_ERROR"
	ErrInvalidID  ErrCode = "INVALID_ID"

	// ─── Resources ─────────────────────────────────────────────────────
	ErrNotFound ErrCode = "NOT_FOUND"
	ErrConflict ErrCode = "CONFLICT"

	// ─── Exam mode ─────────────────────────────────────────────────────
	ErrExamEntryRejected        ErrCode = "EXAM_ENTRY_REJECTED"
	ErrExamContentNotConfigured ErrCode = "EXAM_CONTENT_NOT_CONFIGURED"
	ErrExamAttemptInProgress    ErrCode = "EXAM_ATTEMPT_IN_PROGRESS"
	ErrExamSessionNotFound      ErrCode = "EXAM_SESSION_NOT_FOUND"
	ErrDuplicateExamSession     ErrCode = "DUPLICATE_EXAM_SESSION"
	ErrExamModuleNotInCourse    ErrCode = "EXAM_MODULE_NOT_IN_COURSE"
	ErrCourseNotFound           ErrCode = "COURSE_NOT_FOUND"
	ErrCourseModuleNotFound     ErrCode = "COURSE_MODULE_NOT_FOUND"

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
		return "Invalid email or password."
	case ErrSessionInvalidated:
		return "Your session has ended. Please log in again."
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You are not allowed to access this resource."
	case ErrTeacherAccessOnly:
		return "This resource is restricted to course staff."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid ID format."

	// ─── Resources ─────────────────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrConflict:
		return "Resource already exists."

	// ─── Exam mode ─────────────────────────────────────────────────────
	case ErrExamEntryRejected:
		return "You cannot enter this exam."
	case ErrExamContentNotConfigured:
		return "This exam has not been set up yet. Please contact the course staff."
	case ErrExamAttemptInProgress:
		return "You already have an exam in progress."
	case ErrExamSessionNotFound:
		return "Exam session not found."
	case ErrDuplicateExamSession:
		return "An exam session with this name and room already exists."
	case ErrExamModuleNotInCourse:
		return "The exam module does not belong to this course."
	case ErrCourseNotFound:
		return "Course not found."
	case ErrCourseModuleNotFound:
		return "Course module not found."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "Internal server error."
	default:
		return "An unexpected error occurred."
	}
}
