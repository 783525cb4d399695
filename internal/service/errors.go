package service

import (
	"errors"

	"task-workflow-api/internal/domain"
)

// ErrorCode classifies a failed command or query for callers.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "VALIDATION_ERROR"
	CodeInvariantViolation ErrorCode = "INVARIANT_VIOLATION"
	CodeNotFound           ErrorCode = "NOT_FOUND"
	CodeForbidden          ErrorCode = "FORBIDDEN"
	CodeConflict           ErrorCode = "CONFLICT"
	CodeInternal           ErrorCode = "INTERNAL_ERROR"
)

// codeOK labels successful commands in metrics.
const codeOK = "OK"

// ErrorDetail is one entry of the error envelope.
type ErrorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Field   string    `json:"field,omitempty"`
}

// CodeOf maps err onto its error code. Unknown errors are internal.
func CodeOf(err error) ErrorCode {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrValidation):
		return CodeValidation
	case errors.Is(err, domain.ErrInvariantViolation):
		return CodeInvariantViolation
	case errors.Is(err, domain.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, domain.ErrForbidden):
		return CodeForbidden
	case errors.Is(err, domain.ErrConflict):
		return CodeConflict
	}
	return CodeInternal
}

// ErrorDetails renders err as envelope entries. Validation errors produce one
// entry per field; internal errors never leak their message.
func ErrorDetails(err error) []ErrorDetail {
	if err == nil {
		return nil
	}
	code := CodeOf(err)
	if code == CodeInternal {
		return []ErrorDetail{{Code: code, Message: "internal error"}}
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) && len(verr.Errors) > 0 {
		details := make([]ErrorDetail, 0, len(verr.Errors))
		for _, fe := range verr.Errors {
			details = append(details, ErrorDetail{Code: CodeValidation, Message: fe.Message, Field: fe.Field})
		}
		return details
	}

	var ierr *domain.InvariantViolationError
	if errors.As(err, &ierr) {
		return []ErrorDetail{{Code: code, Message: ierr.Error()}}
	}
	return []ErrorDetail{{Code: code, Message: err.Error()}}
}
