package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

type ErrorCode string

const (
	ErrCodeNotFound           ErrorCode = "NOT_FOUND"
	ErrCodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden          ErrorCode = "FORBIDDEN"
	ErrCodeValidation         ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidTransition  ErrorCode = "INVALID_TRANSITION"
	ErrCodePreconditionNotMet ErrorCode = "PRECONDITION_NOT_MET"
	ErrCodeServer             ErrorCode = "SERVER_ERROR"
)

type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
	}
}

func Wrap(err error, code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: codeToHTTPStatus(code),
		Cause:      err,
	}
}

func codeToHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeNotFound:
		return http.StatusNotFound
	case ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeValidation:
		return http.StatusBadRequest
	case ErrCodeInvalidTransition:
		return http.StatusConflict
	case ErrCodePreconditionNotMet:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func IsNotFound(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeNotFound
}

func IsForbidden(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeForbidden
}

func IsInvalidTransition(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodeInvalidTransition
}

func IsPreconditionNotMet(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == ErrCodePreconditionNotMet
}

var (
	ErrMilestoneNotFound = New(ErrCodeNotFound, "этап не найден")
	ErrProjectNotFound   = New(ErrCodeNotFound, "проект не найден")
	ErrPaymentNotFound   = New(ErrCodeNotFound, "платёж не найден")
	ErrUserNotFound      = New(ErrCodeNotFound, "пользователь не найден")
	ErrUnauthorized      = New(ErrCodeUnauthorized, "требуется авторизация")
	ErrForbidden         = New(ErrCodeForbidden, "недостаточно прав")
)
