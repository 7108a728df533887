// Package apperr описывает таксономию ошибок сессии. Ошибки несут
// машиночитаемый код, который поднимается до границы диспетчеризации команд.
package apperr

import (
	"errors"
	"fmt"
)

// Code - машиночитаемый код ошибки.
type Code string

const (
	CodeUnknown          Code = "UNKNOWN"
	CodeNotFound         Code = "NOT_FOUND"
	CodeDuplicateName    Code = "DUPLICATE_NAME"
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeMalformedMessage Code = "MALFORMED_MESSAGE"
	CodeInvalidArgument  Code = "INVALID_ARGUMENT"
)

// Error - доменная ошибка с кодом.
type Error struct {
	Code     Code              // Машиночитаемый код
	Message  string            // Текст для логов и для клиента (одна строка)
	Metadata map[string]string // Контекст: map, id, user...
	Cause    error             // Исходная ошибка, если есть
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is сравнивает ошибки по коду, поэтому errors.Is(err, apperr.NotFound) работает
// для любой ошибки NOT_FOUND.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// Сторожевые значения для errors.Is.
var (
	NotFound         = &Error{Code: CodeNotFound, Message: "not found"}
	DuplicateName    = &Error{Code: CodeDuplicateName, Message: "duplicate name"}
	Unauthorized     = &Error{Code: CodeUnauthorized, Message: "unauthorized"}
	MalformedMessage = &Error{Code: CodeMalformedMessage, Message: "malformed message"}
	InvalidArgument  = &Error{Code: CodeInvalidArgument, Message: "invalid argument"}
)

func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithMetadata добавляет контекст к ошибке и возвращает её же.
func (e *Error) WithMetadata(key, value string) *Error {
	if e.Metadata == nil {
		e.Metadata = make(map[string]string)
	}
	e.Metadata[key] = value
	return e
}

// CodeOf достает код из цепочки ошибок. Для чужих ошибок - CodeUnknown.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeUnknown
}

// Хелперы для частых случаев.

func MapNotFound(name string) *Error {
	return New(CodeNotFound, "map '%s' not found", name).WithMetadata("map", name)
}

func ObjectNotFound(mapName, id string) *Error {
	return New(CodeNotFound, "object '%s' not found on map '%s'", id, mapName).
		WithMetadata("map", mapName).
		WithMetadata("object", id)
}

func Invalid(format string, args ...any) *Error {
	return New(CodeInvalidArgument, format, args...)
}

func Denied(format string, args ...any) *Error {
	return New(CodeUnauthorized, format, args...)
}
