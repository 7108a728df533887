package handlers

import (
	"github.com/hopper1357/VTT/internal/apperr"
	"github.com/hopper1357/VTT/pkg/api"
)

// Binder заполняет типизированный payload из аргументов команды.
type Binder interface {
	Bind(a Args) error
}

// TypedHandlerFunc - это "чистый" хендлер, который работает с готовой структурой T.
// Args передаются тоже: из них собирается канонический эффект.
type TypedHandlerFunc[T any] func(ctx Context, args Args, payload T) (Result, error)

// EmptyHandlerFunc - хендлер, которому НЕ нужны аргументы (help, status)
type EmptyHandlerFunc func(ctx Context) (Result, error)

// WithPayload берет "чистый" хендлер и превращает его в стандартный HandlerFunc.
// Она берет на себя Bind и Validate.
func WithPayload[T any, PT interface {
	*T
	Binder
}](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx Context, args Args) (Result, error) {
		var payload T

		// 1. Разбор аргументов
		if err := PT(&payload).Bind(args); err != nil {
			return Result{}, err
		}

		// 2. Автоматическая валидация
		// Проверяем, реализует ли структура T интерфейс Validator
		if v, ok := any(payload).(api.Validator); ok {
			if err := v.Validate(); err != nil {
				return Result{}, apperr.Wrap(apperr.CodeInvalidArgument, err, "%s", args.Verb)
			}
		}

		// 3. Вызов чистой логики
		return handler(ctx, args, payload)
	}
}

// WithEmptyPayload - обертка для команд без аргументов
func WithEmptyPayload(handler EmptyHandlerFunc) HandlerFunc {
	return func(ctx Context, _ Args) (Result, error) {
		return handler(ctx)
	}
}
