// Package apperr описывает таксономию ошибок уровня бизнес-логики.
//
// Каждая ошибка несёт машиночитаемый вид (Kind) и человекочитаемое сообщение.
// HTTP-слой преобразует вид ошибки в статус ответа, сервисы никогда не
// оперируют HTTP-статусами напрямую.
package apperr

import (
	"errors"
	"fmt"
)

// Kind: вид ошибки.
type Kind string

const (
	// KindBadRequest: отсутствующие или некорректные входные данные.
	KindBadRequest Kind = "bad_request"
	// KindUnauthorized: неверные учётные данные.
	KindUnauthorized Kind = "unauthorized"
	// KindForbidden: недостаточно прав.
	KindForbidden Kind = "forbidden"
	// KindNotFound: план или подписка не найдены.
	KindNotFound Kind = "not_found"
	// KindConflict: нарушение уникальности или уже существующая активная подписка.
	KindConflict Kind = "conflict"
	// KindInternal: непредвиденная ошибка хранилища или инфраструктуры.
	KindInternal Kind = "internal"
)

// Error: ошибка бизнес-логики с видом и сообщением для клиента.
type Error struct {
	Kind    Kind   // Вид ошибки
	Message string // Сообщение, которое можно показать клиенту
	Err     error  // Исходная ошибка (опционально)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New создаёт ошибку заданного вида.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap создаёт ошибку заданного вида, сохраняя исходную причину.
func Wrap(err error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func BadRequest(msg string) *Error   { return New(KindBadRequest, msg) }
func Unauthorized(msg string) *Error { return New(KindUnauthorized, msg) }
func Forbidden(msg string) *Error    { return New(KindForbidden, msg) }
func NotFound(msg string) *Error     { return New(KindNotFound, msg) }
func Conflict(msg string) *Error     { return New(KindConflict, msg) }

// Internal оборачивает непредвиденную ошибку. Сообщение для клиента
// намеренно общее, детали остаются только в логах.
func Internal(err error) *Error {
	return Wrap(err, KindInternal, "internal server error")
}

// KindOf возвращает вид ошибки. Любая ошибка, не являющаяся *Error,
// считается внутренней.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf возвращает сообщение для клиента.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "internal server error"
}

// Is сообщает, относится ли ошибка к указанному виду.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
