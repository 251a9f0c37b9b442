// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов и ошибок в едином формате.
package response

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/subscription-manager/internal/lib/apperr"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Kind: машиночитаемый вид ошибки (при неуспехе).
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Kind   string `json:"kind,omitempty"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse: структура ошибки для Swagger-документации.
// Используется в аннотациях @Failure как возвращаемый тип ошибки.
type ErrorResponse struct {
	Status string `json:"status" example:"Error"`
	Kind   string `json:"kind" example:"bad_request"`
	Error  string `json:"error" example:"invalid request body"`
}

const (
	// StatusOK: значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError: значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает Response с ошибкой вида kind и переданным сообщением.
func Error(kind apperr.Kind, msg string) Response {
	return Response{
		Status: StatusError,
		Kind:   string(kind),
		Error:  msg,
	}
}

// FromError строит Response по ошибке приложения.
func FromError(err error) Response {
	return Error(apperr.KindOf(err), apperr.MessageOf(err))
}

// StatusFor возвращает HTTP-статус для вида ошибки.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindBadRequest:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// RenderError пишет ошибку приложения. overrides позволяет эндпоинту
// сообщать отдельные виды ошибок другим статусом.
func RenderError(w http.ResponseWriter, r *http.Request, err error, overrides map[apperr.Kind]int) {
	kind := apperr.KindOf(err)
	status := StatusFor(kind)
	if s, ok := overrides[kind]; ok {
		status = s
	}
	render.Status(r, status)
	render.JSON(w, r, FromError(err))
}

// ConflictAsBadRequest: переопределение для эндпоинтов, которые
// сообщают о конфликте статусом 400.
var ConflictAsBadRequest = map[apperr.Kind]int{apperr.KindConflict: http.StatusBadRequest}
