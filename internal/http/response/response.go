// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON‑ответов HTTP‑обработчиков. Пакет упрощает возврат
// успешных ответов, ошибок и сообщений валидации в едином формате.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/qrpay/internal/lib/e"
)

// Response описывает стандартную структуру JSON‑ответа сервера.
// Поле Status: статус запроса ("OK" или "Error").
// Поле Error: текст ошибки (опционально, при неуспехе).
// Поле Data: данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse структура ошибки для Swagger-документации и ответов с ошибкой.
// Retryable выставляется, когда запрос имеет смысл повторить.
// Detail заполняется только вне боевого окружения.
type ErrorResponse struct {
	Status    string `json:"status" example:"Error"`
	Error     string `json:"error" example:"invalid request body"`
	Retryable bool   `json:"retryable,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

const (
	// StatusOK значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// StatusOKWithData возвращает успешный Response с переданными данными.
func StatusOKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// Error возвращает ErrorResponse с переданным сообщением.
func Error(msg string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  msg,
	}
}

// ErrorStatus возвращает HTTP-статус для класса ошибки.
func ErrorStatus(kind e.Kind) int {
	switch kind {
	case e.InvalidInput, e.ProviderRejected:
		return http.StatusBadRequest
	case e.Unauthenticated:
		return http.StatusUnauthorized
	case e.Forbidden:
		return http.StatusForbidden
	case e.UserNotFound, e.NotFound:
		return http.StatusNotFound
	case e.ReferenceConflict:
		return http.StatusConflict
	case e.ProviderUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// FromError пишет ответ с ошибкой, выбирая статус по её классу.
// Текст внутренних ошибок клиенту не отдаётся; в detail он попадает только при showDetail.
func FromError(w http.ResponseWriter, r *http.Request, err error, showDetail bool) {
	kind := e.KindOf(err)
	status := ErrorStatus(kind)

	resp := Error(publicMessage(err, kind, status))
	resp.Retryable = kind.Retryable()
	if showDetail {
		resp.Detail = err.Error()
	}

	w.WriteHeader(status)
	render.JSON(w, r, resp)
}

// publicMessage возвращает сообщение самой внешней классифицированной ошибки
// для клиентских ошибок и общее описание класса для серверных.
func publicMessage(err error, kind e.Kind, status int) string {
	if status >= http.StatusInternalServerError {
		if kind == e.Other {
			return e.Internal.String()
		}
		return kind.String()
	}
	for err != nil {
		appErr, ok := err.(*e.Error)
		if !ok {
			break
		}
		if appErr.Message != "" {
			return appErr.Message
		}
		err = appErr.Err
	}
	return kind.String()
}

// ValidationError формирует Response со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко‑читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "alphanum":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only numbers and letters", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters long", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters long", err.Field(), err.Param()))
		case "uuid":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s can contain only uuid", err.Field()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status: StatusError,
		Error:  strings.Join(errsMsgs, ", "),
	}
}
