// Package e описывает типизированные ошибки приложения.
//
// Каждая ошибка несёт Kind: по нему вызывающий код выбирает HTTP-статус или решает,
// повторять ли запрос. Текст сообщения для этого не используется.
package e

import (
	"errors"
	"strings"
)

// Kind класс ошибки.
type Kind uint8

// Классы ошибок, не зависящие от транспорта.
const (
	Other                  Kind = iota // Неклассифицированная ошибка
	Internal                           // Внутренняя ошибка
	InvalidInput                       // Некорректные входные данные
	Unauthenticated                    // Вызывающий не аутентифицирован
	Forbidden                          // Доступ запрещён
	UserNotFound                       // Пользователь не найден или удалён
	NotFound                           // Сущность не найдена
	ProviderUnavailable                // Провайдер не ответил (сеть, таймаут), можно повторить
	ProviderRejected                   // Провайдер ответил отказом
	ConfigurationError                 // Не настроены учётные данные провайдера
	DuplicateReference                 // Нарушена уникальность reference при вставке
	ReferenceConflict                  // Reference уже принадлежит другому пользователю
	ProjectionUpdateFailed             // Не удалось обновить проекцию статуса оплаты пользователя
)

func (k Kind) String() string {
	switch k {
	case Internal:
		return "internal error"
	case InvalidInput:
		return "invalid input"
	case Unauthenticated:
		return "unauthenticated"
	case Forbidden:
		return "forbidden"
	case UserNotFound:
		return "user not found"
	case NotFound:
		return "not found"
	case ProviderUnavailable:
		return "payment provider unavailable"
	case ProviderRejected:
		return "payment provider rejected the transaction"
	case ConfigurationError:
		return "configuration error"
	case DuplicateReference:
		return "duplicate reference"
	case ReferenceConflict:
		return "reference belongs to another user"
	case ProjectionUpdateFailed:
		return "projection update failed"
	default:
		return "unclassified error"
	}
}

// Retryable сообщает, имеет ли смысл вызывающему повторить запрос.
func (k Kind) Retryable() bool {
	return k == ProviderUnavailable
}

// Op имя операции, в которой возникла ошибка, например "services.payment.Verify".
type Op string

// Error стандартная ошибка приложения.
type Error struct {
	Kind    Kind
	Op      Op
	Message string
	// StatusCode код ответа внешней системы, если он есть.
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(string(e.Op))
		b.WriteString(": ")
	}
	switch {
	case e.Message != "":
		b.WriteString(e.Message)
	default:
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap возвращает обёрнутую ошибку.
func (e *Error) Unwrap() error {
	return e.Err
}

// E собирает *Error из аргументов в произвольном порядке:
// Kind, Op, string (сообщение), int (код ответа внешней системы), error (причина).
//
// Если причина сама является *Error, а Kind не задан, Kind наследуется.
func E(args ...any) error {
	res := &Error{}
	for _, arg := range args {
		switch a := arg.(type) {
		case Kind:
			res.Kind = a
		case Op:
			res.Op = a
		case string:
			res.Message = a
		case int:
			res.StatusCode = a
		case error:
			res.Err = a
		}
	}
	if res.Kind == Other {
		res.Kind = KindOf(res.Err)
	}
	return res
}

// KindOf возвращает класс первой *Error в цепочке или Other.
func KindOf(err error) Kind {
	var appErr *Error
	for err != nil {
		if !errors.As(err, &appErr) {
			return Other
		}
		if appErr.Kind != Other {
			return appErr.Kind
		}
		err = appErr.Err
	}
	return Other
}

// Is сообщает, относится ли ошибка к классу kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// StatusCodeOf возвращает код ответа внешней системы, сохранённый в цепочке ошибок.
func StatusCodeOf(err error) int {
	var appErr *Error
	for err != nil {
		if !errors.As(err, &appErr) {
			return 0
		}
		if appErr.StatusCode != 0 {
			return appErr.StatusCode
		}
		err = appErr.Err
	}
	return 0
}
