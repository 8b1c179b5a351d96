// Package sl содержит вспомогательные функции для работы с логгером slog.
package sl

import (
	"log/slog"

	"github.com/magabrotheeeer/qrpay/internal/lib/e"
)

// Err возвращает slog.Attr с ключом "error" и значением текста ошибки.
// Для nil возвращает пустую строку, чтобы не паниковать в ветках логирования.
//
// Пример:
//
//	log.Error("failed to verify payment", sl.Err(err))
func Err(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.Attr{
		Key:   "error",
		Value: slog.StringValue(err.Error()),
	}
}

// Kind возвращает атрибут с классом ошибки приложения.
func Kind(err error) slog.Attr {
	return slog.String("kind", e.KindOf(err).String())
}
